// Package security implements the credential-lifetime and audit
// machinery described in spec.md §4.13: a zeroing secret buffer, a
// process-local secret manager, and a bounded audit ring.
package security

import (
	"runtime"
	"sync"
)

// SecureBuffer owns a byte slice that is zeroed when Close is called, and
// defensively zeroed by a finalizer if a caller forgets. Go has no
// deterministic destructors, so Close (or the finalizer as a last
// resort) stands in for the "zeroed on drop" contract.
type SecureBuffer struct {
	mu     sync.Mutex
	data   []byte
	closed bool
}

// NewSecureBuffer copies src into a SecureBuffer-owned slice.
func NewSecureBuffer(src []byte) *SecureBuffer {
	b := &SecureBuffer{data: append([]byte(nil), src...)}
	runtime.SetFinalizer(b, (*SecureBuffer).Close)
	return b
}

// Bytes returns the buffer's current contents. The returned slice aliases
// internal storage and must not be retained past Close.
func (b *SecureBuffer) Bytes() []byte {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.closed {
		return nil
	}
	return b.data
}

// Close zeroes the buffer's storage. Safe to call more than once.
func (b *SecureBuffer) Close() {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.closed {
		return
	}
	for i := range b.data {
		b.data[i] = 0
	}
	b.closed = true
	runtime.SetFinalizer(b, nil)
}
