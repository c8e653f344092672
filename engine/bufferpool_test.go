package engine

import "testing"

func TestBufferPoolCheckoutCheckin(t *testing.T) {
	p := NewBufferPool(1024, 2)
	b1 := p.Checkout()
	if cap(b1) != 1024 || len(b1) != 0 {
		t.Fatalf("unexpected buffer shape: cap=%d len=%d", cap(b1), len(b1))
	}
	b1 = append(b1, []byte("data")...)
	p.Checkin(b1)
	if p.Len() != 1 {
		t.Fatalf("Len() = %d, want 1", p.Len())
	}

	b2 := p.Checkout()
	if len(b2) != 0 {
		t.Fatalf("recycled buffer should be reset to zero length, got %d", len(b2))
	}
	if p.Len() != 0 {
		t.Fatalf("Len() after checkout = %d, want 0", p.Len())
	}
}

func TestBufferPoolRejectsMismatchedCapacity(t *testing.T) {
	p := NewBufferPool(64, 4)
	wrong := make([]byte, 0, 32)
	p.Checkin(wrong)
	if p.Len() != 0 {
		t.Fatalf("pool accepted a buffer with the wrong capacity")
	}
}

func TestBufferPoolCapsQueueDepth(t *testing.T) {
	p := NewBufferPool(16, 1)
	p.Checkin(make([]byte, 0, 16))
	p.Checkin(make([]byte, 0, 16))
	if p.Len() != 1 {
		t.Fatalf("Len() = %d, want 1 (capped)", p.Len())
	}
}
