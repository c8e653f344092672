package engine

import (
	"bytes"
	"context"
	"testing"

	"github.com/odbcfast/engine/calldriver/calldrivertest"
)

func TestSpillStreamInMemoryRoundTrip(t *testing.T) {
	s := NewSpillStream(1024)
	if err := s.Write([]byte("hello ")); err != nil {
		t.Fatalf("Write: %v", err)
	}
	if err := s.Write([]byte("world")); err != nil {
		t.Fatalf("Write: %v", err)
	}
	if s.Spilled() {
		t.Fatalf("expected no spill under threshold")
	}
	got, err := s.ReadBack()
	if err != nil {
		t.Fatalf("ReadBack: %v", err)
	}
	if string(got) != "hello world" {
		t.Fatalf("got %q, want %q", got, "hello world")
	}
}

// Invariant 9: writing > threshold bytes produces an output equal
// byte-for-byte to the concatenation of all written chunks.
func TestSpillStreamDiskSpillByteForByte(t *testing.T) {
	s := NewSpillStream(16)
	var want bytes.Buffer
	chunks := [][]byte{
		[]byte("0123456789"),
		[]byte("abcdefghij"),
		[]byte("ZZZZZZZZZZ"),
	}
	for _, c := range chunks {
		want.Write(c)
		if err := s.Write(c); err != nil {
			t.Fatalf("Write: %v", err)
		}
	}
	if !s.Spilled() {
		t.Fatalf("expected stream to have spilled past the 16-byte threshold")
	}
	got, err := s.ReadBack()
	if err != nil {
		t.Fatalf("ReadBack: %v", err)
	}
	if !bytes.Equal(got, want.Bytes()) {
		t.Fatalf("got %q, want %q", got, want.Bytes())
	}
}

func TestStreamingExecutorBatchesRows(t *testing.T) {
	drv := calldrivertest.NewDriver()
	ctx := context.Background()
	conn, _ := drv.Connect(ctx, "dsn=test", 0)
	defer conn.Close()

	if _, err := conn.ExecDirect(ctx, "create table stream (id int)"); err != nil {
		t.Fatalf("create table: %v", err)
	}
	for i := 0; i < 25; i++ {
		if _, err := conn.ExecDirect(ctx, "insert into stream (id) values ("+itoa(i)+")"); err != nil {
			t.Fatalf("insert %d: %v", i, err)
		}
	}

	exec := NewStreamingExecutor(defaultSpillThreshold)
	stream, err := exec.Execute(ctx, conn, "select id from stream order by id", 10)
	if err != nil {
		t.Fatalf("Execute: %v", err)
	}
	data, err := stream.ReadBack()
	if err != nil {
		t.Fatalf("ReadBack: %v", err)
	}
	if len(data) == 0 {
		t.Fatalf("expected non-empty streamed output")
	}
}
