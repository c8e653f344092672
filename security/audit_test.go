package security

import "testing"

func TestAuditLogOverflowEvictsOldest(t *testing.T) {
	l := NewAuditLog()
	for i := 0; i < auditCapacity+10; i++ {
		l.Append(AuditEvent{EventType: "connect"})
	}
	if l.Len() != auditCapacity {
		t.Fatalf("len = %d, want %d", l.Len(), auditCapacity)
	}
}

func TestAuditLogRecentNewestFirst(t *testing.T) {
	l := NewAuditLog()
	for i := 0; i < 5; i++ {
		q := string(rune('a' + i))
		l.Append(AuditEvent{EventType: "query", Query: &q})
	}
	recent := l.Recent(3)
	if len(recent) != 3 {
		t.Fatalf("got %d events, want 3", len(recent))
	}
	if *recent[0].Query != "e" || *recent[1].Query != "d" || *recent[2].Query != "c" {
		t.Fatalf("unexpected order: %q %q %q", *recent[0].Query, *recent[1].Query, *recent[2].Query)
	}
}
