package mqtt

import "testing"

func TestPacketIDSetLowestFreeAllocation(t *testing.T) {
	s := newPacketIDSet(width16)
	for want := uint32(1); want <= 5; want++ {
		got, err := s.acquire()
		if err != nil {
			t.Fatalf("acquire: %v", err)
		}
		if got != want {
			t.Fatalf("acquire() = %d, want %d", got, want)
		}
	}
	s.release(3)
	got, err := s.acquire()
	if err != nil {
		t.Fatalf("acquire after release: %v", err)
	}
	if got != 3 {
		t.Fatalf("acquire() after releasing 3 = %d, want 3", got)
	}
}

func TestPacketIDNeverZero(t *testing.T) {
	s := newPacketIDSet(width16)
	if s.contains(0) {
		t.Fatal("0 must never be a member")
	}
	if err := s.register(0); err != ErrPacketIdentifierInvalid {
		t.Fatalf("register(0) = %v, want ErrPacketIdentifierInvalid", err)
	}
}

func TestPacketIDRegisterConflict(t *testing.T) {
	s := newPacketIDSet(width16)
	if err := s.register(10); err != nil {
		t.Fatal(err)
	}
	if err := s.register(10); err != ErrPacketIdentifierConflict {
		t.Fatalf("expected ErrPacketIdentifierConflict, got %v", err)
	}
}

func TestPacketIDReleaseIdempotent(t *testing.T) {
	s := newPacketIDSet(width16)
	s.release(99) // never acquired; must not panic or error
	if err := s.register(99); err != nil {
		t.Fatal(err)
	}
	s.release(99)
	s.release(99)
	if s.contains(99) {
		t.Fatal("99 should be released")
	}
}

func TestPacketIDExhaustion16Bit(t *testing.T) {
	s := newPacketIDSet(width16)
	// Fill the 16-bit space directly via the membership map instead of
	// acquiring 65535 times one at a time.
	for id := uint32(1); id <= s.width.max(); id++ {
		s.inUse[id] = struct{}{}
	}
	s.low = 1
	if _, err := s.acquire(); err != ErrPacketIdentifiersExhausted {
		t.Fatalf("expected ErrPacketIdentifiersExhausted, got %v", err)
	}
	s.release(42)
	got, err := s.acquire()
	if err != nil || got != 42 {
		t.Fatalf("acquire after release(42) = %d, %v", got, err)
	}
}

func TestPacketIDWidth32AllowsLargeIdentifiers(t *testing.T) {
	s := newPacketIDSet(width32)
	if err := s.register(1 << 20); err != nil {
		t.Fatalf("register: %v", err)
	}
	if !s.contains(1 << 20) {
		t.Fatal("expected 1<<20 to be a member")
	}
}
