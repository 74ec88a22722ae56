package memory

import (
	"testing"

	"github.com/mqttcore/sansio/mqtt/storage"
)

func TestStoreGetDrop(t *testing.T) {
	s := NewStorage()
	if err := s.Store(1, "one"); err != nil {
		t.Fatal(err)
	}
	got, err := s.Get(1)
	if err != nil || got != "one" {
		t.Fatalf("Get(1) = %v, %v", got, err)
	}
	if err := s.Store(1, "dup"); err != storage.ErrDuplicateEntry {
		t.Fatalf("expected ErrDuplicateEntry, got %v", err)
	}
	if err := s.Drop(1); err != nil {
		t.Fatal(err)
	}
	if _, err := s.Get(1); err != storage.ErrNoEntry {
		t.Fatalf("expected ErrNoEntry after Drop, got %v", err)
	}
	if err := s.Drop(1); err != storage.ErrNoEntry {
		t.Fatalf("Drop of a missing entry should report ErrNoEntry, got %v", err)
	}
}

func TestAllPreservesInsertionOrder(t *testing.T) {
	s := NewStorage()
	_ = s.Store(1, "a")
	_ = s.Store(2, "b")
	_ = s.Store(3, "c")
	all := s.All()
	if len(all) != 3 || all[0] != "a" || all[1] != "b" || all[2] != "c" {
		t.Fatalf("All() = %v", all)
	}
}
