package mmu

import (
	"errors"
	"testing"

	"github.com/rcornwell/vcore/internal/ir"
)

type mapWalker struct {
	walkCount int
	mappings  map[uint64]Mapping
}

func (w *mapWalker) Walk(vpn uint64, asid uint16) (Mapping, error) {
	w.walkCount++
	m, ok := w.mappings[vpn]
	if !ok {
		return Mapping{}, errors.New("no mapping")
	}
	return m, nil
}

func TestTranslateMissThenHitDoesNotRewalk(t *testing.T) {
	w := &mapWalker{mappings: map[uint64]Mapping{0: {VPN: 0, PPN: 5, ASID: 1, Perm: PermRWX}}}
	m := New(w, DefaultConfig())

	pa, err := m.Translate(0x37, 1, PermRead)
	if err != nil {
		t.Fatalf("unexpected fault: %v", err)
	}
	if pa != ir.GuestAddr(5<<PageShift|0x37) {
		t.Fatalf("got pa 0x%x", pa)
	}
	if w.walkCount != 1 {
		t.Fatalf("got %d walks on first translate, want 1", w.walkCount)
	}

	if _, err := m.Translate(0x40, 1, PermRead); err != nil {
		t.Fatalf("unexpected fault on tlb hit: %v", err)
	}
	if w.walkCount != 1 {
		t.Fatalf("got %d walks, want 1 (second access should hit the tlb)", w.walkCount)
	}
}

func TestTranslateDeniesMissingPermission(t *testing.T) {
	w := &mapWalker{mappings: map[uint64]Mapping{0: {VPN: 0, PPN: 5, ASID: 1, Perm: PermRead}}}
	m := New(w, DefaultConfig())
	if _, err := m.Translate(0, 1, PermWrite); !errors.Is(err, ErrPageFault) {
		t.Fatalf("expected a page fault for denied write permission, got %v", err)
	}
}

func TestTranslateUnmappedFaults(t *testing.T) {
	w := &mapWalker{mappings: map[uint64]Mapping{}}
	m := New(w, DefaultConfig())
	if _, err := m.Translate(0x9000, 0, PermRead); !errors.Is(err, ErrPageFault) {
		t.Fatalf("expected a page fault, got %v", err)
	}
}

func TestInvalidateVAForcesRewalk(t *testing.T) {
	w := &mapWalker{mappings: map[uint64]Mapping{0: {VPN: 0, PPN: 5, ASID: 1, Perm: PermRWX}}}
	m := New(w, DefaultConfig())

	if _, err := m.Translate(0, 1, PermRead); err != nil {
		t.Fatalf("unexpected fault: %v", err)
	}
	m.InvalidateVA(0, 1)
	if _, err := m.Translate(0, 1, PermRead); err != nil {
		t.Fatalf("unexpected fault after reinstall: %v", err)
	}
	if w.walkCount != 2 {
		t.Fatalf("got %d walks, want 2 (invalidation must force a rewalk)", w.walkCount)
	}
}

func TestInvalidateASIDIsolatesOtherSpaces(t *testing.T) {
	w := &mapWalker{mappings: map[uint64]Mapping{
		0: {VPN: 0, PPN: 1, ASID: 1, Perm: PermRWX},
	}}
	m := New(w, DefaultConfig())
	if _, err := m.Translate(0, 1, PermRead); err != nil {
		t.Fatalf("unexpected fault: %v", err)
	}
	m.InvalidateASID(2) // different ASID, must not touch ASID 1's entry
	walksBefore := w.walkCount
	if _, err := m.Translate(0, 1, PermRead); err != nil {
		t.Fatalf("unexpected fault: %v", err)
	}
	if w.walkCount != walksBefore {
		t.Fatalf("invalidating a different ASID evicted an unrelated mapping")
	}
}

func TestInvalidateAllForcesRewalkAcrossASIDs(t *testing.T) {
	w := &mapWalker{mappings: map[uint64]Mapping{
		0: {VPN: 0, PPN: 1, ASID: 1, Perm: PermRWX},
		1: {VPN: 1, PPN: 2, ASID: 2, Perm: PermRWX},
	}}
	m := New(w, DefaultConfig())
	m.Translate(0, 1, PermRead)
	m.Translate(ir.GuestAddr(1<<PageShift), 2, PermRead)
	m.InvalidateAll()
	before := w.walkCount
	m.Translate(0, 1, PermRead)
	m.Translate(ir.GuestAddr(1<<PageShift), 2, PermRead)
	if w.walkCount != before+2 {
		t.Fatalf("got %d new walks, want 2 after a full invalidate", w.walkCount-before)
	}
}
