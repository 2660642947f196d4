package blockcache

import (
	"testing"

	"github.com/rcornwell/vcore/internal/decoder"
	"github.com/rcornwell/vcore/internal/ir"
)

func key(pc ir.GuestAddr, seed byte) Key {
	return Key{SourceISA: decoder.ISAx86_64, TargetISA: decoder.ISAx86_64, PC: pc, Hash: Fingerprint([]byte{seed})}
}

func TestGetMissOnEmptyCache(t *testing.T) {
	c := New(4)
	if _, ok := c.Get(key(0, 0)); ok {
		t.Fatalf("expected a miss")
	}
}

func TestInsertThenGetHits(t *testing.T) {
	c := New(4)
	k := key(0x1000, 1)
	v := &Value{Block: &ir.Block{EntryPC: 0x1000}}
	c.Insert(k, v)
	got, ok := c.Get(k)
	if !ok || got != v {
		t.Fatalf("expected a hit returning the inserted value")
	}
	if got.HitCount != 1 {
		t.Fatalf("got hit count %d, want 1", got.HitCount)
	}
}

// TestLRUEvictsLeastRecentlyUsed exercises the bounded-capacity eviction
// scenario: filling the cache past capacity must drop the entry that was
// least recently touched, not simply the oldest insert.
func TestLRUEvictsLeastRecentlyUsed(t *testing.T) {
	c := New(2)
	k0, k1, k2 := key(0, 0), key(1, 1), key(2, 2)
	c.Insert(k0, &Value{})
	c.Insert(k1, &Value{})

	// Touch k0 so it becomes MRU; k1 is now the LRU victim.
	if _, ok := c.Get(k0); !ok {
		t.Fatalf("expected k0 hit")
	}
	c.Insert(k2, &Value{})

	if _, ok := c.Get(k1); ok {
		t.Fatalf("k1 should have been evicted as least-recently-used")
	}
	if _, ok := c.Get(k0); !ok {
		t.Fatalf("k0 was recently used and should have survived")
	}
	if _, ok := c.Get(k2); !ok {
		t.Fatalf("k2 was just inserted and should be present")
	}
	if c.Len() != 2 {
		t.Fatalf("got len %d, want 2", c.Len())
	}
}

func TestInvalidateRemovesMatching(t *testing.T) {
	c := New(8)
	c.Insert(key(0x100, 1), &Value{})
	c.Insert(key(0x200, 2), &Value{})
	c.Insert(key(0x300, 3), &Value{})

	removed := c.Invalidate(func(k Key) bool { return k.PC < 0x250 })
	if removed != 2 {
		t.Fatalf("got %d removed, want 2", removed)
	}
	if c.Len() != 1 {
		t.Fatalf("got len %d, want 1", c.Len())
	}
	if _, ok := c.Get(key(0x300, 3)); !ok {
		t.Fatalf("0x300 entry should have survived invalidation")
	}
}

func TestInsertReplacesExistingKey(t *testing.T) {
	c := New(4)
	k := key(0x10, 9)
	first := &Value{HitCount: 5}
	second := &Value{HitCount: 0}
	c.Insert(k, first)
	c.Insert(k, second)
	got, ok := c.Get(k)
	if !ok || got != second {
		t.Fatalf("expected the replacement value, got %+v", got)
	}
	if c.Len() != 1 {
		t.Fatalf("replacing an existing key must not grow the cache")
	}
}
