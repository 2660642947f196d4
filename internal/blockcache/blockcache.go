/*
 * vcore - Bounded LRU block cache.
 *
 * Copyright 2026, vcore authors
 *
 * Permission is hereby granted, free of charge, to any person obtaining a copy
 * of this software and associated documentation files (the "Software"), to deal
 * in the Software without restriction, including without limitation the rights
 * to use, copy, modify, merge, publish, distribute, sublicense, and/or sell
 * copies of the Software, and to permit persons to whom the Software is
 * furnished to do so, subject to the following conditions:
 *
 * The above copyright notice and this permission notice shall be included in
 * all copies or substantial portions of the Software.
 *
 * THE SOFTWARE IS PROVIDED "AS IS", WITHOUT WARRANTY OF ANY KIND, EXPRESS OR
 * IMPLIED, INCLUDING BUT NOT LIMITED TO THE WARRANTIES OF MERCHANTABILITY,
 * FITNESS FOR A PARTICULAR PURPOSE AND NONINFRINGEMENT. IN NO EVENT SHALL THE
 * AUTHORS OR COPYRIGHT HOLDERS BE LIABLE FOR ANY CLAIM, DAMAGES OR OTHER
 * LIABILITY, WHETHER IN AN ACTION OF CONTRACT, TORT OR OTHERWISE, ARISING FROM,
 * OUT OF OR IN CONNECTION WITH THE SOFTWARE OR THE USE OR OTHER DEALINGS IN THE
 * SOFTWARE.
 *
 */

// Package blockcache holds decoded-and-optimized IR blocks keyed by
// (source ISA, target ISA, entry PC, content hash), bounded by an LRU
// eviction policy so a long-running guest never grows the cache without
// limit. The intrusive doubly-linked list threaded through each entry is
// the same shape as the teacher's event queue: a fixed-size table of
// entries linked by index, not by a separately heap-allocated list
// package.
package blockcache

import (
	"crypto/sha256"
	"sync"

	"github.com/rcornwell/vcore/internal/decoder"
	"github.com/rcornwell/vcore/internal/ir"
)

// DefaultCapacity is the number of blocks held before the LRU begins
// evicting.
const DefaultCapacity = 4096

// Key identifies one cached block. Two blocks at the same PC with
// different guest bytes underneath (self-modifying code) must never
// collide, hence the content hash.
type Key struct {
	SourceISA decoder.ISA
	TargetISA decoder.ISA
	PC        ir.GuestAddr
	Hash      [32]byte
}

// Fingerprint derives the content hash component of a Key from raw guest
// bytes.
func Fingerprint(bytes []byte) [32]byte {
	return sha256.Sum256(bytes)
}

// Value is a cached compilation artifact: the IR block plus whatever
// native code the JIT has produced for it so far. NativeCode is nil
// until the JIT promotes the block.
type Value struct {
	Block      *ir.Block
	NativeCode []byte
	HitCount   uint64
}

type entry struct {
	key        Key
	value      *Value
	prev, next int // list link indices into cache.entries, -1 if none
}

// Cache is a bounded, thread-safe LRU keyed by Key. The zero value is
// not usable; construct with New.
type Cache struct {
	mu       sync.RWMutex
	capacity int
	index    map[Key]int
	entries  []entry
	free     []int // recycled entry slots
	head     int   // most recently used, -1 if empty
	tail     int   // least recently used, -1 if empty
}

// New builds a Cache bounded at capacity entries.
func New(capacity int) *Cache {
	if capacity <= 0 {
		capacity = DefaultCapacity
	}
	return &Cache{
		capacity: capacity,
		index:    make(map[Key]int, capacity),
		head:     -1,
		tail:     -1,
	}
}

// Get returns the cached value for key and marks it most-recently-used,
// or reports ok=false on a miss.
func (c *Cache) Get(key Key) (*Value, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	i, ok := c.index[key]
	if !ok {
		return nil, false
	}
	c.entries[i].value.HitCount++
	c.moveToFront(i)
	return c.entries[i].value, true
}

// Insert adds or replaces the entry for key, evicting the
// least-recently-used entry if the cache is at capacity.
func (c *Cache) Insert(key Key, value *Value) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if i, ok := c.index[key]; ok {
		c.entries[i].value = value
		c.moveToFront(i)
		return
	}
	var i int
	if len(c.index) >= c.capacity && c.tail != -1 {
		i = c.evictLocked()
	} else if len(c.free) > 0 {
		i = c.free[len(c.free)-1]
		c.free = c.free[:len(c.free)-1]
	} else {
		i = len(c.entries)
		c.entries = append(c.entries, entry{})
	}
	c.entries[i] = entry{key: key, value: value, prev: -1, next: -1}
	c.index[key] = i
	c.pushFront(i)
}

// Invalidate removes every entry for which match returns true, used for
// self-modifying-code invalidation and MMU permission changes that widen
// writability over a previously cached region.
func (c *Cache) Invalidate(match func(Key) bool) int {
	c.mu.Lock()
	defer c.mu.Unlock()
	removed := 0
	for k, i := range c.index {
		if match(k) {
			c.unlink(i)
			delete(c.index, k)
			c.free = append(c.free, i)
			removed++
		}
	}
	return removed
}

// Len reports the current entry count.
func (c *Cache) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.index)
}

func (c *Cache) evictLocked() int {
	victim := c.tail
	key := c.entries[victim].key
	c.unlink(victim)
	delete(c.index, key)
	return victim
}

func (c *Cache) unlink(i int) {
	e := &c.entries[i]
	if e.prev != -1 {
		c.entries[e.prev].next = e.next
	} else if c.head == i {
		c.head = e.next
	}
	if e.next != -1 {
		c.entries[e.next].prev = e.prev
	} else if c.tail == i {
		c.tail = e.prev
	}
	e.prev, e.next = -1, -1
}

func (c *Cache) pushFront(i int) {
	c.entries[i].prev = -1
	c.entries[i].next = c.head
	if c.head != -1 {
		c.entries[c.head].prev = i
	}
	c.head = i
	if c.tail == -1 {
		c.tail = i
	}
}

func (c *Cache) moveToFront(i int) {
	if c.head == i {
		return
	}
	c.unlink(i)
	c.pushFront(i)
}
