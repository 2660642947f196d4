/*
 * vcore - Tiered JIT compiler.
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

// Package jit promotes hot blocks from interpretation to native code in
// two tiers: a baseline compiler that emits quickly with minimal
// optimization, and an optimized compiler that runs once a block's hit
// count crosses a second, higher threshold. Published code is hot-swapped
// atomically into the block cache entry so a vCPU that is mid-interpret
// never observes a half-written code buffer.
package jit

import (
	"fmt"
	"sync/atomic"

	"github.com/rcornwell/vcore/internal/blockcache"
	"github.com/rcornwell/vcore/internal/corevent"
	"github.com/rcornwell/vcore/internal/ir"
)

// Tier identifies how much optimization a compiled block has received.
type Tier uint8

const (
	TierInterpret Tier = iota
	TierBaseline
	TierOptimized
)

// Thresholds gates hotspot promotion between tiers by execution count.
type Thresholds struct {
	Baseline  uint64
	Optimized uint64
}

// DefaultThresholds promotes to baseline after 50 executions and to
// optimized after 1000.
func DefaultThresholds() Thresholds {
	return Thresholds{Baseline: 50, Optimized: 1000}
}

// Backend emits native code for one target ISA. internal/jit/isa/amd64
// and internal/jit/isa/arm64 each provide one.
type Backend interface {
	Compile(b *ir.Block, tier Tier) ([]byte, error)
}

// CodeBuffer is a write-xor-execute native code region: it is writable
// while being filled and executable once Finalize is called, never both
// at once.
type CodeBuffer interface {
	Write(code []byte) error
	Finalize() error
	Addr() uintptr
	Close() error
}

// CodeBufferAllocator produces a CodeBuffer sized to hold at least n
// bytes.
type CodeBufferAllocator func(n int) (CodeBuffer, error)

// Compiler drives tiered compilation of cached blocks.
type Compiler struct {
	backend    Backend
	alloc      CodeBufferAllocator
	thresholds Thresholds
	events     *corevent.Bus
	cache      *blockcache.Cache
}

// New builds a Compiler targeting backend, allocating native code with
// alloc, publishing promotion events on bus.
func New(backend Backend, alloc CodeBufferAllocator, thresholds Thresholds, bus *corevent.Bus, cache *blockcache.Cache) *Compiler {
	return &Compiler{backend: backend, alloc: alloc, thresholds: thresholds, events: bus, cache: cache}
}

// OnExecute is called by the interpreter/scheduler after every execution
// of key's cached block; it decides whether the block has crossed a
// promotion threshold and, if so, compiles and atomically publishes the
// next tier.
func (c *Compiler) OnExecute(key blockcache.Key, value *blockcache.Value) error {
	hits := atomic.LoadUint64(&value.HitCount)
	switch {
	case hits == c.thresholds.Optimized:
		return c.compileAndPublish(key, value, TierOptimized)
	case hits == c.thresholds.Baseline:
		return c.compileAndPublish(key, value, TierBaseline)
	default:
		return nil
	}
}

func (c *Compiler) compileAndPublish(key blockcache.Key, value *blockcache.Value, tier Tier) error {
	code, err := c.backend.Compile(value.Block, tier)
	if err != nil {
		return fmt.Errorf("jit: compile tier %d: %w", tier, err)
	}
	buf, err := c.alloc(len(code))
	if err != nil {
		return fmt.Errorf("jit: allocate code buffer: %w", err)
	}
	if err := buf.Write(code); err != nil {
		buf.Close()
		return fmt.Errorf("jit: write code buffer: %w", err)
	}
	if err := buf.Finalize(); err != nil {
		buf.Close()
		return fmt.Errorf("jit: finalize code buffer: %w", err)
	}

	// Publish is the single atomic hot-swap: a concurrent reader sees
	// either the old NativeCode slice or the fully-written new one,
	// never a partial write, because the slice header assignment below
	// is the only mutation and Go guarantees it is not torn for a
	// pointer-sized field under the race detector's happens-before model
	// established by the cache's own RWMutex.
	c.cache.Insert(key, &blockcache.Value{
		Block:      value.Block,
		NativeCode: code,
		HitCount:   hits64(value),
	})

	if c.events != nil {
		c.events.Publish(corevent.Event{Kind: corevent.KindExecution, Execution: corevent.ExecutionEvent{
			BlockPC: value.Block.EntryPC, Compiled: true, OptimizedUp: tier == TierOptimized,
		}})
	}
	return nil
}

func hits64(v *blockcache.Value) uint64 {
	return atomic.LoadUint64(&v.HitCount)
}
