/*
 * vcore - Core facade wiring decode, optimize, interpret/JIT, MMU, and SMMU.
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

// Package vcore is the facade an outer harness (cmd/vcore, or an
// embedding host process) drives: it wires the decoder, block cache,
// optimizer, interpreter, JIT, MMU and SMMU into one Execute entry
// point per vCPU, the way the teacher's emu/core.go wires cpu+memory+
// channel into one Run loop. Nothing under internal/... imports
// config/...; a Config value is handed in fully populated.
package vcore

import (
	"fmt"
	"log/slog"
	"sync"

	"github.com/rcornwell/vcore/internal/blockcache"
	"github.com/rcornwell/vcore/internal/corevent"
	"github.com/rcornwell/vcore/internal/decoder"
	"github.com/rcornwell/vcore/internal/interp"
	"github.com/rcornwell/vcore/internal/ir"
	"github.com/rcornwell/vcore/internal/jit"
	"github.com/rcornwell/vcore/internal/mmu"
	"github.com/rcornwell/vcore/internal/optimizer"
	"github.com/rcornwell/vcore/internal/smmu"
)

// Config is the plain data the outer harness populates from
// config/configparser and config/debugconfig before constructing a Core.
type Config struct {
	SourceISA     decoder.ISA
	TargetISA     decoder.ISA
	BlockCacheCap int
	MMU           mmu.Config
	JITBaseline   uint64
	JITOptimized  uint64
}

// DefaultConfig mirrors the component defaults documented in each
// package (4096-entry block cache, modest multi-level TLB, 50/1000 JIT
// thresholds).
func DefaultConfig() Config {
	return Config{
		SourceISA:     decoder.ISAx86_64,
		TargetISA:     decoder.ISAx86_64,
		BlockCacheCap: blockcache.DefaultCapacity,
		MMU:           mmu.DefaultConfig(),
		JITBaseline:   50,
		JITOptimized:  1000,
	}
}

// ExitReason explains why Execute returned control to the caller.
type ExitReason uint8

const (
	ExitMaxCycles ExitReason = iota
	ExitHalt
	ExitTrap
	ExitError
)

// Core is one VM's wired-together execution engine. It holds no package
// globals: every attached vCPU, memory region, and device is reachable
// only through this struct, so multiple Cores coexist in one process.
type Core struct {
	cfg     Config
	log     *slog.Logger
	decoder decoder.Decoder
	cache   *blockcache.Cache
	events  *corevent.Bus
	smmu    *smmu.SMMU
	jit     *jit.Compiler

	vcpus map[int]*vcpuState
}

type vcpuState struct {
	mu   sync.Mutex
	mmu  *mmu.MMU
	regs interp.RegisterFile
	asid uint16
	mem  MemSource
	pc   ir.GuestAddr
}

// MemSource is the narrow guest-memory view Core needs to fetch
// instruction bytes and service interpreter loads/stores.
type MemSource interface {
	interp.Memory
	FetchBytes(addr ir.GuestAddr, maxLen int) ([]byte, error)
}

// New builds a Core from cfg. log must not be nil; pass
// slog.New(util_logger equivalent) from the outer harness.
func New(cfg Config, log *slog.Logger) (*Core, error) {
	d, err := decoder.For(cfg.SourceISA)
	if err != nil {
		return nil, fmt.Errorf("vcore: %w", err)
	}
	return &Core{
		cfg:     cfg,
		log:     log,
		decoder: d,
		cache:   blockcache.New(cfg.BlockCacheCap),
		events:  corevent.New(),
		vcpus:   make(map[int]*vcpuState),
	}, nil
}

// Events returns the Core's event bus so a caller can subscribe before
// execution begins.
func (c *Core) Events() *corevent.Bus { return c.events }

// Cache returns the Core's block cache, so a caller can build a
// jit.Compiler (with a backend for the target ISA) over the exact same
// cache Execute/StepOne read from before passing it to AttachJIT.
func (c *Core) Cache() *blockcache.Cache { return c.cache }

// AttachSMMU wires a device DMA translation unit into this Core.
func (c *Core) AttachSMMU(s *smmu.SMMU) { c.smmu = s }

// AttachJIT wires a tiered compiler into this Core. Once attached,
// stepLocked reports every block execution to compiler.OnExecute so
// hotspot promotion (component G) fires from real guest execution
// rather than only from internal/jit's own unit tests. A Core with no
// compiler attached runs purely interpreted, which remains a valid
// configuration (e.g. the debug console).
func (c *Core) AttachJIT(compiler *jit.Compiler) { c.jit = compiler }

// AttachVCPU registers vCPU id with its own MMU instance, address space
// id, and guest memory view, so translation and register state never
// leak between vCPUs.
func (c *Core) AttachVCPU(id int, asid uint16, walker mmu.Walker, mem MemSource) {
	c.vcpus[id] = &vcpuState{mmu: mmu.New(walker, c.cfg.MMU), asid: asid, mem: mem}
}

// DetachVCPU removes a previously attached vCPU.
func (c *Core) DetachVCPU(id int) {
	delete(c.vcpus, id)
}

// Execute runs vCPU id starting at initialPC for up to maxCycles blocks,
// fetching, decoding, optimizing, caching, and interpreting one block at
// a time. It is the single authoritative execution path: every block
// execution is reported to an attached jit.Compiler via OnExecute, so
// hotspot promotion fires from real guest execution against the same
// block-cache entry the interpreter reads. The interpreter always
// evaluates the block's IR directly rather than branching to a promoted
// NativeCode buffer — there is no in-process trampoline for invoking
// freshly generated machine code under Go's calling convention, so a
// promoted block's compiled bytes are retained in the cache (and
// available to an embedding host with its own dispatch mechanism) but
// this facade's own execution semantics are defined by interp, the
// same oracle JIT backends are checked against for P-EQUIV.
func (c *Core) Execute(id int, initialPC ir.GuestAddr, maxCycles uint64) (ExitReason, error) {
	vs, ok := c.vcpus[id]
	if !ok {
		return ExitError, fmt.Errorf("vcore: vcpu %d not attached", id)
	}
	vs.pc = initialPC

	var cycles uint64
	for cycles < maxCycles {
		_, halted, err := c.stepLocked(id, vs)
		if err != nil {
			return ExitTrap, err
		}
		cycles++
		if halted {
			return ExitHalt, nil
		}
	}
	return ExitMaxCycles, nil
}

// StepOne executes a single cached block for vCPU id starting at its
// current PC and returns the PC execution will resume from. It is the
// entry point the debug console drives.
func (c *Core) StepOne(id int) (ir.GuestAddr, error) {
	vs, ok := c.vcpus[id]
	if !ok {
		return 0, fmt.Errorf("vcore: vcpu %d not attached", id)
	}
	next, _, err := c.stepLocked(id, vs)
	return next, err
}

// stepLocked decodes, optimizes (on a cache miss), and interprets one
// block for vs, serialized per-vCPU so a background scheduler worker and
// an interactive monitor "step" command never race on the same register
// file and PC.
func (c *Core) stepLocked(id int, vs *vcpuState) (next ir.GuestAddr, halted bool, err error) {
	vs.mu.Lock()
	defer vs.mu.Unlock()

	trapHandler := func(kind ir.TrapKind, operand uint64, target ir.GuestAddr) (ir.GuestAddr, error) {
		c.events.Publish(corevent.Event{Kind: corevent.KindExecution, Execution: corevent.ExecutionEvent{
			VCPUID: id, BlockPC: target,
		}})
		return 0, fmt.Errorf("vcore: vcpu %d trap kind %d at pc 0x%x", id, kind, uint64(target))
	}
	in := interp.New(vs.mem, trapHandler)

	key, value, err := c.fetchEntry(vs.mem, vs.pc)
	if err != nil {
		return 0, false, err
	}
	block := value.Block
	result, err := in.Run(block, &vs.regs)
	if err != nil {
		return 0, false, err
	}

	if c.jit != nil {
		if err := c.jit.OnExecute(key, value); err != nil {
			c.log.Warn("jit compile failed", "pc", uint64(key.PC), "error", err)
		}
	}

	if result == 0 && block.Term.Kind == ir.TermRet {
		return 0, true, nil
	}
	vs.pc = result
	return result, false, nil
}

// fetchEntry returns the block-cache key and entry for pc, decoding and
// optimizing on a cache miss. Returning the *blockcache.Value (not just
// its Block) lets the caller feed the entry's HitCount, bumped by
// Cache.Get on every lookup, into jit.Compiler.OnExecute.
func (c *Core) fetchEntry(mem MemSource, pc ir.GuestAddr) (blockcache.Key, *blockcache.Value, error) {
	raw, err := mem.FetchBytes(pc, 64)
	if err != nil {
		return blockcache.Key{}, nil, fmt.Errorf("vcore: fetch at 0x%x: %w", uint64(pc), err)
	}
	key := blockcache.Key{
		SourceISA: c.cfg.SourceISA, TargetISA: c.cfg.TargetISA,
		PC: pc, Hash: blockcache.Fingerprint(raw),
	}
	if v, ok := c.cache.Get(key); ok {
		return key, v, nil
	}
	decoded, err := c.decoder.DecodeBlock(raw, pc, len(raw))
	if err != nil {
		return blockcache.Key{}, nil, fmt.Errorf("vcore: decode at 0x%x: %w", uint64(pc), err)
	}
	optimized := optimizer.Run(decoded)
	value := &blockcache.Value{Block: optimized}
	c.cache.Insert(key, value)
	return key, value, nil
}

// Registers returns a snapshot of vCPU id's register file, or nil if id
// is not attached. Exposed for the debug console; taken under the same
// per-vCPU lock stepLocked uses so it never tears a concurrently
// executing step.
func (c *Core) Registers(id int) *interp.RegisterFile {
	vs, ok := c.vcpus[id]
	if !ok {
		return nil
	}
	vs.mu.Lock()
	defer vs.mu.Unlock()
	snapshot := vs.regs
	return &snapshot
}

// MMU returns vCPU id's translation unit, or nil if id is not attached.
func (c *Core) MMU(id int) *mmu.MMU {
	vs, ok := c.vcpus[id]
	if !ok {
		return nil
	}
	return vs.mmu
}

// SMMU returns the Core's attached device translation unit, or nil.
func (c *Core) SMMU() *smmu.SMMU { return c.smmu }

// InvalidateRange drops every cached block whose entry PC falls within
// [start, end), used when the guest writes to a region that was already
// decoded (self-modifying code) or when a permission change widens
// writability over it.
func (c *Core) InvalidateRange(start, end ir.GuestAddr) int {
	return c.cache.Invalidate(func(k blockcache.Key) bool {
		return k.PC >= start && k.PC < end
	})
}
