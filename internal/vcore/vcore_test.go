package vcore

import (
	"errors"
	"log/slog"
	"testing"

	"github.com/rcornwell/vcore/internal/blockcache"
	_ "github.com/rcornwell/vcore/internal/decoder/x86"
	"github.com/rcornwell/vcore/internal/interp"
	"github.com/rcornwell/vcore/internal/ir"
	"github.com/rcornwell/vcore/internal/jit"
	"github.com/rcornwell/vcore/internal/mmu"
)

type flatMem struct {
	bytes []byte
}

func (m *flatMem) FetchBytes(addr ir.GuestAddr, maxLen int) ([]byte, error) {
	end := int(addr) + maxLen
	if end > len(m.bytes) {
		end = len(m.bytes)
	}
	return m.bytes[addr:end], nil
}

func (m *flatMem) Access(addr ir.GuestAddr, size ir.Size, at interp.AccessType) (uint64, error) {
	var v uint64
	for i := ir.Size(0); i < size; i++ {
		v |= uint64(m.bytes[int(addr)+int(i)]) << (8 * i)
	}
	return v, nil
}

func (m *flatMem) Store(addr ir.GuestAddr, size ir.Size, value uint64, at interp.AccessType) error {
	for i := ir.Size(0); i < size; i++ {
		m.bytes[int(addr)+int(i)] = byte(value >> (8 * i))
	}
	return nil
}

type identityWalker struct{}

func (identityWalker) Walk(vpn uint64, asid uint16) (mmu.Mapping, error) {
	return mmu.Mapping{VPN: vpn, PPN: vpn, ASID: asid, Perm: mmu.PermRWX}, nil
}

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(testWriter{}, nil))
}

type testWriter struct{}

func (testWriter) Write(p []byte) (int, error) { return len(p), nil }

func TestExecuteRunsToRetAndHalts(t *testing.T) {
	// B8 2A 00 00 00 = mov eax, 42 ; C3 = ret
	code := []byte{0xB8, 0x2A, 0x00, 0x00, 0x00, 0xC3}
	c, err := New(DefaultConfig(), testLogger())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	c.AttachVCPU(0, 1, identityWalker{}, &flatMem{bytes: code})

	reason, err := c.Execute(0, 0, 10)
	if err != nil {
		t.Fatalf("unexpected execution error: %v", err)
	}
	if reason != ExitHalt {
		t.Fatalf("got exit reason %d, want ExitHalt", reason)
	}
	regs := c.Registers(0)
	if regs == nil || regs.Get(0) != 42 {
		t.Fatalf("got regs %+v, want r0=42", regs)
	}
}

func TestExecuteStopsAtMaxCyclesOnAnInfiniteLoop(t *testing.T) {
	// E9 FB FF FF FF = jmp -5 (jump back to self), an infinite loop
	code := []byte{0xE9, 0xFB, 0xFF, 0xFF, 0xFF}
	c, err := New(DefaultConfig(), testLogger())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	c.AttachVCPU(0, 1, identityWalker{}, &flatMem{bytes: code})

	reason, err := c.Execute(0, 0, 5)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if reason != ExitMaxCycles {
		t.Fatalf("got exit reason %d, want ExitMaxCycles", reason)
	}
}

func TestStepOneResumesFromThePreviousPC(t *testing.T) {
	// mov eax, 1 ; jmp +0 (to the next instruction, forcing a block
	// boundary) ; mov eax, 2 ; ret
	code := []byte{
		0xB8, 0x01, 0x00, 0x00, 0x00, // mov eax, 1
		0xE9, 0x00, 0x00, 0x00, 0x00, // jmp rel32=0 -> targets offset 10
		0xB8, 0x02, 0x00, 0x00, 0x00, // mov eax, 2
		0xC3, // ret
	}
	c, err := New(DefaultConfig(), testLogger())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	c.AttachVCPU(0, 1, identityWalker{}, &flatMem{bytes: code})

	if _, err := c.StepOne(0); err != nil {
		t.Fatalf("unexpected error on first step: %v", err)
	}
	if got := c.Registers(0).Get(0); got != 1 {
		t.Fatalf("got r0=%d after the first block, want 1", got)
	}
	if _, err := c.StepOne(0); err != nil {
		t.Fatalf("unexpected error on second step: %v", err)
	}
	if got := c.Registers(0).Get(0); got != 2 {
		t.Fatalf("got r0=%d after the second block, want 2 (StepOne must resume, not restart)", got)
	}
}

func TestInvalidateRangeForcesRedecodeOfSelfModifyingCode(t *testing.T) {
	code := []byte{0xB8, 0x01, 0x00, 0x00, 0x00, 0xC3}
	c, err := New(DefaultConfig(), testLogger())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	mem := &flatMem{bytes: append([]byte(nil), code...)}
	c.AttachVCPU(0, 1, identityWalker{}, mem)

	if _, err := c.StepOne(0); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got := c.Registers(0).Get(0); got != 1 {
		t.Fatalf("got r0=%d, want 1 before the guest rewrites its own code", got)
	}

	// Guest overwrites the immediate in place: mov eax, 9
	mem.bytes[1] = 0x09
	if n := c.InvalidateRange(0, 6); n == 0 {
		t.Fatalf("expected invalidating the rewritten range to evict the stale cached block")
	}

	if _, err := c.StepOne(0); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got := c.Registers(0).Get(0); got != 9 {
		t.Fatalf("got r0=%d, want 9 after the cache was invalidated and the block redecoded", got)
	}
}

func TestMMUReturnsPerVCPUTranslationUnit(t *testing.T) {
	c, err := New(DefaultConfig(), testLogger())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if c.MMU(0) != nil {
		t.Fatalf("expected a nil MMU for an unattached vcpu")
	}
	c.AttachVCPU(0, 1, identityWalker{}, &flatMem{bytes: []byte{0xC3}})
	if c.MMU(0) == nil {
		t.Fatalf("expected a non-nil MMU after attaching vcpu 0")
	}
}

type countingBackend struct {
	compiles int
}

func (b *countingBackend) Compile(block *ir.Block, tier jit.Tier) ([]byte, error) {
	b.compiles++
	return []byte{0xC3}, nil
}

type memCodeBuffer struct {
	data     []byte
	size     int
	finished bool
}

var errOversized = errors.New("write exceeds code buffer size")

func (b *memCodeBuffer) Write(code []byte) error {
	if len(code) > b.size {
		return errOversized
	}
	b.data = append(b.data[:0], code...)
	return nil
}
func (b *memCodeBuffer) Finalize() error { b.finished = true; return nil }
func (b *memCodeBuffer) Addr() uintptr   { return 1 }
func (b *memCodeBuffer) Close() error    { return nil }

func TestStepOneReportsExecutionsToAnAttachedJITCompiler(t *testing.T) {
	c, err := New(DefaultConfig(), testLogger())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	// C3 = ret, a single-block program so every StepOne re-executes the
	// same cache entry and its HitCount climbs toward the threshold.
	c.AttachVCPU(0, 1, identityWalker{}, &flatMem{bytes: []byte{0xC3}})

	backend := &countingBackend{}
	alloc := func(n int) (jit.CodeBuffer, error) { return &memCodeBuffer{size: n}, nil }
	compiler := jit.New(backend, alloc, jit.Thresholds{Baseline: 3, Optimized: 6}, c.Events(), c.Cache())
	c.AttachJIT(compiler)

	// Cache.Get bumps HitCount on every lookup after the first (miss)
	// insert, so the entry's hit count reaches the Baseline=3 threshold
	// on the 4th StepOne call.
	for i := 0; i < 4; i++ {
		if _, err := c.StepOne(0); err != nil {
			t.Fatalf("unexpected error on step %d: %v", i, err)
		}
	}

	if backend.compiles != 1 {
		t.Fatalf("got %d compiles after reaching the baseline threshold, want 1", backend.compiles)
	}

	key := blockcache.Key{
		SourceISA: c.cfg.SourceISA, TargetISA: c.cfg.TargetISA,
		PC: 0, Hash: blockcache.Fingerprint([]byte{0xC3}),
	}
	value, ok := c.cache.Get(key)
	if !ok {
		t.Fatalf("expected the block to still be cached")
	}
	if value.NativeCode == nil {
		t.Fatalf("expected OnExecute's promotion to have published NativeCode into the cache entry")
	}
}

func TestStepOneNeverCallsJITWhenNoneIsAttached(t *testing.T) {
	c, err := New(DefaultConfig(), testLogger())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	c.AttachVCPU(0, 1, identityWalker{}, &flatMem{bytes: []byte{0xC3}})

	if _, err := c.StepOne(0); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}
