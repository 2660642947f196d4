package interp

import (
	"errors"
	"testing"

	"github.com/rcornwell/vcore/internal/ir"
)

type flatMem struct {
	data map[ir.GuestAddr]uint64
}

func newFlatMem() *flatMem { return &flatMem{data: make(map[ir.GuestAddr]uint64)} }

func (m *flatMem) Access(addr ir.GuestAddr, size ir.Size, at AccessType) (uint64, error) {
	return m.data[addr], nil
}

func (m *flatMem) Store(addr ir.GuestAddr, size ir.Size, value uint64, at AccessType) error {
	m.data[addr] = value
	return nil
}

func TestRunMovImmAndBinaryOp(t *testing.T) {
	b := &ir.Block{
		Ops: []ir.Op{
			{Kind: ir.OpMovImm, Dst: 1, Imm: 4},
			{Kind: ir.OpMovImm, Dst: 2, Imm: 5},
			{Kind: ir.OpBinaryOp, Dst: 3, BinOp: ir.Add, Src1: ir.RegOperand(1), Src2: ir.RegOperand(2)},
		},
		Term: ir.Terminator{Kind: ir.TermRet},
	}
	in := New(newFlatMem(), nil)
	var regs RegisterFile
	if _, err := in.Run(b, &regs); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got := regs.Get(3); got != 9 {
		t.Fatalf("got r3=%d, want 9", got)
	}
}

func TestRunLoadStoreRoundTrip(t *testing.T) {
	mem := newFlatMem()
	b := &ir.Block{
		Ops: []ir.Op{
			{Kind: ir.OpMovImm, Dst: 1, Imm: 0x100},
			{Kind: ir.OpMovImm, Dst: 2, Imm: 42},
			{Kind: ir.OpStoreExt, Addr: ir.RegOperand(1), Value: ir.RegOperand(2), Size: ir.Size8},
			{Kind: ir.OpLoadExt, Dst: 3, Addr: ir.RegOperand(1), Size: ir.Size8},
		},
		Term: ir.Terminator{Kind: ir.TermRet},
	}
	in := New(mem, nil)
	var regs RegisterFile
	if _, err := in.Run(b, &regs); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got := regs.Get(3); got != 42 {
		t.Fatalf("got r3=%d, want 42 round-tripped through memory", got)
	}
}

func TestRunCondJumpPicksBranch(t *testing.T) {
	b := &ir.Block{
		Ops:  []ir.Op{{Kind: ir.OpMovImm, Dst: 1, Imm: 1}},
		Term: ir.Terminator{Kind: ir.TermCondJump, Cond: ir.RegOperand(1), TargetTrue: 0x10, TargetFalse: 0x20},
	}
	in := New(newFlatMem(), nil)
	var regs RegisterFile
	next, err := in.Run(b, &regs)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if next != 0x10 {
		t.Fatalf("got next pc 0x%x, want the true branch 0x10", next)
	}
}

func TestRunTrapWithoutHandlerReturnsError(t *testing.T) {
	b := &ir.Block{
		Term: ir.Terminator{Kind: ir.TermTrap, Trap: ir.TrapInvalidInstruction},
	}
	in := New(newFlatMem(), nil)
	var regs RegisterFile
	if _, err := in.Run(b, &regs); !errors.Is(err, ErrUnknownTrap) {
		t.Fatalf("expected ErrUnknownTrap, got %v", err)
	}
}

func TestRunTrapInvokesHandler(t *testing.T) {
	b := &ir.Block{
		Term: ir.Terminator{Kind: ir.TermTrap, Trap: ir.TrapSyscall, TrapOperand: 7},
	}
	called := false
	trap := func(kind ir.TrapKind, operand uint64, pc ir.GuestAddr) (ir.GuestAddr, error) {
		called = true
		if kind != ir.TrapSyscall || operand != 7 {
			t.Fatalf("unexpected trap args: kind=%d operand=%d", kind, operand)
		}
		return 0x99, nil
	}
	in := New(newFlatMem(), trap)
	var regs RegisterFile
	next, err := in.Run(b, &regs)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !called || next != 0x99 {
		t.Fatalf("trap handler not invoked correctly, next=0x%x called=%v", next, called)
	}
}

func TestRunSignExtendsByteLoad(t *testing.T) {
	mem := newFlatMem()
	mem.data[0x200] = 0xFFFFFFFFFFFFFF80 // low byte 0x80, i.e. -128 as int8
	b := &ir.Block{
		Ops: []ir.Op{
			{Kind: ir.OpLoadExt, Dst: 1, Addr: ir.ImmOperand(0x200), Size: ir.Size1, Flags: ir.MemFlags{SignExt: true}},
		},
		Term: ir.Terminator{Kind: ir.TermRet},
	}
	in := New(mem, nil)
	var regs RegisterFile
	if _, err := in.Run(b, &regs); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got := int64(regs.Get(1)); got != -128 {
		t.Fatalf("got %d, want -128 sign-extended from 0x80", got)
	}
}
