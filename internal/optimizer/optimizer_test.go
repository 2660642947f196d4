package optimizer

import (
	"testing"

	"github.com/rcornwell/vcore/internal/ir"
)

// TestRunFoldsThenEliminates exercises the pipeline ordering invariant:
// a constant-folded dead value must be dropped by the same Run call,
// since ConstFold runs before DeadCodeElim.
func TestRunFoldsThenEliminates(t *testing.T) {
	b := &ir.Block{
		Ops: []ir.Op{
			{Kind: ir.OpBinaryOp, Dst: 1, BinOp: ir.Add, Src1: ir.ImmOperand(2), Src2: ir.ImmOperand(2)}, // dead once folded
			{Kind: ir.OpMovImm, Dst: 2, Imm: 99},
		},
		Term: ir.Terminator{Kind: ir.TermCondJump, Cond: ir.RegOperand(2)},
	}
	out := Run(b)
	if len(out.Ops) != 1 {
		t.Fatalf("got %d live ops, want 1: %+v", len(out.Ops), out.Ops)
	}
	if out.Ops[0].Dst != 2 {
		t.Fatalf("wrong op survived: %+v", out.Ops[0])
	}
}

func TestRunIsIdempotentOnAlreadyOptimalBlock(t *testing.T) {
	b := &ir.Block{
		Ops: []ir.Op{
			{Kind: ir.OpMovImm, Dst: 1, Imm: 42},
		},
		Term: ir.Terminator{Kind: ir.TermCondJump, Cond: ir.RegOperand(1)},
	}
	once := Run(b)
	twice := Run(once)
	if len(once.Ops) != len(twice.Ops) || once.Ops[0] != twice.Ops[0] {
		t.Fatalf("pipeline not idempotent: %+v vs %+v", once.Ops, twice.Ops)
	}
}
