package optimizer

import (
	"testing"

	"github.com/rcornwell/vcore/internal/ir"
)

func TestPeepholeAddZero(t *testing.T) {
	b := &ir.Block{
		Ops: []ir.Op{
			{Kind: ir.OpBinaryOp, Dst: 1, BinOp: ir.Add, Src1: ir.RegOperand(2), Src2: ir.ImmOperand(0)},
		},
		Term: ir.Terminator{Kind: ir.TermRet},
	}
	out, changed := Peephole(b)
	if !changed {
		t.Fatalf("expected an identity simplification")
	}
	if out.Ops[0].Src2.Imm != 0 {
		t.Fatalf("got %+v", out.Ops[0])
	}
}

func TestPeepholeAndSelf(t *testing.T) {
	b := &ir.Block{
		Ops: []ir.Op{
			{Kind: ir.OpBinaryOp, Dst: 1, BinOp: ir.And, Src1: ir.RegOperand(2), Src2: ir.RegOperand(2)},
		},
		Term: ir.Terminator{Kind: ir.TermRet},
	}
	out, changed := Peephole(b)
	if !changed {
		t.Fatalf("expected x&x to simplify")
	}
	if out.Ops[0].Src1.Reg != 2 {
		t.Fatalf("got %+v", out.Ops[0])
	}
}

func TestPeepholeLeavesUnrelatedOpAlone(t *testing.T) {
	b := &ir.Block{
		Ops: []ir.Op{
			{Kind: ir.OpBinaryOp, Dst: 1, BinOp: ir.Add, Src1: ir.RegOperand(2), Src2: ir.ImmOperand(4)},
		},
		Term: ir.Terminator{Kind: ir.TermRet},
	}
	_, changed := Peephole(b)
	if changed {
		t.Fatalf("add-by-nonzero should not be touched")
	}
}
