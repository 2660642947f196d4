/*
 * vcore - Operand tree traversal helpers.
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

package ir

import "testing"

func TestOpUsesBinaryOpCollectsBothOperands(t *testing.T) {
	op := Op{
		Kind: OpBinaryOp,
		Dst:  3,
		Src1: RegOperand(1),
		Src2: RegOperand(2),
	}
	uses := op.Uses()
	if len(uses) != 2 || uses[0] != 1 || uses[1] != 2 {
		t.Fatalf("got %v, want [1 2]", uses)
	}
}

func TestOpUsesLoadExtCollectsTheAddressRegister(t *testing.T) {
	op := Op{Kind: OpLoadExt, Dst: 2, Addr: RegOperand(5)}
	uses := op.Uses()
	if len(uses) != 1 || uses[0] != 5 {
		t.Fatalf("got %v, want [5]", uses)
	}
}

func TestOpUsesStoreExtCollectsAddressAndValue(t *testing.T) {
	op := Op{Kind: OpStoreExt, Addr: RegOperand(5), Value: RegOperand(6)}
	uses := op.Uses()
	if len(uses) != 2 || uses[0] != 5 || uses[1] != 6 {
		t.Fatalf("got %v, want [5 6]", uses)
	}
}

func TestOpUsesCondBranchCollectsCondAndTarget(t *testing.T) {
	op := Op{Kind: OpCondBranch, Cond: RegOperand(1), Target: RegOperand(2)}
	uses := op.Uses()
	if len(uses) != 2 || uses[0] != 1 || uses[1] != 2 {
		t.Fatalf("got %v, want [1 2]", uses)
	}
}

func TestOpUsesMovImmHasNoOperandUses(t *testing.T) {
	op := Op{Kind: OpMovImm, Dst: 1, Imm: 42}
	if uses := op.Uses(); len(uses) != 0 {
		t.Fatalf("got %v, want no uses for a constant load", uses)
	}
}

func TestOpDefReportsTheDefinedRegisterForDefiningKinds(t *testing.T) {
	for _, kind := range []OpKind{OpMovImm, OpBinaryOp, OpLoadExt} {
		op := Op{Kind: kind, Dst: 9}
		reg, ok := op.Def()
		if !ok || reg != 9 {
			t.Fatalf("kind %v: got (%v, %v), want (9, true)", kind, reg, ok)
		}
	}
}

func TestOpDefReportsFalseForNonDefiningKinds(t *testing.T) {
	for _, kind := range []OpKind{OpStoreExt, OpBranch, OpCondBranch} {
		op := Op{Kind: kind}
		if _, ok := op.Def(); ok {
			t.Fatalf("kind %v: expected Def to report false", kind)
		}
	}
}

func TestOpHasSideEffectForStoreAndVolatileLoad(t *testing.T) {
	if !(Op{Kind: OpStoreExt}).HasSideEffect() {
		t.Fatalf("expected a store to always have a side effect")
	}
	if (Op{Kind: OpLoadExt}).HasSideEffect() {
		t.Fatalf("expected a non-volatile load to have no side effect")
	}
	if !(Op{Kind: OpLoadExt, Flags: MemFlags{Volatile: true}}).HasSideEffect() {
		t.Fatalf("expected a volatile load to have a side effect")
	}
	if (Op{Kind: OpMovImm}).HasSideEffect() {
		t.Fatalf("expected a constant load to have no side effect")
	}
}

func TestDepthOfALeafOperandIsOne(t *testing.T) {
	if got := Depth(RegOperand(1)); got != 1 {
		t.Fatalf("got %d, want 1", got)
	}
}

func TestDepthOfABinaryTreeCountsTheDeepestBranch(t *testing.T) {
	inner := BinaryOperand(Add, RegOperand(1), RegOperand(2))
	outer := BinaryOperand(Add, inner, RegOperand(3))
	if got := Depth(outer); got != 3 {
		t.Fatalf("got %d, want 3", got)
	}
}

func TestRegUsesAppendsToAnExistingSlice(t *testing.T) {
	uses := []RegId{99}
	uses = RegUses(RegOperand(4), uses)
	if len(uses) != 2 || uses[0] != 99 || uses[1] != 4 {
		t.Fatalf("got %v, want [99 4]", uses)
	}
}

func TestRegUsesIgnoresImmediateOperands(t *testing.T) {
	uses := RegUses(ImmOperand(123), nil)
	if len(uses) != 0 {
		t.Fatalf("got %v, want no register uses from an immediate", uses)
	}
}
