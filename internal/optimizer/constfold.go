/*
 * vcore - Constant folding pass.
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

package optimizer

import "github.com/rcornwell/vcore/internal/ir"

// ConstFold rewrites a BinaryOp whose operands evaluate to immediates
// into a MovImm. An operand may itself be a pure Binary tree of
// immediates (built by the decoder's addressing-mode folding or by a
// prior pass); ConstFold folds those subtrees first via foldOperand, so
// e.g. Add r0, Imm64(3), Binary(Mul, Imm64(4), Imm64(5)) collapses to
// MovImm r0, 23. It does not do anything beyond single-op folding; no
// pass propagates constants across ops.
func ConstFold(b *ir.Block) (*ir.Block, bool) {
	changed := false
	nb := cloneBlock(b)
	for i, op := range nb.Ops {
		if op.Kind != ir.OpBinaryOp {
			continue
		}
		src1, c1 := foldOperand(op.Src1)
		src2, c2 := foldOperand(op.Src2)
		if c1 || c2 {
			nb.Ops[i].Src1, nb.Ops[i].Src2 = src1, src2
			changed = true
		}
		if !src1.IsImm() || !src2.IsImm() {
			continue
		}
		v, ok := evalBinOp(nb.Ops[i].BinOp, src1.Imm, src2.Imm)
		if !ok {
			continue
		}
		nb.Ops[i] = ir.Op{Kind: ir.OpMovImm, Dst: op.Dst, Imm: v}
		changed = true
	}
	return nb, changed
}

// foldOperand recursively folds a pure Binary tree of immediates down to
// a single ImmOperand, reporting whether it rewrote anything. A leaf
// (Reg or Imm) operand is returned unchanged. A Binary operand with a
// non-immediate leaf after folding its children is rebuilt from the
// folded children so a partially-constant subtree (e.g. one register
// operand alongside an immediate one) still benefits from folding below
// it, even though the whole expression can't collapse to one immediate.
func foldOperand(o ir.Operand) (ir.Operand, bool) {
	if o.Kind != ir.KindBinary {
		return o, false
	}
	left, lc := foldOperand(*o.Left)
	right, rc := foldOperand(*o.Right)
	if left.IsImm() && right.IsImm() {
		if v, ok := evalBinOp(o.Op, left.Imm, right.Imm); ok {
			return ir.ImmOperand(v), true
		}
	}
	if lc || rc {
		return ir.BinaryOperand(o.Op, left, right), true
	}
	return o, false
}

func evalBinOp(op ir.BinOp, a, b uint64) (uint64, bool) {
	switch op {
	case ir.Add:
		return a + b, true
	case ir.Sub:
		return a - b, true
	case ir.Mul:
		return a * b, true
	case ir.And:
		return a & b, true
	case ir.Or:
		return a | b, true
	case ir.Xor:
		return a ^ b, true
	case ir.Sll:
		return a << (b & 63), true
	case ir.Srl:
		return a >> (b & 63), true
	case ir.Sra:
		return uint64(int64(a) >> (b & 63)), true
	default:
		return 0, false
	}
}
