/*
 * vcore - Peephole cleanup pass.
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

// Peephole cleans up small patterns left behind by earlier passes: x+0,
// x|0, x^0, a shift by 0 (which is how StrengthReduce leaves x*1), and
// x&x, each rewritten to the canonical Add x, #0. A Mul is not matched.
// It runs last so it sees the fully const-folded and strength-reduced
// form. It rewrites whole ops only and leaves operand trees as they are.
func Peephole(b *ir.Block) (*ir.Block, bool) {
	changed := false
	nb := cloneBlock(b)
	for i, op := range nb.Ops {
		if op.Kind != ir.OpBinaryOp {
			continue
		}
		if simplified, ok := identitySimplify(op); ok {
			nb.Ops[i] = simplified
			changed = true
		}
	}
	return nb, changed
}

func identitySimplify(op ir.Op) (ir.Op, bool) {
	switch op.BinOp {
	case ir.Add, ir.Or, ir.Xor, ir.Sll, ir.Srl, ir.Sra:
		if op.Src2.IsImm() && op.Src2.Imm == 0 {
			return ir.Op{Kind: ir.OpBinaryOp, Dst: op.Dst, BinOp: ir.Add, Src1: op.Src1, Src2: ir.ImmOperand(0)}, true
		}
	case ir.And:
		if op.Src1.Kind == ir.KindReg && op.Src2.Kind == ir.KindReg && op.Src1.Reg == op.Src2.Reg {
			return ir.Op{Kind: ir.OpBinaryOp, Dst: op.Dst, BinOp: ir.Add, Src1: op.Src1, Src2: ir.ImmOperand(0)}, true
		}
	}
	return op, false
}
