/*
 * vcore - Strength reduction pass.
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

import (
	"math/bits"

	"github.com/rcornwell/vcore/internal/ir"
)

// StrengthReduce rewrites Mul-by-power-of-two into Sll, which every
// target ISA this module supports executes in fewer cycles than a
// general multiply.
func StrengthReduce(b *ir.Block) (*ir.Block, bool) {
	changed := false
	nb := cloneBlock(b)
	for i, op := range nb.Ops {
		if op.Kind != ir.OpBinaryOp || op.BinOp != ir.Mul {
			continue
		}
		shift, ok := powerOfTwoShift(op.Src1, op.Src2)
		if !ok {
			continue
		}
		base := op.Src1
		if op.Src1.IsImm() {
			base = op.Src2
		}
		nb.Ops[i] = ir.Op{
			Kind: ir.OpBinaryOp, Dst: op.Dst, BinOp: ir.Sll,
			Src1: base, Src2: ir.ImmOperand(shift),
		}
		changed = true
	}
	return nb, changed
}

func powerOfTwoShift(a, b ir.Operand) (uint64, bool) {
	imm, ok := immOperand(a, b)
	if !ok || imm == 0 || bits.OnesCount64(imm) != 1 {
		return 0, false
	}
	return uint64(bits.TrailingZeros64(imm)), true
}

func immOperand(a, b ir.Operand) (uint64, bool) {
	switch {
	case a.IsImm():
		return a.Imm, true
	case b.IsImm():
		return b.Imm, true
	default:
		return 0, false
	}
}
