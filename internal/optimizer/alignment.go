/*
 * vcore - Alignment analysis pass.
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

// AlignmentAnnotate widens a LoadExt/StoreExt's declared alignment to
// Size when the address is a register plus an immediate offset that is
// itself a multiple of Size, letting the JIT emit an unaligned-trap-free
// access. It never narrows an alignment the decoder already set tighter,
// and it never touches a Volatile access (MMIO registers must see
// exactly the access width and ordering the guest issued).
func AlignmentAnnotate(b *ir.Block) (*ir.Block, bool) {
	changed := false
	nb := cloneBlock(b)
	for i, op := range nb.Ops {
		if op.Kind != ir.OpLoadExt && op.Kind != ir.OpStoreExt {
			continue
		}
		if op.Flags.Volatile {
			continue
		}
		want := uint8(op.Size)
		if op.Flags.Align >= want {
			continue
		}
		if !addrMultipleOf(op.Addr, want) {
			continue
		}
		op.Flags.Align = want
		nb.Ops[i] = op
		changed = true
	}
	return nb, changed
}

func addrMultipleOf(o ir.Operand, n uint8) bool {
	if o.Kind != ir.KindBinary || o.Op != ir.Add {
		return false
	}
	imm, ok := immOperand(*o.Left, *o.Right)
	if !ok {
		return false
	}
	return imm%uint64(n) == 0
}
