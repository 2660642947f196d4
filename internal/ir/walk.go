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

// RegUses appends every RegId an operand reads to uses.
func RegUses(o Operand, uses []RegId) []RegId {
	switch o.Kind {
	case KindReg:
		return append(uses, o.Reg)
	case KindBinary:
		uses = RegUses(*o.Left, uses)
		uses = RegUses(*o.Right, uses)
	}
	return uses
}

// Uses returns every register an op reads, excluding its own def.
func (op Op) Uses() []RegId {
	var uses []RegId
	switch op.Kind {
	case OpBinaryOp:
		uses = RegUses(op.Src1, uses)
		uses = RegUses(op.Src2, uses)
	case OpLoadExt:
		uses = RegUses(op.Addr, uses)
	case OpStoreExt:
		uses = RegUses(op.Addr, uses)
		uses = RegUses(op.Value, uses)
	case OpBranch:
		uses = RegUses(op.Target, uses)
	case OpCondBranch:
		uses = RegUses(op.Cond, uses)
		uses = RegUses(op.Target, uses)
	}
	return uses
}

// Def returns the register defined by op and true, or the zero value and
// false if op defines nothing.
func (op Op) Def() (RegId, bool) {
	switch op.Kind {
	case OpMovImm, OpBinaryOp, OpLoadExt:
		return op.Dst, true
	default:
		return 0, false
	}
}

// HasSideEffect reports whether op must never be eliminated even if its
// result is unused (memory effects, per spec §4.B).
func (op Op) HasSideEffect() bool {
	switch op.Kind {
	case OpStoreExt:
		return true
	case OpLoadExt:
		return op.Flags.Volatile
	default:
		return false
	}
}

// Depth returns the recursion depth of an operand tree (1 for a leaf).
func Depth(o Operand) int {
	if o.Kind != KindBinary {
		return 1
	}
	l, r := Depth(*o.Left), Depth(*o.Right)
	if l > r {
		return l + 1
	}
	return r + 1
}
