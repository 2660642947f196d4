/*
 * vcore - Dead code elimination pass.
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

// DeadCodeElim drops ops whose defined register is never used by a later
// op or by the terminator, unless the op has a side effect (a store, or
// a volatile load) that must execute regardless of whether its result is
// read.
func DeadCodeElim(b *ir.Block) (*ir.Block, bool) {
	live := make(map[ir.RegId]bool)
	for _, u := range ir.RegUses(b.Term.Cond, nil) {
		live[u] = true
	}

	keep := make([]bool, len(b.Ops))
	for i := len(b.Ops) - 1; i >= 0; i-- {
		op := b.Ops[i]
		def, hasDef := op.Def()
		necessary := op.HasSideEffect() || (hasDef && live[def])
		keep[i] = necessary
		if necessary {
			for _, u := range op.Uses() {
				live[u] = true
			}
		}
	}

	changed := false
	nb := cloneBlock(b)
	nb.Ops = nb.Ops[:0]
	for i, op := range b.Ops {
		if keep[i] {
			nb.Ops = append(nb.Ops, op)
		} else {
			changed = true
		}
	}
	return nb, changed
}
