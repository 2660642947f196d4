/*
 * vcore - Fixed-order IR optimization pipeline.
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

// Package optimizer runs a fixed-order pipeline of IR-to-IR passes over a
// decoded block: constant folding, strength reduction, dead-code
// elimination, alignment analysis, and peephole cleanup. Each pass is
// idempotent and is given at most two chances to make forward progress;
// a pass that would violate a block invariant (see cpu_standard.go-style
// dispatch in the teacher) leaves the block untouched rather than
// producing a malformed one.
package optimizer

import "github.com/rcornwell/vcore/internal/ir"

// maxPassIterations bounds how many times a single pass may re-run
// looking for further progress before the pipeline moves on.
const maxPassIterations = 2

// Pass transforms a block, returning the (possibly identical) result and
// whether it changed anything.
type Pass func(b *ir.Block) (*ir.Block, bool)

// Pipeline is the fixed, ordered list of passes the optimizer applies.
// Order matters: strength reduction exposes new constant-foldable
// expressions, DCE depends on strength reduction having already dropped
// dead multiplies into shifts, and peephole runs last so it sees the
// fully reduced form.
var Pipeline = []Pass{
	ConstFold,
	StrengthReduce,
	DeadCodeElim,
	AlignmentAnnotate,
	Peephole,
}

// Run applies Pipeline to b in order, re-running any pass up to
// maxPassIterations times while it keeps making progress.
func Run(b *ir.Block) *ir.Block {
	cur := b
	for _, pass := range Pipeline {
		for i := 0; i < maxPassIterations; i++ {
			next, changed := pass(cur)
			cur = next
			if !changed {
				break
			}
		}
	}
	return cur
}

func cloneBlock(b *ir.Block) *ir.Block {
	nb := *b
	nb.Ops = append([]ir.Op(nil), b.Ops...)
	return &nb
}
