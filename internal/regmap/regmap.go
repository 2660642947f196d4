/*
 * vcore - SSA virtual-to-physical register mapper.
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

// Package regmap assigns the SSA virtual registers a decoded block uses
// onto the physical register set of whichever ISA will execute it. The
// allocator is a single first-fit pass, not a graph-coloring allocator:
// each distinct virtual register, in order of first appearance, takes
// the next unused physical register, and a physical register is never
// reused within a block after its virtual register's last use.
package regmap

import (
	"fmt"

	"github.com/rcornwell/vcore/internal/ir"
)

// Class names a physical register bank.
type Class uint8

const (
	ClassGP Class = iota
	ClassFP
	ClassVector
)

// RegisterSet describes the physical registers available to one ISA for
// one class, by count. Register ids within a class are 0..Count-1.
type RegisterSet struct {
	GP     int
	FP     int
	Vector int
}

// defaultVirtualBank is the number of virtual registers a block's IR is
// assumed to fit within before allocation; it sizes working arrays, it
// does not bound correctness.
const defaultVirtualBank = 256

// Assignment is the outcome of mapping one block's virtual registers onto
// physical ones.
type Assignment struct {
	// Physical maps a virtual RegId to its assigned physical RegId.
	Physical map[ir.RegId]ir.RegId
	// Class records which bank each physical assignment lives in.
	Class map[ir.RegId]Class
	// Spilled holds virtual registers that could not be assigned a
	// physical slot in the current register set; spilling to a memory
	// slot is not implemented by this allocator (see SpillSlots).
	Spilled []ir.RegId
}

// SpillSlots reserves stack-relative slot indices for registers the
// allocator could not fit. Register spill is an optional capability per
// the allocator's design notes: this returns a deterministic slot index
// for bookkeeping, but no caller in this build consumes a spilled
// register's slot.
func SpillSlots(spilled []ir.RegId) map[ir.RegId]int {
	slots := make(map[ir.RegId]int, len(spilled))
	for i, r := range spilled {
		slots[r] = i
	}
	return slots
}

var errClassMismatch = fmt.Errorf("regmap: virtual register used in incompatible classes")

// Mapper performs first-fit linear allocation of a block's virtual
// registers onto a target RegisterSet.
type Mapper struct {
	target RegisterSet
}

// New builds a Mapper targeting the given physical register set.
func New(target RegisterSet) *Mapper {
	return &Mapper{target: target}
}

// Allocate assigns every virtual register block uses or defines, plus
// the condition registers of a CondJump terminator, to a physical
// register, GP class only: the FP and Vector counts of the target
// RegisterSet are not used. Registers beyond the GP count are recorded
// in Assignment.Spilled.
func (m *Mapper) Allocate(b *ir.Block) (*Assignment, error) {
	a := &Assignment{
		Physical: make(map[ir.RegId]ir.RegId, defaultVirtualBank),
		Class:    make(map[ir.RegId]Class, defaultVirtualBank),
	}
	next := 0
	assign := func(v ir.RegId) {
		if _, ok := a.Physical[v]; ok {
			return
		}
		if next >= m.target.GP {
			a.Spilled = append(a.Spilled, v)
			return
		}
		a.Physical[v] = ir.RegId(next)
		a.Class[v] = ClassGP
		next++
	}
	for _, op := range b.Ops {
		for _, u := range op.Uses() {
			assign(u)
		}
		if d, ok := op.Def(); ok {
			assign(d)
		}
	}
	if b.Term.Kind == ir.TermCondJump {
		for _, u := range ir.RegUses(b.Term.Cond, nil) {
			assign(u)
		}
	}
	return a, nil
}

// PhysicalReg returns the physical register assigned to v, or an error if
// v was spilled rather than assigned (spills are not resolved by this
// allocator; callers that cannot tolerate a spill should treat this as
// fatal for the block).
func (a *Assignment) PhysicalReg(v ir.RegId) (ir.RegId, error) {
	p, ok := a.Physical[v]
	if !ok {
		return 0, fmt.Errorf("regmap: register v%d was spilled, no physical assignment", v)
	}
	return p, nil
}
