/*
 * vcore - Authoritative IR interpreter.
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

// Package interp is the authoritative evaluator of the IR: every JIT tier
// must agree with what this package computes, and the JIT ISA backends'
// equivalence tests (spec property P-EQUIV) compare a JIT-compiled
// block's result against this one. It mirrors the teacher's cpu.go
// fetch/decode/dispatch loop, generalized from a single fixed ISA to any
// decoded ir.Block.
package interp

import (
	"errors"
	"fmt"

	"github.com/rcornwell/vcore/internal/ir"
)

// AccessType tags a memory access for the MMU, distinguishing the
// permission check an instruction fetch needs from a data load or store.
type AccessType uint8

const (
	AccessRead AccessType = iota
	AccessWrite
	AccessExecute
)

// Memory is the narrow view of guest memory the interpreter needs: a
// single translate-and-access entry point, so the interpreter never
// reasons about TLBs or page tables directly.
type Memory interface {
	Access(addr ir.GuestAddr, size ir.Size, at AccessType) (uint64, error)
	Store(addr ir.GuestAddr, size ir.Size, value uint64, at AccessType) error
}

// ErrUnknownTrap is returned when a block's terminator traps with a kind
// the interpreter has no handler registered for.
var ErrUnknownTrap = errors.New("interp: unhandled trap kind")

// TrapHandler reacts to a block-terminating trap (syscall, breakpoint,
// invalid instruction) and decides how execution continues.
type TrapHandler func(kind ir.TrapKind, operand uint64, pc ir.GuestAddr) (ir.GuestAddr, error)

// RegisterFile holds one vCPU's general-purpose register values, indexed
// by the physical RegId the register mapper assigned.
type RegisterFile struct {
	regs [256]uint64
}

// Get returns the value of r.
func (f *RegisterFile) Get(r ir.RegId) uint64 { return f.regs[r] }

// Set stores v into r.
func (f *RegisterFile) Set(r ir.RegId, v uint64) { f.regs[r] = v }

// Interp evaluates one decoded block at a time against a RegisterFile and
// a Memory implementation, returning the next PC to fetch.
type Interp struct {
	Mem     Memory
	Trap    TrapHandler
	Cycles  uint64
}

// New builds an Interp over mem with the given trap handler.
func New(mem Memory, trap TrapHandler) *Interp {
	return &Interp{Mem: mem, Trap: trap}
}

// Run executes b's ops in order against regs, then resolves the
// terminator, returning the guest address execution continues from.
func (in *Interp) Run(b *ir.Block, regs *RegisterFile) (ir.GuestAddr, error) {
	for _, op := range b.Ops {
		if err := in.step(op, regs); err != nil {
			return 0, err
		}
		in.Cycles++
	}
	return in.resolveTerm(b.Term, regs)
}

func (in *Interp) step(op ir.Op, regs *RegisterFile) error {
	switch op.Kind {
	case ir.OpMovImm:
		regs.Set(op.Dst, op.Imm)
	case ir.OpBinaryOp:
		a := in.evalOperand(op.Src1, regs)
		b := in.evalOperand(op.Src2, regs)
		regs.Set(op.Dst, evalBinOp(op.BinOp, a, b))
	case ir.OpLoadExt:
		addr := ir.GuestAddr(in.evalOperand(op.Addr, regs))
		v, err := in.Mem.Access(addr, op.Size, AccessRead)
		if err != nil {
			return fmt.Errorf("interp: load at 0x%x: %w", uint64(addr), err)
		}
		if op.Flags.SignExt {
			v = signExtend(v, op.Size)
		}
		regs.Set(op.Dst, v)
	case ir.OpStoreExt:
		addr := ir.GuestAddr(in.evalOperand(op.Addr, regs))
		v := in.evalOperand(op.Value, regs)
		if err := in.Mem.Store(addr, op.Size, v, AccessWrite); err != nil {
			return fmt.Errorf("interp: store at 0x%x: %w", uint64(addr), err)
		}
	default:
		return fmt.Errorf("interp: op kind %d has no terminator context", op.Kind)
	}
	return nil
}

func (in *Interp) resolveTerm(t ir.Terminator, regs *RegisterFile) (ir.GuestAddr, error) {
	switch t.Kind {
	case ir.TermRet:
		return 0, nil
	case ir.TermJump:
		return t.Target, nil
	case ir.TermCondJump:
		if in.evalOperand(t.Cond, regs) != 0 {
			return t.TargetTrue, nil
		}
		return t.TargetFalse, nil
	case ir.TermTrap:
		if in.Trap == nil {
			return 0, ErrUnknownTrap
		}
		return in.Trap(t.Trap, t.TrapOperand, t.Target)
	default:
		return 0, fmt.Errorf("interp: unknown terminator kind %d", t.Kind)
	}
}

func (in *Interp) evalOperand(o ir.Operand, regs *RegisterFile) uint64 {
	switch o.Kind {
	case ir.KindReg:
		return regs.Get(o.Reg)
	case ir.KindImm64:
		return o.Imm
	case ir.KindBinary:
		return evalBinOp(o.Op, in.evalOperand(*o.Left, regs), in.evalOperand(*o.Right, regs))
	default:
		return 0
	}
}

func evalBinOp(op ir.BinOp, a, b uint64) uint64 {
	switch op {
	case ir.Add:
		return a + b
	case ir.Sub:
		return a - b
	case ir.Mul:
		return a * b
	case ir.And:
		return a & b
	case ir.Or:
		return a | b
	case ir.Xor:
		return a ^ b
	case ir.Sll:
		return a << (b & 63)
	case ir.Srl:
		return a >> (b & 63)
	case ir.Sra:
		return uint64(int64(a) >> (b & 63))
	default:
		return 0
	}
}

func signExtend(v uint64, size ir.Size) uint64 {
	switch size {
	case ir.Size1:
		return uint64(int64(int8(v)))
	case ir.Size2:
		return uint64(int64(int16(v)))
	case ir.Size4:
		return uint64(int64(int32(v)))
	default:
		return v
	}
}
