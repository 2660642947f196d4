/*
 * vcore - Architecture-neutral intermediate representation.
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

// Package ir defines the SSA-style intermediate representation that every
// per-ISA decoder lifts into and every optimizer pass, interpreter, and
// JIT backend consumes. A block is a flat op slice plus one terminator;
// operands are small pure expression trees held by value, not by pointer,
// so a block has no heap-heavy ownership graph once decoded.
package ir

// GuestAddr is a guest-virtual or guest-physical address. Arithmetic on it
// is only ever done through the wrapping helpers below, so it is never
// accidentally treated as a host pointer.
type GuestAddr uint64

// Add returns addr+delta with 64-bit wraparound.
func (addr GuestAddr) Add(delta uint64) GuestAddr {
	return GuestAddr(uint64(addr) + delta)
}

// Sub returns addr-delta with 64-bit wraparound.
func (addr GuestAddr) Sub(delta uint64) GuestAddr {
	return GuestAddr(uint64(addr) - delta)
}

// RegId names either a physical register (class-indexed in a RegisterSet)
// or an SSA virtual register, disambiguated by id range — see regmap.
type RegId uint32

// BinOp is the opcode of a BinaryOp IR instruction.
type BinOp uint8

const (
	Add BinOp = iota
	Sub
	Mul
	And
	Or
	Xor
	Sll
	Srl
	Sra
)

func (op BinOp) String() string {
	switch op {
	case Add:
		return "add"
	case Sub:
		return "sub"
	case Mul:
		return "mul"
	case And:
		return "and"
	case Or:
		return "or"
	case Xor:
		return "xor"
	case Sll:
		return "sll"
	case Srl:
		return "srl"
	case Sra:
		return "sra"
	default:
		return "unknown"
	}
}

// OperandKind tags the variant held by an Operand.
type OperandKind uint8

const (
	KindReg OperandKind = iota
	KindImm64
	KindBinary
)

// Operand is a pure expression: a register, an immediate, or a binary
// tree of operands. It carries no side effects and may be freely
// duplicated by optimization passes. ConstFold collapses subtrees whose
// leaves are all immediates; no pass bounds the depth of a tree that
// still holds a register, and the peephole pass does not rewrite trees.
type Operand struct {
	Kind  OperandKind
	Reg   RegId
	Imm   uint64
	Op    BinOp
	Left  *Operand
	Right *Operand
}

// RegOperand builds a register operand.
func RegOperand(id RegId) Operand { return Operand{Kind: KindReg, Reg: id} }

// ImmOperand builds an immediate operand.
func ImmOperand(v uint64) Operand { return Operand{Kind: KindImm64, Imm: v} }

// BinaryOperand builds a composed pure binary expression.
func BinaryOperand(op BinOp, left, right Operand) Operand {
	return Operand{Kind: KindBinary, Op: op, Left: &left, Right: &right}
}

// IsImm reports whether the operand is a resolved immediate.
func (o Operand) IsImm() bool { return o.Kind == KindImm64 }

// MemFlags describes the alignment, extension, and address-space
// properties of a memory access.
type MemFlags struct {
	Align     uint8 // required natural alignment in bytes; 1 means unaligned-ok
	SignExt   bool  // sign-extend on load
	Volatile  bool  // must not be reordered or elided
	AddrSpace uint8 // guest-address-space selector (e.g. secure/non-secure)
}

// OpKind tags the variant held by an Op.
type OpKind uint8

const (
	OpMovImm OpKind = iota
	OpBinaryOp
	OpLoadExt
	OpStoreExt
	OpBranch
	OpCondBranch
)

// Size of a memory access in bytes; only 1, 2, 4, 8 are valid.
type Size uint8

const (
	Size1 Size = 1
	Size2 Size = 2
	Size4 Size = 4
	Size8 Size = 8
)

// Op is one instruction of the IR, a non-exhaustive tagged union per
// spec §3. Fields not relevant to Kind are zero.
type Op struct {
	Kind OpKind

	Dst RegId // MovImm, BinaryOp, LoadExt

	Imm uint64 // MovImm

	BinOp      BinOp   // BinaryOp
	Src1, Src2 Operand // BinaryOp

	Addr  Operand  // LoadExt, StoreExt
	Size  Size     // LoadExt, StoreExt
	Flags MemFlags // LoadExt, StoreExt

	Value Operand // StoreExt

	Target Operand // Branch, CondBranch
	Link   bool    // Branch, CondBranch

	Cond Operand // CondBranch
}

// TrapKind identifies why a block terminates in a trap rather than a
// normal control-flow edge.
type TrapKind uint8

const (
	TrapInvalidInstruction TrapKind = iota
	TrapSyscall
	TrapBreakpoint
	TrapUnsupportedOp
)

// TermKind tags the variant held by a Terminator.
type TermKind uint8

const (
	TermRet TermKind = iota
	TermJump
	TermCondJump
	TermTrap
)

// Terminator is the single control-flow exit of a basic block.
type Terminator struct {
	Kind         TermKind
	Target       GuestAddr // Jump
	TargetTrue   GuestAddr // CondJump
	TargetFalse  GuestAddr // CondJump
	Cond         Operand   // CondJump
	Trap         TrapKind  // Trap
	TrapOperand  uint64    // Trap, e.g. syscall number
}

// Block is an immutable maximal straight-line run of lifted guest
// instructions: one entry PC, an ordered op slice, and exactly one
// terminator. Once returned from a decoder it is never mutated in place;
// optimizer passes build a new Block rather than editing this one.
type Block struct {
	EntryPC      GuestAddr
	Ops          []Op
	Term         Terminator
	ByteLength   int    // bytes consumed from the guest stream, for fingerprinting
	SourceBytes  []byte // raw bytes decoded, retained for the block-cache fingerprint
}

// NumDefs reports how many ops define a register.
func (b *Block) NumDefs() int {
	n := 0
	for _, op := range b.Ops {
		switch op.Kind {
		case OpMovImm, OpBinaryOp, OpLoadExt:
			n++
		}
	}
	return n
}
