/*
 * vcore - RISC-V decoder.
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

package riscv

import (
	"encoding/binary"

	"github.com/rcornwell/vcore/internal/decoder"
	"github.com/rcornwell/vcore/internal/ir"
)

func init() {
	decoder.Register(decoder.ISARiscV, New(DefaultConfig()))
}

// Decoder implements decoder.Decoder for RV64, gated by Config.
type Decoder struct {
	cfg Config
}

// New builds a Decoder for the given extension configuration.
func New(cfg Config) Decoder { return Decoder{cfg: cfg} }

// DecodeBlock lifts a maximal straight-line run of 32-bit RV64
// instructions starting at pc. The C extension's 16-bit compressed forms
// are not decoded: a compressed opcode ends the block with
// Trap(UnsupportedOp) whatever cfg.C is set to.
func (d Decoder) DecodeBlock(bytes []byte, pc ir.GuestAddr, maxLen int) (*ir.Block, error) {
	b := &ir.Block{EntryPC: pc}
	pos := 0
	for {
		if pos+4 > len(bytes) || (maxLen > 0 && pos+4 > maxLen) {
			b.Term = ir.Terminator{Kind: ir.TermTrap, Trap: ir.TrapUnsupportedOp}
			break
		}
		insn := binary.LittleEndian.Uint32(bytes[pos : pos+4])
		if insn&0x3 != 0x3 {
			// 16-bit compressed instruction stream; not decoded by this
			// build regardless of cfg.C.
			b.Term = ir.Terminator{Kind: ir.TermTrap, Trap: ir.TrapUnsupportedOp}
			goto done
		}
		op := insn & opcodeMask
		rd := ir.RegId((insn >> 7) & 0x1F)
		rs1 := ir.RegId((insn >> 15) & 0x1F)
		rs2 := ir.RegId((insn >> 20) & 0x1F)
		funct3 := (insn >> 12) & 0x7
		funct7 := (insn >> 25) & 0x7F

		switch op {
		case opLui:
			imm := uint64(insn & 0xFFFFF000)
			pos += 4
			b.Ops = append(b.Ops, ir.Op{Kind: ir.OpMovImm, Dst: rd, Imm: imm})

		case opOpImm:
			imm := uint64(int64(int32(insn) >> 20))
			pos += 4
			b.Ops = append(b.Ops, ir.Op{
				Kind: ir.OpBinaryOp, Dst: rd, BinOp: binOpForImm(funct3),
				Src1: ir.RegOperand(rs1), Src2: ir.ImmOperand(imm),
			})

		case opOp:
			if funct7 == funct7Mul && !d.cfg.M {
				b.Term = ir.Terminator{Kind: ir.TermTrap, Trap: ir.TrapInvalidInstruction}
				goto done
			}
			binOp := binOpForReg(funct3, funct7)
			if funct7 == funct7Mul {
				// Only MUL (funct3 0) of the M extension is lifted.
				if funct3 != funct3Add {
					b.Term = ir.Terminator{Kind: ir.TermTrap, Trap: ir.TrapUnsupportedOp}
					goto done
				}
				binOp = ir.Mul
			}
			pos += 4
			b.Ops = append(b.Ops, ir.Op{
				Kind: ir.OpBinaryOp, Dst: rd, BinOp: binOp,
				Src1: ir.RegOperand(rs1), Src2: ir.RegOperand(rs2),
			})

		case opLoad:
			if funct3 != funct3Word {
				b.Term = ir.Terminator{Kind: ir.TermTrap, Trap: ir.TrapUnsupportedOp}
				goto done
			}
			imm := uint64(int64(int32(insn) >> 20))
			pos += 4
			addr := ir.BinaryOperand(ir.Add, ir.RegOperand(rs1), ir.ImmOperand(imm))
			b.Ops = append(b.Ops, ir.Op{Kind: ir.OpLoadExt, Dst: rd, Addr: addr, Size: ir.Size4, Flags: ir.MemFlags{Align: 4, SignExt: true}})

		case opStore:
			if funct3 != funct3Word {
				b.Term = ir.Terminator{Kind: ir.TermTrap, Trap: ir.TrapUnsupportedOp}
				goto done
			}
			immLo := (insn >> 7) & 0x1F
			immHi := (insn >> 25) & 0x7F
			imm := uint64(int64(int32((immHi<<5|immLo)<<20) >> 20))
			pos += 4
			addr := ir.BinaryOperand(ir.Add, ir.RegOperand(rs1), ir.ImmOperand(imm))
			b.Ops = append(b.Ops, ir.Op{Kind: ir.OpStoreExt, Addr: addr, Value: ir.RegOperand(rs2), Size: ir.Size4, Flags: ir.MemFlags{Align: 4}})

		case opJal:
			imm := decodeJImm(insn)
			pos += 4
			b.Term = ir.Terminator{Kind: ir.TermJump, Target: pc.Add(uint64(pos - 4)).Add(uint64(imm))}
			goto done

		case opJalr:
			// Register-indirect target is resolved by the interpreter/JIT
			// at execution time, not at decode time; model it as a trap
			// back to the dispatch loop until indirect targets are
			// supported by the block cache.
			pos += 4
			b.Term = ir.Terminator{Kind: ir.TermTrap, Trap: ir.TrapUnsupportedOp}
			goto done

		case opBranch:
			imm := decodeBImm(insn)
			fallAddr := pc.Add(uint64(pos + 4))
			cond := ir.BinaryOperand(branchOp(funct3), ir.RegOperand(rs1), ir.RegOperand(rs2))
			pos += 4
			b.Term = ir.Terminator{
				Kind: ir.TermCondJump, Cond: cond,
				TargetTrue: pc.Add(uint64(pos - 4)).Add(uint64(imm)), TargetFalse: fallAddr,
			}
			goto done

		default:
			b.Term = ir.Terminator{Kind: ir.TermTrap, Trap: ir.TrapInvalidInstruction}
			goto done
		}
	}
done:
	b.ByteLength = pos
	b.SourceBytes = append([]byte(nil), bytes[:pos]...)
	return b, nil
}

func binOpForImm(funct3 uint32) ir.BinOp {
	switch funct3 {
	case funct3And:
		return ir.And
	case funct3Or:
		return ir.Or
	case funct3Xor:
		return ir.Xor
	default:
		return ir.Add
	}
}

func binOpForReg(funct3, funct7 uint32) ir.BinOp {
	switch funct3 {
	case funct3Add:
		if funct7 == funct7Alt {
			return ir.Sub
		}
		return ir.Add
	case funct3And:
		return ir.And
	case funct3Or:
		return ir.Or
	case funct3Xor:
		return ir.Xor
	default:
		return ir.Add
	}
}

// branchOp approximates each RV64 branch condition as an IR BinOp whose
// zero/nonzero result the interpreter's CondJump evaluator treats as the
// branch predicate; the true semantics (eq/ne/lt/ge, signed/unsigned)
// live in the interpreter, not the decoder.
func branchOp(funct3 uint32) ir.BinOp {
	switch funct3 {
	case 0x0: // BEQ
		return ir.Xor
	default:
		return ir.Sub
	}
}

func decodeJImm(insn uint32) int32 {
	imm20 := (insn >> 31) & 0x1
	imm10_1 := (insn >> 21) & 0x3FF
	imm11 := (insn >> 20) & 0x1
	imm19_12 := (insn >> 12) & 0xFF
	raw := (imm20 << 20) | (imm19_12 << 12) | (imm11 << 11) | (imm10_1 << 1)
	return int32(raw<<11) >> 11
}

func decodeBImm(insn uint32) int32 {
	imm12 := (insn >> 31) & 0x1
	imm10_5 := (insn >> 25) & 0x3F
	imm4_1 := (insn >> 8) & 0xF
	imm11 := (insn >> 7) & 0x1
	raw := (imm12 << 12) | (imm11 << 11) | (imm10_5 << 5) | (imm4_1 << 1)
	return int32(raw<<19) >> 19
}
