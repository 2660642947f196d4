/*
 * vcore - AArch64 decoder.
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

package arm64

import (
	"encoding/binary"

	"github.com/rcornwell/vcore/internal/decoder"
	"github.com/rcornwell/vcore/internal/ir"
)

func init() {
	decoder.Register(decoder.ISAArm64, Decoder{})
}

// Decoder implements decoder.Decoder for the fixed-width AArch64 A64
// encoding.
type Decoder struct{}

// DecodeBlock lifts a maximal straight-line run of A64 instructions
// starting at pc. Every instruction is 4 bytes; a truncated tail or an
// encoding outside the subset this decoder understands ends the block
// with a Trap terminator rather than panicking.
func (Decoder) DecodeBlock(bytes []byte, pc ir.GuestAddr, maxLen int) (*ir.Block, error) {
	b := &ir.Block{EntryPC: pc}
	pos := 0
	for {
		if pos+4 > len(bytes) || (maxLen > 0 && pos+4 > maxLen) {
			b.Term = ir.Terminator{Kind: ir.TermTrap, Trap: ir.TrapUnsupportedOp}
			break
		}
		insn := binary.LittleEndian.Uint32(bytes[pos : pos+4])

		switch {
		case insn == opRet:
			pos += 4
			b.Term = ir.Terminator{Kind: ir.TermRet}
			goto done

		case insn&maskB == opB:
			imm26 := int32(insn<<6) >> 4 // sign-extend 26-bit field scaled by 4
			pos += 4
			b.Term = ir.Terminator{Kind: ir.TermJump, Target: pc.Add(uint64(pos - 4)).Add(uint64(imm26))}
			goto done

		case insn&maskBcond == opBcond:
			imm19 := int32(insn<<8) >> 11 // sign-extend 19-bit field scaled by 4
			fallAddr := pc.Add(uint64(pos + 4))
			pos += 4
			b.Term = ir.Terminator{
				Kind: ir.TermCondJump, Cond: ir.RegOperand(condReg),
				TargetTrue: pc.Add(uint64(pos - 4)).Add(uint64(imm19)), TargetFalse: fallAddr,
			}
			goto done

		case insn&maskMovz == opMovz:
			rd := ir.RegId(insn & 0x1F)
			imm16 := uint64((insn >> 5) & 0xFFFF)
			pos += 4
			b.Ops = append(b.Ops, ir.Op{Kind: ir.OpMovImm, Dst: rd, Imm: imm16})

		case insn&maskArith == opAddShift || insn&maskArith == opSubShift ||
			insn&maskArith == opAndShift || insn&maskArith == opOrrShift ||
			insn&maskArith == opEorShift:
			rd := ir.RegId(insn & 0x1F)
			rn := ir.RegId((insn >> 5) & 0x1F)
			rm := ir.RegId((insn >> 16) & 0x1F)
			pos += 4
			b.Ops = append(b.Ops, ir.Op{
				Kind: ir.OpBinaryOp, Dst: rd, BinOp: binOpForArith(insn),
				Src1: ir.RegOperand(rn), Src2: ir.RegOperand(rm),
			})

		case insn&maskLdrStr == opLdrImm:
			rt := ir.RegId(insn & 0x1F)
			rn := ir.RegId((insn >> 5) & 0x1F)
			imm12 := uint64((insn>>10)&0xFFF) * 4
			pos += 4
			addr := ir.BinaryOperand(ir.Add, ir.RegOperand(rn), ir.ImmOperand(imm12))
			b.Ops = append(b.Ops, ir.Op{Kind: ir.OpLoadExt, Dst: rt, Addr: addr, Size: ir.Size4, Flags: ir.MemFlags{Align: 4}})

		case insn&maskLdrStr == opStrImm:
			rt := ir.RegId(insn & 0x1F)
			rn := ir.RegId((insn >> 5) & 0x1F)
			imm12 := uint64((insn>>10)&0xFFF) * 4
			pos += 4
			addr := ir.BinaryOperand(ir.Add, ir.RegOperand(rn), ir.ImmOperand(imm12))
			b.Ops = append(b.Ops, ir.Op{Kind: ir.OpStoreExt, Addr: addr, Value: ir.RegOperand(rt), Size: ir.Size4, Flags: ir.MemFlags{Align: 4}})

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

func binOpForArith(insn uint32) ir.BinOp {
	switch insn & maskArith {
	case opAddShift:
		return ir.Add
	case opSubShift:
		return ir.Sub
	case opAndShift:
		return ir.And
	case opOrrShift:
		return ir.Or
	case opEorShift:
		return ir.Xor
	default:
		return ir.Add
	}
}
