/*
 * vcore - x86_64 decoder.
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

package x86

import (
	"encoding/binary"

	"github.com/rcornwell/vcore/internal/decoder"
	"github.com/rcornwell/vcore/internal/ir"
)

func init() {
	decoder.Register(decoder.ISAx86_64, Decoder{})
}

// Decoder implements decoder.Decoder for x86_64.
type Decoder struct{}

// flagsReg is the virtual register the condition-code operand of a Jcc is
// read from. The interpreter and JIT backends treat it like any other
// register; there is no separate flags bank in the IR (spec §4.A note).
// It must stay within RegisterFile's addressable range (interp.go) like
// any other register id - guest GP registers occupy 0-15 here, so 255
// (the file's last slot) is reserved for it without colliding with one.
const flagsReg ir.RegId = 255

// DecodeBlock lifts a maximal straight-line run of x86_64 instructions
// starting at pc, stopping at the first control-flow instruction or after
// maxLen bytes. It never panics: an unknown opcode or a truncated
// instruction ends the block with Trap(InvalidInstruction); an
// unsupported ModRM/SIB form, a non-Jcc 0F opcode, or reaching the end
// of bytes or maxLen at an instruction boundary ends it with
// Trap(UnsupportedOp).
func (Decoder) DecodeBlock(bytes []byte, pc ir.GuestAddr, maxLen int) (*ir.Block, error) {
	b := &ir.Block{EntryPC: pc}
	pos := 0
	for {
		if pos >= len(bytes) || (maxLen > 0 && pos >= maxLen) {
			b.Term = ir.Terminator{Kind: ir.TermTrap, Trap: ir.TrapUnsupportedOp}
			break
		}
		rex := uint8(0)
		if bytes[pos] >= RexBase && bytes[pos] <= RexBase+0x0F {
			rex = bytes[pos]
			pos++
			if pos >= len(bytes) {
				b.Term = ir.Terminator{Kind: ir.TermTrap, Trap: ir.TrapInvalidInstruction}
				break
			}
		}
		op := bytes[pos]
		pos++

		switch {
		case op >= OpMovImm32Base && op < OpMovImm32Base+8:
			dst := regWithRex(op-OpMovImm32Base, rex&RexB != 0)
			if pos+4 > len(bytes) {
				b.Term = ir.Terminator{Kind: ir.TermTrap, Trap: ir.TrapInvalidInstruction}
				goto done
			}
			imm := binary.LittleEndian.Uint32(bytes[pos : pos+4])
			pos += 4
			b.Ops = append(b.Ops, ir.Op{Kind: ir.OpMovImm, Dst: dst, Imm: uint64(imm)})

		case op == OpAddRM32R32 || op == OpSubRM32R32 || op == OpAndRM32R32 ||
			op == OpOrRM32R32 || op == OpXorRM32R32:
			dstReg, srcReg, n, ok := decodeModRMDirect(bytes[pos:], rex)
			if !ok {
				b.Term = ir.Terminator{Kind: ir.TermTrap, Trap: ir.TrapUnsupportedOp}
				goto done
			}
			pos += n
			b.Ops = append(b.Ops, ir.Op{
				Kind: ir.OpBinaryOp, Dst: dstReg, BinOp: binOpFor(op),
				Src1: ir.RegOperand(dstReg), Src2: ir.RegOperand(srcReg),
			})

		case op == OpMovR32RM32:
			dstReg, addr, n, ok := decodeModRMMem(bytes[pos:], rex)
			if !ok {
				b.Term = ir.Terminator{Kind: ir.TermTrap, Trap: ir.TrapUnsupportedOp}
				goto done
			}
			pos += n
			b.Ops = append(b.Ops, ir.Op{
				Kind: ir.OpLoadExt, Dst: dstReg, Addr: addr, Size: ir.Size4,
				Flags: ir.MemFlags{Align: 1},
			})

		case op == OpMovRM32R32:
			srcReg, addr, n, ok := decodeModRMMem(bytes[pos:], rex)
			if !ok {
				b.Term = ir.Terminator{Kind: ir.TermTrap, Trap: ir.TrapUnsupportedOp}
				goto done
			}
			pos += n
			b.Ops = append(b.Ops, ir.Op{
				Kind: ir.OpStoreExt, Addr: addr, Size: ir.Size4,
				Value: ir.RegOperand(srcReg), Flags: ir.MemFlags{Align: 1},
			})

		case op == OpRet:
			b.Term = ir.Terminator{Kind: ir.TermRet}
			goto done

		case op == OpJmpRel32:
			if pos+4 > len(bytes) {
				b.Term = ir.Terminator{Kind: ir.TermTrap, Trap: ir.TrapInvalidInstruction}
				goto done
			}
			rel := int32(binary.LittleEndian.Uint32(bytes[pos : pos+4]))
			pos += 4
			b.Term = ir.Terminator{Kind: ir.TermJump, Target: pc.Add(uint64(pos)).Add(uint64(rel))}
			goto done

		case op == OpTwoByte:
			if pos >= len(bytes) {
				b.Term = ir.Terminator{Kind: ir.TermTrap, Trap: ir.TrapInvalidInstruction}
				goto done
			}
			op2 := bytes[pos]
			pos++
			if op2 < OpJccRel32Base || op2 > OpJccRel32Base+0x0F {
				b.Term = ir.Terminator{Kind: ir.TermTrap, Trap: ir.TrapUnsupportedOp}
				goto done
			}
			if pos+4 > len(bytes) {
				b.Term = ir.Terminator{Kind: ir.TermTrap, Trap: ir.TrapInvalidInstruction}
				goto done
			}
			rel := int32(binary.LittleEndian.Uint32(bytes[pos : pos+4]))
			pos += 4
			fallAddr := pc.Add(uint64(pos))
			b.Term = ir.Terminator{
				Kind: ir.TermCondJump, Cond: ir.RegOperand(flagsReg),
				TargetTrue: fallAddr.Add(uint64(rel)), TargetFalse: fallAddr,
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

func binOpFor(op byte) ir.BinOp {
	switch op {
	case OpAddRM32R32:
		return ir.Add
	case OpSubRM32R32:
		return ir.Sub
	case OpAndRM32R32:
		return ir.And
	case OpOrRM32R32:
		return ir.Or
	case OpXorRM32R32:
		return ir.Xor
	default:
		return ir.Add
	}
}

func regWithRex(low byte, ext bool) ir.RegId {
	id := ir.RegId(low)
	if ext {
		id += 8
	}
	return id
}

// decodeModRMDirect decodes a ModRM byte restricted to register-direct
// addressing (mod == 11). It reports ok=false for any other mode, which
// the caller treats as an unsupported encoding rather than guessing.
func decodeModRMDirect(b []byte, rex byte) (dst, src ir.RegId, n int, ok bool) {
	if len(b) < 1 {
		return 0, 0, 0, false
	}
	modrm := b[0]
	mod := modrm >> 6
	reg := (modrm >> 3) & 0x07
	rm := modrm & 0x07
	if mod != 0x03 {
		return 0, 0, 0, false
	}
	return regWithRex(rm, rex&RexB != 0), regWithRex(reg, rex&RexR != 0), 1, true
}

// decodeModRMMem decodes a ModRM byte for base-register + disp8/disp32
// addressing, without SIB support. reg is the register operand; addr is
// the synthesized memory-address expression.
func decodeModRMMem(b []byte, rex byte) (reg ir.RegId, addr ir.Operand, n int, ok bool) {
	if len(b) < 1 {
		return 0, ir.Operand{}, 0, false
	}
	modrm := b[0]
	mod := modrm >> 6
	regField := (modrm >> 3) & 0x07
	rm := modrm & 0x07
	reg = regWithRex(regField, rex&RexR != 0)
	if rm == 0x04 {
		return 0, ir.Operand{}, 0, false // SIB byte follows, unsupported
	}
	base := regWithRex(rm, rex&RexB != 0)
	pos := 1
	switch mod {
	case 0x00:
		addr = ir.RegOperand(base)
	case 0x01:
		if len(b) < pos+1 {
			return 0, ir.Operand{}, 0, false
		}
		disp := int8(b[pos])
		pos++
		addr = ir.BinaryOperand(ir.Add, ir.RegOperand(base), ir.ImmOperand(uint64(int64(disp))))
	case 0x02:
		if len(b) < pos+4 {
			return 0, ir.Operand{}, 0, false
		}
		disp := int32(binary.LittleEndian.Uint32(b[pos : pos+4]))
		pos += 4
		addr = ir.BinaryOperand(ir.Add, ir.RegOperand(base), ir.ImmOperand(uint64(int64(disp))))
	default:
		return 0, ir.Operand{}, 0, false // mod==11 is register-direct, not memory
	}
	return reg, addr, pos, true
}
