/*
 * vcore - x86_64 native code emission.
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

package amd64

import (
	"encoding/binary"
	"fmt"

	"github.com/rcornwell/vcore/internal/ir"
	"github.com/rcornwell/vcore/internal/jit"
	"github.com/rcornwell/vcore/internal/regmap"
)

// Backend emits x86_64 machine code for a register-mapped block: one
// straightforward instruction sequence per IR op with no cross-op
// scheduling. Compile emits the same code for every tier; it does not
// fold a MovImm into an immediate-form instruction, and a BinaryOp with
// an immediate second operand is rejected with an error.
type Backend struct {
	Mapper *regmap.Mapper
}

// NewBackend builds a Backend allocating physical registers with mapper.
func NewBackend(mapper *regmap.Mapper) *Backend {
	return &Backend{Mapper: mapper}
}

// Compile implements jit.Backend.
func (be *Backend) Compile(b *ir.Block, tier jit.Tier) ([]byte, error) {
	assign, err := be.Mapper.Allocate(b)
	if err != nil {
		return nil, fmt.Errorf("amd64: register allocation: %w", err)
	}
	var code []byte
	for _, op := range b.Ops {
		bytes, err := emitOp(op, assign)
		if err != nil {
			return nil, err
		}
		code = append(code, bytes...)
	}
	code = append(code, emitTerm(b.Term)...)
	return code, nil
}

// emitOp encodes one IR op's baseline x86_64 form: MovImm as MOV r32,
// imm32 and a register BinaryOp as the 32-bit ADD/SUB/AND/OR/XOR r/m32,
// r32 opcodes, with no REX prefix (only the low three bits of a
// physical register id are encoded). These are encodings this module's
// x86 decoder also understands, so a compiled block decodes back to IR.
func emitOp(op ir.Op, assign *regmap.Assignment) ([]byte, error) {
	switch op.Kind {
	case ir.OpMovImm:
		dst, err := assign.PhysicalReg(op.Dst)
		if err != nil {
			return nil, err
		}
		var buf [5]byte
		buf[0] = 0xB8 + byte(dst&0x07)
		binary.LittleEndian.PutUint32(buf[1:], uint32(op.Imm))
		return buf[:], nil

	case ir.OpBinaryOp:
		dst, err := assign.PhysicalReg(op.Dst)
		if err != nil {
			return nil, err
		}
		opcode, ok := aluOpcode(op.BinOp)
		if !ok {
			return nil, fmt.Errorf("amd64: no native encoding for binop %s", op.BinOp)
		}
		if op.Src2.IsImm() {
			return nil, fmt.Errorf("amd64: immediate ALU form not yet implemented for %s", op.BinOp)
		}
		src, ok := regOperand(op.Src2)
		src1, ok1 := regOperand(op.Src1)
		if !ok || !ok1 {
			return nil, fmt.Errorf("amd64: unsupported operand shape for %s", op.BinOp)
		}
		srcPhys, err := assign.PhysicalReg(src)
		if err != nil {
			return nil, err
		}
		src1Phys, err := assign.PhysicalReg(src1)
		if err != nil {
			return nil, err
		}
		modrm := byte(0xC0) | (byte(srcPhys&0x07) << 3) | byte(dst&0x07)
		if src1Phys == dst {
			return []byte{opcode, modrm}, nil
		}
		if srcPhys == dst {
			return nil, fmt.Errorf("amd64: %s destination aliases its second source", op.BinOp)
		}
		// The ALU opcodes are two-operand (dst op= src): load Src1 into dst
		// first with XOR dst, dst and ADD dst, src1.
		return []byte{0x31, byte(0xC0) | byte(dst&0x07)<<3 | byte(dst&0x07),
			0x01, byte(0xC0) | byte(src1Phys&0x07)<<3 | byte(dst&0x07), opcode, modrm}, nil

	default:
		return nil, fmt.Errorf("amd64: op kind %d not supported by this backend yet", op.Kind)
	}
}

func emitTerm(t ir.Terminator) []byte {
	switch t.Kind {
	case ir.TermRet:
		return []byte{0xC3}
	default:
		// Jump/CondJump/Trap targets are resolved by the scheduler's
		// dispatch loop via the block cache, not by an in-line native
		// jump, so the compiled buffer simply returns control.
		return []byte{0xC3}
	}
}

func aluOpcode(op ir.BinOp) (byte, bool) {
	switch op {
	case ir.Add:
		return 0x01, true
	case ir.Sub:
		return 0x29, true
	case ir.And:
		return 0x21, true
	case ir.Or:
		return 0x09, true
	case ir.Xor:
		return 0x31, true
	default:
		return 0, false
	}
}

func regOperand(o ir.Operand) (ir.RegId, bool) {
	if o.Kind != ir.KindReg {
		return 0, false
	}
	return o.Reg, true
}
