/*
 * vcore - x86_64 opcode constants.
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

// Package x86 decodes a practically useful subset of x86_64: register-move
// immediates, register-direct ALU ops, base+disp8/32 load/store, and the
// common control-flow opcodes. It does not attempt full SIB/VEX coverage;
// see decodeModRM.
package x86

const (
	OpAddRM32R32  = 0x01 // ADD r/m, r
	OpOrRM32R32   = 0x09 // OR r/m, r
	OpAndRM32R32  = 0x21 // AND r/m, r
	OpSubRM32R32  = 0x29 // SUB r/m, r
	OpXorRM32R32  = 0x31 // XOR r/m, r
	OpMovR32RM32  = 0x8B // MOV r, r/m   (load direction)
	OpMovRM32R32  = 0x89 // MOV r/m, r   (store direction)
	OpMovImm32Base = 0xB8 // MOV r32, imm32 (+reg in low 3 bits)
	OpRet         = 0xC3 // RET
	OpJmpRel32    = 0xE9 // JMP rel32
	OpTwoByte     = 0x0F // two-byte opcode escape
	OpJccRel32Base = 0x80 // 0F 80+cc rel32

	RexBase = 0x40 // REX prefix base (0x40-0x4F)
	RexW    = 0x08 // REX.W: 64-bit operand size
	RexR    = 0x04 // REX.R: ModRM.reg extension
	RexB    = 0x01 // REX.B: ModRM.rm/opcode-reg extension
)
