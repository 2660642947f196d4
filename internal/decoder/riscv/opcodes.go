/*
 * vcore - RISC-V opcode field constants.
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

// Package riscv decodes the RV64I base integer set plus the subset of
// opcodes needed to lift straight-line blocks into IR. Of the optional
// extensions only M changes decoding: with Config.M set, MUL lifts to a
// Mul op and the other M-extension forms (MULH, DIV, REM, ...) end the
// block with Trap(UnsupportedOp); with M clear, any M-extension
// instruction ends it with Trap(InvalidInstruction). The F, D and A
// flags are not read: their opcodes end the block with
// Trap(InvalidInstruction) whatever Config says, and 16-bit compressed
// instructions end it with Trap(UnsupportedOp) whether or not C is set.
package riscv

const (
	opcodeMask = 0x7F

	opOpImm  = 0x13 // ADDI, ANDI, ORI, XORI, ...  (I-type)
	opOp     = 0x33 // ADD, SUB, AND, OR, XOR, MUL/DIV (R-type, M-extension when funct7=1)
	opLoad   = 0x03 // LW etc (I-type)
	opStore  = 0x23 // SW etc (S-type)
	opBranch = 0x63 // BEQ/BNE/... (B-type)
	opJal    = 0x6F // JAL (J-type)
	opJalr   = 0x67 // JALR (I-type)
	opLui    = 0x37 // LUI (U-type)

	funct3Add  = 0x0
	funct3And  = 0x7
	funct3Or   = 0x6
	funct3Xor  = 0x4
	funct3Word = 0x2 // LW/SW funct3

	funct7Base = 0x00
	funct7Alt  = 0x20 // SUB/SRA
	funct7Mul  = 0x01 // M-extension marker
)

// Config selects which RISC-V extensions this decoder instance accepts.
// Only M is read by DecodeBlock (see the package comment); an M-extension
// instruction with M clear is treated as illegal. F, D, C and A are
// carried but do not change decoding.
type Config struct {
	M bool // integer multiply/divide
	F bool // single-precision float
	D bool // double-precision float
	C bool // compressed 16-bit instructions
	A bool // atomics
}

// DefaultConfig enables no optional extension; only RV64I is decoded.
func DefaultConfig() Config { return Config{} }
