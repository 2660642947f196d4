/*
 * vcore - AArch64 opcode field constants.
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

// Package arm64 decodes a practically useful subset of the AArch64 A64
// fixed-width encoding: every instruction is 4 bytes, so the per-field
// masks below are all taken from a single little-endian uint32.
package arm64

const (
	// bits [31:24] after masking off Rd/Rn/Rm/imm fields identify the
	// instruction group for the subset this decoder understands.
	maskArith  = 0x7F200000
	opAddShift = 0x0B000000 // ADD (shifted register), sf=0
	opSubShift = 0x4B000000 // SUB (shifted register), sf=0
	opAndShift = 0x0A000000 // AND (shifted register), sf=0
	opOrrShift = 0x2A000000 // ORR (shifted register), sf=0
	opEorShift = 0x4A000000 // EOR (shifted register), sf=0

	maskMovz = 0x7F800000
	opMovz   = 0x52800000 // MOVZ Wd, #imm16

	maskLdrStr = 0xFFC00000
	opLdrImm   = 0xB9400000 // LDR Wt, [Xn, #imm12]
	opStrImm   = 0xB9000000 // STR Wt, [Xn, #imm12]

	opRet    uint32 = 0xD65F03C0 // RET (X30)
	maskB    uint32 = 0xFC000000
	opB      uint32 = 0x14000000 // B imm26
	maskBcond uint32 = 0xFF000010
	opBcond  uint32 = 0x54000000 // B.cond imm19
)

// condReg is the virtual register the condition operand of a conditional
// branch reads from; AArch64's NZCV is not modeled as a separate IR bank.
// It must stay within RegisterFile's addressable range (interp.go) like
// any other register id - guest GP registers occupy 0-30 here (x0-x30),
// so 255 (the file's last slot) is reserved for it without colliding.
const condReg = 255
