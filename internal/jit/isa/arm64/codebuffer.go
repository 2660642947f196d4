/*
 * vcore - W^X native code buffer (arm64 host).
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

// Package arm64 provides the AArch64 JIT backend, mirroring the amd64
// backend's W^X code buffer discipline: mmap read-write, fill, mprotect
// read-execute.
package arm64

import (
	"encoding/binary"
	"fmt"
	"unsafe"

	"golang.org/x/sys/unix"

	"github.com/rcornwell/vcore/internal/ir"
	"github.com/rcornwell/vcore/internal/jit"
	"github.com/rcornwell/vcore/internal/regmap"
)

type codeBuffer struct {
	mem       []byte
	finalized bool
}

// AllocateCodeBuffer mmaps an anonymous, read-write region at least n
// bytes long.
func AllocateCodeBuffer(n int) (jit.CodeBuffer, error) {
	if n <= 0 {
		n = 4
	}
	mem, err := unix.Mmap(-1, 0, n, unix.PROT_READ|unix.PROT_WRITE, unix.MAP_PRIVATE|unix.MAP_ANON)
	if err != nil {
		return nil, fmt.Errorf("arm64: mmap code buffer: %w", err)
	}
	return &codeBuffer{mem: mem}, nil
}

func (c *codeBuffer) Write(code []byte) error {
	if c.finalized {
		return fmt.Errorf("arm64: write after finalize")
	}
	if len(code) > len(c.mem) {
		return fmt.Errorf("arm64: code %d bytes exceeds buffer %d bytes", len(code), len(c.mem))
	}
	copy(c.mem, code)
	return nil
}

func (c *codeBuffer) Finalize() error {
	if c.finalized {
		return nil
	}
	if err := unix.Mprotect(c.mem, unix.PROT_READ|unix.PROT_EXEC); err != nil {
		return fmt.Errorf("arm64: mprotect code buffer: %w", err)
	}
	c.finalized = true
	return nil
}

func (c *codeBuffer) Addr() uintptr {
	if len(c.mem) == 0 {
		return 0
	}
	return uintptr(unsafe.Pointer(&c.mem[0]))
}

func (c *codeBuffer) Close() error {
	return unix.Munmap(c.mem)
}

// Backend emits AArch64 machine code for a register-mapped block.
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
		return nil, fmt.Errorf("arm64: register allocation: %w", err)
	}
	var code []byte
	for _, op := range b.Ops {
		insn, err := emitOp(op, assign)
		if err != nil {
			return nil, err
		}
		var buf [4]byte
		binary.LittleEndian.PutUint32(buf[:], insn)
		code = append(code, buf[:]...)
	}
	var ret [4]byte
	binary.LittleEndian.PutUint32(ret[:], 0xD65F03C0) // RET X30
	return append(code, ret[:]...), nil
}

func emitOp(op ir.Op, assign *regmap.Assignment) (uint32, error) {
	switch op.Kind {
	case ir.OpMovImm:
		dst, err := assign.PhysicalReg(op.Dst)
		if err != nil {
			return 0, err
		}
		if op.Imm > 0xFFFF {
			return 0, fmt.Errorf("arm64: MOVZ immediate %d exceeds 16 bits, multi-instruction sequences not yet supported", op.Imm)
		}
		return 0x52800000 | (uint32(op.Imm) << 5) | uint32(dst&0x1F), nil

	case ir.OpBinaryOp:
		dst, err := assign.PhysicalReg(op.Dst)
		if err != nil {
			return 0, err
		}
		rn, ok := regOperand(op.Src1)
		if !ok {
			return 0, fmt.Errorf("arm64: unsupported lhs operand shape")
		}
		rm, ok := regOperand(op.Src2)
		if !ok {
			return 0, fmt.Errorf("arm64: immediate rhs not yet implemented")
		}
		rnPhys, err := assign.PhysicalReg(rn)
		if err != nil {
			return 0, err
		}
		rmPhys, err := assign.PhysicalReg(rm)
		if err != nil {
			return 0, err
		}
		base, ok := aluBase(op.BinOp)
		if !ok {
			return 0, fmt.Errorf("arm64: no native encoding for binop %s", op.BinOp)
		}
		return base | (uint32(rmPhys&0x1F) << 16) | (uint32(rnPhys&0x1F) << 5) | uint32(dst&0x1F), nil

	default:
		return 0, fmt.Errorf("arm64: op kind %d not supported by this backend yet", op.Kind)
	}
}

func aluBase(op ir.BinOp) (uint32, bool) {
	switch op {
	case ir.Add:
		return 0x0B000000, true
	case ir.Sub:
		return 0x4B000000, true
	case ir.And:
		return 0x0A000000, true
	case ir.Or:
		return 0x2A000000, true
	case ir.Xor:
		return 0x4A000000, true
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
