/*
 * vcore - W^X native code buffer (amd64 host).
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

// Package amd64 provides the x86_64 JIT backend: it emits native code
// for a compiled ir.Block and allocates the write-xor-execute memory it
// is written into. The code buffer is mmap'd read-write, filled, then
// mprotect'd to read-execute; it is never writable and executable at the
// same time, matching the host kernel's W^X expectations the same way
// the teacher's hypervisor host-memory mapping code does for guest RAM.
package amd64

import (
	"fmt"
	"unsafe"

	"golang.org/x/sys/unix"

	"github.com/rcornwell/vcore/internal/jit"
)

// codeBuffer is a single mmap'd region holding one compiled block's
// native code.
type codeBuffer struct {
	mem      []byte
	size     int
	finalized bool
}

// AllocateCodeBuffer mmaps an anonymous, read-write region at least n
// bytes long.
func AllocateCodeBuffer(n int) (jit.CodeBuffer, error) {
	if n <= 0 {
		n = 1
	}
	mem, err := unix.Mmap(-1, 0, n, unix.PROT_READ|unix.PROT_WRITE, unix.MAP_PRIVATE|unix.MAP_ANON)
	if err != nil {
		return nil, fmt.Errorf("amd64: mmap code buffer: %w", err)
	}
	return &codeBuffer{mem: mem, size: n}, nil
}

// Write copies code into the buffer. It must be called before Finalize;
// the buffer is still writable (and not yet executable) at this point.
func (c *codeBuffer) Write(code []byte) error {
	if c.finalized {
		return fmt.Errorf("amd64: write after finalize")
	}
	if len(code) > len(c.mem) {
		return fmt.Errorf("amd64: code %d bytes exceeds buffer %d bytes", len(code), len(c.mem))
	}
	copy(c.mem, code)
	return nil
}

// Finalize mprotects the buffer read-execute, making it permanently
// non-writable for the lifetime of this CodeBuffer.
func (c *codeBuffer) Finalize() error {
	if c.finalized {
		return nil
	}
	if err := unix.Mprotect(c.mem, unix.PROT_READ|unix.PROT_EXEC); err != nil {
		return fmt.Errorf("amd64: mprotect code buffer: %w", err)
	}
	c.finalized = true
	return nil
}

// Addr returns the host address of the first byte of the buffer.
func (c *codeBuffer) Addr() uintptr {
	if len(c.mem) == 0 {
		return 0
	}
	return uintptr(unsafe.Pointer(&c.mem[0]))
}

// Close unmaps the buffer. It must not be called while a vCPU might
// still be executing into it.
func (c *codeBuffer) Close() error {
	return unix.Munmap(c.mem)
}
