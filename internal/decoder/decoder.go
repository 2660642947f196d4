/*
 * vcore - Per-ISA decoder registry and shared decode contract.
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

// Package decoder dispatches decode_block to the configured per-ISA
// decoder (x86_64, ARM64, RISC-V). Per spec §9 this is a tag + dispatch
// table, not an inheritance hierarchy: each ISA package registers one
// Decoder value and decoder.For looks it up by ISA tag.
package decoder

import (
	"fmt"

	"github.com/rcornwell/vcore/internal/ir"
)

// ISA tags a source or target instruction set.
type ISA uint8

const (
	ISAx86_64 ISA = iota
	ISAArm64
	ISARiscV
)

func (a ISA) String() string {
	switch a {
	case ISAx86_64:
		return "x86_64"
	case ISAArm64:
		return "arm64"
	case ISARiscV:
		return "riscv"
	default:
		return "unknown"
	}
}

// ParseISA maps a config string to an ISA tag.
func ParseISA(s string) (ISA, error) {
	switch s {
	case "x86_64", "amd64":
		return ISAx86_64, nil
	case "arm64", "aarch64":
		return ISAArm64, nil
	case "riscv", "riscv64":
		return ISARiscV, nil
	default:
		return 0, fmt.Errorf("unknown ISA %q", s)
	}
}

// Decoder lifts one basic block of raw guest bytes into IR, starting at
// pc. It must never panic on malformed input (spec §4.A, §7): unknown or
// illegal encodings become a Trap(InvalidInstruction) terminator.
type Decoder interface {
	DecodeBlock(bytes []byte, pc ir.GuestAddr, maxLen int) (*ir.Block, error)
}

var registry = map[ISA]Decoder{}

// Register associates a Decoder implementation with an ISA tag. Called
// from each per-ISA package's init().
func Register(a ISA, d Decoder) {
	registry[a] = d
}

// For returns the registered decoder for a, or an error if none is
// registered (a configuration error per spec §7, not a panic).
func For(a ISA) (Decoder, error) {
	d, ok := registry[a]
	if !ok {
		return nil, fmt.Errorf("no decoder registered for ISA %s", a)
	}
	return d, nil
}
