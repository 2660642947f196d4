/*
 * vcore - Interactive debug console.
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

// Package monitor is a line-oriented debug console: step a vCPU, set a
// breakpoint, dump registers, flush a TLB, print SMMU stats. Commands
// are parsed the way the teacher's command/parser package tokenizes a
// config line: split on whitespace, first word selects the handler.
package monitor

import (
	"bufio"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/rcornwell/vcore/internal/interp"
	"github.com/rcornwell/vcore/internal/ir"
	"github.com/rcornwell/vcore/internal/mmu"
	"github.com/rcornwell/vcore/internal/smmu"
)

// Target is the subset of a running Core the monitor can inspect and
// step, kept narrow so the console does not need to import vcore's
// whole Config surface.
type Target interface {
	StepOne(vcpuID int) (ir.GuestAddr, error)
	Registers(vcpuID int) *interp.RegisterFile
	MMU(vcpuID int) *mmu.MMU
	SMMU() *smmu.SMMU
}

// Monitor reads commands from in and writes results to out.
type Monitor struct {
	target      Target
	in          *bufio.Scanner
	out         io.Writer
	breakpoints map[ir.GuestAddr]bool
}

// New builds a Monitor reading commands from in and writing to out.
func New(target Target, in io.Reader, out io.Writer) *Monitor {
	return &Monitor{
		target:      target,
		in:          bufio.NewScanner(in),
		out:         out,
		breakpoints: make(map[ir.GuestAddr]bool),
	}
}

// RunOnce reads and executes a single command line, returning false when
// the input is exhausted.
func (m *Monitor) RunOnce() bool {
	if !m.in.Scan() {
		return false
	}
	m.dispatch(strings.Fields(m.in.Text()))
	return true
}

func (m *Monitor) dispatch(fields []string) {
	if len(fields) == 0 {
		return
	}
	switch strings.ToLower(fields[0]) {
	case "step":
		m.cmdStep(fields[1:])
	case "break":
		m.cmdBreak(fields[1:])
	case "regs":
		m.cmdRegs(fields[1:])
	case "tlb":
		m.cmdTLB(fields[1:])
	case "smmu":
		m.cmdSMMU(fields[1:])
	default:
		fmt.Fprintf(m.out, "unknown command %q\n", fields[0])
	}
}

func (m *Monitor) cmdStep(args []string) {
	vcpu := 0
	if len(args) > 0 {
		vcpu = atoiOr(args[0], 0)
	}
	pc, err := m.target.StepOne(vcpu)
	if err != nil {
		fmt.Fprintf(m.out, "step failed: %v\n", err)
		return
	}
	fmt.Fprintf(m.out, "vcpu %d stopped at 0x%x\n", vcpu, uint64(pc))
	if m.breakpoints[pc] {
		fmt.Fprintf(m.out, "breakpoint hit at 0x%x\n", uint64(pc))
	}
}

func (m *Monitor) cmdBreak(args []string) {
	if len(args) < 1 {
		fmt.Fprintln(m.out, "usage: break <addr>")
		return
	}
	addr, err := strconv.ParseUint(strings.TrimPrefix(args[0], "0x"), 16, 64)
	if err != nil {
		fmt.Fprintf(m.out, "bad address %q\n", args[0])
		return
	}
	m.breakpoints[ir.GuestAddr(addr)] = true
	fmt.Fprintf(m.out, "breakpoint set at 0x%x\n", addr)
}

func (m *Monitor) cmdRegs(args []string) {
	vcpu := 0
	if len(args) > 0 {
		vcpu = atoiOr(args[0], 0)
	}
	regs := m.target.Registers(vcpu)
	if regs == nil {
		fmt.Fprintf(m.out, "no such vcpu %d\n", vcpu)
		return
	}
	for i := ir.RegId(0); i < 16; i++ {
		fmt.Fprintf(m.out, "r%-2d = 0x%016x\n", i, regs.Get(i))
	}
}

func (m *Monitor) cmdTLB(args []string) {
	if len(args) < 1 || args[0] != "flush" {
		fmt.Fprintln(m.out, "usage: tlb flush [vcpu]")
		return
	}
	vcpu := 0
	if len(args) > 1 {
		vcpu = atoiOr(args[1], 0)
	}
	u := m.target.MMU(vcpu)
	if u == nil {
		fmt.Fprintf(m.out, "no such vcpu %d\n", vcpu)
		return
	}
	u.InvalidateAll()
	fmt.Fprintf(m.out, "vcpu %d tlb flushed\n", vcpu)
}

func (m *Monitor) cmdSMMU(args []string) {
	if len(args) < 1 || args[0] != "stats" {
		fmt.Fprintln(m.out, "usage: smmu stats")
		return
	}
	s := m.target.SMMU()
	if s == nil {
		fmt.Fprintln(m.out, "no smmu attached")
		return
	}
	// Figures printed here are advisory only, per the SMMU's own stats
	// contract; never use this output to assert correctness.
	fmt.Fprintf(m.out, "translations=%d tlb_hits=%d faults=%d\n",
		s.Stats.Translations, s.Stats.TLBHits, s.Stats.Faults)
}

func atoiOr(s string, def int) int {
	v, err := strconv.Atoi(s)
	if err != nil {
		return def
	}
	return v
}
