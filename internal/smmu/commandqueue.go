/*
 * vcore - SMMU command queue and interrupt plane.
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

package smmu

import "fmt"

// CommandOp tags a command queue entry.
type CommandOp uint8

const (
	CmdSync      CommandOp = iota // barrier: complete once every prior command is visible
	CmdCfgiSte                    // invalidate a cached Stream Table Entry
	CmdCfgiCD                     // invalidate a cached Context Descriptor
	CmdTlbiVall                   // invalidate every TLB entry
	CmdTlbiEL1                    // invalidate TLB entries for one stream
)

// Command is one command queue entry.
type Command struct {
	Op       CommandOp
	StreamID uint16
	ASID     uint16
}

// InterruptPriority orders the SMMU's interrupt sources; a GERROR always
// preempts a PRIQ event, which always preempts a CMD_SYNC completion.
type InterruptPriority uint8

const (
	PriorityCmdSync InterruptPriority = iota
	PriorityPRIQ
	PriorityGERROR
)

// Interrupt is a pending SMMU interrupt, held in priority order.
type Interrupt struct {
	Priority InterruptPriority
	Reason   string
}

// EnqueueCommand appends cmd to the command queue without executing it;
// commands only take effect when DrainCommands (or a CMD_SYNC within the
// queue) processes them, matching real SMMU command-queue semantics
// where software polls the consumer pointer rather than getting a
// synchronous return from the enqueue itself.
func (s *SMMU) EnqueueCommand(cmd Command) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.cmdQueue = append(s.cmdQueue, cmd)
}

// DrainCommands executes every queued command in FIFO order. A CmdSync
// command is a barrier: everything enqueued before it is guaranteed
// executed (and its effects visible to a subsequent Translate) before
// DrainCommands processes anything after it. Since this implementation
// executes commands synchronously in order, every command is already a
// de facto barrier; CmdSync exists in the queue purely so callers that
// modeled it as a wait point see one, per spec §4.I.
func (s *SMMU) DrainCommands() ([]Interrupt, error) {
	s.mu.Lock()
	pending := s.cmdQueue
	s.cmdQueue = nil
	s.mu.Unlock()

	var irqs []Interrupt
	for _, cmd := range pending {
		if err := s.executeCommand(cmd); err != nil {
			irqs = append(irqs, Interrupt{Priority: PriorityGERROR, Reason: err.Error()})
			continue
		}
		if cmd.Op == CmdSync {
			irqs = append(irqs, Interrupt{Priority: PriorityCmdSync, Reason: "sync complete"})
		}
	}
	sortByPriorityDesc(irqs)
	return irqs, nil
}

func (s *SMMU) executeCommand(cmd Command) error {
	switch cmd.Op {
	case CmdSync:
		return nil
	case CmdCfgiSte:
		s.mu.Lock()
		s.invalidateStreamLocked(cmd.StreamID)
		s.mu.Unlock()
		return nil
	case CmdCfgiCD:
		s.mu.Lock()
		for streamID, ste := range s.streams {
			if cd, ok := s.cds[ste.CDTableID]; ok && cd.ASID == cmd.ASID {
				s.invalidateStreamLocked(streamID)
			}
		}
		s.mu.Unlock()
		return nil
	case CmdTlbiVall:
		s.mu.Lock()
		s.tlb = make(map[tlbKey]uint64)
		s.mu.Unlock()
		return nil
	case CmdTlbiEL1:
		s.mu.Lock()
		s.invalidateStreamLocked(cmd.StreamID)
		s.mu.Unlock()
		return nil
	default:
		return fmt.Errorf("smmu: unknown command op %d", cmd.Op)
	}
}

// sortByPriorityDesc orders interrupts GERROR first, then PRIQ, then
// CMD_SYNC, matching the SMMU's fixed interrupt priority scheme. The
// list is small (one drain's worth of commands) so an insertion sort is
// plenty.
func sortByPriorityDesc(irqs []Interrupt) {
	for i := 1; i < len(irqs); i++ {
		for j := i; j > 0 && irqs[j].Priority > irqs[j-1].Priority; j-- {
			irqs[j], irqs[j-1] = irqs[j-1], irqs[j]
		}
	}
}
