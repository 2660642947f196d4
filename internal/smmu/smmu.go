/*
 * vcore - Device DMA translation unit (SMMU/IOMMU).
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

// Package smmu models a stream-table-driven SMMU/IOMMU: a 16-bit Stream
// ID selects a Stream Table Entry, which names a Context Descriptor
// holding a stage-1 (and optionally stage-2) page table root. This is
// the device-DMA translation plane, kept entirely separate from
// internal/mmu's per-vCPU plane (spec §4.I design note): a device issuing
// DMA never goes through a vCPU's TLB.
//
// The command queue and interrupt plane mirror the teacher's
// sys_channel subchannel table: a fixed-size table of stream entries
// addressed by id, plus a producer/consumer command ring.
package smmu

import (
	"errors"
	"fmt"
	"sync"

	"github.com/rcornwell/vcore/internal/corevent"
	"github.com/rcornwell/vcore/internal/ir"
)

// MaxStreamID is the largest representable 16-bit Stream ID.
const MaxStreamID = 0xFFFF

// Permission mirrors mmu.Permission's bit layout for stage-1/stage-2
// access checks, kept as its own type since the SMMU's permission source
// (a Context Descriptor) is structurally different from a vCPU TLB
// mapping.
type Permission uint8

const (
	PermRead  Permission = 1 << 0
	PermWrite Permission = 1 << 1
)

func (p Permission) Has(want Permission) bool { return p&want == want }

// STE is a Stream Table Entry: it names whether the stream is bypassed
// or translated through a context descriptor. An STE with Valid unset
// disables the stream; there is no abort state.
type STE struct {
	Valid     bool
	Bypass    bool
	CDTableID uint32
}

// CD is a Context Descriptor: the stage-1 (and optional stage-2) walk
// root for one translation context.
type CD struct {
	Valid        bool
	Stage1Root   uint64
	Stage2Root   uint64
	Stage2Active bool
	ASID         uint16
}

var (
	// ErrStreamDisabled is returned when a Stream ID has no valid STE.
	ErrStreamDisabled = errors.New("smmu: stream disabled")
	// ErrTranslationFault is returned when a walk fails or permission is denied.
	ErrTranslationFault = errors.New("smmu: translation fault")
	// ErrStreamAbort names an aborted stream. Translate does not return
	// it, since an STE has no abort state.
	ErrStreamAbort = errors.New("smmu: stream abort")
)

// Walker resolves one stage of a page table walk for a CD.
type Walker interface {
	Walk(root uint64, vpn uint64) (ppn uint64, perm Permission, err error)
}

type tlbKey struct {
	stream uint16
	vpn    uint64
}

// SMMU is one instantiable device translation unit. Every attached
// device issues DMA through Translate, never directly against guest RAM.
type SMMU struct {
	mu sync.RWMutex

	streams map[uint16]*STE
	cds     map[uint32]*CD
	walker  Walker
	tlb     map[tlbKey]uint64 // vpn*pagesize+offset-free ppn cache

	cmdQueue []Command
	events   *corevent.Bus

	// Stats are advisory counters only; per design note they are not
	// authoritative and must never be used to decide correctness.
	Stats Stats
}

// Stats counts SMMU activity for observability.
type Stats struct {
	Translations uint64
	TLBHits      uint64
	Faults       uint64
}

// PageShift matches internal/mmu's guest page granularity.
const PageShift = 12
const pageSize = 1 << PageShift

// New builds an empty SMMU publishing events on bus (nil is allowed; no
// events are published then).
func New(walker Walker, bus *corevent.Bus) *SMMU {
	return &SMMU{
		streams: make(map[uint16]*STE),
		cds:     make(map[uint32]*CD),
		walker:  walker,
		tlb:     make(map[tlbKey]uint64),
		events:  bus,
	}
}

// ConfigureStream installs or replaces the STE for streamID, invalidating
// any TLB entries cached for it so a subsequent Translate walks the new
// STE (and the CD it names) rather than returning a stale mapping from
// the stream's previous configuration (spec I4).
func (s *SMMU) ConfigureStream(streamID uint16, ste STE) {
	s.mu.Lock()
	defer s.mu.Unlock()
	cp := ste
	s.streams[streamID] = &cp
	s.invalidateStreamLocked(streamID)
}

// ConfigureCD installs or replaces a Context Descriptor, invalidating the
// TLB entries of every stream currently routed through id so a subsequent
// Translate re-walks the new root rather than returning mappings cached
// under the old one (spec I4).
func (s *SMMU) ConfigureCD(id uint32, cd CD) {
	s.mu.Lock()
	defer s.mu.Unlock()
	cp := cd
	s.cds[id] = &cp
	for streamID, ste := range s.streams {
		if ste.CDTableID == id {
			s.invalidateStreamLocked(streamID)
		}
	}
}

// invalidateStreamLocked drops every TLB entry cached for streamID. Callers
// must hold s.mu.
func (s *SMMU) invalidateStreamLocked(streamID uint16) {
	for k := range s.tlb {
		if k.stream == streamID {
			delete(s.tlb, k)
		}
	}
}

// Translate resolves a DMA address issued by streamID, walking stage-1
// (and stage-2 if configured) through the CD the stream's STE names.
func (s *SMMU) Translate(streamID uint16, addr ir.GuestAddr, want Permission) (ir.GuestAddr, error) {
	vpn := uint64(addr) >> PageShift
	offset := uint64(addr) & (pageSize - 1)

	s.mu.RLock()
	ste, ok := s.streams[streamID]
	s.mu.RUnlock()
	if !ok || !ste.Valid {
		return 0, fmt.Errorf("%w: stream 0x%x", ErrStreamDisabled, streamID)
	}
	if ste.Bypass {
		s.recordStat()
		return addr, nil
	}

	s.mu.RLock()
	ppn, cached := s.tlb[tlbKey{stream: streamID, vpn: vpn}]
	s.mu.RUnlock()
	if cached {
		s.recordStat()
		s.Stats.TLBHits++
		return ir.GuestAddr(ppn<<PageShift | offset), nil
	}

	s.mu.RLock()
	cd, ok := s.cds[ste.CDTableID]
	s.mu.RUnlock()
	if !ok || !cd.Valid {
		return 0, fmt.Errorf("%w: stream 0x%x has no valid context", ErrTranslationFault, streamID)
	}

	ipa, perm, err := s.walker.Walk(cd.Stage1Root, vpn)
	if err != nil {
		s.fault(streamID, addr)
		return 0, fmt.Errorf("%w: %v", ErrTranslationFault, err)
	}
	finalPPN := ipa
	if cd.Stage2Active {
		finalPPN, perm, err = s.walker.Walk(cd.Stage2Root, ipa)
		if err != nil {
			s.fault(streamID, addr)
			return 0, fmt.Errorf("%w: stage-2: %v", ErrTranslationFault, err)
		}
	}
	if !perm.Has(want) {
		s.fault(streamID, addr)
		return 0, fmt.Errorf("%w: stream 0x%x denies permission", ErrTranslationFault, streamID)
	}

	s.mu.Lock()
	s.tlb[tlbKey{stream: streamID, vpn: vpn}] = finalPPN
	s.mu.Unlock()
	s.recordStat()
	return ir.GuestAddr(finalPPN<<PageShift | offset), nil
}

func (s *SMMU) recordStat() {
	s.Stats.Translations++
}

func (s *SMMU) fault(streamID uint16, addr ir.GuestAddr) {
	s.Stats.Faults++
	if s.events != nil {
		s.events.Publish(corevent.Event{Kind: corevent.KindDevice, Device: corevent.DeviceEvent{
			StreamID: streamID, Addr: addr, Write: false,
		}})
	}
}
