/*
 * vcore - Soft MMU with multi-level TLB.
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

// Package mmu implements the guest vCPU's virtual-to-physical address
// translation: a three-level TLB (direct-mapped L1, set-associative
// L2/L3) backed by a page-table walker, ASID-tagged so translations from
// different address spaces never alias. This is the per-vCPU
// translation plane; internal/smmu implements the separate device-DMA
// plane, modeled independently per spec §4.H/§4.I.
package mmu

import (
	"errors"
	"fmt"
	"sync"

	"github.com/rcornwell/vcore/internal/ir"
)

// PageShift is the guest page size exponent (4KiB pages).
const PageShift = 12

// PageSize is the guest page size in bytes.
const PageSize = 1 << PageShift

// Permission is a bitmask of allowed accesses, tested per-flag rather
// than compared as a whole value (R=1, W=2, X=4).
type Permission uint8

const (
	PermRead    Permission = 1 << 0
	PermWrite   Permission = 1 << 1
	PermExecute Permission = 1 << 2
	PermRWX     Permission = PermRead | PermWrite | PermExecute
)

// Has reports whether p grants every bit set in want.
func (p Permission) Has(want Permission) bool { return p&want == want }

// ErrPageFault is returned when a translation has no mapping or the
// mapping denies the requested permission; it is a guest-facing fault,
// not a host invariant violation (spec §7).
var ErrPageFault = errors.New("mmu: page fault")

// Mapping is one page-table-walk result, cached in the TLB.
type Mapping struct {
	VPN  uint64
	PPN  uint64
	ASID uint16
	Perm Permission
}

// Walker resolves a virtual page number to a Mapping on a TLB miss. A
// real guest would back this with in-memory page tables; tests typically
// supply a map-backed Walker.
type Walker interface {
	Walk(vpn uint64, asid uint16) (Mapping, error)
}

type tlbEntry struct {
	valid bool
	m     Mapping
}

// MMU is one vCPU's translation unit. It is never a package global:
// every vCPU owns its own MMU instance so multiple VMs, and multiple
// vCPUs within one VM, never share TLB state.
type MMU struct {
	mu sync.RWMutex

	walker Walker

	l1 []tlbEntry // direct-mapped, indexed by vpn & (l1Size-1)
	l2 []tlbEntry // 4-way set-associative
	l3 []tlbEntry // 8-way set-associative

	l1Size, l2Sets, l2Ways, l3Sets, l3Ways int
}

// Config sizes the three TLB levels.
type Config struct {
	L1Entries int
	L2Sets    int
	L2Ways    int
	L3Sets    int
	L3Ways    int
}

// DefaultConfig is a modest multi-level TLB suitable for tests and small
// guests.
func DefaultConfig() Config {
	return Config{L1Entries: 64, L2Sets: 64, L2Ways: 4, L3Sets: 256, L3Ways: 8}
}

// New builds an MMU backed by walker with the given TLB geometry.
func New(walker Walker, cfg Config) *MMU {
	return &MMU{
		walker: walker,
		l1:     make([]tlbEntry, cfg.L1Entries),
		l2:     make([]tlbEntry, cfg.L2Sets*cfg.L2Ways),
		l3:     make([]tlbEntry, cfg.L3Sets*cfg.L3Ways),
		l1Size: cfg.L1Entries, l2Sets: cfg.L2Sets, l2Ways: cfg.L2Ways,
		l3Sets: cfg.L3Sets, l3Ways: cfg.L3Ways,
	}
}

// Translate resolves a guest virtual address to a guest physical address
// for the given access type, consulting the TLB levels before falling
// back to a page-table walk. A successful walk result is installed into
// all three levels.
func (m *MMU) Translate(addr ir.GuestAddr, asid uint16, want Permission) (ir.GuestAddr, error) {
	vpn := uint64(addr) >> PageShift
	offset := uint64(addr) & (PageSize - 1)

	m.mu.RLock()
	mapping, ok := m.lookupLocked(vpn, asid)
	m.mu.RUnlock()

	if !ok {
		walked, err := m.walker.Walk(vpn, asid)
		if err != nil {
			return 0, fmt.Errorf("%w: vpn 0x%x: %v", ErrPageFault, vpn, err)
		}
		mapping = walked
		m.mu.Lock()
		m.installLocked(mapping)
		m.mu.Unlock()
	}

	if !mapping.Perm.Has(want) {
		return 0, fmt.Errorf("%w: vpn 0x%x denies permission %v", ErrPageFault, vpn, want)
	}
	return ir.GuestAddr(mapping.PPN<<PageShift | offset), nil
}

func (m *MMU) lookupLocked(vpn uint64, asid uint16) (Mapping, bool) {
	if m.l1Size > 0 {
		e := &m.l1[vpn%uint64(m.l1Size)]
		if e.valid && e.m.VPN == vpn && e.m.ASID == asid {
			return e.m, true
		}
	}
	if set, ok := findInSet(m.l2, m.l2Sets, m.l2Ways, vpn, asid); ok {
		return set, true
	}
	if set, ok := findInSet(m.l3, m.l3Sets, m.l3Ways, vpn, asid); ok {
		return set, true
	}
	return Mapping{}, false
}

func findInSet(tlb []tlbEntry, sets, ways int, vpn uint64, asid uint16) (Mapping, bool) {
	if sets == 0 {
		return Mapping{}, false
	}
	base := int(vpn%uint64(sets)) * ways
	for w := 0; w < ways; w++ {
		e := &tlb[base+w]
		if e.valid && e.m.VPN == vpn && e.m.ASID == asid {
			return e.m, true
		}
	}
	return Mapping{}, false
}

func (m *MMU) installLocked(mapping Mapping) {
	if m.l1Size > 0 {
		m.l1[mapping.VPN%uint64(m.l1Size)] = tlbEntry{valid: true, m: mapping}
	}
	installInSet(m.l2, m.l2Sets, m.l2Ways, mapping)
	installInSet(m.l3, m.l3Sets, m.l3Ways, mapping)
}

// installInSet installs into the first invalid way, or way 0 (a trivial
// eviction policy; the block cache's content hashing is what actually
// protects correctness across SMC, so TLB eviction choice is not
// safety-critical here).
func installInSet(tlb []tlbEntry, sets, ways int, mapping Mapping) {
	if sets == 0 {
		return
	}
	base := int(mapping.VPN%uint64(sets)) * ways
	for w := 0; w < ways; w++ {
		if !tlb[base+w].valid {
			tlb[base+w] = tlbEntry{valid: true, m: mapping}
			return
		}
	}
	tlb[base] = tlbEntry{valid: true, m: mapping}
}

// InvalidateVA removes any cached mapping for (asid, addr) from every TLB
// level. The removal is visible to any Translate call that begins after
// this returns (spec invariant I3/I6): callers must not race a translate
// against this without external synchronization beyond what InvalidateVA
// itself provides, since InvalidateVA takes the exclusive lock for its
// full duration.
func (m *MMU) InvalidateVA(addr ir.GuestAddr, asid uint16) {
	vpn := uint64(addr) >> PageShift
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.l1Size > 0 {
		e := &m.l1[vpn%uint64(m.l1Size)]
		if e.valid && e.m.VPN == vpn && e.m.ASID == asid {
			e.valid = false
		}
	}
	invalidateInSet(m.l2, m.l2Sets, m.l2Ways, vpn, asid)
	invalidateInSet(m.l3, m.l3Sets, m.l3Ways, vpn, asid)
}

func invalidateInSet(tlb []tlbEntry, sets, ways int, vpn uint64, asid uint16) {
	if sets == 0 {
		return
	}
	base := int(vpn%uint64(sets)) * ways
	for w := 0; w < ways; w++ {
		e := &tlb[base+w]
		if e.valid && e.m.VPN == vpn && e.m.ASID == asid {
			e.valid = false
		}
	}
}

// InvalidateASID drops every mapping tagged with asid, used when a guest
// retires an address-space id for reuse.
func (m *MMU) InvalidateASID(asid uint16) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for i := range m.l1 {
		if m.l1[i].valid && m.l1[i].m.ASID == asid {
			m.l1[i].valid = false
		}
	}
	for i := range m.l2 {
		if m.l2[i].valid && m.l2[i].m.ASID == asid {
			m.l2[i].valid = false
		}
	}
	for i := range m.l3 {
		if m.l3[i].valid && m.l3[i].m.ASID == asid {
			m.l3[i].valid = false
		}
	}
}

// InvalidateAll drops every cached mapping across every ASID.
func (m *MMU) InvalidateAll() {
	m.mu.Lock()
	defer m.mu.Unlock()
	for i := range m.l1 {
		m.l1[i].valid = false
	}
	for i := range m.l2 {
		m.l2[i].valid = false
	}
	for i := range m.l3 {
		m.l3[i].valid = false
	}
}
