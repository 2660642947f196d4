/*
 * vcore - VM snapshot construct/restore.
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

// Package snapshot captures and restores everything needed to resume a
// VM bit-for-bit: vCPU register files, memory region contents, MMU
// mappings, and SMMU stream/context state. Block-cache contents are
// deliberately excluded (native code buffers are host-architecture
// specific and are rebuilt lazily on first re-execution), matching the
// spec's explicit non-goal for code-buffer persistence.
package snapshot

import (
	"bytes"
	"encoding/gob"
	"fmt"

	"github.com/rcornwell/vcore/internal/mmu"
	"github.com/rcornwell/vcore/internal/smmu"
)

// VCPUState is one vCPU's register file and program counter at the
// moment of the snapshot.
type VCPUState struct {
	ID       int
	Regs     [256]uint64
	PC       uint64
	ASID     uint16
	Cycles   uint64
}

// MemoryRegionState is the raw byte contents of one guest memory region.
type MemoryRegionState struct {
	Base uint64
	Data []byte
}

// MMUState is every TLB mapping a vCPU's MMU has resident, replayed back
// into a fresh MMU on restore rather than relying on re-walks.
type MMUState struct {
	VCPUID   int
	Mappings []mmu.Mapping
}

// SMMUState is the SMMU's stream table and context descriptors, keyed
// the same way the live SMMU keys them.
type SMMUState struct {
	Streams map[uint16]smmu.STE
	CDs     map[uint32]smmu.CD
}

// BlockCacheMeta is the non-authoritative subset of block-cache state
// worth preserving across a snapshot: which (isa, pc) pairs were hot, so
// the JIT can re-prioritize them immediately after restore instead of
// rebuilding hotspot counters from zero. It carries no native code.
type BlockCacheMeta struct {
	HotPCs []uint64
}

// VmSnapshot is the complete point-in-time state of one VM.
type VmSnapshot struct {
	VCPUs       []VCPUState
	Regions     []MemoryRegionState
	MMUs        []MMUState
	SMMU        SMMUState
	BlockCache  BlockCacheMeta
}

// Encode serializes snap with encoding/gob.
func Encode(snap *VmSnapshot) ([]byte, error) {
	var buf bytes.Buffer
	if err := gob.NewEncoder(&buf).Encode(snap); err != nil {
		return nil, fmt.Errorf("snapshot: encode: %w", err)
	}
	return buf.Bytes(), nil
}

// Decode deserializes a VmSnapshot previously produced by Encode.
func Decode(data []byte) (*VmSnapshot, error) {
	var snap VmSnapshot
	if err := gob.NewDecoder(bytes.NewReader(data)).Decode(&snap); err != nil {
		return nil, fmt.Errorf("snapshot: decode: %w", err)
	}
	return &snap, nil
}
