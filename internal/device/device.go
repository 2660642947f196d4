/*
 * vcore - Memory region and MMIO device capability traits.
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

// Package device defines the capability traits the MMU and SMMU dispatch
// through for guest-addressable backing stores: MemoryRegion for plain
// RAM, MmioDevice for register-mapped peripherals. These are Go
// interfaces (dynamic dispatch), not a tag+switch table, because the set
// of attached regions and devices is open-ended and configured at
// runtime, unlike the fixed per-ISA decoder set in internal/decoder.
package device

import (
	"fmt"
	"os"

	"github.com/edsrzf/mmap-go"

	"github.com/rcornwell/vcore/internal/ir"
	"github.com/rcornwell/vcore/internal/mmu"
)

// MemoryRegion is a contiguous range of guest-physical memory.
type MemoryRegion interface {
	Base() ir.GuestAddr
	Len() uint64
	ReadAt(offset uint64, size ir.Size) (uint64, error)
	WriteAt(offset uint64, size ir.Size, value uint64) error
	Contains(addr ir.GuestAddr) bool
}

// MmioDevice is a register-mapped peripheral driven by guest loads and
// stores rather than backed by raw bytes; every access is forwarded to
// the device's own read/write logic instead of a byte slice.
type MmioDevice interface {
	MemoryRegion
	Name() string
}

// FileBackedRegion maps a host file as guest RAM via mmap, so large guest
// memory images are not copied into the host heap up front.
type FileBackedRegion struct {
	base ir.GuestAddr
	data mmap.MMap
	file *os.File
	perm mmu.Permission
}

// OpenFileBacked mmaps path starting at guest address base. The file is
// sized by path's existing length; callers that need a larger region
// must pre-truncate it.
func OpenFileBacked(path string, base ir.GuestAddr, perm mmu.Permission) (*FileBackedRegion, error) {
	prot := mmap.RDONLY
	if perm.Has(mmu.PermWrite) {
		prot = mmap.RDWR
	}
	f, err := os.OpenFile(path, os.O_RDWR, 0o644)
	if err != nil {
		return nil, fmt.Errorf("device: open %s: %w", path, err)
	}
	m, err := mmap.Map(f, prot, 0)
	if err != nil {
		f.Close()
		return nil, fmt.Errorf("device: mmap %s: %w", path, err)
	}
	return &FileBackedRegion{base: base, data: m, file: f, perm: perm}, nil
}

// Close flushes and unmaps the region.
func (r *FileBackedRegion) Close() error {
	if err := r.data.Unmap(); err != nil {
		return err
	}
	return r.file.Close()
}

func (r *FileBackedRegion) Base() ir.GuestAddr { return r.base }
func (r *FileBackedRegion) Len() uint64        { return uint64(len(r.data)) }

func (r *FileBackedRegion) Contains(addr ir.GuestAddr) bool {
	return addr >= r.base && uint64(addr-r.base) < uint64(len(r.data))
}

func (r *FileBackedRegion) ReadAt(offset uint64, size ir.Size) (uint64, error) {
	if offset+uint64(size) > uint64(len(r.data)) {
		return 0, fmt.Errorf("device: read at offset 0x%x exceeds region length", offset)
	}
	if !r.perm.Has(mmu.PermRead) {
		return 0, fmt.Errorf("device: region not readable")
	}
	var v uint64
	for i := ir.Size(0); i < size; i++ {
		v |= uint64(r.data[offset+uint64(i)]) << (8 * i)
	}
	return v, nil
}

func (r *FileBackedRegion) WriteAt(offset uint64, size ir.Size, value uint64) error {
	if offset+uint64(size) > uint64(len(r.data)) {
		return fmt.Errorf("device: write at offset 0x%x exceeds region length", offset)
	}
	if !r.perm.Has(mmu.PermWrite) {
		return fmt.Errorf("device: region not writable")
	}
	for i := ir.Size(0); i < size; i++ {
		r.data[offset+uint64(i)] = byte(value >> (8 * i))
	}
	return nil
}
