/*
 * vcore - Instantiable execution event bus.
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

// Package corevent is a fire-and-forget event bus for execution,
// memory, and device events (block compiled, hotspot detected, TLB
// invalidated, MMIO fault). Unlike the teacher's emu/event package, a
// Bus is a struct with its own subscriber list rather than a package
// global, so more than one VM can run in the same process without
// sharing event delivery.
package corevent

import (
	"sync"

	"github.com/rcornwell/vcore/internal/ir"
)

// Kind tags the variant of an Event.
type Kind uint8

const (
	KindExecution Kind = iota
	KindMemory
	KindDevice
)

// ExecutionEvent reports JIT/interpreter lifecycle activity.
type ExecutionEvent struct {
	VCPUID      int
	BlockPC     ir.GuestAddr
	HotspotHit  bool
	Compiled    bool
	OptimizedUp bool
}

// MemoryEvent reports TLB or page-fault activity.
type MemoryEvent struct {
	VCPUID int
	Addr   ir.GuestAddr
	Fault  bool
	Reason string
}

// DeviceEvent reports MMIO or DMA activity.
type DeviceEvent struct {
	StreamID uint16
	Addr     ir.GuestAddr
	Write    bool
}

// Event is the envelope delivered to subscribers; exactly one of the
// payload fields is meaningful, selected by Kind.
type Event struct {
	Kind      Kind
	Execution ExecutionEvent
	Memory    MemoryEvent
	Device    DeviceEvent
}

// Handler receives events. It must not block for long: Publish calls
// handlers synchronously under the bus's read lock.
type Handler func(Event)

// Bus is an instantiable pub/sub event bus.
type Bus struct {
	mu       sync.RWMutex
	handlers []Handler
}

// New builds an empty Bus.
func New() *Bus {
	return &Bus{}
}

// Subscribe registers h to receive every future Publish call.
func (b *Bus) Subscribe(h Handler) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.handlers = append(b.handlers, h)
}

// Publish delivers ev to every subscriber. Delivery is fire-and-forget:
// a panicking handler is recovered and dropped so it cannot take down
// the vCPU that triggered the event.
func (b *Bus) Publish(ev Event) {
	b.mu.RLock()
	defer b.mu.RUnlock()
	for _, h := range b.handlers {
		safeCall(h, ev)
	}
}

func safeCall(h Handler, ev Event) {
	defer func() { _ = recover() }()
	h(ev)
}
