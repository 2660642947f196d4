/*
 * vcore - Main process.
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

package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	getopt "github.com/pborman/getopt/v2"

	"github.com/rcornwell/vcore/command/monitor"
	config "github.com/rcornwell/vcore/config/configparser"
	"github.com/rcornwell/vcore/internal/decoder"
	"github.com/rcornwell/vcore/internal/device"
	"github.com/rcornwell/vcore/internal/ir"
	"github.com/rcornwell/vcore/internal/jit"
	"github.com/rcornwell/vcore/internal/jit/isa/amd64"
	"github.com/rcornwell/vcore/internal/jit/isa/arm64"
	"github.com/rcornwell/vcore/internal/mmu"
	"github.com/rcornwell/vcore/internal/regmap"
	"github.com/rcornwell/vcore/internal/scheduler"
	"github.com/rcornwell/vcore/internal/vcore"
	"github.com/rcornwell/vcore/util/logger"

	_ "github.com/rcornwell/vcore/config/debugconfig"
	_ "github.com/rcornwell/vcore/internal/decoder/arm64"
	_ "github.com/rcornwell/vcore/internal/decoder/riscv"
	_ "github.com/rcornwell/vcore/internal/decoder/x86"
)

// gpRegisterCount is the general-purpose physical register bank size
// the baseline regmap.Mapper targets for each ISA with a jit backend;
// riscv has no backend yet, so a riscv guest runs interpreter-only.
var gpRegisterCount = map[decoder.ISA]int{
	decoder.ISAx86_64: 8,
	decoder.ISAArm64:  8,
}

// newJITCompiler builds a tiered compiler for isa, or nil if no backend
// is registered for it yet (the core still runs fine interpreter-only).
func newJITCompiler(isa decoder.ISA, cfg vcore.Config, core *vcore.Core) *jit.Compiler {
	gp, ok := gpRegisterCount[isa]
	if !ok {
		return nil
	}
	mapper := regmap.New(regmap.RegisterSet{GP: gp})

	var backend jit.Backend
	var alloc jit.CodeBufferAllocator
	switch isa {
	case decoder.ISAx86_64:
		backend = amd64.NewBackend(mapper)
		alloc = amd64.AllocateCodeBuffer
	case decoder.ISAArm64:
		backend = arm64.NewBackend(mapper)
		alloc = arm64.AllocateCodeBuffer
	default:
		return nil
	}

	thresholds := jit.Thresholds{Baseline: cfg.JITBaseline, Optimized: cfg.JITOptimized}
	return jit.New(backend, alloc, thresholds, core.Events(), core.Cache())
}

// runningVCPU adapts one attached vcore.Core vCPU to scheduler.VCPU,
// stepping one block at a time so ctx cancellation is observed between
// blocks rather than only after a whole Execute cycle budget.
type runningVCPU struct {
	core *vcore.Core
	id   int
}

func (v *runningVCPU) Run(ctx context.Context) error {
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}
		if _, err := v.core.StepOne(v.id); err != nil {
			if errors.Is(err, context.Canceled) {
				return err
			}
			return fmt.Errorf("vcpu %d: %w", v.id, err)
		}
	}
}

// identityWalker resolves every virtual page to the same-numbered
// physical page with full RWX permission, used until a guest page table
// format is wired in.
type identityWalker struct{}

func (identityWalker) Walk(vpn uint64, asid uint16) (mmu.Mapping, error) {
	return mmu.Mapping{VPN: vpn, PPN: vpn, ASID: asid, Perm: mmu.PermRWX}, nil
}

// flatMem adapts a single device.MemoryRegion to vcore.MemSource.
type flatMem struct {
	region device.MemoryRegion
}

func (m flatMem) Access(addr ir.GuestAddr, size ir.Size, at int) (uint64, error) {
	return m.region.ReadAt(uint64(addr-m.region.Base()), size)
}

func (m flatMem) Store(addr ir.GuestAddr, size ir.Size, value uint64, at int) error {
	return m.region.WriteAt(uint64(addr-m.region.Base()), size, value)
}

func (m flatMem) FetchBytes(addr ir.GuestAddr, maxLen int) ([]byte, error) {
	bytes := make([]byte, 0, maxLen)
	for i := 0; i < maxLen; i++ {
		v, err := m.region.ReadAt(uint64(addr-m.region.Base())+uint64(i), ir.Size1)
		if err != nil {
			break
		}
		bytes = append(bytes, byte(v))
	}
	return bytes, nil
}

func main() {
	optConfig := getopt.StringLong("config", 'c', "vcore.cfg", "Configuration file")
	optLogFile := getopt.StringLong("log", 'l', "", "Log file")
	optISA := getopt.StringLong("isa", 'i', "x86_64", "Guest ISA (x86_64, arm64, riscv)")
	optImage := getopt.StringLong("image", 'm', "", "Guest memory image file")
	optDebug := getopt.BoolLong("debug", 'd', "Enable debug tracing")
	optHelp := getopt.BoolLong("help", 'h', "Help")
	getopt.Parse()

	if *optHelp {
		getopt.Usage()
		os.Exit(0)
	}

	var file *os.File
	if optLogFile != nil && *optLogFile != "" {
		file, _ = os.Create(*optLogFile)
	}
	programLevel := new(slog.LevelVar)
	programLevel.Set(slog.LevelInfo)
	log := slog.New(logger.NewHandler(file, &slog.HandlerOptions{Level: programLevel, AddSource: false}, optDebug))
	slog.SetDefault(log)

	log.Info("vcore started")

	if _, err := os.Stat(*optConfig); err == nil {
		if err := config.LoadFile(*optConfig); err != nil {
			log.Error("loading configuration", "error", err)
			os.Exit(1)
		}
	} else {
		log.Warn("no configuration file found, using defaults", "path", *optConfig)
	}

	isa, err := decoder.ParseISA(*optISA)
	if err != nil {
		log.Error("unsupported ISA", "isa", *optISA, "error", err)
		os.Exit(1)
	}

	cfg := vcore.DefaultConfig()
	cfg.SourceISA = isa
	cfg.TargetISA = isa

	core, err := vcore.New(cfg, log)
	if err != nil {
		log.Error("initializing core", "error", err)
		os.Exit(1)
	}

	if compiler := newJITCompiler(isa, cfg, core); compiler != nil {
		core.AttachJIT(compiler)
		log.Info("jit attached", "isa", isa.String(), "baseline", cfg.JITBaseline, "optimized", cfg.JITOptimized)
	} else {
		log.Warn("no jit backend for isa, running interpreter-only", "isa", isa.String())
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	if optImage != nil && *optImage != "" {
		region, err := device.OpenFileBacked(*optImage, 0, mmu.PermRWX)
		if err != nil {
			log.Error("opening guest memory image", "error", err)
			os.Exit(1)
		}
		defer region.Close()
		core.AttachVCPU(0, 0, identityWalker{}, flatMem{region: region})
		log.Info("vcpu attached", "id", 0, "image", *optImage, "size", region.Len())

		sched := scheduler.New([]scheduler.VCPU{&runningVCPU{core: core, id: 0}}, scheduler.DefaultConfig())
		go func() {
			if err := sched.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
				log.Error("scheduler stopped", "error", err)
			}
		}()
	} else {
		log.Warn("no guest memory image given, vcpu 0 not attached")
	}

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	mon := monitor.New(core, os.Stdin, os.Stdout)

	go func() {
		for mon.RunOnce() {
		}
	}()

	<-sigChan
	cancel()
	fmt.Println("shutting down")
	log.Info("vcore stopped")
}
