package monitor

import (
	"bytes"
	"strings"
	"testing"

	"github.com/rcornwell/vcore/internal/interp"
	"github.com/rcornwell/vcore/internal/ir"
	"github.com/rcornwell/vcore/internal/mmu"
	"github.com/rcornwell/vcore/internal/smmu"
)

type noopWalker struct{}

func (noopWalker) Walk(vpn uint64, asid uint16) (mmu.Mapping, error) {
	return mmu.Mapping{VPN: vpn, PPN: vpn, ASID: asid, Perm: mmu.PermRWX}, nil
}

type fakeTarget struct {
	pc       ir.GuestAddr
	regs     interp.RegisterFile
	mmu      *mmu.MMU
	smmu     *smmu.SMMU
	stepErr  error
	noVCPU   bool
}

func (t *fakeTarget) StepOne(vcpuID int) (ir.GuestAddr, error) {
	if t.stepErr != nil {
		return 0, t.stepErr
	}
	t.pc += 4
	return t.pc, nil
}

func (t *fakeTarget) Registers(vcpuID int) *interp.RegisterFile {
	if t.noVCPU {
		return nil
	}
	return &t.regs
}

func (t *fakeTarget) MMU(vcpuID int) *mmu.MMU {
	if t.noVCPU {
		return nil
	}
	return t.mmu
}

func (t *fakeTarget) SMMU() *smmu.SMMU { return t.smmu }

func newFakeTarget() *fakeTarget {
	return &fakeTarget{mmu: mmu.New(noopWalker{}, mmu.DefaultConfig())}
}

func runScript(t *testing.T, target *fakeTarget, script string) string {
	t.Helper()
	var out bytes.Buffer
	m := New(target, strings.NewReader(script), &out)
	for m.RunOnce() {
	}
	return out.String()
}

func TestStepReportsStoppedPC(t *testing.T) {
	out := runScript(t, newFakeTarget(), "step\n")
	if !strings.Contains(out, "vcpu 0 stopped at 0x4") {
		t.Fatalf("got output %q", out)
	}
}

func TestStepReportsBreakpointHit(t *testing.T) {
	target := newFakeTarget()
	out := runScript(t, target, "break 0x4\nstep\n")
	if !strings.Contains(out, "breakpoint set at 0x4") {
		t.Fatalf("got output %q, want breakpoint set confirmation", out)
	}
	if !strings.Contains(out, "breakpoint hit at 0x4") {
		t.Fatalf("got output %q, want the breakpoint to be reported hit", out)
	}
}

func TestRegsPrintsSixteenRegisters(t *testing.T) {
	target := newFakeTarget()
	target.regs.Set(3, 0x2a)
	out := runScript(t, target, "regs\n")
	lines := strings.Count(out, "r")
	if lines < 16 {
		t.Fatalf("got %d register lines, want at least 16", lines)
	}
	if !strings.Contains(out, "0x000000000000002a") {
		t.Fatalf("got output %q, want r3's value printed", out)
	}
}

func TestRegsReportsMissingVCPU(t *testing.T) {
	target := newFakeTarget()
	target.noVCPU = true
	out := runScript(t, target, "regs\n")
	if !strings.Contains(out, "no such vcpu 0") {
		t.Fatalf("got output %q", out)
	}
}

func TestTLBFlushInvokesInvalidateAll(t *testing.T) {
	out := runScript(t, newFakeTarget(), "tlb flush\n")
	if !strings.Contains(out, "vcpu 0 tlb flushed") {
		t.Fatalf("got output %q", out)
	}
}

func TestSMMUStatsReportsAdvisoryCounters(t *testing.T) {
	target := newFakeTarget()
	target.smmu = smmu.New(nil, nil)
	out := runScript(t, target, "smmu stats\n")
	if !strings.Contains(out, "translations=0 tlb_hits=0 faults=0") {
		t.Fatalf("got output %q", out)
	}
}

func TestSMMUStatsReportsWhenNoneAttached(t *testing.T) {
	out := runScript(t, newFakeTarget(), "smmu stats\n")
	if !strings.Contains(out, "no smmu attached") {
		t.Fatalf("got output %q", out)
	}
}

func TestUnknownCommandIsReported(t *testing.T) {
	out := runScript(t, newFakeTarget(), "frobnicate\n")
	if !strings.Contains(out, `unknown command "frobnicate"`) {
		t.Fatalf("got output %q", out)
	}
}
