package arm64

import (
	"testing"

	"github.com/rcornwell/vcore/internal/ir"
)

func le32(insn uint32) []byte {
	return []byte{byte(insn), byte(insn >> 8), byte(insn >> 16), byte(insn >> 24)}
}

func TestDecodeBlockMovzThenRet(t *testing.T) {
	// MOVZ W1, #0x2a ; RET
	code := append(le32(0x52800541), le32(opRet)...)
	b, err := Decoder{}.DecodeBlock(code, 0x1000, len(code))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(b.Ops) != 1 || b.Ops[0].Kind != ir.OpMovImm || b.Ops[0].Imm != 0x2a || b.Ops[0].Dst != 1 {
		t.Fatalf("got ops %+v", b.Ops)
	}
	if b.Term.Kind != ir.TermRet {
		t.Fatalf("got terminator %+v, want ret", b.Term)
	}
	if b.ByteLength != len(code) {
		t.Fatalf("got byte length %d, want %d", b.ByteLength, len(code))
	}
}

func TestDecodeBlockAddShiftedRegister(t *testing.T) {
	// ADD W3, W1, W2 ; RET
	code := append(le32(0x0B020023), le32(opRet)...)
	b, err := Decoder{}.DecodeBlock(code, 0, len(code))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(b.Ops) != 1 {
		t.Fatalf("got %d ops, want 1", len(b.Ops))
	}
	op := b.Ops[0]
	if op.Kind != ir.OpBinaryOp || op.BinOp != ir.Add || op.Dst != 3 {
		t.Fatalf("got op %+v", op)
	}
}

func TestDecodeBlockBUnconditional(t *testing.T) {
	// B with a word-offset of 4 (byte offset 16)
	code := le32(0x14000004)
	b, err := Decoder{}.DecodeBlock(code, 0x2000, len(code))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if b.Term.Kind != ir.TermJump {
		t.Fatalf("got terminator %+v, want jump", b.Term)
	}
	if want := ir.GuestAddr(0x2000 + 16); b.Term.Target != want {
		t.Fatalf("got target 0x%x, want 0x%x", b.Term.Target, want)
	}
}

func TestDecodeBlockBCond(t *testing.T) {
	// B.cond with a word-offset of 2 (byte offset 8) taken on the true edge
	code := le32(0x54000040)
	b, err := Decoder{}.DecodeBlock(code, 0x3000, len(code))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if b.Term.Kind != ir.TermCondJump {
		t.Fatalf("got terminator %+v, want cond jump", b.Term)
	}
	if want := ir.GuestAddr(0x3000 + 8); b.Term.TargetTrue != want {
		t.Fatalf("got true target 0x%x, want 0x%x", b.Term.TargetTrue, want)
	}
	if want := ir.GuestAddr(0x3000 + 4); b.Term.TargetFalse != want {
		t.Fatalf("got false target 0x%x, want fallthrough 0x%x", b.Term.TargetFalse, want)
	}
}

func TestDecodeBlockLdrStrImm(t *testing.T) {
	// STR W2, [X1, #4] ; LDR W3, [X1, #8] ; RET
	code := le32(0xB9000422)
	code = append(code, le32(0xB9400823)...)
	code = append(code, le32(opRet)...)
	b, err := Decoder{}.DecodeBlock(code, 0, len(code))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(b.Ops) != 2 || b.Ops[0].Kind != ir.OpStoreExt || b.Ops[1].Kind != ir.OpLoadExt {
		t.Fatalf("got ops %+v", b.Ops)
	}
	if b.Ops[1].Dst != 3 {
		t.Fatalf("got load dst %d, want 3", b.Ops[1].Dst)
	}
}

func TestDecodeBlockUnknownEncodingTrapsRatherThanPanics(t *testing.T) {
	defer func() {
		if r := recover(); r != nil {
			t.Fatalf("decoder panicked on unsupported encoding: %v", r)
		}
	}()
	code := le32(0xFFFFFFFF)
	b, err := Decoder{}.DecodeBlock(code, 0, len(code))
	if err != nil {
		t.Fatalf("DecodeBlock itself must never return an error for malformed bytes: %v", err)
	}
	if b.Term.Kind != ir.TermTrap || b.Term.Trap != ir.TrapInvalidInstruction {
		t.Fatalf("got terminator %+v, want TrapInvalidInstruction", b.Term)
	}
}

func TestDecodeBlockTruncatedStreamTraps(t *testing.T) {
	code := []byte{0x00, 0x00, 0x80} // fewer than 4 bytes, no full instruction available
	b, err := Decoder{}.DecodeBlock(code, 0, len(code))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if b.Term.Kind != ir.TermTrap || b.Term.Trap != ir.TrapUnsupportedOp {
		t.Fatalf("got terminator %+v, want TrapUnsupportedOp", b.Term)
	}
}
