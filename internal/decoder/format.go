/*
 * vcore - IR block printer, used by the debug console and optimizer tests.
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

package decoder

import (
	"fmt"
	"strings"

	"github.com/rcornwell/vcore/internal/ir"
	"github.com/rcornwell/vcore/util/hex"
)

// Format renders a decoded block as one disassembly line per op, in the
// style of the teacher's IBM-370 disassembler: address, raw bytes,
// mnemonic.
func Format(b *ir.Block) string {
	var sb strings.Builder
	hex.FormatAddr64(&sb, uint64(b.EntryPC))
	sb.WriteString("  ")
	hex.FormatBytes(&sb, true, b.SourceBytes)
	sb.WriteString("\n")
	for i, op := range b.Ops {
		fmt.Fprintf(&sb, "  [%02d] %s\n", i, formatOp(op))
	}
	sb.WriteString("  term: " + formatTerm(b.Term) + "\n")
	return sb.String()
}

func formatOp(op ir.Op) string {
	switch op.Kind {
	case ir.OpMovImm:
		return fmt.Sprintf("movimm r%d, #%d", op.Dst, op.Imm)
	case ir.OpBinaryOp:
		return fmt.Sprintf("%s r%d, %s, %s", op.BinOp, op.Dst, formatOperand(op.Src1), formatOperand(op.Src2))
	case ir.OpLoadExt:
		return fmt.Sprintf("load.%d r%d, [%s]", op.Size, op.Dst, formatOperand(op.Addr))
	case ir.OpStoreExt:
		return fmt.Sprintf("store.%d [%s], %s", op.Size, formatOperand(op.Addr), formatOperand(op.Value))
	case ir.OpBranch:
		return fmt.Sprintf("branch%s %s", linkSuffix(op.Link), formatOperand(op.Target))
	case ir.OpCondBranch:
		return fmt.Sprintf("cbranch%s %s, %s", linkSuffix(op.Link), formatOperand(op.Cond), formatOperand(op.Target))
	default:
		return "?"
	}
}

func linkSuffix(link bool) string {
	if link {
		return ".link"
	}
	return ""
}

func formatOperand(o ir.Operand) string {
	switch o.Kind {
	case ir.KindReg:
		return fmt.Sprintf("r%d", o.Reg)
	case ir.KindImm64:
		return fmt.Sprintf("#%d", o.Imm)
	case ir.KindBinary:
		return fmt.Sprintf("(%s %s %s)", formatOperand(*o.Left), o.Op, formatOperand(*o.Right))
	default:
		return "?"
	}
}

func formatTerm(t ir.Terminator) string {
	switch t.Kind {
	case ir.TermRet:
		return "ret"
	case ir.TermJump:
		return fmt.Sprintf("jump 0x%x", uint64(t.Target))
	case ir.TermCondJump:
		return fmt.Sprintf("cjump %s, 0x%x, 0x%x", formatOperand(t.Cond), uint64(t.TargetTrue), uint64(t.TargetFalse))
	case ir.TermTrap:
		return fmt.Sprintf("trap(%d)", t.Trap)
	default:
		return "?"
	}
}
