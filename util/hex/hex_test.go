/*
 * vcore - Convert binary values to hex strings.
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

package hex

import (
	"strings"
	"testing"
)

func TestFormatAddr64(t *testing.T) {
	var sb strings.Builder
	FormatAddr64(&sb, 0x1000)
	if got, want := sb.String(), "0000000000001000"; got != want {
		t.Fatalf("got %q, want %q", got, want)
	}
}

func TestFormatWord32(t *testing.T) {
	var sb strings.Builder
	FormatWord32(&sb, 0xdeadbeef)
	if got, want := sb.String(), "deadbeef"; got != want {
		t.Fatalf("got %q, want %q", got, want)
	}
}

func TestFormatBytesWithAndWithoutSpaces(t *testing.T) {
	var spaced, packed strings.Builder
	data := []byte{0xde, 0xad, 0x01}

	FormatBytes(&spaced, true, data)
	if got, want := spaced.String(), "de ad 01 "; got != want {
		t.Fatalf("got %q, want %q", got, want)
	}

	FormatBytes(&packed, false, data)
	if got, want := packed.String(), "dead01"; got != want {
		t.Fatalf("got %q, want %q", got, want)
	}
}

func TestFormatByte(t *testing.T) {
	var sb strings.Builder
	FormatByte(&sb, 0x0a)
	if got, want := sb.String(), "0a"; got != want {
		t.Fatalf("got %q, want %q", got, want)
	}
}
