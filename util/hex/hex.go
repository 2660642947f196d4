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

// Package hex renders raw guest bytes and words for the decoder's block
// printer and the debug console, without pulling in fmt's formatting cost
// on the hot disassembly path.
package hex

import "strings"

var hexMap = "0123456789abcdef"

// FormatAddr64 writes a 64-bit guest address as 16 hex digits.
func FormatAddr64(str *strings.Builder, addr uint64) {
	shift := 60
	for range 16 {
		str.WriteByte(hexMap[(addr>>shift)&0xf])
		shift -= 4
	}
}

// FormatWord32 writes a 32-bit value as 8 hex digits.
func FormatWord32(str *strings.Builder, word uint32) {
	shift := 28
	for range 8 {
		str.WriteByte(hexMap[(word>>shift)&0xf])
		shift -= 4
	}
}

// FormatBytes writes each byte as two hex digits, optionally space separated.
func FormatBytes(str *strings.Builder, space bool, data []byte) {
	for _, by := range data {
		str.WriteByte(hexMap[(by>>4)&0xf])
		str.WriteByte(hexMap[by&0xf])
		if space {
			str.WriteByte(' ')
		}
	}
}

// FormatByte writes a single byte as two hex digits.
func FormatByte(str *strings.Builder, data byte) {
	str.WriteByte(hexMap[(data>>4)&0xf])
	str.WriteByte(hexMap[data&0xf])
}
