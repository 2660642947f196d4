/*
 * vcore - Mask/level gated debug tracing, independent of the slog pipeline.
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

// Package debug provides cheap mask/level gated tracing for the hot
// decode/interpret/JIT paths, where paying slog's attribute-building cost
// on every call would be too expensive even when the trace is disabled.
package debug

import (
	"fmt"
	"io"
	"sync"
)

var (
	mu  sync.Mutex
	out io.Writer
)

// SetOutput directs trace output at w. A nil w disables tracing.
func SetOutput(w io.Writer) {
	mu.Lock()
	defer mu.Unlock()
	out = w
}

// Tracef writes a module-tagged trace line when mask&level is non-zero.
func Tracef(module string, mask, level int, format string, a ...interface{}) {
	if mask&level == 0 {
		return
	}
	mu.Lock()
	w := out
	mu.Unlock()
	if w == nil {
		return
	}
	fmt.Fprintf(w, module+": "+format+"\n", a...)
}
