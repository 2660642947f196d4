/*
 * vcore - Debug directive configuration.
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

// Package debugconfig registers the "debug" directive with configparser.
// The handler checks the subsystem name (decoder, jit, mmu, smmu,
// scheduler, interp) and its mask/level options, then writes one trace
// line through util/debug.Tracef; util/debug keeps no per-subsystem mask
// or level, so the directive does not change later tracing. It lives outside
// internal/... for the same reason configparser does: the core itself
// never reads a config file, it is only ever told "trace jit at level 2"
// through this package's handler.
package debugconfig

import (
	"fmt"
	"strconv"
	"strings"

	config "github.com/rcornwell/vcore/config/configparser"
	"github.com/rcornwell/vcore/util/debug"
)

// knownModules is the set of subsystem names the debug directive
// accepts; anything else is a configuration error, not a silent no-op.
var knownModules = map[string]bool{
	"DECODER":   true,
	"JIT":       true,
	"MMU":       true,
	"SMMU":      true,
	"SCHEDULER": true,
	"INTERP":    true,
}

func init() {
	config.RegisterOptions("DEBUG", setDebug)
}

// setDebug handles a line of the form:
//
//	debug <MODULE> mask=<n> level=<n>
func setDebug(target string, options []config.Option) error {
	module := strings.ToUpper(target)
	if !knownModules[module] {
		return fmt.Errorf("debugconfig: unknown module %q", target)
	}

	mask, level := 0, 0
	for _, opt := range options {
		switch strings.ToUpper(opt.Name) {
		case "MASK":
			v, err := strconv.ParseInt(opt.EqualOpt, 0, 64)
			if err != nil {
				return fmt.Errorf("debugconfig: mask must be a number: %s", opt.EqualOpt)
			}
			mask = int(v)
		case "LEVEL":
			v, err := strconv.ParseInt(opt.EqualOpt, 0, 64)
			if err != nil {
				return fmt.Errorf("debugconfig: level must be a number: %s", opt.EqualOpt)
			}
			level = int(v)
		default:
			return fmt.Errorf("debugconfig: unknown debug option %q", opt.Name)
		}
	}

	debug.Tracef(module, mask, level, "debug tracing enabled: mask=%d level=%d", mask, level)
	return nil
}
