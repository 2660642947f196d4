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

package debugconfig

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	config "github.com/rcornwell/vcore/config/configparser"
	"github.com/rcornwell/vcore/util/debug"
)

func TestSetDebugEnablesTracingForKnownModule(t *testing.T) {
	var buf bytes.Buffer
	debug.SetOutput(&buf)
	defer debug.SetOutput(nil)

	err := setDebug("jit", []config.Option{
		{Name: "mask", EqualOpt: "1"},
		{Name: "level", EqualOpt: "1"},
	})
	require.NoError(t, err)

	debug.Tracef("JIT", 1, 1, "hello")
	assert.Contains(t, buf.String(), "JIT: hello")
}

func TestSetDebugIsCaseInsensitiveForModuleAndOptionNames(t *testing.T) {
	err := setDebug("mmu", []config.Option{
		{Name: "MASK", EqualOpt: "0x3"},
		{Name: "Level", EqualOpt: "2"},
	})
	assert.NoError(t, err)
}

func TestSetDebugRejectsUnknownModule(t *testing.T) {
	err := setDebug("gpu", nil)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unknown module")
}

func TestSetDebugRejectsNonNumericMask(t *testing.T) {
	err := setDebug("decoder", []config.Option{{Name: "mask", EqualOpt: "oops"}})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "mask must be a number")
}

func TestSetDebugRejectsNonNumericLevel(t *testing.T) {
	err := setDebug("decoder", []config.Option{{Name: "level", EqualOpt: "oops"}})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "level must be a number")
}

func TestSetDebugRejectsUnknownOption(t *testing.T) {
	err := setDebug("scheduler", []config.Option{{Name: "verbose", EqualOpt: "1"}})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unknown debug option")
}

func TestSetDebugDefaultsMaskAndLevelToZero(t *testing.T) {
	var buf bytes.Buffer
	debug.SetOutput(&buf)
	defer debug.SetOutput(nil)

	require.NoError(t, setDebug("interp", nil))

	debug.Tracef("INTERP", 0, 0, "should not print")
	assert.Empty(t, buf.String())
}
