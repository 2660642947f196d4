/*
 * vcore - Configuration file parser
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

package configparser

import (
	"os"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeTempConfig(t *testing.T, contents string) string {
	t.Helper()
	f, err := os.CreateTemp(t.TempDir(), "vcore-*.conf")
	require.NoError(t, err)
	_, err = f.WriteString(contents)
	require.NoError(t, err)
	require.NoError(t, f.Close())
	return f.Name()
}

func TestLoadFileSwitch(t *testing.T) {
	var fired bool
	RegisterSwitch("TESTSWITCH", func(string, []Option) error {
		fired = true
		return nil
	})

	name := writeTempConfig(t, "# comment\nTESTSWITCH\n")
	require.NoError(t, LoadFile(name))
	assert.True(t, fired)
}

func TestLoadFileOption(t *testing.T) {
	var got string
	RegisterOption("TESTOPTION", func(target string, _ []Option) error {
		got = target
		return nil
	})

	name := writeTempConfig(t, "TESTOPTION x86_64\n")
	require.NoError(t, LoadFile(name))
	assert.Equal(t, "x86_64", got)
}

func TestLoadFileOptions(t *testing.T) {
	var target string
	var opts []Option
	RegisterOptions("TESTOPTIONS", func(tgt string, options []Option) error {
		target = tgt
		opts = options
		return nil
	})

	name := writeTempConfig(t, `TESTOPTIONS scheduler workers=4 policy="work-stealing" tags=a,b,c`+"\n")
	require.NoError(t, LoadFile(name))
	require.Equal(t, "scheduler", target)
	require.Len(t, opts, 3)
	assert.Equal(t, "workers", opts[0].Name)
	assert.Equal(t, "4", opts[0].EqualOpt)
	assert.Equal(t, "policy", opts[1].Name)
	assert.Equal(t, "work-stealing", opts[1].EqualOpt)
	assert.Equal(t, "tags", opts[2].Name)
	assert.Equal(t, "a", opts[2].EqualOpt)
	require.Len(t, opts[2].Value, 2)
	assert.Equal(t, "b", *opts[2].Value[0])
	assert.Equal(t, "c", *opts[2].Value[1])
}

func TestLoadFileUnknownDirective(t *testing.T) {
	name := writeTempConfig(t, "NOSUCHDIRECTIVE foo\n")
	err := LoadFile(name)
	require.Error(t, err)
}

func TestLoadFileMissingFile(t *testing.T) {
	err := LoadFile("/does/not/exist.conf")
	require.Error(t, err)
}
