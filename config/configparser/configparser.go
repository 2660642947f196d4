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

// Package configparser loads the outer vcore.toml-flavored directive file
// into registered subsystem handlers. It is deliberately outside
// internal/... : per the core's scope, configuration loading is an outer
// collaborator that hands the core a plain Go struct, never a file format.
package configparser

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
	"unicode"
)

// Option is one `name[=value][,value...]` token following a directive.
type Option struct {
	Name     string    // Name of option.
	EqualOpt string    // Value of string after =.
	Value    []*string // Comma-separated extra values.
}

// Directive types a registered handler accepts.
const (
	TypeOption  = 1 + iota // directive takes exactly one bare value
	TypeOptions            // directive takes a list of options
	TypeSwitch             // directive takes no value, just enables a flag
)

type directiveDef struct {
	create func(target string, options []Option) error
	ty     int
}

var directives = map[string]directiveDef{}

var lineNumber int

// RegisterOptions should be called from a package init() to claim a
// directive name that takes "<directive> <target> <options...>".
func RegisterOptions(name string, fn func(target string, options []Option) error) {
	directives[strings.ToUpper(name)] = directiveDef{create: fn, ty: TypeOptions}
}

// RegisterOption claims a directive taking a single bare value.
func RegisterOption(name string, fn func(target string, options []Option) error) {
	directives[strings.ToUpper(name)] = directiveDef{create: fn, ty: TypeOption}
}

// RegisterSwitch claims a directive with no value.
func RegisterSwitch(name string, fn func(target string, options []Option) error) {
	directives[strings.ToUpper(name)] = directiveDef{create: fn, ty: TypeSwitch}
}

// LoadFile reads and applies a configuration file line by line.
func LoadFile(name string) error {
	file, err := os.Open(name)
	if err != nil {
		return err
	}
	defer file.Close()

	lineNumber = 0
	reader := bufio.NewReader(file)
	for {
		ol := optionLine{}
		var err error
		ol.line, err = reader.ReadString('\n')
		lineNumber++
		if len(ol.line) == 0 && err != nil {
			if errors.Is(err, io.EOF) {
				return nil
			}
			return err
		}
		if perr := ol.parseLine(); perr != nil {
			return perr
		}
	}
}

type optionLine struct {
	line string
	pos  int
}

func (line *optionLine) parseLine() error {
	name := line.parseName()
	if name == "" {
		return nil
	}
	def, ok := directives[strings.ToUpper(name)]
	if !ok {
		return fmt.Errorf("no directive %q registered, line %d", name, lineNumber)
	}

	switch def.ty {
	case TypeSwitch:
		line.skipSpace()
		if !line.isEOL() {
			return fmt.Errorf("switch directive %q takes no value, line %d", name, lineNumber)
		}
		return def.create("", nil)

	case TypeOption:
		target := line.parseWord()
		line.skipSpace()
		if target == "" || !line.isEOL() {
			return fmt.Errorf("directive %q expects exactly one value, line %d", name, lineNumber)
		}
		return def.create(target, nil)

	case TypeOptions:
		target := line.parseWord()
		options, err := line.parseOptions()
		if err != nil {
			return err
		}
		return def.create(target, options)
	}
	return nil
}

func (line *optionLine) skipSpace() {
	for line.pos < len(line.line) && unicode.IsSpace(rune(line.line[line.pos])) {
		line.pos++
	}
}

func (line *optionLine) isEOL() bool {
	return line.pos >= len(line.line) || line.line[line.pos] == '#'
}

func (line *optionLine) parseName() string {
	line.skipSpace()
	if line.isEOL() {
		return ""
	}
	return line.parseWord()
}

func (line *optionLine) parseWord() string {
	line.skipSpace()
	start := line.pos
	for !line.isEOL() {
		by := line.line[line.pos]
		if unicode.IsLetter(rune(by)) || unicode.IsNumber(rune(by)) || by == '.' || by == '_' || by == '-' {
			line.pos++
			continue
		}
		break
	}
	return line.line[start:line.pos]
}

func (line *optionLine) parseOptions() ([]Option, error) {
	var options []Option
	for {
		line.skipSpace()
		if line.isEOL() {
			return options, nil
		}
		name := line.parseWord()
		if name == "" {
			return nil, fmt.Errorf("invalid option syntax, line %d", lineNumber)
		}
		opt := Option{Name: name}
		if !line.isEOL() && line.line[line.pos] == '=' {
			line.pos++
			v, err := line.parseValues(&opt)
			if err != nil {
				return nil, err
			}
			opt.EqualOpt = v
		}
		options = append(options, opt)
	}
}

// parseValues parses `value[,value...]` after an `=`, storing the first in
// the return and the rest in opt.Value.
func (line *optionLine) parseValues(opt *Option) (string, error) {
	first, err := line.parseOneValue()
	if err != nil {
		return "", err
	}
	for !line.isEOL() && line.line[line.pos] == ',' {
		line.pos++
		v, err := line.parseOneValue()
		if err != nil {
			return "", err
		}
		vv := v
		opt.Value = append(opt.Value, &vv)
	}
	return first, nil
}

func (line *optionLine) parseOneValue() (string, error) {
	if !line.isEOL() && line.line[line.pos] == '"' {
		line.pos++
		start := line.pos
		for !line.isEOL() && line.line[line.pos] != '"' {
			line.pos++
		}
		if line.isEOL() {
			return "", fmt.Errorf("unterminated quoted string, line %d", lineNumber)
		}
		v := line.line[start:line.pos]
		line.pos++ // closing quote
		return v, nil
	}
	start := line.pos
	for !line.isEOL() && line.line[line.pos] != ',' && !unicode.IsSpace(rune(line.line[line.pos])) {
		line.pos++
	}
	return line.line[start:line.pos], nil
}
