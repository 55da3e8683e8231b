// Copyright 2026 The nitfmeta Authors
// SPDX-License-Identifier: MIT

// Package logging provides a human-readable logr sink for the command line.
package logging

import (
	"fmt"
	"io"
	"os"
	"strings"
	"sync"

	"github.com/fatih/color"
	"github.com/go-logr/logr"
)

var labels = []struct {
	text string
	attr color.Attribute
}{
	{"[INFO]", color.FgGreen},
	{"[DEBUG]", color.FgCyan},
	{"[TRACE]", color.FgMagenta},
}

type output struct {
	mu       sync.Mutex
	w        io.Writer
	useColor bool
}

// Sink implements logr.LogSink with one line per entry:
//
//	[DEBUG] decoded file header fields=42 offset=388
type Sink struct {
	out          *output
	minVerbosity int
	name         string
	keyValues    []any
}

// NewSink creates a new Sink writing to w.
// If w is nil, it defaults to os.Stderr.
// Entries with a level above minVerbosity are dropped.
func NewSink(w io.Writer, minVerbosity int, useColor bool) *Sink {
	if w == nil {
		w = os.Stderr
	}
	return &Sink{
		out:          &output{w: w, useColor: useColor},
		minVerbosity: minVerbosity,
	}
}

// New creates a logr.Logger backed by a Sink.
func New(w io.Writer, minVerbosity int, useColor bool) logr.Logger {
	return logr.New(NewSink(w, minVerbosity, useColor))
}

func (s *Sink) Init(logr.RuntimeInfo) {}

func (s *Sink) Enabled(level int) bool {
	return level <= s.minVerbosity
}

func (s *Sink) Info(level int, msg string, keysAndValues ...any) {
	if !s.Enabled(level) {
		return
	}
	label := fmt.Sprintf("[LEVEL %d]", level)
	if level < len(labels) {
		label = s.colorize(labels[level].text, labels[level].attr)
	}
	s.log(label, msg, keysAndValues)
}

func (s *Sink) Error(err error, msg string, keysAndValues ...any) {
	s.log(s.colorize("[ERROR]", color.FgRed), msg, append(keysAndValues, "error", err))
}

func (s *Sink) WithValues(keysAndValues ...any) logr.LogSink {
	clone := *s
	clone.keyValues = append(append([]any{}, s.keyValues...), keysAndValues...)
	return &clone
}

func (s *Sink) WithName(name string) logr.LogSink {
	clone := *s
	if s.name != "" {
		name = s.name + "." + name
	}
	clone.name = name
	return &clone
}

func (s *Sink) colorize(text string, attr color.Attribute) string {
	if !s.out.useColor {
		return text
	}
	c := color.New(attr)
	c.EnableColor()
	return c.Sprint(text)
}

func (s *Sink) log(label, msg string, keysAndValues []any) {
	var sb strings.Builder
	sb.WriteString(label)
	sb.WriteByte(' ')
	if s.name != "" {
		fmt.Fprintf(&sb, "[%s] ", s.name)
	}
	sb.WriteString(msg)

	kvs := append(append([]any{}, s.keyValues...), keysAndValues...)
	for i := 0; i < len(kvs); i += 2 {
		key, ok := kvs[i].(string)
		if !ok {
			key = fmt.Sprintf("key%d", i/2)
		}
		var value any = "(MISSING)"
		if i+1 < len(kvs) {
			value = kvs[i+1]
		}
		fmt.Fprintf(&sb, " %s=%v", key, value)
	}
	sb.WriteByte('\n')

	s.out.mu.Lock()
	defer s.out.mu.Unlock()
	io.WriteString(s.out.w, sb.String())
}
