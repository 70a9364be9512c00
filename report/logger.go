// Copyright (c) 2026 TTBT Enterprises LLC
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//      http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

// Package report turns step and workflow events into logs, persisted run
// reports and console summaries.
package report

import (
	"io"
	"os"
	"time"

	"github.com/charmbracelet/log"
)

// LoggerOptions configures the logger.
type LoggerOptions struct {
	// Level is the minimum level: debug, info, warn or error.
	Level string
	// Output defaults to os.Stderr.
	Output io.Writer
	Prefix string
	// JSON switches to one JSON object per line.
	JSON bool
}

// NewLogger returns a charm logger. Unknown levels fall back to info.
func NewLogger(opts LoggerOptions) *log.Logger {
	out := opts.Output
	if out == nil {
		out = os.Stderr
	}
	level, err := log.ParseLevel(opts.Level)
	if err != nil {
		level = log.InfoLevel
	}
	l := log.NewWithOptions(out, log.Options{
		Level:           level,
		Prefix:          opts.Prefix,
		TimeFormat:      time.RFC3339,
		ReportTimestamp: true,
	})
	if opts.JSON {
		l.SetFormatter(log.JSONFormatter)
	}
	return l
}
