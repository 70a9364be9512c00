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

package report

import (
	"context"
	"fmt"
	"path/filepath"
	"regexp"
	"strings"
	"sync/atomic"
	"time"

	"github.com/charmbracelet/log"

	"github.com/ttbt-io/masterprobe/engine"
)

// Capturer saves a screenshot of the current page.
type Capturer interface {
	CaptureScreenshot(ctx context.Context, filename string) error
}

// ScreenshotSink captures a screenshot when a step fails and attaches it to
// the collector. Cancelled steps are skipped since the browser is usually
// going away.
type ScreenshotSink struct {
	Capturer  Capturer
	Dir       string
	Collector *Collector
	Logger    *log.Logger
	// Timeout bounds one capture. Defaults to 10s.
	Timeout time.Duration

	seq atomic.Int64
}

var _ engine.Observer = (*ScreenshotSink)(nil)

var unsafeChars = regexp.MustCompile(`[^A-Za-z0-9._-]+`)

func fileSafe(s string) string {
	s = strings.Trim(unsafeChars.ReplaceAllString(s, "_"), "_")
	if s == "" {
		return "step"
	}
	return s
}

func (s *ScreenshotSink) StepFinished(e engine.StepEvent) {
	if e.Succeeded || e.ErrorKind == engine.KindCancelled {
		return
	}
	timeout := s.Timeout
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()

	name := fmt.Sprintf("%03d-%s.png", s.seq.Add(1), fileSafe(e.Step))
	file := filepath.Join(s.Dir, name)
	if err := s.Capturer.CaptureScreenshot(ctx, file); err != nil {
		if s.Logger != nil {
			s.Logger.Warn("screenshot failed", "step", e.Step, "err", err)
		}
		return
	}
	if s.Collector != nil {
		s.Collector.Attach(e.Seq, file)
	}
}

func (s *ScreenshotSink) WorkflowFinished(engine.WorkflowEvent) {}
