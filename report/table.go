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
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/jedib0t/go-pretty/v6/text"
)

func newTable(w io.Writer) table.Writer {
	t := table.NewWriter()
	t.SetOutputMirror(w)
	t.SetStyle(table.StyleRounded)
	return t
}

func status(ok bool) string {
	if ok {
		return text.FgGreen.Sprint("PASS")
	}
	return text.FgRed.Sprint("FAIL")
}

func ms(n int64) string {
	return (time.Duration(n) * time.Millisecond).String()
}

// RenderRun prints one row per workflow and per failed or escalated step.
func RenderRun(w io.Writer, r RunReport) {
	t := newTable(w)
	t.SetTitle(fmt.Sprintf("%s (%s)", r.Name, r.ID))
	t.AppendHeader(table.Row{"Workflow", "Step", "Status", "Target", "Tier", "Attempts", "Duration", "Error"})
	for _, wf := range r.Workflows {
		t.AppendRow(table.Row{wf.Name, "", status(wf.Succeeded), "", "", "", ms(wf.DurationMS), wf.ErrorKind})
		for _, s := range wf.Steps {
			if s.Succeeded && !s.UsedFallback {
				continue
			}
			t.AppendRow(table.Row{"", s.Name, status(s.Succeeded), s.Target, s.Tier, s.Attempts, ms(s.DurationMS), truncate(s.Error, 80)})
		}
	}
	for _, s := range r.Steps {
		t.AppendRow(table.Row{"-", s.Name, status(s.Succeeded), s.Target, s.Tier, s.Attempts, ms(s.DurationMS), truncate(s.Error, 80)})
	}
	t.AppendFooter(table.Row{"", "", fmt.Sprintf("%d passed", r.Passed), fmt.Sprintf("%d failed", r.Failed), "", "", r.Finished.Sub(r.Started).Round(time.Millisecond).String(), ""})
	t.Render()
}

// RenderRuns prints the index of stored runs.
func RenderRuns(w io.Writer, runs []RunSummary) {
	t := newTable(w)
	t.AppendHeader(table.Row{"ID", "Name", "Started", "Passed", "Failed", "Duration"})
	for _, r := range runs {
		t.AppendRow(table.Row{r.ID, r.Name, r.Started.Format(time.RFC3339), r.Passed, r.Failed, r.Finished.Sub(r.Started).Round(time.Millisecond).String()})
	}
	t.Render()
}

func truncate(s string, n int) string {
	s = strings.ReplaceAll(s, "\n", " ")
	if len(s) <= n {
		return s
	}
	return s[:n-3] + "..."
}
