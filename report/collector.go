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
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/ttbt-io/masterprobe/engine"
)

// StepReport is the persisted form of a step event.
type StepReport struct {
	Name           string `json:"name"`
	Target         string `json:"target"`
	Succeeded      bool   `json:"succeeded"`
	UsedFallback   bool   `json:"usedFallback,omitempty"`
	Tier           string `json:"tier"`
	Attempts       int    `json:"attempts"`
	CandidateIndex int    `json:"candidateIndex"`
	ErrorKind      string `json:"errorKind,omitempty"`
	Error          string `json:"error,omitempty"`
	DurationMS     int64  `json:"durationMs"`
	Screenshot     string `json:"screenshot,omitempty"`
}

// WorkflowReport is the persisted form of a workflow event.
type WorkflowReport struct {
	Name       string       `json:"name"`
	State      string       `json:"state"`
	Succeeded  bool         `json:"succeeded"`
	FailedStep string       `json:"failedStep,omitempty"`
	ErrorKind  string       `json:"errorKind,omitempty"`
	Error      string       `json:"error,omitempty"`
	DurationMS int64        `json:"durationMs"`
	Steps      []StepReport `json:"steps"`
}

// RunReport covers one invocation of the harness.
type RunReport struct {
	ID        string           `json:"id"`
	Name      string           `json:"name"`
	Env       string           `json:"env,omitempty"`
	Started   time.Time        `json:"started"`
	Finished  time.Time        `json:"finished"`
	Passed    int              `json:"passed"`
	Failed    int              `json:"failed"`
	Workflows []WorkflowReport `json:"workflows"`
	// Steps holds steps run outside any workflow.
	Steps []StepReport `json:"steps,omitempty"`
}

func (r RunReport) Succeeded() bool { return r.Failed == 0 }

// Collector accumulates events into a RunReport. It is safe for concurrent
// use.
type Collector struct {
	mu          sync.Mutex
	now         func() time.Time
	run         RunReport
	screenshots map[uint64]string
}

var _ engine.Observer = (*Collector)(nil)

// NewCollector starts a run named name.
func NewCollector(name, env string) *Collector {
	return newCollector(name, env, time.Now)
}

func newCollector(name, env string, now func() time.Time) *Collector {
	return &Collector{
		now: now,
		run: RunReport{
			ID:      uuid.New().String(),
			Name:    name,
			Env:     env,
			Started: now(),
		},
		screenshots: make(map[uint64]string),
	}
}

// ID returns the run ID.
func (c *Collector) ID() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.run.ID
}

func stepReport(e engine.StepEvent) StepReport {
	r := StepReport{
		Name:           e.Step,
		Target:         e.Target,
		Succeeded:      e.Succeeded,
		UsedFallback:   e.UsedFallback,
		Tier:           e.Tier.String(),
		Attempts:       e.Attempt,
		CandidateIndex: e.CandidateIndex,
		Error:          e.ErrorDetail,
		DurationMS:     e.Duration.Milliseconds(),
	}
	if e.ErrorKind != engine.KindNone {
		r.ErrorKind = e.ErrorKind.String()
	}
	return r
}

func (c *Collector) StepFinished(e engine.StepEvent) {
	if e.Workflow != "" {
		return
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	r := stepReport(e)
	r.Screenshot = c.takeScreenshot(e.Seq)
	c.run.Steps = append(c.run.Steps, r)
}

func (c *Collector) WorkflowFinished(e engine.WorkflowEvent) {
	c.mu.Lock()
	defer c.mu.Unlock()
	w := WorkflowReport{
		Name:       e.Workflow,
		State:      e.State,
		Succeeded:  e.Succeeded,
		FailedStep: e.FailedStep,
		Error:      e.ErrorDetail,
		DurationMS: e.Duration.Milliseconds(),
	}
	if e.ErrorKind != engine.KindNone {
		w.ErrorKind = e.ErrorKind.String()
	}
	for _, se := range e.Steps {
		r := stepReport(se)
		r.Screenshot = c.takeScreenshot(se.Seq)
		w.Steps = append(w.Steps, r)
	}
	c.run.Workflows = append(c.run.Workflows, w)
	if e.Succeeded {
		c.run.Passed++
	} else {
		c.run.Failed++
	}
}

// takeScreenshot returns and forgets the screenshot attached to step run
// seq.
func (c *Collector) takeScreenshot(seq uint64) string {
	if seq == 0 {
		return ""
	}
	f := c.screenshots[seq]
	delete(c.screenshots, seq)
	return f
}

// Attach records a screenshot file for the step run seq (StepEvent.Seq)
// before it is reported.
func (c *Collector) Attach(seq uint64, file string) {
	if seq == 0 {
		return
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	c.screenshots[seq] = file
}

// Finish stamps the end time and returns a copy of the report.
func (c *Collector) Finish() RunReport {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.run.Finished = c.now()
	return c.snapshot()
}

// Report returns a copy of the report so far.
func (c *Collector) Report() RunReport {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.snapshot()
}

func (c *Collector) snapshot() RunReport {
	r := c.run
	r.Workflows = make([]WorkflowReport, len(c.run.Workflows))
	for i, w := range c.run.Workflows {
		w.Steps = append([]StepReport(nil), w.Steps...)
		r.Workflows[i] = w
	}
	r.Steps = append([]StepReport(nil), c.run.Steps...)
	return r
}
