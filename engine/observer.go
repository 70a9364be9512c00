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

package engine

import (
	"context"
	"time"
)

// StepEvent is emitted once per finished resilient step.
type StepEvent struct {
	// Seq identifies the step run within the process; 0 for steps not run
	// by a Stepper.
	Seq            uint64
	Workflow       string
	Step           string
	Target         string
	Succeeded      bool
	UsedFallback   bool
	Tier           Tier
	Attempt        int
	CandidateIndex int
	ErrorKind      Kind
	ErrorDetail    string
	Duration       time.Duration
}

// WorkflowEvent is emitted once per finished workflow run.
type WorkflowEvent struct {
	Workflow    string
	State       string
	Succeeded   bool
	Steps       []StepEvent
	FailedStep  string
	ErrorKind   Kind
	ErrorDetail string
	Duration    time.Duration
}

// Observer receives step and workflow outcomes. Implementations must be safe
// for concurrent use when shared between sessions.
type Observer interface {
	StepFinished(StepEvent)
	WorkflowFinished(WorkflowEvent)
}

// Observers fans events out to every member in order.
type Observers []Observer

func (o Observers) StepFinished(e StepEvent) {
	for _, ob := range o {
		ob.StepFinished(e)
	}
}

func (o Observers) WorkflowFinished(e WorkflowEvent) {
	for _, ob := range o {
		ob.WorkflowFinished(e)
	}
}

// ObserverFuncs adapts plain functions to Observer. Nil fields are skipped.
type ObserverFuncs struct {
	OnStep     func(StepEvent)
	OnWorkflow func(WorkflowEvent)
}

func (f ObserverFuncs) StepFinished(e StepEvent) {
	if f.OnStep != nil {
		f.OnStep(e)
	}
}

func (f ObserverFuncs) WorkflowFinished(e WorkflowEvent) {
	if f.OnWorkflow != nil {
		f.OnWorkflow(e)
	}
}

type workflowKey struct{}

// WithWorkflow tags ctx with the name of the running workflow so step events
// can be attributed to it.
func WithWorkflow(ctx context.Context, name string) context.Context {
	return context.WithValue(ctx, workflowKey{}, name)
}

// WorkflowFrom returns the workflow name set by WithWorkflow.
func WorkflowFrom(ctx context.Context) string {
	s, _ := ctx.Value(workflowKey{}).(string)
	return s
}
