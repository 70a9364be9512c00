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

package workflow

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/ttbt-io/masterprobe/engine"
)

// ErrAborted matches every *AbortError.
var ErrAborted = errors.New("workflow aborted")

// AbortError is the terminal reason of an aborted workflow.
type AbortError struct {
	Workflow string
	Step     string
	Kind     engine.Kind
	Err      error
}

func (e *AbortError) Error() string {
	return fmt.Sprintf("workflow %q aborted at step %q (%s): %v", e.Workflow, e.Step, e.Kind, e.Err)
}

func (e *AbortError) Unwrap() error { return e.Err }

func (e *AbortError) Is(target error) bool { return target == ErrAborted }

// StepRecord is one entry of a Trace.
type StepRecord struct {
	Name     string
	Soft     bool
	Recovery bool
	Result   engine.Result
	Start    time.Time
	End      time.Time
}

// Trace is the ordered record of one workflow invocation.
type Trace []StepRecord

// Names lists the step names in execution order.
func (t Trace) Names() []string {
	out := make([]string, len(t))
	for i, r := range t {
		out[i] = r.Name
	}
	return out
}

// SoftFailures counts soft steps that failed.
func (t Trace) SoftFailures() int {
	n := 0
	for _, r := range t {
		if r.Soft && !r.Result.Succeeded {
			n++
		}
	}
	return n
}

// Outcome is what Run returns.
type Outcome struct {
	Workflow string
	State    State
	Trace    Trace
	// Reason is an *AbortError when State is Aborted, nil otherwise.
	Reason error
	Start  time.Time
	End    time.Time
}

func (o Outcome) Succeeded() bool { return o.State == Completed }

// Kind is the error kind of the failing step, KindNone on completion.
func (o Outcome) Kind() engine.Kind {
	var ae *AbortError
	if errors.As(o.Reason, &ae) {
		return ae.Kind
	}
	return engine.KindNone
}

// Summary is a one-line human readable account of the run. For aborted runs
// it names the target, candidates, attempts and whether fallback was tried.
func (o Outcome) Summary() string {
	var b strings.Builder
	fmt.Fprintf(&b, "%s: %s after %d step(s) in %s", o.Workflow, o.State, len(o.Trace), o.End.Sub(o.Start).Round(time.Millisecond))
	if n := o.Trace.SoftFailures(); n > 0 {
		fmt.Fprintf(&b, ", %d soft failure(s)", n)
	}
	var ae *AbortError
	if errors.As(o.Reason, &ae) {
		fmt.Fprintf(&b, "; step %q failed", ae.Step)
		var se *engine.StepError
		if errors.As(ae.Err, &se) {
			fmt.Fprintf(&b, ": %s on %q, %s after %d attempt(s) over %d candidate(s)",
				se.Intent, se.Target, se.Kind, se.Attempts, se.Candidates)
			if se.FallbackTried {
				b.WriteString(", script fallback tried")
			}
		} else if ae.Err != nil {
			fmt.Fprintf(&b, ": %s: %v", ae.Kind, ae.Err)
		}
	}
	return b.String()
}

// Event converts o to the observer representation.
func (o Outcome) Event() engine.WorkflowEvent {
	e := engine.WorkflowEvent{
		Workflow:  o.Workflow,
		State:     o.State.String(),
		Succeeded: o.Succeeded(),
		ErrorKind: o.Kind(),
		Duration:  o.End.Sub(o.Start),
	}
	for _, r := range o.Trace {
		se := r.Result.Event(o.Workflow)
		se.Step = r.Name
		e.Steps = append(e.Steps, se)
	}
	var ae *AbortError
	if errors.As(o.Reason, &ae) {
		e.FailedStep = ae.Step
		e.ErrorDetail = ae.Error()
	}
	return e
}
