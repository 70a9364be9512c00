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

// Package workflow sequences resilient steps into business flows.
package workflow

import (
	"context"
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/charmbracelet/log"

	"github.com/ttbt-io/masterprobe/engine"
)

// State is the lifecycle state of one workflow run.
type State int

const (
	NotStarted State = iota
	Running
	Completed
	Aborted
)

func (s State) String() string {
	switch s {
	case NotStarted:
		return "NotStarted"
	case Running:
		return "Running"
	case Completed:
		return "Completed"
	case Aborted:
		return "Aborted"
	default:
		return "Unknown"
	}
}

// RunFunc executes one step. It is usually a closure over Stepper.Execute.
type RunFunc func(ctx context.Context) engine.Result

// Step is one named unit of a workflow.
type Step struct {
	Name string
	// Soft steps may fail without aborting the workflow.
	Soft bool
	Run  RunFunc
	// RecoverWith names an earlier trigger step. When this step fails, the
	// trigger is re-run once and this step is re-verified once.
	RecoverWith string
}

func Required(name string, run RunFunc) Step {
	return Step{Name: name, Run: run}
}

func Soft(name string, run RunFunc) Step {
	return Step{Name: name, Soft: true, Run: run}
}

// Recover returns a copy of s that recovers by re-running trigger.
func (s Step) Recover(trigger string) Step {
	s.RecoverWith = trigger
	return s
}

// Do adapts a plain function to a RunFunc. A nil error is success; any
// other error fails the step with the kind engine.KindOf reports.
func Do(name string, fn func(ctx context.Context) error) RunFunc {
	return func(ctx context.Context) engine.Result {
		r := engine.Result{Step: name, Target: name, CandidateIndex: -1, Start: time.Now()}
		err := fn(ctx)
		r.End = time.Now()
		r.Attempts = 1
		if err != nil {
			r.Err = err
			return r
		}
		r.Succeeded = true
		return r
	}
}

// Workflow is a named linear sequence of steps. It holds no state between
// runs and may be run many times.
type Workflow struct {
	Name  string
	Steps []Step
}

func New(name string, steps ...Step) *Workflow {
	return &Workflow{Name: name, Steps: steps}
}

// Validate checks that every step can run and every recovery trigger names
// an earlier step.
func (w *Workflow) Validate() error {
	seen := map[string]bool{}
	for i, s := range w.Steps {
		if s.Name == "" {
			return fmt.Errorf("workflow %q: step %d has no name", w.Name, i)
		}
		if s.Run == nil {
			return fmt.Errorf("workflow %q: step %q has no run function", w.Name, s.Name)
		}
		if s.RecoverWith != "" && !seen[s.RecoverWith] {
			return fmt.Errorf("workflow %q: step %q recovers with %q which does not precede it", w.Name, s.Name, s.RecoverWith)
		}
		seen[s.Name] = true
	}
	return nil
}

// Runner executes workflows and reports them to observers.
type Runner struct {
	Logger    *log.Logger
	Observers engine.Observers
	Now       func() time.Time
}

func (r *Runner) now() time.Time {
	if r.Now == nil {
		return time.Now()
	}
	return r.Now()
}

func (r *Runner) logger() *log.Logger {
	if r.Logger == nil {
		return log.New(io.Discard)
	}
	return r.Logger
}

// Run executes w from NotStarted. Steps run strictly in order; a failed
// required step aborts the run and skips the rest. Cancellation always
// aborts, even on soft steps.
func (r *Runner) Run(ctx context.Context, w *Workflow) (out Outcome) {
	logger := r.logger().With("workflow", w.Name)
	out = Outcome{Workflow: w.Name, State: NotStarted, Start: r.now()}
	defer func() {
		out.End = r.now()
		if out.Succeeded() {
			logger.Info("workflow completed", "steps", len(out.Trace), "soft_failures", out.Trace.SoftFailures())
		} else {
			logger.Error("workflow aborted", "reason", out.Reason)
		}
		r.Observers.WorkflowFinished(out.Event())
	}()

	abort := func(step string, kind engine.Kind, err error) Outcome {
		out.State = Aborted
		out.Reason = &AbortError{Workflow: w.Name, Step: step, Kind: kind, Err: err}
		return out
	}
	if err := w.Validate(); err != nil {
		return abort("", engine.KindActionFailed, err)
	}

	ctx = engine.WithWorkflow(ctx, w.Name)
	out.State = Running
	for _, step := range w.Steps {
		if err := ctx.Err(); err != nil {
			return abort(step.Name, engine.KindCancelled, err)
		}
		rec := r.runStep(ctx, step, step.Name, false)
		out.Trace = append(out.Trace, rec)

		if !rec.Result.Succeeded && step.RecoverWith != "" && rec.Result.Kind() != engine.KindCancelled {
			trigger := w.step(step.RecoverWith)
			logger.Warn("verification failed, re-running trigger", "step", step.Name, "trigger", trigger.Name)
			trec := r.runStep(ctx, trigger, trigger.Name+" (recovery)", true)
			out.Trace = append(out.Trace, trec)
			if trec.Result.Kind() == engine.KindCancelled {
				return abort(trec.Name, engine.KindCancelled, trec.Result.Err)
			}
			if trec.Result.Succeeded {
				rec = r.runStep(ctx, step, step.Name, false)
				out.Trace = append(out.Trace, rec)
			}
		}

		if rec.Result.Succeeded {
			continue
		}
		kind := rec.Result.Kind()
		if kind == engine.KindCancelled || !step.Soft {
			return abort(step.Name, kind, rec.Result.Err)
		}
		logger.Warn("soft step failed", "step", step.Name, "kind", kind, "err", rec.Result.Err)
	}
	out.State = Completed
	return out
}

// step returns the last step named name.
func (w *Workflow) step(name string) Step {
	var found Step
	for _, s := range w.Steps {
		if s.Name == name {
			found = s
		}
	}
	return found
}

func (r *Runner) runStep(ctx context.Context, s Step, name string, recovery bool) StepRecord {
	start := r.now()
	res := s.Run(ctx)
	if res.Err == nil && !res.Succeeded {
		res.Err = errors.New("step reported failure without an error")
	}
	return StepRecord{
		Name:     name,
		Soft:     s.Soft,
		Recovery: recovery,
		Result:   res,
		Start:    start,
		End:      r.now(),
	}
}
