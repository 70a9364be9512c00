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
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ttbt-io/masterprobe/engine"
	"github.com/ttbt-io/masterprobe/engine/enginetest"
)

// recorder builds steps that log their execution order.
type recorder struct {
	ran []string
}

func (r *recorder) ok(name string) RunFunc {
	return func(ctx context.Context) engine.Result {
		r.ran = append(r.ran, name)
		return engine.Result{Step: name, Succeeded: true, Attempts: 1}
	}
}

func (r *recorder) fail(name string, kind engine.Kind) RunFunc {
	return func(ctx context.Context) engine.Result {
		r.ran = append(r.ran, name)
		return engine.Result{Step: name, CandidateIndex: -1, Attempts: 3, Err: &engine.StepError{
			Kind: kind, Target: name + " target", Intent: engine.Click(), Candidates: 2, Attempts: 3,
		}}
	}
}

// flaky fails the first n calls.
func (r *recorder) flaky(name string, n int) RunFunc {
	calls := 0
	return func(ctx context.Context) engine.Result {
		calls++
		if calls <= n {
			return r.fail(name, engine.KindNotFound)(ctx)
		}
		return r.ok(name)(ctx)
	}
}

func TestRun_AbortSkipsRemaining(t *testing.T) {
	rec := &recorder{}
	w := New("create",
		Required("A", rec.ok("A")),
		Required("B", rec.fail("B", engine.KindActionFailed)),
		Soft("C", rec.ok("C")),
		Required("D", rec.ok("D")),
	)

	out := (&Runner{}).Run(t.Context(), w)

	assert.Equal(t, Aborted, out.State)
	assert.False(t, out.Succeeded())
	require.Len(t, out.Trace, 2)
	assert.Equal(t, []string{"A", "B"}, out.Trace.Names())
	assert.Equal(t, []string{"A", "B"}, rec.ran)
	assert.Equal(t, engine.KindActionFailed, out.Kind())

	var ae *AbortError
	require.ErrorAs(t, out.Reason, &ae)
	assert.Equal(t, "B", ae.Step)
	assert.ErrorIs(t, out.Reason, ErrAborted)
	assert.ErrorIs(t, out.Reason, engine.ErrActionFailed)
	assert.Contains(t, out.Summary(), `step "B" failed: click on "B target", ActionFailed after 3 attempt(s) over 2 candidate(s)`)
}

func TestRun_SoftFailureContinues(t *testing.T) {
	rec := &recorder{}
	w := New("explore",
		Required("A", rec.ok("A")),
		Soft("check dropdown", rec.fail("check dropdown", engine.KindNotFound)),
		Required("C", rec.ok("C")),
	)

	out := (&Runner{}).Run(t.Context(), w)

	assert.Equal(t, Completed, out.State)
	assert.Nil(t, out.Reason)
	assert.Equal(t, []string{"A", "check dropdown", "C"}, out.Trace.Names())
	assert.Equal(t, 1, out.Trace.SoftFailures())
	assert.Equal(t, engine.KindNone, out.Kind())
	assert.Contains(t, out.Summary(), "1 soft failure(s)")
}

func TestRun_Recovery(t *testing.T) {
	t.Run("recovers", func(t *testing.T) {
		rec := &recorder{}
		w := New("navigate",
			Required("open master", rec.ok("open master")),
			Soft("dropdown open", rec.flaky("dropdown open", 1)).Recover("open master"),
			Required("open product variant", rec.ok("open product variant")),
		)

		out := (&Runner{}).Run(t.Context(), w)

		assert.Equal(t, Completed, out.State)
		assert.Equal(t, []string{
			"open master", "dropdown open", "open master (recovery)", "dropdown open", "open product variant",
		}, out.Trace.Names())
		assert.True(t, out.Trace[2].Recovery)
		assert.Equal(t, 1, out.Trace.SoftFailures(), "only the first verification failed")
	})

	t.Run("exactly once", func(t *testing.T) {
		rec := &recorder{}
		w := New("navigate",
			Required("open master", rec.ok("open master")),
			Required("dropdown open", rec.flaky("dropdown open", 5)).Recover("open master"),
			Required("never", rec.ok("never")),
		)

		out := (&Runner{}).Run(t.Context(), w)

		assert.Equal(t, Aborted, out.State)
		assert.Equal(t, []string{"open master", "dropdown open", "open master (recovery)", "dropdown open"}, out.Trace.Names())
		assert.NotContains(t, rec.ran, "never")
	})

	t.Run("soft after failed recovery", func(t *testing.T) {
		rec := &recorder{}
		w := New("navigate",
			Required("open master", rec.ok("open master")),
			Soft("dropdown open", rec.flaky("dropdown open", 5)).Recover("open master"),
			Required("next", rec.ok("next")),
		)

		out := (&Runner{}).Run(t.Context(), w)

		assert.Equal(t, Completed, out.State)
		assert.Equal(t, 5, len(out.Trace))
	})
}

func TestRun_Cancelled(t *testing.T) {
	rec := &recorder{}
	ctx, cancel := context.WithCancel(t.Context())
	w := New("flow",
		Required("A", func(ctx context.Context) engine.Result {
			cancel()
			return rec.ok("A")(ctx)
		}),
		Soft("B", rec.ok("B")),
	)

	out := (&Runner{}).Run(ctx, w)

	assert.Equal(t, Aborted, out.State)
	assert.Equal(t, engine.KindCancelled, out.Kind())
	assert.Equal(t, []string{"A"}, rec.ran)
	assert.ErrorIs(t, out.Reason, context.Canceled)
}

func TestRun_SoftCancelledAborts(t *testing.T) {
	rec := &recorder{}
	w := New("flow",
		Soft("A", rec.fail("A", engine.KindCancelled)),
		Required("B", rec.ok("B")),
	)

	out := (&Runner{}).Run(t.Context(), w)

	assert.Equal(t, Aborted, out.State)
	assert.Equal(t, engine.KindCancelled, out.Kind())
	assert.Equal(t, []string{"A"}, rec.ran)
}

func TestRun_Invalid(t *testing.T) {
	rec := &recorder{}
	w := New("bad",
		Required("verify", rec.ok("verify")).Recover("later"),
		Required("later", rec.ok("later")),
	)
	require.Error(t, w.Validate())

	out := (&Runner{}).Run(t.Context(), w)
	assert.Equal(t, Aborted, out.State)
	assert.Empty(t, out.Trace)
	assert.Empty(t, rec.ran)
}

func TestRun_IndependentInvocations(t *testing.T) {
	rec := &recorder{}
	w := New("flow", Required("A", rec.ok("A")))
	r := &Runner{}

	first := r.Run(t.Context(), w)
	second := r.Run(t.Context(), w)

	assert.Len(t, first.Trace, 1)
	assert.Len(t, second.Trace, 1)
	assert.Equal(t, Completed, second.State)
}

func TestRun_Events(t *testing.T) {
	var steps []engine.StepEvent
	var flows []engine.WorkflowEvent
	obs := engine.ObserverFuncs{
		OnStep:     func(e engine.StepEvent) { steps = append(steps, e) },
		OnWorkflow: func(e engine.WorkflowEvent) { flows = append(flows, e) },
	}

	page := enginetest.NewPage()
	page.Add(engine.ByID("master"), enginetest.NewElem("master"))
	s := engine.NewStepper(page, engine.Options{
		Observers:      engine.Observers{obs},
		Policy:         engine.Once,
		ResolveTimeout: 10 * time.Millisecond,
		PollInterval:   time.Millisecond,
	})
	click := func(id string) RunFunc {
		return func(ctx context.Context) engine.Result {
			return s.Execute(ctx, engine.Spec{Name: "click " + id, Candidates: engine.NewCandidates(id, engine.ByID(id)), Intent: engine.Click()})
		}
	}
	w := New("navigate",
		Required("open master", click("master")),
		Required("open missing", click("missing")),
	)

	out := (&Runner{Observers: engine.Observers{obs}}).Run(t.Context(), w)

	assert.Equal(t, Aborted, out.State)
	require.Len(t, steps, 2)
	assert.Equal(t, "navigate", steps[0].Workflow)
	require.Len(t, flows, 1)
	assert.Equal(t, "navigate", flows[0].Workflow)
	assert.Equal(t, "Aborted", flows[0].State)
	assert.Equal(t, "open missing", flows[0].FailedStep)
	assert.Equal(t, engine.KindNotFound, flows[0].ErrorKind)
	assert.Len(t, flows[0].Steps, 2)
	assert.Contains(t, out.Summary(), `click on "missing", NotFound after 1 attempt(s) over 1 candidate(s)`)
}

func TestDo(t *testing.T) {
	ok := Do("noop", func(context.Context) error { return nil })(t.Context())
	assert.True(t, ok.Succeeded)

	boom := errors.New("values differ")
	bad := Do("verify", func(context.Context) error { return boom })(t.Context())
	assert.False(t, bad.Succeeded)
	assert.ErrorIs(t, bad.Err, boom)
	assert.Equal(t, engine.KindActionFailed, bad.Kind())
}
