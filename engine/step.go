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
	"fmt"
	"io"
	"sync/atomic"
	"time"

	"github.com/charmbracelet/log"
)

// Spec describes one resilient step.
type Spec struct {
	Name       string
	Candidates Candidates
	Intent     Intent
	// Policy defaults to the stepper's policy when zero.
	Policy RetryPolicy
	// Post, when set, must hold after the action for the step to succeed.
	Post *Condition
	// Fallback opts actionable intents into the script tier.
	Fallback bool
	// ResolveTimeout bounds the wait for each candidate.
	ResolveTimeout time.Duration
	// PostTimeout bounds the wait for Post.
	PostTimeout time.Duration
}

// stepSeq numbers Execute calls.
var stepSeq atomic.Uint64

// Result is the outcome of one Execute call.
type Result struct {
	// Seq is unique per Execute call, even for steps sharing a name.
	Seq       uint64
	Step      string
	Target    string
	Succeeded bool
	// CandidateIndex is the winning candidate, or -1 unless Succeeded.
	CandidateIndex int
	UsedFallback   bool
	Tier           Tier
	Attempts       int
	// Value holds the text or attribute read by read/check intents.
	Value string
	Err   error
	Start time.Time
	End   time.Time
}

// Kind is the failure kind of r, KindNone when it succeeded.
func (r Result) Kind() Kind {
	if r.Succeeded {
		return KindNone
	}
	return KindOf(r.Err)
}

func (r Result) Duration() time.Duration { return r.End.Sub(r.Start) }

// Event converts r to the observer representation.
func (r Result) Event(workflow string) StepEvent {
	e := StepEvent{
		Seq:            r.Seq,
		Workflow:       workflow,
		Step:           r.Step,
		Target:         r.Target,
		Succeeded:      r.Succeeded,
		UsedFallback:   r.UsedFallback,
		Tier:           r.Tier,
		Attempt:        r.Attempts,
		CandidateIndex: r.CandidateIndex,
		ErrorKind:      r.Kind(),
		Duration:       r.Duration(),
	}
	if r.Err != nil {
		e.ErrorDetail = r.Err.Error()
	}
	return e
}

// Options configure a Stepper.
type Options struct {
	Logger         *log.Logger
	Observers      Observers
	Policy         RetryPolicy
	ResolveTimeout time.Duration
	PostTimeout    time.Duration
	PollInterval   time.Duration
	// Now is the clock used for result timestamps.
	Now func() time.Time
}

// Stepper executes resilient steps against one page. It holds no state
// between calls and must be driven by one goroutine at a time, like the
// page it owns.
type Stepper struct {
	page   Page
	waiter Waiter
	opts   Options
	log    *log.Logger
}

func NewStepper(page Page, opts Options) *Stepper {
	if opts.Logger == nil {
		opts.Logger = log.New(io.Discard)
	}
	if opts.Policy.IsZero() {
		opts.Policy = DefaultRetryPolicy
	}
	if opts.ResolveTimeout <= 0 {
		opts.ResolveTimeout = DefaultResolveTimeout
	}
	if opts.PostTimeout <= 0 {
		opts.PostTimeout = DefaultResolveTimeout
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	return &Stepper{
		page:   page,
		waiter: Waiter{Page: page, Interval: opts.PollInterval},
		opts:   opts,
		log:    opts.Logger,
	}
}

// Page returns the page the stepper drives.
func (s *Stepper) Page() Page { return s.page }

// Waiter returns the stepper's poller for ad hoc waits.
func (s *Stepper) Waiter() Waiter { return s.waiter }

// Logger returns the stepper's logger.
func (s *Stepper) Logger() *log.Logger { return s.log }

// Observers returns the sinks step events go to.
func (s *Stepper) Observers() Observers { return s.opts.Observers }

type attemptOutcome struct {
	ok            bool
	index         int
	tier          Tier
	value         string
	kind          Kind
	err           error
	fallbackTried bool
}

// Execute performs spec.Intent on the first candidate that resolves, acts
// and satisfies spec.Post, retrying whole resolve-act cycles per the policy.
// It never returns an error directly; failures are described by Result.Err.
func (s *Stepper) Execute(ctx context.Context, spec Spec) Result {
	res := Result{
		Seq:            stepSeq.Add(1),
		Step:           spec.Name,
		Target:         spec.Candidates.Target(),
		CandidateIndex: -1,
		Start:          s.opts.Now(),
	}
	defer func() {
		s.opts.Observers.StepFinished(res.Event(WorkflowFrom(ctx)))
	}()

	policy := spec.Policy
	if policy.IsZero() {
		policy = s.opts.Policy
	}
	fail := func(kind Kind, attempts int, fallbackTried bool, err error) Result {
		res.Attempts = attempts
		res.Err = &StepError{
			Kind:          kind,
			Target:        spec.Candidates.Target(),
			Intent:        spec.Intent,
			Candidates:    spec.Candidates.Len(),
			Attempts:      attempts,
			FallbackTried: fallbackTried,
			Err:           err,
		}
		res.End = s.opts.Now()
		return res
	}
	if err := policy.Validate(); err != nil {
		return fail(KindActionFailed, 0, false, err)
	}
	if spec.Candidates.Len() == 0 {
		return fail(KindNotFound, 0, false, fmt.Errorf("empty candidate list"))
	}

	var last attemptOutcome
	fallbackTried := false
	for attempt := 1; attempt <= policy.MaxAttempts; attempt++ {
		if attempt > 1 {
			s.log.Debug("retrying step", "step", spec.Name, "attempt", attempt, "delay", policy.Delay)
			if err := policy.sleep(ctx); err != nil {
				return fail(KindCancelled, attempt-1, fallbackTried, err)
			}
		}
		last = s.attempt(ctx, spec)
		fallbackTried = fallbackTried || last.fallbackTried
		if last.kind == KindCancelled {
			return fail(KindCancelled, attempt, fallbackTried, last.err)
		}
		if last.ok {
			res.Succeeded = true
			res.Attempts = attempt
			res.CandidateIndex = last.index
			res.Tier = last.tier
			res.UsedFallback = last.tier == TierScript
			res.Value = last.value
			res.End = s.opts.Now()
			if res.UsedFallback {
				s.log.Warn("step succeeded via script fallback", "step", spec.Name, "target", res.Target,
					"candidate", last.index, "query", spec.Candidates.At(last.index), "attempt", attempt)
			} else {
				s.log.Debug("step succeeded", "step", spec.Name, "target", res.Target,
					"candidate", last.index, "attempt", attempt)
			}
			return res
		}
		s.log.Debug("attempt failed", "step", spec.Name, "attempt", attempt, "kind", last.kind, "err", last.err)
	}
	s.log.Error("step failed", "step", spec.Name, "target", spec.Candidates.Target(),
		"kind", last.kind, "attempts", policy.MaxAttempts, "fallback", fallbackTried)
	return fail(last.kind, policy.MaxAttempts, fallbackTried, last.err)
}

// attempt runs one resolve-act-verify cycle over the candidates in order.
func (s *Stepper) attempt(ctx context.Context, spec Spec) attemptOutcome {
	resolveTimeout := spec.ResolveTimeout
	if resolveTimeout <= 0 {
		resolveTimeout = s.opts.ResolveTimeout
	}
	postTimeout := spec.PostTimeout
	if postTimeout <= 0 {
		postTimeout = s.opts.PostTimeout
	}

	var (
		resolved      bool
		lastErr       error
		fallbackTried bool
	)
	cancelled := func(err error) attemptOutcome {
		return attemptOutcome{kind: KindCancelled, err: err, fallbackTried: fallbackTried}
	}
	for i, q := range spec.Candidates.queries {
		el, err := s.waiter.Resolve(ctx, q, spec.Intent.Requires(), resolveTimeout)
		if err != nil {
			if isContextErr(err) {
				return cancelled(err)
			}
			s.log.Debug("candidate not resolved", "step", spec.Name, "candidate", i, "query", q, "err", err)
			if !resolved {
				lastErr = err
			}
			continue
		}
		resolved = true

		tier := TierNative
		value, err := Perform(ctx, el, spec.Intent, s.log)
		if err != nil {
			if ctx.Err() != nil {
				return cancelled(ctx.Err())
			}
			s.log.Debug("native action failed", "step", spec.Name, "candidate", i, "query", q, "err", err)
			if !spec.Fallback || !spec.Intent.Actionable() {
				lastErr = err
				continue
			}
			fallbackTried = true
			if serr := escalate(ctx, s.page, el, spec.Intent); serr != nil {
				if ctx.Err() != nil {
					return cancelled(ctx.Err())
				}
				s.log.Debug("script fallback failed", "step", spec.Name, "candidate", i, "err", serr)
				lastErr = fmt.Errorf("native: %v; script: %w", err, serr)
				continue
			}
			tier = TierScript
		}

		if spec.Post != nil {
			ok, perr := s.waiter.Until(ctx, *spec.Post, postTimeout)
			if perr != nil {
				return cancelled(perr)
			}
			if !ok {
				return attemptOutcome{
					index:         i,
					tier:          tier,
					kind:          KindPostConditionUnmet,
					err:           fmt.Errorf("%w: %s within %s", ErrPostConditionUnmet, spec.Post, postTimeout),
					fallbackTried: fallbackTried,
				}
			}
		}
		return attemptOutcome{ok: true, index: i, tier: tier, value: value, fallbackTried: fallbackTried}
	}
	if !resolved {
		return attemptOutcome{kind: KindNotFound, err: lastErr, fallbackTried: fallbackTried}
	}
	return attemptOutcome{kind: KindActionFailed, err: lastErr, fallbackTried: fallbackTried}
}
