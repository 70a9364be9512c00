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
	"errors"
	"fmt"
	"strings"
	"time"
)

// State is a predicate over an element.
type State int

const (
	StatePresent State = iota
	StateVisible
	StateClickable
	StateHidden
)

func (s State) String() string {
	switch s {
	case StatePresent:
		return "present"
	case StateVisible:
		return "visible"
	case StateClickable:
		return "clickable"
	case StateHidden:
		return "hidden"
	default:
		return "unknown"
	}
}

const (
	DefaultResolveTimeout = 10 * time.Second
	DefaultPollInterval   = 200 * time.Millisecond
)

// errTimeout is returned when a bounded wait expires without the predicate
// holding. It is distinct from the context's own errors.
var errTimeout = errors.New("timeout")

// Condition is an observable page state a step can require after acting,
// e.g. "the form title is visible" or "the modal is hidden".
type Condition struct {
	Target Candidates
	State  State
	// Text, when set, additionally requires the element text to contain it.
	Text string
	// Attr, when set, additionally requires attribute Attr to equal Value.
	Attr  string
	Value string
}

func (c Condition) String() string {
	s := fmt.Sprintf("%s %s", c.Target.Target(), c.State)
	if c.Text != "" {
		s += fmt.Sprintf(" containing %q", c.Text)
	}
	if c.Attr != "" {
		s += fmt.Sprintf(" with %s=%q", c.Attr, c.Value)
	}
	return s
}

// Waiter polls a Page until an element predicate holds.
type Waiter struct {
	Page     Page
	Interval time.Duration
}

func (w Waiter) interval() time.Duration {
	if w.Interval <= 0 {
		return DefaultPollInterval
	}
	return w.Interval
}

// Resolve waits up to timeout for the first element matched by q that is in
// state s. It checks immediately, then on every tick. A done context wins
// over the timeout so callers can tell cancellation from expiry.
func (w Waiter) Resolve(ctx context.Context, q Query, s State, timeout time.Duration) (Element, error) {
	if timeout <= 0 {
		timeout = DefaultResolveTimeout
	}
	ticker := time.NewTicker(w.interval())
	defer ticker.Stop()
	deadline := time.NewTimer(timeout)
	defer deadline.Stop()

	var lastErr error
	for {
		el, err := w.match(ctx, q, s)
		if err != nil {
			if ctx.Err() != nil {
				return nil, ctx.Err()
			}
			lastErr = err
		}
		if el != nil {
			return el, nil
		}
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-deadline.C:
			if lastErr != nil {
				return nil, fmt.Errorf("%w waiting for %s to be %s: %v", errTimeout, q, s, lastErr)
			}
			return nil, fmt.Errorf("%w waiting for %s to be %s", errTimeout, q, s)
		case <-ticker.C:
		}
	}
}

func (w Waiter) match(ctx context.Context, q Query, s State) (Element, error) {
	els, err := w.Page.FindAll(ctx, q)
	if err != nil {
		return nil, err
	}
	for _, el := range els {
		ok, err := satisfies(ctx, el, s)
		if err != nil {
			continue
		}
		if ok {
			return el, nil
		}
	}
	return nil, nil
}

func satisfies(ctx context.Context, el Element, s State) (bool, error) {
	switch s {
	case StatePresent:
		return true, nil
	case StateVisible:
		return el.Visible(ctx)
	case StateClickable:
		v, err := el.Visible(ctx)
		if err != nil || !v {
			return false, err
		}
		return el.Enabled(ctx)
	case StateHidden:
		v, err := el.Visible(ctx)
		return !v, err
	}
	return false, fmt.Errorf("unknown state %d", s)
}

// Until polls until c holds or timeout expires. It returns (false, nil) on
// expiry and a context error on cancellation.
func (w Waiter) Until(ctx context.Context, c Condition, timeout time.Duration) (bool, error) {
	if timeout <= 0 {
		timeout = DefaultResolveTimeout
	}
	ticker := time.NewTicker(w.interval())
	defer ticker.Stop()
	deadline := time.NewTimer(timeout)
	defer deadline.Stop()

	for {
		ok, err := w.holds(ctx, c)
		if ctx.Err() != nil {
			return false, ctx.Err()
		}
		if err == nil && ok {
			return true, nil
		}
		select {
		case <-ctx.Done():
			return false, ctx.Err()
		case <-deadline.C:
			return false, nil
		case <-ticker.C:
		}
	}
}

// holds evaluates c once. For StateHidden every candidate must be hidden or
// absent; for the other states any candidate in order may satisfy it.
func (w Waiter) holds(ctx context.Context, c Condition) (bool, error) {
	if c.State == StateHidden {
		for _, q := range c.Target.queries {
			els, err := w.Page.FindAll(ctx, q)
			if err != nil {
				return false, err
			}
			for _, el := range els {
				v, err := el.Visible(ctx)
				if err != nil {
					continue
				}
				if v {
					return false, nil
				}
			}
		}
		return true, nil
	}
	for _, q := range c.Target.queries {
		el, err := w.match(ctx, q, c.State)
		if err != nil || el == nil {
			continue
		}
		if c.Attr != "" {
			v, err := el.Attribute(ctx, c.Attr)
			if err != nil || v != c.Value {
				continue
			}
		}
		if c.Text == "" {
			return true, nil
		}
		txt, err := el.Text(ctx)
		if err == nil && strings.Contains(txt, c.Text) {
			return true, nil
		}
	}
	return false, nil
}
