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
)

// Kind classifies why a step failed.
type Kind int

const (
	KindNone Kind = iota
	KindNotFound
	KindActionFailed
	KindPostConditionUnmet
	KindCancelled
)

func (k Kind) String() string {
	switch k {
	case KindNone:
		return "None"
	case KindNotFound:
		return "NotFound"
	case KindActionFailed:
		return "ActionFailed"
	case KindPostConditionUnmet:
		return "PostConditionUnmet"
	case KindCancelled:
		return "Cancelled"
	default:
		return "Unknown"
	}
}

var (
	ErrNotFound           = errors.New("no candidate found")
	ErrActionFailed       = errors.New("action failed")
	ErrPostConditionUnmet = errors.New("post-condition unmet")
	ErrCancelled          = errors.New("cancelled")
)

func (k Kind) sentinel() error {
	switch k {
	case KindNotFound:
		return ErrNotFound
	case KindActionFailed:
		return ErrActionFailed
	case KindPostConditionUnmet:
		return ErrPostConditionUnmet
	case KindCancelled:
		return ErrCancelled
	}
	return nil
}

// StepError is the terminal failure of a resilient step.
type StepError struct {
	Kind          Kind
	Target        string
	Intent        Intent
	Candidates    int
	Attempts      int
	FallbackTried bool
	Err           error
}

func (e *StepError) Error() string {
	msg := fmt.Sprintf("%s on %q: %s after %d attempt(s) over %d candidate(s)",
		e.Intent, e.Target, e.Kind, e.Attempts, e.Candidates)
	if e.FallbackTried {
		msg += ", script fallback tried"
	}
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

func (e *StepError) Unwrap() error { return e.Err }

// Is matches the sentinel of the error's kind, so errors.Is(err,
// ErrNotFound) works regardless of the wrapped cause.
func (e *StepError) Is(target error) bool {
	s := e.Kind.sentinel()
	return s != nil && s == target
}

// KindOf extracts the failure kind of err.
func KindOf(err error) Kind {
	if err == nil {
		return KindNone
	}
	var se *StepError
	if errors.As(err, &se) {
		return se.Kind
	}
	switch {
	case errors.Is(err, ErrCancelled), isContextErr(err):
		return KindCancelled
	case errors.Is(err, ErrNotFound):
		return KindNotFound
	case errors.Is(err, ErrPostConditionUnmet):
		return KindPostConditionUnmet
	}
	return KindActionFailed
}

func isContextErr(err error) bool {
	return errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded)
}
