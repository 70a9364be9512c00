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
	"time"
)

// RetryPolicy bounds how often a step is tried. Attempt 1 is the first try,
// not a retry.
type RetryPolicy struct {
	MaxAttempts int
	Delay       time.Duration
}

// DefaultRetryPolicy is 3 attempts with 1s between them.
var DefaultRetryPolicy = RetryPolicy{MaxAttempts: 3, Delay: time.Second}

// Once is a policy with a single attempt and no delay.
var Once = RetryPolicy{MaxAttempts: 1}

func (p RetryPolicy) IsZero() bool { return p == RetryPolicy{} }

func (p RetryPolicy) Validate() error {
	if p.MaxAttempts < 1 {
		return fmt.Errorf("retry policy: max attempts must be >= 1, got %d", p.MaxAttempts)
	}
	if p.Delay < 0 {
		return fmt.Errorf("retry policy: delay must not be negative, got %s", p.Delay)
	}
	return nil
}

// sleep waits for the inter-attempt delay. It returns the context error as
// soon as ctx is done.
func (p RetryPolicy) sleep(ctx context.Context) error {
	if p.Delay <= 0 {
		return ctx.Err()
	}
	t := time.NewTimer(p.Delay)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}

func (p RetryPolicy) String() string {
	return fmt.Sprintf("%d x %s", p.MaxAttempts, p.Delay)
}
