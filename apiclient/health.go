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

package apiclient

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/charmbracelet/log"
	"github.com/hashicorp/go-retryablehttp"
	"golang.org/x/sync/errgroup"

	"github.com/ttbt-io/masterprobe/backend"
)

// CheckResult is the outcome of one service health check.
type CheckResult struct {
	Service string
	Status  string
	Latency time.Duration
	Err     error
}

// Up reports whether the service answered UP.
func (r CheckResult) Up() bool { return r.Err == nil && r.Status == backend.StatusUp }

// CheckAll checks the health of services concurrently, every service by
// default. Each check runs on its own client. The results keep the order of
// services; the error joins every failed check.
func (c *Client) CheckAll(ctx context.Context, services ...string) ([]CheckResult, error) {
	if len(services) == 0 {
		services = backend.Services
	}
	results := make([]CheckResult, len(services))
	var g errgroup.Group
	for i, svc := range services {
		worker := c.clone()
		g.Go(func() error {
			start := time.Now()
			h, err := worker.Health(ctx, svc)
			results[i] = CheckResult{Service: svc, Status: h.Status, Latency: time.Since(start), Err: err}
			return nil
		})
	}
	g.Wait()

	var errs []error
	for _, r := range results {
		switch {
		case r.Err != nil:
			errs = append(errs, fmt.Errorf("%s: %w", r.Service, r.Err))
		case r.Status != backend.StatusUp:
			errs = append(errs, fmt.Errorf("%s: status %s", r.Service, r.Status))
		}
	}
	return results, errors.Join(errs...)
}

// WaitOptions bound WaitForServices.
type WaitOptions struct {
	// Retries is the number of retries per service after the first check.
	Retries  int
	Interval time.Duration
}

// WaitForServices waits until every service reports healthy, retrying
// connection errors and 5xx answers. It fails with the first service that
// is still unhealthy after its retries.
func (c *Client) WaitForServices(ctx context.Context, opts WaitOptions, services ...string) error {
	if len(services) == 0 {
		services = backend.Services
	}
	if opts.Interval <= 0 {
		opts.Interval = 2 * time.Second
	}
	g, ctx := errgroup.WithContext(ctx)
	for _, svc := range services {
		u, err := c.url(svc, "/actuator/health", nil)
		if err != nil {
			return err
		}
		rc := retryablehttp.NewClient()
		rc.HTTPClient = &http.Client{Timeout: c.opts.Timeout}
		rc.RetryMax = opts.Retries
		rc.RetryWaitMin = opts.Interval
		rc.RetryWaitMax = opts.Interval
		rc.Logger = leveledLogger{c.logger.With("service", svc)}
		g.Go(func() error {
			start := time.Now()
			req, err := retryablehttp.NewRequestWithContext(ctx, http.MethodGet, u, nil)
			if err != nil {
				return err
			}
			resp, err := rc.Do(req)
			if err != nil {
				return fmt.Errorf("%s not ready: %w", svc, err)
			}
			resp.Body.Close()
			if resp.StatusCode != http.StatusOK {
				return fmt.Errorf("%s not ready: %w", svc, &StatusError{Code: resp.StatusCode})
			}
			c.logger.Info("service ready", "service", svc, "took", time.Since(start).Round(time.Millisecond))
			return nil
		})
	}
	return g.Wait()
}

// leveledLogger adapts a charm logger to retryablehttp.LeveledLogger.
type leveledLogger struct {
	l *log.Logger
}

func (l leveledLogger) Error(msg string, kv ...any) { l.l.Error(msg, kv...) }
func (l leveledLogger) Info(msg string, kv ...any)  { l.l.Debug(msg, kv...) }
func (l leveledLogger) Debug(msg string, kv ...any) { l.l.Debug(msg, kv...) }
func (l leveledLogger) Warn(msg string, kv ...any)  { l.l.Debug(msg, kv...) }
