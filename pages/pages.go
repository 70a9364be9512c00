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

// Package pages holds the page objects and business workflows of the
// Master admin module.
package pages

import (
	"context"
	"time"

	"github.com/ttbt-io/masterprobe/engine"
	"github.com/ttbt-io/masterprobe/workflow"
)

// App bundles what every page object needs to build and run workflows.
type App struct {
	Stepper  *engine.Stepper
	Locators *Locators
	Runner   *workflow.Runner
	// VerifyTimeout bounds exploratory checks such as "is the dropdown
	// open"; they should fail fast so recovery can kick in.
	VerifyTimeout time.Duration
}

func NewApp(s *engine.Stepper, loc *Locators, r *workflow.Runner) *App {
	if loc == nil {
		loc = DefaultLocators()
	}
	if r == nil {
		r = &workflow.Runner{Logger: s.Logger(), Observers: s.Observers()}
	}
	return &App{Stepper: s, Locators: loc, Runner: r, VerifyTimeout: 2 * time.Second}
}

// Run executes w with the app's runner.
func (a *App) Run(ctx context.Context, w *workflow.Workflow) workflow.Outcome {
	return a.Runner.Run(ctx, w)
}

func (a *App) Home() *Home { return &Home{app: a} }

func (a *App) ProductVariants() *ProductVariantPage { return &ProductVariantPage{app: a} }

type stepOpt func(*engine.Spec)

func withFallback() stepOpt { return func(s *engine.Spec) { s.Fallback = true } }

// expect requires target to reach state after the action.
func (a *App) expect(target string, state engine.State) stepOpt {
	return func(s *engine.Spec) {
		s.Post = &engine.Condition{Target: a.Locators.Get(target), State: state}
	}
}

// expectChecked requires the radio or checkbox target to be checked after
// the action.
func (a *App) expectChecked(target string) stepOpt {
	return func(s *engine.Spec) {
		s.Post = &engine.Condition{Target: a.Locators.Get(target), State: engine.StatePresent, Attr: "checked", Value: "true"}
	}
}

func withResolveTimeout(d time.Duration) stepOpt {
	return func(s *engine.Spec) { s.ResolveTimeout = d }
}

func withPolicy(p engine.RetryPolicy) stepOpt {
	return func(s *engine.Spec) { s.Policy = p }
}

// act returns a RunFunc performing in on target. Candidates are looked up
// when the step runs so locator overrides loaded later still apply.
func (a *App) act(name, target string, in engine.Intent, opts ...stepOpt) workflow.RunFunc {
	return func(ctx context.Context) engine.Result {
		return a.actOn(name, a.Locators.Get(target), in, opts...)(ctx)
	}
}

// actOn is act for candidates built at run time, e.g. a table row holding a
// given code.
func (a *App) actOn(name string, c engine.Candidates, in engine.Intent, opts ...stepOpt) workflow.RunFunc {
	return func(ctx context.Context) engine.Result {
		spec := engine.Spec{Name: name, Candidates: c, Intent: in}
		for _, o := range opts {
			o(&spec)
		}
		return a.Stepper.Execute(ctx, spec)
	}
}
