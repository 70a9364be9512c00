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

package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"path/filepath"
	"slices"
	"sort"
	"strings"
	"syscall"
	"time"

	"github.com/charmbracelet/log"
	"github.com/spf13/cobra"

	"github.com/ttbt-io/masterprobe/browser"
	"github.com/ttbt-io/masterprobe/config"
	"github.com/ttbt-io/masterprobe/engine"
	"github.com/ttbt-io/masterprobe/pages"
	"github.com/ttbt-io/masterprobe/report"
	"github.com/ttbt-io/masterprobe/workflow"
)

// scenario builds the workflows of one named run.
type scenario func(app *pages.App, s config.Settings, opts runOptions) ([]*workflow.Workflow, error)

type runOptions struct {
	entry  string
	status string
}

func product(s config.Settings) pages.ProductVariant {
	return pages.ProductVariant{
		Code:        s.Product.Code,
		Name:        s.Product.Name,
		TrolleyType: s.Product.TrolleyType,
		Capacity:    s.Product.StorageCapacity,
	}
}

var scenarios = map[string]scenario{
	"navigate": func(app *pages.App, _ config.Settings, o runOptions) ([]*workflow.Workflow, error) {
		e, err := pages.EntryByName(o.entry)
		if err != nil {
			return nil, err
		}
		return []*workflow.Workflow{app.Home().NavigateTo(e)}, nil
	},
	"create": func(app *pages.App, s config.Settings, _ runOptions) ([]*workflow.Workflow, error) {
		return []*workflow.Workflow{
			app.Home().NavigateTo(pages.ProductVariantDetails),
			app.ProductVariants().Create(product(s)),
		}, nil
	},
	"edit": func(app *pages.App, s config.Settings, _ runOptions) ([]*workflow.Workflow, error) {
		pv := app.ProductVariants()
		return []*workflow.Workflow{
			app.Home().NavigateTo(pages.ProductVariantDetails),
			pv.Search(s.Product.Code),
			pv.EditAndVerify(product(s)),
		}, nil
	},
	"search": func(app *pages.App, s config.Settings, _ runOptions) ([]*workflow.Workflow, error) {
		pv := app.ProductVariants()
		return []*workflow.Workflow{
			app.Home().NavigateTo(pages.ProductVariantDetails),
			pv.Search(s.Product.Code),
			pv.ClearSearch(),
		}, nil
	},
	"status": func(app *pages.App, s config.Settings, o runOptions) ([]*workflow.Workflow, error) {
		st, err := pages.ParseStatus(o.status)
		if err != nil {
			return nil, err
		}
		pv := app.ProductVariants()
		return []*workflow.Workflow{
			app.Home().NavigateTo(pages.ProductVariantDetails),
			pv.Search(s.Product.Code),
			pv.ChangeStatus(st),
		}, nil
	},
}

var scenarioOrder = []string{"navigate", "create", "search", "edit", "status"}

// suite is the workflows of one scenario. Each workflow relies on the page
// state the previous one left, so a suite stops at its first failure.
type suite struct {
	name      string
	workflows []*workflow.Workflow
}

func buildSuites(name string, app *pages.App, s config.Settings, o runOptions) ([]suite, error) {
	if name == "all" {
		out := make([]suite, 0, len(scenarioOrder))
		for _, n := range scenarioOrder {
			ws, err := scenarios[n](app, s, o)
			if err != nil {
				return nil, fmt.Errorf("%s: %w", n, err)
			}
			out = append(out, suite{name: n, workflows: ws})
		}
		return out, nil
	}
	sc, ok := scenarios[name]
	if !ok {
		return nil, fmt.Errorf("unknown workflow %q, want one of %s or all", name, strings.Join(scenarioOrder, ", "))
	}
	ws, err := sc(app, s, o)
	if err != nil {
		return nil, err
	}
	return []suite{{name: name, workflows: ws}}, nil
}

// runSuites runs every suite in order and prints each outcome to w. The
// rest of a suite is skipped after a failed workflow; the next suite still
// runs unless ctx is done.
func runSuites(ctx context.Context, app *pages.App, suites []suite, w io.Writer, logger *log.Logger) []workflow.Outcome {
	var outcomes []workflow.Outcome
	for _, su := range suites {
		for i, wf := range su.workflows {
			out := app.Run(ctx, wf)
			outcomes = append(outcomes, out)
			fmt.Fprintln(w, out.Summary())
			if ctx.Err() != nil {
				return outcomes
			}
			if !out.Succeeded() {
				if rest := su.workflows[i+1:]; len(rest) > 0 {
					logger.Warn("skipping rest of scenario", "scenario", su.name, "failed", wf.Name, "skipped", len(rest))
				}
				break
			}
		}
	}
	return outcomes
}

func newRunCmd() *cobra.Command {
	var opts runOptions
	var checkServices bool
	cmd := &cobra.Command{
		Use:       "run [navigate|create|search|edit|status|all]",
		Short:     "Run business workflows against the admin UI",
		Args:      cobra.MaximumNArgs(1),
		ValidArgs: workflowNames(),
		RunE: func(cmd *cobra.Command, args []string) error {
			name := "all"
			if len(args) == 1 {
				name = args[0]
			}
			if !slices.Contains(workflowNames(), name) {
				return fmt.Errorf("unknown workflow %q, want one of %s", name, strings.Join(workflowNames(), ", "))
			}
			s, err := loadSettings(cmd)
			if err != nil {
				return err
			}
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()
			return runWorkflows(ctx, name, s, opts, checkServices)
		},
	}
	cmd.Flags().StringVar(&opts.entry, "entry", pages.ProductVariantDetails.Name, "Master menu entry opened by the navigate workflow")
	cmd.Flags().StringVar(&opts.status, "status", string(pages.Inactive), "Status set by the status workflow: Active or Inactive")
	cmd.Flags().BoolVar(&checkServices, "check-services", false, "Wait for the microservices before driving the UI")
	return cmd
}

func runWorkflows(ctx context.Context, name string, s config.Settings, o runOptions, checkServices bool) error {
	logger := newLogger(s)

	if s.Services.MockEnabled {
		srv, err := startMock(s, fmt.Sprintf(":%d", s.Services.MockPort), filepath.Join(s.Report.Path, "mock-data"), false)
		if err != nil {
			return err
		}
		defer shutdownMock(srv, logger)
		checkServices = true
	}
	if checkServices {
		if err := waitForServices(ctx, s, logger); err != nil {
			return err
		}
	}

	loc, err := pages.LoadLocators(s.LocatorsFile)
	if err != nil {
		return err
	}

	sess, err := browser.NewSession(ctx, browser.Options{
		RemoteURL:    s.Browser.RemoteURL,
		Headless:     s.Browser.Headless,
		KeepOpen:     s.Browser.KeepOpen,
		WindowWidth:  s.Browser.WindowWidth,
		WindowHeight: s.Browser.WindowHeight,
		Logger:       logger.WithPrefix("browser"),
	})
	if err != nil {
		return err
	}
	failed := true
	defer func() {
		wait, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
		defer stop()
		sess.Release(failed && ctx.Err() == nil, wait.Done())
	}()

	collector := report.NewCollector(s.Report.Name, s.Env)
	runDir := filepath.Join(s.Report.Path, collector.ID())
	if err := os.MkdirAll(runDir, 0o755); err != nil {
		return err
	}
	events, err := os.Create(filepath.Join(runDir, "events.log"))
	if err != nil {
		return err
	}
	defer events.Close()

	observers := engine.Observers{
		collector,
		report.LogSink{Logger: report.NewLogger(report.LoggerOptions{Level: "debug", Output: events, JSON: true})},
	}
	if s.Report.Screenshots {
		observers = append(observers, &report.ScreenshotSink{
			Capturer:  sess,
			Dir:       filepath.Join(runDir, "screenshots"),
			Collector: collector,
			Logger:    logger,
		})
	}

	stepper := engine.NewStepper(sess.Page(), engine.Options{
		Logger:    logger,
		Observers: observers,
		Policy: engine.RetryPolicy{
			MaxAttempts: s.Step.RetryCount,
			Delay:       s.Step.RetryDelay,
		},
		ResolveTimeout: s.Step.ResolveTimeout,
		PostTimeout:    s.Step.PostTimeout,
		PollInterval:   s.Step.PollInterval,
	})
	app := pages.NewApp(stepper, loc, &workflow.Runner{Logger: logger, Observers: observers})
	app.VerifyTimeout = s.Step.VerifyTimeout

	suites, err := buildSuites(name, app, s, o)
	if err != nil {
		return err
	}

	if err := sess.Navigate(ctx, s.BaseURL, s.Browser.PageLoadTimeout); err != nil {
		return err
	}
	if err := sess.DisableCSSAnimations(ctx); err != nil {
		logger.Warn("could not disable CSS animations", "err", err)
	}

	runSuites(ctx, app, suites, os.Stdout, logger)

	rep := collector.Finish()
	if err := saveRun(s, rep, logger); err != nil {
		logger.Error("could not save run report", "err", err)
	}
	report.RenderRun(os.Stdout, rep)
	failed = !rep.Succeeded()
	if failed {
		return fmt.Errorf("%d of %d workflow(s) failed", rep.Failed, rep.Passed+rep.Failed)
	}
	return nil
}

func openStore(s config.Settings, logger *log.Logger) (*report.Store, error) {
	st, err := report.OpenStorage(filepath.Join(s.Report.Path, "store"), os.Getenv(masterKeyEnv), logger)
	if err != nil {
		return nil, err
	}
	return report.NewStore(st), nil
}

func saveRun(s config.Settings, rep report.RunReport, logger *log.Logger) error {
	store, err := openStore(s, logger)
	if err != nil {
		return err
	}
	if err := store.Save(rep); err != nil {
		return err
	}
	logger.Info("run report saved", "id", rep.ID, "duration", rep.Finished.Sub(rep.Started).Round(time.Millisecond))
	return nil
}

// workflowNames lists the accepted run arguments.
func workflowNames() []string {
	names := append([]string{}, scenarioOrder...)
	sort.Strings(names)
	return append(names, "all")
}
