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

package e2e

import (
	"context"
	_ "embed"
	"flag"
	"fmt"
	"net"
	"net/http"
	"net/http/httptest"
	"os"
	"strings"
	"testing"
	"time"

	"github.com/chromedp/cdproto/runtime"
	"github.com/chromedp/chromedp"

	"github.com/ttbt-io/masterprobe/browser"
	"github.com/ttbt-io/masterprobe/engine"
	"github.com/ttbt-io/masterprobe/pages"
	"github.com/ttbt-io/masterprobe/report"
	"github.com/ttbt-io/masterprobe/workflow"
)

var (
	withChromeDP = flag.String("with-chromedp", "", "The url of the remote debugging port")
	fixtureHost  = flag.String("fixture-host", "localhost", "Host name the browser uses to reach the test server")
	screenshots  = flag.String("screenshots", "", "Directory for failure screenshots")
)

//go:embed testdata/admin.html
var adminHTML []byte

func TestMain(m *testing.M) {
	flag.Parse()
	exitCode := m.Run()
	os.Exit(exitCode)
}

// startFixture serves the admin page fixture and returns its URL. The page
// must be reachable from the browser, so it listens on all interfaces.
func startFixture(t *testing.T) string {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		w.Write(adminHTML)
	})
	l, err := net.Listen("tcp", "0.0.0.0:0")
	if err != nil {
		t.Fatalf("Failed to listen: %v", err)
	}
	server := httptest.NewUnstartedServer(mux)
	server.Listener.Close()
	server.Listener = l
	server.Start()
	t.Cleanup(server.Close)
	_, port, _ := net.SplitHostPort(l.Addr().String())
	return fmt.Sprintf("http://%s:%s", *fixtureHost, port)
}

type harness struct {
	ctx       context.Context
	sess      *browser.Session
	app       *pages.App
	collector *report.Collector
}

// newHarness opens the fixture, with query appended to its URL, in the
// remote browser.
func newHarness(t *testing.T, query string) *harness {
	t.Helper()
	if *withChromeDP == "" {
		t.Skip("--with-chromedp not set")
	}
	baseURL := startFixture(t)

	ctx, cancel := context.WithTimeout(context.Background(), 90*time.Second)
	t.Cleanup(cancel)

	logger := report.NewLogger(report.LoggerOptions{Level: "debug", Prefix: t.Name()})
	sess, err := browser.NewSession(ctx, browser.Options{RemoteURL: *withChromeDP, Logger: logger})
	if err != nil {
		t.Fatalf("NewSession: %v", err)
	}
	t.Cleanup(sess.Close)

	chromedp.ListenTarget(sess.Context(), func(ev interface{}) {
		switch ev := ev.(type) {
		case *runtime.EventConsoleAPICalled:
			args := make([]string, len(ev.Args))
			for i, arg := range ev.Args {
				args[i] = string(arg.Value)
			}
			t.Logf("JS CONSOLE (%s): %s", ev.Type, strings.Join(args, " "))
		}
	})

	collector := report.NewCollector(t.Name(), "e2e")
	observers := engine.Observers{collector}
	if *screenshots != "" {
		observers = append(observers, &report.ScreenshotSink{Capturer: sess, Dir: *screenshots, Collector: collector, Logger: logger})
	}
	stepper := engine.NewStepper(sess.Page(), engine.Options{
		Logger:         logger,
		Observers:      observers,
		Policy:         engine.RetryPolicy{MaxAttempts: 2, Delay: 200 * time.Millisecond},
		ResolveTimeout: 3 * time.Second,
		PostTimeout:    2 * time.Second,
		PollInterval:   100 * time.Millisecond,
	})
	app := pages.NewApp(stepper, pages.DefaultLocators(), &workflow.Runner{Logger: logger, Observers: observers})
	app.VerifyTimeout = time.Second

	if err := sess.Navigate(ctx, baseURL+"/"+query, 10*time.Second); err != nil {
		t.Fatalf("Navigate: %v", err)
	}
	if err := sess.DisableCSSAnimations(ctx); err != nil {
		t.Fatalf("DisableCSSAnimations: %v", err)
	}
	return &harness{ctx: ctx, sess: sess, app: app, collector: collector}
}

// run executes w and fails the test unless it completes.
func (h *harness) run(t *testing.T, w *workflow.Workflow) workflow.Outcome {
	t.Helper()
	out := h.app.Run(h.ctx, w)
	t.Log(out.Summary())
	if !out.Succeeded() {
		if html, err := h.sess.OuterHTML(h.ctx); err == nil {
			t.Logf("HTML Dump:\n%s", html)
		}
		t.Fatalf("workflow %q: %v", w.Name, out.Reason)
	}
	return out
}
