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

// inspector opens a page in a browser and prints every button with the
// attributes locators can use, then saves a screenshot and the page HTML.
// It is the first thing to run when steps start failing to resolve.
package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/charmbracelet/log"

	"github.com/ttbt-io/masterprobe/browser"
	"github.com/ttbt-io/masterprobe/report"
)

var (
	chromeURL = flag.String("chrome-url", "", "The url of the remote debugging port. A local browser is started when empty.")
	pageURL   = flag.String("url", "http://localhost:5173/", "The page to inspect")
	outputDir = flag.String("output-dir", "inspector-output", "Directory to save the screenshot and HTML")
	headless  = flag.Bool("headless", true, "Run a local browser headless")
	asJSON    = flag.Bool("json", false, "Print the buttons as JSON")
	settle    = flag.Duration("settle", 2*time.Second, "Time to let scripts render after load")
	timeout   = flag.Duration("timeout", 60*time.Second, "Overall timeout")
	logLevel  = flag.String("log-level", "info", "Log level")
)

func main() {
	flag.Parse()
	logger := report.NewLogger(report.LoggerOptions{Level: *logLevel, Prefix: "inspector"})

	ctx, cancel := context.WithTimeout(context.Background(), *timeout)
	defer cancel()

	if err := run(ctx, logger); err != nil {
		logger.Fatal("inspection failed", "err", err)
	}
}

func run(ctx context.Context, logger *log.Logger) error {
	sess, err := browser.NewSession(ctx, browser.Options{
		RemoteURL: *chromeURL,
		Headless:  *headless,
		Logger:    logger,
	})
	if err != nil {
		return err
	}
	defer sess.Close()

	if err := os.MkdirAll(*outputDir, 0755); err != nil {
		return fmt.Errorf("create output dir: %w", err)
	}

	if err := sess.Navigate(ctx, *pageURL, *timeout/2); err != nil {
		debugFailure(ctx, sess, logger, "navigate")
		return err
	}
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-time.After(*settle):
	}

	title, _ := sess.Title(ctx)
	location, _ := sess.Location(ctx)
	logger.Info("page loaded", "title", title, "url", location)

	buttons, err := sess.Inspect(ctx)
	if err != nil {
		debugFailure(ctx, sess, logger, "inspect")
		return err
	}
	if *asJSON {
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		if err := enc.Encode(buttons); err != nil {
			return err
		}
	} else if err := browser.WriteButtons(os.Stdout, buttons); err != nil {
		return err
	}

	shot := filepath.Join(*outputDir, "page.png")
	if err := sess.CaptureScreenshot(ctx, shot); err != nil {
		return err
	}
	html, err := sess.OuterHTML(ctx)
	if err != nil {
		return err
	}
	if err := os.WriteFile(filepath.Join(*outputDir, "page.html"), []byte(html), 0644); err != nil {
		return err
	}
	logger.Info("saved", "screenshot", shot, "dir", *outputDir)
	return nil
}

// debugFailure saves what the browser shows when a stage fails.
func debugFailure(ctx context.Context, sess *browser.Session, logger *log.Logger, name string) {
	file := filepath.Join(*outputDir, fmt.Sprintf("debug-%s.png", name))
	if err := sess.CaptureScreenshot(ctx, file); err != nil {
		logger.Warn("failed to capture screenshot", "err", err)
		return
	}
	logger.Info("saved debug screenshot", "file", file)
}
