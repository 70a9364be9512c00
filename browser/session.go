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

// Package browser drives Chrome through the DevTools protocol and exposes it
// to the engine as a Page.
package browser

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"

	"github.com/charmbracelet/log"
	"github.com/chromedp/cdproto/network"
	"github.com/chromedp/chromedp"
)

// Options configures a Session.
type Options struct {
	// RemoteURL is a DevTools websocket or http URL of an already running
	// browser. When empty a local Chrome is started.
	RemoteURL string
	Headless  bool
	// KeepOpen keeps a locally started browser alive past the caller's
	// context so Release can hold it open after a failed run.
	KeepOpen     bool
	WindowWidth  int
	WindowHeight int
	Logger       *log.Logger
}

// Session owns one browser tab. It is not safe for concurrent use by more
// than one workflow at a time.
type Session struct {
	opts        Options
	ctx         context.Context
	cancel      context.CancelFunc
	allocCancel context.CancelFunc
	logger      *log.Logger
}

// NewSession starts or attaches to a browser and opens a tab. The session
// lives until Close or until parent is done.
func NewSession(parent context.Context, opts Options) (*Session, error) {
	if opts.WindowWidth == 0 || opts.WindowHeight == 0 {
		opts.WindowWidth, opts.WindowHeight = 1920, 1080
	}
	logger := opts.Logger
	if logger == nil {
		logger = log.New(io.Discard)
	}

	var allocCtx context.Context
	var allocCancel context.CancelFunc
	if opts.RemoteURL != "" {
		allocCtx, allocCancel = chromedp.NewRemoteAllocator(parent, opts.RemoteURL)
	} else {
		allocOpts := append(chromedp.DefaultExecAllocatorOptions[:],
			chromedp.Flag("headless", opts.Headless),
			chromedp.WindowSize(opts.WindowWidth, opts.WindowHeight),
		)
		allocCtx, allocCancel = chromedp.NewExecAllocator(allocParent(parent, opts), allocOpts...)
	}

	ctx, cancel := chromedp.NewContext(allocCtx,
		chromedp.WithLogf(logger.Debugf),
		chromedp.WithErrorf(logger.Errorf),
	)
	// The first Run starts the browser.
	if err := chromedp.Run(ctx); err != nil {
		cancel()
		allocCancel()
		return nil, fmt.Errorf("browser: start: %w", err)
	}
	logger.Info("browser session started", "remote", opts.RemoteURL != "", "headless", opts.Headless)
	return &Session{opts: opts, ctx: ctx, cancel: cancel, allocCancel: allocCancel, logger: logger}, nil
}

// allocParent detaches a kept-open local browser from parent's
// cancellation; chromedp kills the browser when its allocator context ends.
func allocParent(parent context.Context, opts Options) context.Context {
	if opts.KeepOpen && opts.RemoteURL == "" {
		return context.WithoutCancel(parent)
	}
	return parent
}

// Close closes the tab and, for a locally started browser, the browser.
func (s *Session) Close() {
	s.cancel()
	s.allocCancel()
}

// Release closes the session. After a failed run with KeepOpen set on a
// locally started browser it first waits for done so the page can be
// inspected.
func (s *Session) Release(failed bool, done <-chan struct{}) {
	if failed && s.opts.KeepOpen && s.opts.RemoteURL == "" {
		s.logger.Warn("run failed, browser left open for inspection; interrupt to close it")
		<-done
	}
	s.Close()
}

// Context returns the chromedp context of the tab.
func (s *Session) Context() context.Context { return s.ctx }

// Page returns the engine view of the tab.
func (s *Session) Page() *Page { return &Page{s: s} }

// Run executes actions in the tab. ctx bounds the call; cancelling it aborts
// the actions without closing the tab.
func (s *Session) Run(ctx context.Context, actions ...chromedp.Action) error {
	if ctx == nil {
		ctx = context.Background()
	}
	if err := ctx.Err(); err != nil {
		return err
	}
	c, cancel := context.WithCancel(s.ctx)
	defer cancel()
	stop := context.AfterFunc(ctx, cancel)
	defer stop()
	err := chromedp.Run(c, actions...)
	if err != nil && ctx.Err() != nil {
		return ctx.Err()
	}
	return err
}

// Navigate loads url and waits for the document to finish loading.
func (s *Session) Navigate(ctx context.Context, url string, timeout time.Duration) error {
	if err := s.Run(ctx, chromedp.Navigate(url)); err != nil {
		return fmt.Errorf("navigate %s: %w", url, err)
	}
	return s.WaitForPageLoad(ctx, timeout)
}

// WaitForPageLoad waits until document.readyState is complete.
func (s *Session) WaitForPageLoad(ctx context.Context, timeout time.Duration) error {
	err := s.Run(ctx, chromedp.Poll(`document.readyState === 'complete'`, nil,
		chromedp.WithPollingInterval(100*time.Millisecond),
		chromedp.WithPollingTimeout(timeout),
	))
	if errors.Is(err, chromedp.ErrPollingTimeout) {
		return fmt.Errorf("page not loaded after %s", timeout)
	}
	return err
}

func (s *Session) Title(ctx context.Context) (string, error) {
	var title string
	err := s.Run(ctx, chromedp.Title(&title))
	return title, err
}

func (s *Session) Location(ctx context.Context) (string, error) {
	var url string
	err := s.Run(ctx, chromedp.Location(&url))
	return url, err
}

// CaptureScreenshot saves a full viewport PNG to filename, creating its
// directory as needed.
func (s *Session) CaptureScreenshot(ctx context.Context, filename string) error {
	var buf []byte
	if err := s.Run(ctx, chromedp.CaptureScreenshot(&buf)); err != nil {
		return fmt.Errorf("capture screenshot: %w", err)
	}
	if dir := filepath.Dir(filename); dir != "" {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return fmt.Errorf("create screenshot dir: %w", err)
		}
	}
	if err := os.WriteFile(filename, buf, 0644); err != nil {
		return fmt.Errorf("write screenshot: %w", err)
	}
	s.logger.Debug("saved screenshot", "file", filename)
	return nil
}

// OuterHTML returns the serialized document, for failure dumps.
func (s *Session) OuterHTML(ctx context.Context) (string, error) {
	var html string
	err := s.Run(ctx, chromedp.OuterHTML("html", &html, chromedp.ByQuery))
	return html, err
}

// DisableCSSAnimations turns off transitions and animations in the current
// document so visibility checks are not racing them.
func (s *Session) DisableCSSAnimations(ctx context.Context) error {
	return s.Run(ctx, chromedp.Evaluate(`
		(() => {
			const style = document.createElement('style');
			style.innerHTML = '* { transition: none !important; animation: none !important; }';
			document.head.appendChild(style);
			return true;
		})()
	`, nil))
}

// ClearCookies drops every cookie of the browser.
func (s *Session) ClearCookies(ctx context.Context) error {
	return s.Run(ctx, network.ClearBrowserCookies())
}
