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
	"syscall"
	"time"

	"github.com/charmbracelet/log"
	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/jedib0t/go-pretty/v6/text"
	"github.com/spf13/cobra"

	"github.com/ttbt-io/masterprobe/apiclient"
	"github.com/ttbt-io/masterprobe/backend"
	"github.com/ttbt-io/masterprobe/config"
	"github.com/ttbt-io/masterprobe/report"
)

func endpoints(s config.Services) apiclient.Endpoints {
	if s.MockEnabled {
		return apiclient.MockEndpoints(fmt.Sprintf("http://localhost:%d", s.MockPort))
	}
	return apiclient.EndpointsFrom(s)
}

func newClient(s config.Settings, logger *log.Logger) (*apiclient.Client, error) {
	var token string
	if s.Services.AuthSecret != "" {
		var err error
		if token, err = apiclient.Token(s.Services.AuthSecret, "masterprobe", time.Hour); err != nil {
			return nil, err
		}
	}
	return apiclient.New(apiclient.Options{
		Endpoints: endpoints(s.Services),
		Timeout:   s.Services.HealthTimeout,
		Token:     token,
		Logger:    logger,
	}), nil
}

func waitForServices(ctx context.Context, s config.Settings, logger *log.Logger) error {
	c, err := newClient(s, logger)
	if err != nil {
		return err
	}
	ctx, cancel := context.WithTimeout(ctx, s.Services.WaitTimeout)
	defer cancel()
	logger.Info("waiting for microservices", "mock", s.Services.MockEnabled)
	return c.WaitForServices(ctx, apiclient.WaitOptions{
		Retries:  s.Services.HealthRetries,
		Interval: s.Services.HealthEvery,
	})
}

func renderHealth(w io.Writer, results []apiclient.CheckResult) {
	t := table.NewWriter()
	t.SetOutputMirror(w)
	t.SetStyle(table.StyleRounded)
	t.AppendHeader(table.Row{"Service", "Status", "Latency", "Error"})
	for _, r := range results {
		status := text.FgGreen.Sprint(r.Status)
		if !r.Up() {
			status = text.FgRed.Sprint(r.Status)
		}
		var errText string
		if r.Err != nil {
			errText = r.Err.Error()
		}
		t.AppendRow(table.Row{r.Service, status, r.Latency.Round(time.Millisecond), errText})
	}
	t.Render()
}

func newHealthCmd() *cobra.Command {
	var wait bool
	cmd := &cobra.Command{
		Use:   "health [service...]",
		Short: "Check the health of the microservices",
		Long: `Checks every microservice concurrently, or only the named ones
(` + fmt.Sprint(backend.Services) + `). With --wait the check is retried per
health.check.retry.count and real.services.check.interval.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := loadSettings(cmd)
			if err != nil {
				return err
			}
			logger := newLogger(s)
			if wait {
				if err := waitForServices(cmd.Context(), s, logger); err != nil {
					return err
				}
			}
			c, err := newClient(s, logger)
			if err != nil {
				return err
			}
			results, err := c.CheckAll(cmd.Context(), args...)
			renderHealth(cmd.OutOrStdout(), results)
			return err
		},
	}
	cmd.Flags().BoolVar(&wait, "wait", false, "Wait for the services to come up first")
	return cmd
}

// startMock serves the mock microservices on addr with data under dataDir.
func startMock(s config.Settings, addr, dataDir string, debug bool) (*backend.Server, error) {
	logger := newLogger(s)
	store, err := report.OpenStorage(dataDir, os.Getenv(masterKeyEnv), logger)
	if err != nil {
		return nil, err
	}
	return backend.StartServer(backend.Options{
		Addr:       addr,
		Debug:      debug,
		Storage:    store,
		DataDir:    dataDir,
		AuthSecret: s.Services.AuthSecret,
	})
}

func shutdownMock(srv *backend.Server, logger *log.Logger) {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		logger.Error("mock server shutdown", "err", err)
	}
}

func newMockServerCmd() *cobra.Command {
	var addr, dataDir string
	var debug bool
	cmd := &cobra.Command{
		Use:   "mock-server",
		Short: "Serve mock versions of the microservices",
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := loadSettings(cmd)
			if err != nil {
				return err
			}
			logger := newLogger(s)
			if addr == "" {
				addr = fmt.Sprintf(":%d", s.Services.MockPort)
			}
			srv, err := startMock(s, addr, dataDir, debug)
			if err != nil {
				return err
			}
			logger.Info("mock services started", "url", srv.URL(), "services", backend.Services)

			stop := make(chan os.Signal, 1)
			signal.Notify(stop, os.Interrupt, syscall.SIGTERM)
			<-stop

			logger.Info("shutting down")
			shutdownMock(srv, logger)
			return nil
		},
	}
	cmd.Flags().StringVar(&addr, "addr", "", "The TCP address to listen to (default :<mock.server.port>)")
	cmd.Flags().StringVar(&dataDir, "data-dir", "data", "Directory for persisted node values")
	cmd.Flags().BoolVar(&debug, "debug", false, "Enable debug mode")
	return cmd
}
