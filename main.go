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
	"fmt"
	"os"

	"github.com/charmbracelet/log"
	"github.com/spf13/cobra"

	"github.com/ttbt-io/masterprobe/config"
	"github.com/ttbt-io/masterprobe/report"
)

// masterKeyEnv holds the passphrase of the storage master key.
const masterKeyEnv = config.EnvPrefix + "_MASTER_KEY"

var (
	configFile  string
	configDir   string
	envName     string
	logLevel    string
	withChrome  string
	headless    bool
	overrideSet []string
)

var rootCmd = &cobra.Command{
	Use:   "masterprobe",
	Short: "Resilient UI and service checks for the Master admin module",
	Long: `masterprobe drives the Master admin web UI through a real browser with
self-healing steps, checks the backing microservices and can serve mock
versions of them.`,
	SilenceUsage: true,
}

func init() {
	pf := rootCmd.PersistentFlags()
	pf.StringVar(&configFile, "config", "", "Extra configuration file merged after the properties files")
	pf.StringVar(&configDir, "config-dir", ".", "Directory holding config.properties and config-<env>.properties")
	pf.StringVar(&envName, "env", "", "Environment name selecting config-<env>.properties")
	pf.StringVar(&logLevel, "log-level", "", "Log level: debug, info, warn or error")
	pf.StringVar(&withChrome, "with-chromedp", "", "The url of the remote debugging port")
	pf.BoolVar(&headless, "headless", false, "Run the browser headless")
	pf.StringArrayVar(&overrideSet, "set", nil, "Override a setting, key=value (repeatable)")

	rootCmd.AddCommand(newRunCmd(), newHealthCmd(), newMockServerCmd(), newReportsCmd())
}

// loadSettings reads the configuration with the command line overrides
// applied last.
func loadSettings(cmd *cobra.Command) (config.Settings, error) {
	overrides, err := config.ParseOverrides(overrideSet)
	if err != nil {
		return config.Settings{}, err
	}
	if logLevel != "" {
		overrides[config.KeyLogLevel] = logLevel
	}
	if withChrome != "" {
		overrides[config.KeyRemoteURL] = withChrome
	}
	if cmd.Flags().Changed("headless") {
		overrides[config.KeyHeadless] = fmt.Sprint(headless)
	}
	cfg, err := config.Load(config.LoadOptions{
		Dir:       configDir,
		File:      configFile,
		Env:       envName,
		Overrides: overrides,
	})
	if err != nil {
		return config.Settings{}, err
	}
	s := config.SettingsFrom(cfg)
	if err := s.Validate(); err != nil {
		return config.Settings{}, fmt.Errorf("invalid configuration: %w", err)
	}
	return s, nil
}

func newLogger(s config.Settings) *log.Logger {
	return report.NewLogger(report.LoggerOptions{Level: s.LogLevel})
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
