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

package config

import (
	"fmt"
	"net/url"
	"time"
)

// Keys of the settings read by masterprobe.
const (
	KeyEnv              = "env"
	KeyBaseURL          = "app.base.url"
	KeyBrowserName      = "browser.name"
	KeyHeadless         = "browser.headless"
	KeyKeepOpen         = "browser.keep.open"
	KeyRemoteURL        = "browser.remote.url"
	KeyWindowWidth      = "browser.window.width"
	KeyWindowHeight     = "browser.window.height"
	KeyPageLoadTimeout  = "browser.page.load.timeout"
	KeyResolveTimeout   = "step.resolve.timeout"
	KeyPostTimeout      = "step.post.timeout"
	KeyPollInterval     = "step.poll.interval"
	KeyVerifyTimeout    = "step.verify.timeout"
	KeyRetryCount       = "test.retry.count"
	KeyRetryDelay       = "test.retry.delay"
	KeyReportPath       = "report.path"
	KeyReportName       = "report.name"
	KeyScreenshots      = "report.screenshots.enabled"
	KeyLocatorsFile     = "locators.file"
	KeyLogLevel         = "log.level"
	KeyProductCode      = "master.product.code"
	KeyProductName      = "master.product.name"
	KeyTrolleyType      = "master.trolley.type"
	KeyStorageCapacity  = "master.storage.capacity"
	KeyRegistryURL      = "service.registry.url"
	KeyOpcuaURL         = "opcua.service.url"
	KeyReadDataURL      = "readdata.service.url"
	KeyKafkaURL         = "kafka.service.url"
	KeyWriteDataURL     = "writedata.service.url"
	KeyMockEnabled      = "mock.services.enabled"
	KeyMockPort         = "mock.server.port"
	KeyHealthTimeout    = "health.check.timeout"
	KeyHealthRetryCount = "health.check.retry.count"
	KeyHealthInterval   = "real.services.check.interval"
	KeyWaitTimeout      = "real.services.wait.timeout"
	KeyAuthSecret       = "auth.secret"
)

var defaults = map[string]any{
	KeyEnv:              "local",
	KeyBaseURL:          "http://localhost:5173/",
	KeyBrowserName:      "chrome",
	KeyHeadless:         false,
	KeyKeepOpen:         false,
	KeyRemoteURL:        "",
	KeyWindowWidth:      1920,
	KeyWindowHeight:     1080,
	KeyPageLoadTimeout:  "30s",
	KeyResolveTimeout:   "10s",
	KeyPostTimeout:      "10s",
	KeyPollInterval:     "200ms",
	KeyVerifyTimeout:    "2s",
	KeyRetryCount:       3,
	KeyRetryDelay:       "1s",
	KeyReportPath:       "test-output/",
	KeyReportName:       "UI_Automation_Report",
	KeyScreenshots:      true,
	KeyLocatorsFile:     "",
	KeyLogLevel:         "info",
	KeyProductCode:      "6100100",
	KeyProductName:      "Test Product Variant",
	KeyTrolleyType:      "NA",
	KeyStorageCapacity:  "6",
	KeyRegistryURL:      "http://localhost:8761",
	KeyOpcuaURL:         "http://localhost:8081",
	KeyReadDataURL:      "http://localhost:8082",
	KeyKafkaURL:         "http://localhost:8083",
	KeyWriteDataURL:     "http://localhost:8084",
	KeyMockEnabled:      true,
	KeyMockPort:         8081,
	KeyHealthTimeout:    "30s",
	KeyHealthRetryCount: 3,
	KeyHealthInterval:   "5s",
	KeyWaitTimeout:      "300s",
	KeyAuthSecret:       "",
}

func setDefaults(v interface{ SetDefault(string, any) }) {
	for k, val := range defaults {
		v.SetDefault(k, val)
	}
}

// Browser holds the browser session settings.
type Browser struct {
	Name            string
	Headless        bool
	KeepOpen        bool
	RemoteURL       string
	WindowWidth     int
	WindowHeight    int
	PageLoadTimeout time.Duration
}

// Step holds the resilient step defaults.
type Step struct {
	ResolveTimeout time.Duration
	PostTimeout    time.Duration
	PollInterval   time.Duration
	VerifyTimeout  time.Duration
	RetryCount     int
	RetryDelay     time.Duration
}

// Report holds where and how run reports are written.
type Report struct {
	Path        string
	Name        string
	Screenshots bool
}

// Product is the product variant used by the business workflows.
type Product struct {
	Code            string
	Name            string
	TrolleyType     string
	StorageCapacity string
}

// Services holds the backend microservice endpoints.
type Services struct {
	RegistryURL   string
	OpcuaURL      string
	ReadDataURL   string
	KafkaURL      string
	WriteDataURL  string
	MockEnabled   bool
	MockPort      int
	HealthTimeout time.Duration
	HealthRetries int
	HealthEvery   time.Duration
	WaitTimeout   time.Duration
	AuthSecret    string
}

// Settings is the typed view of a Provider.
type Settings struct {
	Env          string
	BaseURL      string
	LogLevel     string
	LocatorsFile string
	Browser      Browser
	Step         Step
	Report       Report
	Product      Product
	Services     Services
}

// SettingsFrom reads every setting from p, falling back to the built-in
// defaults.
func SettingsFrom(p Provider) Settings {
	d := func(key string) time.Duration {
		def, _ := time.ParseDuration(defaults[key].(string))
		return p.GetDuration(key, def)
	}
	s := func(key string) string {
		def, _ := defaults[key].(string)
		return p.Get(key, def)
	}
	i := func(key string) int { return p.GetInt(key, defaults[key].(int)) }
	b := func(key string) bool { return p.GetBool(key, defaults[key].(bool)) }

	return Settings{
		Env:          s(KeyEnv),
		BaseURL:      s(KeyBaseURL),
		LogLevel:     s(KeyLogLevel),
		LocatorsFile: s(KeyLocatorsFile),
		Browser: Browser{
			Name:            s(KeyBrowserName),
			Headless:        b(KeyHeadless),
			KeepOpen:        b(KeyKeepOpen),
			RemoteURL:       s(KeyRemoteURL),
			WindowWidth:     i(KeyWindowWidth),
			WindowHeight:    i(KeyWindowHeight),
			PageLoadTimeout: d(KeyPageLoadTimeout),
		},
		Step: Step{
			ResolveTimeout: d(KeyResolveTimeout),
			PostTimeout:    d(KeyPostTimeout),
			PollInterval:   d(KeyPollInterval),
			VerifyTimeout:  d(KeyVerifyTimeout),
			RetryCount:     i(KeyRetryCount),
			RetryDelay:     d(KeyRetryDelay),
		},
		Report: Report{
			Path:        s(KeyReportPath),
			Name:        s(KeyReportName),
			Screenshots: b(KeyScreenshots),
		},
		Product: Product{
			Code:            s(KeyProductCode),
			Name:            s(KeyProductName),
			TrolleyType:     s(KeyTrolleyType),
			StorageCapacity: s(KeyStorageCapacity),
		},
		Services: Services{
			RegistryURL:   s(KeyRegistryURL),
			OpcuaURL:      s(KeyOpcuaURL),
			ReadDataURL:   s(KeyReadDataURL),
			KafkaURL:      s(KeyKafkaURL),
			WriteDataURL:  s(KeyWriteDataURL),
			MockEnabled:   b(KeyMockEnabled),
			MockPort:      i(KeyMockPort),
			HealthTimeout: d(KeyHealthTimeout),
			HealthRetries: i(KeyHealthRetryCount),
			HealthEvery:   d(KeyHealthInterval),
			WaitTimeout:   d(KeyWaitTimeout),
			AuthSecret:    s(KeyAuthSecret),
		},
	}
}

// Validate rejects settings the harness cannot run with.
func (s Settings) Validate() error {
	if _, err := url.ParseRequestURI(s.BaseURL); err != nil {
		return fmt.Errorf("%s: %w", KeyBaseURL, err)
	}
	if s.Step.RetryCount < 1 {
		return fmt.Errorf("%s must be at least 1, got %d", KeyRetryCount, s.Step.RetryCount)
	}
	if s.Step.PollInterval <= 0 {
		return fmt.Errorf("%s must be positive", KeyPollInterval)
	}
	if s.Step.ResolveTimeout <= 0 || s.Step.PostTimeout <= 0 {
		return fmt.Errorf("%s and %s must be positive", KeyResolveTimeout, KeyPostTimeout)
	}
	if s.Browser.Name != "chrome" && s.Browser.Name != "chromium" {
		return fmt.Errorf("%s: unsupported browser %q", KeyBrowserName, s.Browser.Name)
	}
	return nil
}
