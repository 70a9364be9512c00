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
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeFile(t *testing.T, dir, name, content string) {
	t.Helper()
	require.NoError(t, os.WriteFile(filepath.Join(dir, name), []byte(content), 0644))
}

func TestLoadPrecedence(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "config.properties", `
env=qa
app.base.url=http://base.example/
browser.headless=false
test.retry.count=5
master.product.code=100
`)
	writeFile(t, dir, "config-qa.properties", `
app.base.url=http://qa.example/
master.product.code=200
`)
	t.Setenv("MASTERPROBE_MASTER_PRODUCT_CODE", "300")
	t.Setenv("MASTERPROBE_BROWSER_HEADLESS", "true")

	c, err := Load(LoadOptions{Dir: dir, Overrides: map[string]string{"test.retry.count": "7"}})
	require.NoError(t, err)

	assert.Equal(t, "qa", c.Env())
	assert.Equal(t, "http://qa.example/", c.Get(KeyBaseURL, ""))
	assert.Equal(t, "300", c.Get(KeyProductCode, ""))
	assert.True(t, c.GetBool(KeyHeadless, false))
	assert.Equal(t, 7, c.GetInt(KeyRetryCount, 0))
}

func TestLoadExplicitEnvAndMissingFiles(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "config-prod.properties", "app.base.url=https://prod.example/\n")

	c, err := Load(LoadOptions{Dir: dir, Env: "prod"})
	require.NoError(t, err)
	assert.Equal(t, "prod", c.Env())
	assert.Equal(t, "https://prod.example/", c.Get(KeyBaseURL, ""))

	c, err = Load(LoadOptions{Dir: t.TempDir()})
	require.NoError(t, err)
	assert.Equal(t, "local", c.Env())
	assert.Equal(t, "http://localhost:5173/", c.Get(KeyBaseURL, ""))

	_, err = Load(LoadOptions{Dir: dir, File: filepath.Join(dir, "nope.properties")})
	assert.Error(t, err)
}

func TestTypedGetters(t *testing.T) {
	c := New(map[string]string{
		"a.int":      "12",
		"a.badint":   "twelve",
		"a.bool":     "TRUE",
		"a.badbool":  "maybe",
		"a.dur":      "1500ms",
		"a.secs":     "2",
		"a.fracsecs": "0.5",
		"a.baddur":   "soon",
		"a.blank":    "  ",
	})
	assert.Equal(t, 12, c.GetInt("a.int", 1))
	assert.Equal(t, 1, c.GetInt("a.badint", 1))
	assert.Equal(t, 1, c.GetInt("a.missing", 1))
	assert.True(t, c.GetBool("a.bool", false))
	assert.True(t, c.GetBool("a.badbool", true))
	assert.Equal(t, 1500*time.Millisecond, c.GetDuration("a.dur", 0))
	assert.Equal(t, 2*time.Second, c.GetDuration("a.secs", 0))
	assert.Equal(t, 500*time.Millisecond, c.GetDuration("a.fracsecs", 0))
	assert.Equal(t, time.Minute, c.GetDuration("a.baddur", time.Minute))
	assert.Equal(t, "def", c.Get("a.blank", "def"))
}

func TestParseOverrides(t *testing.T) {
	m, err := ParseOverrides([]string{"a.b=1", " c = x=y "})
	require.NoError(t, err)
	assert.Equal(t, map[string]string{"a.b": "1", "c": "x=y"}, m)

	_, err = ParseOverrides([]string{"novalue"})
	assert.Error(t, err)
	_, err = ParseOverrides([]string{"=v"})
	assert.Error(t, err)
}

func TestSettingsFrom(t *testing.T) {
	s := SettingsFrom(New(nil))
	assert.Equal(t, "http://localhost:5173/", s.BaseURL)
	assert.Equal(t, 10*time.Second, s.Step.ResolveTimeout)
	assert.Equal(t, 200*time.Millisecond, s.Step.PollInterval)
	assert.Equal(t, 3, s.Step.RetryCount)
	assert.Equal(t, time.Second, s.Step.RetryDelay)
	assert.Equal(t, 1920, s.Browser.WindowWidth)
	assert.Equal(t, "NA", s.Product.TrolleyType)
	assert.Equal(t, 300*time.Second, s.Services.WaitTimeout)
	assert.NoError(t, s.Validate())

	s = SettingsFrom(New(map[string]string{
		KeyRetryCount:     "0",
		KeyResolveTimeout: "3",
	}))
	assert.Equal(t, 3*time.Second, s.Step.ResolveTimeout)
	assert.ErrorContains(t, s.Validate(), KeyRetryCount)

	s = SettingsFrom(New(map[string]string{KeyBrowserName: "firefox"}))
	assert.ErrorContains(t, s.Validate(), "unsupported browser")
}

func TestPropertiesCodec(t *testing.T) {
	v := map[string]any{}
	require.NoError(t, propertiesCodec{}.Decode([]byte(`
# comment
browser.headless=true
browser.window.width = 1280
report.name: nightly run
`), v))
	assert.Equal(t, map[string]any{
		"browser": map[string]any{
			"headless": "true",
			"window":   map[string]any{"width": "1280"},
		},
		"report": map[string]any{"name": "nightly run"},
	}, v)

	b, err := propertiesCodec{}.Encode(v)
	require.NoError(t, err)
	back := map[string]any{}
	require.NoError(t, propertiesCodec{}.Decode(b, back))
	assert.Equal(t, v, back)

	dir := t.TempDir()
	writeFile(t, dir, "extra.props", "browser.window.width=800\n")
	c, err := Load(LoadOptions{Dir: dir, File: filepath.Join(dir, "extra.props")})
	require.NoError(t, err)
	assert.Equal(t, 800, c.GetInt(KeyWindowWidth, 0))
}
