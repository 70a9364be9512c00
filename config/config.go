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

// Package config loads masterprobe settings from properties files, the
// environment and command line overrides.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// EnvPrefix prefixes environment overrides; dots in keys become
// underscores, e.g. MASTERPROBE_BROWSER_HEADLESS.
const EnvPrefix = "MASTERPROBE"

// Provider reads typed values with a fallback for missing or malformed
// entries.
type Provider interface {
	Get(key, def string) string
	GetInt(key string, def int) int
	GetBool(key string, def bool) bool
	// GetDuration accepts Go durations ("1.5s") and plain numbers, which are
	// read as seconds.
	GetDuration(key string, def time.Duration) time.Duration
}

// LoadOptions controls configuration loading.
type LoadOptions struct {
	// Dir holds config.properties and config-<env>.properties. Defaults to
	// the current directory.
	Dir string
	// File, when set, is merged after the files in Dir.
	File string
	// Env selects config-<env>.properties. When empty the env key of the
	// base file or MASTERPROBE_ENV is used, then "local".
	Env string
	// Overrides have the highest precedence.
	Overrides map[string]string
}

// Config is the viper backed Provider.
type Config struct {
	v   *viper.Viper
	env string
}

var _ Provider = (*Config)(nil)

// Load applies, in increasing precedence: defaults, config.properties,
// config-<env>.properties, File, environment, overrides.
func Load(opts LoadOptions) (*Config, error) {
	v := newViper()
	setDefaults(v)
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	dir := opts.Dir
	if dir == "" {
		dir = "."
	}
	if err := mergeConfigFile(v, filepath.Join(dir, "config.properties")); err != nil {
		return nil, err
	}
	env := opts.Env
	if env == "" {
		env = v.GetString("env")
	}
	if env == "" {
		env = "local"
	}
	if err := mergeConfigFile(v, filepath.Join(dir, "config-"+env+".properties")); err != nil {
		return nil, err
	}
	if opts.File != "" {
		if _, err := os.Stat(opts.File); err != nil {
			return nil, fmt.Errorf("config %s: %w", opts.File, err)
		}
		if err := mergeConfigFile(v, opts.File); err != nil {
			return nil, err
		}
	}
	for k, val := range opts.Overrides {
		v.Set(k, val)
	}
	v.Set("env", env)
	return &Config{v: v, env: env}, nil
}

// New returns a Config holding only the defaults and values. It is meant
// for tests and embedding.
func New(values map[string]string) *Config {
	v := newViper()
	setDefaults(v)
	for k, val := range values {
		v.Set(k, val)
	}
	return &Config{v: v, env: v.GetString("env")}
}

// mergeConfigFile merges a properties file if it exists.
func mergeConfigFile(v *viper.Viper, path string) error {
	info, err := os.Stat(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil
		}
		return fmt.Errorf("stat config %s: %w", path, err)
	}
	if info.IsDir() {
		return fmt.Errorf("config path %s is a directory", path)
	}
	v.SetConfigFile(path)
	v.SetConfigType(configType(path))
	if err := v.MergeInConfig(); err != nil {
		return fmt.Errorf("merge config %s: %w", path, err)
	}
	return nil
}

func configType(path string) string {
	switch ext := strings.TrimPrefix(filepath.Ext(path), "."); ext {
	case "yaml", "yml", "json", "toml":
		return ext
	default:
		return "properties"
	}
}

// ParseOverrides parses key=value pairs as given to --set.
func ParseOverrides(pairs []string) (map[string]string, error) {
	out := make(map[string]string, len(pairs))
	for _, p := range pairs {
		k, val, ok := strings.Cut(p, "=")
		k = strings.TrimSpace(k)
		if !ok || k == "" {
			return nil, fmt.Errorf("invalid override %q: want key=value", p)
		}
		out[k] = strings.TrimSpace(val)
	}
	return out, nil
}

// Env returns the selected environment name.
func (c *Config) Env() string { return c.env }

func (c *Config) raw(key string) (string, bool) {
	if !c.v.IsSet(key) {
		return "", false
	}
	s := strings.TrimSpace(c.v.GetString(key))
	return s, s != ""
}

func (c *Config) Get(key, def string) string {
	if s, ok := c.raw(key); ok {
		return s
	}
	return def
}

func (c *Config) GetInt(key string, def int) int {
	s, ok := c.raw(key)
	if !ok {
		return def
	}
	n, err := strconv.Atoi(s)
	if err != nil {
		return def
	}
	return n
}

func (c *Config) GetBool(key string, def bool) bool {
	s, ok := c.raw(key)
	if !ok {
		return def
	}
	b, err := strconv.ParseBool(s)
	if err != nil {
		return def
	}
	return b
}

func (c *Config) GetDuration(key string, def time.Duration) time.Duration {
	s, ok := c.raw(key)
	if !ok {
		return def
	}
	if d, err := time.ParseDuration(s); err == nil {
		return d
	}
	if f, err := strconv.ParseFloat(s, 64); err == nil && f >= 0 {
		return time.Duration(f * float64(time.Second))
	}
	return def
}

// Keys lists every key with a value, sorted.
func (c *Config) Keys() []string {
	keys := c.v.AllKeys()
	sort.Strings(keys)
	return keys
}
