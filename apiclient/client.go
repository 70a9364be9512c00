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

// Package apiclient talks to the plant microservices, real or mocked, over
// their HTTP and websocket APIs.
package apiclient

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/charmbracelet/log"

	"github.com/ttbt-io/masterprobe/backend"
	"github.com/ttbt-io/masterprobe/config"
)

// Endpoints maps a service name to its base URL. Service paths are appended
// to the base, e.g. <opcua>/api/connection/status.
type Endpoints map[string]string

// Admin is the key of the mock server's admin base URL.
const Admin = "admin"

// MockEndpoints returns the endpoints of a mock server listening at root.
func MockEndpoints(root string) Endpoints {
	root = strings.TrimSuffix(root, "/")
	e := Endpoints{Admin: root}
	for _, svc := range backend.Services {
		e[svc] = root + "/" + svc
	}
	return e
}

// EndpointsFrom returns the endpoints of the real services in s.
func EndpointsFrom(s config.Services) Endpoints {
	return Endpoints{
		backend.ServiceRegistry: strings.TrimSuffix(s.RegistryURL, "/"),
		backend.ServiceOpcua:    strings.TrimSuffix(s.OpcuaURL, "/"),
		backend.ServiceRead:     strings.TrimSuffix(s.ReadDataURL, "/"),
		backend.ServiceKafka:    strings.TrimSuffix(s.KafkaURL, "/"),
		backend.ServiceWrite:    strings.TrimSuffix(s.WriteDataURL, "/"),
	}
}

// Options configure a Client.
type Options struct {
	Endpoints Endpoints
	// Timeout bounds every request. Defaults to 10s.
	Timeout time.Duration
	// Token is sent as a bearer token on write calls.
	Token  string
	Logger *log.Logger
}

// Client calls the microservices. A Client is not meant to be shared between
// goroutines; CheckAll gives each worker its own.
type Client struct {
	opts   Options
	http   *http.Client
	logger *log.Logger
}

func New(opts Options) *Client {
	if opts.Timeout <= 0 {
		opts.Timeout = 10 * time.Second
	}
	logger := opts.Logger
	if logger == nil {
		logger = log.New(io.Discard)
	}
	return &Client{
		opts:   opts,
		http:   &http.Client{Timeout: opts.Timeout},
		logger: logger,
	}
}

// clone returns a client with the same options and its own http.Client.
func (c *Client) clone() *Client {
	return New(c.opts)
}

// StatusError is returned for non-2xx responses.
type StatusError struct {
	Code    int
	Message string
}

func (e *StatusError) Error() string {
	if e.Message == "" {
		return fmt.Sprintf("http status %d", e.Code)
	}
	return fmt.Sprintf("http status %d: %s", e.Code, e.Message)
}

func (c *Client) url(svc, path string, query url.Values) (string, error) {
	base, ok := c.opts.Endpoints[svc]
	if !ok || base == "" {
		return "", fmt.Errorf("no endpoint for service %q", svc)
	}
	u := base + path
	if len(query) > 0 {
		u += "?" + query.Encode()
	}
	return u, nil
}

func (c *Client) do(ctx context.Context, method, svc, path string, query url.Values, body, out any) error {
	u, err := c.url(svc, path, query)
	if err != nil {
		return err
	}
	var rd io.Reader
	if body != nil {
		b, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("json.Marshal: %w", err)
		}
		rd = bytes.NewReader(b)
	}
	req, err := http.NewRequestWithContext(ctx, method, u, rd)
	if err != nil {
		return err
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if svc == backend.ServiceWrite && c.opts.Token != "" {
		req.Header.Set("Authorization", "Bearer "+c.opts.Token)
	}
	start := time.Now()
	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("%s %s: %w", method, u, err)
	}
	defer resp.Body.Close()
	c.logger.Debug("api call", "method", method, "url", u, "status", resp.StatusCode, "elapsed", time.Since(start))

	data, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return fmt.Errorf("%s %s: %w", method, u, err)
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		var e struct {
			Error string `json:"error"`
		}
		json.Unmarshal(data, &e)
		return &StatusError{Code: resp.StatusCode, Message: e.Error}
	}
	if out == nil {
		return nil
	}
	if err := json.Unmarshal(data, out); err != nil {
		return fmt.Errorf("%s %s: decode: %w", method, u, err)
	}
	return nil
}

// Health is an actuator health report.
type Health struct {
	Status     string `json:"status"`
	Timestamp  int64  `json:"timestamp"`
	Components map[string]struct {
		Status string `json:"status"`
	} `json:"components"`
}

// Health fetches the actuator health of svc. A DOWN service returns its
// report along with a *StatusError.
func (c *Client) Health(ctx context.Context, svc string) (Health, error) {
	var h Health
	err := c.do(ctx, http.MethodGet, svc, "/actuator/health", nil, nil, &h)
	var se *StatusError
	if errors.As(err, &se) && se.Code == http.StatusServiceUnavailable {
		h.Status = backend.StatusDown
	}
	return h, err
}

// Apps lists the applications known to the service registry.
func (c *Client) Apps(ctx context.Context) (map[string]any, error) {
	var out map[string]any
	err := c.do(ctx, http.MethodGet, backend.ServiceRegistry, "/apps", nil, nil, &out)
	return out, err
}

// SetStatus switches a mock service UP or DOWN.
func (c *Client) SetStatus(ctx context.Context, svc, status string) error {
	return c.do(ctx, http.MethodPost, Admin, "/admin/status", nil,
		map[string]string{"service": svc, "status": status}, nil)
}
