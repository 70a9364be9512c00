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

// Package backend is a mock of the plant microservices (service registry,
// OPC UA connection, read data, Kafka processing and write data) served from
// one HTTP server under per-service path prefixes.
package backend

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"net"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/c2FmZQ/storage"
	"github.com/google/uuid"
)

// Options represent server options.
type Options struct {
	Addr     string
	Listener net.Listener
	Debug    bool
	// Storage persists written node values. Defaults to an unencrypted
	// store in DataDir.
	Storage *storage.Storage
	DataDir string
	// AuthSecret, when set, requires HS256 bearer tokens on write endpoints.
	AuthSecret string
	Now        func() time.Time
}

// Mock holds the state shared by the service handlers.
type Mock struct {
	Nodes   *NodeStore
	Hub     *Hub
	Metrics *Metrics

	now    func() time.Time
	debugf func(string, ...any)

	mu           sync.RWMutex
	status       map[string]string
	connectionID string
}

// SetStatus switches a service UP or DOWN. A DOWN service fails its health
// check and every API call with 503.
func (m *Mock) SetStatus(service, status string) error {
	service = strings.ToLower(service)
	if !validService(service) {
		return fmt.Errorf("unknown service %q", service)
	}
	status = strings.ToUpper(status)
	if status != StatusUp && status != StatusDown {
		return fmt.Errorf("invalid status %q", status)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.status[service] = status
	return nil
}

// Status returns the status of service.
func (m *Mock) Status(service string) string {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.status[service]
}

func (m *Mock) statuses() map[string]string {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make(map[string]string, len(m.status))
	for k, v := range m.status {
		out[k] = v
	}
	return out
}

func (m *Mock) connect() string {
	id := uuid.New().String()
	m.mu.Lock()
	m.connectionID = id
	m.mu.Unlock()
	return id
}

func (m *Mock) connection() string {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.connectionID
}

func (m *Mock) millis() int64 { return m.now().UnixMilli() }

// Server represents the running server instance.
type Server struct {
	httpServer *http.Server
	listener   net.Listener
	mock       *Mock
}

// Mock returns the state behind the handlers, e.g. to toggle services.
func (s *Server) Mock() *Mock { return s.mock }

// URL returns the base URL of the server.
func (s *Server) URL() string { return "http://" + s.listener.Addr().String() }

// Shutdown closes the stream clients and gracefully stops the HTTP server.
func (s *Server) Shutdown(ctx context.Context) error {
	s.mock.Hub.closeAll()
	if err := s.httpServer.Shutdown(ctx); err != nil {
		return fmt.Errorf("shutdown errors: http: %v", err)
	}
	return nil
}

// StartServer starts the mock server and registers the service handlers.
func StartServer(opts Options) (*Server, error) {
	mock, handler, err := NewServerHandler(opts)
	if err != nil {
		return nil, err
	}

	ln := opts.Listener
	if ln == nil {
		if ln, err = net.Listen("tcp", opts.Addr); err != nil {
			return nil, fmt.Errorf("listen %s: %w", opts.Addr, err)
		}
	}
	httpServer := &http.Server{
		Handler:           handler,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		log.Printf("Mock services listening on %s", ln.Addr())
		err := httpServer.Serve(ln)
		if err != nil && !errors.Is(err, net.ErrClosed) && err != http.ErrServerClosed {
			log.Printf("Server error: %v", err)
		}
	}()

	return &Server{httpServer: httpServer, listener: ln, mock: mock}, nil
}

// NewServerHandler creates and configures the HTTP handler for the server.
func NewServerHandler(opts Options) (*Mock, http.Handler, error) {
	if opts.DataDir == "" {
		opts.DataDir = "data"
	}
	if opts.Storage == nil {
		opts.Storage = storage.New(opts.DataDir, nil)
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}

	debugf := func(string, ...any) {}
	if opts.Debug {
		debugf = func(f string, a ...any) {
			log.Printf("[DEBUG BACKEND] "+f, a...)
		}
	}

	nodes, err := NewNodeStore(opts.Storage, opts.Now)
	if err != nil {
		return nil, nil, err
	}
	m := &Mock{
		Nodes:   nodes,
		Hub:     NewHub(debugf),
		Metrics: NewMetrics(),
		now:     opts.Now,
		debugf:  debugf,
		status:  make(map[string]string, len(Services)),
	}
	for _, s := range Services {
		m.status[s] = StatusUp
	}
	m.connectionID = uuid.New().String()
	nodes.onWrite = m.Hub.Broadcast

	mux := http.NewServeMux()

	// Health
	for _, svc := range Services {
		mux.HandleFunc("GET /"+svc+"/actuator/health", m.handleServiceHealth(svc))
	}
	mux.HandleFunc("GET /health", m.handleHealth)
	mux.HandleFunc("GET /admin/status", m.handleGetStatus)
	mux.HandleFunc("POST /admin/status", m.handleSetStatus)
	mux.HandleFunc("GET /admin/metrics", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, m.Metrics.Snapshot())
	})

	// Service registry
	mux.HandleFunc("GET /eureka/apps", m.handleEurekaApps)

	// OPC UA connection
	mux.HandleFunc("GET /opcua/api/connection/status", m.handleConnectionStatus)
	mux.HandleFunc("GET /opcua/api/connection/init", m.handleConnectionInit)
	mux.HandleFunc("GET /opcua/api/connection/connect", m.handleConnect)
	mux.HandleFunc("POST /opcua/api/connect", m.handleConnectPost)

	// Read data
	mux.HandleFunc("GET /read/api/read/browse", m.handleBrowse)
	mux.HandleFunc("GET /read/api/read/readValue", m.handleReadQuery)
	mux.HandleFunc("GET /read/api/read/read-node", m.handleReadQuery)
	mux.HandleFunc("GET /read/api/read/read-node2", m.handleReadQuery)
	mux.HandleFunc("POST /read/api/read-node", m.handleReadPost)
	mux.HandleFunc("GET /read/api/read/subscribeToData", m.handleSubscribe)
	mux.HandleFunc("GET /read/api/read/stream", m.Hub.serveStream)

	// Kafka processing
	mux.HandleFunc("POST /kafka/api/kafkaBrowse/processBrowseData", m.handleProcessBrowseData)
	mux.HandleFunc("POST /kafka/api/kafkaBrowse/hasChanged", m.handleHasChanged)
	mux.HandleFunc("POST /kafka/api/opcUaValueConverter/convertValue", m.handleConvert("variant", "originalVariant"))
	mux.HandleFunc("POST /kafka/api/opcUaValueConverter/convertDataValue", m.handleConvert("originalValue", "originalValue"))
	mux.HandleFunc("POST /kafka/api/process-value", m.handleProcessValue)

	// Write data
	write := bearerAuthMiddleware(opts, http.HandlerFunc(m.handleWrite))
	mux.Handle("POST /write/api/write/write-node", write)
	mux.Handle("POST /write/api/write-node", write)

	var handler http.Handler = mux
	handler = m.availability(handler)
	handler = m.Metrics.measure(handler)
	handler = logRequests(debugf, handler)
	return m, handler, nil
}

// availability rejects calls to services switched DOWN. Health endpoints
// still answer so the state is observable.
func (m *Mock) availability(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		svc := serviceOf(r.URL.Path)
		if svc != "" && !strings.HasSuffix(r.URL.Path, "/actuator/health") && m.Status(svc) == StatusDown {
			writeError(w, http.StatusServiceUnavailable, svc+" is down")
			return
		}
		next.ServeHTTP(w, r)
	})
}

func logRequests(debugf func(string, ...any), next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		debugf("%s %s", r.Method, r.URL.RequestURI())
		next.ServeHTTP(w, r)
	})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.Printf("Failed to encode response: %v", err)
	}
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]any{
		"status":    ResultError,
		"error":     msg,
		"timestamp": time.Now().UnixMilli(),
	})
}

// decodeJSON reads a JSON object body of at most 1 MiB.
func decodeJSON(w http.ResponseWriter, r *http.Request, v any) bool {
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, 1048576)).Decode(v); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return false
	}
	return true
}
