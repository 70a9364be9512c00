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

package backend

import (
	"net/http"
	"strings"
	"sync"
	"time"
)

const LatencyBuckets = 101
const LatencyBucketSize = 5 * time.Millisecond

// Histogram counts request latencies in fixed buckets; the last bucket
// collects everything slower.
type Histogram struct {
	Buckets [LatencyBuckets]uint64 `json:"b"`
	Count   uint64                 `json:"c"`
	Sum     float64                `json:"s"` // Sum of durations in milliseconds
}

func (h *Histogram) Add(d time.Duration) {
	ms := float64(d) / float64(time.Millisecond)
	idx := int(d / LatencyBucketSize)
	if idx >= LatencyBuckets {
		idx = LatencyBuckets - 1
	}
	if idx < 0 {
		idx = 0
	}
	h.Buckets[idx]++
	h.Count++
	h.Sum += ms
}

func (h *Histogram) Merge(other *Histogram) {
	if other == nil {
		return
	}
	for i := 0; i < LatencyBuckets; i++ {
		h.Buckets[i] += other.Buckets[i]
	}
	h.Count += other.Count
	h.Sum += other.Sum
}

// Percentile returns the upper bound of the bucket holding the p-th
// percentile, 0 <= p <= 100.
func (h *Histogram) Percentile(p float64) time.Duration {
	if h.Count == 0 {
		return 0
	}
	rank := uint64(float64(h.Count)*p/100 + 0.5)
	if rank < 1 {
		rank = 1
	}
	var seen uint64
	for i, n := range h.Buckets {
		seen += n
		if seen >= rank {
			return time.Duration(i+1) * LatencyBucketSize
		}
	}
	return LatencyBuckets * LatencyBucketSize
}

// ServiceMetric is the per-service request summary served by /admin/metrics.
type ServiceMetric struct {
	Requests uint64    `json:"requests"`
	Errors   uint64    `json:"errors"`
	AvgMS    float64   `json:"avgMs"`
	P95MS    int64     `json:"p95Ms"`
	Latency  Histogram `json:"latency"`
}

// Metrics accumulates request statistics per service prefix.
type Metrics struct {
	mu       sync.Mutex
	services map[string]*ServiceMetric
}

func NewMetrics() *Metrics {
	return &Metrics{services: make(map[string]*ServiceMetric)}
}

func (m *Metrics) Observe(service string, status int, d time.Duration) {
	m.mu.Lock()
	defer m.mu.Unlock()
	sm, ok := m.services[service]
	if !ok {
		sm = &ServiceMetric{}
		m.services[service] = sm
	}
	sm.Requests++
	if status >= 500 {
		sm.Errors++
	}
	sm.Latency.Add(d)
}

// Snapshot returns a copy of every service summary.
func (m *Metrics) Snapshot() map[string]ServiceMetric {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make(map[string]ServiceMetric, len(m.services))
	for k, sm := range m.services {
		c := *sm
		if c.Latency.Count > 0 {
			c.AvgMS = c.Latency.Sum / float64(c.Latency.Count)
		}
		c.P95MS = c.Latency.Percentile(95).Milliseconds()
		out[k] = c
	}
	return out
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(code int) {
	r.status = code
	r.ResponseWriter.WriteHeader(code)
}

// Unwrap lets http.ResponseController reach the hijacker for websockets.
func (r *statusRecorder) Unwrap() http.ResponseWriter { return r.ResponseWriter }

// serviceOf maps a request path to its service prefix, or "" for the
// shared endpoints.
func serviceOf(path string) string {
	first, _, _ := strings.Cut(strings.TrimPrefix(path, "/"), "/")
	if validService(first) {
		return strings.ToLower(first)
	}
	return ""
}

// measure records the latency and status of every service request.
func (m *Metrics) measure(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		svc := serviceOf(r.URL.Path)
		if svc == "" || strings.HasSuffix(r.URL.Path, "/stream") {
			next.ServeHTTP(w, r)
			return
		}
		start := time.Now()
		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(rec, r)
		m.Observe(svc, rec.status, time.Since(start))
	})
}
