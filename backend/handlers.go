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
	"fmt"
	"net/http"
	"reflect"
	"strings"

	"github.com/google/uuid"
)

func (m *Mock) handleServiceHealth(svc string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		status := m.Status(svc)
		components := make(map[string]any, len(serviceComponents[svc]))
		for _, c := range serviceComponents[svc] {
			components[c] = map[string]string{"status": status}
		}
		code := http.StatusOK
		if status != StatusUp {
			code = http.StatusServiceUnavailable
		}
		writeJSON(w, code, map[string]any{
			"status":     status,
			"timestamp":  m.millis(),
			"components": components,
		})
	}
}

func (m *Mock) handleHealth(w http.ResponseWriter, r *http.Request) {
	services := m.statuses()
	overall := StatusUp
	for _, s := range services {
		if s != StatusUp {
			overall = StatusDown
		}
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"status":    overall,
		"timestamp": m.millis(),
		"services":  services,
	})
}

func (m *Mock) handleGetStatus(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, m.statuses())
}

func (m *Mock) handleSetStatus(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Service string `json:"service"`
		Status  string `json:"status"`
	}
	if !decodeJSON(w, r, &req) {
		return
	}
	if err := m.SetStatus(req.Service, req.Status); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	m.debugf("service %s is now %s", req.Service, strings.ToUpper(req.Status))
	writeJSON(w, http.StatusOK, m.statuses())
}

func (m *Mock) handleEurekaApps(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"applications": map[string]any{
			"versions__delta": "1",
			"apps__hashcode":  "UP_1_",
			"application":     []any{},
		},
	})
}

func (m *Mock) handleConnectionStatus(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"status":       "Connected",
		"timestamp":    m.millis(),
		"connectionId": m.connection(),
	})
}

func (m *Mock) handleConnectionInit(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"status":    ResultSuccess,
		"message":   "OPC UA connection initialized",
		"timestamp": m.millis(),
	})
}

func (m *Mock) connected(w http.ResponseWriter) {
	writeJSON(w, http.StatusOK, map[string]any{
		"status":       ResultSuccess,
		"message":      "OPC UA connection established",
		"connectionId": m.connect(),
		"timestamp":    m.millis(),
	})
}

func (m *Mock) handleConnect(w http.ResponseWriter, r *http.Request) {
	m.connected(w)
}

func (m *Mock) handleConnectPost(w http.ResponseWriter, r *http.Request) {
	var req map[string]any
	if !decodeJSON(w, r, &req) {
		return
	}
	m.debugf("connect request: %v", req)
	m.connected(w)
}

func (m *Mock) handleBrowse(w http.ResponseWriter, r *http.Request) {
	start := r.URL.Query().Get("startingNodeParam")
	if start == "" {
		start = DefaultStartingNode
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"status":       ResultSuccess,
		"startingNode": start,
		"tags":         m.Nodes.Browse(),
		"timestamp":    m.millis(),
	})
}

func (m *Mock) writeNode(w http.ResponseWriter, n NodeValue) {
	writeJSON(w, http.StatusOK, map[string]any{
		"status":    ResultSuccess,
		"nodeId":    n.NodeID,
		"value":     n.Value,
		"timestamp": n.Timestamp,
		"quality":   n.Quality,
	})
}

func (m *Mock) handleReadQuery(w http.ResponseWriter, r *http.Request) {
	id := r.URL.Query().Get("nodeId")
	if err := validateNodeID(id); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	m.writeNode(w, m.Nodes.Read(id))
}

func (m *Mock) handleReadPost(w http.ResponseWriter, r *http.Request) {
	var req struct {
		NodeID string `json:"nodeId"`
	}
	if !decodeJSON(w, r, &req) {
		return
	}
	if err := validateNodeID(req.NodeID); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	m.writeNode(w, m.Nodes.Read(req.NodeID))
}

func (m *Mock) handleSubscribe(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"status":         ResultSuccess,
		"message":        "Successfully subscribed to data updates",
		"subscriptionId": "mock-subscription-" + uuid.New().String(),
		"streamPath":     "/read/api/read/stream",
		"timestamp":      m.millis(),
	})
}

func (m *Mock) handleProcessBrowseData(w http.ResponseWriter, r *http.Request) {
	var req struct {
		NodeID     string `json:"nodeId"`
		BrowseData any    `json:"browseData"`
	}
	if !decodeJSON(w, r, &req) {
		return
	}
	if req.NodeID == "" {
		writeError(w, http.StatusBadRequest, "nodeId is required")
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"status":      ResultSuccess,
		"nodeId":      req.NodeID,
		"browseData":  req.BrowseData,
		"processedAt": m.millis(),
		"message":     "Browse data processed successfully",
	})
}

func (m *Mock) handleHasChanged(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Previous any `json:"previous"`
		Current  any `json:"current"`
	}
	if !decodeJSON(w, r, &req) {
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"status":     ResultSuccess,
		"hasChanged": !reflect.DeepEqual(req.Previous, req.Current),
		"previous":   req.Previous,
		"current":    req.Current,
		"timestamp":  m.millis(),
	})
}

// handleConvert echoes the query parameter param under key with a
// converted copy.
func (m *Mock) handleConvert(param, key string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		v := r.URL.Query().Get(param)
		if v == "" {
			writeError(w, http.StatusBadRequest, param+" is required")
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{
			"status":         ResultSuccess,
			key:              v,
			"convertedValue": "converted-" + v,
			"timestamp":      m.millis(),
		})
	}
}

func (m *Mock) handleProcessValue(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Value any `json:"value"`
	}
	if !decodeJSON(w, r, &req) {
		return
	}
	if req.Value == nil {
		writeError(w, http.StatusBadRequest, "value is required")
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"status":         ResultSuccess,
		"originalValue":  req.Value,
		"processedValue": fmt.Sprintf("processed-%v", req.Value),
		"timestamp":      m.millis(),
	})
}

func (m *Mock) handleWrite(w http.ResponseWriter, r *http.Request) {
	var req struct {
		NodeID string `json:"nodeId"`
		Value  any    `json:"value"`
	}
	if !decodeJSON(w, r, &req) {
		return
	}
	if err := validateNodeID(req.NodeID); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	if err := validateValue(req.Value); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	n, err := m.Nodes.Write(req.NodeID, req.Value)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	m.debugf("node %s written by %q", n.NodeID, getSubject(r))
	writeJSON(w, http.StatusOK, map[string]any{
		"status":    ResultSuccess,
		"nodeId":    n.NodeID,
		"value":     n.Value,
		"timestamp": n.Timestamp,
		"message":   "Data written successfully",
	})
}
