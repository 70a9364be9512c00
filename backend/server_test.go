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
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/c2FmZQ/storage"
	"github.com/golang-jwt/jwt/v5"
)

func newTestServer(t *testing.T, opts Options) (*Mock, *httptest.Server) {
	t.Helper()
	if opts.Storage == nil {
		opts.Storage = storage.New(t.TempDir(), nil)
	}
	mock, handler, err := NewServerHandler(opts)
	if err != nil {
		t.Fatalf("NewServerHandler: %v", err)
	}
	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)
	return mock, server
}

func doJSON(t *testing.T, method, url string, body any, header http.Header) (int, map[string]any) {
	t.Helper()
	var rd *bytes.Reader
	if body != nil {
		b, err := json.Marshal(body)
		if err != nil {
			t.Fatalf("Marshal: %v", err)
		}
		rd = bytes.NewReader(b)
	} else {
		rd = bytes.NewReader(nil)
	}
	req, err := http.NewRequest(method, url, rd)
	if err != nil {
		t.Fatalf("NewRequest: %v", err)
	}
	req.Header.Set("Content-Type", "application/json")
	for k, v := range header {
		req.Header[k] = v
	}
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("%s %s: %v", method, url, err)
	}
	defer resp.Body.Close()
	var out map[string]any
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		t.Fatalf("%s %s: decode: %v", method, url, err)
	}
	return resp.StatusCode, out
}

func TestServiceHealth(t *testing.T) {
	_, server := newTestServer(t, Options{})

	for _, svc := range Services {
		code, body := doJSON(t, "GET", server.URL+"/"+svc+"/actuator/health", nil, nil)
		if code != http.StatusOK {
			t.Errorf("%s: status code %d", svc, code)
		}
		if body["status"] != StatusUp {
			t.Errorf("%s: status %v", svc, body["status"])
		}
		components, ok := body["components"].(map[string]any)
		if !ok || len(components) != len(serviceComponents[svc]) {
			t.Errorf("%s: components %v", svc, body["components"])
		}
		if _, ok := body["timestamp"].(float64); !ok {
			t.Errorf("%s: missing timestamp", svc)
		}
	}

	_, body := doJSON(t, "GET", server.URL+"/health", nil, nil)
	if body["status"] != StatusUp {
		t.Errorf("Aggregate status %v", body["status"])
	}
}

func TestServiceDown(t *testing.T) {
	mock, server := newTestServer(t, Options{})

	code, _ := doJSON(t, "POST", server.URL+"/admin/status", map[string]string{"service": "kafka", "status": "down"}, nil)
	if code != http.StatusOK {
		t.Fatalf("Set status: %d", code)
	}
	if mock.Status(ServiceKafka) != StatusDown {
		t.Fatalf("Kafka status %q", mock.Status(ServiceKafka))
	}

	code, body := doJSON(t, "GET", server.URL+"/kafka/actuator/health", nil, nil)
	if code != http.StatusServiceUnavailable || body["status"] != StatusDown {
		t.Errorf("Down health: %d %v", code, body)
	}
	code, _ = doJSON(t, "POST", server.URL+"/kafka/api/process-value", map[string]any{"value": 1}, nil)
	if code != http.StatusServiceUnavailable {
		t.Errorf("Down API: %d", code)
	}
	_, body = doJSON(t, "GET", server.URL+"/health", nil, nil)
	if body["status"] != StatusDown {
		t.Errorf("Aggregate status %v", body["status"])
	}
	code, _ = doJSON(t, "GET", server.URL+"/opcua/api/connection/status", nil, nil)
	if code != http.StatusOK {
		t.Errorf("Other services must stay up: %d", code)
	}

	code, _ = doJSON(t, "POST", server.URL+"/admin/status", map[string]string{"service": "nope", "status": "UP"}, nil)
	if code != http.StatusBadRequest {
		t.Errorf("Unknown service: %d", code)
	}
	if err := mock.SetStatus(ServiceKafka, "sideways"); err == nil {
		t.Errorf("Invalid status accepted")
	}
}

func TestOpcuaConnection(t *testing.T) {
	_, server := newTestServer(t, Options{})

	_, body := doJSON(t, "GET", server.URL+"/opcua/api/connection/init", nil, nil)
	if body["status"] != ResultSuccess {
		t.Errorf("Init: %v", body)
	}
	_, first := doJSON(t, "GET", server.URL+"/opcua/api/connection/connect", nil, nil)
	_, second := doJSON(t, "POST", server.URL+"/opcua/api/connect", map[string]string{"serverUrl": "opc.tcp://plc:4840"}, nil)
	if first["connectionId"] == "" || first["connectionId"] == second["connectionId"] {
		t.Errorf("Connection IDs %v %v", first["connectionId"], second["connectionId"])
	}
	_, status := doJSON(t, "GET", server.URL+"/opcua/api/connection/status", nil, nil)
	if status["status"] != "Connected" || status["connectionId"] != second["connectionId"] {
		t.Errorf("Status: %v", status)
	}
	code, _ := doJSON(t, "POST", server.URL+"/opcua/api/connect", nil, nil)
	if code != http.StatusBadRequest {
		t.Errorf("Empty body: %d", code)
	}
}

func TestReadWrite(t *testing.T) {
	now := time.UnixMilli(1700000000000)
	s := storage.New(t.TempDir(), nil)
	_, server := newTestServer(t, Options{Storage: s, Now: func() time.Time { return now }})
	node := `ns=3;s="WMS_To_PLC"`

	_, body := doJSON(t, "GET", server.URL+"/read/api/read/readValue?nodeId="+urlQuery(node), nil, nil)
	if body["value"] != "mock-value-1700000000000" || body["quality"] != QualityGood {
		t.Errorf("Unwritten read: %v", body)
	}

	code, body := doJSON(t, "POST", server.URL+"/write/api/write/write-node", map[string]any{"nodeId": node, "value": "PV-1"}, nil)
	if code != http.StatusOK || body["message"] != "Data written successfully" {
		t.Fatalf("Write: %d %v", code, body)
	}

	for _, path := range []string{"/read/api/read/readValue", "/read/api/read/read-node", "/read/api/read/read-node2"} {
		_, body = doJSON(t, "GET", server.URL+path+"?nodeId="+urlQuery(node), nil, nil)
		if body["value"] != "PV-1" {
			t.Errorf("%s: %v", path, body)
		}
	}
	_, body = doJSON(t, "POST", server.URL+"/read/api/read-node", map[string]string{"nodeId": node}, nil)
	if body["value"] != "PV-1" {
		t.Errorf("POST read-node: %v", body)
	}

	code, _ = doJSON(t, "GET", server.URL+"/read/api/read/readValue", nil, nil)
	if code != http.StatusBadRequest {
		t.Errorf("Missing nodeId: %d", code)
	}
	code, _ = doJSON(t, "POST", server.URL+"/write/api/write-node", map[string]any{"nodeId": "bogus", "value": 1}, nil)
	if code != http.StatusBadRequest {
		t.Errorf("Invalid nodeId: %d", code)
	}
	code, _ = doJSON(t, "POST", server.URL+"/write/api/write-node", map[string]any{"nodeId": node}, nil)
	if code != http.StatusBadRequest {
		t.Errorf("Missing value: %d", code)
	}

	// Values survive a restart on the same storage.
	_, server2 := newTestServer(t, Options{Storage: s})
	_, body = doJSON(t, "GET", server2.URL+"/read/api/read/read-node?nodeId="+urlQuery(node), nil, nil)
	if body["value"] != "PV-1" {
		t.Errorf("After restart: %v", body)
	}
}

func TestBrowse(t *testing.T) {
	mock, server := newTestServer(t, Options{})
	if _, err := mock.Nodes.Write("ns=2;s=Line1.Speed", 42.0); err != nil {
		t.Fatalf("Write: %v", err)
	}
	_, body := doJSON(t, "GET", server.URL+"/read/api/read/browse", nil, nil)
	if body["startingNode"] != DefaultStartingNode {
		t.Errorf("Starting node %v", body["startingNode"])
	}
	tags, _ := body["tags"].([]any)
	if len(tags) != len(defaultTags)+1 {
		t.Fatalf("Tags %v", tags)
	}
	last, _ := tags[len(tags)-1].(map[string]any)
	if last["nodeId"] != "ns=2;s=Line1.Speed" || last["type"] != "Double" {
		t.Errorf("Written tag %v", last)
	}

	_, body = doJSON(t, "GET", server.URL+"/read/api/read/browse?startingNodeParam=ns%3D3%3Bs%3DDataBlocksGlobal", nil, nil)
	if body["startingNode"] != "ns=3;s=DataBlocksGlobal" {
		t.Errorf("Starting node %v", body["startingNode"])
	}
}

func TestKafka(t *testing.T) {
	_, server := newTestServer(t, Options{})

	_, body := doJSON(t, "POST", server.URL+"/kafka/api/kafkaBrowse/hasChanged", map[string]any{"previous": "a", "current": "a"}, nil)
	if body["hasChanged"] != false {
		t.Errorf("Same values: %v", body)
	}
	_, body = doJSON(t, "POST", server.URL+"/kafka/api/kafkaBrowse/hasChanged", map[string]any{"previous": "a", "current": "b"}, nil)
	if body["hasChanged"] != true {
		t.Errorf("Different values: %v", body)
	}

	_, body = doJSON(t, "POST", server.URL+"/kafka/api/opcUaValueConverter/convertValue?variant=Int32", nil, nil)
	if body["convertedValue"] != "converted-Int32" || body["originalVariant"] != "Int32" {
		t.Errorf("convertValue: %v", body)
	}
	_, body = doJSON(t, "POST", server.URL+"/kafka/api/opcUaValueConverter/convertDataValue?originalValue=7", nil, nil)
	if body["convertedValue"] != "converted-7" {
		t.Errorf("convertDataValue: %v", body)
	}
	code, _ := doJSON(t, "POST", server.URL+"/kafka/api/opcUaValueConverter/convertValue", nil, nil)
	if code != http.StatusBadRequest {
		t.Errorf("Missing variant: %d", code)
	}

	_, body = doJSON(t, "POST", server.URL+"/kafka/api/process-value", map[string]any{"value": "x"}, nil)
	if body["processedValue"] != "processed-x" {
		t.Errorf("process-value: %v", body)
	}
	_, body = doJSON(t, "POST", server.URL+"/kafka/api/kafkaBrowse/processBrowseData", map[string]any{"nodeId": "n", "browseData": []string{"a"}}, nil)
	if body["message"] != "Browse data processed successfully" {
		t.Errorf("processBrowseData: %v", body)
	}
}

func TestWriteAuth(t *testing.T) {
	_, server := newTestServer(t, Options{AuthSecret: "s3cret"})
	node := "ns=2;i=42"
	body := map[string]any{"nodeId": node, "value": true}

	code, _ := doJSON(t, "POST", server.URL+"/write/api/write-node", body, nil)
	if code != http.StatusUnauthorized {
		t.Errorf("No token: %d", code)
	}

	sign := func(secret string, exp time.Time) http.Header {
		tok, err := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.RegisteredClaims{
			Subject:   "probe",
			ExpiresAt: jwt.NewNumericDate(exp),
		}).SignedString([]byte(secret))
		if err != nil {
			t.Fatalf("SignedString: %v", err)
		}
		return http.Header{"Authorization": {"Bearer " + tok}}
	}

	code, _ = doJSON(t, "POST", server.URL+"/write/api/write-node", body, sign("wrong", time.Now().Add(time.Minute)))
	if code != http.StatusUnauthorized {
		t.Errorf("Wrong secret: %d", code)
	}
	code, _ = doJSON(t, "POST", server.URL+"/write/api/write-node", body, sign("s3cret", time.Now().Add(-time.Minute)))
	if code != http.StatusUnauthorized {
		t.Errorf("Expired: %d", code)
	}
	code, resp := doJSON(t, "POST", server.URL+"/write/api/write-node", body, sign("s3cret", time.Now().Add(time.Minute)))
	if code != http.StatusOK || resp["value"] != true {
		t.Errorf("Valid token: %d %v", code, resp)
	}

	// Reads stay open.
	code, _ = doJSON(t, "GET", server.URL+"/read/api/read/read-node?nodeId="+urlQuery(node), nil, nil)
	if code != http.StatusOK {
		t.Errorf("Read with auth enabled: %d", code)
	}
}

func TestMetrics(t *testing.T) {
	mock, server := newTestServer(t, Options{})
	doJSON(t, "GET", server.URL+"/opcua/api/connection/init", nil, nil)
	doJSON(t, "GET", server.URL+"/opcua/api/connection/init", nil, nil)
	doJSON(t, "GET", server.URL+"/read/api/read/readValue", nil, nil)

	snap := mock.Metrics.Snapshot()
	if snap[ServiceOpcua].Requests != 2 {
		t.Errorf("OPC UA requests %d", snap[ServiceOpcua].Requests)
	}
	if snap[ServiceRead].Requests != 1 || snap[ServiceRead].Errors != 0 {
		t.Errorf("Read metric %+v", snap[ServiceRead])
	}

	_, body := doJSON(t, "GET", server.URL+"/admin/metrics", nil, nil)
	if _, ok := body[ServiceOpcua]; !ok {
		t.Errorf("Metrics endpoint: %v", body)
	}
}

func TestHistogramPercentile(t *testing.T) {
	var h Histogram
	if h.Percentile(95) != 0 {
		t.Errorf("Empty histogram")
	}
	for i := 0; i < 95; i++ {
		h.Add(time.Millisecond)
	}
	for i := 0; i < 5; i++ {
		h.Add(time.Hour)
	}
	if got := h.Percentile(50); got != LatencyBucketSize {
		t.Errorf("p50 = %v", got)
	}
	if got := h.Percentile(100); got != LatencyBuckets*LatencyBucketSize {
		t.Errorf("p100 = %v", got)
	}
	var other Histogram
	other.Add(time.Millisecond)
	h.Merge(&other)
	if h.Count != 101 {
		t.Errorf("Count after merge %d", h.Count)
	}
}

func TestValidateNodeID(t *testing.T) {
	for _, id := range []string{`ns=3;s="PLC_To_WMS"`, "ns=2;i=42", "ns=0;g=abc"} {
		if err := validateNodeID(id); err != nil {
			t.Errorf("%s: %v", id, err)
		}
	}
	for _, id := range []string{"", "bogus", "ns=x;s=a", "ns=1;s="} {
		if err := validateNodeID(id); err == nil {
			t.Errorf("%q accepted", id)
		}
	}
	if err := validateValue(strings.Repeat("x", maxValueLen+1)); err == nil {
		t.Errorf("Oversized value accepted")
	}
	if err := validateValue(map[string]any{}); err == nil {
		t.Errorf("Object value accepted")
	}
}

func urlQuery(s string) string {
	r := strings.NewReplacer("%", "%25", "&", "%26", "+", "%2B", ";", "%3B", "=", "%3D", `"`, "%22", " ", "%20", "#", "%23")
	return r.Replace(s)
}
