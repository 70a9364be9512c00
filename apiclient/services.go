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

package apiclient

import (
	"context"
	"net/http"
	"net/url"

	"github.com/ttbt-io/masterprobe/backend"
)

// Connection is the state of the OPC UA connection.
type Connection struct {
	Status       string `json:"status"`
	Message      string `json:"message"`
	ConnectionID string `json:"connectionId"`
	Timestamp    int64  `json:"timestamp"`
}

func (c *Client) ConnectionStatus(ctx context.Context) (Connection, error) {
	var out Connection
	err := c.do(ctx, http.MethodGet, backend.ServiceOpcua, "/api/connection/status", nil, nil, &out)
	return out, err
}

func (c *Client) InitConnection(ctx context.Context) (Connection, error) {
	var out Connection
	err := c.do(ctx, http.MethodGet, backend.ServiceOpcua, "/api/connection/init", nil, nil, &out)
	return out, err
}

// Connect opens a connection to the default OPC UA server, or to serverURL
// when it is set.
func (c *Client) Connect(ctx context.Context, serverURL string) (Connection, error) {
	var out Connection
	if serverURL == "" {
		err := c.do(ctx, http.MethodGet, backend.ServiceOpcua, "/api/connection/connect", nil, nil, &out)
		return out, err
	}
	err := c.do(ctx, http.MethodPost, backend.ServiceOpcua, "/api/connect", nil,
		map[string]string{"serverUrl": serverURL}, &out)
	return out, err
}

// BrowseResult lists the tags below a starting node.
type BrowseResult struct {
	StartingNode string        `json:"startingNode"`
	Tags         []backend.Tag `json:"tags"`
}

func (c *Client) Browse(ctx context.Context, startingNode string) (BrowseResult, error) {
	var q url.Values
	if startingNode != "" {
		q = url.Values{"startingNodeParam": {startingNode}}
	}
	var out BrowseResult
	err := c.do(ctx, http.MethodGet, backend.ServiceRead, "/api/read/browse", q, nil, &out)
	return out, err
}

// ReadValue reads the current value of a node.
func (c *Client) ReadValue(ctx context.Context, nodeID string) (backend.NodeValue, error) {
	var out backend.NodeValue
	err := c.do(ctx, http.MethodGet, backend.ServiceRead, "/api/read/readValue",
		url.Values{"nodeId": {nodeID}}, nil, &out)
	return out, err
}

// ReadNode reads a node through the POST read endpoint.
func (c *Client) ReadNode(ctx context.Context, nodeID string) (backend.NodeValue, error) {
	var out backend.NodeValue
	err := c.do(ctx, http.MethodPost, backend.ServiceRead, "/api/read-node", nil,
		map[string]string{"nodeId": nodeID}, &out)
	return out, err
}

// Subscription acknowledges a data subscription.
type Subscription struct {
	SubscriptionID string `json:"subscriptionId"`
	StreamPath     string `json:"streamPath"`
}

func (c *Client) SubscribeToData(ctx context.Context) (Subscription, error) {
	var out Subscription
	err := c.do(ctx, http.MethodGet, backend.ServiceRead, "/api/read/subscribeToData", nil, nil, &out)
	return out, err
}

// WriteResult confirms a write.
type WriteResult struct {
	NodeID    string `json:"nodeId"`
	Value     any    `json:"value"`
	Timestamp int64  `json:"timestamp"`
	Message   string `json:"message"`
}

// Write sets a node value. Values must be strings, booleans or numbers.
func (c *Client) Write(ctx context.Context, nodeID string, value any) (WriteResult, error) {
	var out WriteResult
	err := c.do(ctx, http.MethodPost, backend.ServiceWrite, "/api/write/write-node", nil,
		map[string]any{"nodeId": nodeID, "value": value}, &out)
	return out, err
}

func (c *Client) ProcessBrowseData(ctx context.Context, nodeID string, data any) error {
	return c.do(ctx, http.MethodPost, backend.ServiceKafka, "/api/kafkaBrowse/processBrowseData", nil,
		map[string]any{"nodeId": nodeID, "browseData": data}, nil)
}

// HasChanged asks the Kafka service whether current differs from previous.
func (c *Client) HasChanged(ctx context.Context, previous, current any) (bool, error) {
	var out struct {
		HasChanged bool `json:"hasChanged"`
	}
	err := c.do(ctx, http.MethodPost, backend.ServiceKafka, "/api/kafkaBrowse/hasChanged", nil,
		map[string]any{"previous": previous, "current": current}, &out)
	return out.HasChanged, err
}

type converted struct {
	ConvertedValue string `json:"convertedValue"`
}

func (c *Client) ConvertValue(ctx context.Context, variant string) (string, error) {
	var out converted
	err := c.do(ctx, http.MethodPost, backend.ServiceKafka, "/api/opcUaValueConverter/convertValue",
		url.Values{"variant": {variant}}, nil, &out)
	return out.ConvertedValue, err
}

func (c *Client) ConvertDataValue(ctx context.Context, value string) (string, error) {
	var out converted
	err := c.do(ctx, http.MethodPost, backend.ServiceKafka, "/api/opcUaValueConverter/convertDataValue",
		url.Values{"originalValue": {value}}, nil, &out)
	return out.ConvertedValue, err
}

func (c *Client) ProcessValue(ctx context.Context, value any) (string, error) {
	var out struct {
		ProcessedValue string `json:"processedValue"`
	}
	err := c.do(ctx, http.MethodPost, backend.ServiceKafka, "/api/process-value", nil,
		map[string]any{"value": value}, &out)
	return out.ProcessedValue, err
}
