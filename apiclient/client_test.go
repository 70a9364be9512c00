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
	"net/http/httptest"
	"testing"
	"time"

	"github.com/c2FmZQ/storage"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ttbt-io/masterprobe/backend"
	"github.com/ttbt-io/masterprobe/config"
)

func newMock(t *testing.T, opts backend.Options) (*backend.Mock, *httptest.Server) {
	t.Helper()
	opts.Storage = storage.New(t.TempDir(), nil)
	mock, handler, err := backend.NewServerHandler(opts)
	require.NoError(t, err)
	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)
	return mock, server
}

func TestEndpoints(t *testing.T) {
	e := MockEndpoints("http://127.0.0.1:8081/")
	assert.Equal(t, "http://127.0.0.1:8081", e[Admin])
	assert.Equal(t, "http://127.0.0.1:8081/kafka", e[backend.ServiceKafka])
	assert.Len(t, e, len(backend.Services)+1)

	e = EndpointsFrom(config.Services{OpcuaURL: "http://localhost:8081/", ReadDataURL: "http://localhost:8082"})
	assert.Equal(t, "http://localhost:8081", e[backend.ServiceOpcua])
	assert.Equal(t, "http://localhost:8082", e[backend.ServiceRead])

	c := New(Options{Endpoints: Endpoints{}})
	_, err := c.Health(context.Background(), backend.ServiceKafka)
	assert.ErrorContains(t, err, "no endpoint")
}

func TestCheckAll(t *testing.T) {
	mock, server := newMock(t, backend.Options{})
	c := New(Options{Endpoints: MockEndpoints(server.URL)})
	ctx := context.Background()

	results, err := c.CheckAll(ctx)
	require.NoError(t, err)
	require.Len(t, results, len(backend.Services))
	for i, r := range results {
		assert.Equal(t, backend.Services[i], r.Service)
		assert.True(t, r.Up(), r.Service)
	}

	require.NoError(t, mock.SetStatus(backend.ServiceKafka, backend.StatusDown))
	results, err = c.CheckAll(ctx, backend.ServiceOpcua, backend.ServiceKafka)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "kafka")
	assert.NotContains(t, err.Error(), "opcua")
	assert.True(t, results[0].Up())
	assert.False(t, results[1].Up())
	assert.Equal(t, backend.StatusDown, results[1].Status)

	var se *StatusError
	assert.ErrorAs(t, results[1].Err, &se)
	assert.Equal(t, http.StatusServiceUnavailable, se.Code)
}

func TestWaitForServices(t *testing.T) {
	mock, server := newMock(t, backend.Options{})
	c := New(Options{Endpoints: MockEndpoints(server.URL), Timeout: time.Second})
	ctx := context.Background()

	require.NoError(t, mock.SetStatus(backend.ServiceWrite, backend.StatusDown))
	go func() {
		time.Sleep(100 * time.Millisecond)
		mock.SetStatus(backend.ServiceWrite, backend.StatusUp)
	}()
	require.NoError(t, c.WaitForServices(ctx, WaitOptions{Retries: 20, Interval: 20 * time.Millisecond}))

	require.NoError(t, mock.SetStatus(backend.ServiceRead, backend.StatusDown))
	err := c.WaitForServices(ctx, WaitOptions{Retries: 2, Interval: 10 * time.Millisecond}, backend.ServiceRead)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "read not ready")
}

func TestServiceCalls(t *testing.T) {
	_, server := newMock(t, backend.Options{})
	c := New(Options{Endpoints: MockEndpoints(server.URL)})
	ctx := context.Background()

	conn, err := c.InitConnection(ctx)
	require.NoError(t, err)
	assert.Equal(t, backend.ResultSuccess, conn.Status)

	first, err := c.Connect(ctx, "")
	require.NoError(t, err)
	second, err := c.Connect(ctx, "opc.tcp://plc:4840")
	require.NoError(t, err)
	assert.NotEqual(t, first.ConnectionID, second.ConnectionID)
	status, err := c.ConnectionStatus(ctx)
	require.NoError(t, err)
	assert.Equal(t, second.ConnectionID, status.ConnectionID)

	browse, err := c.Browse(ctx, "")
	require.NoError(t, err)
	assert.Equal(t, backend.DefaultStartingNode, browse.StartingNode)
	assert.NotEmpty(t, browse.Tags)

	node := `ns=3;s="PLC_To_WMS"`
	res, err := c.Write(ctx, node, "PV-9")
	require.NoError(t, err)
	assert.Equal(t, "Data written successfully", res.Message)
	v, err := c.ReadValue(ctx, node)
	require.NoError(t, err)
	assert.Equal(t, "PV-9", v.Value)
	v, err = c.ReadNode(ctx, node)
	require.NoError(t, err)
	assert.Equal(t, backend.QualityGood, v.Quality)

	_, err = c.ReadValue(ctx, "bogus")
	var se *StatusError
	require.ErrorAs(t, err, &se)
	assert.Equal(t, http.StatusBadRequest, se.Code)
	assert.NotEmpty(t, se.Message)

	sub, err := c.SubscribeToData(ctx)
	require.NoError(t, err)
	assert.Contains(t, sub.SubscriptionID, "mock-subscription-")

	changed, err := c.HasChanged(ctx, 1, 1)
	require.NoError(t, err)
	assert.False(t, changed)
	changed, err = c.HasChanged(ctx, 1, 2)
	require.NoError(t, err)
	assert.True(t, changed)

	out, err := c.ConvertValue(ctx, "Int32")
	require.NoError(t, err)
	assert.Equal(t, "converted-Int32", out)
	out, err = c.ConvertDataValue(ctx, "7")
	require.NoError(t, err)
	assert.Equal(t, "converted-7", out)
	out, err = c.ProcessValue(ctx, "x")
	require.NoError(t, err)
	assert.Equal(t, "processed-x", out)
	require.NoError(t, c.ProcessBrowseData(ctx, node, []string{"a"}))

	apps, err := c.Apps(ctx)
	require.NoError(t, err)
	assert.Contains(t, apps, "applications")

	require.NoError(t, c.SetStatus(ctx, backend.ServiceKafka, "down"))
	_, err = c.ProcessValue(ctx, "x")
	require.ErrorAs(t, err, &se)
	assert.Equal(t, http.StatusServiceUnavailable, se.Code)
}

func TestWriteWithToken(t *testing.T) {
	_, server := newMock(t, backend.Options{AuthSecret: "k"})
	ctx := context.Background()

	_, err := New(Options{Endpoints: MockEndpoints(server.URL)}).Write(ctx, "ns=2;i=1", 1.5)
	var se *StatusError
	require.ErrorAs(t, err, &se)
	assert.Equal(t, http.StatusUnauthorized, se.Code)

	tok, err := Token("k", "probe", time.Minute)
	require.NoError(t, err)
	res, err := New(Options{Endpoints: MockEndpoints(server.URL), Token: tok}).Write(ctx, "ns=2;i=1", 1.5)
	require.NoError(t, err)
	assert.Equal(t, 1.5, res.Value)

	_, err = Token("", "probe", time.Minute)
	assert.Error(t, err)
}

func TestSubscribe(t *testing.T) {
	mock, server := newMock(t, backend.Options{})
	c := New(Options{Endpoints: MockEndpoints(server.URL), Timeout: 5 * time.Second})
	ctx := context.Background()

	s, err := c.Subscribe(ctx, "ns=2;i=7")
	require.NoError(t, err)
	defer s.Close()
	assert.NotEmpty(t, s.ID)

	require.Eventually(t, func() bool { return mock.Hub.Count() == 1 }, 5*time.Second, 10*time.Millisecond)
	_, err = c.Write(ctx, "ns=2;i=8", "ignored")
	require.NoError(t, err)
	_, err = c.Write(ctx, "ns=2;i=7", true)
	require.NoError(t, err)

	v, err := s.NextValue(5 * time.Second)
	require.NoError(t, err)
	assert.Equal(t, "ns=2;i=7", v.NodeID)
	assert.Equal(t, true, v.Value)

	require.NoError(t, s.Ping())
	msg, err := s.Next(5 * time.Second)
	require.NoError(t, err)
	assert.Equal(t, backend.MsgTypePong, msg.Type)
}
