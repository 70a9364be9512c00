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
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/c2FmZQ/storage"
	"github.com/gorilla/websocket"
)

func dialStream(t *testing.T, server *httptest.Server, query string) *websocket.Conn {
	t.Helper()
	u := "ws" + strings.TrimPrefix(server.URL, "http") + "/read/api/read/stream" + query
	conn, _, err := websocket.DefaultDialer.Dial(u, nil)
	if err != nil {
		t.Fatalf("Dial: %v", err)
	}
	t.Cleanup(func() { conn.Close() })
	return conn
}

func readMessage(t *testing.T, conn *websocket.Conn) Message {
	t.Helper()
	conn.SetReadDeadline(time.Now().Add(5 * time.Second))
	var msg Message
	if err := conn.ReadJSON(&msg); err != nil {
		t.Fatalf("ReadJSON: %v", err)
	}
	return msg
}

func waitForClients(t *testing.T, hub *Hub, n int) {
	t.Helper()
	deadline := time.Now().Add(5 * time.Second)
	for hub.Count() != n {
		if time.Now().After(deadline) {
			t.Fatalf("Hub has %d clients, want %d", hub.Count(), n)
		}
		time.Sleep(10 * time.Millisecond)
	}
}

func TestStreamReceivesWrites(t *testing.T) {
	mock, handler, err := NewServerHandler(Options{Storage: storage.New(t.TempDir(), nil)})
	if err != nil {
		t.Fatalf("NewServerHandler: %v", err)
	}
	server := httptest.NewServer(handler)
	defer server.Close()

	all := dialStream(t, server, "")
	if ack := readMessage(t, all); ack.Type != MsgTypeAck || ack.SubscriptionID == "" {
		t.Fatalf("Expected ACK, got %+v", ack)
	}
	speed := dialStream(t, server, "?nodeId=ns%3D2%3Bs%3DSpeed")
	readMessage(t, speed)
	waitForClients(t, mock.Hub, 2)

	if _, err := mock.Nodes.Write("ns=2;s=Other", "a"); err != nil {
		t.Fatalf("Write: %v", err)
	}
	if _, err := mock.Nodes.Write("ns=2;s=Speed", 12.5); err != nil {
		t.Fatalf("Write: %v", err)
	}

	if msg := readMessage(t, all); msg.Type != MsgTypeValue || msg.NodeID != "ns=2;s=Other" {
		t.Errorf("Unfiltered client got %+v", msg)
	}
	if msg := readMessage(t, all); msg.NodeID != "ns=2;s=Speed" {
		t.Errorf("Unfiltered client got %+v", msg)
	}
	msg := readMessage(t, speed)
	if msg.Type != MsgTypeValue || msg.NodeID != "ns=2;s=Speed" || msg.Value != 12.5 || msg.Quality != QualityGood {
		t.Errorf("Filtered client got %+v", msg)
	}
}

func TestStreamSubscribeAndPing(t *testing.T) {
	mock, handler, err := NewServerHandler(Options{Storage: storage.New(t.TempDir(), nil)})
	if err != nil {
		t.Fatalf("NewServerHandler: %v", err)
	}
	server := httptest.NewServer(handler)
	defer server.Close()

	conn := dialStream(t, server, "")
	readMessage(t, conn)

	if err := conn.WriteJSON(Message{Type: MsgTypePing}); err != nil {
		t.Fatalf("WriteJSON: %v", err)
	}
	if msg := readMessage(t, conn); msg.Type != MsgTypePong {
		t.Errorf("Expected PONG, got %+v", msg)
	}

	if err := conn.WriteJSON(Message{Type: "BOGUS"}); err != nil {
		t.Fatalf("WriteJSON: %v", err)
	}
	if msg := readMessage(t, conn); msg.Type != MsgTypeError {
		t.Errorf("Expected ERROR, got %+v", msg)
	}

	if err := conn.WriteJSON(Message{Type: MsgTypeSubscribe, NodeIDs: []string{"ns=2;i=7"}}); err != nil {
		t.Fatalf("WriteJSON: %v", err)
	}
	if msg := readMessage(t, conn); msg.Type != MsgTypeAck || len(msg.NodeIDs) != 1 {
		t.Errorf("Expected ACK, got %+v", msg)
	}

	mock.Nodes.Write("ns=2;i=8", "skip")
	mock.Nodes.Write("ns=2;i=7", "keep")
	if msg := readMessage(t, conn); msg.NodeID != "ns=2;i=7" || msg.Value != "keep" {
		t.Errorf("Subscribed client got %+v", msg)
	}

	conn.Close()
	waitForClients(t, mock.Hub, 0)
}
