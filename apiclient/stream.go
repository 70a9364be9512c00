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
	"errors"
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/gorilla/websocket"

	"github.com/ttbt-io/masterprobe/backend"
)

// Stream receives node value changes from the read service.
type Stream struct {
	conn *websocket.Conn
	// ID is the subscription ID from the server's first ACK.
	ID string
}

// Subscribe opens the value stream, following nodeIDs or every node when
// none are given, and waits for the server's ACK.
func (c *Client) Subscribe(ctx context.Context, nodeIDs ...string) (*Stream, error) {
	var q url.Values
	if len(nodeIDs) > 0 {
		q = url.Values{"nodeId": nodeIDs}
	}
	u, err := c.url(backend.ServiceRead, "/api/read/stream", q)
	if err != nil {
		return nil, err
	}
	switch {
	case strings.HasPrefix(u, "https://"):
		u = "wss://" + strings.TrimPrefix(u, "https://")
	case strings.HasPrefix(u, "http://"):
		u = "ws://" + strings.TrimPrefix(u, "http://")
	}
	dialer := websocket.Dialer{HandshakeTimeout: c.opts.Timeout}
	conn, _, err := dialer.DialContext(ctx, u, nil)
	if err != nil {
		return nil, fmt.Errorf("dial %s: %w", u, err)
	}
	s := &Stream{conn: conn}
	ack, err := s.Next(c.opts.Timeout)
	if err != nil {
		conn.Close()
		return nil, err
	}
	if ack.Type != backend.MsgTypeAck {
		conn.Close()
		return nil, fmt.Errorf("expected %s, got %s", backend.MsgTypeAck, ack.Type)
	}
	s.ID = ack.SubscriptionID
	return s, nil
}

// ErrStreamError is wrapped by Next when the server reports an error.
var ErrStreamError = errors.New("stream error")

// Next waits up to timeout for the next message.
func (s *Stream) Next(timeout time.Duration) (backend.Message, error) {
	var msg backend.Message
	s.conn.SetReadDeadline(time.Now().Add(timeout))
	if err := s.conn.ReadJSON(&msg); err != nil {
		return msg, err
	}
	if msg.Type == backend.MsgTypeError {
		return msg, fmt.Errorf("%w: %s", ErrStreamError, msg.Error)
	}
	return msg, nil
}

// NextValue skips messages until a VALUE arrives.
func (s *Stream) NextValue(timeout time.Duration) (backend.NodeValue, error) {
	deadline := time.Now().Add(timeout)
	for {
		msg, err := s.Next(time.Until(deadline))
		if err != nil {
			return backend.NodeValue{}, err
		}
		if msg.Type == backend.MsgTypeValue {
			return backend.NodeValue{NodeID: msg.NodeID, Value: msg.Value, Quality: msg.Quality, Timestamp: msg.Timestamp}, nil
		}
	}
}

// Follow replaces the followed nodes. The server confirms with an ACK.
func (s *Stream) Follow(nodeIDs ...string) error {
	return s.conn.WriteJSON(backend.Message{Type: backend.MsgTypeSubscribe, NodeIDs: nodeIDs})
}

// Ping asks the server for a PONG.
func (s *Stream) Ping() error {
	return s.conn.WriteJSON(backend.Message{Type: backend.MsgTypePing})
}

func (s *Stream) Close() error {
	return s.conn.Close()
}
