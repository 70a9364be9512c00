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
	"errors"
	"fmt"
	"os"
	"sort"
	"sync"
	"time"

	"github.com/c2FmZQ/storage"
)

// Tag is a browsable OPC UA node.
type Tag struct {
	NodeID string `json:"nodeId"`
	Name   string `json:"name"`
	Type   string `json:"type"`
}

// NodeValue is the last value written to a node.
type NodeValue struct {
	NodeID    string `json:"nodeId"`
	Value     any    `json:"value"`
	Quality   string `json:"quality"`
	Timestamp int64  `json:"timestamp"`
}

const nodesFile = "nodes.json"

// NodeStore keeps written node values. Values survive restarts through the
// storage layer; nodes never written read as generated mock values.
type NodeStore struct {
	mu      sync.RWMutex
	storage *storage.Storage
	nodes   map[string]NodeValue
	now     func() time.Time
	// onWrite is called outside the lock after every successful write.
	onWrite func(NodeValue)
}

// NewNodeStore loads previously written values from s.
func NewNodeStore(s *storage.Storage, now func() time.Time) (*NodeStore, error) {
	if now == nil {
		now = time.Now
	}
	ns := &NodeStore{storage: s, nodes: make(map[string]NodeValue), now: now}
	var saved []NodeValue
	if err := s.ReadDataFile(nodesFile, &saved); err != nil {
		if !errors.Is(err, os.ErrNotExist) {
			return nil, fmt.Errorf("storage.ReadDataFile: %w", err)
		}
	}
	for _, n := range saved {
		ns.nodes[n.NodeID] = n
	}
	return ns, nil
}

// Read returns the stored value of id, or a fresh mock value.
func (ns *NodeStore) Read(id string) NodeValue {
	ns.mu.RLock()
	n, ok := ns.nodes[id]
	ns.mu.RUnlock()
	if ok {
		return n
	}
	ts := ns.now().UnixMilli()
	return NodeValue{NodeID: id, Value: fmt.Sprintf("mock-value-%d", ts), Quality: QualityGood, Timestamp: ts}
}

// Write stores v for id and persists the whole set.
func (ns *NodeStore) Write(id string, v any) (NodeValue, error) {
	n := NodeValue{NodeID: id, Value: v, Quality: QualityGood, Timestamp: ns.now().UnixMilli()}
	ns.mu.Lock()
	prev, had := ns.nodes[id]
	ns.nodes[id] = n
	if err := ns.storage.SaveDataFile(nodesFile, ns.listLocked()); err != nil {
		if had {
			ns.nodes[id] = prev
		} else {
			delete(ns.nodes, id)
		}
		ns.mu.Unlock()
		return NodeValue{}, fmt.Errorf("storage.SaveDataFile: %w", err)
	}
	onWrite := ns.onWrite
	ns.mu.Unlock()
	if onWrite != nil {
		onWrite(n)
	}
	return n, nil
}

func (ns *NodeStore) listLocked() []NodeValue {
	out := make([]NodeValue, 0, len(ns.nodes))
	for _, n := range ns.nodes {
		out = append(out, n)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].NodeID < out[j].NodeID })
	return out
}

// List returns every written node sorted by ID.
func (ns *NodeStore) List() []NodeValue {
	ns.mu.RLock()
	defer ns.mu.RUnlock()
	return ns.listLocked()
}

// Browse returns the default tags followed by every written node that is not
// one of them.
func (ns *NodeStore) Browse() []Tag {
	tags := append([]Tag(nil), defaultTags...)
	known := make(map[string]bool, len(tags))
	for _, t := range tags {
		known[t.NodeID] = true
	}
	for _, n := range ns.List() {
		if known[n.NodeID] {
			continue
		}
		tags = append(tags, Tag{NodeID: n.NodeID, Name: n.NodeID, Type: typeName(n.Value)})
	}
	return tags
}

func typeName(v any) string {
	switch v.(type) {
	case string:
		return "String"
	case bool:
		return "Boolean"
	case float64:
		return "Double"
	default:
		return "Object"
	}
}
