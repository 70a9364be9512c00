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

// Service prefixes served by the mock backend.
const (
	ServiceRegistry = "eureka"
	ServiceOpcua    = "opcua"
	ServiceRead     = "read"
	ServiceKafka    = "kafka"
	ServiceWrite    = "write"
)

// Services lists every mock service in startup order.
var Services = []string{ServiceRegistry, ServiceOpcua, ServiceRead, ServiceKafka, ServiceWrite}

// serviceComponents are the sub-components each health report lists.
var serviceComponents = map[string][]string{
	ServiceRegistry: {"eureka", "discoveryComposite"},
	ServiceOpcua:    {"opcua", "connection"},
	ServiceRead:     {"readdata", "database"},
	ServiceKafka:    {"kafka", "producer", "consumer"},
	ServiceWrite:    {"writedata", "database"},
}

// Health states.
const (
	StatusUp   = "UP"
	StatusDown = "DOWN"
)

// Response statuses.
const (
	ResultSuccess = "success"
	ResultError   = "error"
)

// Default OPC UA quality of a readable node.
const QualityGood = "GOOD"

// DefaultStartingNode is browsed when no starting node is given.
const DefaultStartingNode = `ns=3;s="WMS TO PLC"`

// defaultTags are always present in browse results.
var defaultTags = []Tag{
	{NodeID: `ns=3;s="PLC_To_WMS"`, Name: "PLC_To_WMS", Type: "String"},
	{NodeID: `ns=3;s="WMS_To_PLC"`, Name: "WMS_To_PLC", Type: "String"},
	{NodeID: "ns=3;s=DataBlocksGlobal", Name: "DataBlocksGlobal", Type: "Object"},
}

// WebSocket message types.
const (
	MsgTypeSubscribe = "SUBSCRIBE"
	MsgTypeAck       = "ACK"
	MsgTypeValue     = "VALUE"
	MsgTypePing      = "PING"
	MsgTypePong      = "PONG"
	MsgTypeError     = "ERROR"
)
