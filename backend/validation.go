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
	"regexp"
	"strings"
	"unicode/utf8"
)

// nodeIDRegex matches OPC UA node IDs such as ns=3;s="WMS_To_PLC" or ns=2;i=42.
var nodeIDRegex = regexp.MustCompile(`^ns=\d+;[sigb]=.+$`)

const maxValueLen = 4096

// validateNodeID checks the shape of an OPC UA node ID.
func validateNodeID(id string) error {
	if id == "" {
		return fmt.Errorf("nodeId is required")
	}
	if !nodeIDRegex.MatchString(id) {
		return fmt.Errorf("invalid nodeId %q", id)
	}
	return nil
}

// validateValue bounds values written to a node.
func validateValue(v any) error {
	switch x := v.(type) {
	case nil:
		return fmt.Errorf("value is required")
	case string:
		if !utf8.ValidString(x) {
			return fmt.Errorf("value is not valid UTF-8")
		}
		if len(x) > maxValueLen {
			return fmt.Errorf("value exceeds %d bytes", maxValueLen)
		}
	case bool, float64:
	default:
		return fmt.Errorf("unsupported value type %T", v)
	}
	return nil
}

// validService reports whether name is a known service prefix.
func validService(name string) bool {
	for _, s := range Services {
		if strings.EqualFold(s, name) {
			return true
		}
	}
	return false
}
