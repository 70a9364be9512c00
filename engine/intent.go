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

package engine

import "fmt"

// Op is the kind of an Intent.
type Op int

const (
	OpClick Op = iota
	OpTypeText
	OpClearAndType
	OpPressKey
	OpReadText
	OpReadAttribute
	OpCheckVisible
	OpCheckEnabled
)

func (o Op) String() string {
	switch o {
	case OpClick:
		return "click"
	case OpTypeText:
		return "type"
	case OpClearAndType:
		return "clear+type"
	case OpPressKey:
		return "press-key"
	case OpReadText:
		return "read-text"
	case OpReadAttribute:
		return "read-attribute"
	case OpCheckVisible:
		return "check-visible"
	case OpCheckEnabled:
		return "check-enabled"
	default:
		return "unknown"
	}
}

// Intent is the operation a step performs on the resolved element.
type Intent struct {
	Op  Op
	Arg string
}

func Click() Intent { return Intent{Op: OpClick} }
func TypeText(v string) Intent { return Intent{Op: OpTypeText, Arg: v} }
func ClearAndType(v string) Intent { return Intent{Op: OpClearAndType, Arg: v} }
func PressKey(key string) Intent { return Intent{Op: OpPressKey, Arg: key} }
func ReadText() Intent { return Intent{Op: OpReadText} }
func ReadAttribute(name string) Intent { return Intent{Op: OpReadAttribute, Arg: name} }
func CheckVisible() Intent { return Intent{Op: OpCheckVisible} }
func CheckEnabled() Intent { return Intent{Op: OpCheckEnabled} }

// Requires is the element state resolution waits for before acting.
func (i Intent) Requires() State {
	switch i.Op {
	case OpClick:
		return StateClickable
	case OpReadAttribute, OpCheckEnabled:
		return StatePresent
	default:
		return StateVisible
	}
}

// Actionable reports whether the intent changes the page and therefore has
// a scripted fallback tier.
func (i Intent) Actionable() bool {
	switch i.Op {
	case OpClick, OpTypeText, OpClearAndType:
		return true
	}
	return false
}

// ReadOnly reports whether repeating the intent leaves the page unchanged.
func (i Intent) ReadOnly() bool {
	switch i.Op {
	case OpReadText, OpReadAttribute, OpCheckVisible, OpCheckEnabled:
		return true
	}
	return false
}

func (i Intent) String() string {
	switch i.Op {
	case OpTypeText, OpClearAndType:
		return fmt.Sprintf("%s(%q)", i.Op, i.Arg)
	case OpPressKey, OpReadAttribute:
		return fmt.Sprintf("%s(%s)", i.Op, i.Arg)
	default:
		return i.Op.String()
	}
}
