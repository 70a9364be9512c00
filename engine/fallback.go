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

import (
	"context"
	"fmt"
)

// Tier is the invocation mechanism that carried out an action.
type Tier int

const (
	TierNone Tier = iota
	TierNative
	TierScript
)

func (t Tier) String() string {
	switch t {
	case TierNative:
		return "native"
	case TierScript:
		return "script"
	default:
		return "none"
	}
}

// Scripts run with the element bound to this. The value setter goes through
// the prototype so frameworks that track the native setter see the change.
const (
	scriptClick = `function() { this.click(); return true; }`

	scriptSetValue = `function(v) {
	this.focus();
	const setter = Object.getOwnPropertyDescriptor(Object.getPrototypeOf(this), 'value').set;
	setter.call(this, v);
	this.dispatchEvent(new Event('input', {bubbles: true}));
	this.dispatchEvent(new Event('change', {bubbles: true}));
	return true;
}`

	scriptAppendValue = `function(v) {
	this.focus();
	const setter = Object.getOwnPropertyDescriptor(Object.getPrototypeOf(this), 'value').set;
	setter.call(this, this.value + v);
	this.dispatchEvent(new Event('input', {bubbles: true}));
	this.dispatchEvent(new Event('change', {bubbles: true}));
	return true;
}`
)

// escalate performs the single scripted invocation allowed for el after its
// native action failed.
func escalate(ctx context.Context, p Page, el Element, in Intent) error {
	switch in.Op {
	case OpClick:
		return p.RunScript(ctx, el, scriptClick)
	case OpClearAndType:
		return p.RunScript(ctx, el, scriptSetValue, in.Arg)
	case OpTypeText:
		return p.RunScript(ctx, el, scriptAppendValue, in.Arg)
	}
	return fmt.Errorf("%s has no script tier", in.Op)
}
