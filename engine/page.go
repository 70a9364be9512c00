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

import "context"

// Page is the browser capability the engine drives. Implementations must not
// block waiting for elements in FindAll; waiting is the engine's job.
type Page interface {
	// FindAll returns the elements currently matching q, possibly none.
	FindAll(ctx context.Context, q Query) ([]Element, error)
	// RunScript calls fn as a function with the element bound to `this`.
	// It is the script tier of the fallback ladder.
	RunScript(ctx context.Context, el Element, fn string, args ...any) error
}

// Element is a live handle to one DOM element.
type Element interface {
	ScrollIntoView(ctx context.Context) error
	Click(ctx context.Context) error
	Clear(ctx context.Context) error
	SendKeys(ctx context.Context, text string) error
	PressKey(ctx context.Context, key string) error
	Text(ctx context.Context) (string, error)
	Attribute(ctx context.Context, name string) (string, error)
	Visible(ctx context.Context) (bool, error)
	Enabled(ctx context.Context) (bool, error)
}

// Key names accepted by Element.PressKey.
const (
	KeyEnter  = "Enter"
	KeyTab    = "Tab"
	KeyEscape = "Escape"
)
