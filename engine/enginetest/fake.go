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

// Package enginetest provides an in-memory engine.Page for tests.
package enginetest

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"

	"github.com/ttbt-io/masterprobe/engine"
)

// ErrIntercepted is the default error of a failing native click.
var ErrIntercepted = errors.New("element click intercepted")

// Elem is a fake DOM element. The With, Fail and On methods configure it
// before use; the Set methods are safe while a step is running.
type Elem struct {
	Name string

	mu       sync.Mutex
	hidden   bool
	disabled bool
	text     string
	value    string
	attrs    map[string]string

	clickErr  error
	keysErr   error
	scriptErr error
	onClick   func()
	onKey     func(string)

	clicks       int
	scriptClicks int
	scriptValues int
	keys         []string
}

// NewElem returns a visible, enabled element.
func NewElem(name string) *Elem {
	return &Elem{Name: name, attrs: map[string]string{}}
}

func (e *Elem) String() string { return e.Name }

func (e *Elem) WithText(s string) *Elem {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.text = s
	return e
}

func (e *Elem) WithValue(s string) *Elem {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.value = s
	return e
}

func (e *Elem) WithAttr(name, value string) *Elem {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.attrs[name] = value
	return e
}

// FailClick makes every native click fail with err (ErrIntercepted if nil).
func (e *Elem) FailClick(err error) *Elem {
	if err == nil {
		err = ErrIntercepted
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	e.clickErr = err
	return e
}

// FailKeys makes every native clear or send-keys fail with err.
func (e *Elem) FailKeys(err error) *Elem {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.keysErr = err
	return e
}

// FailScript makes every scripted invocation fail with err.
func (e *Elem) FailScript(err error) *Elem {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.scriptErr = err
	return e
}

// OnClick registers fn to run after every successful click, native or
// scripted.
func (e *Elem) OnClick(fn func()) *Elem {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.onClick = fn
	return e
}

// OnKey registers fn to run after every key press.
func (e *Elem) OnKey(fn func(key string)) *Elem {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.onKey = fn
	return e
}

func (e *Elem) SetHidden(v bool) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.hidden = v
}

func (e *Elem) SetDisabled(v bool) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.disabled = v
}

func (e *Elem) SetText(s string) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.text = s
}

// Clicks is the number of successful native clicks.
func (e *Elem) Clicks() int {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.clicks
}

// ScriptClicks is the number of successful scripted clicks.
func (e *Elem) ScriptClicks() int {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.scriptClicks
}

// ScriptValues is the number of successful scripted value updates.
func (e *Elem) ScriptValues() int {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.scriptValues
}

func (e *Elem) Value() string {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.value
}

func (e *Elem) Keys() []string {
	e.mu.Lock()
	defer e.mu.Unlock()
	return append([]string(nil), e.keys...)
}

func (e *Elem) ScrollIntoView(ctx context.Context) error { return ctx.Err() }

func (e *Elem) Click(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	e.mu.Lock()
	if e.clickErr != nil {
		err := e.clickErr
		e.mu.Unlock()
		return err
	}
	e.clicks++
	fn := e.onClick
	e.mu.Unlock()
	if fn != nil {
		fn()
	}
	return nil
}

func (e *Elem) Clear(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.keysErr != nil {
		return e.keysErr
	}
	e.value = ""
	return nil
}

func (e *Elem) SendKeys(ctx context.Context, text string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.keysErr != nil {
		return e.keysErr
	}
	e.value += text
	return nil
}

func (e *Elem) PressKey(ctx context.Context, key string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	e.mu.Lock()
	if e.keysErr != nil {
		err := e.keysErr
		e.mu.Unlock()
		return err
	}
	e.keys = append(e.keys, key)
	fn := e.onKey
	e.mu.Unlock()
	if fn != nil {
		fn(key)
	}
	return nil
}

func (e *Elem) Text(ctx context.Context) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.text, nil
}

func (e *Elem) Attribute(ctx context.Context, name string) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	if name == "value" {
		return e.value, nil
	}
	return e.attrs[name], nil
}

func (e *Elem) Visible(ctx context.Context) (bool, error) {
	if err := ctx.Err(); err != nil {
		return false, err
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	return !e.hidden, nil
}

func (e *Elem) Enabled(ctx context.Context) (bool, error) {
	if err := ctx.Err(); err != nil {
		return false, err
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	return !e.disabled, nil
}

func (e *Elem) runScript(fn string, args []any) error {
	e.mu.Lock()
	if e.scriptErr != nil {
		err := e.scriptErr
		e.mu.Unlock()
		return err
	}
	switch {
	case strings.Contains(fn, "this.click()"):
		e.scriptClicks++
		cb := e.onClick
		e.mu.Unlock()
		if cb != nil {
			cb()
		}
		return nil
	case strings.Contains(fn, "setter.call"):
		defer e.mu.Unlock()
		if len(args) != 1 {
			return fmt.Errorf("value script: want 1 arg, got %d", len(args))
		}
		v := fmt.Sprint(args[0])
		if strings.Contains(fn, "this.value + v") {
			v = e.value + v
		}
		e.value = v
		e.scriptValues++
		return nil
	}
	e.mu.Unlock()
	return nil
}

// Page is a fake engine.Page mapping queries to elements. Queries not
// registered match nothing.
type Page struct {
	mu      sync.Mutex
	elems   map[engine.Query][]*Elem
	finds   map[engine.Query]int
	scripts []string
	findErr error
}

var _ engine.Page = (*Page)(nil)

func NewPage() *Page {
	return &Page{
		elems: map[engine.Query][]*Elem{},
		finds: map[engine.Query]int{},
	}
}

// Add registers el as a match of q and returns el.
func (p *Page) Add(q engine.Query, el *Elem) *Elem {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.elems[q] = append(p.elems[q], el)
	return el
}

// Remove drops every match of q.
func (p *Page) Remove(q engine.Query) {
	p.mu.Lock()
	defer p.mu.Unlock()
	delete(p.elems, q)
}

// FailFind makes FindAll fail with err until cleared with nil.
func (p *Page) FailFind(err error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.findErr = err
}

// Finds is the number of FindAll calls made for q.
func (p *Page) Finds(q engine.Query) int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.finds[q]
}

// Scripts returns every script run so far.
func (p *Page) Scripts() []string {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]string(nil), p.scripts...)
}

func (p *Page) FindAll(ctx context.Context, q engine.Query) ([]engine.Element, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	p.finds[q]++
	if p.findErr != nil {
		return nil, p.findErr
	}
	var out []engine.Element
	for _, el := range p.elems[q] {
		out = append(out, el)
	}
	return out, nil
}

func (p *Page) RunScript(ctx context.Context, el engine.Element, fn string, args ...any) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	e, ok := el.(*Elem)
	if !ok {
		return fmt.Errorf("enginetest: foreign element %T", el)
	}
	p.mu.Lock()
	p.scripts = append(p.scripts, fn)
	p.mu.Unlock()
	return e.runScript(fn, args)
}
