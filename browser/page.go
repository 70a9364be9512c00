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

package browser

import (
	"context"
	"errors"
	"fmt"

	"github.com/chromedp/cdproto/cdp"
	"github.com/chromedp/cdproto/dom"
	"github.com/chromedp/cdproto/runtime"
	"github.com/chromedp/chromedp"
	"github.com/chromedp/chromedp/kb"

	"github.com/ttbt-io/masterprobe/engine"
)

// Page implements engine.Page on a browser tab.
type Page struct {
	s *Session
}

var _ engine.Page = (*Page)(nil)

var errForeignElement = errors.New("element does not belong to this browser")

// selector maps q to a chromedp selector. Strategies with a CSS form use
// querySelectorAll; the others go through DOM.performSearch, which accepts
// XPath.
func selector(q engine.Query) (sel string, search bool) {
	if css, ok := q.CSS(); ok {
		return css, false
	}
	xp, _ := q.XPath()
	return xp, true
}

// FindAll returns the nodes matching q right now. AtLeast(0) keeps chromedp
// from waiting for a match.
func (p *Page) FindAll(ctx context.Context, q engine.Query) ([]engine.Element, error) {
	sel, search := selector(q)
	var by chromedp.QueryOption = chromedp.ByQueryAll
	if search {
		by = chromedp.BySearch
	}
	var nodes []*cdp.Node
	if err := p.s.Run(ctx, chromedp.Nodes(sel, &nodes, by, chromedp.AtLeast(0))); err != nil {
		return nil, fmt.Errorf("find %s: %w", q, err)
	}
	out := make([]engine.Element, 0, len(nodes))
	for _, n := range nodes {
		if n.NodeType != cdp.NodeTypeElement {
			continue
		}
		out = append(out, &Element{p: p, node: n})
	}
	return out, nil
}

// RunScript calls fn with the element as this and discards its result.
func (p *Page) RunScript(ctx context.Context, el engine.Element, fn string, args ...any) error {
	e, ok := el.(*Element)
	if !ok || e.p.s != p.s {
		return errForeignElement
	}
	return e.call(ctx, fn, nil, args...)
}

// Element is a DOM node of a Page.
type Element struct {
	p    *Page
	node *cdp.Node
}

var _ engine.Element = (*Element)(nil)

func (e *Element) ids() []cdp.NodeID { return []cdp.NodeID{e.node.NodeID} }

// onObject targets a function call at a resolved remote object.
func onObject(id runtime.RemoteObjectID) chromedp.CallOption {
	return func(p *runtime.CallFunctionOnParams) *runtime.CallFunctionOnParams {
		return p.WithObjectID(id)
	}
}

// call runs fn with the element as this. A nil res discards the result.
func (e *Element) call(ctx context.Context, fn string, res any, args ...any) error {
	return e.p.s.Run(ctx, chromedp.ActionFunc(func(c context.Context) error {
		obj, err := dom.ResolveNode().WithNodeID(e.node.NodeID).Do(c)
		if err != nil {
			return fmt.Errorf("resolve node: %w", err)
		}
		defer runtime.ReleaseObject(obj.ObjectID).Do(c)
		return chromedp.CallFunctionOn(fn, res, onObject(obj.ObjectID), args...).Do(c)
	}))
}

func (e *Element) ScrollIntoView(ctx context.Context) error {
	return e.p.s.Run(ctx, chromedp.ActionFunc(func(c context.Context) error {
		return dom.ScrollIntoViewIfNeeded().WithNodeID(e.node.NodeID).Do(c)
	}))
}

// Click dispatches real mouse events at the center of the element. It fails
// when the element has no box, e.g. when it is hidden.
func (e *Element) Click(ctx context.Context) error {
	return e.p.s.Run(ctx, chromedp.MouseClickNode(e.node))
}

func (e *Element) Clear(ctx context.Context) error {
	return e.p.s.Run(ctx, chromedp.Clear(e.ids(), chromedp.ByNodeID))
}

func (e *Element) SendKeys(ctx context.Context, text string) error {
	return e.p.s.Run(ctx, chromedp.SendKeys(e.ids(), text, chromedp.ByNodeID))
}

var keys = map[string]string{
	engine.KeyEnter:  kb.Enter,
	engine.KeyTab:    kb.Tab,
	engine.KeyEscape: kb.Escape,
}

func (e *Element) PressKey(ctx context.Context, key string) error {
	k, ok := keys[key]
	if !ok {
		return fmt.Errorf("unsupported key %q", key)
	}
	return e.p.s.Run(ctx, chromedp.KeyEventNode(e.node, k))
}

const (
	jsText = `function() { return (this.innerText || this.textContent || '').trim(); }`

	// value and checked are read from the properties so user input is
	// seen. A label reports the checked state of its control.
	jsAttribute = `function(name) {
	if (name === 'value' && 'value' in this) return String(this.value);
	if (name === 'checked') {
		const c = this.control || this.querySelector('input') || this;
		if ('checked' in c) return String(c.checked);
	}
	const v = this.getAttribute(name);
	return v === null ? '' : v;
}`

	jsVisible = `function() {
	const s = window.getComputedStyle(this);
	return this.getClientRects().length > 0 &&
		s.display !== 'none' && s.visibility !== 'hidden' && s.opacity !== '0';
}`

	jsEnabled = `function() {
	return !this.disabled && this.getAttribute('aria-disabled') !== 'true';
}`
)

func (e *Element) Text(ctx context.Context) (string, error) {
	var s string
	err := e.call(ctx, jsText, &s)
	return s, err
}

func (e *Element) Attribute(ctx context.Context, name string) (string, error) {
	var s string
	err := e.call(ctx, jsAttribute, &s, name)
	return s, err
}

func (e *Element) Visible(ctx context.Context) (bool, error) {
	var ok bool
	err := e.call(ctx, jsVisible, &ok)
	return ok, err
}

func (e *Element) Enabled(ctx context.Context) (bool, error) {
	var ok bool
	err := e.call(ctx, jsEnabled, &ok)
	return ok, err
}
