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
	"fmt"
	"io"
	"strings"

	"github.com/chromedp/chromedp"
)

// ButtonInfo describes one button of the current page.
type ButtonInfo struct {
	Index     int    `json:"index"`
	Text      string `json:"text"`
	ID        string `json:"id"`
	Class     string `json:"class"`
	AriaLabel string `json:"ariaLabel"`
	Title     string `json:"title"`
	Displayed bool   `json:"displayed"`
	Enabled   bool   `json:"enabled"`
	XPath     string `json:"xpath"`
}

const jsButtons = `(() => {
	const xpath = (el) => {
		const parts = [];
		for (; el && el.nodeType === 1; el = el.parentNode) {
			if (el.id) { parts.unshift('*[@id="' + el.id + '"]'); return '//' + parts.join('/'); }
			let i = 1;
			for (let s = el.previousElementSibling; s; s = s.previousElementSibling) {
				if (s.nodeName === el.nodeName) i++;
			}
			parts.unshift(el.nodeName.toLowerCase() + '[' + i + ']');
		}
		return '/' + parts.join('/');
	};
	return Array.from(document.querySelectorAll('button, [role="button"]')).map((b, i) => {
		const s = window.getComputedStyle(b);
		return {
			index: i,
			text: (b.innerText || b.textContent || '').trim(),
			id: b.id || '',
			class: typeof b.className === 'string' ? b.className : '',
			ariaLabel: b.getAttribute('aria-label') || '',
			title: b.getAttribute('title') || '',
			displayed: b.getClientRects().length > 0 && s.display !== 'none' && s.visibility !== 'hidden',
			enabled: !b.disabled,
			xpath: xpath(b),
		};
	});
})()`

// Inspect lists the buttons of the current page, for diagnosing locators
// that no longer match.
func (s *Session) Inspect(ctx context.Context) ([]ButtonInfo, error) {
	var out []ButtonInfo
	if err := s.Run(ctx, chromedp.Evaluate(jsButtons, &out)); err != nil {
		return nil, fmt.Errorf("inspect buttons: %w", err)
	}
	return out, nil
}

// WriteButtons prints a button inventory, one button per line.
func WriteButtons(w io.Writer, buttons []ButtonInfo) error {
	if _, err := fmt.Fprintf(w, "Found %d button(s)\n", len(buttons)); err != nil {
		return err
	}
	for _, b := range buttons {
		var attrs []string
		for _, kv := range [][2]string{{"id", b.ID}, {"class", b.Class}, {"aria-label", b.AriaLabel}, {"title", b.Title}} {
			if kv[1] != "" {
				attrs = append(attrs, fmt.Sprintf("%s=%q", kv[0], kv[1]))
			}
		}
		state := "visible"
		if !b.Displayed {
			state = "hidden"
		}
		if !b.Enabled {
			state += ",disabled"
		}
		if _, err := fmt.Fprintf(w, "%3d %-9s %q %s %s\n", b.Index, state, b.Text, strings.Join(attrs, " "), b.XPath); err != nil {
			return err
		}
	}
	return nil
}
