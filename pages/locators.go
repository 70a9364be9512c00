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

package pages

import (
	"fmt"
	"os"
	"slices"
	"sort"
	"sync"

	"gopkg.in/yaml.v3"

	"github.com/ttbt-io/masterprobe/engine"
)

// Logical UI targets of the Master admin module.
const (
	TargetMasterMenu         = "master-menu"
	TargetProductVariantLink = "product-variant-link"
	TargetProductLink        = "product-details-link"
	TargetShiftsLink         = "shifts-link"
	TargetReasonLink         = "reason-details-link"

	TargetCreateButton   = "create-button"
	TargetFormTitle      = "form-title"
	TargetCodeInput      = "product-variant-code"
	TargetNameInput      = "product-variant-name"
	TargetTrolleyInput   = "trolley-type"
	TargetCapacityInput  = "trolley-storage-capacity"
	TargetSubmitButton   = "submit-button"
	TargetSuccessMessage = "success-message"
	TargetErrorMessage   = "error-message"
	TargetEditButton     = "edit-button"
	TargetStatusButton   = "status-button"
	TargetSearchInput    = "search-input"

	TargetStatusModal   = "status-modal-title"
	TargetActiveRadio   = "active-radio"
	TargetInactiveRadio = "inactive-radio"
	TargetStatusYes     = "status-yes-button"
	TargetStatusNo      = "status-no-button"
)

const modalTitleXPath = `//h2[contains(text(), 'Change Status Of Part:')]`

// defaultQueries holds the built-in candidates in priority order.
//
// The status radios list semantic queries first and the label position
// inside the modal last; the position is only a fallback for builds that
// render custom radios without a value attribute.
var defaultQueries = map[string][]engine.Query{
	TargetMasterMenu: {
		engine.ByXPath(`//*[@id="root"]/div/header/nav/div[1]`),
		engine.ByXPath(`//header//nav//*[normalize-space(text())='Master']`),
	},
	TargetProductVariantLink: navLink(1, "Product Variant Details"),
	TargetProductLink:        navLink(2, "Product Details"),
	TargetShiftsLink:         navLink(3, "Shifts"),
	TargetReasonLink:         navLink(4, "Reason Details"),

	TargetCreateButton: {
		engine.ByCSS("button.add-product-button"),
		engine.ByXPath(`//button[contains(@class, 'add-product-button')]`),
		engine.ByXPath(`//*[@id="root"]/div[1]/main[1]/div[1]/div[1]/div[1]/button[1]`),
		engine.ByXPath(`//*[@id="root"]/div[1]/main[1]/div[1]/div[1]/div[1]/button[1]/*[name()='svg']/*[name()='path']`),
		engine.ByXPath(`//*[@id="root"]/div[1]/main[1]/div[1]/div[1]/div[1]/button[1]/*[name()='svg']`),
		engine.ByXPath(`//button[contains(text(), 'Create') or contains(text(), 'create') or contains(text(), 'Add') or contains(text(), 'New')]`),
		engine.ByXPath(`//button[@aria-label='Create' or @aria-label='Add' or @title='Create' or @title='Add']`),
	},
	TargetFormTitle: {
		engine.ByXPath(`//h1[contains(text(), 'Create New Product Variant')]`),
		engine.ByText("h1", "Product Variant"),
	},
	TargetCodeInput:     {engine.ByID("productVariantCode"), engine.ByAttribute("name", "productVariantCode")},
	TargetNameInput:     {engine.ByID("productVariantName"), engine.ByAttribute("name", "productVariantName")},
	TargetTrolleyInput:  {engine.ByID("trolleyType"), engine.ByAttribute("name", "trolleyType")},
	TargetCapacityInput: {engine.ByID("trolleyStorageCapacity"), engine.ByAttribute("name", "trolleyStorageCapacity")},
	TargetSubmitButton: {
		engine.ByXPath(`//*[@id="root"]/div/main/div/div[4]/div/div[6]/button[1]`),
		engine.ByXPath(`//button[contains(text(), 'Submit') or contains(text(), 'Save') or contains(text(), 'Create')]`),
		engine.ByCSS(`button[type="submit"]`),
	},
	TargetSuccessMessage: {
		engine.ByXPath(`//div[contains(@class, 'success') or contains(@class, 'alert-success')]`),
		engine.ByAttribute("role", "status"),
	},
	TargetErrorMessage: {
		engine.ByXPath(`//div[contains(@class, 'error') or contains(@class, 'alert-danger')]`),
		engine.ByAttribute("role", "alert"),
	},
	TargetEditButton: {
		engine.ByXPath(`//*[@id="root"]/div/main/div/div[3]/table/tbody/tr[1]/td[6]/button[1]`),
		engine.ByXPath(`//table//tr[1]//button[1]`),
		engine.ByXPath(`//button[contains(@class, 'edit') or contains(@title, 'Edit')]`),
		engine.ByXPath(`//button[contains(text(), 'Edit')]`),
	},
	TargetStatusButton: {
		engine.ByXPath(`//*[@id="root"]/div/main/div/div[3]/table/tbody/tr[1]/td[6]/button[3]`),
		engine.ByXPath(`//table//tr[1]//button[3]`),
		engine.ByXPath(`//button[contains(@class, 'status') or contains(@title, 'Status')]`),
		engine.ByXPath(`//button[contains(text(), 'Status') or contains(text(), 'Active') or contains(text(), 'Inactive')]`),
	},
	TargetSearchInput: {
		engine.ByXPath(`//*[@id="root"]/div/main/div/div[2]/div[2]/input`),
		engine.ByXPath(`//input[@placeholder='Search' or @placeholder='search']`),
		engine.ByXPath(`//input[contains(@class, 'search')]`),
		engine.ByXPath(`//div[2]/div[2]/input`),
		engine.ByXPath(`//input[@type='text']`),
	},
	TargetStatusModal: {
		engine.ByXPath(modalTitleXPath),
		engine.ByText("h2", "Change Status"),
	},
	TargetActiveRadio: {
		engine.ByCSS(`input[type="radio"][value="Active"]`),
		engine.ByXPath(`//input[@type='radio' and starts-with(@id, 'active')]`),
		engine.ByXPath(`(` + modalTitleXPath + `/following::label)[1]`),
	},
	TargetInactiveRadio: {
		engine.ByCSS(`input[type="radio"][value="Inactive"]`),
		engine.ByXPath(`//input[@type='radio' and contains(@id, 'inactive')]`),
		engine.ByXPath(`(` + modalTitleXPath + `/following::label)[2]`),
	},
	TargetStatusYes: {
		engine.ByXPath(`//button[contains(text(), 'Yes') or contains(@class, 'yes') or contains(@id, 'yes')]`),
		engine.ByXPath(`//button[contains(text(), 'Confirm') or contains(text(), 'OK') or contains(text(), 'Save')]`),
		engine.ByText("button", "Yes"),
		engine.ByText("button", "Confirm"),
		engine.ByText("button", "OK"),
	},
	TargetStatusNo: {
		engine.ByXPath(`//button[contains(text(), 'No') or contains(@class, 'no') or contains(@id, 'no')]`),
		engine.ByXPath(`//button[contains(text(), 'Cancel') or contains(text(), 'Close')]`),
		engine.ByText("button", "No"),
		engine.ByText("button", "Cancel"),
		engine.ByText("button", "Close"),
	},
}

func navLink(pos int, label string) []engine.Query {
	return []engine.Query{
		engine.ByXPath(fmt.Sprintf(`//*[@id="root"]/div/header/nav/div[1]/div/a[%d]`, pos)),
		engine.ByText("a", label),
	}
}

// Locators resolves target names to candidate lists. It is safe for
// concurrent use; candidate lists themselves are immutable values.
type Locators struct {
	mu sync.RWMutex
	m  map[string]engine.Candidates
}

// DefaultLocators returns the built-in candidates.
func DefaultLocators() *Locators {
	l := &Locators{m: make(map[string]engine.Candidates, len(defaultQueries))}
	for target, qs := range defaultQueries {
		c, err := engine.CandidatesFrom(target, qs)
		if err != nil {
			panic(err)
		}
		l.m[target] = c
	}
	return l
}

// LoadLocators returns the defaults with the overrides in path applied. An
// empty path returns the defaults.
func LoadLocators(path string) (*Locators, error) {
	l := DefaultLocators()
	if path == "" {
		return l, nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("locators: %w", err)
	}
	if err := l.ApplyYAML(data); err != nil {
		return nil, fmt.Errorf("locators %s: %w", path, err)
	}
	return l, nil
}

// Get returns the candidates of target. Unknown targets are a programming
// error.
func (l *Locators) Get(target string) engine.Candidates {
	l.mu.RLock()
	defer l.mu.RUnlock()
	c, ok := l.m[target]
	if !ok {
		panic(fmt.Sprintf("pages: unknown target %q", target))
	}
	return c
}

// Override replaces the candidates of a known target.
func (l *Locators) Override(target string, qs []engine.Query) error {
	c, err := engine.CandidatesFrom(target, qs)
	if err != nil {
		return err
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	if _, ok := l.m[target]; !ok {
		return fmt.Errorf("unknown target %q", target)
	}
	l.m[target] = c
	return nil
}

// Targets lists the known target names, sorted.
func (l *Locators) Targets() []string {
	l.mu.RLock()
	defer l.mu.RUnlock()
	out := make([]string, 0, len(l.m))
	for k := range l.m {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}

// queryYAML is one entry of a locator override file. Exactly one of the
// strategy keys must be set, e.g.
//
//	create-button:
//	  - css: button.add-product-button
//	  - text: Create
//	    tag: button
//	  - attr: aria-label
//	    value: Create
type queryYAML struct {
	ID    string `yaml:"id"`
	CSS   string `yaml:"css"`
	XPath string `yaml:"xpath"`
	Text  string `yaml:"text"`
	Tag   string `yaml:"tag"`
	Attr  string `yaml:"attr"`
	Value string `yaml:"value"`
}

func (q queryYAML) query() (engine.Query, error) {
	var set []string
	var out engine.Query
	if q.ID != "" {
		set, out = append(set, "id"), engine.ByID(q.ID)
	}
	if q.CSS != "" {
		set, out = append(set, "css"), engine.ByCSS(q.CSS)
	}
	if q.XPath != "" {
		set, out = append(set, "xpath"), engine.ByXPath(q.XPath)
	}
	if q.Text != "" {
		set, out = append(set, "text"), engine.ByText(q.Tag, q.Text)
	}
	if q.Attr != "" {
		set, out = append(set, "attr"), engine.ByAttribute(q.Attr, q.Value)
	}
	if len(set) != 1 {
		return engine.Query{}, fmt.Errorf("exactly one of id, css, xpath, text, attr is required, got %v", set)
	}
	if q.Tag != "" && !slices.Equal(set, []string{"text"}) {
		return engine.Query{}, fmt.Errorf("tag is only valid with text")
	}
	return out, nil
}

// ApplyYAML applies a locator override document. Every listed target
// replaces its whole candidate list.
func (l *Locators) ApplyYAML(data []byte) error {
	var doc map[string][]queryYAML
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return err
	}
	for target, entries := range doc {
		qs := make([]engine.Query, 0, len(entries))
		for i, e := range entries {
			q, err := e.query()
			if err != nil {
				return fmt.Errorf("%s[%d]: %w", target, i, err)
			}
			qs = append(qs, q)
		}
		if err := l.Override(target, qs); err != nil {
			return err
		}
	}
	return nil
}
