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
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/ttbt-io/masterprobe/engine"
	"github.com/ttbt-io/masterprobe/workflow"
)

// Entry is an item of the Master dropdown.
type Entry struct {
	Name string
	Link string
	// Landing, when set, is a target that must be present once the entry's
	// screen has loaded.
	Landing string
}

var (
	ProductVariantDetails = Entry{Name: "Product Variant Details", Link: TargetProductVariantLink, Landing: TargetCreateButton}
	ProductDetails        = Entry{Name: "Product Details", Link: TargetProductLink}
	Shifts                = Entry{Name: "Shifts", Link: TargetShiftsLink}
	ReasonDetails         = Entry{Name: "Reason Details", Link: TargetReasonLink}
)

// Entries lists the Master dropdown in menu order.
var Entries = []Entry{ProductVariantDetails, ProductDetails, Shifts, ReasonDetails}

// EntryByName finds an entry case-insensitively, ignoring spaces and dashes.
func EntryByName(name string) (Entry, error) {
	norm := func(s string) string {
		return strings.NewReplacer(" ", "", "-", "", "_", "").Replace(strings.ToLower(s))
	}
	for _, e := range Entries {
		if norm(e.Name) == norm(name) {
			return e, nil
		}
	}
	return Entry{}, fmt.Errorf("unknown master entry %q", name)
}

// Home is the application shell with the navigation bar.
type Home struct {
	app *App
}

const (
	stepOpenMaster   = "open master menu"
	stepDropdownOpen = "verify dropdown open"
)

// NavigateTo opens the Master dropdown and selects e. When the dropdown does
// not show up the opener is clicked once more before giving up.
func (h *Home) NavigateTo(e Entry) *workflow.Workflow {
	a := h.app
	landing := []stepOpt{withFallback()}
	if e.Landing != "" {
		landing = append(landing, a.expect(e.Landing, engine.StatePresent))
	}
	return workflow.New("navigate to "+e.Name,
		workflow.Required(stepOpenMaster,
			a.act(stepOpenMaster, TargetMasterMenu, engine.Click(), withFallback())),
		workflow.Soft(stepDropdownOpen,
			a.act(stepDropdownOpen, e.Link, engine.CheckVisible(),
				withResolveTimeout(a.VerifyTimeout), withPolicy(engine.Once))).
			Recover(stepOpenMaster),
		workflow.Required("open "+e.Name,
			a.act("open "+e.Name, e.Link, engine.Click(), landing...)),
	)
}

// IsDropdownOpen reports whether any Master entry is visible right now.
func (h *Home) IsDropdownOpen(ctx context.Context) bool {
	a := h.app
	for _, e := range Entries {
		ok, err := a.Stepper.Waiter().Until(ctx, engine.Condition{
			Target: a.Locators.Get(e.Link),
			State:  engine.StateVisible,
		}, time.Millisecond)
		if err == nil && ok {
			return true
		}
	}
	return false
}
