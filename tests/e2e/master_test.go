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

package e2e

import (
	"errors"
	"strings"
	"testing"

	"github.com/chromedp/chromedp"

	"github.com/ttbt-io/masterprobe/engine"
	"github.com/ttbt-io/masterprobe/pages"
)

func statusOf(t *testing.T, h *harness, code string) string {
	t.Helper()
	var status string
	sel := `//tr[@data-code="` + code + `"]/td[contains(@class, "status-cell")]`
	if err := h.sess.Run(h.ctx, chromedp.Text(sel, &status, chromedp.BySearch)); err != nil {
		t.Fatalf("Read status of %s: %v", code, err)
	}
	return strings.TrimSpace(status)
}

func TestNavigateMasterEntries(t *testing.T) {
	h := newHarness(t, "")
	for _, e := range pages.Entries {
		h.run(t, h.app.Home().NavigateTo(e))
	}
	title, err := h.sess.Title(h.ctx)
	if err != nil || title != "Master Admin" {
		t.Errorf("Title = %q, %v", title, err)
	}
}

func TestNavigateRecoversClosedDropdown(t *testing.T) {
	h := newHarness(t, "?flaky=menu")
	out := h.run(t, h.app.Home().NavigateTo(pages.ProductVariantDetails))

	names := out.Trace.Names()
	found := false
	for _, n := range names {
		if strings.HasSuffix(n, "(recovery)") {
			found = true
		}
	}
	if !found {
		t.Errorf("Expected a recovery step, got %v", names)
	}
}

func TestCreateSearchAndEdit(t *testing.T) {
	h := newHarness(t, "")
	pv := h.app.ProductVariants()
	want := pages.ProductVariant{Code: "6100100", Name: "Test Product Variant", TrolleyType: "NA", Capacity: "6"}

	h.run(t, h.app.Home().NavigateTo(pages.ProductVariantDetails))
	out := h.run(t, pv.Create(want))
	if out.Trace.SoftFailures() != 0 {
		t.Errorf("Success message not seen: %s", out.Summary())
	}
	h.run(t, pv.Search(want.Code))
	h.run(t, pv.EditAndVerify(want))

	err := pv.VerifyForm(h.ctx, pages.ProductVariant{Code: want.Code, Name: "Other"})
	var mismatch *pages.FormMismatchError
	if !errors.As(err, &mismatch) || !strings.Contains(mismatch.Diff, "-name: Other") {
		t.Errorf("Expected a form mismatch, got %v", err)
	}
	h.run(t, pv.ClearSearch())
}

func TestRejectedSubmitStopsCreate(t *testing.T) {
	h := newHarness(t, "")
	pv := h.app.ProductVariants()
	h.run(t, h.app.Home().NavigateTo(pages.ProductVariantDetails))

	out := h.app.Run(h.ctx, pv.Create(pages.ProductVariant{Name: "No Code"}))
	var rejected *pages.SubmitRejectedError
	if !errors.As(out.Reason, &rejected) {
		t.Fatalf("Expected a rejected submit: %s", out.Summary())
	}
	if rejected.Message != "Code is required" {
		t.Errorf("Message = %q", rejected.Message)
	}
}

func TestChangeStatus(t *testing.T) {
	h := newHarness(t, "")
	pv := h.app.ProductVariants()

	h.run(t, h.app.Home().NavigateTo(pages.ProductVariantDetails))
	h.run(t, pv.Search("6100002"))
	h.run(t, pv.CancelStatusChange())
	if got := statusOf(t, h, "6100002"); got != "Inactive" {
		t.Fatalf("Status after cancel = %q", got)
	}
	h.run(t, pv.ChangeStatus(pages.Active))
	if got := statusOf(t, h, "6100002"); got != "Active" {
		t.Errorf("Status after change = %q", got)
	}

	rep := h.collector.Finish()
	if rep.Failed != 0 {
		t.Errorf("Run report has %d failed workflow(s)", rep.Failed)
	}
}

func TestBrokenCreateButtonReportsFailure(t *testing.T) {
	h := newHarness(t, "?flaky=create")
	h.run(t, h.app.Home().NavigateTo(pages.ProductVariantDetails))

	out := h.app.Run(h.ctx, h.app.ProductVariants().Create(pages.ProductVariant{Code: "X1"}))
	if out.Succeeded() {
		t.Fatalf("Create succeeded with a dead create button")
	}
	if out.Kind() != engine.KindPostConditionUnmet {
		t.Errorf("Kind = %v", out.Kind())
	}
	var se *engine.StepError
	if !errors.As(out.Reason, &se) || se.Attempts != 2 {
		t.Errorf("Expected 2 attempts: %s", out.Summary())
	}
	if len(out.Trace) != 1 {
		t.Errorf("Steps after the failed one ran: %v", out.Trace.Names())
	}
}
