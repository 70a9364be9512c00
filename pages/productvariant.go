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

	"github.com/pmezard/go-difflib/difflib"

	"github.com/ttbt-io/masterprobe/engine"
	"github.com/ttbt-io/masterprobe/workflow"
)

// ProductVariant is the record edited on the Product Variant screen.
type ProductVariant struct {
	Code        string
	Name        string
	TrolleyType string
	Capacity    string
}

// String renders v one field per line, the format form diffs are shown in.
func (v ProductVariant) String() string {
	return fmt.Sprintf("code: %s\nname: %s\ntrolley type: %s\ncapacity: %s\n", v.Code, v.Name, v.TrolleyType, v.Capacity)
}

// Status is the lifecycle status of a product variant.
type Status string

const (
	Active   Status = "Active"
	Inactive Status = "Inactive"
)

// ParseStatus accepts Active or Inactive in any case.
func ParseStatus(s string) (Status, error) {
	switch {
	case strings.EqualFold(s, string(Active)):
		return Active, nil
	case strings.EqualFold(s, string(Inactive)):
		return Inactive, nil
	}
	return "", fmt.Errorf("invalid status %q: use Active or Inactive", s)
}

func (s Status) radio() string {
	if s == Inactive {
		return TargetInactiveRadio
	}
	return TargetActiveRadio
}

// ProductVariantPage is the Product Variant Details screen.
type ProductVariantPage struct {
	app *App
}

type field struct {
	label  string
	target string
	get    func(ProductVariant) string
	set    func(*ProductVariant, string)
}

var formFields = []field{
	{"code", TargetCodeInput, func(v ProductVariant) string { return v.Code }, func(v *ProductVariant, s string) { v.Code = s }},
	{"name", TargetNameInput, func(v ProductVariant) string { return v.Name }, func(v *ProductVariant, s string) { v.Name = s }},
	{"trolley type", TargetTrolleyInput, func(v ProductVariant) string { return v.TrolleyType }, func(v *ProductVariant, s string) { v.TrolleyType = s }},
	{"capacity", TargetCapacityInput, func(v ProductVariant) string { return v.Capacity }, func(v *ProductVariant, s string) { v.Capacity = s }},
}

// OpenForm clicks the create button until the form title shows.
func (p *ProductVariantPage) OpenForm() workflow.Step {
	a := p.app
	return workflow.Required("open create form",
		a.act("open create form", TargetCreateButton, engine.Click(),
			withFallback(), a.expect(TargetFormTitle, engine.StateVisible)))
}

// FillForm returns one required step per form input.
func (p *ProductVariantPage) FillForm(v ProductVariant) []workflow.Step {
	a := p.app
	steps := make([]workflow.Step, 0, len(formFields))
	for _, f := range formFields {
		name := "enter " + f.label
		steps = append(steps, workflow.Required(name,
			a.act(name, f.target, engine.ClearAndType(f.get(v)), withFallback())))
	}
	return steps
}

// Submit clicks the submit button.
func (p *ProductVariantPage) Submit() workflow.Step {
	a := p.app
	return workflow.Required("submit form",
		a.act("submit form", TargetSubmitButton, engine.Click(), withFallback()))
}

// SubmitRejectedError reports a submit answered with an error banner.
type SubmitRejectedError struct {
	Message string
}

func (e *SubmitRejectedError) Error() string {
	return fmt.Sprintf("submit rejected: %q", e.Message)
}

// ErrorMessage waits up to timeout for the error banner and returns its
// text. shown is false when no banner appeared.
func (p *ProductVariantPage) ErrorMessage(ctx context.Context, timeout time.Duration) (msg string, shown bool, err error) {
	a := p.app
	cond := engine.Condition{Target: a.Locators.Get(TargetErrorMessage), State: engine.StateVisible}
	shown, err = a.Stepper.Waiter().Until(ctx, cond, timeout)
	if err != nil || !shown {
		return "", false, err
	}
	r := a.act("read error message", TargetErrorMessage, engine.ReadText(),
		withResolveTimeout(timeout), withPolicy(engine.Once))(ctx)
	if !r.Succeeded {
		return "", true, r.Err
	}
	return r.Value, true, nil
}

// CheckAccepted fails with a *SubmitRejectedError when an error banner shows
// within the verify timeout.
func (p *ProductVariantPage) CheckAccepted() workflow.Step {
	return workflow.Required("check submit accepted", workflow.Do("check submit accepted", func(ctx context.Context) error {
		msg, shown, err := p.ErrorMessage(ctx, p.app.VerifyTimeout)
		if err != nil {
			return err
		}
		if shown {
			return &SubmitRejectedError{Message: msg}
		}
		return nil
	}))
}

// Create opens the form, fills it with v and submits it. A rejected submit
// aborts the workflow; the success banner check is soft since some builds
// close the form without one.
func (p *ProductVariantPage) Create(v ProductVariant) *workflow.Workflow {
	a := p.app
	steps := []workflow.Step{p.OpenForm()}
	steps = append(steps, p.FillForm(v)...)
	steps = append(steps,
		p.Submit(),
		p.CheckAccepted(),
		workflow.Soft("verify success message",
			a.act("verify success message", TargetSuccessMessage, engine.CheckVisible(),
				withResolveTimeout(a.VerifyTimeout), withPolicy(engine.Once))),
	)
	return workflow.New("create product variant "+v.Code, steps...)
}

// resultRow matches a table row containing code.
func resultRow(code string) engine.Candidates {
	return engine.NewCandidates("result row "+code,
		engine.ByXPath(fmt.Sprintf(`//table//tbody/tr[td[contains(normalize-space(.), %s)]]`, engine.XPathLiteral(code))),
		engine.ByText("td", code),
	)
}

// Search types code into the search box, submits with Enter and waits for
// a row holding it.
func (p *ProductVariantPage) Search(code string) *workflow.Workflow {
	a := p.app
	return workflow.New("search product variant "+code,
		workflow.Required("type search query",
			a.act("type search query", TargetSearchInput, engine.ClearAndType(code), withFallback())),
		workflow.Required("press enter",
			a.act("press enter", TargetSearchInput, engine.PressKey(engine.KeyEnter))),
		workflow.Soft("wait for result row",
			a.actOn("wait for result row", resultRow(code), engine.CheckVisible(), withPolicy(engine.Once))),
	)
}

// ClearSearch empties the search box.
func (p *ProductVariantPage) ClearSearch() *workflow.Workflow {
	a := p.app
	return workflow.New("clear search",
		workflow.Required("clear search query",
			a.act("clear search query", TargetSearchInput, engine.ClearAndType(""), withFallback())),
	)
}

func (p *ProductVariantPage) clickEdit() workflow.Step {
	a := p.app
	return workflow.Required("click edit",
		a.act("click edit", TargetEditButton, engine.Click(),
			withFallback(), a.expect(TargetCodeInput, engine.StateVisible)))
}

// EditFirstRow opens the edit form of the first table row.
func (p *ProductVariantPage) EditFirstRow() *workflow.Workflow {
	return workflow.New("edit first row", p.clickEdit())
}

// EditAndVerify opens the edit form of the first table row and checks it
// holds want.
func (p *ProductVariantPage) EditAndVerify(want ProductVariant) *workflow.Workflow {
	return workflow.New("edit and verify "+want.Code, p.clickEdit(), p.VerifyFormStep(want))
}

func (p *ProductVariantPage) openStatusModal() workflow.Step {
	a := p.app
	return workflow.Required("open status modal",
		a.act("open status modal", TargetStatusButton, engine.Click(),
			withFallback(), a.expect(TargetStatusModal, engine.StateVisible)))
}

// ChangeStatus opens the status modal of the first row, selects s and
// confirms until the modal closes.
func (p *ProductVariantPage) ChangeStatus(s Status) *workflow.Workflow {
	a := p.app
	return workflow.New("change status to "+string(s),
		p.openStatusModal(),
		workflow.Required("select "+string(s),
			a.act("select "+string(s), s.radio(), engine.Click(),
				withFallback(), a.expectChecked(s.radio()))),
		workflow.Required("confirm status change",
			a.act("confirm status change", TargetStatusYes, engine.Click(),
				withFallback(), a.expect(TargetStatusModal, engine.StateHidden))),
	)
}

// CancelStatusChange opens the status modal and dismisses it with No.
func (p *ProductVariantPage) CancelStatusChange() *workflow.Workflow {
	a := p.app
	return workflow.New("cancel status change",
		p.openStatusModal(),
		workflow.Required("dismiss status modal",
			a.act("dismiss status modal", TargetStatusNo, engine.Click(),
				withFallback(), a.expect(TargetStatusModal, engine.StateHidden))),
	)
}

// ModalTitle reads the status modal title, e.g. "Change Status Of Part: PV-1".
func (p *ProductVariantPage) ModalTitle(ctx context.Context) (string, error) {
	r := p.app.act("read modal title", TargetStatusModal, engine.ReadText(), withPolicy(engine.Once))(ctx)
	return r.Value, r.Err
}

// ReadForm reads the current values of the four form inputs.
func (p *ProductVariantPage) ReadForm(ctx context.Context) (ProductVariant, error) {
	var v ProductVariant
	for _, f := range formFields {
		r := p.app.act("read "+f.label, f.target, engine.ReadAttribute("value"), withPolicy(engine.Once))(ctx)
		if !r.Succeeded {
			return v, fmt.Errorf("read %s: %w", f.label, r.Err)
		}
		f.set(&v, r.Value)
	}
	return v, nil
}

// FormMismatchError reports a form whose values differ from the expected
// record.
type FormMismatchError struct {
	Diff string
}

func (e *FormMismatchError) Error() string {
	return "form values differ from expected:\n" + e.Diff
}

// VerifyForm compares the form with want and returns a *FormMismatchError
// holding a unified diff when they differ.
func (p *ProductVariantPage) VerifyForm(ctx context.Context, want ProductVariant) error {
	got, err := p.ReadForm(ctx)
	if err != nil {
		return err
	}
	return compareForm(want, got)
}

func compareForm(want, got ProductVariant) error {
	if want == got {
		return nil
	}
	diff, err := difflib.GetUnifiedDiffString(difflib.UnifiedDiff{
		A:        difflib.SplitLines(want.String()),
		B:        difflib.SplitLines(got.String()),
		FromFile: "Expected",
		ToFile:   "Actual",
		Context:  3,
	})
	if err != nil {
		return fmt.Errorf("diff: %w", err)
	}
	return &FormMismatchError{Diff: diff}
}

// VerifyFormStep wraps VerifyForm as a workflow step.
func (p *ProductVariantPage) VerifyFormStep(want ProductVariant) workflow.Step {
	return workflow.Required("verify form", workflow.Do("verify form", func(ctx context.Context) error {
		return p.VerifyForm(ctx, want)
	}))
}
