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
	"fmt"
	"strings"
)

// Strategy identifies how a Query locates elements.
type Strategy int

const (
	StrategyID Strategy = iota
	StrategyCSS
	StrategyXPath
	StrategyText
	StrategyAttribute
)

func (s Strategy) String() string {
	switch s {
	case StrategyID:
		return "id"
	case StrategyCSS:
		return "css"
	case StrategyXPath:
		return "xpath"
	case StrategyText:
		return "text"
	case StrategyAttribute:
		return "attribute"
	default:
		return "unknown"
	}
}

// Query describes one way of finding zero or more elements in the current
// page. Queries are values; they are never modified after construction.
type Query struct {
	strategy Strategy
	expr     string
	tag      string
	name     string
}

// ByID matches the element whose id attribute equals id.
func ByID(id string) Query {
	return Query{strategy: StrategyID, expr: id}
}

// ByCSS matches elements with a CSS selector.
func ByCSS(selector string) Query {
	return Query{strategy: StrategyCSS, expr: selector}
}

// ByXPath matches elements with an XPath expression.
func ByXPath(path string) Query {
	return Query{strategy: StrategyXPath, expr: path}
}

// ByText matches elements with the given tag whose text contains text.
// An empty tag matches any element.
func ByText(tag, text string) Query {
	return Query{strategy: StrategyText, expr: text, tag: tag}
}

// ByAttribute matches elements whose attribute name equals value.
func ByAttribute(name, value string) Query {
	return Query{strategy: StrategyAttribute, expr: value, name: name}
}

func (q Query) Strategy() Strategy { return q.strategy }

// Expr returns the selector, path, text or attribute value of the query.
func (q Query) Expr() string { return q.expr }

// Tag returns the element tag of a text query.
func (q Query) Tag() string { return q.tag }

// AttrName returns the attribute name of an attribute query.
func (q Query) AttrName() string { return q.name }

// IsZero reports whether q was never constructed.
func (q Query) IsZero() bool { return q.expr == "" && q.name == "" && q.tag == "" }

// CSS returns an equivalent CSS selector for strategies that have one.
func (q Query) CSS() (string, bool) {
	switch q.strategy {
	case StrategyCSS:
		return q.expr, true
	case StrategyID:
		return fmt.Sprintf(`[id=%s]`, quoteCSS(q.expr)), true
	case StrategyAttribute:
		return fmt.Sprintf(`[%s=%s]`, q.name, quoteCSS(q.expr)), true
	}
	return "", false
}

// XPath returns an equivalent XPath expression for strategies that have one.
func (q Query) XPath() (string, bool) {
	switch q.strategy {
	case StrategyXPath:
		return q.expr, true
	case StrategyID:
		return fmt.Sprintf(`//*[@id=%s]`, quoteXPath(q.expr)), true
	case StrategyAttribute:
		return fmt.Sprintf(`//*[@%s=%s]`, q.name, quoteXPath(q.expr)), true
	case StrategyText:
		tag := q.tag
		if tag == "" {
			tag = "*"
		}
		return fmt.Sprintf(`//%s[contains(normalize-space(.), %s)]`, tag, quoteXPath(q.expr)), true
	}
	return "", false
}

func (q Query) String() string {
	switch q.strategy {
	case StrategyText:
		if q.tag != "" {
			return fmt.Sprintf("text(%s:%q)", q.tag, q.expr)
		}
		return fmt.Sprintf("text(%q)", q.expr)
	case StrategyAttribute:
		return fmt.Sprintf("attribute(%s=%q)", q.name, q.expr)
	default:
		return fmt.Sprintf("%s(%s)", q.strategy, q.expr)
	}
}

func quoteCSS(s string) string {
	return `"` + strings.ReplaceAll(strings.ReplaceAll(s, `\`, `\\`), `"`, `\"`) + `"`
}

// XPathLiteral quotes s as an XPath string literal.
func XPathLiteral(s string) string { return quoteXPath(s) }

// quoteXPath handles values containing both quote kinds with concat().
func quoteXPath(s string) string {
	if !strings.Contains(s, `"`) {
		return `"` + s + `"`
	}
	if !strings.Contains(s, `'`) {
		return `'` + s + `'`
	}
	parts := strings.Split(s, `"`)
	var b strings.Builder
	b.WriteString("concat(")
	for i, p := range parts {
		if i > 0 {
			b.WriteString(`, '"', `)
		}
		b.WriteString(`"` + p + `"`)
	}
	b.WriteString(")")
	return b.String()
}

// Candidates is the ordered list of alternative queries for one logical UI
// target. Order encodes confidence: the first query that resolves and acts
// successfully wins even if a later one would also match.
type Candidates struct {
	target  string
	queries []Query
}

// NewCandidates returns a candidate list for target. The first query is
// mandatory so a list can never be empty.
func NewCandidates(target string, first Query, rest ...Query) Candidates {
	qs := make([]Query, 0, 1+len(rest))
	qs = append(qs, first)
	qs = append(qs, rest...)
	return Candidates{target: target, queries: qs}
}

// CandidatesFrom builds a list from a slice, failing when it is empty.
func CandidatesFrom(target string, qs []Query) (Candidates, error) {
	if len(qs) == 0 {
		return Candidates{}, fmt.Errorf("candidate list %q: at least one query is required", target)
	}
	return NewCandidates(target, qs[0], qs[1:]...), nil
}

func (c Candidates) Target() string { return c.target }

func (c Candidates) Len() int { return len(c.queries) }

func (c Candidates) At(i int) Query { return c.queries[i] }

// Queries returns a copy of the queries in priority order.
func (c Candidates) Queries() []Query {
	out := make([]Query, len(c.queries))
	copy(out, c.queries)
	return out
}

func (c Candidates) String() string {
	parts := make([]string, len(c.queries))
	for i, q := range c.queries {
		parts[i] = q.String()
	}
	return fmt.Sprintf("%s[%s]", c.target, strings.Join(parts, ", "))
}
