// Package scenario holds the variable scope checks run against the fixture
// page: each one calls a demo function and compares DOM text afterwards.
package scenario

import (
	"context"
	"fmt"
	"net/url"
	"path/filepath"
	"strconv"
	"strings"
)

// DefaultDocumentPath is the fixture page, relative to the module root.
const DefaultDocumentPath = "web/index.html"

// Page is the part of a browser session scenarios need.
type Page interface {
	Navigate(ctx context.Context, url string) error
	ExecuteScript(ctx context.Context, script string) (any, error)
}

// DOMAssertion expects the text content of the element with ElementID to
// be Want.
type DOMAssertion struct {
	ElementID string
	Want      string
}

// Scenario invokes Function on a freshly loaded page and checks the
// assertions, in order.
type Scenario struct {
	Name       string
	Function   string
	Assertions []DOMAssertion
}

// Scenarios returns the four variable scope scenarios.
func Scenarios() []Scenario {
	return []Scenario{
		{
			Name:     "global",
			Function: "globalScopeDemo",
			Assertions: []DOMAssertion{
				{ElementID: "output-global", Want: "I am a global scope variable!"},
			},
		},
		{
			Name:     "local",
			Function: "localScopeDemo",
			Assertions: []DOMAssertion{
				{ElementID: "output-local-let", Want: "I am a local scope variable declared using the let keyword!"},
			},
		},
		{
			Name:     "var",
			Function: "varScopeDemo",
			Assertions: []DOMAssertion{
				{ElementID: "output-local-var", Want: "I am a local scope variable declared using the var keyword!"},
				{ElementID: "output-reassigned-var", Want: "I have been reassigned with a different value!"},
			},
		},
		{
			Name:     "block",
			Function: "blockScopeDemo",
			Assertions: []DOMAssertion{
				{ElementID: "output-block-const", Want: "I am a block-level scope variable declared using the const keyword!"},
			},
		},
	}
}

// Lookup returns the scenario called name.
func Lookup(name string) (Scenario, bool) {
	for _, sc := range Scenarios() {
		if sc.Name == name {
			return sc, true
		}
	}
	return Scenario{}, false
}

// Mismatch is a failed DOMAssertion.
type Mismatch struct {
	ElementID string
	Want      string
	Got       string
}

func (m Mismatch) String() string {
	return fmt.Sprintf("#%s: want %q, got %q", m.ElementID, m.Want, m.Got)
}

// Result is the outcome of running one scenario. Err is set when the
// scenario could not be carried out; Mismatches lists every failed
// assertion otherwise.
type Result struct {
	Scenario   string
	Mismatches []Mismatch
	Err        error
}

// Passed reports whether the scenario ran and every assertion held.
func (r Result) Passed() bool {
	return r.Err == nil && len(r.Mismatches) == 0
}

// Failure describes why the scenario did not pass, or returns nil.
func (r Result) Failure() error {
	if r.Err != nil {
		return fmt.Errorf("scenario %s: %w", r.Scenario, r.Err)
	}
	if len(r.Mismatches) == 0 {
		return nil
	}
	msgs := make([]string, 0, len(r.Mismatches))
	for _, m := range r.Mismatches {
		msgs = append(msgs, m.String())
	}
	return fmt.Errorf("scenario %s: %s", r.Scenario, strings.Join(msgs, "; "))
}

// Run loads documentURL in p, calls the scenario's function and checks all
// of its assertions.
func Run(ctx context.Context, p Page, documentURL string, sc Scenario) Result {
	res := Result{Scenario: sc.Name}

	if err := p.Navigate(ctx, documentURL); err != nil {
		res.Err = err
		return res
	}
	if err := Call(ctx, p, sc.Function); err != nil {
		res.Err = err
		return res
	}
	for _, a := range sc.Assertions {
		got, err := TextContent(ctx, p, a.ElementID)
		if err != nil {
			res.Err = err
			return res
		}
		if got != a.Want {
			res.Mismatches = append(res.Mismatches, Mismatch{ElementID: a.ElementID, Want: a.Want, Got: got})
		}
	}

	return res
}

// Call invokes the page's global function fn without arguments.
func Call(ctx context.Context, p Page, fn string) error {
	if _, err := p.ExecuteScript(ctx, fn+"()"); err != nil {
		return fmt.Errorf("calling %s: %w", fn, err)
	}
	return nil
}

// TextContent returns the text content of the element with id.
func TextContent(ctx context.Context, p Page, id string) (string, error) {
	script := "return document.getElementById(" + strconv.Quote(id) + ").textContent;"
	v, err := p.ExecuteScript(ctx, script)
	if err != nil {
		return "", fmt.Errorf("reading text of #%s: %w", id, err)
	}
	switch v := v.(type) {
	case string:
		return v, nil
	case nil:
		return "", nil
	default:
		return fmt.Sprint(v), nil
	}
}

// DocumentURL returns the file:// URL of the document at path, resolved
// against the working directory.
func DocumentURL(path string) (string, error) {
	abs, err := filepath.Abs(path)
	if err != nil {
		return "", fmt.Errorf("resolving document path %q: %w", path, err)
	}
	p := filepath.ToSlash(abs)
	if !strings.HasPrefix(p, "/") {
		// C:/dir/index.html
		p = "/" + p
	}

	return (&url.URL{Scheme: "file", Path: p}).String(), nil
}
