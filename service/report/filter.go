package report

import (
	"bytes"
	"encoding/json"
	"fmt"

	"github.com/itchyny/gojq"
)

// Filter keeps only the events for which every jq expression is truthy.
// Expressions see one event at a time in its JSON form, e.g. `.kind == "token"`,
// `.delta > 1000000` or `.ui_delta >= 0.5`.
type Filter struct {
	exprs []string
	codes []*gojq.Code
}

// CompileFilter parses and compiles the given jq expressions.
func CompileFilter(exprs []string) (*Filter, error) {
	f := &Filter{
		exprs: exprs,
		codes: make([]*gojq.Code, len(exprs)),
	}
	for i, expr := range exprs {
		query, err := gojq.Parse(expr)
		if err != nil {
			return nil, fmt.Errorf("failed to parse jq filter %q: %w", expr, err)
		}
		f.codes[i], err = gojq.Compile(query)
		if err != nil {
			return nil, fmt.Errorf("failed to compile jq filter %q: %w", expr, err)
		}
	}
	return f, nil
}

// Empty reports whether the filter has no expressions.
func (f *Filter) Empty() bool {
	return f == nil || len(f.codes) == 0
}

// Exprs returns the source expressions.
func (f *Filter) Exprs() []string {
	if f == nil {
		return nil
	}
	return f.exprs
}

// Apply returns a copy of r holding only the matching events.
func (f *Filter) Apply(r *Report) (*Report, error) {
	if f.Empty() {
		return r, nil
	}

	out := *r
	out.Events = make([]Event, 0, len(r.Events))
	for _, ev := range r.Events {
		ok, err := f.Match(ev)
		if err != nil {
			return nil, err
		}
		if ok {
			out.Events = append(out.Events, ev)
		}
	}
	return &out, nil
}

// Match evaluates every expression against ev. A jq runtime error or an empty
// result counts as a non-match.
func (f *Filter) Match(ev Event) (bool, error) {
	v, err := filterInput(ev)
	if err != nil {
		return false, err
	}

	for _, code := range f.codes {
		iter := code.Run(v)
		result, ok := iter.Next()
		if !ok {
			return false, nil
		}
		if _, isErr := result.(error); isErr {
			return false, nil
		}
		if !isTruthy(result) {
			return false, nil
		}
	}
	return true, nil
}

// filterInput is the JSON form of ev as jq sees it. Numbers stay exact, and
// ui_delta is a number rather than the string the report encodes it as.
func filterInput(ev Event) (map[string]interface{}, error) {
	data, err := json.Marshal(ev)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal event: %w", err)
	}

	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()
	var v map[string]interface{}
	if err := dec.Decode(&v); err != nil {
		return nil, fmt.Errorf("failed to decode event: %w", err)
	}
	v["ui_delta"] = json.Number(ev.UIDelta.String())
	return v, nil
}

func isTruthy(v interface{}) bool {
	if v == nil {
		return false
	}
	if b, ok := v.(bool); ok {
		return b
	}
	// Everything else (numbers, strings, objects, arrays) is truthy
	return true
}
