// Package query provides JQ-based projection of lookup response bodies.
package query

import (
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"strings"
	"sync"

	"github.com/itchyny/gojq"
	lru "github.com/hashicorp/golang-lru/v2"
)

// DefaultCompiledCacheSize bounds how many compiled expressions are kept.
const DefaultCompiledCacheSize = 128

// Engine executes JQ expressions against decoded JSON values. Compiled
// expressions are cached, so repeated projections skip parsing.
type Engine struct {
	mu       sync.Mutex
	compiled *lru.Cache[string, *gojq.Code]
}

// NewEngine creates a new query engine.
func NewEngine() *Engine {
	c, _ := lru.New[string, *gojq.Code](DefaultCompiledCacheSize)
	return &Engine{compiled: c}
}

// Input is one value to project, labelled for error messages.
type Input struct {
	Label string
	Value any
}

// Result contains the values an expression produced across all inputs.
type Result struct {
	Values         []any          `json:"values"`
	Errors         []string       `json:"errors,omitempty"`
	RawCount       int            `json:"raw_count"`
	MatchedIndices []int          `json:"matched_indices,omitempty"`
	LabelCounts    map[string]int `json:"label_counts,omitempty"`
}

// Options tune a projection.
type Options struct {
	Deduplicate bool
	MaxResults  int // 0 means unlimited
}

// Project runs expression over each input in order. Errors on one input are
// collected and never stop the others; only a bad expression fails the call.
func (e *Engine) Project(expression string, inputs []Input, opts Options) (*Result, error) {
	code, err := e.compile(expression)
	if err != nil {
		return nil, err
	}

	result := &Result{
		Values:      make([]any, 0),
		LabelCounts: make(map[string]int),
	}

	seen := make(map[string]bool)
	seenErrors := make(map[string]bool)
	matched := make(map[int]bool)

	full := func() bool { return opts.MaxResults > 0 && len(result.Values) >= opts.MaxResults }

	for i, in := range inputs {
		if full() {
			break
		}

		label := in.Label
		if label == "" {
			label = fmt.Sprintf("body[%d]", i)
		}

		value, err := normalize(in.Value)
		if err != nil {
			msg := fmt.Sprintf("%s: %v", label, err)
			if !seenErrors[msg] {
				result.Errors = append(result.Errors, msg)
				seenErrors[msg] = true
			}
			continue
		}

		iter := code.Run(value)
		for !full() {
			v, ok := iter.Next()
			if !ok {
				break
			}

			if err, isErr := v.(error); isErr {
				msg := formatJQError(label, err)
				if !seenErrors[msg] {
					result.Errors = append(result.Errors, msg)
					seenErrors[msg] = true
				}
				continue
			}

			if v == nil {
				continue
			}

			result.RawCount++
			result.LabelCounts[label]++
			matched[i] = true

			if opts.Deduplicate {
				key := valueKey(v)
				if seen[key] {
					continue
				}
				seen[key] = true
			}

			result.Values = append(result.Values, v)
		}
	}

	for idx := range matched {
		result.MatchedIndices = append(result.MatchedIndices, idx)
	}
	sort.Ints(result.MatchedIndices)

	return result, nil
}

// ValidateExpression checks if a JQ expression is valid without executing it.
func (e *Engine) ValidateExpression(expression string) error {
	_, err := e.compile(expression)
	return err
}

func (e *Engine) compile(expression string) (*gojq.Code, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	if code, ok := e.compiled.Get(expression); ok {
		return code, nil
	}

	q, err := gojq.Parse(expression)
	if err != nil {
		var parseErr *gojq.ParseError
		if errors.As(err, &parseErr) {
			return nil, fmt.Errorf("invalid jq expression at position %d: %w", parseErr.Offset, err)
		}
		return nil, fmt.Errorf("invalid jq expression: %w", err)
	}

	code, err := gojq.Compile(q)
	if err != nil {
		return nil, fmt.Errorf("failed to compile jq expression: %w", err)
	}
	e.compiled.Add(expression, code)
	return code, nil
}

// normalize converts v into the plain JSON value space gojq accepts.
// Values already decoded by encoding/json pass through untouched.
func normalize(v any) (any, error) {
	switch v.(type) {
	case nil, bool, float64, int, string, []any, map[string]any:
		return v, nil
	}
	b, err := json.Marshal(v)
	if err != nil {
		return nil, fmt.Errorf("not JSON encodable: %w", err)
	}
	var out any
	if err := json.Unmarshal(b, &out); err != nil {
		return nil, fmt.Errorf("invalid JSON: %w", err)
	}
	return out, nil
}

// formatJQError creates a helpful error message for JQ execution errors.
//
// Runtime JQ errors (like "cannot iterate over: null") are plain errors
// without typed wrappers in gojq, so hints are matched on the message text.
func formatJQError(label string, err error) string {
	var haltErr *gojq.HaltError
	if errors.As(err, &haltErr) {
		if haltErr.Value() == nil {
			return fmt.Sprintf("%s: query halted", label)
		}
		return fmt.Sprintf("%s: query halted with: %v", label, haltErr.Value())
	}

	errStr := err.Error()

	var hint string
	switch {
	case strings.Contains(errStr, "cannot iterate over: null"):
		hint = " (the path may not exist in this response)"
	case strings.Contains(errStr, "cannot index") && strings.Contains(errStr, "with"):
		hint = " (field not found or wrong type)"
	case strings.Contains(errStr, "object") && strings.Contains(errStr, "cannot be iterated"):
		hint = " (expected array but got object, try removing '[]')"
	case strings.Contains(errStr, "array") && strings.Contains(errStr, "cannot be indexed"):
		hint = " (expected object but got array, try adding '[]')"
	}

	return fmt.Sprintf("%s: %s%s", label, errStr, hint)
}

// valueKey creates a string key for deduplication.
func valueKey(v any) string {
	switch val := v.(type) {
	case string:
		return "s:" + val
	case float64:
		return fmt.Sprintf("n:%v", val)
	case int:
		return fmt.Sprintf("n:%v", val)
	case bool:
		return fmt.Sprintf("b:%v", val)
	case nil:
		return "null"
	default:
		b, err := json.Marshal(val)
		if err != nil {
			return fmt.Sprintf("?:%v", val)
		}
		return "j:" + string(b)
	}
}
