package domains

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/chromedp/cdproto/cdp"
	cdpruntime "github.com/chromedp/cdproto/runtime"
)

// Runtime exposes the CDP Runtime domain actions.
type Runtime interface {
	Evaluate(ctx context.Context, expression string) (any, error)
}

var _ Runtime = &runtime{}

type runtime struct {
	exec cdp.Executor
}

// NewRuntime returns a new CDP Runtime domain wrapper.
func NewRuntime(exec cdp.Executor) Runtime {
	return &runtime{exec}
}

// Evaluate evaluates expression in the page's main world, awaiting a
// returned promise, and decodes the result by value. An undefined result
// decodes to nil.
func (r *runtime) Evaluate(ctx context.Context, expression string) (any, error) {
	action := cdpruntime.Evaluate(expression).
		WithReturnByValue(true).
		WithAwaitPromise(true)

	obj, exception, err := action.Do(cdp.WithExecutor(ctx, r.exec))
	if err != nil {
		return nil, fmt.Errorf("evaluating expression: %w", err)
	}
	if exception != nil {
		return nil, fmt.Errorf("evaluating expression: %s", exceptionText(exception))
	}
	if obj == nil || obj.Type == cdpruntime.TypeUndefined || len(obj.Value) == 0 {
		return nil, nil
	}

	var v any
	if err := json.Unmarshal(obj.Value, &v); err != nil {
		return nil, fmt.Errorf("decoding evaluation result: %w", err)
	}

	return v, nil
}

func exceptionText(ex *cdpruntime.ExceptionDetails) string {
	var sb strings.Builder
	sb.WriteString(ex.Text)
	if ex.Exception != nil && ex.Exception.Description != "" {
		sb.WriteString(": ")
		sb.WriteString(ex.Exception.Description)
	}
	return sb.String()
}
