package clog

import (
	"context"
	"maps"
	"sync"
)

const (
	RunIDAttributeKey = "run_id"
	CodeAttributeKey  = "error.code"
	ErrorAttributeKey = "error.message"
	StackAttributeKey = "error.stack"
)

type runAttributes struct {
	mu     sync.RWMutex
	values map[string]any
}

type runAttributesKey struct{}

// ContextWithRun returns a context carrying a mutable attribute set tagged
// with runID. Every record logged through AttributesHandler with this context
// (or one derived from it) carries those attributes.
func ContextWithRun(ctx context.Context, runID string) context.Context {
	attrs := &runAttributes{
		values: map[string]any{RunIDAttributeKey: runID},
	}
	return context.WithValue(ctx, runAttributesKey{}, attrs)
}

func AddAttribute(ctx context.Context, key string, value any) {
	a, ok := ctx.Value(runAttributesKey{}).(*runAttributes)
	if !ok {
		return
	}
	a.mu.Lock()
	defer a.mu.Unlock()
	a.values[key] = value
}

func AddAttributes(ctx context.Context, attributes map[string]any) {
	a, ok := ctx.Value(runAttributesKey{}).(*runAttributes)
	if !ok {
		return
	}
	a.mu.Lock()
	defer a.mu.Unlock()
	maps.Copy(a.values, attributes)
}

func GetAttribute[T any](ctx context.Context, key string) T {
	var zero T
	v, ok := GetAttributes(ctx)[key].(T)
	if !ok {
		return zero
	}
	return v
}

// RunID returns the id given to ContextWithRun, or "" outside a run.
func RunID(ctx context.Context) string {
	return GetAttribute[string](ctx, RunIDAttributeKey)
}

func GetAttributes(ctx context.Context) map[string]any {
	a, ok := ctx.Value(runAttributesKey{}).(*runAttributes)
	if !ok {
		return nil
	}
	a.mu.RLock()
	defer a.mu.RUnlock()
	return maps.Clone(a.values)
}
