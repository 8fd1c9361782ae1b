package panicerr

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRun(t *testing.T) {
	assert.NoError(t, Run(func() error { return nil }))

	want := errors.New("checkout failed")
	assert.ErrorIs(t, Run(func() error { return want }), want)

	err := Run(func() error { panic("nil project node") })
	require.Error(t, err)
	assert.Contains(t, err.Error(), "nil project node")
}

func TestRunContext_PassesContext(t *testing.T) {
	type key struct{}
	ctx := context.WithValue(context.Background(), key{}, "demo")

	err := RunContext(ctx, func(ctx context.Context) error {
		if ctx.Value(key{}) != "demo" {
			return errors.New("context not propagated")
		}
		return nil
	})
	assert.NoError(t, err)
}
