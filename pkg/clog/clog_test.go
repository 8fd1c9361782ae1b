package clog

import (
	"bytes"
	"context"
	"errors"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kazz187/ccsetup/pkg/cerr"
)

func TestAttributesHandler_AddsRunAttributes(t *testing.T) {
	var buf bytes.Buffer
	logger := slog.New(NewAttributesHandler(slog.NewJSONHandler(&buf, nil)))

	ctx := ContextWithRun(context.Background(), "01HZX")
	AddAttribute(ctx, "project", "demo")
	logger.InfoContext(ctx, "checkout started")

	out := buf.String()
	assert.Contains(t, out, `"run_id":"01HZX"`)
	assert.Contains(t, out, `"project":"demo"`)
	assert.Equal(t, "01HZX", RunID(ctx))
}

func TestAddAttribute_WithoutRunIsNoop(t *testing.T) {
	ctx := context.Background()
	AddAttribute(ctx, "project", "demo")
	assert.Nil(t, GetAttributes(ctx))
	assert.Empty(t, RunID(ctx))
}

func TestTextHandler_Format(t *testing.T) {
	var buf bytes.Buffer
	logger := slog.New(NewTextHandler(&buf, WithColor(false), WithLevel(slog.LevelDebug)))

	logger.Debug("preparing build.xml", "target", "checkout", "file", "/tmp/cc/projects/demo/build.xml")

	out := buf.String()
	assert.Contains(t, out, `DEBUG "preparing build.xml"`)
	assert.Contains(t, out, "    file=/tmp/cc/projects/demo/build.xml\n    target=checkout\n")
}

func TestTextHandler_RespectsLevel(t *testing.T) {
	var buf bytes.Buffer
	logger := slog.New(NewTextHandler(&buf, WithColor(false)))

	logger.Debug("hidden")
	assert.Empty(t, buf.String())
}

func TestLogError_UsesCodeLevel(t *testing.T) {
	var buf bytes.Buffer
	logger := slog.New(NewTextHandler(&buf, WithColor(false), WithLevel(slog.LevelDebug)))

	LogError(context.Background(), logger, "checkout failed",
		cerr.NewError(cerr.MissingModule, "cvs requires a module", nil))
	out := buf.String()
	require.NotEmpty(t, out)
	assert.Contains(t, out, "WARN [missing_module]")
	assert.Contains(t, out, `"checkout failed" "[missing_module] cvs requires a module"`)

	buf.Reset()
	LogError(context.Background(), logger, "merge failed", errors.New("disk full"))
	assert.Contains(t, buf.String(), "ERROR [unknown]")
}
