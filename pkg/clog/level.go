package clog

import (
	"context"
	"errors"
	"log/slog"

	"github.com/kazz187/ccsetup/pkg/cerr"
)

// CodeToLevel decides how loudly a failed operation is logged. Bad input is
// the caller's problem and logged as a warning.
func CodeToLevel(code cerr.Code) slog.Level {
	switch code {
	case cerr.OK:
		return slog.LevelInfo
	case cerr.InvalidArgument, cerr.UnsupportedBackend, cerr.MissingModule, cerr.InvalidDirectory:
		return slog.LevelWarn
	default:
		return slog.LevelError
	}
}

// LogError logs err with its code, message and stack (when captured) at the
// level derived from the code.
func LogError(ctx context.Context, logger *slog.Logger, msg string, err error) {
	code := cerr.CodeOf(err)
	attrs := []any{
		slog.String(CodeAttributeKey, code.String()),
		slog.String(ErrorAttributeKey, err.Error()),
	}
	var ce *cerr.Error
	if errors.As(err, &ce) && ce.Stack != "" {
		attrs = append(attrs, slog.String(StackAttributeKey, ce.Stack))
	}
	logger.Log(ctx, CodeToLevel(code), msg, attrs...)
}
