package handler

import (
	"log/slog"
	"net/http"

	"github.com/dmitrymomot/seoscope/pkg/logger"
	"github.com/dmitrymomot/seoscope/pkg/requestid"
)

// NewErrorHandler returns an ErrorHandler that logs err at a level matching
// its status and renders a JSON failure envelope.
func NewErrorHandler[C Context](log *slog.Logger) ErrorHandler[C] {
	return func(ctx C, err error) {
		status, _ := ErrorToDetail(err)
		level := slog.LevelWarn
		if status >= http.StatusInternalServerError {
			level = slog.LevelError
		}
		log.Log(ctx, level, "request failed",
			slog.String("path", ctx.Request().URL.Path),
			slog.Int("status", status),
			logger.RequestID(requestid.FromContext(ctx)),
			logger.Error(err),
		)
		_ = JSONError(err).Render(ctx.ResponseWriter(), ctx.Request())
	}
}
