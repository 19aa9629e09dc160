// Package middleware adapts the shared HTTP middleware to the JSON API.
package middleware

import (
	"log/slog"
	"net/http"

	"github.com/mcoot/blitzarena/internal/api/apierr"
	"github.com/mcoot/blitzarena/internal/middleware"
)

// Recovery turns handler panics into the API's INTERNAL_ERROR body
func Recovery(logger *slog.Logger) func(http.Handler) http.Handler {
	return middleware.Recovery(component(logger), func(w http.ResponseWriter, _ *http.Request, _ any) {
		apierr.WriteError(w, apierr.NewInternalError())
	})
}

// Logging creates request logging middleware for the API
func Logging(logger *slog.Logger) func(http.Handler) http.Handler {
	return middleware.Logging(component(logger))
}

func component(logger *slog.Logger) *slog.Logger {
	return logger.With(slog.String("component", "api"))
}
