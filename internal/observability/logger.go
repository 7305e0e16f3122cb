// Package observability builds the process-wide logger.
package observability

import (
	"log/slog"
	"os"
)

// NewLogger returns a slog logger writing JSON in production and plain text
// everywhere else. Both binaries log through this.
func NewLogger(env string) *slog.Logger {
	if env == "prod" || env == "production" {
		return slog.New(slog.NewJSONHandler(os.Stdout, nil))
	}
	return slog.New(slog.NewTextHandler(os.Stdout, nil))
}
