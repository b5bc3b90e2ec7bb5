package app

import (
	"log/slog"
	"os"
)

// NewLogger returns the process logger. Production deployments set
// LOG_FORMAT=json; everything else gets human-readable text. The service
// attribute keeps registria lines identifiable when server and worker
// logs are aggregated together.
func NewLogger(cfg *Config) *slog.Logger {
	opts := &slog.HandlerOptions{AddSource: true}
	var handler slog.Handler
	if cfg != nil && cfg.LogFormat == "json" {
		handler = slog.NewJSONHandler(os.Stdout, opts)
	} else {
		handler = slog.NewTextHandler(os.Stdout, opts)
	}
	return slog.New(handler).With(slog.String("service", "registria"))
}
