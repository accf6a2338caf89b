// Package logging provides structured logging for maa-core.
//
// It wraps Go's standard log/slog package so that every component logs with
// the same handler, level filtering and default fields (service, version).
//
// Configuration comes from the logging section of config.yaml:
//
//	logging:
//	  level: "info"      # debug, info, warn, error
//	  format: "json"     # json, text
//	  output: "stdout"   # stdout, stderr, discard
//
// Usage:
//
//	logger := logging.New(cfg.Logging, "1.0.0")
//	logger.Info("device connected", "uuid", uuid)
//	logger.Component("engine").Error("library load failed", "error", err)
//
// Packages that log accept a small Logger interface (Debug/Info/Warn/Error)
// which *Logger satisfies through the embedded *slog.Logger.
package logging
