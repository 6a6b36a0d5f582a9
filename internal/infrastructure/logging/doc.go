// Package logging provides structured logging for the iNELS core.
//
// It wraps log/slog with JSON output for production, text output for
// development, level filtering and default service/version attributes.
//
// Configuration lives in the logging section of config.yaml:
//
//	logging:
//	  level: "info"      # debug, info, warn, error
//	  format: "json"     # json, text
//	  output: "stdout"   # stdout, stderr
//
// Usage:
//
//	logger := logging.New(cfg.Logging, "1.0.0")
//	mqttLog := logger.Component("mqtt")
//	mqttLog.Warn("broker connection lost", "error", err)
//
// Never log broker passwords or InfluxDB tokens.
package logging
