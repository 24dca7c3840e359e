// Package utils exposes reusable helpers consumed by the CLI and the audit pipeline.
//
// It houses the ConfigurationLoader and LoggerFactory abstractions that integrate
// Viper, environment variables, and zap logging, plus the context accessor that
// carries the configuration path and the audit cycle identifier.
package utils
