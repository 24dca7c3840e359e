// Package cli constructs the secaudit command-line interface, wiring the Cobra
// command hierarchy, the layered configuration loader (embedded defaults, config
// file, SECAUDIT_ environment variables, flags), and structured logging.
package cli
