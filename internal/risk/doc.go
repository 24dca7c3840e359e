// Package risk defines the security audit data model shared by the pipeline,
// renderers, gate, monitor, and auto-fix components.
//
// The model intentionally avoids maps so that every encoding of an Audit is
// byte-for-byte reproducible.
package risk
