// Package audit runs the security audit pipeline and exposes the audit command.
//
// One cycle is staged as scan (three concurrent backend queries), enrichment
// (two concurrent queries, each fed by one scan artifact), synthesis (one
// composite query parsed into risk.Audit), and best-effort live threat
// intelligence augmentation. Scan and enrichment fail fast; augmentation never
// fails the cycle.
package audit
