// Package report renders audits as text, JSON, SARIF 2.1.0, or HTML documents.
//
// Renderers are pure: the same audit always yields byte-identical output.
package report
