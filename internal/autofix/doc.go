// Package autofix applies remediation versions from an audit's dependency findings
// to the project's manifests.
package autofix
