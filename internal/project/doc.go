// Package project gathers local evidence about a project directory: its
// dependency manifests and an inventory of source and configuration files.
//
// The evidence is handed to the inference backend as context for the scan
// queries so that its answers are anchored in real files.
package project
