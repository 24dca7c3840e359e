// Package execshell runs external tools for project inspection.
//
// ShellExecutor adds structured logging and typed failures on top of a
// CommandRunner; OSCommandRunner is the os/exec implementation.
package execshell
