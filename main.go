package main

import (
	"errors"
	"fmt"
	"os"

	"github.com/temirov/secaudit/cmd/cli"
	"github.com/temirov/secaudit/internal/gate"
)

const (
	exitErrorTemplateConstant = "%v\n"
	genericExitCodeConstant   = 1
)

// main executes the secaudit command-line application.
func main() {
	executionError := cli.Execute()
	if executionError == nil {
		return
	}

	var exitCodeError gate.ExitCodeError
	if errors.As(executionError, &exitCodeError) {
		os.Exit(exitCodeError.ExitCode())
	}
	fmt.Fprintf(os.Stderr, exitErrorTemplateConstant, executionError)
	os.Exit(genericExitCodeConstant)
}
