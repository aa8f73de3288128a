// Package main implements the patternminer CLI: survey how a code
// pattern is used across GitHub organizations by ranking and shallow-
// cloning the repositories that contain it.
package main

import (
	"errors"
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var version = "dev"

func main() {
	os.Exit(run())
}

func run() int {
	rootCmd := &cobra.Command{
		Use:   "patternminer",
		Short: "Survey code-pattern usage across GitHub organizations",
		Long: `patternminer searches GitHub code search for a textual pattern, ranks the
repositories that contain matches, and shallow-clones the top-ranked ones
into a local workspace for offline analysis. Results are cached per
pattern so repeated invocations are cheap.`,
		Version:       version,
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	rootCmd.AddCommand(newAcquireCmd())

	if err := rootCmd.Execute(); err != nil {
		var ee *exitError
		if errors.As(err, &ee) {
			// Diagnostic already logged by the command.
			return ee.code
		}
		fmt.Fprintln(os.Stderr, err)
		return 1
	}
	return 0
}

// exitError carries a specific process exit code out of a cobra RunE.
type exitError struct {
	code int
	err  error
}

func (e *exitError) Error() string { return e.err.Error() }
func (e *exitError) Unwrap() error { return e.err }
