// Command reportstore uploads analysis results to a report server
// product, deduplicating source content against what the server
// already holds.
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	coreerrors "github.com/davidahmann/reportstore/core/errors"
)

// version is stamped at release time via ldflags; default stays dev
// for local builds. It doubles as the protocol version reported to the
// server.
var version = "0.0.0-dev"

const (
	exitOK             = 0
	exitRuntimeFailure = 1
	exitInvalidInput   = 2
)

func main() {
	os.Exit(run(os.Args[1:]))
}

func run(arguments []string) int {
	var verbose bool
	root := &cobra.Command{
		Use:           "reportstore",
		Short:         "Store analysis results in a report server product.",
		Version:       version,
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "enable debug logging")

	logger := func() *zap.Logger {
		return newLogger(verbose)
	}
	root.AddCommand(newStoreCommand(logger))

	root.SetArgs(arguments)
	if err := root.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "reportstore:", err)
		if hint := coreerrors.HintOf(err); hint != "" {
			fmt.Fprintln(os.Stderr, "hint:", hint)
		}
		return exitCodeForError(err)
	}
	return exitOK
}

// exitCodeForError maps classified failures onto the CLI contract:
// invalid invocations exit 2, runtime and store failures exit 1.
// Unclassified errors reach here only from flag parsing, which is an
// invalid invocation too.
func exitCodeForError(err error) int {
	switch coreerrors.CategoryOf(err) {
	case coreerrors.CategoryInvalidInput:
		return exitInvalidInput
	case "":
		return exitInvalidInput
	default:
		return exitRuntimeFailure
	}
}

func newLogger(verbose bool) *zap.Logger {
	level := zapcore.InfoLevel
	if verbose {
		level = zapcore.DebugLevel
	}
	config := zap.NewDevelopmentConfig()
	config.Level = zap.NewAtomicLevelAt(level)
	config.OutputPaths = []string{"stderr"}
	logger, err := config.Build()
	if err != nil {
		return zap.NewNop()
	}
	return logger
}
