// Package cli parses command-line arguments into an app.Config.
package cli

import (
	"flag"
	"fmt"
	"io"
	"log/slog"
	"strings"

	"github.com/vk/taskgridgo/internal/app"
)

// ExitError is a custom error type that includes a specific exit code.
type ExitError struct {
	Code    int
	Message string
}

// Error implements the error interface for ExitError.
func (e *ExitError) Error() string {
	return e.Message
}

// Parse processes command-line arguments. It returns a populated Config,
// a boolean indicating if the program should exit cleanly, or an ExitError.
func Parse(args []string, output io.Writer) (*app.Config, bool, error) {
	slog.Debug("CLI parser started.")
	flagSet := flag.NewFlagSet("taskgridgo", flag.ContinueOnError)
	flagSet.SetOutput(output)

	flagSet.Usage = func() {
		fmt.Fprint(output, `
TaskGridGo - a parallel task-graph cycle runtime.

Usage:
  taskgridgo [options] [GRID_PATH]

Arguments:
  GRID_PATH
    Path to a single .hcl grid file or a directory containing .hcl files.

Options:
`)
		flagSet.PrintDefaults()
	}

	gridFlag := flagSet.String("grid", "", "Path to the grid file or directory.")
	gFlag := flagSet.String("g", "", "Path to the grid file or directory (shorthand).")
	workersFlag := flagSet.Int("workers", 0, "Worker pool size. 0 takes the grid's setting (default 5).")
	loopsFlag := flagSet.Int("loops", 0, "Number of cycles to run. 0 takes the grid's setting (default 1).")
	logFormatFlag := flagSet.String("log-format", "text", "Log output format. Options: 'text' or 'json'.")
	logLevelFlag := flagSet.String("log-level", "info", "Set the logging level. Options: 'debug', 'info', 'warn', 'error'.")
	printGraphFlag := flagSet.Bool("print-graph", false, "Dump the graph topology once before running.")
	traceFlag := flagSet.Bool("trace", false, "Print each cycle's execution trace.")
	logLoopsFlag := flagSet.Bool("log-loops", false, "Mark cycle boundaries in the log.")
	logLifecycleFlag := flagSet.Bool("log-lifecycle", false, "Log runner create/start/exit events.")
	logTaskFlag := flagSet.Bool("log-task", false, "Log which runner executed which task.")
	jitterFlag := flagSet.Bool("jitter", false, "Force ±10% task-duration jitter on, regardless of the grid.")

	if err := flagSet.Parse(args); err != nil {
		if err == flag.ErrHelp {
			return nil, true, nil
		}
		return nil, false, &ExitError{Code: 2, Message: err.Error()}
	}
	slog.Debug("Arguments parsed successfully.")

	path := ""
	if *gridFlag != "" {
		path = *gridFlag
	} else if *gFlag != "" {
		path = *gFlag
	} else if flagSet.NArg() > 0 {
		path = flagSet.Arg(0)
	}

	if path == "" {
		slog.Debug("No grid path provided, printing usage and exiting.")
		flagSet.Usage()
		return nil, true, nil
	}

	logFormat := strings.ToLower(*logFormatFlag)
	if logFormat != "text" && logFormat != "json" {
		return nil, false, &ExitError{Code: 2, Message: "invalid log-format: must be 'text' or 'json'"}
	}

	logLevel := strings.ToLower(*logLevelFlag)
	switch logLevel {
	case "debug", "info", "warn", "error":
		// valid
	default:
		return nil, false, &ExitError{Code: 2, Message: "invalid log-level: must be 'debug', 'info', 'warn', or 'error'"}
	}

	config, err := app.NewConfig(app.Config{
		GridPath:     path,
		Workers:      *workersFlag,
		Loops:        *loopsFlag,
		LogFormat:    logFormat,
		LogLevel:     logLevel,
		PrintGraph:   *printGraphFlag,
		PrintTrace:   *traceFlag,
		LogLoops:     *logLoopsFlag,
		LogLifecycle: *logLifecycleFlag,
		LogTask:      *logTaskFlag,
		Jitter:       *jitterFlag,
	})
	if err != nil {
		return nil, false, &ExitError{Code: 2, Message: err.Error()}
	}

	slog.Debug("CLI parser finished successfully.")
	return config, false, nil
}
