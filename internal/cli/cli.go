package cli

import (
	"errors"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strconv"
	"strings"

	"github.com/vk/taskgraph/internal/app"
)

// envPrefix prefixes the environment variables providing flag defaults.
const envPrefix = "TASKGRAPH_"

// ExitError is a custom error type that includes a specific exit code.
type ExitError struct {
	Code    int
	Message string
}

// Error implements the error interface for ExitError.
func (e *ExitError) Error() string {
	return e.Message
}

// envString returns the environment default of a flag.
func envString(name, fallback string) string {
	if v, ok := os.LookupEnv(envName(name)); ok {
		return v
	}
	return fallback
}

// envInt is envString for integer flags. Malformed values are reported.
func envInt(name string, fallback int) (int, error) {
	raw, ok := os.LookupEnv(envName(name))
	if !ok || raw == "" {
		return fallback, nil
	}
	v, err := strconv.Atoi(raw)
	if err != nil {
		return 0, fmt.Errorf("invalid %s: %w", envName(name), err)
	}
	return v, nil
}

func envName(flagName string) string {
	return envPrefix + strings.ToUpper(strings.ReplaceAll(flagName, "-", "_"))
}

// Parse processes command-line arguments. It returns a populated Config,
// a boolean indicating if the program should exit cleanly, or an ExitError.
// Flag defaults are read from TASKGRAPH_* environment variables.
func Parse(args []string, output io.Writer) (*app.Config, bool, error) {
	slog.Debug("CLI parser started.")
	flagSet := flag.NewFlagSet("taskgraph", flag.ContinueOnError)
	flagSet.SetOutput(output)

	// Custom usage/help text function
	flagSet.Usage = func() {
		fmt.Fprint(output, `
TaskGraph - A concurrent executor for dependency graphs of computations.

Usage:
  taskgraph [options] [GRID_PATH]

Arguments:
  GRID_PATH
    Path to a single .hcl file or a directory containing .hcl files.

Options:
`)
		flagSet.PrintDefaults()
		fmt.Fprintf(output, "\nEvery option defaults to the %s<OPTION> environment variable, e.g. %s.\n", envPrefix, envName("log-level"))
	}

	healthPort, err := envInt("healthcheck-port", 0)
	if err != nil {
		return nil, false, &ExitError{Code: 2, Message: err.Error()}
	}
	workers, err := envInt("workers", 10)
	if err != nil {
		return nil, false, &ExitError{Code: 2, Message: err.Error()}
	}
	budget, err := envInt("budget", 0)
	if err != nil {
		return nil, false, &ExitError{Code: 2, Message: err.Error()}
	}

	gridFlag := flagSet.String("grid", envString("grid", ""), "Path to the grid file or directory.")
	gFlag := flagSet.String("g", "", "Path to the grid file or directory (shorthand).")
	healthPortFlag := flagSet.Int("healthcheck-port", healthPort, "Port for the HTTP health check and metrics server. 0 is disabled.")
	logFormatFlag := flagSet.String("log-format", envString("log-format", "json"), "Log output format. Options: 'text' or 'json'.")
	logLevelFlag := flagSet.String("log-level", envString("log-level", "info"), "Set the logging level. Options: 'debug', 'info', 'warn', 'error'.")
	workersFlag := flagSet.Int("workers", workers, "Maximum number of nodes computed concurrently.")
	eventsURLFlag := flagSet.String("events-url", envString("events-url", ""), "socket.io endpoint receiving node events. Empty is disabled.")
	strategyFlag := flagSet.String("strategy", envString("strategy", ""), "Scheduling strategy. Options: 'eager' or 'weak_leaves'. Overrides the grid.")
	budgetFlag := flagSet.Int("budget", budget, "Leaf budget of the weak_leaves strategy. Overrides the grid.")

	if err := flagSet.Parse(args); err != nil {
		if errors.Is(err, flag.ErrHelp) {
			return nil, true, nil
		}
		return nil, false, &ExitError{Code: 2, Message: err.Error()}
	}
	slog.Debug("Arguments parsed successfully.")

	path := ""
	if *gFlag != "" {
		path = *gFlag
	} else if flagSet.NArg() > 0 {
		path = flagSet.Arg(0)
	} else if *gridFlag != "" {
		path = *gridFlag
	}
	slog.Debug("Grid path determined.", "path", path)

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
	slog.Debug("CLI parameter validation complete.")

	config, err := app.NewConfig(app.Config{
		GridPath:        path,
		HealthcheckPort: *healthPortFlag,
		LogFormat:       logFormat,
		LogLevel:        logLevel,
		WorkerCount:     *workersFlag,
		EventsURL:       *eventsURLFlag,
		Strategy:        strings.ToLower(*strategyFlag),
		Budget:          *budgetFlag,
	})
	if err != nil {
		return nil, false, &ExitError{Code: 2, Message: err.Error()}
	}

	slog.Debug("CLI parser finished successfully.", "config", config)
	return config, false, nil
}
