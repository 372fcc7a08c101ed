// Package main is the entry point for the tangled settings tool.
package main

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/spf13/pflag"
)

// Version information (set via ldflags during build).
var (
	version = "dev"
	commit  = "unknown"
	date    = "unknown"
)

// Exit codes.
const (
	exitOK    = 0
	exitError = 1
	exitUsage = 2
)

func main() {
	os.Exit(run(os.Args[1:], os.Stdout, os.Stderr))
}

// env carries what every command needs.
type env struct {
	stdout   io.Writer
	stderr   io.Writer
	logger   *slog.Logger
	validate *validator.Validate
}

type command struct {
	summary string
	run     func(e *env, args []string) error
}

var commands = map[string]command{
	"show":   {"print the resolved settings of one or more files", runShow},
	"get":    {"print settings whose keys match glob patterns", runGet},
	"watch":  {"print changes to a settings file as they happen", runWatch},
	"random": {"print a random string", runRandom},
}

var commandOrder = []string{"show", "get", "watch", "random"}

type globalOptions struct {
	LogLevel string `validate:"oneof=debug info warn error"`
	Version  bool
	Help     bool
}

// errUsage marks errors caused by bad command-line input.
var errUsage = errors.New("usage error")

func run(args []string, stdout, stderr io.Writer) int {
	var opts globalOptions

	fs := pflag.NewFlagSet("tangled", pflag.ContinueOnError)
	fs.SetOutput(stderr)
	fs.SetInterspersed(false)
	fs.StringVar(&opts.LogLevel, "log-level", "warn", "Log level (debug, info, warn, error)")
	fs.BoolVarP(&opts.Version, "version", "v", false, "Show version information")
	fs.BoolVarP(&opts.Help, "help", "h", false, "Show help message")
	fs.Usage = func() { usage(stderr, fs) }

	if err := fs.Parse(args); err != nil {
		return exitUsage
	}

	if opts.Help {
		usage(stdout, fs)
		return exitOK
	}
	if opts.Version {
		fmt.Fprintf(stdout, "tangled %s\n", version)
		fmt.Fprintf(stdout, "Commit: %s\n", commit)
		fmt.Fprintf(stdout, "Built: %s\n", date)
		return exitOK
	}

	validate := validator.New(validator.WithRequiredStructEnabled())
	if err := validate.Struct(opts); err != nil {
		fmt.Fprintf(stderr, "Error: invalid log level %q (must be debug, info, warn, or error)\n", opts.LogLevel)
		return exitUsage
	}

	rest := fs.Args()
	if len(rest) == 0 {
		usage(stderr, fs)
		return exitUsage
	}

	cmd, ok := commands[rest[0]]
	if !ok {
		fmt.Fprintf(stderr, "Error: unknown command %q\n", rest[0])
		usage(stderr, fs)
		return exitUsage
	}

	e := &env{
		stdout:   stdout,
		stderr:   stderr,
		logger:   newLogger(stderr, opts.LogLevel),
		validate: validate,
	}

	if err := cmd.run(e, rest[1:]); err != nil {
		if errors.Is(err, pflag.ErrHelp) {
			return exitOK
		}
		fmt.Fprintf(stderr, "Error: %v\n", err)
		if errors.Is(err, errUsage) {
			return exitUsage
		}
		return exitError
	}
	return exitOK
}

func newLogger(w io.Writer, level string) *slog.Logger {
	var lvl slog.Level
	switch level {
	case "debug":
		lvl = slog.LevelDebug
	case "info":
		lvl = slog.LevelInfo
	case "error":
		lvl = slog.LevelError
	default:
		lvl = slog.LevelWarn
	}
	return slog.New(slog.NewTextHandler(w, &slog.HandlerOptions{Level: lvl}))
}

func usage(w io.Writer, fs *pflag.FlagSet) {
	fmt.Fprintf(w, "tangled - layered settings files\n\n")
	fmt.Fprintf(w, "Usage: tangled [options] <command> [command options] [args]\n\n")
	fmt.Fprintf(w, "Commands:\n")
	for _, name := range commandOrder {
		fmt.Fprintf(w, "  %-8s %s\n", name, commands[name].summary)
	}
	fmt.Fprintf(w, "\nOptions:\n")
	fmt.Fprint(w, fs.FlagUsages())
	fmt.Fprintf(w, "\nExamples:\n")
	fmt.Fprintf(w, "  tangled show development.cfg\n")
	fmt.Fprintf(w, "  tangled show --format yaml --section app production.cfg\n")
	fmt.Fprintf(w, "  tangled get development.cfg 'db.*'\n")
	fmt.Fprintf(w, "  tangled watch development.cfg\n")
}

// validationError turns validator output into a usage error naming the
// offending flags.
func validationError(err error) error {
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return err
	}
	msgs := make([]string, 0, len(verrs))
	for _, fe := range verrs {
		msgs = append(msgs, fmt.Sprintf("%s failed %q", strings.ToLower(fe.Field()), fe.Tag()))
	}
	return fmt.Errorf("%w: %s", errUsage, strings.Join(msgs, "; "))
}
