// Command notifyctl is the operator tool for composing, sending and
// administering notifications.
//
// Exit codes: 0 on success, 1 for usage or configuration errors, 2 when
// processing fails.
package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"sort"
	"syscall"

	"github.com/sirupsen/logrus"

	"github.com/campus-push/internal/bootstrap"
	"github.com/campus-push/internal/config"
	"github.com/campus-push/internal/domain"
	"github.com/campus-push/internal/pkg/logger"
)

const (
	exitOK       = 0
	exitUsage    = 1
	exitFailure  = 2
	programName  = "notifyctl"
	usageHeading = "usage: notifyctl <command> [flags]\n\ncommands:\n"
)

// usageError marks a bad invocation.
type usageError struct{ msg string }

func (e usageError) Error() string { return e.msg }

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	code := run(ctx, os.Args[1:], os.Stdout, os.Stderr)
	stop()
	os.Exit(code)
}

func run(ctx context.Context, args []string, stdout, stderr io.Writer) int {
	if len(args) == 0 {
		printUsage(stderr)
		return exitUsage
	}
	name := args[0]
	if name == "help" || name == "-h" || name == "--help" {
		printUsage(stdout)
		return exitOK
	}
	cmd, ok := commands[name]
	if !ok {
		fmt.Fprintf(stderr, "%s: unknown command %q\n\n", programName, name)
		printUsage(stderr)
		return exitUsage
	}

	r, err := cmd.parse(args[1:], stderr)
	if err != nil {
		fmt.Fprintf(stderr, "%s %s: %v\n", programName, name, err)
		return exitCode(err)
	}

	e := &env{out: stdout, errOut: stderr}
	defer e.close()
	if err := r.run(ctx, e); err != nil {
		fmt.Fprintf(stderr, "%s %s: %v\n", programName, name, err)
		return exitCode(err)
	}
	return exitOK
}

func exitCode(err error) int {
	var ue usageError
	switch {
	case err == nil:
		return exitOK
	case errors.As(err, &ue),
		errors.Is(err, domain.ErrBadRequest),
		errors.Is(err, domain.ErrConfiguration):
		return exitUsage
	default:
		return exitFailure
	}
}

func printUsage(w io.Writer) {
	fmt.Fprint(w, usageHeading)
	names := make([]string, 0, len(commands))
	for n := range commands {
		names = append(names, n)
	}
	sort.Strings(names)
	for _, n := range names {
		fmt.Fprintf(w, "  %-20s %s\n", n, commands[n].summary)
	}
}

// env builds clients lazily so that a command only connects to what it uses.
type env struct {
	out    io.Writer
	errOut io.Writer

	cfg *config.Config
	log *logrus.Logger
	app *bootstrap.App
}

func (e *env) config() (*config.Config, error) {
	if e.cfg != nil {
		return e.cfg, nil
	}
	cfg, err := config.Load()
	if err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	e.cfg = cfg
	e.log = logger.New(cfg.LogLevel, cfg.AppEnv)
	e.log.SetOutput(e.errOut)
	return cfg, nil
}

func (e *env) application(ctx context.Context) (*bootstrap.App, error) {
	if e.app != nil {
		return e.app, nil
	}
	cfg, err := e.config()
	if err != nil {
		return nil, err
	}
	app, err := bootstrap.New(ctx, cfg, e.log)
	if err != nil {
		return nil, err
	}
	e.app = app
	return app, nil
}

func (e *env) close() {
	if e.app != nil {
		e.app.Close()
	}
}

// print writes v as indented JSON.
func (e *env) print(v interface{}) error {
	enc := json.NewEncoder(e.out)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
