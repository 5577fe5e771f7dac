package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/specialistvlad/labbench/internal/app"
	"github.com/specialistvlad/labbench/internal/cli"
)

// main is the entrypoint for the labbench application.
func main() {
	// Use a minimal logger until the full one is configured.
	slog.SetDefault(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
		Level: slog.LevelInfo,
	})))

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	err := run(ctx, os.Stdout, os.Stderr, os.Args[1:])
	stop()

	if err != nil {
		var exitErr *cli.ExitError
		if errors.As(err, &exitErr) {
			if exitErr.Message != "" {
				fmt.Fprintln(os.Stderr, exitErr.Message)
			}
			os.Exit(exitErr.Code)
		}
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

// run parses args and dispatches to the selected command. Reports go to
// outW, logs to errW.
func run(ctx context.Context, outW, errW io.Writer, args []string) error {
	cmd, shouldExit, err := cli.Parse(args, outW)
	if err != nil {
		return err
	}
	if shouldExit {
		return nil
	}

	a := app.NewApp(outW, errW, cmd.Global)
	switch cmd.Name {
	case "load":
		err = a.RunLoad(ctx, cmd.Load)
		if errors.Is(err, app.ErrRequestFailures) {
			return &cli.ExitError{Code: cmd.Load.ExitCodeOnError, Message: err.Error()}
		}
	case "plot":
		err = a.RunPlot(ctx, cmd.Plot)
	case "verify":
		err = a.RunVerify(ctx, cmd.Verify)
		if errors.Is(err, app.ErrNotExactMatch) {
			// The verdict has already been printed.
			return &cli.ExitError{Code: 1}
		}
	default:
		return fmt.Errorf("unknown command %q", cmd.Name)
	}
	return err
}
