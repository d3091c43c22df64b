// Command tablectl browses and mutates tables from the terminal using the
// same service as the web server.
//
// Usage:
//
//	tablectl tables [-system]
//	tablectl page   [-limit N] <database>.<table>
//	tablectl stats  <database>.<table>
//	tablectl export [-limit N] [-lz4] [-o file] <database>.<table>
//	tablectl drop   -confirm <table> <database>.<table>
package main

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/fatih/color"
	"github.com/joho/godotenv"

	"github.com/JonMunkholm/tablebrowser/internal/config"
	"github.com/JonMunkholm/tablebrowser/internal/core"
	"github.com/JonMunkholm/tablebrowser/internal/engine"
	"github.com/JonMunkholm/tablebrowser/internal/logging"
)

func main() {
	// A missing .env is fine; the environment may already be set.
	_ = godotenv.Load()

	if len(os.Args) < 2 {
		usage(os.Stderr)
		os.Exit(2)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	os.Exit(run(ctx, os.Args[1:], os.Stdout, os.Stderr, openService))
}

// serviceOpener builds the service a command runs against. The returned
// func releases the engine connection.
type serviceOpener func(ctx context.Context) (*core.Service, func(), error)

func openService(ctx context.Context) (*core.Service, func(), error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, nil, err
	}
	closeLog := logging.Setup(cfg.Logging.Level, cfg.Logging.Format, cfg.Logging.SeqURL)

	eng, err := engine.Open(ctx, cfg.EngineOptions())
	if err != nil {
		closeLog()
		return nil, nil, err
	}
	slog.Debug("connected to engine", "database", engine.Database(cfg.Engine.URL))

	return core.NewService(eng, cfg.Service()), func() {
		eng.Close()
		closeLog()
	}, nil
}

func usage(w io.Writer) {
	fmt.Fprintln(w, "usage: tablectl <tables|page|stats|export|drop> [flags] <database>.<table>")
}

// run dispatches a subcommand and returns the process exit code.
func run(ctx context.Context, args []string, stdout, stderr io.Writer, open serviceOpener) int {
	cmd, ok := commands[args[0]]
	if !ok {
		color.New(color.FgRed).Fprintf(stderr, "unknown command %q\n", args[0])
		usage(stderr)
		return 2
	}

	inv, err := cmd.parse(args[1:], stderr)
	if err != nil {
		color.New(color.FgRed).Fprintf(stderr, "%s: %v\n", args[0], err)
		return 2
	}

	svc, closeFn, err := open(ctx)
	if err != nil {
		color.New(color.FgRed).Fprintf(stderr, "connect: %v\n", err)
		return 1
	}
	defer closeFn()

	state := &viewState{out: stderr}
	if err := inv.run(ctx, svc, state, stdout); err != nil {
		state.fail(err)
		return 1
	}
	return 0
}
