package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/vsslab/vss/internal/apiclient"
	"github.com/vsslab/vss/internal/app"
	"github.com/vsslab/vss/internal/appearance"
	"github.com/vsslab/vss/internal/config"
	"github.com/vsslab/vss/internal/prefs"
	"github.com/vsslab/vss/internal/session"
)

func main() {
	os.Exit(run(os.Args[1:]))
}

func run(args []string) int {
	cfg, err := config.LoadClient(os.Getenv("VSS_CONFIG"))
	if err != nil {
		fmt.Fprintf(os.Stderr, "config: %v\n", err)
		return 1
	}

	var level slog.Level
	if err := level.UnmarshalText([]byte(cfg.LogLevel)); err != nil {
		level = slog.LevelWarn
	}
	slog.SetDefault(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level})))

	path := cfg.PrefsPath
	if path == "" {
		path = prefs.DefaultPath()
	}
	store, err := prefs.OpenSQLite(path)
	if err != nil {
		fmt.Fprintf(os.Stderr, "preferences: %v\n", err)
		return 1
	}
	defer store.Close()

	root := appearance.NewRoot(os.Stdout)
	system := appearance.NewSystem(nil)
	sess := session.New(store)
	a := app.New(app.Deps{
		Prefs:   store,
		Marker:  root,
		System:  system,
		Backend: apiclient.New(cfg.APIBaseURL, sess),
		Session: sess,
	})

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	c := &cli{
		app:    a,
		system: system,
		styles: newStyles(root.Renderer()),
		out:    os.Stdout,
		in:     os.Stdin,
	}
	return c.dispatch(ctx, args)
}
