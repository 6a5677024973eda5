package main

import (
	"fmt"
	"io"
	"log/slog"
	"os"

	"github.com/erazemk/vrt/internal/cli"
	"github.com/erazemk/vrt/internal/client"
	"github.com/erazemk/vrt/internal/config"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	cfg, err := config.LoadClient()
	if err != nil {
		return err
	}

	logOut := io.Discard
	if cfg.Debug {
		logOut = os.Stderr
	}
	logger := slog.New(slog.NewTextHandler(logOut, &slog.HandlerOptions{Level: slog.LevelDebug}))

	storage, err := client.OpenSQLiteStorage(cfg.StatePath)
	if err != nil {
		return fmt.Errorf("opening local state: %w", err)
	}
	defer storage.Close()

	adapter := client.NewHTTPAdapter(cfg.Server)
	app := cli.NewApp(adapter, storage, logger)
	app.Timeout = cfg.Timeout

	return cli.NewRootCmd(app).Execute()
}
