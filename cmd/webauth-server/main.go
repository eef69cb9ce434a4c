// Command webauth-server runs the account API and route guard.
//
// Configuration is read from the YAML file named by -config (or
// WEBAUTH_CONFIG) and WEBAUTH_ environment variables.
package main

import (
	"context"
	"flag"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/MrEthical07/webAuth/internal/appconfig"
	"github.com/MrEthical07/webAuth/internal/server"
)

func main() {
	configPath := flag.String("config", os.Getenv("WEBAUTH_CONFIG"), "path to the YAML config file")
	flag.Parse()

	cfg, err := appconfig.Load(*configPath)
	if err != nil {
		slog.Error("load config", "err", err)
		os.Exit(1)
	}
	logger := cfg.Log.Logger(os.Stderr)
	slog.SetDefault(logger)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	app, err := server.NewApp(ctx, cfg, logger)
	if err != nil {
		logger.Error("start", "err", err)
		os.Exit(1)
	}
	defer app.Close()

	if err := app.Run(ctx); err != nil {
		logger.Error("serve", "err", err)
		app.Close()
		os.Exit(1)
	}
}
