// Command tradejournal is the backend entry point for the trade journal. It
// loads configuration, validates it, wires dependencies, sets up signal
// handling, and starts the application in the configured mode.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/alanyoungcy/tradejournal/internal/app"
	"github.com/alanyoungcy/tradejournal/internal/auth"
	"github.com/alanyoungcy/tradejournal/internal/config"
)

func main() {
	configPath := flag.String("config", config.DefaultPath, "path to configuration file")
	encryptTo := flag.String("encrypt-secret", "", "encrypt TJ_AUTH_JWT_SECRET with TJ_AUTH_SECRET_PASSWORD into this file and exit")
	flag.Parse()

	if *encryptTo != "" {
		if err := encryptSecret(*encryptTo); err != nil {
			fmt.Fprintf(os.Stderr, "encrypt-secret: %v\n", err)
			os.Exit(1)
		}
		return
	}

	// Setup structured JSON logger.
	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level: slog.LevelInfo,
	}))
	slog.SetDefault(logger)

	cfg, err := config.Load(*configPath)
	if err != nil {
		logger.Error("failed to load config",
			slog.String("path", *configPath),
			slog.String("error", err.Error()),
		)
		os.Exit(1)
	}

	logger = slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level: parseLevel(cfg.LogLevel),
	}))
	slog.SetDefault(logger)

	if err := cfg.Validate(); err != nil {
		logger.Error("invalid configuration", slog.String("error", err.Error()))
		os.Exit(1)
	}

	logger.Info("trade journal starting",
		slog.String("mode", cfg.Mode),
		slog.String("config", *configPath),
		slog.Any("settings", config.RedactedConfig(cfg)),
	)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	application := app.New(cfg, logger)
	err = application.Run(ctx)
	application.Close()

	switch {
	case err == nil:
	case errors.Is(err, context.Canceled):
		// Expected on SIGINT/SIGTERM.
		logger.Info("application shut down gracefully")
	default:
		logger.Error("application exited with error",
			slog.String("error", err.Error()),
		)
		fmt.Fprintf(os.Stderr, "fatal: %v\n", err)
		os.Exit(1)
	}

	logger.Info("trade journal stopped")
}

func parseLevel(s string) slog.Level {
	switch s {
	case "debug":
		return slog.LevelDebug
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

// encryptSecret writes the signing secret encrypted for use as
// auth.secret_file.
func encryptSecret(path string) error {
	secret := os.Getenv("TJ_AUTH_JWT_SECRET")
	password := os.Getenv("TJ_AUTH_SECRET_PASSWORD")
	if len(secret) < auth.MinSecretLen {
		return fmt.Errorf("TJ_AUTH_JWT_SECRET must be at least %d bytes", auth.MinSecretLen)
	}
	if password == "" {
		return errors.New("TJ_AUTH_SECRET_PASSWORD is required")
	}
	blob, err := auth.EncryptSecret([]byte(secret), password)
	if err != nil {
		return err
	}
	return os.WriteFile(path, blob, 0o600)
}
