package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"

	"audiosphere/internal/config"
	"audiosphere/internal/desktop"
	"audiosphere/internal/logging"
)

func main() {
	cfg, err := config.Parse(os.Args[1:], os.Getenv)
	if errors.Is(err, flag.ErrHelp) {
		return
	}
	if err != nil {
		fmt.Fprintf(os.Stderr, "audiosphere: %v\n", err)
		os.Exit(2)
	}
	if cfg.Particles.Seed == 0 {
		cfg.Particles.Seed = time.Now().UnixNano()
	}

	log, err := logging.New(logging.Config{
		Level:    cfg.Log.Level,
		Encoding: cfg.Log.Encoding,
		Service:  "audiosphere",
	})
	if err != nil {
		fmt.Fprintf(os.Stderr, "audiosphere: %v\n", err)
		os.Exit(2)
	}
	defer func() { _ = log.Sync() }()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	log.Info("starting",
		zap.Int64("seed", cfg.Particles.Seed),
		zap.Int("particles", cfg.Particles.Size*cfg.Particles.Size),
		zap.String("audio", cfg.Audio.Source),
		zap.Bool("verify", cfg.Verify))

	if cfg.Verify {
		err = verify(ctx, cfg, log, os.Stdout)
	} else {
		err = desktop.Run(ctx, cfg, log)
	}
	if err != nil {
		log.Error("exiting", zap.Error(err))
		_ = log.Sync()
		stop()
		os.Exit(1)
	}
}
