package main

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog/log"

	"arbscan/internal/infrastructure/config"
	"arbscan/internal/infrastructure/logger"
	"arbscan/internal/infrastructure/svc"
	"arbscan/internal/interfaces/rest"
	"arbscan/internal/interfaces/ws"
)

func main() {
	// .env is optional, real env vars win
	_ = godotenv.Load()
	logger.Setup()

	configPath := flag.String("config", "configs/config.toml", "path to config.toml")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Warn().Err(err).Str("config", *configPath).Msg("load config failed, using defaults")
		cfg = config.Default()
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	sc, err := svc.New(ctx, cfg)
	if err != nil {
		log.Fatal().Err(err).Msg("service context initialization failed")
	}
	defer sc.Close()

	hub := ws.NewHub()
	pusher := ws.NewPusher(hub, cfg.PushEvery(), func() []byte {
		opps := sc.Engine.Snapshot()
		if len(opps) == 0 {
			return nil
		}
		payload, err := json.Marshal(map[string]any{
			"type":          "opportunities",
			"ts_ms":         sc.Engine.LastScan(),
			"opportunities": opps,
		})
		if err != nil {
			log.Error().Err(err).Msg("snapshot encode failed")
			return nil
		}
		return payload
	})

	server := rest.NewServer(sc.Engine, sc.Sources, cfg.Fees, cfg.FetchTimeout(), hub)

	go func() {
		if err := sc.Engine.Run(ctx, sc.Subscribe(ctx)); err != nil && !errors.Is(err, context.Canceled) {
			log.Error().Err(err).Msg("scan engine exited")
		}
	}()
	go func() {
		if err := pusher.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
			log.Error().Err(err).Msg("ws pusher exited")
		}
	}()

	log.Info().
		Str("config", *configPath).
		Str("listen", cfg.App.ListenAddr).
		Int("exchanges", len(sc.Sources)).
		Float64("min_profit", cfg.Arbitrage.MinProfit).
		Msg("arbscan started")

	if err := server.Run(ctx, cfg.App.ListenAddr); err != nil && !errors.Is(err, context.Canceled) {
		log.Error().Err(err).Msg("http server exited")
	}
}
