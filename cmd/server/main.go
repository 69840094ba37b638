package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"

	"github.com/DoyleJ11/lol-champ-roulette/internal/config"
	"github.com/DoyleJ11/lol-champ-roulette/internal/httpapi"
	"github.com/DoyleJ11/lol-champ-roulette/internal/hub"
	"github.com/DoyleJ11/lol-champ-roulette/internal/riot"
	"github.com/DoyleJ11/lol-champ-roulette/internal/roster"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatal(err)
	}

	logger, err := newLogger(cfg.LogDev)
	if err != nil {
		log.Fatal(err)
	}
	defer logger.Sync()

	jungle, err := config.LoadJungleSet(cfg.JungleChampsFile)
	if err != nil {
		logger.Fatal("jungle champions", zap.Error(err))
	}
	aliases, err := config.LoadPseudonyms(cfg.PseudonymsFile)
	if err != nil {
		logger.Fatal("pseudonyms", zap.Error(err))
	}
	logger.Info("config loaded",
		zap.Int("jungle_champions", len(jungle)),
		zap.Int("pseudonyms", len(aliases)),
		zap.Int("team_size", cfg.TeamSize))

	client := riot.NewClient(riot.Options{
		APIKey:      cfg.RiotAPIKey,
		RegionalURL: cfg.RiotRegionalURL,
		PlatformURL: cfg.RiotPlatformURL,
		DDragonURL:  cfg.DDragonURL,
		HTTPClient:  &http.Client{Timeout: cfg.RiotTimeout},
		Logger:      logger.Named("riot"),
		Limiter:     riot.NewLimiter(cfg.RiotRateLimit),
	})

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// the hub outlives ctx so ShutdownHub can close lobbies before the server stops
	h := hub.NewHub(context.Background(), hub.WithLogger(logger.Named("hub")))

	// Build the router *with* the hub injected
	handler := httpapi.SetupRoutes(httpapi.Deps{
		Hub:        h,
		Builder:    roster.NewBuilder(client, logger.Named("roster")),
		Jungle:     jungle,
		Pseudonyms: roster.NewPseudonyms(aliases),
		TeamSize:   cfg.TeamSize,
		Log:        logger.Named("http"),
	})

	srv := &http.Server{Addr: cfg.ListenAddr, Handler: handler}
	go func() {
		<-ctx.Done()
		h.Inbox() <- hub.ShutdownHub{}
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = srv.Shutdown(shutdownCtx)
	}()

	logger.Info("listening", zap.String("addr", cfg.ListenAddr))
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		logger.Fatal("server stopped", zap.Error(err))
	}
}

func newLogger(dev bool) (*zap.Logger, error) {
	if dev {
		return zap.NewDevelopment()
	}
	return zap.NewProduction()
}
