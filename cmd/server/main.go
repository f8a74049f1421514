package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog/log"
	"golang.org/x/time/rate"

	"github.com/dremmer8/poker/internal/auth"
	"github.com/dremmer8/poker/internal/config"
	"github.com/dremmer8/poker/internal/gamesync"
	"github.com/dremmer8/poker/internal/history"
	"github.com/dremmer8/poker/internal/local"
	"github.com/dremmer8/poker/internal/logger"
	"github.com/dremmer8/poker/internal/server"
	"github.com/dremmer8/poker/internal/store"
	"github.com/dremmer8/poker/internal/store/migrations"
	"github.com/dremmer8/poker/internal/visualizer"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatal().Err(err).Msg("invalid configuration")
	}
	logger.Setup(cfg.Debug)
	if !cfg.Debug {
		gin.SetMode(gin.ReleaseMode)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	var (
		shared  store.Documents = store.NewMemoryStore()
		archive history.Archive
	)
	if cfg.PostgresURL != "" {
		if err := migrations.Migrate(cfg.PostgresURL); err != nil {
			log.Fatal().Err(err).Msg("running migrations")
		}
		pg, err := store.NewPostgresStore(ctx, cfg.PostgresURL)
		if err != nil {
			log.Fatal().Err(err).Msg("connecting to postgres")
		}
		defer pg.Close()
		shared = pg

		pa, err := history.NewPostgresArchive(ctx, cfg.PostgresURL)
		if err != nil {
			log.Fatal().Err(err).Msg("connecting history archive")
		}
		defer pa.Close()
		archive = pa
	} else {
		log.Warn().Msg("POSTGRES_URL not set, sync channel is in-process only")
	}

	device, err := store.NewFileStore(cfg.LocalDir)
	if err != nil {
		log.Fatal().Err(err).Str("dir", cfg.LocalDir).Msg("opening device cache")
	}

	channel := gamesync.NewDocumentChannel(shared, cfg.DeviceID)
	console := server.NewConsole(server.ConsoleOptions{
		Cache:        local.NewCache(device),
		Channel:      channel,
		Archive:      archive,
		DeviceID:     cfg.DeviceID,
		ShuffleSeats: cfg.ShuffleSeats,
	})
	if err := console.Restore(ctx, channel); err != nil {
		log.Fatal().Err(err).Msg("restoring session")
	}

	observer := visualizer.NewObserver(channel)
	go func() {
		if err := observer.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
			log.Error().Err(err).Msg("visualizer stopped")
		}
	}()

	if cfg.ConsolePINHash == "" {
		log.Warn().Msg("CONSOLE_PIN_HASH not set, console is open to every client")
	}
	gate := auth.NewGate(auth.DefaultHasher(), cfg.ConsolePINHash, auth.NewJWTManager(cfg.JWTKey, cfg.TokenMaxAge), cfg.TokenMaxAge)
	gate.Secure = !cfg.Debug

	srv := server.NewServer(console, observer, gate)
	srv.WSRate = rate.Limit(cfg.WSRate)
	srv.StaticDir = cfg.StaticDir

	httpServer := &http.Server{
		Addr:    cfg.Addr,
		Handler: srv.CreateServer(cfg.AllowedOrigins),
	}
	go func() {
		log.Info().Str("addr", cfg.Addr).Str("device", cfg.DeviceID).Msg("listening")
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal().Err(err).Msg("couldn't start server")
		}
	}()

	<-ctx.Done()
	log.Info().Msg("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("shutdown")
	}
	console.Flush()
}
