// Command server runs the prompt library and chat relay API.
//
// Startup order: environment → config → logging → tracing → database →
// session store → HTTP server. Shutdown drains in-flight requests before
// flushing the tracer.
package main

import (
	"context"
	"encoding/base64"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/promptdeck/promptdeck/internal/config"
	"github.com/promptdeck/promptdeck/internal/genai"
	httpapi "github.com/promptdeck/promptdeck/internal/http"
	"github.com/promptdeck/promptdeck/internal/observability"
	"github.com/promptdeck/promptdeck/internal/repo"
	"github.com/promptdeck/promptdeck/internal/session"
	"github.com/promptdeck/promptdeck/internal/sysutil"
)

// version is stamped at build time via -ldflags "-X main.version=...".
var version = "dev"

func main() {
	// .env is optional; real deployments set the environment directly.
	_ = godotenv.Load()

	cfg := config.MustLoad()

	// Logging
	zerolog.TimeFieldFormat = zerolog.TimeFormatUnix
	if cfg.LogPretty {
		log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.RFC3339})
	}
	sysutil.SetLogLevel(cfg.LogLevel)
	gin.SetMode(cfg.GinMode)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// Tracing
	shutdownOTel, err := observability.SetupOTel(ctx, cfg.OTEL, version)
	if err != nil {
		log.Fatal().Err(err).Msg("otel setup failed")
	}
	defer func() {
		c, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := shutdownOTel(c); err != nil {
			log.Warn().Err(err).Msg("otel shutdown")
		}
	}()

	// Database
	db, err := repo.OpenSQLite(cfg.DBPath, cfg.OTEL.Enabled)
	if err != nil {
		log.Fatal().Err(err).Str("path", cfg.DBPath).Msg("open database failed")
	}
	if err := repo.AutoMigrate(db); err != nil {
		log.Fatal().Err(err).Msg("migrate database failed")
	}

	// Session store: Redis when configured, in-process memory otherwise.
	var store session.Store
	if cfg.Redis.Enabled {
		store = session.NewRedisStore(redis.NewClient(&redis.Options{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		}))
		log.Info().Str("addr", cfg.Redis.Addr).Msg("using redis session store")
	} else {
		mem := session.NewMemoryStore()
		mem.StartJanitor(ctx, time.Minute)
		store = mem
		log.Info().Msg("using in-memory session store")
	}

	sealKey, err := loadSealKey()
	if err != nil {
		log.Fatal().Err(err).Msg("invalid session seal key")
	}
	sessions, err := session.NewManager(store, sealKey, cfg.SessionTTL)
	if err != nil {
		log.Fatal().Err(err).Msg("session manager setup failed")
	}

	// Completion provider client
	completer := genai.NewClient(
		cfg.Gemini.BaseURL,
		cfg.Gemini.Model,
		cfg.Gemini.Timeout,
		cfg.Gemini.RPS,
		cfg.Gemini.Burst,
	)

	// HTTP
	r := gin.New()
	httpapi.RegisterRoutes(r, db, sessions, completer, cfg)

	srv := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           r,
		ReadTimeout:       cfg.ReadTimeout,
		ReadHeaderTimeout: cfg.ReadHeaderTimeout,
		WriteTimeout:      cfg.WriteTimeout,
		IdleTimeout:       cfg.IdleTimeout,
		MaxHeaderBytes:    cfg.MaxHeaderBytes,
	}

	go func() {
		log.Info().Str("addr", srv.Addr).Str("version", version).Msg("server listening")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal().Err(err).Msg("server failed")
		}
	}()

	<-ctx.Done()
	log.Info().Msg("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("graceful shutdown failed")
	}
}

// loadSealKey reads the credential sealing key from SESSION_SEAL_KEY (base64,
// falling back to the legacy ENCRYPTION_KEY name). When neither is set an
// ephemeral key is generated: sessions then do not survive a restart, which
// is acceptable for development but logged loudly.
func loadSealKey() ([]byte, error) {
	raw := sysutil.FirstNonEmpty(os.Getenv("SESSION_SEAL_KEY"), os.Getenv("ENCRYPTION_KEY"))
	if raw == "" {
		log.Warn().Msg("SESSION_SEAL_KEY not set; using ephemeral key, sessions will not survive restarts")
		return session.NewKey()
	}
	key, err := base64.StdEncoding.DecodeString(raw)
	if err != nil {
		return nil, errors.New("SESSION_SEAL_KEY must be base64")
	}
	if len(key) != session.KeySize {
		return nil, errors.New("SESSION_SEAL_KEY must decode to 32 bytes")
	}
	return key, nil
}
