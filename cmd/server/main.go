package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"os/signal"
	"sync/atomic"
	"syscall"
	"time"

	"github.com/go-co-op/gocron/v2"
	log "github.com/sirupsen/logrus"

	"rockstar-pass-monolith/internal/availability"
	"rockstar-pass-monolith/internal/bot"
	"rockstar-pass-monolith/internal/config"
	"rockstar-pass-monolith/internal/core"
	"rockstar-pass-monolith/internal/i18n"
	"rockstar-pass-monolith/internal/logging"
	"rockstar-pass-monolith/internal/oracle"
	"rockstar-pass-monolith/internal/store"
	"rockstar-pass-monolith/internal/web"
)

// kvBackend is a store backend that owns a connection
type kvBackend interface {
	store.KV
	io.Closer
}

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	logCloser, err := logging.Setup(cfg.LogLevel, cfg.LogFile)
	if err != nil {
		log.Fatalf("Failed to set up logging: %v", err)
	}
	defer logCloser.Close()

	ctx := context.Background()

	// Initialize the storage backend
	log.WithField("backend", cfg.StoreBackend).Info("Initializing storage...")
	kv, err := openBackend(ctx, cfg)
	if err != nil {
		log.Fatalf("Failed to initialize storage: %v", err)
	}
	defer kv.Close()

	// Debounced config saves report back to the service once it exists
	var current atomic.Pointer[core.Service]
	st := store.New(kv, store.Options{
		Capacity:   cfg.StoreQuotaBytes,
		SaveWindow: cfg.ConfigSaveDebounce,
		OnSaveResult: func(key string, err error) {
			if svc := current.Load(); svc != nil {
				svc.ReportSaveError(key, err)
			}
		},
	})

	translator, err := loadTranslator(cfg)
	if err != nil {
		log.Fatalf("Failed to load locales: %v", err)
	}

	credentials := adminCredentials(cfg)

	source, cached := availabilitySource(cfg)

	defaults := core.DefaultConfig()
	deps := core.Deps{
		Store:               st,
		References:          oracle.NewHTTPReferences(),
		Availability:        source,
		Credentials:         credentials,
		Defaults:            &defaults,
		Seed:                core.SeedUsers(cfg.AdminIdentity, cfg.AdminSecret, cfg.SeedDemoGuests),
		OracleTimeout:       cfg.OracleTimeout,
		AvailabilityTimeout: cfg.AvailabilityTimeout,
	}
	if cfg.GeminiAPIKey != "" {
		deps.Oracle = oracle.NewGemini(cfg.GeminiAPIKey, cfg.GeminiModel)
		log.WithField("model", cfg.GeminiModel).Info("✅ AI validation enabled")
	} else if cfg.OracleStaticAnswer != "" {
		deps.Oracle = &oracle.Static{Answer: cfg.OracleStaticAnswer}
		log.WithField("answer", cfg.OracleStaticAnswer).Warn("⚠️ AI validation stubbed with a fixed answer")
	} else {
		log.Warn("⚠️ GEMINI_API_KEY not set, AI-judged challenges will report an error")
	}

	// Initialize the core service
	log.Info("Initializing service layer...")
	service, err := core.NewService(ctx, deps)
	if err != nil {
		log.Fatalf("Failed to initialize service: %v", err)
	}
	current.Store(service)

	var scheduler gocron.Scheduler
	if cached != nil {
		scheduler, err = cached.StartRefresher(cfg.AvailabilityCacheTTL, func() []string {
			var refs []string
			for _, v := range service.Config().Vehicles {
				refs = append(refs, v.ICalURL)
			}
			return refs
		})
		if err != nil {
			log.WithError(err).Warn("availability refresher not started")
		}
	}

	// Initialize the web server
	server := web.NewServer(service, translator, web.Options{
		SessionSecret: cfg.SessionSecret,
		SecureCookies: cfg.SecureCookies(),
		EventLocation: cfg.EventLocation,
	})

	// Initialize and start Telegram bot if token is provided
	var telegramBot *bot.Bot
	if cfg.TelegramBotToken != "" {
		log.Info("Initializing Telegram bot...")
		telegramBot, err = bot.NewBot(cfg.TelegramBotToken, service, cfg.TelegramStaffChatID, translator)
		if err != nil {
			log.WithError(err).Warn("Failed to initialize Telegram bot, continuing without it")
			telegramBot = nil
		} else {
			service.SetNotifier(telegramBot)
			go telegramBot.Start()
		}
	} else {
		log.Info("TELEGRAM_BOT_TOKEN not set, staff notifications are disabled")
	}

	fmt.Println("\n✓ All components initialized successfully!")
	fmt.Printf("✓ Storage ready (%s)\n", cfg.StoreBackend)
	fmt.Printf("✓ Availability mode: %s\n", cfg.AvailabilityMode)
	if telegramBot != nil {
		fmt.Println("✓ Telegram bot ready")
	}
	fmt.Printf("\n🚀 Server starting on http://localhost:%s\n", cfg.Port)
	fmt.Println("\nPress Ctrl+C to stop the server")

	// Setup HTTP server with graceful shutdown
	addr := ":" + cfg.Port
	srv := &http.Server{
		Addr:         addr,
		Handler:      server.Router(),
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 60 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		log.WithField("addr", addr).Info("Starting HTTP server")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatalf("Failed to start server: %v", err)
		}
	}()

	// Setup signal handling for graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	sig := <-quit
	log.WithField("signal", sig).Info("Initiating graceful shutdown...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.WithError(err).Error("Error during server shutdown")
	}
	log.Info("✓ HTTP server stopped")

	if telegramBot != nil {
		telegramBot.Stop()
		log.Info("✓ Telegram bot stopped")
	}
	if scheduler != nil {
		if err := scheduler.Shutdown(); err != nil {
			log.WithError(err).Error("Error stopping availability refresher")
		}
	}

	// Pending config edits are written before the backend closes
	if err := service.Flush(shutdownCtx); err != nil {
		log.WithError(err).Error("Failed to flush pending saves")
	} else {
		log.Info("✓ Pending saves flushed")
	}
	log.Info("Shutdown complete")
}

func openBackend(ctx context.Context, cfg *config.Config) (kvBackend, error) {
	switch cfg.StoreBackend {
	case "redis":
		return store.NewRedisKV(ctx, store.RedisOptions{
			Addr:     cfg.RedisAddr,
			Password: cfg.RedisPassword,
			DB:       cfg.RedisDB,
			Prefix:   cfg.RedisPrefix,
		})
	default:
		return store.NewSQLiteKV(cfg.DBPath)
	}
}

func loadTranslator(cfg *config.Config) (*i18n.Translator, error) {
	if cfg.LocalesDir != "" {
		return i18n.NewTranslator(cfg.LocalesDir, "en")
	}
	return i18n.NewBuiltin("en")
}

// adminCredentials picks the checker matching how ADMIN_SECRET is stored
func adminCredentials(cfg *config.Config) core.CredentialChecker {
	if cfg.AdminSecretHashed {
		return core.BcryptCredentials{}
	}
	return core.PlainCredentials{}
}

// availabilitySource builds the busy-interval source for the configured
// mode. The cache is returned when its feeds should be refreshed in the
// background.
func availabilitySource(cfg *config.Config) (core.AvailabilitySource, *availability.Cached) {
	switch cfg.AvailabilityMode {
	case "ical":
		cached := availability.NewCached(availability.NewICalFeed(), cfg.AvailabilityCacheTTL)
		return cached, cached
	case "demo":
		return availability.Demo{}, nil
	default:
		return nil, nil
	}
}
