package main

import (
	"context"
	"flag"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"

	"github.com/user/nftmarket/backend/internal/accounts"
	"github.com/user/nftmarket/backend/internal/auth"
	"github.com/user/nftmarket/backend/internal/config"
	"github.com/user/nftmarket/backend/internal/database"
	"github.com/user/nftmarket/backend/internal/fees"
	"github.com/user/nftmarket/backend/internal/handlers"
	"github.com/user/nftmarket/backend/internal/journal"
	"github.com/user/nftmarket/backend/internal/ledger"
	"github.com/user/nftmarket/backend/internal/logger"
	"github.com/user/nftmarket/backend/internal/models"
	"github.com/user/nftmarket/backend/internal/registry"
	"github.com/user/nftmarket/backend/internal/ticker"
	internalws "github.com/user/nftmarket/backend/internal/websocket"
)

func main() {
	configFile := flag.String("config", "", "path to config file")
	envPath := flag.String("env", ".", "directory holding .env files")
	flag.Parse()

	cfg, err := config.Load(*configFile, *envPath)
	if err != nil {
		// Logger is not up yet
		panic(err)
	}
	if err := logger.Initialize(logger.Config{Debug: cfg.Debug}); err != nil {
		panic(err)
	}
	defer logger.Sync()
	// Anything written with the standard log package goes to zap
	defer zap.RedirectStdLog(logger.Default())()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	policy, err := fees.NewPolicy(cfg.FeeConfig())
	if err != nil {
		logger.Fatal("invalid fee configuration", zap.Error(err))
	}
	self := models.Principal(cfg.Market.LedgerPrincipal)

	// Select the journal and account store
	var (
		jrnl   journal.Journal
		store  accounts.Store
		events []models.Event
	)
	if cfg.Database.URL != "" {
		pool, err := database.Connect(ctx, cfg.Database)
		if err != nil {
			logger.Fatal("failed to connect to database", zap.Error(err))
		}
		defer pool.Close()

		es := database.NewEventStore(pool, self, policy.Custodian())
		events, err = es.LoadEvents(ctx)
		if err != nil {
			logger.Fatal("failed to load market events", zap.Error(err))
		}
		jrnl = es
		store = database.NewUserStore(pool)
	} else {
		logger.Warn("database.url not set, market state will not survive a restart")
		jrnl = journal.NewMemory()
		store = accounts.NewMemoryStore()
	}

	hub := internalws.NewHub()

	reg := registry.New(registry.WithJournal(jrnl), registry.WithNotifier(hub))
	led, err := ledger.New(self, policy, reg, ledger.WithJournal(jrnl), ledger.WithNotifier(hub))
	if err != nil {
		logger.Fatal("failed to build ledger", zap.Error(err))
	}

	// Replay never journals, so the events are not written twice
	if err := led.Replay(ctx, events); err != nil {
		logger.Fatal("failed to replay market events", zap.Error(err))
	}
	logger.Info("market state restored", zap.Int("events", len(events)), zap.Int("assets", reg.Count()))

	go hub.Run(ctx)
	go ticker.New(led, hub, cfg.Ticker.Interval).Run(ctx)

	app := fiber.New(fiber.Config{DisableStartupMessage: !cfg.Debug})
	handlers.New(led, reg, accounts.NewService(store), auth.NewSigner(cfg.Auth.JWTSecret, cfg.Auth.TokenTTL), hub).Register(app)

	go func() {
		<-ctx.Done()
		logger.Info("shutting down server")
		if err := app.ShutdownWithTimeout(10 * time.Second); err != nil {
			logger.Error("server shutdown failed", zap.Error(err))
		}
	}()

	logger.Info("starting server", zap.String("addr", cfg.Addr()))
	if err := app.Listen(cfg.Addr()); err != nil {
		logger.Fatal("server stopped", zap.Error(err))
	}
}
