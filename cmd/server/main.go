package main

import (
	"context"
	"flag"
	"log"
	"log/slog"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/dgraph-io/badger/v4"
	"github.com/gymcomplete/internal/attendance"
	"github.com/gymcomplete/internal/calendars"
	"github.com/gymcomplete/internal/classes"
	"github.com/gymcomplete/internal/clock"
	"github.com/gymcomplete/internal/dates"
	"github.com/gymcomplete/internal/events"
	httpx "github.com/gymcomplete/internal/http"
	"github.com/gymcomplete/internal/keys"
	"github.com/gymcomplete/internal/members"
	"github.com/gymcomplete/internal/migrations"
	"github.com/gymcomplete/internal/reports"
	"github.com/gymcomplete/internal/telegram"
)

type config struct {
	Address         string  `env:"ADDRESS" envDefault:":8080"`
	DatabasePath    string  `env:"DATABASE_PATH" envDefault:"gymcomplete.db"`
	EncryptionKey   string  `env:"ENCRYPTION_KEY" envDefault:"please-change-me"`
	TelegramToken   string  `env:"TELEGRAM_TOKEN"`
	StartDate       string  `env:"START_DATE"`
	ClockMultiplier float64 `env:"CLOCK_MULTIPLIER" envDefault:"1"`
}

func main() {
	cfg, err := env.ParseAs[config]()
	if err != nil {
		log.Fatalf("[ERROR] config: %s", err)
	}

	flag.StringVar(&cfg.Address, "address", cfg.Address, "http address to listen to")
	flag.StringVar(&cfg.DatabasePath, "database-path", cfg.DatabasePath, "path to the database")
	flag.StringVar(&cfg.EncryptionKey, "encryption-key", cfg.EncryptionKey, "encryption key for member data")
	flag.StringVar(&cfg.StartDate, "start-date", cfg.StartDate, "application date to start the clock at, YYYY-MM-DD")
	flag.Float64Var(&cfg.ClockMultiplier, "clock-multiplier", cfg.ClockMultiplier, "how fast application time runs relative to wall time")
	flag.Parse()

	encryptionKey, err := keys.ParseKey([]byte(cfg.EncryptionKey))
	if err != nil {
		log.Fatalf("[ERROR] encryption-key: %s", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	textHandler := slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
		Level: new(slog.LevelVar),
	})
	logger := slog.New(textHandler)

	db, err := badger.Open(badger.DefaultOptions(cfg.DatabasePath))
	if err != nil {
		log.Fatalf("[ERROR] db: %s", err)
	}

	if err := migrations.Run(db); err != nil {
		log.Fatalf("[ERROR] db migrations: %s", err)
	}

	start := time.Now()
	if cfg.StartDate != "" {
		startDate, err := dates.Parse(cfg.StartDate)
		if err != nil {
			log.Fatalf("[ERROR] start-date: %s", err)
		}
		start = startDate.Time()
	}
	appClock := clock.NewSimulated(start)
	appClock.SetMultiplier(cfg.ClockMultiplier)
	go appClock.Run(ctx)

	bus := events.NewBus()

	membersService := members.NewService(members.NewStore(db, encryptionKey), appClock)
	registry := classes.NewRegistry(logger, classes.NewStore(db), membersService, appClock, bus)
	if err := registry.Load(ctx); err != nil {
		log.Fatalf("[ERROR] load classes: %s", err)
	}
	ledger := attendance.NewLedger(logger, attendance.NewStore(db), registry, bus)
	if err := ledger.Load(ctx); err != nil {
		log.Fatalf("[ERROR] load attendance: %s", err)
	}
	reportsService := reports.NewService(reports.NewStore(db), ledger, registry)
	calendarsService := calendars.NewService(calendars.NewStore(db), registry)

	if cfg.TelegramToken != "" {
		bot, err := telegram.NewBot(telegram.NewStore(db), cfg.TelegramToken)
		if err != nil {
			log.Fatalf("[ERROR] telegram: %s", err)
		}
		bot.SubscribeToEvents(bus)
		go func() {
			if err := bot.Listen(ctx); err != nil {
				logger.Error("telegram listen", "error", err)
			}
		}()
		logger = slog.New(telegram.NewSlogHandler(bot, textHandler))
	}

	httpServer := http.Server{
		Handler: httpx.Handler(
			logger,
			registry,
			membersService,
			ledger,
			reportsService,
			calendarsService,
		),
	}

	// Wait for shut down in a separate goroutine.
	errCh := make(chan error)
	go func() {
		shutdownCh := make(chan os.Signal, 1)
		signal.Notify(shutdownCh, os.Interrupt, syscall.SIGTERM)
		sig := <-shutdownCh

		log.Printf("[INFO] received %s, shutting down", sig)

		shutdownTimeout := 15 * time.Second
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()

		errCh <- httpServer.Shutdown(shutdownCtx)
	}()

	ln, err := net.Listen("tcp", cfg.Address)
	if err != nil {
		log.Fatalf("[ERROR] tcp: %s", err)
	}
	log.Printf("[INFO] listening on %s", ln.Addr())

	if err := httpServer.Serve(ln); err != http.ErrServerClosed {
		log.Printf("[ERROR] http serve: %s", err)
	}

	if err := <-errCh; err != nil {
		log.Printf("[ERROR] error during shutdown: %s", err)
	}

	// stop the clock and the bot, then write out unsaved registry state
	cancel()
	registry.Flush(context.Background())

	if err := db.Close(); err != nil {
		log.Printf("[ERROR] close db: %s", err)
	}

	log.Printf("[INFO] application stopped")
}
