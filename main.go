// Package main provides the entry point for the lead funnel bot
package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/oliateam/leadfunnel/app/bot"
	"github.com/oliateam/leadfunnel/app/handlers"
	"github.com/oliateam/leadfunnel/app/router"
	"github.com/oliateam/leadfunnel/app/scheduler"
	"github.com/oliateam/leadfunnel/app/services"
	businessflow "github.com/oliateam/leadfunnel/business_flow"
	"github.com/oliateam/leadfunnel/config"
	"github.com/oliateam/leadfunnel/models"
	"github.com/oliateam/leadfunnel/repository"
	"github.com/redis/go-redis/v9"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
)

// Application holds the long-lived components and their stop functions
type Application struct {
	router    router.Router
	bot       *bot.Bot
	config    *config.Config
	stopFuncs []func()
}

func main() {
	log.Println("Starting lead funnel bot...")

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	app, err := initializeApplication(cfg)
	if err != nil {
		log.Fatalf("Failed to initialize application: %v", err)
	}

	app.router.SetupRoutes()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		address := fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port)
		log.Printf("Admin server starting on %s", address)
		if err := app.router.Start(address); err != nil {
			log.Fatalf("Failed to start admin server: %v", err)
		}
	}()

	if err := app.bot.Start(); err != nil {
		log.Fatalf("Failed to start bot: %v", err)
	}

	<-sigChan
	log.Println("Shutting down gracefully...")

	if err := app.bot.Stop(); err != nil {
		log.Printf("Error stopping bot: %v", err)
	}
	for _, fn := range app.stopFuncs {
		fn()
	}

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer shutdownCancel()
	if err := app.router.Shutdown(shutdownCtx); err != nil {
		log.Printf("Error during shutdown: %v", err)
	}

	log.Println("Service stopped")
}

// initializeDatabase opens the Postgres connection with pooling and runs the
// schema migration for the funnel tables.
func initializeDatabase(cfg config.DatabaseConfig) (*gorm.DB, error) {
	db, err := gorm.Open(postgres.Open(cfg.DSN()), &gorm.Config{})
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, fmt.Errorf("failed to get underlying sql.DB: %w", err)
	}
	sqlDB.SetMaxOpenConns(cfg.MaxOpenConns)
	sqlDB.SetMaxIdleConns(cfg.MaxIdleConns)
	sqlDB.SetConnMaxLifetime(cfg.ConnMaxLifetime)
	sqlDB.SetConnMaxIdleTime(cfg.ConnMaxIdleTime)

	if err := sqlDB.Ping(); err != nil {
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	if err := db.AutoMigrate(
		&models.User{},
		&models.Group{},
		&models.Note{},
		&models.NoteClick{},
		&models.ReferralClick{},
		&models.PollResponse{},
		&models.ReminderSettings{},
	); err != nil {
		return nil, fmt.Errorf("failed to migrate schema: %w", err)
	}

	log.Printf("Database connection established with %d max open connections, %d max idle connections",
		cfg.MaxOpenConns, cfg.MaxIdleConns)
	return db, nil
}

// initializeCache connects to Redis when the cache is enabled; the session
// store falls back to memory otherwise.
func initializeCache(cfg config.CacheConfig) (*redis.Client, error) {
	if !cfg.Enabled {
		return nil, nil
	}

	rc := redis.NewClient(&redis.Options{
		Addr:     cfg.Addr(),
		Password: cfg.Password,
		DB:       cfg.DB,
	})
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := rc.Ping(ctx).Err(); err != nil {
		_ = rc.Close()
		return nil, fmt.Errorf("failed to connect to redis: %w", err)
	}

	log.Printf("Redis connection established to %s (db=%d)", cfg.Addr(), cfg.DB)
	return rc, nil
}

// initializeApplication wires repositories, flows, transports and servers
func initializeApplication(cfg *config.Config) (*Application, error) {
	var stopFuncs []func()

	db, err := initializeDatabase(cfg.Database)
	if err != nil {
		return nil, err
	}

	rc, err := initializeCache(cfg.Cache)
	if err != nil {
		return nil, err
	}

	// Repositories
	userRepo := repository.NewUserRepository(db)
	groupRepo := repository.NewGroupRepository(db)
	noteRepo := repository.NewNoteRepository(db)
	noteClickRepo := repository.NewNoteClickRepository(db)
	referralClickRepo := repository.NewReferralClickRepository(db)
	pollRepo := repository.NewPollResponseRepository(db)
	settingsRepo := repository.NewReminderSettingsRepository(db)
	transactor := repository.NewTransactor(db)

	// Session store for the capture side-states
	var sessions businessflow.SessionStore
	if rc != nil {
		sessions = businessflow.NewRedisSessionStore(rc, cfg.Cache.KeyPrefix, cfg.Cache.SessionTTL)
	} else {
		sessions = businessflow.NewMemorySessionStore(cfg.Cache.SessionTTL)
	}

	// Telegram client goes first so the flows can send through it
	client, err := bot.NewClient(cfg.Telegram)
	if err != nil {
		return nil, fmt.Errorf("failed to create telegram client: %w", err)
	}
	messenger := bot.NewMessenger(client)

	// Reporting sink
	sheetsLogger := services.NewSheetsReferralLogger(cfg.Sheets, cfg.Logging.NewLogger("sheets"))
	stopFuncs = append(stopFuncs, sheetsLogger.Stop)

	// Reminder scheduler
	reminders := scheduler.NewReminderScheduler(
		pollRepo, settingsRepo, messenger, cfg.Reminder.Delay, cfg.Logging.NewLogger("reminder"))
	stopFuncs = append(stopFuncs, reminders.Stop)

	// Business flows
	notificationFlow := businessflow.NewNotificationFlow(pollRepo, userRepo, noteRepo, messenger)
	funnelFlow := businessflow.NewFunnelFlow(pollRepo, reminders, notificationFlow)
	referralFlow := businessflow.NewReferralFlow(
		userRepo, noteRepo, groupRepo, referralClickRepo, noteClickRepo, pollRepo, transactor, sheetsLogger)
	noteFlow := businessflow.NewNoteFlow(noteRepo, noteClickRepo, groupRepo, userRepo, settingsRepo, sessions)
	statsFlow := businessflow.NewStatsFlow(userRepo, noteRepo, noteClickRepo, groupRepo)

	// Transports
	tgBot := bot.New(client, cfg.Telegram, cfg.Logging.NewLogger("bot"),
		referralFlow, funnelFlow, noteFlow, statsFlow)
	adminHandler := handlers.NewAdminHandler(statsFlow)
	fiberRouter := router.NewFiberRouter(cfg.Server, cfg.Metrics, adminHandler)

	return &Application{
		router:    fiberRouter,
		bot:       tgBot,
		config:    cfg,
		stopFuncs: stopFuncs,
	}, nil
}
