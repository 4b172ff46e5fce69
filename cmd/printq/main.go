package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"github.com/inkfold/printq/internal/agent"
	"github.com/inkfold/printq/internal/api"
	"github.com/inkfold/printq/internal/api/handlers"
	"github.com/inkfold/printq/internal/api/middleware"
	"github.com/inkfold/printq/internal/bot"
	"github.com/inkfold/printq/internal/config"
	"github.com/inkfold/printq/internal/extract"
	"github.com/inkfold/printq/internal/logger"
	"github.com/inkfold/printq/internal/notify"
	"github.com/inkfold/printq/internal/queue"
	"github.com/inkfold/printq/internal/remote"
	"github.com/inkfold/printq/internal/store"
)

func main() {
	if err := run(); err != nil {
		log.Fatal(err)
	}
}

func run() error {
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found, using environment variables or flags")
	}

	defaultConfigPath := os.Getenv("PRINTQ_CONFIG_PATH")
	if defaultConfigPath == "" {
		defaultConfigPath = "config.yaml"
	}
	configPath := flag.String("config", defaultConfigPath, "Path to configuration file")
	runOnce := flag.Bool("once", false, "Run one merge cycle and exit")
	report := flag.Bool("report", false, "Print the queue report and exit")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("invalid config: %w", err)
	}

	appLogger := logger.New(cfg.Logging.Level, cfg.Logging.Format)

	st, err := store.Open(cfg.Store.Backend, cfg.Store.Path)
	if err != nil {
		return fmt.Errorf("failed to open store: %w", err)
	}
	defer store.CloseStore(st)

	var history *store.History
	if cfg.Store.HistoryPath != "" {
		history, err = store.OpenHistory(cfg.Store.HistoryPath)
		if err != nil {
			return fmt.Errorf("failed to open history: %w", err)
		}
		defer history.Close()
	}

	engine := queue.NewEngine(queue.Config{
		DeadlineWeight:         cfg.Engine.DeadlineWeight,
		PriorityWeight:         cfg.Engine.PriorityWeight,
		EmergencyThresholdDays: cfg.Engine.EmergencyThresholdDays,
	})

	var extractor *extract.Extractor
	if cfg.Extract.APIKey != "" {
		client := extract.NewClient()
		client.SetAPIKey(cfg.Extract.APIKey)
		client.SetModel(cfg.Extract.Model)
		client.SetTimeout(cfg.Extract.Timeout)
		extractor = extract.NewExtractor(client)
	} else {
		appLogger.Warn("no extraction api key configured, intake disabled")
	}

	var remoteClient *remote.Client
	if cfg.RemoteEnabled() {
		remoteClient = remote.NewClient(remote.Config{
			BaseURL:      cfg.Remote.BaseURL,
			TokenURL:     cfg.Remote.TokenURL,
			ClientID:     cfg.Remote.ClientID,
			ClientSecret: cfg.Remote.ClientSecret,
			Folder:       cfg.Remote.Folder,
			Timeout:      cfg.Remote.Timeout,
		})
	}

	var telegramClient *notify.TelegramClient
	if cfg.TelegramEnabled() {
		telegramClient = notify.NewTelegramClient(cfg.Telegram.Token, cfg.Telegram.ChatID)
	}

	var notifier *notify.Notifier
	if telegramClient != nil || len(cfg.Webhooks.Targets) > 0 {
		targets := make([]notify.Target, 0, len(cfg.Webhooks.Targets))
		for _, t := range cfg.Webhooks.Targets {
			targets = append(targets, notify.Target{
				URL:    t.URL,
				Secret: t.Secret,
				Events: t.Events,
			})
		}
		notifier = notify.NewNotifier(notify.Config{
			Workers:    cfg.Webhooks.Workers,
			MaxRetries: cfg.Webhooks.MaxRetries,
			RetryDelay: cfg.Webhooks.RetryDelay,
		}, telegramClient, targets, appLogger)
		notifier.Start()
		defer notifier.Stop()
	}

	ag := agent.New(agent.Config{
		StorePath:     cfg.Store.Path,
		InboxDir:      cfg.Store.InboxDir,
		Interval:      cfg.Agent.Interval,
		SummaryAt:     cfg.Agent.SummaryAt,
		WebExportPath: cfg.Agent.WebExportPath,
	}, agent.Deps{
		Engine:    engine,
		Store:     st,
		History:   history,
		Extractor: extractor,
		Remote:    remoteClient,
		Notifier:  notifier,
		Logger:    appLogger,
	})

	if *report {
		text, err := ag.Report(context.Background())
		if err != nil {
			return fmt.Errorf("failed to render report: %w", err)
		}
		fmt.Print(text)
		return nil
	}

	if *runOnce {
		result, err := ag.RunCycle(context.Background())
		if err != nil {
			return fmt.Errorf("cycle failed: %w", err)
		}
		appLogger.Info("cycle finished",
			slog.Int("extracted", result.Extracted),
			slog.Int("failed", result.Failed),
			slog.Int("merged", result.Merged),
			slog.Int("problems", result.Problems),
		)
		return nil
	}

	return serve(cfg, appLogger, ag, extractor, telegramClient)
}

func serve(cfg *config.Config, appLogger *slog.Logger, ag *agent.Agent, extractor *extract.Extractor, telegramClient *notify.TelegramClient) error {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	auth := middleware.NewAuthMiddleware(middleware.Config{
		JWTSecret:    cfg.Auth.JWTSecret,
		Username:     cfg.Auth.Username,
		PasswordHash: cfg.Auth.PasswordHash,
		TokenTTL:     cfg.Auth.TokenTTL,
	})

	var extractorIface handlers.Extractor
	if extractor != nil {
		extractorIface = extractor
	}
	queueHandler := handlers.NewQueueHandler(ag, extractorIface)
	router := api.NewRouter(appLogger, auth, queueHandler)

	addr := fmt.Sprintf(":%d", cfg.Server.Port)
	srv := &http.Server{
		Addr:         addr,
		Handler:      router,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
	}

	go func() {
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			appLogger.Error("server failed", slog.Any("error", err))
			os.Exit(1)
		}
	}()

	go func() {
		if err := ag.Run(ctx); err != nil {
			appLogger.Error("agent stopped", slog.Any("error", err))
		}
	}()

	if telegramClient != nil {
		tgBot := bot.New(bot.Config{
			AllowedChats: cfg.Telegram.AllowedChats,
			PollTimeout:  cfg.Telegram.PollTimeout,
		}, telegramClient, ag, extractor, appLogger)
		go func() {
			if err := tgBot.Run(ctx); err != nil {
				appLogger.Error("bot stopped", slog.Any("error", err))
			}
		}()
	}

	appLogger.Info("printq is running",
		slog.String("address", addr),
		slog.String("store", cfg.Store.Backend),
	)

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	appLogger.Info("shutting down")
	cancel()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer shutdownCancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		appLogger.Error("server forced to shutdown", slog.Any("error", err))
		return err
	}

	appLogger.Info("shutdown complete")
	return nil
}
