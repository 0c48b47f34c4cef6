package main

import (
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"github.com/sandeepkv93/remindd/internal/backup"
	"github.com/sandeepkv93/remindd/internal/config"
	"github.com/sandeepkv93/remindd/internal/notify"
	"github.com/sandeepkv93/remindd/internal/storage"
	"github.com/sandeepkv93/remindd/internal/telegram"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		slog.Error("config load failed", "error", err)
		os.Exit(1)
	}

	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: logLevel(cfg.LogLevel)}))
	slog.SetDefault(logger)

	if err := os.MkdirAll(filepath.Dir(cfg.DBPath), 0o755); err != nil {
		logger.Error("create data dir failed", "error", err)
		os.Exit(1)
	}
	repo, err := storage.OpenSQLite(cfg.DBPath)
	if err != nil {
		logger.Error("open store failed", "error", err)
		os.Exit(1)
	}
	defer repo.Close()

	if err := storage.MigrateUp(repo.DB()); err != nil {
		logger.Error("migrations failed", "error", err)
		os.Exit(1)
	}

	botAPI, err := tgbotapi.NewBotAPI(cfg.BotToken)
	if err != nil {
		logger.Error("bot init failed", "error", err)
		os.Exit(1)
	}
	logger.Info("bot authorized", "username", botAPI.Self.UserName)

	dispatcher := notify.NewDispatcher(repo, telegram.NewNotifier(botAPI), cfg.PollInterval, logger)
	dispatcher.Start()
	defer dispatcher.Stop()

	backups, err := backup.NewManager(repo.DB(), repo, cfg.BackupDir, logger)
	if err != nil {
		logger.Error("backup manager init failed", "error", err)
		os.Exit(1)
	}
	if err := backups.StartSchedule(cfg.BackupCron, cfg.MaxBackups); err != nil {
		logger.Error("backup schedule failed", "error", err)
		os.Exit(1)
	}
	defer backups.StopSchedule()

	logger.Info("remindd started", "poll_interval", cfg.PollInterval)

	ch := make(chan os.Signal, 1)
	signal.Notify(ch, syscall.SIGINT, syscall.SIGTERM)
	<-ch
	logger.Info("shutting down")
}

func logLevel(s string) slog.Level {
	switch strings.ToLower(s) {
	case "debug":
		return slog.LevelDebug
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}
