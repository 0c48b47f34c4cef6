package config

import (
	"fmt"
	"log"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	BotToken     string
	DBPath       string
	BackupDir    string
	PollInterval time.Duration
	BackupCron   string
	MaxBackups   int
	LogLevel     string
}

func Load() (*Config, error) {
	// Load .env if present; in production plain env vars are used.
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found, using environment variables")
	}

	cfg := &Config{
		BotToken:     os.Getenv("TELEGRAM_BOT_TOKEN"),
		DBPath:       getEnv("REMINDD_DB_PATH", "data/remindd.db"),
		BackupDir:    getEnv("REMINDD_BACKUP_DIR", "data/backups"),
		PollInterval: time.Duration(getEnvAsInt("REMINDD_POLL_INTERVAL_SECONDS", 60)) * time.Second,
		BackupCron:   getEnv("REMINDD_BACKUP_CRON", "0 3 * * *"),
		MaxBackups:   getEnvAsInt("REMINDD_MAX_BACKUPS", 10),
		LogLevel:     getEnv("LOG_LEVEL", "info"),
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) Validate() error {
	if c.BotToken == "" {
		return fmt.Errorf("TELEGRAM_BOT_TOKEN is required")
	}
	if c.PollInterval <= 0 {
		return fmt.Errorf("REMINDD_POLL_INTERVAL_SECONDS must be positive")
	}
	if c.MaxBackups < 1 {
		return fmt.Errorf("REMINDD_MAX_BACKUPS must be at least 1")
	}
	return nil
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvAsInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if parsed, err := strconv.Atoi(value); err == nil {
			return parsed
		}
	}
	return defaultValue
}
