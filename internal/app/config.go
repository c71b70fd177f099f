package app

import (
	"os"
	"strings"
	"time"
)

// Config описывает настройки запуска приложения.
type Config struct {
	// MetricsAddr — адрес HTTP-сервера метрик и health-check'ов.
	MetricsAddr string
	// PostgresDSN — строка подключения к PostgreSQL.
	// Пустое значение переключает приложение на in-memory хранилище.
	PostgresDSN string
	// KafkaBrokers — список брокеров через запятую. Пустое значение
	// отключает публикацию событий наружу (outbox копится).
	KafkaBrokers string
	// OutboxPollInterval — частота опроса transactional outbox.
	OutboxPollInterval time.Duration
}

// DefaultConfig возвращает базовые настройки.
func DefaultConfig() Config {
	return Config{
		MetricsAddr:        ":9090",
		OutboxPollInterval: time.Second,
	}
}

// ConfigFromEnv собирает конфигурацию из окружения поверх дефолтов.
func ConfigFromEnv() Config {
	cfg := DefaultConfig()

	if addr := strings.TrimSpace(os.Getenv("RETAIL_METRICS_ADDR")); addr != "" {
		cfg.MetricsAddr = addr
	}
	cfg.PostgresDSN = strings.TrimSpace(os.Getenv("RETAIL_POSTGRES_DSN"))
	cfg.KafkaBrokers = strings.TrimSpace(os.Getenv("RETAIL_KAFKA_BROKERS"))
	if raw := strings.TrimSpace(os.Getenv("RETAIL_OUTBOX_POLL_INTERVAL")); raw != "" {
		if interval, err := time.ParseDuration(raw); err == nil && interval > 0 {
			cfg.OutboxPollInterval = interval
		}
	}

	return cfg
}
