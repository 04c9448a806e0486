package config

import (
	"fmt"
	"log"
	"os"
	"strings"

	"github.com/joho/godotenv"
)

type Config struct {
	DBDSN       string
	Environment string
	HTTPAddr    string

	MigrationsDir string

	// Redis для блокировки одновременных ходов одной сессии.
	// Пустой адрес — блокировка выключена.
	RedisAddr string

	// Kafka для событий жизненного цикла записей. Пустой список — выключено.
	KafkaBrokers []string
	KafkaTopic   string

	// Google Calendar для зеркалирования записей. Пустой путь — выключено.
	GoogleCredentialsFile string
	GoogleCalendarID      string
}

func Load() (*Config, error) {
	// Пытаемся загрузить .env файл (игнорируем ошибку, если файла нет)
	if err := godotenv.Load(".env"); err != nil {
		log.Println("⚠️  No .env file found, using environment variables")
	} else {
		log.Println("✅ Loaded configuration from .env file")
	}

	cfg := &Config{
		DBDSN:                 os.Getenv("DB_DSN"),
		Environment:           os.Getenv("ENV"),
		HTTPAddr:              os.Getenv("HTTP_ADDR"),
		MigrationsDir:         os.Getenv("MIGRATIONS_DIR"),
		RedisAddr:             os.Getenv("REDIS_ADDR"),
		KafkaTopic:            os.Getenv("KAFKA_TOPIC"),
		GoogleCredentialsFile: os.Getenv("GOOGLE_CREDENTIALS_FILE"),
		GoogleCalendarID:      os.Getenv("GOOGLE_CALENDAR_ID"),
	}

	if brokers := os.Getenv("KAFKA_BROKERS"); brokers != "" {
		for _, b := range strings.Split(brokers, ",") {
			if b = strings.TrimSpace(b); b != "" {
				cfg.KafkaBrokers = append(cfg.KafkaBrokers, b)
			}
		}
	}

	// Дефолтные значения
	if cfg.Environment == "" {
		cfg.Environment = "development"
	}
	if cfg.HTTPAddr == "" {
		cfg.HTTPAddr = ":8080"
	}
	if cfg.MigrationsDir == "" {
		cfg.MigrationsDir = "migrations"
	}
	if cfg.KafkaTopic == "" {
		cfg.KafkaTopic = "reception.appointments"
	}

	// Обязательные поля
	if cfg.DBDSN == "" {
		return nil, fmt.Errorf("DB_DSN is required but not set")
	}
	if len(cfg.KafkaBrokers) > 0 && cfg.KafkaTopic == "" {
		return nil, fmt.Errorf("KAFKA_TOPIC is required when KAFKA_BROKERS is set")
	}

	return cfg, nil
}
