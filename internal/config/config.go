package config

import (
	"os"
	"strconv"
	"time"

	"turnero/kiosk-service/internal/store/postgres"
)

type Config struct {
	Port              string
	DatabaseURL       string
	IdentityLength    int
	PriorityProfileID string
	SuccessTimeout    time.Duration
	SessionTTL        time.Duration
	SweepInterval     time.Duration
	VerifyTTL         time.Duration
	PollInterval      time.Duration
	BatchSize         int
	RateLimitPerMinute int
	RateLimitBurst     int
	Schema             postgres.Schema
}

func Load() Config {
	port := os.Getenv("PORT")
	if port == "" {
		port = "8080"
	}

	return Config{
		Port:              port,
		DatabaseURL:       os.Getenv("DB_DSN"),
		IdentityLength:    readInt("IDENTITY_LENGTH", 10),
		PriorityProfileID: os.Getenv("PRIORITY_PROFILE_ID"),
		SuccessTimeout:    readDurationSeconds("SUCCESS_TIMEOUT_SECONDS", 10),
		SessionTTL:        readDurationSeconds("SESSION_TTL_SECONDS", 600),
		SweepInterval:     readDurationSeconds("SESSION_SWEEP_INTERVAL_SECONDS", 60),
		VerifyTTL:         readDurationSeconds("VERIFY_TTL_SECONDS", 7200),
		PollInterval:      readDurationSeconds("OUTBOX_POLL_INTERVAL_SECONDS", 1),
		BatchSize:         readInt("OUTBOX_BATCH_SIZE", 100),
		RateLimitPerMinute: readInt("RATE_LIMIT_PER_MIN", 120),
		RateLimitBurst:     readInt("RATE_LIMIT_BURST", 30),
		Schema: postgres.Schema{
			TurnsTable:        os.Getenv("TURNS_TABLE"),
			ClientsTable:      os.Getenv("CLIENTS_TABLE"),
			CategoriesTable:   os.Getenv("CATEGORIES_TABLE"),
			KiosksTable:       os.Getenv("KIOSKS_TABLE"),
			SequencesTable:    os.Getenv("SEQUENCES_TABLE"),
			OutboxTable:       os.Getenv("OUTBOX_TABLE"),
			TurnEventsTable:   os.Getenv("TURN_EVENTS_TABLE"),
			CategoryAvgColumn: os.Getenv("CATEGORY_AVG_COLUMN"),
		},
	}
}

func readDurationSeconds(key string, fallback int) time.Duration {
	value := readInt(key, fallback)
	if value <= 0 {
		return 0
	}
	return time.Duration(value) * time.Second
}

func readInt(key string, fallback int) int {
	raw := os.Getenv(key)
	if raw == "" {
		return fallback
	}
	value, err := strconv.Atoi(raw)
	if err != nil {
		return fallback
	}
	return value
}
