package config

import (
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Default IANA zones the dispatcher is willing to bucket accounts into. These
// are the zones of the current user base (Brazil plus Portugal); accounts in
// other zones are simply never selected for scheduled sends.
var defaultZoneCatalog = []string{
	"America/Sao_Paulo",
	"America/Bahia",
	"America/Fortaleza",
	"America/Recife",
	"America/Belem",
	"America/Manaus",
	"America/Cuiaba",
	"America/Rio_Branco",
	"America/Noronha",
	"Europe/Lisbon",
}

type Config struct {
	Port        string
	DatabaseURL string

	JWTSecret      string
	InternalAPIKey string

	FirebaseProjectID       string
	FirebaseCredentials     string // path to service account JSON
	FirebaseCredentialsJSON string // inline credentials, alternative to the path

	GoogleProjectID string
	PubSubTopic     string

	RedisAddr     string
	RedisPassword string
	RedisDB       int

	ZoneCatalog []string

	SchedulerEnabled bool
	MorningHour      int
	EveningHour      int
	MedicationHour   int
	ThrottleBackoff  time.Duration

	LogLevel  string
	LogFormat string
}

func Load() *Config {
	// Load .env file if it exists
	_ = godotenv.Load()

	zones := defaultZoneCatalog
	if raw := os.Getenv("ZONE_CATALOG"); raw != "" {
		zones = nil
		for _, z := range strings.Split(raw, ",") {
			if z = strings.TrimSpace(z); z != "" {
				zones = append(zones, z)
			}
		}
	}

	backoff := 2 * time.Second
	if raw := os.Getenv("DISPATCH_THROTTLE_BACKOFF"); raw != "" {
		if parsed, err := time.ParseDuration(raw); err == nil {
			backoff = parsed
		}
	}

	return &Config{
		Port:        getEnv("PORT", "8080"),
		DatabaseURL: getEnv("DATABASE_URL", "host=localhost port=5432 user=postgres dbname=fibrodiario sslmode=disable"),

		JWTSecret:      getEnv("JWT_SECRET", "your-secret-key-change-in-production"),
		InternalAPIKey: getEnv("INTERNAL_API_KEY", ""),

		FirebaseProjectID:       getEnv("FIREBASE_PROJECT_ID", ""),
		FirebaseCredentials:     getEnv("FIREBASE_CREDENTIALS", ""),
		FirebaseCredentialsJSON: getEnv("FIREBASE_CREDENTIALS_JSON", ""),

		GoogleProjectID: getEnv("GOOGLE_PROJECT_ID", ""),
		PubSubTopic:     getEnv("PUBSUB_TOPIC", "dispatch-triggers"),

		RedisAddr:     getEnv("REDIS_ADDR", ""),
		RedisPassword: getEnv("REDIS_PASSWORD", ""),
		RedisDB:       getEnvInt("REDIS_DB", 0),

		ZoneCatalog: zones,

		SchedulerEnabled: getEnv("SCHEDULER_ENABLED", "true") == "true",
		MorningHour:      getEnvInt("MORNING_CHECK_IN_HOUR", 8),
		EveningHour:      getEnvInt("EVENING_CHECK_IN_HOUR", 20),
		MedicationHour:   getEnvInt("MEDICATION_REMINDER_HOUR", 12),
		ThrottleBackoff:  backoff,

		LogLevel:  getEnv("LOG_LEVEL", "info"),
		LogFormat: getEnv("LOG_FORMAT", "json"),
	}
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if parsed, err := strconv.Atoi(value); err == nil {
			return parsed
		}
	}
	return defaultValue
}
