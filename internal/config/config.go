package config

import (
	"log"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	Port    string
	GinMode string

	// Database
	DatabaseURL string

	// NATS (primary relay channel; empty disables the bus and the relay
	// falls back to the shared Postgres buffer alone)
	NatsURL string

	// Local notification inbox (per-instance SQLite snapshot)
	InboxPath string
	InboxCap  int

	// Relay tuning
	RelayFreshnessWindow time.Duration // messages older than this are expired on every path
	RelayBufferCap       int           // shared fallback buffer capacity
	RelayPollInterval    time.Duration // fallback buffer poll cadence
	RelayCleanupDelay    time.Duration // delay before post-broadcast buffer prune

	// Auth
	JWTSecret     string
	TokenTTLHours int
	AdminEmails   []string // allow-list; authenticated emails outside it are rejected

	// Clinic identity (used in notification and message templates)
	ClinicName  string
	ClinicPhone string

	// Email provider
	EmailProviderURL string
	EmailAPIKey      string
	EmailFrom        string

	// SMS provider
	SMSProviderURL string
	SMSAPIKey      string
	SMSSender      string

	// Messenger Worker Pool
	MessengerWorkerPoolSize int
	MessengerBufferSize     int
	MessengerTimeoutSeconds int

	// Database Connection Pool
	DBMaxOpenConns    int
	DBMaxIdleConns    int
	DBConnMaxIdleTime int // in minutes
	DBConnMaxLifetime int // in minutes

	// Server
	ServerShutdownTimeoutSeconds int

	// CORS
	CORSAllowedOrigins string

	// Logging
	LogLevel  string
	LogFormat string
}

var AppConfig *Config

func LoadConfig() {
	// Load .env file if it exists
	if err := godotenv.Load(".env"); err != nil {
		log.Println("No .env file found, using environment variables")
	}

	AppConfig = &Config{
		Port:    getEnvOrDefault("PORT", "8080"),
		GinMode: getEnvOrDefault("GIN_MODE", "release"),

		// Database
		DatabaseURL: getEnvOrDefault("DATABASE_URL", "postgres://localhost/clinic_backoffice?sslmode=disable"),

		// NATS
		NatsURL: getEnvOrDefault("NATS_URL", ""),

		// Local notification inbox
		InboxPath: getEnvOrDefault("INBOX_PATH", "backoffice-inbox.db"),
		InboxCap:  getEnvAsInt("INBOX_CAP", 50),

		// Relay
		RelayFreshnessWindow: getEnvAsDuration("RELAY_FRESHNESS_WINDOW", 60*time.Second),
		RelayBufferCap:       getEnvAsInt("RELAY_BUFFER_CAP", 10),
		RelayPollInterval:    getEnvAsDuration("RELAY_POLL_INTERVAL", 5*time.Second),
		RelayCleanupDelay:    getEnvAsDuration("RELAY_CLEANUP_DELAY", 5*time.Second),

		// Auth
		JWTSecret:     getEnvOrDefault("JWT_SECRET", ""),
		TokenTTLHours: getEnvAsInt("TOKEN_TTL_HOURS", 12),
		AdminEmails:   splitList(getEnvOrDefault("ADMIN_EMAILS", "")),

		// Clinic identity
		ClinicName:  getEnvOrDefault("CLINIC_NAME", "미래영상의학과의원"),
		ClinicPhone: getEnvOrDefault("CLINIC_PHONE", "02-1234-5678"),

		// Email provider
		EmailProviderURL: getEnvOrDefault("EMAIL_PROVIDER_URL", ""),
		EmailAPIKey:      getEnvOrDefault("EMAIL_API_KEY", ""),
		EmailFrom:        getEnvOrDefault("EMAIL_FROM", "noreply@mirae-imaging.example"),

		// SMS provider
		SMSProviderURL: getEnvOrDefault("SMS_PROVIDER_URL", ""),
		SMSAPIKey:      getEnvOrDefault("SMS_API_KEY", ""),
		SMSSender:      getEnvOrDefault("SMS_SENDER", ""),

		// Messenger worker pool
		MessengerWorkerPoolSize: getEnvAsInt("MESSENGER_WORKER_POOL_SIZE", 4),
		MessengerBufferSize:     getEnvAsInt("MESSENGER_BUFFER_SIZE", 200),
		MessengerTimeoutSeconds: getEnvAsInt("MESSENGER_TIMEOUT_SECONDS", 15),

		// Database Connection Pool
		DBMaxOpenConns:    getEnvAsInt("DB_MAX_OPEN_CONNS", 15),
		DBMaxIdleConns:    getEnvAsInt("DB_MAX_IDLE_CONNS", 5),
		DBConnMaxIdleTime: getEnvAsInt("DB_CONN_MAX_IDLE_TIME_MINUTES", 1),
		DBConnMaxLifetime: getEnvAsInt("DB_CONN_MAX_LIFETIME_MINUTES", 30),

		// Server
		ServerShutdownTimeoutSeconds: getEnvAsInt("SERVER_SHUTDOWN_TIMEOUT_SECONDS", 30),

		// CORS
		CORSAllowedOrigins: getEnvOrDefault("CORS_ALLOWED_ORIGINS", "http://localhost:3000"),

		// Logging
		LogLevel:  getEnvOrDefault("LOG_LEVEL", "debug"),
		LogFormat: getEnvOrDefault("LOG_FORMAT", "text"),
	}

	if AppConfig.JWTSecret == "" {
		log.Println("Warning: JWT_SECRET is empty. Admin sign-in will be rejected until it is set.")
	}

	if len(AppConfig.AdminEmails) == 0 {
		log.Println("Warning: ADMIN_EMAILS is empty. No account will pass the admin allow-list check.")
	}
}

// splitList parses a comma-separated env value into trimmed, lowercased entries.
func splitList(value string) []string {
	if value == "" {
		return nil
	}

	parts := strings.Split(value, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		p = strings.ToLower(strings.TrimSpace(p))
		if p != "" {
			out = append(out, p)
		}
	}
	return out
}

func getEnvOrDefault(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvAsDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if parsed, err := time.ParseDuration(value); err == nil {
			return parsed
		} else {
			log.Printf("Warning: Failed to parse environment variable %s='%s' as time.Duration, using default %v: %v", key, value, defaultValue, err)
		}
	}
	return defaultValue
}

func getEnvAsInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if parsed, err := strconv.Atoi(value); err == nil {
			return parsed
		} else {
			log.Printf("Warning: Failed to parse environment variable %s='%s' as int, using default %d: %v", key, value, defaultValue, err)
		}
	}
	return defaultValue
}
