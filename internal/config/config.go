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
	// Server
	Port        string
	Environment string
	LogLevel    string
	LogFormat   string

	// Gemini
	GeminiAPIKey   string
	GeminiModel    string
	GeminiBaseURL  string
	GeminiTimeout  time.Duration
	MaxUploadBytes int64

	// Firebase (Firestore, Auth, FCM)
	FirebaseCredentialsPath string
	FirebaseProjectID       string
	AuthDisabled            bool

	// Optional stores
	DatabaseURL   string
	RedisURL      string
	ParseCacheTTL time.Duration

	// Reminders
	Timezone          string
	SchedulerInterval time.Duration
	MissedGracePeriod time.Duration // 0 disables missed promotion
	EnableDayRollover bool
	SnoozeDuration    time.Duration

	// Twilio (SMS channel)
	TwilioAccountSID  string
	TwilioAuthToken   string
	TwilioPhoneNumber string
	TwilioBaseURL     string

	// SMTP (missed dose alerts)
	EnableEmailAlerts bool
	SMTPHost          string
	SMTPPort          int
	SMTPUsername      string
	SMTPPassword      string
	SMTPFromName      string
	SMTPFromEmail     string
}

func Load() (*Config, error) {
	if err := godotenv.Load(); err != nil {
		log.Println("info: .env file not found, reading configuration from the environment")
	}

	apiKey := os.Getenv("GEMINI_API_KEY")
	if apiKey == "" {
		apiKey = os.Getenv("GOOGLE_API_KEY")
	}

	cfg := &Config{
		// Server
		Port:        getEnvWithDefault("PORT", "3001"),
		Environment: getEnvWithDefault("ENVIRONMENT", "development"),
		LogLevel:    getEnvWithDefault("LOG_LEVEL", "info"),
		LogFormat:   getEnvWithDefault("LOG_FORMAT", "json"),

		// Gemini
		GeminiAPIKey:   apiKey,
		GeminiModel:    getEnvWithDefault("GEMINI_MODEL", "gemini-1.5-pro"),
		GeminiBaseURL:  getEnvWithDefault("GEMINI_BASE_URL", "https://generativelanguage.googleapis.com"),
		GeminiTimeout:  getEnvDuration("GEMINI_TIMEOUT", 60*time.Second),
		MaxUploadBytes: int64(getEnvInt("MAX_UPLOAD_BYTES", 10<<20)),

		// Firebase
		FirebaseCredentialsPath: os.Getenv("FIREBASE_CREDENTIALS_PATH"),
		FirebaseProjectID:       os.Getenv("FIREBASE_PROJECT_ID"),
		AuthDisabled:            getEnvBool("AUTH_DISABLED", false),

		// Optional stores
		DatabaseURL:   os.Getenv("DATABASE_URL"),
		RedisURL:      os.Getenv("REDIS_URL"),
		ParseCacheTTL: getEnvDuration("PARSE_CACHE_TTL", 24*time.Hour),

		// Reminders
		Timezone:          getEnvWithDefault("TIMEZONE", "Local"),
		SchedulerInterval: getEnvDuration("SCHEDULER_INTERVAL", 30*time.Second),
		MissedGracePeriod: getEnvDuration("MISSED_GRACE_PERIOD", 60*time.Minute),
		EnableDayRollover: getEnvBool("ENABLE_DAY_ROLLOVER", true),
		SnoozeDuration:    getEnvDuration("SNOOZE_DURATION", 30*time.Minute),

		// Twilio
		TwilioAccountSID:  os.Getenv("TWILIO_ACCOUNT_SID"),
		TwilioAuthToken:   os.Getenv("TWILIO_AUTH_TOKEN"),
		TwilioPhoneNumber: os.Getenv("TWILIO_PHONE_NUMBER"),
		TwilioBaseURL:     getEnvWithDefault("TWILIO_BASE_URL", "https://api.twilio.com"),

		// SMTP
		EnableEmailAlerts: getEnvBool("ENABLE_EMAIL_ALERTS", true),
		SMTPHost:          getEnvWithDefault("SMTP_HOST", "smtp.gmail.com"),
		SMTPPort:          getEnvInt("SMTP_PORT", 587),
		SMTPUsername:      os.Getenv("SMTP_USERNAME"),
		SMTPPassword:      os.Getenv("SMTP_PASSWORD"),
		SMTPFromName:      getEnvWithDefault("SMTP_FROM_NAME", "MediMinds"),
		SMTPFromEmail:     getEnvWithDefault("SMTP_FROM_EMAIL", "alerts@mediminds.local"),
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func getEnvWithDefault(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intValue, err := strconv.Atoi(value); err == nil {
			return intValue
		}
	}
	return defaultValue
}

func getEnvBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		return value == "true" || value == "1" || value == "yes"
	}
	return defaultValue
}

// getEnvDuration accepts Go duration strings ("90s", "1h") or plain seconds.
func getEnvDuration(key string, defaultValue time.Duration) time.Duration {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	if d, err := time.ParseDuration(value); err == nil {
		return d
	}
	if secs, err := strconv.Atoi(value); err == nil {
		return time.Duration(secs) * time.Second
	}
	return defaultValue
}

// Validate checks values that would make the service misbehave at runtime.
// A missing Gemini key is reported per request, not here.
func (c *Config) Validate() error {
	if c.SchedulerInterval <= 0 {
		return fmt.Errorf("SCHEDULER_INTERVAL must be positive")
	}
	if c.SnoozeDuration <= 0 {
		return fmt.Errorf("SNOOZE_DURATION must be positive")
	}
	if c.MissedGracePeriod < 0 {
		return fmt.Errorf("MISSED_GRACE_PERIOD must not be negative")
	}
	if c.MaxUploadBytes <= 0 {
		return fmt.Errorf("MAX_UPLOAD_BYTES must be positive")
	}
	if _, err := c.Location(); err != nil {
		return err
	}

	if !c.AuthDisabled && c.FirebaseCredentialsPath == "" && c.FirebaseProjectID == "" {
		log.Println("warning: Firebase not configured; caregiver endpoints will reject every request")
	}
	if c.EnableEmailAlerts && (c.SMTPUsername == "" || c.SMTPPassword == "") {
		log.Println("warning: email alerts enabled but SMTP credentials are not configured")
	}

	return nil
}

// Location resolves the caregiver calendar used to decide what "today" is.
func (c *Config) Location() (*time.Location, error) {
	if c.Timezone == "" || c.Timezone == "Local" {
		return time.Local, nil
	}
	loc, err := time.LoadLocation(c.Timezone)
	if err != nil {
		return nil, fmt.Errorf("invalid TIMEZONE %q: %w", c.Timezone, err)
	}
	return loc, nil
}

func (c *Config) SMSEnabled() bool {
	return c.TwilioAccountSID != "" && c.TwilioAuthToken != "" && c.TwilioPhoneNumber != ""
}

func (c *Config) EmailEnabled() bool {
	return c.EnableEmailAlerts && c.SMTPUsername != "" && c.SMTPPassword != ""
}
