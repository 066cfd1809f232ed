package configs

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	Server       ServerConfig
	Mongo        MongoConfig
	Discord      DiscordConfig
	Email        EmailConfig
	Verification VerificationConfig
	Log          LogConfig
}

type ServerConfig struct {
	Host         string
	Port         string
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
	IdleTimeout  time.Duration
}

type MongoConfig struct {
	URI            string
	Database       string
	ConnectTimeout time.Duration
}

type DiscordConfig struct {
	Token string
}

type EmailConfig struct {
	SendGridAPIKey string
	FromEmail      string
	FromName       string
	CompanyName    string
}

type VerificationConfig struct {
	EmailReplyTimeout time.Duration
	CodeReplyTimeout  time.Duration
	SweepInterval     time.Duration
	CallTimeout       time.Duration
}

type LogConfig struct {
	Level  string
	Format string // json or text
}

// Load reads configuration from the environment. All missing required
// settings are reported together in a single error so operators can fix
// them in one pass.
func Load() (*Config, error) {
	// Load .env file if it exists
	_ = godotenv.Load()

	var missing []string
	required := func(key string) string {
		value := os.Getenv(key)
		if value == "" {
			missing = append(missing, key)
		}
		return value
	}

	cfg := &Config{
		Server: ServerConfig{
			Host:         getEnv("SERVER_HOST", "0.0.0.0"),
			Port:         getEnv("SERVER_PORT", "3000"),
			ReadTimeout:  getDurationEnv("SERVER_READ_TIMEOUT", 30*time.Second),
			WriteTimeout: getDurationEnv("SERVER_WRITE_TIMEOUT", 30*time.Second),
			IdleTimeout:  getDurationEnv("SERVER_IDLE_TIMEOUT", 120*time.Second),
		},
		Mongo: MongoConfig{
			URI:            required("MONGO_URI"),
			Database:       getEnv("MONGO_DATABASE", "verifybot"),
			ConnectTimeout: getDurationEnv("MONGO_CONNECT_TIMEOUT", 10*time.Second),
		},
		Discord: DiscordConfig{
			Token: required("DISCORD_TOKEN"),
		},
		Email: EmailConfig{
			SendGridAPIKey: required("SENDGRID_API_KEY"),
			FromEmail:      getEnv("FROM_EMAIL", "noreply@example.com"),
			FromName:       getEnv("FROM_NAME", "Verification Bot"),
			CompanyName:    getEnv("COMPANY_NAME", "CampusGate"),
		},
		Verification: VerificationConfig{
			EmailReplyTimeout: getDurationEnv("EMAIL_REPLY_TIMEOUT", 60*time.Second),
			CodeReplyTimeout:  getDurationEnv("CODE_REPLY_TIMEOUT", 600*time.Second),
			SweepInterval:     getDurationEnv("SESSION_SWEEP_INTERVAL", 60*time.Second),
			CallTimeout:       getDurationEnv("EXTERNAL_CALL_TIMEOUT", 5*time.Second),
		},
		Log: LogConfig{
			Level:  getEnv("LOG_LEVEL", "info"),
			Format: getEnv("LOG_FORMAT", "json"),
		},
	}

	if len(missing) > 0 {
		return nil, fmt.Errorf("missing required environment variables: %s", strings.Join(missing, ", "))
	}

	return cfg, nil
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getDurationEnv(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if duration, err := time.ParseDuration(value); err == nil {
			return duration
		}
	}
	return defaultValue
}
