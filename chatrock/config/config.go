package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	ServerAddr string
	LogDir     string

	// TranscriptStore selects the chat persistence backend: "postgres" or "memory".
	TranscriptStore string
	DatabaseURL     string
	DBUser          string
	DBPassword      string
	DBHost          string
	DBPort          string
	DBName          string

	JWTSecret     string
	SessionTTL    time.Duration
	SessionCookie string
	CookieSecure  bool

	// InferenceProvider is "bedrock" or "stub" (offline echo replies).
	InferenceProvider  string
	AWSRegion          string
	AWSAccessKeyID     string
	AWSSecretAccessKey string
	InferenceTimeout   time.Duration
	MaxTokens          int32
	TitleGeneration    bool

	ModelCatalogPath string
	DefaultModelID   string

	MinIOEndpoint  string
	MinIOAccessKey string
	MinIOSecretKey string
	MinIOBucket    string
	MinIOSecure    bool
}

func LoadConfig() Config {
	// .env is optional; real deployments set the environment directly.
	_ = godotenv.Load()

	return Config{
		ServerAddr: getEnv("SERVER_ADDR", ":8000"),
		LogDir:     getEnv("LOG_DIR", "./logs"),

		TranscriptStore: getEnv("TRANSCRIPT_STORE", "postgres"),
		DatabaseURL:     getEnv("POSTGRES_URL", ""),
		DBUser:          getEnv("DB_USER", ""),
		DBPassword:      getEnv("DB_PASSWORD", ""),
		DBHost:          getEnv("DB_HOST", "localhost"),
		DBPort:          getEnv("DB_PORT", "5432"),
		DBName:          getEnv("DB_NAME", ""),

		JWTSecret:     getEnv("JWT_SECRET", ""),
		SessionTTL:    getDuration("SESSION_TTL", 24*time.Hour),
		SessionCookie: getEnv("SESSION_COOKIE", "chatrock_session"),
		CookieSecure:  getBool("COOKIE_SECURE", false),

		InferenceProvider:  getEnv("INFERENCE_PROVIDER", "bedrock"),
		AWSRegion:          getEnv("AWS_REGION", ""),
		AWSAccessKeyID:     getEnv("AWS_ACCESS_KEY_ID", ""),
		AWSSecretAccessKey: getEnv("AWS_SECRET_ACCESS_KEY", ""),
		InferenceTimeout:   getDuration("INFERENCE_TIMEOUT", 60*time.Second),
		MaxTokens:          int32(getInt("MAX_TOKENS", 1024)),
		TitleGeneration:    getBool("TITLE_GENERATION", false),

		ModelCatalogPath: getEnv("MODEL_CATALOG_PATH", ""),
		DefaultModelID:   getEnv("DEFAULT_MODEL_ID", ""),

		MinIOEndpoint:  getEnv("MINIO_ENDPOINT", ""),
		MinIOAccessKey: getEnv("MINIO_ACCESS_KEY", ""),
		MinIOSecretKey: getEnv("MINIO_SECRET_KEY", ""),
		MinIOBucket:    getEnv("MINIO_BUCKET", "chatrock-transcripts"),
		MinIOSecure:    getBool("MINIO_SECURE", false),
	}
}

// DSN returns POSTGRES_URL when set, otherwise a key/value DSN built from the DB_* variables.
func (c Config) DSN() string {
	if c.DatabaseURL != "" {
		return c.DatabaseURL
	}
	return fmt.Sprintf(
		"host=%s port=%s user=%s password=%s dbname=%s sslmode=disable",
		c.DBHost,
		c.DBPort,
		c.DBUser,
		c.DBPassword,
		c.DBName,
	)
}

// Validate reports settings the server cannot start without.
func (c Config) Validate() error {
	if c.JWTSecret == "" {
		return fmt.Errorf("JWT_SECRET is required")
	}
	switch c.InferenceProvider {
	case "stub":
	case "bedrock":
		if c.AWSRegion == "" || c.AWSAccessKeyID == "" || c.AWSSecretAccessKey == "" {
			return fmt.Errorf("missing required AWS environment variables")
		}
	default:
		return fmt.Errorf("unknown INFERENCE_PROVIDER %q", c.InferenceProvider)
	}
	switch c.TranscriptStore {
	case "memory":
	case "postgres":
		if c.DatabaseURL == "" && c.DBName == "" {
			return fmt.Errorf("POSTGRES_URL or DB_NAME is required for the postgres transcript store")
		}
	default:
		return fmt.Errorf("unknown TRANSCRIPT_STORE %q", c.TranscriptStore)
	}
	return nil
}

func getEnv(key, fallback string) string {
	value := os.Getenv(key)
	if value != "" {
		return value
	}
	return fallback
}

func getBool(key string, fallback bool) bool {
	v, err := strconv.ParseBool(os.Getenv(key))
	if err != nil {
		return fallback
	}
	return v
}

func getInt(key string, fallback int) int {
	v, err := strconv.Atoi(os.Getenv(key))
	if err != nil {
		return fallback
	}
	return v
}

func getDuration(key string, fallback time.Duration) time.Duration {
	v, err := time.ParseDuration(os.Getenv(key))
	if err != nil {
		return fallback
	}
	return v
}
