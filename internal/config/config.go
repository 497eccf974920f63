package config

import (
	"os"
	"strconv"
)

type Config struct {
	Port            string
	Environment     string
	SupabaseURL     string
	SupabaseDBURL   string
	SupabaseJWKSURL string // Constructed from SupabaseURL + /auth/v1/.well-known/jwks.json
	SupabaseKey     string // Service role key, only needed by cmd/seed
	CORSOrigins     string
	TablePrefix     string
	// Blob storage for uploaded file bytes
	StorageDir string
	// Optional log file output (empty = stdout only)
	LogDir      string
	LogMaxFiles int
	// Debug flags
	Debug bool
}

func Load() *Config {
	env := getEnv("ENVIRONMENT", "dev")
	tablePrefix := getTablePrefix(env)
	supabaseURL := getEnv("SUPABASE_URL", "")

	// Construct JWKS URL from Supabase URL
	jwksURL := getEnv("JWKS_URL", supabaseURL+"/auth/v1/.well-known/jwks.json")

	return &Config{
		Port:            getEnv("PORT", "3001"),
		Environment:     env,
		SupabaseURL:     supabaseURL,
		SupabaseDBURL:   getEnv("DATABASE_URL", getEnv("SUPABASE_DB_URL", "")),
		SupabaseJWKSURL: jwksURL,
		SupabaseKey:     getEnv("SUPABASE_KEY", ""),
		CORSOrigins:     getEnv("ALLOWED_ORIGINS", "http://localhost:3000"),
		TablePrefix:     tablePrefix,
		StorageDir:      getEnv("STORAGE_DIR", "uploads"),
		LogDir:          getEnv("LOG_DIR", ""),
		LogMaxFiles:     getEnvInt("LOG_MAX_FILES", 10),
		// Debug flags - default to true in dev/test, false in production
		Debug: getEnv("DEBUG", getDefaultDebug(env)) == "true",
	}
}

// ClientConfig configures the API client used by cmd/roomctl.
type ClientConfig struct {
	APIURL      string
	AccessToken string
	// Requests per second sent to the API (0 = unlimited)
	RateLimit  float64
	MaxRetries int
}

// LoadClient reads the client configuration from the environment.
func LoadClient() *ClientConfig {
	rate, err := strconv.ParseFloat(getEnv("DATAROOM_RATE_LIMIT", "10"), 64)
	if err != nil {
		rate = 10
	}
	return &ClientConfig{
		APIURL:      getEnv("DATAROOM_API_URL", "http://localhost:3001/api"),
		AccessToken: getEnv("DATAROOM_TOKEN", ""),
		RateLimit:   rate,
		MaxRetries:  getEnvInt("DATAROOM_MAX_RETRIES", 3),
	}
}

// getDefaultDebug returns the default debug setting based on environment
func getDefaultDebug(env string) string {
	if env == "prod" {
		return "false"
	}
	return "true"
}

// getTablePrefix returns the table prefix based on environment
func getTablePrefix(env string) string {
	// Allow manual override via TABLE_PREFIX env var
	if prefix := os.Getenv("TABLE_PREFIX"); prefix != "" {
		return prefix
	}

	switch env {
	case "prod":
		return "prod_"
	case "test":
		return "test_"
	default:
		return "dev_"
	}
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	n, err := strconv.Atoi(value)
	if err != nil {
		return defaultValue
	}
	return n
}
