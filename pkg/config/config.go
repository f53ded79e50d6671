package config

import (
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

const (
	StoreDriverFirestore = "firestore"
	StoreDriverMemory    = "memory"
)

type Config struct {
	ServerPort  string
	Environment string

	FirebaseProject            string
	FirebaseApiKey             string
	FirebaseServiceAccountJSON string
	FirebaseServiceAccountPath string
	StorageBucket              string

	GeminiApiKey string
	GeminiModel  string

	StoreDriver    string
	WebRoot        string
	AllowedOrigins []string

	SessionTTL     time.Duration
	CookieSecure   bool
	TypingTimeout  time.Duration
	SearchDebounce time.Duration
}

func Load() (*Config, error) {
	godotenv.Load()

	config := &Config{
		ServerPort:  getEnv("SERVER_PORT", "8080"),
		Environment: getEnv("ENVIRONMENT", "development"),

		FirebaseProject:            getEnv("FIREBASE_PROJECT_ID", ""),
		FirebaseApiKey:             getEnv("FIREBASE_API_KEY", ""),
		FirebaseServiceAccountJSON: getEnv("FIREBASE_SERVICE_ACCOUNT_JSON", ""),
		FirebaseServiceAccountPath: getEnv("FIREBASE_SERVICE_ACCOUNT_PATH", ""),
		StorageBucket:              getEnv("STORAGE_BUCKET", ""),

		GeminiApiKey: getEnv("GEMINI_API_KEY", ""),
		GeminiModel:  getEnv("GEMINI_MODEL", "gemini-1.5-flash"),

		StoreDriver:    strings.ToLower(getEnv("STORE_DRIVER", StoreDriverFirestore)),
		WebRoot:        getEnv("WEB_ROOT", ""),
		AllowedOrigins: getEnvAsList("ALLOWED_ORIGINS", []string{"*"}),

		SessionTTL:     time.Duration(getEnvAsInt64("SESSION_TTL_HOURS", 5*24)) * time.Hour, // 5 days
		CookieSecure:   getEnvAsBool("COOKIE_SECURE", false),
		TypingTimeout:  time.Duration(getEnvAsInt64("TYPING_TIMEOUT_MS", 5000)) * time.Millisecond,
		SearchDebounce: time.Duration(getEnvAsInt64("SEARCH_DEBOUNCE_MS", 800)) * time.Millisecond,
	}

	if config.Environment == "production" {
		config.CookieSecure = true
	}

	return config, nil
}

func getEnv(key, defaultValue string) string {
	if value, exists := os.LookupEnv(key); exists {
		return value
	}
	return defaultValue
}

func getEnvAsInt64(key string, defaultValue int64) int64 {
	if value, exists := os.LookupEnv(key); exists {
		intValue, err := strconv.ParseInt(value, 10, 64)
		if err == nil {
			return intValue
		}
	}
	return defaultValue
}

func getEnvAsBool(key string, defaultValue bool) bool {
	if value, exists := os.LookupEnv(key); exists {
		b, err := strconv.ParseBool(value)
		if err == nil {
			return b
		}
	}
	return defaultValue
}

func getEnvAsList(key string, defaultValue []string) []string {
	value, exists := os.LookupEnv(key)
	if !exists || strings.TrimSpace(value) == "" {
		return defaultValue
	}
	var out []string
	for _, part := range strings.Split(value, ",") {
		if p := strings.TrimSpace(part); p != "" {
			out = append(out, p)
		}
	}
	return out
}
