package config

import (
	"fmt"
	"log"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

const defaultCacheTTL = 5 * time.Minute

// DefaultPort is the listen port when PORT is unset.
const DefaultPort = "8080"

type Config struct {
	MongoURI    string
	MongoDB     string
	Port        string
	JWTSecret   string
	UploadDir   string
	CORSOrigins []string
	RedisURL    string
	CacheTTL    time.Duration
	LogLevel    string
	Env         string

	warnings []string
}

func LoadConfig() *Config {
	// .env is only present in local development
	if _, err := os.Stat(".env"); err == nil {
		if err := godotenv.Load(); err != nil {
			log.Println("error loading .env file:", err)
		}
	}

	cfg := &Config{
		MongoURI:    getEnv("MONGO_URI", ""),
		MongoDB:     getEnv("MONGO_DB", "storefront"),
		Port:        getEnv("PORT", DefaultPort),
		JWTSecret:   getEnv("JWT_SECRET", ""),
		UploadDir:   getEnv("UPLOAD_DIR", "uploads"),
		CORSOrigins: splitList(getEnv("CORS_ORIGINS", "http://localhost:3000")),
		RedisURL:    getEnv("REDIS_URL", ""),
		LogLevel:    getEnv("LOG_LEVEL", "info"),
		Env:         getEnv("APP_ENV", "development"),
	}

	ttl := getEnv("CACHE_TTL", "")
	cfg.CacheTTL = defaultCacheTTL
	if ttl != "" {
		d, err := time.ParseDuration(ttl)
		if err != nil || d <= 0 {
			cfg.warnings = append(cfg.warnings, fmt.Sprintf("invalid CACHE_TTL %q, using %s", ttl, defaultCacheTTL))
		} else {
			cfg.CacheTTL = d
		}
	}

	return cfg
}

// Validate reports settings the server cannot start without, plus
// non-fatal warnings collected while loading.
func (c *Config) Validate() (warnings []string, err error) {
	var missing []string
	if c.MongoURI == "" {
		missing = append(missing, "MONGO_URI")
	}
	if c.JWTSecret == "" {
		missing = append(missing, "JWT_SECRET")
	}
	if len(missing) > 0 {
		return c.warnings, fmt.Errorf("missing required settings: %s", strings.Join(missing, ", "))
	}
	return c.warnings, nil
}

func (c *Config) IsProduction() bool {
	return c.Env == "production"
}

func getEnv(key, fallback string) string {
	if value, ok := os.LookupEnv(key); ok {
		return value
	}
	return fallback
}

func splitList(v string) []string {
	var out []string
	for _, part := range strings.Split(v, ",") {
		if p := strings.TrimSpace(part); p != "" {
			out = append(out, p)
		}
	}
	return out
}
