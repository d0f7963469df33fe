package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

// Load reads the .env file specified by VOCAB_ENV (or .env by default),
// then loads the corresponding .secret file if it exists.
// All config is flat env vars read via os.Getenv after loading.
func Load() error {
	envFile := os.Getenv("VOCAB_ENV")
	if envFile == "" {
		envFile = ".env"
	}

	// Missing files are fine; the process environment still applies.
	_ = godotenv.Load(envFile)
	_ = godotenv.Load(envFile + ".secret")

	return nil
}

func ServerPort() int {
	return intEnv("SERVER_PORT", 8080)
}

func ServerAddr() string {
	return fmt.Sprintf(":%d", ServerPort())
}

// DatabaseURL is optional. Without it the catalog is read from CatalogPath
// and sessions are kept in memory.
func DatabaseURL() string {
	return os.Getenv("DATABASE_URL")
}

func CatalogPath() string {
	p := os.Getenv("CATALOG_PATH")
	if p == "" {
		return "vocab.json"
	}
	return p
}

// APIKey returns the static key required on /v1 routes. Empty disables auth.
func APIKey() string {
	return os.Getenv("API_KEY")
}

func MigrationsPath() string {
	p := os.Getenv("MIGRATIONS_PATH")
	if p == "" {
		return "migrations"
	}
	return p
}

// MaxIterations bounds the EP sweeps run after each response.
// Defaults to 1000 if not set.
func MaxIterations() int {
	return intEnv("EP_MAX_ITERATIONS", 1000)
}

// AbilityPrior returns the mean and variance of the prior on the ability
// slope. Defaults to N(0.001, 1e-6).
func AbilityPrior() (mean, variance float64) {
	return floatEnv("PRIOR_ABILITY_MEAN", 1e-3), positiveFloatEnv("PRIOR_ABILITY_VARIANCE", 1e-6)
}

// BiasPrior returns the mean and variance of the prior on the bias.
// Defaults to N(2, 1).
func BiasPrior() (mean, variance float64) {
	return floatEnv("PRIOR_BIAS_MEAN", 2), positiveFloatEnv("PRIOR_BIAS_VARIANCE", 1)
}

// BoundsMaxStimulus is the highest rank summed over when computing score
// quantiles. Defaults to 200000.
func BoundsMaxStimulus() int {
	return intEnv("BOUNDS_MAX_STIMULUS", 200000)
}

// SessionIdleTTL is how long a session may sit unused before it is evicted
// from memory. Defaults to 30m if not set.
func SessionIdleTTL() time.Duration {
	d, err := time.ParseDuration(os.Getenv("SESSION_IDLE_TTL"))
	if err != nil || d <= 0 {
		return 30 * time.Minute
	}
	return d
}

// RateLimitRPS returns requests per second limit.
// Defaults to 100 if not set.
func RateLimitRPS() float64 {
	return positiveFloatEnv("RATE_LIMIT_RPS", 100)
}

// RateLimitBurst returns the burst size for rate limiting.
// Defaults to 20 if not set.
func RateLimitBurst() int {
	return intEnv("RATE_LIMIT_BURST", 20)
}

// LogLevel returns the log level (debug, info, warn, error).
// Defaults to "info" if not set.
func LogLevel() string {
	level := os.Getenv("LOG_LEVEL")
	if level == "" {
		return "info"
	}
	return level
}

// intEnv returns the positive integer in key, or def.
func intEnv(key string, def int) int {
	v, err := strconv.Atoi(os.Getenv(key))
	if err != nil || v <= 0 {
		return def
	}
	return v
}

func floatEnv(key string, def float64) float64 {
	v, err := strconv.ParseFloat(os.Getenv(key), 64)
	if err != nil {
		return def
	}
	return v
}

func positiveFloatEnv(key string, def float64) float64 {
	v := floatEnv(key, def)
	if v <= 0 {
		return def
	}
	return v
}
