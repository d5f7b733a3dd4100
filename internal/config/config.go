package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

// Load reads the .env file specified by NEGOBOT_ENV (or .env by
// default), then loads the corresponding .secret file if it exists.
// All config is flat env vars read via os.Getenv after loading.
func Load() error {
	envFile := os.Getenv("NEGOBOT_ENV")
	if envFile == "" {
		envFile = ".env"
	}

	// Load main env file (ignore error if file doesn't exist)
	_ = godotenv.Load(envFile)

	// Load secret sidecar if it exists
	_ = godotenv.Load(envFile + ".secret")

	return nil
}

func ServerPort() int {
	port, err := strconv.Atoi(os.Getenv("SERVER_PORT"))
	if err != nil {
		return 8080
	}
	return port
}

func ServerAddr() string {
	return fmt.Sprintf(":%d", ServerPort())
}

func DatabaseURL() string {
	return os.Getenv("DATABASE_URL")
}

// ConfigCacheTTL returns how long a flow configuration snapshot is
// served before a reload is attempted. Defaults to 300 seconds.
func ConfigCacheTTL() time.Duration {
	secs, err := strconv.Atoi(os.Getenv("CONFIG_CACHE_TTL"))
	if err != nil || secs <= 0 {
		return 300 * time.Second
	}
	return time.Duration(secs) * time.Second
}

// LookupTimeout bounds the debtor lookup per request.
// Defaults to 1500ms.
func LookupTimeout() time.Duration {
	ms, err := strconv.Atoi(os.Getenv("LOOKUP_TIMEOUT_MS"))
	if err != nil || ms <= 0 {
		return 1500 * time.Millisecond
	}
	return time.Duration(ms) * time.Millisecond
}

// EnhancerProvider returns the configured response enhancer.
// Defaults to "none". Valid values: openai, mock, none
func EnhancerProvider() string {
	p := os.Getenv("ENHANCER_PROVIDER")
	if p == "" {
		return "none"
	}
	return p
}

func EnhancerAPIKey() string {
	if key := os.Getenv("ENHANCER_API_KEY"); key != "" {
		return key
	}
	return os.Getenv("OPENAI_API_KEY")
}

// ClassifierModelPath points at an optional model artifact. Empty
// means the rule table serves alone.
func ClassifierModelPath() string {
	return os.Getenv("CLASSIFIER_MODEL_PATH")
}

// RateLimitRPS returns requests per second limit.
// Defaults to 100 if not set.
func RateLimitRPS() float64 {
	rps, err := strconv.ParseFloat(os.Getenv("RATE_LIMIT_RPS"), 64)
	if err != nil || rps <= 0 {
		return 100
	}
	return rps
}

// RateLimitBurst returns the burst size for rate limiting.
// Defaults to 20 if not set.
func RateLimitBurst() int {
	burst, err := strconv.Atoi(os.Getenv("RATE_LIMIT_BURST"))
	if err != nil || burst <= 0 {
		return 20
	}
	return burst
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
