// Package config consolidates the environment variables the teacher's
// cmd/agent-browser-go/main.go reads ad hoc via scattered os.Getenv calls
// into one loader, per SPEC_FULL.md §10.2.
package config

import (
	"os"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
)

// Config holds every environment-driven setting recognized by webnav.
type Config struct {
	ModelProvider string // anthropic | openai

	AnthropicAPIKey string
	AnthropicModel  string
	OpenAIAPIKey    string
	OpenAIModel     string

	Headless    bool
	MaxSteps    int
	Session     string
	UserDataDir string
	Locale      string
	LogLevel    string
}

const (
	defaultMaxSteps = 25
	defaultSession  = "default"
	defaultLogLevel = "info"
)

// Load reads a .env file if present (ignoring its absence, as the pack's
// godotenv.Load callers do) and assembles Config from the environment,
// reading the variables listed in SPEC_FULL.md §10.2 and applying the
// defaults declared above.
func Load() Config {
	_ = godotenv.Load()

	cfg := Config{
		ModelProvider:   strings.ToLower(strings.TrimSpace(getenv("WEBNAV_MODEL_PROVIDER", "anthropic"))),
		AnthropicAPIKey: os.Getenv("ANTHROPIC_API_KEY"),
		AnthropicModel:  os.Getenv("ANTHROPIC_MODEL"),
		OpenAIAPIKey:    os.Getenv("OPENAI_API_KEY"),
		OpenAIModel:     os.Getenv("OPENAI_MODEL"),
		Headless:        getenvBool("WEBNAV_HEADLESS", true),
		MaxSteps:        getenvInt("WEBNAV_MAX_STEPS", defaultMaxSteps),
		Session:         getenv("WEBNAV_SESSION", defaultSession),
		UserDataDir:     os.Getenv("WEBNAV_USER_DATA_DIR"),
		Locale:          os.Getenv("WEBNAV_LOCALE"),
		LogLevel:        strings.ToLower(getenv("WEBNAV_LOG_LEVEL", defaultLogLevel)),
	}
	return cfg
}

func getenv(key, def string) string {
	if v := strings.TrimSpace(os.Getenv(key)); v != "" {
		return v
	}
	return def
}

func getenvBool(key string, def bool) bool {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return def
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		return def
	}
	return b
}

func getenvInt(key string, def int) int {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return def
	}
	n, err := strconv.Atoi(v)
	if err != nil || n <= 0 {
		return def
	}
	return n
}
