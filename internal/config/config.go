// Package config loads service settings from the environment, with an
// optional .env file for local development. Variables use the CAREFLOW_
// prefix; see the envconfig tags for the full list.
package config

import (
	"bufio"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/kelseyhightower/envconfig"
)

const envPrefix = "careflow"

type Config struct {
	HTTPAddr string `envconfig:"HTTP_ADDR" default:":8080"`
	CardPath string `envconfig:"CARD_PATH"`

	// Store selects the persistence backend: memory, sqlite, firestore.
	Store       string `envconfig:"STORE" default:"sqlite"`
	DBPath      string `envconfig:"DB_PATH" default:"data/careflow.db"`
	GCPProject  string `envconfig:"GCP_PROJECT"`
	GCPLocation string `envconfig:"GCP_LOCATION" default:"us-central1"`

	// Generation backend: vertex or gemini-api.
	LLMBackend   string  `envconfig:"LLM_BACKEND" default:"vertex"`
	LLMModel     string  `envconfig:"LLM_MODEL" default:"gemini-2.0-flash"`
	LLMAPIKey    string  `envconfig:"LLM_API_KEY"`
	LLMTemp      float64 `envconfig:"LLM_TEMPERATURE" default:"0.3"`
	LLMMaxTokens int     `envconfig:"LLM_MAX_TOKENS" default:"1024"`

	CallerURL     string        `envconfig:"CALLER_URL" default:"http://localhost:8081"`
	ScheduleHours []int         `envconfig:"SCHEDULE_HOURS" default:"8,12,20"`
	BatchSize     int           `envconfig:"BATCH_SIZE" default:"2"`
	CallTimeout   time.Duration `envconfig:"CALL_TIMEOUT" default:"2m"`
	RetryDelay    time.Duration `envconfig:"RETRY_DELAY" default:"15m"`

	// SessionTTL bounds how long idle conversation history and closed
	// call sessions stay in memory before the periodic sweep drops them.
	SessionTTL time.Duration `envconfig:"SESSION_TTL" default:"24h"`

	// ToolLatencyPath points to a YAML map of tool name to estimated
	// latency seconds, advertised in tool-start updates.
	ToolLatencyPath string `envconfig:"TOOL_LATENCY_PATH"`

	ArmorEnabled bool   `envconfig:"ARMOR_ENABLED" default:"false"`
	ArmorURL     string `envconfig:"ARMOR_URL"`

	LogLevel string `envconfig:"LOG_LEVEL" default:"info"`
}

// Load reads .env (if present) and then the process environment.
func Load() (Config, error) {
	loadDotEnv(".env")
	var cfg Config
	if err := envconfig.Process(envPrefix, &cfg); err != nil {
		return Config{}, fmt.Errorf("load config: %w", err)
	}
	return cfg, nil
}

// loadDotEnv fills the environment from a dotenv file without overriding
// variables already set.
func loadDotEnv(path string) {
	file, err := os.Open(path)
	if err != nil {
		return
	}
	defer file.Close()

	scanner := bufio.NewScanner(file)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		if strings.HasPrefix(line, "export ") {
			line = strings.TrimSpace(strings.TrimPrefix(line, "export "))
		}
		key, value, ok := strings.Cut(line, "=")
		if !ok {
			continue
		}
		key = strings.TrimSpace(key)
		if key == "" {
			continue
		}
		value = strings.Trim(strings.TrimSpace(value), `"'`)
		if _, exists := os.LookupEnv(key); exists {
			continue
		}
		_ = os.Setenv(key, value)
	}
}
