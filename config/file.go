package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// getEnv returns the value of an environment variable or a default value.
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

// getEnvBool parses a boolean environment variable, keeping defaultValue
// when it is unset or unparseable.
func getEnvBool(key string, defaultValue bool) bool {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	b, err := strconv.ParseBool(value)
	if err != nil {
		return defaultValue
	}
	return b
}

// Load builds the configuration. An empty path reads DefaultPath if it
// exists; a path given explicitly must exist. Variables from .env in the
// working directory are loaded first but never replace variables already
// set in the environment.
func Load(path string) (*Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("failed to load .env: %w", err)
	}

	cfg := Default()

	explicit := path != ""
	if !explicit {
		path = DefaultPath
	}

	if err := LoadFile(path, cfg); err != nil {
		if explicit || !errors.Is(err, fs.ErrNotExist) {
			return nil, err
		}
	}

	applyEnv(cfg)

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return cfg, nil
}

// LoadFile overlays the YAML file at path onto cfg. Keys absent from the
// file keep their current values.
func LoadFile(path string, cfg *Config) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("failed to read config file: %w", err)
	}

	if err := yaml.Unmarshal(data, cfg); err != nil {
		return fmt.Errorf("failed to parse config file %s: %w", path, err)
	}

	return nil
}

func applyEnv(cfg *Config) {
	cfg.Storage.ArticlesDir = getEnv("NEWSDIGEST_DATA_DIR", cfg.Storage.ArticlesDir)
	cfg.Storage.SummaryDir = getEnv("NEWSDIGEST_SUMMARY_DIR", cfg.Storage.SummaryDir)
	cfg.Timezone = getEnv("NEWSDIGEST_TIMEZONE", cfg.Timezone)
	cfg.Log.Level = getEnv("NEWSDIGEST_LOG_LEVEL", cfg.Log.Level)

	cfg.Auth.StateJSON = getEnv("AUTH_STATE_JSON", cfg.Auth.StateJSON)
	cfg.Auth.StateFile = getEnv("AUTH_STATE_FILE", cfg.Auth.StateFile)

	cfg.LLM.APIKey = getEnv("DEEPSEEK_API_KEY", cfg.LLM.APIKey)
	cfg.LLM.BaseURL = getEnv("LLM_BASE_URL", cfg.LLM.BaseURL)
	cfg.LLM.Model = getEnv("LLM_MODEL", cfg.LLM.Model)

	cfg.Notify.WebhookURL = getEnv("FEISHU_WEBHOOK_URL", cfg.Notify.WebhookURL)
	cfg.Notify.InsecureSkipVerify = getEnvBool("FEISHU_INSECURE_SSL", cfg.Notify.InsecureSkipVerify)

	// There is no display on CI runners.
	if isCI() {
		cfg.Browser.Headless = true
	}
}

func isCI() bool {
	return strings.EqualFold(os.Getenv("CI"), "true") ||
		strings.EqualFold(os.Getenv("GITHUB_ACTIONS"), "true")
}
