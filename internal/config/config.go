package config

import (
	"errors"
	"fmt"
	"os"
	"regexp"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

var envVarPattern = regexp.MustCompile(`\$\{([^}]+)\}`)

// Load reads a YAML config file, expanding ${VAR} references from the
// environment before parsing. Environment credentials are applied on top so
// a bare config file still picks up WHATSAPP_TOKEN etc.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config: %w", err)
	}

	expanded := expandEnvVars(string(data))

	var cfg Config
	if err := yaml.Unmarshal([]byte(expanded), &cfg); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}

	applyEnv(&cfg)
	applyDefaults(&cfg)
	return &cfg, nil
}

// FromEnv builds a config purely from environment variables, for deployments
// without a config file.
func FromEnv() *Config {
	cfg := &Config{}
	applyEnv(cfg)
	applyDefaults(cfg)
	return cfg
}

// ResolvePath finds the config file. Priority: flag > WAGATE_CONFIG > ./config.yaml.
func ResolvePath(flagPath string) string {
	if flagPath != "" {
		return flagPath
	}
	if p := os.Getenv("WAGATE_CONFIG"); p != "" {
		return p
	}
	return "config.yaml"
}

func expandEnvVars(content string) string {
	return envVarPattern.ReplaceAllStringFunc(content, func(match string) string {
		varName := match[2 : len(match)-1]
		if val, ok := os.LookupEnv(varName); ok {
			return val
		}
		return match
	})
}

func applyEnv(cfg *Config) {
	setIfEmpty(&cfg.WhatsApp.AccessToken, "WHATSAPP_TOKEN")
	setIfEmpty(&cfg.WhatsApp.PhoneNumberID, "WHATSAPP_PHONE_ID")
	setIfEmpty(&cfg.WhatsApp.VerifyToken, "WHATSAPP_VERIFY_TOKEN")
	setIfEmpty(&cfg.WhatsApp.AppSecret, "WHATSAPP_APP_SECRET")
	setIfEmpty(&cfg.LLM.APIKey, "OPENAI_API_KEY")
	setIfEmpty(&cfg.Ops.Token, "WAGATE_OPS_TOKEN")
	setIfEmpty(&cfg.Events.URL, "AMQP_URL")
	if cfg.Server.Port <= 0 {
		if p, err := strconv.Atoi(os.Getenv("PORT")); err == nil && p > 0 {
			cfg.Server.Port = p
		}
	}
}

func setIfEmpty(dst *string, envKey string) {
	if *dst == "" {
		*dst = os.Getenv(envKey)
	}
}

func applyDefaults(cfg *Config) {
	if cfg.Server.Port <= 0 {
		cfg.Server.Port = 8080
	}
	if cfg.WhatsApp.APIVersion == "" {
		cfg.WhatsApp.APIVersion = "v24.0"
	}
	if cfg.WhatsApp.SendTimeout <= 0 {
		cfg.WhatsApp.SendTimeout = 30 * time.Second
	}
	if cfg.LLM.BaseURL == "" {
		cfg.LLM.BaseURL = "https://api.openai.com"
	}
	if cfg.LLM.Model == "" {
		cfg.LLM.Model = "gpt-4o-mini"
	}
	if cfg.LLM.Timeout <= 0 {
		cfg.LLM.Timeout = 60 * time.Second
	}
	if cfg.History.MaxTurns <= 0 {
		cfg.History.MaxTurns = 20
	}
	if cfg.Limits.PerSenderRate <= 0 {
		cfg.Limits.PerSenderRate = 1
	}
	if cfg.Limits.Burst <= 0 {
		cfg.Limits.Burst = 5
	}
	if cfg.Events.URL != "" && cfg.Events.Exchange == "" {
		cfg.Events.Exchange = "wagate.events"
	}
}

// Validate checks required credentials. A missing credential is fatal at
// startup; the service refuses to start rather than fail per-request.
func (c *Config) Validate() error {
	var missing []string
	if c.WhatsApp.PhoneNumberID == "" {
		missing = append(missing, "whatsapp.phoneNumberID (WHATSAPP_PHONE_ID)")
	}
	if c.WhatsApp.AccessToken == "" {
		missing = append(missing, "whatsapp.accessToken (WHATSAPP_TOKEN)")
	}
	if c.WhatsApp.VerifyToken == "" {
		missing = append(missing, "whatsapp.verifyToken (WHATSAPP_VERIFY_TOKEN)")
	}
	if c.LLM.APIKey == "" {
		missing = append(missing, "llm.apiKey (OPENAI_API_KEY)")
	}
	if len(missing) > 0 {
		return errors.New("missing required configuration: " + strings.Join(missing, ", "))
	}
	return nil
}
