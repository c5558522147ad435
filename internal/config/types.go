package config

import "time"

type Config struct {
	Server   ServerConfig   `yaml:"server" json:"server"`
	WhatsApp WhatsAppConfig `yaml:"whatsapp" json:"whatsapp"`
	LLM      LLMConfig      `yaml:"llm" json:"llm"`
	History  HistoryConfig  `yaml:"history" json:"history"`
	Limits   LimitsConfig   `yaml:"limits" json:"limits"`
	Ops      OpsConfig      `yaml:"ops" json:"ops"`
	Events   EventsConfig   `yaml:"events" json:"events"`
}

type ServerConfig struct {
	Port int `yaml:"port" json:"port"`
}

type WhatsAppConfig struct {
	PhoneNumberID string        `yaml:"phoneNumberID" json:"phoneNumberID"`
	AccessToken   string        `yaml:"accessToken" json:"accessToken"`
	VerifyToken   string        `yaml:"verifyToken" json:"verifyToken"`
	AppSecret     string        `yaml:"appSecret" json:"appSecret"` // optional, enables signature checks
	APIVersion    string        `yaml:"apiVersion" json:"apiVersion"`
	SendTimeout   time.Duration `yaml:"sendTimeout" json:"sendTimeout"`
}

type LLMConfig struct {
	APIKey       string        `yaml:"apiKey" json:"apiKey"`
	BaseURL      string        `yaml:"baseURL" json:"baseURL"`
	Model        string        `yaml:"model" json:"model"`
	SystemPrompt string        `yaml:"systemPrompt" json:"systemPrompt"` // empty = builtin default
	Timeout      time.Duration `yaml:"timeout" json:"timeout"`
}

type HistoryConfig struct {
	Enabled  *bool `yaml:"enabled" json:"enabled"` // nil means enabled
	MaxTurns int   `yaml:"maxTurns" json:"maxTurns"`
}

// IsEnabled reports whether replies are stateful. History is on unless the
// config explicitly turns it off.
func (h HistoryConfig) IsEnabled() bool {
	return h.Enabled == nil || *h.Enabled
}

type LimitsConfig struct {
	PerSenderRate float64 `yaml:"perSenderRate" json:"perSenderRate"` // messages per second
	Burst         int     `yaml:"burst" json:"burst"`
}

type OpsConfig struct {
	Token string `yaml:"token" json:"token"` // bearer token for the /ws event tap
}

type EventsConfig struct {
	URL      string `yaml:"url" json:"url"` // amqp://…; empty disables publishing
	Exchange string `yaml:"exchange" json:"exchange"`
}
