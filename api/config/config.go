package config

import (
	iconfig "github.com/scsonic/nexavatar/shared/config"
)

type Config struct {
	Server   ServerConfig
	Database DatabaseConfig
	LLM      LLMConfig
	TTS      TTSConfig
	Admin    AdminConfig
	Otel     OtelConfig
}

type ServerConfig struct {
	Host           string
	Port           int
	AllowedOrigins []string
}

type DatabaseConfig struct {
	URL string
}

type LLMConfig struct {
	BaseURL   string
	APIKey    string
	Model     string
	MaxTokens int
}

type TTSConfig struct {
	URL          string
	DefaultVoice string
}

type AdminConfig struct {
	// Code authorizes the admin console endpoints.
	Code string
}

type OtelConfig struct {
	Environment  string
	ExportTraces bool
}

func Load() *Config {
	return &Config{
		Server: ServerConfig{
			Host:           iconfig.GetEnvWithFallback("NEXAVATAR_SERVER_HOST", "HOST", "0.0.0.0"),
			Port:           iconfig.GetEnvIntWithFallback("NEXAVATAR_SERVER_PORT", "PORT", 8000),
			AllowedOrigins: iconfig.GetEnvSliceWithFallback("NEXAVATAR_ALLOWED_ORIGINS", "ALLOWED_ORIGINS", []string{"*"}),
		},
		Database: DatabaseConfig{
			URL: iconfig.GetEnvWithFallback("NEXAVATAR_POSTGRES_URL", "DATABASE_URL", "postgres://localhost:5432/nexavatar?sslmode=disable"),
		},
		LLM: LLMConfig{
			BaseURL:   iconfig.GetEnvWithFallback("NEXAVATAR_LLM_URL", "LLM_URL", "https://api.openai.com/v1"),
			APIKey:    iconfig.GetEnvWithFallback("NEXAVATAR_LLM_API_KEY", "LLM_API_KEY", ""),
			Model:     iconfig.GetEnvWithFallback("NEXAVATAR_LLM_MODEL", "LLM_MODEL", "gemma-3-27b-it"),
			MaxTokens: iconfig.GetEnvIntWithFallback("NEXAVATAR_LLM_MAX_TOKENS", "LLM_MAX_TOKENS", 1024),
		},
		TTS: TTSConfig{
			URL:          iconfig.GetEnvWithFallback("NEXAVATAR_TTS_URL", "TTS_URL", ""),
			DefaultVoice: iconfig.GetEnvWithFallback("NEXAVATAR_TTS_VOICE", "TTS_VOICE", "zh-TW-HsiaoChenNeural"),
		},
		Admin: AdminConfig{
			Code: iconfig.GetEnvWithFallback("NEXAVATAR_ADMIN_CODE", "ADMIN_CODE", ""),
		},
		Otel: OtelConfig{
			Environment:  iconfig.GetEnvWithFallback("NEXAVATAR_ENVIRONMENT", "ENVIRONMENT", "development"),
			ExportTraces: iconfig.GetEnvBoolWithFallback("NEXAVATAR_EXPORT_TRACES", "EXPORT_TRACES", false),
		},
	}
}

func (c *Config) IsTTSConfigured() bool {
	return c.TTS.URL != ""
}

func (c *Config) IsLLMConfigured() bool {
	return c.LLM.APIKey != ""
}
