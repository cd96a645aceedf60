// internal/common/config/config.go
package config

import (
	"fmt"
	"time"
)

// Config is the main application configuration struct.
type Config struct {
	App           AppConfig          `mapstructure:"app"`
	Engine        EngineConfig       `mapstructure:"engine"`
	Gateway       GatewayConfig      `mapstructure:"gateway"`
	Database      DatabaseConfig     `mapstructure:"database"`
	AI            AIConfig           `mapstructure:"ai"`
	Speech        SpeechConfig       `mapstructure:"speech"`
	Quota         QuotaConfig        `mapstructure:"quota"`
	Notifications NotificationConfig `mapstructure:"notifications"`
	Logging       LoggingConfig      `mapstructure:"logging"`
}

// --- Core App/Infrastructure Config ---
type AppConfig struct {
	Name        string `mapstructure:"name"`
	Version     string `mapstructure:"version"`
	Environment string `mapstructure:"environment"`
}

// EngineConfig holds the turn-taking and phase settings shared by every session.
type EngineConfig struct {
	PlanFile             string `mapstructure:"plan_file"`
	SilenceDurationMs    int    `mapstructure:"silence_duration_ms"`
	TickIntervalMs       int    `mapstructure:"tick_interval_ms"`
	MaxQuestionsPerPhase int    `mapstructure:"max_questions_per_phase"`
}

type GatewayConfig struct {
	Address        string `mapstructure:"address"`
	MetricsAddress string `mapstructure:"metrics_address"`
	MaxMessageKB   int    `mapstructure:"max_message_kb"`
}

type DatabaseConfig struct {
	Postgres      PostgresConfig      `mapstructure:"postgres"`
	Elasticsearch ElasticsearchConfig `mapstructure:"elasticsearch"`
	Redis         RedisConfig         `mapstructure:"redis"`
}

type PostgresConfig struct {
	Host           string `mapstructure:"host"`
	Port           int    `mapstructure:"port"`
	Database       string `mapstructure:"database"`
	User           string `mapstructure:"user"`
	Password       string `mapstructure:"password"`
	MaxConnections int    `mapstructure:"max_connections"`
	MaxIdle        int    `mapstructure:"max_idle"`
	SSLMode        string `mapstructure:"sslmode"`
}

// GetDSN returns the PostgreSQL connection string
func (p PostgresConfig) GetDSN() string {
	return fmt.Sprintf(
		"host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		p.Host, p.Port, p.User, p.Password, p.Database, p.SSLMode,
	)
}

type ElasticsearchConfig struct {
	Addresses  []string `mapstructure:"addresses"`
	Username   string   `mapstructure:"username"`
	Password   string   `mapstructure:"password"`
	SSLEnabled bool     `mapstructure:"ssl_enabled"`
	Index      string   `mapstructure:"index"`
}

type RedisConfig struct {
	Address  string `mapstructure:"address"`
	Password string `mapstructure:"password"`
	DB       int    `mapstructure:"db"`
}

// AIConfig holds settings for the Gemini collaborator.
type AIConfig struct {
	Project   string `mapstructure:"project"`
	Location  string `mapstructure:"location"`
	Model     string `mapstructure:"model"`
	Timeout   int    `mapstructure:"timeout"` // milliseconds
	MaxTokens int    `mapstructure:"max_tokens"`
}

// SpeechConfig holds endpoints for the transcription and synthesis services.
type SpeechConfig struct {
	TranscriberURL  string `mapstructure:"transcriber_url"`
	SynthesizerURL  string `mapstructure:"synthesizer_url"`
	Voice           string `mapstructure:"voice"`
	Timeout         int    `mapstructure:"timeout"` // milliseconds
	TranscriberKey  string `mapstructure:"transcriber_key"`
	SynthesizerKey  string `mapstructure:"synthesizer_key"`
}

// QuotaConfig controls the session admission gate.
type QuotaConfig struct {
	CacheTTLSeconds int    `mapstructure:"cache_ttl_seconds"`
	BillingURL      string `mapstructure:"billing_url"`
}

type NotificationConfig struct {
	Enabled   bool   `mapstructure:"enabled"`
	Region    string `mapstructure:"region"`
	FromEmail string `mapstructure:"from_email"`
	SNSTopic  string `mapstructure:"sns_topic"`
}

type LoggingConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
	Output string `mapstructure:"output"`
}

// GetDuration converts milliseconds from config to time.Duration
func GetDuration(milliseconds int) time.Duration {
	return time.Duration(milliseconds) * time.Millisecond
}
