package config

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/cloudwego/eino-ext/components/model/ark"
	"github.com/cloudwego/eino/components/model"
)

const (
	// EnvProduction 关闭 .env 加载和开发默认值。
	EnvProduction = "production"

	devSecretKey = "dev_secret_key"
)

// Config 聚合整个服务的配置项。
type Config struct {
	Environment string `env:"ENVIRONMENT" envDefault:"development"`

	Server    ServerConfig
	Store     StoreConfig
	Auth      AuthConfig
	Providers ProviderConfig
	Chat      ChatConfig
	Log       LogConfig
}

// Load 从环境变量加载配置。
func Load() (*Config, error) {
	cfg := &Config{}
	if err := env.Parse(cfg); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}

	addr, err := resolveAddr(cfg.Server.Port)
	if err != nil {
		return nil, err
	}
	cfg.Server.Addr = addr

	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// IsProduction 判断 ENVIRONMENT 是否为 production。
func (c *Config) IsProduction() bool {
	return strings.EqualFold(strings.TrimSpace(c.Environment), EnvProduction)
}

func (c *Config) validate() error {
	if strings.TrimSpace(c.Store.DatabaseURL) == "" {
		return errors.New("DATABASE_URL is required")
	}
	if c.IsProduction() && (c.Auth.SecretKey == "" || c.Auth.SecretKey == devSecretKey) {
		return errors.New("SECRET_KEY must be set in production")
	}
	if c.Auth.SecretKey == "" {
		c.Auth.SecretKey = devSecretKey
	}
	if c.Auth.TokenTTL <= 0 {
		return fmt.Errorf("invalid TOKEN_TTL value %s", c.Auth.TokenTTL)
	}
	if c.Providers.Timeout <= 0 {
		return fmt.Errorf("invalid PROVIDER_TIMEOUT value %s", c.Providers.Timeout)
	}
	if c.Chat.RatePerMinute < 0 || c.Chat.RateBurst < 0 {
		return errors.New("CHAT_RATE_PER_MINUTE and CHAT_RATE_BURST must not be negative")
	}
	if c.Chat.IdleTimeout < 0 {
		return fmt.Errorf("invalid WS_IDLE_TIMEOUT value %s", c.Chat.IdleTimeout)
	}
	if c.Chat.KeywordLimit < 0 {
		return fmt.Errorf("invalid KEYWORD_LIMIT value %d", c.Chat.KeywordLimit)
	}
	switch strings.ToLower(c.Log.Format) {
	case "json", "console":
	default:
		return fmt.Errorf("invalid LOG_FORMAT value %q", c.Log.Format)
	}
	return nil
}

// ServerConfig 描述 HTTP 服务配置。
type ServerConfig struct {
	Port           string        `env:"PORT" envDefault:"8000"`
	AllowedOrigins []string      `env:"ALLOWED_ORIGINS" envSeparator:"," envDefault:"*"`
	ReadTimeout    time.Duration `env:"SERVER_READ_TIMEOUT" envDefault:"15s"`
	WriteTimeout   time.Duration `env:"SERVER_WRITE_TIMEOUT" envDefault:"90s"`

	// Addr 由 Port 推导。
	Addr string `env:"-"`
}

// resolveAddr 解析服务器监听地址。
func resolveAddr(port string) (string, error) {
	port = strings.TrimSpace(port)
	if port == "" {
		port = "8000"
	}

	if strings.Contains(port, ":") {
		// 允许用户直接传入 ":8000" 或 "127.0.0.1:8000"。
		return port, nil
	}

	if strings.Contains(port, " ") {
		return "", fmt.Errorf("invalid PORT value: %q", port)
	}

	return ":" + port, nil
}

// StoreConfig 描述 Postgres 连接配置。
type StoreConfig struct {
	DatabaseURL string `env:"DATABASE_URL"`
	MaxConns    int32  `env:"DB_MAX_CONNS" envDefault:"20"`
	MinConns    int32  `env:"DB_MIN_CONNS" envDefault:"2"`
}

// AuthConfig 描述令牌签发配置。
type AuthConfig struct {
	SecretKey string        `env:"SECRET_KEY"`
	TokenTTL  time.Duration `env:"TOKEN_TTL" envDefault:"24h"`
	Enforce   bool          `env:"AUTH_ENFORCE" envDefault:"false"`
}

// ProviderConfig 保存各聊天模型的密钥和模型名。
type ProviderConfig struct {
	Default string        `env:"DEFAULT_PROVIDER" envDefault:"groq"`
	Timeout time.Duration `env:"PROVIDER_TIMEOUT" envDefault:"60s"`

	GroqAPIKey  string `env:"GROQ_API_KEY"`
	GroqBaseURL string `env:"GROQ_BASE_URL" envDefault:"https://api.groq.com/openai/v1"`
	GroqModel   string `env:"GROQ_MODEL" envDefault:"llama-3.1-8b-instant"`

	OpenAIAPIKey  string `env:"OPENAI_API_KEY"`
	OpenAIBaseURL string `env:"OPENAI_BASE_URL" envDefault:"https://api.openai.com/v1"`
	OpenAIModel   string `env:"OPENAI_MODEL" envDefault:"gpt-3.5-turbo"`

	GeminiAPIKey  string `env:"GEMINI_API_KEY"`
	GeminiBaseURL string `env:"GEMINI_BASE_URL"`
	GeminiModel   string `env:"GEMINI_MODEL" envDefault:"gemini-pro"`

	Ark ArkConfig
}

// ArkConfig 描述火山方舟大模型相关配置。
type ArkConfig struct {
	APIKey      string   `env:"ARK_API_KEY"`
	AccessKey   string   `env:"ARK_ACCESS_KEY"`
	SecretKey   string   `env:"ARK_SECRET_KEY"`
	Model       string   `env:"ARK_MODEL"`
	BaseURL     string   `env:"ARK_BASE_URL" envDefault:"https://ark.cn-beijing.volces.com/api/v3"`
	Region      string   `env:"ARK_REGION" envDefault:"cn-beijing"`
	Temperature *float64 `env:"ARK_TEMPERATURE"`
	MaxTokens   *int     `env:"ARK_MAX_TOKENS"`
}

// Enabled 表示是否提供了必需的密钥。
func (c ArkConfig) Enabled() bool {
	return c.Model != "" && (c.APIKey != "" || (c.AccessKey != "" && c.SecretKey != ""))
}

// NewChatModel 使用配置创建一个模型实例。
func (c ArkConfig) NewChatModel(ctx context.Context, timeout time.Duration) (model.ChatModel, error) {
	if !c.Enabled() {
		return nil, errors.New("ark credentials or model missing: set ARK_API_KEY + ARK_MODEL or an AK/SK pair")
	}

	var temperature *float32
	if c.Temperature != nil {
		val := float32(*c.Temperature)
		temperature = &val
	}

	var maxTokens *int
	if c.MaxTokens != nil {
		val := *c.MaxTokens
		maxTokens = &val
	}

	retries := 0
	cfg := &ark.ChatModelConfig{
		BaseURL:     c.BaseURL,
		Region:      c.Region,
		APIKey:      c.APIKey,
		AccessKey:   c.AccessKey,
		SecretKey:   c.SecretKey,
		Model:       c.Model,
		MaxTokens:   maxTokens,
		Temperature: temperature,
		Timeout:     &timeout,
		RetryTimes:  &retries,
	}

	return ark.NewChatModel(ctx, cfg)
}

// ChatConfig 调整对话流程参数。
type ChatConfig struct {
	RatePerMinute int `env:"CHAT_RATE_PER_MINUTE" envDefault:"30"`
	RateBurst     int `env:"CHAT_RATE_BURST" envDefault:"5"`
	KeywordLimit  int `env:"KEYWORD_LIMIT" envDefault:"20"`
	HistoryLimit  int `env:"HISTORY_LIMIT" envDefault:"10"`

	// IdleTimeout 是 WebSocket 在上一次回复后等待下一帧的时长。
	IdleTimeout time.Duration `env:"WS_IDLE_TIMEOUT" envDefault:"60s"`
}

// LogConfig 选择 zap 编码器和日志级别。
type LogConfig struct {
	Level  string `env:"LOG_LEVEL" envDefault:"info"`
	Format string `env:"LOG_FORMAT" envDefault:"json"`
}
