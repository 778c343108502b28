package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

// Provider 标识生成式文本服务的供应商。
type Provider string

const (
	ProviderGemini    Provider = "gemini"
	ProviderArk       Provider = "ark"
	ProviderAnthropic Provider = "anthropic"
)

// Config 聚合整个服务的配置项。
type Config struct {
	Server        ServerConfig
	AI            AIConfig
	Speech        SpeechConfig
	Persona       PersonaConfig
	Observability ObservabilityConfig
}

// Load 从环境变量加载配置。
func Load() (*Config, error) {
	server, err := loadServerConfig()
	if err != nil {
		return nil, err
	}

	ai, err := loadAIConfig()
	if err != nil {
		return nil, err
	}

	speech, err := loadSpeechConfig()
	if err != nil {
		return nil, err
	}

	return &Config{
		Server: server,
		AI:     ai,
		Speech: speech,
		Persona: PersonaConfig{
			DefaultID: getEnvOrDefault("DEFAULT_PERSONA", "1"),
			File:      strings.TrimSpace(os.Getenv("PERSONAS_FILE")),
		},
		Observability: ObservabilityConfig{
			LogLevel:     getEnvOrDefault("LOG_LEVEL", "info"),
			OTLPEndpoint: strings.TrimSpace(os.Getenv("OTEL_EXPORTER_OTLP_ENDPOINT")),
			ServiceName:  getEnvOrDefault("OTEL_SERVICE_NAME", "telesales-simulator"),
		},
	}, nil
}

// ServerConfig 描述 HTTP 服务配置。
type ServerConfig struct {
	Addr           string
	AllowedOrigins []string
}

// loadServerConfig 解析服务器监听地址。
func loadServerConfig() (ServerConfig, error) {
	origins := splitList(getEnvOrDefault("CORS_ALLOWED_ORIGINS", "*"))

	port := strings.TrimSpace(os.Getenv("PORT"))
	if port == "" {
		port = "5000"
	}

	if strings.Contains(port, ":") {
		// 允许用户直接传入 ":5000" 或 "0.0.0.0:5000"。
		return ServerConfig{Addr: port, AllowedOrigins: origins}, nil
	}

	if strings.Contains(port, " ") {
		return ServerConfig{}, fmt.Errorf("invalid PORT value: %q", port)
	}
	if _, err := strconv.Atoi(port); err != nil {
		return ServerConfig{}, fmt.Errorf("invalid PORT value: %q", port)
	}

	return ServerConfig{Addr: ":" + port, AllowedOrigins: origins}, nil
}

// AIConfig 描述大模型相关配置。
type AIConfig struct {
	Provider Provider

	GeminiAPIKey  string
	GeminiModel   string
	GeminiBaseURL string

	AnthropicAPIKey string
	AnthropicModel  string

	ArkAPIKey    string
	ArkAccessKey string
	ArkSecretKey string
	ArkModel     string
	ArkBaseURL   string
	ArkRegion    string

	Temperature *float64
	TopP        *float64
	MaxTokens   *int
	Timeout     time.Duration
}

// Enabled 表示所选供应商是否提供了必需的密钥。
func (c AIConfig) Enabled() bool {
	switch c.Provider {
	case ProviderGemini:
		return c.GeminiAPIKey != "" && c.GeminiModel != ""
	case ProviderAnthropic:
		return c.AnthropicAPIKey != "" && c.AnthropicModel != ""
	case ProviderArk:
		return c.ArkModel != "" && (c.ArkAPIKey != "" || (c.ArkAccessKey != "" && c.ArkSecretKey != ""))
	default:
		return false
	}
}

// ModelName 返回当前供应商使用的模型名。
func (c AIConfig) ModelName() string {
	switch c.Provider {
	case ProviderGemini:
		return c.GeminiModel
	case ProviderAnthropic:
		return c.AnthropicModel
	case ProviderArk:
		return c.ArkModel
	default:
		return ""
	}
}

func loadAIConfig() (AIConfig, error) {
	provider := Provider(strings.ToLower(getEnvOrDefault("LLM_PROVIDER", string(ProviderGemini))))
	switch provider {
	case ProviderGemini, ProviderArk, ProviderAnthropic:
	default:
		return AIConfig{}, fmt.Errorf("invalid LLM_PROVIDER value %q", provider)
	}

	temperature, err := parseOptionalFloatEnv("LLM_TEMPERATURE")
	if err != nil {
		return AIConfig{}, err
	}

	topP, err := parseOptionalFloatEnv("LLM_TOP_P")
	if err != nil {
		return AIConfig{}, err
	}

	maxTokens, err := parseOptionalIntEnv("LLM_MAX_TOKENS")
	if err != nil {
		return AIConfig{}, err
	}

	timeout, err := parseSecondsEnv("LLM_TIMEOUT", 60)
	if err != nil {
		return AIConfig{}, err
	}

	geminiKey := strings.TrimSpace(os.Getenv("GENAI_API_KEY"))
	if geminiKey == "" {
		geminiKey = strings.TrimSpace(os.Getenv("GEMINI_API_KEY"))
	}

	return AIConfig{
		Provider:        provider,
		GeminiAPIKey:    geminiKey,
		GeminiModel:     getEnvOrDefault("GENAI_MODEL", "gemini-2.5-flash"),
		GeminiBaseURL:   getEnvOrDefault("GENAI_BASE_URL", "https://generativelanguage.googleapis.com/v1beta"),
		AnthropicAPIKey: strings.TrimSpace(os.Getenv("ANTHROPIC_API_KEY")),
		AnthropicModel:  getEnvOrDefault("ANTHROPIC_MODEL", "claude-haiku-4-5-20251001"),
		ArkAPIKey:       strings.TrimSpace(os.Getenv("ARK_API_KEY")),
		ArkAccessKey:    strings.TrimSpace(os.Getenv("ARK_ACCESS_KEY")),
		ArkSecretKey:    strings.TrimSpace(os.Getenv("ARK_SECRET_KEY")),
		ArkModel:        strings.TrimSpace(os.Getenv("ARK_MODEL")),
		ArkBaseURL:      getEnvOrDefault("ARK_BASE_URL", "https://ark.cn-beijing.volces.com/api/v3"),
		ArkRegion:       getEnvOrDefault("ARK_REGION", "cn-beijing"),
		Temperature:     temperature,
		TopP:            topP,
		MaxTokens:       maxTokens,
		Timeout:         timeout,
	}, nil
}

// SpeechConfig 描述语音合成服务相关配置
type SpeechConfig struct {
	APIKey   string
	UseADC   bool
	Language string
	Timeout  time.Duration
	Enabled  bool
}

func loadSpeechConfig() (SpeechConfig, error) {
	timeout, err := parseSecondsEnv("TTS_TIMEOUT", 10)
	if err != nil {
		return SpeechConfig{}, err
	}

	useADC, err := parseBoolEnv("TTS_USE_ADC", false)
	if err != nil {
		return SpeechConfig{}, err
	}

	apiKey := strings.TrimSpace(os.Getenv("TTS_API_KEY"))

	return SpeechConfig{
		APIKey:   apiKey,
		UseADC:   useADC,
		Language: getEnvOrDefault("TTS_LANGUAGE", "th-TH"),
		Timeout:  timeout,
		Enabled:  apiKey != "" || useADC,
	}, nil
}

// PersonaConfig 描述客户角色目录来源。
type PersonaConfig struct {
	DefaultID string
	File      string
}

// ObservabilityConfig 日志与链路追踪配置。
type ObservabilityConfig struct {
	LogLevel     string
	OTLPEndpoint string
	ServiceName  string
}

// TracingEnabled 仅在配置了 OTLP 地址时开启。
func (c ObservabilityConfig) TracingEnabled() bool {
	return c.OTLPEndpoint != ""
}

func getEnvOrDefault(key, defaultValue string) string {
	if value := strings.TrimSpace(os.Getenv(key)); value != "" {
		return value
	}
	return defaultValue
}

func parseBoolEnv(key string, defaultValue bool) (bool, error) {
	raw := strings.TrimSpace(os.Getenv(key))
	if raw == "" {
		return defaultValue, nil
	}

	val, err := strconv.ParseBool(raw)
	if err != nil {
		return false, fmt.Errorf("invalid %s value %q: %w", key, raw, err)
	}
	return val, nil
}

func parseSecondsEnv(key string, defaultSeconds int) (time.Duration, error) {
	seconds, err := parseOptionalIntEnv(key)
	if err != nil {
		return 0, err
	}
	if seconds == nil {
		return time.Duration(defaultSeconds) * time.Second, nil
	}
	if *seconds <= 0 {
		return 0, fmt.Errorf("invalid %s value %d: must be positive", key, *seconds)
	}
	return time.Duration(*seconds) * time.Second, nil
}

func parseOptionalFloatEnv(key string) (*float64, error) {
	raw, ok := os.LookupEnv(key)
	if !ok {
		return nil, nil
	}

	value := strings.TrimSpace(raw)
	if value == "" {
		return nil, nil
	}

	val, err := strconv.ParseFloat(value, 64)
	if err != nil {
		return nil, fmt.Errorf("invalid %s value %q: %w", key, value, err)
	}
	return &val, nil
}

func parseOptionalIntEnv(key string) (*int, error) {
	raw, ok := os.LookupEnv(key)
	if !ok {
		return nil, nil
	}

	value := strings.TrimSpace(raw)
	if value == "" {
		return nil, nil
	}

	val, err := strconv.Atoi(value)
	if err != nil {
		return nil, fmt.Errorf("invalid %s value %q: %w", key, value, err)
	}
	return &val, nil
}

func splitList(raw string) []string {
	var out []string
	for _, item := range strings.Split(raw, ",") {
		if item = strings.TrimSpace(item); item != "" {
			out = append(out, item)
		}
	}
	return out
}
