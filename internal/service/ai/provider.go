package ai

import (
	"context"
	"errors"
	"fmt"

	"github.com/cloudwego/eino-ext/components/model/ark"
	"github.com/cloudwego/eino/components/model"
	"github.com/cloudwego/eino/schema"

	"github.com/zhouzirui/telesales-sim/backend/internal/config"
)

var errToolsUnsupported = errors.New("tool calling is not used by the simulator")

// NewChatModel builds the eino chat model for the configured provider.
func NewChatModel(ctx context.Context, cfg config.AIConfig) (model.ChatModel, error) {
	if !cfg.Enabled() {
		return nil, fmt.Errorf("%s credentials or model missing", cfg.Provider)
	}

	temperature := toFloat32(cfg.Temperature)
	topP := toFloat32(cfg.TopP)

	switch cfg.Provider {
	case config.ProviderGemini:
		return NewGeminiChatModel(GeminiConfig{
			APIKey:      cfg.GeminiAPIKey,
			Model:       cfg.GeminiModel,
			BaseURL:     cfg.GeminiBaseURL,
			Temperature: temperature,
			TopP:        topP,
			MaxTokens:   cfg.MaxTokens,
			Timeout:     cfg.Timeout,
		})
	case config.ProviderAnthropic:
		return NewAnthropicChatModel(AnthropicConfig{
			APIKey:      cfg.AnthropicAPIKey,
			Model:       cfg.AnthropicModel,
			Temperature: temperature,
			TopP:        topP,
			MaxTokens:   cfg.MaxTokens,
		})
	case config.ProviderArk:
		return ark.NewChatModel(ctx, &ark.ChatModelConfig{
			BaseURL:     cfg.ArkBaseURL,
			Region:      cfg.ArkRegion,
			APIKey:      cfg.ArkAPIKey,
			AccessKey:   cfg.ArkAccessKey,
			SecretKey:   cfg.ArkSecretKey,
			Model:       cfg.ArkModel,
			MaxTokens:   cfg.MaxTokens,
			Temperature: temperature,
			TopP:        topP,
		})
	default:
		return nil, fmt.Errorf("unsupported provider %q", cfg.Provider)
	}
}

func toFloat32(v *float64) *float32 {
	if v == nil {
		return nil
	}
	val := float32(*v)
	return &val
}

// splitSystem separates system instructions from the conversational turns.
func splitSystem(input []*schema.Message) (system string, turns []*schema.Message) {
	for _, msg := range input {
		if msg == nil {
			continue
		}
		if msg.Role == schema.System {
			if system != "" {
				system += "\n\n"
			}
			system += msg.Content
			continue
		}
		turns = append(turns, msg)
	}
	return system, turns
}
