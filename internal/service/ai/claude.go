package ai

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"
	"github.com/cloudwego/eino/components/model"
	"github.com/cloudwego/eino/schema"
)

const anthropicDefaultMaxTokens = 1024

// AnthropicConfig configures the Claude Messages adapter.
type AnthropicConfig struct {
	APIKey      string
	Model       string
	BaseURL     string
	Temperature *float32
	TopP        *float32
	MaxTokens   *int
}

// AnthropicChatModel implements eino's model.ChatModel over the Anthropic Messages API.
type AnthropicChatModel struct {
	cfg    AnthropicConfig
	client anthropic.Client
}

// NewAnthropicChatModel creates the adapter with an API-key client.
func NewAnthropicChatModel(cfg AnthropicConfig) (*AnthropicChatModel, error) {
	if strings.TrimSpace(cfg.APIKey) == "" {
		return nil, errors.New("anthropic api key is required")
	}
	if strings.TrimSpace(cfg.Model) == "" {
		return nil, errors.New("anthropic model is required")
	}

	opts := []option.RequestOption{option.WithAPIKey(cfg.APIKey)}
	if cfg.BaseURL != "" {
		opts = append(opts, option.WithBaseURL(cfg.BaseURL))
	}

	return &AnthropicChatModel{
		cfg:    cfg,
		client: anthropic.NewClient(opts...),
	}, nil
}

// Generate sends one Messages.New call and joins the returned text blocks.
func (c *AnthropicChatModel) Generate(ctx context.Context, input []*schema.Message, opts ...model.Option) (*schema.Message, error) {
	params, err := c.buildParams(input, opts)
	if err != nil {
		return nil, err
	}

	message, err := c.client.Messages.New(ctx, params)
	if err != nil {
		return nil, fmt.Errorf("anthropic API error: %w", err)
	}

	var parts []string
	for _, block := range message.Content {
		if tb, ok := block.AsAny().(anthropic.TextBlock); ok {
			parts = append(parts, tb.Text)
		}
	}

	msg := schema.AssistantMessage(strings.Join(parts, ""), nil)
	msg.ResponseMeta = &schema.ResponseMeta{
		FinishReason: string(message.StopReason),
		Usage: &schema.TokenUsage{
			PromptTokens:     int(message.Usage.InputTokens),
			CompletionTokens: int(message.Usage.OutputTokens),
			TotalTokens:      int(message.Usage.InputTokens + message.Usage.OutputTokens),
		},
	}
	return msg, nil
}

// Stream forwards each text delta of Messages.NewStreaming as one chunk.
func (c *AnthropicChatModel) Stream(ctx context.Context, input []*schema.Message, opts ...model.Option) (*schema.StreamReader[*schema.Message], error) {
	params, err := c.buildParams(input, opts)
	if err != nil {
		return nil, err
	}

	stream := c.client.Messages.NewStreaming(ctx, params)
	sr, sw := schema.Pipe[*schema.Message](8)
	go func() {
		defer sw.Close()
		defer stream.Close()

		for stream.Next() {
			var msg *schema.Message
			switch ev := stream.Current().AsAny().(type) {
			case anthropic.ContentBlockDeltaEvent:
				delta, ok := ev.Delta.AsAny().(anthropic.TextDelta)
				if !ok || delta.Text == "" {
					continue
				}
				msg = schema.AssistantMessage(delta.Text, nil)
			case anthropic.MessageDeltaEvent:
				msg = schema.AssistantMessage("", nil)
				msg.ResponseMeta = &schema.ResponseMeta{FinishReason: string(ev.Delta.StopReason)}
			default:
				continue
			}
			if closed := sw.Send(msg, nil); closed {
				return
			}
		}
		if err := stream.Err(); err != nil {
			sw.Send(nil, fmt.Errorf("anthropic API error: %w", err))
		}
	}()

	return sr, nil
}

func (c *AnthropicChatModel) buildParams(input []*schema.Message, opts []model.Option) (anthropic.MessageNewParams, error) {
	options := model.GetCommonOptions(&model.Options{
		Temperature: c.cfg.Temperature,
		TopP:        c.cfg.TopP,
		MaxTokens:   c.cfg.MaxTokens,
		Model:       &c.cfg.Model,
	}, opts...)

	system, turns := splitSystem(input)
	if len(turns) == 0 {
		return anthropic.MessageNewParams{}, errors.New("anthropic request has no user content")
	}

	maxTokens := int64(anthropicDefaultMaxTokens)
	if options.MaxTokens != nil && *options.MaxTokens > 0 {
		maxTokens = int64(*options.MaxTokens)
	}

	modelID := c.cfg.Model
	if options.Model != nil && *options.Model != "" {
		modelID = *options.Model
	}

	params := anthropic.MessageNewParams{
		Model:     anthropic.Model(modelID),
		MaxTokens: maxTokens,
		Messages:  toAnthropicMessages(turns),
	}
	if system != "" {
		params.System = []anthropic.TextBlockParam{{Text: system}}
	}
	if options.Temperature != nil {
		params.Temperature = anthropic.Float(float64(*options.Temperature))
	}
	if options.TopP != nil {
		params.TopP = anthropic.Float(float64(*options.TopP))
	}
	if len(options.Stop) > 0 {
		params.StopSequences = options.Stop
	}
	return params, nil
}

// BindTools is part of model.ChatModel; the simulator never binds tools.
func (c *AnthropicChatModel) BindTools(_ []*schema.ToolInfo) error {
	return errToolsUnsupported
}

func toAnthropicMessages(turns []*schema.Message) []anthropic.MessageParam {
	messages := make([]anthropic.MessageParam, 0, len(turns))
	for _, msg := range turns {
		block := anthropic.NewTextBlock(msg.Content)
		if msg.Role == schema.Assistant {
			messages = append(messages, anthropic.NewAssistantMessage(block))
			continue
		}
		messages = append(messages, anthropic.NewUserMessage(block))
	}
	return messages
}
