package ai

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/cloudwego/eino/components/model"
	"github.com/cloudwego/eino/components/prompt"
	"github.com/cloudwego/eino/compose"
	"github.com/cloudwego/eino/schema"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"

	"github.com/zhouzirui/telesales-sim/backend/internal/model/chat"
	"github.com/zhouzirui/telesales-sim/backend/internal/model/persona"
	"github.com/zhouzirui/telesales-sim/backend/internal/observability"
)

// ErrEmptyReply is returned when the model produced no usable text.
var ErrEmptyReply = errors.New("model returned an empty reply")

// DefaultHistoryLimit bounds how many transcript lines reach the prompt.
const DefaultHistoryLimit = 40

// Options tune the reply service.
type Options struct {
	Timeout      time.Duration
	HistoryLimit int
}

// Service generates customer replies for a persona-based call.
type Service struct {
	chatModel    model.ChatModel
	prompts      *PersonaPromptManager
	chain        compose.Runnable[map[string]any, *schema.Message]
	timeout      time.Duration
	historyLimit int
}

// NewService compiles the system+turn prompt chain around chatModel.
func NewService(ctx context.Context, chatModel model.ChatModel, opts Options) (*Service, error) {
	if chatModel == nil {
		return nil, errors.New("chat model is required")
	}

	promptTemplate := prompt.FromMessages(
		schema.FString,
		schema.SystemMessage("{system}"),
		schema.UserMessage("{query}"),
	)

	chain := compose.NewChain[map[string]any, *schema.Message]()
	chain.AppendChatTemplate(promptTemplate)
	chain.AppendChatModel(chatModel)

	runnable, err := chain.Compile(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to compile chat chain: %w", err)
	}

	historyLimit := opts.HistoryLimit
	if historyLimit <= 0 {
		historyLimit = DefaultHistoryLimit
	}

	return &Service{
		chatModel:    chatModel,
		prompts:      NewPersonaPromptManager(),
		chain:        runnable,
		timeout:      opts.Timeout,
		historyLimit: historyLimit,
	}, nil
}

// GetChatModel returns the underlying chat model for services that build their own chains.
func (s *Service) GetChatModel() model.ChatModel {
	return s.chatModel
}

// Reply produces the customer's next line.
func (s *Service) Reply(ctx context.Context, p *persona.Persona, history chat.Transcript, message string) (string, error) {
	ctx, span := observability.Tracer().Start(ctx, "ai.Reply")
	defer span.End()
	span.SetAttributes(
		attribute.String("persona.id", p.ID),
		attribute.Int("history.lines", len(history)),
	)

	ctx, cancel := s.withTimeout(ctx)
	defer cancel()

	start := time.Now()
	response, err := s.chain.Invoke(ctx, s.buildChainInput(p, history, message))
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "generation failed")
		return "", fmt.Errorf("failed to run AI chain: %w", err)
	}

	reply := CleanReply(response.Content, p.Name)
	if reply == "" {
		span.SetStatus(codes.Error, "empty reply")
		return "", ErrEmptyReply
	}

	slog.InfoContext(ctx, "generated reply",
		slog.String("persona", p.ID),
		slog.Int("length", len(reply)),
		slog.Duration("elapsed", time.Since(start)),
	)
	return reply, nil
}

// StreamReply streams reply chunks through the same chain. The returned
// cancel func must be called once the stream is drained or abandoned.
func (s *Service) StreamReply(ctx context.Context, p *persona.Persona, history chat.Transcript, message string) (*schema.StreamReader[*schema.Message], context.CancelFunc, error) {
	ctx, cancel := s.withTimeout(ctx)

	stream, err := s.chain.Stream(ctx, s.buildChainInput(p, history, message))
	if err != nil {
		cancel()
		return nil, nil, fmt.Errorf("failed to stream AI chain output: %w", err)
	}
	return stream, cancel, nil
}

func (s *Service) withTimeout(ctx context.Context) (context.Context, context.CancelFunc) {
	if s.timeout <= 0 {
		return context.WithCancel(ctx)
	}
	return context.WithTimeout(ctx, s.timeout)
}

func (s *Service) buildChainInput(p *persona.Persona, history chat.Transcript, message string) map[string]any {
	return map[string]any{
		"system": s.prompts.BuildSystemPrompt(p),
		"query":  BuildTurnPrompt(history.Tail(s.historyLimit), message),
	}
}

// CleanReply trims whitespace, surrounding quotes and a leading
// "<name>:" label the model sometimes echoes from the transcript format.
func CleanReply(text, speaker string) string {
	reply := strings.TrimSpace(text)
	if speaker != "" {
		for _, sep := range []string{":", "："} {
			prefix := speaker + sep
			if strings.HasPrefix(reply, prefix) {
				reply = strings.TrimSpace(strings.TrimPrefix(reply, prefix))
				break
			}
		}
	}
	reply = strings.Trim(reply, "\"“”")
	return strings.TrimSpace(reply)
}
