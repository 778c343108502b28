package ai

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/cloudwego/eino/components/model"
	"github.com/cloudwego/eino/schema"
)

const geminiDefaultBaseURL = "https://generativelanguage.googleapis.com/v1beta"

// GeminiConfig configures the Gemini generateContent adapter.
type GeminiConfig struct {
	APIKey      string
	Model       string
	BaseURL     string
	Temperature *float32
	TopP        *float32
	MaxTokens   *int
	Timeout     time.Duration
	HTTPClient  *http.Client
}

// GeminiChatModel implements eino's model.ChatModel over the Gemini REST API.
type GeminiChatModel struct {
	cfg        GeminiConfig
	httpClient *http.Client
}

// NewGeminiChatModel validates the config and returns the adapter.
func NewGeminiChatModel(cfg GeminiConfig) (*GeminiChatModel, error) {
	if strings.TrimSpace(cfg.APIKey) == "" {
		return nil, errors.New("gemini api key is required")
	}
	if strings.TrimSpace(cfg.Model) == "" {
		return nil, errors.New("gemini model is required")
	}
	if cfg.BaseURL == "" {
		cfg.BaseURL = geminiDefaultBaseURL
	}
	cfg.BaseURL = strings.TrimRight(cfg.BaseURL, "/")

	client := cfg.HTTPClient
	if client == nil {
		timeout := cfg.Timeout
		if timeout <= 0 {
			timeout = 60 * time.Second
		}
		client = &http.Client{Timeout: timeout}
	}

	return &GeminiChatModel{cfg: cfg, httpClient: client}, nil
}

type geminiRequest struct {
	SystemInstruction *geminiContent        `json:"systemInstruction,omitempty"`
	Contents          []geminiContent       `json:"contents"`
	GenerationConfig  *geminiGenerateConfig `json:"generationConfig,omitempty"`
}

type geminiContent struct {
	Role  string       `json:"role,omitempty"`
	Parts []geminiPart `json:"parts"`
}

type geminiPart struct {
	Text string `json:"text"`
}

type geminiGenerateConfig struct {
	Temperature     *float32 `json:"temperature,omitempty"`
	TopP            *float32 `json:"topP,omitempty"`
	MaxOutputTokens *int     `json:"maxOutputTokens,omitempty"`
	StopSequences   []string `json:"stopSequences,omitempty"`
}

type geminiResponse struct {
	Candidates []struct {
		Content      geminiContent `json:"content"`
		FinishReason string        `json:"finishReason"`
	} `json:"candidates"`
	PromptFeedback *struct {
		BlockReason string `json:"blockReason"`
	} `json:"promptFeedback,omitempty"`
	UsageMetadata *struct {
		PromptTokenCount     int `json:"promptTokenCount"`
		CandidatesTokenCount int `json:"candidatesTokenCount"`
		TotalTokenCount      int `json:"totalTokenCount"`
	} `json:"usageMetadata,omitempty"`
	Error *struct {
		Code    int    `json:"code"`
		Message string `json:"message"`
		Status  string `json:"status"`
	} `json:"error,omitempty"`
}

// Generate sends the conversation to :generateContent and returns the first candidate.
func (g *GeminiChatModel) Generate(ctx context.Context, input []*schema.Message, opts ...model.Option) (*schema.Message, error) {
	req, err := g.newRequest(ctx, "generateContent", input, opts)
	if err != nil {
		return nil, err
	}

	resp, err := g.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("gemini request: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, 4<<20))
	if err != nil {
		return nil, fmt.Errorf("read gemini response: %w", err)
	}

	var parsed geminiResponse
	if err := json.Unmarshal(body, &parsed); err != nil {
		if resp.StatusCode != http.StatusOK {
			return nil, fmt.Errorf("gemini API error (status %d): %s", resp.StatusCode, truncate(string(body), 200))
		}
		return nil, fmt.Errorf("decode gemini response: %w", err)
	}
	if parsed.Error != nil {
		return nil, fmt.Errorf("gemini API error (status %d): %s", resp.StatusCode, parsed.Error.Message)
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("gemini API error (status %d)", resp.StatusCode)
	}
	if err := parsed.blocked(); err != nil {
		return nil, err
	}
	if len(parsed.Candidates) == 0 {
		return nil, errors.New("gemini returned no candidates")
	}
	return parsed.message(), nil
}

// Stream calls :streamGenerateContent with alt=sse and forwards every
// server-sent chunk as one message.
func (g *GeminiChatModel) Stream(ctx context.Context, input []*schema.Message, opts ...model.Option) (*schema.StreamReader[*schema.Message], error) {
	req, err := g.newRequest(ctx, "streamGenerateContent", input, opts)
	if err != nil {
		return nil, err
	}
	q := req.URL.Query()
	q.Set("alt", "sse")
	req.URL.RawQuery = q.Encode()
	req.Header.Set("Accept", "text/event-stream")

	resp, err := g.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("gemini request: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		defer resp.Body.Close()
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 64<<10))
		var parsed geminiResponse
		if json.Unmarshal(body, &parsed) == nil && parsed.Error != nil {
			return nil, fmt.Errorf("gemini API error (status %d): %s", resp.StatusCode, parsed.Error.Message)
		}
		return nil, fmt.Errorf("gemini API error (status %d): %s", resp.StatusCode, truncate(string(body), 200))
	}

	sr, sw := schema.Pipe[*schema.Message](8)
	go func() {
		defer resp.Body.Close()
		defer sw.Close()

		scanner := bufio.NewScanner(resp.Body)
		scanner.Buffer(make([]byte, 0, 64<<10), 4<<20)
		for scanner.Scan() {
			line := strings.TrimSpace(scanner.Text())
			if !strings.HasPrefix(line, "data:") {
				continue
			}
			data := strings.TrimSpace(strings.TrimPrefix(line, "data:"))
			if data == "" {
				continue
			}

			var chunk geminiResponse
			if err := json.Unmarshal([]byte(data), &chunk); err != nil {
				sw.Send(nil, fmt.Errorf("decode gemini stream chunk: %w", err))
				return
			}
			if chunk.Error != nil {
				sw.Send(nil, fmt.Errorf("gemini API error: %s", chunk.Error.Message))
				return
			}
			if err := chunk.blocked(); err != nil {
				sw.Send(nil, err)
				return
			}
			if len(chunk.Candidates) == 0 {
				continue
			}
			if closed := sw.Send(chunk.message(), nil); closed {
				return
			}
		}
		if err := scanner.Err(); err != nil {
			sw.Send(nil, fmt.Errorf("read gemini stream: %w", err))
		}
	}()

	return sr, nil
}

func (g *GeminiChatModel) newRequest(ctx context.Context, method string, input []*schema.Message, opts []model.Option) (*http.Request, error) {
	options := model.GetCommonOptions(&model.Options{
		Temperature: g.cfg.Temperature,
		TopP:        g.cfg.TopP,
		MaxTokens:   g.cfg.MaxTokens,
		Model:       &g.cfg.Model,
	}, opts...)

	reqBody := g.buildRequest(input, options)
	if len(reqBody.Contents) == 0 {
		return nil, errors.New("gemini request has no user content")
	}

	modelID := g.cfg.Model
	if options.Model != nil && *options.Model != "" {
		modelID = *options.Model
	}

	payload, err := json.Marshal(reqBody)
	if err != nil {
		return nil, fmt.Errorf("marshal gemini request: %w", err)
	}

	url := fmt.Sprintf("%s/models/%s:%s", g.cfg.BaseURL, modelID, method)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(payload))
	if err != nil {
		return nil, fmt.Errorf("create gemini request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("x-goog-api-key", g.cfg.APIKey)
	return req, nil
}

func (r *geminiResponse) blocked() error {
	if r.PromptFeedback != nil && r.PromptFeedback.BlockReason != "" {
		return fmt.Errorf("gemini blocked prompt: %s", r.PromptFeedback.BlockReason)
	}
	return nil
}

// message maps the first candidate; callers check Candidates is non-empty.
func (r *geminiResponse) message() *schema.Message {
	var text strings.Builder
	for _, part := range r.Candidates[0].Content.Parts {
		text.WriteString(part.Text)
	}

	msg := schema.AssistantMessage(text.String(), nil)
	msg.ResponseMeta = &schema.ResponseMeta{FinishReason: r.Candidates[0].FinishReason}
	if r.UsageMetadata != nil {
		msg.ResponseMeta.Usage = &schema.TokenUsage{
			PromptTokens:     r.UsageMetadata.PromptTokenCount,
			CompletionTokens: r.UsageMetadata.CandidatesTokenCount,
			TotalTokens:      r.UsageMetadata.TotalTokenCount,
		}
	}
	return msg
}

// BindTools is part of model.ChatModel; the simulator never binds tools.
func (g *GeminiChatModel) BindTools(_ []*schema.ToolInfo) error {
	return errToolsUnsupported
}

func (g *GeminiChatModel) buildRequest(input []*schema.Message, options *model.Options) geminiRequest {
	system, turns := splitSystem(input)

	req := geminiRequest{
		GenerationConfig: &geminiGenerateConfig{
			Temperature:     options.Temperature,
			TopP:            options.TopP,
			MaxOutputTokens: options.MaxTokens,
			StopSequences:   options.Stop,
		},
	}
	if system != "" {
		req.SystemInstruction = &geminiContent{Parts: []geminiPart{{Text: system}}}
	}

	for _, msg := range turns {
		role := "user"
		if msg.Role == schema.Assistant {
			role = "model"
		}
		req.Contents = append(req.Contents, geminiContent{
			Role:  role,
			Parts: []geminiPart{{Text: msg.Content}},
		})
	}
	return req
}

// truncate keeps at most n runes of s.
func truncate(s string, n int) string {
	if utf8.RuneCountInString(s) <= n {
		return s
	}
	return string([]rune(s)[:n]) + "..."
}
