package ai

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/cloudwego/eino/schema"

	"github.com/zhouzirui/telesales-sim/backend/internal/config"
)

func TestGeminiGenerateMapsRoles(t *testing.T) {
	var got geminiRequest
	var gotPath, gotKey string

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		gotKey = r.Header.Get("x-goog-api-key")
		if err := json.NewDecoder(r.Body).Decode(&got); err != nil {
			t.Errorf("decode err: %v", err)
		}
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"candidates":[{"content":{"role":"model","parts":[{"text":"สวัสดี"},{"text":"ค่ะ"}]},"finishReason":"STOP"}],"usageMetadata":{"promptTokenCount":10,"candidatesTokenCount":3,"totalTokenCount":13}}`))
	}))
	defer srv.Close()

	temp := float32(0.4)
	m, err := NewGeminiChatModel(GeminiConfig{
		APIKey:      "secret",
		Model:       "gemini-2.5-flash",
		BaseURL:     srv.URL + "/",
		Temperature: &temp,
	})
	if err != nil {
		t.Fatalf("NewGeminiChatModel err: %v", err)
	}

	msg, err := m.Generate(context.Background(), []*schema.Message{
		schema.SystemMessage("be a customer"),
		schema.UserMessage("hello"),
		schema.AssistantMessage("hi", nil),
		schema.UserMessage("buy?"),
	})
	if err != nil {
		t.Fatalf("Generate err: %v", err)
	}

	if msg.Content != "สวัสดีค่ะ" {
		t.Fatalf("unexpected content %q", msg.Content)
	}
	if msg.ResponseMeta == nil || msg.ResponseMeta.Usage.TotalTokens != 13 {
		t.Fatalf("usage not mapped: %+v", msg.ResponseMeta)
	}
	if gotPath != "/models/gemini-2.5-flash:generateContent" {
		t.Fatalf("unexpected path %s", gotPath)
	}
	if gotKey != "secret" {
		t.Fatalf("api key header missing")
	}
	if got.SystemInstruction == nil || got.SystemInstruction.Parts[0].Text != "be a customer" {
		t.Fatalf("system instruction not mapped: %+v", got.SystemInstruction)
	}
	if len(got.Contents) != 3 || got.Contents[1].Role != "model" || got.Contents[2].Role != "user" {
		t.Fatalf("roles not mapped: %+v", got.Contents)
	}
	if got.GenerationConfig == nil || got.GenerationConfig.Temperature == nil || *got.GenerationConfig.Temperature != 0.4 {
		t.Fatalf("temperature not forwarded: %+v", got.GenerationConfig)
	}
}

func TestGeminiGenerateSurfacesAPIError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
		_, _ = w.Write([]byte(`{"error":{"code":400,"message":"API key not valid","status":"INVALID_ARGUMENT"}}`))
	}))
	defer srv.Close()

	m, err := NewGeminiChatModel(GeminiConfig{APIKey: "bad", Model: "gemini-2.5-flash", BaseURL: srv.URL})
	if err != nil {
		t.Fatalf("NewGeminiChatModel err: %v", err)
	}

	_, err = m.Generate(context.Background(), []*schema.Message{schema.UserMessage("hi")})
	if err == nil || !strings.Contains(err.Error(), "API key not valid") {
		t.Fatalf("expected API error, got %v", err)
	}
}

func TestGeminiGenerateBlockedPrompt(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"promptFeedback":{"blockReason":"SAFETY"}}`))
	}))
	defer srv.Close()

	m, _ := NewGeminiChatModel(GeminiConfig{APIKey: "k", Model: "m", BaseURL: srv.URL})
	if _, err := m.Generate(context.Background(), []*schema.Message{schema.UserMessage("hi")}); err == nil || !strings.Contains(err.Error(), "SAFETY") {
		t.Fatalf("expected blocked error, got %v", err)
	}
}

func TestGeminiRequiresUserContent(t *testing.T) {
	m, _ := NewGeminiChatModel(GeminiConfig{APIKey: "k", Model: "m"})
	if _, err := m.Generate(context.Background(), []*schema.Message{schema.SystemMessage("only system")}); err == nil {
		t.Fatal("expected error without user content")
	}
}

func TestGeminiWorksThroughService(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"candidates":[{"content":{"parts":[{"text":"ครับผม"}]}}]}`))
	}))
	defer srv.Close()

	m, err := NewGeminiChatModel(GeminiConfig{APIKey: "k", Model: "m", BaseURL: srv.URL})
	if err != nil {
		t.Fatalf("NewGeminiChatModel err: %v", err)
	}
	svc, err := NewService(context.Background(), m, Options{})
	if err != nil {
		t.Fatalf("NewService err: %v", err)
	}

	reply, err := svc.Reply(context.Background(), seedPersona(t, "7"), nil, "สวัสดีครับ")
	if err != nil {
		t.Fatalf("Reply err: %v", err)
	}
	if reply != "ครับผม" {
		t.Fatalf("unexpected reply %q", reply)
	}
}

func TestNewChatModelRejectsMissingCredentials(t *testing.T) {
	_, err := NewChatModel(context.Background(), config.AIConfig{Provider: config.ProviderGemini, GeminiModel: "m"})
	if err == nil {
		t.Fatal("expected error without api key")
	}
}

func TestNewChatModelSelectsProvider(t *testing.T) {
	m, err := NewChatModel(context.Background(), config.AIConfig{
		Provider:     config.ProviderGemini,
		GeminiAPIKey: "k",
		GeminiModel:  "gemini-2.5-flash",
	})
	if err != nil {
		t.Fatalf("NewChatModel err: %v", err)
	}
	if _, ok := m.(*GeminiChatModel); !ok {
		t.Fatalf("expected gemini adapter, got %T", m)
	}

	m, err = NewChatModel(context.Background(), config.AIConfig{
		Provider:        config.ProviderAnthropic,
		AnthropicAPIKey: "k",
		AnthropicModel:  "claude-haiku-4-5-20251001",
	})
	if err != nil {
		t.Fatalf("NewChatModel err: %v", err)
	}
	if _, ok := m.(*AnthropicChatModel); !ok {
		t.Fatalf("expected anthropic adapter, got %T", m)
	}
}

func drain(t *testing.T, stream *schema.StreamReader[*schema.Message]) []*schema.Message {
	t.Helper()
	defer stream.Close()

	var chunks []*schema.Message
	for {
		chunk, err := stream.Recv()
		if errors.Is(err, io.EOF) {
			return chunks
		}
		if err != nil {
			t.Fatalf("Recv err: %v", err)
		}
		chunks = append(chunks, chunk)
	}
}

func geminiSSEServer(t *testing.T, texts ...string) *httptest.Server {
	t.Helper()
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/models/m:streamGenerateContent" || r.URL.Query().Get("alt") != "sse" {
			t.Errorf("unexpected stream url %s", r.URL.String())
		}
		w.Header().Set("Content-Type", "text/event-stream")
		for i, text := range texts {
			finish := ""
			if i == len(texts)-1 {
				finish = "STOP"
			}
			fmt.Fprintf(w, "data: {\"candidates\":[{\"content\":{\"role\":\"model\",\"parts\":[{\"text\":%q}]},\"finishReason\":%q}]}\r\n\r\n", text, finish)
			w.(http.Flusher).Flush()
		}
	}))
}

func TestGeminiStreamForwardsChunks(t *testing.T) {
	srv := geminiSSEServer(t, "สวัสดี", "ค่ะ ", "ใครโทรมาคะ")
	defer srv.Close()

	m, err := NewGeminiChatModel(GeminiConfig{APIKey: "k", Model: "m", BaseURL: srv.URL})
	if err != nil {
		t.Fatalf("NewGeminiChatModel err: %v", err)
	}

	stream, err := m.Stream(context.Background(), []*schema.Message{schema.UserMessage("hi")})
	if err != nil {
		t.Fatalf("Stream err: %v", err)
	}

	chunks := drain(t, stream)
	if len(chunks) != 3 {
		t.Fatalf("expected 3 chunks, got %d", len(chunks))
	}
	if chunks[2].ResponseMeta == nil || chunks[2].ResponseMeta.FinishReason != "STOP" {
		t.Fatalf("finish reason not mapped: %+v", chunks[2].ResponseMeta)
	}
}

func TestGeminiStreamThroughService(t *testing.T) {
	srv := geminiSSEServer(t, "ครับ ", "สนใจ", "ครับ")
	defer srv.Close()

	m, _ := NewGeminiChatModel(GeminiConfig{APIKey: "k", Model: "m", BaseURL: srv.URL})
	svc, err := NewService(context.Background(), m, Options{})
	if err != nil {
		t.Fatalf("NewService err: %v", err)
	}

	stream, cancel, err := svc.StreamReply(context.Background(), seedPersona(t, "2"), nil, "สวัสดีครับ")
	if err != nil {
		t.Fatalf("StreamReply err: %v", err)
	}
	defer cancel()

	chunks := drain(t, stream)
	if len(chunks) < 2 {
		t.Fatalf("expected several chunks, got %d", len(chunks))
	}
	full, err := schema.ConcatMessages(chunks)
	if err != nil {
		t.Fatalf("ConcatMessages err: %v", err)
	}
	if full.Content != "ครับ สนใจครับ" {
		t.Fatalf("unexpected content %q", full.Content)
	}
}

func TestGeminiStreamSurfacesAPIError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTooManyRequests)
		_, _ = w.Write([]byte(`{"error":{"code":429,"message":"quota exceeded","status":"RESOURCE_EXHAUSTED"}}`))
	}))
	defer srv.Close()

	m, _ := NewGeminiChatModel(GeminiConfig{APIKey: "k", Model: "m", BaseURL: srv.URL})
	if _, err := m.Stream(context.Background(), []*schema.Message{schema.UserMessage("hi")}); err == nil || !strings.Contains(err.Error(), "quota exceeded") {
		t.Fatalf("expected quota error, got %v", err)
	}
}

func TestTruncateKeepsRunes(t *testing.T) {
	got := truncate("สวัสดีครับ", 3)
	if got != "สวั..." {
		t.Fatalf("unexpected truncation %q", got)
	}
	if truncate("ok", 5) != "ok" {
		t.Fatal("short strings must pass through")
	}
}
