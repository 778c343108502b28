package stream

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/cloudwego/eino/schema"
	"github.com/go-chi/chi/v5"

	chathandler "github.com/zhouzirui/telesales-sim/backend/internal/handler/chat"
	"github.com/zhouzirui/telesales-sim/backend/internal/model/chat"
	"github.com/zhouzirui/telesales-sim/backend/internal/model/persona"
)

type chunkedReplier struct {
	chunks []string
	err    error
}

func (c *chunkedReplier) Reply(context.Context, *persona.Persona, chat.Transcript, string) (string, error) {
	return strings.Join(c.chunks, ""), c.err
}

func (c *chunkedReplier) StreamReply(context.Context, *persona.Persona, chat.Transcript, string) (*schema.StreamReader[*schema.Message], context.CancelFunc, error) {
	if c.err != nil {
		return nil, nil, c.err
	}
	msgs := make([]*schema.Message, 0, len(c.chunks))
	for _, text := range c.chunks {
		msgs = append(msgs, schema.AssistantMessage(text, nil))
	}
	return schema.StreamReaderFromArray(msgs), func() {}, nil
}

func serve(t *testing.T, deps chathandler.Deps, body string) *httptest.ResponseRecorder {
	t.Helper()
	deps.Personas = persona.NewMemoryStore(persona.Seed())
	deps.DefaultPersona = "1"

	r := chi.NewRouter()
	New(deps).RegisterRoutes(r)

	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/chat/stream", strings.NewReader(body)))
	return rec
}

func TestChatStreamEvents(t *testing.T) {
	rec := serve(t, chathandler.Deps{Replier: &chunkedReplier{chunks: []string{"น้องฟ้า: สวัสดี", "ค่ะ"}}}, `{"message":"hi","lvl":"1"}`)

	if rec.Code != http.StatusOK {
		t.Fatalf("unexpected status %d", rec.Code)
	}
	if ct := rec.Header().Get("Content-Type"); ct != "text/event-stream" {
		t.Fatalf("unexpected content type %s", ct)
	}

	body := rec.Body.String()
	deltas := strings.Count(body, "event: delta\n")
	if deltas != 2 {
		t.Fatalf("expected 2 delta events, got %d: %s", deltas, body)
	}
	if !strings.Contains(body, "event: message\ndata: {\"reply\":\"สวัสดีค่ะ\",\"audio\":null}") {
		t.Fatalf("final message missing: %s", body)
	}
	if strings.Index(body, "event: end") < strings.Index(body, "event: message") {
		t.Fatalf("end must follow message: %s", body)
	}
}

func TestChatStreamErrorEvent(t *testing.T) {
	rec := serve(t, chathandler.Deps{Replier: &chunkedReplier{err: errors.New("down")}}, `{"message":"hi","lvl":"2"}`)

	body := rec.Body.String()
	if !strings.Contains(body, "event: error") || !strings.Contains(body, "ครับ") {
		t.Fatalf("expected in-character error event: %s", body)
	}
	if strings.Contains(body, "event: end") {
		t.Fatalf("unexpected end event: %s", body)
	}
}

func TestChatStreamValidation(t *testing.T) {
	if rec := serve(t, chathandler.Deps{Replier: &chunkedReplier{}}, `{"message":""}`); rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", rec.Code)
	}
	if rec := serve(t, chathandler.Deps{}, `{"message":"hi"}`); rec.Code != http.StatusServiceUnavailable {
		t.Fatalf("expected 503, got %d", rec.Code)
	}
}
