package stream

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"strings"

	"github.com/cloudwego/eino/schema"
	"github.com/go-chi/chi/v5"

	chathandler "github.com/zhouzirui/telesales-sim/backend/internal/handler/chat"
	"github.com/zhouzirui/telesales-sim/backend/internal/model/chat"
	"github.com/zhouzirui/telesales-sim/backend/internal/model/persona"
	"github.com/zhouzirui/telesales-sim/backend/internal/service/ai"
	"github.com/zhouzirui/telesales-sim/backend/pkg/utils"
)

// Handler manages streaming AI responses via Server-Sent Events
type Handler struct {
	deps chathandler.Deps
}

// New creates a new stream handler
func New(deps chathandler.Deps) *Handler {
	return &Handler{deps: deps}
}

// RegisterRoutes mounts the streaming variant of /chat.
func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Post("/chat/stream", h.handleChatStream)
}

// Delta is one streamed fragment of the reply.
type Delta struct {
	Text string `json:"text"`
}

// StreamError is sent as the payload of an "error" event.
type StreamError struct {
	Error string `json:"error"`
	Reply string `json:"reply,omitempty"`
}

func (h *Handler) handleChatStream(w http.ResponseWriter, r *http.Request) {
	var req chat.ChatRequest
	if err := utils.DecodeJSON(w, r, chathandler.MaxBodyBytes, &req); err != nil {
		utils.RespondError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	message := strings.TrimSpace(req.Message)
	if message == "" {
		utils.RespondError(w, http.StatusBadRequest, "message is required")
		return
	}

	p, err := h.deps.ResolvePersona(req.Level)
	if err != nil {
		utils.RespondError(w, http.StatusBadRequest, "unknown lvl")
		return
	}

	if h.deps.Replier == nil {
		utils.RespondError(w, http.StatusServiceUnavailable, "ai service unavailable")
		return
	}

	flusher, ok := w.(http.Flusher)
	if !ok {
		utils.RespondError(w, http.StatusInternalServerError, "streaming unsupported")
		return
	}

	utils.SetupSSEHeaders(w)
	w.WriteHeader(http.StatusOK)

	ctx := r.Context()
	reply, err := h.streamReply(ctx, w, flusher, p, req.History, message)
	if err != nil {
		slog.ErrorContext(ctx, "stream generation failed",
			slog.String("persona", p.ID),
			slog.Any("error", err),
		)
		_ = utils.SendSSEEvent(w, flusher, "error", StreamError{
			Error: "generation failed",
			Reply: chathandler.Apology(p),
		})
		return
	}

	_ = utils.SendSSEEvent(w, flusher, "message", chat.ChatResponse{
		Reply: reply,
		Audio: h.deps.Speak(ctx, reply, p),
	})
	_ = utils.SendSSEEvent(w, flusher, "end", map[string]bool{"finished": true})

	slog.InfoContext(ctx, "stream completed", slog.String("persona", p.ID))
}

func (h *Handler) streamReply(ctx context.Context, w http.ResponseWriter, flusher http.Flusher, p *persona.Persona, history chat.Transcript, message string) (string, error) {
	stream, cancel, err := h.deps.Replier.StreamReply(ctx, p, history, message)
	if err != nil {
		return "", err
	}
	defer cancel()
	defer stream.Close()

	chunks := make([]*schema.Message, 0, 8)
	for {
		chunk, recvErr := stream.Recv()
		if errors.Is(recvErr, io.EOF) {
			break
		}
		if recvErr != nil {
			return "", recvErr
		}
		if chunk == nil {
			continue
		}

		chunks = append(chunks, chunk)
		if chunk.Content != "" {
			if err := utils.SendSSEEvent(w, flusher, "delta", Delta{Text: chunk.Content}); err != nil {
				return "", err
			}
		}
	}

	if len(chunks) == 0 {
		return "", errors.New("empty stream")
	}

	response, err := schema.ConcatMessages(chunks)
	if err != nil {
		return "", err
	}

	reply := ai.CleanReply(response.Content, p.Name)
	if reply == "" {
		return "", errors.New("empty reply")
	}
	return reply, nil
}
