package chat

import (
	"errors"
	"log/slog"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/zhouzirui/telesales-sim/backend/internal/model/chat"
	"github.com/zhouzirui/telesales-sim/backend/internal/service/evaluation"
	"github.com/zhouzirui/telesales-sim/backend/pkg/utils"
)

// MaxBodyBytes bounds request bodies; transcripts are sent whole on every turn.
const MaxBodyBytes = 1 << 20

// Handler 聊天服务的HTTP处理器
type Handler struct {
	deps Deps
}

// New 创建聊天处理器
func New(deps Deps) *Handler {
	return &Handler{deps: deps}
}

// RegisterRoutes 注册聊天相关的路由
func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Post("/chat", h.handleChat)
	r.Post("/evaluate", h.handleEvaluate)
}

// handleChat 生成客户的下一句回复并附带语音
func (h *Handler) handleChat(w http.ResponseWriter, r *http.Request) {
	var req chat.ChatRequest
	if err := utils.DecodeJSON(w, r, MaxBodyBytes, &req); err != nil {
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

	ctx := r.Context()
	reply, err := h.deps.Replier.Reply(ctx, p, req.History, message)
	if err != nil {
		slog.ErrorContext(ctx, "chat generation failed",
			slog.String("persona", p.ID),
			slog.Any("error", err),
		)
		utils.RespondJSON(w, http.StatusBadGateway, chat.ChatResponse{
			Reply: Apology(p),
			Error: "generation failed",
		})
		return
	}

	utils.RespondJSON(w, http.StatusOK, chat.ChatResponse{
		Reply: reply,
		Audio: h.deps.Speak(ctx, reply, p),
	})
}

// handleEvaluate 让教练模型为整段通话打分
func (h *Handler) handleEvaluate(w http.ResponseWriter, r *http.Request) {
	var req chat.EvaluateRequest
	if err := utils.DecodeJSON(w, r, MaxBodyBytes, &req); err != nil {
		utils.RespondError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	if len(req.History) == 0 {
		utils.RespondError(w, http.StatusBadRequest, "history is required")
		return
	}

	if h.deps.Evaluator == nil {
		utils.RespondError(w, http.StatusServiceUnavailable, "ai service unavailable")
		return
	}

	// lvl is optional here; an unknown value only drops the customer context.
	p, _ := h.deps.ResolvePersona(req.Level)
	if strings.TrimSpace(req.Level) == "" {
		p = nil
	}

	ctx := r.Context()
	result, err := h.deps.Evaluator.Evaluate(ctx, p, req.History)
	if err != nil {
		if errors.Is(err, evaluation.ErrEmptyTranscript) {
			utils.RespondError(w, http.StatusBadRequest, "history is required")
			return
		}
		slog.ErrorContext(ctx, "evaluation failed", slog.Any("error", err))
		utils.RespondError(w, http.StatusBadGateway, "evaluation failed")
		return
	}

	utils.RespondJSON(w, http.StatusOK, chat.EvaluateResponse{
		Evaluation: result.Text,
		IsClosed:   result.IsClosed,
		Scores:     result.Scores,
	})
}
