package speech

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"

	chathandler "github.com/zhouzirui/telesales-sim/backend/internal/handler/chat"
	"github.com/zhouzirui/telesales-sim/backend/internal/model/persona"
	speechmodel "github.com/zhouzirui/telesales-sim/backend/internal/model/speech"
	speechsvc "github.com/zhouzirui/telesales-sim/backend/internal/service/speech"
	"github.com/zhouzirui/telesales-sim/backend/pkg/utils"
)

// SpeechService 抽象语音业务，便于测试与替换实现
type SpeechService interface {
	Synthesize(ctx context.Context, text string, voice persona.VoiceProfile) (*speechmodel.TTSResponse, error)
}

// Handler 语音服务的HTTP处理器
type Handler struct {
	speechSvc SpeechService
	deps      chathandler.Deps
}

// New 创建语音处理器，speechSvc 为 nil 时合成接口返回 503
func New(speechSvc SpeechService, deps chathandler.Deps) *Handler {
	return &Handler{speechSvc: speechSvc, deps: deps}
}

// RegisterRoutes 注册语音相关的路由
func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Route("/speech", func(speechRouter chi.Router) {
		speechRouter.Post("/synthesize", h.handleSynthesize)
		speechRouter.Get("/health", h.handleHealth)
	})
}

type synthesizeRequest struct {
	Text  string `json:"text"`
	Level string `json:"lvl"`
}

// handleSynthesize 用角色声音重新合成一句话，直接返回 MP3
func (h *Handler) handleSynthesize(w http.ResponseWriter, r *http.Request) {
	if h.speechSvc == nil {
		utils.RespondError(w, http.StatusServiceUnavailable, "speech service unavailable")
		return
	}

	var req synthesizeRequest
	if err := utils.DecodeJSON(w, r, chathandler.MaxBodyBytes, &req); err != nil {
		utils.RespondError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if strings.TrimSpace(req.Text) == "" {
		utils.RespondError(w, http.StatusBadRequest, "text is required")
		return
	}

	p, err := h.deps.ResolvePersona(req.Level)
	if err != nil {
		utils.RespondError(w, http.StatusBadRequest, "unknown lvl")
		return
	}

	resp, err := h.speechSvc.Synthesize(r.Context(), req.Text, p.Voice)
	if err != nil {
		if errors.Is(err, speechsvc.ErrNothingToSay) {
			utils.RespondError(w, http.StatusBadRequest, "text has nothing to speak")
			return
		}
		slog.ErrorContext(r.Context(), "speech synthesis failed", slog.Any("error", err))
		utils.RespondError(w, http.StatusBadGateway, "speech synthesis failed")
		return
	}

	w.Header().Set("Content-Type", "audio/mpeg")
	w.Header().Set("Content-Length", strconv.Itoa(len(resp.AudioData)))
	w.WriteHeader(http.StatusOK)
	if _, err := w.Write(resp.AudioData); err != nil {
		slog.Warn("failed to write audio response", slog.Any("error", err))
	}
}

// handleHealth 健康检查端点
func (h *Handler) handleHealth(w http.ResponseWriter, r *http.Request) {
	utils.RespondJSON(w, http.StatusOK, map[string]any{
		"status":  "healthy",
		"service": "speech",
		"enabled": h.speechSvc != nil,
	})
}
