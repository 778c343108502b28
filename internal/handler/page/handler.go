package page

import (
	"bytes"
	"embed"
	"html/template"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/zhouzirui/telesales-sim/backend/internal/model/persona"
	"github.com/zhouzirui/telesales-sim/backend/pkg/utils"
)

//go:embed templates/index.html
var templateFS embed.FS

var indexTemplate = template.Must(template.ParseFS(templateFS, "templates/index.html"))

type indexData struct {
	Personas     []persona.Public
	StaffSpeaker string
}

// Handler renders the single-page simulator.
type Handler struct {
	personas     persona.Store
	staffSpeaker string
}

// New creates the page handler.
func New(personas persona.Store, staffSpeaker string) *Handler {
	return &Handler{personas: personas, staffSpeaker: staffSpeaker}
}

// RegisterRoutes mounts GET /.
func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Get("/", h.handleIndex)
}

func (h *Handler) handleIndex(w http.ResponseWriter, r *http.Request) {
	items := h.personas.List()
	data := indexData{
		Personas:     make([]persona.Public, 0, len(items)),
		StaffSpeaker: h.staffSpeaker,
	}
	for _, p := range items {
		data.Personas = append(data.Personas, p.Public())
	}

	var buf bytes.Buffer
	if err := indexTemplate.Execute(&buf, data); err != nil {
		slog.ErrorContext(r.Context(), "failed to render index", slog.Any("error", err))
		utils.RespondError(w, http.StatusInternalServerError, "failed to render page")
		return
	}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	if _, err := buf.WriteTo(w); err != nil {
		slog.Warn("failed to write index", slog.Any("error", err))
	}
}
