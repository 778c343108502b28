package page

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/go-chi/chi/v5"

	"github.com/zhouzirui/telesales-sim/backend/internal/model/chat"
	"github.com/zhouzirui/telesales-sim/backend/internal/model/persona"
)

func TestIndexRendersPersonas(t *testing.T) {
	store := persona.NewMemoryStore(persona.Seed())
	r := chi.NewRouter()
	New(store, chat.StaffSpeaker).RegisterRoutes(r)

	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))

	if rec.Code != http.StatusOK {
		t.Fatalf("unexpected status %d", rec.Code)
	}
	if !strings.HasPrefix(rec.Header().Get("Content-Type"), "text/html") {
		t.Fatalf("unexpected content type %s", rec.Header().Get("Content-Type"))
	}

	body := rec.Body.String()
	for _, want := range []string{"/api/chat", "/api/evaluate", `"id":"1"`, "webkitSpeechRecognition"} {
		if !strings.Contains(body, want) {
			t.Fatalf("page missing %q", want)
		}
	}
	if strings.Contains(body, persona.Seed()[0].Prompt) {
		t.Fatal("persona prompt leaked into the page")
	}
}

func TestIndexEscapesCatalogue(t *testing.T) {
	store := persona.NewMemoryStore([]persona.Persona{{ID: "x", Name: "</script><script>alert(1)</script>"}})
	r := chi.NewRouter()
	New(store, chat.StaffSpeaker).RegisterRoutes(r)

	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))

	if strings.Contains(rec.Body.String(), "</script><script>alert(1)") {
		t.Fatal("persona name was not escaped")
	}
}
