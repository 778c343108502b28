package persona

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/go-chi/chi/v5"

	"github.com/zhouzirui/telesales-sim/backend/internal/model/persona"
)

func TestListPersonasHidesPrompt(t *testing.T) {
	r := chi.NewRouter()
	New(persona.NewMemoryStore(persona.Seed())).RegisterRoutes(r)

	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/personas", nil))

	if rec.Code != http.StatusOK {
		t.Fatalf("unexpected status %d", rec.Code)
	}
	if strings.Contains(rec.Body.String(), "prompt") {
		t.Fatalf("prompt leaked: %s", rec.Body.String())
	}

	var got []persona.Public
	if err := json.Unmarshal(rec.Body.Bytes(), &got); err != nil {
		t.Fatalf("decode err: %v", err)
	}
	if len(got) != len(persona.Seed()) || got[0].ID != "1" {
		t.Fatalf("unexpected personas %+v", got)
	}
}
