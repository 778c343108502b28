package speech

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/go-chi/chi/v5"

	chathandler "github.com/zhouzirui/telesales-sim/backend/internal/handler/chat"
	"github.com/zhouzirui/telesales-sim/backend/internal/model/persona"
	speechmodel "github.com/zhouzirui/telesales-sim/backend/internal/model/speech"
	speechsvc "github.com/zhouzirui/telesales-sim/backend/internal/service/speech"
)

type stubSpeech struct {
	err      error
	gotVoice persona.VoiceProfile
}

func (s *stubSpeech) Synthesize(_ context.Context, text string, voice persona.VoiceProfile) (*speechmodel.TTSResponse, error) {
	s.gotVoice = voice
	if s.err != nil {
		return nil, s.err
	}
	return &speechmodel.TTSResponse{AudioData: []byte("ID3" + text), Format: speechmodel.FormatMP3}, nil
}

func newSpeechRouter(svc SpeechService) http.Handler {
	deps := chathandler.Deps{Personas: persona.NewMemoryStore(persona.Seed()), DefaultPersona: "1"}
	r := chi.NewRouter()
	New(svc, deps).RegisterRoutes(r)
	return r
}

func TestSynthesizeReturnsMP3(t *testing.T) {
	svc := &stubSpeech{}
	rec := httptest.NewRecorder()
	newSpeechRouter(svc).ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/speech/synthesize", strings.NewReader(`{"text":"ค่ะ","lvl":"3"}`)))

	if rec.Code != http.StatusOK {
		t.Fatalf("unexpected status %d: %s", rec.Code, rec.Body.String())
	}
	if rec.Header().Get("Content-Type") != "audio/mpeg" || rec.Body.String() != "ID3ค่ะ" {
		t.Fatalf("unexpected audio response %q", rec.Body.String())
	}
	want := persona.Seed()[2].Voice.Name
	if svc.gotVoice.Name != want {
		t.Fatalf("expected voice %s, got %s", want, svc.gotVoice.Name)
	}
}

func TestSynthesizeErrors(t *testing.T) {
	cases := []struct {
		svc    SpeechService
		body   string
		status int
	}{
		{nil, `{"text":"hi"}`, http.StatusServiceUnavailable},
		{&stubSpeech{}, `{"text":" "}`, http.StatusBadRequest},
		{&stubSpeech{}, `{"text":"hi","lvl":"x"}`, http.StatusBadRequest},
		{&stubSpeech{err: speechsvc.ErrNothingToSay}, `{"text":"(ยิ้ม)"}`, http.StatusBadRequest},
		{&stubSpeech{err: errors.New("quota")}, `{"text":"hi"}`, http.StatusBadGateway},
	}
	for _, tc := range cases {
		rec := httptest.NewRecorder()
		newSpeechRouter(tc.svc).ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/speech/synthesize", strings.NewReader(tc.body)))
		if rec.Code != tc.status {
			t.Errorf("%s: expected %d, got %d", tc.body, tc.status, rec.Code)
		}
	}
}
