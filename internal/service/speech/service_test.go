package speech

import (
	"context"
	"encoding/base64"
	"errors"
	"strings"
	"testing"
	"unicode/utf8"

	"github.com/zhouzirui/telesales-sim/backend/internal/model/persona"
	speechmodel "github.com/zhouzirui/telesales-sim/backend/internal/model/speech"
)

type fakeSynth struct {
	audio []byte
	err   error
	got   *speechmodel.TTSRequest
}

func (f *fakeSynth) Synthesize(_ context.Context, req *speechmodel.TTSRequest) (*speechmodel.TTSResponse, error) {
	f.got = req
	if f.err != nil {
		return nil, f.err
	}
	return &speechmodel.TTSResponse{AudioData: f.audio, Format: speechmodel.FormatMP3, Voice: req.Voice}, nil
}

func TestAudioBase64EncodesAudio(t *testing.T) {
	synth := &fakeSynth{audio: []byte("ID3fake")}
	svc := NewService(synth, "th-TH", 0)

	voice := persona.VoiceProfile{Name: "th-TH-Neural2-C", Pitch: 2.5, Rate: 1.1}
	got := svc.AudioBase64(context.Background(), "**สวัสดีค่ะ** (ยิ้ม)", voice)
	if got == nil {
		t.Fatal("expected audio")
	}
	if *got != base64.StdEncoding.EncodeToString([]byte("ID3fake")) {
		t.Fatalf("unexpected encoding %q", *got)
	}

	if synth.got.Text != "สวัสดีค่ะ" {
		t.Fatalf("text not cleaned: %q", synth.got.Text)
	}
	if synth.got.LanguageCode != "th-TH" || synth.got.Pitch != 2.5 || synth.got.Rate != 1.1 {
		t.Fatalf("voice not forwarded: %+v", synth.got)
	}
}

func TestAudioBase64FailureIsNil(t *testing.T) {
	svc := NewService(&fakeSynth{err: errors.New("permission denied")}, "", 0)
	if got := svc.AudioBase64(context.Background(), "สวัสดี", persona.VoiceProfile{Name: "v"}); got != nil {
		t.Fatalf("expected nil audio, got %q", *got)
	}

	svc = NewService(&fakeSynth{audio: nil}, "", 0)
	if got := svc.AudioBase64(context.Background(), "สวัสดี", persona.VoiceProfile{Name: "v"}); got != nil {
		t.Fatal("expected nil audio for empty payload")
	}
}

func TestAudioBase64SkipsEmptyText(t *testing.T) {
	synth := &fakeSynth{audio: []byte("x")}
	svc := NewService(synth, "", 0)
	if got := svc.AudioBase64(context.Background(), "(หัวเราะ) 😀", persona.VoiceProfile{}); got != nil {
		t.Fatal("expected nil audio")
	}
	if synth.got != nil {
		t.Fatal("synthesizer should not be called")
	}
}

func TestNilServiceIsSilent(t *testing.T) {
	var svc *Service
	if svc.AudioBase64(context.Background(), "hi", persona.VoiceProfile{}) != nil {
		t.Fatal("nil service must return nil audio")
	}
}

func TestVoiceLanguageOverridesDefault(t *testing.T) {
	synth := &fakeSynth{audio: []byte("x")}
	svc := NewService(synth, "th-TH", 0)
	svc.AudioBase64(context.Background(), "hello", persona.VoiceProfile{Name: "en-US-Neural2-A", LanguageCode: "en-US"})
	if synth.got.LanguageCode != "en-US" {
		t.Fatalf("expected en-US, got %s", synth.got.LanguageCode)
	}
}

func TestCleanText(t *testing.T) {
	cases := []struct {
		in, want string
	}{
		{"## หัวข้อ", "หัวข้อ"},
		{"ค่ะ [ถอนหายใจ] ว่ามา", "ค่ะ ว่ามา"},
		{"`code` _x_ ~y~", "code x y"},
		{"ดีค่ะ 👍🏻", "ดีค่ะ"},
		{"  มาก   มาย\n\nค่ะ ", "มาก มาย ค่ะ"},
		{"มหาศาล", "มหาศาล"},
		{"ค่ะ ((หัวเราะ)) ได้ค่ะ", "ค่ะ ได้ค่ะ"},
		{"ครับ [ยิ้ม (เบา ๆ)] โอเค", "ครับ โอเค"},
	}
	for _, tc := range cases {
		if got := CleanText(tc.in); got != tc.want {
			t.Errorf("CleanText(%q) = %q, want %q", tc.in, got, tc.want)
		}
	}
}

func TestCleanTextTruncatesOnRuneBoundary(t *testing.T) {
	long := strings.Repeat("ก", MaxInputBytes)
	got := CleanText(long)
	if len(got) > MaxInputBytes {
		t.Fatalf("expected at most %d bytes, got %d", MaxInputBytes, len(got))
	}
	if !utf8.ValidString(got) {
		t.Fatal("truncation split a rune")
	}
}

func TestBuildSynthesizeRequest(t *testing.T) {
	req := buildSynthesizeRequest(&speechmodel.TTSRequest{Text: "hi", Voice: "th-TH-Standard-A", LanguageCode: "th-TH", Rate: 0.9})
	if req.GetVoice().GetName() != "th-TH-Standard-A" || req.GetInput().GetText() != "hi" {
		t.Fatalf("unexpected request %+v", req)
	}
	if req.GetAudioConfig().GetSpeakingRate() != 0.9 || req.GetAudioConfig().GetPitch() != 0 {
		t.Fatalf("unexpected audio config %+v", req.GetAudioConfig())
	}
}
