package speech

import (
	"context"
	"encoding/base64"
	"errors"
	"log/slog"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"

	"github.com/zhouzirui/telesales-sim/backend/internal/model/persona"
	speechmodel "github.com/zhouzirui/telesales-sim/backend/internal/model/speech"
	"github.com/zhouzirui/telesales-sim/backend/internal/observability"
)

// ErrNothingToSay is returned when the text is empty after cleaning.
var ErrNothingToSay = errors.New("no speakable text")

// Synthesizer 抽象具体的 TTS 供应商。
type Synthesizer interface {
	Synthesize(ctx context.Context, req *speechmodel.TTSRequest) (*speechmodel.TTSResponse, error)
}

// Service 语音服务核心业务逻辑
type Service struct {
	synth           Synthesizer
	defaultLanguage string
	timeout         time.Duration
}

// NewService 创建语音服务实例
func NewService(synth Synthesizer, defaultLanguage string, timeout time.Duration) *Service {
	if defaultLanguage == "" {
		defaultLanguage = "th-TH"
	}
	return &Service{synth: synth, defaultLanguage: defaultLanguage, timeout: timeout}
}

// Synthesize 清洗文本后按角色声音合成 MP3。
func (s *Service) Synthesize(ctx context.Context, text string, voice persona.VoiceProfile) (*speechmodel.TTSResponse, error) {
	cleaned := CleanText(text)
	if cleaned == "" {
		return nil, ErrNothingToSay
	}

	ctx, span := observability.Tracer().Start(ctx, "speech.Synthesize")
	defer span.End()
	span.SetAttributes(
		attribute.String("tts.voice", voice.Name),
		attribute.Int("tts.chars", len(cleaned)),
	)

	if s.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.timeout)
		defer cancel()
	}

	lang := voice.LanguageCode
	if lang == "" {
		lang = s.defaultLanguage
	}

	resp, err := s.synth.Synthesize(ctx, &speechmodel.TTSRequest{
		Text:         cleaned,
		Voice:        voice.Name,
		LanguageCode: lang,
		Pitch:        voice.Pitch,
		Rate:         voice.Rate,
	})
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "synthesis failed")
		return nil, err
	}
	if len(resp.AudioData) == 0 {
		return nil, errors.New("tts returned no audio")
	}
	return resp, nil
}

// AudioBase64 is the best-effort path used by the chat endpoints: any
// failure is logged and reported as nil so the text reply still goes out.
func (s *Service) AudioBase64(ctx context.Context, text string, voice persona.VoiceProfile) *string {
	if s == nil || s.synth == nil {
		return nil
	}

	resp, err := s.Synthesize(ctx, text, voice)
	if err != nil {
		if !errors.Is(err, ErrNothingToSay) {
			slog.WarnContext(ctx, "tts failed, replying without audio",
				slog.String("voice", voice.Name),
				slog.Any("error", err),
			)
		}
		return nil
	}

	encoded := base64.StdEncoding.EncodeToString(resp.AudioData)
	return &encoded
}
