package speech

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	texttospeech "cloud.google.com/go/texttospeech/apiv1"
	texttospeechpb "cloud.google.com/go/texttospeech/apiv1/texttospeechpb"
	"google.golang.org/api/option"

	speechmodel "github.com/zhouzirui/telesales-sim/backend/internal/model/speech"
)

// GoogleConfig 配置 Google Cloud Text-to-Speech 客户端。
type GoogleConfig struct {
	APIKey string
	// UseADC 使用 Application Default Credentials 而非 API Key。
	UseADC bool
}

// GoogleSynthesizer 通过 Cloud TTS gRPC 接口合成 MP3。
type GoogleSynthesizer struct {
	client *texttospeech.Client
}

// NewGoogleSynthesizer 创建 Google TTS 客户端。
func NewGoogleSynthesizer(ctx context.Context, cfg GoogleConfig) (*GoogleSynthesizer, error) {
	var opts []option.ClientOption
	switch {
	case cfg.APIKey != "":
		opts = append(opts, option.WithAPIKey(cfg.APIKey))
	case cfg.UseADC:
	default:
		return nil, errors.New("google tts requires an api key or application default credentials")
	}

	client, err := texttospeech.NewClient(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("create google tts client: %w", err)
	}
	return &GoogleSynthesizer{client: client}, nil
}

// Synthesize 合成一段文本。
func (g *GoogleSynthesizer) Synthesize(ctx context.Context, req *speechmodel.TTSRequest) (*speechmodel.TTSResponse, error) {
	start := time.Now()
	resp, err := g.client.SynthesizeSpeech(ctx, buildSynthesizeRequest(req))
	if err != nil {
		return nil, fmt.Errorf("google tts synthesize: %w", err)
	}

	slog.DebugContext(ctx, "google tts synthesized",
		slog.String("voice", req.Voice),
		slog.Int("chars", len(req.Text)),
		slog.Int("bytes", len(resp.AudioContent)),
		slog.Duration("elapsed", time.Since(start)),
	)
	return &speechmodel.TTSResponse{
		AudioData: resp.AudioContent,
		Format:    speechmodel.FormatMP3,
		Voice:     req.Voice,
		Elapsed:   time.Since(start),
	}, nil
}

// Close 关闭底层 gRPC 连接。
func (g *GoogleSynthesizer) Close() error {
	return g.client.Close()
}

func buildSynthesizeRequest(req *speechmodel.TTSRequest) *texttospeechpb.SynthesizeSpeechRequest {
	audio := &texttospeechpb.AudioConfig{
		AudioEncoding: texttospeechpb.AudioEncoding_MP3,
	}
	if req.Rate != 0 {
		audio.SpeakingRate = req.Rate
	}
	if req.Pitch != 0 {
		audio.Pitch = req.Pitch
	}

	return &texttospeechpb.SynthesizeSpeechRequest{
		Input: &texttospeechpb.SynthesisInput{
			InputSource: &texttospeechpb.SynthesisInput_Text{Text: req.Text},
		},
		Voice: &texttospeechpb.VoiceSelectionParams{
			LanguageCode: req.LanguageCode,
			Name:         req.Voice,
		},
		AudioConfig: audio,
	}
}
