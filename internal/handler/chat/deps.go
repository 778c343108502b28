package chat

import (
	"context"
	"strings"

	"github.com/cloudwego/eino/schema"

	"github.com/zhouzirui/telesales-sim/backend/internal/model/chat"
	"github.com/zhouzirui/telesales-sim/backend/internal/model/persona"
	"github.com/zhouzirui/telesales-sim/backend/internal/service/evaluation"
)

// Replier produces the customer's next line.
type Replier interface {
	Reply(ctx context.Context, p *persona.Persona, history chat.Transcript, message string) (string, error)
	StreamReply(ctx context.Context, p *persona.Persona, history chat.Transcript, message string) (*schema.StreamReader[*schema.Message], context.CancelFunc, error)
}

// Evaluator scores a finished call.
type Evaluator interface {
	Evaluate(ctx context.Context, p *persona.Persona, history chat.Transcript) (evaluation.Result, error)
}

// Voice turns a reply into base64 MP3, or nil when audio is unavailable.
type Voice interface {
	AudioBase64(ctx context.Context, text string, voice persona.VoiceProfile) *string
}

// Deps 聚合对话相关处理器依赖的服务。Replier 与 Evaluator 为 nil 表示未配置大模型。
type Deps struct {
	Personas       persona.Store
	DefaultPersona string
	Replier        Replier
	Evaluator      Evaluator
	Voice          Voice
}

// ResolvePersona maps the page's lvl to a persona; an empty lvl selects the default.
func (d Deps) ResolvePersona(lvl string) (*persona.Persona, error) {
	id := strings.TrimSpace(lvl)
	if id == "" {
		id = d.DefaultPersona
	}
	p, ok := d.Personas.FindByID(id)
	if !ok {
		return nil, persona.ErrNotFound
	}
	return &p, nil
}

// Speak returns nil when no voice service is configured.
func (d Deps) Speak(ctx context.Context, text string, p *persona.Persona) *string {
	if d.Voice == nil {
		return nil
	}
	return d.Voice.AudioBase64(ctx, text, p.Voice)
}

// Apology is the in-character line shown when generation fails.
func Apology(p *persona.Persona) string {
	if p != nil && p.Gender == "male" {
		return "ขอโทษครับ สัญญาณไม่ค่อยดี ช่วยพูดอีกครั้งได้ไหมครับ"
	}
	return "ขอโทษค่ะ สัญญาณไม่ค่อยดี ช่วยพูดอีกครั้งได้ไหมคะ"
}
