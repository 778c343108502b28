package evaluation

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/cloudwego/eino/components/model"
	"github.com/cloudwego/eino/components/prompt"
	"github.com/cloudwego/eino/compose"
	"github.com/cloudwego/eino/schema"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"

	"github.com/zhouzirui/telesales-sim/backend/internal/analysis/closing"
	"github.com/zhouzirui/telesales-sim/backend/internal/model/chat"
	"github.com/zhouzirui/telesales-sim/backend/internal/model/persona"
	"github.com/zhouzirui/telesales-sim/backend/internal/observability"
)

// ErrEmptyTranscript is returned when there is nothing to evaluate.
var ErrEmptyTranscript = errors.New("history is empty")

// Criteria are the rubric items the coach scores out of 10.
var Criteria = []string{"Emotion", "Tone", "Sentence Structure", "Health Questioning"}

// Result is the coach's verdict on one call.
type Result struct {
	Text     string
	IsClosed bool
	Scores   map[string]int
	// Source is "coach" when the closing marker came from the model and
	// "heuristic" when the keyword analyzer decided.
	Source string
}

// Config controls the evaluation service.
type Config struct {
	Timeout time.Duration
}

// Service scores a finished call with the chat model.
type Service struct {
	coach   compose.Runnable[map[string]any, *schema.Message]
	timeout time.Duration
}

// NewService compiles the coach chain on top of an existing chat model.
func NewService(ctx context.Context, chatModel model.ChatModel, cfg Config) (*Service, error) {
	if chatModel == nil {
		return nil, errors.New("chat model is required")
	}

	promptTemplate := prompt.FromMessages(
		schema.FString,
		schema.SystemMessage(coachSystemPrompt),
		schema.UserMessage(coachUserPrompt),
	)

	chain := compose.NewChain[map[string]any, *schema.Message]()
	chain.AppendChatTemplate(promptTemplate)
	chain.AppendChatModel(chatModel)

	runnable, err := chain.Compile(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to compile evaluation chain: %w", err)
	}

	return &Service{coach: runnable, timeout: cfg.Timeout}, nil
}

// Evaluate asks the coach to score the transcript. p may be nil when the
// page did not say which customer was played.
func (s *Service) Evaluate(ctx context.Context, p *persona.Persona, history chat.Transcript) (Result, error) {
	if len(history) == 0 {
		return Result{}, ErrEmptyTranscript
	}

	ctx, span := observability.Tracer().Start(ctx, "evaluation.Evaluate")
	defer span.End()
	span.SetAttributes(attribute.Int("history.lines", len(history)))

	if s.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.timeout)
		defer cancel()
	}

	msg, err := s.coach.Invoke(ctx, map[string]any{
		"customer":   summarizePersona(p),
		"transcript": history.String(),
	})
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "coach failed")
		return Result{}, fmt.Errorf("failed to run evaluation chain: %w", err)
	}

	text := strings.TrimSpace(msg.Content)
	if text == "" {
		return Result{}, errors.New("coach returned an empty evaluation")
	}

	result := ParseEvaluation(text)
	if result.Source == "" {
		outcome := closing.Detect(history)
		result.IsClosed = outcome.Closed
		result.Source = "heuristic"
		slog.InfoContext(ctx, "closing marker missing, used keyword heuristic",
			slog.Int("score", outcome.Score),
			slog.Bool("closed", outcome.Closed),
		)
	}

	span.SetAttributes(attribute.Bool("sale.closed", result.IsClosed))
	return result, nil
}

var (
	closedMarker = regexp.MustCompile(`(?im)^\s*\**\s*CLOSED\s*\**\s*[:：]\s*\**\s*(YES|NO)[\s*.。!]*$`)
	scoreLine    = regexp.MustCompile(`(?i)(emotion|tone|sentence structure|health questioning)[^0-9\n]{0,40}?(\d{1,2}(?:\.\d+)?)\s*/\s*10`)
)

// ParseEvaluation strips the CLOSED marker line and extracts rubric scores.
// Fractional scores are rounded half away from zero.
// Source stays empty when no marker was found.
func ParseEvaluation(text string) Result {
	result := Result{Scores: map[string]int{}}

	if matches := closedMarker.FindAllStringSubmatch(text, -1); len(matches) > 0 {
		last := matches[len(matches)-1]
		result.IsClosed = strings.EqualFold(last[1], "YES")
		result.Source = "coach"
		text = closedMarker.ReplaceAllString(text, "")
	}

	for _, m := range scoreLine.FindAllStringSubmatch(text, -1) {
		raw, err := strconv.ParseFloat(m[2], 64)
		if err != nil || raw > 10 {
			continue
		}
		score := int(math.Round(raw))
		name := canonicalCriterion(m[1])
		if _, seen := result.Scores[name]; !seen {
			result.Scores[name] = score
		}
	}
	if len(result.Scores) == 0 {
		result.Scores = nil
	}

	result.Text = strings.TrimSpace(text)
	return result
}

func canonicalCriterion(raw string) string {
	for _, c := range Criteria {
		if strings.EqualFold(c, strings.TrimSpace(raw)) {
			return c
		}
	}
	return raw
}

func summarizePersona(p *persona.Persona) string {
	if p == nil {
		return "ไม่ระบุ"
	}
	parts := []string{p.Name}
	if p.Description != "" {
		parts = append(parts, p.Description)
	}
	return strings.Join(parts, " | ")
}

const coachSystemPrompt = "คุณคือโค้ชสอนการขายประกัน (Sales Coach) ที่ประเมินบทสนทนาทางโทรศัพท์ระหว่างพนักงานขายกับลูกค้า\n" +
	"โปรดประเมินตามเกณฑ์:\n" +
	"1. Emotion (การรับรู้อารมณ์ลูกค้า)\n" +
	"2. Tone (ความสุภาพและน้ำเสียง)\n" +
	"3. Sentence Structure (การเลือกใช้รูปประโยค)\n" +
	"4. Health Questioning (การถามถึงสุขภาพและความต้องการ)\n" +
	"ให้คะแนนแต่ละข้อในรูปแบบ 'ชื่อเกณฑ์: X/10' พร้อมเหตุผลสั้น ๆ แล้วสรุปข้อควรปรับปรุง\n" +
	"บรรทัดสุดท้ายต้องเป็น 'CLOSED: YES' ถ้าลูกค้าตกลงซื้อหรือสมัครแล้ว หรือ 'CLOSED: NO' ถ้ายังไม่ตกลง"

const coachUserPrompt = "ลูกค้าในการฝึกครั้งนี้: {customer}\n\nบทสนทนา:\n{transcript}"
