package closing

import (
	"strings"

	"github.com/zhouzirui/telesales-sim/backend/internal/model/chat"
)

// Outcome is the heuristic verdict on whether the customer agreed to buy.
type Outcome struct {
	Closed  bool
	Score   int
	Matched []string
}

var agreeKeywords = []string{
	"ตกลง", "โอเค", "สมัครเลย", "สมัครได้", "เอาเลย", "ส่งใบสมัคร", "ส่งเอกสารมา", "ยืนยัน",
	"เอาแผนนี้", "รับแผนนี้", "ซื้อเลย", "จ่ายเลย", "ตัดบัตร", "ได้เลย",
	"deal", "i'll take it", "sign me up", "let's do it", "agreed",
}

var refuseKeywords = []string{
	"ไม่สนใจ", "ไม่เอา", "ไม่สะดวก", "ไว้ก่อน", "ขอคิดดูก่อน", "วางสาย", "ไม่ต้องโทรมา",
	"ยังไม่พร้อม", "แพงไป", "ไม่ซื้อ",
	"not interested", "no thanks", "call me later", "too expensive",
}

// Detect scores the customer's lines (everything not spoken by staff).
// Later lines weigh more, so a final "ตกลง" outweighs an early refusal.
func Detect(history chat.Transcript) Outcome {
	var customerLines []string
	for _, line := range history {
		speaker, text := chat.Speaker(line)
		if speaker == chat.StaffSpeaker || text == "" {
			continue
		}
		customerLines = append(customerLines, strings.ToLower(text))
	}
	if len(customerLines) == 0 {
		return Outcome{}
	}

	outcome := Outcome{}
	for i, text := range customerLines {
		weight := 1
		if i >= len(customerLines)-2 {
			weight = 3
		}
		for _, word := range agreeKeywords {
			if containsAffirmative(text, word) {
				outcome.Score += weight
				outcome.Matched = append(outcome.Matched, word)
			}
		}
		for _, word := range refuseKeywords {
			if strings.Contains(text, word) {
				outcome.Score -= weight
				outcome.Matched = append(outcome.Matched, "-"+word)
			}
		}
	}

	outcome.Closed = outcome.Score > 0
	return outcome
}

// negationWindow bounds how far before a keyword a negation still applies.
const negationWindow = 16

var (
	thaiNegations    = []string{"ไม่", "อย่าเพิ่ง"}
	englishNegations = []string{" not ", "n't ", " no "}
)

// containsAffirmative rejects matches negated earlier in the same clause
// ("ไม่ตกลง", "ยังไม่ได้ตกลง", "not agreed").
func containsAffirmative(text, word string) bool {
	idx := strings.Index(text, word)
	for idx >= 0 {
		if !negated(text[:idx]) {
			return true
		}
		next := strings.Index(text[idx+len(word):], word)
		if next < 0 {
			return false
		}
		idx += len(word) + next
	}
	return false
}

// negated looks at the clause leading up to a keyword. Thai clauses end at a
// space; English ones only at punctuation.
func negated(before string) bool {
	if cut := strings.LastIndexAny(before, ",.!?;\n"); cut >= 0 {
		before = before[cut+1:]
	}
	runes := []rune(before)
	if len(runes) > negationWindow {
		runes = runes[len(runes)-negationWindow:]
	}
	window := string(runes)

	thai := window
	if cut := strings.LastIndex(thai, " "); cut >= 0 {
		thai = thai[cut+1:]
	}
	for _, marker := range thaiNegations {
		if strings.Contains(thai, marker) {
			return true
		}
	}

	padded := " " + window
	for _, marker := range englishNegations {
		if strings.Contains(padded, marker) {
			return true
		}
	}
	return false
}
