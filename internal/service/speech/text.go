package speech

import (
	"regexp"
	"strings"
	"unicode"
	"unicode/utf8"
)

// MaxInputBytes is the Cloud TTS limit for a single text input.
const MaxInputBytes = 5000

var (
	markdownSymbols = regexp.MustCompile("[*#_~`]+")
	stageDirections = regexp.MustCompile(`\([^()]*\)|\[[^\[\]]*\]|（[^（）]*）`)
	whitespace      = regexp.MustCompile(`\s+`)
)

// CleanText prepares a reply for speech. Bracketed stage directions (nested
// ones innermost first) and emoji are removed along with markdown symbols.
// Whitespace is collapsed and the result cut to MaxInputBytes on a rune boundary.
func CleanText(text string) string {
	for {
		stripped := stageDirections.ReplaceAllString(text, " ")
		if stripped == text {
			break
		}
		text = stripped
	}
	text = markdownSymbols.ReplaceAllString(text, "")
	text = strings.Map(func(r rune) rune {
		if isEmoji(r) {
			return -1
		}
		return r
	}, text)
	text = strings.TrimSpace(whitespace.ReplaceAllString(text, " "))
	return truncateBytes(text, MaxInputBytes)
}

func isEmoji(r rune) bool {
	switch {
	case r >= 0x1F000 && r <= 0x1FAFF:
		return true
	case r >= 0x2600 && r <= 0x27BF:
		return true
	case r == 0xFE0F || r == 0x200D:
		return true
	}
	return unicode.Is(unicode.So, r) && r > 0x2000
}

func truncateBytes(text string, limit int) string {
	if len(text) <= limit {
		return text
	}
	cut := limit
	for cut > 0 && !utf8.RuneStart(text[cut]) {
		cut--
	}
	return text[:cut]
}
