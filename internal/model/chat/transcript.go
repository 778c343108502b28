package chat

import (
	"bytes"
	"encoding/json"
	"errors"
	"strings"
)

// StaffSpeaker labels lines spoken by the trainee.
const StaffSpeaker = "พนักงาน"

// Transcript is the client-held list of "speaker: text" lines.
//
// The browser sends it either as a JSON array or, in older pages, as a single
// newline-joined string; both decode to the same value.
type Transcript []string

// UnmarshalJSON accepts an array of strings, a newline-joined string or null.
func (t *Transcript) UnmarshalJSON(data []byte) error {
	trimmed := bytes.TrimSpace(data)
	if len(trimmed) == 0 || bytes.Equal(trimmed, []byte("null")) {
		*t = nil
		return nil
	}

	switch trimmed[0] {
	case '"':
		var joined string
		if err := json.Unmarshal(trimmed, &joined); err != nil {
			return err
		}
		*t = normalize(strings.Split(joined, "\n"))
		return nil
	case '[':
		var lines []string
		if err := json.Unmarshal(trimmed, &lines); err != nil {
			return errors.New("history must be a list of strings")
		}
		*t = normalize(lines)
		return nil
	default:
		return errors.New("history must be a string or a list of strings")
	}
}

func normalize(lines []string) Transcript {
	out := make(Transcript, 0, len(lines))
	for _, line := range lines {
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}
		out = append(out, line)
	}
	return out
}

// Line formats a single transcript entry.
func Line(speaker, text string) string {
	return strings.TrimSpace(speaker) + ": " + strings.TrimSpace(text)
}

// Tail keeps the most recent n lines. n <= 0 returns the transcript unchanged.
func (t Transcript) Tail(n int) Transcript {
	if n <= 0 || len(t) <= n {
		return t
	}
	return t[len(t)-n:]
}

// String joins lines with newlines, the form used inside prompts.
func (t Transcript) String() string {
	return strings.Join(t, "\n")
}

// Speaker splits a line into speaker and text. Lines without a separator
// have an empty speaker.
func Speaker(line string) (speaker, text string) {
	idx := strings.Index(line, ":")
	if idx <= 0 {
		return "", strings.TrimSpace(line)
	}
	return strings.TrimSpace(line[:idx]), strings.TrimSpace(line[idx+1:])
}
