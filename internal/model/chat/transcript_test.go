package chat

import (
	"encoding/json"
	"testing"
)

func TestTranscriptAcceptsArray(t *testing.T) {
	var req ChatRequest
	payload := `{"message":"สวัสดีครับ","lvl":"2","history":["พนักงาน: สวัสดี", "  ", "คุณวิรัช: ครับ"]}`
	if err := json.Unmarshal([]byte(payload), &req); err != nil {
		t.Fatalf("Unmarshal err: %v", err)
	}
	if req.Level != "2" {
		t.Fatalf("unexpected lvl %s", req.Level)
	}
	if len(req.History) != 2 {
		t.Fatalf("expected blank line dropped, got %v", req.History)
	}
}

func TestTranscriptAcceptsJoinedString(t *testing.T) {
	var req EvaluateRequest
	payload := `{"history":"พนักงาน: สวัสดีค่ะ\nคุณวีณา: สวัสดีค่ะ\n"}`
	if err := json.Unmarshal([]byte(payload), &req); err != nil {
		t.Fatalf("Unmarshal err: %v", err)
	}
	if len(req.History) != 2 || req.History[1] != "คุณวีณา: สวัสดีค่ะ" {
		t.Fatalf("unexpected history %v", req.History)
	}
}

func TestTranscriptNullAndMissing(t *testing.T) {
	var req ChatRequest
	if err := json.Unmarshal([]byte(`{"message":"x","history":null}`), &req); err != nil {
		t.Fatalf("Unmarshal err: %v", err)
	}
	if req.History != nil {
		t.Fatalf("expected nil history, got %v", req.History)
	}
}

func TestTranscriptRejectsOtherShapes(t *testing.T) {
	for _, payload := range []string{`{"history":42}`, `{"history":[1,2]}`, `{"history":{"a":"b"}}`} {
		var req ChatRequest
		if err := json.Unmarshal([]byte(payload), &req); err == nil {
			t.Fatalf("expected error for %s", payload)
		}
	}
}

func TestTranscriptTailAndString(t *testing.T) {
	tr := Transcript{"a: 1", "b: 2", "a: 3"}
	if got := tr.Tail(2); len(got) != 2 || got[0] != "b: 2" {
		t.Fatalf("unexpected tail %v", got)
	}
	if got := tr.Tail(0); len(got) != 3 {
		t.Fatalf("Tail(0) should keep everything, got %v", got)
	}
	if tr.String() != "a: 1\nb: 2\na: 3" {
		t.Fatalf("unexpected join %q", tr.String())
	}
}

func TestLineAndSpeaker(t *testing.T) {
	line := Line(StaffSpeaker, "  สวัสดีครับ ")
	if line != "พนักงาน: สวัสดีครับ" {
		t.Fatalf("unexpected line %q", line)
	}

	speaker, text := Speaker(line)
	if speaker != StaffSpeaker || text != "สวัสดีครับ" {
		t.Fatalf("unexpected split %q / %q", speaker, text)
	}

	speaker, text = Speaker("no separator here")
	if speaker != "" || text != "no separator here" {
		t.Fatalf("unexpected split %q / %q", speaker, text)
	}
}

func TestChatResponseAudioNull(t *testing.T) {
	raw, err := json.Marshal(ChatResponse{Reply: "ok"})
	if err != nil {
		t.Fatalf("Marshal err: %v", err)
	}
	if string(raw) != `{"reply":"ok","audio":null}` {
		t.Fatalf("unexpected json %s", raw)
	}
}
