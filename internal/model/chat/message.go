package chat

// ChatRequest is one trainee turn sent from the page.
type ChatRequest struct {
	Message string     `json:"message"`
	Level   string     `json:"lvl"`
	History Transcript `json:"history"`
}

// ChatResponse carries the customer's reply and optional base64 MP3 audio.
// Audio is always serialised, as null when synthesis was skipped or failed.
type ChatResponse struct {
	Reply string  `json:"reply"`
	Audio *string `json:"audio"`
	Error string  `json:"error,omitempty"`
}

// EvaluateRequest asks the coach to score a finished call.
type EvaluateRequest struct {
	History Transcript `json:"history"`
	Level   string     `json:"lvl,omitempty"`
}

// EvaluateResponse is the coach verdict.
type EvaluateResponse struct {
	Evaluation string         `json:"evaluation"`
	IsClosed   bool           `json:"is_closed"`
	Scores     map[string]int `json:"scores,omitempty"`
}
