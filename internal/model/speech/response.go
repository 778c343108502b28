package speech

import "time"

// Format 音频编码格式
type Format string

const FormatMP3 Format = "mp3"

// TTSResponse 语音合成响应
type TTSResponse struct {
	AudioData []byte        `json:"-"`
	Format    Format        `json:"format"`
	Voice     string        `json:"voice"`
	Elapsed   time.Duration `json:"elapsed"`
}
