package speech

// TTSRequest 语音合成请求
type TTSRequest struct {
	Text         string  `json:"text"`
	Voice        string  `json:"voice"`        // 声音名称，如 th-TH-Neural2-C
	LanguageCode string  `json:"languageCode"` // th-TH 等
	Pitch        float64 `json:"pitch"`        // 半音，-20 到 20
	Rate         float64 `json:"rate"`         // 语速倍率 0.25-4.0
}
