package speech

// TranscriptionRequest 语音识别请求
type TranscriptionRequest struct {
	Audio    []byte `json:"-"`
	Filename string `json:"filename"` // 上传时的文件名，默认 audio.wav
	Language string `json:"language"` // 留空使用配置语言
}

// SynthesisRequest 语音合成请求
type SynthesisRequest struct {
	Text     string  `json:"text"`
	Voice    string  `json:"voice,omitempty"`    // 留空使用配置声音
	Language string  `json:"language,omitempty"` // 留空使用配置语言
	Speed    float32 `json:"speed,omitempty"`    // 语速倍率
}

// SynthesisPayload 是发送给语音服务的JSON请求体。
type SynthesisPayload struct {
	Model          string  `json:"model"`
	Input          string  `json:"input"`
	Language       string  `json:"language"`
	Voice          string  `json:"voice"`
	ResponseFormat string  `json:"response_format"`
	Speed          float32 `json:"speed"`
	SampleRate     int     `json:"sample_rate"`
}
