package speech

import "time"

// TranscriptionResponse 语音识别响应。Text 为空表示服务端没有给出识别结果。
type TranscriptionResponse struct {
	Text      string    `json:"text"`
	CreatedAt time.Time `json:"createdAt"`
}

// SynthesisResponse 语音合成响应
type SynthesisResponse struct {
	AudioData   []byte    `json:"-"`
	ContentType string    `json:"contentType"`
	Format      string    `json:"format"`
	CreatedAt   time.Time `json:"createdAt"`
}
