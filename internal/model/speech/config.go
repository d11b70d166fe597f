package speech

import "time"

// SpeechConfig 语音服务配置
type SpeechConfig struct {
	BaseURL     string `json:"baseUrl"`          // 服务地址，例如 https://api.platform.krd/v1
	AccessToken string `json:"accessToken"`      // Bearer 凭证
	APIKey      string `json:"apiKey,omitempty"` // 兼容旧配置的 API Key

	// TTS 配置
	TTSModel   string  `json:"ttsModel"`
	Voice      string  `json:"voice"`
	Speed      float32 `json:"speed"`
	SampleRate int     `json:"sampleRate"`

	// ASR 配置
	ASRModel string `json:"asrModel"`

	// 通用配置
	Language string `json:"language"` // ckb
	Timeout  int    `json:"timeout"`  // seconds
}

// RequestTimeout 返回单次请求超时时间，未配置时为30秒。
func (c *SpeechConfig) RequestTimeout() time.Duration {
	if c == nil || c.Timeout <= 0 {
		return 30 * time.Second
	}
	return time.Duration(c.Timeout) * time.Second
}
