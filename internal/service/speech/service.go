package speech

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"strings"
	"time"

	"github.com/halwest-tech/kurdish-chat/backend/internal/model/speech"
)

const (
	defaultBaseURL   = "https://api.platform.krd/v1"
	defaultTTSModel  = "tts-mini-exp"
	defaultASRModel  = "asr-large-beta"
	defaultLanguage  = "ckb"
	defaultVoice     = "default"
	defaultFilename  = "audio.wav"
	maxAudioResponse = 50 << 20
)

// ErrAudioTooLarge 表示合成音频超过允许的大小，不会截断返回。
var ErrAudioTooLarge = errors.New("synthesized audio too large")

// StatusError 表示语音服务返回了非 2xx 状态码。
type StatusError struct {
	Operation  string
	StatusCode int
	Body       string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("speech %s failed with status %d: %s", e.Operation, e.StatusCode, e.Body)
}

// Service 语音服务客户端，负责文字转语音与语音转文字。
type Service struct {
	config   *speech.SpeechConfig
	client   *http.Client
	maxAudio int64
}

// NewService 创建语音服务实例，空字段使用默认值。
func NewService(config *speech.SpeechConfig) *Service {
	cfg := speech.SpeechConfig{}
	if config != nil {
		cfg = *config
	}
	cfg.BaseURL = strings.TrimRight(strings.TrimSpace(cfg.BaseURL), "/")
	if cfg.BaseURL == "" {
		cfg.BaseURL = defaultBaseURL
	}
	if cfg.TTSModel == "" {
		cfg.TTSModel = defaultTTSModel
	}
	if cfg.ASRModel == "" {
		cfg.ASRModel = defaultASRModel
	}
	if cfg.Language == "" {
		cfg.Language = defaultLanguage
	}
	if cfg.Voice == "" {
		cfg.Voice = defaultVoice
	}
	if cfg.Speed <= 0 {
		cfg.Speed = 1.0
	}
	if cfg.SampleRate <= 0 {
		cfg.SampleRate = 16000
	}

	return &Service{
		config: &cfg,
		client:   &http.Client{Timeout: cfg.RequestTimeout()},
		maxAudio: maxAudioResponse,
	}
}

// Enabled 表示凭证是否齐全。
func (s *Service) Enabled() bool {
	if s == nil {
		return false
	}
	_, err := resolveCredentials(s.config)
	return err == nil
}

// Synthesize 文字转语音，返回 WAV 音频。
func (s *Service) Synthesize(ctx context.Context, req *speech.SynthesisRequest) (*speech.SynthesisResponse, error) {
	token, err := resolveCredentials(s.config)
	if err != nil {
		return nil, err
	}
	if req == nil || strings.TrimSpace(req.Text) == "" {
		return nil, fmt.Errorf("synthesis text is required")
	}

	payload := speech.SynthesisPayload{
		Model:          s.config.TTSModel,
		Input:          req.Text,
		Language:       firstNonEmpty(req.Language, s.config.Language),
		Voice:          firstNonEmpty(req.Voice, s.config.Voice),
		ResponseFormat: "wav",
		Speed:          s.config.Speed,
		SampleRate:     s.config.SampleRate,
	}
	if req.Speed > 0 {
		payload.Speed = req.Speed
	}

	body, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("encode synthesis request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, s.config.BaseURL+"/audio/speech", bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("build synthesis request: %w", err)
	}
	httpReq.Header.Set("Authorization", "Bearer "+token)
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("Accept", "audio/wav")

	resp, err := s.client.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("synthesis request failed: %w", err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(io.LimitReader(resp.Body, s.maxAudio+1))
	if err != nil {
		return nil, fmt.Errorf("read synthesis response: %w", err)
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, &StatusError{Operation: "synthesis", StatusCode: resp.StatusCode, Body: truncate(data)}
	}
	if int64(len(data)) > s.maxAudio {
		return nil, fmt.Errorf("%w: exceeds %d bytes", ErrAudioTooLarge, s.maxAudio)
	}

	contentType := resp.Header.Get("Content-Type")
	if contentType == "" {
		contentType = "audio/wav"
	}

	return &speech.SynthesisResponse{
		AudioData:   data,
		ContentType: contentType,
		Format:      "wav",
		CreatedAt:   time.Now(),
	}, nil
}

// Transcribe 语音转文字，以 multipart 表单上传录音。文本为空时由调用方决定如何处理。
func (s *Service) Transcribe(ctx context.Context, req *speech.TranscriptionRequest) (*speech.TranscriptionResponse, error) {
	token, err := resolveCredentials(s.config)
	if err != nil {
		return nil, err
	}
	if req == nil || len(req.Audio) == 0 {
		return nil, fmt.Errorf("audio data is required")
	}

	var body bytes.Buffer
	writer := multipart.NewWriter(&body)

	part, err := writer.CreateFormFile("file", firstNonEmpty(req.Filename, defaultFilename))
	if err != nil {
		return nil, fmt.Errorf("create form file: %w", err)
	}
	if _, err := part.Write(req.Audio); err != nil {
		return nil, fmt.Errorf("write audio: %w", err)
	}
	fields := [][2]string{
		{"model", s.config.ASRModel},
		{"response_format", "json"},
		{"language", firstNonEmpty(req.Language, s.config.Language)},
	}
	for _, f := range fields {
		if err := writer.WriteField(f[0], f[1]); err != nil {
			return nil, fmt.Errorf("write field %s: %w", f[0], err)
		}
	}
	if err := writer.Close(); err != nil {
		return nil, fmt.Errorf("close multipart writer: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, s.config.BaseURL+"/audio/transcriptions", &body)
	if err != nil {
		return nil, fmt.Errorf("build transcription request: %w", err)
	}
	httpReq.Header.Set("Authorization", "Bearer "+token)
	httpReq.Header.Set("Content-Type", writer.FormDataContentType())

	resp, err := s.client.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("transcription request failed: %w", err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return nil, fmt.Errorf("read transcription response: %w", err)
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, &StatusError{Operation: "transcription", StatusCode: resp.StatusCode, Body: truncate(data)}
	}

	var out struct {
		Text string `json:"text"`
	}
	if err := json.Unmarshal(data, &out); err != nil {
		return nil, fmt.Errorf("decode transcription response: %w", err)
	}

	return &speech.TranscriptionResponse{Text: out.Text, CreatedAt: time.Now()}, nil
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if strings.TrimSpace(v) != "" {
			return v
		}
	}
	return ""
}

func truncate(data []byte) string {
	s := strings.TrimSpace(string(data))
	if len(s) > 512 {
		return s[:512]
	}
	return s
}
