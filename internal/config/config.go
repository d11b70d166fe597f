package config

import (
	"context"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/cloudwego/eino-ext/components/model/ark"
	"github.com/cloudwego/eino/components/model"

	speechModel "github.com/halwest-tech/kurdish-chat/backend/internal/model/speech"
)

// Config 聚合整个服务的配置项。
type Config struct {
	Server   ServerConfig
	Log      LogConfig
	Identity IdentityConfig
	Profile  ProfileConfig
	Chat     ChatConfig
	AI       AIConfig
	Speech   SpeechConfig
}

// Load 从环境变量加载配置。
func Load() (*Config, error) {
	server, err := loadServerConfig()
	if err != nil {
		return nil, err
	}

	logCfg, err := loadLogConfig()
	if err != nil {
		return nil, err
	}

	identity, err := loadIdentityConfig()
	if err != nil {
		return nil, err
	}

	profile, err := loadProfileConfig()
	if err != nil {
		return nil, err
	}

	chat, err := loadChatConfig()
	if err != nil {
		return nil, err
	}

	ai, err := loadAIConfig()
	if err != nil {
		return nil, err
	}

	speech, err := loadSpeechConfig()
	if err != nil {
		return nil, err
	}

	return &Config{
		Server:   server,
		Log:      logCfg,
		Identity: identity,
		Profile:  profile,
		Chat:     chat,
		AI:       ai,
		Speech:   speech,
	}, nil
}

// ServerConfig 描述 HTTP 服务配置。
type ServerConfig struct {
	Addr           string
	AllowedOrigins []string
}

// loadServerConfig 解析服务器监听地址。
func loadServerConfig() (ServerConfig, error) {
	port := strings.TrimSpace(os.Getenv("PORT"))
	if port == "" {
		port = "3001"
	}

	origins := parseListEnv("CORS_ALLOWED_ORIGINS")

	if strings.Contains(port, ":") {
		// 允许用户直接传入 ":3001" 或 "127.0.0.1:3001"。
		return ServerConfig{Addr: port, AllowedOrigins: origins}, nil
	}

	if strings.Contains(port, " ") {
		return ServerConfig{}, fmt.Errorf("invalid PORT value: %q", port)
	}

	return ServerConfig{Addr: ":" + port, AllowedOrigins: origins}, nil
}

// parseListEnv 解析逗号分隔的列表，忽略空项。
func parseListEnv(key string) []string {
	raw := strings.TrimSpace(os.Getenv(key))
	if raw == "" {
		return nil
	}
	var out []string
	for _, item := range strings.Split(raw, ",") {
		if item = strings.TrimSpace(item); item != "" {
			out = append(out, item)
		}
	}
	return out
}

// LogConfig 日志输出配置。
type LogConfig struct {
	Level      string
	File       string
	Console    bool
	MaxSizeMB  int
	MaxBackups int
	MaxAgeDays int
}

func loadLogConfig() (LogConfig, error) {
	console, err := parseBoolEnv("LOG_CONSOLE", true)
	if err != nil {
		return LogConfig{}, err
	}

	cfg := LogConfig{
		Level:      getEnvOrDefault("LOG_LEVEL", "info"),
		File:       strings.TrimSpace(os.Getenv("LOG_FILE")),
		Console:    console,
		MaxSizeMB:  100,
		MaxBackups: 3,
		MaxAgeDays: 30,
	}

	if v, err := parseOptionalIntEnv("LOG_MAX_SIZE_MB"); err != nil {
		return LogConfig{}, err
	} else if v != nil {
		cfg.MaxSizeMB = *v
	}
	if v, err := parseOptionalIntEnv("LOG_MAX_BACKUPS"); err != nil {
		return LogConfig{}, err
	} else if v != nil {
		cfg.MaxBackups = *v
	}
	if v, err := parseOptionalIntEnv("LOG_MAX_AGE_DAYS"); err != nil {
		return LogConfig{}, err
	} else if v != nil {
		cfg.MaxAgeDays = *v
	}

	return cfg, nil
}

// 身份服务提供方。
const (
	IdentityFirebase = "firebase"
	IdentityLocal    = "local"
)

// IdentityConfig 描述身份认证服务以及登录重试策略。
type IdentityConfig struct {
	Provider        string
	FirebaseAPIKey  string
	FirebaseBaseURL string
	Timeout         time.Duration
	JWTSecret       string
	TokenTTL        time.Duration
	MaxRetries      int
	RetryDelay      time.Duration
}

func loadIdentityConfig() (IdentityConfig, error) {
	apiKey := strings.TrimSpace(os.Getenv("FIREBASE_API_KEY"))

	provider := strings.ToLower(getEnvOrDefault("IDENTITY_PROVIDER", ""))
	if provider == "" {
		// 没有 Firebase 凭证时退回本地账号，方便开发调试。
		provider = IdentityLocal
		if apiKey != "" {
			provider = IdentityFirebase
		}
	}
	if provider != IdentityFirebase && provider != IdentityLocal {
		return IdentityConfig{}, fmt.Errorf("invalid IDENTITY_PROVIDER value %q", provider)
	}
	if provider == IdentityFirebase && apiKey == "" {
		return IdentityConfig{}, fmt.Errorf("FIREBASE_API_KEY is required for the firebase identity provider")
	}

	timeout, err := parseDurationEnv("IDENTITY_TIMEOUT", 10*time.Second)
	if err != nil {
		return IdentityConfig{}, err
	}

	ttl, err := parseDurationEnv("IDENTITY_TOKEN_TTL", 7*24*time.Hour)
	if err != nil {
		return IdentityConfig{}, err
	}

	retryDelay, err := parseDurationEnv("AUTH_RETRY_DELAY", time.Second)
	if err != nil {
		return IdentityConfig{}, err
	}

	maxRetries := 3
	if v, err := parseOptionalIntEnv("AUTH_MAX_RETRIES"); err != nil {
		return IdentityConfig{}, err
	} else if v != nil {
		if *v < 0 {
			return IdentityConfig{}, fmt.Errorf("invalid AUTH_MAX_RETRIES value %d", *v)
		}
		maxRetries = *v
	}

	return IdentityConfig{
		Provider:        provider,
		FirebaseAPIKey:  apiKey,
		FirebaseBaseURL: getEnvOrDefault("FIREBASE_AUTH_BASE_URL", "https://identitytoolkit.googleapis.com/v1"),
		Timeout:         timeout,
		JWTSecret:       getEnvOrDefault("IDENTITY_JWT_SECRET", "kurdish-chat-dev-secret"),
		TokenTTL:        ttl,
		MaxRetries:      maxRetries,
		RetryDelay:      retryDelay,
	}, nil
}

// 资料存储后端。
const (
	ProfileMemory = "memory"
	ProfileMongo  = "mongo"
	ProfileMySQL  = "mysql"
)

// ProfileConfig 描述用户资料存储。
type ProfileConfig struct {
	Store         string
	MongoURI      string
	MongoDatabase string
	MySQLDSN      string
}

func loadProfileConfig() (ProfileConfig, error) {
	cfg := ProfileConfig{
		Store:         strings.ToLower(getEnvOrDefault("PROFILE_STORE", ProfileMemory)),
		MongoURI:      strings.TrimSpace(os.Getenv("MONGODB_URI")),
		MongoDatabase: getEnvOrDefault("MONGODB_DATABASE", "kurdishChat"),
		MySQLDSN:      strings.TrimSpace(os.Getenv("MYSQL_DSN")),
	}

	switch cfg.Store {
	case ProfileMemory:
	case ProfileMongo:
		if cfg.MongoURI == "" {
			return ProfileConfig{}, fmt.Errorf("MONGODB_URI is required for the mongo profile store")
		}
	case ProfileMySQL:
		if cfg.MySQLDSN == "" {
			return ProfileConfig{}, fmt.Errorf("MYSQL_DSN is required for the mysql profile store")
		}
	default:
		return ProfileConfig{}, fmt.Errorf("invalid PROFILE_STORE value %q", cfg.Store)
	}

	return cfg, nil
}

// ChatConfig 描述外部聊天后端。
type ChatConfig struct {
	Endpoint   string
	TelegramID string
	Timeout    time.Duration
}

// Enabled 表示是否配置了聊天后端地址。
func (c ChatConfig) Enabled() bool {
	return c.Endpoint != ""
}

func loadChatConfig() (ChatConfig, error) {
	timeout, err := parseDurationEnv("CHAT_TIMEOUT", 60*time.Second)
	if err != nil {
		return ChatConfig{}, err
	}

	return ChatConfig{
		Endpoint:   strings.TrimSpace(os.Getenv("CHAT_API_URL")),
		TelegramID: strings.TrimSpace(os.Getenv("CHAT_TELEGRAM_ID")),
		Timeout:    timeout,
	}, nil
}

// AIConfig 描述大模型相关配置，未配置聊天后端时用于本地生成回复。
type AIConfig struct {
	APIKey      string
	AccessKey   string
	SecretKey   string
	Model       string
	BaseURL     string
	Region      string
	Temperature *float64
	TopP        *float64
	MaxTokens   *int
}

// SpeechConfig 描述语音服务相关配置
type SpeechConfig struct {
	BaseURL     string
	AccessToken string
	APIKey      string
	TTSModel    string
	ASRModel    string
	Language    string
	Voice       string
	Speed       float32
	SampleRate  int
	Timeout     int
	Enabled     bool
}

// ServiceConfig 转换为语音服务客户端使用的配置。
func (c SpeechConfig) ServiceConfig() *speechModel.SpeechConfig {
	return &speechModel.SpeechConfig{
		BaseURL:     c.BaseURL,
		AccessToken: c.AccessToken,
		APIKey:      c.APIKey,
		TTSModel:    c.TTSModel,
		Voice:       c.Voice,
		Speed:       c.Speed,
		SampleRate:  c.SampleRate,
		ASRModel:    c.ASRModel,
		Language:    c.Language,
		Timeout:     c.Timeout,
	}
}

// Enabled 表示是否提供了必需的密钥。
func (c AIConfig) Enabled() bool {
	return c.Model != "" && (c.APIKey != "" || (c.AccessKey != "" && c.SecretKey != ""))
}

// NewChatModel 使用配置创建一个模型实例。
func (c AIConfig) NewChatModel(ctx context.Context) (model.ChatModel, error) {
	if !c.Enabled() {
		return nil, fmt.Errorf("Ark 凭证或模型配置缺失，至少提供 ARK_API_KEY + Model 或 AK/SK 组合")
	}

	var temperature *float32
	if c.Temperature != nil {
		val := float32(*c.Temperature)
		temperature = &val
	}

	var topP *float32
	if c.TopP != nil {
		val := float32(*c.TopP)
		topP = &val
	}

	var maxTokens *int
	if c.MaxTokens != nil {
		val := *c.MaxTokens
		maxTokens = &val
	}

	cfg := &ark.ChatModelConfig{
		BaseURL:     c.BaseURL,
		Region:      c.Region,
		APIKey:      c.APIKey,
		AccessKey:   c.AccessKey,
		SecretKey:   c.SecretKey,
		Model:       c.Model,
		MaxTokens:   maxTokens,
		Temperature: temperature,
		TopP:        topP,
	}

	return ark.NewChatModel(ctx, cfg)
}

func loadAIConfig() (AIConfig, error) {
	temperature, err := parseOptionalFloatEnv("ARK_TEMPERATURE")
	if err != nil {
		return AIConfig{}, err
	}

	topP, err := parseOptionalFloatEnv("ARK_TOP_P")
	if err != nil {
		return AIConfig{}, err
	}

	maxTokens, err := parseOptionalIntEnv("ARK_MAX_TOKENS")
	if err != nil {
		return AIConfig{}, err
	}

	return AIConfig{
		APIKey:      strings.TrimSpace(os.Getenv("ARK_API_KEY")),
		AccessKey:   strings.TrimSpace(os.Getenv("ARK_ACCESS_KEY")),
		SecretKey:   strings.TrimSpace(os.Getenv("ARK_SECRET_KEY")),
		Model:       strings.TrimSpace(os.Getenv("ARK_MODEL")),
		BaseURL:     getEnvOrDefault("ARK_BASE_URL", "https://ark.cn-beijing.volces.com/api/v3"),
		Region:      getEnvOrDefault("ARK_REGION", "cn-beijing"),
		Temperature: temperature,
		TopP:        topP,
		MaxTokens:   maxTokens,
	}, nil
}

func loadSpeechConfig() (SpeechConfig, error) {
	// 解析超时设置
	timeout, err := parseOptionalIntEnv("SPEECH_TIMEOUT")
	if err != nil {
		return SpeechConfig{}, err
	}
	timeoutSeconds := 30 // 默认30秒
	if timeout != nil {
		timeoutSeconds = *timeout
	}

	speed, err := parseOptionalFloat32Env("SPEECH_TTS_SPEED")
	if err != nil {
		return SpeechConfig{}, err
	}
	ttsSpeed := float32(1.0) // 默认1.0倍速
	if speed != nil {
		ttsSpeed = *speed
	}

	sampleRate, err := parseOptionalIntEnv("SPEECH_SAMPLE_RATE")
	if err != nil {
		return SpeechConfig{}, err
	}
	rate := 16000
	if sampleRate != nil {
		rate = *sampleRate
	}

	accessToken := strings.TrimSpace(os.Getenv("SPEECH_ACCESS_TOKEN"))
	apiKey := strings.TrimSpace(os.Getenv("SPEECH_API_KEY"))
	if accessToken == "" {
		accessToken = apiKey
	}

	return SpeechConfig{
		BaseURL:     getEnvOrDefault("SPEECH_BASE_URL", "https://api.platform.krd/v1"),
		AccessToken: accessToken,
		APIKey:      apiKey,
		TTSModel:    getEnvOrDefault("SPEECH_TTS_MODEL", "tts-mini-exp"),
		ASRModel:    getEnvOrDefault("SPEECH_ASR_MODEL", "asr-large-beta"),
		Language:    getEnvOrDefault("SPEECH_LANGUAGE", "ckb"),
		Voice:       getEnvOrDefault("SPEECH_TTS_VOICE", "default"),
		Speed:       ttsSpeed,
		SampleRate:  rate,
		Timeout:     timeoutSeconds,
		Enabled:     accessToken != "",
	}, nil
}

func getEnvOrDefault(key, defaultValue string) string {
	if value := strings.TrimSpace(os.Getenv(key)); value != "" {
		return value
	}
	return defaultValue
}

func parseBoolEnv(key string, defaultValue bool) (bool, error) {
	raw := strings.TrimSpace(os.Getenv(key))
	if raw == "" {
		return defaultValue, nil
	}

	val, err := strconv.ParseBool(raw)
	if err != nil {
		return false, fmt.Errorf("invalid %s value %q: %w", key, raw, err)
	}
	return val, nil
}

func parseDurationEnv(key string, defaultValue time.Duration) (time.Duration, error) {
	raw := strings.TrimSpace(os.Getenv(key))
	if raw == "" {
		return defaultValue, nil
	}

	val, err := time.ParseDuration(raw)
	if err != nil {
		return 0, fmt.Errorf("invalid %s value %q: %w", key, raw, err)
	}
	if val < 0 {
		return 0, fmt.Errorf("invalid %s value %q: negative duration", key, raw)
	}
	return val, nil
}

func parseOptionalFloatEnv(key string) (*float64, error) {
	raw, ok := os.LookupEnv(key)
	if !ok {
		return nil, nil
	}

	value := strings.TrimSpace(raw)
	if value == "" {
		return nil, nil
	}

	val, err := strconv.ParseFloat(value, 64)
	if err != nil {
		return nil, fmt.Errorf("invalid %s value %q: %w", key, value, err)
	}
	return &val, nil
}

func parseOptionalIntEnv(key string) (*int, error) {
	raw, ok := os.LookupEnv(key)
	if !ok {
		return nil, nil
	}

	value := strings.TrimSpace(raw)
	if value == "" {
		return nil, nil
	}

	val, err := strconv.Atoi(value)
	if err != nil {
		return nil, fmt.Errorf("invalid %s value %q: %w", key, value, err)
	}
	return &val, nil
}

func parseOptionalFloat32Env(key string) (*float32, error) {
	raw, ok := os.LookupEnv(key)
	if !ok {
		return nil, nil
	}

	value := strings.TrimSpace(raw)
	if value == "" {
		return nil, nil
	}

	val, err := strconv.ParseFloat(value, 32)
	if err != nil {
		return nil, fmt.Errorf("invalid %s value %q: %w", key, value, err)
	}
	result := float32(val)
	return &result, nil
}
