package speech

import (
	"errors"
	"strings"

	speechmodel "github.com/halwest-tech/kurdish-chat/backend/internal/model/speech"
)

// ErrNotConfigured 表示缺少语音服务凭证。
var ErrNotConfigured = errors.New("speech service credentials are not configured")

// resolveCredentials 返回规范化后的 Bearer 凭证，AccessToken 缺失时回退到 APIKey。
func resolveCredentials(cfg *speechmodel.SpeechConfig) (string, error) {
	if cfg == nil {
		return "", ErrNotConfigured
	}

	token := strings.TrimSpace(cfg.AccessToken)
	if token == "" {
		token = strings.TrimSpace(cfg.APIKey)
	}
	if token == "" {
		return "", ErrNotConfigured
	}
	return token, nil
}
