package locale

import (
	"fmt"
	"strings"

	"golang.org/x/text/language"
)

// Language 界面显示语言：ku 为索拉尼（从右到左），kmj 为库尔曼吉（从左到右）。
type Language string

const (
	Sorani   Language = "ku"
	Kurmanji Language = "kmj"
)

// Theme 只影响前端呈现，唯一的协议层作用是写入用户资料。
type Theme string

const (
	Light Theme = "light"
	Dark  Theme = "dark"
)

// Direction 文本方向。
type Direction string

const (
	RTL Direction = "rtl"
	LTR Direction = "ltr"
)

var (
	soraniTag   = language.MustParse("ckb")
	kurmanjiTag = language.MustParse("kmr")
)

// ParseLanguage 解析语言参数，未知取值返回错误。
func ParseLanguage(raw string) (Language, error) {
	switch Language(strings.ToLower(strings.TrimSpace(raw))) {
	case Sorani:
		return Sorani, nil
	case Kurmanji:
		return Kurmanji, nil
	default:
		return "", fmt.Errorf("unsupported language %q", raw)
	}
}

// ParseTheme 解析主题参数。
func ParseTheme(raw string) (Theme, error) {
	switch Theme(strings.ToLower(strings.TrimSpace(raw))) {
	case Light:
		return Light, nil
	case Dark:
		return Dark, nil
	default:
		return "", fmt.Errorf("unsupported theme %q", raw)
	}
}

// Valid reports whether l is one of the two supported languages.
func (l Language) Valid() bool {
	return l == Sorani || l == Kurmanji
}

// Direction 返回该语言的书写方向。
func (l Language) Direction() Direction {
	if l == Kurmanji {
		return LTR
	}
	return RTL
}

// Tag 返回对应的 BCP-47 标签，语音服务与大模型提示词使用它。
func (l Language) Tag() language.Tag {
	if l == Kurmanji {
		return kurmanjiTag
	}
	return soraniTag
}

// Toggle 在两种语言之间切换。
func (l Language) Toggle() Language {
	if l == Sorani {
		return Kurmanji
	}
	return Sorani
}

// Toggle 在明暗主题之间切换。
func (t Theme) Toggle() Theme {
	if t == Dark {
		return Light
	}
	return Dark
}

// Valid reports whether t is a known theme.
func (t Theme) Valid() bool {
	return t == Light || t == Dark
}
