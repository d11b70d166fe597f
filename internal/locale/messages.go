package locale

import "fmt"

// Key identifies a localized message used by behavior (not UI chrome).
type Key string

const (
	Typing                Key = "typing"
	SendFailed            Key = "sendFailed"
	NewChat               Key = "newChat"
	ConfirmDelete         Key = "confirmDelete"
	MicrophonePermission  Key = "microphonePermission"
	TranscriptionFailed   Key = "transcriptionFailed"
	PasswordsDoNotMatch   Key = "passwordsDoNotMatch"
	AuthNetworkFailed     Key = "auth/network-request-failed"
	AuthEmailInUse        Key = "auth/email-already-in-use"
	AuthInvalidEmail      Key = "auth/invalid-email"
	AuthWrongPassword     Key = "auth/wrong-password"
	VoiceUnavailable      Key = "voiceUnavailable"
	numberedChatTitleStem Key = "numberedChat"
)

var catalog = map[Language]map[Key]string{
	Sorani: {
		Typing:                "خەریکی نووسینە...",
		SendFailed:            "ببوورە، هەڵەیەک ڕوویدا. تکایە دووبارە هەوڵ بدەوە",
		NewChat:               "چاتی نوێ",
		ConfirmDelete:         "دڵنیای لە سڕینەوە؟",
		MicrophonePermission:  "تکایە ڕێگە بدە بە بەکارهێنانی مایکرۆفۆن",
		TranscriptionFailed:   "هەڵەیەک ڕوویدا لە وەرگێڕانی دەنگ بۆ نووسین",
		PasswordsDoNotMatch:   "وشەکانی نهێنی یەک ناگرنەوە",
		AuthNetworkFailed:     "کێشەی ئینتەرنێت هەیە، تکایە دڵنیابە لە هەبوونی ئینتەرنێت",
		AuthEmailInUse:        "ئەم ئیمەیڵە پێشتر بەکارهاتووە",
		AuthInvalidEmail:      "ئیمەیڵەکە دروست نییە",
		AuthWrongPassword:     "وشەی نهێنی هەڵەیە",
		VoiceUnavailable:      "تۆمارکردنی دەنگ تەنها بۆ سۆرانی بەردەستە",
		numberedChatTitleStem: "چاتی %d",
	},
	Kurmanji: {
		Typing:                "Dinivîse...",
		SendFailed:            "Sorry, an error occurred. Please try again",
		NewChat:               "Çata nû",
		ConfirmDelete:         "Tu dixwazî jê bibî?",
		MicrophonePermission:  "Ji kerema xwe destûra mîkrofonê bide",
		TranscriptionFailed:   "Di wergerandina deng de çewtiyek çêbû",
		PasswordsDoNotMatch:   "Passwords do not match",
		AuthNetworkFailed:     "Network error. Please check your internet connection",
		AuthEmailInUse:        "Email is already in use",
		AuthInvalidEmail:      "Invalid email address",
		AuthWrongPassword:     "Incorrect password",
		VoiceUnavailable:      "Tomarkirina deng tenê bo soranî heye",
		numberedChatTitleStem: "Chat %d",
	},
}

// T 返回 key 在 lang 下的文本；未知语言按索拉尼处理，未知 key 原样返回。
func T(lang Language, key Key) string {
	messages, ok := catalog[lang]
	if !ok {
		messages = catalog[Sorani]
	}
	if text, ok := messages[key]; ok {
		return text
	}
	return string(key)
}

// Has reports whether key has a translation.
func Has(key Key) bool {
	_, ok := catalog[Sorani][key]
	return ok
}

// ChatTitle 生成第 n 个会话的标题，例如 "چاتی 3" / "Chat 3"。
func ChatTitle(lang Language, n int) string {
	return fmt.Sprintf(T(lang, numberedChatTitleStem), n)
}
