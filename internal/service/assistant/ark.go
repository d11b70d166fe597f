package assistant

import (
	"context"
	"fmt"

	"github.com/cloudwego/eino/components/model"
	"github.com/cloudwego/eino/components/prompt"
	"github.com/cloudwego/eino/compose"
	"github.com/cloudwego/eino/schema"

	"github.com/halwest-tech/kurdish-chat/backend/internal/locale"
	"github.com/halwest-tech/kurdish-chat/backend/internal/logger"
	"github.com/halwest-tech/kurdish-chat/backend/internal/model/chat"
)

const historyLimit = 10

// ArkBackend generates replies locally through an eino chain when no chat
// endpoint is configured.
type ArkBackend struct {
	chain compose.Runnable[map[string]any, *schema.Message]
}

// NewArkBackend compiles prompt template + chat model into a runnable chain.
func NewArkBackend(ctx context.Context, chatModel model.ChatModel) (*ArkBackend, error) {
	promptTemplate := prompt.FromMessages(
		schema.FString,
		schema.SystemMessage("{system}"),
		schema.MessagesPlaceholder("history", true),
		schema.UserMessage("{query}"),
	)

	chain := compose.NewChain[map[string]any, *schema.Message]()
	chain.AppendChatTemplate(promptTemplate)
	chain.AppendChatModel(chatModel)

	runnable, err := chain.Compile(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to compile chat chain: %w", err)
	}
	return &ArkBackend{chain: runnable}, nil
}

// Send runs the chain and wraps the answer in the chat backend reply shape.
func (b *ArkBackend) Send(ctx context.Context, req Request) (Reply, error) {
	input := map[string]any{
		"system":  systemPrompt(req.Language),
		"history": historyMessages(req.History),
		"query":   req.Message,
	}

	response, err := b.chain.Invoke(ctx, input)
	if err != nil {
		return Reply{}, fmt.Errorf("failed to run AI chain: %w", err)
	}

	logger.Debug("ark reply generated", "component", "assistant", "language", req.Language, "length", len(response.Content))
	return Reply{Content: []Content{{Type: "text", Text: response.Content}}}, nil
}

func systemPrompt(lang locale.Language) string {
	if lang == locale.Kurmanji {
		return "You are a helpful assistant for Kurdish speakers. Always answer in Kurmanji Kurdish written in the Latin alphabet (" +
			lang.Tag().String() + "). Keep answers clear and friendly."
	}
	return "You are a helpful assistant for Kurdish speakers. Always answer in Sorani Kurdish written in the Arabic script (" +
		locale.Sorani.Tag().String() + "). Keep answers clear and friendly."
}

// historyMessages keeps the last turns, skipping placeholders and failed replies.
func historyMessages(messages []chat.Message) []*schema.Message {
	if len(messages) == 0 {
		return nil
	}

	startIdx := 0
	if len(messages) > historyLimit {
		startIdx = len(messages) - historyLimit
	}

	history := make([]*schema.Message, 0, len(messages)-startIdx)
	for _, msg := range messages[startIdx:] {
		if msg.Loading || msg.Error {
			continue
		}
		switch msg.Sender {
		case chat.SenderUser:
			history = append(history, schema.UserMessage(msg.Text))
		case chat.SenderAssistant:
			history = append(history, schema.AssistantMessage(msg.Text, nil))
		}
	}
	return history
}
