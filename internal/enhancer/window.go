package enhancer

import (
	"strings"

	"github.com/promptforge/go-prompt-backend/internal/domain"
)

// Context window sizes for the two chat paths. The persisted conversation
// path carries more history than the standalone in-memory session path; the
// asymmetry is inherited behavior, kept as two named constants so either can
// be tuned independently.
const (
	// ContextWindowConversation bounds the history slice sent to the model
	// when posting to a persisted conversation.
	ContextWindowConversation = 10

	// ContextWindowSession bounds the history slice for standalone in-memory
	// chat sessions.
	ContextWindowSession = 5
)

// Speaker labels used when formatting history for the model.
const (
	labelUser      = "User"
	labelAssistant = "Assistant"
)

// LastN returns at most the last n elements of msgs, preserving chronological
// order. n <= 0 yields an empty slice. The returned slice aliases msgs.
func LastN(msgs []domain.Message, n int) []domain.Message {
	if n <= 0 {
		return msgs[:0]
	}
	if len(msgs) > n {
		return msgs[len(msgs)-n:]
	}
	return msgs
}

// FormatHistory renders messages as alternating speaker-labeled lines in
// chronological order, the grounding format the model receives ahead of the
// new user content.
func FormatHistory(msgs []domain.Message) string {
	if len(msgs) == 0 {
		return ""
	}
	var b strings.Builder
	for i, m := range msgs {
		if i > 0 {
			b.WriteByte('\n')
		}
		label := labelAssistant
		if m.IsUser {
			label = labelUser
		}
		b.WriteString(label)
		b.WriteString(": ")
		b.WriteString(m.Content)
	}
	return b.String()
}

// BuildTurnPrompt assembles the user-role payload for one chat turn: the
// bounded history followed by the new message content.
func BuildTurnPrompt(history []domain.Message, content string, window int) string {
	hist := FormatHistory(LastN(history, window))
	if hist == "" {
		return labelUser + ": " + content
	}
	return hist + "\n" + labelUser + ": " + content
}

// ChatSystemInstruction is the fixed system prompt for conversational turns.
const ChatSystemInstruction = "You are a helpful assistant for a prompt-engineering tool. " +
	"Answer the user's latest message, using the conversation history for context. " +
	"Reply in plain prose without markdown emphasis markers."
