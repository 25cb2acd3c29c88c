package services

import (
	"github.com/jaeyoon0415/convgate/db/models"
)

// Chat roles understood by the Gemini invoker.
const (
	RoleSystem = "system"
	RoleUser   = "user"
	RoleModel  = "model"
)

// ChatMessage is one role-tagged entry of a prompt context.
type ChatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// BuildContext assembles the ordered prompt context for a single request:
// the system instruction, then each historical turn expanded into its user
// and model messages in chronological order, then the current prompt.
//
// The function is pure and order-preserving. It never reorders, deduplicates,
// or truncates: bounding the history window is the loader's job.
func BuildContext(history []models.Turn, systemInstruction, currentPrompt string) []ChatMessage {
	messages := make([]ChatMessage, 0, 2*len(history)+2)

	messages = append(messages, ChatMessage{Role: RoleSystem, Content: systemInstruction})

	for _, turn := range history {
		messages = append(messages, ChatMessage{Role: RoleUser, Content: turn.Prompt})
		messages = append(messages, ChatMessage{Role: RoleModel, Content: turn.Response})
	}

	messages = append(messages, ChatMessage{Role: RoleUser, Content: currentPrompt})

	return messages
}
