package ai

import "context"

// Message is one turn in a chat exchange. Role is "system", "user" or
// "assistant".
type Message struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// ChatGenerator produces a completion for a message history.
type ChatGenerator interface {
	Complete(ctx context.Context, messages []Message) (string, error)
}
