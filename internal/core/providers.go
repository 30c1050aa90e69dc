package core

import "context"

// ChatProvider generates one assistant reply for an assembled prompt.
type ChatProvider interface {
	Chat(ctx context.Context, messages []Message) (Message, error)
}

// TokenCounter estimates prompt size for the context-budget math.
type TokenCounter interface {
	Count(text string) int
}
