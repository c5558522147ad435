package llm

import "context"

// Client is the interface to a remote completion provider.
type Client interface {
	// Chat sends the conversation to the model and returns the completed turn.
	Chat(ctx context.Context, params ChatParams) (*Result, error)
}

type ChatParams struct {
	Model    string
	APIKey   string
	BaseURL  string
	Messages []Message
	Tools    []ToolDef
	System   string // system prompt, prepended as the first message
}
