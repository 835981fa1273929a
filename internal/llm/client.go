package llm

import (
	"context"
	"fmt"
)

const (
	RoleSystem = "system"
	RoleUser   = "user"
)

type Message struct {
	Role    string
	Content string
}

type Response struct {
	Content          string
	Model            string
	PromptTokens     int
	CompletionTokens int
	TotalTokens      int
}

// NoCompletionMessage is the upstream message for a blank completion.
const NoCompletionMessage = "The model returned no completion."

// Client sends a conversation to a generative text service and returns the
// first completion. An empty model selects the client's default.
type Client interface {
	Generate(ctx context.Context, model string, messages []Message) (Response, error)
}

// UpstreamError is returned when the generative service rejects a request or
// answers with something unusable. Message is the service's own wording.
type UpstreamError struct {
	Provider string
	Message  string
	Err      error
}

func (e *UpstreamError) Error() string {
	if e.Message == "" {
		return fmt.Sprintf("%s: %v", e.Provider, e.Err)
	}
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Provider, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Provider, e.Message)
}

func (e *UpstreamError) Unwrap() error { return e.Err }
