package llm

import (
	"context"
	"iter"
	"strings"
)

// Provider is the core abstraction for LLM interaction.
// Consumers call Generate for single-shot requests and StartChat for
// multi-turn conversations with streamed replies.
type Provider interface {
	// Generate sends a request to the LLM and returns the complete reply.
	// The request's Schema field, when set, instructs the provider to return
	// JSON conforming to that schema. The response Text will be the
	// validated JSON.
	Generate(ctx context.Context, req Request) (*Response, error)

	// StartChat opens a new conversation bound to the given system
	// instruction. The conversation starts with an empty history.
	StartChat(ctx context.Context, cfg ChatConfig) (Conversation, error)

	// ModelID returns the model identifier this provider is configured to use.
	ModelID() string
}

// Conversation is a provider-side chat with its own turn history.
// It is not safe for concurrent use; callers send one turn at a time.
type Conversation interface {
	// SendStream appends a user turn to the history and returns the reply
	// as a sequence of text fragments in arrival order. The sequence ends
	// after the first error. Breaking out of the loop stops reading from
	// the provider.
	SendStream(ctx context.Context, parts []Part) iter.Seq2[string, error]

	// History returns a copy of the turns exchanged so far.
	History() []Message
}

// Request describes what to send to the LLM.
type Request struct {
	// System is the system prompt. Sets the LLM's role and constraints.
	System string

	// Messages is the conversation history. For single-turn generation
	// this contains one user message.
	Messages []Message

	// Schema is the JSON Schema the response must conform to.
	// When set, the provider uses its native structured output mechanism.
	// When nil, the response Text is free-form.
	Schema *Schema

	// MaxTokens is the maximum number of tokens in the response.
	MaxTokens int

	// Temperature controls randomness. Range: 0.0 - 1.0.
	// Default: 0.0 (deterministic) when not set.
	Temperature float64
}

// ChatConfig configures a new conversation.
type ChatConfig struct {
	// System is the persistent instruction for the whole conversation.
	System string

	MaxTokens   int
	Temperature float64
}

// Message represents a single message in the conversation.
type Message struct {
	Role  Role
	Parts []Part
}

// Text concatenates the text parts of the message.
func (m Message) Text() string {
	var b strings.Builder
	for _, p := range m.Parts {
		b.WriteString(p.Text)
	}
	return b.String()
}

// UserMessage builds a user message from parts.
func UserMessage(parts ...Part) Message {
	return Message{Role: RoleUser, Parts: parts}
}

// commitTurn records a user turn together with its completed reply. A turn
// with an empty reply is dropped whole so history keeps alternating roles.
func commitTurn(history []Message, user Message, reply string) []Message {
	if reply == "" {
		return history
	}
	return append(history, user, Message{Role: RoleAssistant, Parts: []Part{TextPart(reply)}})
}

// Role is the message sender role.
type Role string

const (
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
)

// Schema defines the JSON structure expected from the LLM.
type Schema struct {
	// Name identifies this schema (used as the schema name for OpenAI and
	// as the cache key for compiled validators). Kebab-case, e.g. "quiz".
	Name string

	// Description is a human-readable description of what this schema
	// represents. Sent to the LLM to guide generation.
	Description string

	// Definition is the JSON Schema definition as a map.
	Definition map[string]any
}

// Response holds the LLM's output.
type Response struct {
	// Text is the generated output. When a Schema was provided in the
	// request, this is the validated JSON document.
	Text string

	// Usage reports token consumption for this request.
	Usage Usage

	// Model is the actual model that served the request.
	Model string

	// StopReason indicates why generation stopped.
	// Normalized to: "end", "max_tokens", "error"
	StopReason string
}

// Usage tracks token consumption for a single request.
type Usage struct {
	InputTokens  int
	OutputTokens int
	TotalTokens  int
}
