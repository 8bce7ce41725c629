package llm

import (
	"context"
	"iter"
	"strings"
	"sync"
)

// MockResponse is a canned response for the MockProvider.
type MockResponse struct {
	Text  string
	Usage Usage
	Err   error
}

// MockStream is a canned streamed reply. Chunks are yielded in order and
// Err, when set, is yielded after them.
type MockStream struct {
	Chunks []string
	Err    error

	// Hold, when non-nil, blocks the stream before its first chunk until
	// Hold is closed or the context ends.
	Hold chan struct{}
}

// MockProvider is a deterministic Provider for testing.
// It returns canned responses and streams in FIFO order and records all
// requests, chat configs and turns.
type MockProvider struct {
	mu        sync.Mutex
	responses []MockResponse
	streams   []MockStream

	// ChatErr, when set, is returned by StartChat.
	ChatErr error

	Calls []Request
	Chats []ChatConfig
	Turns [][]Part
}

// NewMockProvider creates a MockProvider with the given canned responses.
func NewMockProvider(responses ...MockResponse) *MockProvider {
	return &MockProvider{responses: responses}
}

// Generate returns the next canned response or ErrProviderUnavailable if
// the queue is empty.
func (m *MockProvider) Generate(_ context.Context, req Request) (*Response, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.Calls = append(m.Calls, req)

	if len(m.responses) == 0 {
		return nil, &ErrProviderUnavailable{Err: nil}
	}

	resp := m.responses[0]
	m.responses = m.responses[1:]

	if resp.Err != nil {
		return nil, resp.Err
	}

	return &Response{
		Text:       resp.Text,
		Usage:      resp.Usage,
		Model:      "mock",
		StopReason: "end",
	}, nil
}

// StartChat records the config and returns a conversation that replays
// the queued streams.
func (m *MockProvider) StartChat(_ context.Context, cfg ChatConfig) (Conversation, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.ChatErr != nil {
		return nil, m.ChatErr
	}
	m.Chats = append(m.Chats, cfg)
	return &mockConversation{provider: m}, nil
}

// ModelID returns "mock".
func (m *MockProvider) ModelID() string {
	return "mock"
}

// AddResponse appends a canned response to the queue.
func (m *MockProvider) AddResponse(resp MockResponse) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.responses = append(m.responses, resp)
}

// AddStream appends a canned streamed reply to the queue.
func (m *MockProvider) AddStream(s MockStream) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.streams = append(m.streams, s)
}

// CallCount returns the number of Generate calls made.
func (m *MockProvider) CallCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.Calls)
}

// TurnCount returns the number of SendStream calls made across all chats.
func (m *MockProvider) TurnCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.Turns)
}

func (m *MockProvider) nextStream(parts []Part) (MockStream, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.Turns = append(m.Turns, parts)
	if len(m.streams) == 0 {
		return MockStream{}, false
	}
	s := m.streams[0]
	m.streams = m.streams[1:]
	return s, true
}

type mockConversation struct {
	provider *MockProvider
	history  []Message
}

func (c *mockConversation) SendStream(ctx context.Context, parts []Part) iter.Seq2[string, error] {
	return func(yield func(string, error) bool) {
		if err := ValidateParts(parts); err != nil {
			yield("", err)
			return
		}
		user := UserMessage(parts...)

		s, ok := c.provider.nextStream(parts)
		if !ok {
			yield("", &ErrProviderUnavailable{})
			return
		}
		if s.Hold != nil {
			select {
			case <-s.Hold:
			case <-ctx.Done():
				yield("", ctx.Err())
				return
			}
		}

		var reply strings.Builder
		for _, chunk := range s.Chunks {
			if err := ctx.Err(); err != nil {
				yield("", err)
				return
			}
			reply.WriteString(chunk)
			if !yield(chunk, nil) {
				return
			}
		}
		if s.Err != nil {
			yield("", s.Err)
			return
		}
		c.history = commitTurn(c.history, user, reply.String())
	}
}

func (c *mockConversation) History() []Message {
	return append([]Message(nil), c.history...)
}
