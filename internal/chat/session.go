// Package chat manages a tutoring conversation bound to a language and an
// education level, and streams its replies.
package chat

import (
	"context"
	"sync"

	"github.com/google/uuid"

	"github.com/abhisek/edusarthi/internal/llm"
	"github.com/abhisek/edusarthi/internal/logger"
	"github.com/abhisek/edusarthi/internal/prompt"
)

// Config holds generation settings for chat replies.
type Config struct {
	MaxTokens   int     `mapstructure:"max_tokens" validate:"gte=0"`
	Temperature float64 `mapstructure:"temperature" validate:"gte=0,lte=2"`
}

// DefaultConfig returns sensible defaults for chat.
func DefaultConfig() Config {
	return Config{
		MaxTokens:   2048,
		Temperature: 0.7,
	}
}

// State describes the current binding.
type State struct {
	Bound    bool
	ID       string
	Language prompt.Language
	Level    string
	Busy     bool
}

// Session is a conversation that is either unbound or bound to one
// (language, level) pair. Changing the pair starts a new conversation.
type Session struct {
	provider llm.Provider
	cfg      Config
	log      *logger.Logger

	mu      sync.Mutex
	binding *binding
}

// binding owns one provider conversation. The busy flag belongs to the
// binding so a rebind never waits on the old conversation's reply.
type binding struct {
	id    string
	lang  prompt.Language
	level string
	conv  llm.Conversation
	busy  bool
}

// NewSession creates an unbound session. A nil logger discards output.
func NewSession(provider llm.Provider, cfg Config, log *logger.Logger) *Session {
	if log == nil {
		log = logger.NewNop()
	}
	return &Session{provider: provider, cfg: cfg, log: log}
}

// Bind binds the session to lang and level. Binding the current pair again
// keeps the conversation; any other pair replaces it and drops history.
// When the new conversation cannot be started the session is left unbound.
func (s *Session) Bind(ctx context.Context, lang prompt.Language, level string) error {
	if err := prompt.CheckContext(lang, level); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if b := s.binding; b != nil && b.lang == lang && b.level == level {
		return nil
	}

	conv, err := s.provider.StartChat(ctx, llm.ChatConfig{
		System:      prompt.ChatSystemInstruction(lang, level),
		MaxTokens:   s.cfg.MaxTokens,
		Temperature: s.cfg.Temperature,
	})
	if err != nil {
		s.binding = nil
		return err
	}

	s.binding = &binding{id: uuid.NewString(), lang: lang, level: level, conv: conv}
	s.log.Debug("chat bound", "session", s.binding.id, "language", lang, "level", level)
	return nil
}

// SendTurn sends one user turn and returns its reply stream. Only one turn
// may be in flight per binding.
func (s *Session) SendTurn(ctx context.Context, parts []llm.Part) (*Stream, error) {
	if err := llm.ValidateParts(parts); err != nil {
		return nil, err
	}

	s.mu.Lock()
	b := s.binding
	switch {
	case b == nil:
		s.mu.Unlock()
		return nil, ErrUnbound
	case b.busy:
		s.mu.Unlock()
		return nil, ErrBusy
	}
	b.busy = true
	s.mu.Unlock()

	ctx = llm.WithSessionID(llm.WithPurpose(ctx, llm.PurposeChat), b.id)
	stream := newStream()
	go s.produce(ctx, b, parts, stream)
	return stream, nil
}

func (s *Session) produce(ctx context.Context, b *binding, parts []llm.Part, stream *Stream) {
	var streamErr error
	defer func() {
		s.mu.Lock()
		b.busy = false
		s.mu.Unlock()
		stream.finish(streamErr)
	}()

	for chunk, err := range b.conv.SendStream(ctx, parts) {
		if err != nil {
			s.log.Warn("chat reply failed", "session", b.id, "error", err)
			streamErr = &StreamError{Err: err}
			return
		}
		if !stream.send(ctx, chunk) {
			if err := ctx.Err(); err != nil {
				streamErr = &StreamError{Err: err}
			}
			return
		}
	}
}

// State reports the current binding.
func (s *Session) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()

	b := s.binding
	if b == nil {
		return State{}
	}
	return State{Bound: true, ID: b.id, Language: b.lang, Level: b.level, Busy: b.busy}
}

// History returns the turns of the current conversation. It fails while a
// reply is streaming.
func (s *Session) History() ([]llm.Message, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	switch b := s.binding; {
	case b == nil:
		return nil, ErrUnbound
	case b.busy:
		return nil, ErrBusy
	default:
		return b.conv.History(), nil
	}
}

// Close discards the binding. A reply still streaming runs to completion
// on its own conversation.
func (s *Session) Close() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.binding = nil
}
