// Package tutor runs the single-shot study tasks (notes, quiz, questions)
// against an llm.Provider and maps every failure to a safe result.
package tutor

import (
	"context"
	"errors"

	"github.com/abhisek/edusarthi/internal/llm"
	"github.com/abhisek/edusarthi/internal/logger"
	"github.com/abhisek/edusarthi/internal/prompt"
	"github.com/abhisek/edusarthi/internal/quiz"
)

// Messages shown in place of generated text when a request fails.
const (
	FallbackNotes  = "Sorry, I couldn't generate notes at the moment. Please try again."
	FallbackAnswer = "Sorry, I couldn't process your question at the moment. Please try again."
)

// TaskRequest is one study task. Topic holds the question for QnA.
type TaskRequest struct {
	Kind     prompt.Task
	Topic    string
	Image    []byte
	Language prompt.Language
	Level    string
}

// Validate checks the preconditions that must hold before anything is sent.
func (r TaskRequest) Validate() error {
	if err := prompt.CheckContext(r.Language, r.Level); err != nil {
		return err
	}
	return prompt.CheckInput(r.Topic, r.Image)
}

// Result is the outcome of a free-text task. When Fallback is true, Text
// holds the fixed fallback message and Err the cause.
type Result struct {
	Text     string
	Fallback bool
	Err      error
}

// QuizResult is the outcome of a quiz task. Questions is never nil.
type QuizResult struct {
	Questions []quiz.Question
	Dropped   int
	Err       error
}

// Service runs study tasks against a provider.
type Service struct {
	provider llm.Provider
	cfg      Config
	log      *logger.Logger
}

// NewService creates a tutor service. A nil logger discards output.
func NewService(provider llm.Provider, cfg Config, log *logger.Logger) *Service {
	if log == nil {
		log = logger.NewNop()
	}
	return &Service{provider: provider, cfg: cfg, log: log}
}

// Generate sends one user turn and returns the raw text payload. With a
// schema the provider is asked for JSON of that shape. Provider failures
// come back as *RequestError, or *MalformedOutputError when the provider
// rejected the output against the schema.
func (s *Service) Generate(ctx context.Context, purpose string, parts []llm.Part, schema *llm.Schema) (string, error) {
	if err := llm.ValidateParts(parts); err != nil {
		return "", err
	}

	ctx = llm.WithPurpose(ctx, purpose)
	if s.cfg.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.cfg.Timeout)
		defer cancel()
	}

	resp, err := s.provider.Generate(ctx, llm.Request{
		Messages:    []llm.Message{llm.UserMessage(parts...)},
		Schema:      schema,
		MaxTokens:   s.cfg.MaxTokens,
		Temperature: s.cfg.Temperature,
	})
	if err != nil {
		s.log.Error("task request failed", "purpose", purpose, "model", s.provider.ModelID(), "error", err)

		var invalid *llm.ErrInvalidResponse
		if errors.As(err, &invalid) {
			return "", &MalformedOutputError{Raw: invalid.Content, Err: err}
		}
		return "", &RequestError{Purpose: purpose, Err: err}
	}

	return resp.Text, nil
}

// Notes generates study notes in Markdown.
func (s *Service) Notes(ctx context.Context, req TaskRequest) Result {
	return s.text(ctx, llm.PurposeNotes, req, prompt.NotesPrompt, FallbackNotes)
}

// Answer solves a student's question in Markdown.
func (s *Service) Answer(ctx context.Context, req TaskRequest) Result {
	return s.text(ctx, llm.PurposeQnA, req, prompt.QnAPrompt, FallbackAnswer)
}

// Quiz generates a multiple-choice quiz. Invalid entries are dropped.
func (s *Service) Quiz(ctx context.Context, req TaskRequest) QuizResult {
	if err := req.Validate(); err != nil {
		return QuizResult{Questions: []quiz.Question{}, Err: err}
	}

	text := prompt.QuizPrompt(req.Topic, len(req.Image) > 0, req.Language, req.Level)
	raw, err := s.Generate(ctx, llm.PurposeQuiz, prompt.Parts(text, req.Image), quiz.Schema)
	if err != nil {
		return QuizResult{Questions: []quiz.Question{}, Err: err}
	}

	parsed, err := quiz.ParseStrict(raw)
	if len(parsed.Dropped) > 0 {
		s.log.Warn("dropped invalid quiz entries", "dropped", len(parsed.Dropped), "kept", len(parsed.Questions))
	}
	if err != nil {
		return QuizResult{
			Questions: []quiz.Question{},
			Dropped:   len(parsed.Dropped),
			Err:       &MalformedOutputError{Raw: raw, Err: err},
		}
	}
	return QuizResult{Questions: parsed.Questions, Dropped: len(parsed.Dropped)}
}

type promptFunc func(topic string, hasImage bool, lang prompt.Language, level string) string

func (s *Service) text(ctx context.Context, purpose string, req TaskRequest, build promptFunc, fallback string) Result {
	if err := req.Validate(); err != nil {
		return Result{Err: err}
	}

	text := build(req.Topic, len(req.Image) > 0, req.Language, req.Level)
	out, err := s.Generate(ctx, purpose, prompt.Parts(text, req.Image), nil)
	if err != nil {
		return Result{Text: fallback, Fallback: true, Err: err}
	}
	return Result{Text: out}
}
