package llm

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"iter"
	"strings"

	"github.com/tmc/langchaingo/llms"
	"github.com/tmc/langchaingo/llms/ollama"
)

// OllamaProvider implements Provider against a local Ollama server through
// langchaingo. Use a vision model (llava, gemma3) for image turns.
type OllamaProvider struct {
	llm   llms.Model
	model string
}

// NewOllamaProvider creates a new Ollama provider.
func NewOllamaProvider(cfg OllamaConfig) (*OllamaProvider, error) {
	if cfg.ServerURL == "" {
		return nil, &ConfigurationError{Provider: ProviderOllama, Err: errors.New("server URL is required")}
	}

	model, err := ollama.New(
		ollama.WithServerURL(cfg.ServerURL),
		ollama.WithModel(cfg.Model),
	)
	if err != nil {
		return nil, &ConfigurationError{Provider: ProviderOllama, Err: err}
	}

	return &OllamaProvider{llm: model, model: cfg.Model}, nil
}

func (p *OllamaProvider) Generate(ctx context.Context, req Request) (*Response, error) {
	system := req.System
	opts := ollamaOptions(req.MaxTokens, req.Temperature)

	// Ollama's JSON mode does not take a schema, so it rides in the prompt.
	if req.Schema != nil {
		def, err := json.Marshal(req.Schema.Definition)
		if err != nil {
			return nil, fmt.Errorf("marshal schema: %w", err)
		}
		system = strings.TrimSpace(system + "\n\nRespond only with JSON matching this schema:\n" + string(def))
		opts = append(opts, llms.WithJSONMode())
	}

	messages, err := buildOllamaMessages(system, req.Messages)
	if err != nil {
		return nil, err
	}

	resp, err := p.generate(ctx, messages, opts...)
	if err != nil {
		return nil, mapOllamaError(err)
	}
	if len(resp.Choices) == 0 {
		return nil, &ErrInvalidResponse{Err: errors.New("no choices in Ollama response")}
	}

	choice := resp.Choices[0]
	if req.Schema != nil {
		if err := validateResponse(req.Schema, choice.Content); err != nil {
			return nil, err
		}
	}

	usage := Usage{
		InputTokens:  generationInt(choice.GenerationInfo, "PromptTokens"),
		OutputTokens: generationInt(choice.GenerationInfo, "CompletionTokens"),
	}
	usage.TotalTokens = usage.InputTokens + usage.OutputTokens

	return &Response{
		Text:       choice.Content,
		Usage:      usage,
		Model:      p.model,
		StopReason: "end",
	}, nil
}

// generate calls the model and turns a panic inside langchaingo into an
// outage. The client dereferences a nil message when the server answers
// with an empty error body or drops the stream before its final frame.
func (p *OllamaProvider) generate(ctx context.Context, messages []llms.MessageContent, opts ...llms.CallOption) (resp *llms.ContentResponse, err error) {
	defer func() {
		if r := recover(); r != nil {
			resp, err = nil, &ErrProviderUnavailable{Err: fmt.Errorf("ollama: %v", r)}
		}
	}()
	return p.llm.GenerateContent(ctx, messages, opts...)
}

func (p *OllamaProvider) StartChat(_ context.Context, cfg ChatConfig) (Conversation, error) {
	return &ollamaConversation{provider: p, cfg: cfg}, nil
}

func (p *OllamaProvider) ModelID() string {
	return p.model
}

type ollamaConversation struct {
	provider *OllamaProvider
	cfg      ChatConfig
	history  []Message
}

// SendStream adapts langchaingo's push-style streaming callback into a
// pull sequence. The producer goroutine exits once the consumer stops.
func (c *ollamaConversation) SendStream(ctx context.Context, parts []Part) iter.Seq2[string, error] {
	return func(yield func(string, error) bool) {
		if err := ValidateParts(parts); err != nil {
			yield("", err)
			return
		}
		user := UserMessage(parts...)
		turns := append(c.History(), user)
		messages, err := buildOllamaMessages(c.cfg.System, turns)
		if err != nil {
			yield("", err)
			return
		}

		ctx, cancel := context.WithCancel(ctx)
		defer cancel()

		chunks := make(chan string)
		var genErr error
		go func() {
			defer close(chunks)
			opts := append(ollamaOptions(c.cfg.MaxTokens, c.cfg.Temperature),
				llms.WithStreamingFunc(func(ctx context.Context, chunk []byte) error {
					select {
					case chunks <- string(chunk):
						return nil
					case <-ctx.Done():
						return ctx.Err()
					}
				}))
			_, genErr = c.provider.generate(ctx, messages, opts...)
		}()

		var reply strings.Builder
		for chunk := range chunks {
			if chunk == "" {
				continue
			}
			reply.WriteString(chunk)
			if !yield(chunk, nil) {
				cancel()
				for range chunks {
				}
				return
			}
		}
		if genErr != nil {
			yield("", mapOllamaError(genErr))
			return
		}
		c.history = commitTurn(c.history, user, reply.String())
	}
}

func (c *ollamaConversation) History() []Message {
	return append([]Message(nil), c.history...)
}

func ollamaOptions(maxTokens int, temperature float64) []llms.CallOption {
	var opts []llms.CallOption
	if maxTokens > 0 {
		opts = append(opts, llms.WithMaxTokens(maxTokens))
	}
	if temperature > 0 {
		opts = append(opts, llms.WithTemperature(temperature))
	}
	return opts
}

func buildOllamaMessages(system string, msgs []Message) ([]llms.MessageContent, error) {
	var out []llms.MessageContent
	if system != "" {
		out = append(out, llms.TextParts(llms.ChatMessageTypeSystem, system))
	}
	for _, m := range msgs {
		if err := ValidateParts(m.Parts); err != nil {
			return nil, err
		}
		role := llms.ChatMessageTypeHuman
		if m.Role == RoleAssistant {
			role = llms.ChatMessageTypeAI
		}
		content := llms.MessageContent{Role: role}
		for _, part := range m.Parts {
			if part.Image != nil {
				content.Parts = append(content.Parts, llms.BinaryPart(part.Image.MIMEType, part.Image.Data))
				continue
			}
			content.Parts = append(content.Parts, llms.TextPart(part.Text))
		}
		out = append(out, content)
	}
	return out, nil
}

func generationInt(info map[string]any, key string) int {
	switch v := info[key].(type) {
	case int:
		return v
	case int64:
		return int(v)
	case float64:
		return int(v)
	}
	return 0
}

func mapOllamaError(err error) error {
	var unavail *ErrProviderUnavailable
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) || errors.As(err, &unavail) {
		return err
	}
	return &ErrProviderUnavailable{Err: err}
}
