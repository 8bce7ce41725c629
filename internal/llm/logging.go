package llm

import (
	"context"
	"encoding/json"
	"fmt"
	"iter"
	"strings"
	"time"

	"github.com/abhisek/edusarthi/internal/logger"
	"github.com/abhisek/edusarthi/internal/store"
)

// LoggingProvider is a decorator that records every LLM request as an event
// and logs failures. Either sink may be nil.
type LoggingProvider struct {
	inner     Provider
	provider  string
	log       *logger.Logger
	eventRepo store.EventRepo
}

// WithLogging wraps a Provider with event logging.
func WithLogging(p Provider, providerName string, log *logger.Logger, repo store.EventRepo) Provider {
	if log == nil {
		log = logger.NewNop()
	}
	return &LoggingProvider{inner: p, provider: providerName, log: log, eventRepo: repo}
}

func (l *LoggingProvider) Generate(ctx context.Context, req Request) (*Response, error) {
	start := time.Now()

	resp, err := l.inner.Generate(ctx, req)

	data := l.event(ctx, start, err)
	data.RequestBody = serializeRequest(req.System, req.Messages, req.Schema)
	if resp != nil {
		data.InputTokens = resp.Usage.InputTokens
		data.OutputTokens = resp.Usage.OutputTokens
		data.Model = resp.Model
		data.ResponseBody = resp.Text
	}
	l.record(ctx, data)

	return resp, err
}

func (l *LoggingProvider) StartChat(ctx context.Context, cfg ChatConfig) (Conversation, error) {
	conv, err := l.inner.StartChat(ctx, cfg)
	if err != nil {
		l.log.Error("start chat failed", "provider", l.provider, "model", l.inner.ModelID(), "error", err)
		return nil, err
	}
	return &loggingConversation{inner: conv, parent: l, system: cfg.System}, nil
}

func (l *LoggingProvider) ModelID() string {
	return l.inner.ModelID()
}

func (l *LoggingProvider) event(ctx context.Context, start time.Time, err error) store.LLMRequestEventData {
	data := store.LLMRequestEventData{
		Provider:  l.provider,
		Model:     l.inner.ModelID(),
		Purpose:   PurposeFrom(ctx),
		SessionID: SessionIDFrom(ctx),
		LatencyMs: time.Since(start).Milliseconds(),
		Success:   err == nil,
	}
	if err != nil {
		data.ErrorMessage = err.Error()
	}
	return data
}

func (l *LoggingProvider) record(ctx context.Context, data store.LLMRequestEventData) {
	if data.Success {
		l.log.Debug("llm request",
			"provider", data.Provider, "model", data.Model, "purpose", data.Purpose,
			"input_tokens", data.InputTokens, "output_tokens", data.OutputTokens,
			"latency_ms", data.LatencyMs)
	} else {
		l.log.Warn("llm request failed",
			"provider", data.Provider, "model", data.Model, "purpose", data.Purpose,
			"latency_ms", data.LatencyMs, "error", data.ErrorMessage)
	}

	if l.eventRepo == nil {
		return
	}
	// Log the event but don't fail the request if logging fails.
	if err := l.eventRepo.AppendLLMRequest(ctx, data); err != nil {
		l.log.Warn("failed to record LLM request event", "error", err)
	}
}

// loggingConversation records one event per streamed turn once the turn
// ends, whether it completed, failed or was abandoned.
type loggingConversation struct {
	inner  Conversation
	parent *LoggingProvider
	system string
}

func (c *loggingConversation) SendStream(ctx context.Context, parts []Part) iter.Seq2[string, error] {
	return func(yield func(string, error) bool) {
		start := time.Now()
		var (
			reply     strings.Builder
			streamErr error
		)
		defer func() {
			data := c.parent.event(ctx, start, streamErr)
			data.RequestBody = serializeRequest(c.system, []Message{UserMessage(parts...)}, nil)
			data.ResponseBody = reply.String()
			c.parent.record(context.WithoutCancel(ctx), data)
		}()

		for chunk, err := range c.inner.SendStream(ctx, parts) {
			if err != nil {
				streamErr = err
			} else {
				reply.WriteString(chunk)
			}
			if !yield(chunk, err) {
				return
			}
		}
	}
}

func (c *loggingConversation) History() []Message {
	return c.inner.History()
}

// serializeRequest builds a readable representation of the LLM request.
// Image bytes are summarized, not dumped.
func serializeRequest(system string, msgs []Message, schema *Schema) string {
	var b strings.Builder

	if system != "" {
		b.WriteString("[system]\n")
		b.WriteString(system)
		b.WriteString("\n\n")
	}

	for _, m := range msgs {
		fmt.Fprintf(&b, "[%s]\n", m.Role)
		for _, p := range m.Parts {
			if p.Image != nil {
				fmt.Fprintf(&b, "<image %s, %d bytes>\n", p.Image.MIMEType, len(p.Image.Data))
				continue
			}
			b.WriteString(p.Text)
			b.WriteString("\n")
		}
		b.WriteString("\n")
	}

	if schema != nil {
		schemaDef, err := json.Marshal(schema.Definition)
		if err == nil {
			fmt.Fprintf(&b, "[schema: %s]\n", schema.Name)
			b.Write(schemaDef)
			b.WriteString("\n")
		}
	}

	return b.String()
}
