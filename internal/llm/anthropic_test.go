package llm

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"
)

func newTestAnthropicProvider(t *testing.T, handler http.HandlerFunc) *AnthropicProvider {
	t.Helper()
	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)

	client := anthropic.NewClient(
		option.WithAPIKey("test-key"),
		option.WithBaseURL(server.URL),
		option.WithMaxRetries(0),
	)
	return &AnthropicProvider{
		client: &client,
		model:  "claude-haiku-4-5-20251001",
	}
}

func anthropicErrorHandler(status int, errType string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(status)
		json.NewEncoder(w).Encode(map[string]any{
			"type":  "error",
			"error": map[string]any{"type": errType, "message": "nope"},
		})
	}
}

func TestAnthropicProvider_HappyPathWithImage(t *testing.T) {
	var body map[string]any
	handler := func(w http.ResponseWriter, r *http.Request) {
		raw, _ := io.ReadAll(r.Body)
		json.Unmarshal(raw, &body)

		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(map[string]any{
			"id":   "msg_test",
			"type": "message",
			"role": "assistant",
			"content": []map[string]any{
				{"type": "text", "text": "Photosynthesis turns light into sugar."},
			},
			"model":       "claude-haiku-4-5-20251001",
			"stop_reason": "end_turn",
			"usage":       map[string]any{"input_tokens": 50, "output_tokens": 30},
		})
	}

	p := newTestAnthropicProvider(t, handler)
	resp, err := p.Generate(context.Background(), Request{
		System: "You are a tutor.",
		Messages: []Message{UserMessage(
			TextPart("Explain this diagram."),
			ImagePart("image/jpeg", []byte{0xff, 0xd8, 0xff}),
		)},
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if resp.Text != "Photosynthesis turns light into sugar." {
		t.Fatalf("unexpected text %q", resp.Text)
	}
	if resp.Usage.TotalTokens != 80 {
		t.Fatalf("expected 80 total tokens, got %d", resp.Usage.TotalTokens)
	}

	if got := body["max_tokens"]; got != float64(anthropicDefaultMaxTokens) {
		t.Errorf("max_tokens = %v, want default %d", got, anthropicDefaultMaxTokens)
	}
	msgs := body["messages"].([]any)
	content := msgs[0].(map[string]any)["content"].([]any)
	if len(content) != 2 {
		t.Fatalf("expected 2 content blocks, got %d", len(content))
	}
	img := content[1].(map[string]any)
	if img["type"] != "image" {
		t.Fatalf("expected image block, got %v", img["type"])
	}
	src := img["source"].(map[string]any)
	if src["media_type"] != "image/jpeg" || src["data"] != "/9j/" {
		t.Errorf("unexpected image source: %v", src)
	}
}

func TestAnthropicProvider_RejectsEmptyTurn(t *testing.T) {
	p := newTestAnthropicProvider(t, func(w http.ResponseWriter, r *http.Request) {
		t.Error("request must not reach the server")
	})
	_, err := p.Generate(context.Background(), Request{Messages: []Message{UserMessage()}})
	if !errors.Is(err, ErrInvalidRequest) {
		t.Fatalf("expected ErrInvalidRequest, got %v", err)
	}
}

func TestAnthropicProvider_RateLimit(t *testing.T) {
	p := newTestAnthropicProvider(t, anthropicErrorHandler(http.StatusTooManyRequests, "rate_limit_error"))
	_, err := p.Generate(context.Background(), Request{
		Messages: []Message{UserMessage(TextPart("test"))},
	})
	var rl *ErrRateLimit
	if !errors.As(err, &rl) {
		t.Fatalf("expected ErrRateLimit, got: %T (%v)", err, err)
	}
}

func TestAnthropicProvider_ServerError(t *testing.T) {
	p := newTestAnthropicProvider(t, anthropicErrorHandler(http.StatusInternalServerError, "api_error"))
	_, err := p.Generate(context.Background(), Request{
		Messages: []Message{UserMessage(TextPart("test"))},
	})
	var unavail *ErrProviderUnavailable
	if !errors.As(err, &unavail) {
		t.Fatalf("expected ErrProviderUnavailable, got: %T (%v)", err, err)
	}
}

func writeAnthropicSSE(w http.ResponseWriter, deltas ...string) {
	w.Header().Set("Content-Type", "text/event-stream")
	fmt.Fprint(w, "event: message_start\n")
	fmt.Fprint(w, `data: {"type":"message_start","message":{"id":"msg_1","type":"message","role":"assistant","content":[],"model":"claude-haiku-4-5-20251001","stop_reason":null,"usage":{"input_tokens":5,"output_tokens":0}}}`+"\n\n")
	fmt.Fprint(w, "event: content_block_start\n")
	fmt.Fprint(w, `data: {"type":"content_block_start","index":0,"content_block":{"type":"text","text":""}}`+"\n\n")
	for _, d := range deltas {
		b, _ := json.Marshal(map[string]any{
			"type":  "content_block_delta",
			"index": 0,
			"delta": map[string]any{"type": "text_delta", "text": d},
		})
		fmt.Fprintf(w, "event: content_block_delta\ndata: %s\n\n", b)
	}
	fmt.Fprint(w, "event: content_block_stop\n")
	fmt.Fprint(w, `data: {"type":"content_block_stop","index":0}`+"\n\n")
	fmt.Fprint(w, "event: message_stop\n")
	fmt.Fprint(w, `data: {"type":"message_stop"}`+"\n\n")
}

func TestAnthropicConversation_StreamsAndKeepsHistory(t *testing.T) {
	var requests []map[string]any
	handler := func(w http.ResponseWriter, r *http.Request) {
		var body map[string]any
		json.NewDecoder(r.Body).Decode(&body)
		requests = append(requests, body)
		writeAnthropicSSE(w, "Hel", "lo", "!")
	}

	p := newTestAnthropicProvider(t, handler)
	conv, err := p.StartChat(context.Background(), ChatConfig{System: "Be brief."})
	if err != nil {
		t.Fatalf("start chat: %v", err)
	}

	var chunks []string
	for chunk, err := range conv.SendStream(context.Background(), []Part{TextPart("hi")}) {
		if err != nil {
			t.Fatalf("stream error: %v", err)
		}
		chunks = append(chunks, chunk)
	}
	if len(chunks) != 3 || chunks[0] != "Hel" || chunks[2] != "!" {
		t.Fatalf("unexpected chunks %q", chunks)
	}

	history := conv.History()
	if len(history) != 2 {
		t.Fatalf("expected 2 history entries, got %d", len(history))
	}
	if history[1].Role != RoleAssistant || history[1].Text() != "Hello!" {
		t.Fatalf("unexpected assistant turn %+v", history[1])
	}

	for range conv.SendStream(context.Background(), []Part{TextPart("again")}) {
	}
	if len(requests) != 2 {
		t.Fatalf("expected 2 requests, got %d", len(requests))
	}
	if n := len(requests[1]["messages"].([]any)); n != 3 {
		t.Errorf("second turn sent %d messages, want 3", n)
	}
	if requests[1]["stream"] != true {
		t.Errorf("expected stream=true, got %v", requests[1]["stream"])
	}
}

func TestAnthropicConversation_StreamError(t *testing.T) {
	p := newTestAnthropicProvider(t, anthropicErrorHandler(http.StatusInternalServerError, "api_error"))
	conv, _ := p.StartChat(context.Background(), ChatConfig{})

	var gotErr error
	for _, err := range conv.SendStream(context.Background(), []Part{TextPart("hi")}) {
		if err != nil {
			gotErr = err
		}
	}
	var unavail *ErrProviderUnavailable
	if !errors.As(gotErr, &unavail) {
		t.Fatalf("expected ErrProviderUnavailable, got: %T (%v)", gotErr, gotErr)
	}
	if h := conv.History(); len(h) != 0 {
		t.Fatalf("failed turn should not be recorded, got %d entries", len(h))
	}
}

func TestAnthropicModelMapping(t *testing.T) {
	tests := []struct {
		input    string
		expected string
	}{
		{"claude-sonnet", "claude-sonnet-4-5-20250929"},
		{"claude-haiku", "claude-haiku-4-5-20251001"},
		{"claude-sonnet-4-20250514", "claude-sonnet-4-20250514"}, // Pass-through
	}
	for _, tt := range tests {
		got := resolveModel(tt.input, anthropicModels)
		if got != tt.expected {
			t.Errorf("resolveModel(%q) = %q, want %q", tt.input, got, tt.expected)
		}
	}
}
