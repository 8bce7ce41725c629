package llm

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	openai "github.com/sashabaranov/go-openai"
)

func newTestOpenAIProvider(t *testing.T, handler http.HandlerFunc) *OpenAIProvider {
	t.Helper()
	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)

	config := openai.DefaultConfig("test-key")
	config.BaseURL = server.URL + "/v1"

	return &OpenAIProvider{
		client: openai.NewClientWithConfig(config),
		model:  "gpt-4o-mini",
	}
}

func openAICompletion(content string) map[string]any {
	return map[string]any{
		"id":      "chatcmpl-test",
		"object":  "chat.completion",
		"created": 1234567890,
		"model":   "gpt-4o-mini",
		"choices": []map[string]any{{
			"index":         0,
			"message":       map[string]any{"role": "assistant", "content": content},
			"finish_reason": "stop",
		}},
		"usage": map[string]any{
			"prompt_tokens":     40,
			"completion_tokens": 25,
			"total_tokens":      65,
		},
	}
}

func termsSchema() *Schema {
	return &Schema{
		Name:        "test-terms",
		Description: "Key terms",
		Definition: map[string]any{
			"type":                 "object",
			"additionalProperties": false,
			"properties": map[string]any{
				"terms": map[string]any{"type": "array", "items": map[string]any{"type": "string"}},
			},
			"required": []string{"terms"},
		},
	}
}

func TestOpenAIProvider_StructuredOutput(t *testing.T) {
	var body map[string]any
	handler := func(w http.ResponseWriter, r *http.Request) {
		json.NewDecoder(r.Body).Decode(&body)
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(openAICompletion(`{"terms":["cell","nucleus"]}`))
	}

	p := newTestOpenAIProvider(t, handler)
	resp, err := p.Generate(context.Background(), Request{
		System:    "You are a biology tutor.",
		Messages:  []Message{UserMessage(TextPart("List key terms."))},
		Schema:    termsSchema(),
		MaxTokens: 256,
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if resp.Text != `{"terms":["cell","nucleus"]}` {
		t.Fatalf("unexpected text %q", resp.Text)
	}
	if resp.Usage.InputTokens != 40 || resp.Usage.OutputTokens != 25 {
		t.Fatalf("unexpected usage %+v", resp.Usage)
	}

	format := body["response_format"].(map[string]any)
	if format["type"] != "json_schema" {
		t.Fatalf("expected json_schema response format, got %v", format["type"])
	}
	msgs := body["messages"].([]any)
	if msgs[0].(map[string]any)["role"] != "system" {
		t.Errorf("expected system message first")
	}
}

func TestOpenAIProvider_SchemaMismatch(t *testing.T) {
	handler := func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(openAICompletion(`{"words":[]}`))
	}

	p := newTestOpenAIProvider(t, handler)
	_, err := p.Generate(context.Background(), Request{
		Messages: []Message{UserMessage(TextPart("List key terms."))},
		Schema:   termsSchema(),
	})
	var invErr *ErrInvalidResponse
	if !errors.As(err, &invErr) {
		t.Fatalf("expected ErrInvalidResponse, got: %T (%v)", err, err)
	}
	if invErr.Content != `{"words":[]}` {
		t.Errorf("expected raw content to be kept, got %q", invErr.Content)
	}
}

func TestOpenAIProvider_ImageAsDataURL(t *testing.T) {
	var body map[string]any
	handler := func(w http.ResponseWriter, r *http.Request) {
		json.NewDecoder(r.Body).Decode(&body)
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(openAICompletion("A triangle."))
	}

	p := newTestOpenAIProvider(t, handler)
	_, err := p.Generate(context.Background(), Request{
		Messages: []Message{UserMessage(
			TextPart("What shape is this?"),
			ImagePart("image/jpeg", []byte{0xff, 0xd8, 0xff}),
		)},
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	user := body["messages"].([]any)[0].(map[string]any)
	content := user["content"].([]any)
	if len(content) != 2 {
		t.Fatalf("expected 2 content parts, got %d", len(content))
	}
	img := content[1].(map[string]any)
	url := img["image_url"].(map[string]any)["url"].(string)
	if url != "data:image/jpeg;base64,/9j/" {
		t.Errorf("unexpected data URL %q", url)
	}
}

func TestOpenAIProvider_RateLimit(t *testing.T) {
	handler := func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusTooManyRequests)
		json.NewEncoder(w).Encode(map[string]any{
			"error": map[string]any{
				"type":    "tokens",
				"message": "Rate limit exceeded",
				"code":    "rate_limit_exceeded",
			},
		})
	}

	p := newTestOpenAIProvider(t, handler)
	_, err := p.Generate(context.Background(), Request{
		Messages: []Message{UserMessage(TextPart("test"))},
	})
	var rl *ErrRateLimit
	if !errors.As(err, &rl) {
		t.Fatalf("expected ErrRateLimit, got: %T (%v)", err, err)
	}
}

func TestOpenAIConversation_Stream(t *testing.T) {
	var turns []int
	handler := func(w http.ResponseWriter, r *http.Request) {
		var body map[string]any
		json.NewDecoder(r.Body).Decode(&body)
		turns = append(turns, len(body["messages"].([]any)))

		w.Header().Set("Content-Type", "text/event-stream")
		for _, d := range []string{"Two ", "plus ", "two."} {
			chunk, _ := json.Marshal(map[string]any{
				"id":      "chatcmpl-1",
				"object":  "chat.completion.chunk",
				"created": 1,
				"model":   "gpt-4o-mini",
				"choices": []map[string]any{{"index": 0, "delta": map[string]any{"content": d}}},
			})
			fmt.Fprintf(w, "data: %s\n\n", chunk)
		}
		fmt.Fprint(w, "data: [DONE]\n\n")
	}

	p := newTestOpenAIProvider(t, handler)
	conv, err := p.StartChat(context.Background(), ChatConfig{System: "Be brief."})
	if err != nil {
		t.Fatalf("start chat: %v", err)
	}

	var got strings.Builder
	for chunk, err := range conv.SendStream(context.Background(), []Part{TextPart("2+2?")}) {
		if err != nil {
			t.Fatalf("stream error: %v", err)
		}
		got.WriteString(chunk)
	}
	if got.String() != "Two plus two." {
		t.Fatalf("unexpected reply %q", got.String())
	}

	for range conv.SendStream(context.Background(), []Part{TextPart("and 3+3?")}) {
	}
	// system + user on the first turn; system + user + assistant + user on the second.
	if len(turns) != 2 || turns[0] != 2 || turns[1] != 4 {
		t.Fatalf("unexpected message counts per turn %v", turns)
	}
	if h := conv.History(); len(h) != 4 || h[1].Text() != "Two plus two." {
		t.Fatalf("unexpected history %+v", h)
	}
}

func TestOpenAIConversation_StopEarly(t *testing.T) {
	handler := func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/event-stream")
		for i := range 5 {
			chunk, _ := json.Marshal(map[string]any{
				"id":      "chatcmpl-1",
				"object":  "chat.completion.chunk",
				"model":   "gpt-4o-mini",
				"choices": []map[string]any{{"index": 0, "delta": map[string]any{"content": fmt.Sprint(i)}}},
			})
			fmt.Fprintf(w, "data: %s\n\n", chunk)
		}
		fmt.Fprint(w, "data: [DONE]\n\n")
	}

	p := newTestOpenAIProvider(t, handler)
	conv, _ := p.StartChat(context.Background(), ChatConfig{})

	n := 0
	for range conv.SendStream(context.Background(), []Part{TextPart("count")}) {
		n++
		if n == 2 {
			break
		}
	}
	if n != 2 {
		t.Fatalf("expected to stop after 2 chunks, got %d", n)
	}
	// An abandoned reply leaves no trace in history.
	if h := conv.History(); len(h) != 0 {
		t.Fatalf("expected empty history, got %d entries", len(h))
	}
}

func TestOpenAIProvider_BaseURLOverride(t *testing.T) {
	p, err := NewOpenAIProvider(OpenAIConfig{
		APIKey:  "test-key",
		Model:   "gpt-4o",
		BaseURL: "https://openrouter.ai/api/v1",
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if p.ModelID() != "gpt-4o" {
		t.Fatalf("expected 'gpt-4o', got %q", p.ModelID())
	}
}

func TestOpenAIProvider_MissingKey(t *testing.T) {
	_, err := NewOpenAIProvider(OpenAIConfig{})
	var cfgErr *ConfigurationError
	if !errors.As(err, &cfgErr) {
		t.Fatalf("expected ConfigurationError, got %T", err)
	}
}
