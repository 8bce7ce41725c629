// Package quiz parses and checks model-generated multiple-choice quizzes.
package quiz

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/samber/lo"
)

// Question is one multiple-choice question.
type Question struct {
	Question      string   `json:"question"`
	Options       []string `json:"options"`
	CorrectAnswer string   `json:"correctAnswer"`
}

// Errors reported by ParseStrict.
var (
	ErrMalformedJSON    = errors.New("quiz output is not valid JSON")
	ErrMissingQuestions = errors.New("quiz output has no questions array")
	ErrNoValidQuestions = errors.New("quiz output has no usable questions")
)

// Rejection records why an entry was dropped.
type Rejection struct {
	Index  int
	Reason string
}

// Parsed is the outcome of ParseStrict.
type Parsed struct {
	Questions []Question
	Dropped   []Rejection
}

type check struct {
	name string
	fn   func(Question) bool
}

var checks = []check{
	{"blank question text", func(q Question) bool { return strings.TrimSpace(q.Question) != "" }},
	{"fewer than two options", func(q Question) bool { return len(q.Options) >= 2 }},
	{"correct answer not among options", func(q Question) bool { return lo.Contains(q.Options, q.CorrectAnswer) }},
}

// Parse returns the usable questions in raw, or an empty slice when the
// output cannot be used. It never fails.
func Parse(raw string) []Question {
	parsed, _ := ParseStrict(raw)
	if parsed.Questions == nil {
		return []Question{}
	}
	return parsed.Questions
}

// ParseStrict parses raw model output and drops invalid entries, reporting
// why the output was unusable when no question survives.
func ParseStrict(raw string) (Parsed, error) {
	var doc struct {
		Questions json.RawMessage `json:"questions"`
	}
	if err := json.Unmarshal([]byte(stripFence(raw)), &doc); err != nil {
		return Parsed{}, fmt.Errorf("%w: %v", ErrMalformedJSON, err)
	}

	var entries []json.RawMessage
	if len(doc.Questions) == 0 || json.Unmarshal(doc.Questions, &entries) != nil || entries == nil {
		return Parsed{}, ErrMissingQuestions
	}

	var out Parsed
	for i, entry := range entries {
		var q Question
		if err := json.Unmarshal(entry, &q); err != nil {
			out.Dropped = append(out.Dropped, Rejection{Index: i, Reason: "malformed entry"})
			continue
		}
		failed, bad := lo.Find(checks, func(c check) bool { return !c.fn(q) })
		if bad {
			out.Dropped = append(out.Dropped, Rejection{Index: i, Reason: failed.name})
			continue
		}
		out.Questions = append(out.Questions, q)
	}

	if len(out.Questions) == 0 {
		return out, fmt.Errorf("%w: %d of %d entries dropped", ErrNoValidQuestions, len(out.Dropped), len(entries))
	}
	return out, nil
}

// stripFence trims whitespace and a surrounding Markdown code fence, which
// some models add despite being told not to.
func stripFence(raw string) string {
	s := strings.TrimSpace(raw)
	if !strings.HasPrefix(s, "```") {
		return s
	}
	s = strings.TrimPrefix(s, "```")
	if nl := strings.IndexByte(s, '\n'); nl >= 0 {
		s = s[nl+1:]
	}
	s = strings.TrimSuffix(strings.TrimSpace(s), "```")
	return strings.TrimSpace(s)
}
