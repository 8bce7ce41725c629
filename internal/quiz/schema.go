package quiz

import "github.com/abhisek/edusarthi/internal/llm"

// Schema is the quiz wire shape requested from the model. Strict-mode
// providers need additionalProperties false and every property required.
var Schema = &llm.Schema{
	Name:        "quiz",
	Description: "A multiple-choice quiz",
	Definition: map[string]any{
		"type": "object",
		"properties": map[string]any{
			"questions": map[string]any{
				"type":        "array",
				"description": "The quiz questions in order",
				"items": map[string]any{
					"type": "object",
					"properties": map[string]any{
						"question": map[string]any{
							"type":        "string",
							"description": "The question text",
						},
						"options": map[string]any{
							"type":        "array",
							"items":       map[string]any{"type": "string"},
							"description": "The answer choices, at least two",
						},
						"correctAnswer": map[string]any{
							"type":        "string",
							"description": "The correct choice, copied verbatim from options",
						},
					},
					"required":             []any{"question", "options", "correctAnswer"},
					"additionalProperties": false,
				},
			},
		},
		"required":             []any{"questions"},
		"additionalProperties": false,
	},
}
