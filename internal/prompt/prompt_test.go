package prompt

import (
	"strings"
	"testing"

	"github.com/abhisek/edusarthi/internal/llm"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type builder func(topic string, hasImage bool, lang Language, level string) string

var builders = map[string]builder{
	"notes": NotesPrompt,
	"quiz":  QuizPrompt,
	"qna":   QnAPrompt,
}

func TestPromptsCarryLanguageAndLevel(t *testing.T) {
	for name, build := range builders {
		t.Run(name, func(t *testing.T) {
			p := build("Photosynthesis", false, Hindi, "Class 10")
			assert.Contains(t, p, "Hindi (hi)")
			assert.Contains(t, p, "Class 10")
			assert.Contains(t, p, "Photosynthesis")
		})
	}
}

func TestImageGuidanceAtMostOnce(t *testing.T) {
	const marker = "An image is attached"
	for name, build := range builders {
		t.Run(name, func(t *testing.T) {
			assert.Equal(t, 0, strings.Count(build("Fractions", false, English, "Class 5"), marker))
			assert.Equal(t, 1, strings.Count(build("Fractions", true, English, "Class 5"), marker))
		})
	}
}

func TestImageOnlyInput(t *testing.T) {
	p := NotesPrompt("  ", true, English, "Class 8")
	assert.Contains(t, p, "based on the attached image")
	assert.NotContains(t, p, `""`)

	q := QnAPrompt("", true, English, "Class 8")
	assert.Contains(t, q, "shared a question as an image")
}

func TestQuizPromptShape(t *testing.T) {
	p := QuizPrompt("Gravity", false, English, "Class 9")
	assert.Contains(t, p, "5-question")
	assert.Contains(t, p, `"correctAnswer"`)
	assert.Contains(t, p, "must not contain any Markdown")
}

func TestQnAPromptSteps(t *testing.T) {
	p := QnAPrompt("What is 15% of 80?", false, Hinglish, "Class 7")
	assert.Contains(t, p, "step-by-step")
	assert.Contains(t, p, "show the calculations")
	assert.Contains(t, p, "(hn)")
	assert.Contains(t, p, `"What is 15% of 80?"`)
}

func TestChatSystemInstruction(t *testing.T) {
	p := ChatSystemInstruction(English, "Class 12")
	assert.Contains(t, p, "EduSarthi AI")
	assert.Contains(t, p, "Class 12")
	assert.Contains(t, p, "English (en)")
	assert.Contains(t, p, "steer the conversation back to studies")
}

func TestUnknownLanguagePassesThrough(t *testing.T) {
	lang := ParseLanguage(" TA ")
	assert.Equal(t, Language("ta"), lang)
	assert.False(t, lang.Known())
	assert.Contains(t, NotesPrompt("Cells", false, lang, "Class 6"), "strictly in ta.")
}

func TestParts(t *testing.T) {
	parts := Parts("explain", nil)
	require.Len(t, parts, 1)
	assert.Equal(t, "explain", parts[0].Text)

	parts = Parts("explain", []byte{0xff, 0xd8})
	require.Len(t, parts, 2)
	assert.False(t, parts[0].IsImage())
	require.True(t, parts[1].IsImage())
	assert.Equal(t, ImageMIMEType, parts[1].Image.MIMEType)

	parts = Parts(" ", []byte{0xff, 0xd8})
	require.Len(t, parts, 1)
	assert.True(t, parts[0].IsImage())
	assert.NoError(t, llm.ValidateParts(parts))
}

func TestPreconditions(t *testing.T) {
	assert.ErrorIs(t, CheckContext("", "Class 5"), ErrMissingLanguage)
	assert.ErrorIs(t, CheckContext(English, " "), ErrMissingLevel)
	assert.NoError(t, CheckContext(English, "Class 5"))

	assert.ErrorIs(t, CheckInput("  ", nil), ErrEmptyInput)
	assert.NoError(t, CheckInput("", []byte{1}))
	assert.NoError(t, CheckInput("topic", nil))
}

func TestTaskString(t *testing.T) {
	assert.Equal(t, "notes", TaskNotes.String())
	assert.Equal(t, "quiz", TaskQuiz.String())
	assert.Equal(t, "qna", TaskQnA.String())
}
