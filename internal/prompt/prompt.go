// Package prompt builds the instruction text and content parts sent to the
// model for each study task. Everything here is pure and deterministic.
package prompt

import (
	"errors"
	"fmt"
	"strings"

	"github.com/abhisek/edusarthi/internal/llm"
)

// QuizQuestionCount is the number of questions every quiz asks for.
const QuizQuestionCount = 5

// ImageMIMEType is the declared type of every attached image.
const ImageMIMEType = "image/jpeg"

// Precondition errors. Nothing is sent when one of these is returned.
var (
	ErrEmptyInput      = errors.New("a topic, question or image is required")
	ErrMissingLevel    = errors.New("education level is not set")
	ErrMissingLanguage = errors.New("response language is not set")
)

// Task identifies which study task a prompt is for.
type Task int

const (
	TaskNotes Task = iota
	TaskQuiz
	TaskQnA
)

func (t Task) String() string {
	switch t {
	case TaskNotes:
		return "notes"
	case TaskQuiz:
		return "quiz"
	case TaskQnA:
		return "qna"
	}
	return fmt.Sprintf("task(%d)", int(t))
}

// CheckContext verifies that language and level are set.
func CheckContext(lang Language, level string) error {
	if strings.TrimSpace(string(lang)) == "" {
		return ErrMissingLanguage
	}
	if strings.TrimSpace(level) == "" {
		return ErrMissingLevel
	}
	return nil
}

// CheckInput verifies that there is something to ask about.
func CheckInput(text string, image []byte) error {
	if strings.TrimSpace(text) == "" && len(image) == 0 {
		return ErrEmptyInput
	}
	return nil
}

// NotesPrompt asks for study notes on a topic.
func NotesPrompt(topic string, hasImage bool, lang Language, level string) string {
	var b strings.Builder

	fmt.Fprintf(&b, "Generate concise, easy-to-understand notes for a %s student", level)
	writeSubject(&b, "on the topic", topic)
	b.WriteString(imageGuidance(TaskNotes, hasImage))
	b.WriteString("The notes should include key definitions, the important points as a bulleted list, and a brief explanation.\n")
	fmt.Fprintf(&b, "The response must be written strictly in %s.\n", lang.Label())
	b.WriteString("Format the response in Markdown, using headings, bold text and bullet points.")

	return b.String()
}

// QuizPrompt asks for a multiple-choice quiz as raw JSON.
func QuizPrompt(topic string, hasImage bool, lang Language, level string) string {
	var b strings.Builder

	fmt.Fprintf(&b, "Generate a %d-question multiple-choice quiz for a %s student", QuizQuestionCount, level)
	writeSubject(&b, "on the topic", topic)
	b.WriteString(imageGuidance(TaskQuiz, hasImage))
	fmt.Fprintf(&b, "The questions and options must be written in %s.\n", lang.Label())
	b.WriteString("Each question must have at least two options, and correctAnswer must repeat one of the options exactly.\n")
	b.WriteString(`Return only raw JSON of the form {"questions":[{"question":"...","options":["..."],"correctAnswer":"..."}]}.` + "\n")
	b.WriteString("The JSON must not contain any Markdown or code fences.")

	return b.String()
}

// QnAPrompt asks for a worked answer to a student's question.
func QnAPrompt(question string, hasImage bool, lang Language, level string) string {
	var b strings.Builder

	fmt.Fprintf(&b, "You are an expert AI tutor for a %s student.", level)
	if q := strings.TrimSpace(question); q != "" {
		fmt.Fprintf(&b, " A student has asked the following question: %q.\n", q)
	} else {
		b.WriteString(" A student has shared a question as an image.\n")
	}
	b.WriteString(imageGuidance(TaskQnA, hasImage))
	b.WriteString("Provide a clear, accurate, step-by-step solution.\n")
	b.WriteString("For numerical problems, show the calculations. For theoretical questions, explain the concept clearly.\n")
	fmt.Fprintf(&b, "The response must be written strictly in %s.\n", lang.Label())
	b.WriteString("Format the entire response in Markdown.")

	return b.String()
}

// ChatSystemInstruction is the persona bound once per chat session.
func ChatSystemInstruction(lang Language, level string) string {
	var b strings.Builder

	fmt.Fprintf(&b, "You are 'EduSarthi AI', a friendly and patient AI tutor for school students in %s.\n", level)
	b.WriteString("Your goal is to help them understand their doubts about academic subjects.\n")
	b.WriteString("You can also analyze images sent by the student.\n")
	fmt.Fprintf(&b, "Explain concepts clearly and simply. Respond in %s.\n", lang.Label())
	b.WriteString("If the student asks about something unrelated to academics, politely steer the conversation back to studies.")

	return b.String()
}

// Parts assembles a turn: the text first, then the image if one is given.
// Blank text is left out when an image carries the turn.
func Parts(text string, image []byte) []llm.Part {
	if len(image) == 0 {
		return []llm.Part{llm.TextPart(text)}
	}
	var parts []llm.Part
	if strings.TrimSpace(text) != "" {
		parts = append(parts, llm.TextPart(text))
	}
	return append(parts, llm.ImagePart(ImageMIMEType, image))
}

// imageGuidance returns the image-primacy sentence for a task, or "" when
// no image is attached.
func imageGuidance(task Task, hasImage bool) string {
	if !hasImage {
		return ""
	}
	switch task {
	case TaskQnA:
		return "An image is attached to the question. Analyze it carefully, as it is the main part of the question.\n"
	case TaskQuiz:
		return "An image is attached. Use it as the primary context for the quiz questions.\n"
	default:
		return "An image is attached. Use it as the primary context for the notes.\n"
	}
}

func writeSubject(b *strings.Builder, lead, topic string) {
	if t := strings.TrimSpace(topic); t != "" {
		fmt.Fprintf(b, " %s: %q.\n", lead, t)
		return
	}
	b.WriteString(", based on the attached image.\n")
}
