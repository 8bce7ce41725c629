package prompt

import "strings"

// Language is a response-language code such as "en".
type Language string

// Languages offered by the app. Other codes pass through to the model.
const (
	English  Language = "en"
	Hindi    Language = "hi"
	Hinglish Language = "hn"
)

var languageNames = map[Language]string{
	English:  "English",
	Hindi:    "Hindi",
	Hinglish: "Hinglish",
}

// ParseLanguage normalizes a user-supplied code. Unknown codes are kept.
func ParseLanguage(s string) Language {
	return Language(strings.ToLower(strings.TrimSpace(s)))
}

// Known reports whether the code is one of the offered languages.
func (l Language) Known() bool {
	_, ok := languageNames[l]
	return ok
}

// Label returns the form used inside prompts, e.g. "English (en)".
// Unknown codes are returned as-is.
func (l Language) Label() string {
	if name, ok := languageNames[l]; ok {
		return name + " (" + string(l) + ")"
	}
	return string(l)
}

func (l Language) String() string { return string(l) }
