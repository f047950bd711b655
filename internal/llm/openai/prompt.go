package openai

import (
	"fmt"
	"strings"

	"tender-backend/internal/llm"
)

// Message represents an OpenAI chat message.
type Message struct {
	Role    string
	Content string
}

// maxPromptChars caps the document text sent in one request.
const maxPromptChars = 24000

const (
	systemKeywords = "You generate search keywords for matching a company against public tenders. Respond with JSON only. No markdown."
	systemFields   = "You extract a company profile from document text. Respond with JSON only. No markdown. Never omit keys."
)

var localeNames = map[string]string{
	"en": "English",
	"ar": "Arabic",
	"fr": "French",
}

// BuildKeywordPrompt creates the chat messages for keyword generation.
func BuildKeywordPrompt(input llm.KeywordInput) []Message {
	src := localeName(input.SourceLocale, "English")
	dst := localeName(input.TargetLocale, "Arabic")
	developer := fmt.Sprintf(`Return an object {"keywords":[{"source":"...","target":"..."}]}.
Each source is a short %s search phrase a tender title would contain. Each target is its %s equivalent.
Return at most %d pairs, most specific first. Return an empty list when the text has no business content.`,
		src, dst, llm.MaxKeywords)

	var user strings.Builder
	if len(input.Industries) > 0 {
		user.WriteString("Industries: ")
		user.WriteString(strings.Join(input.Industries, ", "))
		user.WriteString("\n")
	}
	if len(input.Specializations) > 0 {
		user.WriteString("Specializations: ")
		user.WriteString(strings.Join(input.Specializations, ", "))
		user.WriteString("\n")
	}
	user.WriteString("Document Text:\n")
	user.WriteString(truncate(input.Text))

	return []Message{
		{Role: "system", Content: systemKeywords},
		{Role: "developer", Content: developer},
		{Role: "user", Content: user.String()},
	}
}

// BuildFieldsPrompt creates the chat messages for profile field extraction.
func BuildFieldsPrompt(input llm.FieldInput) []Message {
	developer := `Return an object with keys companyDescription (string), businessType (string), activities (string[]), industries (string[]), specializations (string[]).
Use an empty string or empty list when the document does not say. Do not invent facts.`
	return []Message{
		{Role: "system", Content: systemFields},
		{Role: "developer", Content: developer},
		{Role: "user", Content: "Document Text:\n" + truncate(input.Text)},
	}
}

func localeName(code, def string) string {
	code = strings.ToLower(strings.TrimSpace(code))
	if name, ok := localeNames[code]; ok {
		return name
	}
	if code != "" {
		return code
	}
	return def
}

func truncate(text string) string {
	text = strings.TrimSpace(text)
	r := []rune(text)
	if len(r) <= maxPromptChars {
		return text
	}
	return string(r[:maxPromptChars])
}
