// Package provider turns a system prompt and a user message into reply text
// through one of a closed set of language-model backends.
package provider

import "strings"

// Kind names a backend. The set is closed; unknown names resolve to a fallback.
type Kind string

const (
	Groq    Kind = "groq"
	Gemini  Kind = "gemini"
	ChatGPT Kind = "chatgpt"
	Ark     Kind = "ark"
)

var kinds = []Kind{Groq, Gemini, ChatGPT, Ark}

// Kinds lists every known backend.
func Kinds() []Kind {
	return append([]Kind(nil), kinds...)
}

// ParseKind matches name case-insensitively against the known kinds.
func ParseKind(name string) (Kind, bool) {
	k := Kind(strings.ToLower(strings.TrimSpace(name)))
	for _, known := range kinds {
		if k == known {
			return k, true
		}
	}
	return "", false
}

// Resolve is ParseKind with a fallback for empty or unknown names.
func Resolve(name string, fallback Kind) Kind {
	if k, ok := ParseKind(name); ok {
		return k
	}
	return fallback
}

// DisplayName is the label used in failure texts.
func (k Kind) DisplayName() string {
	switch k {
	case Groq:
		return "Groq"
	case Gemini:
		return "Gemini"
	case ChatGPT:
		return "OpenAI"
	case Ark:
		return "Ark"
	default:
		return string(k)
	}
}
