package prompts

import "strings"

const DefaultSystem = "You are a helpful phone assistant. Keep responses short and conversational, as they are spoken aloud to a caller."

// ForSession resolves the final system prompt for a call session.
func ForSession(systemPrompt string) string {
	if systemPrompt != "" {
		return systemPrompt
	}
	return DefaultSystem
}

// LanguageDirective wraps the session language into a system instruction
// sent alongside the conversation history on every generation.
func LanguageDirective(lang string) string {
	return "Respond in the language with BCP-47 tag \"" + lang + "\"."
}

// fillers are short phrases spoken while the generator is still working
// on its first token. Keyed by primary language subtag.
var fillers = map[string]string{
	"en": "One moment.",
	"es": "Un momento.",
	"fr": "Un instant.",
	"de": "Einen Moment.",
}

// apologies are spoken when a generation fails mid-call.
var apologies = map[string]string{
	"en": "Sorry, I'm having trouble right now. Could you say that again?",
	"es": "Perdón, estoy teniendo problemas ahora mismo. ¿Puede repetirlo?",
	"fr": "Désolé, j'ai un problème en ce moment. Pouvez-vous répéter ?",
	"de": "Entschuldigung, ich habe gerade ein Problem. Können Sie das wiederholen?",
}

// Filler returns the dead-air filler phrase for the given language tag.
func Filler(lang string) string {
	return lookup(fillers, lang)
}

// Apology returns the generation-failure apology for the given language tag.
func Apology(lang string) string {
	return lookup(apologies, lang)
}

func lookup(m map[string]string, lang string) string {
	if s, ok := m[lang]; ok {
		return s
	}
	// "en-US" → "en"
	if base, _, found := strings.Cut(lang, "-"); found {
		if s, ok := m[base]; ok {
			return s
		}
	}
	return m["en"]
}
