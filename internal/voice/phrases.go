package voice

import "sort"

// Description is the HOLLY voice description. It doubles as the reference
// text for local voice conditioning.
const Description = `Female voice in her 30s with an American accent.
Confident, intelligent, warm tone with clear diction.
Professional yet friendly, conversational pacing.`

// CommonPhrases are short responses worth synthesizing ahead of time.
var CommonPhrases = map[string]string{
	"hello":      "Hello Hollywood!",
	"ready":      "I'm ready to help!",
	"working":    "Working on that now...",
	"done":       "All done!",
	"error":      "I encountered an error.",
	"success":    "Success! Task completed.",
	"analyzing":  "Analyzing that for you...",
	"thinking":   "Let me think about that...",
	"understood": "Understood!",
	"goodbye":    "Goodbye, Hollywood!",
}

// Phrases returns the common phrases ordered by name.
func Phrases() []string {
	names := make([]string, 0, len(CommonPhrases))
	for name := range CommonPhrases {
		names = append(names, name)
	}
	sort.Strings(names)

	phrases := make([]string, len(names))
	for i, name := range names {
		phrases[i] = CommonPhrases[name]
	}
	return phrases
}
