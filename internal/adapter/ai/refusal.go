package ai

import "strings"

// refusalIndicators are phrases models use when declining a task instead of
// answering with the requested JSON.
var refusalIndicators = []string{
	"i'm sorry", "i cannot", "i can't", "i'm unable", "i apologize",
	"i'm afraid", "as an ai", "i don't have access",
}

// LooksLikeRefusal reports whether a response without JSON reads like a
// refusal. It only annotates parse-failure diagnostics; it never changes the
// outcome of a call.
func LooksLikeRefusal(raw string) bool {
	if strings.Contains(raw, "{") {
		return false
	}
	lower := strings.ToLower(raw)
	for _, indicator := range refusalIndicators {
		if strings.Contains(lower, indicator) {
			return true
		}
	}
	return false
}
