package phase

import "strings"

// profanity is the word list penalized by the free-text evaluator. Matches
// are whole-token and case-insensitive.
var profanity = []string{
	"damn", "hell", "bastard", "shit", "fuck", "ass", "bitch",
}

// EvaluateFreeText scores an improvised answer to a choice round. Hostile
// language heats the room, lazy keyboard mashing reads as erratic behavior,
// and anything else counts as honest engagement.
func EvaluateFreeText(text string) (deltas map[string]int, note string) {
	switch {
	case containsProfanity(text):
		return map[string]int{"tension": 8, "intimacy": -3, "danger": 15},
			"hostile outburst"
	case degenerate(text):
		return map[string]int{"danger": 10, "tension": 5},
			"erratic behavior"
	default:
		return map[string]int{"tension": 3, "intimacy": 2, "danger": 4, "spend": 1},
			"improvised engagement"
	}
}

func containsProfanity(text string) bool {
	for _, field := range strings.Fields(strings.ToLower(text)) {
		token := strings.Trim(field, ".,!?;:\"'()")
		for _, word := range profanity {
			if token == word {
				return true
			}
		}
	}
	return false
}

// degenerate reports keyboard-mash input: more than three runes drawn from
// at most two distinct runes.
func degenerate(text string) bool {
	trimmed := strings.TrimSpace(text)
	runes := []rune(trimmed)
	if len(runes) <= 3 {
		return false
	}
	distinct := make(map[rune]struct{}, 3)
	for _, r := range runes {
		distinct[r] = struct{}{}
		if len(distinct) > 2 {
			return false
		}
	}
	return true
}
