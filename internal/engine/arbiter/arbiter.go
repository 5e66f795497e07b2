// Package arbiter scores and orders candidate persona replies.
//
// Scoring is deliberately coarse and deterministic: token overlap for
// relevance, shared-token similarity against recent history for novelty, and
// discourse-transition keywords plus a per-role base for narrative progress.
// The scores order delivery; they never gate whether a reply is delivered.
package arbiter

import (
	"sort"
	"strings"
	"time"

	"github.com/ashfall-games/parlor/internal/engine/intent"
	"github.com/ashfall-games/parlor/internal/engine/persona"
	"github.com/ashfall-games/parlor/internal/engine/scene"
)

const (
	// noveltyWindow is how many recent coordination entries a reply is
	// compared against.
	noveltyWindow = 5
	// shortReplyRunes penalizes replies below this length.
	shortReplyRunes = 10
	// sharedTokenSimilar marks two texts as highly similar when they
	// share more than this many tokens.
	sharedTokenSimilar = 3

	baseStagger = 500 * time.Millisecond
	rankStagger = 800 * time.Millisecond
)

// Response is one candidate persona reply with its ordering data.
type Response struct {
	Role    persona.Role
	Name    string
	Content string
	Tier    intent.Tier

	Relevance float64
	Novelty   float64
	Progress  float64

	// Deltas are the metric side-effects attributed to this reply,
	// applied exactly once at delivery time.
	Deltas map[string]int

	// Fallback marks a deterministic canned line substituted for a
	// failed generation call.
	Fallback bool
}

// Combined is the tie-break score inside one priority tier.
func (r Response) Combined() float64 {
	return r.Relevance + r.Novelty + r.Progress
}

// progressKeywords mark discourse transitions that move the story forward.
var progressKeywords = []string{
	"suddenly", "then", "at that moment", "without warning",
	"notices", "realizes", "discovers", "reveals",
	"appears", "vanishes", "rings out", "falls silent",
}

// Score fills the three quality scores for a reply to message, judged
// against recent coordination history.
func Score(reply, message string, history []scene.Entry, p persona.Persona) (relevance, novelty, progress float64) {
	relevance = relevanceScore(reply, message)
	novelty = noveltyScore(reply, history)
	progress = progressScore(reply, p.ProgressBase)
	return relevance, novelty, progress
}

func relevanceScore(reply, message string) float64 {
	messageTokens := tokenSet(message)
	replyTokens := tokenSet(reply)
	if len(messageTokens) == 0 {
		return 0
	}

	overlap := 0
	for token := range messageTokens {
		if _, ok := replyTokens[token]; ok {
			overlap++
		}
	}
	relevance := float64(overlap) / float64(len(messageTokens))
	if relevance > 1 {
		relevance = 1
	}
	if len([]rune(reply)) < shortReplyRunes {
		relevance *= 0.5
	}
	return relevance
}

func noveltyScore(reply string, history []scene.Entry) float64 {
	if len(history) == 0 {
		return 1
	}
	start := len(history) - noveltyWindow
	if start < 0 {
		start = 0
	}

	maxSimilarity := 0.0
	replyTrimmed := strings.TrimSpace(reply)
	replyTokens := tokenSet(reply)
	for _, entry := range history[start:] {
		similarity := 0.0
		switch {
		case replyTrimmed == strings.TrimSpace(entry.Content):
			similarity = 1.0
		case sharedTokens(replyTokens, tokenSet(entry.Content)) > sharedTokenSimilar:
			similarity = 0.7
		}
		if similarity > maxSimilarity {
			maxSimilarity = similarity
		}
	}
	return 1 - maxSimilarity
}

func progressScore(reply string, base float64) float64 {
	lowered := strings.ToLower(reply)
	score := base
	for _, keyword := range progressKeywords {
		if strings.Contains(lowered, keyword) {
			score += 0.2
		}
	}
	if score > 1 {
		score = 1
	}
	return score
}

// Rank orders responses by priority tier, then combined score. The sort is
// stable so equal candidates keep their arbitration order.
func Rank(responses []Response) []Response {
	ranked := make([]Response, len(responses))
	copy(ranked, responses)
	sort.SliceStable(ranked, func(i, j int) bool {
		if ranked[i].Tier != ranked[j].Tier {
			return ranked[i].Tier > ranked[j].Tier
		}
		return ranked[i].Combined() > ranked[j].Combined()
	})
	return ranked
}

// StaggerDelay returns the delivery delay for the response at rank index, so
// ranked replies never arrive simultaneously.
func StaggerDelay(index int) time.Duration {
	return baseStagger + time.Duration(index)*rankStagger
}

// categoryDeltas are the metric side-effects attributed to a reply by its
// triggering category.
var categoryDeltas = map[intent.Category]map[string]int{
	intent.CategoryExploration: {"tension": 2},
	intent.CategoryInquiry:     {"tension": 1},
	intent.CategoryTransaction: {"spend": 3},
	intent.CategorySocial:      {"intimacy": 2},
	intent.CategoryMystery:     {"tension": 3, "danger": 1},
}

// DeltasFor returns a copy of the metric side-effects for a category.
// General replies carry none.
func DeltasFor(category intent.Category) map[string]int {
	source := categoryDeltas[category]
	if len(source) == 0 {
		return nil
	}
	deltas := make(map[string]int, len(source))
	for name, delta := range source {
		deltas[name] = delta
	}
	return deltas
}

func tokenSet(text string) map[string]struct{} {
	tokens := make(map[string]struct{})
	for _, field := range strings.Fields(strings.ToLower(text)) {
		token := strings.Trim(field, ".,!?;:\"'()")
		if token != "" {
			tokens[token] = struct{}{}
		}
	}
	return tokens
}

func sharedTokens(a, b map[string]struct{}) int {
	shared := 0
	for token := range a {
		if _, ok := b[token]; ok {
			shared++
		}
	}
	return shared
}
