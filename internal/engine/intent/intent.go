// Package intent classifies incoming chat messages into coarse categories
// and maps each category to an ordered list of preferred responding personas.
//
// Classification is a keyword-membership heuristic, not a learned model. It
// is a routing hint only: a misclassification changes which persona speaks
// first, never the correctness of scene state.
package intent

import (
	"strings"

	"github.com/ashfall-games/parlor/internal/engine/persona"
)

// Category is a coarse message intent.
type Category string

const (
	CategoryExploration Category = "exploration"
	CategoryInquiry     Category = "inquiry"
	CategoryTransaction Category = "transaction"
	CategorySocial      Category = "social"
	CategoryMystery     Category = "mystery"
	CategoryGeneral     Category = "general"
)

// Tier orders responses for delivery. Higher tiers deliver first. Tiers
// never gate correctness.
type Tier int

const (
	TierBackground Tier = 1
	TierLow        Tier = 2
	TierMedium     Tier = 3
	TierHigh       Tier = 4
	TierCritical   Tier = 5
)

// Responder pairs a persona role with its delivery tier for one category.
type Responder struct {
	Role persona.Role
	Tier Tier
}

// categoryKeywords holds the fixed per-category keyword sets. Matching is a
// case-insensitive substring test; the first matching category wins in the
// order listed by Classify.
var categoryKeywords = map[Category][]string{
	CategoryExploration: {"look around", "look at", "observe", "examine", "explore", "search", "approach", "walk over", "head toward"},
	CategoryInquiry:     {"ask", "question", "who is", "what is", "where is", "tell me", "secret", "rumor", "news", "know about"},
	CategoryTransaction: {"coin", "silver", "gold", "money", "buy", "sell", "trade", "pay", "price", "reward"},
	CategorySocial:      {"chat", "talk with", "greet", "introduce", "friend", "toast", "compliment", "flirt"},
	CategoryMystery:     {"strange", "mysterious", "odd", "eerie", "hidden", "shadow", "whisper", "secret passage"},
}

// classifyOrder fixes the category priority: a message matching several
// categories takes the first.
var classifyOrder = []Category{
	CategoryExploration,
	CategoryInquiry,
	CategoryTransaction,
	CategorySocial,
	CategoryMystery,
}

// Classify returns the category for a message, falling back to General.
func Classify(message string) Category {
	lowered := strings.ToLower(message)
	for _, category := range classifyOrder {
		for _, keyword := range categoryKeywords[category] {
			if strings.Contains(lowered, keyword) {
				return category
			}
		}
	}
	return CategoryGeneral
}

// responderTable maps a category to its preferred responders in delivery
// order. Roles absent from a room's roster are skipped by the caller.
var responderTable = map[Category][]Responder{
	CategoryExploration: {
		{Role: persona.RoleNarrator, Tier: TierHigh},
		{Role: persona.RoleEnvoy, Tier: TierMedium},
		{Role: persona.RoleMuse, Tier: TierLow},
	},
	CategoryInquiry: {
		{Role: persona.RoleMuse, Tier: TierHigh},
		{Role: persona.RoleMatron, Tier: TierMedium},
		{Role: persona.RoleNarrator, Tier: TierLow},
	},
	CategoryTransaction: {
		{Role: persona.RoleMatron, Tier: TierCritical},
		{Role: persona.RoleMerchant, Tier: TierCritical},
		{Role: persona.RoleMuse, Tier: TierHigh},
		{Role: persona.RoleNarrator, Tier: TierLow},
	},
	CategorySocial: {
		{Role: persona.RoleMuse, Tier: TierHigh},
		{Role: persona.RoleEnvoy, Tier: TierMedium},
		{Role: persona.RoleMatron, Tier: TierLow},
	},
	CategoryMystery: {
		{Role: persona.RoleNarrator, Tier: TierCritical},
		{Role: persona.RoleMatron, Tier: TierHigh},
		{Role: persona.RoleMuse, Tier: TierMedium},
	},
	CategoryGeneral: {
		{Role: persona.RoleNarrator, Tier: TierMedium},
		{Role: persona.RoleMuse, Tier: TierMedium},
		{Role: persona.RoleMerchant, Tier: TierMedium},
		{Role: persona.RoleEnvoy, Tier: TierLow},
	},
}

// PreferredResponders returns the static responder list for a category.
func PreferredResponders(category Category) []Responder {
	responders, ok := responderTable[category]
	if !ok {
		responders = responderTable[CategoryGeneral]
	}
	out := make([]Responder, len(responders))
	copy(out, responders)
	return out
}
