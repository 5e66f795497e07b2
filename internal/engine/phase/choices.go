package phase

import (
	"encoding/json"
	"fmt"
	"strings"

	apperrors "github.com/ashfall-games/parlor/internal/errors"
)

// Choice is one option offered in a structured-choice round.
type Choice struct {
	ID          string         `json:"id"`
	Description string         `json:"description"`
	Risk        int            `json:"risk"`
	Deltas      map[string]int `json:"deltas"`
	Flavor      string         `json:"flavor"`
}

// choiceCount is how many options every round offers.
const choiceCount = 3

// ParseChoicePayload extracts a choice set from generated model output. The
// payload must contain a JSON array of exactly three options, each with a
// description and deltas. Surrounding prose and code fences are tolerated.
func ParseChoicePayload(raw string) ([]Choice, error) {
	start := strings.IndexByte(raw, '[')
	end := strings.LastIndexByte(raw, ']')
	if start < 0 || end <= start {
		return nil, fmt.Errorf("no JSON array found: %w", apperrors.ErrMalformedChoicePayload)
	}

	var choices []Choice
	if err := json.Unmarshal([]byte(raw[start:end+1]), &choices); err != nil {
		return nil, fmt.Errorf("decode choices: %w", apperrors.ErrMalformedChoicePayload)
	}
	if len(choices) != choiceCount {
		return nil, fmt.Errorf("got %d choices, want %d: %w", len(choices), choiceCount, apperrors.ErrMalformedChoicePayload)
	}
	for i := range choices {
		if strings.TrimSpace(choices[i].Description) == "" {
			return nil, fmt.Errorf("choice %d has no description: %w", i+1, apperrors.ErrMalformedChoicePayload)
		}
		if len(choices[i].Deltas) == 0 {
			return nil, fmt.Errorf("choice %d has no deltas: %w", i+1, apperrors.ErrMalformedChoicePayload)
		}
		if choices[i].ID == "" {
			choices[i].ID = fmt.Sprintf("choice-%d", i+1)
		}
	}
	return choices, nil
}

// DefaultChoices is the deterministic fallback set used when generation
// fails or returns an unusable payload. A calmer set is offered while
// danger stays low.
func DefaultChoices(danger int) []Choice {
	if danger < 30 {
		return []Choice{
			{
				ID:          "default-press",
				Description: "Press the conversation toward what you came for",
				Risk:        2,
				Deltas:      map[string]int{"tension": 5, "intimacy": 3},
				Flavor:      "You lean in, and the room leans with you.",
			},
			{
				ID:          "default-coin",
				Description: "Let a little coin smooth the way",
				Risk:        1,
				Deltas:      map[string]int{"spend": 4, "intimacy": 2},
				Flavor:      "Silver changes hands, and faces soften.",
			},
			{
				ID:          "default-wait",
				Description: "Hold back and watch who moves first",
				Risk:        1,
				Deltas:      map[string]int{"tension": 2},
				Flavor:      "You wait. Someone always blinks.",
			},
		}
	}
	return []Choice{
		{
			ID:          "default-defuse",
			Description: "Step back and cool the room down",
			Risk:        1,
			Deltas:      map[string]int{"danger": -5, "tension": -3},
			Flavor:      "You give ground, and the knives stay sheathed.",
		},
		{
			ID:          "default-gamble",
			Description: "Push your luck while everyone is off balance",
			Risk:        4,
			Deltas:      map[string]int{"tension": 6, "danger": 6, "intimacy": 2},
			Flavor:      "Fortune favors you, or it does not.",
		},
		{
			ID:          "default-bribe",
			Description: "Buy your way clear of the trouble",
			Risk:        2,
			Deltas:      map[string]int{"spend": 6, "danger": -3},
			Flavor:      "An expensive exit, but an exit.",
		},
	}
}
