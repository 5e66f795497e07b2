package persona

import (
	"strings"

	"github.com/ashfall-games/parlor/internal/engine/scene"
)

// DefaultPreset is used when a join names no preset or an unknown one.
const DefaultPreset = "velvet_hall"

var presets = map[string]Preset{
	"velvet_hall": {
		Name:        "velvet_hall",
		Description: "An opulent evening salon where every favor has a price.",
		Personas: []Persona{
			{Role: RoleNarrator, Name: "The Narrator", Voice: "an omniscient storyteller who frames each beat of the evening", ProgressBase: 0.8},
			{Role: RoleMatron, Name: "Mistress Halime", Voice: "the sharp-eyed keeper of the hall, counting every coin", ProgressBase: 0.6},
			{Role: RoleMuse, Name: "Serra", Voice: "a celebrated performer who trades in secrets and charm", ProgressBase: 0.4},
			{Role: RoleEnvoy, Name: "Kadir", Voice: "a watchful servant on an errand he cannot name aloud", ProgressBase: 0.3},
		},
		QualifyingRole: RoleEnvoy,
		StartMetrics:   map[string]int{"tension": 10, "intimacy": 30, "danger": 5, "spend": 0},
		Bounds: map[string]scene.Bound{
			"tension":  {Min: 0, Max: 100},
			"intimacy": {Min: 0, Max: 100},
			"danger":   {Min: 0, Max: 100},
			"spend":    {Min: 0, NoCeiling: true},
		},
		ChoiceRoundCeiling: 5,
		FreeChatInterval:   4,
		TriggerThresholds:  map[string]int{"intimacy": 15, "tension": 12, "danger": 8},
		SuccessTargets:     map[string]int{"intimacy": 60, "tension": 40, "spend": 20},
		PlayFraction:       0.7,
		CeilingFraction:    0.5,
		FailureMetric:      "danger",
		FailureCeiling:     90,
		Cards: []RewardCard{
			{ID: "whispered_name", Title: "A Whispered Name", Unlock: map[string]int{"intimacy": 40}},
			{ID: "private_audience", Title: "A Private Audience", Unlock: map[string]int{"intimacy": 60, "spend": 10}},
			{ID: "drawn_blade", Title: "A Drawn Blade", Unlock: map[string]int{"danger": 50}},
		},
	},
	"night_market": {
		Name:        "night_market",
		Description: "A lamplit bazaar after curfew, thick with contraband and rumor.",
		Personas: []Persona{
			{Role: RoleNarrator, Name: "The Narrator", Voice: "an omniscient storyteller tracking every shadow between the stalls", ProgressBase: 0.8},
			{Role: RoleMerchant, Name: "Old Basam", Voice: "a trader who sells anything and remembers everyone", ProgressBase: 0.6},
			{Role: RoleEnvoy, Name: "Kadir", Voice: "a watchful servant hunting a seller who does not wish to be found", ProgressBase: 0.3},
		},
		QualifyingRole: RoleEnvoy,
		StartMetrics:   map[string]int{"tension": 20, "intimacy": 5, "danger": 15, "spend": 0},
		Bounds: map[string]scene.Bound{
			"tension":  {Min: 0, Max: 100},
			"intimacy": {Min: 0, Max: 100},
			"danger":   {Min: 0, Max: 100},
			"spend":    {Min: 0, NoCeiling: true},
		},
		ChoiceRoundCeiling: 5,
		FreeChatInterval:   4,
		TriggerThresholds:  map[string]int{"tension": 25, "danger": 20},
		SuccessTargets:     map[string]int{"tension": 50, "spend": 30, "intimacy": 20},
		PlayFraction:       0.7,
		CeilingFraction:    0.5,
		FailureMetric:      "danger",
		FailureCeiling:     90,
		Cards: []RewardCard{
			{ID: "smugglers_mark", Title: "The Smuggler's Mark", Unlock: map[string]int{"spend": 15}},
			{ID: "curfew_bell", Title: "The Curfew Bell", Unlock: map[string]int{"danger": 40}},
		},
	},
}

// Lookup returns the preset for name. Unknown names return ErrUnknownPreset.
func Lookup(name string) (Preset, error) {
	preset, ok := presets[strings.ToLower(strings.TrimSpace(name))]
	if !ok {
		return Preset{}, ErrUnknownPreset
	}
	return preset, nil
}

// LookupOrDefault returns the named preset, falling back to DefaultPreset
// when name is empty or unknown.
func LookupOrDefault(name string) Preset {
	if preset, err := Lookup(name); err == nil {
		return preset
	}
	preset, _ := Lookup(DefaultPreset)
	return preset
}

// Names lists the available preset names.
func Names() []string {
	names := make([]string, 0, len(presets))
	for name := range presets {
		names = append(names, name)
	}
	return names
}
