// Package persona defines the computer-driven character roles and the static
// preset tables that configure a room: roster, starting metrics, round
// bounds, trigger thresholds, and reward-card unlock conditions.
//
// Presets are read-only to the engine. Narrative voice text lives here only
// as short prompt seeds; full back-story content is external data.
package persona

import (
	"errors"
	"strings"

	"github.com/ashfall-games/parlor/internal/engine/scene"
)

// Role identifies a character role in a room. Human participants claim a
// playable role or join as spectators; personas cover every roster role a
// human has not claimed, plus the narrator.
type Role string

const (
	RoleNarrator  Role = "narrator"
	RoleEnvoy     Role = "envoy"
	RoleMuse      Role = "muse"
	RoleMatron    Role = "matron"
	RoleMerchant  Role = "merchant"
	RoleSpectator Role = "spectator"
)

// ErrUnknownRole indicates a role string outside the fixed set.
var ErrUnknownRole = errors.New("unknown role")

// ErrUnknownPreset indicates a preset name with no configuration.
var ErrUnknownPreset = errors.New("unknown preset")

// ParseRole canonicalizes a wire role string.
func ParseRole(value string) (Role, error) {
	switch Role(strings.ToLower(strings.TrimSpace(value))) {
	case RoleNarrator:
		return RoleNarrator, nil
	case RoleEnvoy:
		return RoleEnvoy, nil
	case RoleMuse:
		return RoleMuse, nil
	case RoleMatron:
		return RoleMatron, nil
	case RoleMerchant:
		return RoleMerchant, nil
	case RoleSpectator:
		return RoleSpectator, nil
	default:
		return "", ErrUnknownRole
	}
}

// Playable reports whether a human may claim the role exclusively.
// Spectators are never exclusive; the narrator is always computer-driven.
func (r Role) Playable() bool {
	switch r {
	case RoleEnvoy, RoleMuse, RoleMatron, RoleMerchant:
		return true
	default:
		return false
	}
}

// DisplayName returns the role's human-readable name.
func (r Role) DisplayName() string {
	switch r {
	case RoleNarrator:
		return "Narrator"
	case RoleEnvoy:
		return "Envoy"
	case RoleMuse:
		return "Muse"
	case RoleMatron:
		return "Matron"
	case RoleMerchant:
		return "Merchant"
	case RoleSpectator:
		return "Spectator"
	default:
		return string(r)
	}
}

// Persona is one computer-driven character bound to a room roster.
type Persona struct {
	Role  Role
	Name  string
	Voice string
	// ProgressBase is the role's fixed narrative-progress bonus used by
	// response ranking. The narrator carries the highest base.
	ProgressBase float64
}

// RewardCard is a piece of unlockable content gated on metric minimums.
type RewardCard struct {
	ID     string
	Title  string
	Unlock map[string]int
}

// Unlocked reports whether every unlock condition is met by the metrics.
func (c RewardCard) Unlocked(metrics map[string]int) bool {
	for name, minimum := range c.Unlock {
		if metrics[name] < minimum {
			return false
		}
	}
	return true
}

// Preset is the static configuration for one room flavor.
type Preset struct {
	Name        string
	Description string
	Personas    []Persona

	// QualifyingRole is the human role whose presence enables structured
	// choice rounds and whose input resolves them.
	QualifyingRole Role

	StartMetrics map[string]int
	Bounds       map[string]scene.Bound

	// ChoiceRoundCeiling ends the game when this many choice rounds have
	// resolved. FreeChatInterval is how many human chat turns elapse
	// between automatic choice triggers.
	ChoiceRoundCeiling int
	FreeChatInterval   int

	// TriggerThresholds lists metric levels any one of which triggers a
	// structured-choice round during free chat.
	TriggerThresholds map[string]int

	// SuccessTargets are the metric minimums scored at game end.
	// PlayFraction of targets met ends the game successfully mid-play;
	// CeilingFraction decides success at the round ceiling.
	SuccessTargets  map[string]int
	PlayFraction    float64
	CeilingFraction float64

	// FailureMetric exceeding FailureCeiling ends the game as a failure.
	FailureMetric  string
	FailureCeiling int

	Cards []RewardCard
}

// PersonaByRole returns the roster persona for a role.
func (p Preset) PersonaByRole(role Role) (Persona, bool) {
	for _, candidate := range p.Personas {
		if candidate.Role == role {
			return candidate, true
		}
	}
	return Persona{}, false
}

// HasRole reports whether the roster includes the role.
func (p Preset) HasRole(role Role) bool {
	_, ok := p.PersonaByRole(role)
	return ok
}

// UnlockedCards returns the ids of reward cards whose conditions the metrics
// currently satisfy, in table order.
func (p Preset) UnlockedCards(metrics map[string]int) []string {
	var unlocked []string
	for _, card := range p.Cards {
		if card.Unlocked(metrics) {
			unlocked = append(unlocked, card.ID)
		}
	}
	return unlocked
}
