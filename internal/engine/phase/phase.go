// Package phase tracks a room's position in the free-chat, structured-choice,
// ended cycle and decides when the game is over.
package phase

import (
	"fmt"
	"math"
	"sync"
	"time"

	"github.com/ashfall-games/parlor/internal/engine/persona"
	apperrors "github.com/ashfall-games/parlor/internal/errors"
	"github.com/ashfall-games/parlor/internal/platform/timeouts"
)

// Phase is the room's current mode of play.
type Phase string

const (
	FreeChat         Phase = "free_chat"
	StructuredChoice Phase = "structured_choice"
	Ended            Phase = "ended"
)

// Result is the terminal classification of a finished game.
type Result string

const (
	ResultSuccess Result = "success"
	ResultFailure Result = "failure"
	ResultNeutral Result = "neutral"
)

// Outcome is the memoized end-of-game record. Once computed it never
// changes, no matter how often the end conditions are re-evaluated.
type Outcome struct {
	Result       Result
	Score        int
	Reason       string
	Rounds       int
	FinalMetrics map[string]int
	EndedAt      time.Time
}

// Resolution is the effect of settling one structured choice.
type Resolution struct {
	// Deltas are applied to the scene by the caller.
	Deltas map[string]int
	// Narration describes what the settled choice did, for the log.
	Narration string
	// Note carries the free-text evaluator's verdict, empty for indexed
	// selections.
	Note string
}

// Machine serializes phase transitions for one room.
type Machine struct {
	mu sync.Mutex

	preset persona.Preset
	phase  Phase

	// chatTurns counts human chat turns since the last choice round.
	chatTurns int
	// rounds counts resolved choice rounds toward the preset ceiling.
	rounds      int
	lastTrigger time.Time
	pending     []Choice

	outcome *Outcome
	// announced tracks whether the terminal outcome has been published.
	announced bool

	now func() time.Time
}

// New returns a machine in free chat. A nil clock uses the wall clock.
func New(preset persona.Preset, now func() time.Time) *Machine {
	if now == nil {
		now = time.Now
	}
	return &Machine{preset: preset, phase: FreeChat, now: now}
}

// Current returns the current phase.
func (m *Machine) Current() Phase {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.phase
}

// Rounds returns how many choice rounds have resolved.
func (m *Machine) Rounds() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.rounds
}

// Outcome returns the memoized end record, if the game has ended.
func (m *Machine) Outcome() (Outcome, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.outcome == nil {
		return Outcome{}, false
	}
	return *m.outcome, true
}

// ConsumeEndAnnouncement reports true exactly once, on the first call after
// the game ends. Callers use it to publish the outcome a single time no
// matter how many paths re-check end conditions.
func (m *Machine) ConsumeEndAnnouncement() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.outcome == nil || m.announced {
		return false
	}
	m.announced = true
	return true
}

// RecordChatTurn counts one human chat turn toward the next automatic
// choice trigger.
func (m *Machine) RecordChatTurn() {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.phase == FreeChat {
		m.chatTurns++
	}
}

// ShouldTriggerChoice reports whether a structured-choice round should open
// now. It requires free chat, a qualifying participant, headroom under the
// round ceiling, a quiet debounce window, and either enough chat turns or a
// crossed metric threshold.
func (m *Machine) ShouldTriggerChoice(hasQualifier bool, metrics map[string]int) bool {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.phase != FreeChat || !hasQualifier {
		return false
	}
	if m.rounds >= m.preset.ChoiceRoundCeiling {
		return false
	}
	if !m.lastTrigger.IsZero() && m.now().Sub(m.lastTrigger) < timeouts.ChoiceDebounce {
		return false
	}

	if m.chatTurns >= m.preset.FreeChatInterval {
		return true
	}
	for name, threshold := range m.preset.TriggerThresholds {
		if metrics[name] >= threshold {
			return true
		}
	}
	return false
}

// BeginChoice moves the room into a structured-choice round with the given
// options. Only valid from free chat.
func (m *Machine) BeginChoice(choices []Choice) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	switch m.phase {
	case Ended:
		return apperrors.ErrGameEnded
	case StructuredChoice:
		return fmt.Errorf("begin choice: %w", apperrors.ErrInvalidPhaseAction)
	}
	if len(choices) == 0 {
		return fmt.Errorf("begin choice: no options")
	}

	m.phase = StructuredChoice
	m.pending = choices
	m.chatTurns = 0
	m.lastTrigger = m.now()
	return nil
}

// PendingChoices returns the open round's options, or nil outside a round.
func (m *Machine) PendingChoices() []Choice {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.phase != StructuredChoice {
		return nil
	}
	choices := make([]Choice, len(m.pending))
	copy(choices, m.pending)
	return choices
}

// ResolveSelection settles the open round with a 1-based option index and
// returns the room to free chat.
func (m *Machine) ResolveSelection(index int) (Resolution, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if err := m.resolvable(); err != nil {
		return Resolution{}, err
	}
	if index < 1 || index > len(m.pending) {
		return Resolution{}, fmt.Errorf("choice index %d out of range: %w", index, apperrors.ErrInvalidPhaseAction)
	}

	chosen := m.pending[index-1]
	m.settleRound()
	return Resolution{
		Deltas:    copyDeltas(chosen.Deltas),
		Narration: chosen.Flavor,
	}, nil
}

// ResolveFreeText settles the open round with an improvised answer, scored
// by the free-text evaluator.
func (m *Machine) ResolveFreeText(text string) (Resolution, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if err := m.resolvable(); err != nil {
		return Resolution{}, err
	}

	deltas, note := EvaluateFreeText(text)
	m.settleRound()
	return Resolution{
		Deltas:    deltas,
		Narration: fmt.Sprintf("An improvised answer: %q", text),
		Note:      note,
	}, nil
}

func (m *Machine) resolvable() error {
	switch m.phase {
	case Ended:
		return apperrors.ErrGameEnded
	case FreeChat:
		return fmt.Errorf("no choice round open: %w", apperrors.ErrInvalidPhaseAction)
	}
	return nil
}

func (m *Machine) settleRound() {
	m.rounds++
	m.pending = nil
	m.phase = FreeChat
}

// CheckEnd evaluates end conditions against the metrics and, on a first
// hit, computes and memoizes the outcome. Repeated calls after the game
// ends return the stored outcome unchanged.
func (m *Machine) CheckEnd(metrics map[string]int) (Outcome, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.outcome != nil {
		return *m.outcome, true
	}

	switch {
	case metrics[m.preset.FailureMetric] > m.preset.FailureCeiling:
		m.finish(ResultFailure, 0, fmt.Sprintf("%s exceeded %d", m.preset.FailureMetric, m.preset.FailureCeiling), metrics)
	case m.targetFraction(metrics) >= m.preset.PlayFraction:
		base := 100 + 5*(m.preset.ChoiceRoundCeiling-m.rounds)
		m.finish(ResultSuccess, base+metricBonus(metrics), "success targets met", metrics)
	case m.rounds >= m.preset.ChoiceRoundCeiling:
		fraction := m.targetFraction(metrics)
		partial := int(math.Floor(50 * fraction))
		if fraction >= m.preset.CeilingFraction {
			m.finish(ResultSuccess, 50+partial+metricBonus(metrics), "round ceiling reached, targets mostly met", metrics)
		} else {
			m.finish(ResultNeutral, partial+metricBonus(metrics), "round ceiling reached", metrics)
		}
	default:
		return Outcome{}, false
	}
	return *m.outcome, true
}

func (m *Machine) finish(result Result, score int, reason string, metrics map[string]int) {
	final := make(map[string]int, len(metrics))
	for name, value := range metrics {
		final[name] = value
	}
	m.phase = Ended
	m.pending = nil
	m.outcome = &Outcome{
		Result:       result,
		Score:        score,
		Reason:       reason,
		Rounds:       m.rounds,
		FinalMetrics: final,
		EndedAt:      m.now(),
	}
}

// targetFraction is the share of success targets currently met. A positive
// target wants the metric at or above it, a negative target at or below.
func (m *Machine) targetFraction(metrics map[string]int) float64 {
	if len(m.preset.SuccessTargets) == 0 {
		return 0
	}
	met := 0
	for name, target := range m.preset.SuccessTargets {
		value := metrics[name]
		if target >= 0 && value >= target {
			met++
		}
		if target < 0 && value <= target {
			met++
		}
	}
	return float64(met) / float64(len(m.preset.SuccessTargets))
}

// metricBonus rewards whatever positive metric values remain at the end.
func metricBonus(metrics map[string]int) int {
	total := 0
	for _, value := range metrics {
		if value > 0 {
			total += value
		}
	}
	return total / 10
}

func copyDeltas(source map[string]int) map[string]int {
	if len(source) == 0 {
		return nil
	}
	deltas := make(map[string]int, len(source))
	for name, delta := range source {
		deltas[name] = delta
	}
	return deltas
}
