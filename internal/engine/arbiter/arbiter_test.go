package arbiter

import (
	"testing"
	"time"

	"github.com/ashfall-games/parlor/internal/engine/intent"
	"github.com/ashfall-games/parlor/internal/engine/persona"
	"github.com/ashfall-games/parlor/internal/engine/scene"
)

func TestRelevanceScore(t *testing.T) {
	tests := []struct {
		name    string
		reply   string
		message string
		want    float64
	}{
		{
			name:    "full overlap",
			reply:   "the silk merchant waits by the fountain tonight",
			message: "silk merchant fountain",
			want:    1.0,
		},
		{
			name:    "no overlap",
			reply:   "a cold wind moves through the hall",
			message: "where is the envoy",
			want:    0,
		},
		{
			name:    "short reply halved",
			reply:   "the dice",
			message: "roll the dice",
			// 2/3 overlap, halved for a reply under ten runes.
			want: 1.0 / 3.0,
		},
		{
			name:    "empty message",
			reply:   "anything at all",
			message: "",
			want:    0,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := relevanceScore(tt.reply, tt.message)
			if diff := got - tt.want; diff > 1e-9 || diff < -1e-9 {
				t.Fatalf("relevanceScore(%q, %q) = %v, want %v", tt.reply, tt.message, got, tt.want)
			}
		})
	}
}

func TestNoveltyScore(t *testing.T) {
	history := []scene.Entry{
		{Content: "The matron pours wine into a silver cup."},
		{Content: "Kadir studies the map in silence."},
	}

	tests := []struct {
		name  string
		reply string
		want  float64
	}{
		{
			name:  "fresh reply",
			reply: "A drum begins somewhere below the floor.",
			want:  1.0,
		},
		{
			name:  "identical to history",
			reply: "The matron pours wine into a silver cup.",
			want:  0,
		},
		{
			name:  "heavy token overlap",
			reply: "The matron pours wine into a cracked cup.",
			want:  0.3,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := noveltyScore(tt.reply, history)
			if diff := got - tt.want; diff > 1e-9 || diff < -1e-9 {
				t.Fatalf("noveltyScore(%q) = %v, want %v", tt.reply, got, tt.want)
			}
		})
	}
}

func TestNoveltyScoreWindowsHistory(t *testing.T) {
	history := make([]scene.Entry, 0, 7)
	history = append(history, scene.Entry{Content: "an old line repeated word for word exactly"})
	for range 6 {
		history = append(history, scene.Entry{Content: "filler chatter of no particular note"})
	}

	// The identical line fell outside the five-entry window, so the reply
	// still counts as novel.
	got := noveltyScore("an old line repeated word for word exactly", history)
	if got != 1.0 {
		t.Fatalf("noveltyScore = %v, want 1.0", got)
	}
}

func TestProgressScore(t *testing.T) {
	narrator, ok := persona.LookupOrDefault("").PersonaByRole(persona.RoleNarrator)
	if !ok {
		t.Fatalf("default preset has no narrator")
	}

	// Base 0.8 plus two transition keywords, capped at 1.
	got := progressScore("Suddenly the envoy realizes the door is open.", narrator.ProgressBase)
	want := 1.0
	if diff := got - want; diff > 1e-9 || diff < -1e-9 {
		t.Fatalf("progressScore = %v, want %v", got, want)
	}

	if got := progressScore("A plain line.", 0.4); got != 0.4 {
		t.Fatalf("progressScore base only = %v, want 0.4", got)
	}
}

func TestRankOrdersByTierThenScore(t *testing.T) {
	responses := []Response{
		{Role: persona.RoleMuse, Tier: intent.TierHigh, Relevance: 0.9, Novelty: 1, Progress: 0.4},
		{Role: persona.RoleNarrator, Tier: intent.TierCritical, Relevance: 0.1, Novelty: 0.3, Progress: 0.8},
		{Role: persona.RoleMatron, Tier: intent.TierCritical, Relevance: 0.8, Novelty: 1, Progress: 0.6},
	}

	ranked := Rank(responses)

	wantOrder := []persona.Role{persona.RoleMatron, persona.RoleNarrator, persona.RoleMuse}
	for i, want := range wantOrder {
		if ranked[i].Role != want {
			t.Fatalf("ranked[%d].Role = %v, want %v", i, ranked[i].Role, want)
		}
	}
	// Input order is untouched.
	if responses[0].Role != persona.RoleMuse {
		t.Fatalf("Rank mutated its input")
	}
}

func TestStaggerDelay(t *testing.T) {
	tests := []struct {
		index int
		want  time.Duration
	}{
		{0, 500 * time.Millisecond},
		{1, 1300 * time.Millisecond},
		{2, 2100 * time.Millisecond},
	}
	for _, tt := range tests {
		if got := StaggerDelay(tt.index); got != tt.want {
			t.Fatalf("StaggerDelay(%d) = %v, want %v", tt.index, got, tt.want)
		}
	}
}

func TestDeltasFor(t *testing.T) {
	deltas := DeltasFor(intent.CategoryMystery)
	if deltas["tension"] != 3 || deltas["danger"] != 1 {
		t.Fatalf("DeltasFor(Mystery) = %v, want tension=3 danger=1", deltas)
	}

	deltas["tension"] = 99
	if again := DeltasFor(intent.CategoryMystery); again["tension"] != 3 {
		t.Fatalf("DeltasFor returned shared map")
	}

	if deltas := DeltasFor(intent.CategoryGeneral); deltas != nil {
		t.Fatalf("DeltasFor(General) = %v, want nil", deltas)
	}
}
