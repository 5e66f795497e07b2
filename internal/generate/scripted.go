package generate

import (
	"context"
	"fmt"
	"hash/fnv"
	"sync"
)

// Scripted is a deterministic generator used when no backend is configured
// and throughout tests. Each persona cycles through a fixed line set, so
// repeated turns stay varied enough for novelty scoring without any network
// dependency.
type Scripted struct {
	mu    sync.Mutex
	turns map[string]int
}

// NewScripted creates a scripted generator.
func NewScripted() *Scripted {
	return &Scripted{turns: make(map[string]int)}
}

var scriptedLines = []string{
	"%s studies the room before answering, choosing each word with care.",
	"%s leans closer and offers a reply meant for this company alone.",
	"%s answers lightly, though something guarded moves behind the words.",
	"%s lets the moment breathe, then turns the conversation a shade darker.",
	"%s responds with a half-smile that promises more than it explains.",
}

// Generate returns the persona's next scripted line.
func (s *Scripted) Generate(_ context.Context, req Request) (string, error) {
	s.mu.Lock()
	turn := s.turns[req.PersonaName]
	s.turns[req.PersonaName] = turn + 1
	s.mu.Unlock()

	seed := fnv.New32a()
	_, _ = seed.Write([]byte(req.PersonaName))
	index := (int(seed.Sum32()) + turn) % len(scriptedLines)
	if index < 0 {
		index += len(scriptedLines)
	}
	return fmt.Sprintf(scriptedLines[index], req.PersonaName), nil
}
