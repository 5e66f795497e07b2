// Package room owns live session state: participants, persona generation
// locks, the pause set, and the registry that creates and destroys rooms.
package room

import (
	"sync"
	"time"

	"github.com/ashfall-games/parlor/internal/engine/persona"
	"github.com/ashfall-games/parlor/internal/engine/phase"
	"github.com/ashfall-games/parlor/internal/engine/scene"
	"github.com/ashfall-games/parlor/internal/platform/timeouts"
)

// Sink delivers one outbound event to a connected participant. Implemented
// by the transport's peer writer.
type Sink interface {
	Send(kind string, payload any) error
}

// Participant is one connected human in a room.
type Participant struct {
	ID   string
	Name string
	Role persona.Role
	Sink Sink

	// typing is guarded by the owning room's mutex.
	typing bool
}

// Room is one live session. All mutable fields are guarded by mu; Scene and
// Phase carry their own locks and may be used without holding it.
type Room struct {
	ID     string
	Preset persona.Preset
	Scene  *scene.State
	Phase  *phase.Machine

	mu           sync.Mutex
	participants map[string]*Participant
	locks        map[persona.Role]bool
	pauses       map[string]time.Time
	lastActivity time.Time
	emptySince   time.Time

	// personaTurns counts persona replies delivered since the last human
	// message, for the chained-turn rule.
	personaTurns int

	// closed marks a torn-down room: no new generation starts and no
	// delivery broadcasts, even for tasks already in flight.
	closed bool

	now func() time.Time
}

func newRoom(id string, preset persona.Preset, now func() time.Time) *Room {
	return &Room{
		ID:           id,
		Preset:       preset,
		Scene:        scene.New(preset.StartMetrics, preset.Bounds),
		Phase:        phase.New(preset, now),
		participants: make(map[string]*Participant),
		locks:        make(map[persona.Role]bool),
		pauses:       make(map[string]time.Time),
		lastActivity: now(),
		now:          now,
	}
}

// Participants returns a snapshot of the current occupants.
func (r *Room) Participants() []*Participant {
	r.mu.Lock()
	defer r.mu.Unlock()
	occupants := make([]*Participant, 0, len(r.participants))
	for _, p := range r.participants {
		occupants = append(occupants, p)
	}
	return occupants
}

// Participant returns the occupant with the given id.
func (r *Room) Participant(id string) (*Participant, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	p, ok := r.participants[id]
	return p, ok
}

// Occupancy returns the number of connected participants.
func (r *Room) Occupancy() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.participants)
}

// HasQualifier reports whether the preset's qualifying role is occupied.
func (r *Room) HasQualifier() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, p := range r.participants {
		if p.Role == r.Preset.QualifyingRole {
			return true
		}
	}
	return false
}

// Qualifier returns the participant holding the qualifying role.
func (r *Room) Qualifier() (*Participant, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, p := range r.participants {
		if p.Role == r.Preset.QualifyingRole {
			return p, true
		}
	}
	return nil, false
}

// RoleHeld reports whether a human participant currently holds the role.
// Personas speak only for unclaimed roster roles.
func (r *Room) RoleHeld(role persona.Role) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, p := range r.participants {
		if p.Role == role {
			return true
		}
	}
	return false
}

// TryAcquireLock takes the generation lock for a persona role. A false
// return means a call is already in flight or the room is closed; the
// caller drops the request rather than queueing it.
func (r *Room) TryAcquireLock(role persona.Role) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.closed || r.locks[role] {
		return false
	}
	r.locks[role] = true
	return true
}

// ReleaseLock releases a persona's generation lock.
func (r *Room) ReleaseLock(role persona.Role) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.locks, role)
}

// Pause records the requester in the pause set and returns the expiry. A
// non-positive duration uses the default; anything above the maximum is
// capped.
func (r *Room) Pause(participantID string, d time.Duration) time.Time {
	if d <= 0 {
		d = timeouts.PauseDefault
	}
	if d > timeouts.PauseMax {
		d = timeouts.PauseMax
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	expiry := r.now().Add(d)
	r.pauses[participantID] = expiry
	return expiry
}

// Resume removes the requester from the pause set and reports whether the
// room is still paused by someone else.
func (r *Room) Resume(participantID string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.pauses, participantID)
	return r.pausedLocked()
}

// Paused reports whether any unexpired pause request is outstanding.
// Expired entries are pruned as a side effect.
func (r *Room) Paused() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.pausedLocked()
}

func (r *Room) pausedLocked() bool {
	if r.closed {
		return true
	}
	now := r.now()
	for id, expiry := range r.pauses {
		if !expiry.After(now) {
			delete(r.pauses, id)
		}
	}
	return len(r.pauses) > 0
}

// Touch records activity, resetting the idle timer.
func (r *Room) Touch() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.lastActivity = r.now()
}

// IdleFor returns how long the room has been without activity.
func (r *Room) IdleFor() time.Duration {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.now().Sub(r.lastActivity)
}

// PersonaTurns returns how many persona replies have been delivered since
// the last human message.
func (r *Room) PersonaTurns() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.personaTurns
}

// RecordPersonaTurn counts one delivered persona reply.
func (r *Room) RecordPersonaTurn() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.personaTurns++
}

// ResetPersonaTurns clears the chained-turn counter on a human message.
func (r *Room) ResetPersonaTurns() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.personaTurns = 0
}

// SetTyping flips a participant's typing flag and reports whether it
// changed.
func (r *Room) SetTyping(participantID string, typing bool) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	p, ok := r.participants[participantID]
	if !ok || p.typing == typing {
		return false
	}
	p.typing = typing
	return true
}

// Typing reports a participant's typing flag.
func (r *Room) Typing(participantID string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	p, ok := r.participants[participantID]
	return ok && p.typing
}

// Closed reports whether the room has been torn down.
func (r *Room) Closed() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.closed
}

// Broadcast sends an event to every occupant except excludeID. Send
// failures never abort delivery to the rest; the failed participant ids are
// returned so the caller can disconnect them. Broadcasts to a closed room
// are suppressed entirely.
func (r *Room) Broadcast(kind string, payload any, excludeID string) []string {
	r.mu.Lock()
	if r.closed {
		r.mu.Unlock()
		return nil
	}
	targets := make([]*Participant, 0, len(r.participants))
	for _, p := range r.participants {
		if p.ID != excludeID {
			targets = append(targets, p)
		}
	}
	r.mu.Unlock()

	var failed []string
	for _, p := range targets {
		if p.Sink == nil {
			continue
		}
		if err := p.Sink.Send(kind, payload); err != nil {
			failed = append(failed, p.ID)
		}
	}
	return failed
}

// SendTo sends an event to a single occupant.
func (r *Room) SendTo(participantID, kind string, payload any) error {
	p, ok := r.Participant(participantID)
	if !ok || p.Sink == nil {
		return nil
	}
	return p.Sink.Send(kind, payload)
}
