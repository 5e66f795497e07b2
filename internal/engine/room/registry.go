package room

import (
	"fmt"
	"sync"
	"time"

	"github.com/ashfall-games/parlor/internal/engine/persona"
	apperrors "github.com/ashfall-games/parlor/internal/errors"
	"github.com/ashfall-games/parlor/internal/platform/timeouts"
)

// Registry owns every live room. Rooms are created lazily on join and
// destroyed the moment they empty.
type Registry struct {
	mu    sync.Mutex
	rooms map[string]*Room
	now   func() time.Time
}

// NewRegistry returns an empty registry. A nil clock uses the wall clock.
func NewRegistry(now func() time.Time) *Registry {
	if now == nil {
		now = time.Now
	}
	return &Registry{rooms: make(map[string]*Room), now: now}
}

// Create makes a room with the given preset. An existing id is returned
// as-is.
func (reg *Registry) Create(id, presetName string) *Room {
	reg.mu.Lock()
	defer reg.mu.Unlock()
	if r, ok := reg.rooms[id]; ok {
		return r
	}
	r := newRoom(id, persona.LookupOrDefault(presetName), reg.now)
	reg.rooms[id] = r
	return r
}

// Get returns the live room with the given id.
func (reg *Registry) Get(id string) (*Room, error) {
	reg.mu.Lock()
	defer reg.mu.Unlock()
	r, ok := reg.rooms[id]
	if !ok {
		return nil, fmt.Errorf("room %q: %w", id, apperrors.ErrRoomNotFound)
	}
	return r, nil
}

// List returns a snapshot of every live room.
func (reg *Registry) List() []*Room {
	reg.mu.Lock()
	defer reg.mu.Unlock()
	rooms := make([]*Room, 0, len(reg.rooms))
	for _, r := range reg.rooms {
		rooms = append(rooms, r)
	}
	return rooms
}

// Alive reports whether the registry still holds this exact room. In-flight
// generation tasks check this after their call returns, before mutating
// state or broadcasting.
func (reg *Registry) Alive(r *Room) bool {
	reg.mu.Lock()
	defer reg.mu.Unlock()
	return reg.rooms[r.ID] == r
}

// Join adds a participant to a room, creating the room lazily. Joining a
// playable role already held by someone else fails with ErrRoleConflict and
// leaves the room untouched. Joining a room that was sitting empty resets
// its coordination history so the new session never inherits a stale
// narrative.
func (reg *Registry) Join(p *Participant, roomID, presetName string) (*Room, error) {
	reg.mu.Lock()
	r, ok := reg.rooms[roomID]
	if !ok {
		r = newRoom(roomID, persona.LookupOrDefault(presetName), reg.now)
		reg.rooms[roomID] = r
	}
	reg.mu.Unlock()

	r.mu.Lock()
	defer r.mu.Unlock()
	if r.closed {
		return nil, fmt.Errorf("room %q: %w", roomID, apperrors.ErrRoomNotFound)
	}
	if p.Role != persona.RoleSpectator {
		for _, occupant := range r.participants {
			if occupant.Role == p.Role {
				return nil, fmt.Errorf("role %s in room %q: %w", p.Role, roomID, apperrors.ErrRoleConflict)
			}
		}
	}
	if len(r.participants) == 0 {
		r.Scene.ResetCoordination()
		r.personaTurns = 0
	}
	r.participants[p.ID] = p
	r.lastActivity = r.now()
	r.emptySince = time.Time{}
	return r, nil
}

// Leave removes a participant from their room. When the last participant
// leaves, the room is torn down atomically: it is closed so no new
// generation starts and no scheduled delivery lands, its locks and pause
// set are cleared, its coordination history is reset, and it is deleted
// from the registry.
func (reg *Registry) Leave(roomID, participantID string) bool {
	reg.mu.Lock()
	r, ok := reg.rooms[roomID]
	if !ok {
		reg.mu.Unlock()
		return false
	}

	r.mu.Lock()
	if _, ok := r.participants[participantID]; !ok {
		r.mu.Unlock()
		reg.mu.Unlock()
		return false
	}
	delete(r.participants, participantID)
	if len(r.participants) == 0 {
		r.closed = true
		r.locks = make(map[persona.Role]bool)
		r.pauses = make(map[string]time.Time)
		r.Scene.ResetCoordination()
		delete(reg.rooms, roomID)
	}
	r.mu.Unlock()
	reg.mu.Unlock()
	return true
}

// SweepEmpty deletes rooms that have sat empty longer than the sweep
// window. Immediate teardown on last-leave makes this a safety net for
// rooms created but never joined. Returns the swept room ids.
func (reg *Registry) SweepEmpty() []string {
	reg.mu.Lock()
	defer reg.mu.Unlock()

	now := reg.now()
	var swept []string
	for id, r := range reg.rooms {
		r.mu.Lock()
		empty := len(r.participants) == 0
		if empty && r.emptySince.IsZero() {
			r.emptySince = now
			empty = false
		}
		expired := empty && now.Sub(r.emptySince) >= timeouts.EmptyRoomSweep
		if expired {
			r.closed = true
			r.locks = make(map[persona.Role]bool)
			r.pauses = make(map[string]time.Time)
		}
		r.mu.Unlock()
		if expired {
			delete(reg.rooms, id)
			swept = append(swept, id)
		}
	}
	return swept
}
