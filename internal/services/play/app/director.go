package server

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"strconv"
	"strings"
	"sync"
	"time"
	"unicode/utf8"

	"github.com/ashfall-games/parlor/internal/engine/arbiter"
	"github.com/ashfall-games/parlor/internal/engine/intent"
	"github.com/ashfall-games/parlor/internal/engine/persona"
	"github.com/ashfall-games/parlor/internal/engine/phase"
	"github.com/ashfall-games/parlor/internal/engine/room"
	apperrors "github.com/ashfall-games/parlor/internal/errors"
	"github.com/ashfall-games/parlor/internal/generate"
	"github.com/ashfall-games/parlor/internal/platform/id"
	"github.com/ashfall-games/parlor/internal/platform/timeouts"
	"github.com/ashfall-games/parlor/internal/storage"
)

const (
	// promptLogWindow bounds how much recent history each generation call
	// sees.
	promptLogWindow = 8
	// maxChainedTurns caps persona replies delivered since the last human
	// message before chaining stops.
	maxChainedTurns = 2
	// recentResultsLimit caps the introspection results listing.
	recentResultsLimit = 20
)

// director drives every room: it dispatches inbound frames, arbitrates
// persona replies, runs the phase machine, and archives finished games.
type director struct {
	registry  *room.Registry
	generator generate.Generator
	results   storage.ResultStore

	now      func() time.Time
	newID    func() string
	schedule func(time.Duration, func())
}

func newDirector(generator generate.Generator, results storage.ResultStore) *director {
	return &director{
		registry:  room.NewRegistry(nil),
		generator: generator,
		results:   results,
		now:       time.Now,
		newID:     id.MustNewID,
		schedule:  func(d time.Duration, fn func()) { time.AfterFunc(d, fn) },
	}
}

// runTickers drives the empty-room sweep, pause expiry, and the idle
// auto-advance until the context ends.
func (d *director) runTickers(ctx context.Context) {
	ticker := time.NewTicker(timeouts.SweepTick)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			d.tick()
		}
	}
}

func (d *director) tick() {
	if swept := d.registry.SweepEmpty(); len(swept) > 0 {
		log.Printf("play: swept empty rooms ids=%v", swept)
	}
	for _, r := range d.registry.List() {
		// Paused prunes expired pause entries as a side effect.
		paused := r.Paused()
		if paused || r.Occupancy() == 0 || r.Phase.Current() != phase.FreeChat {
			continue
		}
		if r.IdleFor() < timeouts.Idle {
			continue
		}
		r.Touch()
		prompt := "The room has gone quiet."
		if entries := r.Scene.RecentLog(1); len(entries) == 1 {
			prompt = entries[0].Content
		}
		go d.arbitrate(r, prompt, 1, "")
	}
}

func (d *director) handleJoin(session *wsSession, frame wsFrame) {
	if session.joined() {
		_ = writeWSError(session.peer, frame.RequestID, "INVALID_ARGUMENT", "already joined a room")
		return
	}

	var payload joinPayload
	if err := json.Unmarshal(frame.Payload, &payload); err != nil {
		_ = writeWSError(session.peer, frame.RequestID, "INVALID_ARGUMENT", "invalid join payload")
		return
	}

	roomID := strings.TrimSpace(payload.RoomID)
	if roomID == "" {
		_ = writeWSError(session.peer, frame.RequestID, "INVALID_ARGUMENT", "room_id is required")
		return
	}
	name := strings.TrimSpace(payload.Name)
	if name == "" {
		_ = writeWSError(session.peer, frame.RequestID, "INVALID_ARGUMENT", "name is required")
		return
	}
	if utf8.RuneCountInString(name) > maxNameRunes {
		_ = writeWSError(session.peer, frame.RequestID, "INVALID_ARGUMENT", "name must be at most 64 characters")
		return
	}
	role, err := persona.ParseRole(payload.Role)
	if err != nil {
		_ = writeWSError(session.peer, frame.RequestID, "INVALID_ARGUMENT", "unknown role")
		return
	}
	if role == persona.RoleNarrator {
		_ = writeWSError(session.peer, frame.RequestID, "INVALID_ARGUMENT", "the narrator is not a joinable role")
		return
	}

	participantID := d.newID()
	p := &room.Participant{ID: participantID, Name: name, Role: role, Sink: session.peer}
	r, err := d.registry.Join(p, roomID, payload.Preset)
	if err != nil {
		_ = writeWSError(session.peer, frame.RequestID, string(apperrors.CodeFor(err)), err.Error())
		return
	}
	if role.Playable() && !r.Preset.HasRole(role) {
		d.registry.Leave(r.ID, participantID)
		_ = writeWSError(session.peer, frame.RequestID, "INVALID_ARGUMENT",
			fmt.Sprintf("role %s is not part of the %s preset", role, r.Preset.Name))
		return
	}

	session.setIdentity(participantID, name, role, r.ID)
	r.Touch()

	_ = session.peer.writeFrame(wsFrame{
		Type:      "room.joined",
		RequestID: frame.RequestID,
		Payload: mustJSON(joinedPayload{
			RoomID:        r.ID,
			ParticipantID: participantID,
			Name:          name,
			Role:          string(role),
			Preset:        r.Preset.Name,
			ServerTime:    d.now().UTC().Format(time.RFC3339),
		}),
	})
	_ = session.peer.writeFrame(wsFrame{
		Type:    "room.state",
		Payload: mustJSON(d.roomState(r)),
	})
	d.broadcast(r, "user.joined", presencePayload{
		ParticipantID: participantID,
		Name:          name,
		Role:          string(role),
	}, participantID)
}

func (d *director) roomState(r *room.Room) roomStatePayload {
	metrics := r.Scene.SnapshotMetrics()
	occupants := make([]occupantState, 0, r.Occupancy())
	for _, p := range r.Participants() {
		occupants = append(occupants, occupantState{
			ParticipantID: p.ID,
			Name:          p.Name,
			Role:          string(p.Role),
			Typing:        r.Typing(p.ID),
		})
	}
	return roomStatePayload{
		RoomID:        r.ID,
		Occupants:     occupants,
		Paused:        r.Paused(),
		Metrics:       metrics,
		UnlockedCards: r.Preset.UnlockedCards(metrics),
		Phase:         string(r.Phase.Current()),
		Rounds:        r.Phase.Rounds(),
	}
}

func (d *director) handleDisconnect(session *wsSession) {
	participantID, name, role, roomID := session.identity()
	if roomID == "" {
		return
	}
	r, err := d.registry.Get(roomID)
	if err != nil {
		return
	}
	if !d.registry.Leave(roomID, participantID) {
		return
	}
	d.broadcast(r, "user.left", presencePayload{
		ParticipantID: participantID,
		Name:          name,
		Role:          string(role),
	}, participantID)
}

func (d *director) handleChat(session *wsSession, frame wsFrame) {
	var payload chatSendPayload
	if err := json.Unmarshal(frame.Payload, &payload); err != nil {
		_ = writeWSError(session.peer, frame.RequestID, "INVALID_ARGUMENT", "invalid send payload")
		return
	}
	body := strings.TrimSpace(payload.Body)
	if body == "" {
		_ = writeWSError(session.peer, frame.RequestID, "INVALID_ARGUMENT", "body is required")
		return
	}
	if utf8.RuneCountInString(body) > maxMessageBodyRunes {
		_ = writeWSError(session.peer, frame.RequestID, "INVALID_ARGUMENT", "body must be at most 2000 characters")
		return
	}

	r, ok := d.sessionRoom(session, frame.RequestID)
	if !ok {
		return
	}
	participantID, name, role, _ := session.identity()

	switch r.Phase.Current() {
	case phase.Ended:
		_ = writeWSError(session.peer, frame.RequestID, string(apperrors.CodeGameEnded), "the game has ended")
		return
	case phase.StructuredChoice:
		if role != r.Preset.QualifyingRole {
			_ = session.peer.Send("system.message", systemMessagePayload{
				Text: fmt.Sprintf("Please wait: the %s is deciding.", r.Preset.QualifyingRole.DisplayName()),
			})
			return
		}
		// A bare option number in chat picks that choice; anything else is
		// free-text input for the evaluator.
		if selection, err := strconv.Atoi(body); err == nil && selection >= 1 && selection <= len(r.Phase.PendingChoices()) {
			d.resolveChoice(r, session, frame.RequestID, selection, "")
			return
		}
		d.resolveChoice(r, session, frame.RequestID, 0, body)
		return
	}

	r.Touch()
	r.ResetPersonaTurns()
	r.Phase.RecordChatTurn()
	r.Scene.AppendLog(name, body, "chat")

	failed := r.Broadcast("chat.message", chatMessagePayload{
		ParticipantID: participantID,
		Name:          name,
		Role:          string(role),
		Body:          body,
		SentAt:        d.now().UTC().Format(time.RFC3339),
	}, "")
	d.removeFailed(r, failed)

	if d.maybeBeginChoiceRound(r) {
		return
	}
	go d.arbitrate(r, body, 0, "")
}

func (d *director) handlePause(session *wsSession, frame wsFrame) {
	var payload pausePayload
	if len(frame.Payload) > 0 {
		if err := json.Unmarshal(frame.Payload, &payload); err != nil {
			_ = writeWSError(session.peer, frame.RequestID, "INVALID_ARGUMENT", "invalid pause payload")
			return
		}
	}
	r, ok := d.sessionRoom(session, frame.RequestID)
	if !ok {
		return
	}
	participantID, name, _, _ := session.identity()

	until := r.Pause(participantID, time.Duration(payload.Seconds)*time.Second)
	d.broadcast(r, "system.message", systemMessagePayload{
		Text: fmt.Sprintf("%s paused the room until %s.", name, until.UTC().Format(time.RFC3339)),
	}, "")
}

func (d *director) handleResume(session *wsSession, frame wsFrame) {
	r, ok := d.sessionRoom(session, frame.RequestID)
	if !ok {
		return
	}
	participantID, name, _, _ := session.identity()

	stillPaused := r.Resume(participantID)
	text := fmt.Sprintf("%s resumed the room.", name)
	if stillPaused {
		text = fmt.Sprintf("%s lifted their pause; the room remains paused.", name)
	}
	d.broadcast(r, "system.message", systemMessagePayload{Text: text}, "")
}

func (d *director) handleTyping(session *wsSession, frame wsFrame, typing bool) {
	r, ok := d.sessionRoom(session, frame.RequestID)
	if !ok {
		return
	}
	participantID, name, _, _ := session.identity()
	if !r.SetTyping(participantID, typing) {
		return
	}
	d.broadcast(r, "user.typing", typingPayload{
		ParticipantID: participantID,
		Name:          name,
		Typing:        typing,
	}, participantID)
}

func (d *director) handleChoiceRespond(session *wsSession, frame wsFrame) {
	var payload choiceRespondPayload
	if err := json.Unmarshal(frame.Payload, &payload); err != nil {
		_ = writeWSError(session.peer, frame.RequestID, "INVALID_ARGUMENT", "invalid choice payload")
		return
	}
	if payload.Selection == 0 && strings.TrimSpace(payload.Text) == "" {
		_ = writeWSError(session.peer, frame.RequestID, "INVALID_ARGUMENT", "selection or text is required")
		return
	}
	r, ok := d.sessionRoom(session, frame.RequestID)
	if !ok {
		return
	}
	d.resolveChoice(r, session, frame.RequestID, payload.Selection, strings.TrimSpace(payload.Text))
}

func (d *director) resolveChoice(r *room.Room, session *wsSession, requestID string, selection int, text string) {
	_, _, role, _ := session.identity()
	if role != r.Preset.QualifyingRole {
		_ = writeWSError(session.peer, requestID, string(apperrors.CodeInvalidPhaseAction),
			fmt.Sprintf("only the %s may resolve a choice", r.Preset.QualifyingRole.DisplayName()))
		return
	}

	var resolution phase.Resolution
	var err error
	if text != "" {
		resolution, err = r.Phase.ResolveFreeText(text)
	} else {
		resolution, err = r.Phase.ResolveSelection(selection)
	}
	if err != nil {
		_ = writeWSError(session.peer, requestID, string(apperrors.CodeFor(err)), err.Error())
		return
	}

	r.Touch()
	r.Scene.AppendLog(r.Preset.QualifyingRole.DisplayName(), resolution.Narration, "choice")
	d.broadcast(r, "system.message", systemMessagePayload{Text: resolution.Narration}, "")
	d.applyDeltas(r, resolution.Deltas)
	d.broadcast(r, "phase.changed", phaseChangedPayload{
		Phase:  string(r.Phase.Current()),
		Rounds: r.Phase.Rounds(),
	}, "")
	d.checkGameEnd(r)
}

// maybeBeginChoiceRound opens a structured-choice round when the trigger
// conditions hold. Choice generation runs inline under the generation
// timeout; any failure falls back to the deterministic default set.
func (d *director) maybeBeginChoiceRound(r *room.Room) bool {
	if r.Paused() {
		return false
	}
	if !r.Phase.ShouldTriggerChoice(r.HasQualifier(), r.Scene.SnapshotMetrics()) {
		return false
	}

	choices := d.generateChoices(r)
	if err := r.Phase.BeginChoice(choices); err != nil {
		return false
	}

	d.broadcast(r, "phase.changed", phaseChangedPayload{
		Phase:  string(phase.StructuredChoice),
		Rounds: r.Phase.Rounds(),
	}, "")
	options := make([]choiceOption, 0, len(choices))
	for _, choice := range choices {
		options = append(options, choiceOption{
			ID:          choice.ID,
			Description: choice.Description,
			Risk:        choice.Risk,
		})
	}
	d.broadcast(r, "choice.offer", choiceOfferPayload{
		Round:   r.Phase.Rounds() + 1,
		Choices: options,
	}, "")
	return true
}

func (d *director) generateChoices(r *room.Room) []phase.Choice {
	danger, _ := r.Scene.Metric("danger")

	narrator, ok := r.Preset.PersonaByRole(persona.RoleNarrator)
	if !ok {
		return phase.DefaultChoices(danger)
	}

	ctx, cancel := context.WithTimeout(context.Background(), timeouts.Generation)
	defer cancel()
	raw, err := d.generator.Generate(ctx, generate.Request{
		Voice:       narrator.Voice,
		PersonaName: narrator.Name,
		Prompt:      choicePrompt(r),
	})
	if err != nil {
		log.Printf("play: choice generation failed room=%s err=%v", r.ID, err)
		return phase.DefaultChoices(danger)
	}
	choices, err := phase.ParseChoicePayload(raw)
	if err != nil {
		log.Printf("play: choice payload unusable room=%s err=%v", r.ID, err)
		return phase.DefaultChoices(danger)
	}
	return choices
}

func choicePrompt(r *room.Room) string {
	var b strings.Builder
	b.WriteString("Offer exactly three choices for the next decisive moment as a JSON array. ")
	b.WriteString(`Each element needs "description", "risk" (1-5), "deltas" (metric name to signed integer), and "flavor". Reply with the JSON array only.`)
	b.WriteString("\n\nRecent scene:\n")
	for _, entry := range r.Scene.RecentLog(promptLogWindow) {
		fmt.Fprintf(&b, "%s: %s\n", entry.Speaker, entry.Content)
	}
	fmt.Fprintf(&b, "\nCurrent metrics: %v\n", r.Scene.SnapshotMetrics())
	return b.String()
}

// arbitrate requests candidate replies for one triggering message, scores
// and ranks them, and schedules staggered delivery. A positive limit caps
// how many ranked replies are delivered; chained and idle turns use 1.
// exclude keeps the persona that just spoke from answering itself.
func (d *director) arbitrate(r *room.Room, message string, limit int, exclude persona.Role) {
	if r.Closed() || r.Paused() || r.Phase.Current() != phase.FreeChat {
		return
	}

	category := intent.Classify(message)
	deltas := arbiter.DeltasFor(category)

	type outcome struct {
		response arbiter.Response
		ok       bool
	}

	var wg sync.WaitGroup
	results := make(chan outcome)
	candidates := 0
	for _, responder := range intent.PreferredResponders(category) {
		if responder.Role == exclude {
			continue
		}
		p, ok := r.Preset.PersonaByRole(responder.Role)
		if !ok || r.RoleHeld(responder.Role) {
			continue
		}
		if !r.TryAcquireLock(responder.Role) {
			// A call is already in flight for this persona; drop, never
			// queue.
			continue
		}
		candidates++
		wg.Add(1)
		go func(p persona.Persona, tier intent.Tier) {
			defer wg.Done()
			defer r.ReleaseLock(p.Role)

			content, fallback := d.generateReply(r, p, message)
			if !d.registry.Alive(r) {
				results <- outcome{}
				return
			}
			relevance, novelty, progress := arbiter.Score(content, message, r.Scene.RecentCoordination(5), p)
			results <- outcome{
				response: arbiter.Response{
					Role:      p.Role,
					Name:      p.Name,
					Content:   content,
					Tier:      tier,
					Relevance: relevance,
					Novelty:   novelty,
					Progress:  progress,
					Deltas:    deltas,
					Fallback:  fallback,
				},
				ok: true,
			}
		}(p, responder.Tier)
	}
	if candidates == 0 {
		return
	}

	go func() {
		wg.Wait()
		close(results)
	}()

	responses := make([]arbiter.Response, 0, candidates)
	for out := range results {
		if out.ok {
			responses = append(responses, out.response)
		}
	}
	if len(responses) == 0 {
		return
	}

	ranked := arbiter.Rank(responses)
	if limit > 0 && len(ranked) > limit {
		ranked = ranked[:limit]
	}
	for i, response := range ranked {
		d.schedule(arbiter.StaggerDelay(i), func() {
			d.deliver(r, response)
		})
	}
}

func (d *director) generateReply(r *room.Room, p persona.Persona, message string) (content string, fallback bool) {
	ctx, cancel := context.WithTimeout(context.Background(), timeouts.Generation)
	defer cancel()

	raw, err := d.generator.Generate(ctx, generate.Request{
		Voice:       p.Voice,
		PersonaName: p.Name,
		Prompt:      replyPrompt(r, message),
	})
	if err != nil {
		log.Printf("play: generation failed room=%s persona=%s err=%v", r.ID, p.Role, err)
		return persona.FallbackLine(p.Role), true
	}
	reply, err := generate.ValidateReply(raw)
	if err != nil {
		log.Printf("play: generation unusable room=%s persona=%s err=%v", r.ID, p.Role, err)
		return persona.FallbackLine(p.Role), true
	}
	return reply, false
}

func replyPrompt(r *room.Room, message string) string {
	var b strings.Builder
	b.WriteString("Reply in character with one or two sentences.\n\nRecent scene:\n")
	for _, entry := range r.Scene.RecentLog(promptLogWindow) {
		fmt.Fprintf(&b, "%s: %s\n", entry.Speaker, entry.Content)
	}
	fmt.Fprintf(&b, "\nCurrent metrics: %v\nLatest message: %s\n", r.Scene.SnapshotMetrics(), message)
	return b.String()
}

// deliver publishes one ranked reply. Liveness, pause, and phase are
// re-checked here because the room may have changed between scheduling and
// firing; suppressed replies are dropped, not requeued.
func (d *director) deliver(r *room.Room, response arbiter.Response) {
	if !d.registry.Alive(r) || r.Paused() || r.Phase.Current() != phase.FreeChat {
		return
	}

	r.Scene.AppendLog(response.Name, response.Content, "persona")
	failed := r.Broadcast("persona.message", personaMessagePayload{
		Role: string(response.Role),
		Name: response.Name,
		Body: response.Content,
		Tier: int(response.Tier),
		Scores: personaScores{
			Relevance: response.Relevance,
			Novelty:   response.Novelty,
			Progress:  response.Progress,
		},
		Fallback: response.Fallback,
		SentAt:   d.now().UTC().Format(time.RFC3339),
	}, "")
	d.removeFailed(r, failed)

	d.applyDeltas(r, response.Deltas)
	r.RecordPersonaTurn()
	r.Touch()
	d.checkGameEnd(r)

	if r.PersonaTurns() < maxChainedTurns && r.Phase.Current() == phase.FreeChat {
		go d.arbitrate(r, response.Content, 1, response.Role)
	}
}

// applyDeltas applies metric side-effects exactly once and broadcasts a
// scene update when any metric actually moved.
func (d *director) applyDeltas(r *room.Room, deltas map[string]int) {
	if len(deltas) == 0 {
		return
	}
	before := r.Scene.SnapshotMetrics()
	effective := r.Scene.ApplyDeltas(deltas)

	moved := false
	for _, delta := range effective {
		if delta != 0 {
			moved = true
			break
		}
	}
	if !moved {
		return
	}

	after := r.Scene.SnapshotMetrics()
	unlockedBefore := r.Preset.UnlockedCards(before)
	unlockedAfter := r.Preset.UnlockedCards(after)
	d.broadcast(r, "scene.update", sceneUpdatePayload{
		Metrics:       after,
		Deltas:        effective,
		UnlockedCards: newlyUnlocked(unlockedBefore, unlockedAfter),
	}, "")
}

func newlyUnlocked(before, after []string) []string {
	seen := make(map[string]struct{}, len(before))
	for _, cardID := range before {
		seen[cardID] = struct{}{}
	}
	var fresh []string
	for _, cardID := range after {
		if _, ok := seen[cardID]; !ok {
			fresh = append(fresh, cardID)
		}
	}
	return fresh
}

func (d *director) checkGameEnd(r *room.Room) {
	outcome, ended := r.Phase.CheckEnd(r.Scene.SnapshotMetrics())
	if !ended || !r.Phase.ConsumeEndAnnouncement() {
		return
	}

	d.broadcast(r, "phase.changed", phaseChangedPayload{
		Phase:  string(phase.Ended),
		Rounds: outcome.Rounds,
	}, "")
	d.broadcast(r, "game.ended", gameEndedPayload{
		Result:       string(outcome.Result),
		Score:        outcome.Score,
		Reason:       outcome.Reason,
		Rounds:       outcome.Rounds,
		FinalMetrics: outcome.FinalMetrics,
	}, "")
	log.Printf("play: game ended room=%s result=%s score=%d reason=%q", r.ID, outcome.Result, outcome.Score, outcome.Reason)

	d.archiveResult(r, outcome)
}

func (d *director) archiveResult(r *room.Room, outcome phase.Outcome) {
	if d.results == nil {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), timeouts.ReadHeader)
	defer cancel()
	err := d.results.SaveResult(ctx, storage.GameResultRecord{
		ID:           d.newID(),
		RoomID:       r.ID,
		Preset:       r.Preset.Name,
		Result:       string(outcome.Result),
		Score:        outcome.Score,
		Reason:       outcome.Reason,
		Rounds:       outcome.Rounds,
		FinalMetrics: outcome.FinalMetrics,
		EndedAt:      outcome.EndedAt,
	})
	if err != nil {
		log.Printf("play: archive result failed room=%s err=%v", r.ID, err)
	}
}

func (d *director) sessionRoom(session *wsSession, requestID string) (*room.Room, bool) {
	_, _, _, roomID := session.identity()
	if roomID == "" {
		_ = writeWSError(session.peer, requestID, "INVALID_ARGUMENT", "must join a room first")
		return nil, false
	}
	r, err := d.registry.Get(roomID)
	if err != nil {
		_ = writeWSError(session.peer, requestID, string(apperrors.CodeFor(err)), err.Error())
		return nil, false
	}
	return r, true
}

func (d *director) broadcast(r *room.Room, kind string, payload any, excludeID string) {
	d.removeFailed(r, r.Broadcast(kind, payload, excludeID))
}

// removeFailed disconnects participants whose delivery failed. Their read
// loops will also attempt a leave on close; the second leave is a no-op.
func (d *director) removeFailed(r *room.Room, failed []string) {
	for _, participantID := range failed {
		p, ok := r.Participant(participantID)
		if !ok {
			continue
		}
		if !d.registry.Leave(r.ID, participantID) {
			continue
		}
		log.Printf("play: dropped unreachable participant room=%s participant=%s", r.ID, participantID)
		d.broadcast(r, "user.left", presencePayload{
			ParticipantID: p.ID,
			Name:          p.Name,
			Role:          string(p.Role),
		}, participantID)
	}
}

// roomSummaries backs GET /rooms.
func (d *director) roomSummaries() []map[string]any {
	rooms := d.registry.List()
	summaries := make([]map[string]any, 0, len(rooms))
	for _, r := range rooms {
		summaries = append(summaries, map[string]any{
			"id":        r.ID,
			"preset":    r.Preset.Name,
			"occupancy": r.Occupancy(),
			"phase":     string(r.Phase.Current()),
			"rounds":    r.Phase.Rounds(),
		})
	}
	return summaries
}

// sceneView backs GET /rooms/{id}/scene.
func (d *director) sceneView(roomID string) (map[string]any, bool) {
	r, err := d.registry.Get(roomID)
	if err != nil {
		return nil, false
	}
	metrics := r.Scene.SnapshotMetrics()
	return map[string]any{
		"room_id":        r.ID,
		"metrics":        metrics,
		"unlocked_cards": r.Preset.UnlockedCards(metrics),
		"phase":          string(r.Phase.Current()),
		"rounds":         r.Phase.Rounds(),
	}, true
}

// recentResults backs GET /results.
func (d *director) recentResults(ctx context.Context) []storage.GameResultRecord {
	if d.results == nil {
		return []storage.GameResultRecord{}
	}
	records, err := d.results.RecentResults(ctx, recentResultsLimit)
	if err != nil {
		log.Printf("play: list results failed err=%v", err)
		return []storage.GameResultRecord{}
	}
	if records == nil {
		records = []storage.GameResultRecord{}
	}
	return records
}
