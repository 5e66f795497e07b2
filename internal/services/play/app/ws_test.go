package server

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/ashfall-games/parlor/internal/generate"
	"golang.org/x/net/websocket"
)

type wsTestFrame struct {
	Type      string          `json:"type"`
	RequestID string          `json:"request_id,omitempty"`
	Payload   json.RawMessage `json:"payload"`
}

func newTestHandler() http.Handler {
	return NewHandler(newDirector(generate.NewScripted(), nil))
}

func dialWS(t *testing.T, handler http.Handler) *websocket.Conn {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	return dialWSWithExistingServer(t, srv)
}

func dialWSWithExistingServer(t *testing.T, srv *httptest.Server) *websocket.Conn {
	t.Helper()
	wsURL := "ws" + strings.TrimPrefix(srv.URL, "http") + "/ws"
	conn, err := websocket.Dial(wsURL, "", srv.URL)
	if err != nil {
		t.Fatalf("dial websocket: %v", err)
	}
	t.Cleanup(func() {
		_ = conn.Close()
	})
	return conn
}

func writeFrame(t *testing.T, conn *websocket.Conn, frame map[string]any) {
	t.Helper()
	if err := json.NewEncoder(conn).Encode(frame); err != nil {
		t.Fatalf("encode frame: %v", err)
	}
}

func readFrame(t *testing.T, conn *websocket.Conn) wsTestFrame {
	t.Helper()
	_ = conn.SetDeadline(time.Now().Add(3 * time.Second))
	var got wsTestFrame
	if err := json.NewDecoder(conn).Decode(&got); err != nil {
		t.Fatalf("decode server frame: %v", err)
	}
	return got
}

// readFrameOfType skips interleaved broadcasts until the wanted frame type
// arrives.
func readFrameOfType(t *testing.T, conn *websocket.Conn, wantType string) wsTestFrame {
	t.Helper()
	for range 10 {
		got := readFrame(t, conn)
		if got.Type == wantType {
			return got
		}
	}
	t.Fatalf("frame type %q never arrived", wantType)
	return wsTestFrame{}
}

func joinRoom(t *testing.T, conn *websocket.Conn, roomID, name, role string) {
	t.Helper()
	writeFrame(t, conn, map[string]any{
		"type":       "room.join",
		"request_id": "req-join-" + name,
		"payload": map[string]any{
			"room_id": roomID,
			"name":    name,
			"role":    role,
			"preset":  "velvet_hall",
		},
	})
	joined := readFrame(t, conn)
	if joined.Type != "room.joined" {
		t.Fatalf("frame type = %q, want %q (payload %s)", joined.Type, "room.joined", joined.Payload)
	}
	state := readFrame(t, conn)
	if state.Type != "room.state" {
		t.Fatalf("frame type = %q, want %q", state.Type, "room.state")
	}
}

func TestWebSocketJoinReturnsRoomState(t *testing.T) {
	conn := dialWS(t, newTestHandler())

	writeFrame(t, conn, map[string]any{
		"type":       "room.join",
		"request_id": "req-join-1",
		"payload": map[string]any{
			"room_id": "salon-1",
			"name":    "Aysel",
			"role":    "envoy",
			"preset":  "velvet_hall",
		},
	})

	joined := readFrame(t, conn)
	if joined.Type != "room.joined" {
		t.Fatalf("frame type = %q, want %q", joined.Type, "room.joined")
	}
	if !strings.Contains(string(joined.Payload), "salon-1") {
		t.Fatalf("joined payload = %s, expected room id", joined.Payload)
	}

	state := readFrame(t, conn)
	if state.Type != "room.state" {
		t.Fatalf("frame type = %q, want %q", state.Type, "room.state")
	}
	var parsed roomStatePayload
	if err := json.Unmarshal(state.Payload, &parsed); err != nil {
		t.Fatalf("decode room state: %v", err)
	}
	if parsed.Metrics["intimacy"] != 30 {
		t.Fatalf("metrics[intimacy] = %d, want 30", parsed.Metrics["intimacy"])
	}
	if parsed.Phase != "free_chat" {
		t.Fatalf("phase = %q, want free_chat", parsed.Phase)
	}
	if len(parsed.Occupants) != 1 || parsed.Occupants[0].Name != "Aysel" {
		t.Fatalf("occupants = %+v, want Aysel alone", parsed.Occupants)
	}
}

func TestWebSocketJoinRoleConflict(t *testing.T) {
	srv := httptest.NewServer(newTestHandler())
	t.Cleanup(srv.Close)

	connA := dialWSWithExistingServer(t, srv)
	connB := dialWSWithExistingServer(t, srv)
	joinRoom(t, connA, "salon-1", "Aysel", "envoy")

	writeFrame(t, connB, map[string]any{
		"type":       "room.join",
		"request_id": "req-join-2",
		"payload": map[string]any{
			"room_id": "salon-1",
			"name":    "Demir",
			"role":    "envoy",
		},
	})

	got := readFrame(t, connB)
	if got.Type != "play.error" {
		t.Fatalf("frame type = %q, want %q", got.Type, "play.error")
	}
	if !strings.Contains(string(got.Payload), "ROLE_CONFLICT") {
		t.Fatalf("error payload = %s, expected ROLE_CONFLICT", got.Payload)
	}
}

func TestWebSocketNarratorRoleRejected(t *testing.T) {
	conn := dialWS(t, newTestHandler())

	writeFrame(t, conn, map[string]any{
		"type":       "room.join",
		"request_id": "req-join-1",
		"payload": map[string]any{
			"room_id": "salon-1",
			"name":    "Aysel",
			"role":    "narrator",
		},
	})

	got := readFrame(t, conn)
	if got.Type != "play.error" {
		t.Fatalf("frame type = %q, want %q", got.Type, "play.error")
	}
	if !strings.Contains(string(got.Payload), "INVALID_ARGUMENT") {
		t.Fatalf("error payload = %s, expected INVALID_ARGUMENT", got.Payload)
	}
}

func TestWebSocketUnknownTypeReturnsError(t *testing.T) {
	conn := dialWS(t, newTestHandler())

	writeFrame(t, conn, map[string]any{
		"type":       "play.unknown",
		"request_id": "req-bad-1",
		"payload":    map[string]any{},
	})

	got := readFrame(t, conn)
	if got.Type != "play.error" {
		t.Fatalf("frame type = %q, want %q", got.Type, "play.error")
	}
	if !strings.Contains(string(got.Payload), "INVALID_ARGUMENT") {
		t.Fatalf("error payload = %s, expected INVALID_ARGUMENT", got.Payload)
	}
}

func TestWebSocketChatBeforeJoinReturnsError(t *testing.T) {
	conn := dialWS(t, newTestHandler())

	writeFrame(t, conn, map[string]any{
		"type":       "chat.send",
		"request_id": "req-send-1",
		"payload":    map[string]any{"body": "hello"},
	})

	got := readFrame(t, conn)
	if got.Type != "play.error" {
		t.Fatalf("frame type = %q, want %q", got.Type, "play.error")
	}
	if !strings.Contains(string(got.Payload), "must join a room first") {
		t.Fatalf("error payload = %s, expected join-first message", got.Payload)
	}
}

func TestWebSocketChatBroadcastsAndPersonasReply(t *testing.T) {
	srv := httptest.NewServer(newTestHandler())
	t.Cleanup(srv.Close)

	// No envoy in the room, so no choice round can trigger and the envoy
	// persona stays computer-driven.
	connA := dialWSWithExistingServer(t, srv)
	connB := dialWSWithExistingServer(t, srv)
	joinRoom(t, connA, "salon-1", "Demir", "muse")
	joinRoom(t, connB, "salon-1", "Seyit", "spectator")
	// Demir sees Seyit arrive.
	_ = readFrameOfType(t, connA, "user.joined")

	writeFrame(t, connA, map[string]any{
		"type":       "chat.send",
		"request_id": "req-send-1",
		"payload":    map[string]any{"body": "good evening to this hall"},
	})

	chatA := readFrameOfType(t, connA, "chat.message")
	if !strings.Contains(string(chatA.Payload), "good evening to this hall") {
		t.Fatalf("sender chat payload = %s", chatA.Payload)
	}
	chatB := readFrameOfType(t, connB, "chat.message")
	if !strings.Contains(string(chatB.Payload), "Demir") {
		t.Fatalf("receiver chat payload = %s, expected sender name", chatB.Payload)
	}

	// The narrator outranks the envoy persona for a general message, so
	// its reply is staggered in first.
	first := readFrameOfType(t, connB, "persona.message")
	var parsed personaMessagePayload
	if err := json.Unmarshal(first.Payload, &parsed); err != nil {
		t.Fatalf("decode persona message: %v", err)
	}
	if parsed.Role != "narrator" {
		t.Fatalf("first persona role = %q, want narrator", parsed.Role)
	}
	if parsed.Body == "" || parsed.Tier == 0 {
		t.Fatalf("persona payload incomplete: %+v", parsed)
	}

	second := readFrameOfType(t, connB, "persona.message")
	if !strings.Contains(string(second.Payload), "envoy") {
		t.Fatalf("second persona payload = %s, want envoy persona", second.Payload)
	}
}

func TestWebSocketTypingFansOutToOthers(t *testing.T) {
	srv := httptest.NewServer(newTestHandler())
	t.Cleanup(srv.Close)

	connA := dialWSWithExistingServer(t, srv)
	connB := dialWSWithExistingServer(t, srv)
	joinRoom(t, connA, "salon-1", "Aysel", "envoy")
	joinRoom(t, connB, "salon-1", "Demir", "muse")

	writeFrame(t, connA, map[string]any{
		"type":    "typing.start",
		"payload": map[string]any{},
	})

	got := readFrameOfType(t, connB, "user.typing")
	var parsed typingPayload
	if err := json.Unmarshal(got.Payload, &parsed); err != nil {
		t.Fatalf("decode typing payload: %v", err)
	}
	if parsed.Name != "Aysel" || !parsed.Typing {
		t.Fatalf("typing payload = %+v, want Aysel typing", parsed)
	}
}

func TestWebSocketPauseBroadcastsSystemMessage(t *testing.T) {
	conn := dialWS(t, newTestHandler())
	joinRoom(t, conn, "salon-1", "Aysel", "envoy")

	writeFrame(t, conn, map[string]any{
		"type":    "room.pause",
		"payload": map[string]any{"seconds": 30},
	})

	got := readFrameOfType(t, conn, "system.message")
	if !strings.Contains(string(got.Payload), "paused the room") {
		t.Fatalf("system payload = %s, expected pause notice", got.Payload)
	}
}

func TestWebSocketChoiceRoundLifecycle(t *testing.T) {
	srv := httptest.NewServer(newTestHandler())
	t.Cleanup(srv.Close)

	conn := dialWSWithExistingServer(t, srv)
	joinRoom(t, conn, "salon-1", "Aysel", "envoy")

	// velvet_hall starts above its intimacy trigger threshold, so the
	// first chat from a qualified room opens a choice round. The scripted
	// generator returns prose, which forces the default choice set.
	writeFrame(t, conn, map[string]any{
		"type":       "chat.send",
		"request_id": "req-send-1",
		"payload":    map[string]any{"body": "I step into the hall"},
	})

	_ = readFrameOfType(t, conn, "chat.message")
	phaseChanged := readFrameOfType(t, conn, "phase.changed")
	if !strings.Contains(string(phaseChanged.Payload), "structured_choice") {
		t.Fatalf("phase payload = %s, want structured_choice", phaseChanged.Payload)
	}

	offer := readFrameOfType(t, conn, "choice.offer")
	var parsedOffer choiceOfferPayload
	if err := json.Unmarshal(offer.Payload, &parsedOffer); err != nil {
		t.Fatalf("decode choice offer: %v", err)
	}
	if len(parsedOffer.Choices) != 3 {
		t.Fatalf("len(choices) = %d, want 3", len(parsedOffer.Choices))
	}
	if parsedOffer.Round != 1 {
		t.Fatalf("offer round = %d, want 1", parsedOffer.Round)
	}

	writeFrame(t, conn, map[string]any{
		"type":       "choice.respond",
		"request_id": "req-choice-1",
		"payload":    map[string]any{"selection": 1},
	})

	narration := readFrameOfType(t, conn, "system.message")
	if len(narration.Payload) == 0 {
		t.Fatalf("empty narration payload")
	}
	update := readFrameOfType(t, conn, "scene.update")
	var parsedUpdate sceneUpdatePayload
	if err := json.Unmarshal(update.Payload, &parsedUpdate); err != nil {
		t.Fatalf("decode scene update: %v", err)
	}
	if parsedUpdate.Deltas["tension"] == 0 {
		t.Fatalf("scene update deltas = %v, want tension movement", parsedUpdate.Deltas)
	}

	resolved := readFrameOfType(t, conn, "phase.changed")
	var parsedPhase phaseChangedPayload
	if err := json.Unmarshal(resolved.Payload, &parsedPhase); err != nil {
		t.Fatalf("decode phase payload: %v", err)
	}
	if parsedPhase.Phase != "free_chat" || parsedPhase.Rounds != 1 {
		t.Fatalf("phase payload = %+v, want free_chat round 1", parsedPhase)
	}
}

func TestWebSocketChatNumberSelectsChoice(t *testing.T) {
	srv := httptest.NewServer(newTestHandler())
	t.Cleanup(srv.Close)

	conn := dialWSWithExistingServer(t, srv)
	joinRoom(t, conn, "salon-1", "Aysel", "envoy")

	writeFrame(t, conn, map[string]any{
		"type":       "chat.send",
		"request_id": "req-send-1",
		"payload":    map[string]any{"body": "I step into the hall"},
	})
	_ = readFrameOfType(t, conn, "choice.offer")

	// Typing a bare option number in chat resolves that choice with its
	// predicted deltas, not the free-text evaluator's.
	writeFrame(t, conn, map[string]any{
		"type":       "chat.send",
		"request_id": "req-send-2",
		"payload":    map[string]any{"body": "2"},
	})

	update := readFrameOfType(t, conn, "scene.update")
	var parsed sceneUpdatePayload
	if err := json.Unmarshal(update.Payload, &parsed); err != nil {
		t.Fatalf("decode scene update: %v", err)
	}
	if parsed.Deltas["spend"] != 4 || parsed.Deltas["intimacy"] != 2 {
		t.Fatalf("deltas = %v, want choice 2's {spend:4 intimacy:2}", parsed.Deltas)
	}

	resolved := readFrameOfType(t, conn, "phase.changed")
	var parsedPhase phaseChangedPayload
	if err := json.Unmarshal(resolved.Payload, &parsedPhase); err != nil {
		t.Fatalf("decode phase payload: %v", err)
	}
	if parsedPhase.Phase != "free_chat" || parsedPhase.Rounds != 1 {
		t.Fatalf("phase payload = %+v, want free_chat round 1", parsedPhase)
	}
}

func TestWebSocketNonQualifierGetsWaitNoticeDuringChoice(t *testing.T) {
	srv := httptest.NewServer(newTestHandler())
	t.Cleanup(srv.Close)

	envoy := dialWSWithExistingServer(t, srv)
	muse := dialWSWithExistingServer(t, srv)
	joinRoom(t, envoy, "salon-1", "Aysel", "envoy")
	joinRoom(t, muse, "salon-1", "Demir", "muse")

	writeFrame(t, envoy, map[string]any{
		"type":       "chat.send",
		"request_id": "req-send-1",
		"payload":    map[string]any{"body": "I step into the hall"},
	})
	_ = readFrameOfType(t, muse, "choice.offer")

	writeFrame(t, muse, map[string]any{
		"type":       "chat.send",
		"request_id": "req-send-2",
		"payload":    map[string]any{"body": "may I interject"},
	})

	notice := readFrameOfType(t, muse, "system.message")
	if !strings.Contains(string(notice.Payload), "Please wait") {
		t.Fatalf("notice payload = %s, expected wait notice", notice.Payload)
	}
}

func TestIntrospectionEndpoints(t *testing.T) {
	srv := httptest.NewServer(newTestHandler())
	t.Cleanup(srv.Close)

	conn := dialWSWithExistingServer(t, srv)
	joinRoom(t, conn, "salon-1", "Aysel", "envoy")

	resp, err := http.Get(srv.URL + "/up")
	if err != nil {
		t.Fatalf("GET /up: %v", err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("GET /up status = %d, want 200", resp.StatusCode)
	}

	resp, err = http.Get(srv.URL + "/rooms")
	if err != nil {
		t.Fatalf("GET /rooms: %v", err)
	}
	var rooms []map[string]any
	if err := json.NewDecoder(resp.Body).Decode(&rooms); err != nil {
		t.Fatalf("decode rooms: %v", err)
	}
	resp.Body.Close()
	if len(rooms) != 1 || rooms[0]["id"] != "salon-1" {
		t.Fatalf("rooms = %v, want salon-1", rooms)
	}

	resp, err = http.Get(srv.URL + "/rooms/salon-1/scene")
	if err != nil {
		t.Fatalf("GET /rooms/salon-1/scene: %v", err)
	}
	var scene map[string]any
	if err := json.NewDecoder(resp.Body).Decode(&scene); err != nil {
		t.Fatalf("decode scene: %v", err)
	}
	resp.Body.Close()
	metrics, ok := scene["metrics"].(map[string]any)
	if !ok || metrics["intimacy"] != float64(30) {
		t.Fatalf("scene = %v, want intimacy 30", scene)
	}

	resp, err = http.Get(srv.URL + "/rooms/no-such-room/scene")
	if err != nil {
		t.Fatalf("GET missing scene: %v", err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusNotFound {
		t.Fatalf("missing room status = %d, want 404", resp.StatusCode)
	}

	resp, err = http.Get(srv.URL + "/results")
	if err != nil {
		t.Fatalf("GET /results: %v", err)
	}
	var results []any
	if err := json.NewDecoder(resp.Body).Decode(&results); err != nil {
		t.Fatalf("decode results: %v", err)
	}
	resp.Body.Close()
	if len(results) != 0 {
		t.Fatalf("results = %v, want empty without a store", results)
	}
}
