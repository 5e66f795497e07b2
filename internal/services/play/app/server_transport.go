package server

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"time"

	"github.com/ashfall-games/parlor/internal/platform/timeouts"
	"golang.org/x/net/websocket"
)

// NewHandler creates play routes backed by a fresh director, for tests and
// offline paths.
func NewHandler(d *director) http.Handler {
	return newHandler(d)
}

func newHandler(d *director) http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/up", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("OK"))
	})
	mux.HandleFunc("GET /rooms", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, d.roomSummaries())
	})
	mux.HandleFunc("GET /rooms/{id}/scene", func(w http.ResponseWriter, r *http.Request) {
		view, ok := d.sceneView(r.PathValue("id"))
		if !ok {
			http.Error(w, "room not found", http.StatusNotFound)
			return
		}
		writeJSON(w, view)
	})
	mux.HandleFunc("GET /results", func(w http.ResponseWriter, r *http.Request) {
		ctx, cancel := context.WithTimeout(r.Context(), timeouts.ReadHeader)
		defer cancel()
		writeJSON(w, d.recentResults(ctx))
	})

	wsHandler := websocket.Handler(func(conn *websocket.Conn) {
		handleWSConn(conn, d)
	})
	mux.HandleFunc("/ws", func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodGet {
			w.Header().Set("Allow", http.MethodGet)
			http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
			return
		}
		wsHandler.ServeHTTP(w, r)
	})

	return mux
}

func writeJSON(w http.ResponseWriter, v any) {
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(v)
}

func handleWSConn(conn *websocket.Conn, d *director) {
	defer func() {
		_ = conn.Close()
	}()

	decoder := json.NewDecoder(conn)
	session := newWSSession(newWSPeer(json.NewEncoder(conn)))
	defer d.handleDisconnect(session)

	windowStart := time.Now()
	framesInWindow := 0
	decodeErrors := 0

	for {
		var frame wsFrame
		if err := decoder.Decode(&frame); err != nil {
			if errors.Is(err, io.EOF) {
				return
			}
			decodeErrors++
			_ = writeWSError(session.peer, "", "INVALID_ARGUMENT", "invalid frame payload")
			if decodeErrors >= maxDecodeErrorsPerConn {
				return
			}
			continue
		}
		decodeErrors = 0

		if len(frame.Payload) > maxFramePayloadBytes {
			_ = writeWSError(session.peer, frame.RequestID, "INVALID_ARGUMENT", "payload too large")
			continue
		}

		now := time.Now()
		if now.Sub(windowStart) >= time.Second {
			windowStart = now
			framesInWindow = 0
		}
		framesInWindow++
		if framesInWindow > maxFramesPerSecond {
			_ = writeWSError(session.peer, frame.RequestID, "RESOURCE_EXHAUSTED", "rate limit exceeded")
			return
		}

		switch frame.Type {
		case "room.join":
			d.handleJoin(session, frame)
		case "chat.send":
			d.handleChat(session, frame)
		case "room.pause":
			d.handlePause(session, frame)
		case "room.resume":
			d.handleResume(session, frame)
		case "typing.start":
			d.handleTyping(session, frame, true)
		case "typing.stop":
			d.handleTyping(session, frame, false)
		case "choice.respond":
			d.handleChoiceRespond(session, frame)
		default:
			_ = writeWSError(session.peer, frame.RequestID, "INVALID_ARGUMENT", "unsupported frame type")
		}
	}
}
