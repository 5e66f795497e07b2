// Package server hosts the play service: the websocket protocol for live
// game rooms and the read-only introspection endpoints beside it.
package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/ashfall-games/parlor/internal/engine/persona"
	"github.com/ashfall-games/parlor/internal/generate"
	"github.com/ashfall-games/parlor/internal/platform/timeouts"
	"github.com/ashfall-games/parlor/internal/storage"
)

const (
	maxFramePayloadBytes   = 16 * 1024
	maxFramesPerSecond     = 40
	maxDecodeErrorsPerConn = 3
	maxMessageBodyRunes    = 2000
	maxNameRunes           = 64
)

// Config carries play server settings.
type Config struct {
	HTTPAddr          string
	ReadHeaderTimeout time.Duration
	ShutdownTimeout   time.Duration

	// Generator produces persona prose and choice sets. Required.
	Generator generate.Generator
	// Results archives finished games. Optional; a nil store disables
	// archiving and the /results endpoint returns an empty list.
	Results storage.ResultStore
}

// Server is the play service's HTTP surface plus its background tickers.
type Server struct {
	httpAddr        string
	shutdownTimeout time.Duration
	httpServer      *http.Server

	tickerStop context.CancelFunc
	tickerDone chan struct{}
}

type wsFrame struct {
	Type      string          `json:"type"`
	RequestID string          `json:"request_id,omitempty"`
	Payload   json.RawMessage `json:"payload"`
}

type wsErrorEnvelope struct {
	Error wsError `json:"error"`
}

type wsError struct {
	Code      string `json:"code"`
	Message   string `json:"message"`
	Retryable bool   `json:"retryable"`
}

type joinPayload struct {
	RoomID string `json:"room_id"`
	Name   string `json:"name"`
	Role   string `json:"role"`
	Preset string `json:"preset,omitempty"`
}

type joinedPayload struct {
	RoomID        string `json:"room_id"`
	ParticipantID string `json:"participant_id"`
	Name          string `json:"name"`
	Role          string `json:"role"`
	Preset        string `json:"preset"`
	ServerTime    string `json:"server_time"`
}

type occupantState struct {
	ParticipantID string `json:"participant_id"`
	Name          string `json:"name"`
	Role          string `json:"role"`
	Typing        bool   `json:"typing"`
}

type roomStatePayload struct {
	RoomID        string          `json:"room_id"`
	Occupants     []occupantState `json:"occupants"`
	Paused        bool            `json:"paused"`
	Metrics       map[string]int  `json:"metrics"`
	UnlockedCards []string        `json:"unlocked_cards"`
	Phase         string          `json:"phase"`
	Rounds        int             `json:"rounds"`
}

type presencePayload struct {
	ParticipantID string `json:"participant_id"`
	Name          string `json:"name"`
	Role          string `json:"role"`
}

type typingPayload struct {
	ParticipantID string `json:"participant_id"`
	Name          string `json:"name"`
	Typing        bool   `json:"typing"`
}

type chatSendPayload struct {
	Body string `json:"body"`
}

type chatMessagePayload struct {
	ParticipantID string `json:"participant_id"`
	Name          string `json:"name"`
	Role          string `json:"role"`
	Body          string `json:"body"`
	SentAt        string `json:"sent_at"`
}

type personaScores struct {
	Relevance float64 `json:"relevance"`
	Novelty   float64 `json:"novelty"`
	Progress  float64 `json:"progress"`
}

type personaMessagePayload struct {
	Role     string        `json:"role"`
	Name     string        `json:"name"`
	Body     string        `json:"body"`
	Tier     int           `json:"tier"`
	Scores   personaScores `json:"scores"`
	Fallback bool          `json:"fallback,omitempty"`
	SentAt   string        `json:"sent_at"`
}

type systemMessagePayload struct {
	Text string `json:"text"`
}

type sceneUpdatePayload struct {
	Metrics       map[string]int `json:"metrics"`
	Deltas        map[string]int `json:"deltas"`
	UnlockedCards []string       `json:"unlocked_cards,omitempty"`
}

type pausePayload struct {
	Seconds int `json:"seconds,omitempty"`
}

type choiceOption struct {
	ID          string `json:"id"`
	Description string `json:"description"`
	Risk        int    `json:"risk"`
}

type choiceOfferPayload struct {
	Round   int            `json:"round"`
	Choices []choiceOption `json:"choices"`
}

type choiceRespondPayload struct {
	Selection int    `json:"selection,omitempty"`
	Text      string `json:"text,omitempty"`
}

type phaseChangedPayload struct {
	Phase  string `json:"phase"`
	Rounds int    `json:"rounds"`
}

type gameEndedPayload struct {
	Result       string         `json:"result"`
	Score        int            `json:"score"`
	Reason       string         `json:"reason"`
	Rounds       int            `json:"rounds"`
	FinalMetrics map[string]int `json:"final_metrics"`
}

// wsSession tracks one connection's joined identity.
type wsSession struct {
	mu            sync.Mutex
	peer          *wsPeer
	participantID string
	name          string
	role          persona.Role
	roomID        string
}

func newWSSession(peer *wsPeer) *wsSession {
	return &wsSession{peer: peer}
}

func (s *wsSession) setIdentity(participantID, name string, role persona.Role, roomID string) {
	s.mu.Lock()
	s.participantID = participantID
	s.name = name
	s.role = role
	s.roomID = roomID
	s.mu.Unlock()
}

func (s *wsSession) identity() (participantID, name string, role persona.Role, roomID string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.participantID, s.name, s.role, s.roomID
}

func (s *wsSession) joined() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.roomID != ""
}

// wsPeer serializes frame writes to one connection. It implements
// room.Sink so engine broadcasts reach the transport directly.
type wsPeer struct {
	mu      sync.Mutex
	encoder *json.Encoder
}

func newWSPeer(encoder *json.Encoder) *wsPeer {
	return &wsPeer{encoder: encoder}
}

func (p *wsPeer) writeFrame(frame wsFrame) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.encoder.Encode(frame)
}

// Send implements room.Sink.
func (p *wsPeer) Send(kind string, payload any) error {
	return p.writeFrame(wsFrame{Type: kind, Payload: mustJSON(payload)})
}

func writeWSError(peer *wsPeer, requestID string, code string, message string) error {
	return peer.writeFrame(wsFrame{
		Type:      "play.error",
		RequestID: requestID,
		Payload: mustJSON(wsErrorEnvelope{
			Error: wsError{
				Code:      code,
				Message:   message,
				Retryable: false,
			},
		}),
	})
}

func mustJSON(v any) json.RawMessage {
	b, err := json.Marshal(v)
	if err != nil {
		log.Printf("play: failed to marshal frame payload: %v", err)
		return nil
	}
	return b
}

// NewServer builds a configured play server.
func NewServer(config Config) (*Server, error) {
	httpAddr := strings.TrimSpace(config.HTTPAddr)
	if httpAddr == "" {
		return nil, errors.New("http address is required")
	}
	if config.Generator == nil {
		return nil, errors.New("generator is required")
	}
	if config.ReadHeaderTimeout <= 0 {
		config.ReadHeaderTimeout = timeouts.ReadHeader
	}
	if config.ShutdownTimeout <= 0 {
		config.ShutdownTimeout = timeouts.Shutdown
	}

	d := newDirector(config.Generator, config.Results)
	httpServer := &http.Server{
		Addr:              httpAddr,
		Handler:           NewHandler(d),
		ReadHeaderTimeout: config.ReadHeaderTimeout,
	}

	tickerCtx, tickerStop := context.WithCancel(context.Background())
	tickerDone := make(chan struct{})
	go func() {
		defer close(tickerDone)
		d.runTickers(tickerCtx)
	}()

	return &Server{
		httpAddr:        httpAddr,
		shutdownTimeout: config.ShutdownTimeout,
		httpServer:      httpServer,
		tickerStop:      tickerStop,
		tickerDone:      tickerDone,
	}, nil
}

// Run creates and serves a play server until the context ends.
func Run(ctx context.Context, config Config) error {
	server, err := NewServer(config)
	if err != nil {
		return fmt.Errorf("init play server: %w", err)
	}
	defer server.Close()

	if err := server.ListenAndServe(ctx); err != nil {
		return fmt.Errorf("serve play: %w", err)
	}
	return nil
}

// ListenAndServe runs the HTTP server until the context ends.
func (s *Server) ListenAndServe(ctx context.Context) error {
	if s == nil {
		return errors.New("play server is nil")
	}
	if ctx == nil {
		return errors.New("context is required")
	}

	serveErr := make(chan error, 1)
	log.Printf("play server listening on %s", s.httpAddr)
	go func() {
		serveErr <- s.httpServer.ListenAndServe()
	}()

	select {
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), s.shutdownTimeout)
		err := s.httpServer.Shutdown(shutdownCtx)
		cancel()
		if err != nil {
			return fmt.Errorf("shutdown http server: %w", err)
		}
		return nil
	case err := <-serveErr:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return fmt.Errorf("serve http: %w", err)
	}
}

// Close stops the background tickers.
func (s *Server) Close() {
	if s == nil {
		return
	}
	if s.tickerStop != nil {
		s.tickerStop()
	}
	if s.tickerDone != nil {
		<-s.tickerDone
	}
}
