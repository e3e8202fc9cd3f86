// Package server provides HTTP and WebSocket handlers for the detection
// engine: decision/warning broadcast to overlay clients plus a small REST
// surface for control and inspection.
package server

import (
	"context"
	"encoding/json"
	"image"
	"image/draw"
	_ "image/jpeg"
	_ "image/png"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/coder/websocket"
	"github.com/coder/websocket/wsjson"

	"github.com/sightveil/platform/internal/config"
	"github.com/sightveil/platform/internal/detect"
	"github.com/sightveil/platform/internal/monitor"
	"github.com/sightveil/platform/internal/orchestrator"
	"github.com/sightveil/platform/internal/trace"
	"github.com/sightveil/platform/internal/warning"
)

// Message types.
type Message struct {
	Type string `json:"type"`
}

type DecisionMessage struct {
	Type string `json:"type"`
	orchestrator.DecisionEvent
}

type WarningMessage struct {
	Type            string `json:"type"`
	State           string `json:"state"`
	RequiredSeconds int    `json:"required_seconds"`
	Remaining       int    `json:"remaining_seconds"`
}

type WarningAckMessage struct {
	Type      string `json:"type"`
	Dismissed bool   `json:"dismissed"`
}

type RateLimitedMessage struct {
	Type    string `json:"type"`
	Message string `json:"message"`
}

// rateLimiter tracks message timestamps using a sliding window.
type rateLimiter struct {
	timestamps []time.Time
	mu         sync.Mutex
}

// allow checks if a message is allowed and records the timestamp if so.
func (r *rateLimiter) allow() bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	now := time.Now()
	cutoff := now.Add(-RateLimitWindow)

	// Prune old timestamps
	valid := r.timestamps[:0]
	for _, t := range r.timestamps {
		if t.After(cutoff) {
			valid = append(valid, t)
		}
	}
	r.timestamps = valid

	if len(r.timestamps) >= RateLimitMessages {
		return false
	}

	r.timestamps = append(r.timestamps, now)
	return true
}

// Server handles HTTP and WebSocket connections.
type Server struct {
	orch     *orchestrator.Manager
	engine   *detect.Engine
	warnings *warning.Machine
	perf     *monitor.Perf

	mu         sync.RWMutex
	conns      map[*websocket.Conn]struct{}
	rateLimits map[*websocket.Conn]*rateLimiter
}

// New creates a new server and starts the broadcasters.
func New(orch *orchestrator.Manager, engine *detect.Engine, warnings *warning.Machine, perf *monitor.Perf, _ *config.Config) *Server {
	s := &Server{
		orch:       orch,
		engine:     engine,
		warnings:   warnings,
		perf:       perf,
		conns:      make(map[*websocket.Conn]struct{}),
		rateLimits: make(map[*websocket.Conn]*rateLimiter),
	}

	warnings.Subscribe(func(ev warning.Event) {
		s.broadcast(WarningMessage{
			Type:            "warning",
			State:           ev.State.String(),
			RequiredSeconds: ev.Session.RequiredSeconds,
			Remaining:       ev.Session.Remaining,
		})
	})
	go s.broadcastDecisions()

	return s
}

// Handler returns the HTTP handler.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()

	// WebSocket endpoint
	mux.HandleFunc("/ws", s.handleWebSocket)

	// REST API
	mux.HandleFunc("GET /api/state", s.handleState)
	mux.HandleFunc("GET /api/stats", s.handleStats)
	mux.HandleFunc("POST /api/tier", s.handleTier)
	mux.HandleFunc("POST /api/frame", s.handleFrame)
	mux.HandleFunc("POST /api/warning/continue", s.handleWarningContinue)
	mux.HandleFunc("POST /api/warning/close", s.handleWarningClose)
	mux.HandleFunc("GET /healthz", s.handleHealthz)

	// Apply middleware: trace -> CORS
	return corsMiddleware(trace.Middleware(mux))
}

func corsMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "*")

		if r.Method == "OPTIONS" {
			w.WriteHeader(http.StatusOK)
			return
		}

		next.ServeHTTP(w, r)
	})
}

func (s *Server) handleWebSocket(w http.ResponseWriter, r *http.Request) {
	conn, err := websocket.Accept(w, r, &websocket.AcceptOptions{
		OriginPatterns: []string{"*"},
	})
	if err != nil {
		slog.Error("websocket accept error", "error", err)
		return
	}
	defer func() { _ = conn.Close(websocket.StatusNormalClosure, "") }()

	s.mu.Lock()
	s.conns[conn] = struct{}{}
	s.rateLimits[conn] = &rateLimiter{}
	s.mu.Unlock()

	defer func() {
		s.mu.Lock()
		delete(s.conns, conn)
		delete(s.rateLimits, conn)
		s.mu.Unlock()
	}()

	baseCtx := r.Context()
	log := trace.Logger(baseCtx)
	log.Info("websocket connected", "remote", r.RemoteAddr)

	// Replay the latest decision so a new client starts consistent.
	if ev, ok := s.orch.Latest(); ok {
		_ = wsjson.Write(baseCtx, conn, DecisionMessage{Type: "decision", DecisionEvent: ev})
	}

	for {
		var msg json.RawMessage
		if err := wsjson.Read(baseCtx, conn, &msg); err != nil {
			log.Debug("websocket read error", "error", err)
			return
		}

		s.mu.RLock()
		rl := s.rateLimits[conn]
		s.mu.RUnlock()

		if !rl.allow() {
			log.Warn("rate limit exceeded", "remote", r.RemoteAddr)
			_ = wsjson.Write(baseCtx, conn, RateLimitedMessage{
				Type:    "error",
				Message: "rate limit exceeded",
			})
			continue
		}

		var base Message
		if err := json.Unmarshal(msg, &base); err != nil {
			continue
		}

		switch base.Type {
		case "continue":
			dismissed := s.warnings.TryContinue()
			_ = wsjson.Write(baseCtx, conn, WarningAckMessage{Type: "warning_ack", Dismissed: dismissed})
		case "close":
			s.warnings.Close()
			_ = wsjson.Write(baseCtx, conn, WarningAckMessage{Type: "warning_ack", Dismissed: true})
		}
	}
}

func (s *Server) broadcastDecisions() {
	for ev := range s.orch.Events() {
		s.broadcast(DecisionMessage{Type: "decision", DecisionEvent: ev})
	}
}

func (s *Server) broadcast(msg any) {
	s.mu.RLock()
	for conn := range s.conns {
		go func(c *websocket.Conn) {
			_ = wsjson.Write(context.Background(), c, msg)
		}(conn)
	}
	s.mu.RUnlock()
}

func (s *Server) handleState(w http.ResponseWriter, r *http.Request) {
	session, live := s.warnings.Snapshot()
	state := map[string]any{
		"tier":          s.engine.Tier().String(),
		"model_loaded":  s.engine.HasModel(),
		"warning_state": s.warnings.State().String(),
	}
	if live {
		state["warning_session"] = session
	}
	if ev, ok := s.orch.Latest(); ok {
		state["latest_decision"] = ev
	}
	writeJSON(w, state)
}

func (s *Server) handleStats(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, s.perf.Stats())
}

func (s *Server) handleTier(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Tier string `json:"tier"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.Tier == "" {
		http.Error(w, "missing tier", http.StatusBadRequest)
		return
	}

	tier := detect.ParseTier(req.Tier)
	s.engine.SetPerformanceTier(tier)
	trace.Logger(r.Context()).Info("performance tier changed", "tier", tier.String())

	writeJSON(w, map[string]string{"tier": tier.String()})
}

// handleFrame accepts one encoded frame, analyzes it synchronously, and
// returns the decision. This is the push path for collaborators without a
// shared frame source.
func (s *Server) handleFrame(w http.ResponseWriter, r *http.Request) {
	ctx, span := trace.StartSpan(r.Context(), "handle_frame")
	defer span.End()

	body := http.MaxBytesReader(w, r.Body, MaxFrameBytes)
	img, format, err := image.Decode(body)
	if err != nil {
		http.Error(w, "undecodable frame: "+err.Error(), http.StatusBadRequest)
		return
	}
	span.SetAttr("format", format)

	res, decision, err := s.orch.Analyze(ctx, toRGBA(img))
	if err != nil {
		trace.Logger(ctx).Error("frame analysis failed", "error", err)
		http.Error(w, err.Error(), http.StatusUnprocessableEntity)
		return
	}

	writeJSON(w, map[string]any{
		"action":   decision.Action.String(),
		"level":    decision.Level.String(),
		"coverage": decision.Coverage,
		"flagged":  res.Flagged,
		"regions":  res.Regions,
		"source":   res.Source,
	})
}

func (s *Server) handleWarningContinue(w http.ResponseWriter, r *http.Request) {
	dismissed := s.warnings.TryContinue()
	writeJSON(w, WarningAckMessage{Type: "warning_ack", Dismissed: dismissed})
}

func (s *Server) handleWarningClose(w http.ResponseWriter, r *http.Request) {
	s.warnings.Close()
	writeJSON(w, map[string]string{"status": "closed"})
}

func (s *Server) handleHealthz(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, map[string]string{"status": "ok"})
}

func writeJSON(w http.ResponseWriter, v any) {
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(v)
}

// toRGBA converts a decoded image to the engine's pixel format without
// copying when it already matches.
func toRGBA(img image.Image) *image.RGBA {
	if rgba, ok := img.(*image.RGBA); ok {
		return rgba
	}
	b := img.Bounds()
	rgba := image.NewRGBA(b)
	draw.Draw(rgba, b, img, b.Min, draw.Src)
	return rgba
}
