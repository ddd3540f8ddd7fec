package server

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"strconv"
	"sync"

	"github.com/coder/websocket"
	"github.com/coder/websocket/wsjson"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/kennychae/atot/internal/audio"
	"github.com/kennychae/atot/internal/session"
	"github.com/kennychae/atot/internal/trace"
)

// TranscriptMessage is pushed to WebSocket clients for each utterance
// and for session state changes.
type TranscriptMessage struct {
	Type     string  `json:"type"` // "transcript", "transcript_error" or "state"
	Text     string  `json:"text,omitempty"`
	Error    string  `json:"error,omitempty"`
	State    string  `json:"state,omitempty"`
	Duration float64 `json:"duration_seconds,omitempty"`
}

// Server handles HTTP and WebSocket connections.
type Server struct {
	sess     *session.Session
	trans    session.Transcriber
	gatherer prometheus.Gatherer
	mu       sync.RWMutex
	conns    map[*websocket.Conn]struct{}
}

// New creates a server and starts the transcript broadcaster.
func New(sess *session.Session, trans session.Transcriber, gatherer prometheus.Gatherer) *Server {
	s := &Server{
		sess:     sess,
		trans:    trans,
		gatherer: gatherer,
		conns:    make(map[*websocket.Conn]struct{}),
	}
	go s.broadcastTranscripts()
	return s
}

// Handler returns the HTTP handler.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()

	// WebSocket event stream
	mux.HandleFunc("/ws", s.handleWebSocket)

	// REST API
	mux.HandleFunc("GET /api/session/state", s.handleState)
	mux.HandleFunc("POST /api/session/reset", s.handleReset)
	mux.HandleFunc("POST /api/session/stop", s.handleStop)
	mux.HandleFunc("POST /api/session/start", s.handleStart)
	mux.HandleFunc("GET /api/transcripts", s.handleTranscripts)
	mux.HandleFunc("POST /api/transcribe", s.handleTranscribe)

	mux.Handle("GET /metrics", promhttp.HandlerFor(s.gatherer, promhttp.HandlerOpts{}))

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
		trace.Logger(r.Context()).Error("websocket accept error", "error", err)
		return
	}
	defer func() { _ = conn.Close(websocket.StatusNormalClosure, "") }()

	s.mu.Lock()
	s.conns[conn] = struct{}{}
	s.mu.Unlock()

	defer func() {
		s.mu.Lock()
		delete(s.conns, conn)
		s.mu.Unlock()
	}()

	log := trace.Logger(r.Context())
	log.Info("websocket connected", "remote", r.RemoteAddr)

	// Push-only stream: discard client frames, return on close.
	for {
		if _, _, err := conn.Read(r.Context()); err != nil {
			log.Debug("websocket closed", "error", err)
			return
		}
	}
}

func (s *Server) broadcastTranscripts() {
	for evt := range s.sess.Events() {
		msg := TranscriptMessage{
			Type:     "transcript",
			Text:     evt.Text,
			Duration: evt.Duration,
		}
		switch {
		case evt.Err != "":
			msg.Type = "transcript_error"
			msg.Error = evt.Err
		case evt.State != "":
			msg.Type = "state"
			msg.State = evt.State
		}

		s.mu.RLock()
		for conn := range s.conns {
			go func(c *websocket.Conn) {
				_ = wsjson.Write(context.Background(), c, msg)
			}(conn)
		}
		s.mu.RUnlock()
	}
}

func (s *Server) handleState(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, s.sess.Status())
}

func (s *Server) handleReset(w http.ResponseWriter, r *http.Request) {
	s.sess.Reset()
	trace.Logger(r.Context()).Info("session reset")
	writeJSON(w, map[string]string{"status": "reset", "state": s.sess.State()})
}

func (s *Server) handleStop(w http.ResponseWriter, r *http.Request) {
	s.sess.Stop()
	writeJSON(w, map[string]string{"status": "stopped", "state": s.sess.State()})
}

func (s *Server) handleStart(w http.ResponseWriter, r *http.Request) {
	s.sess.Start()
	writeJSON(w, map[string]string{"status": "started", "state": s.sess.State()})
}

func (s *Server) handleTranscripts(w http.ResponseWriter, r *http.Request) {
	seconds := DefaultTranscriptSeconds
	if v := r.URL.Query().Get("seconds"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n <= 0 {
			http.Error(w, "seconds must be a positive integer", http.StatusBadRequest)
			return
		}
		seconds = n
	}

	entries := s.sess.History().Recent(seconds)
	if entries == nil {
		entries = []session.Entry{}
	}
	writeJSON(w, map[string]any{"transcripts": entries})
}

// handleTranscribe runs a one-off transcription of an uploaded WAV file,
// bypassing the live pipeline.
func (s *Server) handleTranscribe(w http.ResponseWriter, r *http.Request) {
	data, err := io.ReadAll(io.LimitReader(r.Body, MaxUploadBytes+1))
	if err != nil {
		http.Error(w, "failed to read body", http.StatusBadRequest)
		return
	}
	if len(data) > MaxUploadBytes {
		http.Error(w, "upload too large", http.StatusRequestEntityTooLarge)
		return
	}
	if err := audio.ValidateWAV(data); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	language := r.URL.Query().Get("language")
	text, err := s.trans.Transcribe(r.Context(), data, language)
	if err != nil {
		trace.Logger(r.Context()).Error("file transcription error", "error", err)
		http.Error(w, "transcription failed", http.StatusBadGateway)
		return
	}
	writeJSON(w, map[string]string{"text": text})
}

func writeJSON(w http.ResponseWriter, v any) {
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(v)
}
