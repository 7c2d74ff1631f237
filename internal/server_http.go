package internal

import (
	"encoding/json"
	"errors"
	"net"
	"net/http"
	"strings"
	"time"
)

const (
	provisionLimit  = 10
	provisionWindow = time.Minute
)

// Server ties the HTTP surface together: room provisioning and admin
// maintenance, the websocket endpoint, the /exists probe and /metrics.
type Server struct {
	registry         *Registry
	hub              *Hub
	metrics          *Metrics
	provisionLimiter *RateLimiter
}

func NewServer(registry *Registry) *Server {
	metrics := NewMetrics()
	router := NewRouter(registry)
	return &Server{
		registry:         registry,
		hub:              NewHub(registry, router, metrics),
		metrics:          metrics,
		provisionLimiter: NewRateLimiter(provisionLimit, provisionWindow),
	}
}

func (s *Server) ServeWS(w http.ResponseWriter, r *http.Request) {
	s.hub.ServeWS(w, r)
}

func (s *Server) MetricsHandler() http.Handler {
	return s.metrics
}

type provisionRequest struct {
	Password string `json:"password"`
}

type adminClaimRequest struct {
	Password      string `json:"password"`
	AdminPassword string `json:"admin_password"`
}

type clearHistoryRequest struct {
	AdminPassword string `json:"admin_password"`
}

// HandleRoom serves POST /{room} and the /{room}/admin and /{room}/clear
// maintenance endpoints. Room names are opaque, case-sensitive path
// segments chosen by clients.
func (s *Server) HandleRoom(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		methodNotAllowed(w, http.MethodPost)
		return
	}
	segments := strings.Split(strings.Trim(r.URL.Path, "/"), "/")
	switch {
	case len(segments) == 1 && segments[0] != "":
		s.handleProvision(w, r, segments[0])
	case len(segments) == 2 && segments[1] == "admin":
		s.handleAdminClaim(w, r, segments[0])
	case len(segments) == 2 && segments[1] == "clear":
		s.handleClearHistory(w, r, segments[0])
	default:
		http.Error(w, http.StatusText(http.StatusNotFound), http.StatusNotFound)
	}
}

// handleProvision creates the room on first call and verifies the password
// on every later one: 200 when the room now exists with that password,
// 401 when it exists with a different one.
func (s *Server) handleProvision(w http.ResponseWriter, r *http.Request, roomName string) {
	if !s.provisionLimiter.Allow(s.clientIP(r)) {
		http.Error(w, http.StatusText(http.StatusTooManyRequests), http.StatusTooManyRequests)
		return
	}
	var req provisionRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	if req.Password == "" {
		writeError(w, http.StatusBadRequest, errors.New("password is required"))
		return
	}
	digest := HashSecret(req.Password)
	if !s.registry.Exists(roomName) {
		if err := s.registry.CreateRoom(roomName, digest); err == nil {
			s.metrics.IncRoomCreated()
			w.WriteHeader(http.StatusOK)
			return
		}
		// lost a creation race; fall through to verification.
	}
	if s.registry.VerifyPassword(roomName, digest) {
		w.WriteHeader(http.StatusOK)
		return
	}
	http.Error(w, http.StatusText(http.StatusUnauthorized), http.StatusUnauthorized)
}

// handleAdminClaim stores the elevated digest for a room. The chat
// protocol itself never sets it, so the claim lives here, authenticated by
// the room password.
func (s *Server) handleAdminClaim(w http.ResponseWriter, r *http.Request, roomName string) {
	if !s.provisionLimiter.Allow(s.clientIP(r)) {
		http.Error(w, http.StatusText(http.StatusTooManyRequests), http.StatusTooManyRequests)
		return
	}
	var req adminClaimRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	if req.AdminPassword == "" {
		writeError(w, http.StatusBadRequest, errors.New("admin_password is required"))
		return
	}
	if !s.registry.VerifyPassword(roomName, HashSecret(req.Password)) {
		http.Error(w, http.StatusText(http.StatusUnauthorized), http.StatusUnauthorized)
		return
	}
	if err := s.registry.SetAdminPassword(roomName, HashSecret(req.AdminPassword)); err != nil {
		writeError(w, http.StatusInternalServerError, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleClearHistory(w http.ResponseWriter, r *http.Request, roomName string) {
	var req clearHistoryRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	if !s.registry.VerifyAdminPassword(roomName, HashSecret(req.AdminPassword)) {
		http.Error(w, http.StatusText(http.StatusUnauthorized), http.StatusUnauthorized)
		return
	}
	if err := s.registry.ClearHistory(roomName); err != nil {
		writeError(w, http.StatusInternalServerError, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// HandleRoomExists is a lightweight probe so clients can warn the user
// before prompting for a password.
func (s *Server) HandleRoomExists(w http.ResponseWriter, r *http.Request) {
	room := r.URL.Query().Get("room")
	if room == "" {
		http.Error(w, "missing room", http.StatusBadRequest)
		return
	}
	if s.registry.Exists(room) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
		return
	}
	http.Error(w, "not found", http.StatusNotFound)
}

func (s *Server) clientIP(r *http.Request) string {
	if forwarded := r.Header.Get("X-Forwarded-For"); forwarded != "" {
		parts := strings.Split(forwarded, ",")
		return strings.TrimSpace(parts[0])
	}
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}

func decodeJSON(r *http.Request, out interface{}) error {
	defer r.Body.Close()
	decoder := json.NewDecoder(r.Body)
	decoder.DisallowUnknownFields()
	return decoder.Decode(out)
}

func writeJSON(w http.ResponseWriter, status int, payload interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}

func writeError(w http.ResponseWriter, status int, err error) {
	writeJSON(w, status, map[string]string{"error": err.Error()})
}

func methodNotAllowed(w http.ResponseWriter, allowed string) {
	w.Header().Set("Allow", allowed)
	http.Error(w, http.StatusText(http.StatusMethodNotAllowed), http.StatusMethodNotAllowed)
}
