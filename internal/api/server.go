// Package api exposes the host's operator surface: routing snapshots, the
// live event stream, click-protocol endpoints for directors without a
// headset, and metrics.
package api

import (
	"encoding/json"
	"fmt"
	"log"
	"net/http"
	"os"
	"time"

	"github.com/strandcast/controlroom/internal/events"
	"github.com/strandcast/controlroom/internal/routing"
)

// RoutingView is the slice of the controller the API serves and drives.
type RoutingView interface {
	Assignments() map[routing.Slot]routing.SourceID
	ActiveSources() []routing.SourceID
	HasSource(id routing.SourceID) bool
	GateBlocked(side routing.Side) bool
	RouteSourceToSlot(id routing.SourceID, slot routing.Slot) error
	PromotePreviewToLive(side routing.Side)
}

// Server serves the operator API for one session.
type Server struct {
	controller   RoutingView
	bus          *events.Bus
	sessionName  string
	startTime    time.Time
	compositorUp func() bool

	auth *authConfig
	tls  *TLSConfig
}

// NewServer wires the API to a controller and event bus. compositorUp may
// be nil when no compositor is configured.
func NewServer(controller RoutingView, bus *events.Bus, sessionName string, compositorUp func() bool) *Server {
	return &Server{
		controller:   controller,
		bus:          bus,
		sessionName:  sessionName,
		startTime:    time.Now(),
		compositorUp: compositorUp,
		auth:         loadAuthFromEnv(),
		tls:          loadTLSFromEnv(),
	}
}

// Handler builds the route table.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/health", s.healthHandler)
	mux.HandleFunc("/assignments", s.requireAnyRole(s.assignmentsHandler))
	mux.HandleFunc("/events", s.requireAnyRole(s.eventsHandler))
	mux.HandleFunc("/events/history", s.requireRole(s.eventHistoryHandler, RoleAdmin))
	mux.HandleFunc("/ws", s.requireAnyRole(s.wsEventsHandler))
	mux.HandleFunc("/operator/route", s.requireRole(s.operatorRouteHandler, RoleAdmin))
	mux.HandleFunc("/operator/promote", s.requireRole(s.operatorPromoteHandler, RoleAdmin))
	mux.HandleFunc("/metrics", s.metricsHandler)
	mux.HandleFunc("/", s.uiHandler)
	return mux
}

// ListenAndServe starts the API server on the given port, with TLS when
// certificates are configured.
func (s *Server) ListenAndServe(port int) error {
	addr := fmt.Sprintf(":%d", port)
	srv := &http.Server{Addr: addr, Handler: s.Handler()}

	if s.tls.enabled() {
		log.Printf("API listening on %s (TLS)\n", addr)
		return srv.ListenAndServeTLS(s.tls.CertFile, s.tls.KeyFile)
	}
	log.Printf("API listening on %s\n", addr)
	return srv.ListenAndServe()
}

type HealthResponse struct {
	Status    string `json:"status"`
	Service   string `json:"service"`
	Session   string `json:"session"`
	Hostname  string `json:"hostname"`
	Timestamp string `json:"ts"`
}

func (s *Server) healthHandler(w http.ResponseWriter, r *http.Request) {
	host, _ := os.Hostname()
	resp := HealthResponse{
		Status:    "ok",
		Service:   "controlroom-host",
		Session:   s.sessionName,
		Hostname:  host,
		Timestamp: time.Now().UTC().Format(time.RFC3339Nano),
	}
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(resp)
}

type AssignmentsResponse struct {
	Assignments map[string]string `json:"assignments"`
	Active      []string          `json:"active_sources"`
	Gates       map[string]bool   `json:"gates"`
}

func (s *Server) assignmentsHandler(w http.ResponseWriter, r *http.Request) {
	assignments := make(map[string]string)
	for slot, id := range s.controller.Assignments() {
		assignments[string(slot)] = string(id)
	}
	var active []string
	for _, id := range s.controller.ActiveSources() {
		active = append(active, string(id))
	}

	resp := AssignmentsResponse{
		Assignments: assignments,
		Active:      active,
		Gates: map[string]bool{
			string(routing.SideStudio): s.controller.GateBlocked(routing.SideStudio),
			string(routing.SideTV):     s.controller.GateBlocked(routing.SideTV),
		},
	}
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(resp)
}

func (s *Server) eventsHandler(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(s.bus.Snapshot())
}

func (s *Server) eventHistoryHandler(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")

	client := s.bus.PostgresClient()
	if client == nil {
		w.WriteHeader(http.StatusServiceUnavailable)
		_ = json.NewEncoder(w).Encode(OperatorResponse{OK: false, Error: "event history unavailable"})
		return
	}

	limit := 200
	if v := r.URL.Query().Get("limit"); v != "" {
		fmt.Sscanf(v, "%d", &limit)
	}

	rows, err := client.Query(limit)
	if err != nil {
		w.WriteHeader(http.StatusInternalServerError)
		_ = json.NewEncoder(w).Encode(OperatorResponse{OK: false, Error: err.Error()})
		return
	}
	_ = json.NewEncoder(w).Encode(rows)
}

type RouteRequest struct {
	SourceID string `json:"source_id"`
	Slot     string `json:"slot"`
}

type PromoteRequest struct {
	Side string `json:"side"`
}

type OperatorResponse struct {
	OK    bool   `json:"ok"`
	Error string `json:"error,omitempty"`
}

func (s *Server) operatorRouteHandler(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")

	if r.Method != http.MethodPost {
		w.WriteHeader(http.StatusMethodNotAllowed)
		_ = json.NewEncoder(w).Encode(OperatorResponse{OK: false, Error: "method not allowed"})
		return
	}

	var req RouteRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		w.WriteHeader(http.StatusBadRequest)
		_ = json.NewEncoder(w).Encode(OperatorResponse{OK: false, Error: "invalid JSON"})
		return
	}

	slot, err := routing.ParseSlot(req.Slot)
	if err != nil {
		w.WriteHeader(http.StatusBadRequest)
		_ = json.NewEncoder(w).Encode(OperatorResponse{OK: false, Error: err.Error()})
		return
	}
	if req.SourceID == "" || !s.controller.HasSource(routing.SourceID(req.SourceID)) {
		w.WriteHeader(http.StatusNotFound)
		_ = json.NewEncoder(w).Encode(OperatorResponse{OK: false, Error: "source not found"})
		return
	}

	if err := s.controller.RouteSourceToSlot(routing.SourceID(req.SourceID), slot); err != nil {
		w.WriteHeader(http.StatusConflict)
		_ = json.NewEncoder(w).Encode(OperatorResponse{OK: false, Error: err.Error()})
		return
	}
	_ = json.NewEncoder(w).Encode(OperatorResponse{OK: true})
}

func (s *Server) operatorPromoteHandler(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")

	if r.Method != http.MethodPost {
		w.WriteHeader(http.StatusMethodNotAllowed)
		_ = json.NewEncoder(w).Encode(OperatorResponse{OK: false, Error: "method not allowed"})
		return
	}

	var req PromoteRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		w.WriteHeader(http.StatusBadRequest)
		_ = json.NewEncoder(w).Encode(OperatorResponse{OK: false, Error: "invalid JSON"})
		return
	}

	side, err := routing.ParseSide(req.Side)
	if err != nil {
		w.WriteHeader(http.StatusBadRequest)
		_ = json.NewEncoder(w).Encode(OperatorResponse{OK: false, Error: err.Error()})
		return
	}

	// Gated or empty-preview promotions are logged no-ops; the caller sees
	// success either way and observes the outcome on the event stream.
	s.controller.PromotePreviewToLive(side)
	_ = json.NewEncoder(w).Encode(OperatorResponse{OK: true})
}
