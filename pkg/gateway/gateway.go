// Package gateway exposes a registry of live sessions over HTTP for
// introspection, grounded on the teacher's pkg/gateway/http server: a
// log/slog logger, an http.ServeMux with one handler per route, and a
// JSON response shape. The CiA 309-5 command surface (NMT start/stop,
// SDO read/write) has no analog here, so this gateway is read-only:
// it reports each registered session's transport state rather than
// commanding a remote node.
package gateway

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"sync"

	"github.com/arqnet/arq"
)

// SessionInfo is the read-only snapshot a registered session must be
// able to produce for the status endpoint.
type SessionInfo struct {
	Conv uint32
	// Peer is an opaque, caller-supplied identifier (typically a
	// net.Addr.String()), left as a string so this package does not
	// need to import net.
	Peer string
	CB   *arq.ControlBlock
}

type statusEntry struct {
	Conv        uint32 `json:"conv"`
	Peer        string `json:"peer"`
	CWnd        uint32 `json:"cwnd"`
	SSThresh    uint32 `json:"ssthresh"`
	SRTT        int32  `json:"srtt_ms"`
	RTO         uint32 `json:"rto_ms"`
	Retransmits uint64 `json:"retransmits"`
	WaitSnd     int    `json:"wait_snd"`
	DeadLink    bool   `json:"dead_link"`
}

// Server serves a JSON status page listing every registered session.
type Server struct {
	logger   *slog.Logger
	serveMux *http.ServeMux

	mu       sync.Mutex
	sessions map[uint32]SessionInfo
}

// NewServer builds a Server. A nil logger defaults to slog.Default(),
// matching the teacher's NewGatewayServer.
func NewServer(logger *slog.Logger) *Server {
	if logger == nil {
		logger = slog.Default()
	}
	logger = logger.With("service", "[STATUS]")
	s := &Server{
		logger:   logger,
		serveMux: http.NewServeMux(),
		sessions: make(map[uint32]SessionInfo),
	}
	s.serveMux.HandleFunc("/status", s.handleStatus)
	s.serveMux.HandleFunc("/status/", s.handleStatusOne)
	s.logger.Info("initializing status gateway endpoints")
	return s
}

// ServeHTTP lets Server be used directly as an http.Handler or mounted
// under http.ListenAndServe.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.serveMux.ServeHTTP(w, r)
}

// Register adds or replaces a session under its conversation id.
func (s *Server) Register(info SessionInfo) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.sessions[info.Conv] = info
}

// Unregister removes a session, typically on Close.
func (s *Server) Unregister(conv uint32) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.sessions, conv)
}

func (s *Server) snapshot(conv uint32, info SessionInfo) statusEntry {
	cb := info.CB
	return statusEntry{
		Conv:        conv,
		Peer:        info.Peer,
		CWnd:        cb.CWnd(),
		SSThresh:    cb.SSThresh(),
		SRTT:        cb.SRTT(),
		RTO:         cb.RTO(),
		Retransmits: cb.Retransmits(),
		WaitSnd:     cb.WaitSnd(),
		DeadLink:    cb.DeadLink(),
	}
}

func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	if r.URL.Path != "/status" {
		http.NotFound(w, r)
		return
	}
	s.mu.Lock()
	entries := make([]statusEntry, 0, len(s.sessions))
	for conv, info := range s.sessions {
		entries = append(entries, s.snapshot(conv, info))
	}
	s.mu.Unlock()

	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(entries); err != nil {
		s.logger.Error("encoding status response", "error", err)
	}
}

func (s *Server) handleStatusOne(w http.ResponseWriter, r *http.Request) {
	convStr := r.URL.Path[len("/status/"):]
	var conv uint32
	if _, err := fmt.Sscan(convStr, &conv); err != nil {
		http.Error(w, "invalid conv", http.StatusBadRequest)
		return
	}
	s.mu.Lock()
	info, ok := s.sessions[conv]
	s.mu.Unlock()
	if !ok {
		http.NotFound(w, r)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(s.snapshot(conv, info)); err != nil {
		s.logger.Error("encoding status response", "error", err)
	}
}
