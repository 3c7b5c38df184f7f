package api

import (
	"context"
	"encoding/json"
	"fmt"
	"net"
	"net/http"
	"sync"
	"time"

	platform "github.com/ducbang/OpenNIC-Wizard/dns/platform"
	"github.com/ducbang/OpenNIC-Wizard/logger"
)

// ResolverSource is the read side of the resolver backend.
type ResolverSource interface {
	Name() string
	GetSystemResolverList() string
	CurrentResolvers() ([]string, error)
	BootstrapT1Path() string
	BootstrapDomainsPath() string
}

// UpdateRequest asks the service loop to rewrite the resolver list
type UpdateRequest struct {
	Servers []string `json:"servers"`

	reply chan UpdateResult
}

// Respond delivers the outcome to the waiting HTTP handler.
func (r UpdateRequest) Respond(result UpdateResult) {
	if r.reply == nil {
		return
	}
	select {
	case r.reply <- result:
	default:
	}
}

// UpdateResult is the outcome of an UpdateRequest
type UpdateResult struct {
	Applied []string `json:"applied"`
	Error   string   `json:"error,omitempty"`
}

// UpdateEvent is pushed to /events subscribers after every resolver update
type UpdateEvent struct {
	Time    time.Time `json:"time"`
	Backend string    `json:"backend"`
	Servers []string  `json:"servers"`
}

// StatusResponse is returned by the status endpoint
type StatusResponse struct {
	Backend     string    `json:"backend"`
	Version     string    `json:"version,omitempty"`
	Servers     []string  `json:"servers"`
	LastUpdate  time.Time `json:"lastUpdate,omitempty"`
	UpdateCount int       `json:"updateCount"`
}

// ResolverListResponse is returned by GET /resolvers
type ResolverListResponse struct {
	Text    string   `json:"text"`
	Servers []string `json:"servers"`
}

// BootstrapResponse is returned by GET /bootstrap
type BootstrapResponse struct {
	T1      string `json:"t1"`
	Domains string `json:"domains"`
}

// API represents the HTTP server and its state
type API struct {
	addr         string
	socketPath   string
	source       ResolverSource
	listener     net.Listener
	server       *http.Server
	updateChan   chan UpdateRequest
	shutdownChan chan struct{}
	events       *eventHub

	statusMu    sync.RWMutex
	version     string
	servers     []string
	lastUpdate  time.Time
	updateCount int
}

// NewAPI creates a new HTTP server that listens on a TCP address
func NewAPI(addr string, source ResolverSource) *API {
	s := newAPI(source)
	s.addr = addr
	return s
}

// NewAPISocket creates a new HTTP server that listens on a Unix socket or Windows named pipe
func NewAPISocket(socketPath string, source ResolverSource) *API {
	s := newAPI(source)
	s.socketPath = socketPath
	return s
}

func newAPI(source ResolverSource) *API {
	return &API{
		source:       source,
		updateChan:   make(chan UpdateRequest, 1),
		shutdownChan: make(chan struct{}, 1),
		events:       newEventHub(),
	}
}

// Handler returns the routes served by the API.
func (s *API) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/status", s.handleStatus)
	mux.HandleFunc("/resolvers", s.handleResolvers)
	mux.HandleFunc("/bootstrap", s.handleBootstrap)
	mux.HandleFunc("/events", s.events.handle)
	mux.HandleFunc("/exit", s.handleExit)
	return mux
}

// Start starts the HTTP server
func (s *API) Start() error {
	s.server = &http.Server{
		Handler:           s.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	var err error
	if s.socketPath != "" {
		// Use platform-specific socket listener
		s.listener, err = createSocketListener(s.socketPath)
		if err != nil {
			return fmt.Errorf("failed to create socket listener: %w", err)
		}
		logger.Info("Starting HTTP server on socket %s", s.socketPath)
	} else {
		s.listener, err = net.Listen("tcp", s.addr)
		if err != nil {
			return fmt.Errorf("failed to create TCP listener: %w", err)
		}
		logger.Info("Starting HTTP server on %s", s.addr)
	}

	go func() {
		if err := s.server.Serve(s.listener); err != nil && err != http.ErrServerClosed {
			logger.Error("HTTP server error: %v", err)
		}
	}()

	return nil
}

// Stop stops the HTTP server
func (s *API) Stop() error {
	logger.Info("Stopping api server")

	s.events.closeAll()

	if s.server != nil {
		s.server.Close()
	}

	if s.socketPath != "" {
		cleanupSocket(s.socketPath)
	}

	return nil
}

// GetUpdateChannel returns the channel for receiving resolver update requests
func (s *API) GetUpdateChannel() <-chan UpdateRequest {
	return s.updateChan
}

// GetShutdownChannel returns the channel for receiving shutdown requests
func (s *API) GetShutdownChannel() <-chan struct{} {
	return s.shutdownChan
}

// SetVersion sets the reported version
func (s *API) SetVersion(version string) {
	s.statusMu.Lock()
	defer s.statusMu.Unlock()
	s.version = version
}

// RecordUpdate stores the servers written by a session and notifies subscribers.
func (s *API) RecordUpdate(servers []string) {
	now := time.Now()

	s.statusMu.Lock()
	s.servers = append([]string(nil), servers...)
	s.lastUpdate = now
	s.updateCount++
	s.statusMu.Unlock()

	s.events.publish(UpdateEvent{
		Time:    now,
		Backend: s.source.Name(),
		Servers: servers,
	})
}

// handleStatus handles the /status endpoint
func (s *API) handleStatus(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	s.statusMu.RLock()
	resp := StatusResponse{
		Backend:     s.source.Name(),
		Version:     s.version,
		Servers:     s.servers,
		LastUpdate:  s.lastUpdate,
		UpdateCount: s.updateCount,
	}
	s.statusMu.RUnlock()

	writeJSON(w, http.StatusOK, resp)
}

// handleResolvers reads the system list on GET and rewrites it on POST
func (s *API) handleResolvers(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
		servers, err := s.source.CurrentResolvers()
		if err != nil {
			logger.Debug("Could not parse resolver list: %v", err)
		}
		writeJSON(w, http.StatusOK, ResolverListResponse{
			Text:    s.source.GetSystemResolverList(),
			Servers: servers,
		})
	case http.MethodPost:
		s.handleUpdate(w, r)
	default:
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
	}
}

func (s *API) handleUpdate(w http.ResponseWriter, r *http.Request) {
	var req UpdateRequest
	decoder := json.NewDecoder(r.Body)
	if err := decoder.Decode(&req); err != nil {
		http.Error(w, fmt.Sprintf("Invalid request: %v", err), http.StatusBadRequest)
		return
	}

	if len(req.Servers) == 0 {
		http.Error(w, "Missing required field: servers must list at least one address", http.StatusBadRequest)
		return
	}
	if err := platform.ValidateAddresses(req.Servers); err != nil {
		http.Error(w, fmt.Sprintf("Invalid request: %v", err), http.StatusBadRequest)
		return
	}

	logger.Info("Received resolver update request via API: %v", req.Servers)

	req.reply = make(chan UpdateResult, 1)
	select {
	case s.updateChan <- req:
	default:
		http.Error(w, "Resolver update already in progress", http.StatusConflict)
		return
	}

	result, err := waitForResult(r.Context(), req.reply)
	if err != nil {
		http.Error(w, "Request cancelled", http.StatusServiceUnavailable)
		return
	}

	if result.Error != "" {
		writeJSON(w, http.StatusInternalServerError, result)
		return
	}
	writeJSON(w, http.StatusOK, result)
}

func waitForResult(ctx context.Context, reply <-chan UpdateResult) (UpdateResult, error) {
	select {
	case result := <-reply:
		return result, nil
	case <-ctx.Done():
		return UpdateResult{}, ctx.Err()
	}
}

// handleBootstrap handles the /bootstrap endpoint
func (s *API) handleBootstrap(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	writeJSON(w, http.StatusOK, BootstrapResponse{
		T1:      s.source.BootstrapT1Path(),
		Domains: s.source.BootstrapDomainsPath(),
	})
}

// handleExit handles the /exit endpoint
func (s *API) handleExit(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	logger.Info("Received exit request via API")

	select {
	case s.shutdownChan <- struct{}{}:
	default:
		// Channel already has a signal, don't block
	}

	writeJSON(w, http.StatusOK, map[string]string{
		"status": "shutdown initiated",
	})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		logger.Debug("Failed to encode response: %v", err)
	}
}
