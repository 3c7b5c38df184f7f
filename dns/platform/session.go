package dns

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/ducbang/OpenNIC-Wizard/logger"
)

var (
	// ErrSessionState is returned when a session operation is called in the wrong state.
	ErrSessionState = errors.New("invalid resolver session state")
	// ErrNoResolvers is returned when an update is requested with an empty list.
	ErrNoResolvers = errors.New("no resolvers provided")
)

// SessionState is the lifecycle position of a Session.
type SessionState int

const (
	SessionIdle SessionState = iota
	SessionActive
	SessionClosed
)

func (s SessionState) String() string {
	switch s {
	case SessionIdle:
		return "idle"
	case SessionActive:
		return "active"
	case SessionClosed:
		return "closed"
	default:
		return "unknown"
	}
}

// gate admits one writer of the resolver file at a time.
type gate chan struct{}

func newGate() gate {
	return make(gate, 1)
}

func (g gate) acquire(ctx context.Context) error {
	select {
	case g <- struct{}{}:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (g gate) lock() {
	g <- struct{}{}
}

func (g gate) release() {
	<-g
}

// Session rewrites the resolver file in one pass: Begin, then UpdateResolver
// with indexes 1..N, then End. Index 1 truncates the file, later indexes append.
// A session holds its backend's gate from Begin until End.
type Session struct {
	store      *ResolverFileStore
	interfaces InterfaceLister
	gate       gate

	mu       sync.Mutex
	state    SessionState
	output   string
	snapshot []Interface
}

func newSession(store *ResolverFileStore, interfaces InterfaceLister, g gate) *Session {
	return &Session{
		store:      store,
		interfaces: interfaces,
		gate:       g,
	}
}

// Begin waits for exclusive access to the resolver file, clears the output and
// captures the interface list.
func (s *Session) Begin(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.state != SessionIdle {
		return fmt.Errorf("%w: begin called while %s", ErrSessionState, s.state)
	}

	if err := s.gate.acquire(ctx); err != nil {
		return fmt.Errorf("wait for resolver file: %w", err)
	}

	s.output = ""
	s.snapshot = nil
	if s.interfaces != nil {
		ifaces, err := s.interfaces.Interfaces()
		if err != nil {
			logger.Warn("Could not capture network interfaces: %v", err)
		} else {
			s.snapshot = ifaces
		}
	}

	s.state = SessionActive
	logger.Debug("Resolver update session started with %d interfaces", len(s.snapshot))
	return nil
}

// UpdateResolver writes address at position index (1-based).
func (s *Session) UpdateResolver(address string, index int) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.state != SessionActive {
		return "", fmt.Errorf("%w: update called while %s", ErrSessionState, s.state)
	}

	written, err := s.store.Write(index, address)
	if err != nil {
		return "", err
	}

	s.output = written
	return written, nil
}

// End closes the session and releases the resolver file.
func (s *Session) End() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.state != SessionActive {
		return fmt.Errorf("%w: end called while %s", ErrSessionState, s.state)
	}

	s.state = SessionClosed
	s.gate.release()
	logger.Debug("Resolver update session closed")
	return nil
}

// Output returns the address written by the last successful UpdateResolver.
func (s *Session) Output() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.output
}

// State returns the current lifecycle state.
func (s *Session) State() SessionState {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// Interfaces returns the snapshot captured by Begin.
func (s *Session) Interfaces() []Interface {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]Interface(nil), s.snapshot...)
}

// ApplyResolvers runs a full session writing servers in order. The whole list
// is refused if any entry is not an IP address. A write that fails is logged
// and skipped; the returned slice holds what was written.
func ApplyResolvers(ctx context.Context, system ResolverSystem, servers []string) ([]string, error) {
	if len(servers) == 0 {
		return nil, ErrNoResolvers
	}
	if err := ValidateAddresses(servers); err != nil {
		return nil, err
	}

	session, err := system.BeginUpdateResolvers(ctx)
	if err != nil {
		return nil, fmt.Errorf("begin resolver update: %w", err)
	}

	applied := make([]string, 0, len(servers))
	for i, server := range servers {
		written, err := session.UpdateResolver(server, i+1)
		if err != nil {
			logger.Warn("Dropped resolver %s at index %d: %v", server, i+1, err)
			continue
		}
		applied = append(applied, written)
	}

	if err := session.End(); err != nil {
		return applied, fmt.Errorf("end resolver update: %w", err)
	}

	logger.Info("Resolver list updated on %s: %v", system.Name(), applied)
	return applied, nil
}
