package httpapi

import (
	"crypto/tls"
	"fmt"
	"sync"

	"github.com/google/uuid"

	"github.com/ktiyab/coheara/internal/config"
	"github.com/ktiyab/coheara/internal/llmclient"
	"github.com/ktiyab/coheara/internal/profile"
	"github.com/ktiyab/coheara/internal/repository"
)

// Server holds everything a request handler needs: the process-wide
// configuration, the unencrypted app database, the local model runtime
// client, and the set of currently-open per-profile sessions. A profile's
// database stays open (and its key resident) only between an opening
// request and the matching close, mirroring the teacher's own
// session-scoped connection lifetime.
type Server struct {
	cfg *config.Config
	app *repository.AppRepo
	llm *llmclient.Client

	mu       sync.Mutex
	sessions map[string]*profile.Session

	certs *certState
}

// NewServer builds a Server and generates the bootstrap TLS identity it
// presents before any profile has opened a session.
func NewServer(cfg *config.Config, app *repository.AppRepo, llm *llmclient.Client) (*Server, error) {
	certs, err := newBootstrapCertState()
	if err != nil {
		return nil, err
	}
	return &Server{cfg: cfg, app: app, llm: llm, sessions: make(map[string]*profile.Session), certs: certs}, nil
}

// TLSConfig returns the tls.Config the companion HTTPS listener should use.
// Its GetCertificate always reflects the most recently opened profile's
// issued server cert (or the bootstrap identity, before any profile opens).
func (s *Server) TLSConfig() *tls.Config {
	return &tls.Config{
		MinVersion:     tls.VersionTLS12,
		GetCertificate: s.certs.GetCertificate,
	}
}

func (s *Server) putSession(id string, sess *profile.Session) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.sessions[id] = sess
}

func (s *Server) getSession(id string) (*profile.Session, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	sess, ok := s.sessions[id]
	return sess, ok
}

func (s *Server) dropSession(id string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.sessions, id)
}

// Close closes every still-open profile session, for graceful shutdown.
func (s *Server) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	var firstErr error
	for id, sess := range s.sessions {
		if err := sess.Close(); err != nil && firstErr == nil {
			firstErr = err
		}
		delete(s.sessions, id)
	}
	return firstErr
}

func parseProfileID(raw string) (uuid.UUID, error) {
	id, err := uuid.Parse(raw)
	if err != nil {
		return uuid.UUID{}, fmt.Errorf("httpapi: invalid profile id %q: %w", raw, err)
	}
	return id, nil
}
