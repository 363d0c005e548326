package core

import (
	"fmt"
	"log/slog"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/JonMunkholm/sheetimport/internal/logging"
)

// DefaultSessionTTL is how long an idle session is kept.
const DefaultSessionTTL = 30 * time.Minute

// ServiceOptions holds the settings shared by every session.
type ServiceOptions struct {
	Translations    Translations
	UpdateModes     bool
	MaxRecords      int
	AutoMapDistance int
	SessionTTL      time.Duration
	Logger          *slog.Logger
}

// Service starts and tracks import sessions. One process serves many
// sessions; each session owns its Wizard.
type Service struct {
	registry  *Registry
	submitter Submitter
	opts      ServiceOptions
	logger    *slog.Logger
	now       func() time.Time

	mu       sync.RWMutex
	sessions map[string]*Session
}

// Session is one user's import.
type Session struct {
	ID        string
	SchemaKey string
	Created   time.Time
	Wizard    *Wizard

	mu       sync.Mutex
	lastSeen time.Time
}

func (s *Session) touch(t time.Time) {
	s.mu.Lock()
	s.lastSeen = t
	s.mu.Unlock()
}

// LastSeen returns the time of the last lookup.
func (s *Session) LastSeen() time.Time {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.lastSeen
}

// NewService returns a service starting sessions for schemas in reg. The
// submitter may be nil, in which case every submission fails with
// ErrNoSubmitter.
func NewService(reg *Registry, submitter Submitter, opts ServiceOptions) *Service {
	if opts.SessionTTL <= 0 {
		opts.SessionTTL = DefaultSessionTTL
	}
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{
		registry:  reg,
		submitter: submitter,
		opts:      opts,
		logger:    logger,
		now:       time.Now,
		sessions:  make(map[string]*Session),
	}
}

// Schemas lists the schemas sessions can be started for.
func (s *Service) Schemas() []Schema {
	return s.registry.All()
}

// Start opens a session for the schema with the given key.
func (s *Service) Start(schemaKey string) (*Session, error) {
	schema, hooks, ok := s.registry.Get(schemaKey)
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnknownSchema, schemaKey)
	}

	id := uuid.NewString()
	logger := logging.ForSession(s.logger, id, schemaKey)

	wiz, err := NewWizard(WizardOptions{
		Schema:          schema,
		Hooks:           hooks,
		Submitter:       bindSubmitter(s.submitter, schema),
		Translations:    s.opts.Translations,
		UpdateModes:     s.opts.UpdateModes,
		MaxRecords:      s.opts.MaxRecords,
		AutoMapDistance: s.opts.AutoMapDistance,
		Logger:          logger,
	})
	if err != nil {
		return nil, err
	}

	now := s.now()
	sess := &Session{ID: id, SchemaKey: schemaKey, Created: now, Wizard: wiz, lastSeen: now}

	s.mu.Lock()
	s.sessions[id] = sess
	s.mu.Unlock()

	logger.Info("import session started")
	return sess, nil
}

// Get returns an open session and marks it as seen.
func (s *Service) Get(id string) (*Session, error) {
	s.mu.RLock()
	sess, ok := s.sessions[id]
	s.mu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrSessionNotFound, id)
	}
	sess.touch(s.now())
	return sess, nil
}

// Remove forgets a session. Work it still has in flight runs to completion
// and is discarded.
func (s *Service) Remove(id string) {
	s.mu.Lock()
	_, ok := s.sessions[id]
	delete(s.sessions, id)
	s.mu.Unlock()

	if ok {
		s.logger.Info("import session removed", "session_id", id)
	}
}

// Sessions returns the open sessions, oldest first.
func (s *Service) Sessions() []*Session {
	s.mu.RLock()
	out := make([]*Session, 0, len(s.sessions))
	for _, sess := range s.sessions {
		out = append(out, sess)
	}
	s.mu.RUnlock()

	sort.Slice(out, func(i, j int) bool { return out[i].Created.Before(out[j].Created) })
	return out
}

// Count returns the number of tracked sessions.
func (s *Service) Count() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.sessions)
}

// Sweep drops closed sessions and sessions idle for longer than the TTL.
// Returns the number removed.
func (s *Service) Sweep() int {
	cutoff := s.now().Add(-s.opts.SessionTTL)

	s.mu.Lock()
	defer s.mu.Unlock()

	removed := 0
	for id, sess := range s.sessions {
		if sess.Wizard.Closed() || sess.LastSeen().Before(cutoff) {
			delete(s.sessions, id)
			removed++
		}
	}
	return removed
}
