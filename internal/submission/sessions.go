package submission

import (
	"context"
	"sync"
	"time"

	"tit-pharmacy/internal/catalog"
	"tit-pharmacy/internal/metrics"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// DefaultSessionTTL is how long an untouched form session is kept
const DefaultSessionTTL = 30 * time.Minute

// DefaultMaxSessions bounds the open form sessions; the least recently used
// one is evicted to make room
const DefaultMaxSessions = 1000

type session struct {
	form        *Form
	lastSeen    time.Time
	destination string
}

// Sessions tracks the add forms opened over HTTP. A form's navigation is
// recorded on its session and picked up by the next request for it.
type Sessions struct {
	mu       sync.Mutex
	sessions map[uuid.UUID]*session

	pipeline *Pipeline
	source   catalog.Source
	ttl      time.Duration
	max      int
	formOpts []FormOption
	now      func() time.Time
	logger   *zap.Logger
	metrics  *metrics.Metrics
}

// SessionsConfig configures a Sessions registry
type SessionsConfig struct {
	RedirectDelay time.Duration
	TTL           time.Duration
	MaxSessions   int
	Logger        *zap.Logger
	Metrics       *metrics.Metrics
	FormOptions   []FormOption
}

// NewSessions creates a registry whose forms commit through pipeline and load
// their category options from src
func NewSessions(pipeline *Pipeline, src catalog.Source, cfg SessionsConfig) *Sessions {
	if cfg.TTL <= 0 {
		cfg.TTL = DefaultSessionTTL
	}
	if cfg.MaxSessions <= 0 {
		cfg.MaxSessions = DefaultMaxSessions
	}
	if cfg.RedirectDelay <= 0 {
		cfg.RedirectDelay = DefaultRedirectDelay
	}
	if cfg.Logger == nil {
		cfg.Logger = zap.NewNop()
	}

	opts := []FormOption{
		WithRedirectDelay(cfg.RedirectDelay),
		WithFormLogger(cfg.Logger),
	}

	return &Sessions{
		sessions: make(map[uuid.UUID]*session),
		pipeline: pipeline,
		source:   src,
		ttl:      cfg.TTL,
		max:      cfg.MaxSessions,
		formOpts: append(opts, cfg.FormOptions...),
		now:      time.Now,
		logger:   cfg.Logger,
		metrics:  cfg.Metrics,
	}
}

// Open creates a form session and loads its categories. Idle sessions are
// expired first, and when the registry is full the least recently used
// session is evicted.
func (s *Sessions) Open(ctx context.Context) (uuid.UUID, *Form) {
	id := uuid.New()
	form := NewForm(s.pipeline, NavigatorFunc(func(path string) {
		s.navigated(id, path)
	}), s.formOpts...)

	s.mu.Lock()
	s.sweepLocked()
	for len(s.sessions) >= s.max {
		s.evictOldestLocked()
	}
	s.sessions[id] = &session{form: form, lastSeen: s.now()}
	s.mu.Unlock()
	s.metrics.FormOpened()

	form.Open(ctx, s.source)
	return id, form
}

// Get returns the live form for id. When the form has navigated away, the
// session is removed and its destination returned instead. Idle sessions are
// expired on every lookup.
func (s *Sessions) Get(id uuid.UUID) (form *Form, destination string, ok bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.sweepLocked()

	sess, found := s.sessions[id]
	if !found {
		return nil, "", false
	}
	if sess.destination != "" {
		s.remove(id)
		return nil, sess.destination, true
	}
	sess.lastSeen = s.now()
	return sess.form, "", true
}

// Close discards the session and its form
func (s *Sessions) Close(id uuid.UUID) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.remove(id)
}

// Sweep closes sessions idle for longer than the TTL
func (s *Sessions) Sweep() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.sweepLocked()
}

func (s *Sessions) sweepLocked() {
	cutoff := s.now().Add(-s.ttl)
	for id, sess := range s.sessions {
		if sess.lastSeen.Before(cutoff) {
			s.logger.Debug("Expiring idle form session", zap.String("session", id.String()))
			s.remove(id)
		}
	}
}

func (s *Sessions) evictOldestLocked() {
	var (
		oldest uuid.UUID
		seen   time.Time
		found  bool
	)
	for id, sess := range s.sessions {
		if !found || sess.lastSeen.Before(seen) {
			oldest, seen, found = id, sess.lastSeen, true
		}
	}
	if !found {
		return
	}
	s.logger.Debug("Evicting form session", zap.String("session", oldest.String()))
	s.remove(oldest)
}

// Len returns the number of tracked sessions
func (s *Sessions) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.sessions)
}

func (s *Sessions) navigated(id uuid.UUID, path string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if sess, ok := s.sessions[id]; ok {
		sess.destination = path
		s.metrics.RecordRedirect()
	}
}

// remove must be called with s.mu held
func (s *Sessions) remove(id uuid.UUID) {
	sess, ok := s.sessions[id]
	if !ok {
		return
	}
	delete(s.sessions, id)
	sess.form.Close()
	s.metrics.FormClosed()
}
