package wizard

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"sync"
	"time"

	"github.com/JoshPattman/cvwizard/datamodels"
	"github.com/JoshPattman/cvwizard/parse"
	"github.com/JoshPattman/cvwizard/storage"
	"github.com/google/uuid"
)

// Resolver settles a parse, substituting fallback data if configured to.
type Resolver interface {
	Resolve(ctx context.Context, upload parse.Upload) (parse.Outcome, error)
}

// CompletionFunc is called once the apply delay has passed.
type CompletionFunc func(ctx context.Context, req datamodels.ApplyRequest) error

// Config holds the collaborators and timings of every session.
type Config struct {
	Resolver   Resolver
	Spool      storage.CVManager
	OnComplete CompletionFunc
	Validate   func(datamodels.ReviewData) error

	MaxUploadBytes   int64
	ApplyDelay       time.Duration
	ProgressInterval time.Duration
	ProgressStep     int
	ProgressCap      int
	SessionTTL       time.Duration

	Now    func() time.Time
	Logger *slog.Logger
}

func (c *Config) setDefaults() {
	if c.MaxUploadBytes <= 0 {
		c.MaxUploadBytes = DefaultMaxUploadBytes
	}
	if c.ApplyDelay < 0 {
		c.ApplyDelay = 0
	}
	if c.ProgressInterval <= 0 {
		c.ProgressInterval = 200 * time.Millisecond
	}
	if c.ProgressStep <= 0 {
		c.ProgressStep = 10
	}
	if c.ProgressCap <= 0 || c.ProgressCap > 100 {
		c.ProgressCap = 85
	}
	if c.SessionTTL <= 0 {
		c.SessionTTL = 30 * time.Minute
	}
	if c.Now == nil {
		c.Now = time.Now
	}
	if c.Logger == nil {
		c.Logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
}

// Manager owns all live wizard sessions.
type Manager struct {
	cfg       Config
	sanitizer *textSanitizer

	mu       sync.Mutex
	sessions map[string]*Session
}

func NewManager(cfg Config) (*Manager, error) {
	if cfg.Resolver == nil {
		return nil, errors.New("wizard: a resolver is required")
	}
	cfg.setDefaults()
	return &Manager{
		cfg:       cfg,
		sanitizer: newTextSanitizer(),
		sessions:  make(map[string]*Session),
	}, nil
}

// Create starts a new session in the upload step.
func (m *Manager) Create() *Session {
	id := uuid.New().String()
	s := &Session{
		id:       id,
		mgr:      m,
		logger:   m.cfg.Logger.With("session_id", id),
		step:     StepUpload,
		ids:      NewIDSource(m.cfg.Now),
		lastSeen: m.cfg.Now(),
	}
	m.mu.Lock()
	m.sessions[id] = s
	m.mu.Unlock()
	s.logger.Info("Session created")
	return s
}

// Get returns a live session and marks it as recently used.
func (m *Manager) Get(id string) (*Session, error) {
	m.mu.Lock()
	s, ok := m.sessions[id]
	m.mu.Unlock()
	if !ok {
		return nil, ErrSessionNotFound
	}
	s.touch(m.cfg.Now())
	return s, nil
}

// Close resets and forgets a session.
func (m *Manager) Close(id string) error {
	m.mu.Lock()
	s, ok := m.sessions[id]
	delete(m.sessions, id)
	m.mu.Unlock()
	if !ok {
		return ErrSessionNotFound
	}
	s.Reset()
	s.logger.Info("Session closed")
	return nil
}

// Len returns the number of live sessions.
func (m *Manager) Len() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.sessions)
}

// Sweep closes sessions idle for longer than the TTL and returns how many it closed.
func (m *Manager) Sweep() int {
	cutoff := m.cfg.Now().Add(-m.cfg.SessionTTL)
	m.mu.Lock()
	var expired []string
	for id, s := range m.sessions {
		if s.idleSince().Before(cutoff) {
			expired = append(expired, id)
		}
	}
	m.mu.Unlock()
	closed := 0
	for _, id := range expired {
		if m.Close(id) == nil {
			closed++
		}
	}
	if closed > 0 {
		m.cfg.Logger.Info("Expired idle sessions", "num_sessions", closed)
	}
	return closed
}

// RunSweeper sweeps idle sessions every interval until ctx is done.
func (m *Manager) RunSweeper(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			m.Sweep()
		}
	}
}

// Shutdown closes every session.
func (m *Manager) Shutdown() {
	m.mu.Lock()
	ids := make([]string, 0, len(m.sessions))
	for id := range m.sessions {
		ids = append(ids, id)
	}
	m.mu.Unlock()
	for _, id := range ids {
		m.Close(id)
	}
}

func (m *Manager) dropSpool(cvID string) {
	if cvID == "" || m.cfg.Spool == nil {
		return
	}
	if err := m.cfg.Spool.DeleteCV(cvID); err != nil && !errors.Is(err, storage.ErrCVNotFound) {
		m.cfg.Logger.Error("Failed to delete spooled upload", "cv_id", cvID, "error", err)
	}
}

// PurgeOrphanedUploads deletes spooled uploads whose session is no longer
// live, such as those left behind by a restart, and returns how many it removed.
func (m *Manager) PurgeOrphanedUploads() (int, error) {
	if m.cfg.Spool == nil {
		return 0, nil
	}
	cvs, err := m.cfg.Spool.ListCVs()
	if err != nil {
		return 0, err
	}
	m.mu.Lock()
	var orphaned []string
	for _, cv := range cvs {
		if _, ok := m.sessions[cv.SessionID]; !ok {
			orphaned = append(orphaned, cv.UUID)
		}
	}
	m.mu.Unlock()
	purged := 0
	for _, id := range orphaned {
		if err := m.cfg.Spool.DeleteCV(id); err != nil && !errors.Is(err, storage.ErrCVNotFound) {
			return purged, err
		}
		purged++
	}
	if purged > 0 {
		m.cfg.Logger.Info("Purged orphaned uploads", "num_uploads", purged)
	}
	return purged, nil
}
