package wizard

import (
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/JoshPattman/cvwizard/backend"
	"github.com/JoshPattman/cvwizard/datamodels"
	"github.com/JoshPattman/cvwizard/parse"
	"github.com/google/uuid"
)

var ErrNotEditable = errors.New("review data can only be edited in the review step")

// FileInfo describes the accepted upload.
type FileInfo struct {
	Name     string `json:"name"`
	MimeType string `json:"mimeType"`
	Size     int64  `json:"size"`
}

// AppliedSummary counts what was handed to the completion callback.
type AppliedSummary struct {
	Skills         int `json:"skills"`
	Experience     int `json:"experience"`
	Education      int `json:"education"`
	Languages      int `json:"languages"`
	Certifications int `json:"certifications"`
	Projects       int `json:"projects"`
}

// View is a point-in-time snapshot of a session.
type View struct {
	ID           string                 `json:"id"`
	Step         Step                   `json:"step"`
	Progress     int                    `json:"progress"`
	File         *FileInfo              `json:"file,omitempty"`
	UsedFallback bool                   `json:"usedFallback"`
	ParseError   string                 `json:"parseError,omitempty"`
	ApplyError   string                 `json:"applyError,omitempty"`
	Review       *datamodels.ReviewData `json:"review,omitempty"`
	Applied      *AppliedSummary        `json:"applied,omitempty"`
}

// Session is one run of the wizard. All methods are safe for concurrent use.
type Session struct {
	id     string
	mgr    *Manager
	logger *slog.Logger

	mu           sync.Mutex
	step         Step
	progress     int
	file         *FileInfo
	cvID         string
	parsed       *datamodels.ParsedCV
	review       datamodels.ReviewData
	usedFallback bool
	parseError   string
	applyError   string
	applied      *AppliedSummary
	ids          *IDSource
	gen          uint64
	cancel       context.CancelFunc
	done         chan struct{}
	lastSeen     time.Time
}

func (s *Session) ID() string { return s.id }

// View returns a snapshot of the session state.
func (s *Session) View() View {
	s.mu.Lock()
	defer s.mu.Unlock()
	v := View{
		ID:           s.id,
		Step:         s.step,
		Progress:     s.progress,
		UsedFallback: s.usedFallback,
		ParseError:   s.parseError,
		ApplyError:   s.applyError,
	}
	if s.file != nil {
		f := *s.file
		v.File = &f
	}
	if s.parsed != nil {
		rd := s.review.Clone()
		v.Review = &rd
	}
	if s.applied != nil {
		a := *s.applied
		v.Applied = &a
	}
	return v
}

// Step returns the current step.
func (s *Session) Step() Step {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.step
}

// Wait blocks until the current background parse or apply has settled.
func (s *Session) Wait(ctx context.Context) error {
	s.mu.Lock()
	done := s.done
	s.mu.Unlock()
	if done == nil {
		return nil
	}
	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Upload validates the file and, if accepted, moves to the parsing step and
// starts parsing in the background. A rejected file leaves the session in the
// upload step and nothing is sent to the parser.
func (s *Session) Upload(ctx context.Context, in Incoming) error {
	s.mu.Lock()
	if s.step != StepUpload {
		err := transitionError(s.step, StepParsing)
		s.mu.Unlock()
		return err
	}
	s.mu.Unlock()

	up, err := readUpload(in, s.mgr.cfg.MaxUploadBytes)
	if err != nil {
		s.logger.Info("Rejected upload", "file_name", in.FileName, "mime_type", in.MimeType, "size", in.Size, "error", err)
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.step != StepUpload {
		return transitionError(s.step, StepParsing)
	}
	s.step = StepParsing
	s.progress = 0
	s.parseError = ""
	s.applyError = ""
	s.usedFallback = false
	s.applied = nil
	s.file = &FileInfo{Name: up.FileName, MimeType: up.MimeType, Size: int64(len(up.Data))}
	gen, jobCtx, done := s.startJobLocked(ctx)
	s.logger.Info("Accepted upload", "file_name", up.FileName, "mime_type", up.MimeType, "size", len(up.Data))
	go s.runParse(jobCtx, gen, up, done)
	return nil
}

// startJobLocked bumps the generation and prepares a cancellable context for a
// background job. The job keeps the request's values but not its cancellation.
func (s *Session) startJobLocked(ctx context.Context) (uint64, context.Context, chan struct{}) {
	s.gen++
	jobCtx, cancel := context.WithCancel(context.WithoutCancel(ctx))
	s.cancel = cancel
	s.done = make(chan struct{})
	return s.gen, jobCtx, s.done
}

type parseResult struct {
	outcome parse.Outcome
	err     error
}

func (s *Session) runParse(ctx context.Context, gen uint64, up parse.Upload, done chan struct{}) {
	defer close(done)
	cfg := s.mgr.cfg
	tstart := time.Now()

	results := make(chan parseResult, 1)
	go func() {
		text, err := parse.ExtractText(up.MimeType, up.Data)
		if err != nil {
			s.logger.Debug("Could not extract upload text", "error", err)
		}
		up.Text = text
		s.spool(gen, up)
		outcome, err := cfg.Resolver.Resolve(ctx, up)
		results <- parseResult{outcome, err}
	}()

	ticker := time.NewTicker(cfg.ProgressInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ticker.C:
			s.tick(gen)
		case r := <-results:
			s.settleParse(gen, r, time.Since(tstart))
			return
		}
	}
}

func (s *Session) tick(gen uint64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if gen != s.gen || s.step != StepParsing {
		return
	}
	s.progress = min(s.progress+s.mgr.cfg.ProgressStep, s.mgr.cfg.ProgressCap)
}

func (s *Session) settleParse(gen uint64, r parseResult, took time.Duration) {
	s.mu.Lock()
	if gen != s.gen || s.step != StepParsing {
		s.mu.Unlock()
		return
	}
	s.releaseJobLocked()
	if r.err != nil {
		s.logger.Warn("Parse failed, returning to upload", "error", r.err, "time_taken", took)
		s.step = StepUpload
		s.progress = 0
		s.parseError = backend.UserMessage(r.err)
		s.file = nil
		cvID := s.cvID
		s.cvID = ""
		s.mu.Unlock()
		s.mgr.dropSpool(cvID)
		return
	}
	defer s.mu.Unlock()
	parsed := r.outcome.CV
	s.parsed = &parsed
	s.review = BuildReviewData(parsed, s.ids)
	s.usedFallback = r.outcome.Fallback
	if r.outcome.Cause != nil {
		s.parseError = backend.UserMessage(r.outcome.Cause)
	}
	s.progress = 100
	s.step = StepReview
	s.logger.Info(
		"Parse settled",
		"used_fallback", s.usedFallback,
		"num_skills", len(s.review.Skills),
		"num_experience", len(s.review.Experience),
		"num_education", len(s.review.Education),
		"time_taken", took,
	)
}

func (s *Session) releaseJobLocked() {
	if s.cancel != nil {
		s.cancel()
		s.cancel = nil
	}
}

// spool stores the upload for the life of the session.
func (s *Session) spool(gen uint64, up parse.Upload) {
	spool := s.mgr.cfg.Spool
	if spool == nil {
		return
	}
	cv := datamodels.CV{
		UUID:       uuid.New().String(),
		SessionID:  s.id,
		FileName:   up.FileName,
		MimeType:   up.MimeType,
		Size:       int64(len(up.Data)),
		Text:       up.Text,
		RawDoc:     base64.StdEncoding.EncodeToString(up.Data),
		UploadedAt: s.mgr.cfg.Now(),
	}
	if err := spool.StoreCV(cv); err != nil {
		s.logger.Error("Failed to spool upload", "error", err)
		return
	}
	s.mu.Lock()
	stale := gen != s.gen
	if !stale {
		s.cvID = cv.UUID
	}
	s.mu.Unlock()
	if stale {
		s.mgr.dropSpool(cv.UUID)
	}
}

func (s *Session) editLocked() error {
	if s.step != StepReview {
		return fmt.Errorf("%w: current step is %s", ErrNotEditable, s.step)
	}
	return nil
}

// AddItem appends an empty item to section and returns its index.
func (s *Session) AddItem(section Section) (int, error) {
	e, err := editorFor(section)
	if err != nil {
		return 0, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.editLocked(); err != nil {
		return 0, err
	}
	return e.add(&s.review, s.ids.Next()), nil
}

// UpdateItem replaces the item at index in section with the JSON item raw.
// The item keeps its synthetic id.
func (s *Session) UpdateItem(section Section, index int, raw []byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.editLocked(); err != nil {
		return err
	}
	if section == SectionPersonal {
		return updatePersonal(&s.review, raw, s.mgr.sanitizer.Clean)
	}
	e, err := editorFor(section)
	if err != nil {
		return err
	}
	return e.update(&s.review, index, raw, s.mgr.sanitizer.Clean)
}

// RemoveItem deletes the item at index from section.
func (s *Session) RemoveItem(section Section, index int) error {
	e, err := editorFor(section)
	if err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.editLocked(); err != nil {
		return err
	}
	return e.remove(&s.review, index)
}

// Apply validates the reviewed data, moves to the applying step and, after the
// configured delay, hands the result to the completion callback.
func (s *Session) Apply(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.step != StepReview {
		return transitionError(s.step, StepApplying)
	}
	if validate := s.mgr.cfg.Validate; validate != nil {
		if err := validate(s.review); err != nil {
			return fmt.Errorf("%w: %w", ErrReviewInvalid, err)
		}
	}
	req := datamodels.ApplyRequest{
		Original: *s.parsed,
		Reviewed: s.review.Clone(),
	}
	s.step = StepApplying
	gen, jobCtx, done := s.startJobLocked(ctx)
	s.logger.Info("Applying cv")
	go s.runApply(jobCtx, gen, req, done)
	return nil
}

func (s *Session) runApply(ctx context.Context, gen uint64, req datamodels.ApplyRequest, done chan struct{}) {
	defer close(done)
	cfg := s.mgr.cfg
	timer := time.NewTimer(cfg.ApplyDelay)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return
	case <-timer.C:
	}
	var err error
	if cfg.OnComplete != nil {
		err = cfg.OnComplete(ctx, req)
	}
	s.settleApply(gen, req, err)
}

func (s *Session) settleApply(gen uint64, req datamodels.ApplyRequest, err error) {
	s.mu.Lock()
	if gen != s.gen || s.step != StepApplying {
		s.mu.Unlock()
		return
	}
	s.releaseJobLocked()
	s.step = StepComplete
	s.progress = 100
	s.applied = &AppliedSummary{
		Skills:         len(req.Reviewed.Skills),
		Experience:     len(req.Reviewed.Experience),
		Education:      len(req.Reviewed.Education),
		Languages:      len(req.Reviewed.Languages),
		Certifications: len(req.Reviewed.Certifications),
		Projects:       len(req.Reviewed.Projects),
	}
	if err != nil {
		s.logger.Error("Apply failed", "error", err)
		s.applyError = err.Error()
		s.mu.Unlock()
		return
	}
	s.parsed = nil
	s.review = datamodels.ReviewData{}
	cvID := s.cvID
	s.cvID = ""
	s.mu.Unlock()
	s.mgr.dropSpool(cvID)
	s.logger.Info("Apply complete")
}

// Reset cancels any background work, discards all data and returns to the
// upload step. It is the only way to leave the complete step.
func (s *Session) Reset() {
	s.mu.Lock()
	s.releaseJobLocked()
	s.gen++
	s.step = StepUpload
	s.progress = 0
	s.file = nil
	s.parsed = nil
	s.review = datamodels.ReviewData{}
	s.usedFallback = false
	s.parseError = ""
	s.applyError = ""
	s.applied = nil
	cvID := s.cvID
	s.cvID = ""
	s.mu.Unlock()
	s.mgr.dropSpool(cvID)
	s.logger.Info("Session reset")
}

func (s *Session) touch(now time.Time) {
	s.mu.Lock()
	s.lastSeen = now
	s.mu.Unlock()
}

func (s *Session) idleSince() time.Time {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.lastSeen
}
