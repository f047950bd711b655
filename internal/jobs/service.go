package jobs

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"tender-backend/internal/documents"
	"tender-backend/internal/llm"
	"tender-backend/internal/ocr"
	"tender-backend/internal/profiles"
	"tender-backend/internal/shared/metrics"
	"tender-backend/internal/shared/storage/object"
	"tender-backend/internal/shared/telemetry"
	"tender-backend/internal/shared/util"
)

const (
	defaultOCRTimeout     = 2 * time.Minute
	defaultAnalyzeTimeout = 2 * time.Minute
	defaultClaimTTL       = 5 * time.Minute
	staleBatch            = 100
	// one iteration per forward stage plus a final read
	maxRunSteps = 5
)

// Service drives documents through upload, text extraction and analysis into
// the caller's company profile.
type Service struct {
	Repo       Repo
	Documents  *documents.Service
	Profiles   profiles.Repo
	OCR        ocr.Extractor
	Fields     llm.FieldExtractor
	Keywords   llm.KeywordGenerator
	Dispatcher Dispatcher

	OCRTimeout     time.Duration
	AnalyzeTimeout time.Duration
	// ClaimTTL is how long a stage claim blocks other workers.
	ClaimTTL time.Duration

	SourceLocale string
	TargetLocale string

	Now   func() time.Time
	NewID func() string
}

// SubmitResult identifies the job and document created by an upload.
type SubmitResult struct {
	JobID      string `json:"jobId"`
	DocumentID string `json:"documentId"`
	Status     Status `json:"status"`
}

// Submit validates an upload, then creates its job, stores the document and
// dispatches the job. Nothing is written when validation fails.
func (s *Service) Submit(ctx context.Context, userID, fileName string, data []byte) (SubmitResult, error) {
	if userID == "" {
		return SubmitResult{}, errors.New("userID is required")
	}
	meta, err := s.Documents.Validate(fileName, data)
	if err != nil {
		return SubmitResult{}, err
	}

	now := s.now()
	job := Job{
		ID:         s.newID(),
		DocumentID: s.newID(),
		UserID:     userID,
		State:      StateUploading,
		CreatedAt:  now,
		UpdatedAt:  now,
	}
	if err := s.Repo.Create(ctx, job); err != nil {
		return SubmitResult{}, fmt.Errorf("create job: %w", err)
	}
	metrics.IncJobSubmitted()
	s.logStatus(ctx, job, StateIdle, StateUploading)

	if _, err := s.Documents.Save(ctx, userID, job.DocumentID, fileName, data, meta); err != nil {
		s.fail(ctx, job, "document storage failed", err)
		return SubmitResult{}, fmt.Errorf("store document: %w", err)
	}

	if err := s.dispatch(ctx, job.ID); err != nil {
		telemetry.Warn("job.dispatch.failed", map[string]any{
			"request_id": RequestIDFromContext(ctx),
			"job_id":     job.ID,
			"error":      err.Error(),
		})
	}

	current, err := s.Repo.GetByID(ctx, job.ID)
	if err != nil {
		current = job
	}
	return SubmitResult{JobID: job.ID, DocumentID: job.DocumentID, Status: current.Status()}, nil
}

// Status reads the persisted state of a caller's job.
func (s *Service) Status(ctx context.Context, userID, jobID string) (Status, error) {
	job, err := s.Repo.GetByID(ctx, jobID)
	if err != nil {
		return Status{}, err
	}
	if job.UserID != userID {
		return Status{}, ErrNotFound
	}
	return job.Status(), nil
}

// Trigger is the idempotent process request for a document. A job that is
// terminal or has a stage in flight is reported as is; an unclaimed
// non-terminal job is dispatched again.
func (s *Service) Trigger(ctx context.Context, userID, documentID string) (Status, error) {
	job, err := s.Repo.GetByDocument(ctx, userID, documentID)
	if err != nil {
		return Status{}, err
	}
	if job.State.Terminal() || s.claimLive(job) {
		return job.Status(), nil
	}
	if err := s.dispatch(ctx, job.ID); err != nil {
		return Status{}, fmt.Errorf("dispatch job: %w", err)
	}
	return job.Status(), nil
}

// Run advances a job until it is terminal or another worker holds it.
func (s *Service) Run(ctx context.Context, jobID string) (Status, error) {
	var st Status
	for i := 0; i < maxRunSteps; i++ {
		next, err := s.Advance(ctx, jobID)
		if err != nil {
			return next, err
		}
		if next.State.Terminal() || (i > 0 && next.State == st.State) {
			return next, nil
		}
		st = next
	}
	return st, nil
}

// Advance runs at most one stage of a job. A caller that loses the stage
// claim gets the current status back and changes nothing.
func (s *Service) Advance(ctx context.Context, jobID string) (Status, error) {
	job, err := s.Repo.GetByID(ctx, jobID)
	if err != nil {
		return Status{}, err
	}
	if job.State.Terminal() {
		return job.Status(), nil
	}

	now := s.now()
	won, err := s.Repo.Claim(ctx, job.ID, job.State, now, now.Add(-s.claimTTL()))
	if err != nil {
		return Status{}, fmt.Errorf("claim %s: %w", job.State, err)
	}
	if !won {
		return s.current(ctx, job)
	}

	started := time.Now()
	stage := job.State
	switch stage {
	case StateUploading:
		err = s.verifyUpload(ctx, job)
	case StateProcessing:
		err = s.extractText(ctx, job)
	case StateAnalyzing:
		err = s.analyze(ctx, job)
	default:
		err = fmt.Errorf("unexpected state %q", stage)
	}
	metrics.ObserveStageDurationMs(string(stage), float64(time.Since(started).Milliseconds()))

	if errors.Is(err, ErrStateConflict) {
		return s.current(ctx, job)
	}
	if err != nil {
		// free the stage so a redelivery can retry it before the claim goes stale
		if relErr := s.Repo.Release(context.WithoutCancel(ctx), job.ID, stage, s.now()); relErr != nil {
			telemetry.Warn("job.release.failed", map[string]any{
				"request_id": RequestIDFromContext(ctx),
				"job_id":     job.ID,
				"stage":      stage,
				"error":      relErr.Error(),
			})
		}
		return Status{}, err
	}
	return s.current(ctx, job)
}

// ExpireStale fails non-terminal jobs not touched since olderThan ago.
func (s *Service) ExpireStale(ctx context.Context, olderThan time.Duration) (int, error) {
	before := s.now().Add(-olderThan)
	stale, err := s.Repo.ListStale(ctx, before, staleBatch)
	if err != nil {
		return 0, err
	}
	expired := 0
	for _, job := range stale {
		ok, err := s.Repo.MarkError(ctx, job.ID, "processing timed out", s.now())
		if err != nil {
			return expired, err
		}
		if !ok {
			continue
		}
		expired++
		metrics.IncJobExpired()
		metrics.IncJobFailed()
		s.logStatus(ctx, job, job.State, StateError)
	}
	return expired, nil
}

func (s *Service) verifyUpload(ctx context.Context, job Job) error {
	if _, err := s.Documents.Get(ctx, job.UserID, job.DocumentID); err != nil {
		if errors.Is(err, documents.ErrNotFound) {
			s.fail(ctx, job, "document not found", err)
			return nil
		}
		return fmt.Errorf("document lookup: %w", err)
	}
	return s.transition(ctx, job, StateProcessing, Patch{})
}

func (s *Service) extractText(ctx context.Context, job Job) error {
	text := job.OCRText
	if text == "" {
		doc, err := s.Documents.Get(ctx, job.UserID, job.DocumentID)
		if err != nil {
			s.fail(ctx, job, "document not found", err)
			return nil
		}
		data, err := s.Documents.Read(ctx, doc)
		if err != nil {
			msg := "document could not be read"
			if errors.Is(err, object.ErrNotFound) {
				msg = "uploaded file is missing"
			}
			s.fail(ctx, job, msg, err)
			return nil
		}

		octx, cancel := context.WithTimeout(ctx, s.ocrTimeout())
		res, err := s.OCR.Extract(octx, ocr.Input{
			DocumentID: doc.ID,
			FileName:   doc.FileName,
			MimeType:   doc.MimeType,
			Data:       data,
		})
		cancel()
		if err != nil {
			s.fail(ctx, job, adapterMessage("text extraction", err), err)
			return nil
		}
		text = res.Text
	}
	return s.transition(ctx, job, StateAnalyzing, Patch{OCRText: &text})
}

func (s *Service) analyze(ctx context.Context, job Job) error {
	ext := job.Extraction
	if ext == nil {
		actx, cancel := context.WithTimeout(ctx, s.analyzeTimeout())
		fields, err := s.Fields.ExtractFields(actx, llm.FieldInput{Text: job.OCRText})
		if err != nil {
			cancel()
			s.fail(ctx, job, adapterMessage("profile analysis", err), err)
			return nil
		}
		keywords, err := s.Keywords.GenerateKeywords(actx, llm.KeywordInput{
			Text:            job.OCRText,
			Industries:      fields.Industries,
			Specializations: fields.Specializations,
			SourceLocale:    s.SourceLocale,
			TargetLocale:    s.TargetLocale,
		})
		cancel()
		if err != nil {
			s.fail(ctx, job, adapterMessage("keyword generation", err), err)
			return nil
		}

		ext = toExtraction(fields, keywords)
		if err := s.Repo.SaveExtraction(ctx, job.ID, Patch{Extraction: ext}, s.now()); err != nil {
			return err
		}
	}

	// On error the job stays analyzing with its extraction saved; re-applying
	// the same extraction leaves the profile unchanged.
	if _, err := s.Profiles.Apply(ctx, job.UserID, *ext, job.ID, s.now()); err != nil {
		return fmt.Errorf("apply profile: %w", err)
	}

	completedAt := s.now()
	if err := s.transition(ctx, job, StateCompleted, Patch{CompletedAt: &completedAt}); err != nil {
		if errors.Is(err, ErrStateConflict) {
			telemetry.Warn("job.profile.applied_after_error", map[string]any{
				"request_id":  RequestIDFromContext(ctx),
				"user_id":     job.UserID,
				"document_id": job.DocumentID,
				"job_id":      job.ID,
			})
		}
		return err
	}
	metrics.IncJobCompleted()
	metrics.ObserveJobDurationMs(float64(completedAt.Sub(job.CreatedAt).Milliseconds()))
	return nil
}

func (s *Service) transition(ctx context.Context, job Job, to State, patch Patch) error {
	if err := s.Repo.Transition(ctx, job.ID, job.State, to, patch, s.now()); err != nil {
		return err
	}
	s.logStatus(ctx, job, job.State, to)
	return nil
}

// fail moves the job to error. User-facing messages never carry the cause;
// the cause is logged.
func (s *Service) fail(ctx context.Context, job Job, message string, cause error) {
	ok, err := s.Repo.MarkError(ctx, job.ID, util.SanitizeMessage(errors.New(message)), s.now())
	fields := map[string]any{
		"request_id":  RequestIDFromContext(ctx),
		"user_id":     job.UserID,
		"document_id": job.DocumentID,
		"job_id":      job.ID,
		"stage":       job.State,
		"message":     message,
	}
	if cause != nil {
		fields["error"] = util.SanitizeMessage(cause)
	}
	if err != nil {
		fields["mark_error"] = err.Error()
		telemetry.Error("job.fail.persist", fields)
		return
	}
	if !ok {
		return
	}
	metrics.IncJobFailed()
	telemetry.Error("job.failed", fields)
	s.logStatus(ctx, job, job.State, StateError)
}

func (s *Service) logStatus(ctx context.Context, job Job, from, to State) {
	telemetry.Info("job.status", map[string]any{
		"request_id":        RequestIDFromContext(ctx),
		"user_id":           job.UserID,
		"document_id":       job.DocumentID,
		"job_id":            job.ID,
		"status":            to,
		"status_transition": string(from) + "->" + string(to),
	})
}

func (s *Service) current(ctx context.Context, job Job) (Status, error) {
	latest, err := s.Repo.GetByID(ctx, job.ID)
	if err != nil {
		return Status{}, err
	}
	return latest.Status(), nil
}

func (s *Service) claimLive(job Job) bool {
	if job.ClaimedStage == "" || job.ClaimedAt == nil {
		return false
	}
	return job.ClaimedAt.After(s.now().Add(-s.claimTTL()))
}

func (s *Service) dispatch(ctx context.Context, jobID string) error {
	if s.Dispatcher == nil {
		return errors.New("no dispatcher configured")
	}
	return s.Dispatcher.Dispatch(ctx, jobID)
}

func adapterMessage(stage string, err error) string {
	if errors.Is(err, context.DeadlineExceeded) {
		return stage + " timed out"
	}
	if errors.Is(err, ocr.ErrNoText) {
		return "no readable text found in document"
	}
	return stage + " failed"
}

func toExtraction(f llm.ProfileFields, keywords []llm.Keyword) *profiles.Extraction {
	kws := make([]profiles.Keyword, 0, len(keywords))
	for _, kw := range llm.NormalizeKeywords(keywords) {
		kws = append(kws, profiles.Keyword{Source: kw.Source, Target: kw.Target})
	}
	return &profiles.Extraction{
		CompanyDescription: f.CompanyDescription,
		BusinessType:       f.BusinessType,
		Activities:         f.Activities,
		Industries:         f.Industries,
		Specializations:    f.Specializations,
		Keywords:           kws,
	}
}

func (s *Service) now() time.Time {
	if s.Now != nil {
		return s.Now().UTC()
	}
	return time.Now().UTC()
}

func (s *Service) newID() string {
	if s.NewID != nil {
		return s.NewID()
	}
	return uuid.NewString()
}

func (s *Service) ocrTimeout() time.Duration {
	if s.OCRTimeout > 0 {
		return s.OCRTimeout
	}
	return defaultOCRTimeout
}

func (s *Service) analyzeTimeout() time.Duration {
	if s.AnalyzeTimeout > 0 {
		return s.AnalyzeTimeout
	}
	return defaultAnalyzeTimeout
}

func (s *Service) claimTTL() time.Duration {
	if s.ClaimTTL > 0 {
		return s.ClaimTTL
	}
	return defaultClaimTTL
}

var _ Processor = (*Service)(nil)
