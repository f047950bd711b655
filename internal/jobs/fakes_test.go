package jobs

import (
	"context"
	"errors"
	"fmt"
	"io"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"tender-backend/internal/documents"
	"tender-backend/internal/llm"
	"tender-backend/internal/ocr"
	"tender-backend/internal/profiles"
	"tender-backend/internal/shared/storage/object"
	"tender-backend/internal/shared/storage/object/local"
	"tender-backend/internal/shared/telemetry"
)

type fakeOCR struct {
	calls int32
	text  string
	err   error
	block bool
}

func (f *fakeOCR) Extract(ctx context.Context, in ocr.Input) (ocr.Result, error) {
	atomic.AddInt32(&f.calls, 1)
	if f.block {
		<-ctx.Done()
		return ocr.Result{}, ctx.Err()
	}
	if f.err != nil {
		return ocr.Result{}, f.err
	}
	return ocr.Result{Text: f.text, PageCount: 2}, nil
}

type fakeFields struct {
	calls  int32
	fields llm.ProfileFields
	err    error
}

func (f *fakeFields) ExtractFields(ctx context.Context, in llm.FieldInput) (llm.ProfileFields, error) {
	atomic.AddInt32(&f.calls, 1)
	if f.err != nil {
		return llm.ProfileFields{}, f.err
	}
	return f.fields, nil
}

type fakeKeywords struct {
	calls    int32
	keywords []llm.Keyword
	err      error
	// gate, when set, is closed by the test to release the call
	gate chan struct{}
}

func (f *fakeKeywords) GenerateKeywords(ctx context.Context, in llm.KeywordInput) ([]llm.Keyword, error) {
	atomic.AddInt32(&f.calls, 1)
	if f.gate != nil {
		select {
		case <-f.gate:
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
	if f.err != nil {
		return nil, f.err
	}
	return f.keywords, nil
}

// flakyProfiles fails the first failures Apply calls, then delegates.
type flakyProfiles struct {
	*profiles.MemoryRepo
	failures int32
	calls    int32
	// beforeApply runs ahead of a delegated Apply
	beforeApply func()
}

func (f *flakyProfiles) Apply(ctx context.Context, userID string, ext profiles.Extraction, jobID string, at time.Time) (profiles.CompanyProfile, error) {
	if atomic.AddInt32(&f.calls, 1) <= f.failures {
		return profiles.CompanyProfile{}, errors.New("connection reset by peer")
	}
	if f.beforeApply != nil {
		f.beforeApply()
	}
	return f.MemoryRepo.Apply(ctx, userID, ext, jobID, at)
}

type recordingDispatcher struct {
	mu  sync.Mutex
	ids []string
	err error
}

func (d *recordingDispatcher) Dispatch(_ context.Context, jobID string) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.err != nil {
		return d.err
	}
	d.ids = append(d.ids, jobID)
	return nil
}

func (d *recordingDispatcher) count() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return len(d.ids)
}

type failingStore struct{}

func (failingStore) Put(context.Context, string, string, io.Reader) (int64, error) {
	return 0, errors.New("disk full")
}
func (failingStore) Open(context.Context, string) (io.ReadCloser, error) {
	return nil, errors.New("disk full")
}
func (failingStore) Delete(context.Context, string) error { return nil }
func (failingStore) Provider() string                     { return "failing" }

var _ object.Store = failingStore{}

type harness struct {
	svc        *Service
	repo       *MemoryRepo
	docs       *documents.MemoryRepo
	profiles   *profiles.MemoryRepo
	ocr        *fakeOCR
	fields     *fakeFields
	keywords   *fakeKeywords
	dispatcher *recordingDispatcher
}

func newHarness(t *testing.T) *harness {
	t.Helper()
	t.Cleanup(telemetry.SetOutput(io.Discard))

	h := &harness{
		repo:     NewMemoryRepo(),
		docs:     documents.NewMemoryRepo(),
		profiles: profiles.NewMemoryRepo(),
		ocr:      &fakeOCR{text: "Al Noor Contracting builds roads. Asphalt paving and bridge repair."},
		fields: &fakeFields{fields: llm.ProfileFields{
			CompanyDescription: "Road construction contractor",
			BusinessType:       "LLC",
			Activities:         []string{"paving"},
			Industries:         []string{"construction"},
			Specializations:    []string{"asphalt"},
		}},
		keywords: &fakeKeywords{keywords: []llm.Keyword{
			{Source: "asphalt paving", Target: "رصف الأسفلت"},
			{Source: "bridge repair", Target: "صيانة الجسور"},
		}},
		dispatcher: &recordingDispatcher{},
	}
	var seq int32
	h.svc = &Service{
		Repo: h.repo,
		Documents: &documents.Service{
			Store:     local.New(t.TempDir()),
			Repo:      h.docs,
			Validator: documents.DefaultValidator(),
		},
		Profiles:     h.profiles,
		OCR:          h.ocr,
		Fields:       h.fields,
		Keywords:     h.keywords,
		Dispatcher:   h.dispatcher,
		SourceLocale: "en",
		TargetLocale: "ar",
		NewID: func() string {
			return fmt.Sprintf("id-%d", atomic.AddInt32(&seq, 1))
		},
	}
	return h
}
