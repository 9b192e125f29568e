package services

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"sync"
	"testing"
	"time"

	"gorm.io/gorm"

	"github.com/yungbote/fieldsales-backend/internal/data/aggregates"
	"github.com/yungbote/fieldsales-backend/internal/data/repos"
	"github.com/yungbote/fieldsales-backend/internal/data/repos/testutil"
	domainagg "github.com/yungbote/fieldsales-backend/internal/domain/aggregates"
	"github.com/yungbote/fieldsales-backend/internal/observability"
	"github.com/yungbote/fieldsales-backend/internal/platform/logger"
)

var testNow = time.Date(2026, 3, 14, 9, 30, 0, 0, time.UTC)

// fakeMediaStore records uploads and deletes. failUpload sees each object body.
type fakeMediaStore struct {
	mu         sync.Mutex
	uploads    []string
	deletes    []string
	failUpload func(body string) error
	failDelete func(url string) error
}

func (s *fakeMediaStore) Upload(_ context.Context, r io.Reader, key, _ string) (string, error) {
	body, err := io.ReadAll(r)
	if err != nil {
		return "", err
	}
	if s.failUpload != nil {
		if err := s.failUpload(string(body)); err != nil {
			return "", err
		}
	}
	url := "https://media.test/" + key
	s.mu.Lock()
	s.uploads = append(s.uploads, url)
	s.mu.Unlock()
	return url, nil
}

func (s *fakeMediaStore) Delete(_ context.Context, url string) error {
	s.mu.Lock()
	s.deletes = append(s.deletes, url)
	s.mu.Unlock()
	if s.failDelete != nil {
		return s.failDelete(url)
	}
	return nil
}

func (s *fakeMediaStore) uploaded() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]string(nil), s.uploads...)
}

func (s *fakeMediaStore) deleted() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]string(nil), s.deletes...)
}

func memFile(name, body string) MediaFile {
	return MediaFile{
		Filename: name,
		Open: func() (io.ReadCloser, error) {
			return io.NopCloser(bytes.NewReader([]byte(body))), nil
		},
	}
}

// flakyVisits fails the Upsert calls whose 0-based call number is in failOn.
type flakyVisits struct {
	domainagg.VisitAggregate
	mu     sync.Mutex
	calls  int
	failOn map[int]error
}

func (f *flakyVisits) Upsert(ctx context.Context, in domainagg.UpsertVisitInput) (domainagg.UpsertVisitResult, error) {
	f.mu.Lock()
	n := f.calls
	f.calls++
	err := f.failOn[n]
	f.mu.Unlock()
	if err != nil {
		return domainagg.UpsertVisitResult{}, err
	}
	return f.VisitAggregate.Upsert(ctx, in)
}

type pipelineFixture struct {
	db      *gorm.DB
	log     *logger.Logger
	store   *fakeMediaStore
	visits  domainagg.VisitAggregate
	service VisitBatchService
}

func newPipelineFixture(t *testing.T) *pipelineFixture {
	t.Helper()
	db := testutil.DB(t)
	log := testutil.Logger(t)
	agg := aggregates.NewVisitAggregate(aggregates.VisitAggregateDeps{
		Base: aggregates.BaseDeps{
			DB:     db,
			Log:    log,
			Runner: aggregates.NewBoundedTxRunner(db, aggregates.TxLimits{MaxWait: 2 * time.Second, Timeout: 10 * time.Second}),
		},
		Repos: repos.NewVisitRepos(db, log),
		Now:   func() time.Time { return testNow },
	})
	f := &pipelineFixture{db: db, log: log, store: &fakeMediaStore{}, visits: agg}
	f.rebuild(agg)
	return f
}

// rebuild swaps the aggregate the service writes through.
func (f *pipelineFixture) rebuild(visits domainagg.VisitAggregate) {
	f.service = NewVisitBatchService(
		f.log,
		visits,
		NewMediaUploader(f.log, f.store, nil),
		NewCompensator(f.log, f.store, nil),
		observability.NopPipelineHooks(),
	)
}

func (f *pipelineFixture) process(t *testing.T, body string, files map[int]ItemFiles) *BatchResults {
	t.Helper()
	in, err := ResolveBatchInput([]byte(body))
	if err != nil {
		t.Fatalf("ResolveBatchInput: %v", err)
	}
	res, err := f.service.Process(context.Background(), in, files)
	if err != nil {
		t.Fatalf("Process: %v", err)
	}
	return res
}

func (f *pipelineFixture) count(t *testing.T, model interface{}) int64 {
	t.Helper()
	var n int64
	if err := f.db.Model(model).Count(&n).Error; err != nil {
		t.Fatalf("count: %v", err)
	}
	return n
}

var errInjected = errors.New("injected failure")

func failingBody(marker string) func(string) error {
	return func(body string) error {
		if strings.Contains(body, marker) {
			return fmt.Errorf("bucket unavailable")
		}
		return nil
	}
}
