package service

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/damoang/angple-qualitygate/internal/analyzer"
	"github.com/damoang/angple-qualitygate/internal/domain"
	"github.com/damoang/angple-qualitygate/internal/events"
	"github.com/damoang/angple-qualitygate/internal/repository"
)

// stubScores drives the fake analyzers
type stubScores struct {
	mu      sync.Mutex
	image   int
	content int
	seo     int
	brand   int
	safety  bool
	calls   int32
}

func (s *stubScores) set(image, content, seo, brand int, safety bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.image, s.content, s.seo, s.brand, s.safety = image, content, seo, brand, safety
}

func (s *stubScores) analyzer(name string) analyzer.Analyzer {
	return analyzer.Func{ID: name, Fn: func(context.Context, analyzer.Input) (domain.AnalyzerScore, error) {
		atomic.AddInt32(&s.calls, 1)
		s.mu.Lock()
		defer s.mu.Unlock()
		switch name {
		case domain.AnalyzerImage:
			return domain.AnalyzerScore{Score: s.image, Pass: true}, nil
		case domain.AnalyzerContent:
			return domain.AnalyzerScore{Score: s.content, Pass: true}, nil
		case domain.AnalyzerSEO:
			return domain.AnalyzerScore{Score: s.seo, Pass: true}, nil
		case domain.AnalyzerBrand:
			return domain.AnalyzerScore{Score: s.brand, Pass: s.brand >= 80}, nil
		default:
			if !s.safety {
				return domain.AnalyzerScore{Score: 0, Pass: false, Issues: []domain.Issue{{Code: "profanity_detected", Message: "blocked term"}}}, nil
			}
			return domain.AnalyzerScore{Score: 100, Pass: true}, nil
		}
	}}
}

func (s *stubScores) set5() analyzer.Set {
	return analyzer.Set{
		Image:   s.analyzer(domain.AnalyzerImage),
		Content: s.analyzer(domain.AnalyzerContent),
		SEO:     s.analyzer(domain.AnalyzerSEO),
		Brand:   s.analyzer(domain.AnalyzerBrand),
		Safety:  s.analyzer(domain.AnalyzerSafety),
	}
}

type fixture struct {
	db        *gorm.DB
	scores    *stubScores
	bus       *events.Bus
	published []events.Event
	pubMu     sync.Mutex

	posts   *repository.PostRepository
	results *repository.QualityResultRepository
	queue   *repository.ApprovalQueueRepository
	audit   *repository.AuditRepository

	gate      *QualityGateService
	approvals *ApprovalService
	audits    *AuditService
	scheduler *SchedulerGate
	schedule  *ScheduleService
}

func setupTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{Logger: logger.Default.LogMode(logger.Silent)})
	require.NoError(t, err)

	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)

	require.NoError(t, db.AutoMigrate(
		&domain.ScheduledPost{},
		&domain.QualityGateResult{},
		&domain.ApprovalQueueEntry{},
		&domain.PublicationAuditEvent{},
		&domain.BrandKit{},
	))
	return db
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	db := setupTestDB(t)

	f := &fixture{
		db:      db,
		scores:  &stubScores{image: 100, content: 100, seo: 100, brand: 100, safety: true},
		bus:     events.NewBus(),
		posts:   repository.NewPostRepository(db),
		results: repository.NewQualityResultRepository(db),
		queue:   repository.NewApprovalQueueRepository(db),
		audit:   repository.NewAuditRepository(db),
	}
	f.bus.Subscribe("test", events.Wildcard, func(e events.Event) {
		f.pubMu.Lock()
		f.published = append(f.published, e)
		f.pubMu.Unlock()
	})

	f.gate = NewQualityGateService(db, f.posts, f.results, f.queue, f.audit,
		repository.NewBrandKitRepository(db), f.scores.set5(), newTestPolicy(t), f.bus,
		GateOptions{AnalyzerTimeout: 200 * time.Millisecond, ReviewWindow: 24 * time.Hour, PersistRetries: 2})
	f.approvals = NewApprovalService(db, f.posts, f.queue, f.audit, f.bus)
	f.audits = NewAuditService(f.posts, f.audit)
	f.scheduler = NewSchedulerGate(f.posts, f.results, f.audit, f.bus)
	f.schedule = NewScheduleService(db, f.posts, f.audit, f.gate, f.bus)
	return f
}

func (f *fixture) seedPost(t *testing.T, id, tenant string, scheduledFor time.Time) *domain.ScheduledPost {
	t.Helper()
	post := &domain.ScheduledPost{
		ID:             id,
		TenantID:       tenant,
		AssetID:        "asset-" + id,
		Caption:        "Fresh autumn roast",
		Hashtags:       []string{"#coffee"},
		ScheduledFor:   scheduledFor.UTC(),
		ApprovalStatus: domain.ApprovalPending,
	}
	require.NoError(t, f.posts.Create(context.Background(), post))
	return post
}

func (f *fixture) eventTypes(t *testing.T, postID string) []domain.AuditEventType {
	t.Helper()
	events, err := f.audit.ListByPost(context.Background(), postID)
	require.NoError(t, err)
	out := make([]domain.AuditEventType, 0, len(events))
	for _, e := range events {
		out = append(out, e.EventType)
	}
	return out
}

func (f *fixture) publishedTypes() []domain.AuditEventType {
	f.pubMu.Lock()
	defer f.pubMu.Unlock()
	out := make([]domain.AuditEventType, 0, len(f.published))
	for _, e := range f.published {
		out = append(out, e.Type)
	}
	return out
}
