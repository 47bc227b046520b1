package service

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/damoang/angple-qualitygate/internal/analyzer"
	"github.com/damoang/angple-qualitygate/internal/common"
	"github.com/damoang/angple-qualitygate/internal/domain"
)

func failResultInserts(t *testing.T, db *gorm.DB, times int32) *int32 {
	t.Helper()
	remaining := times
	err := db.Callback().Create().Before("gorm:create").Register("test:fail_result_insert", func(tx *gorm.DB) {
		if tx.Statement.Table != "quality_gate_results" {
			return
		}
		if atomic.AddInt32(&remaining, -1) >= 0 {
			_ = tx.AddError(errors.New("disk full"))
		}
	})
	require.NoError(t, err)
	return &remaining
}

func TestEvaluate_AutoApprove(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.seedPost(t, "p1", "t1", time.Now().Add(time.Hour))

	res, err := f.gate.Evaluate(ctx, "p1")
	require.NoError(t, err)
	assert.Equal(t, domain.DecisionAutoApprove, res.Decision)
	assert.Equal(t, 100.0, res.OverallScore)
	assert.NotEmpty(t, res.AttemptID)

	post, err := f.posts.FindByID(ctx, "p1")
	require.NoError(t, err)
	assert.Equal(t, domain.ApprovalAutoApproved, post.ApprovalStatus)
	require.NotNil(t, post.LastQualityScore)
	assert.Equal(t, 100.0, *post.LastQualityScore)
	assert.Equal(t, domain.DecisionAutoApprove, *post.LastQualityDecision)

	assert.Equal(t, []domain.AuditEventType{domain.AuditValidated, domain.AuditApproved}, f.eventTypes(t, "p1"))
	assert.Equal(t, []domain.AuditEventType{domain.AuditValidated, domain.AuditApproved}, f.publishedTypes())

	pending, err := f.approvals.ListPending(ctx, "t1")
	require.NoError(t, err)
	assert.Empty(t, pending)
}

func TestEvaluate_SafetyFailureRejects(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.seedPost(t, "p1", "t1", time.Now().Add(time.Hour))
	f.scores.set(100, 100, 100, 100, false)

	res, err := f.gate.Evaluate(ctx, "p1")
	require.NoError(t, err)
	assert.Equal(t, domain.DecisionReject, res.Decision)

	post, err := f.posts.FindByID(ctx, "p1")
	require.NoError(t, err)
	assert.Equal(t, domain.ApprovalRejected, post.ApprovalStatus)
	assert.Contains(t, post.RejectionReason, "safety")

	events, err := f.audit.ListByPost(ctx, "p1")
	require.NoError(t, err)
	require.Len(t, events, 2)
	assert.Equal(t, domain.AuditValidated, events[0].EventType)
	assert.Equal(t, domain.AuditRejected, events[1].EventType)
	assert.Contains(t, events[1].Details["reason"], "safety")
}

func TestEvaluate_RequireReviewQueuesPost(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	scheduled := time.Now().UTC().Add(2 * time.Hour)
	f.seedPost(t, "p1", "t1", scheduled)
	f.scores.set(80, 80, 80, 86, true)

	res, err := f.gate.Evaluate(ctx, "p1")
	require.NoError(t, err)
	assert.Equal(t, domain.DecisionRequireReview, res.Decision)
	assert.GreaterOrEqual(t, res.OverallScore, 80.0)
	assert.Less(t, res.OverallScore, 95.0)

	post, err := f.posts.FindByID(ctx, "p1")
	require.NoError(t, err)
	assert.Equal(t, domain.ApprovalPending, post.ApprovalStatus)

	pending, err := f.approvals.ListPending(ctx, "t1")
	require.NoError(t, err)
	require.Len(t, pending, 1)
	assert.Equal(t, "p1", pending[0].PostID)
	assert.Equal(t, domain.ResolutionPending, pending[0].Resolution)
	assert.Equal(t, res.ID, pending[0].ResultID)
	// window is capped by the publish time
	assert.WithinDuration(t, scheduled, pending[0].ExpiresAt, time.Second)

	assert.Equal(t, []domain.AuditEventType{domain.AuditValidated}, f.eventTypes(t, "p1"))

	other, err := f.approvals.ListPending(ctx, "t2")
	require.NoError(t, err)
	assert.Empty(t, other)
}

func TestEvaluate_AnalyzerTimeoutDegradesToReject(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.seedPost(t, "p1", "t1", time.Now().Add(time.Hour))

	set := f.scores.set5()
	set.Safety = analyzer.Func{ID: domain.AnalyzerSafety, Fn: func(ctx context.Context, _ analyzer.Input) (domain.AnalyzerScore, error) {
		<-ctx.Done()
		return domain.AnalyzerScore{}, ctx.Err()
	}}
	f.gate.analyzers = set

	start := time.Now()
	res, err := f.gate.Evaluate(ctx, "p1")
	require.NoError(t, err)
	assert.Less(t, time.Since(start), 2*time.Second)
	assert.Equal(t, domain.DecisionReject, res.Decision)
	assert.False(t, res.SafetyPass)

	found := false
	for _, issue := range res.Issues {
		if issue.Analyzer == domain.AnalyzerSafety && issue.Code == domain.IssueTimeout {
			found = true
		}
	}
	assert.True(t, found, "expected a safety timeout issue, got %+v", res.Issues)
}

func TestEvaluate_RetriesWholeEvaluationOnPersistenceFailure(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.seedPost(t, "p1", "t1", time.Now().Add(time.Hour))
	failResultInserts(t, f.db, 1)

	res, err := f.gate.Evaluate(ctx, "p1")
	require.NoError(t, err)
	assert.Equal(t, domain.DecisionAutoApprove, res.Decision)

	// analyzers ran twice: once per attempt
	assert.Equal(t, int32(10), atomic.LoadInt32(&f.scores.calls))

	count, err := f.results.CountByPost(ctx, "p1")
	require.NoError(t, err)
	assert.Equal(t, int64(1), count)

	stored, err := f.results.FindByAttempt(ctx, res.AttemptID)
	require.NoError(t, err)
	assert.Equal(t, res.ID, stored.ID)

	// the failed attempt left nothing behind
	assert.Equal(t, []domain.AuditEventType{domain.AuditValidated, domain.AuditApproved}, f.eventTypes(t, "p1"))
}

func TestEvaluate_PersistenceFailureSurfacesAfterRetries(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.seedPost(t, "p1", "t1", time.Now().Add(time.Hour))
	failResultInserts(t, f.db, 100)

	_, err := f.gate.Evaluate(ctx, "p1")
	require.Error(t, err)
	assert.ErrorIs(t, err, common.ErrPersistence)
	assert.Equal(t, int32(15), atomic.LoadInt32(&f.scores.calls))

	post, err := f.posts.FindByID(ctx, "p1")
	require.NoError(t, err)
	assert.Equal(t, domain.ApprovalPending, post.ApprovalStatus)
	assert.Nil(t, post.LastQualityDecision)
	assert.Empty(t, f.eventTypes(t, "p1"))
	assert.Empty(t, f.publishedTypes())
}

func TestEvaluate_ReevaluationSupersedesPendingReview(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.seedPost(t, "p1", "t1", time.Now().Add(48*time.Hour))

	f.scores.set(80, 80, 80, 86, true)
	_, err := f.gate.Evaluate(ctx, "p1")
	require.NoError(t, err)

	f.scores.set(100, 100, 100, 100, true)
	res, err := f.gate.Evaluate(ctx, "p1")
	require.NoError(t, err)
	assert.Equal(t, domain.DecisionAutoApprove, res.Decision)

	pending, err := f.approvals.ListPending(ctx, "t1")
	require.NoError(t, err)
	assert.Empty(t, pending)

	entry, err := f.queue.LatestByPost(ctx, "p1")
	require.NoError(t, err)
	assert.Equal(t, domain.ResolutionRejected, entry.Resolution)
	assert.Equal(t, domain.SupersededReason, entry.ResolutionReason)

	want := []domain.AuditEventType{
		domain.AuditValidated,
		domain.AuditRejected,
		domain.AuditValidated,
		domain.AuditApproved,
	}
	assert.Equal(t, want, f.eventTypes(t, "p1"))
	// the closed review reaches subscribers too
	assert.Equal(t, want, f.publishedTypes())

	f.pubMu.Lock()
	superseded := f.published[1]
	f.pubMu.Unlock()
	assert.Equal(t, domain.ActorSystem, superseded.Actor)
	assert.Equal(t, domain.SupersededReason, superseded.Details["reason"])

	// the superseded review can no longer be acted on
	err = f.approvals.Approve(ctx, "t1", "p1", "rev1", "")
	assert.ErrorIs(t, err, common.ErrAlreadyResolved)
}

func TestEvaluate_NotFound(t *testing.T) {
	f := newFixture(t)
	_, err := f.gate.Evaluate(context.Background(), "missing")
	assert.ErrorIs(t, err, common.ErrNotFound)
}

func TestEvaluate_IgnoresCallerCancellation(t *testing.T) {
	f := newFixture(t)
	f.seedPost(t, "p1", "t1", time.Now().Add(time.Hour))

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	res, err := f.gate.Evaluate(ctx, "p1")
	require.NoError(t, err)
	assert.Equal(t, domain.DecisionAutoApprove, res.Decision)
}

func TestReport(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.seedPost(t, "p1", "t1", time.Now().Add(time.Hour))

	_, err := f.gate.Report(ctx, "t1", "p1")
	assert.ErrorIs(t, err, common.ErrNotFound)

	f.scores.set(90, 88, 80, 85, true)
	_, err = f.gate.Evaluate(ctx, "p1")
	require.NoError(t, err)

	report, err := f.gate.Report(ctx, "t1", "p1")
	require.NoError(t, err)
	assert.Equal(t, domain.ScoreCard{Image: 90, Content: 88, SEO: 80, Brand: 85, SafetyPass: true}, report.Scores)
	assert.Equal(t, domain.DecisionRequireReview, report.Decision)

	_, err = f.gate.Report(ctx, "t2", "p1")
	assert.ErrorIs(t, err, common.ErrNotFound)
}
