package service

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/damoang/angple-qualitygate/internal/common"
	"github.com/damoang/angple-qualitygate/internal/domain"
)

func queueForReview(t *testing.T, f *fixture, postID, tenant string, scheduledFor time.Time) {
	t.Helper()
	f.seedPost(t, postID, tenant, scheduledFor)
	f.scores.set(80, 80, 80, 86, true)
	res, err := f.gate.Evaluate(context.Background(), postID)
	require.NoError(t, err)
	require.Equal(t, domain.DecisionRequireReview, res.Decision)
}

func TestApprove(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	queueForReview(t, f, "p1", "t1", time.Now().Add(time.Hour))

	require.NoError(t, f.approvals.Approve(ctx, "t1", "p1", "rev1", "looks good"))

	post, err := f.posts.FindByID(ctx, "p1")
	require.NoError(t, err)
	assert.Equal(t, domain.ApprovalApproved, post.ApprovalStatus)

	entry, err := f.queue.LatestByPost(ctx, "p1")
	require.NoError(t, err)
	assert.Equal(t, domain.ResolutionApproved, entry.Resolution)
	assert.Equal(t, "rev1", entry.ResolvedBy)
	assert.Equal(t, "looks good", entry.ResolutionNotes)

	events, err := f.audit.ListByPost(ctx, "p1")
	require.NoError(t, err)
	require.Len(t, events, 2)
	assert.Equal(t, domain.AuditApproved, events[1].EventType)
	assert.Equal(t, "rev1", events[1].Actor)

	err = f.approvals.Approve(ctx, "t1", "p1", "rev2", "")
	assert.ErrorIs(t, err, common.ErrAlreadyResolved)

	pending, err := f.approvals.ListPending(ctx, "t1")
	require.NoError(t, err)
	assert.Empty(t, pending)
}

func TestReject(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	queueForReview(t, f, "p1", "t1", time.Now().Add(time.Hour))

	err := f.approvals.Reject(ctx, "t1", "p1", "rev1", "   ", "notes only")
	assert.ErrorIs(t, err, common.ErrValidation)

	require.NoError(t, f.approvals.Reject(ctx, "t1", "p1", "rev1", "off-brand imagery", "use the autumn set"))

	post, err := f.posts.FindByID(ctx, "p1")
	require.NoError(t, err)
	assert.Equal(t, domain.ApprovalRejected, post.ApprovalStatus)
	assert.Equal(t, "off-brand imagery", post.RejectionReason)

	events, err := f.audit.ListByPost(ctx, "p1")
	require.NoError(t, err)
	last := events[len(events)-1]
	assert.Equal(t, domain.AuditRejected, last.EventType)
	assert.Equal(t, "off-brand imagery", last.Details["reason"])
	assert.Equal(t, "use the autumn set", last.Details["notes"])
}

func TestApprove_NotFound(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	assert.ErrorIs(t, f.approvals.Approve(ctx, "t1", "missing", "rev1", ""), common.ErrNotFound)

	// evaluated straight to auto-approve: nothing queued
	f.seedPost(t, "p1", "t1", time.Now().Add(time.Hour))
	_, err := f.gate.Evaluate(ctx, "p1")
	require.NoError(t, err)
	assert.ErrorIs(t, f.approvals.Approve(ctx, "t1", "p1", "rev1", ""), common.ErrNotFound)

	// other tenant cannot see the post
	queueForReview(t, f, "p2", "t1", time.Now().Add(time.Hour))
	assert.ErrorIs(t, f.approvals.Reject(ctx, "t2", "p2", "rev1", "nope", ""), common.ErrNotFound)
}

func TestResolve_ConcurrentActionsAreMutuallyExclusive(t *testing.T) {
	for round := 0; round < 5; round++ {
		f := newFixture(t)
		ctx := context.Background()
		queueForReview(t, f, "p1", "t1", time.Now().Add(time.Hour))

		var wg sync.WaitGroup
		errs := make([]error, 3)
		start := make(chan struct{})
		actions := []func() error{
			func() error { return f.approvals.Approve(ctx, "t1", "p1", "rev1", "") },
			func() error { return f.approvals.Reject(ctx, "t1", "p1", "rev2", "not today", "") },
			func() error { return f.approvals.Expire(ctx, "p1") },
		}
		for i, act := range actions {
			wg.Add(1)
			go func() {
				defer wg.Done()
				<-start
				errs[i] = act()
			}()
		}
		close(start)
		wg.Wait()

		succeeded := 0
		for _, err := range errs {
			if err == nil {
				succeeded++
				continue
			}
			assert.True(t, errors.Is(err, common.ErrAlreadyResolved), "unexpected error: %v", err)
		}
		assert.Equal(t, 1, succeeded)

		// exactly one terminal event after validated
		types := f.eventTypes(t, "p1")
		assert.Len(t, types, 2)
	}
}

func TestApprove_AfterWindowClosedExpiresInstead(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	// the window is capped at a publish time that already passed
	queueForReview(t, f, "p1", "t1", time.Now().Add(-time.Minute))

	err := f.approvals.Approve(ctx, "t1", "p1", "rev1", "late but fine")
	assert.ErrorIs(t, err, common.ErrAlreadyResolved)

	entry, err := f.queue.LatestByPost(ctx, "p1")
	require.NoError(t, err)
	assert.Equal(t, domain.ResolutionExpired, entry.Resolution)
	assert.Equal(t, domain.ActorSystem, entry.ResolvedBy)

	post, err := f.posts.FindByID(ctx, "p1")
	require.NoError(t, err)
	assert.Equal(t, domain.ApprovalRejected, post.ApprovalStatus)
	assert.Equal(t, ExpiredReason, post.RejectionReason)

	answer, err := f.scheduler.CanPublish(ctx, "t1", "p1", time.Now())
	require.NoError(t, err)
	assert.False(t, answer.Allowed)

	assert.Equal(t, []domain.AuditEventType{domain.AuditValidated, domain.AuditExpired}, f.eventTypes(t, "p1"))
	assert.Contains(t, f.publishedTypes(), domain.AuditExpired)
	assert.NotContains(t, f.publishedTypes(), domain.AuditApproved)

	// the sweeper has nothing left to do
	n, err := NewExpirySweeper(f.queue, f.approvals, time.Hour).Sweep(ctx)
	require.NoError(t, err)
	assert.Equal(t, 0, n)
}

func TestReject_AfterReviewWindowElapsed(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	queueForReview(t, f, "p1", "t1", time.Now().Add(72*time.Hour))

	// review window is 24h
	f.approvals.SetClock(func() time.Time { return time.Now().UTC().Add(25 * time.Hour) })

	err := f.approvals.Reject(ctx, "t1", "p1", "rev1", "off brand", "")
	assert.ErrorIs(t, err, common.ErrAlreadyResolved)

	events, err := f.audit.ListByPost(ctx, "p1")
	require.NoError(t, err)
	last := events[len(events)-1]
	assert.Equal(t, domain.AuditExpired, last.EventType)
	assert.Equal(t, ExpiredReason, last.Details["reason"])
}

func TestResolve_StaleVersionIsAlreadyResolved(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	queueForReview(t, f, "p1", "t1", time.Now().Add(time.Hour))

	// another resolver commits between our read and our write
	bumped := false
	err := f.db.Callback().Update().Before("gorm:update").Register("test:concurrent_resolver", func(tx *gorm.DB) {
		if bumped || tx.Statement.Table != "approval_queue_entries" {
			return
		}
		bumped = true
		_, err := tx.Statement.ConnPool.ExecContext(tx.Statement.Context,
			"UPDATE approval_queue_entries SET version = version + 1 WHERE post_id = ?", "p1")
		if err != nil {
			_ = tx.AddError(err)
		}
	})
	require.NoError(t, err)

	err = f.approvals.Approve(ctx, "t1", "p1", "rev1", "")
	assert.ErrorIs(t, err, common.ErrAlreadyResolved)
	assert.NotErrorIs(t, err, common.ErrPersistence)
	assert.True(t, bumped)

	post, err := f.posts.FindByID(ctx, "p1")
	require.NoError(t, err)
	assert.Equal(t, domain.ApprovalPending, post.ApprovalStatus)
	assert.Equal(t, []domain.AuditEventType{domain.AuditValidated}, f.eventTypes(t, "p1"))
	assert.NotContains(t, f.publishedTypes(), domain.AuditApproved)
}

func TestExpire(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	queueForReview(t, f, "p1", "t1", time.Now().Add(-time.Minute))

	require.NoError(t, f.approvals.Expire(ctx, "p1"))

	entry, err := f.queue.LatestByPost(ctx, "p1")
	require.NoError(t, err)
	assert.Equal(t, domain.ResolutionExpired, entry.Resolution)
	assert.Equal(t, domain.ActorSystem, entry.ResolvedBy)

	post, err := f.posts.FindByID(ctx, "p1")
	require.NoError(t, err)
	assert.Equal(t, domain.ApprovalRejected, post.ApprovalStatus)

	answer, err := f.scheduler.CanPublish(ctx, "t1", "p1", time.Now())
	require.NoError(t, err)
	assert.False(t, answer.Allowed)

	assert.Equal(t, []domain.AuditEventType{domain.AuditValidated, domain.AuditExpired}, f.eventTypes(t, "p1"))
	assert.ErrorIs(t, f.approvals.Expire(ctx, "p1"), common.ErrAlreadyResolved)
}

func TestExpirySweeper_Sweep(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	now := time.Now().UTC()

	// window capped by a publish time that has already passed
	queueForReview(t, f, "p1", "t1", now.Add(-time.Minute))
	// still inside its window
	queueForReview(t, f, "p2", "t1", now.Add(3*time.Hour))
	// resolved by a reviewer before the sweep
	queueForReview(t, f, "p3", "t1", now.Add(2*time.Hour))
	require.NoError(t, f.approvals.Approve(ctx, "t1", "p3", "rev1", ""))

	sweeper := NewExpirySweeper(f.queue, f.approvals, time.Hour)
	n, err := sweeper.Sweep(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	pending, err := f.approvals.ListPending(ctx, "t1")
	require.NoError(t, err)
	require.Len(t, pending, 1)
	assert.Equal(t, "p2", pending[0].PostID)

	// later the second window closes too
	sweeper.now = func() time.Time { return now.Add(4 * time.Hour) }
	n, err = sweeper.Sweep(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	post, err := f.posts.FindByID(ctx, "p2")
	require.NoError(t, err)
	assert.Equal(t, domain.ApprovalRejected, post.ApprovalStatus)
}

func TestExpirySweeper_StartStop(t *testing.T) {
	f := newFixture(t)
	sweeper := NewExpirySweeper(f.queue, f.approvals, 10*time.Millisecond)
	sweeper.Start()
	time.Sleep(30 * time.Millisecond)
	sweeper.Stop()
	sweeper.Stop()
}
