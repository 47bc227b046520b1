package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/failsafe-go/failsafe-go"
	"github.com/failsafe-go/failsafe-go/retrypolicy"
	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"
	"gorm.io/gorm"

	"github.com/damoang/angple-qualitygate/internal/analyzer"
	"github.com/damoang/angple-qualitygate/internal/common"
	"github.com/damoang/angple-qualitygate/internal/domain"
	"github.com/damoang/angple-qualitygate/internal/events"
	"github.com/damoang/angple-qualitygate/internal/metrics"
	"github.com/damoang/angple-qualitygate/internal/repository"
	"github.com/damoang/angple-qualitygate/pkg/logger"
)

// GateOptions runtime knobs of the orchestrator
type GateOptions struct {
	AnalyzerTimeout time.Duration
	ReviewWindow    time.Duration
	PersistRetries  int
}

// QualityGateService runs the analyzers for a post, decides, and commits the
// result, the post status, the audit trail and any queue entry in one transaction.
type QualityGateService struct {
	db        *gorm.DB
	posts     *repository.PostRepository
	results   *repository.QualityResultRepository
	queue     *repository.ApprovalQueueRepository
	audit     *repository.AuditRepository
	brandKits BrandKitLoader
	analyzers analyzer.Set
	policy    *DecisionPolicy
	bus       *events.Bus
	opts      GateOptions
	now       func() time.Time
}

// NewQualityGateService creates a new QualityGateService
func NewQualityGateService(
	db *gorm.DB,
	posts *repository.PostRepository,
	results *repository.QualityResultRepository,
	queue *repository.ApprovalQueueRepository,
	audit *repository.AuditRepository,
	brandKits BrandKitLoader,
	analyzers analyzer.Set,
	policy *DecisionPolicy,
	bus *events.Bus,
	opts GateOptions,
) *QualityGateService {
	if opts.AnalyzerTimeout <= 0 {
		opts.AnalyzerTimeout = 2 * time.Second
	}
	if opts.ReviewWindow <= 0 {
		opts.ReviewWindow = 24 * time.Hour
	}
	if opts.PersistRetries < 0 {
		opts.PersistRetries = 0
	}
	return &QualityGateService{
		db:        db,
		posts:     posts,
		results:   results,
		queue:     queue,
		audit:     audit,
		brandKits: brandKits,
		analyzers: analyzers,
		policy:    policy,
		bus:       bus,
		opts:      opts,
		now:       func() time.Time { return time.Now().UTC() },
	}
}

// SetClock overrides the time source (tests)
func (s *QualityGateService) SetClock(now func() time.Time) {
	s.now = now
}

// Evaluate scores a post and applies the decision. The evaluation is detached
// from the caller's cancellation so that a dropped request cannot leave a
// post half-evaluated. A persistence failure re-runs the whole evaluation,
// analyzers included, under a fresh attempt id.
func (s *QualityGateService) Evaluate(ctx context.Context, postID string) (*domain.QualityGateResult, error) {
	ctx = context.WithoutCancel(ctx)
	start := time.Now()

	post, err := s.posts.FindByID(ctx, postID)
	if err != nil {
		return nil, err
	}
	kit, err := s.brandKits.Get(ctx, post.TenantID)
	if err != nil {
		return nil, fmt.Errorf("%w: load brand kit: %v", common.ErrPersistence, err)
	}
	log := logger.WithPost(post.TenantID, post.ID)

	policy := retrypolicy.NewBuilder[*domain.QualityGateResult]().
		HandleIf(func(_ *domain.QualityGateResult, err error) bool {
			return errors.Is(err, common.ErrPersistence)
		}).
		WithBackoff(50*time.Millisecond, time.Second).
		WithMaxRetries(s.opts.PersistRetries).
		Build()

	attempt := 0
	var lastErr error
	var published []events.Event
	result, err := failsafe.With[*domain.QualityGateResult](policy).WithContext(ctx).Get(func() (*domain.QualityGateResult, error) {
		attempt++
		if attempt > 1 {
			metrics.PersistRetries.Inc()
			log.Warn().Int("attempt", attempt).Err(lastErr).Msg("retrying quality evaluation")
		}

		in := analyzer.Input{Post: *post, Asset: post.Asset, BrandKit: *kit}
		scores := s.runAnalyzers(ctx, in)
		res, verdict := s.buildResult(post, scores)

		evts, commitErr := s.commit(ctx, post, res, verdict)
		if commitErr != nil {
			if !errors.Is(commitErr, common.ErrNotFound) {
				commitErr = fmt.Errorf("%w: %v", common.ErrPersistence, commitErr)
			}
			lastErr = commitErr
			return nil, commitErr
		}
		published = evts
		return res, nil
	})
	if err != nil {
		if lastErr != nil {
			err = lastErr
		}
		log.Error().Err(err).Int("attempts", attempt).Msg("quality evaluation failed")
		return nil, err
	}

	for _, e := range published {
		s.bus.Publish(e)
	}
	metrics.Evaluations.WithLabelValues(string(result.Decision)).Inc()
	metrics.EvaluationDuration.Observe(time.Since(start).Seconds())
	log.Info().
		Str("decision", string(result.Decision)).
		Float64("overall", result.OverallScore).
		Str("attempt_id", result.AttemptID).
		Msg("quality evaluation completed")

	return result, nil
}

// Reevaluate runs Evaluate for a post owned by the tenant
func (s *QualityGateService) Reevaluate(ctx context.Context, tenantID, postID string) (*domain.QualityGateResult, error) {
	if _, err := s.posts.FindByTenantAndID(ctx, tenantID, postID); err != nil {
		return nil, err
	}
	return s.Evaluate(ctx, postID)
}

// Report latest evaluation of a post in the tenant
func (s *QualityGateService) Report(ctx context.Context, tenantID, postID string) (*domain.QualityReport, error) {
	if _, err := s.posts.FindByTenantAndID(ctx, tenantID, postID); err != nil {
		return nil, err
	}
	res, err := s.results.LatestByPost(ctx, postID)
	if err != nil {
		return nil, err
	}
	report := res.ToReport()
	return &report, nil
}

func (s *QualityGateService) runAnalyzers(ctx context.Context, in analyzer.Input) []domain.AnalyzerScore {
	all := s.analyzers.All()
	scores := make([]domain.AnalyzerScore, len(all))

	var g errgroup.Group
	for i, a := range all {
		g.Go(func() error {
			scores[i] = analyzer.Run(ctx, a, s.opts.AnalyzerTimeout, in)
			return nil
		})
	}
	_ = g.Wait()
	return scores
}

func (s *QualityGateService) buildResult(post *domain.ScheduledPost, scores []domain.AnalyzerScore) (*domain.QualityGateResult, domain.Verdict) {
	card := domain.ScoreCard{
		Image:      scores[0].Score,
		Content:    scores[1].Score,
		SEO:        scores[2].Score,
		Brand:      scores[3].Score,
		SafetyPass: scores[4].Pass,
	}
	verdict := s.policy.Evaluate(card)

	issues := []domain.Issue{}
	for _, sc := range scores {
		issues = append(issues, sc.Issues...)
	}

	return &domain.QualityGateResult{
		PostID:       post.ID,
		TenantID:     post.TenantID,
		AttemptID:    uuid.NewString(),
		ImageScore:   card.Image,
		ContentScore: card.Content,
		SEOScore:     card.SEO,
		BrandScore:   card.Brand,
		SafetyPass:   card.SafetyPass,
		OverallScore: verdict.OverallScore,
		Decision:     verdict.Decision,
		Reasons:      verdict.Reasons,
		Issues:       issues,
		EvaluatedAt:  s.now(),
	}, verdict
}

// commit writes everything an evaluation changes. Every query goes through
// the transaction handle. Returned events are published only after commit.
func (s *QualityGateService) commit(ctx context.Context, post *domain.ScheduledPost, res *domain.QualityGateResult, verdict domain.Verdict) ([]events.Event, error) {
	var out []events.Event
	now := s.now()

	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		out = out[:0]
		results := s.results.WithTx(tx)
		queue := s.queue.WithTx(tx)
		posts := s.posts.WithTx(tx)
		audit := s.audit.WithTx(tx)

		if err := results.Create(ctx, res); err != nil {
			return err
		}

		// a re-evaluation replaces whatever review was still open
		pending, err := queue.FindPendingByPost(ctx, post.ID)
		switch {
		case err == nil:
			if err := queue.ResolveWithVersion(ctx, pending.ID, pending.Version, domain.ResolutionRejected,
				domain.ActorSystem, domain.SupersededReason, "", now); err != nil {
				return err
			}
			if err := audit.Append(ctx, &domain.PublicationAuditEvent{
				PostID:    post.ID,
				TenantID:  post.TenantID,
				EventType: domain.AuditRejected,
				Actor:     domain.ActorSystem,
				Details:   domain.AuditDetails{"reason": domain.SupersededReason, "queueEntryId": pending.ID},
			}); err != nil {
				return err
			}
			out = append(out, events.Event{
				Type:     domain.AuditRejected,
				PostID:   post.ID,
				TenantID: post.TenantID,
				Actor:    domain.ActorSystem,
				Details:  domain.AuditDetails{"reason": domain.SupersededReason, "queueEntryId": pending.ID},
				At:       now,
			})
		case !errors.Is(err, common.ErrNotFound):
			return err
		}

		status := domain.ApprovalPending
		reason := ""
		switch verdict.Decision {
		case domain.DecisionAutoApprove:
			status = domain.ApprovalAutoApproved
		case domain.DecisionReject:
			status = domain.ApprovalRejected
			reason = strings.Join(verdict.Reasons, "; ")
		}
		overall := res.OverallScore
		decision := res.Decision
		if err := posts.UpdateApproval(ctx, post.ID, status, reason, &overall, &decision); err != nil {
			return err
		}

		if err := audit.Append(ctx, &domain.PublicationAuditEvent{
			PostID:    post.ID,
			TenantID:  post.TenantID,
			EventType: domain.AuditValidated,
			Actor:     domain.ActorSystem,
			Details: domain.AuditDetails{
				"attemptId":    res.AttemptID,
				"resultId":     res.ID,
				"overallScore": res.OverallScore,
				"decision":     res.Decision,
				"scores":       res.ScoreCard(),
				"reasons":      res.Reasons,
			},
		}); err != nil {
			return err
		}
		out = append(out, events.Event{Type: domain.AuditValidated, PostID: post.ID, TenantID: post.TenantID, Actor: domain.ActorSystem})

		switch verdict.Decision {
		case domain.DecisionAutoApprove:
			if err := audit.Append(ctx, &domain.PublicationAuditEvent{
				PostID:    post.ID,
				TenantID:  post.TenantID,
				EventType: domain.AuditApproved,
				Actor:     domain.ActorSystem,
				Details:   domain.AuditDetails{"decision": res.Decision, "overallScore": res.OverallScore},
			}); err != nil {
				return err
			}
			out = append(out, events.Event{Type: domain.AuditApproved, PostID: post.ID, TenantID: post.TenantID, Actor: domain.ActorSystem})

		case domain.DecisionReject:
			if err := audit.Append(ctx, &domain.PublicationAuditEvent{
				PostID:    post.ID,
				TenantID:  post.TenantID,
				EventType: domain.AuditRejected,
				Actor:     domain.ActorSystem,
				Details:   domain.AuditDetails{"reason": reason, "reasons": res.Reasons, "overallScore": res.OverallScore},
			}); err != nil {
				return err
			}
			out = append(out, events.Event{Type: domain.AuditRejected, PostID: post.ID, TenantID: post.TenantID, Actor: domain.ActorSystem})

		case domain.DecisionRequireReview:
			expires := now.Add(s.opts.ReviewWindow)
			if post.ScheduledFor.Before(expires) {
				expires = post.ScheduledFor.UTC()
			}
			if err := queue.Create(ctx, &domain.ApprovalQueueEntry{
				PostID:     post.ID,
				TenantID:   post.TenantID,
				ResultID:   res.ID,
				EnqueuedAt: now,
				ExpiresAt:  expires,
				Resolution: domain.ResolutionPending,
			}); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}
