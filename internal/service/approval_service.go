package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"gorm.io/gorm"

	"github.com/damoang/angple-qualitygate/internal/common"
	"github.com/damoang/angple-qualitygate/internal/domain"
	"github.com/damoang/angple-qualitygate/internal/events"
	"github.com/damoang/angple-qualitygate/internal/repository"
	"github.com/damoang/angple-qualitygate/pkg/logger"
)

// ExpiredReason rejection reason recorded on posts whose review window closed
const ExpiredReason = "review window expired before a decision was made"

// ApprovalService human review of queued posts
type ApprovalService struct {
	db    *gorm.DB
	posts *repository.PostRepository
	queue *repository.ApprovalQueueRepository
	audit *repository.AuditRepository
	bus   *events.Bus
	now   func() time.Time
}

// NewApprovalService creates a new ApprovalService
func NewApprovalService(
	db *gorm.DB,
	posts *repository.PostRepository,
	queue *repository.ApprovalQueueRepository,
	audit *repository.AuditRepository,
	bus *events.Bus,
) *ApprovalService {
	return &ApprovalService{
		db:    db,
		posts: posts,
		queue: queue,
		audit: audit,
		bus:   bus,
		now:   func() time.Time { return time.Now().UTC() },
	}
}

// SetClock overrides the time source (tests)
func (s *ApprovalService) SetClock(now func() time.Time) {
	s.now = now
}

// ListPending open review entries of a tenant, oldest first
func (s *ApprovalService) ListPending(ctx context.Context, tenantID string) ([]domain.ApprovalQueueEntry, error) {
	entries, err := s.queue.ListPending(ctx, tenantID)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", common.ErrPersistence, err)
	}
	if entries == nil {
		entries = []domain.ApprovalQueueEntry{}
	}
	return entries, nil
}

// Approve clears a queued post for publication
func (s *ApprovalService) Approve(ctx context.Context, tenantID, postID, reviewerID, notes string) error {
	if _, err := s.posts.FindByTenantAndID(ctx, tenantID, postID); err != nil {
		return err
	}
	return s.resolve(ctx, postID, resolution{
		resolution: domain.ResolutionApproved,
		status:     domain.ApprovalApproved,
		eventType:  domain.AuditApproved,
		actor:      reviewerID,
		notes:      notes,
		details:    domain.AuditDetails{"notes": notes},
	})
}

// Reject closes a queued post. reason is mandatory and lands in the audit trail.
func (s *ApprovalService) Reject(ctx context.Context, tenantID, postID, reviewerID, reason, notes string) error {
	reason = strings.TrimSpace(reason)
	if reason == "" {
		return fmt.Errorf("%w: reason is required", common.ErrValidation)
	}
	if _, err := s.posts.FindByTenantAndID(ctx, tenantID, postID); err != nil {
		return err
	}
	return s.resolve(ctx, postID, resolution{
		resolution: domain.ResolutionRejected,
		status:     domain.ApprovalRejected,
		eventType:  domain.AuditRejected,
		actor:      reviewerID,
		reason:     reason,
		notes:      notes,
		details:    domain.AuditDetails{"reason": reason, "notes": notes},
	})
}

// Expire closes a queued post whose review window elapsed. Expiry never
// leads to publication: the post is marked rejected.
func (s *ApprovalService) Expire(ctx context.Context, postID string) error {
	return s.resolve(ctx, postID, expiry())
}

func expiry() resolution {
	return resolution{
		resolution: domain.ResolutionExpired,
		status:     domain.ApprovalRejected,
		eventType:  domain.AuditExpired,
		actor:      domain.ActorSystem,
		reason:     ExpiredReason,
		details:    domain.AuditDetails{"reason": ExpiredReason},
	}
}

type resolution struct {
	resolution domain.Resolution
	status     domain.ApprovalStatus
	eventType  domain.AuditEventType
	actor      string
	reason     string
	notes      string
	details    domain.AuditDetails
}

// resolve moves the post's latest queue entry out of pending. Only the first
// of several racing resolutions succeeds; the rest get ErrAlreadyResolved.
// A reviewer acting after the window closed expires the entry instead and
// also gets ErrAlreadyResolved.
func (s *ApprovalService) resolve(ctx context.Context, postID string, r resolution) error {
	now := s.now()
	var tenantID string
	var lapsedAt time.Time

	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		queue := s.queue.WithTx(tx)

		entry, err := queue.LatestByPost(ctx, postID)
		if err != nil {
			return err
		}
		if !entry.IsPending() {
			return fmt.Errorf("%w: entry is %s", common.ErrAlreadyResolved, entry.Resolution)
		}
		tenantID = entry.TenantID
		if r.resolution != domain.ResolutionExpired && !now.Before(entry.ExpiresAt) {
			lapsedAt = entry.ExpiresAt
			r = expiry()
		}

		if err := queue.ResolveWithVersion(ctx, entry.ID, entry.Version, r.resolution, r.actor, r.reason, r.notes, now); err != nil {
			if errors.Is(err, repository.ErrVersionConflict) {
				return fmt.Errorf("%w: %v", common.ErrAlreadyResolved, err)
			}
			return err
		}

		if err := s.posts.WithTx(tx).UpdateApproval(ctx, postID, r.status, r.reason, nil, nil); err != nil {
			return err
		}

		details := r.details
		details["queueEntryId"] = entry.ID
		return s.audit.WithTx(tx).Append(ctx, &domain.PublicationAuditEvent{
			PostID:    postID,
			TenantID:  entry.TenantID,
			EventType: r.eventType,
			Actor:     r.actor,
			Details:   details,
		})
	})
	if err != nil {
		if !errors.Is(err, common.ErrNotFound) && !errors.Is(err, common.ErrAlreadyResolved) {
			err = fmt.Errorf("%w: %v", common.ErrPersistence, err)
		}
		return err
	}

	logger.WithPost(tenantID, postID).Info().
		Str("resolution", string(r.resolution)).
		Str("actor", r.actor).
		Msg("approval entry resolved")
	s.bus.Publish(events.Event{Type: r.eventType, PostID: postID, TenantID: tenantID, Actor: r.actor, Details: r.details, At: now})
	if !lapsedAt.IsZero() {
		return fmt.Errorf("%w: review window closed at %s", common.ErrAlreadyResolved, lapsedAt.UTC().Format(time.RFC3339))
	}
	return nil
}
