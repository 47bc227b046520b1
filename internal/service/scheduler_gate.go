package service

import (
	"context"
	"fmt"
	"time"

	"github.com/damoang/angple-qualitygate/internal/common"
	"github.com/damoang/angple-qualitygate/internal/domain"
	"github.com/damoang/angple-qualitygate/internal/events"
	"github.com/damoang/angple-qualitygate/internal/repository"
)

// SchedulerGate answers whether the publish scheduler may publish a post.
// It never publishes anything itself and always reads committed state.
type SchedulerGate struct {
	posts   *repository.PostRepository
	results *repository.QualityResultRepository
	audit   *repository.AuditRepository
	bus     *events.Bus
}

// NewSchedulerGate creates a new SchedulerGate
func NewSchedulerGate(posts *repository.PostRepository, results *repository.QualityResultRepository, audit *repository.AuditRepository, bus *events.Bus) *SchedulerGate {
	return &SchedulerGate{posts: posts, results: results, audit: audit, bus: bus}
}

// CanPublish allowed only for an evaluated post with status auto_approved or
// approved whose scheduled time has arrived
func (g *SchedulerGate) CanPublish(ctx context.Context, tenantID, postID string, now time.Time) (domain.GateAnswer, error) {
	post, err := g.posts.FindByTenantAndID(ctx, tenantID, postID)
	if err != nil {
		return domain.GateAnswer{}, err
	}

	if !post.ApprovalStatus.Publishable() {
		return denied(notClearedReason(post)), nil
	}

	ok, err := g.results.ExistsForPost(ctx, postID)
	if err != nil {
		return domain.GateAnswer{}, fmt.Errorf("%w: %v", common.ErrPersistence, err)
	}
	if !ok {
		return denied("post has no quality evaluation"), nil
	}

	if now.Before(post.ScheduledFor) {
		return denied(fmt.Sprintf("scheduled for %s", post.ScheduledFor.UTC().Format(time.RFC3339))), nil
	}
	return domain.GateAnswer{Allowed: true, Reason: "cleared for publication"}, nil
}

// MarkPublished records a successful publication. The post must be cleared.
func (g *SchedulerGate) MarkPublished(ctx context.Context, tenantID, postID, actor, externalID string, now time.Time) error {
	answer, err := g.CanPublish(ctx, tenantID, postID, now)
	if err != nil {
		return err
	}
	if !answer.Allowed {
		return fmt.Errorf("%w: %s", common.ErrNotCleared, answer.Reason)
	}
	return g.record(ctx, tenantID, postID, domain.AuditPublished, actor, domain.AuditDetails{"externalId": externalID})
}

// MarkPublishFailed records a failed publish attempt so retries can be audited
func (g *SchedulerGate) MarkPublishFailed(ctx context.Context, tenantID, postID, actor, reason string) error {
	if _, err := g.posts.FindByTenantAndID(ctx, tenantID, postID); err != nil {
		return err
	}
	return g.record(ctx, tenantID, postID, domain.AuditPublishFailed, actor, domain.AuditDetails{"error": reason})
}

func (g *SchedulerGate) record(ctx context.Context, tenantID, postID string, eventType domain.AuditEventType, actor string, details domain.AuditDetails) error {
	event := &domain.PublicationAuditEvent{
		PostID:    postID,
		TenantID:  tenantID,
		EventType: eventType,
		Actor:     actor,
		Details:   details,
	}
	if err := g.audit.Append(ctx, event); err != nil {
		return fmt.Errorf("%w: %v", common.ErrPersistence, err)
	}
	g.bus.Publish(events.Event{Type: eventType, PostID: postID, TenantID: tenantID, Actor: actor, Details: details, At: event.OccurredAt})
	return nil
}

func notClearedReason(post *domain.ScheduledPost) string {
	switch post.ApprovalStatus {
	case domain.ApprovalPending:
		return "post is waiting for quality review"
	case domain.ApprovalRejected:
		if post.RejectionReason != "" {
			return "post was rejected: " + post.RejectionReason
		}
		return "post was rejected"
	case domain.ApprovalExpired:
		return "review window expired"
	default:
		return fmt.Sprintf("unknown approval status %q", post.ApprovalStatus)
	}
}

func denied(reason string) domain.GateAnswer {
	return domain.GateAnswer{Allowed: false, Reason: reason}
}
