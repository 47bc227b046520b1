package service

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/damoang/angple-qualitygate/internal/common"
	"github.com/damoang/angple-qualitygate/internal/domain"
	"github.com/damoang/angple-qualitygate/internal/events"
	"github.com/damoang/angple-qualitygate/internal/repository"
	"github.com/damoang/angple-qualitygate/pkg/logger"
)

// ScheduleService creates scheduled posts and runs their first evaluation
type ScheduleService struct {
	db    *gorm.DB
	posts *repository.PostRepository
	audit *repository.AuditRepository
	gate  *QualityGateService
	bus   *events.Bus
}

// NewScheduleService creates a new ScheduleService
func NewScheduleService(db *gorm.DB, posts *repository.PostRepository, audit *repository.AuditRepository, gate *QualityGateService, bus *events.Bus) *ScheduleService {
	return &ScheduleService{db: db, posts: posts, audit: audit, gate: gate, bus: bus}
}

// Create stores a post, records its creation and evaluates it. The returned
// post carries the outcome of that first evaluation.
func (s *ScheduleService) Create(ctx context.Context, tenantID, actor string, req *domain.CreateScheduleRequest) (*domain.ScheduledPost, error) {
	if strings.TrimSpace(req.AssetID) == "" {
		return nil, fmt.Errorf("%w: assetId is required", common.ErrValidation)
	}
	if req.ScheduledFor.IsZero() {
		return nil, fmt.Errorf("%w: scheduledFor is required", common.ErrValidation)
	}

	asset := req.Asset
	if asset.ID == "" {
		asset.ID = req.AssetID
	}
	post := &domain.ScheduledPost{
		ID:             uuid.NewString(),
		TenantID:       tenantID,
		AssetID:        req.AssetID,
		Asset:          asset,
		TemplateID:     req.TemplateID,
		Caption:        req.Caption,
		Hashtags:       req.Hashtags,
		ScheduledFor:   req.ScheduledFor.UTC(),
		ApprovalStatus: domain.ApprovalPending,
		CreatedBy:      actor,
	}

	var created *domain.PublicationAuditEvent
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := s.posts.WithTx(tx).Create(ctx, post); err != nil {
			return err
		}
		created = &domain.PublicationAuditEvent{
			PostID:    post.ID,
			TenantID:  tenantID,
			EventType: domain.AuditCreated,
			Actor:     actor,
			Details:   domain.AuditDetails{"scheduledFor": post.ScheduledFor.Format(time.RFC3339), "assetId": post.AssetID},
		}
		return s.audit.WithTx(tx).Append(ctx, created)
	})
	if err != nil {
		return nil, fmt.Errorf("%w: create post: %v", common.ErrPersistence, err)
	}
	s.bus.Publish(events.Event{Type: domain.AuditCreated, PostID: post.ID, TenantID: tenantID, Actor: actor, At: created.OccurredAt})

	if _, err := s.gate.Evaluate(ctx, post.ID); err != nil {
		// the post exists and stays pending; a later evaluate call can finish it
		logger.WithPost(tenantID, post.ID).Error().Err(err).Msg("initial evaluation failed")
		return nil, err
	}
	return s.posts.FindByID(ctx, post.ID)
}

// Get returns a tenant's post
func (s *ScheduleService) Get(ctx context.Context, tenantID, postID string) (*domain.ScheduledPost, error) {
	return s.posts.FindByTenantAndID(ctx, tenantID, postID)
}

// Delete removes a post and everything recorded about it
func (s *ScheduleService) Delete(ctx context.Context, tenantID, postID string) error {
	if _, err := s.posts.FindByTenantAndID(ctx, tenantID, postID); err != nil {
		return err
	}
	return s.posts.Delete(ctx, postID)
}
