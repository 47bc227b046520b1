package service

import (
	"context"
	"fmt"

	"github.com/damoang/angple-qualitygate/internal/common"
	"github.com/damoang/angple-qualitygate/internal/domain"
	"github.com/damoang/angple-qualitygate/internal/repository"
)

// AuditService read/append access to the publication audit log
type AuditService struct {
	posts *repository.PostRepository
	audit *repository.AuditRepository
}

// NewAuditService creates a new AuditService
func NewAuditService(posts *repository.PostRepository, audit *repository.AuditRepository) *AuditService {
	return &AuditService{posts: posts, audit: audit}
}

// Append records an event. A store failure is always returned to the caller.
func (s *AuditService) Append(ctx context.Context, event *domain.PublicationAuditEvent) error {
	if event.PostID == "" || event.EventType == "" || event.Actor == "" {
		return fmt.Errorf("%w: post, event type and actor are required", common.ErrValidation)
	}
	if err := s.audit.Append(ctx, event); err != nil {
		return fmt.Errorf("%w: append audit event: %v", common.ErrPersistence, err)
	}
	return nil
}

// QueryByPost full ordered history of a post in the tenant
func (s *AuditService) QueryByPost(ctx context.Context, tenantID, postID string) ([]domain.PublicationAuditEvent, error) {
	if _, err := s.posts.FindByTenantAndID(ctx, tenantID, postID); err != nil {
		return nil, err
	}
	events, err := s.audit.ListByPost(ctx, postID)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", common.ErrPersistence, err)
	}
	if events == nil {
		events = []domain.PublicationAuditEvent{}
	}
	return events, nil
}
