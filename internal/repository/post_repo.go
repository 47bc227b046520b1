package repository

import (
	"context"
	"time"

	"gorm.io/gorm"

	"github.com/damoang/angple-qualitygate/internal/domain"
)

// PostRepository handles scheduled post data operations
type PostRepository struct {
	db *gorm.DB
}

// NewPostRepository creates a new PostRepository
func NewPostRepository(db *gorm.DB) *PostRepository {
	return &PostRepository{db: db}
}

// WithTx returns a new repository bound to the given transaction
func (r *PostRepository) WithTx(tx *gorm.DB) *PostRepository {
	return &PostRepository{db: tx}
}

// DB returns the underlying database connection
func (r *PostRepository) DB() *gorm.DB {
	return r.db
}

// Create inserts a new post
func (r *PostRepository) Create(ctx context.Context, post *domain.ScheduledPost) error {
	return r.db.WithContext(ctx).Create(post).Error
}

// FindByID retrieves a post by ID
func (r *PostRepository) FindByID(ctx context.Context, id string) (*domain.ScheduledPost, error) {
	var post domain.ScheduledPost
	if err := r.db.WithContext(ctx).Where("id = ?", id).First(&post).Error; err != nil {
		return nil, notFound(err, "post "+id)
	}
	return &post, nil
}

// FindByTenantAndID retrieves a post only if it belongs to the tenant
func (r *PostRepository) FindByTenantAndID(ctx context.Context, tenantID, id string) (*domain.ScheduledPost, error) {
	var post domain.ScheduledPost
	if err := r.db.WithContext(ctx).Where("id = ? AND tenant_id = ?", id, tenantID).First(&post).Error; err != nil {
		return nil, notFound(err, "post "+id)
	}
	return &post, nil
}

// UpdateApproval writes the approval status and, when given, the last decision.
// An empty reason clears any previous rejection reason.
func (r *PostRepository) UpdateApproval(ctx context.Context, id string, status domain.ApprovalStatus, reason string, score *float64, decision *domain.Decision) error {
	updates := map[string]interface{}{
		"approval_status":  status,
		"rejection_reason": reason,
		"updated_at":       time.Now(),
	}
	if score != nil {
		updates["last_quality_score"] = *score
	}
	if decision != nil {
		updates["last_quality_decision"] = *decision
	}

	result := r.db.WithContext(ctx).Model(&domain.ScheduledPost{}).Where("id = ?", id).Updates(updates)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return notFound(gorm.ErrRecordNotFound, "post "+id)
	}
	return nil
}

// Delete removes a post together with its results, queue entries and audit events
func (r *PostRepository) Delete(ctx context.Context, id string) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		for _, child := range []interface{}{
			&domain.QualityGateResult{},
			&domain.ApprovalQueueEntry{},
			&domain.PublicationAuditEvent{},
		} {
			if err := tx.Where("post_id = ?", id).Delete(child).Error; err != nil {
				return err
			}
		}
		result := tx.Where("id = ?", id).Delete(&domain.ScheduledPost{})
		if result.Error != nil {
			return result.Error
		}
		if result.RowsAffected == 0 {
			return notFound(gorm.ErrRecordNotFound, "post "+id)
		}
		return nil
	})
}
