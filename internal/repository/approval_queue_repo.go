package repository

import (
	"context"
	"time"

	"gorm.io/gorm"

	"github.com/damoang/angple-qualitygate/internal/domain"
)

// ApprovalQueueRepository handles approval queue data operations
type ApprovalQueueRepository struct {
	db *gorm.DB
}

// NewApprovalQueueRepository creates a new ApprovalQueueRepository
func NewApprovalQueueRepository(db *gorm.DB) *ApprovalQueueRepository {
	return &ApprovalQueueRepository{db: db}
}

// WithTx returns a new repository bound to the given transaction
func (r *ApprovalQueueRepository) WithTx(tx *gorm.DB) *ApprovalQueueRepository {
	return &ApprovalQueueRepository{db: tx}
}

// DB returns the underlying database connection
func (r *ApprovalQueueRepository) DB() *gorm.DB {
	return r.db
}

// Create inserts a new queue entry
func (r *ApprovalQueueRepository) Create(ctx context.Context, entry *domain.ApprovalQueueEntry) error {
	return r.db.WithContext(ctx).Create(entry).Error
}

// LatestByPost returns the newest queue entry of a post, resolved or not
func (r *ApprovalQueueRepository) LatestByPost(ctx context.Context, postID string) (*domain.ApprovalQueueEntry, error) {
	var entry domain.ApprovalQueueEntry
	err := r.db.WithContext(ctx).
		Where("post_id = ?", postID).
		Order("enqueued_at DESC").
		Order("id DESC").
		First(&entry).Error
	if err != nil {
		return nil, notFound(err, "queue entry for post "+postID)
	}
	return &entry, nil
}

// FindPendingByPost returns the active entry of a post
func (r *ApprovalQueueRepository) FindPendingByPost(ctx context.Context, postID string) (*domain.ApprovalQueueEntry, error) {
	var entry domain.ApprovalQueueEntry
	err := r.db.WithContext(ctx).
		Where("post_id = ? AND resolution = ?", postID, domain.ResolutionPending).
		First(&entry).Error
	if err != nil {
		return nil, notFound(err, "pending entry for post "+postID)
	}
	return &entry, nil
}

// ListPending pending entries of a tenant, oldest first
func (r *ApprovalQueueRepository) ListPending(ctx context.Context, tenantID string) ([]domain.ApprovalQueueEntry, error) {
	var entries []domain.ApprovalQueueEntry
	err := r.db.WithContext(ctx).
		Where("tenant_id = ? AND resolution = ?", tenantID, domain.ResolutionPending).
		Order("enqueued_at ASC").
		Order("id ASC").
		Find(&entries).Error
	if err != nil {
		return nil, err
	}
	return entries, nil
}

// ListExpired pending entries whose review window closed at or before now
func (r *ApprovalQueueRepository) ListExpired(ctx context.Context, now time.Time, limit int) ([]domain.ApprovalQueueEntry, error) {
	var entries []domain.ApprovalQueueEntry
	query := r.db.WithContext(ctx).
		Where("resolution = ? AND expires_at <= ?", domain.ResolutionPending, now).
		Order("expires_at ASC")
	if limit > 0 {
		query = query.Limit(limit)
	}
	if err := query.Find(&entries).Error; err != nil {
		return nil, err
	}
	return entries, nil
}

// ResolveWithVersion moves an entry out of pending with optimistic locking.
// Returns ErrVersionConflict if another resolution won the race.
func (r *ApprovalQueueRepository) ResolveWithVersion(ctx context.Context, id uint64, currentVersion uint, resolution domain.Resolution, resolvedBy, reason, notes string, at time.Time) error {
	result := r.db.WithContext(ctx).Model(&domain.ApprovalQueueEntry{}).
		Where("id = ? AND version = ? AND resolution = ?", id, currentVersion, domain.ResolutionPending).
		Updates(map[string]interface{}{
			"resolution":        resolution,
			"resolved_by":       resolvedBy,
			"resolution_reason": reason,
			"resolution_notes":  notes,
			"resolved_at":       at,
			"version":           gorm.Expr("version + 1"),
		})
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return ErrVersionConflict
	}
	return nil
}
