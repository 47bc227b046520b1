package repository

import (
	"context"

	"gorm.io/gorm"

	"github.com/damoang/angple-qualitygate/internal/domain"
)

// QualityResultRepository stores evaluation results. Rows are insert-only.
type QualityResultRepository struct {
	db *gorm.DB
}

// NewQualityResultRepository creates a new QualityResultRepository
func NewQualityResultRepository(db *gorm.DB) *QualityResultRepository {
	return &QualityResultRepository{db: db}
}

// WithTx returns a new repository bound to the given transaction
func (r *QualityResultRepository) WithTx(tx *gorm.DB) *QualityResultRepository {
	return &QualityResultRepository{db: tx}
}

// Create inserts a result
func (r *QualityResultRepository) Create(ctx context.Context, result *domain.QualityGateResult) error {
	return r.db.WithContext(ctx).Create(result).Error
}

// LatestByPost returns the most recent evaluation of a post
func (r *QualityResultRepository) LatestByPost(ctx context.Context, postID string) (*domain.QualityGateResult, error) {
	var result domain.QualityGateResult
	err := r.db.WithContext(ctx).
		Where("post_id = ?", postID).
		Order("evaluated_at DESC").
		Order("id DESC").
		First(&result).Error
	if err != nil {
		return nil, notFound(err, "quality result for post "+postID)
	}
	return &result, nil
}

// ExistsForPost reports whether the post has been evaluated at least once
func (r *QualityResultRepository) ExistsForPost(ctx context.Context, postID string) (bool, error) {
	var count int64
	if err := r.db.WithContext(ctx).Model(&domain.QualityGateResult{}).Where("post_id = ?", postID).Count(&count).Error; err != nil {
		return false, err
	}
	return count > 0, nil
}

// FindByAttempt looks up the result written by an evaluation attempt
func (r *QualityResultRepository) FindByAttempt(ctx context.Context, attemptID string) (*domain.QualityGateResult, error) {
	var result domain.QualityGateResult
	if err := r.db.WithContext(ctx).Where("attempt_id = ?", attemptID).First(&result).Error; err != nil {
		return nil, notFound(err, "attempt "+attemptID)
	}
	return &result, nil
}

// CountByPost number of evaluations of a post
func (r *QualityResultRepository) CountByPost(ctx context.Context, postID string) (int64, error) {
	var count int64
	err := r.db.WithContext(ctx).Model(&domain.QualityGateResult{}).Where("post_id = ?", postID).Count(&count).Error
	return count, err
}
