package repository

import (
	"context"
	"time"

	"gorm.io/gorm"

	"github.com/damoang/angple-qualitygate/internal/domain"
)

// AuditRepository append-only store of publication audit events
type AuditRepository struct {
	db  *gorm.DB
	now func() time.Time
}

// NewAuditRepository creates a new AuditRepository
func NewAuditRepository(db *gorm.DB) *AuditRepository {
	return &AuditRepository{db: db, now: time.Now}
}

// WithTx returns a new repository bound to the given transaction
func (r *AuditRepository) WithTx(tx *gorm.DB) *AuditRepository {
	return &AuditRepository{db: tx, now: r.now}
}

// SetClock overrides the time source (tests)
func (r *AuditRepository) SetClock(now func() time.Time) {
	r.now = now
}

// Append records an event. Sequence is one past the post's last event and
// occurred_at never goes backwards for the same post, even if the wall
// clock does. The (post_id, sequence) unique index rejects racing appends.
func (r *AuditRepository) Append(ctx context.Context, event *domain.PublicationAuditEvent) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var last struct {
			Sequence   int64
			OccurredAt time.Time
		}
		err := tx.Model(&domain.PublicationAuditEvent{}).
			Select("sequence, occurred_at").
			Where("post_id = ?", event.PostID).
			Order("sequence DESC").
			Limit(1).
			Scan(&last).Error
		if err != nil {
			return err
		}

		at := r.now().UTC()
		if !last.OccurredAt.IsZero() && !at.After(last.OccurredAt) {
			at = last.OccurredAt.Add(time.Microsecond)
		}
		event.Sequence = last.Sequence + 1
		event.OccurredAt = at
		if event.Details == nil {
			event.Details = domain.AuditDetails{}
		}
		return tx.Create(event).Error
	})
}

// ListByPost returns every event of a post in append order
func (r *AuditRepository) ListByPost(ctx context.Context, postID string) ([]domain.PublicationAuditEvent, error) {
	var events []domain.PublicationAuditEvent
	err := r.db.WithContext(ctx).
		Where("post_id = ?", postID).
		Order("sequence ASC").
		Find(&events).Error
	if err != nil {
		return nil, err
	}
	return events, nil
}
