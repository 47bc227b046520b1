package domain

import "time"

// Resolution state of an approval queue entry
type Resolution string

const (
	ResolutionPending  Resolution = "pending"
	ResolutionApproved Resolution = "approved"
	ResolutionRejected Resolution = "rejected"
	ResolutionExpired  Resolution = "expired"
)

// SupersededReason is recorded when a re-evaluation replaces a pending entry
const SupersededReason = "superseded_by_reevaluation"

// ApprovalQueueEntry a post waiting for human review.
// Version backs the optimistic lock that makes resolutions mutually exclusive.
type ApprovalQueueEntry struct {
	ID               uint64     `gorm:"column:id;primaryKey;autoIncrement" json:"id"`
	PostID           string     `gorm:"column:post_id;type:varchar(36);not null;index" json:"postId"`
	TenantID         string     `gorm:"column:tenant_id;type:varchar(64);not null;index:idx_aqe_tenant_pending,priority:1" json:"tenantId"`
	ResultID         uint64     `gorm:"column:result_id" json:"resultId"`
	EnqueuedAt       time.Time  `gorm:"column:enqueued_at;not null;index:idx_aqe_tenant_pending,priority:3" json:"enqueuedAt"`
	ExpiresAt        time.Time  `gorm:"column:expires_at;not null;index" json:"expiresAt"`
	Resolution       Resolution `gorm:"column:resolution;type:varchar(20);not null;default:pending;index:idx_aqe_tenant_pending,priority:2" json:"resolution"`
	ResolvedBy       string     `gorm:"column:resolved_by;type:varchar(64)" json:"resolvedBy,omitempty"`
	ResolutionReason string     `gorm:"column:resolution_reason;type:text" json:"resolutionReason,omitempty"`
	ResolutionNotes  string     `gorm:"column:resolution_notes;type:text" json:"resolutionNotes,omitempty"`
	ResolvedAt       *time.Time `gorm:"column:resolved_at" json:"resolvedAt,omitempty"`
	Version          uint       `gorm:"column:version;not null;default:0" json:"-"`
}

// TableName returns the table name
func (ApprovalQueueEntry) TableName() string {
	return "approval_queue_entries"
}

// IsPending reports whether the entry still awaits a resolution
func (e *ApprovalQueueEntry) IsPending() bool {
	return e.Resolution == ResolutionPending
}
