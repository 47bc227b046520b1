package domain

import "time"

// AuditEventType lifecycle transition recorded for a post
type AuditEventType string

const (
	AuditCreated       AuditEventType = "created"
	AuditValidated     AuditEventType = "validated"
	AuditApproved      AuditEventType = "approved"
	AuditRejected      AuditEventType = "rejected"
	AuditPublished     AuditEventType = "published"
	AuditPublishFailed AuditEventType = "publish_failed"
	AuditExpired       AuditEventType = "expired"
)

// ActorSystem identifies transitions not made by a human
const ActorSystem = "system"

// AuditDetails structured payload of an audit event
type AuditDetails map[string]interface{}

// PublicationAuditEvent append-only lifecycle record.
// (post_id, sequence) is unique; sequence and occurred_at both increase per post.
type PublicationAuditEvent struct {
	ID         uint64         `gorm:"column:id;primaryKey;autoIncrement" json:"id"`
	PostID     string         `gorm:"column:post_id;type:varchar(36);not null;uniqueIndex:idx_pae_post_seq,priority:1" json:"postId"`
	TenantID   string         `gorm:"column:tenant_id;type:varchar(64);not null;index" json:"tenantId"`
	Sequence   int64          `gorm:"column:sequence;not null;uniqueIndex:idx_pae_post_seq,priority:2" json:"sequence"`
	EventType  AuditEventType `gorm:"column:event_type;type:varchar(20);not null" json:"eventType"`
	Actor      string         `gorm:"column:actor;type:varchar(64);not null" json:"actor"`
	OccurredAt time.Time      `gorm:"column:occurred_at;not null;precision:6" json:"occurredAt"`
	Details    AuditDetails   `gorm:"column:details;type:text;serializer:json" json:"details"`
}

// TableName returns the table name
func (PublicationAuditEvent) TableName() string {
	return "publication_audit_events"
}
