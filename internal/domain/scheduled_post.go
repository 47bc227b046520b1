package domain

import "time"

// ApprovalStatus lifecycle state of a scheduled post
type ApprovalStatus string

const (
	ApprovalPending      ApprovalStatus = "pending"
	ApprovalAutoApproved ApprovalStatus = "auto_approved"
	ApprovalApproved     ApprovalStatus = "approved"
	ApprovalRejected     ApprovalStatus = "rejected"
	ApprovalExpired      ApprovalStatus = "expired"
)

// Publishable reports whether the status clears a post for publication
func (s ApprovalStatus) Publishable() bool {
	return s == ApprovalAutoApproved || s == ApprovalApproved
}

// Asset media reference attached to a post. Storage and upload live elsewhere;
// only the metadata the image analyzer reads is kept here.
type Asset struct {
	ID        string `json:"id"`
	URL       string `json:"url"`
	MimeType  string `json:"mimeType"`
	Width     int    `json:"width"`
	Height    int    `json:"height"`
	SizeBytes int64  `json:"sizeBytes"`
}

// ScheduledPost a unit of content awaiting publication
type ScheduledPost struct {
	ID           string    `gorm:"column:id;primaryKey;type:varchar(36)" json:"id"`
	TenantID     string    `gorm:"column:tenant_id;type:varchar(64);not null;index" json:"tenantId"`
	AssetID      string    `gorm:"column:asset_id;type:varchar(64)" json:"assetId"`
	Asset        Asset     `gorm:"column:asset;type:text;serializer:json" json:"asset"`
	TemplateID   string    `gorm:"column:template_id;type:varchar(64)" json:"templateId"`
	Caption      string    `gorm:"column:caption;type:text" json:"caption"`
	Hashtags     []string  `gorm:"column:hashtags;type:text;serializer:json" json:"hashtags"`
	ScheduledFor time.Time `gorm:"column:scheduled_for;not null;index" json:"scheduledFor"`

	ApprovalStatus      ApprovalStatus `gorm:"column:approval_status;type:varchar(20);not null;default:pending;index" json:"approvalStatus"`
	RejectionReason     string         `gorm:"column:rejection_reason;type:text" json:"rejectionReason,omitempty"`
	LastQualityScore    *float64       `gorm:"column:last_quality_score" json:"lastQualityScore"`
	LastQualityDecision *Decision      `gorm:"column:last_quality_decision;type:varchar(20)" json:"lastQualityDecision"`

	CreatedBy string    `gorm:"column:created_by;type:varchar(64)" json:"createdBy"`
	CreatedAt time.Time `gorm:"column:created_at" json:"createdAt"`
	UpdatedAt time.Time `gorm:"column:updated_at" json:"updatedAt"`

	// Cascade targets; never serialized.
	Results      []QualityGateResult     `gorm:"foreignKey:PostID;constraint:OnDelete:CASCADE" json:"-"`
	QueueEntries []ApprovalQueueEntry    `gorm:"foreignKey:PostID;constraint:OnDelete:CASCADE" json:"-"`
	AuditEvents  []PublicationAuditEvent `gorm:"foreignKey:PostID;constraint:OnDelete:CASCADE" json:"-"`
}

// TableName returns the table name
func (ScheduledPost) TableName() string {
	return "scheduled_posts"
}
