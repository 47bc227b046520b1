package domain

import (
	"fmt"
	"strings"
	"time"
)

// CreateScheduleRequest body of POST /schedule
type CreateScheduleRequest struct {
	AssetID      string    `json:"assetId" binding:"required"`
	Asset        Asset     `json:"asset"`
	TemplateID   string    `json:"templateId"`
	Caption      string    `json:"caption"`
	Hashtags     []string  `json:"hashtags"`
	ScheduledFor time.Time `json:"scheduledFor" binding:"required"`
}

// ApproveRequest body of POST /quality/:postId/approve
type ApproveRequest struct {
	Notes string `json:"notes"`
}

// RejectRequest body of POST /quality/:postId/reject
type RejectRequest struct {
	Reason string `json:"reason"`
	Notes  string `json:"notes"`
}

// Validate reason is mandatory
func (r RejectRequest) Validate() error {
	if strings.TrimSpace(r.Reason) == "" {
		return fmt.Errorf("reason is required")
	}
	return nil
}

// PublishOutcomeRequest body of the publisher callbacks
type PublishOutcomeRequest struct {
	ExternalID string `json:"externalId"`
	Error      string `json:"error"`
}

// BrandKitRequest body of PUT /quality/brand-kit
type BrandKitRequest struct {
	Name           string   `json:"name" validate:"max=100"`
	RequiredTerms  []string `json:"requiredTerms" validate:"max=50,dive,max=64"`
	ForbiddenTerms []string `json:"forbiddenTerms" validate:"max=50,dive,max=64"`
	BrandHashtags  []string `json:"brandHashtags" validate:"max=30,dive,max=64"`
	Keywords       []string `json:"keywords" validate:"max=50,dive,max=64"`
	BlockedTerms   []string `json:"blockedTerms" validate:"max=200,dive,max=64"`
}

// PendingReviewResponse body of GET /quality/pending-review
type PendingReviewResponse struct {
	Posts []ApprovalQueueEntry `json:"posts"`
}

// ReportResponse body of GET /quality/:postId/report
type ReportResponse struct {
	Report QualityReport `json:"report"`
}

// AuditResponse body of GET /quality/:postId/audit
type AuditResponse struct {
	Events []PublicationAuditEvent `json:"events"`
}

// GateAnswer result of the scheduler gate
type GateAnswer struct {
	Allowed bool   `json:"allowed"`
	Reason  string `json:"reason"`
}

// PostResponse body of the /schedule endpoints
type PostResponse struct {
	Post ScheduledPost `json:"post"`
}
