package domain

import "time"

// BrandKit per-tenant brand rules read by the brand, SEO and safety analyzers
type BrandKit struct {
	TenantID       string    `gorm:"column:tenant_id;primaryKey;type:varchar(64)" json:"tenantId"`
	Name           string    `gorm:"column:name;type:varchar(100)" json:"name"`
	RequiredTerms  []string  `gorm:"column:required_terms;type:text;serializer:json" json:"requiredTerms"`
	ForbiddenTerms []string  `gorm:"column:forbidden_terms;type:text;serializer:json" json:"forbiddenTerms"`
	BrandHashtags  []string  `gorm:"column:brand_hashtags;type:text;serializer:json" json:"brandHashtags"`
	Keywords       []string  `gorm:"column:keywords;type:text;serializer:json" json:"keywords"`
	BlockedTerms   []string  `gorm:"column:blocked_terms;type:text;serializer:json" json:"blockedTerms"`
	UpdatedAt      time.Time `gorm:"column:updated_at" json:"updatedAt"`
}

// TableName returns the table name
func (BrandKit) TableName() string {
	return "brand_kits"
}
