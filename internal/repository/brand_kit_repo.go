package repository

import (
	"context"
	"errors"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/damoang/angple-qualitygate/internal/domain"
)

// BrandKitRepository handles per-tenant brand kits
type BrandKitRepository struct {
	db *gorm.DB
}

// NewBrandKitRepository creates a new BrandKitRepository
func NewBrandKitRepository(db *gorm.DB) *BrandKitRepository {
	return &BrandKitRepository{db: db}
}

// Get returns the tenant's kit, or an empty kit when none is configured
func (r *BrandKitRepository) Get(ctx context.Context, tenantID string) (*domain.BrandKit, error) {
	var kit domain.BrandKit
	err := r.db.WithContext(ctx).Where("tenant_id = ?", tenantID).First(&kit).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return &domain.BrandKit{TenantID: tenantID}, nil
	}
	if err != nil {
		return nil, err
	}
	return &kit, nil
}

// Upsert creates or replaces the tenant's kit
func (r *BrandKitRepository) Upsert(ctx context.Context, kit *domain.BrandKit) error {
	kit.UpdatedAt = time.Now()
	return r.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "tenant_id"}},
		UpdateAll: true,
	}).Create(kit).Error
}
