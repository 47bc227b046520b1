package service

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/damoang/angple-qualitygate/internal/common"
	"github.com/damoang/angple-qualitygate/internal/domain"
	"github.com/damoang/angple-qualitygate/internal/repository"
	"github.com/damoang/angple-qualitygate/pkg/cache"
	"github.com/damoang/angple-qualitygate/pkg/logger"
)

// BrandKitLoader is what the evaluator needs to read a tenant's brand rules
type BrandKitLoader interface {
	Get(ctx context.Context, tenantID string) (*domain.BrandKit, error)
}

// BrandKitService per-tenant brand rules, read through the cache when one is configured
type BrandKitService struct {
	repo  *repository.BrandKitRepository
	cache cache.Service
}

// NewBrandKitService creates a new BrandKitService. cacheSvc may be nil.
func NewBrandKitService(repo *repository.BrandKitRepository, cacheSvc cache.Service) *BrandKitService {
	if cacheSvc == nil {
		cacheSvc = cache.NewService(nil)
	}
	return &BrandKitService{repo: repo, cache: cacheSvc}
}

// Get returns the tenant's kit; an unconfigured tenant gets an empty kit
func (s *BrandKitService) Get(ctx context.Context, tenantID string) (*domain.BrandKit, error) {
	key := cache.BrandKitKey(tenantID)

	var kit domain.BrandKit
	err := s.cache.Get(ctx, key, &kit)
	if err == nil {
		return &kit, nil
	}
	if !errors.Is(err, cache.ErrMiss) {
		logger.GetLogger().Warn().Err(err).Str("tenant_id", tenantID).Msg("brand kit cache read failed")
	}

	loaded, err := s.repo.Get(ctx, tenantID)
	if err != nil {
		return nil, err
	}
	if err := s.cache.Set(ctx, key, loaded, cache.TTLBrandKit); err != nil {
		logger.GetLogger().Warn().Err(err).Str("tenant_id", tenantID).Msg("brand kit cache write failed")
	}
	return loaded, nil
}

// Put replaces the tenant's kit
func (s *BrandKitService) Put(ctx context.Context, tenantID string, req *domain.BrandKitRequest) (*domain.BrandKit, error) {
	if len(req.Name) > 100 {
		return nil, fmt.Errorf("%w: name longer than 100 characters", common.ErrValidation)
	}
	kit := &domain.BrandKit{
		TenantID:       tenantID,
		Name:           strings.TrimSpace(req.Name),
		RequiredTerms:  cleanTerms(req.RequiredTerms),
		ForbiddenTerms: cleanTerms(req.ForbiddenTerms),
		BrandHashtags:  cleanTerms(req.BrandHashtags),
		Keywords:       cleanTerms(req.Keywords),
		BlockedTerms:   cleanTerms(req.BlockedTerms),
	}
	if err := s.repo.Upsert(ctx, kit); err != nil {
		return nil, fmt.Errorf("%w: save brand kit: %v", common.ErrPersistence, err)
	}
	// next evaluation must see the new rules
	if err := s.cache.Delete(ctx, cache.BrandKitKey(tenantID)); err != nil {
		logger.GetLogger().Warn().Err(err).Str("tenant_id", tenantID).Msg("brand kit cache invalidation failed")
	}
	return kit, nil
}

// cleanTerms trims, drops blanks and never returns nil
func cleanTerms(in []string) []string {
	out := make([]string, 0, len(in))
	for _, t := range in {
		if t = strings.TrimSpace(t); t != "" {
			out = append(out, t)
		}
	}
	return out
}
