package config

import (
	"fmt"

	"github.com/damoang/angple-qualitygate/internal/common"
)

// ErrInvalidPolicy is returned when thresholds or weights are malformed.
// It is a validation error.
var ErrInvalidPolicy = fmt.Errorf("%w: invalid quality policy", common.ErrValidation)

// PolicyConfig is the immutable decision policy handed to the orchestrator.
// Build it once with QualityConfig.Policy and pass it by value.
type PolicyConfig struct {
	AutoApproveThreshold int
	MinPublishThreshold  int
	BrandMinimum         int
	ImageMinimum         int
	ContentMinimum       int
	SEOMinimum           int

	ImageWeight   float64
	ContentWeight float64
	SEOWeight     float64
	BrandWeight   float64
}

// DefaultPolicy returns the stock thresholds (95/80/80/75/75/70)
func DefaultPolicy() PolicyConfig {
	p, _ := Default().Quality.Policy()
	return p
}

// Policy validates the quality section and converts it to a PolicyConfig
func (q QualityConfig) Policy() (PolicyConfig, error) {
	p := PolicyConfig{
		AutoApproveThreshold: q.Thresholds.AutoApprove,
		MinPublishThreshold:  q.Thresholds.MinPublish,
		BrandMinimum:         q.Thresholds.BrandMin,
		ImageMinimum:         q.Thresholds.ImageMin,
		ContentMinimum:       q.Thresholds.ContentMin,
		SEOMinimum:           q.Thresholds.SEOMin,
		ImageWeight:          q.Weights.Image,
		ContentWeight:        q.Weights.Content,
		SEOWeight:            q.Weights.SEO,
		BrandWeight:          q.Weights.Brand,
	}
	return p, p.Validate()
}

// Validate checks threshold ranges and weight signs
func (p PolicyConfig) Validate() error {
	thresholds := map[string]int{
		"auto_approve": p.AutoApproveThreshold,
		"min_publish":  p.MinPublishThreshold,
		"brand_min":    p.BrandMinimum,
		"image_min":    p.ImageMinimum,
		"content_min":  p.ContentMinimum,
		"seo_min":      p.SEOMinimum,
	}
	for name, v := range thresholds {
		if v < 0 || v > 100 {
			return fmt.Errorf("%w: %s=%d outside 0..100", ErrInvalidPolicy, name, v)
		}
	}
	if p.MinPublishThreshold > p.AutoApproveThreshold {
		return fmt.Errorf("%w: min_publish (%d) exceeds auto_approve (%d)",
			ErrInvalidPolicy, p.MinPublishThreshold, p.AutoApproveThreshold)
	}

	weights := map[string]float64{
		"image":   p.ImageWeight,
		"content": p.ContentWeight,
		"seo":     p.SEOWeight,
		"brand":   p.BrandWeight,
	}
	for name, w := range weights {
		if w <= 0 {
			return fmt.Errorf("%w: weight %s must be positive", ErrInvalidPolicy, name)
		}
	}
	return nil
}
