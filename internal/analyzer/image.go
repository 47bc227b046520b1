package analyzer

import (
	"context"
	"fmt"

	"github.com/damoang/angple-qualitygate/internal/domain"
)

const (
	recommendedShortSide = 1080
	minimumShortSide     = 600
	maxAssetBytes        = 8 << 20
	minAspectRatio       = 0.8
	maxAspectRatio       = 1.91
)

var supportedImageTypes = map[string]bool{
	"image/jpeg": true,
	"image/png":  true,
	"image/webp": true,
}

// ImageAnalyzer scores resolution, format, size and aspect ratio of the asset
type ImageAnalyzer struct{}

// NewImageAnalyzer creates an ImageAnalyzer
func NewImageAnalyzer() *ImageAnalyzer { return &ImageAnalyzer{} }

// Name implements Analyzer
func (a *ImageAnalyzer) Name() string { return domain.AnalyzerImage }

// Evaluate implements Analyzer
func (a *ImageAnalyzer) Evaluate(_ context.Context, in Input) (domain.AnalyzerScore, error) {
	asset := in.Asset
	score := 100
	var issues []domain.Issue
	add := func(code, msg string, penalty int) {
		score -= penalty
		issues = append(issues, domain.Issue{Analyzer: domain.AnalyzerImage, Code: code, Message: msg})
	}

	if asset.Width <= 0 || asset.Height <= 0 {
		return domain.AnalyzerScore{
			Name:  domain.AnalyzerImage,
			Score: 0,
			Pass:  true,
			Issues: []domain.Issue{{
				Analyzer: domain.AnalyzerImage,
				Code:     "missing_dimensions",
				Message:  "asset has no width/height metadata",
			}},
		}, nil
	}

	if !supportedImageTypes[asset.MimeType] {
		add("unsupported_format", fmt.Sprintf("format %q is not supported", asset.MimeType), 40)
	}

	short := asset.Width
	if asset.Height < short {
		short = asset.Height
	}
	switch {
	case short < minimumShortSide:
		add("low_resolution", fmt.Sprintf("short side %dpx is below %dpx", short, minimumShortSide), 50)
	case short < recommendedShortSide:
		add("low_resolution", fmt.Sprintf("short side %dpx is below recommended %dpx", short, recommendedShortSide), 20)
	}

	ratio := float64(asset.Width) / float64(asset.Height)
	if ratio < minAspectRatio || ratio > maxAspectRatio {
		add("unusual_aspect_ratio", fmt.Sprintf("aspect ratio %.2f outside %.2f..%.2f", ratio, minAspectRatio, maxAspectRatio), 15)
	}

	if asset.SizeBytes > maxAssetBytes {
		add("oversized_file", fmt.Sprintf("file is %d bytes, limit %d", asset.SizeBytes, maxAssetBytes), 10)
	}

	return domain.AnalyzerScore{Name: domain.AnalyzerImage, Score: clamp(score), Pass: true, Issues: issues}, nil
}
