package analyzer

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/damoang/angple-qualitygate/internal/domain"
)

func goodInput() Input {
	asset := domain.Asset{ID: "a1", MimeType: "image/jpeg", Width: 1080, Height: 1350, SizeBytes: 2 << 20}
	return Input{
		Post: domain.ScheduledPost{
			ID:       "p1",
			TenantID: "t1",
			Asset:    asset,
			Caption:  "Fresh autumn roast from Acme Coffee, brewed slow for the weekend crowd.",
			Hashtags: []string{"#acmecoffee", "#coffee", "#autumn", "#roast"},
		},
		Asset: asset,
		BrandKit: domain.BrandKit{
			TenantID:       "t1",
			Name:           "Acme Coffee",
			RequiredTerms:  []string{"acme"},
			ForbiddenTerms: []string{"cheap"},
			BrandHashtags:  []string{"#acmecoffee"},
			Keywords:       []string{"coffee"},
		},
	}
}

func TestImageAnalyzer(t *testing.T) {
	a := NewImageAnalyzer()

	t.Run("clean asset scores 100", func(t *testing.T) {
		s, err := a.Evaluate(context.Background(), goodInput())
		require.NoError(t, err)
		assert.Equal(t, 100, s.Score)
		assert.True(t, s.Pass)
		assert.Empty(t, s.Issues)
	})

	t.Run("low resolution", func(t *testing.T) {
		in := goodInput()
		in.Asset.Width, in.Asset.Height = 500, 500
		s, err := a.Evaluate(context.Background(), in)
		require.NoError(t, err)
		assert.Equal(t, 50, s.Score)
		assert.Equal(t, "low_resolution", s.Issues[0].Code)
	})

	t.Run("below recommended with odd ratio", func(t *testing.T) {
		in := goodInput()
		in.Asset.Width, in.Asset.Height = 2000, 800
		s, err := a.Evaluate(context.Background(), in)
		require.NoError(t, err)
		assert.Equal(t, 65, s.Score)
	})

	t.Run("missing dimensions", func(t *testing.T) {
		in := goodInput()
		in.Asset.Width = 0
		s, err := a.Evaluate(context.Background(), in)
		require.NoError(t, err)
		assert.Equal(t, 0, s.Score)
	})

	t.Run("unsupported oversized file", func(t *testing.T) {
		in := goodInput()
		in.Asset.MimeType = "image/tiff"
		in.Asset.SizeBytes = 20 << 20
		s, err := a.Evaluate(context.Background(), in)
		require.NoError(t, err)
		assert.Equal(t, 50, s.Score)
		assert.Len(t, s.Issues, 2)
	})
}

func TestContentAnalyzer(t *testing.T) {
	a := NewContentAnalyzer()

	tests := []struct {
		name    string
		caption string
		want    int
	}{
		{"good caption", "A calm morning with a fresh cup and a good book.", 100},
		{"empty", "   ", 0},
		{"too short", "Nice cup.", 70},
		{"too long", strings.Repeat("a", 2201), 60},
		{"shouting", "BUY THE NEW SEASONAL BLEND TODAY AT OUR STORES", 80},
		{"punctuation", "You will love this new seasonal blend!!!", 90},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			in := goodInput()
			in.Post.Caption = tt.caption
			s, err := a.Evaluate(context.Background(), in)
			require.NoError(t, err)
			assert.Equal(t, tt.want, s.Score)
			assert.True(t, s.Pass)
		})
	}
}

func TestSEOAnalyzer(t *testing.T) {
	a := NewSEOAnalyzer()

	tests := []struct {
		name     string
		hashtags []string
		keywords []string
		want     int
	}{
		{"healthy set", []string{"#acmecoffee", "#coffee", "#autumn"}, []string{"coffee"}, 100},
		{"none", nil, nil, 60},
		{"too few", []string{"#coffee"}, nil, 80},
		{"duplicates", []string{"#coffee", "#Coffee", "#autumn"}, nil, 90},
		{"invalid", []string{"#coffee", "#bad tag", "#autumn"}, nil, 90},
		{"missing keyword", []string{"#a", "#b", "#c"}, []string{"espresso"}, 85},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			in := goodInput()
			in.Post.Caption = "Weekend plans"
			in.Post.Hashtags = tt.hashtags
			in.BrandKit.Keywords = tt.keywords
			s, err := a.Evaluate(context.Background(), in)
			require.NoError(t, err)
			assert.Equal(t, tt.want, s.Score)
		})
	}
}

func TestBrandAnalyzer(t *testing.T) {
	a := NewBrandAnalyzer(80)

	t.Run("on brand", func(t *testing.T) {
		s, err := a.Evaluate(context.Background(), goodInput())
		require.NoError(t, err)
		assert.Equal(t, 100, s.Score)
		assert.True(t, s.Pass)
	})

	t.Run("forbidden term fails the gate", func(t *testing.T) {
		in := goodInput()
		in.Post.Caption = "Acme Coffee, now cheap for everyone"
		s, err := a.Evaluate(context.Background(), in)
		require.NoError(t, err)
		assert.Equal(t, 60, s.Score)
		assert.False(t, s.Pass)
	})

	t.Run("missing required term and hashtag", func(t *testing.T) {
		in := goodInput()
		in.Post.Caption = "A good cup of coffee"
		in.Post.Hashtags = []string{"#coffee"}
		s, err := a.Evaluate(context.Background(), in)
		require.NoError(t, err)
		assert.Equal(t, 75, s.Score)
		assert.False(t, s.Pass)
	})

	t.Run("empty kit", func(t *testing.T) {
		in := goodInput()
		in.BrandKit = domain.BrandKit{}
		s, err := a.Evaluate(context.Background(), in)
		require.NoError(t, err)
		assert.Equal(t, 100, s.Score)
	})
}

func TestSafetyAnalyzer(t *testing.T) {
	a := NewSafetyAnalyzer([]string{"casino"})

	t.Run("clean", func(t *testing.T) {
		s, err := a.Evaluate(context.Background(), goodInput())
		require.NoError(t, err)
		assert.True(t, s.Pass)
		assert.Equal(t, 100, s.Score)
	})

	t.Run("profanity", func(t *testing.T) {
		in := goodInput()
		in.Post.Caption = "This blend is the SHIT"
		s, err := a.Evaluate(context.Background(), in)
		require.NoError(t, err)
		assert.False(t, s.Pass)
		assert.Equal(t, 0, s.Score)
	})

	t.Run("configured term in hashtag", func(t *testing.T) {
		in := goodInput()
		in.Post.Hashtags = append(in.Post.Hashtags, "#casino")
		s, err := a.Evaluate(context.Background(), in)
		require.NoError(t, err)
		assert.False(t, s.Pass)
	})

	t.Run("tenant blocked term", func(t *testing.T) {
		in := goodInput()
		in.BrandKit.BlockedTerms = []string{"competitor brew"}
		in.Post.Caption = "Better than Competitor Brew any day"
		s, err := a.Evaluate(context.Background(), in)
		require.NoError(t, err)
		assert.False(t, s.Pass)
		assert.Equal(t, "blocked_term", s.Issues[0].Code)
	})

	t.Run("substring is not a hit", func(t *testing.T) {
		in := goodInput()
		in.Post.Caption = "Visit Scunthorpe and Shitake farms"
		s, err := a.Evaluate(context.Background(), in)
		require.NoError(t, err)
		assert.True(t, s.Pass)
	})
}

func TestRun_Timeout(t *testing.T) {
	slow := Func{ID: domain.AnalyzerImage, Fn: func(ctx context.Context, _ Input) (domain.AnalyzerScore, error) {
		select {
		case <-time.After(time.Second):
			return domain.AnalyzerScore{Score: 100, Pass: true}, nil
		case <-ctx.Done():
			return domain.AnalyzerScore{}, ctx.Err()
		}
	}}

	start := time.Now()
	s := Run(context.Background(), slow, 20*time.Millisecond, goodInput())
	assert.Less(t, time.Since(start), 500*time.Millisecond)
	assert.Equal(t, 0, s.Score)
	assert.False(t, s.Pass)
	require.Len(t, s.Issues, 1)
	assert.Equal(t, domain.IssueTimeout, s.Issues[0].Code)
}

func TestRun_ErrorAndPanic(t *testing.T) {
	failing := Func{ID: domain.AnalyzerSEO, Fn: func(context.Context, Input) (domain.AnalyzerScore, error) {
		return domain.AnalyzerScore{}, errors.New("boom")
	}}
	s := Run(context.Background(), failing, time.Second, goodInput())
	assert.Equal(t, 0, s.Score)
	assert.Equal(t, domain.IssueAnalyzerError, s.Issues[0].Code)

	panicking := Func{ID: domain.AnalyzerContent, Fn: func(context.Context, Input) (domain.AnalyzerScore, error) {
		panic("unexpected")
	}}
	s = Run(context.Background(), panicking, time.Second, goodInput())
	assert.Equal(t, domain.AnalyzerContent, s.Name)
	assert.False(t, s.Pass)
}

func TestRun_ClampsScore(t *testing.T) {
	wild := Func{ID: domain.AnalyzerBrand, Fn: func(context.Context, Input) (domain.AnalyzerScore, error) {
		return domain.AnalyzerScore{Score: 140, Pass: true}, nil
	}}
	s := Run(context.Background(), wild, time.Second, goodInput())
	assert.Equal(t, 100, s.Score)
	assert.Equal(t, domain.AnalyzerBrand, s.Name)
	assert.NotNil(t, s.Issues)
}

func TestSet_Validate(t *testing.T) {
	set := NewDefaultSet(80, nil)
	assert.NoError(t, set.Validate())

	set.SEO = nil
	assert.Error(t, set.Validate())
}
