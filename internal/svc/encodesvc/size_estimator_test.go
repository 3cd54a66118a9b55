package encodesvc_test

import (
	"encoding/base64"
	"testing"

	"github.com/mkrupp/memeforge/internal/domain"
	. "github.com/mkrupp/memeforge/internal/svc/encodesvc"
)

func TestEstimator_QualityOrdering(t *testing.T) {
	t.Parallel()

	estimator := NewEstimator(EstimatorConfig{MemoCapacity: 16})
	source := domain.NewURLSource("https://example.com/template.png")

	q90 := estimator.Estimate(domain.FormatJPEG, 90, source)
	q20 := estimator.Estimate(domain.FormatJPEG, 20, source)

	if q90 <= q20 {
		t.Errorf("jpeg estimate q90=%d <= q20=%d", q90, q20)
	}

	webp := estimator.Estimate(domain.FormatWebP, 90, source)
	if webp > q90 {
		t.Errorf("webp estimate %d > jpeg estimate %d at same quality", webp, q90)
	}
}

func TestEstimator_DataURIDerivesRawSize(t *testing.T) {
	t.Parallel()

	estimator := NewEstimator(EstimatorConfig{MemoCapacity: 16})

	payload := base64.StdEncoding.EncodeToString(make([]byte, 4000))
	small := estimator.Estimate(domain.FormatPNG, 90, domain.NewDataURISource("data:image/png;base64,"+payload))

	// 4000 raw bytes at the PNG ratio.
	if small < 1000 || small > 1400 {
		t.Errorf("data-uri estimate = %d, want about 1200", small)
	}

	bigPayload := base64.StdEncoding.EncodeToString(make([]byte, 40000))

	big := estimator.Estimate(domain.FormatPNG, 90, domain.NewDataURISource("data:image/png;base64,"+bigPayload))
	if big <= small {
		t.Errorf("larger payload estimated smaller: %d <= %d", big, small)
	}
}

func TestEstimator_URLFallsBackToReferenceResolution(t *testing.T) {
	t.Parallel()

	estimator := NewEstimator(EstimatorConfig{MemoCapacity: 16})

	got := estimator.Estimate(domain.FormatPNG, 90, domain.NewURLSource("https://example.com/x.png"))

	// 500*500*4 raw bytes at the PNG ratio.
	if got != 300000 {
		t.Errorf("url estimate = %d, want 300000", got)
	}
}

func TestEstimator_MemoIsBounded(t *testing.T) {
	t.Parallel()

	estimator := NewEstimator(EstimatorConfig{MemoCapacity: 4})

	for quality := range 20 {
		estimator.Estimate(domain.FormatJPEG, quality, domain.NewURLSource("https://example.com/x.png"))
	}

	if estimator.MemoLen() > 4 {
		t.Errorf("memo holds %d entries, capacity is 4", estimator.MemoLen())
	}
}

func TestEstimator_MemoHitIsStable(t *testing.T) {
	t.Parallel()

	estimator := NewEstimator(EstimatorConfig{MemoCapacity: 4})
	source := domain.NewURLSource("https://example.com/x.png")

	first := estimator.Estimate(domain.FormatWebP, 75, source)
	second := estimator.Estimate(domain.FormatWebP, 75, source)

	if first != second {
		t.Errorf("memoized estimate changed: %d != %d", first, second)
	}
}
