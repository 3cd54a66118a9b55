package encodesvc

import (
	"container/list"
	"fmt"
	"strings"
	"sync"

	"github.com/mkrupp/memeforge/internal/domain"
)

// EstimatorConfig holds configuration for the size estimator.
type EstimatorConfig struct {
	// MemoCapacity bounds the estimate memo. Oldest entries fall out first.
	MemoCapacity int `env:"MEMO_CAPACITY" default:"128"`
}

// Estimator projects encoded payload sizes without encoding. Estimates for a
// given source, format and quality are memoized in a fixed-capacity LRU;
// debouncing rapid-fire calls is the caller's job.
type Estimator struct {
	mu       sync.Mutex
	capacity int
	order    *list.List
	memo     map[string]*list.Element
}

type memoEntry struct {
	key   string
	value int64
}

// NewEstimator creates a new Estimator with the given configuration.
func NewEstimator(cfg EstimatorConfig) *Estimator {
	capacity := cfg.MemoCapacity
	if capacity <= 0 {
		capacity = 1
	}

	//nolint:exhaustruct
	return &Estimator{
		capacity: capacity,
		order:    list.New(),
		memo:     make(map[string]*list.Element, capacity),
	}
}

// Estimate returns the projected encoded size in bytes for the source at the
// given format and quality. A data-URI source contributes its decoded byte
// length as the raw size; an already-decoded image its RGBA footprint; an
// opaque URL falls back to a 500x500 RGBA reference resolution, so URL
// estimates are approximate by design.
func (est *Estimator) Estimate(format domain.Format, quality int, source domain.ImageSource) int64 {
	quality = clampQuality(quality)
	key := fmt.Sprintf("%s|%d|%s", format, quality, source.Identity())

	est.mu.Lock()
	defer est.mu.Unlock()

	if elem, ok := est.memo[key]; ok {
		est.order.MoveToFront(elem)

		return elem.Value.(*memoEntry).value //nolint:forcetypeassert
	}

	estimate := int64(float64(rawBytes(source)) * compressionRatio(format, quality))

	est.memo[key] = est.order.PushFront(&memoEntry{key: key, value: estimate})

	for est.order.Len() > est.capacity {
		oldest := est.order.Back()
		est.order.Remove(oldest)
		delete(est.memo, oldest.Value.(*memoEntry).key) //nolint:forcetypeassert
	}

	return estimate
}

// MemoLen returns the current memo entry count.
func (est *Estimator) MemoLen() int {
	est.mu.Lock()
	defer est.mu.Unlock()

	return est.order.Len()
}

func rawBytes(source domain.ImageSource) int64 {
	switch source.Kind() {
	case domain.SourceDataURI:
		payload := source.DataURI()
		if idx := strings.IndexByte(payload, ','); idx >= 0 {
			payload = payload[idx+1:]
		}

		return int64(len(payload)) * 3 / 4
	case domain.SourceImage:
		if img := source.Image(); img != nil {
			bounds := img.Bounds()

			return int64(bounds.Dx()) * int64(bounds.Dy()) * bytesPerPixel
		}
	case domain.SourceURL, domain.SourceNone:
	}

	return referenceWidth * referenceHeight * bytesPerPixel
}
