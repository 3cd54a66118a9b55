package deliversvc

import (
	"context"
	"time"

	"github.com/mkrupp/memeforge/internal/domain"
)

// DispatcherConfig holds configuration for the delivery dispatcher.
type DispatcherConfig struct {
	// TargetDir is the directory exports are delivered into.
	TargetDir string `env:"TARGET_DIR" default:"."`

	// SpilloverDir receives exports when the target directory fails.
	// Empty means the system temp directory.
	SpilloverDir string `env:"SPILLOVER_DIR" default:""`

	// RetryAttempts is how often each strategy is tried before moving on.
	RetryAttempts int `env:"RETRY_ATTEMPTS" default:"2"`

	// RetryDelay is the pause between attempts of the same strategy.
	RetryDelay time.Duration `env:"RETRY_DELAY" default:"500ms"`

	// MaxDirectBytes caps payloads for the direct-write strategies.
	// Default is 50MB; larger payloads must go through staging.
	MaxDirectBytes int64 `env:"MAX_DIRECT_BYTES" default:"52428800"`
}

// Receipt describes a completed delivery.
type Receipt struct {
	// Path is the final absolute or target-relative file path.
	Path string

	// Strategy is the name of the strategy that succeeded.
	Strategy string

	// Attempts counts all attempts across all strategies, the successful
	// one included.
	Attempts int
}

// BatchItem is one payload/filename pair for DeliverMany.
type BatchItem struct {
	Payload  domain.EncodedPayload
	Filename string
}

// BatchResult pairs a delivery outcome with its input position.
type BatchResult struct {
	Receipt Receipt
	Err     error
}

// BatchOptions tunes DeliverMany. Zero values mean strictly sequential
// delivery with no pause between items.
type BatchOptions struct {
	// Concurrency bounds parallel deliveries. Values below 2 mean
	// sequential.
	Concurrency int

	// InterDelay is the pause between consecutive sequential deliveries.
	InterDelay time.Duration
}

// Deliverer defines the interface for writing encoded payloads to their
// final destination.
type Deliverer interface {
	// Deliver writes the payload under the given filename, walking the
	// strategy chain until one succeeds. Exhaustion returns a DeliverError
	// carrying the per-strategy failure chain.
	Deliver(ctx context.Context, payload domain.EncodedPayload, filename string) (Receipt, error)

	// DeliverMany delivers a batch, returning results in input order.
	DeliverMany(ctx context.Context, items []BatchItem, opts BatchOptions) []BatchResult
}

// DelivererFactory is a function that creates a new Deliverer instance.
type DelivererFactory func(ctx context.Context) (Deliverer, error)
