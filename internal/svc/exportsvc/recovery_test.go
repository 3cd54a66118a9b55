package exportsvc_test

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/mkrupp/memeforge/internal/domain"
	"github.com/mkrupp/memeforge/internal/repo/blobhandle"
	"github.com/mkrupp/memeforge/internal/svc/deliversvc"
	"github.com/mkrupp/memeforge/internal/svc/encodesvc"
	. "github.com/mkrupp/memeforge/internal/svc/exportsvc"
	"github.com/mkrupp/memeforge/internal/svc/faultsvc"
	"github.com/mkrupp/memeforge/internal/svc/rastersvc"
)

// flakyEncoder fails a configured number of leading calls with a memory
// error, then delegates to a real encoder. It records the parameters of
// every call.
type flakyEncoder struct {
	mu        sync.Mutex
	failures  int
	delegate  encodesvc.Encoder
	calls     int
	formats   []domain.Format
	qualities []int
}

var _ encodesvc.Encoder = (*flakyEncoder)(nil)

func (e *flakyEncoder) Encode(
	ctx context.Context,
	surface *domain.RasterSurface,
	format domain.Format,
	quality int,
) (domain.EncodedPayload, error) {
	e.mu.Lock()
	e.calls++
	e.formats = append(e.formats, format)
	e.qualities = append(e.qualities, quality)
	failing := e.calls <= e.failures
	e.mu.Unlock()

	if failing {
		return domain.EncodedPayload{}, &domain.MemoryError{
			NeedBytes:   1 << 30,
			BudgetBytes: 1 << 20,
			Width:       surface.Width(),
			Height:      surface.Height(),
		}
	}

	return e.delegate.Encode(ctx, surface, format, quality)
}

// refusingEncoder always refuses with a cross-origin security error and
// counts how often it was asked.
type refusingEncoder struct {
	mu    sync.Mutex
	calls int
}

var _ encodesvc.Encoder = (*refusingEncoder)(nil)

func (e *refusingEncoder) Encode(
	ctx context.Context,
	surface *domain.RasterSurface,
	format domain.Format,
	quality int,
) (domain.EncodedPayload, error) {
	e.mu.Lock()
	e.calls++
	e.mu.Unlock()

	return domain.EncodedPayload{}, &domain.SecurityError{
		Origin: "https://cdn.example.com",
		Err:    domain.ErrSurfaceTainted,
	}
}

func recoveryExporter(t *testing.T, encoder encodesvc.Encoder) Exporter {
	t.Helper()

	rasterizer, err := rastersvc.NewDrawRasterizer(rastersvc.RasterizerConfig{
		MaxDimension:    8192,
		MaxPixels:       1 << 25,
		MemoryBudget:    1 << 28,
		MaxDataURIBytes: 1 << 20,
		FetchTimeout:    time.Second,
		Interpolator:    "catmullrom",
		Credentials:     "",
		CacheEnabled:    false,
	}, nil)
	if err != nil {
		t.Fatalf("new rasterizer: %v", err)
	}

	registry := blobhandle.NewRegistry(blobhandle.RegistryConfig{
		MaxBytes:      1 << 20,
		DefaultTTL:    time.Minute,
		GracePeriod:   time.Second,
		SweepInterval: time.Minute,
	})
	t.Cleanup(func() { registry.Close(context.TODO()) })

	dispatcher := deliversvc.NewFileDispatcher(deliversvc.DispatcherConfig{
		TargetDir:      t.TempDir(),
		SpilloverDir:   "",
		RetryAttempts:  1,
		RetryDelay:     time.Millisecond,
		MaxDirectBytes: 1 << 20,
	}, registry, nil)

	return NewPipelineExporter(
		ServiceConfig{FilenamePrefix: "meme", RecordHistory: false},
		rasterizer,
		encoder,
		dispatcher,
		faultsvc.NewRuleClassifier(),
		nil,
	)
}

func TestPipelineExporter_MemoryRecoveryMutatesParameters(t *testing.T) {
	t.Parallel()

	encoder := &flakyEncoder{ //nolint:exhaustruct
		failures: 1,
		delegate: encodesvc.NewCodecEncoder(encodesvc.EncoderConfig{MaxPayloadBytes: 100 << 20}, fullReport()),
	}

	exporter := recoveryExporter(t, encoder)

	result := exporter.Export(context.TODO(), domain.ExportRequest{
		Source:   domain.NewImageSource(redImage(8, 8)),
		Format:   domain.FormatPNG,
		Quality:  90,
		Filename: "",
	})

	if !result.Success {
		t.Fatalf("export did not recover: %+v", result.Failure)
	}

	if encoder.calls != 2 {
		t.Fatalf("encoder saw %d calls, want 2", encoder.calls)
	}

	// Second walk runs with quality -30 and jpeg substituted for png.
	if encoder.qualities[1] != 60 || encoder.formats[1] != domain.FormatJPEG {
		t.Errorf("recovered call used format=%s quality=%d, want jpeg/60",
			encoder.formats[1], encoder.qualities[1])
	}

	if result.FormatUsed != domain.FormatJPEG {
		t.Errorf("format used = %s, want jpeg", result.FormatUsed)
	}
}

func TestPipelineExporter_CrossOriginFailureIsNotAutoRetried(t *testing.T) {
	t.Parallel()

	encoder := &refusingEncoder{} //nolint:exhaustruct
	exporter := recoveryExporter(t, encoder)

	result := exporter.Export(context.TODO(), domain.ExportRequest{
		Source:   domain.NewImageSource(redImage(8, 8)),
		Format:   domain.FormatPNG,
		Quality:  90,
		Filename: "",
	})

	if result.Success {
		t.Fatal("export succeeded against a refusing encoder")
	}

	// Retrying cannot untaint the surface, so the pipeline must walk once.
	if encoder.calls != 1 {
		t.Errorf("encoder saw %d calls, want exactly 1", encoder.calls)
	}

	if result.Failure.Category != domain.CategoryCORS {
		t.Errorf("category = %s, want cors", result.Failure.Category)
	}

	if len(result.Failure.RecoveryOptions) == 0 {
		t.Error("failure carries no recovery options")
	}
}

func TestPipelineExporter_AtMostOneRecoveryLoop(t *testing.T) {
	t.Parallel()

	encoder := &flakyEncoder{ //nolint:exhaustruct
		failures: 10,
		delegate: encodesvc.NewCodecEncoder(encodesvc.EncoderConfig{MaxPayloadBytes: 100 << 20}, fullReport()),
	}

	exporter := recoveryExporter(t, encoder)

	result := exporter.Export(context.TODO(), domain.ExportRequest{
		Source:   domain.NewImageSource(redImage(8, 8)),
		Format:   domain.FormatPNG,
		Quality:  90,
		Filename: "",
	})

	if result.Success {
		t.Fatal("export succeeded against a permanently failing encoder")
	}

	if encoder.calls != 2 {
		t.Errorf("encoder saw %d calls, want exactly 2 (one recovery loop)", encoder.calls)
	}

	if result.Failure.Category != domain.CategoryMemory {
		t.Errorf("category = %s, want memory", result.Failure.Category)
	}
}
