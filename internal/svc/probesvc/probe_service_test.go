package probesvc_test

import (
	"context"
	"testing"

	"github.com/mkrupp/memeforge/internal/domain"
	. "github.com/mkrupp/memeforge/internal/svc/probesvc"
)

func TestTrialProber_Probe(t *testing.T) {
	t.Parallel()

	prober := NewTrialProber()
	report := prober.Probe(context.TODO(), t.TempDir())

	// The codecs are compiled in, so every format must probe supported.
	for _, format := range []domain.Format{domain.FormatPNG, domain.FormatJPEG, domain.FormatWebP} {
		if !report.Supports(format) {
			t.Errorf("Supports(%s) = false, want true", format)
		}
	}

	if !report.TargetWritable {
		t.Error("TargetWritable = false for temp dir, want true")
	}

	if !report.AtomicRename {
		t.Error("AtomicRename = false for temp dir, want true")
	}
}

func TestTrialProber_ProbeUnwritableTarget(t *testing.T) {
	t.Parallel()

	prober := NewTrialProber()
	report := prober.Probe(context.TODO(), "/nonexistent/memeforge-probe-target")

	if report.TargetWritable || report.AtomicRename {
		t.Errorf("probe of missing dir: writable=%v rename=%v, want false/false",
			report.TargetWritable, report.AtomicRename)
	}
}

func TestRecommendFallbacks(t *testing.T) {
	t.Parallel()

	for _, tt := range []struct {
		name           string
		report         CapabilityReport
		wantFormats    []domain.Format
		wantFirst      string
		wantStrategies int
	}{
		{
			name: "everything available",
			report: CapabilityReport{
				FormatsSupported: map[domain.Format]bool{
					domain.FormatPNG:  true,
					domain.FormatJPEG: true,
					domain.FormatWebP: true,
				},
				TargetWritable: true,
				AtomicRename:   true,
			},
			wantFormats:    []domain.Format{domain.FormatWebP, domain.FormatJPEG, domain.FormatPNG},
			wantFirst:      StrategyStagedRename,
			wantStrategies: 5,
		},
		{
			name: "no webp, no rename",
			report: CapabilityReport{
				FormatsSupported: map[domain.Format]bool{
					domain.FormatPNG:  true,
					domain.FormatJPEG: true,
				},
				TargetWritable: true,
				AtomicRename:   false,
			},
			wantFormats:    []domain.Format{domain.FormatJPEG, domain.FormatPNG},
			wantFirst:      StrategyExclusiveCreate,
			wantStrategies: 4,
		},
		{
			name: "unwritable target",
			report: CapabilityReport{
				FormatsSupported: map[domain.Format]bool{domain.FormatPNG: true},
				TargetWritable:   false,
				AtomicRename:     false,
			},
			wantFormats:    []domain.Format{domain.FormatPNG},
			wantFirst:      StrategySpilloverDir,
			wantStrategies: 2,
		},
	} {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			plan := RecommendFallbacks(tt.report)

			if len(plan.FormatOrder) != len(tt.wantFormats) {
				t.Fatalf("FormatOrder = %v, want %v", plan.FormatOrder, tt.wantFormats)
			}

			for i, format := range tt.wantFormats {
				if plan.FormatOrder[i] != format {
					t.Errorf("FormatOrder[%d] = %s, want %s", i, plan.FormatOrder[i], format)
				}
			}

			if len(plan.StrategyOrder) != tt.wantStrategies {
				t.Errorf("len(StrategyOrder) = %d, want %d", len(plan.StrategyOrder), tt.wantStrategies)
			}

			if plan.StrategyOrder[0] != tt.wantFirst {
				t.Errorf("StrategyOrder[0] = %s, want %s", plan.StrategyOrder[0], tt.wantFirst)
			}
		})
	}
}

func TestMatchesMagic(t *testing.T) {
	t.Parallel()

	for _, tt := range []struct {
		name   string
		data   []byte
		format domain.Format
		want   bool
	}{
		{"png signature", []byte("\x89PNG\r\n\x1a\nrest"), domain.FormatPNG, true},
		{"jpeg soi", []byte{0xFF, 0xD8, 0xFF, 0xE0}, domain.FormatJPEG, true},
		{"webp riff", []byte("RIFF\x00\x00\x00\x00WEBPVP8 "), domain.FormatWebP, true},
		{"riff but not webp", []byte("RIFF\x00\x00\x00\x00WAVEfmt "), domain.FormatWebP, false},
		{"wrong container", []byte("\x89PNG\r\n\x1a\n"), domain.FormatJPEG, false},
		{"truncated", []byte("RIFF"), domain.FormatWebP, false},
		{"empty", nil, domain.FormatPNG, false},
	} {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			if got := MatchesMagic(tt.data, tt.format); got != tt.want {
				t.Errorf("MatchesMagic(%q, %s) = %v, want %v", tt.data, tt.format, got, tt.want)
			}
		})
	}
}
