package deliversvc

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/mkrupp/memeforge/internal/domain"
	"github.com/mkrupp/memeforge/internal/repo/blobhandle"
	"github.com/mkrupp/memeforge/internal/svc/probesvc"
)

// ErrPayloadOverDirectCap is returned by the direct-write strategies for
// payloads that must go through staging instead.
var ErrPayloadOverDirectCap = errors.New("payload exceeds direct-write cap")

// Strategy is one way of getting a payload onto disk. Attempt either
// completes the delivery and returns the final path, or leaves no partial
// file behind.
type Strategy interface {
	Name() string
	Attempt(ctx context.Context, payload domain.EncodedPayload, filename string) (string, error)
}

// stagedRenameStrategy stages the payload as a managed handle, writes it to
// a hidden work file and renames it into place. The rename is atomic on the
// same filesystem, so readers never observe a partial export.
type stagedRenameStrategy struct {
	registry  *blobhandle.Registry
	targetDir string
}

var _ Strategy = (*stagedRenameStrategy)(nil)

func (s *stagedRenameStrategy) Name() string { return probesvc.StrategyStagedRename }

func (s *stagedRenameStrategy) Attempt(
	ctx context.Context,
	payload domain.EncodedPayload,
	filename string,
) (string, error) {
	handle, err := s.registry.Create(ctx, payload.Bytes(), 0)
	if err != nil {
		return "", fmt.Errorf("stage payload: %w", err)
	}
	defer handle.Release()

	target := filepath.Join(s.targetDir, filename)
	if _, err := os.Stat(target); err == nil {
		return "", fmt.Errorf("stat target: %w", os.ErrExist)
	}

	work, err := os.CreateTemp(s.targetDir, ".stage-*")
	if err != nil {
		return "", fmt.Errorf("create work file: %w", err)
	}

	workPath := work.Name()

	if _, err := work.Write(handle.Bytes()); err != nil {
		_ = work.Close()
		_ = os.Remove(workPath)

		return "", fmt.Errorf("write work file: %w", err)
	}

	if err := work.Close(); err != nil {
		_ = os.Remove(workPath)

		return "", fmt.Errorf("close work file: %w", err)
	}

	if err := os.Rename(workPath, target); err != nil {
		_ = os.Remove(workPath)

		return "", fmt.Errorf("rename into place: %w", err)
	}

	return target, nil
}

// exclusiveCreateStrategy writes directly with O_EXCL, size-capped like the
// inline data-URI path.
type exclusiveCreateStrategy struct {
	targetDir string
	maxBytes  int64
}

var _ Strategy = (*exclusiveCreateStrategy)(nil)

func (s *exclusiveCreateStrategy) Name() string { return probesvc.StrategyExclusiveCreate }

func (s *exclusiveCreateStrategy) Attempt(
	_ context.Context,
	payload domain.EncodedPayload,
	filename string,
) (string, error) {
	if payload.Size() > s.maxBytes {
		return "", fmt.Errorf("%w: %d > %d", ErrPayloadOverDirectCap, payload.Size(), s.maxBytes)
	}

	return writeExclusive(filepath.Join(s.targetDir, filename), payload)
}

// uniqueSuffixStrategy resolves filename collisions by inserting a counter
// before the extension.
type uniqueSuffixStrategy struct {
	targetDir string
}

var _ Strategy = (*uniqueSuffixStrategy)(nil)

func (s *uniqueSuffixStrategy) Name() string { return probesvc.StrategyUniqueSuffix }

func (s *uniqueSuffixStrategy) Attempt(
	_ context.Context,
	payload domain.EncodedPayload,
	filename string,
) (string, error) {
	const maxCandidates = 100

	ext := filepath.Ext(filename)
	stem := strings.TrimSuffix(filename, ext)

	var lastErr error

	for i := range maxCandidates {
		candidate := filename
		if i > 0 {
			candidate = fmt.Sprintf("%s_%d%s", stem, i, ext)
		}

		path, err := writeExclusive(filepath.Join(s.targetDir, candidate), payload)
		if err == nil {
			return path, nil
		}

		lastErr = err

		if !errors.Is(err, os.ErrExist) {
			break
		}
	}

	return "", lastErr
}

// spilloverDirStrategy delivers into the configured spillover directory when
// the target directory keeps failing.
type spilloverDirStrategy struct {
	dir string
}

var _ Strategy = (*spilloverDirStrategy)(nil)

func (s *spilloverDirStrategy) Name() string { return probesvc.StrategySpilloverDir }

func (s *spilloverDirStrategy) Attempt(
	_ context.Context,
	payload domain.EncodedPayload,
	filename string,
) (string, error) {
	dir := s.dir
	if dir == "" {
		dir = os.TempDir()
	}

	return writeExclusive(filepath.Join(dir, filename), payload)
}

// truncateWriteStrategy is the last resort: a plain truncating write that
// overwrites whatever is in the way.
type truncateWriteStrategy struct {
	targetDir string
}

var _ Strategy = (*truncateWriteStrategy)(nil)

func (s *truncateWriteStrategy) Name() string { return probesvc.StrategyTruncateWrite }

func (s *truncateWriteStrategy) Attempt(
	_ context.Context,
	payload domain.EncodedPayload,
	filename string,
) (string, error) {
	path := filepath.Join(s.targetDir, filename)

	if err := os.WriteFile(path, payload.Bytes(), 0o644); err != nil {
		return "", fmt.Errorf("write file: %w", err)
	}

	return path, nil
}

// writeExclusive creates path with O_EXCL and writes the payload, removing
// the partial file on any write error.
func writeExclusive(path string, payload domain.EncodedPayload) (string, error) {
	file, err := os.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0o644)
	if err != nil {
		return "", fmt.Errorf("create file: %w", err)
	}

	if _, err := payload.WriteTo(file); err != nil {
		_ = file.Close()
		_ = os.Remove(path)

		return "", fmt.Errorf("write file: %w", err)
	}

	if err := file.Close(); err != nil {
		_ = os.Remove(path)

		return "", fmt.Errorf("close file: %w", err)
	}

	return path, nil
}
