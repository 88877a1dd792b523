package backup

import (
	"archive/zip"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/mapleapp/maple-server/internal/domain"
	"github.com/mapleapp/maple-server/internal/store"
)

// RestoreResult contains the outcome of a restore operation.
type RestoreResult struct {
	Imported map[string]int `json:"imported"`
	Skipped  map[string]int `json:"skipped"`
	Errors   []RestoreError `json:"errors,omitempty"`
	Duration time.Duration  `json:"duration"`
}

// RestoreError describes a non-fatal error during restore.
type RestoreError struct {
	EntityType string `json:"entity_type"`
	EntityID   string `json:"entity_id,omitempty"`
	Error      string `json:"error"`
}

// ValidationResult describes backup validity.
type ValidationResult struct {
	Valid          bool         `json:"valid"`
	Manifest       *Manifest    `json:"manifest,omitempty"`
	ExpectedCounts EntityCounts `json:"expected_counts"`
	Errors         []string     `json:"errors,omitempty"`
	Warnings       []string     `json:"warnings,omitempty"`
}

// Restore loads a backup archive into the store. The store must be
// empty apart from the built-in prompts seeded at startup; merging into
// live data is not supported. Per-entity failures are collected, not
// fatal.
func (s *Service) Restore(ctx context.Context, path string) (*RestoreResult, error) {
	start := time.Now()

	s.logger.Info("starting restore", "path", path)

	empty, err := s.store.IsEmpty(ctx)
	if err != nil {
		return nil, fmt.Errorf("check store: %w", err)
	}
	if !empty {
		return nil, ErrStoreNotEmpty
	}

	zr, err := zip.OpenReader(path)
	if err != nil {
		return nil, fmt.Errorf("open backup: %w", err)
	}
	defer zr.Close()

	manifest, err := readManifest(zr)
	if err != nil {
		return nil, err
	}
	if manifest.Version != FormatVersion {
		return nil, fmt.Errorf("%w: got %s, want %s", ErrVersionMismatch, manifest.Version, FormatVersion)
	}

	result := &RestoreResult{
		Imported: make(map[string]int),
		Skipped:  make(map[string]int),
	}

	if err := restoreEntities(ctx, zr, usersPath, "user", result,
		func(u *domain.User) (string, error) {
			return u.ID, s.store.CreateUser(ctx, u)
		}); err != nil {
		return nil, err
	}

	if err := restoreEntities(ctx, zr, tagsPath, "tag", result,
		func(t *domain.Tag) (string, error) {
			return t.ID, s.store.CreateTag(ctx, t)
		}); err != nil {
		return nil, err
	}

	if err := restoreEntities(ctx, zr, papersPath, "paper", result,
		func(p *domain.Paper) (string, error) {
			return p.ID, s.store.CreatePaper(ctx, p)
		}); err != nil {
		return nil, err
	}

	if err := restoreEntities(ctx, zr, promptsPath, "prompt", result,
		func(p *domain.Prompt) (string, error) {
			err := s.store.CreatePrompt(ctx, p)
			// Built-in prompts may already be seeded in the target store.
			if errors.Is(err, store.ErrPromptExists) && p.IsBuiltIn {
				return p.ID, errSkipped
			}
			return p.ID, err
		}); err != nil {
		return nil, err
	}

	if manifest.IncludesAudio && s.audioPath != "" {
		n, err := s.restoreAudio(ctx, zr)
		if err != nil {
			return nil, fmt.Errorf("restore audio: %w", err)
		}
		result.Imported["audio"] = n
	}

	result.Duration = time.Since(start)

	s.logger.Info("restore complete",
		"imported", result.Imported,
		"skipped", result.Skipped,
		"errors", len(result.Errors),
		"duration", result.Duration)

	return result, nil
}

// errSkipped marks an entity deliberately not restored.
var errSkipped = errors.New("skipped")

// restoreEntities streams one JSONL file back into the store through
// create. A missing file is tolerated for forward compatibility.
func restoreEntities[T any](ctx context.Context, zr *zip.ReadCloser, path, entityType string, result *RestoreResult, create func(*T) (string, error)) error {
	rc, err := openArchiveFile(zr, path)
	if err != nil {
		if errors.Is(err, errFileNotFound) {
			return nil
		}
		return err
	}

	for record, err := range readJSONL[T](rc) {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return ctxErr
		}
		if err != nil {
			result.Errors = append(result.Errors, RestoreError{
				EntityType: entityType,
				Error:      err.Error(),
			})
			continue
		}

		id, err := create(record)
		switch {
		case err == nil:
			result.Imported[entityType]++
		case errors.Is(err, errSkipped):
			result.Skipped[entityType]++
		default:
			result.Errors = append(result.Errors, RestoreError{
				EntityType: entityType,
				EntityID:   id,
				Error:      err.Error(),
			})
		}
	}

	return nil
}

// restoreAudio extracts archived audio files into the audio directory.
func (s *Service) restoreAudio(ctx context.Context, zr *zip.ReadCloser) (int, error) {
	if err := os.MkdirAll(s.audioPath, 0o755); err != nil {
		return 0, err
	}

	count := 0
	for _, f := range zr.File {
		if err := ctx.Err(); err != nil {
			return count, err
		}
		if !strings.HasPrefix(f.Name, audioDir) || f.FileInfo().IsDir() {
			continue
		}

		name := filepath.Base(f.Name)
		if name == "." || name == ".." {
			continue
		}

		src, err := f.Open()
		if err != nil {
			return count, err
		}

		dst, err := os.Create(filepath.Join(s.audioPath, name)) //#nosec G304 -- base name only
		if err != nil {
			src.Close()
			return count, err
		}
		if _, err := io.Copy(dst, src); err != nil { //#nosec G110 -- restoring operator-supplied backup
			src.Close()
			dst.Close()
			return count, err
		}
		src.Close()
		if err := dst.Close(); err != nil {
			return count, err
		}
		count++
	}

	return count, nil
}

// Validate checks a backup archive without importing it.
func (s *Service) Validate(ctx context.Context, path string) (*ValidationResult, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	zr, err := zip.OpenReader(path)
	if err != nil {
		return &ValidationResult{
			Valid:  false,
			Errors: []string{fmt.Sprintf("failed to open backup: %v", err)},
		}, nil
	}
	defer zr.Close()

	result := &ValidationResult{Valid: true}

	manifest, err := readManifest(zr)
	if err != nil {
		result.Valid = false
		result.Errors = append(result.Errors, err.Error())
		return result, nil
	}

	result.Manifest = manifest
	result.ExpectedCounts = manifest.Counts

	if manifest.Version != FormatVersion {
		result.Valid = false
		result.Errors = append(result.Errors,
			fmt.Sprintf("unsupported version %s (want %s)", manifest.Version, FormatVersion))
	}

	for _, required := range []string{usersPath, tagsPath, papersPath, promptsPath} {
		if rc, err := openArchiveFile(zr, required); err != nil {
			result.Warnings = append(result.Warnings, "missing file: "+required)
		} else {
			rc.Close()
		}
	}

	return result, nil
}

func readManifest(zr *zip.ReadCloser) (*Manifest, error) {
	rc, err := openArchiveFile(zr, manifestPath)
	if err != nil {
		return nil, ErrInvalidManifest
	}
	defer rc.Close()

	var manifest Manifest
	if err := readJSON(rc, &manifest); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidManifest, err)
	}
	return &manifest, nil
}
