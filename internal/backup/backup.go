package backup

import (
	"archive/zip"
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/mapleapp/maple-server/internal/domain"
	"github.com/mapleapp/maple-server/internal/store"
)

// backupSuffix is the filename suffix of Maple backup archives.
const backupSuffix = ".maple.zip"

// Paths inside the archive.
const (
	usersPath   = "entities/users.jsonl"
	tagsPath    = "entities/tags.jsonl"
	papersPath  = "entities/papers.jsonl"
	promptsPath = "entities/prompts.jsonl"
	audioDir    = "audio/"
)

// Options configures backup creation.
type Options struct {
	IncludeAudio bool   // Include uploaded recording audio (large)
	OutputPath   string // Where to write the backup file; generated when empty
}

// DefaultOptions returns sensible defaults.
func DefaultOptions() Options {
	return Options{
		IncludeAudio: true,
	}
}

// Result contains the outcome of a backup operation.
type Result struct {
	Path     string        `json:"path"`
	Size     int64         `json:"size"`
	Counts   EntityCounts  `json:"counts"`
	Duration time.Duration `json:"duration"`
	Checksum string        `json:"checksum"`
}

// Info describes an existing backup.
type Info struct {
	ID        string    `json:"id"`
	Path      string    `json:"path"`
	Size      int64     `json:"size"`
	CreatedAt time.Time `json:"created_at"`
}

// Service creates, lists, and restores backup archives.
type Service struct {
	store      *store.Store
	backupDir  string
	audioPath  string
	serverName string
	version    string
	logger     *slog.Logger
}

// NewService creates a Service. audioPath is the directory holding
// uploaded recording audio; it may be empty to disable audio backup.
func NewService(s *store.Store, backupDir, audioPath, serverName, version string, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &Service{
		store:      s,
		backupDir:  backupDir,
		audioPath:  audioPath,
		serverName: serverName,
		version:    version,
		logger:     logger,
	}
}

// Create writes a new backup archive.
func (s *Service) Create(ctx context.Context, opts Options) (*Result, error) {
	start := time.Now()

	if err := os.MkdirAll(s.backupDir, 0o755); err != nil {
		return nil, fmt.Errorf("create backup dir: %w", err)
	}

	outputPath := opts.OutputPath
	if outputPath == "" {
		timestamp := time.Now().Format("2006-01-02-150405")
		outputPath = filepath.Join(s.backupDir, "backup-"+timestamp+backupSuffix)
	}

	s.logger.Info("creating backup",
		"output", outputPath,
		"include_audio", opts.IncludeAudio)

	// Write to temp file, rename on success (atomic)
	tmpPath := outputPath + ".tmp"
	f, err := os.Create(tmpPath) //#nosec G304 -- backup path comes from config/operator
	if err != nil {
		return nil, fmt.Errorf("create backup file: %w", err)
	}
	defer os.Remove(tmpPath)
	defer f.Close()

	// Tee to SHA-256 hasher
	hash := sha256.New()
	zw := zip.NewWriter(io.MultiWriter(f, hash))

	manifest := &Manifest{
		Version:       FormatVersion,
		CreatedAt:     time.Now(),
		ServerName:    s.serverName,
		MapleVersion:  s.version,
		IncludesAudio: opts.IncludeAudio,
	}
	counts := &manifest.Counts

	if counts.Users, err = s.exportUsers(ctx, zw); err != nil {
		return nil, fmt.Errorf("export users: %w", err)
	}
	if counts.Tags, err = s.exportTags(ctx, zw); err != nil {
		return nil, fmt.Errorf("export tags: %w", err)
	}
	if counts.Papers, err = s.exportPapers(ctx, zw); err != nil {
		return nil, fmt.Errorf("export papers: %w", err)
	}
	if counts.Prompts, err = s.exportPrompts(ctx, zw); err != nil {
		return nil, fmt.Errorf("export prompts: %w", err)
	}

	if opts.IncludeAudio && s.audioPath != "" {
		if counts.AudioFiles, err = s.exportAudio(ctx, zw); err != nil {
			return nil, fmt.Errorf("export audio: %w", err)
		}
	}

	// Manifest goes last so it carries final counts.
	mw, err := zw.Create(manifestPath)
	if err != nil {
		return nil, fmt.Errorf("write manifest: %w", err)
	}
	if err := writeJSON(mw, manifest); err != nil {
		return nil, fmt.Errorf("write manifest: %w", err)
	}

	if err := zw.Close(); err != nil {
		return nil, fmt.Errorf("close zip: %w", err)
	}
	if err := f.Close(); err != nil {
		return nil, fmt.Errorf("close file: %w", err)
	}

	if err := os.Rename(tmpPath, outputPath); err != nil {
		return nil, fmt.Errorf("rename backup: %w", err)
	}

	info, err := os.Stat(outputPath)
	if err != nil {
		return nil, fmt.Errorf("stat backup: %w", err)
	}

	result := &Result{
		Path:     outputPath,
		Size:     info.Size(),
		Counts:   *counts,
		Duration: time.Since(start),
		Checksum: hex.EncodeToString(hash.Sum(nil)),
	}

	s.logger.Info("backup complete",
		"path", result.Path,
		"size", result.Size,
		"duration", result.Duration,
		"checksum", result.Checksum)

	return result, nil
}

func (s *Service) exportUsers(ctx context.Context, zw *zip.Writer) (int, error) {
	w, err := newJSONLWriter(zw, usersPath)
	if err != nil {
		return 0, err
	}
	err = s.store.ForEachUser(ctx, func(u *domain.User) error {
		return w.write(u)
	})
	return w.count, err
}

func (s *Service) exportTags(ctx context.Context, zw *zip.Writer) (int, error) {
	w, err := newJSONLWriter(zw, tagsPath)
	if err != nil {
		return 0, err
	}
	err = s.store.ForEachTag(ctx, func(t *domain.Tag) error {
		return w.write(t)
	})
	return w.count, err
}

func (s *Service) exportPapers(ctx context.Context, zw *zip.Writer) (int, error) {
	w, err := newJSONLWriter(zw, papersPath)
	if err != nil {
		return 0, err
	}
	err = s.store.ForEachPaper(ctx, func(p *domain.Paper) error {
		return w.write(p)
	})
	return w.count, err
}

func (s *Service) exportPrompts(ctx context.Context, zw *zip.Writer) (int, error) {
	w, err := newJSONLWriter(zw, promptsPath)
	if err != nil {
		return 0, err
	}
	err = s.store.ForEachPrompt(ctx, func(p *domain.Prompt) error {
		return w.write(p)
	})
	return w.count, err
}

// exportAudio copies every file in the audio directory into the archive
// under audio/. Filenames are recording-ID based, so they restore 1:1.
func (s *Service) exportAudio(ctx context.Context, zw *zip.Writer) (int, error) {
	entries, err := os.ReadDir(s.audioPath)
	if err != nil {
		if os.IsNotExist(err) {
			return 0, nil
		}
		return 0, err
	}

	count := 0
	for _, entry := range entries {
		if err := ctx.Err(); err != nil {
			return count, err
		}
		if entry.IsDir() {
			continue
		}

		src, err := os.Open(filepath.Join(s.audioPath, entry.Name())) //#nosec G304 -- names come from ReadDir
		if err != nil {
			return count, err
		}

		dst, err := zw.Create(audioDir + entry.Name())
		if err != nil {
			src.Close()
			return count, err
		}
		if _, err := io.Copy(dst, src); err != nil {
			src.Close()
			return count, err
		}
		src.Close()
		count++
	}

	return count, nil
}

// List returns all available backups, newest first.
func (s *Service) List(ctx context.Context) ([]Info, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	entries, err := os.ReadDir(s.backupDir)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, err
	}

	var backups []Info
	for _, entry := range entries {
		if entry.IsDir() || !strings.HasSuffix(entry.Name(), backupSuffix) {
			continue
		}

		info, err := entry.Info()
		if err != nil {
			continue
		}

		backups = append(backups, Info{
			ID:        strings.TrimSuffix(entry.Name(), backupSuffix),
			Path:      filepath.Join(s.backupDir, entry.Name()),
			Size:      info.Size(),
			CreatedAt: info.ModTime(),
		})
	}

	sort.Slice(backups, func(i, j int) bool {
		return backups[i].CreatedAt.After(backups[j].CreatedAt)
	})

	return backups, nil
}

// Get returns a backup by ID.
func (s *Service) Get(ctx context.Context, id string) (*Info, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	path := s.GetPath(id)
	info, err := os.Stat(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, ErrBackupNotFound
		}
		return nil, err
	}

	return &Info{
		ID:        id,
		Path:      path,
		Size:      info.Size(),
		CreatedAt: info.ModTime(),
	}, nil
}

// Delete removes a backup.
func (s *Service) Delete(ctx context.Context, id string) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	path := s.GetPath(id)
	if _, err := os.Stat(path); err != nil {
		if os.IsNotExist(err) {
			return ErrBackupNotFound
		}
		return err
	}

	return os.Remove(path)
}

// GetPath returns the file path for a backup ID.
func (s *Service) GetPath(id string) string {
	return filepath.Join(s.backupDir, id+backupSuffix)
}
