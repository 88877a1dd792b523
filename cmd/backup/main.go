// Package main provides a CLI for creating and restoring Maple backups.
//
// Usage:
//
//	go run ./cmd/backup -data-path ~/Maple/data create
//	go run ./cmd/backup -data-path ~/Maple/data restore backup-2026-08-30-120000
//	go run ./cmd/backup -data-path ~/Maple/data list
//	go run ./cmd/backup -data-path ~/Maple/data validate /path/to/backup.maple.zip
//	go run ./cmd/backup -data-path ~/Maple/data delete backup-2026-08-30-120000
package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"strings"

	"github.com/mapleapp/maple-server/internal/api"
	"github.com/mapleapp/maple-server/internal/backup"
	"github.com/mapleapp/maple-server/internal/store"
)

var (
	dataPath  = flag.String("data-path", "", "Base path for data storage (default: ~/Maple/data)")
	audioPath = flag.String("audio-path", "", "Path for uploaded recording audio (default: {data}/audio)")
	backupDir = flag.String("backup-dir", "", "Directory holding backup archives (default: {data}/backups)")
	output    = flag.String("output", "", "Output path for create (default: generated name in backup dir)")
	noAudio   = flag.Bool("no-audio", false, "Skip recording audio when creating a backup")
)

func main() {
	flag.Parse()

	args := flag.Args()
	if len(args) == 0 {
		usage()
		os.Exit(2)
	}

	base := *dataPath
	if base == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			log.Fatalf("Failed to resolve home directory: %v", err)
		}
		base = filepath.Join(home, "Maple", "data")
	}

	audio := *audioPath
	if audio == "" {
		audio = filepath.Join(base, "audio")
	}

	backups := *backupDir
	if backups == "" {
		backups = filepath.Join(base, "backups")
	}

	s, err := store.New(filepath.Join(base, "db"), nil, store.NewNoopEmitter())
	if err != nil {
		log.Fatalf("Failed to open store: %v", err)
	}
	defer s.Close()

	svc := backup.NewService(s, backups, audio, "Maple Server", api.Version, nil)
	ctx := context.Background()

	switch args[0] {
	case "create":
		runCreate(ctx, svc)
	case "restore":
		runRestore(ctx, svc, args[1:])
	case "validate":
		runValidate(ctx, svc, args[1:])
	case "list":
		runList(ctx, svc)
	case "delete":
		runDelete(ctx, svc, args[1:])
	default:
		usage()
		os.Exit(2)
	}
}

func usage() {
	fmt.Fprintln(os.Stderr, "usage: backup [flags] create|restore <id>|validate <path>|list|delete <id>")
	flag.PrintDefaults()
}

func runCreate(ctx context.Context, svc *backup.Service) {
	opts := backup.DefaultOptions()
	opts.IncludeAudio = !*noAudio
	opts.OutputPath = *output

	result, err := svc.Create(ctx, opts)
	if err != nil {
		log.Fatalf("Backup failed: %v", err)
	}

	fmt.Printf("Backup written to %s\n", result.Path)
	fmt.Printf("  Size:     %d bytes\n", result.Size)
	fmt.Printf("  Checksum: %s\n", result.Checksum)
	fmt.Printf("  Users:    %d\n", result.Counts.Users)
	fmt.Printf("  Tags:     %d\n", result.Counts.Tags)
	fmt.Printf("  Papers:   %d\n", result.Counts.Papers)
	fmt.Printf("  Prompts:  %d\n", result.Counts.Prompts)
	if result.Counts.AudioFiles > 0 {
		fmt.Printf("  Audio:    %d files\n", result.Counts.AudioFiles)
	}
	fmt.Printf("  Took:     %s\n", result.Duration)
}

// resolveArchive accepts either a backup ID or a path to an archive.
func resolveArchive(svc *backup.Service, arg string) string {
	if strings.ContainsRune(arg, os.PathSeparator) || strings.HasSuffix(arg, ".zip") {
		return arg
	}
	return svc.GetPath(arg)
}

func runRestore(ctx context.Context, svc *backup.Service, args []string) {
	if len(args) != 1 {
		log.Fatal("restore requires a backup ID or archive path")
	}
	path := resolveArchive(svc, args[0])

	result, err := svc.Restore(ctx, path)
	if err != nil {
		log.Fatalf("Restore failed: %v", err)
	}

	fmt.Printf("Restore complete in %s\n", result.Duration)
	for entity, n := range result.Imported {
		fmt.Printf("  Imported %-8s %d\n", entity+":", n)
	}
	for entity, n := range result.Skipped {
		fmt.Printf("  Skipped  %-8s %d\n", entity+":", n)
	}
	for _, e := range result.Errors {
		fmt.Printf("  ERROR %s %s: %s\n", e.EntityType, e.EntityID, e.Error)
	}
	if len(result.Errors) > 0 {
		os.Exit(1)
	}
}

func runValidate(ctx context.Context, svc *backup.Service, args []string) {
	if len(args) != 1 {
		log.Fatal("validate requires a backup ID or archive path")
	}
	path := resolveArchive(svc, args[0])

	result, err := svc.Validate(ctx, path)
	if err != nil {
		log.Fatalf("Validation failed: %v", err)
	}

	if result.Manifest != nil {
		m := result.Manifest
		fmt.Printf("Backup of %q (Maple %s), created %s\n", m.ServerName, m.MapleVersion, m.CreatedAt.Format("2006-01-02 15:04:05"))
		fmt.Printf("  Users: %d  Tags: %d  Papers: %d  Prompts: %d  Audio: %d\n",
			m.Counts.Users, m.Counts.Tags, m.Counts.Papers, m.Counts.Prompts, m.Counts.AudioFiles)
	}
	for _, w := range result.Warnings {
		fmt.Printf("  warning: %s\n", w)
	}
	for _, e := range result.Errors {
		fmt.Printf("  error: %s\n", e)
	}

	if !result.Valid {
		fmt.Println("Backup is INVALID")
		os.Exit(1)
	}
	fmt.Println("Backup is valid")
}

func runList(ctx context.Context, svc *backup.Service) {
	backups, err := svc.List(ctx)
	if err != nil {
		log.Fatalf("Failed to list backups: %v", err)
	}

	if len(backups) == 0 {
		fmt.Println("No backups found")
		return
	}

	for _, b := range backups {
		fmt.Printf("%s  %10d bytes  %s\n", b.CreatedAt.Format("2006-01-02 15:04:05"), b.Size, b.ID)
	}
}

func runDelete(ctx context.Context, svc *backup.Service, args []string) {
	if len(args) != 1 {
		log.Fatal("delete requires a backup ID")
	}

	if err := svc.Delete(ctx, args[0]); err != nil {
		log.Fatalf("Failed to delete backup: %v", err)
	}
	fmt.Printf("Deleted %s\n", args[0])
}
