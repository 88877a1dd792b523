// Package main provides a tool to seed the database with demo data.
//
// This creates demo users with tags, papers, and voice memos spread over
// the past two weeks, for exercising list views, sharing, and the prompt
// pipeline against realistic data.
//
// Usage:
//
//	DB_PATH=~/Maple/data/db go run ./cmd/seed
//	DB_PATH=~/Maple/data/db go run ./cmd/seed --audio-path ~/Maple/data/audio
package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"log/slog"
	"math/rand"
	"os"
	"time"

	"github.com/mapleapp/maple-server/internal/auth"
	"github.com/mapleapp/maple-server/internal/domain"
	"github.com/mapleapp/maple-server/internal/id"
	"github.com/mapleapp/maple-server/internal/media/audio"
	"github.com/mapleapp/maple-server/internal/service"
	"github.com/mapleapp/maple-server/internal/store"
)

var audioPath = flag.String("audio-path", "", "Path for uploaded recording audio (optional)")

// demoUsers are the accounts created by the seeder. All share the same
// password: demopass123.
var demoUsers = []struct {
	email string
	name  string
}{
	{"alex@example.com", "Alex Rivera"},
	{"jordan@example.com", "Jordan Chen"},
	{"sam@example.com", "Sam Taylor"},
}

// demoTranscripts open with built-in trigger words so seeded recordings
// exercise the prompt pipeline.
var demoTranscripts = []string{
	"Notes we agreed to ship the tag sharing work by Friday",
	"Summarize the call with the design team went long but we settled on the new list layout",
	"To do pick up the dry cleaning and renew the domain",
	"Email following up on the invoice from last month",
	"just thinking out loud about where the audio files should live",
}

func main() {
	flag.Parse()

	dbPath := os.Getenv("DB_PATH")
	if dbPath == "" {
		dbPath = os.ExpandEnv("$HOME/Maple/data/db")
	}

	fmt.Printf("Opening database at: %s\n", dbPath)

	s, err := store.New(dbPath, nil, store.NewNoopEmitter())
	if err != nil {
		log.Fatalf("Failed to open store: %v", err)
	}
	defer s.Close()

	ctx := context.Background()
	logger := slog.New(slog.DiscardHandler)

	if err := s.SeedBuiltInPrompts(ctx); err != nil {
		log.Fatalf("Failed to seed built-in prompts: %v", err)
	}

	var audioStorage *audio.Storage
	if *audioPath != "" {
		audioStorage, err = audio.NewStorage(*audioPath)
		if err != nil {
			log.Fatalf("Failed to open audio storage: %v", err)
		}
	}

	tags := service.NewTagService(s, "Papers", logger)
	papers := service.NewPaperService(s, logger)
	prompts := service.NewPromptService(s, logger)
	recordings := service.NewRecordingService(
		s, tags, papers, prompts,
		service.PassthroughReformatter{},
		audioStorage,
		store.NewNoopEmitter(),
		100,
		logger,
	)

	rng := rand.New(rand.NewSource(time.Now().UnixNano()))

	users := createDemoUsers(ctx, s)
	if len(users) == 0 {
		log.Fatal("No demo users available")
	}

	for _, user := range users {
		fmt.Printf("\nSeeding data for user: %s (%s)\n", user.DisplayName, user.ID)

		seedTagsAndPapers(ctx, rng, tags, papers, user)
		seedRecordings(ctx, rng, recordings, user)
	}

	// Share the first user's folder with the second so list views have
	// shared papers in them.
	if len(users) >= 2 {
		shareFolder(ctx, tags, users[0], users[1])
	}

	fmt.Println("\nSeeding complete!")
}

// createDemoUsers creates the demo accounts, skipping ones that exist.
func createDemoUsers(ctx context.Context, s *store.Store) []*domain.User {
	fmt.Println("\n=== Creating Demo Users ===")

	passwordHash, err := auth.HashPassword("demopass123")
	if err != nil {
		log.Fatalf("Failed to hash password: %v", err)
	}

	now := time.Now()
	var users []*domain.User

	for _, demo := range demoUsers {
		if existing, err := s.GetUserByEmail(ctx, demo.email); err == nil {
			fmt.Printf("  User %s already exists, skipping\n", demo.email)
			users = append(users, existing)
			continue
		}

		user := &domain.User{
			Entity: domain.Entity{
				ID:        id.MustGenerate("usr"),
				CreatedAt: now,
				UpdatedAt: now,
			},
			Email:        demo.email,
			PasswordHash: passwordHash,
			DisplayName:  demo.name,
		}

		if err := s.CreateUser(ctx, user); err != nil {
			log.Printf("  Failed to create user %s: %v", demo.name, err)
			continue
		}

		fmt.Printf("  Created user: %s (%s)\n", demo.name, demo.email)
		users = append(users, user)
	}

	return users
}

// seedTagsAndPapers gives a user a couple of folders and some papers.
func seedTagsAndPapers(ctx context.Context, rng *rand.Rand, tags *service.TagService, papers *service.PaperService, user *domain.User) {
	// ListUserTags creates the default folder when the user has none.
	userTags, err := tags.ListUserTags(ctx, user.ID)
	if err != nil {
		log.Printf("  Failed to list tags: %v", err)
		return
	}

	reading, err := tags.GetOrCreateNamedTag(ctx, user.ID, domain.TagKindFolder, "Reading List", "")
	if err != nil {
		log.Printf("  Failed to create folder: %v", err)
		return
	}
	userTags = append(userTags, reading)

	titles := []string{"kitchen renovation ideas", "gift list", "standup follow-ups", "vinyl wishlist"}
	created := 0

	for _, title := range titles {
		tag := userTags[rng.Intn(len(userTags))]

		_, err := papers.CreatePaper(ctx, user.ID, service.CreatePaperRequest{
			TagIDs: []string{tag.ID},
			Type:   domain.PaperTypeNote,
			Data: map[string]any{
				"title": title,
				"body":  "seeded note",
			},
		})
		if err != nil {
			log.Printf("  Failed to create paper %q: %v", title, err)
			continue
		}
		created++
	}

	fmt.Printf("  Created %d papers across %d tags\n", created, len(userTags))
}

// seedRecordings creates voice memos over the past 14 days.
func seedRecordings(ctx context.Context, rng *rand.Rand, recordings *service.RecordingService, user *domain.User) {
	now := time.Now()
	created := 0

	for day := 13; day >= 0; day-- {
		// Not every day has a memo; keep today populated.
		if day > 0 && rng.Float32() > 0.6 {
			continue
		}

		transcript := demoTranscripts[rng.Intn(len(demoTranscripts))]
		hour := 8 + rng.Intn(12)
		timestamp := time.Date(now.Year(), now.Month(), now.Day()-day, hour, rng.Intn(60), 0, 0, time.Local)

		_, err := recordings.CreateRecording(ctx, user.ID, service.CreateRecordingRequest{
			Transcript: transcript,
			Duration:   float64(20 + rng.Intn(160)),
			Timestamp:  timestamp,
		})
		if err != nil {
			log.Printf("  Failed to create recording: %v", err)
			continue
		}
		created++
	}

	fmt.Printf("  Created %d recordings\n", created)
}

// shareFolder grants the second user read access to the first user's
// default folder.
func shareFolder(ctx context.Context, tags *service.TagService, owner, grantee *domain.User) {
	ownerTags, err := tags.ListUserTags(ctx, owner.ID)
	if err != nil || len(ownerTags) == 0 {
		log.Printf("Failed to list tags for sharing: %v", err)
		return
	}

	_, err = tags.AddUserToTag(ctx, ownerTags[0].ID, grantee.ID, domain.AccessRead, owner.ID)
	if err != nil {
		log.Printf("Failed to share folder: %v", err)
		return
	}

	fmt.Printf("\nShared %q (%s) with %s\n", ownerTags[0].Value, owner.DisplayName, grantee.DisplayName)
}
