package main

import (
	"fmt"
	"log"
	"os"
	"strings"

	"encoding/json/v2"

	"github.com/dgraph-io/badger/v4"

	"github.com/mapleapp/maple-server/internal/domain"
)

func main() {
	dbPath := os.Getenv("DB_PATH")
	if dbPath == "" {
		dbPath = os.ExpandEnv("$HOME/Maple/data/db")
	}

	opts := badger.DefaultOptions(dbPath).
		WithReadOnly(true).
		WithLogger(nil)

	db, err := badger.Open(opts)
	if err != nil {
		log.Fatalf("Failed to open database: %v", err)
	}
	defer db.Close()

	fmt.Println("=== Database Inspection ===")
	fmt.Println()

	userCount := 0
	tagCount := 0
	tagsByKind := map[domain.TagKind]int{}
	promptCount := 0
	builtInPrompts := 0

	paperCount := 0
	papersByType := map[string]int{}
	recordingsByStatus := map[string]int{}
	papersShown := 0

	err = db.View(func(txn *badger.Txn) error {
		iterate(txn, "user:", func(key string, val []byte) error {
			userCount++
			return nil
		})

		iterate(txn, "tag:", func(key string, val []byte) error {
			var tag domain.Tag
			if err := json.Unmarshal(val, &tag); err != nil {
				return err
			}
			tagCount++
			tagsByKind[tag.Kind]++
			return nil
		})

		iterate(txn, "prompt:", func(key string, val []byte) error {
			var prompt domain.Prompt
			if err := json.Unmarshal(val, &prompt); err != nil {
				return err
			}
			promptCount++
			if prompt.IsBuiltIn {
				builtInPrompts++
			}
			return nil
		})

		iterate(txn, "paper:", func(key string, val []byte) error {
			var paper domain.Paper
			if err := json.Unmarshal(val, &paper); err != nil {
				return err
			}

			paperCount++
			papersByType[paper.Type]++

			if paper.Type == domain.PaperTypeRecording {
				status, _ := paper.Data["audio_sync_status"].(string)
				if status == "" {
					status = "(unset)"
				}
				recordingsByStatus[status]++
			}

			// Show the first few papers for a quick sanity check.
			if papersShown < 3 {
				papersShown++
				fmt.Printf("Paper: %s\n", paper.ID)
				fmt.Printf("  Type:    %s\n", paper.Type)
				fmt.Printf("  Owner:   %s\n", paper.CreatedBy)
				fmt.Printf("  Tags:    %d\n", len(paper.TagIDs))
				fmt.Printf("  Created: %s\n", paper.CreatedAt.Format("2006-01-02 15:04:05"))
				fmt.Println()
			}
			return nil
		})

		return nil
	})
	if err != nil {
		log.Fatalf("Error iterating database: %v", err)
	}

	fmt.Println("=== Summary ===")
	fmt.Printf("Users:   %d\n", userCount)
	fmt.Printf("Tags:    %d\n", tagCount)
	for kind, n := range tagsByKind {
		fmt.Printf("  %-9s %d\n", string(kind)+":", n)
	}
	fmt.Printf("Papers:  %d\n", paperCount)
	for typ, n := range papersByType {
		fmt.Printf("  %-12s %d\n", typ+":", n)
	}
	if len(recordingsByStatus) > 0 {
		fmt.Println("Recording audio status:")
		for status, n := range recordingsByStatus {
			fmt.Printf("  %-9s %d\n", status+":", n)
		}
	}
	fmt.Printf("Prompts: %d (%d built-in)\n", promptCount, builtInPrompts)
}

// iterate walks every record under prefix, skipping index keys.
func iterate(txn *badger.Txn, prefix string, fn func(key string, val []byte) error) {
	opts := badger.DefaultIteratorOptions
	opts.Prefix = []byte(prefix)
	it := txn.NewIterator(opts)
	defer it.Close()

	for it.Seek([]byte(prefix)); it.ValidForPrefix([]byte(prefix)); it.Next() {
		item := it.Item()
		key := string(item.Key())

		if strings.HasPrefix(key, prefix+"idx:") {
			continue
		}

		err := item.Value(func(val []byte) error {
			return fn(key, append([]byte(nil), val...))
		})
		if err != nil {
			log.Printf("Error reading %s: %v", key, err)
		}
	}
}
