package domain

import "time"

// Known paper type discriminators. The data payload is schema-free; these
// name the shapes clients currently store. Other values are permitted.
const (
	PaperTypeRecording   = "recording"
	PaperTypeCollectible = "collectible"
	PaperTypeNote        = "note"
	PaperTypeDocument    = "document"
)

// Paper is a generic, polymorphic document envelope: an opaque payload
// keyed by a type discriminator, labeled with one or more tags, owned by
// its creator. Access to a paper is never granted directly, only
// transitively through the grants on its tags.
type Paper struct {
	Entity
	TagIDs    []string       `json:"tag_ids"`
	Type      string         `json:"type"`
	Data      map[string]any `json:"data"`
	CreatedBy string         `json:"created_by"`
}

// HasTag reports whether the paper carries the given tag.
func (p *Paper) HasTag(tagID string) bool {
	for _, id := range p.TagIDs {
		if id == tagID {
			return true
		}
	}
	return false
}

// PaperView is the read shape returned by every read-returning paper
// operation: the stored paper with tag references resolved to full
// tag objects.
type PaperView struct {
	ID        string         `json:"id"`
	Tags      []Tag          `json:"tags"`
	Type      string         `json:"type"`
	Data      map[string]any `json:"data"`
	CreatedBy string         `json:"created_by"`
	CreatedAt time.Time      `json:"created_at"`
	UpdatedAt time.Time      `json:"updated_at"`
}

// PaperPatch is a partial update to a paper. Nil fields are left
// untouched; Data is shallow-merged key by key, TagIDs replaces the
// stored list wholesale when supplied.
type PaperPatch struct {
	TagIDs []string       `json:"tag_ids,omitempty"`
	Data   map[string]any `json:"data,omitempty"`
}
