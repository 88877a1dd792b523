package service

import (
	"context"
	"regexp"
	"sort"
	"strings"

	"github.com/mapleapp/maple-server/internal/domain"
)

// transcriptPunctuation are the characters treated as word boundaries
// and stripped around trigger words.
const transcriptPunctuation = ".,!?;:"

// noProcessingApplied is recorded in the history when no prompt matched.
const noProcessingApplied = "No processing applied"

// Reformatter rewrites a transcript according to a prompt. The
// production implementation calls an external text-generation API; this
// package only depends on the interface.
type Reformatter interface {
	Reformat(ctx context.Context, promptText, transcript string) (string, error)
}

// PassthroughReformatter returns the transcript unchanged. Used when no
// reformatting backend is configured, and as the test double.
type PassthroughReformatter struct{}

func (PassthroughReformatter) Reformat(_ context.Context, _, transcript string) (string, error) {
	return transcript, nil
}

// MatchPrompt selects the prompt whose trigger word opens the
// transcript. Candidates are tried longest trigger first so "to do"
// wins over "to". The trigger must be a whole-word prefix: followed by
// whitespace, terminal punctuation, or the end of the transcript.
// When nothing matches, explicitTrigger (if given) selects a prompt by
// exact trigger word. Returns nil when no prompt applies.
func MatchPrompt(prompts []domain.Prompt, transcript, explicitTrigger string) *domain.Prompt {
	normalized := strings.ToLower(strings.TrimSpace(transcript))
	normalized = strings.TrimLeft(normalized, transcriptPunctuation)

	candidates := make([]domain.Prompt, len(prompts))
	copy(candidates, prompts)
	sort.SliceStable(candidates, func(i, j int) bool {
		return len(candidates[i].TriggerWord) > len(candidates[j].TriggerWord)
	})

	for i := range candidates {
		trigger := candidates[i].TriggerWord
		if trigger == "" || !strings.HasPrefix(normalized, trigger) {
			continue
		}
		if len(normalized) == len(trigger) {
			return &candidates[i]
		}
		next := normalized[len(trigger)]
		if next == ' ' || strings.IndexByte(transcriptPunctuation, next) >= 0 {
			return &candidates[i]
		}
	}

	if explicitTrigger != "" {
		want := domain.NormalizeTrigger(explicitTrigger)
		for i := range candidates {
			if candidates[i].TriggerWord == want {
				return &candidates[i]
			}
		}
	}

	return nil
}

// StripTrigger removes the trigger word, any punctuation attached to
// it, and following whitespace from the start of the transcript.
func StripTrigger(transcript, trigger string) string {
	if trigger == "" {
		return transcript
	}
	re := regexp.MustCompile(`(?i)^\s*` + regexp.QuoteMeta(trigger) + `[.,!?;:]*\s*`)
	return re.ReplaceAllString(transcript, "")
}

// ProcessTranscript runs a transcript through the prompt pipeline:
// match a prompt, strip its trigger word, and reformat the remainder.
// When no prompt matches the transcript passes through unmodified and
// the returned PromptUsed records that nothing was applied.
func ProcessTranscript(ctx context.Context, reformatter Reformatter, prompts []domain.Prompt, transcript, explicitTrigger string) (string, domain.PromptUsed, error) {
	prompt := MatchPrompt(prompts, transcript, explicitTrigger)
	if prompt == nil {
		used := domain.PromptUsed{
			TriggerWord: "none",
			PromptText:  noProcessingApplied,
		}
		if explicitTrigger != "" {
			used.TriggerWord = explicitTrigger
		}
		return transcript, used, nil
	}

	stripped := StripTrigger(transcript, prompt.TriggerWord)
	output, err := reformatter.Reformat(ctx, prompt.PromptText, stripped)
	if err != nil {
		return "", domain.PromptUsed{}, err
	}

	return output, domain.PromptUsed{
		TriggerWord: prompt.TriggerWord,
		PromptText:  prompt.PromptText,
	}, nil
}
