package domain

import "strings"

// SystemUserID owns the built-in prompts. It is not a real account; it
// exists so built-ins live in the same store as user prompts and show up
// in every user's prompt list.
const SystemUserID = "usr-system"

// Prompt reformats a recording transcript when its trigger word opens
// the transcript. Trigger words are stored lowercase and are unique per
// user. Built-in prompts belong to the system user and cannot be
// modified or deleted.
type Prompt struct {
	Entity
	UserID      string `json:"user_id"`
	TriggerWord string `json:"trigger_word"`
	PromptText  string `json:"prompt_text"`
	Icon        string `json:"icon"`
	Color       string `json:"color"`
	IsBuiltIn   bool   `json:"is_built_in"`
	IsActive    bool   `json:"is_active"`
}

// NormalizeTrigger canonicalizes a trigger word for storage and matching:
// lowercased, surrounding whitespace and trailing punctuation removed.
func NormalizeTrigger(word string) string {
	word = strings.ToLower(strings.TrimSpace(word))
	return strings.TrimRight(word, ".,!?;:")
}

// BuiltInPrompts returns the prompts seeded for the system user. Callers
// get a fresh slice; mutating it does not affect later calls.
func BuiltInPrompts() []Prompt {
	return []Prompt{
		{
			UserID:      SystemUserID,
			TriggerWord: "email",
			PromptText: `Clean up this transcript while preserving the speaker's natural voice and communication style. Fix any transcription errors, unclear words, or garbled phrases, but maintain:
- The speaker's tone (casual/formal/urgent/friendly)
- Their sentence structure preferences (short/long/direct)
- Any personal speaking patterns or characteristic phrases
- The overall energy and personality of the message

Format as a clean, readable email with:
- An appropriate subject line that matches the speaker's tone
- Natural paragraph breaks where needed
- Corrected spelling and basic grammar
- Clarity improvements only where the meaning was unclear

Do NOT make it overly formal or corporate if the speaker is being casual. Keep their authentic voice.`,
			Icon:      "envelope",
			Color:     "blue",
			IsBuiltIn: true,
			IsActive:  true,
		},
		{
			UserID:      SystemUserID,
			TriggerWord: "notes",
			PromptText:  "Structure this transcript as organized meeting notes. Use bullet points, headers for different topics, and highlight action items and key decisions.",
			Icon:        "note",
			Color:       "yellow",
			IsBuiltIn:   true,
			IsActive:    true,
		},
		{
			UserID:      SystemUserID,
			TriggerWord: "summarize",
			PromptText:  "Create a concise summary of this transcript. Extract the main points and key takeaways. Keep it brief but comprehensive.",
			Icon:        "doc.text",
			Color:       "green",
			IsBuiltIn:   true,
			IsActive:    true,
		},
		{
			UserID:      SystemUserID,
			TriggerWord: "to do",
			PromptText:  "Extract all action items and tasks from this transcript. Format as a clear todo list with each item on its own line. Include any mentioned deadlines or priorities.",
			Icon:        "checkmark.circle",
			Color:       "orange",
			IsBuiltIn:   true,
			IsActive:    true,
		},
		{
			UserID:      SystemUserID,
			TriggerWord: "clean",
			PromptText:  "Clean up this transcript by removing filler words, fixing grammar, and improving clarity while maintaining the original meaning and tone.",
			Icon:        "sparkles",
			Color:       "purple",
			IsBuiltIn:   true,
			IsActive:    true,
		},
	}
}
