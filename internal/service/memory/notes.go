package memory

import (
	"regexp"
	"strings"
)

// NoteExtractor turns a chat message into a durable fact worth remembering,
// or reports that there is nothing to keep. It is a strategy so the rules
// can be swapped or tested without touching the manager.
type NoteExtractor interface {
	Extract(displayName, text string) (note string, ok bool)
}

// NoteExtractorFunc adapts a plain func to the interface.
type NoteExtractorFunc func(displayName, text string) (string, bool)

func (f NoteExtractorFunc) Extract(displayName, text string) (string, bool) {
	return f(displayName, text)
}

var (
	rememberRegex = regexp.MustCompile(`(?i)\bremember (?:that )?([^.!?\n]{3,120})`)
	nameRegex     = regexp.MustCompile(`(?i)\bmy name is\s+([A-Za-z0-9][A-Za-z0-9 _\-]{1,40})`)
	likeRegex     = regexp.MustCompile(`(?i)\bi (?:really )?(like|love|prefer|hate|dislike)\s+([^.!?\n]{2,80})`)
	favoriteRegex = regexp.MustCompile(`(?i)\bmy favou?rite\s+([a-z ]{2,30}?)\s+is\s+([^.!?\n]{2,60})`)
)

// DefaultNoteExtractor applies the built-in heuristics, most explicit first.
func DefaultNoteExtractor() NoteExtractor {
	return NoteExtractorFunc(func(displayName, text string) (string, bool) {
		if m := rememberRegex.FindStringSubmatch(text); m != nil {
			return strings.TrimSpace(m[1]), true
		}
		if m := nameRegex.FindStringSubmatch(text); m != nil {
			return "prefers to be called " + strings.TrimSpace(m[1]), true
		}
		if m := favoriteRegex.FindStringSubmatch(text); m != nil {
			return "favorite " + strings.TrimSpace(m[1]) + ": " + strings.TrimSpace(m[2]), true
		}
		if m := likeRegex.FindStringSubmatch(text); m != nil {
			return strings.ToLower(strings.TrimSpace(m[1])) + "s " + strings.TrimSpace(m[2]), true
		}
		return "", false
	})
}

// NopNoteExtractor never extracts. Useful in tests and as an off switch.
func NopNoteExtractor() NoteExtractor {
	return NoteExtractorFunc(func(string, string) (string, bool) { return "", false })
}
