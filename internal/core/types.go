package core

import (
	"strings"
	"time"
)

const (
	BotName       = "Ryosa"
	BotUserAgent  = "Ryosa-Companion/0.2"
	RepositoryURL = "https://github.com/tosachii/ryosa"
	Version       = "0.2.0"
)

const (
	RoleSystem    = "system"
	RoleUser      = "user"
	RoleAssistant = "assistant"
)

type Platform string

const (
	PlatformTwitch  Platform = "twitch"
	PlatformDiscord Platform = "discord"
	PlatformWeb     Platform = "web"
)

// ChatEvent is the platform-agnostic form of an inbound chat message.
// Listeners normalize whatever their platform delivers into this shape
// before handing it to the brain.
type ChatEvent struct {
	UserID      string
	DisplayName string
	Platform    Platform
	Channel     string
	Text        string
	Timestamp   time.Time
}

// Message is the wire form sent to the chat-completions endpoint.
type Message struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// Turn is one recorded line of dialogue. Immutable once written.
type Turn struct {
	ID        int64     `json:"id"`
	UserID    string    `json:"user_id"`
	Role      string    `json:"role"`
	Text      string    `json:"text"`
	Channel   string    `json:"channel"`
	Platform  Platform  `json:"platform"`
	Timestamp time.Time `json:"timestamp"`
}

type Affinity string

const (
	AffinityNew      Affinity = "new"
	AffinityRegular  Affinity = "regular"
	AffinityFamiliar Affinity = "familiar"
)

// UserProfile is the long-term memory kept per chat user.
type UserProfile struct {
	UserID           string    `json:"user_id"`
	DisplayName      string    `json:"display_name"`
	Platform         Platform  `json:"platform"`
	FirstSeen        time.Time `json:"first_seen"`
	LastSeen         time.Time `json:"last_seen"`
	InteractionCount int       `json:"interaction_count"`
	Notes            []string  `json:"notes"`

	// Transient marks profiles that only live in memory because storage
	// was unreachable when they were loaded. They are never upserted.
	Transient bool `json:"-"`
}

// Affinity derives a coarse familiarity level from the interaction count.
func (p *UserProfile) Affinity() Affinity {
	switch {
	case p.InteractionCount > 100:
		return AffinityFamiliar
	case p.InteractionCount > 10:
		return AffinityRegular
	default:
		return AffinityNew
	}
}

// AddNote appends a remembered fact, deduplicating and evicting the oldest
// note once capacity is exceeded.
func (p *UserProfile) AddNote(note string, capacity int) bool {
	note = strings.TrimSpace(note)
	if note == "" || capacity <= 0 {
		return false
	}
	for _, existing := range p.Notes {
		if strings.EqualFold(existing, note) {
			return false
		}
	}
	p.Notes = append(p.Notes, note)
	if len(p.Notes) > capacity {
		p.Notes = p.Notes[len(p.Notes)-capacity:]
	}
	return true
}

// NormalizeUserID is the canonical key form for profiles and locks.
// Twitch and Discord names are case-insensitive for our purposes.
func NormalizeUserID(id string) string {
	return strings.ToLower(strings.TrimSpace(id))
}
