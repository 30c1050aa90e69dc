// Package memory presents a unified view of a user's long-term facts and
// recent dialogue and evolves it safely under concurrent listeners.
package memory

import (
	"context"
	"fmt"
	"time"

	"github.com/tosachii/ryosa/internal/core"
	"github.com/tosachii/ryosa/internal/storage/memstore"
	"github.com/tosachii/ryosa/pkg/log"
)

type Config struct {
	ContextWindow int
	NotesCapacity int
}

// Manager owns all profile and turn mutation. Same-user calls are serialized
// by a keyed mutex; distinct users proceed in parallel.
//
// Storage failures degrade: reads and writes fall through to an in-process
// store so the current session keeps its context, and the bot keeps running.
type Manager struct {
	store     core.Store
	transient *memstore.Store
	extractor NoteExtractor
	counter   core.TokenCounter
	cfg       Config
	locks     *keyedMutex
	now       func() time.Time
}

func NewManager(store core.Store, extractor NoteExtractor, counter core.TokenCounter, cfg Config) *Manager {
	return &Manager{
		store:     store,
		transient: memstore.New(),
		extractor: extractor,
		counter:   counter,
		cfg:       cfg,
		locks:     newKeyedMutex(),
		now:       time.Now,
	}
}

// LoadOrCreate returns the user's profile, creating a fresh one in memory on
// first sight. It never writes: persistence happens on the first observed
// message, so repeated loads of an unseen user have no side effects.
//
// Fails open: if storage is unreachable the returned profile is transient
// with a zero interaction count.
func (m *Manager) LoadOrCreate(ctx context.Context, userID, displayName string, platform core.Platform) core.UserProfile {
	key := core.NormalizeUserID(userID)
	unlock := m.locks.lock(key)
	defer unlock()

	return m.loadOrCreateLocked(ctx, key, displayName, platform)
}

func (m *Manager) loadOrCreateLocked(ctx context.Context, key, displayName string, platform core.Platform) core.UserProfile {
	profile, found, err := m.store.GetUser(ctx, key)
	if err != nil {
		log.FromCtx(ctx).Warn().Err(err).Str("user", key).Msg("profile read failed, degrading to transient memory")
		profile, found, _ = m.transient.GetUser(ctx, key)
		profile.Transient = true
	}
	if found {
		if displayName != "" {
			profile.DisplayName = displayName
		}
		return profile
	}

	now := m.now().UTC()
	return core.UserProfile{
		UserID:      key,
		DisplayName: displayName,
		Platform:    platform,
		FirstSeen:   now,
		LastSeen:    now,
	}
}

// ObserveMessage records a message the companion chose not to answer. The
// turn still enters the rolling window (she listens even when silent) and
// the user's activity is refreshed, but the interaction count is untouched.
func (m *Manager) ObserveMessage(ctx context.Context, event core.ChatEvent) {
	key := core.NormalizeUserID(event.UserID)
	unlock := m.locks.lock(key)
	defer unlock()

	profile := m.loadOrCreateLocked(ctx, key, event.DisplayName, event.Platform)
	profile.LastSeen = m.now().UTC()

	// Profile first: a recorded turn always references an existing profile.
	m.saveProfile(ctx, profile)
	m.appendTurn(ctx, core.Turn{
		UserID:    key,
		Role:      core.RoleUser,
		Text:      event.Text,
		Channel:   event.Channel,
		Platform:  event.Platform,
		Timestamp: event.Timestamp,
	})
}

// Exchange is one answered message: the user's line and the reply.
type Exchange struct {
	UserID        string
	DisplayName   string
	Platform      core.Platform
	Channel       string
	UserText      string
	AssistantText string
	Timestamp     time.Time
}

// RecordExchange appends both turns of a completed exchange, bumps the
// interaction count by exactly one, refreshes activity and runs note
// extraction on the user's line. Call only after the model call fully
// succeeded.
func (m *Manager) RecordExchange(ctx context.Context, ex Exchange) core.UserProfile {
	key := core.NormalizeUserID(ex.UserID)
	unlock := m.locks.lock(key)
	defer unlock()

	profile := m.loadOrCreateLocked(ctx, key, ex.DisplayName, ex.Platform)
	profile.LastSeen = m.now().UTC()
	profile.InteractionCount++

	if note, ok := m.extractor.Extract(ex.DisplayName, ex.UserText); ok {
		if profile.AddNote(note, m.cfg.NotesCapacity) {
			log.FromCtx(ctx).Info().Str("user", key).Str("note", note).Msg("remembered a new fact")
		}
	}

	ts := ex.Timestamp
	if ts.IsZero() {
		ts = m.now().UTC()
	}
	// Profile first: a recorded turn always references an existing profile.
	m.saveProfile(ctx, profile)
	m.appendTurn(ctx, core.Turn{
		UserID: key, Role: core.RoleUser, Text: ex.UserText,
		Channel: ex.Channel, Platform: ex.Platform, Timestamp: ts,
	})
	m.appendTurn(ctx, core.Turn{
		UserID: key, Role: core.RoleAssistant, Text: ex.AssistantText,
		Channel: ex.Channel, Platform: ex.Platform, Timestamp: ts.Add(time.Millisecond),
	})
	return profile
}

// Digest is the compact memory view handed to the context builder. Notes and
// turns are ordered oldest first so the builder can drop from the front.
type Digest struct {
	Profile core.UserProfile
	Notes   []string
	Turns   []core.Turn
}

// AffinityLine renders the familiarity summary the prompt leads with.
func (d Digest) AffinityLine() string {
	name := d.Profile.DisplayName
	if name == "" {
		name = d.Profile.UserID
	}
	switch d.Profile.Affinity() {
	case core.AffinityFamiliar:
		return fmt.Sprintf("%s is a close regular (%d exchanges so far).", name, d.Profile.InteractionCount)
	case core.AffinityRegular:
		return fmt.Sprintf("%s drops by often (%d exchanges so far).", name, d.Profile.InteractionCount)
	default:
		return fmt.Sprintf("%s is fairly new here.", name)
	}
}

// SummarizeForPrompt builds a digest sized to the token budget. Rolling
// turns are trimmed oldest first, then notes; the newest turn is kept whole,
// never cut mid-sentence, even if it alone overruns the budget.
func (m *Manager) SummarizeForPrompt(ctx context.Context, userID, channel string, budget int) Digest {
	key := core.NormalizeUserID(userID)
	unlock := m.locks.lock(key)
	profile := m.loadOrCreateLocked(ctx, key, "", "")
	unlock()

	turns := m.recentTurns(ctx, channel)

	d := Digest{
		Profile: profile,
		Notes:   append([]string(nil), profile.Notes...),
		Turns:   turns,
	}

	cost := func(d Digest) int {
		total := m.counter.Count(d.AffinityLine())
		for _, n := range d.Notes {
			total += m.counter.Count(n)
		}
		for _, t := range d.Turns {
			total += m.counter.Count(t.Text)
		}
		return total
	}

	for cost(d) > budget && len(d.Turns) > 1 {
		d.Turns = d.Turns[1:]
	}
	for cost(d) > budget && len(d.Notes) > 0 {
		d.Notes = d.Notes[1:]
	}
	return d
}

func (m *Manager) recentTurns(ctx context.Context, channel string) []core.Turn {
	turns, err := m.store.RecentTurns(ctx, channel, m.cfg.ContextWindow)
	if err != nil {
		log.FromCtx(ctx).Warn().Err(err).Str("channel", channel).Msg("turn read failed, using transient window")
		turns, _ = m.transient.RecentTurns(ctx, channel, m.cfg.ContextWindow)
	}
	return turns
}

func (m *Manager) appendTurn(ctx context.Context, turn core.Turn) {
	if err := m.store.AppendTurn(ctx, turn); err != nil {
		log.FromCtx(ctx).Warn().Err(err).Str("user", turn.UserID).Msg("turn write failed, keeping in transient memory")
	}
	// Mirror into the transient window so a flaky backend still leaves a
	// usable rolling context.
	_ = m.transient.AppendTurn(ctx, turn)
}

func (m *Manager) saveProfile(ctx context.Context, profile core.UserProfile) {
	if !profile.Transient {
		if err := m.store.UpsertUser(ctx, profile); err != nil {
			log.FromCtx(ctx).Warn().Err(err).Str("user", profile.UserID).Msg("profile write failed")
			profile.Transient = true
		}
	}
	_ = m.transient.UpsertUser(ctx, profile)
}
