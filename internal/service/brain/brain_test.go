package brain

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tosachii/ryosa/internal/core"
	"github.com/tosachii/ryosa/internal/persona"
	"github.com/tosachii/ryosa/internal/service/memory"
	"github.com/tosachii/ryosa/internal/service/prompt"
	"github.com/tosachii/ryosa/internal/storage/memstore"
)

type fakeProvider struct {
	reply string
	err   error
	calls int
}

func (f *fakeProvider) Chat(_ context.Context, _ []core.Message) (core.Message, error) {
	f.calls++
	if f.err != nil {
		return core.Message{}, f.err
	}
	return core.Message{Role: core.RoleAssistant, Content: f.reply}, nil
}

type countingRecorder struct {
	outcomes map[Outcome]int
}

func (r *countingRecorder) RecordOutcome(_ core.Platform, o Outcome) {
	if r.outcomes == nil {
		r.outcomes = make(map[Outcome]int)
	}
	r.outcomes[o]++
}

type engineFixture struct {
	engine   *Engine
	provider *fakeProvider
	store    *memstore.Store
	clock    *fakeClock
	recorder *countingRecorder
}

func newEngineFixture(t *testing.T) *engineFixture {
	t.Helper()

	clock := newFakeClock()
	store := memstore.New()
	provider := &fakeProvider{reply: "hi there!"}
	recorder := &countingRecorder{}

	p := persona.Default()
	mem := memory.NewManager(store, memory.DefaultNoteExtractor(), prompt.Estimator{}, memory.Config{
		ContextWindow: 10,
		NotesCapacity: 20,
	})
	limiter := NewLimiter(LimiterConfig{
		MaxGlobal:    3,
		Window:       5 * time.Second,
		UserCooldown: 2 * time.Second,
	})
	limiter.now = clock.Now

	engine := NewEngine(
		p, mem,
		prompt.NewBuilder(prompt.Estimator{}, 1200),
		provider, limiter,
		NewScorer(p, 0.5),
		recorder,
		Config{ModelTimeout: time.Second, PromptBudget: 1200},
	)
	return &engineFixture{engine: engine, provider: provider, store: store, clock: clock, recorder: recorder}
}

func event(user, text string) core.ChatEvent {
	return core.ChatEvent{
		UserID: user, DisplayName: user, Platform: core.PlatformTwitch,
		Channel: "#lobby", Text: text, Timestamp: time.Now().UTC(),
	}
}

func TestHandle_MentionGetsAnswered(t *testing.T) {
	fx := newEngineFixture(t)
	ctx := context.Background()

	res := fx.engine.Handle(ctx, event("alice", "hey ryosa, how are you?"))

	assert.Equal(t, OutcomeResponded, res.Outcome)
	assert.Equal(t, "hi there!", res.Reply)

	profile, found, err := fx.store.GetUser(ctx, "alice")
	require.NoError(t, err)
	require.True(t, found)
	assert.Equal(t, 1, profile.InteractionCount)

	turns, err := fx.store.RecentTurns(ctx, "#lobby", 10)
	require.NoError(t, err)
	require.Len(t, turns, 2, "user line and reply both recorded")
	assert.Equal(t, core.RoleAssistant, turns[1].Role)
}

func TestHandle_SelfMessageIgnoredEntirely(t *testing.T) {
	fx := newEngineFixture(t)
	ctx := context.Background()

	res := fx.engine.Handle(ctx, event("ryosaia", "hi there!"))

	assert.Equal(t, OutcomeIgnored, res.Outcome)
	assert.Zero(t, fx.provider.calls)

	turns, err := fx.store.RecentTurns(ctx, "#lobby", 10)
	require.NoError(t, err)
	assert.Empty(t, turns, "self messages are not even observed")
}

func TestHandle_IrrelevantChatterObservedNotAnswered(t *testing.T) {
	fx := newEngineFixture(t)
	ctx := context.Background()

	res := fx.engine.Handle(ctx, event("alice", "lol that was wild"))

	assert.Equal(t, OutcomeSuppressed, res.Outcome)
	assert.Equal(t, "below_threshold", res.Reason)
	assert.Zero(t, fx.provider.calls)

	profile, found, err := fx.store.GetUser(ctx, "alice")
	require.NoError(t, err)
	require.True(t, found)
	assert.Equal(t, 0, profile.InteractionCount, "listening does not count as an exchange")

	turns, err := fx.store.RecentTurns(ctx, "#lobby", 10)
	require.NoError(t, err)
	require.Len(t, turns, 1, "the line still enters the rolling window")
}

func TestHandle_GlobalLimitCapsBurst(t *testing.T) {
	fx := newEngineFixture(t)
	ctx := context.Background()

	responded := 0
	for i := 0; i < 10; i++ {
		res := fx.engine.Handle(ctx, event("bob", "!ryosa tell me something"))
		if res.Outcome == OutcomeResponded {
			responded++
		} else {
			assert.Equal(t, "throttled", res.Reason)
		}
	}
	assert.Equal(t, 3, responded, "ten rapid commands yield at most the global burst")
	assert.Equal(t, 7, fx.recorder.outcomes[OutcomeSuppressed])
}

func TestHandle_CommandLosesToExhaustedGlobalLimit(t *testing.T) {
	fx := newEngineFixture(t)
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		fx.engine.Handle(ctx, event("bob", "!ryosa ping"))
	}

	res := fx.engine.Handle(ctx, event("alice", "!ryosa are you there?"))
	assert.Equal(t, OutcomeSuppressed, res.Outcome)
	assert.Equal(t, "throttled", res.Reason)

	turns, err := fx.store.RecentUserTurns(ctx, "alice", 10)
	require.NoError(t, err)
	require.Len(t, turns, 1, "the suppressed command is still observed")
}

func TestHandle_UserCooldownThenRecovery(t *testing.T) {
	fx := newEngineFixture(t)
	ctx := context.Background()

	first := fx.engine.Handle(ctx, event("alice", "ryosa hello!"))
	assert.Equal(t, OutcomeResponded, first.Outcome)

	second := fx.engine.Handle(ctx, event("alice", "ryosa hello again!"))
	assert.Equal(t, OutcomeSuppressed, second.Outcome)
	assert.Equal(t, "throttled", second.Reason)

	fx.clock.Advance(5 * time.Second)
	third := fx.engine.Handle(ctx, event("alice", "ryosa still there?"))
	assert.Equal(t, OutcomeResponded, third.Outcome)
}

func TestHandle_ModelFailureFallsBackAndChargeStands(t *testing.T) {
	fx := newEngineFixture(t)
	fx.provider.err = core.ErrModelCall
	ctx := context.Background()

	res := fx.engine.Handle(ctx, event("alice", "ryosa what's up?"))

	assert.Equal(t, OutcomeFallback, res.Outcome)
	assert.NotEmpty(t, res.Reply)
	assert.NotContains(t, strings.ToLower(res.Reply), "error", "no error text reaches chat")

	profile, _, err := fx.store.GetUser(ctx, "alice")
	require.NoError(t, err)
	assert.Equal(t, 0, profile.InteractionCount, "a failed call is not an exchange")

	turns, err := fx.store.RecentTurns(ctx, "#lobby", 10)
	require.NoError(t, err)
	require.Len(t, turns, 1, "user line kept, no assistant turn")
	assert.Equal(t, core.RoleUser, turns[0].Role)

	// The charge stood: the next non-command message from alice is inside
	// the cooldown even though nothing was answered.
	next := fx.engine.Handle(ctx, event("alice", "ryosa hello?"))
	assert.Equal(t, "throttled", next.Reason)
}

func TestHandle_FallbackLinesRotate(t *testing.T) {
	fx := newEngineFixture(t)
	fx.provider.err = core.ErrModelCall
	ctx := context.Background()

	first := fx.engine.Handle(ctx, event("alice", "!ryosa one"))
	second := fx.engine.Handle(ctx, event("bob", "!ryosa two"))

	require.Equal(t, OutcomeFallback, first.Outcome)
	require.Equal(t, OutcomeFallback, second.Outcome)
	assert.NotEqual(t, first.Reply, second.Reply)
}

func TestHandle_EmptyModelReplyFallsBack(t *testing.T) {
	fx := newEngineFixture(t)
	fx.provider.reply = "   "
	ctx := context.Background()

	res := fx.engine.Handle(ctx, event("alice", "!ryosa say nothing"))
	assert.Equal(t, OutcomeFallback, res.Outcome)
	assert.NotEmpty(t, res.Reply)
}

func TestScorer_SignalsStack(t *testing.T) {
	s := NewScorer(persona.Default(), 0.5)

	tests := []struct {
		name     string
		text     string
		relevant bool
	}{
		{"direct mention", "ryosa are you alive", true},
		{"at-mention", "@ryosa hello", true},
		{"bare question", "anyone know the time?", false},
		{"question plus keyword", "what game is this?", true},
		{"keyword only", "this game rules", false},
		{"plain chatter", "brb grabbing food", false},
		{"alias inside a word stays quiet", "pyrotechnics are cool", false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.relevant, s.Relevant(tt.text), "score %f", s.Score(tt.text))
		})
	}
}
