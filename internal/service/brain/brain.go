// Package brain decides, for every incoming chat message, whether the
// companion answers and produces the answer when she does. It is the only
// place that calls the model.
package brain

import (
	"context"
	"errors"
	"strings"
	"sync/atomic"
	"time"

	"github.com/google/uuid"

	"github.com/tosachii/ryosa/internal/core"
	"github.com/tosachii/ryosa/internal/persona"
	"github.com/tosachii/ryosa/internal/service/memory"
	"github.com/tosachii/ryosa/internal/service/prompt"
	"github.com/tosachii/ryosa/pkg/log"
)

// Outcome is the terminal classification of one handled event.
type Outcome string

const (
	// OutcomeIgnored: the author was the companion herself. Not recorded.
	OutcomeIgnored Outcome = "ignored"
	// OutcomeSuppressed: observed but not answered (throttle or relevance).
	OutcomeSuppressed Outcome = "suppressed"
	// OutcomeResponded: model call succeeded, reply is ready to send.
	OutcomeResponded Outcome = "responded"
	// OutcomeFallback: we committed to answering but the model failed; the
	// reply is a neutral persona line the listener may send or drop.
	OutcomeFallback Outcome = "fallback"
)

type Result struct {
	Outcome Outcome
	Reply   string
	// Reason is a short machine word for logs and metrics ("self",
	// "throttled", "below_threshold", "command", "relevant", "model_error").
	Reason string
}

// OutcomeRecorder receives one call per handled event. The web layer plugs
// prometheus counters in here; tests and headless runs use NopRecorder.
type OutcomeRecorder interface {
	RecordOutcome(platform core.Platform, outcome Outcome)
}

type nopRecorder struct{}

func (nopRecorder) RecordOutcome(core.Platform, Outcome) {}

func NopRecorder() OutcomeRecorder { return nopRecorder{} }

type Config struct {
	ModelTimeout time.Duration
	PromptBudget int
}

// Engine wires persona, memory, limiter and model into the decision flow.
// Precedence, first match wins: self-message, explicit command, throttle,
// relevance heuristic, default-silent. Commands skip the per-user cooldown
// and the relevance threshold but never the global bucket.
type Engine struct {
	persona  *persona.Persona
	memory   *memory.Manager
	builder  *prompt.Builder
	provider core.ChatProvider
	limiter  *Limiter
	scorer   *Scorer
	recorder OutcomeRecorder
	cfg      Config

	fallbacks atomic.Uint64
}

func NewEngine(p *persona.Persona, mem *memory.Manager, builder *prompt.Builder, provider core.ChatProvider, limiter *Limiter, scorer *Scorer, recorder OutcomeRecorder, cfg Config) *Engine {
	if recorder == nil {
		recorder = NopRecorder()
	}
	return &Engine{
		persona:  p,
		memory:   mem,
		builder:  builder,
		provider: provider,
		limiter:  limiter,
		scorer:   scorer,
		recorder: recorder,
		cfg:      cfg,
	}
}

// Handle evaluates one event end to end. It never returns an error: every
// failure collapses into a suppressed or fallback result, and no error text
// is ever placed in the reply.
func (e *Engine) Handle(ctx context.Context, event core.ChatEvent) Result {
	logger := log.FromCtx(ctx).With().
		Str("event_id", uuid.NewString()).
		Str("user", core.NormalizeUserID(event.UserID)).
		Str("platform", string(event.Platform)).
		Logger()
	ctx = logger.WithContext(ctx)

	result := e.decide(ctx, event)
	e.recorder.RecordOutcome(event.Platform, result.Outcome)
	logger.Debug().
		Str("outcome", string(result.Outcome)).
		Str("reason", result.Reason).
		Msg("event handled")
	return result
}

func (e *Engine) decide(ctx context.Context, event core.ChatEvent) Result {
	if e.persona.IsSelf(event.UserID) || e.persona.IsSelf(event.DisplayName) {
		return Result{Outcome: OutcomeIgnored, Reason: "self"}
	}

	command := e.persona.IsCommand(event.Text)

	if !e.limiter.Check(event.UserID, command) {
		e.memory.ObserveMessage(ctx, event)
		return Result{Outcome: OutcomeSuppressed, Reason: "throttled"}
	}

	reason := "command"
	if !command {
		if !e.scorer.Relevant(event.Text) {
			e.memory.ObserveMessage(ctx, event)
			return Result{Outcome: OutcomeSuppressed, Reason: "below_threshold"}
		}
		reason = "relevant"
	}

	return e.respond(ctx, event, reason)
}

// respond commits to answering: the cooldown is charged up front so a slow
// or failing model still spends budget, then the prompt is built and the
// model is called under its own deadline.
func (e *Engine) respond(ctx context.Context, event core.ChatEvent, reason string) Result {
	e.limiter.Charge(event.UserID)

	digest := e.memory.SummarizeForPrompt(ctx, event.UserID, event.Channel, e.cfg.PromptBudget)
	payload := e.builder.Build(e.persona, digest, event)

	callCtx, cancel := context.WithTimeout(ctx, e.cfg.ModelTimeout)
	defer cancel()

	reply, err := e.provider.Chat(callCtx, payload)
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) {
			err = errors.Join(core.ErrModelTimeout, err)
		}
		log.FromCtx(ctx).Warn().Err(err).Msg("model call failed, falling back")
		e.memory.ObserveMessage(ctx, event)
		return Result{
			Outcome: OutcomeFallback,
			Reply:   e.persona.Fallback(e.fallbacks.Add(1) - 1),
			Reason:  "model_error",
		}
	}

	text := strings.TrimSpace(reply.Content)
	if text == "" {
		log.FromCtx(ctx).Warn().Msg("model returned an empty reply, falling back")
		e.memory.ObserveMessage(ctx, event)
		return Result{
			Outcome: OutcomeFallback,
			Reply:   e.persona.Fallback(e.fallbacks.Add(1) - 1),
			Reason:  "model_error",
		}
	}

	e.memory.RecordExchange(ctx, memory.Exchange{
		UserID:        event.UserID,
		DisplayName:   event.DisplayName,
		Platform:      event.Platform,
		Channel:       event.Channel,
		UserText:      event.Text,
		AssistantText: text,
		Timestamp:     event.Timestamp,
	})
	return Result{Outcome: OutcomeResponded, Reply: text, Reason: reason}
}
