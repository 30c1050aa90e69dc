// Package prompt assembles the message payload for a model call: persona,
// what the companion remembers about the speaker, the rolling channel
// history and finally the message being answered.
package prompt

import (
	"fmt"
	"strings"

	"github.com/tosachii/ryosa/internal/core"
	"github.com/tosachii/ryosa/internal/persona"
	"github.com/tosachii/ryosa/internal/service/memory"
)

// Builder renders a digest into chat messages under a token budget.
//
// When the payload overruns the budget, content drops in a fixed order:
// oldest history turns first, then oldest notes, then the persona's style
// elaboration. The identity line and the message being answered are never
// dropped, so the same inputs always yield the same payload.
type Builder struct {
	counter core.TokenCounter
	budget  int
}

func NewBuilder(counter core.TokenCounter, budget int) *Builder {
	return &Builder{counter: counter, budget: budget}
}

// Build produces the full message slice for one model call. The digest's
// notes and turns must be ordered oldest first.
func (b *Builder) Build(p *persona.Persona, d memory.Digest, event core.ChatEvent) []core.Message {
	notes := append([]string(nil), d.Notes...)
	turns := append([]core.Turn(nil), d.Turns...)
	withStyle := true

	for {
		msgs := b.render(p, d, notes, turns, event, withStyle)
		if b.cost(msgs) <= b.budget {
			return msgs
		}
		switch {
		case len(turns) > 0:
			turns = turns[1:]
		case len(notes) > 0:
			notes = notes[1:]
		case withStyle:
			withStyle = false
		default:
			// Identity and the immediate message stay even over budget.
			return msgs
		}
	}
}

func (b *Builder) render(p *persona.Persona, d memory.Digest, notes []string, turns []core.Turn, event core.ChatEvent, withStyle bool) []core.Message {
	var sys strings.Builder
	sys.WriteString(p.Identity)
	if withStyle && p.Style != "" {
		sys.WriteString("\n\n")
		sys.WriteString(p.Style)
	}

	sys.WriteString("\n\n")
	sys.WriteString(d.AffinityLine())

	if note := p.SpecialNote(event.UserID); note != "" {
		sys.WriteString("\n")
		sys.WriteString(note)
	}

	if len(notes) > 0 {
		name := event.DisplayName
		if name == "" {
			name = event.UserID
		}
		sys.WriteString(fmt.Sprintf("\n\nThings you remember about %s:\n", name))
		for _, n := range notes {
			sys.WriteString("- ")
			sys.WriteString(n)
			sys.WriteString("\n")
		}
	}

	msgs := make([]core.Message, 0, len(turns)+2)
	msgs = append(msgs, core.Message{Role: core.RoleSystem, Content: strings.TrimSpace(sys.String())})

	for _, t := range turns {
		msgs = append(msgs, core.Message{Role: t.Role, Content: turnContent(t)})
	}

	msgs = append(msgs, core.Message{
		Role:    core.RoleUser,
		Content: speakerLine(event.DisplayName, event.UserID, event.Text),
	})
	return msgs
}

func (b *Builder) cost(msgs []core.Message) int {
	total := 0
	for _, m := range msgs {
		total += b.counter.Count(m.Content)
	}
	return total
}

// turnContent labels user history lines with the speaker so the model can
// follow a multi-party channel. Assistant lines stay bare.
func turnContent(t core.Turn) string {
	if t.Role == core.RoleAssistant {
		return t.Text
	}
	return speakerLine("", t.UserID, t.Text)
}

func speakerLine(displayName, userID, text string) string {
	name := displayName
	if name == "" {
		name = userID
	}
	if name == "" {
		return text
	}
	return name + ": " + text
}
