// Package prompt assembles the bounded, provider-agnostic input for a
// generation call from the current message and the learning state.
package prompt

import (
	"fmt"
	"strings"

	"github.com/nhle/mail-assistant/internal/model"
)

// Package is the assembled input handed to a provider. It is immutable
// once built; generation options ride along so providers need no other
// configuration per call.
type Package struct {
	SystemPrompt string
	Context      string
	Temperature  float64
	MaxTokens    int
}

// Assembler builds prompt packages. Building is a pure function of
// (message, state, bounds): identical inputs produce byte-identical
// packages.
type Assembler struct {
	temperature         float64
	maxTokens           int
	maxExamples         int
	maxHistory          int
	maxInstructionChars int
	maxContextChars     int
}

// NewAssembler creates an assembler with the given generation options
// and context bounds.
func NewAssembler(provider model.ProviderConfig, assistant model.AssistantConfig) *Assembler {
	return &Assembler{
		temperature:         provider.Temperature,
		maxTokens:           provider.MaxTokens,
		maxExamples:         assistant.MaxExamples,
		maxHistory:          assistant.MaxHistory,
		maxInstructionChars: assistant.MaxInstructionChars,
		maxContextChars:     assistant.MaxContextChars,
	}
}

// Build assembles the package for one inbound message. Sections appear in
// a fixed order: instructions inside the system prompt (most recent
// first), then example replies (oldest first within the recency window),
// then this sender's history (oldest first), then the current message.
//
// When the total would exceed the configured ceiling, the oldest
// instructions are dropped first, then the oldest examples, then the
// oldest history turns. The current message is never truncated.
func (a *Assembler) Build(msg model.InboundMessage, state *model.LearningState) Package {
	instructions := state.Instructions
	examples := tail(state.Examples, a.maxExamples)
	turns := tail(state.TurnsFor(msg.Sender), a.maxHistory)

	system := a.renderSystem(state.SystemPrompt, instructions)
	context := renderContext(examples, turns, msg)

	if a.maxContextChars > 0 {
		for len(system)+len(context) > a.maxContextChars {
			switch {
			case len(instructions) > 0:
				instructions = instructions[1:]
			case len(examples) > 0:
				examples = examples[1:]
			case len(turns) > 0:
				turns = turns[1:]
			default:
				// Only the static prompt and the current message
				// remain; neither is ever cut.
				system = a.renderSystem(state.SystemPrompt, nil)
				context = renderContext(nil, nil, msg)
				return Package{
					SystemPrompt: system,
					Context:      context,
					Temperature:  a.temperature,
					MaxTokens:    a.maxTokens,
				}
			}
			system = a.renderSystem(state.SystemPrompt, instructions)
			context = renderContext(examples, turns, msg)
		}
	}

	return Package{
		SystemPrompt: system,
		Context:      context,
		Temperature:  a.temperature,
		MaxTokens:    a.maxTokens,
	}
}

// renderSystem combines the static system prompt with the instruction
// block, newest instruction first, bounded by maxInstructionChars.
func (a *Assembler) renderSystem(base string, instructions []model.Instruction) string {
	var sb strings.Builder
	sb.WriteString(base)

	if len(instructions) == 0 {
		return sb.String()
	}

	sb.WriteString("\n\nAdditional Instructions:\n")
	used := 0
	for i := len(instructions) - 1; i >= 0; i-- {
		line := "- " + instructions[i].Text + "\n"
		if a.maxInstructionChars > 0 && used+len(line) > a.maxInstructionChars {
			break
		}
		sb.WriteString(line)
		used += len(line)
	}

	return sb.String()
}

// renderContext builds the user-facing context: examples, per-sender
// history, and the current message, in that order.
func renderContext(
	examples []model.ExampleResponse,
	turns []model.ConversationTurn,
	msg model.InboundMessage,
) string {
	var sb strings.Builder

	if len(examples) > 0 {
		sb.WriteString("Recent example responses:\n\n")
		for _, ex := range examples {
			sb.WriteString(fmt.Sprintf("Subject: %s\n", ex.Subject))
			sb.WriteString(fmt.Sprintf("Original: %s\n", ex.Excerpt))
			sb.WriteString(fmt.Sprintf("Response: %s\n\n", ex.Reply))
		}
	}

	sb.WriteString("Previous conversations with this sender:\n")
	if len(turns) == 0 {
		sb.WriteString("No previous conversations found.\n")
	} else {
		for _, turn := range turns {
			sb.WriteString(fmt.Sprintf("Subject: %s\n", turn.Subject))
			sb.WriteString(fmt.Sprintf("Original: %s\n", turn.Inbound))
			sb.WriteString(fmt.Sprintf("Response: %s\n\n", turn.Reply))
		}
	}

	sb.WriteString("\nNew email to respond to:\n")
	sb.WriteString(fmt.Sprintf("From: %s\n", msg.Sender))
	sb.WriteString(fmt.Sprintf("Subject: %s\n", msg.Subject))
	sb.WriteString(fmt.Sprintf("Content: %s\n", msg.Body))

	return sb.String()
}

// tail returns the last n elements of s, or s itself when it is shorter.
func tail[T any](s []T, n int) []T {
	if n > 0 && len(s) > n {
		return s[len(s)-n:]
	}
	return s
}
