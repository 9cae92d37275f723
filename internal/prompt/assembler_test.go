package prompt

import (
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nhle/mail-assistant/internal/model"
)

func testAssembler(maxContextChars int) *Assembler {
	return NewAssembler(
		model.ProviderConfig{Temperature: 0.7, MaxTokens: 1024},
		model.AssistantConfig{
			MaxExamples:         5,
			MaxHistory:          5,
			MaxInstructionChars: 2000,
			MaxContextChars:     maxContextChars,
		},
	)
}

func populatedState() *model.LearningState {
	state := model.NewLearningState("You answer mail politely.")
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	state.AddInstruction("keep it short", now)
	state.AddInstruction("sign as Nam", now.Add(time.Minute))
	state.AddExample(model.ExampleResponse{
		Sender:    "alice@example.com",
		Subject:   "invoice",
		Excerpt:   "please send the invoice",
		Reply:     "attached, thanks",
		CreatedAt: now,
	}, 5)
	state.AddTurn("bob@example.com", model.ConversationTurn{
		Subject:   "meeting",
		Inbound:   "can we meet tuesday?",
		Reply:     "tuesday works",
		CreatedAt: now,
	}, 5)
	return state
}

func inbound() model.InboundMessage {
	return model.InboundMessage{
		Sender:  "bob@example.com",
		Subject: "meeting again",
		Body:    "how about thursday?",
	}
}

func TestBuildIsDeterministic(t *testing.T) {
	asm := testAssembler(0)
	state := populatedState()
	msg := inbound()

	first := asm.Build(msg, state)
	second := asm.Build(msg, state)

	assert.Equal(t, first, second)
}

func TestBuildSectionOrder(t *testing.T) {
	pkg := testAssembler(0).Build(inbound(), populatedState())

	// Instructions render newest first inside the system prompt.
	signIdx := strings.Index(pkg.SystemPrompt, "- sign as Nam")
	shortIdx := strings.Index(pkg.SystemPrompt, "- keep it short")
	require.GreaterOrEqual(t, signIdx, 0)
	require.GreaterOrEqual(t, shortIdx, 0)
	assert.Less(t, signIdx, shortIdx)

	examplesIdx := strings.Index(pkg.Context, "Recent example responses:")
	historyIdx := strings.Index(pkg.Context, "Previous conversations with this sender:")
	currentIdx := strings.Index(pkg.Context, "New email to respond to:")
	require.GreaterOrEqual(t, examplesIdx, 0)
	require.GreaterOrEqual(t, historyIdx, 0)
	require.GreaterOrEqual(t, currentIdx, 0)
	assert.Less(t, examplesIdx, historyIdx)
	assert.Less(t, historyIdx, currentIdx)

	assert.Contains(t, pkg.Context, "Original: can we meet tuesday?")
	assert.Contains(t, pkg.Context, "Content: how about thursday?")
}

func TestBuildNoHistoryPlaceholder(t *testing.T) {
	state := model.NewLearningState("base")
	pkg := testAssembler(0).Build(inbound(), state)

	assert.Contains(t, pkg.Context, "No previous conversations found.")
	assert.NotContains(t, pkg.Context, "Recent example responses:")
}

func TestBuildHistoryIsPerSender(t *testing.T) {
	state := populatedState()
	state.AddTurn("carol@example.com", model.ConversationTurn{
		Subject: "other", Inbound: "unrelated", Reply: "indeed",
	}, 5)

	pkg := testAssembler(0).Build(inbound(), state)

	assert.Contains(t, pkg.Context, "can we meet tuesday?")
	assert.NotContains(t, pkg.Context, "unrelated")
}

func TestBuildRecencyWindows(t *testing.T) {
	asm := NewAssembler(
		model.ProviderConfig{Temperature: 0.7, MaxTokens: 1024},
		model.AssistantConfig{MaxExamples: 2, MaxHistory: 2, MaxInstructionChars: 2000},
	)

	state := model.NewLearningState("base")
	for i := 0; i < 6; i++ {
		state.AddExample(model.ExampleResponse{Subject: fmt.Sprintf("example %d", i)}, 10)
		state.AddTurn("bob@example.com", model.ConversationTurn{
			Inbound: fmt.Sprintf("turn %d", i),
		}, 10)
	}

	pkg := asm.Build(inbound(), state)

	assert.NotContains(t, pkg.Context, "example 3")
	assert.Contains(t, pkg.Context, "example 4")
	assert.Contains(t, pkg.Context, "example 5")
	assert.NotContains(t, pkg.Context, "turn 3")
	assert.Contains(t, pkg.Context, "turn 4")
	assert.Contains(t, pkg.Context, "turn 5")
}

func TestBuildCeilingDropsOldestFirst(t *testing.T) {
	state := populatedState()
	msg := inbound()

	full := testAssembler(0).Build(msg, state)

	// A budget just below the full size forces exactly one eviction, and
	// the oldest instruction goes first.
	budget := len(full.SystemPrompt) + len(full.Context) - 1
	pkg := testAssembler(budget).Build(msg, state)

	assert.NotContains(t, pkg.SystemPrompt, "keep it short")
	assert.Contains(t, pkg.SystemPrompt, "sign as Nam")
	assert.Contains(t, pkg.Context, "can we meet tuesday?")
}

func TestBuildNeverDropsCurrentMessage(t *testing.T) {
	pkg := testAssembler(10).Build(inbound(), populatedState())

	assert.Contains(t, pkg.Context, "From: bob@example.com")
	assert.Contains(t, pkg.Context, "Subject: meeting again")
	assert.Contains(t, pkg.Context, "Content: how about thursday?")
	assert.NotContains(t, pkg.Context, "Recent example responses:")
	assert.NotContains(t, pkg.SystemPrompt, "Additional Instructions:")
}

func TestBuildCarriesGenerationOptions(t *testing.T) {
	pkg := testAssembler(0).Build(inbound(), populatedState())

	assert.Equal(t, 0.7, pkg.Temperature)
	assert.Equal(t, 1024, pkg.MaxTokens)
}
