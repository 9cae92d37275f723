package model

import (
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestAddInstructionKeepsDuplicates(t *testing.T) {
	state := NewLearningState("be brief")
	now := time.Now()

	state.AddInstruction("sign off with 'Cheers'", now)
	state.AddInstruction("sign off with 'Cheers'", now)

	assert.Len(t, state.Instructions, 2)
	assert.Equal(t, state.Instructions[0].Text, state.Instructions[1].Text)
}

func TestAddExampleEvictsOldest(t *testing.T) {
	state := NewLearningState("")

	for i := 0; i < 10; i++ {
		state.AddExample(ExampleResponse{
			Subject: fmt.Sprintf("subject %d", i),
		}, 3)
		assert.LessOrEqual(t, len(state.Examples), 3)
	}

	assert.Len(t, state.Examples, 3)
	assert.Equal(t, "subject 7", state.Examples[0].Subject)
	assert.Equal(t, "subject 9", state.Examples[2].Subject)
}

func TestAddTurnBoundsPerSender(t *testing.T) {
	state := NewLearningState("")

	for i := 0; i < 8; i++ {
		state.AddTurn("alice@example.com", ConversationTurn{
			Inbound: fmt.Sprintf("message %d", i),
		}, 5)
	}
	state.AddTurn("bob@example.com", ConversationTurn{Inbound: "hello"}, 5)

	assert.Len(t, state.TurnsFor("alice@example.com"), 5)
	assert.Len(t, state.TurnsFor("bob@example.com"), 1)

	// Oldest dropped, chronological order kept.
	turns := state.TurnsFor("alice@example.com")
	assert.Equal(t, "message 3", turns[0].Inbound)
	assert.Equal(t, "message 7", turns[4].Inbound)
}

func TestAddTurnNormalizesSender(t *testing.T) {
	state := NewLearningState("")

	state.AddTurn("Alice <ALICE@Example.com>", ConversationTurn{Inbound: "one"}, 5)
	state.AddTurn("alice@example.com", ConversationTurn{Inbound: "two"}, 5)

	assert.Len(t, state.TurnsFor("alice@example.com"), 2)
}

func TestNormalizeSender(t *testing.T) {
	cases := []struct {
		in   string
		want string
	}{
		{"alice@example.com", "alice@example.com"},
		{"ALICE@EXAMPLE.COM", "alice@example.com"},
		{"Alice Smith <alice@example.com>", "alice@example.com"},
		{"  Bob <Bob@Example.Com>  ", "bob@example.com"},
	}

	for _, tc := range cases {
		assert.Equal(t, tc.want, NormalizeSender(tc.in), "input %q", tc.in)
	}
}
