package model

import (
	"strings"
	"time"
)

// Instruction is a free-text operator directive that shapes future replies.
// Instructions are append-only; insertion order is preserved and meaningful.
type Instruction struct {
	Text      string    `json:"instruction"`
	CreatedAt time.Time `json:"timestamp"`
}

// ExampleResponse pairs an original message with the reply the operator
// actually sent, used as a few-shot exemplar for future drafts.
type ExampleResponse struct {
	Sender    string    `json:"sender"`
	Subject   string    `json:"subject"`
	Excerpt   string    `json:"original_content"`
	Reply     string    `json:"response"`
	CreatedAt time.Time `json:"timestamp"`
}

// ConversationTurn is one inbound message and the reply drafted for it,
// kept per sender so the model sees the running dialogue.
type ConversationTurn struct {
	Subject   string    `json:"subject"`
	Inbound   string    `json:"content"`
	Reply     string    `json:"response"`
	CreatedAt time.Time `json:"timestamp"`
}

// LearningState aggregates everything the assistant has been taught:
// the static system prompt, standing instructions, confirmed example
// replies, and per-sender conversation history.
//
// Slices are kept in insertion order and never re-sorted; when two
// entries carry the same timestamp, their relative order on disk is
// their relative order in memory.
type LearningState struct {
	SystemPrompt string                        `json:"system_prompt"`
	Instructions []Instruction                 `json:"additional_instructions"`
	Examples     []ExampleResponse             `json:"example_responses"`
	History      map[string][]ConversationTurn `json:"-"`
}

// NewLearningState returns an empty state seeded with the given system prompt.
func NewLearningState(systemPrompt string) *LearningState {
	return &LearningState{
		SystemPrompt: systemPrompt,
		Instructions: []Instruction{},
		Examples:     []ExampleResponse{},
		History:      make(map[string][]ConversationTurn),
	}
}

// AddInstruction appends an operator instruction. Calls are intentionally
// not deduplicated; adding the same text twice yields two records.
func (s *LearningState) AddInstruction(text string, now time.Time) {
	s.Instructions = append(s.Instructions, Instruction{
		Text:      text,
		CreatedAt: now,
	})
}

// AddExample appends a confirmed example reply, evicting the oldest
// entries beyond maxExamples.
func (s *LearningState) AddExample(ex ExampleResponse, maxExamples int) {
	s.Examples = append(s.Examples, ex)
	if maxExamples > 0 && len(s.Examples) > maxExamples {
		s.Examples = s.Examples[len(s.Examples)-maxExamples:]
	}
}

// AddTurn appends a conversation turn for the given sender, evicting the
// oldest turns beyond maxHistory. The sender address is normalized so
// "Alice <ALICE@Example.com>" and "alice@example.com" share one history.
func (s *LearningState) AddTurn(
	sender string,
	turn ConversationTurn,
	maxHistory int,
) {
	if s.History == nil {
		s.History = make(map[string][]ConversationTurn)
	}

	key := NormalizeSender(sender)
	turns := append(s.History[key], turn)
	if maxHistory > 0 && len(turns) > maxHistory {
		turns = turns[len(turns)-maxHistory:]
	}
	s.History[key] = turns
}

// TurnsFor returns the conversation history recorded for a sender,
// oldest first. The returned slice is shared; callers must not mutate it.
func (s *LearningState) TurnsFor(sender string) []ConversationTurn {
	return s.History[NormalizeSender(sender)]
}

// NormalizeSender lowercases an address and strips any display-name
// wrapper, so history lookups are stable across header formatting.
func NormalizeSender(sender string) string {
	addr := strings.TrimSpace(sender)
	if start := strings.LastIndex(addr, "<"); start >= 0 {
		if end := strings.Index(addr[start:], ">"); end > 0 {
			addr = addr[start+1 : start+end]
		}
	}
	return strings.ToLower(strings.TrimSpace(addr))
}
