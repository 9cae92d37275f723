// Package learning persists the assistant's accumulated knowledge: the
// operator's standing instructions, confirmed example replies, and the
// per-sender conversation history.
//
// State lives in two human-inspectable JSON files under one directory:
// training_context.json and conversation_history.json. Both are loaded
// fully at startup and rewritten atomically after every mutation, so a
// crash loses at most the in-flight message.
package learning

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/nhle/mail-assistant/internal/model"
)

const (
	trainingFile = "training_context.json"
	historyFile  = "conversation_history.json"
)

// FatalStateError indicates a state file exists but cannot be parsed.
// The process must refuse to start rather than overwrite operator data.
type FatalStateError struct {
	Path string
	Err  error
}

func (e *FatalStateError) Error() string {
	return fmt.Sprintf("corrupt learning state %s: %v", e.Path, e.Err)
}

func (e *FatalStateError) Unwrap() error { return e.Err }

// IsFatalStateError reports whether err (or any error in its chain) is a
// FatalStateError.
func IsFatalStateError(err error) bool {
	var fatalErr *FatalStateError
	return errors.As(err, &fatalErr)
}

// Options bounds the retained learning state.
type Options struct {
	// SystemPrompt seeds a fresh state when no training file exists.
	SystemPrompt string

	// MaxExamples caps retained example responses.
	MaxExamples int

	// MaxHistory caps retained conversation turns per sender.
	MaxHistory int
}

// Store owns the in-memory LearningState and its durable files. It is
// not safe for concurrent use; the single-worker orchestrator design is
// the locking discipline.
type Store struct {
	dir  string
	opts Options

	state *model.LearningState
}

// Open loads the learning state from dir, initializing empty files when
// none exist. A present-but-unparseable file yields a *FatalStateError.
func Open(dir string, opts Options) (*Store, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("creating state directory %s: %w", dir, err)
	}

	s := &Store{
		dir:   dir,
		opts:  opts,
		state: model.NewLearningState(opts.SystemPrompt),
	}

	loadedTraining, err := s.loadTraining()
	if err != nil {
		return nil, err
	}
	loadedHistory, err := s.loadHistory()
	if err != nil {
		return nil, err
	}

	// First run: materialize the files so the operator can inspect them.
	if !loadedTraining || !loadedHistory {
		if err := s.Flush(); err != nil {
			return nil, err
		}
	}

	return s, nil
}

// State returns the in-memory learning state. The caller must route all
// mutations through the Store so they are bounded and flushed.
func (s *Store) State() *model.LearningState {
	return s.state
}

// AddInstruction appends an operator instruction and flushes. Repeated
// calls with identical text produce distinct records.
func (s *Store) AddInstruction(text string) error {
	s.state.AddInstruction(text, time.Now().UTC())
	return s.Flush()
}

// AddExample appends a confirmed example reply, evicting beyond the
// configured cap, and flushes.
func (s *Store) AddExample(ex model.ExampleResponse) error {
	if ex.CreatedAt.IsZero() {
		ex.CreatedAt = time.Now().UTC()
	}
	s.state.AddExample(ex, s.opts.MaxExamples)
	return s.Flush()
}

// RecordTurn appends a conversation turn for sender, evicting beyond the
// per-sender cap, and flushes.
func (s *Store) RecordTurn(sender string, turn model.ConversationTurn) error {
	if turn.CreatedAt.IsZero() {
		turn.CreatedAt = time.Now().UTC()
	}
	s.state.AddTurn(sender, turn, s.opts.MaxHistory)
	return s.Flush()
}

// Flush rewrites both state files. Each file is written to a temporary
// sibling and renamed into place so readers never observe a partial write.
func (s *Store) Flush() error {
	if err := writeJSON(filepath.Join(s.dir, trainingFile), s.trainingDoc()); err != nil {
		return err
	}
	return writeJSON(filepath.Join(s.dir, historyFile), s.state.History)
}

// trainingDoc is the on-disk shape of training_context.json.
type trainingDoc struct {
	SystemPrompt string                  `json:"system_prompt"`
	Instructions []model.Instruction     `json:"additional_instructions"`
	Examples     []model.ExampleResponse `json:"example_responses"`
}

func (s *Store) trainingDoc() trainingDoc {
	return trainingDoc{
		SystemPrompt: s.state.SystemPrompt,
		Instructions: s.state.Instructions,
		Examples:     s.state.Examples,
	}
}

// loadTraining reads training_context.json into the state, reporting
// whether the file existed.
func (s *Store) loadTraining() (bool, error) {
	path := filepath.Join(s.dir, trainingFile)
	data, err := os.ReadFile(path)
	if errors.Is(err, os.ErrNotExist) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("reading %s: %w", path, err)
	}

	var doc trainingDoc
	if err := json.Unmarshal(data, &doc); err != nil {
		return false, &FatalStateError{Path: path, Err: err}
	}

	if doc.SystemPrompt != "" {
		s.state.SystemPrompt = doc.SystemPrompt
	}
	if doc.Instructions != nil {
		s.state.Instructions = doc.Instructions
	}
	if doc.Examples != nil {
		s.state.Examples = doc.Examples
	}

	return true, nil
}

// loadHistory reads conversation_history.json into the state, reporting
// whether the file existed.
func (s *Store) loadHistory() (bool, error) {
	path := filepath.Join(s.dir, historyFile)
	data, err := os.ReadFile(path)
	if errors.Is(err, os.ErrNotExist) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("reading %s: %w", path, err)
	}

	var history map[string][]model.ConversationTurn
	if err := json.Unmarshal(data, &history); err != nil {
		return false, &FatalStateError{Path: path, Err: err}
	}
	if history != nil {
		s.state.History = history
	}

	return true, nil
}

// writeJSON marshals v with indentation and atomically replaces path.
func writeJSON(path string, v any) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("marshaling %s: %w", filepath.Base(path), err)
	}

	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o600); err != nil {
		return fmt.Errorf("writing %s: %w", tmp, err)
	}
	if err := os.Rename(tmp, path); err != nil {
		return fmt.Errorf("replacing %s: %w", path, err)
	}

	return nil
}
