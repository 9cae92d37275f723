// Package assistant drives one message at a time through the reply
// pipeline: filter, context assembly, generation, draft save, learning
// update. A single orchestrator instance owns the learning state, which
// is what serializes all mutations.
package assistant

import (
	"context"
	"log/slog"
	"strings"
	"time"

	"github.com/cenkalti/backoff/v4"

	"github.com/nhle/mail-assistant/internal/filter"
	"github.com/nhle/mail-assistant/internal/journal"
	"github.com/nhle/mail-assistant/internal/mailbox"
	"github.com/nhle/mail-assistant/internal/model"
	"github.com/nhle/mail-assistant/internal/prompt"
	"github.com/nhle/mail-assistant/internal/provider"
)

// Stage identifies how far a message progressed through the pipeline.
type Stage string

const (
	StageFetched      Stage = "fetched"
	StageFiltered     Stage = "filtered"
	StageContextBuilt Stage = "context_built"
	StageGenerated    Stage = "generated"
	StageDraftSaved   Stage = "draft_saved"
	StageLearned      Stage = "learned"
)

// Result is the terminal state of one processed message.
type Result struct {
	// Stage is the last stage the message completed.
	Stage Stage

	// Outcome is one of the journal Outcome* constants.
	Outcome string

	// Err is set for failed outcomes.
	Err error
}

// LearningStore is the slice of the learning store the pipeline needs.
type LearningStore interface {
	State() *model.LearningState
	RecordTurn(sender string, turn model.ConversationTurn) error
}

// Recorder receives terminal outcomes. *journal.Journal implements it.
type Recorder interface {
	Append(ctx context.Context, rec journal.Record) error
}

// Orchestrator runs the per-message state machine.
type Orchestrator struct {
	mailbox   mailbox.Mailbox
	generator provider.Generator
	filter    *filter.Filter
	assembler *prompt.Assembler
	store     LearningStore
	recorder  Recorder
	cfg       model.AssistantConfig
	log       *slog.Logger

	// retryInterval seeds the exponential backoff between attempts.
	retryInterval time.Duration
}

// NewOrchestrator wires the pipeline components together.
func NewOrchestrator(
	mb mailbox.Mailbox,
	gen provider.Generator,
	f *filter.Filter,
	asm *prompt.Assembler,
	store LearningStore,
	rec Recorder,
	cfg model.AssistantConfig,
	log *slog.Logger,
) *Orchestrator {
	return &Orchestrator{
		mailbox:       mb,
		generator:     gen,
		filter:        f,
		assembler:     asm,
		store:         store,
		recorder:      rec,
		cfg:           cfg,
		log:           log,
		retryInterval: 500 * time.Millisecond,
	}
}

// ProcessMessage drives a fetched message to a terminal state. The
// original inbound message is never deleted or mutated; the worst
// failure mode leaves it unread for the next poll to pick up again.
func (o *Orchestrator) ProcessMessage(ctx context.Context, msg model.InboundMessage) Result {
	log := o.log.With(
		"uid", msg.UID,
		"sender", model.NormalizeSender(msg.Sender),
		"subject", msg.Subject,
	)

	// Fetched -> Filtered
	if !o.filter.Accept(msg) {
		log.Info("message skipped by filter")
		if o.cfg.MarkSkippedRead {
			if err := o.mailbox.MarkRead(ctx, msg.UID); err != nil {
				log.Warn("marking skipped message read", "error", err)
			}
		}
		return o.finish(ctx, msg, Result{Stage: StageFiltered, Outcome: journal.OutcomeSkipped})
	}

	// Filtered -> ContextBuilt. Assembly is pure and cannot fail on a
	// message the filter accepted.
	pkg := o.assembler.Build(msg, o.store.State())

	// ContextBuilt -> Generated
	text, err := o.generate(ctx, pkg)
	if err != nil {
		log.Error("generation failed", "error", err)
		return o.finish(ctx, msg, Result{
			Stage:   StageContextBuilt,
			Outcome: journal.OutcomeFailed,
			Err:     err,
		})
	}

	draft := model.Draft{
		To:        msg.Sender,
		Subject:   replySubject(msg.Subject),
		Body:      text,
		InReplyTo: msg.MessageID,
		Provider:  o.generator.Name(),
	}

	// Generated -> DraftSaved. Exhausted retries leave the message
	// unread and eligible for the next poll.
	if err := o.retry(ctx, func() error {
		if err := o.mailbox.SaveDraft(ctx, draft); err != nil {
			return &PersistenceError{Op: "save draft", Err: err}
		}
		return nil
	}); err != nil {
		log.Error("draft save failed", "error", err)
		return o.finish(ctx, msg, Result{
			Stage:   StageGenerated,
			Outcome: journal.OutcomeFailed,
			Err:     err,
		})
	}
	log.Info("draft saved", "provider", draft.Provider)

	// DraftSaved -> Learned. The draft already exists; a failure past
	// this point may produce a duplicate draft on the next poll, which
	// is an accepted, bounded inconsistency.
	turn := model.ConversationTurn{
		Subject:   msg.Subject,
		Inbound:   msg.Body,
		Reply:     text,
		CreatedAt: time.Now().UTC(),
	}
	if err := o.retry(ctx, func() error {
		if err := o.store.RecordTurn(msg.Sender, turn); err != nil {
			return &PersistenceError{Op: "record turn", Err: err}
		}
		return nil
	}); err != nil {
		log.Error("learning update failed", "error", err)
		return o.finish(ctx, msg, Result{
			Stage:   StageDraftSaved,
			Outcome: journal.OutcomeFailed,
			Err:     err,
		})
	}

	if o.cfg.MarkAsRead {
		if err := o.retry(ctx, func() error {
			return o.mailbox.MarkRead(ctx, msg.UID)
		}); err != nil {
			// The draft and the learned turn both stand; the message
			// will be reprocessed and may yield a second draft.
			log.Warn("marking message read failed", "error", err)
		}
	}

	log.Info("message learned")
	return o.finish(ctx, msg, Result{Stage: StageLearned, Outcome: journal.OutcomeLearned})
}

// generate calls the provider, retrying only errors the provider marked
// retryable, up to the configured attempt budget.
func (o *Orchestrator) generate(ctx context.Context, pkg prompt.Package) (string, error) {
	var text string

	err := o.retry(ctx, func() error {
		out, err := o.generator.Generate(ctx, pkg)
		if err != nil {
			if !provider.IsRetryable(err) {
				return backoff.Permanent(err)
			}
			return err
		}
		text = out
		return nil
	})
	if err != nil {
		return "", err
	}

	return text, nil
}

// retry runs op with exponential backoff. MaxAttempts counts the first
// try; permanent errors short-circuit.
func (o *Orchestrator) retry(ctx context.Context, op func() error) error {
	bo := backoff.NewExponentialBackOff()
	bo.InitialInterval = o.retryInterval

	policy := backoff.WithContext(
		backoff.WithMaxRetries(bo, uint64(o.cfg.MaxAttempts-1)),
		ctx,
	)

	return backoff.Retry(op, policy)
}

// finish records the terminal outcome in the journal and returns it.
func (o *Orchestrator) finish(ctx context.Context, msg model.InboundMessage, res Result) Result {
	rec := journal.Record{
		MessageUID: msg.UID,
		MessageID:  msg.MessageID,
		Sender:     model.NormalizeSender(msg.Sender),
		Subject:    msg.Subject,
		Stage:      string(res.Stage),
		Outcome:    res.Outcome,
		Provider:   o.generator.Name(),
	}
	if res.Err != nil {
		rec.Error = res.Err.Error()
	}

	if err := o.recorder.Append(ctx, rec); err != nil {
		o.log.Warn("journal append failed", "uid", msg.UID, "error", err)
	}

	return res
}

// replySubject prefixes Re: unless the thread already carries it.
func replySubject(subject string) string {
	if strings.HasPrefix(strings.ToLower(strings.TrimSpace(subject)), "re:") {
		return subject
	}
	return "Re: " + subject
}
