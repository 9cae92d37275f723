package assistant

import (
	"context"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nhle/mail-assistant/internal/model"
)

func newTestRunner(mb *fakeMailbox, store *fakeStore) (*Runner, *fakeGenerator) {
	cfg := testConfig()
	cfg.PollIntervalSec = 0

	gen := &fakeGenerator{text: "Thursday works."}
	orch := newTestOrchestrator(mb, gen, store, &fakeRecorder{}, cfg)

	return NewRunner(orch, mb, cfg, slog.New(slog.NewTextHandler(io.Discard, nil))), gen
}

func TestRunCycleProcessesBatchInOrder(t *testing.T) {
	first := testMessage()
	second := testMessage()
	second.UID = 8
	second.Subject = "followup"

	mb := &fakeMailbox{messages: []model.InboundMessage{first, second}}
	store := newFakeStore()
	r, _ := newTestRunner(mb, store)

	require.NoError(t, r.runCycle(context.Background()))

	require.Len(t, mb.drafts, 2)
	assert.Equal(t, "Re: meeting", mb.drafts[0].Subject)
	assert.Equal(t, "Re: followup", mb.drafts[1].Subject)
	assert.Equal(t, []uint32{7, 8}, mb.readUIDs)
	assert.Len(t, store.turns["bob@example.com"], 2)
}

func TestRunCycleEmptyBatch(t *testing.T) {
	mb := &fakeMailbox{}
	r, gen := newTestRunner(mb, newFakeStore())

	require.NoError(t, r.runCycle(context.Background()))
	assert.Zero(t, gen.calls)
}

func TestRunCycleFailedMessageDoesNotHaltBatch(t *testing.T) {
	first := testMessage()
	second := testMessage()
	second.UID = 8

	mb := &fakeMailbox{messages: []model.InboundMessage{first, second}}
	store := newFakeStore()
	r, gen := newTestRunner(mb, store)
	gen.errs = []error{permanentErr()}

	require.NoError(t, r.runCycle(context.Background()))

	// The first message fails, the second still gets its draft.
	require.Len(t, mb.drafts, 1)
	assert.Equal(t, []uint32{8}, mb.readUIDs)
}

func TestRunCycleStopsBetweenMessagesOnCancel(t *testing.T) {
	mb := &fakeMailbox{messages: []model.InboundMessage{testMessage(), testMessage()}}
	r, gen := newTestRunner(mb, newFakeStore())

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	require.NoError(t, r.runCycle(ctx))
	assert.Zero(t, gen.calls)
}

func TestRunStopsOnCancel(t *testing.T) {
	mb := &fakeMailbox{}
	r, _ := newTestRunner(mb, newFakeStore())

	ctx, cancel := context.WithCancel(context.Background())

	done := make(chan error, 1)
	go func() { done <- r.Run(ctx) }()

	time.Sleep(10 * time.Millisecond)
	cancel()

	select {
	case err := <-done:
		require.NoError(t, err)
	case <-time.After(time.Second):
		t.Fatal("runner did not stop after cancellation")
	}
}
