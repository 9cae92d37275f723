package mailbox

import (
	"context"
	"errors"
	"fmt"

	"github.com/nhle/mail-assistant/internal/model"
)

// AuthError indicates that mailbox authentication failed.
type AuthError struct {
	Account string
	Message string
}

func (e *AuthError) Error() string {
	return fmt.Sprintf("auth error (%s): %s", e.Account, e.Message)
}

// IsAuthError reports whether err (or any error in its chain) is an AuthError.
func IsAuthError(err error) bool {
	var authErr *AuthError
	return errors.As(err, &authErr)
}

// Mailbox is the capability the orchestrator needs from the IMAP
// transport. The real implementation is Client; tests substitute fakes.
type Mailbox interface {
	// FetchNew searches the polled folder with the given criteria and
	// returns the matching messages with parsed bodies.
	FetchNew(ctx context.Context, criteria string) ([]model.InboundMessage, error)

	// MarkRead flags a message seen.
	MarkRead(ctx context.Context, uid uint32) error

	// MarkUnread removes the seen flag from a message.
	MarkUnread(ctx context.Context, uid uint32) error

	// SaveDraft stores the reply in the drafts area for human review.
	// The save is all-or-nothing.
	SaveDraft(ctx context.Context, draft model.Draft) error
}
