package model

import "time"

// InboundMessage is a fetched mailbox message awaiting processing.
// It is transient: only the ConversationTurn derived from it survives.
type InboundMessage struct {
	// UID is the message's IMAP UID within the selected mailbox.
	UID uint32

	// MessageID is the RFC 5322 Message-ID header, used for the
	// In-Reply-To header of the drafted reply.
	MessageID string

	// Sender is the From address, display name included when present.
	Sender string

	// ReplyTo is the Reply-To address, empty when the header is absent.
	ReplyTo string

	Subject string
	Body    string
	Date    time.Time
}

// Draft is a generated reply between generation and draft save.
// It is never partially saved.
type Draft struct {
	To        string
	Subject   string
	Body      string
	InReplyTo string

	// Provider names the model vendor that produced the body.
	Provider string
}
