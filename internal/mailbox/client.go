// Package mailbox wraps go-imap v2 as the assistant's view of the
// operator's mail account: search and fetch candidate messages, flag
// them, and append reply drafts.
package mailbox

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/emersion/go-imap/v2"
	"github.com/emersion/go-imap/v2/imapclient"
	"github.com/emersion/go-message/mail"

	"github.com/nhle/mail-assistant/internal/model"
)

// Client connects to one IMAP account. Each operation opens its own
// connection; the assistant's poll cadence makes connection reuse not
// worth the reconnect bookkeeping.
type Client struct {
	host         string
	port         string
	username     string
	password     string
	tls          bool
	folder       string
	draftFolders []string
}

// NewClient creates a mailbox client from the IMAP configuration.
func NewClient(cfg model.IMAPConfig) *Client {
	return &Client{
		host:         cfg.Host,
		port:         cfg.Port,
		username:     cfg.Username,
		password:     cfg.Password,
		tls:          cfg.TLS,
		folder:       cfg.Mailbox,
		draftFolders: cfg.DraftFolders,
	}
}

// connect establishes a connection, authenticates, and returns the
// client. The caller is responsible for Logout.
func (c *Client) connect(_ context.Context) (*imapclient.Client, error) {
	addr := c.host + ":" + c.port

	var client *imapclient.Client
	var err error

	if c.tls {
		client, err = imapclient.DialTLS(addr, nil)
	} else {
		client, err = imapclient.DialStartTLS(addr, nil)
	}
	if err != nil {
		return nil, fmt.Errorf("connecting to IMAP %s: %w", addr, err)
	}

	if err := client.Login(c.username, c.password).Wait(); err != nil {
		_ = client.Logout().Wait()
		return nil, &AuthError{
			Account: c.username,
			Message: fmt.Sprintf("authentication failed: %v", err),
		}
	}

	return client, nil
}

// FetchNew selects the polled folder, runs the search, and fetches each
// match with a peek body section so the seen flag is not disturbed.
func (c *Client) FetchNew(
	ctx context.Context, criteria string,
) ([]model.InboundMessage, error) {
	search, err := ParseCriteria(criteria)
	if err != nil {
		return nil, err
	}

	client, err := c.connect(ctx)
	if err != nil {
		return nil, err
	}
	defer func() { _ = client.Logout().Wait() }()

	if _, err := client.Select(c.folder, nil).Wait(); err != nil {
		return nil, fmt.Errorf("selecting %s: %w", c.folder, err)
	}

	searchData, err := client.UIDSearch(search, nil).Wait()
	if err != nil {
		return nil, fmt.Errorf("searching messages: %w", err)
	}

	uids := searchData.AllUIDs()
	if len(uids) == 0 {
		return nil, nil
	}

	uidSet := imap.UIDSetNum(uids...)

	bodySection := &imap.FetchItemBodySection{
		Peek: true,
	}
	fetchOpts := &imap.FetchOptions{
		Envelope:    true,
		UID:         true,
		BodySection: []*imap.FetchItemBodySection{bodySection},
	}

	fetchCmd := client.Fetch(uidSet, fetchOpts)
	defer fetchCmd.Close()

	var messages []model.InboundMessage
	for {
		msg := fetchCmd.Next()
		if msg == nil {
			break
		}

		buf, err := msg.Collect()
		if err != nil {
			continue
		}

		inbound := messageFromBuffer(buf, bodySection)
		messages = append(messages, inbound)
	}

	if err := fetchCmd.Close(); err != nil {
		return messages, fmt.Errorf("fetching messages: %w", err)
	}

	return messages, nil
}

// MarkRead flags the message seen.
func (c *Client) MarkRead(ctx context.Context, uid uint32) error {
	return c.setSeen(ctx, uid, true)
}

// MarkUnread removes the seen flag from the message.
func (c *Client) MarkUnread(ctx context.Context, uid uint32) error {
	return c.setSeen(ctx, uid, false)
}

func (c *Client) setSeen(ctx context.Context, uid uint32, seen bool) error {
	client, err := c.connect(ctx)
	if err != nil {
		return err
	}
	defer func() { _ = client.Logout().Wait() }()

	if _, err := client.Select(c.folder, nil).Wait(); err != nil {
		return fmt.Errorf("selecting %s: %w", c.folder, err)
	}

	op := imap.StoreFlagsAdd
	if !seen {
		op = imap.StoreFlagsDel
	}

	storeCmd := client.Store(imap.UIDSetNum(imap.UID(uid)), &imap.StoreFlags{
		Op:     op,
		Silent: true,
		Flags:  []imap.Flag{imap.FlagSeen},
	}, nil)

	return storeCmd.Close()
}

// SaveDraft composes the reply as an RFC 5322 message and appends it,
// flagged \Draft, to the first configured drafts folder that accepts it.
// The polled folder is the final fallback so the draft is never lost.
func (c *Client) SaveDraft(ctx context.Context, draft model.Draft) error {
	raw, err := composeDraft(c.username, draft)
	if err != nil {
		return err
	}

	client, err := c.connect(ctx)
	if err != nil {
		return err
	}
	defer func() { _ = client.Logout().Wait() }()

	folders := append([]string{}, c.draftFolders...)
	folders = append(folders, c.folder)

	var lastErr error
	for _, folder := range folders {
		if err := appendDraft(client, folder, raw); err != nil {
			lastErr = err
			continue
		}
		return nil
	}

	return fmt.Errorf("appending draft: %w", lastErr)
}

func appendDraft(client *imapclient.Client, folder string, raw []byte) error {
	appendCmd := client.Append(folder, int64(len(raw)), &imap.AppendOptions{
		Flags: []imap.Flag{imap.FlagDraft},
		Time:  time.Now(),
	})
	if _, err := appendCmd.Write(raw); err != nil {
		_ = appendCmd.Close()
		return fmt.Errorf("writing draft to %s: %w", folder, err)
	}
	if err := appendCmd.Close(); err != nil {
		return fmt.Errorf("closing append to %s: %w", folder, err)
	}
	if _, err := appendCmd.Wait(); err != nil {
		return fmt.Errorf("appending draft to %s: %w", folder, err)
	}
	return nil
}

// composeDraft builds the MIME message for a reply draft.
func composeDraft(from string, draft model.Draft) ([]byte, error) {
	var h mail.Header
	h.SetDate(time.Now())
	h.SetAddressList("From", []*mail.Address{{Address: from}})
	h.SetAddressList("To", []*mail.Address{{Address: model.NormalizeSender(draft.To)}})
	h.SetSubject(draft.Subject)
	if draft.InReplyTo != "" {
		h.SetMsgIDList("In-Reply-To", []string{strings.Trim(draft.InReplyTo, "<>")})
	}
	h.SetContentType("text/plain", map[string]string{"charset": "utf-8"})

	var buf bytes.Buffer
	w, err := mail.CreateSingleInlineWriter(&buf, h)
	if err != nil {
		return nil, fmt.Errorf("composing draft: %w", err)
	}
	if _, err := io.WriteString(w, draft.Body); err != nil {
		_ = w.Close()
		return nil, fmt.Errorf("writing draft body: %w", err)
	}
	if err := w.Close(); err != nil {
		return nil, fmt.Errorf("finishing draft: %w", err)
	}

	return buf.Bytes(), nil
}

// messageFromBuffer extracts an InboundMessage from a fetch result.
func messageFromBuffer(
	buf *imapclient.FetchMessageBuffer,
	bodySection *imap.FetchItemBodySection,
) model.InboundMessage {
	msg := model.InboundMessage{
		UID: uint32(buf.UID),
	}

	if buf.Envelope != nil {
		msg.MessageID = buf.Envelope.MessageID
		msg.Subject = buf.Envelope.Subject
		msg.Date = buf.Envelope.Date

		if len(buf.Envelope.From) > 0 {
			from := buf.Envelope.From[0]
			if from.Name != "" {
				msg.Sender = fmt.Sprintf("%s <%s>", from.Name, from.Addr())
			} else {
				msg.Sender = from.Addr()
			}
		}
		if len(buf.Envelope.ReplyTo) > 0 {
			msg.ReplyTo = buf.Envelope.ReplyTo[0].Addr()
		}
	}

	if rawBody := buf.FindBodySection(bodySection); rawBody != nil {
		msg.Body = parseTextBody(rawBody)
	}

	return msg
}

// parseTextBody extracts the text/plain part of a raw message, falling
// back to the raw bytes when MIME parsing fails.
func parseTextBody(raw []byte) string {
	mr, err := mail.CreateReader(bytes.NewReader(raw))
	if err != nil {
		return string(raw)
	}
	defer mr.Close()

	var htmlBody string
	for {
		part, err := mr.NextPart()
		if err == io.EOF {
			break
		}
		if err != nil {
			break
		}

		h, ok := part.Header.(*mail.InlineHeader)
		if !ok {
			continue
		}

		contentType, _, _ := h.ContentType()
		body, readErr := io.ReadAll(part.Body)
		if readErr != nil {
			continue
		}

		switch {
		case strings.HasPrefix(contentType, "text/plain"):
			return string(body)
		case strings.HasPrefix(contentType, "text/html"):
			htmlBody = string(body)
		}
	}

	return htmlBody
}
