// Package filter decides whether an inbound message is eligible for
// processing. Filtering is a pure function of (message, blacklist) with
// no side effects.
package filter

import (
	"strings"

	"github.com/nhle/mail-assistant/internal/model"
)

// Filter rejects messages from blacklisted senders and messages too
// malformed to answer.
type Filter struct {
	patterns []string
}

// New creates a filter from the configured blacklist patterns. Patterns
// are matched case-insensitively as substrings of the From and Reply-To
// headers.
func New(blacklist []string) *Filter {
	patterns := make([]string, 0, len(blacklist))
	for _, p := range blacklist {
		p = strings.ToLower(strings.TrimSpace(p))
		if p != "" {
			patterns = append(patterns, p)
		}
	}
	return &Filter{patterns: patterns}
}

// Accept reports whether the message should be processed.
func (f *Filter) Accept(msg model.InboundMessage) bool {
	if strings.TrimSpace(msg.Sender) == "" {
		return false
	}
	if strings.TrimSpace(msg.Body) == "" {
		return false
	}

	if f.matches(msg.Sender) {
		return false
	}
	// The original sender may hide behind a clean From header; the
	// Reply-To is checked with the same patterns.
	if msg.ReplyTo != "" && f.matches(msg.ReplyTo) {
		return false
	}

	return true
}

func (f *Filter) matches(address string) bool {
	addr := strings.ToLower(address)
	for _, p := range f.patterns {
		if strings.Contains(addr, p) {
			return true
		}
	}
	return false
}
