package filter

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/nhle/mail-assistant/internal/model"
)

func TestAcceptBlacklist(t *testing.T) {
	f := New([]string{"spam@example.com", "noreply"})

	tests := []struct {
		name string
		msg  model.InboundMessage
		want bool
	}{
		{
			name: "clean sender accepted",
			msg:  model.InboundMessage{Sender: "user@example.com", Body: "hello"},
			want: true,
		},
		{
			name: "blacklisted sender rejected",
			msg:  model.InboundMessage{Sender: "spam@example.com", Body: "buy now"},
			want: false,
		},
		{
			name: "match is case-insensitive",
			msg:  model.InboundMessage{Sender: "SPAM@Example.COM", Body: "buy now"},
			want: false,
		},
		{
			name: "pattern matches as substring",
			msg:  model.InboundMessage{Sender: "News <noreply@shop.example>", Body: "deals"},
			want: false,
		},
		{
			name: "display name form still matched",
			msg:  model.InboundMessage{Sender: "Spammer <spam@example.com>", Body: "buy"},
			want: false,
		},
		{
			name: "blacklisted reply-to rejected",
			msg: model.InboundMessage{
				Sender:  "friendly@example.com",
				ReplyTo: "spam@example.com",
				Body:    "hello",
			},
			want: false,
		},
		{
			name: "empty sender rejected",
			msg:  model.InboundMessage{Sender: "", Body: "hello"},
			want: false,
		},
		{
			name: "blank body rejected",
			msg:  model.InboundMessage{Sender: "user@example.com", Body: "  \n "},
			want: false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, f.Accept(tt.msg))
		})
	}
}

func TestAcceptEmptyBlacklist(t *testing.T) {
	f := New(nil)

	assert.True(t, f.Accept(model.InboundMessage{Sender: "anyone@example.com", Body: "hi"}))
	assert.False(t, f.Accept(model.InboundMessage{Sender: "anyone@example.com"}))
}

func TestNewIgnoresBlankPatterns(t *testing.T) {
	f := New([]string{"  ", "", "bad@example.com"})

	assert.True(t, f.Accept(model.InboundMessage{Sender: "good@example.com", Body: "hi"}))
	assert.False(t, f.Accept(model.InboundMessage{Sender: "bad@example.com", Body: "hi"}))
}
