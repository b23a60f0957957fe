package pkg

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSMTPMailerSendModInvite(t *testing.T) {
	var gotTo, gotSubject, gotBody string
	m := NewSMTPMailer(SMTPConfig{Host: "smtp.example.com", Port: 587, From: "noreply@example.com"})
	m.send = func(_ SMTPConfig, to, subject, body string) error {
		gotTo, gotSubject, gotBody = to, subject, body
		return nil
	}

	require.NoError(t, m.SendModInvite(context.Background(), "mod@example.com", "alice", "golang"))

	assert.Equal(t, "mod@example.com", gotTo)
	assert.Equal(t, "You have been invited to moderate r/golang", gotSubject)
	assert.Contains(t, gotBody, "u/alice")
}

func TestModInviteHTMLEscapes(t *testing.T) {
	assert.NotContains(t, ModInviteHTML("<script>", "x"), "<script>")
}
