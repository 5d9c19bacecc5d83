package smtp

import (
	"context"
	"errors"
	"net/smtp"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMailer_SendHTML(t *testing.T) {
	var gotAddr, gotFrom string
	var gotTo []string
	var gotMsg []byte
	var gotAuth smtp.Auth
	m := &mailer{host: "mail.local", port: "1025", from: "noreply@example.com",
		send: func(addr string, a smtp.Auth, from string, to []string, msg []byte) error {
			gotAddr, gotAuth, gotFrom, gotTo, gotMsg = addr, a, from, to, msg
			return nil
		}}

	err := m.SendHTML(context.Background(), "a@b.com", "Email Verification Code", "<p>hi</p>")
	require.NoError(t, err)
	assert.Equal(t, "mail.local:1025", gotAddr)
	assert.Nil(t, gotAuth)
	assert.Equal(t, "noreply@example.com", gotFrom)
	assert.Equal(t, []string{"a@b.com"}, gotTo)
	msg := string(gotMsg)
	assert.Contains(t, msg, "Content-Type: text/html")
	assert.Contains(t, msg, "Subject: Email Verification Code\r\n")
	assert.True(t, strings.HasSuffix(msg, "\r\n\r\n<p>hi</p>"))
}

func TestMailer_SendError(t *testing.T) {
	m := &mailer{host: "h", port: "1", username: "u", password: "p",
		send: func(string, smtp.Auth, string, []string, []byte) error { return errors.New("refused") }}
	err := m.SendHTML(context.Background(), "a@b.com", "s", "b")
	assert.ErrorContains(t, err, "refused")
}

func TestVerificationEmail(t *testing.T) {
	body, err := VerificationEmail("123456", 10)
	require.NoError(t, err)
	assert.Contains(t, body, "123456")
	assert.Contains(t, body, "expire in 10 minutes")
}
