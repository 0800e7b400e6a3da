package email

import (
	"errors"
	"net/smtp"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRender(t *testing.T) {
	msg, err := Render("app@example.com", "ana@example.com", "Drink water", "Time for a glass.\n\nYou are at 3 of 8.")
	require.NoError(t, err)

	text := string(msg)
	assert.Contains(t, text, "From: app@example.com\r\n")
	assert.Contains(t, text, "To: ana@example.com\r\n")
	assert.Contains(t, text, "Subject: Drink water\r\n")
	assert.Contains(t, text, "<h1>Drink water</h1>")
	assert.Contains(t, text, "<p>Time for a glass.</p>")
	assert.Contains(t, text, "<p>You are at 3 of 8.</p>")
}

func TestRenderEscapesBody(t *testing.T) {
	msg, err := Render("app@example.com", "ana@example.com", "Hi", "<script>alert(1)</script>")
	require.NoError(t, err)

	assert.NotContains(t, string(msg), "<script>")
	assert.Contains(t, string(msg), "&lt;script&gt;")
}

func TestRenderRejectsHeaderInjection(t *testing.T) {
	_, err := Render("app@example.com", "ana@example.com\r\nBcc: x@example.com", "Hi", "body")
	assert.Error(t, err)
}

func TestSend(t *testing.T) {
	var gotAddr, gotFrom string
	var gotTo []string
	m := NewMailer("smtp.example.com", 587, "app@example.com", "secret").
		WithSendFunc(func(addr string, a smtp.Auth, from string, to []string, msg []byte) error {
			gotAddr, gotFrom, gotTo = addr, from, to
			return nil
		})

	require.NoError(t, m.Send("ana@example.com", "Reset", "token"))
	assert.Equal(t, "smtp.example.com:587", gotAddr)
	assert.Equal(t, "app@example.com", gotFrom)
	assert.Equal(t, []string{"ana@example.com"}, gotTo)
}

func TestSendWrapsFailure(t *testing.T) {
	boom := errors.New("relay down")
	m := NewMailer("smtp.example.com", 587, "app@example.com", "secret").
		WithSendFunc(func(string, smtp.Auth, string, []string, []byte) error { return boom })

	assert.ErrorIs(t, m.Send("ana@example.com", "Reset", "token"), boom)
}
