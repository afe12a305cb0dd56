package mail

import (
	"bytes"
	"context"
	"errors"
	"io"
	"net/smtp"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

type recordingClient struct {
	from    string
	rcpts   []string
	data    bytes.Buffer
	auth    smtp.Auth
	quit    bool
	closed  bool
	rcptErr error
}

func (c *recordingClient) Mail(from string) error { c.from = from; return nil }

func (c *recordingClient) Rcpt(to string) error {
	if c.rcptErr != nil {
		return c.rcptErr
	}
	c.rcpts = append(c.rcpts, to)
	return nil
}

func (c *recordingClient) Data() (io.WriteCloser, error) { return nopWriteCloser{&c.data}, nil }
func (c *recordingClient) Quit() error                   { c.quit = true; return nil }
func (c *recordingClient) Close() error                  { c.closed = true; return nil }
func (c *recordingClient) Auth(a smtp.Auth) error        { c.auth = a; return nil }

type nopWriteCloser struct{ io.Writer }

func (nopWriteCloser) Close() error { return nil }

func newTestMailer(t *testing.T, cfg SMTPSettings, client *recordingClient) *smtpMailer {
	t.Helper()

	mailer, err := NewSMTPMailer(cfg)
	require.NoError(t, err)
	sm := mailer.(*smtpMailer)
	sm.dial = func(context.Context, SMTPSettings) (smtpClient, error) { return client, nil }
	sm.now = func() time.Time { return time.Date(2026, 3, 1, 9, 30, 0, 0, time.UTC) }
	return sm
}

func enabledSettings() SMTPSettings {
	return SMTPSettings{Enabled: true, Host: "smtp.example.com", Port: 587, From: "EventPress <no-reply@example.com>"}
}

func TestNewSMTPMailerValidatesConfig(t *testing.T) {
	_, err := NewSMTPMailer(SMTPSettings{Enabled: true})
	require.ErrorContains(t, err, "host is required")

	_, err = NewSMTPMailer(SMTPSettings{Enabled: true, Host: "smtp.example.com"})
	require.ErrorContains(t, err, "port is required")

	mailer, err := NewSMTPMailer(SMTPSettings{Enabled: false})
	require.NoError(t, err)
	require.ErrorIs(t, mailer.Send(context.Background(), Message{To: []string{"staff@example.com"}}), ErrSMTPDisabled)

	mailer, err = NewSMTPMailer(enabledSettings())
	require.NoError(t, err)
	require.Equal(t, defaultSMTPTimeout, mailer.(*smtpMailer).cfg.Timeout)
}

func TestSendDeliversDeduplicatedRecipients(t *testing.T) {
	client := &recordingClient{}
	mailer := newTestMailer(t, enabledSettings(), client)

	err := mailer.Send(context.Background(), Message{
		To:      []string{"staff@example.com", " Staff@Example.com ", "", "Helper <helper@example.com>"},
		Subject: "Your staff invitation",
		Body:    "Code 1a2b3c4d",
	})
	require.NoError(t, err)

	require.Equal(t, "no-reply@example.com", client.from)
	require.Equal(t, []string{"staff@example.com", "helper@example.com"}, client.rcpts)
	require.Nil(t, client.auth)
	require.True(t, client.quit)
	require.True(t, client.closed)

	payload := client.data.String()
	require.Contains(t, payload, "From: \"EventPress\" <no-reply@example.com>\r\n")
	require.Contains(t, payload, "Subject: Your staff invitation\r\n")
	require.Contains(t, payload, "Date: Sun, 01 Mar 2026 09:30:00 +0000\r\n")
	require.Contains(t, payload, "@example.com>\r\n")
	require.True(t, strings.HasSuffix(payload, "\r\n\r\nCode 1a2b3c4d"))
}

func TestSendAuthenticatesWhenUsernameSet(t *testing.T) {
	cfg := enabledSettings()
	cfg.Username = "mailer"
	cfg.Password = "secret"

	client := &recordingClient{}
	require.NoError(t, newTestMailer(t, cfg, client).Send(context.Background(), Message{To: []string{"staff@example.com"}}))
	require.NotNil(t, client.auth)
}

func TestSendReportsRecipientRejection(t *testing.T) {
	client := &recordingClient{rcptErr: errors.New("550 mailbox unavailable")}
	err := newTestMailer(t, enabledSettings(), client).Send(context.Background(), Message{To: []string{"staff@example.com"}})
	require.ErrorContains(t, err, "rcpt to staff@example.com")
	require.False(t, client.quit)
	require.True(t, client.closed)
}

func TestSendValidatesAddressesBeforeDialing(t *testing.T) {
	cfg := enabledSettings()
	cfg.From = ""
	mailer := newTestMailer(t, cfg, &recordingClient{})
	mailer.dial = func(context.Context, SMTPSettings) (smtpClient, error) {
		t.Fatal("dial must not be reached")
		return nil, nil
	}

	err := mailer.Send(context.Background(), Message{To: []string{"staff@example.com"}})
	require.ErrorContains(t, err, "sender address is required")

	err = mailer.Send(context.Background(), Message{From: "invalid-from", To: []string{"staff@example.com"}})
	require.ErrorContains(t, err, "invalid from address")

	err = mailer.Send(context.Background(), Message{From: "no-reply@example.com", To: []string{"staff@example.com", "bad-address"}})
	require.ErrorContains(t, err, "invalid recipient address")

	err = mailer.Send(context.Background(), Message{From: "no-reply@example.com", To: []string{"   ", "\t"}})
	require.ErrorContains(t, err, "at least one recipient")
}

func TestRenderMultipartMessage(t *testing.T) {
	msg := Message{
		Subject:  "Invitation\r\nBcc: attacker@example.com",
		Body:     "plain code 1a2b3c4d",
		HTMLBody: "<p>code <b>1a2b3c4d</b></p>",
	}
	env, err := Message{To: []string{"staff@example.com"}}.prepare("no-reply@example.com")
	require.NoError(t, err)

	content := msg.render(env, time.Now())
	require.Contains(t, content, "Subject: Invitation  Bcc: attacker@example.com\r\n")
	require.NotContains(t, content, "\r\nBcc:")
	require.Contains(t, content, "multipart/alternative")
	require.Contains(t, content, "Content-Type: text/plain; charset=UTF-8\r\n\r\nplain code 1a2b3c4d")
	require.Contains(t, content, "Content-Type: text/html; charset=UTF-8\r\n\r\n<p>code <b>1a2b3c4d</b></p>")
	require.True(t, strings.HasSuffix(content, "--\r\n"))
}

func TestRenderEncodesNonASCIISubject(t *testing.T) {
	env, err := Message{To: []string{"staff@example.com"}}.prepare("no-reply@example.com")
	require.NoError(t, err)

	content := Message{Subject: "Einladung für Stand A1"}.render(env, time.Now())
	require.Contains(t, content, "Subject: =?utf-8?q?")
}
