package mail

import (
	"context"
	"crypto/tls"
	"io"
	"net"
	"net/smtp"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
)

type fakeSMTPClient struct {
	mailFrom string
	rcpts    []string
	data     strings.Builder
	quit     bool
}

func (f *fakeSMTPClient) Mail(from string) error { f.mailFrom = from; return nil }
func (f *fakeSMTPClient) Rcpt(to string) error   { f.rcpts = append(f.rcpts, to); return nil }
func (f *fakeSMTPClient) Data() (io.WriteCloser, error) {
	return nopWriteCloser{&f.data}, nil
}
func (f *fakeSMTPClient) Quit() error                     { f.quit = true; return nil }
func (f *fakeSMTPClient) Close() error                    { return nil }
func (f *fakeSMTPClient) StartTLS(*tls.Config) error      { return nil }
func (f *fakeSMTPClient) Auth(smtp.Auth) error            { return nil }
func (f *fakeSMTPClient) Extension(string) (bool, string) { return false, "" }

type nopWriteCloser struct{ io.Writer }

func (nopWriteCloser) Close() error { return nil }

func newTestMailer(client *fakeSMTPClient) *smtpMailer {
	return &smtpMailer{
		cfg: SMTPSettings{Enabled: true, Host: "mail.test", Port: 587, From: "noreply@moodmate.app"},
		dialFn: func(ctx context.Context, cfg SMTPSettings) (net.Conn, smtpClient, error) {
			server, _ := net.Pipe()
			return server, client, nil
		},
		authFn: func(smtpClient, SMTPSettings) error { return nil },
	}
}

func TestSendDeliversFormattedMessage(t *testing.T) {
	client := &fakeSMTPClient{}
	mailer := newTestMailer(client)

	msg := VerificationMessage("alice@example.com", "Alice", "https://moodmate.app/verify?token=abc")
	require.NoError(t, mailer.Send(context.Background(), msg))

	require.Equal(t, "noreply@moodmate.app", client.mailFrom)
	require.Equal(t, []string{"alice@example.com"}, client.rcpts)
	require.True(t, client.quit)

	body := client.data.String()
	require.Contains(t, body, "Subject: Verify your MoodMate account")
	require.Contains(t, body, "https://moodmate.app/verify?token=abc")
	require.Contains(t, body, "Hi Alice,")
}

func TestSendDisabled(t *testing.T) {
	mailer := &smtpMailer{cfg: SMTPSettings{Enabled: false}}
	err := mailer.Send(context.Background(), Message{To: "a@b.co"})
	require.ErrorIs(t, err, ErrSMTPDisabled)
}

func TestSendRejectsMissingRecipient(t *testing.T) {
	mailer := newTestMailer(&fakeSMTPClient{})
	err := mailer.Send(context.Background(), Message{Subject: "hello"})
	require.Error(t, err)
}

func TestSendRejectsInvalidAddress(t *testing.T) {
	mailer := newTestMailer(&fakeSMTPClient{})
	err := mailer.Send(context.Background(), Message{To: "not-an-address"})
	require.Error(t, err)
}

func TestNewSMTPMailerValidatesSender(t *testing.T) {
	_, err := NewSMTPMailer(SMTPSettings{Enabled: true, Host: "mail.test", Port: 587, From: "bogus"})
	require.Error(t, err)

	_, err = NewSMTPMailer(SMTPSettings{Enabled: false})
	require.NoError(t, err)
}

func TestSubjectHeaderEscaping(t *testing.T) {
	encoded := encodeMessage("noreply@moodmate.app", "a@b.co", "multi\r\nline", "body")
	require.NotContains(t, strings.Split(encoded, "\r\n\r\n")[0], "multi\r\nline")
}

func TestPasswordResetMessage(t *testing.T) {
	msg := PasswordResetMessage("bob@example.com", "Bob", "https://moodmate.app/reset?token=xyz")
	require.Equal(t, "bob@example.com", msg.To)
	require.Contains(t, msg.Body, "reset your password")
	require.Contains(t, msg.Body, "https://moodmate.app/reset?token=xyz")
}
