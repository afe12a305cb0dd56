package mail

import (
	"errors"
	"fmt"
	"mime"
	"net/mail"
	"strings"
	"time"

	"github.com/google/uuid"
)

// Message represents an outbound email. When HTMLBody is set the message is sent as
// multipart/alternative with Body as the plain-text part.
type Message struct {
	From     string
	To       []string
	Subject  string
	Body     string
	HTMLBody string
}

// envelope is the validated SMTP transaction derived from a Message.
type envelope struct {
	from       *mail.Address
	recipients []*mail.Address
}

func (e envelope) recipientAddrs() []string {
	addrs := make([]string, 0, len(e.recipients))
	for _, rcpt := range e.recipients {
		addrs = append(addrs, rcpt.Address)
	}
	return addrs
}

// prepare resolves the sender and parses every recipient. Recipients are deduplicated
// case-insensitively on their bare address.
func (m Message) prepare(defaultFrom string) (envelope, error) {
	from := strings.TrimSpace(m.From)
	if from == "" {
		from = strings.TrimSpace(defaultFrom)
	}
	if from == "" {
		return envelope{}, errors.New("smtp: sender address is required")
	}

	sender, err := mail.ParseAddress(from)
	if err != nil {
		return envelope{}, fmt.Errorf("smtp: invalid from address: %w", err)
	}

	env := envelope{from: sender}
	seen := make(map[string]struct{}, len(m.To))
	for _, raw := range m.To {
		raw = strings.TrimSpace(raw)
		if raw == "" {
			continue
		}
		rcpt, err := mail.ParseAddress(raw)
		if err != nil {
			return envelope{}, fmt.Errorf("smtp: invalid recipient address %q: %w", raw, err)
		}
		key := strings.ToLower(rcpt.Address)
		if _, dup := seen[key]; dup {
			continue
		}
		seen[key] = struct{}{}
		env.recipients = append(env.recipients, rcpt)
	}

	if len(env.recipients) == 0 {
		return envelope{}, errors.New("smtp: at least one recipient is required")
	}
	return env, nil
}

// render produces the RFC 5322 payload written after DATA.
func (m Message) render(env envelope, now time.Time) string {
	to := make([]string, 0, len(env.recipients))
	for _, rcpt := range env.recipients {
		to = append(to, rcpt.String())
	}

	var b strings.Builder
	writeHeader(&b, "From", env.from.String())
	writeHeader(&b, "To", strings.Join(to, ", "))
	writeHeader(&b, "Subject", mime.QEncoding.Encode("utf-8", singleLine(m.Subject)))
	writeHeader(&b, "Date", now.UTC().Format(time.RFC1123Z))
	writeHeader(&b, "Message-ID", fmt.Sprintf("<%s@%s>", uuid.NewString(), senderDomain(env.from.Address)))
	writeHeader(&b, "MIME-Version", "1.0")

	if strings.TrimSpace(m.HTMLBody) == "" {
		writeHeader(&b, "Content-Type", "text/plain; charset=UTF-8")
		b.WriteString("\r\n")
		b.WriteString(m.Body)
		return b.String()
	}

	boundary := "eventpress-" + uuid.NewString()
	writeHeader(&b, "Content-Type", fmt.Sprintf("multipart/alternative; boundary=%q", boundary))
	b.WriteString("\r\n")
	writePart(&b, boundary, "text/plain", m.Body)
	writePart(&b, boundary, "text/html", m.HTMLBody)
	b.WriteString("--" + boundary + "--\r\n")
	return b.String()
}

func writeHeader(b *strings.Builder, name, value string) {
	b.WriteString(name)
	b.WriteString(": ")
	b.WriteString(value)
	b.WriteString("\r\n")
}

func writePart(b *strings.Builder, boundary, contentType, body string) {
	b.WriteString("--" + boundary + "\r\n")
	b.WriteString("Content-Type: " + contentType + "; charset=UTF-8\r\n\r\n")
	b.WriteString(body)
	b.WriteString("\r\n")
}

func singleLine(value string) string {
	return strings.NewReplacer("\r", " ", "\n", " ").Replace(value)
}

func senderDomain(address string) string {
	if at := strings.LastIndex(address, "@"); at >= 0 && at < len(address)-1 {
		return address[at+1:]
	}
	return "eventpress.local"
}
