package services

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"html/template"
	"net/url"
	"strings"

	"github.com/eventpress/eventpress/internal/models"
	"github.com/eventpress/eventpress/pkg/mail"
)

type emailKind string

const (
	emailInvite       emailKind = "invite"
	emailVerification emailKind = "verification"
)

// StaffNotifier delivers the staff invitation emails.
type StaffNotifier interface {
	NotifyInvite(ctx context.Context, ticket *models.StaffTicket, event *models.Event) error
	NotifyVerification(ctx context.Context, ticket *models.StaffTicket, event *models.Event) error
}

// NotifierOption customises MailNotifier behaviour.
type NotifierOption func(*MailNotifier)

// WithNotifierBaseURL configures the public URL used to build claim links.
func WithNotifierBaseURL(base string) NotifierOption {
	return func(n *MailNotifier) {
		n.baseURL = strings.TrimRight(strings.TrimSpace(base), "/")
	}
}

// WithNotifierUsers lets invitation emails tell the recipient whether an account exists.
func WithNotifierUsers(users UserResolver) NotifierOption {
	return func(n *MailNotifier) {
		n.users = users
	}
}

// MailNotifier renders staff emails and hands them to a mail.Mailer.
type MailNotifier struct {
	mailer  mail.Mailer
	users   UserResolver
	baseURL string
}

// NewMailNotifier constructs a MailNotifier.
func NewMailNotifier(mailer mail.Mailer, opts ...NotifierOption) (*MailNotifier, error) {
	if mailer == nil {
		return nil, errors.New("staff notifier: mailer is required")
	}
	notifier := &MailNotifier{mailer: mailer}
	for _, opt := range opts {
		opt(notifier)
	}
	return notifier, nil
}

var (
	inviteTemplate = template.Must(template.New("invite").Parse(`<p>Hello,</p>
<p>You have been invited to join the staff of <strong>{{.EventName}}</strong>.</p>
{{if .Message}}<blockquote>{{.Message}}</blockquote>
{{end}}<p>Your invitation code is <strong>{{.Code}}</strong>.</p>
{{if .Link}}<p><a href="{{.Link}}">Claim your invitation</a></p>
{{end}}{{if not .HasAccount}}<p>You will need to create an EventPress account with this address before claiming.</p>
{{end}}<p>If you did not expect this email, you can ignore it.</p>
`))

	verificationTemplate = template.Must(template.New("verification").Parse(`<p>Hello,</p>
<p>Your verification code for <strong>{{.EventName}}</strong> is <strong>{{.Code}}</strong>.</p>
<p>Enter it in the claim form to finish joining the staff.</p>
`))
)

type emailData struct {
	EventName  string
	Message    string
	Code       string
	Link       string
	HasAccount bool
}

// NotifyInvite sends the invitation code to the ticket's verification email.
func (n *MailNotifier) NotifyInvite(ctx context.Context, ticket *models.StaffTicket, event *models.Event) error {
	to, err := recipient(ticket)
	if err != nil {
		return err
	}

	data := emailData{
		EventName: eventName(event),
		Message:   strings.TrimSpace(stringValue(ticket.Message)),
		Code:      ticket.InvitationCode(),
		Link:      n.claimLink(ticket.InvitationCode()),
	}
	if n.users != nil {
		user, err := n.users.ResolveUserByEmail(ctx, to)
		if err != nil {
			return fmt.Errorf("staff notifier: resolve recipient: %w", err)
		}
		data.HasAccount = user != nil
	} else {
		data.HasAccount = true
	}

	html, err := render(inviteTemplate, data)
	if err != nil {
		return err
	}

	var text strings.Builder
	fmt.Fprintf(&text, "Hello,\n\nYou have been invited to join the staff of %s.\n\n", data.EventName)
	if data.Message != "" {
		fmt.Fprintf(&text, "%s\n\n", data.Message)
	}
	fmt.Fprintf(&text, "Your invitation code is %s.\n", data.Code)
	if data.Link != "" {
		fmt.Fprintf(&text, "Claim it here: %s\n", data.Link)
	}
	if !data.HasAccount {
		text.WriteString("\nYou will need to create an EventPress account with this address before claiming.\n")
	}
	text.WriteString("\nIf you did not expect this email, you can ignore it.\n")

	return n.mailer.Send(ctx, mail.Message{
		To:       []string{to},
		Subject:  fmt.Sprintf("You're invited to staff %s", data.EventName),
		Body:     text.String(),
		HTMLBody: html,
	})
}

// NotifyVerification sends the verification code to the ticket's verification email.
func (n *MailNotifier) NotifyVerification(ctx context.Context, ticket *models.StaffTicket, event *models.Event) error {
	to, err := recipient(ticket)
	if err != nil {
		return err
	}

	data := emailData{EventName: eventName(event), Code: ticket.VerificationCode()}
	html, err := render(verificationTemplate, data)
	if err != nil {
		return err
	}

	return n.mailer.Send(ctx, mail.Message{
		To:      []string{to},
		Subject: "Your EventPress verification code",
		Body: fmt.Sprintf("Hello,\n\nYour verification code for %s is %s.\nEnter it in the claim form to finish joining the staff.\n",
			data.EventName, data.Code),
		HTMLBody: html,
	})
}

func (n *MailNotifier) claimLink(code string) string {
	if n.baseURL == "" {
		return ""
	}
	return fmt.Sprintf("%s/claim?code=%s", n.baseURL, url.QueryEscape(code))
}

func recipient(ticket *models.StaffTicket) (string, error) {
	if !ticket.RequiresVerification() {
		return "", errors.New("staff notifier: ticket has no verification email")
	}
	return strings.TrimSpace(*ticket.VerificationEmail), nil
}

func eventName(event *models.Event) string {
	if event == nil || strings.TrimSpace(event.Name) == "" {
		return "an EventPress event"
	}
	return event.Name
}

func render(tmpl *template.Template, data emailData) (string, error) {
	var buf bytes.Buffer
	if err := tmpl.Execute(&buf, data); err != nil {
		return "", fmt.Errorf("staff notifier: render %s: %w", tmpl.Name(), err)
	}
	return buf.String(), nil
}
