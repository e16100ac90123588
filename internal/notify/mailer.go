package notify

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"text/template"

	"gopkg.in/mail.v2"

	"github.com/sakif/learnpath/internal/model"
)

// Sender delivers composed messages. *mail.Dialer satisfies it.
type Sender interface {
	DialAndSend(m ...*mail.Message) error
}

// MailerConfig holds the SMTP connection and envelope settings.
type MailerConfig struct {
	Host     string
	Port     int
	Username string
	Password string
	From     string
	// AppURL is linked from the welcome email, e.g. "https://learnpath.dev".
	AppURL string
}

// Mailer sends a welcome email to every new user.
type Mailer struct {
	sender Sender
	from   string
	appURL string
	logger *slog.Logger
}

// NewMailer builds a Mailer that sends through an SMTP dialer.
func NewMailer(cfg MailerConfig, logger *slog.Logger) *Mailer {
	dialer := mail.NewDialer(cfg.Host, cfg.Port, cfg.Username, cfg.Password)
	return NewMailerWithSender(dialer, cfg.From, cfg.AppURL, logger)
}

// NewMailerWithSender is NewMailer with the transport supplied by the caller.
func NewMailerWithSender(sender Sender, from, appURL string, logger *slog.Logger) *Mailer {
	return &Mailer{
		sender: sender,
		from:   from,
		appURL: strings.TrimRight(appURL, "/"),
		logger: logger,
	}
}

var welcomeBody = template.Must(template.New("welcome").Parse(
	`Hi {{.Username}},

Welcome aboard! Your account is ready and your first lesson is waiting for you:

{{.AppURL}}/dashboard

Happy learning,
The learnpath team
`))

// UserCreated sends the welcome email. The SMTP exchange is not
// cancellable, so ctx is only checked before dialing.
func (m *Mailer) UserCreated(ctx context.Context, user *model.User) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	var body strings.Builder
	if err := welcomeBody.Execute(&body, struct {
		Username, AppURL string
	}{user.Username, m.appURL}); err != nil {
		return fmt.Errorf("notify: rendering welcome email: %w", err)
	}

	msg := mail.NewMessage()
	msg.SetHeader("From", m.from)
	msg.SetHeader("To", user.Email)
	msg.SetHeader("Subject", "Welcome to learnpath")
	msg.SetBody("text/plain", body.String())

	if err := m.sender.DialAndSend(msg); err != nil {
		return fmt.Errorf("notify: sending welcome email to %s: %w", user.Email, err)
	}

	m.logger.Info("welcome email sent", slog.String("userID", user.ID))
	return nil
}
