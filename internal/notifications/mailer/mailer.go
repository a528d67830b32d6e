package mailer

import (
	"bytes"
	"context"
	"fmt"
	"net"
	"net/smtp"
	"strconv"
	"strings"
	"time"

	"booktable/pkg/config"
	"booktable/pkg/logger"
)

type Mail struct {
	To      string
	Subject string
	Body    string
}

type Mailer interface {
	Send(ctx context.Context, mail Mail) error
}

// New returns the SMTP mailer wrapped in the configured retry policy, or a
// mailer that only logs when SMTP_HOST is unset.
func New(cfg *config.Config) Mailer {
	log := cfg.Log.Component("mailer")
	if cfg.SMTPHost == "" {
		log.Info("SMTP_HOST not set, emails will be logged only")
		return NewLogMailer(log)
	}
	smtpMailer := NewSMTPMailer(cfg.SMTPHost, cfg.SMTPPort, cfg.SMTPUsername, cfg.SMTPPassword, cfg.MailFrom)
	return NewRetrying(smtpMailer, cfg.MailMaxAttempts, cfg.MailRetryDelay, log)
}

type sendFunc func(addr string, a smtp.Auth, from string, to []string, msg []byte) error

type SMTPMailer struct {
	addr string
	auth smtp.Auth
	from string
	send sendFunc
	now  func() time.Time
}

func NewSMTPMailer(host string, port int, username, password, from string) *SMTPMailer {
	var auth smtp.Auth
	if username != "" {
		auth = smtp.PlainAuth("", username, password, host)
	}
	return &SMTPMailer{
		addr: net.JoinHostPort(host, strconv.Itoa(port)),
		auth: auth,
		from: from,
		send: smtp.SendMail,
		now:  time.Now,
	}
}

func (m *SMTPMailer) Send(ctx context.Context, mail Mail) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if err := m.send(m.addr, m.auth, m.from, []string{mail.To}, m.compose(mail)); err != nil {
		return fmt.Errorf("failed to send mail to %s: %w", mail.To, err)
	}
	return nil
}

func (m *SMTPMailer) compose(mail Mail) []byte {
	var b bytes.Buffer
	header := func(k, v string) {
		b.WriteString(k + ": " + headerValue(v) + "\r\n")
	}
	header("From", m.from)
	header("To", mail.To)
	header("Subject", mail.Subject)
	header("Date", m.now().UTC().Format(time.RFC1123Z))
	header("MIME-Version", "1.0")
	header("Content-Type", "text/plain; charset=UTF-8")
	b.WriteString("\r\n")
	b.WriteString(strings.ReplaceAll(mail.Body, "\n", "\r\n"))
	return b.Bytes()
}

// headerValue drops line breaks so user-supplied text cannot add headers.
func headerValue(v string) string {
	return strings.NewReplacer("\r", "", "\n", " ").Replace(v)
}

type LogMailer struct {
	log *logger.Logger
}

func NewLogMailer(log *logger.Logger) *LogMailer {
	return &LogMailer{log: log}
}

func (m *LogMailer) Send(_ context.Context, mail Mail) error {
	m.log.Info("Mail not sent, SMTP disabled", "to", mail.To, "subject", mail.Subject)
	return nil
}

// Retrying makes up to attempts calls to next with a fixed delay in between.
type Retrying struct {
	next     Mailer
	attempts int
	delay    time.Duration
	log      *logger.Logger
}

func NewRetrying(next Mailer, attempts int, delay time.Duration, log *logger.Logger) *Retrying {
	return &Retrying{
		next:     next,
		attempts: max(attempts, 1),
		delay:    delay,
		log:      log,
	}
}

func (r *Retrying) Send(ctx context.Context, mail Mail) error {
	var err error
	for attempt := 1; attempt <= r.attempts; attempt++ {
		if err = r.next.Send(ctx, mail); err == nil {
			return nil
		}
		r.log.Warn("Mail attempt failed",
			"to", mail.To,
			"attempt", attempt,
			"max_attempts", r.attempts,
			"error", err,
		)
		if attempt == r.attempts {
			break
		}

		timer := time.NewTimer(r.delay)
		select {
		case <-ctx.Done():
			timer.Stop()
			return ctx.Err()
		case <-timer.C:
		}
	}
	return fmt.Errorf("giving up after %d attempts: %w", r.attempts, err)
}
