package notifier

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/url"

	"github.com/dmitrymomot/authcore/pkg/mailer"
)

// Config holds delivery settings for outbound verification messages.
type Config struct {
	// BaseURL is the public address links are built against.
	BaseURL string `env:"NOTIFIER_BASE_URL" envDefault:"http://localhost:8080"`
	AppName string `env:"NOTIFIER_APP_NAME" envDefault:"authcore"`
}

// Notifier delivers auth secrets over email and SMS. It implements
// auth.Notifier. SMS delivery is pluggable through SMSSender; without
// one, codes are written to the log at debug level for development.
type Notifier struct {
	email mailer.EmailSender
	sms   SMSSender
	cfg   Config
	log   *slog.Logger
}

// SMSSender delivers a single text message.
type SMSSender interface {
	SendSMS(ctx context.Context, phone, message string) error
}

// Option configures a Notifier.
type Option func(*Notifier)

// WithSMSSender plugs in an SMS provider.
func WithSMSSender(sms SMSSender) Option {
	return func(n *Notifier) {
		if sms != nil {
			n.sms = sms
		}
	}
}

// WithLogger sets a custom logger.
func WithLogger(log *slog.Logger) Option {
	return func(n *Notifier) {
		if log != nil {
			n.log = log
		}
	}
}

// New creates a notifier over the given email sender.
func New(email mailer.EmailSender, cfg Config, opts ...Option) *Notifier {
	n := &Notifier{
		email: email,
		cfg:   cfg,
		log:   slog.New(slog.NewTextHandler(io.Discard, nil)),
	}
	for _, opt := range opts {
		opt(n)
	}
	return n
}

// SendMagicLink emails a sign-in link carrying the token.
func (n *Notifier) SendMagicLink(ctx context.Context, email, token string) error {
	link := n.link("/auth/magiclink/verify", token)
	return n.email.SendEmail(ctx, mailer.SendEmailParams{
		SendTo:  email,
		Subject: fmt.Sprintf("Sign in to %s", n.cfg.AppName),
		BodyHTML: fmt.Sprintf(
			`<p>Follow this link to sign in to %s:</p><p><a href=%q>Sign in</a></p><p>If you did not request this, ignore this email.</p>`,
			n.cfg.AppName, link,
		),
		Tag: "magic-link",
	})
}

// SendPasswordReset emails a password recovery link carrying the token.
func (n *Notifier) SendPasswordReset(ctx context.Context, email, token string) error {
	link := n.link("/auth/recover/confirm", token)
	return n.email.SendEmail(ctx, mailer.SendEmailParams{
		SendTo:  email,
		Subject: fmt.Sprintf("Reset your %s password", n.cfg.AppName),
		BodyHTML: fmt.Sprintf(
			`<p>Follow this link to reset your %s password:</p><p><a href=%q>Reset password</a></p><p>If you did not request this, ignore this email.</p>`,
			n.cfg.AppName, link,
		),
		Tag: "password-reset",
	})
}

// SendOTP texts the verification code to the phone.
func (n *Notifier) SendOTP(ctx context.Context, phone, code string) error {
	message := fmt.Sprintf("Your %s verification code is %s", n.cfg.AppName, code)
	if n.sms == nil {
		// Development fallback; never log the code above debug level.
		n.log.DebugContext(ctx, "sms sender not configured, otp not delivered",
			slog.String("phone", phone),
			slog.String("message", message),
		)
		return nil
	}
	return n.sms.SendSMS(ctx, phone, message)
}

func (n *Notifier) link(path, token string) string {
	return n.cfg.BaseURL + path + "?token=" + url.QueryEscape(token)
}
