package auth

import (
	"context"
	"io"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"

	"github.com/dmitrymomot/authcore/audit"
	"github.com/dmitrymomot/authcore/pkg/jwt"
	"github.com/dmitrymomot/authcore/pkg/pg"
	"github.com/dmitrymomot/authcore/pkg/token"
	"github.com/dmitrymomot/authcore/pkg/validator"
)

// Config holds orchestrator tunables loaded from the environment.
type Config struct {
	BcryptCost      int           `env:"AUTH_BCRYPT_COST" envDefault:"10"`
	MagicLinkTTL    time.Duration `env:"AUTH_MAGIC_LINK_TTL" envDefault:"1h"`
	ResetTokenTTL   time.Duration `env:"AUTH_RESET_TOKEN_TTL" envDefault:"1h"`
	OTPTTL          time.Duration `env:"AUTH_OTP_TTL" envDefault:"5m"`
	RefreshTokenTTL time.Duration `env:"AUTH_REFRESH_TOKEN_TTL" envDefault:"720h"`
}

// Service is the auth orchestrator. Every public operation validates its
// input before any I/O, then runs the flow inside exactly one database
// transaction: all reads and writes commit together or none do.
//
// All collaborators are injected through the constructor; the package
// keeps no global state.
type Service struct {
	db       pg.TxRunner
	users    UserStore
	tokens   TokenStore
	refresh  RefreshTokenStore
	recorder *audit.Recorder
	issuer   *jwt.Issuer
	notifier Notifier

	log *slog.Logger
	now func() time.Time

	bcryptCost       int
	passwordStrength validator.PasswordStrengthConfig
	magicLinkTTL     time.Duration
	resetTokenTTL    time.Duration
	otpTTL           time.Duration
	refreshTokenTTL  time.Duration

	// dummyHash keeps sign-in cost uniform when the account does not
	// exist or has no password, so response timing leaks nothing.
	dummyHash []byte
}

// Option configures a Service during construction.
type Option func(*Service)

// WithLogger sets a custom logger.
func WithLogger(log *slog.Logger) Option {
	return func(s *Service) {
		if log != nil {
			s.log = log
		}
	}
}

// WithClock overrides the time source, for tests. All expiry math in the
// flows goes through it.
func WithClock(now func() time.Time) Option {
	return func(s *Service) {
		if now != nil {
			s.now = now
		}
	}
}

// WithNotifier sets the delivery channel for magic links, reset tokens,
// and OTP codes.
func WithNotifier(n Notifier) Option {
	return func(s *Service) {
		if n != nil {
			s.notifier = n
		}
	}
}

// WithBcryptCost sets the bcrypt cost for password hashing.
func WithBcryptCost(cost int) Option {
	return func(s *Service) {
		if cost >= bcrypt.MinCost && cost <= bcrypt.MaxCost {
			s.bcryptCost = cost
		}
	}
}

// WithPasswordStrength sets custom password strength requirements.
func WithPasswordStrength(cfg validator.PasswordStrengthConfig) Option {
	return func(s *Service) {
		s.passwordStrength = cfg
	}
}

// WithConfig applies environment-driven tunables.
func WithConfig(cfg Config) Option {
	return func(s *Service) {
		if cfg.BcryptCost > 0 {
			s.bcryptCost = cfg.BcryptCost
		}
		if cfg.MagicLinkTTL > 0 {
			s.magicLinkTTL = cfg.MagicLinkTTL
		}
		if cfg.ResetTokenTTL > 0 {
			s.resetTokenTTL = cfg.ResetTokenTTL
		}
		if cfg.OTPTTL > 0 {
			s.otpTTL = cfg.OTPTTL
		}
		if cfg.RefreshTokenTTL > 0 {
			s.refreshTokenTTL = cfg.RefreshTokenTTL
		}
	}
}

// New creates the auth orchestrator with explicit dependencies.
func New(
	db pg.TxRunner,
	users UserStore,
	tokens TokenStore,
	refresh RefreshTokenStore,
	recorder *audit.Recorder,
	issuer *jwt.Issuer,
	opts ...Option,
) *Service {
	s := &Service{
		db:               db,
		users:            users,
		tokens:           tokens,
		refresh:          refresh,
		recorder:         recorder,
		issuer:           issuer,
		notifier:         noopNotifier{},
		log:              slog.New(slog.NewTextHandler(io.Discard, nil)),
		now:              time.Now,
		bcryptCost:       bcrypt.DefaultCost,
		passwordStrength: validator.DefaultPasswordStrength(),
		magicLinkTTL:     time.Hour,
		resetTokenTTL:    time.Hour,
		otpTTL:           5 * time.Minute,
		refreshTokenTTL:  30 * 24 * time.Hour,
	}

	for _, opt := range opts {
		opt(s)
	}

	dummy, err := bcrypt.GenerateFromPassword([]byte("authcore.dummy.compare"), s.bcryptCost)
	if err != nil {
		panic("auth: failed to prepare dummy hash: " + err.Error())
	}
	s.dummyHash = dummy

	return s
}

// VerifyAccessToken decodes and checks an access token without touching
// storage; it is the middleware entry point for request authentication.
func (s *Service) VerifyAccessToken(tokenString string) (*jwt.Claims, error) {
	return s.issuer.Verify(tokenString)
}

// issueSession mints the access/refresh token pair for the user and
// registers the refresh token, all within the caller's transaction.
func (s *Service) issueSession(ctx context.Context, q pg.Querier, user *User) (*Session, error) {
	now := s.now()

	access, err := s.issuer.Mint(user.ID.String(), user.Email, user.Role, now)
	if err != nil {
		return nil, err
	}

	refresh, err := token.NewRefreshToken()
	if err != nil {
		return nil, err
	}

	if err := s.refresh.Create(ctx, q, user.ID, refresh, now, now.Add(s.refreshTokenTTL)); err != nil {
		return nil, err
	}

	return &Session{
		AccessToken:  access,
		RefreshToken: refresh,
		ExpiresAt:    now.Add(s.issuer.TTL()),
		User:         user,
	}, nil
}

// audit records a flow event, enriched with client metadata when the
// transport put RequestInfo on the context.
func (s *Service) audit(ctx context.Context, q pg.Querier, action string, userID uuid.UUID) error {
	opts := []audit.EventOption{audit.WithUser(userID)}
	if info, ok := RequestInfoFromContext(ctx); ok {
		if info.IP != "" {
			opts = append(opts, audit.WithMetadata("ip", info.IP))
		}
		if info.UserAgent != "" {
			opts = append(opts, audit.WithMetadata("user_agent", info.UserAgent))
		}
	}
	return s.recorder.Record(ctx, q, action, opts...)
}

// notify runs a delivery callback outside the transaction. Delivery
// failures are logged, never surfaced: the flow already committed.
func (s *Service) notify(ctx context.Context, kind string, fn func(context.Context) error) {
	if err := fn(ctx); err != nil {
		s.log.ErrorContext(ctx, "notification delivery failed",
			slog.String("kind", kind),
			slog.Any("error", err),
		)
	}
}

type noopNotifier struct{}

func (noopNotifier) SendMagicLink(context.Context, string, string) error     { return nil }
func (noopNotifier) SendPasswordReset(context.Context, string, string) error { return nil }
func (noopNotifier) SendOTP(context.Context, string, string) error           { return nil }
