package handler

import (
	"context"
	"io"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/google/uuid"

	"github.com/dmitrymomot/authcore/auth"
	"github.com/dmitrymomot/authcore/pkg/jwt"
)

// Service is the auth surface the HTTP layer depends on. *auth.Service
// satisfies it; tests substitute a mock.
type Service interface {
	SignUpEmail(ctx context.Context, params auth.SignUpParams) (*auth.Session, error)
	SignInEmail(ctx context.Context, email, password string) (*auth.Session, error)
	RequestMagicLink(ctx context.Context, email string) error
	VerifyMagicLink(ctx context.Context, token string) (*auth.Session, error)
	RequestPhoneOTP(ctx context.Context, phone string) error
	VerifyPhoneOTP(ctx context.Context, phone, code string) (*auth.Session, error)
	RequestPasswordReset(ctx context.Context, email string) error
	ConfirmPasswordReset(ctx context.Context, token, newPassword string) error
	Refresh(ctx context.Context, refreshToken string) (*auth.Session, error)
	SignOut(ctx context.Context, refreshToken string) error
	VerifyAccessToken(token string) (*jwt.Claims, error)
	GetUser(ctx context.Context, userID uuid.UUID) (*auth.User, error)
	DeleteUser(ctx context.Context, userID uuid.UUID) error
}

// Handler exposes the auth operations as a JSON API.
type Handler struct {
	svc       Service
	log       *slog.Logger
	rateLimit func(http.Handler) http.Handler
}

// Option configures a Handler.
type Option func(*Handler)

// WithLogger sets a custom logger.
func WithLogger(log *slog.Logger) Option {
	return func(h *Handler) {
		if log != nil {
			h.log = log
		}
	}
}

// WithRateLimit guards the public auth endpoints with the middleware.
func WithRateLimit(mw func(http.Handler) http.Handler) Option {
	return func(h *Handler) {
		if mw != nil {
			h.rateLimit = mw
		}
	}
}

// New creates the HTTP handler over the auth service.
func New(svc Service, opts ...Option) *Handler {
	h := &Handler{
		svc: svc,
		log: slog.New(slog.NewTextHandler(io.Discard, nil)),
	}
	for _, opt := range opts {
		opt(h)
	}
	return h
}

// Routes builds the router. Public auth flows live under /auth; the
// account endpoints under /user require a valid access token.
func (h *Handler) Routes() chi.Router {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)
	r.Use(requestInfo)

	r.Route("/auth", func(r chi.Router) {
		if h.rateLimit != nil {
			r.Use(h.rateLimit)
		}
		r.Post("/signup", h.signUp)
		r.Post("/signin", h.signIn)
		r.Post("/magiclink", h.requestMagicLink)
		r.Post("/magiclink/verify", h.verifyMagicLink)
		r.Post("/otp", h.requestOTP)
		r.Post("/otp/verify", h.verifyOTP)
		r.Post("/recover", h.requestPasswordReset)
		r.Post("/recover/confirm", h.confirmPasswordReset)
		r.Post("/token/refresh", h.refresh)
		r.Post("/signout", h.signOut)
	})

	r.Route("/user", func(r chi.Router) {
		r.Use(h.requireAuth)
		r.Get("/", h.getUser)
		r.Delete("/", h.deleteUser)
	})

	return r
}

func (h *Handler) signUp(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Email    string         `json:"email"`
		Password string         `json:"password"`
		Metadata map[string]any `json:"metadata,omitempty"`
	}
	if !h.decode(w, r, &req) {
		return
	}

	session, err := h.svc.SignUpEmail(r.Context(), auth.SignUpParams{
		Email:        req.Email,
		Password:     req.Password,
		UserMetadata: req.Metadata,
	})
	if err != nil {
		h.respondError(w, r, err)
		return
	}
	h.respondJSON(w, http.StatusCreated, session)
}

func (h *Handler) signIn(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Email    string `json:"email"`
		Password string `json:"password"`
	}
	if !h.decode(w, r, &req) {
		return
	}

	session, err := h.svc.SignInEmail(r.Context(), req.Email, req.Password)
	if err != nil {
		h.respondError(w, r, err)
		return
	}
	h.respondJSON(w, http.StatusOK, session)
}

func (h *Handler) requestMagicLink(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Email string `json:"email"`
	}
	if !h.decode(w, r, &req) {
		return
	}

	if err := h.svc.RequestMagicLink(r.Context(), req.Email); err != nil {
		h.respondError(w, r, err)
		return
	}
	h.respondJSON(w, http.StatusAccepted, statusResponse{Status: "sent"})
}

func (h *Handler) verifyMagicLink(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Token string `json:"token"`
	}
	if !h.decode(w, r, &req) {
		return
	}

	session, err := h.svc.VerifyMagicLink(r.Context(), req.Token)
	if err != nil {
		h.respondError(w, r, err)
		return
	}
	h.respondJSON(w, http.StatusOK, session)
}

func (h *Handler) requestOTP(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Phone string `json:"phone"`
	}
	if !h.decode(w, r, &req) {
		return
	}

	if err := h.svc.RequestPhoneOTP(r.Context(), req.Phone); err != nil {
		h.respondError(w, r, err)
		return
	}
	h.respondJSON(w, http.StatusAccepted, statusResponse{Status: "sent"})
}

func (h *Handler) verifyOTP(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Phone string `json:"phone"`
		Code  string `json:"code"`
	}
	if !h.decode(w, r, &req) {
		return
	}

	session, err := h.svc.VerifyPhoneOTP(r.Context(), req.Phone, req.Code)
	if err != nil {
		h.respondError(w, r, err)
		return
	}
	h.respondJSON(w, http.StatusOK, session)
}

func (h *Handler) requestPasswordReset(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Email string `json:"email"`
	}
	if !h.decode(w, r, &req) {
		return
	}

	if err := h.svc.RequestPasswordReset(r.Context(), req.Email); err != nil {
		h.respondError(w, r, err)
		return
	}
	h.respondJSON(w, http.StatusAccepted, statusResponse{Status: "sent"})
}

func (h *Handler) confirmPasswordReset(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Token    string `json:"token"`
		Password string `json:"password"`
	}
	if !h.decode(w, r, &req) {
		return
	}

	if err := h.svc.ConfirmPasswordReset(r.Context(), req.Token, req.Password); err != nil {
		h.respondError(w, r, err)
		return
	}
	h.respondJSON(w, http.StatusOK, statusResponse{Status: "password_updated"})
}

func (h *Handler) refresh(w http.ResponseWriter, r *http.Request) {
	var req struct {
		RefreshToken string `json:"refresh_token"`
	}
	if !h.decode(w, r, &req) {
		return
	}

	session, err := h.svc.Refresh(r.Context(), req.RefreshToken)
	if err != nil {
		h.respondError(w, r, err)
		return
	}
	h.respondJSON(w, http.StatusOK, session)
}

func (h *Handler) signOut(w http.ResponseWriter, r *http.Request) {
	var req struct {
		RefreshToken string `json:"refresh_token"`
	}
	if !h.decode(w, r, &req) {
		return
	}

	if err := h.svc.SignOut(r.Context(), req.RefreshToken); err != nil {
		h.respondError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) getUser(w http.ResponseWriter, r *http.Request) {
	userID, ok := userIDFromContext(r.Context())
	if !ok {
		h.respondError(w, r, errMissingToken)
		return
	}

	user, err := h.svc.GetUser(r.Context(), userID)
	if err != nil {
		h.respondError(w, r, err)
		return
	}
	h.respondJSON(w, http.StatusOK, user)
}

func (h *Handler) deleteUser(w http.ResponseWriter, r *http.Request) {
	userID, ok := userIDFromContext(r.Context())
	if !ok {
		h.respondError(w, r, errMissingToken)
		return
	}

	if err := h.svc.DeleteUser(r.Context(), userID); err != nil {
		h.respondError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

type statusResponse struct {
	Status string `json:"status"`
}
