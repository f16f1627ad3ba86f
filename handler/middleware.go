package handler

import (
	"context"
	"net/http"
	"strings"

	"github.com/google/uuid"

	"github.com/dmitrymomot/authcore/auth"
	"github.com/dmitrymomot/authcore/pkg/clientip"
)

type userIDCtxKey struct{}

func userIDFromContext(ctx context.Context) (uuid.UUID, bool) {
	id, ok := ctx.Value(userIDCtxKey{}).(uuid.UUID)
	return id, ok
}

// requestInfo stores the client IP and user agent on the context so
// flows can attach them to audit events.
func requestInfo(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ctx := auth.WithRequestInfo(r.Context(), auth.RequestInfo{
			IP:        clientip.FromRequest(r),
			UserAgent: r.UserAgent(),
		})
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// requireAuth authenticates the request from the bearer token and puts
// the user id on the context. Verification is stateless; bans and
// deletions surface in the service layer.
func (h *Handler) requireAuth(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		token, ok := bearerToken(r)
		if !ok {
			h.respondError(w, r, errMissingToken)
			return
		}

		claims, err := h.svc.VerifyAccessToken(token)
		if err != nil {
			h.respondError(w, r, err)
			return
		}

		userID, err := uuid.Parse(claims.Subject)
		if err != nil {
			h.respondError(w, r, errMissingToken)
			return
		}

		ctx := context.WithValue(r.Context(), userIDCtxKey{}, userID)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

func bearerToken(r *http.Request) (string, bool) {
	header := r.Header.Get("Authorization")
	const prefix = "Bearer "
	if len(header) <= len(prefix) || !strings.EqualFold(header[:len(prefix)], prefix) {
		return "", false
	}
	return header[len(prefix):], true
}
