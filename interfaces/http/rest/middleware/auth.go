package middleware

import (
	"net/http"
	"strings"

	"go.uber.org/zap"

	"snippets-backend/pkg/auth"
	"snippets-backend/pkg/common"
	pkgerrors "snippets-backend/pkg/errors"
)

// TokenValidator validates bearer tokens
type TokenValidator interface {
	ValidateToken(token string) (*auth.Claims, error)
}

// OptionalAuth authenticates requests that carry a bearer token and lets
// anonymous requests through. Anonymous callers are served local data only.
// A token that is present but invalid is rejected rather than downgraded.
func OptionalAuth(validator TokenValidator, errorHandler *pkgerrors.ErrorHandler, logger *zap.Logger) func(next http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			header := strings.TrimSpace(r.Header.Get("Authorization"))
			if header == "" {
				next.ServeHTTP(w, r)
				return
			}
			if validator == nil {
				errorHandler.Handle(w, r, pkgerrors.NewUnauthorizedError("authentication is not configured"))
				return
			}
			if !strings.HasPrefix(header, "Bearer ") {
				errorHandler.Handle(w, r, pkgerrors.NewUnauthorizedError("expected a bearer token"))
				return
			}

			claims, err := validator.ValidateToken(header)
			if err != nil {
				logger.Debug("Rejected bearer token", zap.Error(err))
				message := "invalid token"
				switch err {
				case auth.ErrExpiredToken:
					message = "token has expired"
				case auth.ErrInvalidSignature:
					message = "invalid token signature"
				}
				errorHandler.Handle(w, r, pkgerrors.NewUnauthorizedError(message))
				return
			}

			ctx := common.WithUserID(r.Context(), claims.UserID)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}
