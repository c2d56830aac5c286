package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"snippets-backend/pkg/auth"
	"snippets-backend/pkg/common"
	pkgerrors "snippets-backend/pkg/errors"
)

func echoUser() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		userID, _ := common.GetUserID(r.Context())
		_, _ = w.Write([]byte(userID))
	})
}

func TestOptionalAuth(t *testing.T) {
	jwt, err := auth.NewJWTService(auth.JWTConfig{SecretKey: "test-secret"})
	require.NoError(t, err)
	token, err := jwt.GenerateToken("user-1", "")
	require.NoError(t, err)

	handler := OptionalAuth(jwt, pkgerrors.NewErrorHandler(zap.NewNop(), false), zap.NewNop())(echoUser())

	tests := []struct {
		name       string
		header     string
		wantStatus int
		wantBody   string
	}{
		{name: "anonymous", header: "", wantStatus: http.StatusOK, wantBody: ""},
		{name: "valid token", header: "Bearer " + token, wantStatus: http.StatusOK, wantBody: "user-1"},
		{name: "invalid token", header: "Bearer nope", wantStatus: http.StatusUnauthorized},
		{name: "not bearer", header: "Basic dXNlcjpwYXNz", wantStatus: http.StatusUnauthorized},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/api/v1/tree", nil)
			if tt.header != "" {
				req.Header.Set("Authorization", tt.header)
			}
			rec := httptest.NewRecorder()

			handler.ServeHTTP(rec, req)

			assert.Equal(t, tt.wantStatus, rec.Code)
			if tt.wantStatus == http.StatusOK {
				assert.Equal(t, tt.wantBody, rec.Body.String())
			}
		})
	}
}

func TestOptionalAuth_NoValidator(t *testing.T) {
	handler := OptionalAuth(nil, pkgerrors.NewErrorHandler(zap.NewNop(), false), zap.NewNop())(echoUser())

	req := httptest.NewRequest(http.MethodGet, "/api/v1/tree", nil)
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusOK, rec.Code)

	req.Header.Set("Authorization", "Bearer anything")
	rec = httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}
