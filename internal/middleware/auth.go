package middleware

import (
	"context"
	"encoding/json"
	"net/http"
	"strings"

	"mediminds/pkg/models"

	"firebase.google.com/go/v4/auth"
	"go.uber.org/zap"
)

// TokenVerifier is satisfied by *auth.Client.
type TokenVerifier interface {
	VerifyIDToken(ctx context.Context, idToken string) (*auth.Token, error)
}

type ctxKey int

const caregiverKey ctxKey = iota

// DevUserID is used when authentication is disabled and no X-User-ID header
// is sent.
const DevUserID = "local-caregiver"

func WithCaregiver(ctx context.Context, c models.Caregiver) context.Context {
	return context.WithValue(ctx, caregiverKey, c)
}

// CaregiverFrom returns the caregiver placed in the context by Authenticator.
func CaregiverFrom(ctx context.Context) (models.Caregiver, bool) {
	c, ok := ctx.Value(caregiverKey).(models.Caregiver)
	return c, ok
}

// Authenticator resolves the signed-in caregiver from a Firebase ID token.
type Authenticator struct {
	verifier TokenVerifier
	disabled bool
	logger   *zap.Logger
}

func NewAuthenticator(verifier TokenVerifier, disabled bool, logger *zap.Logger) *Authenticator {
	return &Authenticator{verifier: verifier, disabled: disabled, logger: logger}
}

func (a *Authenticator) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		caregiver, ok := a.authenticate(w, r)
		if !ok {
			return
		}
		next.ServeHTTP(w, r.WithContext(WithCaregiver(r.Context(), caregiver)))
	})
}

func (a *Authenticator) authenticate(w http.ResponseWriter, r *http.Request) (models.Caregiver, bool) {
	if a.disabled {
		userID := r.Header.Get("X-User-ID")
		if userID == "" {
			userID = DevUserID
		}
		return models.Caregiver{UserID: userID, Email: r.Header.Get("X-User-Email")}, true
	}

	token := bearerToken(r)
	if token == "" {
		unauthorized(w, "missing bearer token")
		return models.Caregiver{}, false
	}
	if a.verifier == nil {
		a.logger.Error("authentication requested but no identity provider is configured")
		unauthorized(w, "authentication is not configured")
		return models.Caregiver{}, false
	}

	verified, err := a.verifier.VerifyIDToken(r.Context(), token)
	if err != nil {
		a.logger.Warn("rejected ID token", zap.String("path", r.URL.Path), zap.Error(err))
		unauthorized(w, "invalid or expired token")
		return models.Caregiver{}, false
	}

	email, _ := verified.Claims["email"].(string)
	return models.Caregiver{UserID: verified.UID, Email: email}, true
}

// bearerToken reads the Authorization header, or the token query parameter
// for WebSocket clients that cannot set headers.
func bearerToken(r *http.Request) string {
	if h := r.Header.Get("Authorization"); h != "" {
		if len(h) > 7 && strings.EqualFold(h[:7], "bearer ") {
			return strings.TrimSpace(h[7:])
		}
		return ""
	}
	return r.URL.Query().Get("token")
}

func unauthorized(w http.ResponseWriter, msg string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusUnauthorized)
	json.NewEncoder(w).Encode(map[string]string{"error": msg})
}
