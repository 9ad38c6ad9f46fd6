// Package auth implements the admin login for the biolink document.
//
// A successful login creates a server-side session and hands the client a
// signed JWT cookie that names the session. A request is authenticated only
// when the cookie verifies and the session it names is still alive, so a
// logout or a session expiry revokes the cookie even before the JWT expires.
package auth

import (
	"context"
	"crypto/sha256"
	"crypto/subtle"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/golang-jwt/jwt/v4"
	"go.uber.org/zap"

	"github.com/patric-chuzhbe/biolink/internal/logger"
	"github.com/patric-chuzhbe/biolink/internal/models"
)

type sessionKeeper interface {
	Create(ctx context.Context, ttl time.Duration) (string, error)
	Valid(ctx context.Context, id string) (bool, error)
	Delete(ctx context.Context, id string) error
}

// Auth checks the admin password and tracks admin sessions.
type Auth struct {
	sessions sessionKeeper

	// passwordDigest is the sha256 of the configured admin password.
	passwordDigest [sha256.Size]byte

	authCookieName             string
	authCookieSigningSecretKey []byte
	sessionTTL                 time.Duration
}

// Claims represents the JWT claims stored in the auth cookie.
type Claims struct {
	jwt.RegisteredClaims
	SessionID string `json:"sid"`
}

func New(
	sessions sessionKeeper,
	password string,
	authCookieName string,
	authCookieSigningSecretKey []byte,
	sessionTTL time.Duration,
) *Auth {
	return &Auth{
		sessions:                   sessions,
		passwordDigest:             sha256.Sum256([]byte(password)),
		authCookieName:             authCookieName,
		authCookieSigningSecretKey: authCookieSigningSecretKey,
		sessionTTL:                 sessionTTL,
	}
}

// Login compares password with the admin password and, on a match, starts a
// session and sets the auth cookie on response. On a mismatch it returns
// models.ErrCredentialMismatch and touches nothing.
func (a *Auth) Login(ctx context.Context, response http.ResponseWriter, password string) error {
	digest := sha256.Sum256([]byte(password))
	if subtle.ConstantTimeCompare(digest[:], a.passwordDigest[:]) != 1 {
		return models.ErrCredentialMismatch
	}

	sessionID, err := a.sessions.Create(ctx, a.sessionTTL)
	if err != nil {
		return fmt.Errorf("error creating session: %w", err)
	}

	now := time.Now()
	JWTString, err := a.buildJWTString(&Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(a.sessionTTL)),
		},
		SessionID: sessionID,
	})
	if err != nil {
		return fmt.Errorf("error signing session token: %w", err)
	}

	http.SetCookie(
		response,
		&http.Cookie{
			Name:     a.authCookieName,
			Value:    JWTString,
			Path:     "/",
			MaxAge:   int(a.sessionTTL.Seconds()),
			HttpOnly: true,
			SameSite: http.SameSiteLaxMode,
		},
	)

	return nil
}

// Logout ends the session named by the request cookie, if any, and clears
// the cookie. Logging out without a session is not an error.
func (a *Auth) Logout(response http.ResponseWriter, request *http.Request) error {
	http.SetCookie(
		response,
		&http.Cookie{
			Name:     a.authCookieName,
			Value:    "",
			Path:     "/",
			MaxAge:   -1,
			HttpOnly: true,
			SameSite: http.SameSiteLaxMode,
		},
	)

	sessionID := a.getSessionIDFromAuthorizationHeaderOrCookie(request)
	if sessionID == "" {
		return nil
	}

	return a.sessions.Delete(request.Context(), sessionID)
}

// IsAuthenticated reports whether request carries a valid token naming a live session.
func (a *Auth) IsAuthenticated(request *http.Request) bool {
	sessionID := a.getSessionIDFromAuthorizationHeaderOrCookie(request)
	if sessionID == "" {
		return false
	}

	valid, err := a.sessions.Valid(request.Context(), sessionID)
	if err != nil {
		logger.Log.Debugln("Error calling the `a.sessions.Valid()`: ", zap.Error(err))
		return false
	}

	return valid
}

// RequireAuthenticated is an HTTP middleware that rejects requests without
// an authenticated session with 401 and a JSON failure result.
func (a *Auth) RequireAuthenticated(h http.Handler) http.Handler {
	middleware := func(response http.ResponseWriter, request *http.Request) {
		if !a.IsAuthenticated(request) {
			response.Header().Set("Content-Type", "application/json")
			response.WriteHeader(http.StatusUnauthorized)
			err := json.NewEncoder(response).Encode(models.Result{
				Success: false,
				Message: "Unauthorized",
			})
			if err != nil {
				logger.Log.Debugln("Error encoding the unauthorized response: ", zap.Error(err))
			}

			return
		}

		h.ServeHTTP(response, request)
	}

	return http.HandlerFunc(middleware)
}

func (a *Auth) getTokenStringFromAuthorizationHeaderOrCookie(request *http.Request) string {
	tokenString := request.Header.Get("Authorization")
	if tokenString != "" {
		return tokenString
	}
	cookie, err := request.Cookie(a.authCookieName)
	if err == nil {
		tokenString = cookie.Value
	}

	return tokenString
}

func (a *Auth) getSessionIDFromAuthorizationHeaderOrCookie(request *http.Request) string {
	tokenString := a.getTokenStringFromAuthorizationHeaderOrCookie(request)
	if tokenString == "" {
		return ""
	}

	claims := &Claims{}
	token, err := jwt.ParseWithClaims(
		tokenString,
		claims,
		func(t *jwt.Token) (interface{}, error) {
			if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
				return nil, fmt.Errorf("unexpected signing method: %v", t.Header["alg"])
			}
			return a.authCookieSigningSecretKey, nil
		},
	)
	if err != nil || !token.Valid {
		return ""
	}

	return claims.SessionID
}

func (a *Auth) buildJWTString(claims *Claims) (string, error) {
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, *claims)

	tokenString, err := token.SignedString(a.authCookieSigningSecretKey)
	if err != nil {
		return "", err
	}

	return tokenString, nil
}
