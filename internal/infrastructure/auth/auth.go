// Package auth implements the optional bearer/JWKS guard for both
// session-server surfaces.
package auth

import (
	"context"
	"net/http"
	"strings"
	"time"

	"github.com/MicahParks/keyfunc/v2"
	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
	"github.com/rs/zerolog"

	"github.com/codemoderun/codemode/internal/infrastructure/config"
)

// Validator validates bearer JWTs against a JWKS endpoint. A nil
// receiver, or one built against a config with auth disabled, is a
// no-op pass-through: every method starts with a (v == nil ||
// !cfg.AuthEnabled) guard.
type Validator struct {
	ambient config.Ambient
	log     zerolog.Logger
	jwks    *keyfunc.JWKS
}

// NewValidator initializes JWKS fetching only when auth is enabled.
func NewValidator(ctx context.Context, ambient config.Ambient, log zerolog.Logger) (*Validator, error) {
	if !ambient.AuthEnabled {
		return &Validator{ambient: ambient, log: log}, nil
	}

	options := keyfunc.Options{
		Ctx:               ctx,
		RefreshInterval:   time.Hour,
		RefreshUnknownKID: true,
		RefreshErrorHandler: func(err error) {
			log.Error().Err(err).Msg("jwks refresh error")
		},
	}

	jwks, err := keyfunc.Get(ambient.AuthJWKSURL, options)
	if err != nil {
		return nil, err
	}

	return &Validator{ambient: ambient, log: log, jwks: jwks}, nil
}

// Middleware enforces JWT auth on the gin surface when enabled.
func (v *Validator) Middleware() gin.HandlerFunc {
	if v == nil || !v.ambient.AuthEnabled {
		return func(c *gin.Context) { c.Next() }
	}

	return func(c *gin.Context) {
		token, err := v.Validate(bearerToken(c.GetHeader("Authorization")))
		if err != nil {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": err.Error()})
			return
		}
		c.Set("auth_token", token)
		c.Next()
	}
}

// Validate parses and verifies a bearer token string directly.
// Middleware calls it for every request, the /local-tools websocket
// upgrade included.
func (v *Validator) Validate(tokenString string) (*jwt.Token, error) {
	if v == nil || !v.ambient.AuthEnabled {
		return nil, nil
	}
	if tokenString == "" {
		return nil, errUnauthorized("missing bearer token")
	}

	token, err := jwt.Parse(tokenString, v.jwks.Keyfunc,
		jwt.WithIssuer(v.ambient.AuthIssuer),
		jwt.WithValidMethods([]string{"RS256", "RS384", "RS512"}),
	)
	if err != nil || !token.Valid {
		return nil, errUnauthorized("invalid token")
	}
	if _, ok := token.Claims.(jwt.MapClaims); !ok {
		return nil, errUnauthorized("invalid token claims")
	}
	return token, nil
}

// Ready reports whether the validator is usable (JWKS fetched, or auth
// disabled entirely).
func (v *Validator) Ready() bool {
	if v == nil || !v.ambient.AuthEnabled {
		return true
	}
	return v.jwks != nil
}

type unauthorizedError string

func (e unauthorizedError) Error() string { return string(e) }

func errUnauthorized(msg string) error { return unauthorizedError(msg) }

func bearerToken(header string) string {
	if header == "" {
		return ""
	}
	parts := strings.SplitN(header, " ", 2)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") {
		return ""
	}
	return strings.TrimSpace(parts[1])
}
