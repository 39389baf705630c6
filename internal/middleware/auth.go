package middleware

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"slices"
	"time"

	jwtmiddleware "github.com/auth0/go-jwt-middleware/v2"
	"github.com/auth0/go-jwt-middleware/v2/jwks"
	"github.com/auth0/go-jwt-middleware/v2/validator"
	"github.com/gin-gonic/gin"
	"github.com/goccy/go-json"
	adapter "github.com/gwatts/gin-adapter"
)

const (
	RoleDriver    = "DRIVER"
	RolePassenger = "PASSENGER"
)

// IdentityKey for storing the verified caller in Gin context
const IdentityKey = "identity"

// Identity is the verified caller. ID is the token subject.
type Identity struct {
	ID   string
	Role string
}

func (i Identity) Is(role string) bool {
	return i.Role == role
}

func SetIdentity(c *gin.Context, id Identity) {
	c.Set(IdentityKey, id)
}

// GetIdentity returns the caller stored by the auth chain.
func GetIdentity(c *gin.Context) (Identity, bool) {
	v, ok := c.Get(IdentityKey)
	if !ok {
		return Identity{}, false
	}
	id, ok := v.(Identity)
	return id, ok
}

// RoleClaims is the custom part of our access tokens.
type RoleClaims struct {
	Role string `json:"role"`
}

func (rc *RoleClaims) Validate(context.Context) error {
	if rc.Role != RoleDriver && rc.Role != RolePassenger {
		return fmt.Errorf("unknown role %q", rc.Role)
	}
	return nil
}

type AuthConfig struct {
	// Auth0Domain selects RS256 tokens verified against the tenant's JWKS.
	Auth0Domain string
	// Secret selects HS256 tokens signed with a shared secret. Issuer is
	// then required.
	Secret string
	Issuer string

	Audience string
}

// JWT builds the authentication chain: token verification followed by the
// step that turns verified claims into an Identity.
func JWT(cfg AuthConfig) (gin.HandlersChain, error) {
	v, err := newValidator(cfg)
	if err != nil {
		return nil, err
	}

	mw := jwtmiddleware.New(v.ValidateToken,
		jwtmiddleware.WithErrorHandler(func(w http.ResponseWriter, r *http.Request, err error) {
			slog.DebugContext(r.Context(), "rejected token", "error", err)
			writeUnauthorized(w)
		}),
	)

	return gin.HandlersChain{adapter.Wrap(mw.CheckJWT), identify}, nil
}

func newValidator(cfg AuthConfig) (*validator.Validator, error) {
	if cfg.Audience == "" {
		return nil, errors.New("audience is required")
	}
	opts := []validator.Option{
		validator.WithCustomClaims(func() validator.CustomClaims { return &RoleClaims{} }),
		validator.WithAllowedClockSkew(30 * time.Second),
	}

	switch {
	case cfg.Auth0Domain != "":
		issuerURL, err := url.Parse("https://" + cfg.Auth0Domain + "/")
		if err != nil {
			return nil, fmt.Errorf("parse issuer url: %w", err)
		}
		provider := jwks.NewCachingProvider(issuerURL, 5*time.Minute)
		return validator.New(provider.KeyFunc, validator.RS256, issuerURL.String(), []string{cfg.Audience}, opts...)
	case cfg.Secret != "":
		if cfg.Issuer == "" {
			return nil, errors.New("issuer is required with a shared secret")
		}
		key := []byte(cfg.Secret)
		keyFunc := func(context.Context) (interface{}, error) { return key, nil }
		return validator.New(keyFunc, validator.HS256, cfg.Issuer, []string{cfg.Audience}, opts...)
	default:
		return nil, errors.New("either an auth0 domain or a jwt secret must be configured")
	}
}

// identify runs after the token was verified.
func identify(c *gin.Context) {
	claims, ok := c.Request.Context().Value(jwtmiddleware.ContextKey{}).(*validator.ValidatedClaims)
	if !ok || claims.RegisteredClaims.Subject == "" {
		abortUnauthorized(c)
		return
	}
	rc, ok := claims.CustomClaims.(*RoleClaims)
	if !ok {
		abortUnauthorized(c)
		return
	}

	SetIdentity(c, Identity{ID: claims.RegisteredClaims.Subject, Role: rc.Role})
	c.Next()
}

// RequireRole lets the request through only if the caller has one of roles.
func RequireRole(roles ...string) gin.HandlerFunc {
	return func(c *gin.Context) {
		id, ok := GetIdentity(c)
		if !ok {
			abortUnauthorized(c)
			return
		}
		if !slices.Contains(roles, id.Role) {
			c.AbortWithStatusJSON(http.StatusForbidden, gin.H{
				"code":    "FORBIDDEN",
				"message": fmt.Sprintf("This action requires the %s role", roles[0]),
			})
			return
		}
		c.Next()
	}
}

func abortUnauthorized(c *gin.Context) {
	c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"code": "UNAUTHORIZED", "message": "Authentication required"})
}

func writeUnauthorized(w http.ResponseWriter) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(http.StatusUnauthorized)
	_ = json.NewEncoder(w).Encode(map[string]string{"code": "UNAUTHORIZED", "message": "Authentication required"})
}
