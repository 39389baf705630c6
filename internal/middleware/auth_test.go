package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
)

const (
	testSecret   = "test-secret"
	testIssuer   = "https://carpool.test/"
	testAudience = "carpool-api"
)

func init() {
	gin.SetMode(gin.TestMode)
}

func signToken(t *testing.T, claims jwt.MapClaims) string {
	t.Helper()
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(testSecret))
	if err != nil {
		t.Fatalf("sign token: %v", err)
	}
	return token
}

func validClaims(sub, role string) jwt.MapClaims {
	now := time.Now()
	return jwt.MapClaims{
		"sub":  sub,
		"role": role,
		"iss":  testIssuer,
		"aud":  testAudience,
		"iat":  now.Unix(),
		"exp":  now.Add(time.Hour).Unix(),
	}
}

func newAuthRouter(t *testing.T) *gin.Engine {
	t.Helper()
	chain, err := JWT(AuthConfig{Secret: testSecret, Issuer: testIssuer, Audience: testAudience})
	if err != nil {
		t.Fatalf("build auth chain: %v", err)
	}

	r := gin.New()
	g := r.Group("/", chain...)
	g.GET("/me", func(c *gin.Context) {
		id, _ := GetIdentity(c)
		c.String(http.StatusOK, id.ID+" "+id.Role)
	})
	g.GET("/driver-only", RequireRole(RoleDriver), func(c *gin.Context) {
		c.Status(http.StatusNoContent)
	})
	return r
}

func get(r http.Handler, path, token string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodGet, path, nil)
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func TestJWT(t *testing.T) {
	r := newAuthRouter(t)

	expired := validClaims("user-1", RolePassenger)
	expired["exp"] = time.Now().Add(-time.Hour).Unix()

	wrongAudience := validClaims("user-1", RolePassenger)
	wrongAudience["aud"] = "someone-else"

	tests := []struct {
		name   string
		token  string
		status int
		body   string
	}{
		{"valid passenger", signToken(t, validClaims("user-1", RolePassenger)), http.StatusOK, "user-1 PASSENGER"},
		{"no token", "", http.StatusUnauthorized, ""},
		{"garbage", "not-a-jwt", http.StatusUnauthorized, ""},
		{"expired", signToken(t, expired), http.StatusUnauthorized, ""},
		{"wrong audience", signToken(t, wrongAudience), http.StatusUnauthorized, ""},
		{"unknown role", signToken(t, validClaims("user-1", "ADMIN")), http.StatusUnauthorized, ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := get(r, "/me", tt.token)
			if w.Code != tt.status {
				t.Fatalf("status = %d, want %d (%s)", w.Code, tt.status, w.Body.String())
			}
			if tt.body != "" && w.Body.String() != tt.body {
				t.Errorf("body = %q, want %q", w.Body.String(), tt.body)
			}
		})
	}
}

func TestRequireRole(t *testing.T) {
	r := newAuthRouter(t)

	if w := get(r, "/driver-only", signToken(t, validClaims("d-1", RoleDriver))); w.Code != http.StatusNoContent {
		t.Errorf("driver: status = %d", w.Code)
	}
	if w := get(r, "/driver-only", signToken(t, validClaims("p-1", RolePassenger))); w.Code != http.StatusForbidden {
		t.Errorf("passenger: status = %d", w.Code)
	}
}

func TestJWTConfigErrors(t *testing.T) {
	for name, cfg := range map[string]AuthConfig{
		"no audience":      {Secret: testSecret, Issuer: testIssuer},
		"secret no issuer": {Secret: testSecret, Audience: testAudience},
		"no key source":    {Audience: testAudience},
	} {
		if _, err := JWT(cfg); err == nil {
			t.Errorf("%s: expected an error", name)
		}
	}
}
