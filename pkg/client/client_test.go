package client

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/jwtauth/v5"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var testSecret = []byte("test-jwt-secret-key")

// createTestToken signs a token in the shape tokengenerator produces.
func createTestToken(t *testing.T, userID string, roles []string) string {
	t.Helper()
	tokenAuth := jwtauth.New("HS256", testSecret, nil)
	claims := map[string]interface{}{
		"sub":     userID,
		"exp":     time.Now().Add(time.Hour).Unix(),
		"user_id": userID,
		"extra_claims": map[string]interface{}{
			"username": "test@example.com",
			"email":    "test@example.com",
			"roles":    roles,
		},
	}
	_, tokenString, err := tokenAuth.Encode(claims)
	require.NoError(t, err)
	return tokenString
}

func newProtectedRouter(adminRoles ...string) http.Handler {
	tokenAuth := jwtauth.New("HS256", testSecret, nil)
	r := chi.NewRouter()
	r.Use(Verifier(tokenAuth))
	r.Use(jwtauth.Authenticator(tokenAuth))
	r.Use(AuthUserMiddleware)

	r.Get("/me", func(w http.ResponseWriter, r *http.Request) {
		u, ok := GetAuthUser(r.Context())
		if !ok {
			w.WriteHeader(http.StatusInternalServerError)
			return
		}
		w.Write([]byte(u.UserUuid.String()))
	})
	r.With(RequireRole(adminRoles...)).Get("/admin", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})
	return r
}

func TestAuthUserMiddleware(t *testing.T) {
	router := newProtectedRouter("Admin")
	userID := uuid.New()

	req := httptest.NewRequest(http.MethodGet, "/me", nil)
	req.Header.Set("Authorization", "Bearer "+createTestToken(t, userID.String(), []string{"Viewer"}))
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, userID.String(), rec.Body.String())
}

func TestTokenFromCookie(t *testing.T) {
	router := newProtectedRouter("Admin")
	userID := uuid.New()

	req := httptest.NewRequest(http.MethodGet, "/me", nil)
	req.AddCookie(&http.Cookie{Name: ACCESS_TOKEN_NAME, Value: createTestToken(t, userID.String(), nil)})
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestRequireRole(t *testing.T) {
	router := newProtectedRouter("Admin", "SuperAdmin")

	tests := []struct {
		name       string
		token      func() string
		wantStatus int
	}{
		{name: "no token", token: func() string { return "" }, wantStatus: http.StatusUnauthorized},
		{name: "garbage token", token: func() string { return "not-a-jwt" }, wantStatus: http.StatusUnauthorized},
		{
			name:       "missing role",
			token:      func() string { return createTestToken(t, uuid.NewString(), []string{"Viewer"}) },
			wantStatus: http.StatusForbidden,
		},
		{
			name:       "admin role",
			token:      func() string { return createTestToken(t, uuid.NewString(), []string{"Admin"}) },
			wantStatus: http.StatusOK,
		},
		{
			name:       "admin role other case",
			token:      func() string { return createTestToken(t, uuid.NewString(), []string{"superadmin"}) },
			wantStatus: http.StatusOK,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/admin", nil)
			if tok := tt.token(); tok != "" {
				req.Header.Set("Authorization", "Bearer "+tok)
			}
			rec := httptest.NewRecorder()
			router.ServeHTTP(rec, req)
			assert.Equal(t, tt.wantStatus, rec.Code)
		})
	}
}

func TestHasAnyRole(t *testing.T) {
	var nilUser *AuthUser
	assert.False(t, nilUser.HasAnyRole("Admin"))

	u := &AuthUser{ExtraClaims: ExtraClaims{Roles: []string{"admin", "editor"}}}
	assert.True(t, u.HasAnyRole("Admin"))
	assert.False(t, u.HasAnyRole("Viewer"))
	assert.False(t, u.HasAnyRole())
}

func TestRequireIssuer(t *testing.T) {
	tokenAuth := jwtauth.New("HS256", testSecret, nil)
	sign := func(claims map[string]interface{}) string {
		claims["sub"] = uuid.NewString()
		claims["exp"] = time.Now().Add(time.Hour).Unix()
		_, s, err := tokenAuth.Encode(claims)
		require.NoError(t, err)
		return s
	}

	tests := []struct {
		name     string
		expected string
		claims   map[string]interface{}
		want     int
	}{
		{"matching issuer", "simple-usermgmt", map[string]interface{}{"iss": "simple-usermgmt"}, http.StatusOK},
		{"foreign issuer", "simple-usermgmt", map[string]interface{}{"iss": "someone-else"}, http.StatusUnauthorized},
		{"missing issuer", "simple-usermgmt", map[string]interface{}{}, http.StatusUnauthorized},
		{"no issuer configured", "", map[string]interface{}{"iss": "anyone"}, http.StatusOK},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := chi.NewRouter()
			r.Use(Verifier(tokenAuth))
			r.Use(jwtauth.Authenticator(tokenAuth))
			r.Use(RequireIssuer(tt.expected))
			r.Get("/", func(w http.ResponseWriter, r *http.Request) {})

			req := httptest.NewRequest(http.MethodGet, "/", nil)
			req.Header.Set("Authorization", "Bearer "+sign(tt.claims))
			rec := httptest.NewRecorder()
			r.ServeHTTP(rec, req)
			assert.Equal(t, tt.want, rec.Code)
		})
	}
}
