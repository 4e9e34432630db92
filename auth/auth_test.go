package auth

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"productsapi/models"
)

var ana = &models.AppUser{ID: 7, Email: "ana@example.com", Role: "admin"}

func TestIssueAndParse(t *testing.T) {
	m := NewTokenManager("s3cret")

	token, err := m.Issue(ana)
	require.NoError(t, err)

	claims, err := m.Parse(token)
	require.NoError(t, err)
	assert.EqualValues(t, 7, claims.ID)
	assert.Equal(t, "ana@example.com", claims.Email)
	assert.Equal(t, "admin", claims.Role)
	assert.WithinDuration(t, time.Now().Add(TokenTTL), claims.ExpiresAt.Time, time.Minute)
}

func TestParseRejectsTampering(t *testing.T) {
	m := NewTokenManager("s3cret")
	token, err := m.Issue(ana)
	require.NoError(t, err)

	// flip one character in the payload section
	b := []byte(token)
	i := len(b) / 2
	if b[i] == 'A' {
		b[i] = 'B'
	} else {
		b[i] = 'A'
	}
	_, err = m.Parse(string(b))
	assert.Error(t, err)

	_, err = NewTokenManager("other").Parse(token)
	assert.Error(t, err)
}

func TestParseRejectsExpiredAndForeignAlg(t *testing.T) {
	m := NewTokenManager("s3cret")
	m.now = func() time.Time { return time.Now().Add(-25 * time.Hour) }
	old, err := m.Issue(ana)
	require.NoError(t, err)

	_, err = NewTokenManager("s3cret").Parse(old)
	assert.Error(t, err)

	none, err := jwt.NewWithClaims(jwt.SigningMethodNone, Claims{ID: 1}).SignedString(jwt.UnsafeAllowNoneSignatureType)
	require.NoError(t, err)
	_, err = NewTokenManager("s3cret").Parse(none)
	assert.Error(t, err)
}

func TestPasswordHashing(t *testing.T) {
	hash, err := HashPassword("hunter22")
	require.NoError(t, err)
	assert.NotEqual(t, "hunter22", hash)
	assert.True(t, CheckPassword(hash, "hunter22"))
	assert.False(t, CheckPassword(hash, "hunter23"))
}

func TestRequireToken(t *testing.T) {
	m := NewTokenManager("s3cret")
	token, err := m.Issue(ana)
	require.NoError(t, err)

	var seen *int64
	h := RequireToken(m, zaptest.NewLogger(t))(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		seen = UserIDFromContext(r.Context())
		w.WriteHeader(http.StatusNoContent)
	}))

	cases := []struct {
		name   string
		header string
		status int
		body   string
	}{
		{"missing", "", http.StatusUnauthorized, "Access token required"},
		{"wrong scheme", "Basic " + token, http.StatusUnauthorized, "Access token required"},
		{"garbage", "Bearer not.a.token", http.StatusUnauthorized, "Invalid or expired token"},
		{"valid", "Bearer " + token, http.StatusNoContent, ""},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/api/products", nil)
			if tc.header != "" {
				req.Header.Set("Authorization", tc.header)
			}
			rec := httptest.NewRecorder()
			h.ServeHTTP(rec, req)

			assert.Equal(t, tc.status, rec.Code)
			assert.Contains(t, rec.Body.String(), tc.body)
		})
	}
	require.NotNil(t, seen)
	assert.EqualValues(t, 7, *seen)
}

func TestRequireAPIKey(t *testing.T) {
	ok := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) { w.WriteHeader(http.StatusOK) })

	rec := httptest.NewRecorder()
	RequireAPIKey("")(ok).ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))
	assert.Equal(t, http.StatusOK, rec.Code)

	guarded := RequireAPIKey("k1")(ok)

	rec = httptest.NewRecorder()
	guarded.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.JSONEq(t, `{"error":"Invalid API key"}`, rec.Body.String())

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("Authorization", "Bearer k1")
	rec = httptest.NewRecorder()
	guarded.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusOK, rec.Code)
}
