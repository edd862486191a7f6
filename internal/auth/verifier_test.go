package auth

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/lestrrat-go/jwx/v2/jwa"
	"github.com/lestrrat-go/jwx/v2/jwt"
	"github.com/stretchr/testify/require"

	"github.com/mdfasadik-dev/pnh-agro-api/internal/common"
)

const testSecret = "test-secret-0123456789"

func fixedNow() time.Time {
	return time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
}

func newTestVerifier(t *testing.T) *Verifier {
	t.Helper()
	v, err := NewVerifier(VerifierConfig{
		Secret:   testSecret,
		Issuer:   "pnh-idp",
		Audience: "pnh-admin",
	})
	require.NoError(t, err)
	v.WithNow(fixedNow)
	return v
}

func signToken(t *testing.T, secret string, mutate func(*jwt.Builder) *jwt.Builder) string {
	t.Helper()
	builder := jwt.NewBuilder().
		Subject("op-1").
		Issuer("pnh-idp").
		Audience([]string{"pnh-admin"}).
		IssuedAt(fixedNow()).
		Expiration(fixedNow().Add(15 * time.Minute)).
		Claim("role", RoleAdmin)
	if mutate != nil {
		builder = mutate(builder)
	}
	tok, err := builder.Build()
	require.NoError(t, err)
	signed, err := jwt.Sign(tok, jwt.WithKey(jwa.HS256, []byte(secret)))
	require.NoError(t, err)
	return string(signed)
}

func TestVerifyAdminToken(t *testing.T) {
	v := newTestVerifier(t)
	subject, err := v.VerifyAdminToken(signToken(t, testSecret, nil))
	require.NoError(t, err)
	require.Equal(t, "op-1", subject)
}

func TestVerifyAdminTokenRejections(t *testing.T) {
	v := newTestVerifier(t)

	cases := []struct {
		name   string
		token  string
		code   string
		status int
	}{
		{
			name:   "empty",
			token:  "",
			code:   "UNAUTHORIZED",
			status: http.StatusUnauthorized,
		},
		{
			name:   "wrong secret",
			token:  signToken(t, "another-secret", nil),
			code:   "UNAUTHORIZED",
			status: http.StatusUnauthorized,
		},
		{
			name: "expired",
			token: signToken(t, testSecret, func(b *jwt.Builder) *jwt.Builder {
				return b.Expiration(fixedNow().Add(-time.Minute))
			}),
			code:   "UNAUTHORIZED",
			status: http.StatusUnauthorized,
		},
		{
			name: "wrong issuer",
			token: signToken(t, testSecret, func(b *jwt.Builder) *jwt.Builder {
				return b.Issuer("someone-else")
			}),
			code:   "UNAUTHORIZED",
			status: http.StatusUnauthorized,
		},
		{
			name: "missing role",
			token: signToken(t, testSecret, func(b *jwt.Builder) *jwt.Builder {
				return b.Claim("role", "viewer")
			}),
			code:   "FORBIDDEN",
			status: http.StatusForbidden,
		},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := v.VerifyAdminToken(tc.token)
			var appErr *common.AppError
			require.ErrorAs(t, err, &appErr)
			require.Equal(t, tc.code, appErr.Code)
			require.Equal(t, tc.status, appErr.HTTPStatus)
		})
	}
}

func TestRequireAdminMiddleware(t *testing.T) {
	v := newTestVerifier(t)
	mw := Middleware{Verifier: v}

	var gotSubject string
	handler := mw.RequireAdmin(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotSubject, _ = common.UserID(r.Context())
		w.WriteHeader(http.StatusNoContent)
	}))

	t.Run("accepts valid token", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/admin/coupons", nil)
		req.Header.Set("Authorization", "Bearer "+signToken(t, testSecret, nil))
		rr := httptest.NewRecorder()
		handler.ServeHTTP(rr, req)
		require.Equal(t, http.StatusNoContent, rr.Code)
		require.Equal(t, "op-1", gotSubject)
	})

	t.Run("rejects missing header", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/admin/coupons", nil)
		rr := httptest.NewRecorder()
		handler.ServeHTTP(rr, req)
		require.Equal(t, http.StatusUnauthorized, rr.Code)
	})
}
