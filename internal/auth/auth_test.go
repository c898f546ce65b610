package auth

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/lealre/community-backend/internal/mongodb"
	"github.com/stretchr/testify/require"
)

const secret = "test-secret"

func TestJWTRoundTrip(t *testing.T) {
	token, err := MakeJWT("u1", secret, time.Hour)
	require.NoError(t, err)

	subject, err := ValidateJWT(token, secret)
	require.NoError(t, err)
	require.Equal(t, "u1", subject)
}

func TestValidateJWTFailures(t *testing.T) {
	t.Run("Expired", func(t *testing.T) {
		token, err := MakeJWT("u1", secret, -time.Minute)
		require.NoError(t, err)
		_, err = ValidateJWT(token, secret)
		require.ErrorIs(t, err, ErrTokenExpired)
	})

	t.Run("Wrong secret", func(t *testing.T) {
		token, err := MakeJWT("u1", secret, time.Hour)
		require.NoError(t, err)
		_, err = ValidateJWT(token, "other")
		require.ErrorIs(t, err, ErrInvalidToken)
	})

	t.Run("No subject", func(t *testing.T) {
		token, err := MakeJWT("", secret, time.Hour)
		require.NoError(t, err)
		_, err = ValidateJWT(token, secret)
		require.ErrorIs(t, err, ErrTokenWithNoSubject)
	})

	t.Run("Unsigned token", func(t *testing.T) {
		token := jwt.NewWithClaims(jwt.SigningMethodNone, jwt.RegisteredClaims{Subject: "u1"})
		signed, err := token.SignedString(jwt.UnsafeAllowNoneSignatureType)
		require.NoError(t, err)
		_, err = ValidateJWT(signed, secret)
		require.Error(t, err)
	})
}

func TestGetRequestToken(t *testing.T) {
	cases := []struct {
		name    string
		header  string
		url     string
		want    string
		wantErr error
	}{
		{"header", "Bearer abc", "/ws", "abc", nil},
		{"header wins over query", "Bearer abc", "/ws?token=xyz", "abc", nil},
		{"query", "", "/ws?token=xyz", "xyz", nil},
		{"missing", "", "/ws", "", ErrNoAuthorizationHeader},
		{"malformed header", "Token abc", "/ws?token=xyz", "", ErrMalformedAuthHeader},
		{"empty bearer", "Bearer  ", "/ws", "", ErrNoTokenInAuthHeader},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			r := httptest.NewRequest(http.MethodGet, tc.url, nil)
			if tc.header != "" {
				r.Header.Set("Authorization", tc.header)
			}

			got, err := GetRequestToken(r)
			if tc.wantErr != nil {
				require.ErrorIs(t, err, tc.wantErr)
				return
			}
			require.NoError(t, err)
			require.Equal(t, tc.want, got)
		})
	}
}

func TestUserContext(t *testing.T) {
	require.Nil(t, GetUserFromContext(context.Background()))

	ctx := WithUser(context.Background(), mongodb.UserDb{Id: "u1"})
	user := GetUserFromContext(ctx)
	require.NotNil(t, user)
	require.Equal(t, "u1", user.Id)
}
