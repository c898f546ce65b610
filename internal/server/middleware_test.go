package server

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/goccy/go-json"
	"github.com/lealre/community-backend/internal/api"
	"github.com/lealre/community-backend/internal/auth"
	"github.com/lealre/community-backend/internal/logx"
	"github.com/lealre/community-backend/internal/mongodb"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/mongo"
)

const testSecret = "middleware-secret"

// ===================================
// 		TEST SETUP
// ===================================

func lookupFrom(users map[string]mongodb.UserDb, err error) UserLookup {
	return func(_ context.Context, userId string) (mongodb.UserDb, error) {
		if err != nil {
			return mongodb.UserDb{}, err
		}
		u, ok := users[userId]
		if !ok {
			return mongodb.UserDb{}, mongodb.ErrRecordNotFound
		}
		return u, nil
	}
}

func echoUser(w http.ResponseWriter, r *http.Request) {
	user := auth.GetUserFromContext(r.Context())
	if user == nil {
		w.WriteHeader(http.StatusNoContent)
		return
	}
	w.Write([]byte(user.Id))
}

func mustToken(t *testing.T, userId string) string {
	t.Helper()
	token, err := auth.MakeJWT(userId, testSecret, time.Hour)
	require.NoError(t, err)
	return token
}

func decodeError(t *testing.T, rec *httptest.ResponseRecorder) api.ErrorResponse {
	t.Helper()
	var body api.ErrorResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	return body
}

// ===================================
// 		TESTS
// ===================================

func TestAuthMiddleware(t *testing.T) {
	users := map[string]mongodb.UserDb{
		"alice": {Id: "alice", IsActive: true},
		"ghost": {Id: "ghost", IsActive: false},
	}
	handler := AuthMiddleware(testSecret, lookupFrom(users, nil))(http.HandlerFunc(echoUser))

	t.Run("Public path skips auth", func(t *testing.T) {
		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/users", nil))
		require.Equal(t, http.StatusNoContent, rec.Code)
	})

	t.Run("Missing token", func(t *testing.T) {
		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/notifications", nil))
		require.Equal(t, http.StatusUnauthorized, rec.Code)
		require.Equal(t, http.StatusUnauthorized, decodeError(t, rec).StatusCode)
	})

	t.Run("Bearer header", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/notifications", nil)
		req.Header.Set("Authorization", "Bearer "+mustToken(t, "alice"))
		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, req)
		require.Equal(t, http.StatusOK, rec.Code)
		require.Equal(t, "alice", rec.Body.String())
	})

	t.Run("Query token", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/ws?token="+mustToken(t, "alice"), nil)
		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, req)
		require.Equal(t, http.StatusOK, rec.Code)
		require.Equal(t, "alice", rec.Body.String())
	})

	t.Run("Unknown user", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/notifications", nil)
		req.Header.Set("Authorization", "Bearer "+mustToken(t, "nobody"))
		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, req)
		require.Equal(t, http.StatusUnauthorized, rec.Code)
	})

	t.Run("Inactive user", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/notifications", nil)
		req.Header.Set("Authorization", "Bearer "+mustToken(t, "ghost"))
		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, req)
		require.Equal(t, http.StatusUnauthorized, rec.Code)
	})

	t.Run("Wrong secret", func(t *testing.T) {
		token, err := auth.MakeJWT("alice", "other-secret", time.Hour)
		require.NoError(t, err)
		req := httptest.NewRequest(http.MethodGet, "/notifications", nil)
		req.Header.Set("Authorization", "Bearer "+token)
		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, req)
		require.Equal(t, http.StatusUnauthorized, rec.Code)
	})
}

func TestAuthMiddlewareStorageUnavailable(t *testing.T) {
	handler := AuthMiddleware(testSecret, lookupFrom(nil, mongo.ErrClientDisconnected))(http.HandlerFunc(echoUser))

	req := httptest.NewRequest(http.MethodGet, "/notifications", nil)
	req.Header.Set("Authorization", "Bearer "+mustToken(t, "alice"))
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	require.Equal(t, http.StatusServiceUnavailable, rec.Code)
	require.Equal(t, api.RetryAfterSeconds, rec.Header().Get("Retry-After"))
}

func TestAuthMiddlewareLookupError(t *testing.T) {
	handler := AuthMiddleware(testSecret, lookupFrom(nil, errors.New("boom")))(http.HandlerFunc(echoUser))

	req := httptest.NewRequest(http.MethodGet, "/notifications", nil)
	req.Header.Set("Authorization", "Bearer "+mustToken(t, "alice"))
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	require.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestRequestIdMiddleware(t *testing.T) {
	var gotId string
	var gotLogger bool
	handler := RequestIdMiddleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotId = RequestIdFromContext(r.Context())
		gotLogger = logx.FromContext(r.Context()) != logx.Logger()
		w.WriteHeader(http.StatusTeapot)
	}))

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/healthz", nil))

	require.Equal(t, http.StatusTeapot, rec.Code)
	require.Len(t, gotId, 5)
	require.True(t, gotLogger)
}

func TestTimeoutMiddleware(t *testing.T) {
	var deadline time.Time
	var ok bool
	handler := TimeoutMiddleware(50*time.Millisecond)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		deadline, ok = r.Context().Deadline()
	}))

	handler.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/", nil))
	require.True(t, ok)
	require.WithinDuration(t, time.Now().Add(50*time.Millisecond), deadline, time.Second)
}
