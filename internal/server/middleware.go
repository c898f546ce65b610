package server

import (
	"bufio"
	"context"
	"crypto/rand"
	"encoding/hex"
	"errors"
	"net"
	"net/http"
	"strconv"
	"time"

	"github.com/lealre/community-backend/internal/api"
	"github.com/lealre/community-backend/internal/auth"
	"github.com/lealre/community-backend/internal/logx"
	"github.com/lealre/community-backend/internal/metrics"
	"github.com/lealre/community-backend/internal/mongodb"
)

type contextKey string

const requestIdKey contextKey = "requestId"

////////////////////////////////////////////////////////////////////////////
//  LOGGER MIDDLEWARE
////////////////////////////////////////////////////////////////////////////

// Creates a unique 5-character identifier
func generateRequestId() string {
	bytes := make([]byte, 3) // 3 bytes = 6 hex chars, we'll take first 5
	rand.Read(bytes)
	return hex.EncodeToString(bytes)[:5]
}

func RequestIdFromContext(ctx context.Context) string {
	id, _ := ctx.Value(requestIdKey).(string)
	return id
}

// responseRecorder wraps http.ResponseWriter to capture status code
type responseRecorder struct {
	http.ResponseWriter
	statusCode int
}

func (rr *responseRecorder) WriteHeader(statusCode int) {
	rr.statusCode = statusCode
	rr.ResponseWriter.WriteHeader(statusCode)
}

// Hijack lets the websocket upgrader take over the connection.
func (rr *responseRecorder) Hijack() (net.Conn, *bufio.ReadWriter, error) {
	hj, ok := rr.ResponseWriter.(http.Hijacker)
	if !ok {
		return nil, nil, errors.New("response writer does not support hijacking")
	}
	rr.statusCode = http.StatusSwitchingProtocols
	return hj.Hijack()
}

/*
RequestIdMiddleware creates a unique request ID for each request and stores it in the context.
Creates a logger carrying the request ID, method and path and stores it in the context.
- Logs when receives a request
- Logs when returns the response with time the request took and status code
- Observes the request duration histogram

Handlers can retrieve the logger using logx.FromContext(r.Context()).
Returns an http.Handler that wraps the next handler.
*/
func RequestIdMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		requestId := generateRequestId()
		startTime := time.Now()

		logger := logx.Logger().With().
			Str("request_id", requestId).
			Str("method", r.Method).
			Str("path", r.URL.Path).
			Logger()

		logger.Debug().Msg("request received")

		ctx := context.WithValue(r.Context(), requestIdKey, requestId)
		ctx = logx.WithLogger(ctx, &logger)
		r = r.WithContext(ctx)

		recorder := &responseRecorder{ResponseWriter: w, statusCode: http.StatusOK}

		next.ServeHTTP(recorder, r)

		duration := time.Since(startTime)
		metrics.HTTPRequestDuration.
			WithLabelValues(r.Method, strconv.Itoa(recorder.statusCode)).
			Observe(duration.Seconds())

		event := logger.Info()
		if recorder.statusCode >= http.StatusInternalServerError {
			event = logger.Error()
		}
		event.Int("status", recorder.statusCode).
			Dur("duration", duration).
			Msg("request completed")
	})
}

////////////////////////////////////////////////////////////////////////////
//  TIMEOUT MIDDLEWARE
////////////////////////////////////////////////////////////////////////////

// TimeoutMiddleware gives every request a deadline. Storage calls made with
// the request context fail fast once it passes.
func TimeoutMiddleware(timeout time.Duration) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		if timeout <= 0 {
			return next
		}
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx, cancel := context.WithTimeout(r.Context(), timeout)
			defer cancel()
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

////////////////////////////////////////////////////////////////////////////
//  AUTHENTICATION MIDDLEWARE
////////////////////////////////////////////////////////////////////////////

// UserLookup resolves the subject of a valid token.
type UserLookup func(ctx context.Context, userId string) (mongodb.UserDb, error)

func AuthMiddleware(tokenSecret string, lookup UserLookup) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {

			// Skip authentication for public endpoints
			if api.PublicPaths[r.Method+" "+r.URL.Path] {
				next.ServeHTTP(w, r)
				return
			}

			// Header first, then ?token= for websocket handshakes
			tokenString, err := auth.GetRequestToken(r)
			if err != nil {
				api.RespondWithUnauthorized(w, err)
				return
			}

			userId, err := auth.ValidateJWT(tokenString, tokenSecret)
			if err != nil {
				api.RespondWithUnauthorized(w, err)
				return
			}

			userDb, err := lookup(r.Context(), userId)
			if err != nil {
				if errors.Is(err, mongodb.ErrRecordNotFound) {
					api.RespondWithUnauthorized(w, auth.ErrUnknownTokenUser)
					return
				}
				if mongodb.IsUnavailable(err) {
					api.RespondWithUnavailable(w)
					return
				}
				logx.FromContext(r.Context()).Error().Err(err).Msg("failed to load token user")
				http.Error(w, "Unauthorized", http.StatusUnauthorized)
				return
			}
			if !userDb.IsActive {
				api.RespondWithUnauthorized(w, auth.ErrUnknownTokenUser)
				return
			}

			ctx := auth.WithUser(r.Context(), userDb)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}
