package api

import (
	"errors"
	"net/http"
	"strings"

	"github.com/goccy/go-json"
	"github.com/lealre/community-backend/internal/auth"
	"github.com/lealre/community-backend/internal/logx"
	"github.com/lealre/community-backend/internal/mongodb"
	"github.com/lealre/community-backend/internal/services/communities"
	"github.com/lealre/community-backend/internal/services/notifications"
	"github.com/lealre/community-backend/internal/services/ratings"
	"github.com/lealre/community-backend/internal/services/reviews"
	"github.com/lealre/community-backend/internal/services/users"
)

// RetryAfterSeconds is sent with every 503.
const RetryAfterSeconds = "5"

var errorMaps = []map[error]int{
	users.ErrorMap,
	communities.ErrorMap,
	reviews.ErrorMap,
	notifications.ErrorMap,
	ratings.ErrorMap,
	auth.ErrorsMap,
}

func respondWithJSON(w http.ResponseWriter, code int, payload interface{}) error {
	response, err := json.Marshal(&payload)
	if err != nil {
		return err
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	w.Write(response)

	return nil
}

func respondWithError(w http.ResponseWriter, code int, msg string) error {
	messageBody := ErrorResponse{
		StatusCode:   code,
		ErrorMessage: msg,
	}
	return respondWithJSON(w, code, messageBody)
}

func RespondWithUnauthorized(w http.ResponseWriter, err error) error {
	return respondWithError(w, http.StatusUnauthorized, formatErrorMessage(err))
}

func RespondWithUnavailable(w http.ResponseWriter) error {
	w.Header().Set("Retry-After", RetryAfterSeconds)
	return respondWithError(w, http.StatusServiceUnavailable, "Storage is temporarily unavailable, retry later")
}

// respondWithServiceError maps a service error to its status code. Unknown
// errors are logged and reported as 500 with fallbackMsg.
func respondWithServiceError(w http.ResponseWriter, r *http.Request, err error, fallbackMsg string) {
	if mongodb.IsUnavailable(err) || errors.Is(err, ratings.ErrStorageUnavailable) {
		logx.FromContext(r.Context()).Warn().Err(err).Msg("storage unavailable")
		RespondWithUnavailable(w)
		return
	}
	if statusCode, ok := getErrorStatusCode(err); ok {
		respondWithError(w, statusCode, formatErrorMessage(err))
		return
	}
	logx.FromContext(r.Context()).Error().Err(err).Msg(fallbackMsg)
	respondWithError(w, http.StatusInternalServerError, fallbackMsg)
}

func decodeBody(r *http.Request, dst any) error {
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	return dec.Decode(dst)
}

func formatErrorMessage(err error) string {
	errorMsg := err.Error()
	if len(errorMsg) > 0 {
		return strings.ToUpper(errorMsg[:1]) + errorMsg[1:]
	}
	return ""
}

// getErrorStatusCode safely checks if an error is in one of the service error
// maps by iterating through them and using errors.Is() to match errors. This
// prevents panics when non-hashable errors (like MongoDB errors) are passed
// as map keys.
func getErrorStatusCode(err error) (int, bool) {
	for _, errMap := range errorMaps {
		for predefinedErr, statusCode := range errMap {
			if errors.Is(err, predefinedErr) {
				return statusCode, true
			}
		}
	}
	return 0, false
}
