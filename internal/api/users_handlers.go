package api

import (
	"net/http"

	"github.com/lealre/community-backend/internal/services/users"
)

func (api *API) CreateUser(w http.ResponseWriter, r *http.Request) {
	var req users.NewUserRequest
	if err := decodeBody(r, &req); err != nil {
		respondWithError(w, http.StatusBadRequest, "Invalid JSON body")
		return
	}

	user, err := users.CreateUser(api.Db, r.Context(), req)
	if err != nil {
		respondWithServiceError(w, r, err, "Failed to add user")
		return
	}

	respondWithJSON(w, http.StatusCreated, user)
}

func (api *API) GetUser(w http.ResponseWriter, r *http.Request) {
	userId := r.PathValue("id")
	if userId == "" {
		respondWithError(w, http.StatusBadRequest, "User id is required")
		return
	}

	user, err := users.GetUserById(api.Db, r.Context(), userId)
	if err != nil {
		respondWithServiceError(w, r, err, "Database lookup failed")
		return
	}

	respondWithJSON(w, http.StatusOK, user)
}
