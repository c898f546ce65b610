package api

import (
	"errors"
	"io"
	"net/http"

	"github.com/lealre/community-backend/internal/auth"
	"github.com/lealre/community-backend/internal/generics"
	"github.com/lealre/community-backend/internal/services/communities"
)

func (api *API) CreateCommunity(w http.ResponseWriter, r *http.Request) {
	var req communities.NewCommunityRequest
	if err := decodeBody(r, &req); err != nil {
		respondWithError(w, http.StatusBadRequest, "Invalid JSON body")
		return
	}

	currentUser := auth.GetUserFromContext(r.Context())

	community, err := communities.CreateCommunity(api.Db, r.Context(), req, currentUser.Id)
	if err != nil {
		respondWithServiceError(w, r, err, "Failed to create community")
		return
	}

	respondWithJSON(w, http.StatusCreated, community)
}

func (api *API) GetCommunity(w http.ResponseWriter, r *http.Request) {
	community, err := communities.GetCommunity(api.Db, r.Context(), r.PathValue("tag"))
	if err != nil {
		respondWithServiceError(w, r, err, "Database lookup failed")
		return
	}

	respondWithJSON(w, http.StatusOK, community)
}

func (api *API) DeleteCommunity(w http.ResponseWriter, r *http.Request) {
	currentUser := auth.GetUserFromContext(r.Context())

	if err := communities.DeleteCommunity(api.Db, r.Context(), r.PathValue("tag"), currentUser.Id); err != nil {
		respondWithServiceError(w, r, err, "Failed to delete community")
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

// GetTopCommunities accepts ?limit=N. Missing or invalid values fall back to
// the default.
func (api *API) GetTopCommunities(w http.ResponseWriter, r *http.Request) {
	limit := generics.StringToInt(r.URL.Query().Get("limit"))

	top, err := communities.GetTopCommunities(api.Db, r.Context(), limit)
	if err != nil {
		respondWithServiceError(w, r, err, "Database lookup failed")
		return
	}

	respondWithJSON(w, http.StatusOK, top)
}

func (api *API) RequestToJoin(w http.ResponseWriter, r *http.Request) {
	currentUser := auth.GetUserFromContext(r.Context())

	// The body is optional.
	var req communities.NewJoinRequest
	if err := decodeBody(r, &req); err != nil && !errors.Is(err, io.EOF) {
		respondWithError(w, http.StatusBadRequest, "Invalid JSON body")
		return
	}

	created, err := communities.RequestToJoin(api.Db, r.Context(), r.PathValue("tag"), currentUser.Id, req)
	if err != nil {
		respondWithServiceError(w, r, err, "Failed to store join request")
		return
	}

	respondWithJSON(w, http.StatusCreated, created)
}

func (api *API) ListJoinRequests(w http.ResponseWriter, r *http.Request) {
	currentUser := auth.GetUserFromContext(r.Context())

	pending, err := communities.ListJoinRequests(api.Db, r.Context(), r.PathValue("tag"), currentUser.Id)
	if err != nil {
		respondWithServiceError(w, r, err, "Database lookup failed")
		return
	}

	respondWithJSON(w, http.StatusOK, pending)
}

// ResolveJoinRequest takes {"approve": bool}. Approving adds the requester as
// a member; either way the request is removed.
func (api *API) ResolveJoinRequest(w http.ResponseWriter, r *http.Request) {
	currentUser := auth.GetUserFromContext(r.Context())

	var req communities.HandleJoinRequest
	if err := decodeBody(r, &req); err != nil {
		respondWithError(w, http.StatusBadRequest, "Invalid JSON body")
		return
	}

	err := communities.ResolveJoinRequest(api.Db, r.Context(), r.PathValue("tag"), currentUser.Id, r.PathValue("userId"), req)
	if err != nil {
		respondWithServiceError(w, r, err, "Failed to resolve join request")
		return
	}

	w.WriteHeader(http.StatusNoContent)
}
