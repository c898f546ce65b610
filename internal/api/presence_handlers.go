package api

import (
	"net/http"

	"github.com/lealre/community-backend/internal/auth"
	"github.com/lealre/community-backend/internal/generics"
	"github.com/lealre/community-backend/internal/logx"
)

const maxOnlineQuery = 200

type OnlineResponse struct {
	Users []string `json:"users"`
}

// GetOnlineUsers answers ?users=a,b,c with the subset currently connected.
func (api *API) GetOnlineUsers(w http.ResponseWriter, r *http.Request) {
	candidates := generics.Unique(generics.SplitList(r.URL.Query().Get("users")))
	if len(candidates) > maxOnlineQuery {
		respondWithError(w, http.StatusBadRequest, "Too many users in query")
		return
	}

	online, err := api.Presence.ListOnline(r.Context(), candidates)
	if err != nil {
		respondWithServiceError(w, r, err, "Presence lookup failed")
		return
	}
	if online == nil {
		online = []string{}
	}

	respondWithJSON(w, http.StatusOK, OnlineResponse{Users: online})
}

// ServeWS upgrades the request for the authenticated user.
func (api *API) ServeWS(w http.ResponseWriter, r *http.Request) {
	currentUser := auth.GetUserFromContext(r.Context())
	api.Hub.ServeWS(w, r, currentUser.Id)
}

func (api *API) Healthz(w http.ResponseWriter, r *http.Request) {
	if err := api.Db.Ping(r.Context()); err != nil {
		logx.FromContext(r.Context()).Warn().Err(err).Msg("health check failed")
		RespondWithUnavailable(w)
		return
	}
	respondWithJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}
