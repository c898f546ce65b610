package api

import (
	"github.com/lealre/community-backend/internal/mongodb"
	"github.com/lealre/community-backend/internal/presence"
	"github.com/lealre/community-backend/internal/realtime"
)

// PublicPaths lists the "METHOD path" pairs served without a token.
var PublicPaths = map[string]bool{
	"POST /users":  true,
	"GET /healthz": true,
	"GET /metrics": true,
}

type API struct {
	Db       *mongodb.DB
	Hub      *realtime.Hub
	Presence presence.Registry
}

func NewAPI(db *mongodb.DB, hub *realtime.Hub, registry presence.Registry) *API {
	return &API{Db: db, Hub: hub, Presence: registry}
}

type ErrorResponse struct {
	StatusCode   int    `json:"statusCode"`
	ErrorMessage string `json:"errorMessage"`
}
