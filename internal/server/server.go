package server

import (
	"net/http"
	"time"

	"github.com/lealre/community-backend/internal/api"
	"github.com/lealre/community-backend/internal/config"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

func NewHandler(a *api.API, cfg config.ServerConfig, tokenSecret string) http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("POST /users", a.CreateUser)
	mux.HandleFunc("GET /users/{id}", a.GetUser)
	mux.HandleFunc("POST /users/{id}/notifications", a.SendNotification)

	mux.HandleFunc("POST /communities", a.CreateCommunity)
	mux.HandleFunc("GET /communities/top", a.GetTopCommunities)
	mux.HandleFunc("GET /communities/{tag}", a.GetCommunity)
	mux.HandleFunc("DELETE /communities/{tag}", a.DeleteCommunity)

	mux.HandleFunc("POST /communities/{tag}/requests", a.RequestToJoin)
	mux.HandleFunc("GET /communities/{tag}/requests", a.ListJoinRequests)
	mux.HandleFunc("PATCH /communities/{tag}/requests/{userId}", a.ResolveJoinRequest)

	mux.HandleFunc("POST /communities/{tag}/reviews", a.SubmitReview)
	mux.HandleFunc("GET /communities/{tag}/reviews", a.ListReviews)

	mux.HandleFunc("GET /notifications", a.GetNotifications)
	mux.HandleFunc("POST /invitations", a.SendInvitation)
	mux.HandleFunc("PATCH /notifications/{id}/read", a.MarkNotificationRead)
	mux.HandleFunc("DELETE /notifications/{id}", a.RemoveNotification)
	mux.HandleFunc("POST /notifications/{id}/accept", a.AcceptInvitation)

	mux.HandleFunc("GET /presence/online", a.GetOnlineUsers)
	mux.HandleFunc("GET /ws", a.ServeWS)

	mux.Handle("GET /metrics", promhttp.Handler())
	mux.HandleFunc("GET /healthz", a.Healthz)

	var handler http.Handler = mux
	handler = AuthMiddleware(tokenSecret, a.Db.GetUserById)(handler)
	handler = TimeoutMiddleware(cfg.RequestTimeout)(handler)
	handler = RequestIdMiddleware(handler)
	return handler
}

func NewServer(a *api.API, cfg config.ServerConfig, tokenSecret string) *http.Server {
	return &http.Server{
		Addr:              cfg.Addr,
		Handler:           NewHandler(a, cfg, tokenSecret),
		ReadHeaderTimeout: 5 * time.Second,
		IdleTimeout:       60 * time.Second,
	}
}
