package api

import (
	"net/http"

	"github.com/lealre/community-backend/internal/auth"
	"github.com/lealre/community-backend/internal/logx"
	"github.com/lealre/community-backend/internal/mongodb"
	"github.com/lealre/community-backend/internal/realtime"
	"github.com/lealre/community-backend/internal/services/notifications"
)

type InvitationResponse struct {
	Notification notifications.AppendResult `json:"notification"`
	Delivered    bool                       `json:"delivered"`
}

func (api *API) GetNotifications(w http.ResponseWriter, r *http.Request) {
	currentUser := auth.GetUserFromContext(r.Context())

	inbox, err := notifications.List(api.Db, r.Context(), currentUser.Id)
	if err != nil {
		respondWithServiceError(w, r, err, "Database lookup failed")
		return
	}

	respondWithJSON(w, http.StatusOK, inbox)
}

// SendInvitation stores the invitation in the target's inbox and then pushes
// it to the target's live connection, if there is one. A failed push does not
// fail the request.
func (api *API) SendInvitation(w http.ResponseWriter, r *http.Request) {
	logger := logx.FromContext(r.Context())
	currentUser := auth.GetUserFromContext(r.Context())

	var req notifications.InvitationRequest
	if err := decodeBody(r, &req); err != nil {
		respondWithError(w, http.StatusBadRequest, "Invalid JSON body")
		return
	}
	if req.TargetUserId == "" || req.ComTag == "" {
		respondWithError(w, http.StatusBadRequest, "Fields targetUserId and comTag are required")
		return
	}

	title, body := notifications.InvitationText(currentUser.Name, req.ComName)
	stored, err := notifications.Append(api.Db, r.Context(), req.TargetUserId, notifications.NewNotification{
		Type:        mongodb.NotificationTypeInvitation,
		Title:       title,
		MessageBody: body,
		ComTag:      req.ComTag,
		ComName:     req.ComName,
	})
	if err != nil {
		respondWithServiceError(w, r, err, "Failed to store invitation")
		return
	}

	delivered := false
	if api.Hub != nil {
		delivered, err = api.Hub.SendInvitation(r.Context(), realtime.Invitation{
			SenderId:     currentUser.Id,
			SenderName:   currentUser.Name,
			TargetUserId: req.TargetUserId,
			ComTag:       req.ComTag,
			ComName:      req.ComName,
		})
		if err != nil {
			logger.Warn().Err(err).Str("target", req.TargetUserId).Msg("live invitation push failed")
		}
	}

	status := http.StatusCreated
	if !stored.Created {
		status = http.StatusOK
	}
	respondWithJSON(w, status, InvitationResponse{Notification: stored, Delivered: delivered})
}

// SendNotification appends a generic entry to the inbox of the user in the
// path.
func (api *API) SendNotification(w http.ResponseWriter, r *http.Request) {
	var req notifications.GenericNotificationRequest
	if err := decodeBody(r, &req); err != nil {
		respondWithError(w, http.StatusBadRequest, "Invalid JSON body")
		return
	}

	stored, err := notifications.Append(api.Db, r.Context(), r.PathValue("id"), notifications.NewNotification{
		Type:        mongodb.NotificationTypeGeneric,
		Title:       req.Title,
		MessageBody: req.MessageBody,
	})
	if err != nil {
		respondWithServiceError(w, r, err, "Failed to store notification")
		return
	}

	respondWithJSON(w, http.StatusCreated, stored)
}

func (api *API) MarkNotificationRead(w http.ResponseWriter, r *http.Request) {
	currentUser := auth.GetUserFromContext(r.Context())

	if err := notifications.MarkRead(api.Db, r.Context(), currentUser.Id, r.PathValue("id")); err != nil {
		respondWithServiceError(w, r, err, "Failed to update notification")
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

func (api *API) RemoveNotification(w http.ResponseWriter, r *http.Request) {
	currentUser := auth.GetUserFromContext(r.Context())

	if err := notifications.Remove(api.Db, r.Context(), currentUser.Id, r.PathValue("id")); err != nil {
		respondWithServiceError(w, r, err, "Failed to remove notification")
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

func (api *API) AcceptInvitation(w http.ResponseWriter, r *http.Request) {
	currentUser := auth.GetUserFromContext(r.Context())

	accepted, err := notifications.AcceptInvitation(api.Db, r.Context(), currentUser.Id, r.PathValue("id"))
	if err != nil {
		respondWithServiceError(w, r, err, "Failed to accept invitation")
		return
	}

	respondWithJSON(w, http.StatusOK, accepted)
}
