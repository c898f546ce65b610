package notifications

import "github.com/lealre/community-backend/internal/mongodb"

func MapDbNotificationToApiNotification(n mongodb.NotificationDb) Notification {
	return Notification{
		Id:          n.Id,
		MessageBody: n.MessageBody,
		Title:       n.Title,
		Date:        n.Date,
		Type:        n.Type,
		Status:      n.Status,
		ComTag:      n.ComTag,
		ComName:     n.ComName,
		Responded:   n.Responded,
	}
}

func MapDbInboxToApiInbox(inbox mongodb.InboxDb) InboxResponse {
	resp := InboxResponse{Notifications: make([]Notification, 0, len(inbox.Notifications))}
	for _, n := range inbox.Notifications {
		resp.Notifications = append(resp.Notifications, MapDbNotificationToApiNotification(n))
	}
	return resp
}
