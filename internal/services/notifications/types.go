package notifications

import "time"

type Notification struct {
	Id          string    `json:"id"`
	MessageBody string    `json:"messageBody"`
	Title       string    `json:"title"`
	Date        time.Time `json:"date"`
	Type        string    `json:"type"`
	Status      string    `json:"status"`
	ComTag      string    `json:"comTag,omitempty"`
	ComName     string    `json:"comName,omitempty"`
	Responded   *bool     `json:"responded,omitempty"`
}

type NewNotification struct {
	Type        string `json:"type" validate:"required,oneof=generic invitation"`
	Title       string `json:"title" validate:"required,max=200"`
	MessageBody string `json:"messageBody" validate:"required,max=2000"`
	ComTag      string `json:"comTag" validate:"required_if=Type invitation"`
	ComName     string `json:"comName"`
}

// AppendResult is the stored entry. Created is false when an identical
// pending invitation was refreshed instead of appended.
type AppendResult struct {
	Notification
	Created bool `json:"created"`
}

type InboxResponse struct {
	Notifications []Notification `json:"notifications"`
}

type InvitationRequest struct {
	TargetUserId string `json:"targetUserId" validate:"required"`
	ComTag       string `json:"comTag" validate:"required"`
	ComName      string `json:"comName"`
}

// GenericNotificationRequest is a plain message sent to another user's inbox.
type GenericNotificationRequest struct {
	Title       string `json:"title"`
	MessageBody string `json:"messageBody"`
}
