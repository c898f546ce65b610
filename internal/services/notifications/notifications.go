package notifications

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/lealre/community-backend/internal/logx"
	"github.com/lealre/community-backend/internal/metrics"
	"github.com/lealre/community-backend/internal/mongodb"
	"github.com/lealre/community-backend/internal/services/communities"
)

func List(db *mongodb.DB, ctx context.Context, userId string) (InboxResponse, error) {
	inbox, err := db.GetInbox(ctx, userId)
	if err != nil {
		return InboxResponse{}, err
	}
	return MapDbInboxToApiInbox(inbox), nil
}

// Append writes an entry to the inbox of userId. Generic entries are always
// appended. An invitation that matches a pending one by type, title, body and
// community only refreshes the date of the existing entry.
func Append(db *mongodb.DB, ctx context.Context, userId string, req NewNotification) (AppendResult, error) {
	req.Type = strings.TrimSpace(req.Type)
	req.ComTag = strings.TrimSpace(req.ComTag)
	if err := validateStruct(req); err != nil {
		return AppendResult{}, err
	}

	user, err := db.GetUserById(ctx, userId)
	if err != nil {
		if errors.Is(err, mongodb.ErrRecordNotFound) {
			return AppendResult{}, ErrUnknownUser
		}
		return AppendResult{}, err
	}

	now := time.Now().UTC()
	entry := mongodb.NotificationDb{
		Id:          uuid.NewString(),
		MessageBody: req.MessageBody,
		Title:       req.Title,
		Date:        now,
		Type:        req.Type,
		Status:      mongodb.NotificationStatusUnread,
	}

	if req.Type != mongodb.NotificationTypeInvitation {
		if err := db.PushNotification(ctx, userId, entry); err != nil {
			return AppendResult{}, fmt.Errorf("push notification: %w", err)
		}
		metrics.NotificationsWritten.WithLabelValues("generic").Inc()
		return AppendResult{Notification: MapDbNotificationToApiNotification(entry), Created: true}, nil
	}

	if user.IsMemberOf(req.ComTag) {
		return AppendResult{}, ErrAlreadyMember
	}

	responded := false
	entry.ComTag = req.ComTag
	entry.ComName = req.ComName
	entry.Responded = &responded

	return appendInvitation(db, ctx, userId, entry)
}

func appendInvitation(db *mongodb.DB, ctx context.Context, userId string, entry mongodb.NotificationDb) (AppendResult, error) {
	logger := logx.FromContext(ctx)

	// Two rounds cover an identical invitation being accepted or pushed by
	// someone else between the touch and the push.
	for attempt := 0; attempt < 2; attempt++ {
		touched, err := db.TouchPendingInvitation(ctx, userId, entry, entry.Date)
		if err != nil {
			return AppendResult{}, fmt.Errorf("refresh invitation: %w", err)
		}
		if touched {
			existing, err := findPendingInvitation(db, ctx, userId, entry)
			if err != nil {
				return AppendResult{}, err
			}
			metrics.NotificationsWritten.WithLabelValues("invitation_refreshed").Inc()
			logger.Debug().Str("user_id", userId).Str("com_tag", entry.ComTag).Msg("pending invitation refreshed")
			return AppendResult{Notification: MapDbNotificationToApiNotification(existing), Created: false}, nil
		}

		pushed, err := db.PushInvitationIfAbsent(ctx, userId, entry)
		if err != nil {
			return AppendResult{}, fmt.Errorf("push invitation: %w", err)
		}
		if pushed {
			metrics.NotificationsWritten.WithLabelValues("invitation").Inc()
			return AppendResult{Notification: MapDbNotificationToApiNotification(entry), Created: true}, nil
		}
	}

	return AppendResult{}, fmt.Errorf("invitation for %q kept changing concurrently", entry.ComTag)
}

func findPendingInvitation(db *mongodb.DB, ctx context.Context, userId string, like mongodb.NotificationDb) (mongodb.NotificationDb, error) {
	inbox, err := db.GetInbox(ctx, userId)
	if err != nil {
		return mongodb.NotificationDb{}, err
	}
	for _, n := range inbox.Notifications {
		if n.Type == mongodb.NotificationTypeInvitation &&
			n.Title == like.Title &&
			n.MessageBody == like.MessageBody &&
			n.ComTag == like.ComTag &&
			n.Responded != nil && !*n.Responded {
			return n, nil
		}
	}
	// Accepted in the meantime; report what was refreshed.
	return like, nil
}

func MarkRead(db *mongodb.DB, ctx context.Context, userId, id string) error {
	if err := db.MarkNotificationRead(ctx, userId, id); err != nil {
		if errors.Is(err, mongodb.ErrRecordNotFound) {
			return ErrNotificationNotFound
		}
		return err
	}
	return nil
}

func Remove(db *mongodb.DB, ctx context.Context, userId, id string) error {
	if err := db.RemoveNotification(ctx, userId, id); err != nil {
		if errors.Is(err, mongodb.ErrRecordNotFound) {
			return ErrNotificationNotFound
		}
		return err
	}
	return nil
}

// AcceptInvitation marks the invitation read and responded, adds the
// community to the user and increments the community member count in one
// transaction. Nothing is written unless all three succeed.
func AcceptInvitation(db *mongodb.DB, ctx context.Context, userId, id string) (Notification, error) {
	var accepted mongodb.NotificationDb

	err := db.WithTransaction(ctx, func(txCtx context.Context) error {
		inbox, err := db.GetInbox(txCtx, userId)
		if err != nil {
			return err
		}
		invitation, ok := inbox.Find(id)
		if !ok || invitation.Type != mongodb.NotificationTypeInvitation {
			return ErrInvitationNotFound
		}

		if err := db.MarkInvitationAccepted(txCtx, userId, id); err != nil {
			if errors.Is(err, mongodb.ErrRecordNotFound) {
				return ErrInvitationNotFound
			}
			return fmt.Errorf("mark invitation: %w", err)
		}

		if err := communities.AddMember(db, txCtx, userId, invitation.ComTag); err != nil {
			return err
		}

		responded := true
		invitation.Status = mongodb.NotificationStatusRead
		invitation.Responded = &responded
		accepted = invitation
		return nil
	})
	if err != nil {
		return Notification{}, err
	}

	logx.FromContext(ctx).Info().
		Str("user_id", userId).
		Str("com_tag", accepted.ComTag).
		Msg("invitation accepted")

	return MapDbNotificationToApiNotification(accepted), nil
}
