package realtime

import (
	"context"

	"github.com/goccy/go-json"
)

// handle runs one inbound event on the reading goroutine of c.
func (h *Hub) handle(c *Client, msg Message) {
	ctx, cancel := context.WithTimeout(context.Background(), h.eventTimeout)
	defer cancel()

	switch msg.Event {
	case EventAddOnlineUser:
		var data addOnlineUserData
		if len(msg.Data) > 0 {
			_ = json.Unmarshal(msg.Data, &data)
		}
		if data.UserId != "" && data.UserId != c.userId {
			c.sendError("cannot mark another user online")
			return
		}
		h.connectPresence(c)

	case EventJoinComChat:
		var data joinComChatData
		if err := json.Unmarshal(msg.Data, &data); err != nil || data.Room == "" {
			c.sendError("joinComChat needs a room")
			return
		}
		if !h.JoinRoom(c.id, data.Room) {
			c.sendError("connection is not registered")
		}

	case EventSendInvitation:
		var data sendInvitationData
		if err := json.Unmarshal(msg.Data, &data); err != nil || data.TargetUserId == "" || data.ComTag == "" {
			c.sendError("sendInvitation needs targetUserId and comTag")
			return
		}
		_, err := h.SendInvitation(ctx, Invitation{
			SenderId:     c.userId,
			TargetUserId: data.TargetUserId,
			ComTag:       data.ComTag,
			ComName:      data.ComName,
		})
		if err != nil {
			h.logger.Error().Err(err).Str("target_user_id", data.TargetUserId).Msg("failed to push invitation")
		}

	case EventSendMessage:
		var data sendMessageData
		if err := json.Unmarshal(msg.Data, &data); err != nil || data.Room == "" {
			c.sendError("sendMessage needs a room")
			return
		}
		h.SendMessage(data.Room, c.id, data.Payload)

	case EventLogOut:
		h.disconnectPresence(c)

	default:
		c.sendError("unknown event " + msg.Event)
	}
}
