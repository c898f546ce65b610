package realtime

import "github.com/goccy/go-json"

// Inbound events.
const (
	EventAddOnlineUser  = "addOnlineUser"
	EventJoinComChat    = "joinComChat"
	EventSendInvitation = "sendInvitation"
	EventSendMessage    = "sendMessage"
	EventLogOut         = "logOut"
)

// Outbound events.
const (
	EventInvitationNotification = "sendInvitationNotification"
	EventReceiveMessage         = "receiveMessage"
	EventError                  = "error"
)

// Message is the frame exchanged in both directions.
type Message struct {
	Event string          `json:"event"`
	Data  json.RawMessage `json:"data,omitempty"`
}

type addOnlineUserData struct {
	UserId string `json:"userId"`
}

type joinComChatData struct {
	Room string `json:"room"`
}

type sendInvitationData struct {
	TargetUserId string `json:"targetUserId"`
	ComTag       string `json:"comTag"`
	ComName      string `json:"comName"`
}

type sendMessageData struct {
	Room    string          `json:"room"`
	Payload json.RawMessage `json:"payload"`
}

// ChatMessage is delivered to the other members of a room.
type ChatMessage struct {
	Room    string          `json:"room"`
	Payload json.RawMessage `json:"payload"`
	From    string          `json:"from"`
}

type errorData struct {
	Message string `json:"message"`
}

func encode(event string, data any) ([]byte, error) {
	raw, err := json.Marshal(data)
	if err != nil {
		return nil, err
	}
	return json.Marshal(Message{Event: event, Data: raw})
}
