package internal

// Wire-level event names shared by the server and the terminal client.
// They match what the javascript clients of the original deployment used,
// so the two client generations stay interoperable.
const (
	EventNewUser          = "newuser"
	EventChatMessage      = "chatmessage"
	EventWhisper          = "whisper"
	EventError            = "error"
	EventPersonJoined     = "personjoined"
	EventChatHistory      = "chathistory"
	EventUserDisconnected = "userdisconnected"
)

// ClientEvent is the inbound JSON envelope a connection sends. Only the
// fields relevant to the given type are populated.
type ClientEvent struct {
	Type     string `json:"type"`
	Room     string `json:"room,omitempty"`
	Name     string `json:"name,omitempty"`     // display name (newuser)
	Password string `json:"password,omitempty"` // room secret (newuser)
	Body     string `json:"body,omitempty"`     // opaque payload
	To       string `json:"to,omitempty"`       // whisper recipient
	Time     string `json:"time,omitempty"`     // client-claimed timestamp
}

// ServerEvent is the outbound JSON envelope.
type ServerEvent struct {
	Type     string    `json:"type"`
	Name     string    `json:"name,omitempty"` // personjoined / userdisconnected
	From     string    `json:"from,omitempty"` // sender display name
	Body     string    `json:"body,omitempty"` // payload or error text
	Time     string    `json:"time,omitempty"`
	Messages []Message `json:"messages,omitempty"` // chathistory replay
}

// Target selects who receives an outbound event: exactly one identity, or
// a whole room minus the excluded identity.
type Target struct {
	Identity string
	Room     string
	Exclude  string
}

// ToIdentity addresses a single connection.
func ToIdentity(identity string) Target {
	return Target{Identity: identity}
}

// ToRoomExcept addresses every current member of a room but one. The
// member set is resolved by the transport at delivery time.
func ToRoomExcept(room, exclude string) Target {
	return Target{Room: room, Exclude: exclude}
}

// Delivery pairs an outbound event with its target. The router returns
// deliveries; the transport executes them. The core never touches a
// network primitive.
type Delivery struct {
	To    Target
	Event ServerEvent
}

func deliverTo(identity string, event ServerEvent) Delivery {
	return Delivery{To: ToIdentity(identity), Event: event}
}

func broadcastExcept(room, exclude string, event ServerEvent) Delivery {
	return Delivery{To: ToRoomExcept(room, exclude), Event: event}
}

func errorEvent(text string) ServerEvent {
	return ServerEvent{Type: EventError, Body: text}
}
