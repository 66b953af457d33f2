package chat

// Kind discriminates message payloads.
type Kind string

// Message kinds. File messages arrive through the upload side-channel,
// media messages carry a search result picked by the client.
const (
	KindText  Kind = "text"
	KindFile  Kind = "file"
	KindMedia Kind = "media"
)

// Message is one entry in a room's history. JSON field names are the wire
// format delivered to clients as a chat_message event.
type Message struct {
	ID           string `json:"msg_id"`
	Username     string `json:"username"`
	Kind         Kind   `json:"type"`
	Text         string `json:"text,omitempty"`
	FileURL      string `json:"file_url,omitempty"`
	FileName     string `json:"file_name,omitempty"`
	ContentURL   string `json:"content,omitempty"`
	MediaTitle   string `json:"gif_title,omitempty"`
	ReplyTo      string `json:"reply_to,omitempty"`
	ReplyPreview string `json:"reply_preview,omitempty"`
}

// RoomSnapshot is the joined_server payload: the room's identity plus the
// exact history and sorted membership at the instant the join was applied.
type RoomSnapshot struct {
	ServerID    string    `json:"server_id"`
	ServerName  string    `json:"server_name"`
	History     []Message `json:"history"`
	UsersOnline []string  `json:"users_online"`

	// Seq is the room's message sequence at snapshot time. It never goes
	// to clients; the hub uses it to suppress fan-out of messages the
	// snapshot already carries.
	Seq uint64 `json:"-"`
}

// Session binds a live connection to the identity and room it occupies.
// A connection is in at most one room at a time.
type Session struct {
	Username string
	RoomCode string
}
