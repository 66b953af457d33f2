package registry

import (
	"strings"

	"github.com/go-monolith/mono/pkg/types"

	"github.com/example/chat-relay/domain/chat"
)

// Intent-level limits. Plain text is hard-cut with no marker; reply
// previews carry one. Previews sourced from a text body and previews
// sourced from a file name or media title truncate differently, and both
// behaviors are load-bearing for existing clients.
const (
	maxTextRunes = 500

	textPreviewLimit  = 60
	textPreviewMarker = "…"

	filePreviewLimit  = 50
	filePreviewMarker = "..."
)

// Defaults applied when a client omits a field.
const (
	AnonymousUser   = "Anonymous"
	DefaultRoomName = "New Server"
)

// EventSink receives the room-scoped events the engine computes. Calls
// happen after all store locks are released; implementations fan out to a
// point-in-time copy of the room's membership. seq is the message's
// position in the room's append sequence; joiners whose snapshot already
// covers a seq must not receive that message again.
type EventSink interface {
	MessageSent(code string, seq uint64, msg chat.Message)
	UserList(code string, users []string)
	RoomCreated(code, name, createdBy string)
}

// MessageInput carries a chat_message intent's payload.
type MessageInput struct {
	Username   string
	RoomCode   string
	Kind       chat.Kind
	Text       string
	ContentURL string
	MediaTitle string
	ReplyTo    string
}

// Engine applies client intents to the room store and session tracker and
// computes the outbound events each intent produces.
type Engine struct {
	store    *RoomStore
	sessions *SessionTracker
	sink     EventSink
	logger   types.Logger
}

// NewEngine creates an engine over the given store and tracker.
func NewEngine(store *RoomStore, sessions *SessionTracker, sink EventSink, logger types.Logger) *Engine {
	return &Engine{
		store:    store,
		sessions: sessions,
		sink:     sink,
		logger:   logger,
	}
}

// NormalizeCode upper-cases an inbound room code reference.
func NormalizeCode(code string) string {
	return strings.ToUpper(strings.TrimSpace(code))
}

func normalizeUsername(username string) string {
	if username == "" {
		return AnonymousUser
	}
	return username
}

// CreateRoom applies a create_server intent: a fresh room with the caller
// as first member. The returned snapshot goes to the caller only; the
// membership update fans out as a user_list event.
func (e *Engine) CreateRoom(connID, username, roomName string) (*chat.RoomSnapshot, error) {
	username = normalizeUsername(username)
	if roomName == "" {
		roomName = DefaultRoomName
	}

	// Allocate the room before touching the caller's current binding, so
	// a failed create leaves their membership intact.
	code, err := e.store.CreateRoom(roomName)
	if err != nil {
		return nil, err
	}

	e.leaveCurrentRoom(connID)

	snap, err := e.store.JoinAndSnapshot(code, username)
	if err != nil {
		return nil, err
	}
	e.sessions.Bind(connID, username, code)

	e.logger.Info("room created", "room", code, "name", roomName, "by", username)
	e.sink.RoomCreated(code, roomName, username)
	e.sink.UserList(code, snap.UsersOnline)
	return snap, nil
}

// JoinRoom applies a join_server intent. Unknown codes fail with
// ErrRoomNotFound before any state changes, so a failed join leaves the
// caller's previous binding untouched.
func (e *Engine) JoinRoom(connID, username, code string) (*chat.RoomSnapshot, error) {
	username = normalizeUsername(username)
	code = NormalizeCode(code)

	if !e.store.Exists(code) {
		return nil, ErrRoomNotFound
	}

	e.leaveCurrentRoom(connID)

	snap, err := e.store.JoinAndSnapshot(code, username)
	if err != nil {
		return nil, err
	}
	e.sessions.Bind(connID, username, code)

	e.logger.Info("user joined room", "room", code, "user", username)
	e.sink.UserList(code, snap.UsersOnline)
	return snap, nil
}

// PostMessage applies a chat_message intent for text and media kinds.
// Empty or whitespace-only text returns ErrEmptyMessage, which callers
// swallow. Posting to a room the connection is not bound to returns
// ErrNotJoined, surfaced to the caller as a server_error event.
func (e *Engine) PostMessage(connID string, in MessageInput) (*chat.Message, error) {
	username := normalizeUsername(in.Username)
	code := NormalizeCode(in.RoomCode)

	sess, ok := e.sessions.Lookup(connID)
	if code == "" || !ok || sess.RoomCode != code {
		return nil, ErrNotJoined
	}

	msg := chat.Message{Username: username}

	switch in.Kind {
	case chat.KindMedia:
		if in.ContentURL == "" {
			return nil, ErrEmptyMessage
		}
		msg.Kind = chat.KindMedia
		msg.ContentURL = in.ContentURL
		msg.MediaTitle = in.MediaTitle
	default:
		if strings.TrimSpace(in.Text) == "" {
			return nil, ErrEmptyMessage
		}
		msg.Kind = chat.KindText
		msg.Text = truncateRunes(in.Text, maxTextRunes)
	}

	id, err := GenerateCode(MessageIDLength)
	if err != nil {
		return nil, err
	}
	msg.ID = id

	if in.ReplyTo != "" {
		msg.ReplyTo = in.ReplyTo
		msg.ReplyPreview = e.replyPreview(code, in.ReplyTo)
	}

	seq, err := e.store.AppendMessage(code, msg)
	if err != nil {
		return nil, err
	}

	e.sink.MessageSent(code, seq, msg)
	return &msg, nil
}

// PostFile applies the upload side-channel. Uploads naming an unknown room
// are dropped without a message and without an error to the uploader.
func (e *Engine) PostFile(username, code, fileURL, fileName string) *chat.Message {
	username = normalizeUsername(username)
	code = NormalizeCode(code)

	id, err := GenerateCode(MessageIDLength)
	if err != nil {
		e.logger.Error("failed to generate message id", "error", err)
		return nil
	}

	msg := chat.Message{
		ID:       id,
		Username: username,
		Kind:     chat.KindFile,
		FileURL:  fileURL,
		FileName: fileName,
	}

	seq, err := e.store.AppendMessage(code, msg)
	if err != nil {
		// Fire-and-forget: the uploader never learns the room was unknown.
		e.logger.Debug("dropping file message for unknown room", "room", code)
		return nil
	}

	e.sink.MessageSent(code, seq, msg)
	return &msg
}

// Disconnect applies a connection-termination intent. Without a prior
// binding it is a no-op.
func (e *Engine) Disconnect(connID string) {
	e.leaveCurrentRoom(connID)
}

// leaveCurrentRoom unbinds connID and removes it from its room, pushing the
// updated member list to whoever remains.
func (e *Engine) leaveCurrentRoom(connID string) {
	sess, ok := e.sessions.Unbind(connID)
	if !ok {
		return
	}

	e.store.RemoveMember(sess.RoomCode, sess.Username)
	if users := e.store.Members(sess.RoomCode); users != nil {
		e.sink.UserList(sess.RoomCode, users)
	}
	e.logger.Info("user left room", "room", sess.RoomCode, "user", sess.Username)
}

// replyPreview resolves a reply reference against the room's history. The
// preview is computed exactly once, here; unresolvable references yield an
// empty preview while the reference itself is kept.
func (e *Engine) replyPreview(code, replyTo string) string {
	ref, ok := e.store.FindMessage(code, replyTo)
	if !ok {
		return ""
	}

	if ref.Text != "" {
		return truncateWithMarker(ref.Text, textPreviewLimit, textPreviewMarker)
	}

	source := ref.FileName
	if source == "" {
		source = ref.MediaTitle
	}
	if source == "" {
		return ""
	}
	return truncateWithMarker(source, filePreviewLimit, filePreviewMarker)
}

func truncateRunes(s string, limit int) string {
	r := []rune(s)
	if len(r) <= limit {
		return s
	}
	return string(r[:limit])
}

func truncateWithMarker(s string, limit int, marker string) string {
	r := []rune(s)
	if len(r) <= limit {
		return s
	}
	return string(r[:limit]) + marker
}
