package registry

import (
	"sort"
	"sync"

	"github.com/example/chat-relay/domain/chat"
)

// DefaultMaxHistory caps per-room history when no cap is configured.
// History is evicted FIFO once the cap is reached.
const DefaultMaxHistory = 500

// codeRetries bounds the generate-check-retry loop for room codes. The
// final attempt uses a longer code to escape a crowded code space.
const codeRetries = 5

// room is the store's internal representation. All access goes through the
// RoomStore lock; nothing here escapes by reference.
type room struct {
	name    string
	members map[string]bool
	history []chat.Message

	// seq counts appends over the room's lifetime. Eviction never rolls
	// it back, so a snapshot's seq totally orders it against later sends.
	seq uint64
}

// RoomStore is the single source of truth for rooms: code uniqueness,
// membership sets and ordered history. Safe for concurrent use.
type RoomStore struct {
	mu         sync.RWMutex
	rooms      map[string]*room
	maxHistory int

	// generate is swapped out in tests to force collisions.
	generate func(int) (string, error)
}

// NewRoomStore creates an empty room store.
func NewRoomStore(maxHistory int) *RoomStore {
	if maxHistory <= 0 {
		maxHistory = DefaultMaxHistory
	}
	return &RoomStore{
		rooms:      make(map[string]*room),
		maxHistory: maxHistory,
		generate:   GenerateCode,
	}
}

// CreateRoom allocates a fresh code and creates an empty room under it.
// Collisions are resolved by regenerating; the last attempt uses a longer
// code before giving up.
func (s *RoomStore) CreateRoom(name string) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	for attempt := 0; attempt <= codeRetries; attempt++ {
		length := RoomCodeLength
		if attempt == codeRetries {
			length = RoomCodeLength + 1
		}

		code, err := s.generate(length)
		if err != nil {
			return "", err
		}
		if _, taken := s.rooms[code]; taken {
			continue
		}

		s.rooms[code] = &room{
			name:    name,
			members: make(map[string]bool),
		}
		return code, nil
	}

	return "", ErrCodeSpaceExhausted
}

// Exists reports whether a room is registered under code.
func (s *RoomStore) Exists(code string) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	_, ok := s.rooms[code]
	return ok
}

// AddMember inserts identity into the room's membership. Re-adding a
// present identity is a no-op.
func (s *RoomStore) AddMember(code, identity string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	r, ok := s.rooms[code]
	if !ok {
		return ErrRoomNotFound
	}
	r.members[identity] = true
	return nil
}

// RemoveMember removes identity from the room if present. Unknown rooms and
// absent identities are no-ops.
func (s *RoomStore) RemoveMember(code, identity string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if r, ok := s.rooms[code]; ok {
		delete(r.members, identity)
	}
}

// Members returns the room's membership, sorted. Nil for unknown rooms.
func (s *RoomStore) Members(code string) []string {
	s.mu.RLock()
	defer s.mu.RUnlock()

	r, ok := s.rooms[code]
	if !ok {
		return nil
	}
	return sortedMembers(r)
}

// JoinAndSnapshot adds identity to the room and returns the snapshot that
// membership update belongs to. Both happen under one lock section so no
// message can slip between the membership change and the history the
// joiner sees.
func (s *RoomStore) JoinAndSnapshot(code, identity string) (*chat.RoomSnapshot, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	r, ok := s.rooms[code]
	if !ok {
		return nil, ErrRoomNotFound
	}
	r.members[identity] = true
	return snapshot(code, r), nil
}

// Snapshot returns a read-only snapshot of the room.
func (s *RoomStore) Snapshot(code string) (*chat.RoomSnapshot, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	r, ok := s.rooms[code]
	if !ok {
		return nil, ErrRoomNotFound
	}
	return snapshot(code, r), nil
}

// AppendMessage appends msg to the room's history, evicting the oldest
// entries past the history cap. It returns the message's position in the
// room's append sequence.
func (s *RoomStore) AppendMessage(code string, msg chat.Message) (uint64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	r, ok := s.rooms[code]
	if !ok {
		return 0, ErrRoomNotFound
	}

	r.seq++
	r.history = append(r.history, msg)
	if len(r.history) > s.maxHistory {
		r.history = r.history[len(r.history)-s.maxHistory:]
	}
	return r.seq, nil
}

// FindMessage scans the room's history for a message id. Used only for
// reply-preview resolution.
func (s *RoomStore) FindMessage(code, messageID string) (chat.Message, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	r, ok := s.rooms[code]
	if !ok {
		return chat.Message{}, false
	}
	for _, m := range r.history {
		if m.ID == messageID {
			return m, true
		}
	}
	return chat.Message{}, false
}

// History returns up to limit of the room's most recent messages in order.
// limit <= 0 returns everything.
func (s *RoomStore) History(code string, limit int) ([]chat.Message, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	r, ok := s.rooms[code]
	if !ok {
		return nil, ErrRoomNotFound
	}

	if limit <= 0 || limit > len(r.history) {
		limit = len(r.history)
	}
	start := len(r.history) - limit
	out := make([]chat.Message, limit)
	copy(out, r.history[start:])
	return out, nil
}

// RoomCount returns the number of rooms currently registered.
func (s *RoomStore) RoomCount() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.rooms)
}

func snapshot(code string, r *room) *chat.RoomSnapshot {
	history := make([]chat.Message, len(r.history))
	copy(history, r.history)

	return &chat.RoomSnapshot{
		ServerID:    code,
		ServerName:  r.name,
		History:     history,
		UsersOnline: sortedMembers(r),
		Seq:         r.seq,
	}
}

func sortedMembers(r *room) []string {
	members := make([]string, 0, len(r.members))
	for identity := range r.members {
		members = append(members, identity)
	}
	sort.Strings(members)
	return members
}
