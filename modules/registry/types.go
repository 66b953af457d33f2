package registry

import "github.com/example/chat-relay/domain/chat"

// GetRoomRequest is the request for the get_room service.
type GetRoomRequest struct {
	RoomCode string `json:"room_code"`
}

// GetRoomResponse is the response for the get_room service.
type GetRoomResponse struct {
	RoomCode string   `json:"room_code"`
	RoomName string   `json:"room_name"`
	Users    []string `json:"users"`
}

// HistoryRequest is the request for the history service.
type HistoryRequest struct {
	RoomCode string `json:"room_code"`
	Limit    int    `json:"limit,omitempty"`
}

// HistoryResponse is the response for the history service.
type HistoryResponse struct {
	RoomCode string         `json:"room_code"`
	Messages []chat.Message `json:"messages"`
}

// StatsRequest is the request for the stats service.
type StatsRequest struct{}

// StatsResponse is the response for the stats service.
type StatsResponse struct {
	Rooms    int `json:"rooms"`
	Sessions int `json:"sessions"`
}
