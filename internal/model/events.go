package model

import "encoding/json"

// MessageType identifies a WebSocket message
type MessageType string

const (
	// Client to server
	MsgAuthenticate        MessageType = "authenticate"
	MsgJoinQueue           MessageType = "join_queue"
	MsgLeaveQueue          MessageType = "leave_queue"
	MsgGameMove            MessageType = "game_move"
	MsgRequestRematch      MessageType = "request_rematch"
	MsgDeclineRematch      MessageType = "decline_rematch"
	MsgLeaveMatchEnd       MessageType = "leave_match_end"
	MsgHeartbeatAck        MessageType = "heartbeat_ack"
	MsgRequestPlayerCounts MessageType = "request_player_counts"
	MsgQuit                MessageType = "quit"

	// Server to client
	MsgQueueJoined          MessageType = "queue_joined"
	MsgQueueLeft            MessageType = "queue_left"
	MsgGameStart            MessageType = "game_start"
	MsgGameState            MessageType = "game_state"
	MsgRoundEnd             MessageType = "round_end"
	MsgMatchEnd             MessageType = "match_end"
	MsgOpponentDisconnected MessageType = "opponent_disconnected"
	MsgSessionTimeout       MessageType = "session_timeout"
	MsgReconnected          MessageType = "reconnected"
	MsgOpponentWantsRematch MessageType = "opponent_wants_rematch"
	MsgRematchDeclined      MessageType = "rematch_declined"
	MsgRematchTimeout       MessageType = "rematch_timeout"
	MsgRematchOpponentLeft  MessageType = "rematch_opponent_left"
	MsgHeartbeatPing        MessageType = "heartbeat_ping"
	MsgPlayerCounts         MessageType = "player_counts"
	MsgInvalidMove          MessageType = "invalid_move"
	MsgError                MessageType = "error"
)

// Inbound is a message received from a client
type Inbound struct {
	Type MessageType     `json:"type"`
	Data json.RawMessage `json:"data,omitempty"`
}

// Decode unmarshals the message data into v
func (m Inbound) Decode(v any) error {
	if len(m.Data) == 0 {
		return nil
	}
	return json.Unmarshal(m.Data, v)
}

// Outbound is a message sent to a client
type Outbound struct {
	Type MessageType `json:"type"`
	Data any         `json:"data,omitempty"`
}

// NewOutbound creates an outbound message
func NewOutbound(t MessageType, data any) Outbound {
	return Outbound{Type: t, Data: data}
}

// Inbound payloads

// AuthenticatePayload is the data for authenticate
type AuthenticatePayload struct {
	UserID string `json:"userId"`
}

// JoinQueuePayload is the data for join_queue
type JoinQueuePayload struct {
	GameType   string `json:"gameType"`
	UserID     string `json:"userId"`
	PlayerName string `json:"playerName"`
}

// LeaveQueuePayload is the data for leave_queue
type LeaveQueuePayload struct {
	GameType string `json:"gameType"`
}

// GameMovePayload is the data for game_move
type GameMovePayload struct {
	RoomID RoomID          `json:"roomId"`
	Move   json.RawMessage `json:"move"`
}

// RoomPayload is the data for rematch and match-end messages that only carry a room
type RoomPayload struct {
	RoomID RoomID `json:"roomId"`
}

// Outbound payloads

// QueueJoinedPayload is the data for queue_joined
type QueueJoinedPayload struct {
	GameType GameType `json:"gameType"`
	Position int      `json:"position"`
}

// QueueLeftPayload is the data for queue_left
type QueueLeftPayload struct {
	GameType GameType `json:"gameType"`
}

// GameStartPayload is the data for game_start
type GameStartPayload struct {
	RoomID       RoomID   `json:"roomId"`
	GameType     GameType `json:"gameType"`
	PlayerNumber int      `json:"playerNumber"`
	Opponent     string   `json:"opponent"`
	Symbol       string   `json:"symbol"`
	TotalRounds  int      `json:"totalRounds"`
}

// GameStatePayload is the data for game_state
type GameStatePayload struct {
	RoomID          RoomID   `json:"roomId"`
	GameType        GameType `json:"gameType"`
	Round           int      `json:"round"`
	Scores          [2]int   `json:"scores"`
	CurrentPlayer   int      `json:"currentPlayer"`
	TurnSeconds     int      `json:"turnSeconds"` // rounded up
	TurnRemainingMs int64    `json:"turnRemainingMs"`
	Board           any      `json:"board"`
}

// RoundEndPayload is the data for round_end
type RoundEndPayload struct {
	Winner    int    `json:"winner"`
	Scores    [2]int `json:"scores"`
	NextRound int    `json:"nextRound"`
	Reason    string `json:"reason,omitempty"`
}

// MatchEndPayload is the data for match_end
type MatchEndPayload struct {
	Winner      int    `json:"winner"`
	FinalScores [2]int `json:"finalScores"`
}

// OpponentDisconnectedPayload is the data for opponent_disconnected
type OpponentDisconnectedPayload struct {
	Walkover         bool    `json:"walkover"`
	ReconnectSeconds int     `json:"reconnectSeconds,omitempty"`
	FinalScores      *[2]int `json:"finalScores,omitempty"`
}

// SessionTimeoutPayload is the data for session_timeout
type SessionTimeoutPayload struct {
	Reason string `json:"reason"`
}

// ReconnectedPayload is the data for reconnected
type ReconnectedPayload struct {
	RoomID RoomID `json:"roomId"`
	UserID UserID `json:"userId"`
}

// RematchTimeoutPayload is the data for rematch_timeout
type RematchTimeoutPayload struct {
	RoomID    RoomID `json:"roomId"`
	Requested bool   `json:"requested"`
}

// HeartbeatPingPayload is the data for heartbeat_ping
type HeartbeatPingPayload struct {
	Timestamp int64 `json:"timestamp"`
}

// InvalidMovePayload is the data for invalid_move
type InvalidMovePayload struct {
	Reason string `json:"reason"`
}

// ErrorPayload is the data for error
type ErrorPayload struct {
	Message string `json:"message"`
}

// PlayerCounts maps each game type to the number of players queued or playing
type PlayerCounts map[GameType]int
