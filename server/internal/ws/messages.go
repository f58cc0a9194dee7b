package ws

import "github.com/stockwatch/stockwatch/pkg/types"

// Message types exchanged over the push channel.
const (
	TypeConnection  = "connection"
	TypeStockUpdate = "stockUpdate"
	TypeUserUpdate  = "userUpdate"
	TypePing        = "ping"
	TypePong        = "pong"
)

// ConnectionMessage is sent once to a client right after it connects.
type ConnectionMessage struct {
	Type    string `json:"type"`
	Status  string `json:"status"`
	Message string `json:"message"`
}

// StockUpdateMessage carries every tracked ticker's quote for one tick.
type StockUpdateMessage struct {
	Type   string        `json:"type"`
	Stocks []types.Quote `json:"stocks"`
}

// UserUpdateMessage carries the full user directory for one tick.
type UserUpdateMessage struct {
	Type  string                    `json:"type"`
	Users map[string]types.UserView `json:"users"`
}

// PongMessage answers a client ping. Timestamp is unix millis.
type PongMessage struct {
	Type      string `json:"type"`
	Timestamp int64  `json:"timestamp"`
}

// inboundMessage is the envelope of any client-to-server frame.
type inboundMessage struct {
	Type string `json:"type"`
}
