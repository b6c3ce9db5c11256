package api

import "github.com/oxygenfuel/contract/protocol"

// InitRequest is the body of POST /api/v1/init.
type InitRequest = protocol.InitCommand

// DepositRequest is the body of POST /api/v1/deposits.
type DepositRequest = protocol.DepositCommand

// OrderRequest is the body of POST /api/v1/orders. Side is required. Exactly
// one of Price (fixed-point integer) and DisplayPrice (decimal, e.g. "0.01")
// must be set.
type OrderRequest struct {
	Account      string         `json:"account"`
	Side         *protocol.Side `json:"side"`
	Price        string         `json:"price,omitempty"`
	DisplayPrice string         `json:"display_price,omitempty"`
	Amount       string         `json:"amount"`
}

// ErrorResponse is returned with every non-2xx status.
type ErrorResponse struct {
	Error     string `json:"error"`
	Message   string `json:"message,omitempty"`
	RequestID string `json:"request_id,omitempty"`
}

// HealthResponse is the body of GET /health.
type HealthResponse struct {
	Status       string `json:"status"`
	Initialized  bool   `json:"initialized"`
	LastCmdSeqID uint64 `json:"last_cmd_seq_id"`
}

// WSSubscribeRequest is sent by websocket clients to pick channels.
type WSSubscribeRequest struct {
	Op       string   `json:"op"` // subscribe | unsubscribe
	Channels []string `json:"channels"`
}

// WSMessage wraps every message pushed to websocket clients.
type WSMessage struct {
	Channel string `json:"channel"`
	Data    any    `json:"data"`
}

// Websocket channels.
const (
	ChannelTrades = "trades" // match logs
	ChannelOrders = "orders" // open logs
)
