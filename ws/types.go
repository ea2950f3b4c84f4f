package ws

import (
	"encoding/json"
	"fmt"

	"github.com/ottuzzi/hyperliquid-go/info"
	"github.com/ottuzzi/hyperliquid-go/types"
)

// The server greets every new connection with this bare text frame.
const connectionGreeting = "Websocket connection established."

const (
	ChannelOrderUpdates = "orderUpdates"
	ChannelUserFills    = "userFills"

	channelPong = "pong"
)

type subscribeRequest struct {
	Method       string `json:"method"`
	Subscription any    `json:"subscription"`
}

type pingRequest struct {
	Method string `json:"method"`
}

type orderUpdatesSubscription struct {
	Type string `json:"type"`
	User string `json:"user"`
}

type userFillsSubscription struct {
	Type string `json:"type"`
	User string `json:"user"`
}

// Message is one frame from the server. Data decodes per Channel.
type Message struct {
	Channel string          `json:"channel"`
	Data    json.RawMessage `json:"data"`
}

// BasicOrder is the order snapshot carried by an order update.
type BasicOrder struct {
	Coin      string       `json:"coin"`
	Side      string       `json:"side"`
	LimitPx   string       `json:"limitPx"`
	Sz        string       `json:"sz"`
	Oid       int64        `json:"oid"`
	Timestamp int64        `json:"timestamp"`
	OrigSz    string       `json:"origSz"`
	Cloid     *types.Cloid `json:"cloid,omitempty"`
}

// OrderUpdate reports an order reaching a new status.
type OrderUpdate struct {
	Order           BasicOrder `json:"order"`
	Status          string     `json:"status"`
	StatusTimestamp int64      `json:"statusTimestamp"`
}

// UserFills is a batch of fills, snapshot or incremental.
type UserFills struct {
	User       string      `json:"user"`
	IsSnapshot bool        `json:"isSnapshot"`
	Fills      []info.Fill `json:"fills"`
}

// DecodeOrderUpdates decodes an orderUpdates frame.
func DecodeOrderUpdates(msg Message) ([]OrderUpdate, error) {
	if msg.Channel != ChannelOrderUpdates {
		return nil, fmt.Errorf("unexpected channel %q", msg.Channel)
	}

	var updates []OrderUpdate
	if err := json.Unmarshal(msg.Data, &updates); err != nil {
		return nil, fmt.Errorf("decode order updates: %w", err)
	}
	return updates, nil
}

// DecodeUserFills decodes a userFills frame.
func DecodeUserFills(msg Message) (UserFills, error) {
	if msg.Channel != ChannelUserFills {
		return UserFills{}, fmt.Errorf("unexpected channel %q", msg.Channel)
	}

	var fills UserFills
	if err := json.Unmarshal(msg.Data, &fills); err != nil {
		return UserFills{}, fmt.Errorf("decode user fills: %w", err)
	}
	return fills, nil
}
