// Package ws streams exchange events over the websocket endpoint. It is a
// reconciliation aid for submitters: after a timed-out submission the
// order-update stream tells the caller whether the action landed.
package ws

import (
	"context"
	"encoding/json"
	"fmt"
	"net/url"
	"path"
	"strings"

	"github.com/coder/websocket"
	"github.com/ethereum/go-ethereum/common"
	"github.com/rs/zerolog"
	"github.com/samber/mo"
)

// Config for dialing the websocket endpoint.
type Config struct {
	// URL is the API base, e.g. constants.MAINNET_API_URL. The websocket
	// endpoint is derived from it.
	URL string
	// Logger receives connection diagnostics. Defaults to a no-op logger.
	Logger mo.Option[zerolog.Logger]
}

// Client is a single websocket connection. It is not safe for concurrent
// readers; run one Next loop per client.
type Client struct {
	conn   *websocket.Conn
	logger zerolog.Logger
}

// endpointURL converts an API base URL into the websocket endpoint.
func endpointURL(base string) (string, error) {
	u, err := url.Parse(base)
	if err != nil {
		return "", fmt.Errorf("parse base URL %q: %w", base, err)
	}

	switch u.Scheme {
	case "http":
		u.Scheme = "ws"
	case "https":
		u.Scheme = "wss"
	case "ws", "wss":
	default:
		return "", fmt.Errorf("unsupported URL scheme %q", u.Scheme)
	}

	// append "/ws" without double slashes
	u.Path = path.Join(u.Path, "ws")

	return u.String(), nil
}

// Dial connects to the websocket endpoint derived from cfg.URL.
func Dial(ctx context.Context, cfg Config) (*Client, error) {
	endpoint, err := endpointURL(cfg.URL)
	if err != nil {
		return nil, err
	}

	conn, _, err := websocket.Dial(ctx, endpoint, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to websocket: %w", err)
	}
	conn.SetReadLimit(1 << 20)

	return &Client{
		conn:   conn,
		logger: cfg.Logger.OrElse(zerolog.Nop()),
	}, nil
}

func (c *Client) send(ctx context.Context, v any) error {
	data, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("marshal ws message: %w", err)
	}
	return c.conn.Write(ctx, websocket.MessageText, data)
}

// SubscribeOrderUpdates subscribes to order status changes for a user.
func (c *Client) SubscribeOrderUpdates(
	ctx context.Context,
	user common.Address,
) error {
	return c.send(ctx, subscribeRequest{
		Method: "subscribe",
		Subscription: orderUpdatesSubscription{
			Type: ChannelOrderUpdates,
			User: strings.ToLower(user.Hex()),
		},
	})
}

// SubscribeUserFills subscribes to fills for a user.
func (c *Client) SubscribeUserFills(
	ctx context.Context,
	user common.Address,
) error {
	return c.send(ctx, subscribeRequest{
		Method: "subscribe",
		Subscription: userFillsSubscription{
			Type: ChannelUserFills,
			User: strings.ToLower(user.Hex()),
		},
	})
}

// Ping keeps the connection alive. The server drops connections that stay
// silent for 60 seconds.
func (c *Client) Ping(ctx context.Context) error {
	return c.send(ctx, pingRequest{Method: "ping"})
}

// Next blocks until the next channel message arrives. The connection greeting
// and pong frames are consumed internally.
func (c *Client) Next(ctx context.Context) (Message, error) {
	for {
		_, data, err := c.conn.Read(ctx)
		if err != nil {
			return Message{}, fmt.Errorf("websocket read: %w", err)
		}

		if string(data) == connectionGreeting {
			c.logger.Debug().Msg("websocket connection established")
			continue
		}

		var msg Message
		if err := json.Unmarshal(data, &msg); err != nil {
			c.logger.Warn().Err(err).Msg("skipping unparseable ws frame")
			continue
		}
		if msg.Channel == channelPong {
			continue
		}

		return msg, nil
	}
}

// Close closes the connection with a normal closure.
func (c *Client) Close() error {
	return c.conn.Close(websocket.StatusNormalClosure, "closing")
}
