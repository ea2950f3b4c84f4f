// Package rest provides the HTTP transport for Hyperliquid API endpoints,
// with response classification into client, server, and network errors.
package rest

import (
	"context"
	"encoding/json"
	"time"

	"github.com/go-resty/resty/v2"
	"github.com/rs/zerolog"
	"github.com/samber/mo"

	"github.com/ottuzzi/hyperliquid-go/constants"
)

type Client struct {
	baseUrl string
	http    *resty.Client
	logger  zerolog.Logger
}

// ClientInterface defines the contract for REST API calls
type ClientInterface interface {
	Post(ctx context.Context, path string, body any, result any) error
}

type Config struct {
	// BaseUrl is the base URL for the Hyperliquid API
	// If none is provided, the mainnet url will be used
	BaseUrl string
	// Timeout is the timeout for network requests
	// If none is provided, no timeout will be enforced
	Timeout uint
	// Logger receives request diagnostics. Defaults to a no-op logger.
	Logger mo.Option[zerolog.Logger]
}

// New creates a new client instance with the
// provided configuration.
func New(c Config) *Client {
	baseUrl := c.BaseUrl
	if baseUrl == "" {
		baseUrl = constants.MAINNET_API_URL
	}

	http := resty.
		New().
		SetJSONMarshaler(json.Marshal).
		SetJSONUnmarshaler(json.Unmarshal)
	if c.Timeout != 0 {
		http.SetTimeout(time.Duration(c.Timeout) * time.Second)
	}

	return &Client{
		baseUrl: baseUrl,
		http:    http,
		logger:  c.Logger.OrElse(zerolog.Nop()),
	}
}

// BaseUrl returns the configured API base URL.
func (c *Client) BaseUrl() string {
	return c.baseUrl
}

// IsMainnet reports whether the client targets the mainnet API.
func (c *Client) IsMainnet() bool {
	return c.baseUrl == constants.MAINNET_API_URL
}

// NetworkName returns the chain name expected in user-signed payloads.
func (c *Client) NetworkName() string {
	if c.IsMainnet() {
		return constants.MAINNET_CHAIN_NAME
	}
	return constants.TESTNET_CHAIN_NAME
}

// Post sends a POST request to the specified path with the provided body.
// Transport failures come back as *NetworkError; HTTP error statuses as
// *ClientError or *ServerError.
func (c *Client) Post(
	ctx context.Context,
	path string,
	body any,
	result any,
) error {
	url := c.baseUrl + path

	start := time.Now()
	resp, err := c.http.R().
		SetContext(ctx).
		SetHeader("Content-Type", "application/json").
		SetBody(body).
		SetResult(&result).
		Post(url)

	if err != nil {
		c.logger.Debug().Str("url", url).Err(err).Msg("request failed")
		return &NetworkError{URL: url, Err: err}
	}

	c.logger.Debug().
		Str("url", url).
		Int("status", resp.StatusCode()).
		Dur("elapsed", time.Since(start)).
		Msg("request")

	return handleException(resp)
}

// Post sends a POST request and decodes the response body into T.
func Post[T any](
	ctx context.Context,
	c *Client,
	path string,
	body any,
) (T, error) {
	var result T
	if err := c.Post(ctx, path, body, &result); err != nil {
		return result, err
	}
	return result, nil
}
