// Package info queries exchange metadata and account state. The client here
// is deliberately small: it fetches what the signing pipeline needs (asset
// metadata for the directory) and what a caller needs to reconcile an
// unknown submission outcome (state, open orders, fills).
package info

import (
	"context"

	"github.com/ottuzzi/hyperliquid-go/rest"
)

// Info provides access to the /info endpoint.
type Info struct {
	rest rest.ClientInterface
}

// Config for initializing the Info client
type Config struct {
	BaseURL string
	Timeout uint
}

// New creates a new Info client
func New(cfg Config) *Info {
	client := rest.New(rest.Config{
		BaseUrl: cfg.BaseURL,
		Timeout: cfg.Timeout,
	})

	return &Info{rest: client}
}

// NewWithClient wraps an existing REST client.
func NewWithClient(client rest.ClientInterface) *Info {
	return &Info{rest: client}
}

// Meta retrieves exchange metadata for perpetuals.
func (i *Info) Meta(ctx context.Context, dex string) (*Meta, error) {
	var result Meta
	err := i.rest.Post(
		ctx,
		"/info",
		map[string]any{
			"type": "meta",
			"dex":  dex,
		},
		&result,
	)

	return &result, err
}

// SpotMeta retrieves exchange metadata for spot trading.
func (i *Info) SpotMeta(ctx context.Context) (*SpotMeta, error) {
	var result SpotMeta
	err := i.rest.Post(
		ctx,
		"/info",
		map[string]any{
			"type": "spotMeta",
		},
		&result,
	)

	return &result, err
}

// RefreshDirectory fetches current metadata and builds a fresh asset
// directory from it.
func (i *Info) RefreshDirectory(ctx context.Context, dex string) (*Directory, error) {
	meta, err := i.Meta(ctx, dex)
	if err != nil {
		return nil, err
	}

	spotMeta, err := i.SpotMeta(ctx)
	if err != nil {
		return nil, err
	}

	return DirectoryFromMeta(meta, spotMeta), nil
}

// AllMids retrieves mid-prices for all coins, with fallback to last trade price if book is empty.
func (i *Info) AllMids(ctx context.Context, dex string) (map[string]string, error) {
	var result map[string]string
	err := i.rest.Post(
		ctx,
		"/info",
		map[string]any{
			"type": "allMids",
			"dex":  dex,
		},
		&result,
	)

	return result, err
}

// UserState retrieves account portfolio and position data.
func (i *Info) UserState(ctx context.Context, address string, dex string) (*UserState, error) {
	var result UserState
	err := i.rest.Post(
		ctx,
		"/info",
		map[string]any{
			"type": "clearinghouseState",
			"user": address,
			"dex":  dex,
		},
		&result,
	)

	return &result, err
}

// OpenOrders retrieves a user's active orders.
func (i *Info) OpenOrders(ctx context.Context, address string, dex string) ([]OpenOrder, error) {
	var result []OpenOrder
	err := i.rest.Post(
		ctx,
		"/info",
		map[string]any{
			"type": "openOrders",
			"user": address,
			"dex":  dex,
		},
		&result,
	)

	return result, err
}

// UserFills retrieves a user's fills/executed trades.
func (i *Info) UserFills(ctx context.Context, address string) ([]Fill, error) {
	var result []Fill
	err := i.rest.Post(
		ctx,
		"/info",
		map[string]any{
			"type": "userFills",
			"user": address,
		},
		&result,
	)

	return result, err
}
