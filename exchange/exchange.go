// Package exchange signs and submits authenticated trading actions. Actions
// are msgpack-encoded, keccak-hashed, signed under a registered wallet key,
// and posted to the /exchange endpoint. A SignedRequest is built once and can
// be resubmitted verbatim, which keeps resubmission idempotent on the
// exchange side.
package exchange

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"sync/atomic"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/rs/zerolog"
	"github.com/samber/mo"

	"github.com/ottuzzi/hyperliquid-go/info"
	"github.com/ottuzzi/hyperliquid-go/internal/utils"
	"github.com/ottuzzi/hyperliquid-go/rest"
	"github.com/ottuzzi/hyperliquid-go/wallet"
)

// Config for initializing the Exchange client
type Config struct {
	// BaseURL selects the API host. Mainnet when empty.
	BaseURL string
	// Timeout for network requests, in seconds. No timeout when zero.
	Timeout uint
	// Registry holds the signing keys. Required.
	Registry *wallet.Registry
	// AccountAddress picks the signing key from the registry. The first
	// registered key is used when absent.
	AccountAddress mo.Option[common.Address]
	// VaultAddress routes actions to a vault or subaccount.
	VaultAddress mo.Option[common.Address]
	// Directory resolves coin symbols to asset indices. Required for
	// asset-addressed actions; refresh via UpdateDirectory.
	Directory *info.Directory
	// NonceFn overrides nonce generation. Defaults to the current wall
	// clock in milliseconds.
	NonceFn func() uint64
	// Logger receives request diagnostics. Defaults to a no-op logger.
	Logger mo.Option[zerolog.Logger]
}

// Exchange provides access to trading operations via REST API
type Exchange struct {
	rest         *rest.Client
	registry     *wallet.Registry
	key          *wallet.Key
	vaultAddress mo.Option[common.Address]
	expiresAfter *atomic.Pointer[time.Duration]
	directory    *atomic.Pointer[info.Directory]
	nonceFn      func() uint64
	logger       zerolog.Logger
}

// New creates a new Exchange client. The signing key is resolved from the
// registry once, at construction.
func New(cfg Config) (*Exchange, error) {
	if cfg.Registry == nil {
		return nil, fmt.Errorf("exchange: wallet registry is required")
	}

	var key *wallet.Key
	var err error
	if addr, ok := cfg.AccountAddress.Get(); ok {
		key, err = cfg.Registry.Resolve(addr)
	} else {
		key, err = cfg.Registry.Single()
	}
	if err != nil {
		return nil, fmt.Errorf("exchange: %w", err)
	}

	restClient := rest.New(rest.Config{
		BaseUrl: cfg.BaseURL,
		Timeout: cfg.Timeout,
		Logger:  cfg.Logger,
	})

	nonceFn := cfg.NonceFn
	if nonceFn == nil {
		nonceFn = func() uint64 {
			return uint64(time.Now().UnixMilli())
		}
	}

	directory := new(atomic.Pointer[info.Directory])
	if cfg.Directory != nil {
		directory.Store(cfg.Directory)
	}

	return &Exchange{
		rest:         restClient,
		registry:     cfg.Registry,
		key:          key,
		vaultAddress: cfg.VaultAddress,
		expiresAfter: new(atomic.Pointer[time.Duration]),
		directory:    directory,
		nonceFn:      nonceFn,
		logger:       cfg.Logger.OrElse(zerolog.Nop()),
	}, nil
}

// WithWallet returns a copy of the client that signs with the key registered
// for addr. The copy shares the transport, asset directory, and expiry
// window, so concurrent use across wallets is safe.
func (e *Exchange) WithWallet(addr common.Address) (*Exchange, error) {
	key, err := e.registry.Resolve(addr)
	if err != nil {
		return nil, fmt.Errorf("exchange: %w", err)
	}

	clone := *e
	clone.key = key
	return &clone, nil
}

// Address returns the address the client signs for.
func (e *Exchange) Address() common.Address {
	return e.key.Address()
}

// UpdateDirectory swaps in a freshly built asset directory. In-flight calls
// keep using the directory they resolved against.
func (e *Exchange) UpdateDirectory(d *info.Directory) {
	e.directory.Store(d)
}

// SetExpiresAfter sets the expiration window stamped into signed actions.
// This is not supported on user-signed actions and must be cleared for those
// to work. Safe to call concurrently with in-flight submissions; requests
// signed after the call pick up the new window.
func (e *Exchange) SetExpiresAfter(expiresAfter time.Duration) error {
	if expiresAfter < 0 {
		return fmt.Errorf(
			"exchange: expiresAfter must not be negative, got %v",
			expiresAfter,
		)
	}
	e.expiresAfter.Store(&expiresAfter)
	return nil
}

// ClearExpiresAfter clears the expiration window.
func (e *Exchange) ClearExpiresAfter() {
	e.expiresAfter.Store(nil)
}

func (e *Exchange) expiry() mo.Option[time.Duration] {
	if p := e.expiresAfter.Load(); p != nil {
		return mo.Some(*p)
	}
	return mo.None[time.Duration]()
}

func (e *Exchange) resolveAsset(coin string) (info.Asset, error) {
	d := e.directory.Load()
	if d == nil {
		return info.Asset{}, fmt.Errorf("exchange: no asset directory configured")
	}
	return d.Resolve(coin)
}

// SignedRequest is a fully signed action envelope. It is immutable;
// resubmitting it posts byte-identical JSON.
type SignedRequest struct {
	action       any
	nonce        uint64
	signature    signature
	vaultAddress mo.Option[common.Address]
	expiresAfter mo.Option[int64]
}

// Nonce returns the nonce the request was signed with.
func (r SignedRequest) Nonce() uint64 {
	return r.nonce
}

// MarshalJSON produces the /exchange envelope:
//
//	{"action": ..., "nonce": ..., "signature": {...},
//	 "vaultAddress": <hex or null>, "expiresAfter": <ms or null>}
func (r SignedRequest) MarshalJSON() ([]byte, error) {
	envelope := map[string]any{
		"action":       r.action,
		"nonce":        r.nonce,
		"signature":    r.signature,
		"vaultAddress": nil,
		"expiresAfter": nil,
	}

	if v, ok := r.vaultAddress.Get(); ok {
		envelope["vaultAddress"] = strings.ToLower(v.Hex())
	}
	if exp, ok := r.expiresAfter.Get(); ok {
		envelope["expiresAfter"] = exp
	}

	return json.Marshal(envelope)
}

// signL1 signs an asset-addressed action under the client's key.
func (e *Exchange) signL1(action any) (SignedRequest, error) {
	nonce := e.nonceFn()
	expiry := e.expiry()

	sig, err := signL1Action(
		action,
		nonce,
		e.key.PrivateKey(),
		e.vaultAddress,
		expiry,
		e.rest.IsMainnet(),
	)
	if err != nil {
		return SignedRequest{}, fmt.Errorf("failed to sign action: %w", err)
	}

	var expiresAfter mo.Option[int64]
	if exp, ok := expiry.Get(); ok {
		expiresAfter = mo.Some(exp.Milliseconds())
	}

	return SignedRequest{
		action:       action,
		nonce:        nonce,
		signature:    sig,
		vaultAddress: e.vaultAddress,
		expiresAfter: expiresAfter,
	}, nil
}

// userSigned wraps an already wallet-signed transfer action. Vault routing
// and expiry do not apply to user-signed actions.
func userSigned(action any, nonce uint64, sig signature) SignedRequest {
	return SignedRequest{
		action:    action,
		nonce:     nonce,
		signature: sig,
	}
}

// Submit posts a signed request and decodes the ok payload as T. The same
// request may be submitted again after a timeout; the exchange dedupes on
// the signed nonce.
func Submit[T any](
	ctx context.Context,
	e *Exchange,
	req SignedRequest,
) (Response[T], error) {
	var result Response[T]
	if err := e.rest.Post(ctx, "/exchange", req, &result); err != nil {
		return Response[T]{}, err
	}

	e.logger.Debug().
		Uint64("nonce", req.nonce).
		Str("status", result.Status).
		Msg("action submitted")

	return result, nil
}

/*//////////////////////////////////////////////////////////////
                             ORDERS
//////////////////////////////////////////////////////////////*/

// SignOrders signs a batch of orders without submitting it.
func (e *Exchange) SignOrders(
	orders []OrderRequest,
	grouping mo.Option[OrderGrouping],
	builder mo.Option[BuilderInfo],
) (SignedRequest, error) {
	if len(orders) == 0 {
		return SignedRequest{}, fmt.Errorf("at least one order is required")
	}

	wires := make([]orderWire, len(orders))
	for i, order := range orders {
		asset, err := e.resolveAsset(order.Coin)
		if err != nil {
			return SignedRequest{}, fmt.Errorf("order %d: %w", i, err)
		}

		wire, err := order.toWire(asset)
		if err != nil {
			return SignedRequest{}, fmt.Errorf("order %d: %w", i, err)
		}
		wires[i] = wire
	}

	return e.signL1(ordersToAction(wires, grouping, builder))
}

// Order places a single order.
func (e *Exchange) Order(
	ctx context.Context,
	order OrderRequest,
) (Response[BulkOrdersResponse], error) {
	return e.BulkOrders(ctx, []OrderRequest{order})
}

// BulkOrders places multiple orders in a single transaction.
func (e *Exchange) BulkOrders(
	ctx context.Context,
	orders []OrderRequest,
) (Response[BulkOrdersResponse], error) {
	req, err := e.SignOrders(
		orders,
		mo.None[OrderGrouping](),
		mo.None[BuilderInfo](),
	)
	if err != nil {
		return Response[BulkOrdersResponse]{}, err
	}

	return Submit[BulkOrdersResponse](ctx, e, req)
}

/*//////////////////////////////////////////////////////////////
                             MODIFY
//////////////////////////////////////////////////////////////*/

// SignModifies signs a batch of order modifications without submitting it.
func (e *Exchange) SignModifies(modifies []ModifyRequest) (SignedRequest, error) {
	if len(modifies) == 0 {
		return SignedRequest{}, fmt.Errorf("at least one modify is required")
	}

	wires := make([]modifyWire, len(modifies))
	for i, modify := range modifies {
		if err := modify.Validate(); err != nil {
			return SignedRequest{}, fmt.Errorf("modify %d: %w", i, err)
		}

		asset, err := e.resolveAsset(modify.Order.Coin)
		if err != nil {
			return SignedRequest{}, fmt.Errorf("modify %d: %w", i, err)
		}

		wire, err := modify.Order.toWire(asset)
		if err != nil {
			return SignedRequest{}, fmt.Errorf("modify %d: %w", i, err)
		}

		var oid any
		if v, ok := modify.Oid.Get(); ok {
			oid = v
		} else {
			oid, _ = modify.Cloid.Get()
		}

		wires[i] = modifyWire{Oid: oid, Order: wire}
	}

	return e.signL1(batchModifyAction{Type: "batchModify", Modifies: wires})
}

// ModifyOrder replaces a single resting order.
func (e *Exchange) ModifyOrder(
	ctx context.Context,
	modify ModifyRequest,
) (Response[ModifyResponse], error) {
	return e.BulkModify(ctx, []ModifyRequest{modify})
}

// BulkModify replaces multiple resting orders in a single transaction.
func (e *Exchange) BulkModify(
	ctx context.Context,
	modifies []ModifyRequest,
) (Response[ModifyResponse], error) {
	req, err := e.SignModifies(modifies)
	if err != nil {
		return Response[ModifyResponse]{}, err
	}

	return Submit[ModifyResponse](ctx, e, req)
}

/*//////////////////////////////////////////////////////////////
                             CANCEL
//////////////////////////////////////////////////////////////*/

// SignCancels signs a batch of cancels without submitting it.
func (e *Exchange) SignCancels(cancels []CancelRequest) (SignedRequest, error) {
	if len(cancels) == 0 {
		return SignedRequest{}, fmt.Errorf("at least one cancel is required")
	}

	wires := make([]cancelWire, len(cancels))
	for i, cancel := range cancels {
		if err := cancel.Validate(); err != nil {
			return SignedRequest{}, fmt.Errorf("cancel %d: %w", i, err)
		}

		asset, err := e.resolveAsset(cancel.Coin)
		if err != nil {
			return SignedRequest{}, fmt.Errorf("cancel %d: %w", i, err)
		}

		wires[i] = cancelWire{Asset: asset.Index, Oid: cancel.Oid}
	}

	return e.signL1(cancelAction{Type: "cancel", Cancels: wires})
}

// Cancel cancels a single order by order ID.
func (e *Exchange) Cancel(
	ctx context.Context,
	cancel CancelRequest,
) (Response[CancelResponse], error) {
	return e.BulkCancel(ctx, []CancelRequest{cancel})
}

// BulkCancel cancels multiple orders in a single transaction.
func (e *Exchange) BulkCancel(
	ctx context.Context,
	cancels []CancelRequest,
) (Response[CancelResponse], error) {
	req, err := e.SignCancels(cancels)
	if err != nil {
		return Response[CancelResponse]{}, err
	}

	return Submit[CancelResponse](ctx, e, req)
}

// SignCancelsByCloid signs a batch of cancels addressed by client order id.
func (e *Exchange) SignCancelsByCloid(
	cancels []CancelByCloidRequest,
) (SignedRequest, error) {
	if len(cancels) == 0 {
		return SignedRequest{}, fmt.Errorf("at least one cancel is required")
	}

	wires := make([]cancelByCloidWire, len(cancels))
	for i, cancel := range cancels {
		if err := cancel.Validate(); err != nil {
			return SignedRequest{}, fmt.Errorf("cancel %d: %w", i, err)
		}

		asset, err := e.resolveAsset(cancel.Coin)
		if err != nil {
			return SignedRequest{}, fmt.Errorf("cancel %d: %w", i, err)
		}

		wires[i] = cancelByCloidWire{Asset: asset.Index, Cloid: cancel.Cloid}
	}

	return e.signL1(cancelByCloidAction{Type: "cancelByCloid", Cancels: wires})
}

// CancelByCloid cancels a single order by client order id.
func (e *Exchange) CancelByCloid(
	ctx context.Context,
	cancel CancelByCloidRequest,
) (Response[CancelResponse], error) {
	return e.BulkCancelByCloid(ctx, []CancelByCloidRequest{cancel})
}

// BulkCancelByCloid cancels multiple orders by client order id.
func (e *Exchange) BulkCancelByCloid(
	ctx context.Context,
	cancels []CancelByCloidRequest,
) (Response[CancelResponse], error) {
	req, err := e.SignCancelsByCloid(cancels)
	if err != nil {
		return Response[CancelResponse]{}, err
	}

	return Submit[CancelResponse](ctx, e, req)
}

// ScheduleCancel arms (or with a nil time, disarms) the dead-man's-switch
// cancel of all open orders at the given time.
func (e *Exchange) ScheduleCancel(
	ctx context.Context,
	t mo.Option[time.Time],
) (Response[DefaultResponse], error) {
	req, err := e.signL1(scheduleCancelToAction(t))
	if err != nil {
		return Response[DefaultResponse]{}, err
	}

	return Submit[DefaultResponse](ctx, e, req)
}

/*//////////////////////////////////////////////////////////////
                             MARGIN
//////////////////////////////////////////////////////////////*/

// UpdateLeverage updates the leverage for an asset.
func (e *Exchange) UpdateLeverage(
	ctx context.Context,
	coin string,
	leverage int64,
	isCross bool,
) (Response[DefaultResponse], error) {
	asset, err := e.resolveAsset(coin)
	if err != nil {
		return Response[DefaultResponse]{}, err
	}

	req, err := e.signL1(updateLeverageAction{
		Type:     "updateLeverage",
		Asset:    asset.Index,
		IsCross:  isCross,
		Leverage: leverage,
	})
	if err != nil {
		return Response[DefaultResponse]{}, err
	}

	return Submit[DefaultResponse](ctx, e, req)
}

// UpdateIsolatedMargin adds or removes isolated margin (USD) for an asset.
func (e *Exchange) UpdateIsolatedMargin(
	ctx context.Context,
	coin string,
	amount float64,
) (Response[DefaultResponse], error) {
	asset, err := e.resolveAsset(coin)
	if err != nil {
		return Response[DefaultResponse]{}, err
	}

	ntli, err := utils.FloatToUsdInt(amount)
	if err != nil {
		return Response[DefaultResponse]{}, fmt.Errorf("isolated margin amount: %w", err)
	}

	req, err := e.signL1(updateIsolatedMarginAction{
		Type:  "updateIsolatedMargin",
		Asset: asset.Index,
		IsBuy: true,
		Ntli:  ntli,
	})
	if err != nil {
		return Response[DefaultResponse]{}, err
	}

	return Submit[DefaultResponse](ctx, e, req)
}

/*//////////////////////////////////////////////////////////////
                             TRANSFERS
//////////////////////////////////////////////////////////////*/

// SignUsdSend signs a USDC transfer without submitting it.
func (e *Exchange) SignUsdSend(send UsdSendRequest) (SignedRequest, error) {
	nonce := e.nonceFn()

	action, err := send.toAction(e.rest.NetworkName(), int64(nonce))
	if err != nil {
		return SignedRequest{}, err
	}

	sig, err := signUsdSendAction(action, e.key.PrivateKey())
	if err != nil {
		return SignedRequest{}, fmt.Errorf("failed to sign action: %w", err)
	}

	return userSigned(action, nonce, sig), nil
}

// UsdSend transfers USDC to another address.
func (e *Exchange) UsdSend(
	ctx context.Context,
	send UsdSendRequest,
) (Response[DefaultResponse], error) {
	req, err := e.SignUsdSend(send)
	if err != nil {
		return Response[DefaultResponse]{}, err
	}

	return Submit[DefaultResponse](ctx, e, req)
}

// SignSpotSend signs a spot token transfer without submitting it.
func (e *Exchange) SignSpotSend(send SpotSendRequest) (SignedRequest, error) {
	nonce := e.nonceFn()

	action, err := send.toAction(e.rest.NetworkName(), int64(nonce))
	if err != nil {
		return SignedRequest{}, err
	}

	sig, err := signSpotSendAction(action, e.key.PrivateKey())
	if err != nil {
		return SignedRequest{}, fmt.Errorf("failed to sign action: %w", err)
	}

	return userSigned(action, nonce, sig), nil
}

// SpotSend transfers a spot token to another address.
func (e *Exchange) SpotSend(
	ctx context.Context,
	send SpotSendRequest,
) (Response[DefaultResponse], error) {
	req, err := e.SignSpotSend(send)
	if err != nil {
		return Response[DefaultResponse]{}, err
	}

	return Submit[DefaultResponse](ctx, e, req)
}

// SignWithdraw signs a bridge withdrawal without submitting it.
func (e *Exchange) SignWithdraw(withdraw WithdrawRequest) (SignedRequest, error) {
	nonce := e.nonceFn()

	action, err := withdraw.toAction(e.rest.NetworkName(), int64(nonce))
	if err != nil {
		return SignedRequest{}, err
	}

	sig, err := signWithdrawAction(action, e.key.PrivateKey())
	if err != nil {
		return SignedRequest{}, fmt.Errorf("failed to sign action: %w", err)
	}

	return userSigned(action, nonce, sig), nil
}

// Withdraw withdraws USDC to the bridge.
func (e *Exchange) Withdraw(
	ctx context.Context,
	withdraw WithdrawRequest,
) (Response[DefaultResponse], error) {
	req, err := e.SignWithdraw(withdraw)
	if err != nil {
		return Response[DefaultResponse]{}, err
	}

	return Submit[DefaultResponse](ctx, e, req)
}
