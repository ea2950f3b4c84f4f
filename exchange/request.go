package exchange

import (
	"errors"
	"fmt"
	"math"

	"github.com/ethereum/go-ethereum/common"
	"github.com/samber/mo"

	"github.com/ottuzzi/hyperliquid-go/types"
)

// Tif is the time-in-force of a limit order.
type Tif string

const (
	TifGtc Tif = "Gtc"
	TifIoc Tif = "Ioc"
	TifAlo Tif = "Alo"
)

func (t Tif) validate() error {
	switch t {
	case TifGtc, TifIoc, TifAlo:
		return nil
	}
	return fmt.Errorf("invalid tif %q", string(t))
}

// TpSl selects between take-profit and stop-loss trigger semantics.
type TpSl string

const (
	TpSlTakeProfit TpSl = "tp"
	TpSlStopLoss   TpSl = "sl"
)

func (t TpSl) validate() error {
	switch t {
	case TpSlTakeProfit, TpSlStopLoss:
		return nil
	}
	return fmt.Errorf("invalid tpsl %q", string(t))
}

type limitOrderType struct {
	tif Tif
}

type triggerOrderType struct {
	triggerPx float64
	isMarket  bool
	tpsl      TpSl
}

// OrderType is either a limit or a trigger order. The zero value is invalid;
// construct through LimitOrder or TriggerOrder so the two variants cannot be
// combined or left half-filled.
type OrderType struct {
	limit   *limitOrderType
	trigger *triggerOrderType
}

// LimitOrder returns the limit variant with the given time-in-force.
func LimitOrder(tif Tif) OrderType {
	return OrderType{limit: &limitOrderType{tif: tif}}
}

// TriggerOrder returns the trigger variant. isMarket selects market execution
// once the trigger price is crossed.
func TriggerOrder(triggerPx float64, isMarket bool, tpsl TpSl) OrderType {
	return OrderType{trigger: &triggerOrderType{
		triggerPx: triggerPx,
		isMarket:  isMarket,
		tpsl:      tpsl,
	}}
}

func (t OrderType) validate() error {
	switch {
	case t.limit != nil:
		return t.limit.tif.validate()
	case t.trigger != nil:
		if err := t.trigger.tpsl.validate(); err != nil {
			return err
		}
		return validatePositiveFinite("trigger price", t.trigger.triggerPx)
	default:
		return errors.New("order type not set")
	}
}

func validatePositiveFinite(field string, x float64) error {
	if math.IsNaN(x) || math.IsInf(x, 0) {
		return fmt.Errorf("%s must be finite, got %v", field, x)
	}
	if x < 0 {
		return fmt.Errorf("%s must not be negative, got %v", field, x)
	}
	return nil
}

// OrderRequest describes a new order. Validate must pass before the request
// can be encoded.
type OrderRequest struct {
	Coin       string
	IsBuy      bool
	Sz         float64
	LimitPx    float64
	Type       OrderType
	ReduceOnly bool
	Cloid      mo.Option[types.Cloid]
}

// NewOrderRequest builds a validated order request in one step.
func NewOrderRequest(
	coin string,
	isBuy bool,
	sz float64,
	limitPx float64,
	orderType OrderType,
) (OrderRequest, error) {
	o := OrderRequest{
		Coin:    coin,
		IsBuy:   isBuy,
		Sz:      sz,
		LimitPx: limitPx,
		Type:    orderType,
	}
	if err := o.Validate(); err != nil {
		return OrderRequest{}, err
	}
	return o, nil
}

// Validate checks the request without touching the network.
func (o OrderRequest) Validate() error {
	if o.Coin == "" {
		return errors.New("order: coin is required")
	}
	if err := validatePositiveFinite("size", o.Sz); err != nil {
		return fmt.Errorf("order: %w", err)
	}
	if err := validatePositiveFinite("limit price", o.LimitPx); err != nil {
		return fmt.Errorf("order: %w", err)
	}
	if err := o.Type.validate(); err != nil {
		return fmt.Errorf("order: %w", err)
	}
	return nil
}

// CancelRequest cancels an order by exchange order id.
type CancelRequest struct {
	Coin string
	Oid  int64
}

func (c CancelRequest) Validate() error {
	if c.Coin == "" {
		return errors.New("cancel: coin is required")
	}
	return nil
}

// CancelByCloidRequest cancels an order by client order id. The two cancel
// paths stay distinct types so an oid is never mistaken for a cloid.
type CancelByCloidRequest struct {
	Coin  string
	Cloid types.Cloid
}

func (c CancelByCloidRequest) Validate() error {
	if c.Coin == "" {
		return errors.New("cancelByCloid: coin is required")
	}
	return nil
}

// ModifyRequest replaces a resting order, identified by exactly one of Oid
// or Cloid, with a new order.
type ModifyRequest struct {
	Oid   mo.Option[int64]
	Cloid mo.Option[types.Cloid]
	Order OrderRequest
}

func (m ModifyRequest) Validate() error {
	if m.Oid.IsPresent() == m.Cloid.IsPresent() {
		return errors.New("modify: exactly one of oid or cloid must be set")
	}
	return m.Order.Validate()
}

// UsdSendRequest transfers USDC to another address.
type UsdSendRequest struct {
	Destination common.Address
	Amount      float64
}

func (u UsdSendRequest) Validate() error {
	return validatePositiveFinite("usdSend amount", u.Amount)
}

// SpotSendRequest transfers a spot token to another address. Token is the
// exchange token identifier, e.g. "PURR:0xc4bf3f870c0e9465323c0b6ed28096c2".
type SpotSendRequest struct {
	Destination common.Address
	Token       string
	Amount      float64
}

func (s SpotSendRequest) Validate() error {
	if s.Token == "" {
		return errors.New("spotSend: token is required")
	}
	return validatePositiveFinite("spotSend amount", s.Amount)
}

// WithdrawRequest withdraws USDC to the bridge.
type WithdrawRequest struct {
	Destination common.Address
	Amount      float64
}

func (w WithdrawRequest) Validate() error {
	return validatePositiveFinite("withdraw amount", w.Amount)
}
