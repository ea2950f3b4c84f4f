package exchange

import (
	"fmt"
	"strings"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/samber/mo"

	"github.com/ottuzzi/hyperliquid-go/info"
	"github.com/ottuzzi/hyperliquid-go/internal/utils"
	"github.com/ottuzzi/hyperliquid-go/types"
)

// Wire structs are the canonical byte layout of an action: msgpack encodes
// struct fields in declaration order, so two logically equal actions always
// produce identical bytes. Field order and the msgpack tags here are part of
// the protocol; the json tags shape the same structs in the HTTP envelope.

type BuilderInfo struct {
	// Public address of the builder
	PublicAddress common.Address
	// Amount of the fee in tenths of basis points.
	// eg. 10 means 1 basis point
	FeeAmount int64
}

type builderWire struct {
	B string `json:"b" msgpack:"b"`
	F int64  `json:"f" msgpack:"f"`
}

func (b BuilderInfo) toWire() builderWire {
	return builderWire{
		B: strings.ToLower(b.PublicAddress.Hex()),
		F: b.FeeAmount,
	}
}

type OrderGrouping string

const (
	OrderGroupingNA           OrderGrouping = "na"
	OrderGroupingNormalTpSl   OrderGrouping = "normalTpsl"
	OrderGroupingPositionTpSl OrderGrouping = "positionTpsl"
)

type limitWire struct {
	Tif string `json:"tif" msgpack:"tif"`
}

type triggerWire struct {
	IsMarket  bool   `json:"isMarket" msgpack:"isMarket"`
	TriggerPx string `json:"triggerPx" msgpack:"triggerPx"`
	TpSl      string `json:"tpsl" msgpack:"tpsl"`
}

type orderTypeWire struct {
	Limit   *limitWire   `json:"limit,omitempty" msgpack:"limit,omitempty"`
	Trigger *triggerWire `json:"trigger,omitempty" msgpack:"trigger,omitempty"`
}

func (t OrderType) toWire() (orderTypeWire, error) {
	if err := t.validate(); err != nil {
		return orderTypeWire{}, err
	}

	if t.limit != nil {
		return orderTypeWire{Limit: &limitWire{Tif: string(t.limit.tif)}}, nil
	}

	triggerPx, err := utils.FloatToWire(t.trigger.triggerPx)
	if err != nil {
		return orderTypeWire{}, fmt.Errorf("trigger price: %w", err)
	}

	return orderTypeWire{Trigger: &triggerWire{
		IsMarket:  t.trigger.isMarket,
		TriggerPx: triggerPx,
		TpSl:      string(t.trigger.tpsl),
	}}, nil
}

type orderWire struct {
	A int           `json:"a" msgpack:"a"`
	B bool          `json:"b" msgpack:"b"`
	P string        `json:"p" msgpack:"p"`
	S string        `json:"s" msgpack:"s"`
	R bool          `json:"r" msgpack:"r"`
	T orderTypeWire `json:"t" msgpack:"t"`
	C *types.Cloid  `json:"c,omitempty" msgpack:"c,omitempty"`
}

func (o OrderRequest) toWire(asset info.Asset) (orderWire, error) {
	if err := o.Validate(); err != nil {
		return orderWire{}, err
	}

	if err := utils.ValidateResolution(o.Sz, int64(asset.SzDecimals)); err != nil {
		return orderWire{}, fmt.Errorf("size: %w", err)
	}

	szStr, err := utils.FloatToWire(o.Sz)
	if err != nil {
		return orderWire{}, fmt.Errorf("size: %w", err)
	}

	pxStr, err := utils.FloatToWire(o.LimitPx)
	if err != nil {
		return orderWire{}, fmt.Errorf("limit price: %w", err)
	}

	typeWire, err := o.Type.toWire()
	if err != nil {
		return orderWire{}, err
	}

	return orderWire{
		A: asset.Index,
		B: o.IsBuy,
		P: pxStr,
		S: szStr,
		R: o.ReduceOnly,
		T: typeWire,
		C: o.Cloid.ToPointer(),
	}, nil
}

type orderAction struct {
	Type     string        `json:"type" msgpack:"type"`
	Orders   []orderWire   `json:"orders" msgpack:"orders"`
	Grouping OrderGrouping `json:"grouping" msgpack:"grouping"`
	Builder  *builderWire  `json:"builder,omitempty" msgpack:"builder,omitempty"`
}

func ordersToAction(
	orders []orderWire,
	grouping mo.Option[OrderGrouping],
	builder mo.Option[BuilderInfo],
) orderAction {
	var bw *builderWire
	if b, ok := builder.Get(); ok {
		w := b.toWire()
		bw = &w
	}

	return orderAction{
		Type:     "order",
		Orders:   orders,
		Grouping: grouping.OrElse(OrderGroupingNA),
		Builder:  bw,
	}
}

type modifyWire struct {
	Oid   any       `json:"oid" msgpack:"oid"`
	Order orderWire `json:"order" msgpack:"order"`
}

type batchModifyAction struct {
	Type     string       `json:"type" msgpack:"type"`
	Modifies []modifyWire `json:"modifies" msgpack:"modifies"`
}

type cancelWire struct {
	Asset int   `json:"a" msgpack:"a"`
	Oid   int64 `json:"o" msgpack:"o"`
}

type cancelAction struct {
	Type    string       `json:"type" msgpack:"type"`
	Cancels []cancelWire `json:"cancels" msgpack:"cancels"`
}

type cancelByCloidWire struct {
	Asset int         `json:"asset" msgpack:"asset"`
	Cloid types.Cloid `json:"cloid" msgpack:"cloid"`
}

type cancelByCloidAction struct {
	Type    string              `json:"type" msgpack:"type"`
	Cancels []cancelByCloidWire `json:"cancels" msgpack:"cancels"`
}

type updateLeverageAction struct {
	Type     string `json:"type" msgpack:"type"`
	Asset    int    `json:"asset" msgpack:"asset"`
	IsCross  bool   `json:"isCross" msgpack:"isCross"`
	Leverage int64  `json:"leverage" msgpack:"leverage"`
}

type updateIsolatedMarginAction struct {
	Type  string `json:"type" msgpack:"type"`
	Asset int    `json:"asset" msgpack:"asset"`
	IsBuy bool   `json:"isBuy" msgpack:"isBuy"`
	Ntli  int64  `json:"ntli" msgpack:"ntli"`
}

type scheduleCancelAction struct {
	Type string `json:"type" msgpack:"type"`
	Time *int64 `json:"time,omitempty" msgpack:"time,omitempty"`
}

func scheduleCancelToAction(t mo.Option[time.Time]) scheduleCancelAction {
	action := scheduleCancelAction{Type: "scheduleCancel"}
	if v, ok := t.Get(); ok {
		ms := v.UnixMilli()
		action.Time = &ms
	}
	return action
}

// User-signed actions carry their own nonce and chain binding inside the
// signed message, so the fields below are part of what the wallet signs.

type usdSendAction struct {
	Type             string `json:"type"`
	Amount           string `json:"amount"`
	Destination      string `json:"destination"`
	Time             int64  `json:"time"`
	SignatureChainId string `json:"signatureChainId"`
	HyperliquidChain string `json:"hyperliquidChain"`
}

func (u UsdSendRequest) toAction(network string, timestamp int64) (usdSendAction, error) {
	if err := u.Validate(); err != nil {
		return usdSendAction{}, err
	}

	amount, err := utils.FloatToWire(u.Amount)
	if err != nil {
		return usdSendAction{}, fmt.Errorf("usdSend amount: %w", err)
	}

	return usdSendAction{
		Type:             "usdSend",
		Amount:           amount,
		Destination:      strings.ToLower(u.Destination.Hex()),
		Time:             timestamp,
		SignatureChainId: getSignatureChainId(),
		HyperliquidChain: network,
	}, nil
}

type spotSendAction struct {
	Type             string `json:"type"`
	Destination      string `json:"destination"`
	Token            string `json:"token"`
	Amount           string `json:"amount"`
	Time             int64  `json:"time"`
	SignatureChainId string `json:"signatureChainId"`
	HyperliquidChain string `json:"hyperliquidChain"`
}

func (s SpotSendRequest) toAction(network string, timestamp int64) (spotSendAction, error) {
	if err := s.Validate(); err != nil {
		return spotSendAction{}, err
	}

	amount, err := utils.FloatToWire(s.Amount)
	if err != nil {
		return spotSendAction{}, fmt.Errorf("spotSend amount: %w", err)
	}

	return spotSendAction{
		Type:             "spotSend",
		Destination:      strings.ToLower(s.Destination.Hex()),
		Token:            s.Token,
		Amount:           amount,
		Time:             timestamp,
		SignatureChainId: getSignatureChainId(),
		HyperliquidChain: network,
	}, nil
}

type withdrawAction struct {
	Type             string `json:"type"`
	Destination      string `json:"destination"`
	Amount           string `json:"amount"`
	Time             int64  `json:"time"`
	SignatureChainId string `json:"signatureChainId"`
	HyperliquidChain string `json:"hyperliquidChain"`
}

func (w WithdrawRequest) toAction(network string, timestamp int64) (withdrawAction, error) {
	if err := w.Validate(); err != nil {
		return withdrawAction{}, err
	}

	amount, err := utils.FloatToWire(w.Amount)
	if err != nil {
		return withdrawAction{}, fmt.Errorf("withdraw amount: %w", err)
	}

	return withdrawAction{
		Type:             "withdraw3",
		Destination:      strings.ToLower(w.Destination.Hex()),
		Amount:           amount,
		Time:             timestamp,
		SignatureChainId: getSignatureChainId(),
		HyperliquidChain: network,
	}, nil
}
