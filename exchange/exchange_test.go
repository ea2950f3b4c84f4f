package exchange

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"sync"
	"testing"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/joho/godotenv"
	"github.com/maxatome/go-testdeep/helpers/tdsuite"
	"github.com/maxatome/go-testdeep/td"
	"github.com/samber/mo"

	"github.com/ottuzzi/hyperliquid-go/constants"
	"github.com/ottuzzi/hyperliquid-go/info"
	"github.com/ottuzzi/hyperliquid-go/rest"
	"github.com/ottuzzi/hyperliquid-go/wallet"
)

const (
	testWalletKey  = "0123456789012345678901234567890123456789012345678901234567890123"
	otherWalletKey = "abcdefabcdefabcdefabcdefabcdefabcdefabcdefabcdefabcdefabcdefabcd"
	testNonce      = uint64(1677777606040)
)

func testDirectory() *info.Directory {
	return info.NewDirectory(map[string]info.Asset{
		"ETH": {Index: 4, SzDecimals: 4},
		"BTC": {Index: 0, SzDecimals: 5},
	})
}

func newTestExchange(t *testing.T, baseURL string) *Exchange {
	t.Helper()

	registry, err := wallet.NewRegistry(wallet.Config{PrivateKeyHex: testWalletKey})
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(registry.Close)

	e, err := New(Config{
		BaseURL:   baseURL,
		Registry:  registry,
		Directory: testDirectory(),
		NonceFn:   func() uint64 { return testNonce },
	})
	if err != nil {
		t.Fatal(err)
	}
	return e
}

// recordingServer answers every POST with body and keeps what it received.
type recordingServer struct {
	mu     sync.Mutex
	bodies [][]byte
	*httptest.Server
}

func newRecordingServer(t *testing.T, body string) *recordingServer {
	t.Helper()

	rs := &recordingServer{}
	rs.Server = httptest.NewServer(
		http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			raw, _ := io.ReadAll(r.Body)
			rs.mu.Lock()
			rs.bodies = append(rs.bodies, raw)
			rs.mu.Unlock()

			w.Header().Set("Content-Type", "application/json")
			fmt.Fprint(w, body)
		}),
	)
	t.Cleanup(rs.Server.Close)
	return rs
}

func (rs *recordingServer) recorded() [][]byte {
	rs.mu.Lock()
	defer rs.mu.Unlock()
	return rs.bodies
}

func TestOrderPostsEnvelope(t *testing.T) {
	server := newRecordingServer(t, okRestingJSON)
	e := newTestExchange(t, server.URL)

	order := OrderRequest{
		Coin:    "ETH",
		IsBuy:   true,
		Sz:      0.0147,
		LimitPx: 1670.1,
		Type:    LimitOrder(TifIoc),
	}

	resp, err := e.Order(context.Background(), order)
	if err != nil {
		t.Fatal(err)
	}
	if !resp.IsOK() {
		t.Fatalf("response not ok: %+v", resp)
	}

	bodies := server.recorded()
	if len(bodies) != 1 {
		t.Fatalf("server saw %d requests, want 1", len(bodies))
	}

	var envelope struct {
		Action struct {
			Type     string            `json:"type"`
			Orders   []json.RawMessage `json:"orders"`
			Grouping string            `json:"grouping"`
		} `json:"action"`
		Nonce        uint64          `json:"nonce"`
		Signature    json.RawMessage `json:"signature"`
		VaultAddress *string         `json:"vaultAddress"`
		ExpiresAfter *int64          `json:"expiresAfter"`
	}
	if err := json.Unmarshal(bodies[0], &envelope); err != nil {
		t.Fatal(err)
	}

	if envelope.Action.Type != "order" {
		t.Errorf("action type = %q, want order", envelope.Action.Type)
	}
	if len(envelope.Action.Orders) != 1 {
		t.Errorf("orders = %d, want 1", len(envelope.Action.Orders))
	}
	if envelope.Action.Grouping != "na" {
		t.Errorf("grouping = %q, want na", envelope.Action.Grouping)
	}
	if envelope.Nonce != testNonce {
		t.Errorf("nonce = %d, want %d", envelope.Nonce, testNonce)
	}
	if envelope.VaultAddress != nil {
		t.Errorf("vaultAddress = %v, want null", *envelope.VaultAddress)
	}
	if envelope.ExpiresAfter != nil {
		t.Errorf("expiresAfter = %v, want null", *envelope.ExpiresAfter)
	}

	var sig struct {
		R string `json:"r"`
		S string `json:"s"`
		V uint8  `json:"v"`
	}
	if err := json.Unmarshal(envelope.Signature, &sig); err != nil {
		t.Fatal(err)
	}
	if sig.R == "" || sig.S == "" || (sig.V != 27 && sig.V != 28) {
		t.Errorf("malformed signature %+v", sig)
	}

	var wire struct {
		A int    `json:"a"`
		B bool   `json:"b"`
		P string `json:"p"`
		S string `json:"s"`
	}
	if err := json.Unmarshal(envelope.Action.Orders[0], &wire); err != nil {
		t.Fatal(err)
	}
	if wire.A != 4 || !wire.B || wire.P != "1670.1" || wire.S != "0.0147" {
		t.Errorf("order wire = %+v", wire)
	}
}

func TestVaultAndExpiryInEnvelope(t *testing.T) {
	server := newRecordingServer(t, okRestingJSON)

	registry, err := wallet.NewRegistry(wallet.Config{PrivateKeyHex: testWalletKey})
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(registry.Close)

	vault := common.HexToAddress("0x1719884eb866cb12b2287399b15f7db5e7d775ea")
	e, err := New(Config{
		BaseURL:      server.URL,
		Registry:     registry,
		VaultAddress: mo.Some(vault),
		Directory:    testDirectory(),
		NonceFn:      func() uint64 { return testNonce },
	})
	if err != nil {
		t.Fatal(err)
	}
	if err := e.SetExpiresAfter(time.Minute); err != nil {
		t.Fatal(err)
	}

	order := OrderRequest{
		Coin:    "ETH",
		IsBuy:   true,
		Sz:      0.0147,
		LimitPx: 1670.1,
		Type:    LimitOrder(TifGtc),
	}
	if _, err := e.Order(context.Background(), order); err != nil {
		t.Fatal(err)
	}

	var envelope struct {
		VaultAddress *string `json:"vaultAddress"`
		ExpiresAfter *int64  `json:"expiresAfter"`
	}
	if err := json.Unmarshal(server.recorded()[0], &envelope); err != nil {
		t.Fatal(err)
	}

	if envelope.VaultAddress == nil {
		t.Fatal("vaultAddress missing")
	}
	if *envelope.VaultAddress != "0x1719884eb866cb12b2287399b15f7db5e7d775ea" {
		t.Errorf("vaultAddress = %q, want lowercase hex", *envelope.VaultAddress)
	}
	if envelope.ExpiresAfter == nil || *envelope.ExpiresAfter != time.Minute.Milliseconds() {
		t.Errorf("expiresAfter = %v, want %d", envelope.ExpiresAfter, time.Minute.Milliseconds())
	}
}

func TestSubmitClassifiesErrors(t *testing.T) {
	order := OrderRequest{
		Coin:    "ETH",
		IsBuy:   true,
		Sz:      0.0147,
		LimitPx: 1670.1,
		Type:    LimitOrder(TifGtc),
	}

	t.Run("client error", func(t *testing.T) {
		server := httptest.NewServer(
			http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				http.Error(w, "Unknown action", http.StatusNotFound)
			}),
		)
		t.Cleanup(server.Close)

		e := newTestExchange(t, server.URL)
		_, err := e.Order(context.Background(), order)

		var clientErr *rest.ClientError
		if !errors.As(err, &clientErr) {
			t.Fatalf("err = %v, want *rest.ClientError", err)
		}
		if clientErr.StatusCode != http.StatusNotFound {
			t.Errorf("StatusCode = %d", clientErr.StatusCode)
		}
	})

	t.Run("server error", func(t *testing.T) {
		server := httptest.NewServer(
			http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				http.Error(w, "upstream down", http.StatusServiceUnavailable)
			}),
		)
		t.Cleanup(server.Close)

		e := newTestExchange(t, server.URL)
		_, err := e.Order(context.Background(), order)

		var serverErr *rest.ServerError
		if !errors.As(err, &serverErr) {
			t.Fatalf("err = %v, want *rest.ServerError", err)
		}
	})

	t.Run("network error", func(t *testing.T) {
		server := httptest.NewServer(http.NotFoundHandler())
		url := server.URL
		server.Close()

		e := newTestExchange(t, url)
		_, err := e.Order(context.Background(), order)

		var netErr *rest.NetworkError
		if !errors.As(err, &netErr) {
			t.Fatalf("err = %v, want *rest.NetworkError", err)
		}
		if netErr.Unwrap() == nil {
			t.Error("NetworkError should wrap a cause")
		}
	})
}

func TestUnknownAssetFailsBeforeNetwork(t *testing.T) {
	server := newRecordingServer(t, okRestingJSON)
	e := newTestExchange(t, server.URL)

	order := OrderRequest{
		Coin:    "DOGE",
		IsBuy:   true,
		Sz:      1,
		LimitPx: 0.1,
		Type:    LimitOrder(TifGtc),
	}

	_, err := e.Order(context.Background(), order)
	if !errors.Is(err, info.ErrUnknownAsset) {
		t.Fatalf("err = %v, want ErrUnknownAsset", err)
	}
	if len(server.recorded()) != 0 {
		t.Error("unknown asset must not reach the network")
	}
}

func TestUpdateDirectoryPicksUpNewAssets(t *testing.T) {
	server := newRecordingServer(t, okRestingJSON)
	e := newTestExchange(t, server.URL)

	order := OrderRequest{
		Coin:    "SOL",
		IsBuy:   true,
		Sz:      2,
		LimitPx: 95.5,
		Type:    LimitOrder(TifGtc),
	}

	if _, err := e.Order(context.Background(), order); !errors.Is(err, info.ErrUnknownAsset) {
		t.Fatalf("err = %v, want ErrUnknownAsset before refresh", err)
	}

	e.UpdateDirectory(info.NewDirectory(map[string]info.Asset{
		"SOL": {Index: 5, SzDecimals: 2},
	}))

	if _, err := e.Order(context.Background(), order); err != nil {
		t.Fatalf("order after directory update: %v", err)
	}
}

func TestSignedRequestResubmitsIdentically(t *testing.T) {
	server := newRecordingServer(t, okRestingJSON)
	e := newTestExchange(t, server.URL)

	order := OrderRequest{
		Coin:    "ETH",
		IsBuy:   true,
		Sz:      0.0147,
		LimitPx: 1670.1,
		Type:    LimitOrder(TifGtc),
	}

	req, err := e.SignOrders(
		[]OrderRequest{order},
		mo.None[OrderGrouping](),
		mo.None[BuilderInfo](),
	)
	if err != nil {
		t.Fatal(err)
	}
	if req.Nonce() != testNonce {
		t.Errorf("Nonce() = %d, want %d", req.Nonce(), testNonce)
	}

	ctx := context.Background()
	if _, err := Submit[BulkOrdersResponse](ctx, e, req); err != nil {
		t.Fatal(err)
	}
	if _, err := Submit[BulkOrdersResponse](ctx, e, req); err != nil {
		t.Fatal(err)
	}

	bodies := server.recorded()
	if len(bodies) != 2 {
		t.Fatalf("server saw %d requests, want 2", len(bodies))
	}
	if !bytes.Equal(bodies[0], bodies[1]) {
		t.Error("resubmitted request must be byte-identical")
	}
}

func TestWithWallet(t *testing.T) {
	registry, err := wallet.NewRegistry(
		wallet.Config{PrivateKeyHex: testWalletKey},
		wallet.Config{PrivateKeyHex: otherWalletKey},
	)
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(registry.Close)

	e, err := New(Config{
		BaseURL:   constants.TESTNET_API_URL,
		Registry:  registry,
		Directory: testDirectory(),
	})
	if err != nil {
		t.Fatal(err)
	}

	addrs := registry.Addresses()
	if e.Address() != addrs[0] {
		t.Errorf("default signer = %s, want first registered %s", e.Address().Hex(), addrs[0].Hex())
	}

	second, err := e.WithWallet(addrs[1])
	if err != nil {
		t.Fatal(err)
	}
	if second.Address() != addrs[1] {
		t.Errorf("WithWallet signer = %s, want %s", second.Address().Hex(), addrs[1].Hex())
	}
	if e.Address() != addrs[0] {
		t.Error("WithWallet must not mutate the original client")
	}

	if _, err := e.WithWallet(common.Address{}); !errors.Is(err, wallet.ErrWalletNotFound) {
		t.Errorf("WithWallet(zero) = %v, want ErrWalletNotFound", err)
	}
}

func TestSetExpiresAfterRejectsNegative(t *testing.T) {
	e := newTestExchange(t, constants.TESTNET_API_URL)

	if err := e.SetExpiresAfter(-time.Second); err == nil {
		t.Fatal("negative expiry must be rejected")
	}

	// a rejected call must leave the window unset
	order := OrderRequest{
		Coin:    "ETH",
		IsBuy:   true,
		Sz:      0.0147,
		LimitPx: 1670.1,
		Type:    LimitOrder(TifGtc),
	}
	req, err := e.SignOrders(
		[]OrderRequest{order},
		mo.None[OrderGrouping](),
		mo.None[BuilderInfo](),
	)
	if err != nil {
		t.Fatal(err)
	}

	data, err := json.Marshal(req)
	if err != nil {
		t.Fatal(err)
	}
	var envelope struct {
		ExpiresAfter *int64 `json:"expiresAfter"`
	}
	if err := json.Unmarshal(data, &envelope); err != nil {
		t.Fatal(err)
	}
	if envelope.ExpiresAfter != nil {
		t.Errorf("expiresAfter = %v, want null", *envelope.ExpiresAfter)
	}
}

func TestClearExpiresAfter(t *testing.T) {
	e := newTestExchange(t, constants.TESTNET_API_URL)

	if err := e.SetExpiresAfter(time.Minute); err != nil {
		t.Fatal(err)
	}
	e.ClearExpiresAfter()

	order := OrderRequest{
		Coin:    "ETH",
		IsBuy:   true,
		Sz:      0.0147,
		LimitPx: 1670.1,
		Type:    LimitOrder(TifGtc),
	}
	req, err := e.SignOrders(
		[]OrderRequest{order},
		mo.None[OrderGrouping](),
		mo.None[BuilderInfo](),
	)
	if err != nil {
		t.Fatal(err)
	}

	data, err := json.Marshal(req)
	if err != nil {
		t.Fatal(err)
	}
	var envelope struct {
		ExpiresAfter *int64 `json:"expiresAfter"`
	}
	if err := json.Unmarshal(data, &envelope); err != nil {
		t.Fatal(err)
	}
	if envelope.ExpiresAfter != nil {
		t.Errorf("expiresAfter = %v, want null after clear", *envelope.ExpiresAfter)
	}
}

func TestNewRequiresRegistry(t *testing.T) {
	if _, err := New(Config{}); err == nil {
		t.Fatal("New without registry should fail")
	}
}

// ExchangeIntegrationSuite groups manual integration tests against testnet.
type ExchangeIntegrationSuite struct {
	exchange *Exchange
	registry *wallet.Registry
}

// Setup is called once before any test runs.
func (s *ExchangeIntegrationSuite) Setup(t *td.T) error {
	_ = godotenv.Load("../.env")

	rawKey := os.Getenv("WALLET_PRIVATE_KEY")
	if rawKey == "" {
		return fmt.Errorf("WALLET_PRIVATE_KEY not set in environment")
	}

	registry, err := wallet.NewRegistry(wallet.Config{PrivateKeyHex: rawKey})
	if err != nil {
		return fmt.Errorf("invalid private key: %w", err)
	}

	infoClient := info.New(info.Config{BaseURL: constants.TESTNET_API_URL})
	directory, err := infoClient.RefreshDirectory(context.Background(), "")
	if err != nil {
		return fmt.Errorf("failed to load asset directory: %w", err)
	}

	e, err := New(Config{
		BaseURL:   constants.TESTNET_API_URL,
		Registry:  registry,
		Directory: directory,
	})
	if err != nil {
		return fmt.Errorf("failed to create exchange client: %w", err)
	}

	s.registry = registry
	s.exchange = e

	return nil
}

func (s *ExchangeIntegrationSuite) Destroy(t *td.T) error {
	if s.registry != nil {
		s.registry.Close()
	}
	return nil
}

// Test entry point for the suite.
func TestExchangeIntegrationSuite(t *testing.T) {
	if os.Getenv("SKIP_INTEGRATION") == "true" {
		t.Skip("skipping ExchangeIntegrationSuite")
	}

	tdsuite.Run(t, &ExchangeIntegrationSuite{})
}

func (s *ExchangeIntegrationSuite) TestOrder(assert, require *td.T) {
	ctx := context.Background()

	// Place an order that should rest by setting the price very low
	order, err := NewOrderRequest("ETH", true, 0.2, 1100, LimitOrder(TifGtc))
	require.CmpNoError(err)

	resp, err := s.exchange.Order(ctx, order)
	require.CmpNoError(err)
	require.True(resp.IsOK())

	statuses := *resp.Data
	require.Len(statuses, 1)
	require.NotNil(statuses[0].Resting)
	oid := statuses[0].Resting.Oid

	cancelResp, err := s.exchange.Cancel(ctx, CancelRequest{Coin: "ETH", Oid: oid})
	require.CmpNoError(err)
	require.True(cancelResp.IsOK())
	assert.True((*cancelResp.Data)[0].Success)
}

func (s *ExchangeIntegrationSuite) TestModify(assert, require *td.T) {
	ctx := context.Background()

	order, err := NewOrderRequest("ETH", true, 0.2, 1100, LimitOrder(TifGtc))
	require.CmpNoError(err)

	resp, err := s.exchange.Order(ctx, order)
	require.CmpNoError(err)
	require.True(resp.IsOK())
	require.NotNil((*resp.Data)[0].Resting)
	oid := (*resp.Data)[0].Resting.Oid

	replacement, err := NewOrderRequest("ETH", true, 0.1, 1105, LimitOrder(TifGtc))
	require.CmpNoError(err)

	modifyResp, err := s.exchange.ModifyOrder(ctx, ModifyRequest{
		Oid:   mo.Some(oid),
		Order: replacement,
	})
	require.CmpNoError(err)
	require.True(modifyResp.IsOK())
	require.NotNil((*modifyResp.Data)[0].Resting)
	newOid := (*modifyResp.Data)[0].Resting.Oid

	_, err = s.exchange.Cancel(ctx, CancelRequest{Coin: "ETH", Oid: newOid})
	assert.CmpNoError(err)
}
