package exchange

import (
	"crypto/ecdsa"
	"encoding/binary"
	"fmt"
	"math/big"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/math"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/ethereum/go-ethereum/signer/core/apitypes"
	"github.com/samber/mo"
	"github.com/vmihailenco/msgpack/v5"

	"github.com/ottuzzi/hyperliquid-go/constants"
)

// actionHash creates a Keccak256 hash of the action following the Hyperliquid
// protocol: msgpack(action) || nonce (8 bytes BE) || vault presence byte
// (0x01 + 20 address bytes when set, 0x00 otherwise) || optional expiry
// marker (0x00 + 8 bytes BE milliseconds).
func actionHash(
	action any,
	vaultAddress mo.Option[common.Address],
	nonce uint64,
	expiresAfter mo.Option[time.Duration],
) (common.Hash, error) {
	data, err := msgpack.Marshal(action)
	if err != nil {
		return common.Hash{}, fmt.Errorf("failed to marshal action: %w", err)
	}

	nonceBytes := make([]byte, 8)
	binary.BigEndian.PutUint64(nonceBytes, nonce)
	data = append(data, nonceBytes...)

	if v, ok := vaultAddress.Get(); ok {
		data = append(data, 0x01)
		data = append(data, v.Bytes()...)
	} else {
		data = append(data, 0x00)
	}

	if exp, ok := expiresAfter.Get(); ok {
		data = append(data, 0x00)
		expBytes := make([]byte, 8)
		binary.BigEndian.PutUint64(expBytes, uint64(exp.Milliseconds()))
		data = append(data, expBytes...)
	}

	return crypto.Keccak256Hash(data), nil
}

// signL1Action signs an exchange action with the phantom-agent EIP-712
// payload. The action hash becomes the agent's connectionId; the source
// field distinguishes mainnet from testnet.
func signL1Action(
	action any,
	nonce uint64,
	key *ecdsa.PrivateKey,
	vaultAddress mo.Option[common.Address],
	expiresAfter mo.Option[time.Duration],
	isMainnet bool,
) (signature, error) {
	hash, err := actionHash(action, vaultAddress, nonce, expiresAfter)
	if err != nil {
		return signature{}, fmt.Errorf("failed to create action hash: %w", err)
	}

	phantomAgent := constructPhantomAgent(hash, isMainnet)
	typedData := l1Payload(phantomAgent)

	return signTypedData(typedData, key)
}

func constructPhantomAgent(
	hash common.Hash,
	isMainnet bool,
) apitypes.TypedDataMessage {
	var source string
	if isMainnet {
		source = "a"
	} else {
		source = "b"
	}

	return apitypes.TypedDataMessage{
		"source":       source,
		"connectionId": hash,
	}
}

func l1Payload(
	phantomAgent apitypes.TypedDataMessage,
) apitypes.TypedData {
	return apitypes.TypedData{
		Types: apitypes.Types{
			"EIP712Domain": {
				{Name: "name", Type: "string"},
				{Name: "version", Type: "string"},
				{Name: "chainId", Type: "uint256"},
				{Name: "verifyingContract", Type: "address"},
			},
			"Agent": {
				{Name: "source", Type: "string"},
				{Name: "connectionId", Type: "bytes32"},
			},
		},
		PrimaryType: "Agent",
		Domain: apitypes.TypedDataDomain{
			Name:              "Exchange",
			Version:           "1",
			ChainId:           math.NewHexOrDecimal256(1337),
			VerifyingContract: constants.ZERO_ADDRESS.Hex(),
		},
		Message: phantomAgent,
	}
}

// getSignatureChainId returns the chain id user-signed actions commit to, as
// a 0x-hex string.
func getSignatureChainId() string {
	return constants.SIGNATURE_CHAIN_ID_HEX
}

// userSignedPayload wraps a transfer message in the HyperliquidSignTransaction
// EIP-712 domain. signTypes lists the message fields in protocol order.
func userSignedPayload(
	primaryType string,
	signTypes []apitypes.Type,
	message apitypes.TypedDataMessage,
) apitypes.TypedData {
	return apitypes.TypedData{
		Types: apitypes.Types{
			"EIP712Domain": {
				{Name: "name", Type: "string"},
				{Name: "version", Type: "string"},
				{Name: "chainId", Type: "uint256"},
				{Name: "verifyingContract", Type: "address"},
			},
			primaryType: signTypes,
		},
		PrimaryType: primaryType,
		Domain: apitypes.TypedDataDomain{
			Name:              "HyperliquidSignTransaction",
			Version:           "1",
			ChainId:           math.NewHexOrDecimal256(constants.SIGNATURE_CHAIN_ID),
			VerifyingContract: constants.ZERO_ADDRESS.Hex(),
		},
		Message: message,
	}
}

func signUsdSendAction(
	action usdSendAction,
	key *ecdsa.PrivateKey,
) (signature, error) {
	typedData := userSignedPayload(
		"HyperliquidTransaction:UsdSend",
		[]apitypes.Type{
			{Name: "hyperliquidChain", Type: "string"},
			{Name: "destination", Type: "string"},
			{Name: "amount", Type: "string"},
			{Name: "time", Type: "uint64"},
		},
		apitypes.TypedDataMessage{
			"hyperliquidChain": action.HyperliquidChain,
			"destination":      action.Destination,
			"amount":           action.Amount,
			"time":             new(big.Int).SetInt64(action.Time),
		},
	)

	return signTypedData(typedData, key)
}

func signSpotSendAction(
	action spotSendAction,
	key *ecdsa.PrivateKey,
) (signature, error) {
	typedData := userSignedPayload(
		"HyperliquidTransaction:SpotSend",
		[]apitypes.Type{
			{Name: "hyperliquidChain", Type: "string"},
			{Name: "destination", Type: "string"},
			{Name: "token", Type: "string"},
			{Name: "amount", Type: "string"},
			{Name: "time", Type: "uint64"},
		},
		apitypes.TypedDataMessage{
			"hyperliquidChain": action.HyperliquidChain,
			"destination":      action.Destination,
			"token":            action.Token,
			"amount":           action.Amount,
			"time":             new(big.Int).SetInt64(action.Time),
		},
	)

	return signTypedData(typedData, key)
}

func signWithdrawAction(
	action withdrawAction,
	key *ecdsa.PrivateKey,
) (signature, error) {
	typedData := userSignedPayload(
		"HyperliquidTransaction:Withdraw",
		[]apitypes.Type{
			{Name: "hyperliquidChain", Type: "string"},
			{Name: "destination", Type: "string"},
			{Name: "amount", Type: "string"},
			{Name: "time", Type: "uint64"},
		},
		apitypes.TypedDataMessage{
			"hyperliquidChain": action.HyperliquidChain,
			"destination":      action.Destination,
			"amount":           action.Amount,
			"time":             new(big.Int).SetInt64(action.Time),
		},
	)

	return signTypedData(typedData, key)
}

// signTypedData hashes the EIP-712 payload once and signs it.
func signTypedData(
	typedData apitypes.TypedData,
	key *ecdsa.PrivateKey,
) (signature, error) {
	hash, _, err := apitypes.TypedDataAndHash(typedData)
	if err != nil {
		return signature{}, fmt.Errorf(
			"failed generating hash for typed data: %w",
			err,
		)
	}

	return signHash(common.BytesToHash(hash), key)
}

// signHash signs a hash with the private key. crypto.Sign is deterministic
// (RFC 6979), so equal inputs always yield the same signature.
func signHash(hash common.Hash, key *ecdsa.PrivateKey) (signature, error) {
	var out signature

	sig, err := crypto.Sign(hash.Bytes(), key)
	if err != nil {
		return out, fmt.Errorf("failed to sign: %w", err)
	}

	if len(sig) != 65 {
		return out, fmt.Errorf("invalid signature length: %d", len(sig))
	}

	// sig = [R || S || V]
	copy(out.R[:], sig[:32])
	copy(out.S[:], sig[32:64])
	v := sig[64]

	// Ethereum canonical V = 27 or 28
	if v < 27 {
		v += 27
	}

	out.V = v

	return out, nil
}
