// Package wallet manages secp256k1 signing keys for the exchange client.
// A Registry is built once from validated configs and is read-only after
// construction, so lookups need no locking.
package wallet

import (
	"crypto/ecdsa"
	"errors"
	"fmt"
	"strings"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/samber/mo"
)

var (
	// ErrWalletNotFound is returned when no key is registered for an address.
	ErrWalletNotFound = errors.New("wallet: no key registered for address")

	// ErrIndexOutOfRange is returned for an out-of-range registration index.
	ErrIndexOutOfRange = errors.New("wallet: index out of range")

	// ErrNoWallets is returned by Single on an empty registry.
	ErrNoWallets = errors.New("wallet: registry is empty")
)

// Config describes one key to register. PrivateKeyHex is the 32-byte scalar
// in hex, with or without 0x prefix. Address overrides the derived address
// for API/agent wallets that sign on behalf of a master account.
type Config struct {
	PrivateKeyHex string
	Address       mo.Option[common.Address]
}

// Key binds a private scalar to the address it signs for. The binding is
// fixed at construction.
type Key struct {
	priv    *ecdsa.PrivateKey
	address common.Address
}

func newKey(cfg Config) (*Key, error) {
	hexKey := strings.TrimPrefix(cfg.PrivateKeyHex, "0x")
	if len(hexKey) != 64 {
		return nil, fmt.Errorf(
			"wallet: private key must be 64 hex characters, got %d",
			len(hexKey),
		)
	}

	priv, err := crypto.HexToECDSA(hexKey)
	if err != nil {
		return nil, fmt.Errorf("wallet: invalid private key: %w", err)
	}

	address := cfg.Address.OrElse(crypto.PubkeyToAddress(priv.PublicKey))

	return &Key{priv: priv, address: address}, nil
}

// Address returns the address this key signs for.
func (k *Key) Address() common.Address {
	return k.address
}

// PrivateKey exposes the scalar for signing. Callers must not retain it past
// the registry's lifetime.
func (k *Key) PrivateKey() *ecdsa.PrivateKey {
	return k.priv
}

// String identifies the key by address only.
func (k *Key) String() string {
	return fmt.Sprintf("wallet.Key(%s)", k.address.Hex())
}

// Registry holds signing keys keyed by address, in registration order.
type Registry struct {
	byAddress map[common.Address]*Key
	order     []common.Address
}

// NewRegistry validates every config and builds the registry in one step.
// Any invalid key fails the whole construction with no partial state.
// Registering a second key for an address already present replaces the
// first; the address keeps its original position.
func NewRegistry(configs ...Config) (*Registry, error) {
	r := &Registry{
		byAddress: make(map[common.Address]*Key, len(configs)),
		order:     make([]common.Address, 0, len(configs)),
	}

	for i, cfg := range configs {
		key, err := newKey(cfg)
		if err != nil {
			return nil, fmt.Errorf("wallet %d: %w", i, err)
		}

		if _, exists := r.byAddress[key.address]; !exists {
			r.order = append(r.order, key.address)
		}
		r.byAddress[key.address] = key
	}

	return r, nil
}

// Resolve returns the key registered for addr.
func (r *Registry) Resolve(addr common.Address) (*Key, error) {
	key, ok := r.byAddress[addr]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrWalletNotFound, addr.Hex())
	}
	return key, nil
}

// ResolveByIndex returns the key at registration position i.
func (r *Registry) ResolveByIndex(i int) (*Key, error) {
	if i < 0 || i >= len(r.order) {
		return nil, fmt.Errorf("%w: %d of %d", ErrIndexOutOfRange, i, len(r.order))
	}
	return r.byAddress[r.order[i]], nil
}

// Single returns the first registered key. It is the default signer when the
// caller does not name an account address.
func (r *Registry) Single() (*Key, error) {
	if len(r.order) == 0 {
		return nil, ErrNoWallets
	}
	return r.byAddress[r.order[0]], nil
}

// Addresses lists registered addresses in registration order.
func (r *Registry) Addresses() []common.Address {
	out := make([]common.Address, len(r.order))
	copy(out, r.order)
	return out
}

// Len reports the number of registered keys.
func (r *Registry) Len() int {
	return len(r.order)
}

// Close zeroes all private scalars. The registry is unusable afterwards.
func (r *Registry) Close() {
	for _, key := range r.byAddress {
		if key.priv != nil && key.priv.D != nil {
			key.priv.D.SetInt64(0)
		}
		key.priv = nil
	}
}
