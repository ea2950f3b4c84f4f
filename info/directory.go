package info

import (
	"errors"
	"fmt"
)

// Spot pairs are addressed at an offset above the perp universe.
const spotAssetOffset = 10000

// ErrUnknownAsset is returned when a symbol has no entry in the directory.
var ErrUnknownAsset = errors.New("info: unknown asset")

// Asset is one tradeable instrument: its integer index on the exchange and
// the number of size decimals orders must respect.
type Asset struct {
	Index      int
	SzDecimals int
}

// Directory maps coin symbols to assets. It is immutable after construction,
// so concurrent lookups need no locking; callers swap in a fresh Directory
// to pick up metadata changes.
type Directory struct {
	bySymbol map[string]Asset
}

// NewDirectory builds a directory from an explicit symbol table.
func NewDirectory(assets map[string]Asset) *Directory {
	bySymbol := make(map[string]Asset, len(assets))
	for symbol, asset := range assets {
		bySymbol[symbol] = asset
	}
	return &Directory{bySymbol: bySymbol}
}

// DirectoryFromMeta builds a directory from exchange metadata. Perp assets
// are indexed by their position in the universe; spot pairs by their pair
// index plus the spot offset. spotMeta may be nil for a perp-only directory.
func DirectoryFromMeta(meta *Meta, spotMeta *SpotMeta) *Directory {
	bySymbol := make(map[string]Asset)

	for i, info := range meta.Universe {
		bySymbol[info.Name] = Asset{Index: i, SzDecimals: info.SzDecimals}
	}

	if spotMeta != nil {
		tokens := make(map[int]SpotTokenInfo, len(spotMeta.Tokens))
		for _, token := range spotMeta.Tokens {
			tokens[token.Index] = token
		}
		for _, pair := range spotMeta.Universe {
			asset := Asset{Index: spotAssetOffset + pair.Index}
			if base, ok := tokens[pair.Tokens[0]]; ok {
				asset.SzDecimals = base.SzDecimals
			}
			bySymbol[pair.Name] = asset
		}
	}

	return &Directory{bySymbol: bySymbol}
}

// Resolve returns the asset for symbol.
func (d *Directory) Resolve(symbol string) (Asset, error) {
	asset, ok := d.bySymbol[symbol]
	if !ok {
		return Asset{}, fmt.Errorf("%w: %q", ErrUnknownAsset, symbol)
	}
	return asset, nil
}

// Symbols reports how many symbols the directory holds.
func (d *Directory) Symbols() int {
	return len(d.bySymbol)
}
