// Package types holds the small value types shared across the client:
// addresses, client order ids, and wire-friendly numerics.
package types

import (
	"encoding/hex"
	"fmt"
	"strings"
	"sync/atomic"

	"github.com/ethereum/go-ethereum/common"
)

// AddressMode selects how address text is normalized.
type AddressMode int32

const (
	// AddressModeStrict accepts only a 0x-prefixed string of exactly 40 hex
	// characters.
	AddressModeStrict AddressMode = iota

	// AddressModeLenient accepts any hex string, with or without 0x prefix.
	// Short values are left-padded with zero bytes to 20; long values keep
	// only the trailing 20 bytes. Two distinct inputs can normalize to the
	// same address under this mode, so it must be requested explicitly.
	AddressModeLenient
)

var defaultAddressMode atomic.Int32

// SetDefaultAddressMode changes the process-wide mode used by ParseAddress.
//
// Deprecated: the default is shared by every caller in the process and
// concurrent callers wanting different modes race on it. Pass the mode
// explicitly with ParseAddressMode instead.
func SetDefaultAddressMode(mode AddressMode) {
	defaultAddressMode.Store(int32(mode))
}

// DefaultAddressMode reports the current process-wide default.
func DefaultAddressMode() AddressMode {
	return AddressMode(defaultAddressMode.Load())
}

// InvalidAddressError reports address text that could not be normalized.
type InvalidAddressError struct {
	Input  string
	Reason string
}

func (e *InvalidAddressError) Error() string {
	return fmt.Sprintf("invalid address %q: %s", e.Input, e.Reason)
}

// ParseAddress normalizes s using the process-wide default mode, which is
// strict unless SetDefaultAddressMode was called.
func ParseAddress(s string) (common.Address, error) {
	return ParseAddressMode(s, DefaultAddressMode())
}

// ParseAddressMode normalizes s into a 20-byte address under the given mode.
func ParseAddressMode(s string, mode AddressMode) (common.Address, error) {
	if mode == AddressModeLenient {
		return parseLenient(s)
	}
	return parseStrict(s)
}

func parseStrict(s string) (common.Address, error) {
	if !strings.HasPrefix(s, "0x") && !strings.HasPrefix(s, "0X") {
		return common.Address{}, &InvalidAddressError{
			Input:  s,
			Reason: "missing 0x prefix",
		}
	}

	hexPart := s[2:]
	if len(hexPart) != common.AddressLength*2 {
		return common.Address{}, &InvalidAddressError{
			Input: s,
			Reason: fmt.Sprintf(
				"want exactly %d hex characters, got %d",
				common.AddressLength*2,
				len(hexPart),
			),
		}
	}

	b, err := hex.DecodeString(hexPart)
	if err != nil {
		return common.Address{}, &InvalidAddressError{
			Input:  s,
			Reason: "not valid hex",
		}
	}

	return common.BytesToAddress(b), nil
}

func parseLenient(s string) (common.Address, error) {
	hexPart := s
	if strings.HasPrefix(hexPart, "0x") || strings.HasPrefix(hexPart, "0X") {
		hexPart = hexPart[2:]
	}
	if hexPart == "" {
		return common.Address{}, &InvalidAddressError{
			Input:  s,
			Reason: "empty",
		}
	}

	// Odd-length input gets a leading zero nibble.
	if len(hexPart)%2 == 1 {
		hexPart = "0" + hexPart
	}

	b, err := hex.DecodeString(hexPart)
	if err != nil {
		return common.Address{}, &InvalidAddressError{
			Input:  s,
			Reason: "not valid hex",
		}
	}

	// BytesToAddress left-pads short input and keeps the trailing 20 bytes
	// of long input.
	return common.BytesToAddress(b), nil
}
