package types

import (
	"errors"
	"strings"
	"testing"

	"github.com/ethereum/go-ethereum/common"
)

func TestParseAddressStrict(t *testing.T) {
	tests := []struct {
		name    string
		input   string
		want    common.Address
		wantErr bool
	}{
		{
			name:  "canonical",
			input: "0x5e9ee1089755c3435139848e47e6635505d5a13a",
			want:  common.HexToAddress("0x5e9ee1089755c3435139848e47e6635505d5a13a"),
		},
		{
			name:  "mixed case",
			input: "0x5E9Ee1089755c3435139848e47e6635505D5A13A",
			want:  common.HexToAddress("0x5e9ee1089755c3435139848e47e6635505d5a13a"),
		},
		{
			name:    "missing prefix",
			input:   "5e9ee1089755c3435139848e47e6635505d5a13a",
			wantErr: true,
		},
		{
			name:    "too short",
			input:   "0x1234",
			wantErr: true,
		},
		{
			name:    "too long",
			input:   "0xdeadbeef5e9ee1089755c3435139848e47e6635505d5a13a",
			wantErr: true,
		},
		{
			name:    "not hex",
			input:   "0x5e9ee1089755c3435139848e47e6635505d5a1zz",
			wantErr: true,
		},
		{
			name:    "empty",
			input:   "",
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ParseAddressMode(tt.input, AddressModeStrict)
			if tt.wantErr {
				if err == nil {
					t.Fatalf("ParseAddressMode(%q) succeeded, want error", tt.input)
				}
				var invalid *InvalidAddressError
				if !errors.As(err, &invalid) {
					t.Fatalf("error %v is not *InvalidAddressError", err)
				}
				return
			}
			if err != nil {
				t.Fatalf("ParseAddressMode(%q): %v", tt.input, err)
			}
			if got != tt.want {
				t.Errorf("got %s, want %s", got.Hex(), tt.want.Hex())
			}
		})
	}
}

func TestParseAddressStrictLengthInError(t *testing.T) {
	_, err := ParseAddressMode("0x1234", AddressModeStrict)
	if err == nil {
		t.Fatal("expected error")
	}
	if !strings.Contains(err.Error(), "40") {
		t.Errorf("error %q does not state the required length", err.Error())
	}
}

func TestParseAddressLenient(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  common.Address
	}{
		{
			name:  "short padded left",
			input: "0x1234",
			want:  common.BytesToAddress([]byte{0x12, 0x34}),
		},
		{
			name:  "no prefix",
			input: "1234",
			want:  common.BytesToAddress([]byte{0x12, 0x34}),
		},
		{
			name:  "odd length leading nibble",
			input: "0x123",
			want:  common.BytesToAddress([]byte{0x01, 0x23}),
		},
		{
			name:  "long keeps trailing 20 bytes",
			input: "0xdeadbeef5e9ee1089755c3435139848e47e6635505d5a13a",
			want:  common.HexToAddress("0x5e9ee1089755c3435139848e47e6635505d5a13a"),
		},
		{
			name:  "exact",
			input: "0x5e9ee1089755c3435139848e47e6635505d5a13a",
			want:  common.HexToAddress("0x5e9ee1089755c3435139848e47e6635505d5a13a"),
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ParseAddressMode(tt.input, AddressModeLenient)
			if err != nil {
				t.Fatalf("ParseAddressMode(%q): %v", tt.input, err)
			}
			if got != tt.want {
				t.Errorf("got %s, want %s", got.Hex(), tt.want.Hex())
			}
		})
	}
}

func TestParseAddressLenientPadding(t *testing.T) {
	got, err := ParseAddressMode("0x1234", AddressModeLenient)
	if err != nil {
		t.Fatal(err)
	}
	for i := 0; i < 18; i++ {
		if got[i] != 0 {
			t.Fatalf("byte %d = %#x, want zero padding", i, got[i])
		}
	}
	if got[18] != 0x12 || got[19] != 0x34 {
		t.Errorf("trailing bytes = %#x %#x, want 0x12 0x34", got[18], got[19])
	}
}

func TestParseAddressLenientRejects(t *testing.T) {
	for _, input := range []string{"", "0x", "0xzz"} {
		if _, err := ParseAddressMode(input, AddressModeLenient); err == nil {
			t.Errorf("ParseAddressMode(%q) succeeded, want error", input)
		}
	}
}

func TestDefaultAddressMode(t *testing.T) {
	if DefaultAddressMode() != AddressModeStrict {
		t.Fatal("default mode should be strict")
	}

	SetDefaultAddressMode(AddressModeLenient)
	defer SetDefaultAddressMode(AddressModeStrict)

	got, err := ParseAddress("0x1234")
	if err != nil {
		t.Fatalf("ParseAddress under lenient default: %v", err)
	}
	want := common.BytesToAddress([]byte{0x12, 0x34})
	if got != want {
		t.Errorf("got %s, want %s", got.Hex(), want.Hex())
	}
}
