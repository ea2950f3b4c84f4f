package constants

import "github.com/ethereum/go-ethereum/common"

const MAINNET_API_URL = "https://api.hyperliquid.xyz"
const TESTNET_API_URL = "https://api.hyperliquid-testnet.xyz"
const LOCAL_API_URL = "http://localhost:3001"

// SIGNATURE_CHAIN_ID is the EVM chain id user-signed actions are bound to
// (Arbitrum Sepolia). The hex form is what goes on the wire.
const SIGNATURE_CHAIN_ID = 421614
const SIGNATURE_CHAIN_ID_HEX = "0x66eee"

const MAINNET_CHAIN_NAME = "Mainnet"
const TESTNET_CHAIN_NAME = "Testnet"

var ZERO_ADDRESS = common.Address{}
