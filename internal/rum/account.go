package rum

import (
	"crypto/ecdsa"
	"encoding/base64"
	"encoding/hex"
	"fmt"
	"strings"

	"github.com/ethereum/go-ethereum/crypto"
)

// Account is a RUM signing identity: a secp256k1 keypair in the Ethereum
// style. The chain identifies senders by the url-safe base64 encoding of
// the compressed public key.
type Account struct {
	key *ecdsa.PrivateKey
}

// NewAccount generates a fresh keypair.
func NewAccount() (*Account, error) {
	key, err := crypto.GenerateKey()
	if err != nil {
		return nil, fmt.Errorf("failed to generate key: %w", err)
	}
	return &Account{key: key}, nil
}

// AccountFromPvtkey restores an account from a hex private key,
// with or without the 0x prefix.
func AccountFromPvtkey(pvtkey string) (*Account, error) {
	key, err := crypto.HexToECDSA(strings.TrimPrefix(pvtkey, "0x"))
	if err != nil {
		return nil, fmt.Errorf("invalid private key: %w", err)
	}
	return &Account{key: key}, nil
}

// Pvtkey returns the 0x-prefixed hex private key.
func (a *Account) Pvtkey() string {
	return "0x" + hex.EncodeToString(crypto.FromECDSA(a.key))
}

// Pubkey returns the chain sender pubkey encoding.
func (a *Account) Pubkey() string {
	return base64.RawURLEncoding.EncodeToString(crypto.CompressPubkey(&a.key.PublicKey))
}

// Address returns the checksummed Ethereum address for this key.
func (a *Account) Address() string {
	return crypto.PubkeyToAddress(a.key.PublicKey).Hex()
}

// Sign signs a 32-byte digest and returns the 65-byte [R || S || V] signature.
func (a *Account) Sign(digest []byte) ([]byte, error) {
	return crypto.Sign(digest, a.key)
}
