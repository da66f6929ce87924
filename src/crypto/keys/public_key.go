package keys

import (
	"crypto/ecdsa"

	"github.com/btcsuite/btcd/btcec"
	"github.com/mosaicnetworks/attest/src/common"
	"github.com/mosaicnetworks/attest/src/crypto"
)

// FromPublicKey returns the compressed form of a secp256k1 public key.
func FromPublicKey(pub *ecdsa.PublicKey) []byte {
	if pub == nil || pub.X == nil || pub.Y == nil {
		return nil
	}
	return (*btcec.PublicKey)(pub).SerializeCompressed()
}

// ToPublicKey parses a compressed or uncompressed secp256k1 public key.
func ToPublicKey(pub []byte) (*ecdsa.PublicKey, error) {
	key, err := btcec.ParsePubKey(pub, btcec.S256())
	if err != nil {
		return nil, err
	}
	return key.ToECDSA(), nil
}

// AdapterID returns the id under which an adapter owning pub submits hash
// records: SHA256 of the compressed public key.
func AdapterID(pub *ecdsa.PublicKey) crypto.Hash {
	return crypto.HashV(FromPublicKey(pub))
}

// PublicKeyHex returns the hexadecimal reprentation of the compressed form of
// the public key
func PublicKeyHex(pub *ecdsa.PublicKey) string {
	return common.EncodeToString(FromPublicKey(pub))
}
