package crypto

import (
	"errors"
	"fmt"

	"github.com/minio/sha256-simd"
	"github.com/mosaicnetworks/attest/src/common"
)

// HashLength is the size in bytes of every digest, identifier and domain
// handled by attest.
const HashLength = 32

// ErrInvalidHashLength is returned when parsing a value that does not decode to
// exactly HashLength bytes.
var ErrInvalidHashLength = errors.New("invalid hash length")

// Hash is a 32-byte digest. The zero value is the all-zero digest.
type Hash [HashLength]byte

// BytesToHash copies b into a Hash. It fails unless len(b) == HashLength.
func BytesToHash(b []byte) (Hash, error) {
	var h Hash
	if len(b) != HashLength {
		return h, fmt.Errorf("%w: %d", ErrInvalidHashLength, len(b))
	}
	copy(h[:], b)
	return h, nil
}

// HexToHash parses a hex string, with or without 0x prefix.
func HexToHash(s string) (Hash, error) {
	b, err := common.DecodeFromString(s)
	if err != nil {
		return Hash{}, err
	}
	return BytesToHash(b)
}

// Bytes returns a copy of the hash as a byte slice.
func (h Hash) Bytes() []byte {
	b := make([]byte, HashLength)
	copy(b, h[:])
	return b
}

// IsZero reports whether h is the all-zero digest.
func (h Hash) IsZero() bool {
	return h == Hash{}
}

// Hex returns the UPPERCASE hex representation with the 0X prefix.
func (h Hash) Hex() string {
	return common.EncodeToString(h[:])
}

// String implements fmt.Stringer.
func (h Hash) String() string {
	return h.Hex()
}

// MarshalText implements encoding.TextMarshaler.
func (h Hash) MarshalText() ([]byte, error) {
	return []byte(h.Hex()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (h *Hash) UnmarshalText(text []byte) error {
	res, err := HexToHash(string(text))
	if err != nil {
		return err
	}
	*h = res
	return nil
}

// SHA256 returns the SHA256 hash of the data.
func SHA256(data []byte) []byte {
	hasher := sha256.New()
	hasher.Write(data)
	hash := hasher.Sum(nil)
	return hash
}

// HashV returns the SHA256 hash of the concatenation of all parts.
func HashV(parts ...[]byte) Hash {
	var res Hash
	hasher := sha256.New()
	for _, p := range parts {
		hasher.Write(p)
	}
	copy(res[:], hasher.Sum(nil))
	return res
}

// SimpleHashFromTwoHashes returns the SHA256 hash of the concatenation of left
// and right data.
func SimpleHashFromTwoHashes(left Hash, right Hash) Hash {
	return HashV(left[:], right[:])
}
