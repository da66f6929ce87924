package reporter

import (
	"errors"
	"math/big"

	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/mosaicnetworks/attest/src/crypto"
)

var messageArgs abi.Arguments

func init() {
	uint256Array, err := abi.NewType("uint256[]", "", nil)
	if err != nil {
		panic(err)
	}
	bytes32Array, err := abi.NewType("bytes32[]", "", nil)
	if err != nil {
		panic(err)
	}

	messageArgs = abi.Arguments{
		{Name: "ids", Type: uint256Array},
		{Name: "hashes", Type: bytes32Array},
	}
}

// ErrInvalidMessage is returned when a payload cannot be decoded as a Message.
var ErrInvalidMessage = errors.New("invalid message")

// Message is the payload relayed to a foreign domain: a list of ids and the
// hash attested for each of them.
type Message struct {
	IDs    []*big.Int
	Hashes []crypto.Hash
}

// NewMessage returns the message attesting root as the root of pass nonce.
func NewMessage(nonce uint64, root crypto.Hash) *Message {
	return &Message{
		IDs:    []*big.Int{new(big.Int).SetUint64(nonce)},
		Hashes: []crypto.Hash{root},
	}
}

// Encode returns the ABI encoding of the message as the parameters
// (uint256[] ids, bytes32[] hashes).
func (m *Message) Encode() ([]byte, error) {
	hashes := make([][32]byte, len(m.Hashes))
	for i, h := range m.Hashes {
		hashes[i] = h
	}
	return messageArgs.Pack(m.IDs, hashes)
}

// DecodeMessage parses a payload produced by Encode.
func DecodeMessage(data []byte) (*Message, error) {
	vals, err := messageArgs.Unpack(data)
	if err != nil {
		return nil, err
	}
	if len(vals) != 2 {
		return nil, ErrInvalidMessage
	}

	ids, ok := vals[0].([]*big.Int)
	if !ok {
		return nil, ErrInvalidMessage
	}
	raw, ok := vals[1].([][32]byte)
	if !ok {
		return nil, ErrInvalidMessage
	}

	hashes := make([]crypto.Hash, len(raw))
	for i, h := range raw {
		hashes[i] = h
	}

	return &Message{IDs: ids, Hashes: hashes}, nil
}
