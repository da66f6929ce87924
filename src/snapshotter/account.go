package snapshotter

import (
	"encoding/binary"

	"github.com/mosaicnetworks/attest/src/crypto"
)

// AccountRef is the opaque, globally unique identifier of a watched account.
type AccountRef = crypto.Hash

// AccountSnapshot is the state of an account at the time a batch is
// submitted. It is only used as input to hashing and is never persisted.
type AccountSnapshot struct {
	Ref       AccountRef
	Lamports  uint64
	Data      []byte
	Owner     AccountRef
	RentEpoch uint64
}

// Hash returns the leaf digest of the snapshot:
// SHA256(ref || lamports_le || data || owner || rent_epoch_le).
func (a *AccountSnapshot) Hash() crypto.Hash {
	var lamports, rentEpoch [8]byte
	binary.LittleEndian.PutUint64(lamports[:], a.Lamports)
	binary.LittleEndian.PutUint64(rentEpoch[:], a.RentEpoch)

	return crypto.HashV(
		a.Ref[:],
		lamports[:],
		a.Data,
		a.Owner[:],
		rentEpoch[:],
	)
}
