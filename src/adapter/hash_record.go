package adapter

import (
	"github.com/mosaicnetworks/attest/src/crypto"
	"github.com/mosaicnetworks/attest/src/store"
)

// HashRecordPrefix is the key prefix of hash records.
const HashRecordPrefix = "hash_account"

// HashRecord is the hash an adapter reports for a (domain, id) subject.
type HashRecord struct {
	AdapterID crypto.Hash
	Domain    crypto.Hash
	ID        crypto.Hash
	Hash      crypto.Hash
}

// HashRecordKey returns the store key of the record of an adapter for a
// (domain, id) subject. There is at most one record per key.
func HashRecordKey(adapterID, domain, id crypto.Hash) []byte {
	return store.DeriveKey(HashRecordPrefix, adapterID[:], domain[:], id[:])
}

// Key returns the store key of the record.
func (r *HashRecord) Key() []byte {
	return HashRecordKey(r.AdapterID, r.Domain, r.ID)
}

// IDFromName derives an identifier from a human readable name.
func IDFromName(name string) crypto.Hash {
	return crypto.HashV([]byte(name))
}
