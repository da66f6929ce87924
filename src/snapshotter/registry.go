package snapshotter

import (
	"github.com/mosaicnetworks/attest/src/crypto"
	"github.com/mosaicnetworks/attest/src/store"
)

// RegistryPrefix is the key prefix of registry records.
const RegistryPrefix = "config"

// Registry is the persisted state of a snapshotter: the ordered list of
// subscribed accounts and the progress of the root accumulation.
type Registry struct {
	// Subscribed is append-only. The position of an account defines its batch.
	Subscribed []AccountRef
	// Root is the running accumulated root, all-zero before the first batch.
	Root crypto.Hash
	// RootFinalized is true iff no pass is in progress.
	RootFinalized bool
	// ExpectedBatch is the only batch index accepted next.
	ExpectedBatch uint64
	// Nonce counts completed passes.
	Nonce uint64
	// PassTotal is the number of subscribed accounts when the pass in
	// progress accepted its first batch.
	PassTotal uint64
	// PassBatchSize and PassBoundary are the settings the pass in progress
	// started with. They apply until it finalizes, whatever the current
	// configuration.
	PassBatchSize uint64
	PassBoundary  BoundaryMode
}

// RegistryKey returns the store key of the registry of a domain.
func RegistryKey(domain crypto.Hash) []byte {
	return store.DeriveKey(RegistryPrefix, domain[:])
}

// IsSubscribed reports whether ref is in the registry.
func (r *Registry) IsSubscribed(ref AccountRef) bool {
	for _, s := range r.Subscribed {
		if s == ref {
			return true
		}
	}
	return false
}

// InPass reports whether a pass has accepted its first batch and not yet
// finalized.
func (r *Registry) InPass() bool {
	return r.ExpectedBatch != 0
}
