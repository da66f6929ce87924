// Package bmt implements the batch merkle tree that accumulates account
// digests into a single root, one batch at a time.
//
// Each batch of leaves is reduced to a fragment by pairwise hashing, layer by
// layer, carrying an unpaired last element forward unchanged. The fragment is
// then chained into the running root: the first fragment becomes the root, and
// every following one replaces the root with H(root || fragment). The result
// is a hash chain over successive fragments, not a whole-dataset merkle tree,
// so the root can only be recomputed by replaying every batch in order.
package bmt

import (
	"errors"

	"github.com/mosaicnetworks/attest/src/crypto"
)

// ErrEmptyBatch is returned when a batch without leaves is pushed.
var ErrEmptyBatch = errors.New("empty batch")

// BatchMerkleTree holds the running root of the accumulation.
type BatchMerkleTree struct {
	Root crypto.Hash
}

// New returns a tree with the all-zero root.
func New() *BatchMerkleTree {
	return &BatchMerkleTree{}
}

// FromRoot resumes an accumulation from a previously computed root.
func FromRoot(root crypto.Hash) *BatchMerkleTree {
	return &BatchMerkleTree{Root: root}
}

// PushBatch reduces leaves to a fragment and chains it into the root.
func (t *BatchMerkleTree) PushBatch(leaves []crypto.Hash) error {
	fragment, err := Fragment(leaves)
	if err != nil {
		return err
	}

	t.Root = Chain(t.Root, fragment)

	return nil
}

// Fragment reduces an ordered list of leaves to a single digest. A single leaf
// is its own fragment.
func Fragment(leaves []crypto.Hash) (crypto.Hash, error) {
	if len(leaves) == 0 {
		return crypto.Hash{}, ErrEmptyBatch
	}

	layer := make([]crypto.Hash, len(leaves))
	copy(layer, leaves)

	for len(layer) > 1 {
		next := make([]crypto.Hash, 0, (len(layer)+1)/2)
		for i := 0; i < len(layer); i += 2 {
			if i+1 < len(layer) {
				next = append(next, crypto.SimpleHashFromTwoHashes(layer[i], layer[i+1]))
			} else {
				next = append(next, layer[i])
			}
		}
		layer = next
	}

	return layer[0], nil
}

// Chain folds a fragment into a root. The all-zero root marks an empty
// accumulation, which the fragment replaces directly.
func Chain(root crypto.Hash, fragment crypto.Hash) crypto.Hash {
	if root.IsZero() {
		return fragment
	}
	return crypto.SimpleHashFromTwoHashes(root, fragment)
}
