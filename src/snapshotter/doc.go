// Package snapshotter digests the state of a watched set of accounts into a
// single root hash.
//
// Accounts are added to the Registry with Subscribe. Their position in the
// registry is permanent and defines which batch they belong to. A pass over
// the registry is made of successive CalculateRoot calls, one per batch,
// starting at batch 0. Each call supplies the snapshots of exactly the accounts
// of that batch, in registry order; the accumulator hashes them, reduces them
// to a fragment and chains the fragment into the running root (see package
// bmt). When the last batch is accepted the root is finalized and the nonce,
// which counts completed passes, is incremented.
//
// Batches are sequenced optimistically: the registry records the only batch
// index it accepts next, and any other index is rejected without side effect.
// Every operation runs in a single store transaction, so a rejected call never
// leaves a partial update behind.
//
// Batch boundary
//
// With LiveBoundary, the last batch of a pass is recomputed from the current
// number of subscribed accounts on every call, so a subscription arriving in
// the middle of a pass can move the end of that pass. FrozenBoundary instead
// records the number of accounts when batch 0 is accepted and uses it until the
// pass is finalized; accounts subscribed mid-pass join the next pass.
package snapshotter
