// Package keys implements the adapter key-pairs used by attest.
//
// An adapter is identified on the wire by a 32-byte id. When an adapter is
// operated with its own secp256k1 key-pair, its id is the SHA256 hash of the
// compressed public key, so that anyone holding the public key can recompute
// the id under which the adapter's hash records are stored.
package keys
