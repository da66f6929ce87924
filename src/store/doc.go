// Package store implements the keyed record store that backs every attest
// component.
//
// Records are addressed by keys derived deterministically from a string prefix
// and the identifying fields of the record (see DeriveKey), so that repeated
// lookups of the same logical key always resolve to the same record.
//
// All reads and writes happen inside transactions. Update runs a function
// against a read-write transaction and commits every write it made, or none of
// them if the function returns an error. There are two implementations of the
// Store interface: InmemStore keeps everything in a map and is used in tests
// and standalone mode, BadgerStore persists records in a Badger database.
package store
