package store

import (
	"encoding/hex"
	"strings"
)

// DeriveKey builds a record key from a prefix and the identifying fields of a
// record: the prefix followed by the lowercase hex encoding of every field,
// separated by underscores. Keys sharing a prefix and leading fields are
// contiguous, which allows iteration with Tx.Keys.
func DeriveKey(prefix string, fields ...[]byte) []byte {
	var sb strings.Builder
	sb.WriteString(prefix)
	for _, f := range fields {
		sb.WriteByte('_')
		sb.WriteString(hex.EncodeToString(f))
	}
	return []byte(sb.String())
}
