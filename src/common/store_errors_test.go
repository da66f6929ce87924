package common

import (
	"fmt"
	"testing"
)

func TestIsStore(t *testing.T) {
	err := NewStoreErr("HashRecord", KeyNotFound, "hash_account_aa")

	if !IsStore(err, KeyNotFound) {
		t.Fatalf("%v should be a KeyNotFound StoreErr", err)
	}

	if IsStore(err, KeyAlreadyExists) {
		t.Fatalf("%v should not be a KeyAlreadyExists StoreErr", err)
	}

	wrapped := fmt.Errorf("reading record: %w", err)
	if !IsStore(wrapped, KeyNotFound) {
		t.Fatalf("wrapped error %v should be a KeyNotFound StoreErr", wrapped)
	}

	if IsStore(fmt.Errorf("other"), KeyNotFound) {
		t.Fatal("plain errors are not StoreErrs")
	}

	if err.Error() != "HashRecord, hash_account_aa, Not Found" {
		t.Fatalf("unexpected message %q", err.Error())
	}
}

func TestDecodeFromString(t *testing.T) {
	for _, s := range []string{"0XABCD", "0xabcd", "abcd"} {
		b, err := DecodeFromString(s)
		if err != nil {
			t.Fatalf("%s: %v", s, err)
		}
		if EncodeToString(b) != "0XABCD" {
			t.Fatalf("%s decoded to %X", s, b)
		}
	}
}
