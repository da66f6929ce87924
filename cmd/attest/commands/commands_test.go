package commands

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/mosaicnetworks/attest/src/crypto/keys"
)

func TestKeygen(t *testing.T) {
	dir := t.TempDir()
	privKeyFile = filepath.Join(dir, "priv_key")
	pubKeyFile = filepath.Join(dir, "key.pub")

	if err := keygen(nil, nil); err != nil {
		t.Fatal(err)
	}

	key, err := keys.NewSimpleKeyfile(privKeyFile).ReadKey()
	if err != nil {
		t.Fatal(err)
	}

	pub, err := os.ReadFile(pubKeyFile)
	if err != nil {
		t.Fatal(err)
	}
	if string(pub) != keys.PublicKeyHex(&key.PublicKey) {
		t.Fatalf("public key file does not match the private key")
	}

	if err := keygen(nil, nil); err == nil {
		t.Fatal("keygen should not overwrite an existing key")
	}
}

func TestLoadConfigFile(t *testing.T) {
	dir := t.TempDir()

	toml := "batch-size = 25\nboundary = \"frozen\"\nno-wamp = true\n"
	if err := os.WriteFile(filepath.Join(dir, "attest.toml"), []byte(toml), 0600); err != nil {
		t.Fatal(err)
	}

	cmd := NewRunCmd()
	if err := cmd.Flags().Set("datadir", dir); err != nil {
		t.Fatal(err)
	}
	if err := cmd.Flags().Set("log", "error"); err != nil {
		t.Fatal(err)
	}

	if err := loadConfig(cmd, nil); err != nil {
		t.Fatal(err)
	}

	if _config.Attest.BatchSize != 25 {
		t.Fatalf("batch size should be read from the config file, got %d", _config.Attest.BatchSize)
	}
	if _config.Attest.Boundary != "frozen" || !_config.Attest.NoWamp {
		t.Fatalf("config file not applied: %+v", _config.Attest)
	}
	if _config.Attest.DatabaseDir != filepath.Join(dir, "badger_db") {
		t.Fatalf("database dir should follow datadir, got %s", _config.Attest.DatabaseDir)
	}
}
