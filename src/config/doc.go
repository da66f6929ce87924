// Package config defines the configuration of an attest node.
//
// Whether attest is embedded in Go code or started from the command line, the
// Config object defined in this package carries every option. On top of these
// options, attest relies on a data directory, defined by Config.DataDir, where
// it looks for a few additional files:
//
//  priv_key  // (optional) the adapter's raw private key (cf. attest keygen).
//  attest.toml // (optional) configuration file read by the attest command.
//  cert.pem, key.pem // (optional) TLS key pair for the WAMP websocket server.
package config
