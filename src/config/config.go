package config

import (
	"crypto/ecdsa"
	"os"
	"os/user"
	"path/filepath"
	"runtime"
	"testing"

	"github.com/mosaicnetworks/attest/src/common"
	"github.com/mosaicnetworks/attest/src/crypto"
	"github.com/mosaicnetworks/attest/src/snapshotter"
	"github.com/rifflock/lfshook"
	"github.com/sirupsen/logrus"
	prefixed "github.com/x-cray/logrus-prefixed-formatter"
)

// Default filenames.
const (
	// DefaultKeyfile is the default name of the file containing the adapter's
	// private key
	DefaultKeyfile = "priv_key"

	// DefaultBadgerFile is the default name of the folder containing the Badger
	// database
	DefaultBadgerFile = "badger_db"

	// DefaultCertFile is the default name of the file containing the TLS
	// certificate of the WAMP server.
	DefaultCertFile = "cert.pem"

	// DefaultKeyFile is the default name of the file containing the TLS key of
	// the WAMP server.
	DefaultKeyFile = "key.pem"
)

// Default configuration values.
const (
	DefaultLogLevel    = "debug"
	DefaultServiceAddr = "127.0.0.1:8000"
	DefaultStore       = false
	DefaultDomain      = "attest"
	DefaultBatchSize   = snapshotter.DefaultBatchSize
	DefaultBoundary    = "live"
	DefaultRelay       = "inmem"
	DefaultWampAddr    = "127.0.0.1:8443"
	DefaultWampRealm   = "attest"
)

// Config contains all the configuration properties of an attest node.
type Config struct {
	// DataDir is the top-level directory containing attest configuration and
	// data
	DataDir string `mapstructure:"datadir"`

	// LogLevel determines the chattiness of the log output.
	LogLevel string `mapstructure:"log"`

	// LogFile, when set, receives a copy of every log entry.
	LogFile string `mapstructure:"log-file"`

	// NoService disables the HTTP API service.
	NoService bool `mapstructure:"no-service"`

	// ServiceAddr is the address:port of the HTTP API service.
	ServiceAddr string `mapstructure:"service-listen"`

	// Store activates persistant storage.
	Store bool `mapstructure:"store"`

	// DatabaseDir is the directory containing database files.
	DatabaseDir string `mapstructure:"db"`

	// Domain names the snapshotter registry. The registry is keyed by the
	// SHA256 of the name.
	Domain string `mapstructure:"domain"`

	// BatchSize is the number of accounts per snapshotter batch.
	BatchSize int `mapstructure:"batch-size"`

	// Boundary is the snapshotter batch boundary mode, "live" or "frozen".
	// In live mode the last batch of a pass is recomputed from the current
	// number of subscribed accounts on every call. In frozen mode it is fixed
	// when the first batch of the pass is accepted, and accounts subscribed
	// during a pass wait for the next one.
	Boundary string `mapstructure:"boundary"`

	// Relay selects where finalized roots are dispatched: "inmem" or "wamp".
	// The wamp relay requires the WAMP router.
	Relay string `mapstructure:"relay"`

	// NoWamp disables the WAMP router. Events are then only logged.
	NoWamp bool `mapstructure:"no-wamp"`

	// WampAddr is the address:port of the WAMP websocket server.
	WampAddr string `mapstructure:"wamp-listen"`

	// WampRealm is the WAMP realm in which events and roots are published.
	WampRealm string `mapstructure:"wamp-realm"`

	// Key is the private key of the local adapter. Optional.
	Key *ecdsa.PrivateKey

	logger *logrus.Logger
}

// NewDefaultConfig returns a config object with default values.
func NewDefaultConfig() *Config {
	config := &Config{
		DataDir:     DefaultDataDir(),
		LogLevel:    DefaultLogLevel,
		ServiceAddr: DefaultServiceAddr,
		Store:       DefaultStore,
		DatabaseDir: DefaultDatabaseDir(),
		Domain:      DefaultDomain,
		BatchSize:   DefaultBatchSize,
		Boundary:    DefaultBoundary,
		Relay:       DefaultRelay,
		WampAddr:    DefaultWampAddr,
		WampRealm:   DefaultWampRealm,
	}

	return config
}

// NewTestConfig returns a config object with default values and a special
// logger for debugging tests.
func NewTestConfig(t testing.TB, level logrus.Level) *Config {
	config := NewDefaultConfig()
	config.logger = common.NewTestLogger(t, level)
	return config
}

// SetDataDir sets the top-level attest directory, and updates the database
// directory if it is currently set to the default value. If the database
// directory is not currently the default, it means the user has explicitely set
// it to something else, so avoid changing it again here.
func (c *Config) SetDataDir(dataDir string) {
	c.DataDir = dataDir
	if c.DatabaseDir == DefaultDatabaseDir() {
		c.DatabaseDir = filepath.Join(dataDir, DefaultBadgerFile)
	}
}

// Keyfile returns the full path of the file containing the private key.
func (c *Config) Keyfile() string {
	return filepath.Join(c.DataDir, DefaultKeyfile)
}

// CertFile returns the full path of the WAMP server TLS certificate.
func (c *Config) CertFile() string {
	return filepath.Join(c.DataDir, DefaultCertFile)
}

// KeyFile returns the full path of the WAMP server TLS key.
func (c *Config) KeyFile() string {
	return filepath.Join(c.DataDir, DefaultKeyFile)
}

// DomainID returns the identifier of the snapshotter domain.
func (c *Config) DomainID() crypto.Hash {
	return crypto.HashV([]byte(c.Domain))
}

// BoundaryMode parses Boundary.
func (c *Config) BoundaryMode() (snapshotter.BoundaryMode, error) {
	return snapshotter.ParseBoundaryMode(c.Boundary)
}

// Logger returns a formatted logrus Entry, with prefix set to "attest". When
// LogFile is set, entries are also written to that file.
func (c *Config) Logger() *logrus.Entry {
	if c.logger == nil {
		c.logger = logrus.New()
		c.logger.Level = LogLevel(c.LogLevel)
		c.logger.Formatter = new(prefixed.TextFormatter)

		if c.LogFile != "" {
			c.logger.Hooks.Add(lfshook.NewHook(
				c.LogFile,
				&logrus.TextFormatter{},
			))
		}
	}
	return c.logger.WithField("prefix", "attest")
}

// DefaultDatabaseDir returns the default path for the badger database files.
func DefaultDatabaseDir() string {
	return filepath.Join(DefaultDataDir(), DefaultBadgerFile)
}

// DefaultDataDir return the default directory name for top-level attest config
// based on the underlying OS, attempting to respect conventions.
func DefaultDataDir() string {
	// Try to place the data folder in the user's home dir
	home := HomeDir()
	if home != "" {
		if runtime.GOOS == "darwin" {
			return filepath.Join(home, ".Attest")
		} else if runtime.GOOS == "windows" {
			return filepath.Join(home, "AppData", "Roaming", "Attest")
		} else {
			return filepath.Join(home, ".attest")
		}
	}
	// As we cannot guess a stable location, return empty and handle later
	return ""
}

// HomeDir returns the user's home directory.
func HomeDir() string {
	if home := os.Getenv("HOME"); home != "" {
		return home
	}
	if usr, err := user.Current(); err == nil {
		return usr.HomeDir
	}
	return ""
}

// LogLevel parses a string into a Logrus log level.
func LogLevel(l string) logrus.Level {
	switch l {
	case "debug":
		return logrus.DebugLevel
	case "info":
		return logrus.InfoLevel
	case "warn":
		return logrus.WarnLevel
	case "error":
		return logrus.ErrorLevel
	case "fatal":
		return logrus.FatalLevel
	case "panic":
		return logrus.PanicLevel
	default:
		return logrus.DebugLevel
	}
}
