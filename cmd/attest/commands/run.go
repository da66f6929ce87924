package commands

import (
	"os"
	"os/signal"
	"syscall"

	"github.com/mosaicnetworks/attest/src/attest"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

//NewRunCmd returns the command that starts an attest node
func NewRunCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:     "run",
		Short:   "Run node",
		PreRunE: loadConfig,
		RunE:    runAttest,
	}
	AddRunFlags(cmd)
	return cmd
}

/*******************************************************************************
* RUN
*******************************************************************************/

func runAttest(cmd *cobra.Command, args []string) error {
	engine := attest.NewAttest(&_config.Attest)

	if err := engine.Init(); err != nil {
		_config.Attest.Logger().Error("Cannot initialize engine:", err)
		return err
	}

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)
	go func() {
		<-sigCh
		engine.Shutdown()
	}()

	engine.Run()

	return nil
}

/*******************************************************************************
* CONFIG
*******************************************************************************/

//AddRunFlags adds flags to the Run command
func AddRunFlags(cmd *cobra.Command) {

	cmd.Flags().String("datadir", _config.Attest.DataDir, "Top-level directory for configuration and data")
	cmd.Flags().String("log", _config.Attest.LogLevel, "debug, info, warn, error, fatal, panic")
	cmd.Flags().String("log-file", _config.Attest.LogFile, "Optional file receiving a copy of the logs")

	// Service
	cmd.Flags().Bool("no-service", _config.Attest.NoService, "Disable HTTP service")
	cmd.Flags().StringP("service-listen", "s", _config.Attest.ServiceAddr, "Listen IP:Port for HTTP service")

	// Store
	cmd.Flags().Bool("store", _config.Attest.Store, "Use badgerDB instead of in-mem DB")
	cmd.Flags().String("db", _config.Attest.DatabaseDir, "Dabatabase directory")

	// Snapshotter
	cmd.Flags().String("domain", _config.Attest.Domain, "Name of the snapshotter domain")
	cmd.Flags().Int("batch-size", _config.Attest.BatchSize, "Number of accounts per batch")
	cmd.Flags().String("boundary", _config.Attest.Boundary, "Batch boundary mode: live or frozen")

	// Events and relay
	cmd.Flags().String("relay", _config.Attest.Relay, "Root relay: inmem or wamp")
	cmd.Flags().Bool("no-wamp", _config.Attest.NoWamp, "Disable the WAMP router")
	cmd.Flags().StringP("wamp-listen", "w", _config.Attest.WampAddr, "Listen IP:Port for the WAMP websocket server")
	cmd.Flags().String("wamp-realm", _config.Attest.WampRealm, "WAMP realm")
}

func loadConfig(cmd *cobra.Command, args []string) error {

	err := bindFlagsLoadViper(cmd)
	if err != nil {
		return err
	}

	// If --datadir was explicitely set, but not --db, this will update the
	// default database dir to be inside the new datadir
	_config.Attest.SetDataDir(_config.Attest.DataDir)

	logFields := logrus.Fields{
		"attest.DataDir":     _config.Attest.DataDir,
		"attest.LogLevel":    _config.Attest.LogLevel,
		"attest.LogFile":     _config.Attest.LogFile,
		"attest.NoService":   _config.Attest.NoService,
		"attest.ServiceAddr": _config.Attest.ServiceAddr,
		"attest.Store":       _config.Attest.Store,
		"attest.Domain":      _config.Attest.Domain,
		"attest.BatchSize":   _config.Attest.BatchSize,
		"attest.Boundary":    _config.Attest.Boundary,
		"attest.Relay":       _config.Attest.Relay,
		"attest.NoWamp":      _config.Attest.NoWamp,
	}

	if _config.Attest.Store {
		logFields["attest.DatabaseDir"] = _config.Attest.DatabaseDir
	}

	if !_config.Attest.NoWamp {
		logFields["attest.WampAddr"] = _config.Attest.WampAddr
		logFields["attest.WampRealm"] = _config.Attest.WampRealm
	}

	_config.Attest.Logger().WithFields(logFields).Debug("RUN")

	return nil
}

// Bind all flags and read the config into viper
func bindFlagsLoadViper(cmd *cobra.Command) error {
	// Register flags with viper. Include flags from this command and all other
	// persistent flags from the parent
	if err := viper.BindPFlags(cmd.Flags()); err != nil {
		return err
	}

	// first unmarshal to read from CLI flags
	if err := viper.Unmarshal(_config); err != nil {
		return err
	}

	// look for config file in [datadir]/attest.toml (.json, .yaml also work)
	viper.SetConfigName("attest")               // name of config file (without extension)
	viper.AddConfigPath(_config.Attest.DataDir) // search root directory

	// If a config file is found, read it in.
	if err := viper.ReadInConfig(); err == nil {
		_config.Attest.Logger().Debugf("Using config file: %s", viper.ConfigFileUsed())
	} else if _, ok := err.(viper.ConfigFileNotFoundError); ok {
		_config.Attest.Logger().Debugf("No config file found in: %s", _config.Attest.DataDir)
	} else {
		return err
	}

	// second unmarshal to read from config file
	return viper.Unmarshal(_config)
}
