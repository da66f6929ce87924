package commands

import (
	"github.com/mosaicnetworks/attest/src/config"
)

//CLIConfig contains configuration for the Run command
type CLIConfig struct {
	Attest config.Config `mapstructure:",squash"`
}

//NewDefaultCLIConfig creates a CLIConfig with default values
func NewDefaultCLIConfig() *CLIConfig {
	return &CLIConfig{
		Attest: *config.NewDefaultConfig(),
	}
}
