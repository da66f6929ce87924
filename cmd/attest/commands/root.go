package commands

import (
	"github.com/spf13/cobra"
)

var (
	_config = NewDefaultCLIConfig()
)

//RootCmd is the root command for attest
var RootCmd = &cobra.Command{
	Use:              "attest",
	Short:            "cross-domain state attestation",
	TraverseChildren: true,
}
