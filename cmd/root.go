package cmd

import (
	"os"

	"github.com/spf13/cobra"
)

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use:   "azul-numberlog",
	Short: "Azul number submission deduplication",
	Long: `Numberlog accepts decimal numbers over plain TCP, one per line, from many
clients at once.

Each number is checked against every number seen since startup. The first
occurrence is appended to the numbers log as a 9 digit zero padded line and
repeats are only counted. Progress is reported on stdout at a fixed interval.

The stress command is available for generating submission load against a
running server.
`,
}

// Execute adds all child commands to the root command and sets flags appropriately.
// This is called by main.main(). It only needs to happen once to the rootCmd.
func Execute() {
	err := rootCmd.Execute()
	if err != nil {
		os.Exit(1)
	}
}
