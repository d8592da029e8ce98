package cmd

import (
	"fmt"
	"os"

	"github.com/colorful-bubbles/idb-keyval/cmd/kv"
	"github.com/colorful-bubbles/idb-keyval/cmd/serve"
	"github.com/spf13/cobra"
)

const (
	Version = "1.0.0"
)

var (

	// RootCmd represents the base command when called without any subcommands
	RootCmd = &cobra.Command{
		Use:   "idbkv",
		Short: "transactional key-value store with per-entry expiration",
		Long: fmt.Sprintf(`idb-keyval (v%s)

A key-value store library and server written in Go, offering named
stores inside named databases with optional per-entry time-to-live.`, Version),
	}
	versionCmd = &cobra.Command{
		Use:   "version",
		Short: "Print the version number of idb-keyval",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Printf("idb-keyval v%s\n", Version)
		},
	}
)

func init() {
	// Add Commands
	RootCmd.AddCommand(serve.ServeCmd)
	RootCmd.AddCommand(kv.KeyValueCommands)
	RootCmd.AddCommand(versionCmd)
}

// Execute adds all child commands to the root command and sets flags appropriately.
// This is called by main.main(). It only needs to happen once to the RootCmd.
func Execute() {
	if err := RootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
