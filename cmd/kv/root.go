package kv

import (
	"github.com/colorful-bubbles/idb-keyval/cmd/util"
	libkv "github.com/colorful-bubbles/idb-keyval/lib/kv"
	"github.com/colorful-bubbles/idb-keyval/rpc/client"
	"github.com/spf13/cobra"
)

var (
	remote libkv.IKeyVal

	// KeyValueCommands represents the KV command group
	KeyValueCommands = &cobra.Command{
		Use:               "kv",
		Short:             "Perform key-value operations against a server",
		PersistentPreRunE: setupKVClient,
	}
)

func init() {
	// Initialize viper
	cobra.OnInitialize(util.InitClientConfig)

	// Add common RPC flags to the KV command
	util.SetupRPCClientFlags(KeyValueCommands)

	// Add subcommands
	KeyValueCommands.AddCommand(setCmd)
	KeyValueCommands.AddCommand(getCmd)
	KeyValueCommands.AddCommand(delCmd)
	KeyValueCommands.AddCommand(hasCmd)
	KeyValueCommands.AddCommand(keysCmd)
	KeyValueCommands.AddCommand(clearCmd)
	KeyValueCommands.AddCommand(perfTestCmd)
}

// setupKVClient initializes the HTTP client
func setupKVClient(cmd *cobra.Command, _ []string) error {
	// Bind command flags to viper
	if err := util.BindCommandFlags(cmd); err != nil {
		return err
	}

	remote = client.NewKeyValClient(util.GetClientConfig())
	return nil
}
