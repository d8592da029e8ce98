package serve

import (
	"fmt"
	"strings"

	cmdUtil "github.com/colorful-bubbles/idb-keyval/cmd/util"
	"github.com/colorful-bubbles/idb-keyval/rpc/common"
	"github.com/colorful-bubbles/idb-keyval/rpc/server"
	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

var (
	serveCmdConfig = &common.ServerConfig{}
	ServeCmd       = &cobra.Command{
		Use:     "serve",
		Short:   "Start the key-value server",
		Long:    `Start the key-value server with the specified configuration. The configuration can be set via command line flags or environment variables. The format of the environment variables is IDBKV_<flag> (e.g. IDBKV_ENDPOINT=0.0.0.0:9090)`,
		PreRunE: processConfig,
		RunE:    run,
	}
)

func init() {
	// initialize viper
	cobra.OnInitialize(initConfig)

	// add flags
	key := "endpoint"
	ServeCmd.PersistentFlags().String(key, "0.0.0.0:8080", cmdUtil.WrapString("The address on which the API will listen (e.g. localhost:8080)"))

	key = "engine"
	ServeCmd.PersistentFlags().String(key, "bolt", cmdUtil.WrapString("The database engine to serve (bolt, mem). The mem engine loses all data on restart"))

	key = "data-dir"
	ServeCmd.PersistentFlags().String(key, "data", cmdUtil.WrapString("The directory holding the database files (bolt engine only)"))

	key = "sweep-interval"
	ServeCmd.PersistentFlags().Int64(key, 60, cmdUtil.WrapString("How often the expiration sweep runs, in seconds"))

	key = "timeout"
	ServeCmd.PersistentFlags().Int64(key, 30, cmdUtil.WrapString("Read/write timeout for HTTP requests, in seconds"))

	key = "log-level"
	ServeCmd.PersistentFlags().String(key, "info", cmdUtil.WrapString("LogLevel is the level at which logs will be output (debug, info, warn, error)"))
}

// processConfig reads the configuration from the command line flags and environment variables and converts them to the server configuration
func processConfig(cmd *cobra.Command, _ []string) error {
	// bind the flags to viper
	if err := viper.BindPFlags(cmd.Flags()); err != nil {
		return err
	}

	// parse the engine
	switch viper.GetString("engine") {
	case "bolt":
		serveCmdConfig.Engine = common.EngineBolt
	case "mem":
		serveCmdConfig.Engine = common.EngineMem
	default:
		return fmt.Errorf("invalid engine %s (expected one of: bolt, mem)", viper.GetString("engine"))
	}

	// read the configuration from the command line flags and environment variables
	serveCmdConfig.Endpoint = viper.GetString("endpoint")
	serveCmdConfig.DataDir = viper.GetString("data-dir")
	serveCmdConfig.SweepIntervalSecond = viper.GetInt64("sweep-interval")
	serveCmdConfig.TimeoutSecond = viper.GetInt64("timeout")
	serveCmdConfig.LogLevel = viper.GetString("log-level")

	return nil
}

// run starts the server
func run(_ *cobra.Command, _ []string) error {
	return server.NewRPCServer(*serveCmdConfig).Serve()
}

// initConfig reads in serveCmdConfig file and ENV variables if set.
func initConfig() {
	// load env files
	_ = godotenv.Load(".env")
	_ = godotenv.Load(".env.local")

	// initialize viper
	viper.SetEnvPrefix("idbkv")
	viper.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	viper.AutomaticEnv() // read in environment variables that match
}
