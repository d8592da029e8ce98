// Package common provides the configuration structures and logging setup
// shared by the RPC client and server.
package common

import (
	"github.com/colorful-bubbles/idb-keyval/lib/logger"
)

// InitLoggers applies the configured log level to every library logger.
// An invalid level falls back to INFO with a warning instead of failing
// the server start.
func InitLoggers(config ServerConfig) {
	level, err := logger.ParseLevel(config.LogLevel)
	if err != nil {
		logger.GetLogger("rpc").Warningf("%v, falling back to info", err)
		level = logger.INFO
	}

	// touch the subsystem loggers so SetLevelAll reaches them
	logger.GetLogger("kv")
	logger.GetLogger("sweep")
	logger.GetLogger("rpc")

	logger.SetLevelAll(level)
}
