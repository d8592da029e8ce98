package common

import (
	"fmt"
	"strconv"
	"strings"
)

// --------------------------------------------------------------------------
// RPC server configuration struct
// --------------------------------------------------------------------------

// ServerEngine selects the database engine backing the served databases.
type ServerEngine string

const (
	EngineMem  ServerEngine = "mem"
	EngineBolt ServerEngine = "bolt"
)

// ServerConfig holds all configuration parameters for the RPC server.
type ServerConfig struct {
	// HTTP api settings
	Endpoint string

	// Engine selects the backing engine for every served database
	Engine ServerEngine

	// DataDir is the directory holding the bolt database files
	// (ignored for the mem engine)
	DataDir string

	// SweepIntervalSecond is the period of the expiration sweep per database
	SweepIntervalSecond int64

	// Timeouts for reading and writing HTTP requests
	TimeoutSecond int64

	// Logging configuration
	LogLevel string
}

// String returns a formatted string representation of the configuration
func (c *ServerConfig) String() string {
	var sb strings.Builder

	// Create helper functions for consistent formatting
	addSection := func(title string) {
		sb.WriteString("\n")
		sb.WriteString(fmt.Sprintf("%s\n", strings.ToUpper(title)))
	}

	addField := func(name, value string) {
		sb.WriteString(fmt.Sprintf("  %-22s: %s\n", name, value))
	}

	// RPC settings
	addSection("RPC Server")
	addField("Endpoint", c.Endpoint)
	addField("Timeout", fmt.Sprintf("%d sec", c.TimeoutSecond))

	// Storage
	addSection("Storage")
	addField("Engine", string(c.Engine))
	if c.Engine == EngineBolt {
		addField("Data Directory", c.DataDir)
	}
	addField("Sweep Interval", fmt.Sprintf("%d sec", c.SweepIntervalSecond))

	// Logging configuration
	addSection("Logging")
	addField("Log Level", c.LogLevel)

	return sb.String()
}

// --------------------------------------------------------------------------
// RPC client configuration struct
// --------------------------------------------------------------------------

type ClientConfig struct {
	Endpoint      string
	TimeoutSecond int
	RetryCount    int
}

// String returns a formatted string representation of the client configuration
func (c *ClientConfig) String() string {
	var sb strings.Builder

	// Create helper functions for consistent formatting
	addSection := func(title string) {
		sb.WriteString("\n")
		sb.WriteString(fmt.Sprintf("%s\n", strings.ToUpper(title)))
	}

	addField := func(name, value string) {
		sb.WriteString(fmt.Sprintf("  %-22s: %s\n", name, value))
	}

	// General Client Settings
	addSection("Client Configuration")
	addField("Endpoint", c.Endpoint)
	addField("Timeout", fmt.Sprintf("%d sec", c.TimeoutSecond))
	addField("Retry Count", strconv.Itoa(c.RetryCount))

	return sb.String()
}
