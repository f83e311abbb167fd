// Package config loads the application configuration from Unix-type
// environment files.
package config

import (
	"strconv"
)

// Configuration keys understood by [Provider.Load].
const (
	KeyFlashImage = "PFS_FLASH_IMAGE"
	KeyBlockSize  = "PFS_BLOCK_SIZE"
	KeyBlockCount = "PFS_BLOCK_COUNT"
	KeySerialPort = "PFS_SERIAL_PORT"
	KeyBaudRate   = "PFS_BAUD_RATE"
)

// Defaults applied for keys absent from the configuration.
const (
	DefaultFlashImage = "pfs-flash.img"
	DefaultBlockSize  = 4096
	DefaultBlockCount = 256
	DefaultBaudRate   = 115200
)

// App is the principal structure holding the application configuration.
type App struct {
	// FlashImage is the host path of the flash volume image file.
	FlashImage string

	// BlockSize and BlockCount describe the flash volume geometry.
	BlockSize  int
	BlockCount int

	// SerialPort is the host serial device path; empty leaves the UART
	// node out of the device namespace.
	SerialPort string

	// BaudRate is the serial line rate.
	BaudRate int
}

type genericConfigProvider interface {
	Read(filenames ...string) (envMap map[string]string, err error)
}

// Provider reads configuration files through a pluggable reader.
type Provider struct {
	GenericConfigReader genericConfigProvider
}

// NewProvider returns a [Provider] using the given reader implementation.
func NewProvider(reader genericConfigProvider) *Provider {
	return &Provider{GenericConfigReader: reader}
}

func (c *Provider) mapKeyToString(envMap map[string]string, key string) string {
	if value, exists := envMap[key]; exists {
		return value
	}

	return ""
}

func (c *Provider) mapKeyToInt(envMap map[string]string, key string) int {
	value := c.mapKeyToString(envMap, key)
	if value == "" {
		return -1
	}

	intValue, err := strconv.Atoi(value)
	if err != nil {
		return -1
	}

	return intValue
}

// Load reads the given configuration files and assembles the application
// configuration, filling defaults for absent or unparsable keys. With no
// filenames, the defaults are returned outright.
func (c *Provider) Load(filenames ...string) (*App, error) {
	app := &App{
		FlashImage: DefaultFlashImage,
		BlockSize:  DefaultBlockSize,
		BlockCount: DefaultBlockCount,
		BaudRate:   DefaultBaudRate,
	}

	if len(filenames) == 0 {
		return app, nil
	}

	envMap, err := c.GenericConfigReader.Read(filenames...)
	if err != nil {
		return nil, err
	}

	if v := c.mapKeyToString(envMap, KeyFlashImage); v != "" {
		app.FlashImage = v
	}
	if v := c.mapKeyToInt(envMap, KeyBlockSize); v > 0 {
		app.BlockSize = v
	}
	if v := c.mapKeyToInt(envMap, KeyBlockCount); v > 0 {
		app.BlockCount = v
	}
	app.SerialPort = c.mapKeyToString(envMap, KeySerialPort)
	if v := c.mapKeyToInt(envMap, KeyBaudRate); v > 0 {
		app.BaudRate = v
	}

	return app, nil
}
