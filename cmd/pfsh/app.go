package main

import (
	"fmt"
	"io"
	"log/slog"
	"os"

	"github.com/pfsys/pfs/internal/blockdev"
	"github.com/pfsys/pfs/internal/config"
	"github.com/pfsys/pfs/internal/devfs"
	"github.com/pfsys/pfs/internal/flashfs"
	"github.com/pfsys/pfs/internal/mount"
	"github.com/pfsys/pfs/internal/serial"
	"github.com/pfsys/pfs/internal/ui"
	"github.com/pfsys/pfs/internal/vfs"
)

// App wires the storage and device stack into one mount table.
type App struct {
	cfg *config.App

	table     *mount.Table
	image     *blockdev.FileImage
	serialDev *serial.Device

	uiHandler *ui.Handler
}

func NewApp(cfg *config.App) *App {
	return &App{cfg: cfg}
}

// stdio joins the process streams into the console device's stream.
type stdio struct {
	io.Reader
	io.Writer
}

// Setup builds the flash volume on the image file, populates the device
// namespace and mounts both.
func (app *App) Setup() error {
	sectors := int64(app.cfg.BlockSize) / blockdev.SectorSize * int64(app.cfg.BlockCount)

	image, err := blockdev.OpenFileImage(app.cfg.FlashImage, sectors)
	if err != nil {
		return fmt.Errorf("(app) %w", err)
	}
	app.image = image

	disk := blockdev.NewDisk(image)
	if err := disk.Initialize(); err != nil {
		return fmt.Errorf("(app) %w", err)
	}

	region, err := blockdev.NewFlashRegion(disk, app.cfg.BlockSize, app.cfg.BlockCount)
	if err != nil {
		return fmt.Errorf("(app) %w", err)
	}

	flash, err := flashfs.New(region.Config())
	if err != nil {
		return fmt.Errorf("(app) %w", err)
	}

	devices := devfs.New()
	if err := devices.MkNod("console", serial.NewConsole(stdio{os.Stdin, os.Stdout})); err != nil {
		return fmt.Errorf("(app) %w", err)
	}

	if app.cfg.SerialPort != "" {
		if err := app.setupSerial(devices); err != nil {
			return fmt.Errorf("(app) %w", err)
		}
	}

	app.table = mount.NewTable()
	if err := app.table.Mount("/", flash); err != nil {
		return fmt.Errorf("(app) %w", err)
	}
	if err := app.table.Mount("dev", devices); err != nil {
		return fmt.Errorf("(app) %w", err)
	}

	return nil
}

func (app *App) setupSerial(devices *devfs.FS) error {
	port, err := serial.OpenHostPort(app.cfg.SerialPort)
	if err != nil {
		return err
	}

	dev, err := serial.NewDevice(port, vfs.SerialConfig{
		BaudRate: app.cfg.BaudRate,
		DataBits: 8,
		StopBits: 1,
		Parity:   vfs.ParityNone,
		TxPin:    vfs.PinNone,
		RxPin:    vfs.PinNone,
		CtsPin:   vfs.PinNone,
		RtsPin:   vfs.PinNone,
	})
	if err != nil {
		return err
	}
	app.serialDev = dev

	return devices.MkNod("uart0", dev)
}

// Close tears the device and storage stack down.
func (app *App) Close() {
	if app.serialDev != nil {
		app.serialDev.Close()
	}
	if app.image != nil {
		if err := app.image.Close(); err != nil {
			slog.Error("Failed to close flash image.", "err", err)
		}
	}
}

func (app *App) LaunchUI() error {
	if err := app.uiHandler.Launch(); err != nil {
		return fmt.Errorf("(app-ui) %w", err)
	}

	return nil
}
