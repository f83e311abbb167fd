package main

import (
	"context"
	"flag"
	"log/slog"
	"os"
	"os/signal"
	"runtime"
	"sync"
	"syscall"
	"time"

	"github.com/lmittmann/tint"
	"github.com/pfsys/pfs/internal/config"
	"github.com/pfsys/pfs/internal/ui"
)

const (
	stackTraceBufMax = 1 << 24
)

//nolint:gochecknoglobals
var (
	ExitCode = 0
	Version  string

	uiEnabled  = flag.Bool("ui", true, "enable the UI")
	configFile = flag.String("config", "", "path of an environment-style configuration file")
)

func setupLogging() {
	slog.SetDefault(slog.New(
		tint.NewHandler(os.Stdout, &tint.Options{
			Level:      slog.LevelDebug,
			TimeFormat: time.Kitchen,
		}),
	))
}

func setupSignalHandlers(cancel context.CancelFunc) {
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGTERM, syscall.SIGINT)

	go func() {
		<-sigChan
		cancel()
	}()

	sigChan2 := make(chan os.Signal, 1)
	signal.Notify(sigChan2, syscall.SIGUSR1)
	go func() {
		for range sigChan2 {
			buf := make([]byte, stackTraceBufMax)
			stacklen := runtime.Stack(buf, true)
			os.Stderr.Write(buf[:stacklen])
		}
	}()
}

func startUI(wg *sync.WaitGroup, app *App) {
	defer wg.Done()

	// Route logs into the UI's log pane while it owns the terminal.
	slog.SetDefault(slog.New(
		tint.NewHandler(app.uiHandler.LogWriter, &tint.Options{
			Level:      slog.LevelDebug,
			TimeFormat: time.Kitchen,
			NoColor:    true,
		}),
	))
	defer setupLogging()

	if err := app.LaunchUI(); err != nil {
		slog.Error("UI failure.", "err", err)
		ExitCode = 1
	}
}

func main() {
	defer func() {
		os.Exit(ExitCode)
	}()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	flag.Parse()
	setupLogging()
	setupSignalHandlers(cancel)

	configProvider := config.NewProvider(&config.GodotenvProvider{})

	var files []string
	if *configFile != "" {
		files = append(files, *configFile)
	}

	cfg, err := configProvider.Load(files...)
	if err != nil {
		slog.Error("Failed to load the configuration.", "err", err)
		ExitCode = 1

		return
	}

	app := NewApp(cfg)
	if err := app.Setup(); err != nil {
		slog.Error("Failed to establish the filesystem stack.", "err", err)
		ExitCode = 1

		return
	}
	defer app.Close()

	slog.Info("Filesystem stack up.",
		"image", cfg.FlashImage,
		"blocks", cfg.BlockCount,
		"blocksize", cfg.BlockSize,
	)

	if uiEnabled != nil && *uiEnabled {
		app.uiHandler = ui.NewHandler(ctx, cancel, app.table)

		var wg sync.WaitGroup
		wg.Add(1)
		go startUI(&wg, app)
		wg.Wait()

		return
	}

	runREPL(ctx, app.table)
}
