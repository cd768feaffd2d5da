package main

/*
#include <stdlib.h>
#include <stdio.h>
#include <string.h>
*/
import "C" // This is required to build a c-shared library

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/rs/zerolog"

	"github.com/compassradar/extension/internal/config"
	"github.com/compassradar/extension/internal/dispatcher"
	"github.com/compassradar/extension/internal/driver"
	"github.com/compassradar/extension/internal/influx"
	"github.com/compassradar/extension/internal/logging"
	"github.com/compassradar/extension/internal/monitor"
	"github.com/compassradar/extension/internal/notify"
	"github.com/compassradar/extension/internal/notify/tone"
	intOtel "github.com/compassradar/extension/internal/otel"
	"github.com/compassradar/extension/internal/overlay"
	"github.com/compassradar/extension/internal/policy/island"
	"github.com/compassradar/extension/internal/render"
	"github.com/compassradar/extension/internal/zonedata"
	"github.com/compassradar/extension/pkg/hostbridge"
	"github.com/compassradar/extension/pkg/streaming"
)

// module defs - BuildDate can be set at build time via ldflags
var (
	CurrentExtensionVersion string = "1.2.0"
	BuildDate               string = "unknown"

	ExtensionName string = "compass_radar"
)

// Commands handled here rather than by the driver.
const (
	cmdVersion  = ":VERSION:"
	cmdShutdown = ":SHUTDOWN:"
)

// file paths
var (
	// ModulePath is the absolute path to this library file.
	ModulePath string

	// ModuleFolder is the parent folder of ModulePath. The config file and
	// relative paths from it are resolved here.
	ModuleFolder string

	LogFilePath string
	LogFile     *os.File
)

// global variables
var (
	// SlogManager handles all slog-based logging
	SlogManager *logging.SlogManager

	// Logger is the slog logger (convenience reference)
	Logger *slog.Logger

	// OTelProvider handles OpenTelemetry
	OTelProvider *intOtel.Provider

	SessionStartTime time.Time = time.Now()

	// Services
	driverService   *driver.Service
	overlaySink     *overlay.Overlay
	influxManager   *influx.Manager
	monitorService  *monitor.Service
	eventDispatcher *dispatcher.Dispatcher
)

// init is run automatically when the library is loaded
func init() {
	ModulePath = hostbridge.ModulePath()
	ModuleFolder = filepath.Dir(ModulePath)
	if ModulePath == "" {
		ModuleFolder, _ = os.Getwd()
	}

	// Console logging until the log file is known.
	SlogManager = logging.NewSlogManager()
	SlogManager.Setup(nil, "info", nil)
	Logger = SlogManager.Logger()

	if err := config.Load(ModuleFolder); err != nil {
		Logger.Warn("Failed to load config, using defaults!", "error", err)
	} else {
		Logger.Info("Loaded config")
		if config.IsOutdated() {
			Logger.Warn("Config file is from an older release", "configVersion", config.GetString("configVersion"), "current", config.CurrentVersion)
		}
	}

	setupLogging()

	if err := setupServices(); err != nil {
		Logger.Error("Failed to set up services!", "error", err)
		panic(err)
	}
	Logger.Info("Extension ready", "version", CurrentExtensionVersion, "build", BuildDate, "commands", eventDispatcher.Commands())
}

// resolvePath makes p absolute relative to the module folder.
func resolvePath(p string) string {
	if p == "" || filepath.IsAbs(p) {
		return p
	}
	return filepath.Join(ModuleFolder, p)
}

func setupLogging() {
	logsDir := resolvePath(config.GetString("logsDir"))
	if err := os.MkdirAll(logsDir, 0o755); err != nil {
		Logger.Error("Failed to create logs directory", "error", err, "path", logsDir)
	}

	LogFilePath = logging.LogFilePath(logsDir, ExtensionName, SessionStartTime)
	if _, err := os.Stat(LogFilePath); err == nil {
		_ = os.Rename(LogFilePath, LogFilePath+".old")
	}

	var err error
	LogFile, err = os.OpenFile(LogFilePath, os.O_RDWR|os.O_CREATE|os.O_APPEND, 0o666)
	if err != nil {
		Logger.Error("Failed to create/open log file!", "error", err, "path", LogFilePath)
		LogFile = nil
	}

	// Initialize OTel provider if enabled (after log file is created)
	otelCfg := config.GetOTelConfig()
	if otelCfg.Enabled {
		var w io.Writer
		if LogFile != nil {
			w = LogFile
		}
		OTelProvider, err = intOtel.New(intOtel.FromConfig(otelCfg, CurrentExtensionVersion, w))
		if err != nil {
			Logger.Error("Failed to initialize OTel provider", "error", err)
			OTelProvider = nil
		} else {
			Logger.Info("OTel provider initialized", "file", LogFilePath, "endpoint", otelCfg.Endpoint)
		}
	}

	opts := logging.SetupOptions{
		Level: config.GetString("logLevel"),
		Context: func() []slog.Attr {
			if driverService == nil {
				return nil
			}
			return driverService.LogAttrs()
		},
	}
	if LogFile != nil {
		opts.File = LogFile
	}
	if OTelProvider != nil {
		opts.Provider = OTelProvider.LoggerProvider()
	}

	if gl := config.GetGraylogConfig(); gl.Enabled {
		h, err := logging.NewGelfHandler(gl.Address, slog.LevelInfo)
		if err != nil {
			Logger.Error("Failed to connect to Graylog", "error", err, "address", gl.Address)
		} else {
			opts.Extra = append(opts.Extra, h)
		}
	}

	SlogManager.SetupWith(opts)
	Logger = SlogManager.Logger()
	Logger.Info("Logging to file", "path", LogFilePath)
}

func setupServices() error {
	provider, err := zonedata.New(config.GetZoneDataConfig(), config.GetDBConfig(), Logger)
	if err != nil {
		return fmt.Errorf("loading zone data: %w", err)
	}

	tables, err := island.DefaultTables()
	if err != nil {
		return fmt.Errorf("loading island tables: %w", err)
	}

	opts := driver.Options{
		Provider: provider,
		Tables:   tables,
		Settings: config.ViperSource{},
		Language: config.GetString("language"),
		Logger:   Logger,
	}

	logSink := notify.LogSink{Logger: Logger}
	opts.Chat, opts.Toast = logSink, logSink

	if ov := config.GetOverlayConfig(); ov.Enabled {
		overlaySink = overlay.New(overlay.Config{URL: ov.URL, Secret: ov.Secret}, Logger)
		opts.Sink = overlaySink
		opts.Chat, opts.Toast = overlaySink, overlaySink
		opts.ZoneListener = overlaySink
	} else {
		opts.Sink = render.SinkFunc(func(context.Context, render.Frame) error { return nil })
	}

	if config.GetNotifyConfig().Cue {
		cue, err := tone.New()
		if err != nil {
			Logger.Warn("Audio cues unavailable", "error", err)
		} else {
			opts.Cue = cue
		}
	}

	driverService, err = driver.Assemble(opts)
	if err != nil {
		return err
	}

	if overlaySink != nil {
		hello := streaming.HelloPayload{
			Version:  CurrentExtensionVersion,
			Language: opts.Language,
			Policies: driverService.Policies(),
		}
		if err := overlaySink.Init(hello); err != nil {
			Logger.Error("Overlay not reachable, frames will be dropped until it connects", "error", err)
		}
	}

	var out io.Writer = os.Stdout
	if LogFile != nil {
		out = LogFile
	}
	zl := zerolog.New(out).With().Timestamp().Logger()
	eventDispatcher, err = dispatcher.New(logging.NewDispatcherLogger(zl.With().Str("component", "dispatcher").Logger()))
	if err != nil {
		return fmt.Errorf("failed to create dispatcher: %w", err)
	}
	registerLifecycleHandlers(eventDispatcher)
	driverService.RegisterHandlers(eventDispatcher)

	hostbridge.Default.SetVersion(CurrentExtensionVersion)
	hostbridge.Default.SetDispatcher(eventDispatcher)

	startMonitor(zl)
	return nil
}

func startMonitor(zl zerolog.Logger) {
	deps := monitor.Dependencies{
		Source:     driverService,
		StatusPath: filepath.Join(ModuleFolder, "status.json"),
		Interval:   config.GetInfluxConfig().Interval,
		Logger:     Logger,
	}

	influxCfg := config.GetInfluxConfig()
	if influxCfg.Enabled {
		backup := filepath.Join(ModuleFolder,
			fmt.Sprintf("%s_%s.influx.gz", ExtensionName, SessionStartTime.Format("20060102_150405")))
		influxManager = influx.NewManager(influxCfg, zl.With().Str("component", "influx").Logger(), backup)

		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		err := influxManager.Connect(ctx)
		cancel()
		if err != nil {
			Logger.Error("Failed to initialize InfluxDB", "error", err)
			influxManager = nil
		} else {
			deps.Writer = influxManager
		}
	}

	monitorService = monitor.NewService(deps)
	monitorService.Start()
}

func registerLifecycleHandlers(d *dispatcher.Dispatcher) {
	d.Register(cmdVersion, func(e dispatcher.Event) (any, error) {
		return []string{CurrentExtensionVersion, BuildDate}, nil
	})

	d.Register(cmdShutdown, func(e dispatcher.Event) (any, error) {
		shutdown()
		return "ok", nil
	}, dispatcher.Logged())
}

// shutdown flushes and closes everything that holds a connection or file.
// The dispatcher is left open so late calls still get an answer.
func shutdown() {
	Logger.Info("Shutting down")
	if monitorService != nil {
		monitorService.Stop()
		monitorService.Collect()
	}
	if driverService != nil {
		driverService.Close()
	}
	if overlaySink != nil {
		if err := overlaySink.Close(); err != nil {
			Logger.Debug("Overlay close failed", "error", err)
		}
	}
	if influxManager != nil {
		if err := influxManager.Close(); err != nil {
			Logger.Error("Failed to close InfluxDB", "error", err)
		}
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := SlogManager.Flush(ctx); err != nil {
		Logger.Debug("Log flush failed", "error", err)
	}
	if OTelProvider != nil {
		if err := OTelProvider.Shutdown(ctx); err != nil {
			Logger.Debug("OTel shutdown failed", "error", err)
		}
	}
}

// main is required for a c-shared build and is never called by the host.
func main() {}
