package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/icodeforyou/powerwindow/config"
	"github.com/icodeforyou/powerwindow/database"
	"github.com/icodeforyou/powerwindow/ingest"
	"github.com/icodeforyou/powerwindow/logging"
	"github.com/icodeforyou/powerwindow/monitor"
	"github.com/icodeforyou/powerwindow/task"
	"github.com/icodeforyou/powerwindow/www"
	"github.com/lmittmann/tint"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
)

var Version = "?.?.?"

func main() {
	defer func() {
		if err := recover(); err != nil {
			exitWithError(slog.Default(), fmt.Errorf("application panicked: %v", err))
		} else {
			slog.Default().Info("application is shutting down...")
		}
	}()

	configPath := flag.String("config", "", "path to config file")
	flag.Parse()

	cnfg, err := config.Load(*configPath)
	if err != nil {
		panic(fmt.Sprintf("failed to load config: %v", err))
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	consoleLevel := new(slog.LevelVar)
	consoleLevel.Set(cnfg.Logging.GetConsoleLevel())
	consoleHandler := tint.NewHandler(os.Stdout, &tint.Options{
		Level:      consoleLevel,
		TimeFormat: time.RFC3339,
	})
	slog.New(consoleHandler).Debug("powerwindow is starting...", slog.String("version", Version))

	db, err := database.New(ctx, cnfg.Database.Path)
	if err != nil {
		panic(fmt.Sprintf("failed to connect to database: %v", err))
	}
	defer db.Close()

	logger := slog.New(logging.NewMultiHandler(
		consoleHandler,
		logging.NewSQLiteHandler(db, cnfg.Logging.GetDbLevel(), cnfg.Logging.GetDbAttrsFormat())))
	slog.SetDefault(logger)

	// Now we can use the logger to log database operations into the database itself
	db.SetLogger(logger.With("module", "database"))

	config.Watch(logger.With("module", "config"), func(c *config.AppConfig) {
		consoleLevel.Set(c.Logging.GetConsoleLevel())
	})

	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	metrics := monitor.NewMetrics(reg)

	mon, err := monitor.New(cnfg.Signals, metrics)
	if err != nil {
		panic(fmt.Sprintf("failed to create monitor: %v", err))
	}
	mon.OnSample = func(s monitor.Sample) {
		saveCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
		defer cancel()
		err := db.SaveSample(saveCtx, database.SampleRow{
			Signal:     s.Signal,
			Time:       s.Time,
			Value:      s.Value,
			Average:    s.Average,
			RecordedAt: time.Now(),
		})
		if err != nil {
			logger.Error("failed to save sample", slog.String("signal", s.Signal), slog.Any("error", err))
		}
	}

	mq := ingest.New(cnfg.Mqtt, cnfg.Signals)
	mq.OnReading = func(r ingest.Reading) {
		if _, err := mon.Observe(r); err != nil {
			logger.Warn("reading rejected",
				slog.String("signal", r.Signal),
				slog.Uint64("ts", r.Time),
				slog.Any("error", err))
		}
	}
	mq.OnDecodeError = func(signal string, err error) {
		metrics.Dropped(signal, monitor.DropDecode)
	}

	if isDevMode() {
		logger.Info("dev mode, skipping mqtt connection")
	} else {
		if err := mq.Connect(); err != nil {
			panic(fmt.Sprintf("mqtt connection error: %v", err))
		}
		defer mq.Disconnect()
	}

	tasks := task.NewTasks(db, cnfg)
	if isDevMode() {
		logger.Info("dev mode, skipping task scheduling")
	} else {
		if err := tasks.Run(); err != nil {
			panic(fmt.Sprintf("failed to schedule tasks: %v", err))
		}
		defer tasks.Stop()
	}

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)

	go func() {
		select {
		case <-ctx.Done():
			logger.Info("main context done")
		case sig := <-sigCh:
			logger.Info("received signal", slog.Any("signal", sig))
			cancel()
		}
	}()

	server := www.NewServer(db, mon, reg, cnfg)
	server.Run(ctx)
}

func isDevMode() bool {
	return strings.EqualFold(os.Getenv("APP_ENV"), "development")
}

func exitWithError(logger *slog.Logger, err error) {
	if err != nil {
		logger.Error("application shutting down with error", slog.Any("error", err))
	}

	time.Sleep(2 * time.Second)
	os.Exit(1)
}
