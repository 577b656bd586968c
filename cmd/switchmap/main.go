// Command switchmap polls every switch listed by the host directory over
// SNMP and records which MAC addresses were seen on which port and VLAN.
// The ssh subcommand collects the same data by logging into the switch CLI.
package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"go.uber.org/zap"

	"github.com/HerbHall/switchmap/internal/collector"
	"github.com/HerbHall/switchmap/internal/config"
	"github.com/HerbHall/switchmap/internal/directory"
	"github.com/HerbHall/switchmap/internal/inventory"
	"github.com/HerbHall/switchmap/internal/snmp"
	"github.com/HerbHall/switchmap/internal/store"
	"github.com/HerbHall/switchmap/internal/version"
)

func main() {
	if len(os.Args) > 1 {
		switch os.Args[1] {
		case "version":
			runVersion(os.Args[2:])
			return
		case "backup":
			runBackup(os.Args[2:])
			return
		case "restore":
			runRestore(os.Args[2:])
			return
		case "ssh":
			os.Exit(runSSH(os.Args[2:], os.Stdout))
		}
	}

	configPath := flag.String("config", "", "path to configuration file")
	showVersion := flag.Bool("version", false, "print version information and exit")
	flag.Parse()

	if *showVersion {
		fmt.Println(version.Info())
		return
	}

	os.Exit(run(*configPath))
}

// run performs one collection pass and returns the process exit code.
func run(configPath string) int {
	cfg, err := config.Load(configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "switchmap: %v\n", err)
		return 1
	}

	settings, err := cfg.Settings()
	if err != nil {
		fmt.Fprintf(os.Stderr, "switchmap: %v\n", err)
		return 1
	}

	logger, err := config.NewLogger(settings.Logging)
	if err != nil {
		fmt.Fprintf(os.Stderr, "switchmap: %v\n", err)
		return 1
	}
	defer func() { _ = logger.Sync() }()

	logger.Info("switchmap starting",
		zap.String("version", version.Short()),
		zap.String("config_file", cfg.ConfigFile()),
		zap.String("database", settings.Database.Path),
		zap.String("directory", settings.Directory.Type),
		zap.String("transport", settings.SNMP.Transport),
	)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	db, err := store.New(settings.Database.Path)
	if err != nil {
		logger.Error("failed to open database", zap.Error(err))
		return 1
	}
	defer db.Close()

	inv, err := inventory.New(ctx, db, inventory.WithLogger(logger.Named("inventory")))
	if err != nil {
		logger.Error("failed to initialize inventory", zap.Error(err))
		return 1
	}

	dir, err := directory.New(settings.Directory, logger.Named("directory"))
	if err != nil {
		logger.Error("failed to initialize host directory", zap.Error(err))
		return 1
	}
	if c, ok := dir.(io.Closer); ok {
		defer c.Close()
	}

	gw := newGateway(settings.SNMP, logger.Named("snmp"))

	metrics := collector.NewMetrics()
	col := collector.New(settings.Collector, dir, gw, inv, logger.Named("collector"),
		collector.WithMetrics(metrics))

	summary, err := col.Run(ctx)
	if err != nil {
		logger.Error("collection aborted", zap.Error(err))
		return 1
	}

	if settings.Metrics.Textfile != "" {
		if err := metrics.WriteTextfile(settings.Metrics.Textfile); err != nil {
			logger.Warn("failed to export metrics", zap.Error(err))
		}
	}
	if err := db.Checkpoint(context.WithoutCancel(ctx)); err != nil {
		logger.Warn("WAL checkpoint failed", zap.Error(err))
	}

	logger.Info("switchmap finished",
		zap.String("run_id", summary.RunID),
		zap.Int("failed", summary.Failed),
	)
	return 0
}

func newGateway(s config.SNMPSettings, logger *zap.Logger) snmp.Gateway {
	if s.Transport == config.TransportSnmpwalk {
		return snmp.NewExec(s.SnmpwalkPath, s.Options(), logger)
	}
	return snmp.NewGoSNMP(s.Options(), logger)
}
