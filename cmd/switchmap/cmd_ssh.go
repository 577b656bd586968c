package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"go.uber.org/zap"

	"github.com/HerbHall/switchmap/internal/collector"
	"github.com/HerbHall/switchmap/internal/config"
	"github.com/HerbHall/switchmap/internal/inventory"
	"github.com/HerbHall/switchmap/internal/sshcli"
	"github.com/HerbHall/switchmap/internal/store"
)

// runSSH collects MAC tables over the switch CLI instead of SNMP and
// returns the process exit code. With -detect it only fingerprints each
// host and prints "host -> profile".
func runSSH(args []string, stdout io.Writer) int {
	fs := flag.NewFlagSet("ssh", flag.ExitOnError)
	configPath := fs.String("config", "", "path to configuration file")
	detect := fs.Bool("detect", false, "fingerprint hosts and exit without collecting")
	if err := fs.Parse(args); err != nil {
		return 1
	}

	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "switchmap ssh: %v\n", err)
		return 1
	}
	settings, err := cfg.Settings()
	if err != nil {
		fmt.Fprintf(os.Stderr, "switchmap ssh: %v\n", err)
		return 1
	}
	logger, err := config.NewLogger(settings.Logging)
	if err != nil {
		fmt.Fprintf(os.Stderr, "switchmap ssh: %v\n", err)
		return 1
	}
	defer func() { _ = logger.Sync() }()

	if err := sshRun(settings, *detect, logger, stdout); err != nil {
		logger.Error("ssh collection aborted", zap.Error(err))
		return 1
	}
	return 0
}

func sshRun(settings *config.Settings, detectOnly bool, logger *zap.Logger, stdout io.Writer) error {
	if settings.SSH.HostsFile == "" {
		return errors.New("ssh.hosts_file must be set")
	}
	hosts, err := sshcli.LoadHosts(settings.SSH.HostsFile)
	if err != nil {
		return err
	}
	profiles, err := sshcli.LoadProfiles(settings.SSH.ProfilesFile)
	if err != nil {
		return err
	}
	dialer, err := sshcli.NewSSHDialer(settings.SSH)
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if detectOnly {
		runner := sshcli.NewRunner(settings.SSH, hosts, dialer, profiles, nil, logger.Named("ssh"))
		for _, d := range runner.Detect(ctx) {
			if d.Err != nil {
				fmt.Fprintf(stdout, "%s -> error: %v\n", d.Hostname, d.Err)
				continue
			}
			fmt.Fprintf(stdout, "%s -> %s\n", d.Hostname, d.Profile)
		}
		return nil
	}

	db, err := store.New(settings.Database.Path)
	if err != nil {
		return fmt.Errorf("open database: %w", err)
	}
	defer db.Close()

	inv, err := inventory.New(ctx, db, inventory.WithLogger(logger.Named("inventory")))
	if err != nil {
		return fmt.Errorf("initialize inventory: %w", err)
	}

	metrics := collector.NewMetrics()
	opts := []sshcli.Option{sshcli.WithMetrics(metrics)}
	if settings.SSH.FailureLog != "" {
		failures, err := sshcli.NewFailureLog(settings.SSH.FailureLog)
		if err != nil {
			return err
		}
		defer func() { _ = failures.Sync() }()
		opts = append(opts, sshcli.WithFailureLog(failures))
	}

	summary := sshcli.NewRunner(settings.SSH, hosts, dialer, profiles, inv, logger.Named("ssh"), opts...).Run(ctx)

	if settings.Metrics.Textfile != "" {
		if err := metrics.WriteTextfile(settings.Metrics.Textfile); err != nil {
			logger.Warn("failed to export metrics", zap.Error(err))
		}
	}
	if err := db.Checkpoint(context.WithoutCancel(ctx)); err != nil {
		logger.Warn("WAL checkpoint failed", zap.Error(err))
	}
	logger.Info("switchmap ssh finished",
		zap.String("run_id", summary.RunID),
		zap.Int("failed", summary.Failed),
	)
	return nil
}
