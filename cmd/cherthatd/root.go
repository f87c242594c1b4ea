package main

import (
	"fmt"
	"os/signal"
	"strings"
	"syscall"

	"github.com/spf13/cobra"

	"cherthat/internal/config"
	"cherthat/internal/logging"
)

func newRootCommand() *cobra.Command {
	var configFlag string
	var socketFlag string
	var metricsBind string

	return newDaemonCommand(&configFlag, &socketFlag, &metricsBind)
}

func newDaemonCommand(configFlag, socketFlag, metricsBind *string) *cobra.Command {
	cmd := &cobra.Command{
		Use:           "cherthatd",
		Short:         "CherThat capture relay daemon",
		SilenceUsage:  true,
		SilenceErrors: true,
		Args:          cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, _, _, err := config.Load(strings.TrimSpace(*configFlag))
			if err != nil {
				return fmt.Errorf("load config: %w", err)
			}
			if socket := strings.TrimSpace(*socketFlag); socket != "" {
				cfg.Paths.Socket = socket
			}

			logger, err := logging.NewFromConfig(cfg, "cherthatd.log")
			if err != nil {
				return fmt.Errorf("init logger: %w", err)
			}

			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()

			d, err := newDaemon(ctx, cfg, logger, daemonOptions{MetricsBind: strings.TrimSpace(*metricsBind)})
			if err != nil {
				return err
			}
			defer d.Close()

			d.Serve()
			<-ctx.Done()
			logger.Info("cherthatd shutting down")
			return nil
		},
	}

	cmd.Flags().StringVarP(configFlag, "config", "c", "", "Configuration file path")
	cmd.Flags().StringVar(socketFlag, "socket", "", "Override paths.socket")
	cmd.Flags().StringVar(metricsBind, "metrics-bind", "", "Serve Prometheus metrics on host:port")
	return cmd
}
