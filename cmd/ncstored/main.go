// Command ncstored serves NETCONF running and candidate datastores over SSH.
package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	log "github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
)

func newRootCmd() *cobra.Command {
	var (
		configFile string
		overrides  ServerConfig
	)
	cmd := &cobra.Command{
		Use:           "ncstored",
		Short:         "NETCONF configuration datastore server",
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := LoadConfig(configFile, &overrides)
			if err != nil {
				return err
			}
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			d, err := start(ctx, cfg)
			if err != nil {
				return err
			}
			return d.serve(ctx)
		},
	}

	flags := cmd.Flags()
	flags.StringVarP(&configFile, "config", "c", "", "YAML configuration file")
	flags.StringVar(&overrides.Address, "address", "", "NETCONF listen address")
	flags.IntVarP(&overrides.Port, "port", "p", 0, "NETCONF listen port")
	flags.StringVarP(&overrides.Username, "username", "u", "", "SSH user name")
	flags.StringVar(&overrides.Password, "password", "", "SSH password")
	flags.StringVar(&overrides.HostKeyFile, "host-key", "", "PEM encoded SSH host key")
	flags.StringVarP(&overrides.SchemaFile, "schema", "s", "", "YAML schema description")
	flags.StringVar(&overrides.InitialConfig, "initial-config", "", "XML configuration merged into running at start up")
	flags.StringVar(&overrides.MetricsAddress, "metrics-address", "", "prometheus /metrics listen address")
	flags.BoolVar(&overrides.Diagnostics, "diagnostics", false, "enable diagnostic logging")
	return cmd
}

func main() {
	if err := newRootCmd().ExecuteContext(context.Background()); err != nil {
		log.WithError(err).Fatal("ncstored failed")
	}
}
