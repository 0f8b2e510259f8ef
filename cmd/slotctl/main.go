package main

import (
	"os"
	"time"

	"examslots/pkg/client"

	"github.com/spf13/cobra"
)

const (
	envServer      = "SLOTCTL_SERVER"
	defaultServer  = "http://localhost:8080"
	defaultTimeout = 10 * time.Second
)

type options struct {
	server  string
	timeout time.Duration
}

func (o *options) client() *client.ReservationClient {
	return client.NewReservationClient(o.server, o.timeout)
}

func main() {
	if err := rootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}

func rootCmd() *cobra.Command {
	opts := &options{}

	server := os.Getenv(envServer)
	if server == "" {
		server = defaultServer
	}

	cmd := &cobra.Command{
		Use:           "slotctl",
		Short:         "Reserve, inspect and release examiner time slots",
		SilenceUsage: true,
	}
	cmd.PersistentFlags().StringVar(&opts.server, "server", server, "slot reservation service base URL (env "+envServer+")")
	cmd.PersistentFlags().DurationVar(&opts.timeout, "timeout", defaultTimeout, "request timeout")

	cmd.AddCommand(reserveCmd(opts))
	cmd.AddCommand(releaseCmd(opts))
	cmd.AddCommand(checkCmd(opts))
	cmd.AddCommand(availabilityCmd(opts))
	cmd.AddCommand(reservedCmd(opts))
	cmd.AddCommand(watchCmd())
	return cmd
}
