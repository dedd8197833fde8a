package server

import (
	"fmt"

	"github.com/mwantia/linkfilter/internal/agent"
	"github.com/spf13/cobra"

	config "github.com/mwantia/linkfilter/internal/config/server"
)

func NewAgentCommand() *cobra.Command {
	var address string

	cmd := &cobra.Command{
		Use:   "agent",
		Short: "Start the link API agent",
		Long: `Start the link API agent.

The agent opens the shared link store, applies pending migrations and
serves the link listing, filter and saved search endpoints until it
receives an interrupt.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.LoadServerConfig()
			if err != nil {
				return fmt.Errorf("failed to load server configuration: %w", err)
			}
			if address != "" {
				cfg.HTTP.Address = address
			}

			return agent.NewAgent(cfg).Serve(cmd.Context())
		},
	}

	cmd.Flags().StringVar(&address, "address", "", "listen address, overrides http.address")

	return cmd
}
