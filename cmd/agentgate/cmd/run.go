package cmd

import (
	"github.com/spf13/cobra"

	"github.com/agentgate/agentgate/internal/agentgate"
)

func runCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "run",
		Short: "Runs the scheduler and its http api",
		RunE:  runAgentgate,
	}
	return cmd
}

func runAgentgate(_ *cobra.Command, _ []string) error {
	config, err := loadConfig()
	if err != nil {
		return err
	}
	return agentgate.Run(config)
}
