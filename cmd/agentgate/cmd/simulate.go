package cmd

import (
	"io"
	"os"

	log "github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/agentgate/agentgate/internal/common/app"
	"github.com/agentgate/agentgate/internal/common/logging"
	"github.com/agentgate/agentgate/internal/scheduler/configuration"
	"github.com/agentgate/agentgate/internal/scheduler/simulator"
)

func simulateCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "simulate",
		Short: "Replays a synthetic workload against the scheduler and prints wait time statistics",
		RunE:  runSimulation,
	}
	cmd.Flags().String("workload", "", "Path of the workload to simulate.")
	cmd.Flags().String("scheduling", "", "Path of the scheduling policy to simulate. Uses the default policy if empty.")
	cmd.Flags().Bool("showSchedulerLogs", false, "Show scheduler logs.")
	if err := cmd.MarkFlagRequired("workload"); err != nil {
		panic(err)
	}
	return cmd
}

func runSimulation(cmd *cobra.Command, _ []string) error {
	workloadPath, err := cmd.Flags().GetString("workload")
	if err != nil {
		return err
	}
	schedulingPath, err := cmd.Flags().GetString("scheduling")
	if err != nil {
		return err
	}
	showSchedulerLogs, err := cmd.Flags().GetBool("showSchedulerLogs")
	if err != nil {
		return err
	}

	logging.ConfigureCommandLineLogging()
	workloadSpec, err := simulator.WorkloadSpecFromFilePath(workloadPath)
	if err != nil {
		return err
	}
	schedulingConfig := configuration.DefaultSchedulingConfig()
	if schedulingPath != "" {
		schedulingConfig, err = simulator.SchedulingConfigFromFilePath(schedulingPath)
		if err != nil {
			return err
		}
	}

	s, err := simulator.NewSimulator(workloadSpec, schedulingConfig)
	if err != nil {
		return err
	}
	log.Infof("Simulating workload %s", workloadSpec.Name)
	if !showSchedulerLogs {
		log.SetOutput(io.Discard)
	}
	err = s.Run(app.CreateContextWithShutdown())
	log.SetOutput(os.Stdout)
	if err != nil {
		return err
	}
	return s.Stats().Write(cmd.OutOrStdout())
}
