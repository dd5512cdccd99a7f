package cmd

import (
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/agentgate/agentgate/internal/common"
	commonconfig "github.com/agentgate/agentgate/internal/common/config"
	"github.com/agentgate/agentgate/internal/scheduler/configuration"
)

const (
	CustomConfigLocation string = "config"
	defaultConfigPath    string = "./config/agentgate"
)

func RootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:          "agentgate",
		SilenceUsage: true,
		Short:        "Admission control and priority scheduling for browser-agent slots",
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			return common.BindCommandlineArguments(cmd.Flags())
		},
	}

	cmd.PersistentFlags().StringSlice(
		CustomConfigLocation,
		[]string{},
		"Fully qualified path to application configuration file (for multiple config files repeat this arg or separate paths with commas)")

	cmd.AddCommand(
		runCmd(),
		simulateCmd(),
	)

	return cmd
}

func loadConfig() (configuration.Configuration, error) {
	var config configuration.Configuration
	userSpecifiedConfigs := viper.GetStringSlice(CustomConfigLocation)

	if err := common.LoadConfig(&config, defaultConfigPath, userSpecifiedConfigs, configuration.DecodeHooks()...); err != nil {
		return config, err
	}

	err := config.Validate()
	if err != nil {
		commonconfig.LogValidationErrors(err)
	}
	return config, err
}
