package commands

import (
	"os"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	tap "github.com/tapstack/tap-tableau"
)

// NewVersionCmd returns the version command
func NewVersionCmd(ec *tap.ExecutionContext) *cobra.Command {
	versionCmd := &cobra.Command{
		Use:          "version",
		Short:        "Print the tap version",
		SilenceUsage: true,
		PreRunE: func(cmd *cobra.Command, args []string) error {
			ec.Viper = viper.New()
			return nil
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			logger := logrus.New()
			logger.SetOutput(os.Stdout)
			logger.SetFormatter(&logrus.TextFormatter{DisableTimestamp: true, DisableColors: ec.NoColor})
			if !ec.IsTerminal {
				logger.SetFormatter(&logrus.JSONFormatter{PrettyPrint: false})
			}

			logger.WithField("version", ec.Version.GetTapVersion()).Info("tap-tableau")
			if err := ec.Validate(); err == nil {
				logger.
					WithField("server", ec.Config.BaseURL).
					WithField("api_version", ec.Version.APIVersion).
					Info("tableau server")
			}
			return nil
		},
	}
	return versionCmd
}
