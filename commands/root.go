// Package commands contains the definition for all the commands present
// in the tap-tableau CLI.
package commands

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"

	tap "github.com/tapstack/tap-tableau"
	"github.com/tapstack/tap-tableau/internal/errors"
)

const tapASCIIText = `
  __                        __          __     __
 / /_ ____ _ ____          / /_ ____ _ / /_   / /___   ____ _ __  __
/ __// __ '// __ \ ______ / __// __ '// __ \ / // _ \ / __ '// / / /
/ /_ / /_/ // /_/ //_____// /_ / /_/ // /_/ // //  __// /_/ // /_/ /
\__/ \__,_// .___/        \__/ \__,_//_.___//_/ \___/ \__,_/ \__,_/
          /_/

Extract datasources, groups, projects, schedules, tasks and workbooks
from a Tableau server as Singer messages.
`

// ec is the Execution Context for the current run.
var ec *tap.ExecutionContext

// rootCmd is the main "tap-tableau" command
var rootCmd = &cobra.Command{
	Use:           "tap-tableau",
	Short:         "Tableau server extraction tool",
	Long:          tapASCIIText,
	SilenceUsage:  true,
	SilenceErrors: true,
	Run: func(cmd *cobra.Command, args []string) {
		cmd.Help()
	},
}

func init() {
	ec = tap.NewExecutionContext()
	rootCmd.AddCommand(
		NewInitCmd(ec),
		NewExtractCmd(ec),
		NewDiscoverCmd(ec),
		NewStreamsCmd(ec),
		NewVersionCmd(ec),
		NewDocsCmd(ec),
		NewCompletionCmd(ec),
	)
	f := rootCmd.PersistentFlags()
	f.StringVar(&ec.LogLevel, "log-level", "INFO", "log level (DEBUG, INFO, WARN, ERROR, FATAL)")
	f.StringVar(&ec.ExecutionDirectory, "project", "", "directory where commands are executed (default: current dir)")
	f.StringVar(&ec.Envfile, "envfile", ".env", ".env filename to load ENV vars from")
	f.BoolVar(&ec.NoColor, "no-color", false, "do not colorize output (default: false)")
	f.SetNormalizeFunc(normalizeFlagName)
}

// normalizeFlagName accepts underscores in flag names for parity with
// the config keys.
func normalizeFlagName(f *pflag.FlagSet, name string) pflag.NormalizedName {
	return pflag.NormalizedName(strings.ReplaceAll(name, "_", "-"))
}

func genOpName(cmd *cobra.Command, name string) errors.Op {
	return errors.Op(fmt.Sprintf("%s.%s", cmd.CommandPath(), name))
}

// Execute executes the command and returns the error
func Execute() error {
	var op errors.Op = "commands.Execute"
	if err := ec.Prepare(); err != nil {
		return errors.E(op, fmt.Errorf("preparing execution context failed: %w", err))
	}
	err := rootCmd.Execute()
	if ec.Spinner != nil {
		ec.Spinner.Stop()
	}
	if err != nil {
		return errors.E(op, err)
	}
	return nil
}
