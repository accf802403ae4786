package commands

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	tap "github.com/tapstack/tap-tableau"
	"github.com/tapstack/tap-tableau/internal/errors"
)

const completionCmdExample = `  # Bash
  $ sudo tap-tableau completion bash --file=/etc/bash_completion.d/tap-tableau

  # Zsh (using oh-my-zsh)
  $ mkdir -p $HOME/.oh-my-zsh/completions
  $ tap-tableau completion zsh --file=$HOME/.oh-my-zsh/completions/_tap-tableau

  # Reload the shell for the changes to take effect!`

// NewCompletionCmd return the completion command.
func NewCompletionCmd(ec *tap.ExecutionContext) *cobra.Command {
	opts := &completionOptions{
		EC: ec,
	}
	completionCmd := &cobra.Command{
		Use:          "completion [shell]",
		Short:        "Generate auto-completion code",
		Args:         cobra.ExactArgs(1),
		SilenceUsage: true,
		Example:      completionCmdExample,
		PreRunE: func(cmd *cobra.Command, args []string) error {
			ec.Viper = viper.New()
			return nil
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			op := genOpName(cmd, "RunE")
			opts.Shell = args[0]
			opts.Cmd = cmd
			if err := opts.run(); err != nil {
				return errors.E(op, err)
			}
			return nil
		},
	}

	completionCmd.Flags().StringVar(&opts.File, "file", "", "file to which output has to be written")
	return completionCmd
}

type completionOptions struct {
	EC *tap.ExecutionContext

	Shell string
	File  string
	Cmd   *cobra.Command
}

func (o *completionOptions) run() error {
	var op errors.Op = "commands.completionOptions.run"
	var err error
	switch o.Shell {
	case "bash":
		if o.File != "" {
			err = o.Cmd.Root().GenBashCompletionFile(o.File)
		} else {
			err = o.Cmd.Root().GenBashCompletion(os.Stdout)
		}
	case "zsh":
		if o.File != "" {
			err = o.Cmd.Root().GenZshCompletionFile(o.File)
		} else {
			err = o.Cmd.Root().GenZshCompletion(os.Stdout)
		}
	default:
		err = fmt.Errorf("unknown shell: %s. Use bash or zsh", o.Shell)
	}
	if err != nil {
		return errors.E(op, err)
	}
	return nil
}
