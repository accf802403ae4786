package commands

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"github.com/spf13/cobra/doc"
	"github.com/spf13/viper"

	tap "github.com/tapstack/tap-tableau"
	"github.com/tapstack/tap-tableau/internal/errors"
)

// NewDocsCmd returns the docs command
func NewDocsCmd(ec *tap.ExecutionContext) *cobra.Command {
	opts := &docsOptions{
		EC: ec,
	}
	docsCmd := &cobra.Command{
		Use:          "docs [type]",
		Short:        "Generate CLI docs in the given format (markdown or man)",
		Hidden:       true,
		Args:         cobra.MaximumNArgs(1),
		SilenceUsage: true,
		PreRunE: func(cmd *cobra.Command, args []string) error {
			ec.Viper = viper.New()
			return nil
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			op := genOpName(cmd, "RunE")
			opts.DocType = "md"
			if len(args) == 1 {
				opts.DocType = args[0]
			}
			opts.Cmd = cmd
			if err := opts.run(); err != nil {
				return errors.E(op, err)
			}
			return nil
		},
	}

	docsCmd.Flags().StringVar(&opts.Directory, "directory", "docs", "directory where docs will be generated")
	return docsCmd
}

type docsOptions struct {
	EC *tap.ExecutionContext

	DocType   string
	Directory string
	Cmd       *cobra.Command
}

func (o *docsOptions) run() error {
	var op errors.Op = "commands.docsOptions.run"
	if err := os.MkdirAll(o.Directory, 0755); err != nil {
		return errors.E(op, err)
	}
	var err error
	switch o.DocType {
	case "md":
		err = doc.GenMarkdownTree(o.Cmd.Root(), o.Directory)
	case "man":
		header := &doc.GenManHeader{Title: "TAP-TABLEAU", Section: "1"}
		err = doc.GenManTree(o.Cmd.Root(), header, o.Directory)
	default:
		err = fmt.Errorf("unknown doc type: %s. Use md or man", o.DocType)
	}
	if err != nil {
		return errors.E(op, err)
	}
	o.EC.Logger.Infof("docs generated in %s", o.Directory)
	return nil
}
