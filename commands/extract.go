package commands

import (
	"context"
	"fmt"
	"os"

	"github.com/ahmetb/go-linq"
	"github.com/cheggaaa/pb/v3"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	tap "github.com/tapstack/tap-tableau"
	"github.com/tapstack/tap-tableau/internal/errors"
	"github.com/tapstack/tap-tableau/pkg/singer"
	"github.com/tapstack/tap-tableau/pkg/streams"
)

const extractCmdExample = `  # Extract every stream:
  tap-tableau extract

  # Extract only workbooks and their metadata:
  tap-tableau extract --streams workbooks,workbooks_metadata

  # Extract using config from another directory:
  tap-tableau extract --project /path/to/project`

// NewExtractCmd returns the extract command
func NewExtractCmd(ec *tap.ExecutionContext) *cobra.Command {
	opts := &extractOptions{
		EC: ec,
	}
	extractCmd := &cobra.Command{
		Use:          "extract",
		Short:        "Extract the selected streams as Singer messages on stdout",
		Example:      extractCmdExample,
		SilenceUsage: true,
		PreRunE: func(cmd *cobra.Command, args []string) error {
			op := genOpName(cmd, "PreRunE")
			ec.Viper = viper.New()
			if err := ec.Validate(); err != nil {
				return errors.E(op, err)
			}
			return nil
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			op := genOpName(cmd, "RunE")
			if err := opts.run(); err != nil {
				return errors.E(op, err)
			}
			return nil
		},
	}

	f := extractCmd.Flags()
	f.StringSliceVar(&opts.Streams, "streams", nil, "comma-separated stream names to extract (default: all)")
	return extractCmd
}

type extractOptions struct {
	EC *tap.ExecutionContext

	Streams []string
}

func (o *extractOptions) run() error {
	var op errors.Op = "commands.extractOptions.run"
	ec := o.EC

	selected, err := selectStreams(o.Streams)
	if err != nil {
		return errors.E(op, err)
	}

	client, err := ec.Client()
	if err != nil {
		return errors.E(op, err)
	}
	dispatcher := streams.NewDispatcher(client, ec.Logger)
	writer := singer.NewWriter(os.Stdout)

	ctx := context.Background()
	for _, stream := range selected {
		if err := o.extractStream(ctx, dispatcher, writer, stream); err != nil {
			return errors.E(op, err)
		}
	}
	ec.Spinner.Stop()
	ec.Logger.Infof("extracted %d stream(s)", len(selected))
	return nil
}

func (o *extractOptions) extractStream(ctx context.Context, dispatcher *streams.Dispatcher, writer *singer.Writer, stream streams.Stream) error {
	var op errors.Op = "commands.extractOptions.extractStream"
	ec := o.EC

	ec.Spin(fmt.Sprintf("extracting %s... ", stream.Name))
	it, err := dispatcher.Extract(stream.Name)
	if err != nil {
		return errors.E(op, err)
	}
	if err := writer.WriteSchema(stream.Name, stream.Schema, stream.PrimaryKeys); err != nil {
		return errors.E(op, err)
	}

	var bar *pb.ProgressBar
	if ec.IsTerminal {
		ec.Spinner.Stop()
		bar = pb.New(0)
		bar.SetWriter(os.Stderr)
		bar.SetTemplateString(fmt.Sprintf(`%s: {{counters . }} records`, stream.Name))
		bar.Start()
	}

	count := 0
	for {
		row, ok, err := it.Next(ctx)
		if err != nil {
			if bar != nil {
				bar.Finish()
			}
			return errors.E(op, err)
		}
		if !ok {
			break
		}
		if err := writer.WriteRecord(stream.Name, row); err != nil {
			if bar != nil {
				bar.Finish()
			}
			return errors.E(op, err)
		}
		count++
		if bar != nil {
			bar.Increment()
		}
	}
	if bar != nil {
		bar.Finish()
	}
	ec.Logger.Debugf("stream %s: %d records", stream.Name, count)
	return nil
}

// selectStreams resolves the --streams selection against the known
// streams, keeping the fixed extraction order. An empty selection means
// every stream.
func selectStreams(names []string) ([]streams.Stream, error) {
	var op errors.Op = "commands.selectStreams"
	all := streams.All()
	if len(names) == 0 {
		return all, nil
	}
	for _, name := range names {
		if _, ok := streams.Lookup(name); !ok {
			return nil, errors.E(op, errors.KindBadInput, fmt.Errorf("unknown stream %q", name))
		}
	}
	var selected []streams.Stream
	linq.From(all).
		Where(func(s interface{}) bool {
			return linq.From(names).Contains(s.(streams.Stream).Name)
		}).
		ToSlice(&selected)
	return selected, nil
}
