package commands

import (
	"bytes"
	"os"

	"github.com/spf13/afero"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	tap "github.com/tapstack/tap-tableau"
	"github.com/tapstack/tap-tableau/internal/errors"
	"github.com/tapstack/tap-tableau/pkg/singer"
	"github.com/tapstack/tap-tableau/pkg/streams"
)

// NewDiscoverCmd returns the discover command
func NewDiscoverCmd(ec *tap.ExecutionContext) *cobra.Command {
	opts := &discoverOptions{
		EC: ec,
	}
	discoverCmd := &cobra.Command{
		Use:          "discover",
		Short:        "Write the stream catalog as a JSON document",
		Long:         "Writes the catalog of every known stream: name, key properties and the declared record schema. The catalog describes what extract will emit; it does not contact the server.",
		SilenceUsage: true,
		PreRunE: func(cmd *cobra.Command, args []string) error {
			ec.Viper = viper.New()
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

	discoverCmd.Flags().StringVarP(&opts.Output, "output", "o", "", "file to write the catalog to (default: stdout)")
	return discoverCmd
}

type discoverOptions struct {
	EC *tap.ExecutionContext

	Output string
}

func (o *discoverOptions) run() error {
	var op errors.Op = "commands.discoverOptions.run"
	catalog := singer.Catalog{}
	for _, stream := range streams.All() {
		catalog.Streams = append(catalog.Streams, singer.CatalogEntry{
			Stream:        stream.Name,
			TapStreamID:   stream.Name,
			KeyProperties: stream.PrimaryKeys,
			Schema:        stream.Schema.Document(),
		})
	}

	if o.Output == "" {
		if err := singer.WriteCatalog(os.Stdout, catalog); err != nil {
			return errors.E(op, err)
		}
		return nil
	}

	var buf bytes.Buffer
	if err := singer.WriteCatalog(&buf, catalog); err != nil {
		return errors.E(op, err)
	}
	if err := afero.WriteFile(o.EC.Fs, o.Output, buf.Bytes(), 0644); err != nil {
		return errors.E(op, err)
	}
	o.EC.Logger.Infof("catalog written to %s", o.Output)
	return nil
}
