package commands

import (
	"os"
	"strings"

	"github.com/fatih/color"
	"github.com/olekukonko/tablewriter"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	tap "github.com/tapstack/tap-tableau"
	"github.com/tapstack/tap-tableau/pkg/streams"
)

// NewStreamsCmd returns the streams command
func NewStreamsCmd(ec *tap.ExecutionContext) *cobra.Command {
	streamsCmd := &cobra.Command{
		Use:          "streams",
		Short:        "List the streams this tap can extract",
		SilenceUsage: true,
		PreRunE: func(cmd *cobra.Command, args []string) error {
			ec.Viper = viper.New()
			return nil
		},
		Run: func(cmd *cobra.Command, args []string) {
			printStreamsTable(ec)
		},
	}
	return streamsCmd
}

func printStreamsTable(ec *tap.ExecutionContext) {
	headers := []string{"NAME", "SOURCE", "KEY PROPERTIES"}
	if ec.IsTerminal && !ec.NoColor {
		bold := color.New(color.Bold)
		for i, h := range headers {
			headers[i] = bold.Sprint(h)
		}
	}

	table := tablewriter.NewWriter(os.Stdout)
	table.SetHeaderAlignment(tablewriter.ALIGN_LEFT)
	table.SetAlignment(tablewriter.ALIGN_LEFT)
	table.SetAutoFormatHeaders(false)
	table.SetBorder(false)
	table.SetRowSeparator("")
	table.SetColumnSeparator("")
	table.SetCenterSeparator("")
	table.SetHeader(headers)

	for _, stream := range streams.All() {
		table.Append([]string{
			stream.Name,
			string(stream.Source),
			strings.Join(stream.PrimaryKeys, ", "),
		})
	}
	table.Render()
}
