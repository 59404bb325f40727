// Package services lists the bundled services.
package services

import (
	"fmt"
	"io"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/crmarques/liveops/internal/cli/common"
	"github.com/crmarques/liveops/service"
)

func NewCommand(deps common.CommandDependencies, globalFlags *common.GlobalFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "services",
		Short: "List the services deploy and fetch can run",
		Args:  cobra.NoArgs,
		RunE: func(command *cobra.Command, _ []string) error {
			infos := deps.Services
			if infos == nil {
				infos = []service.Info{}
			}
			return common.WriteOutput(command, common.OutputFormat(globalFlags), infos, renderServices)
		},
	}
}

func renderServices(w io.Writer, infos []service.Info) error {
	table := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	if _, err := fmt.Fprintln(table, "NAME\tTYPE\tEXTENSION"); err != nil {
		return err
	}
	for _, info := range infos {
		if _, err := fmt.Fprintf(table, "%s\t%s\t%s\n", info.Name, info.DisplayName, info.Extension); err != nil {
			return err
		}
	}
	return table.Flush()
}
