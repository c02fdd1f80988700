package requestor

import (
	"github.com/spf13/cobra"

	"github.com/yagna-labs/zksync-requestor/pkg/telemetry"
)

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print the version of the requestor",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cmd.Println(telemetry.Version)
			return nil
		},
	}
}
