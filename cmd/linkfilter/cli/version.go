package cli

import (
	"fmt"
	"runtime"

	"github.com/spf13/cobra"
)

// VersionInfo is injected at build time
type VersionInfo struct {
	Version string
	Commit  string
}

func (info VersionInfo) String() string {
	return fmt.Sprintf("%s.%s", info.Version, info.Commit)
}

func NewVersionCommand(info VersionInfo) *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print the version information",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			_, err := fmt.Fprintf(cmd.OutOrStdout(), "linkfilter %s (%s %s/%s)\n",
				info, runtime.Version(), runtime.GOOS, runtime.GOARCH)
			return err
		},
	}
}
