package commands

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/teranos/chrono/display"
	"github.com/teranos/chrono/version"
)

// VersionCmd prints build information
var VersionCmd = &cobra.Command{
	Use:   "version",
	Short: "Show chrono version information",
	Long:  `Display version, build time, commit hash, and platform information for the chrono binary.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		format, err := display.FormatFromCommand(cmd)
		if err != nil {
			return err
		}
		info := version.Get()
		if format != display.FormatText {
			return display.Encode(cmd.OutOrStdout(), info, format)
		}
		w := cmd.OutOrStdout()
		fmt.Fprintln(w, info.String())
		fmt.Fprintf(w, "Platform: %s\n", info.Platform)
		fmt.Fprintf(w, "Go: %s\n", info.GoVersion)
		return nil
	},
}

func init() {
	VersionCmd.Flags().String("format", "text", "Output format: text, json, yaml")
}
