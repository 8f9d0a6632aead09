package cmd

import (
	"fmt"

	"github.com/spf13/cobra"
)

var capabilitiesCmd = &cobra.Command{
	Use:   "capabilities",
	Short: "List capabilities modules can bind to",
	Args:  cobra.NoArgs,
	RunE:  runCapabilities,
}

func init() {
	rootCmd.AddCommand(capabilitiesCmd)
}

func runCapabilities(cmd *cobra.Command, args []string) error {
	rt, err := newRuntime(cmd)
	if err != nil {
		return err
	}
	defer func() { _ = rt.Close() }()

	out := cmd.OutOrStdout()
	p := paletteFor(out)
	for _, name := range rt.registry.Names() {
		fmt.Fprintln(out, p.name.Render(name))
	}
	return nil
}
