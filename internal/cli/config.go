package cli

import (
	"fmt"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"
)

func newConfigCmd(cctx *context) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "config",
		Short: "Render the effective launch manifest",
		RunE: func(cmd *cobra.Command, args []string) error {
			manifest, source, err := cctx.loadManifest()
			if err != nil {
				return err
			}
			rendered, err := yaml.Marshal(manifest)
			if err != nil {
				return fmt.Errorf("render manifest: %w", err)
			}
			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "# source: %s\n", source)
			fmt.Fprintf(out, "%s", rendered)
			return nil
		},
	}
	return cmd
}
