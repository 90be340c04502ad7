package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/groundctl/groundctl/internal/engine"
)

func newCheckCmd(cctx *context) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "check",
		Short: "Verify required files without launching anything",
		RunE: func(cmd *cobra.Command, args []string) error {
			manifest, source, err := cctx.loadManifest()
			if err != nil {
				return err
			}
			if err := engine.Preflight(cmd.Context(), manifest.Launch.ResolvedWorkdir,
				manifest.Requires, engine.PreflightOptions{}); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Launch %s (%s): all %d required files present\n",
				manifest.Launch.Name, source, len(manifest.Requires))
			return nil
		},
	}
	return cmd
}
