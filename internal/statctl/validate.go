package statctl

import (
	"fmt"

	"github.com/okian/semstat/internal/adapters/catalog"
	"github.com/spf13/cobra"
)

func newValidateCmd(g *globalFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "validate FILE...",
		Short: "Check package files against the schema and register them together",
		Long: "validate parses each package file, then registers all of them after the\n" +
			"builtins and applies --world-config, reporting the first failure.",
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			out := cmd.OutOrStdout()
			for _, path := range args {
				p, err := catalog.LoadPackage(path)
				if err != nil {
					return err
				}
				fmt.Fprintf(out, "ok   %s (%s: %d definitions, %d capabilities)\n",
					path, p.ID(), len(p.Definitions()), len(p.Capabilities()))
			}
			svc, err := g.service(cmd, args...)
			if err != nil {
				return err
			}
			svc.Stop()
			fmt.Fprintf(out, "ok   %d packages register together\n", len(svc.Packages()))
			return nil
		},
	}
}
