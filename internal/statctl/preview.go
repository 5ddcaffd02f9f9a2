package statctl

import (
	"fmt"
	"strings"

	"github.com/okian/semstat/internal/domain/engine"
	"github.com/spf13/cobra"
)

func newNormalizeCmd(g *globalFlags) *cobra.Command {
	return &cobra.Command{
		Use:     "normalize DEFINITION [axis=value ...]",
		Short:   "Clamp values and compute tiers and level for one definition",
		Example: "  statctl normalize relationships affinity=65 trust=50",
		Args:    cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			values := make(map[string]float64, len(args)-1)
			for _, a := range args[1:] {
				k, v, err := parseAssignment(a)
				if err != nil {
					return err
				}
				values[k] = v
			}

			svc, err := g.service(cmd)
			if err != nil {
				return err
			}
			defer svc.Stop()

			res, err := svc.Normalize(commandContext(cmd), args[0], values, nil)
			if err != nil {
				return err
			}
			return writeJSON(cmd.OutOrStdout(), res.Flatten())
		},
	}
}

func newDeriveCmd(g *globalFlags) *cobra.Command {
	var req engine.Request
	cmd := &cobra.Command{
		Use:   "derive [definition.axis=value ...]",
		Short: "Run one derivation pass and print derived values and diagnostics",
		Example: "  statctl derive relationships.affinity=80 relationships.chemistry=60\n" +
			"  statctl derive --already-computed mood",
		RunE: func(cmd *cobra.Command, args []string) error {
			req.StatValues = make(map[string]map[string]float64)
			for _, a := range args {
				k, v, err := parseAssignment(a)
				if err != nil {
					return err
				}
				def, axis, ok := strings.Cut(k, ".")
				if !ok || def == "" || axis == "" {
					return fmt.Errorf("%w: %q: want definition.axis=value", ErrBadAssignment, a)
				}
				if req.StatValues[def] == nil {
					req.StatValues[def] = make(map[string]float64)
				}
				req.StatValues[def][axis] = v
			}

			svc, err := g.service(cmd)
			if err != nil {
				return err
			}
			defer svc.Stop()

			res, err := svc.ComputeDerivations(commandContext(cmd), req)
			if err != nil {
				return err
			}
			return writeJSON(cmd.OutOrStdout(), res)
		},
	}
	cmd.Flags().StringSliceVar(&req.Excluded, "exclude", nil, "Capability ids to skip")
	cmd.Flags().StringSliceVar(&req.AlreadyComputed, "already-computed", nil, "Definition ids to treat as known")
	return cmd
}
