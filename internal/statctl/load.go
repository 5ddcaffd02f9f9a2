package statctl

import (
	"fmt"

	"github.com/okian/semstat/internal/loadtest"
	"github.com/spf13/cobra"
)

func newLoadCmd(g *globalFlags) *cobra.Command {
	cfg := loadtest.DefaultConfig()
	cmd := &cobra.Command{
		Use:   "load",
		Short: "Send generated batch requests to a running server",
		Long: "load posts generated derivation requests to /compute/batch and, unless\n" +
			"--verify=false, compares every result with the in-process engine built\n" +
			"from the same package flags.",
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			l, err := g.logger(cmd)
			if err != nil {
				return err
			}
			var verifier loadtest.Verifier
			if cfg.Verify {
				svc, err := g.service(cmd)
				if err != nil {
					return err
				}
				defer svc.Stop()
				verifier = svc
			}
			stats, err := loadtest.Run(commandContext(cmd), cfg, verifier, l)
			fmt.Fprintf(cmd.OutOrStdout(),
				"requests=%d batches=%d succeeded=%d failed=%d mismatched=%d duration=%s rps=%.1f\n",
				stats.Generated, stats.Batches, stats.Succeeded, stats.Failed, stats.Mismatched,
				stats.Duration, stats.RequestsPerSecond())
			return err
		},
	}
	f := cmd.Flags()
	f.StringVar(&cfg.BaseURL, "url", cfg.BaseURL, "Base URL of the service")
	f.IntVar(&cfg.Requests, "requests", cfg.Requests, "Number of requests to generate")
	f.IntVar(&cfg.BatchSize, "batch-size", cfg.BatchSize, "Requests per batch call")
	f.IntVar(&cfg.Workers, "workers", cfg.Workers, "Concurrent batch calls")
	f.DurationVar(&cfg.Timeout, "timeout", cfg.Timeout, "HTTP request timeout")
	f.Int64Var(&cfg.Seed, "seed", cfg.Seed, "Generator seed")
	f.BoolVar(&cfg.Verify, "verify", cfg.Verify, "Compare results with the local engine")
	f.StringVar(&cfg.OutputFile, "output", "", "Write generated requests to this JSON file")
	return cmd
}
