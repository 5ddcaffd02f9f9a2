// Package statctl implements the statctl command line: inspect packages,
// preview normalization and derivation locally, and load-test a server.
package statctl

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"strconv"
	"strings"

	service "github.com/okian/semstat/internal/app"
	"github.com/okian/semstat/pkg/logger"
	"github.com/spf13/cobra"
)

type globalFlags struct {
	packageFiles []string
	worldConfig  string
	noBuiltins   bool
	packageIDs   []string
	logLevel     string
	logFormat    string
}

// NewRootCommand builds the statctl command tree.
func NewRootCommand(version string) *cobra.Command {
	g := &globalFlags{}
	root := &cobra.Command{
		Use:   "statctl",
		Short: "Inspect stat packages and preview derivations",
		Long: "statctl loads the builtin and file stat packages into an in-process engine\n" +
			"to normalize values and run derivations, or drives a running server.",
		Version:       version,
		SilenceUsage:  true,
		SilenceErrors: true,
		CompletionOptions: cobra.CompletionOptions{
			HiddenDefaultCmd: true,
		},
	}

	f := root.PersistentFlags()
	f.StringSliceVar(&g.packageFiles, "package-file", nil, "YAML package file to register (repeatable)")
	f.StringVar(&g.worldConfig, "world-config", "", "YAML world override file")
	f.BoolVar(&g.noBuiltins, "no-builtins", false, "Do not register the builtin packages")
	f.StringSliceVar(&g.packageIDs, "packages", nil, "Package ids to compute with (default all)")
	f.StringVar(&g.logLevel, "log-level", "warn", "Log level: debug, info, warn, error")
	f.StringVar(&g.logFormat, "log-format", logger.FormatText, "Log format: text or json")

	root.AddCommand(
		newPackagesCmd(g),
		newNormalizeCmd(g),
		newDeriveCmd(g),
		newValidateCmd(g),
		newLoadCmd(g),
	)
	return root
}

// logger writes to the command's stderr at the configured level.
func (g *globalFlags) logger(cmd *cobra.Command) (logger.Logger, error) {
	l, err := logger.New(logger.WithFormat(g.logFormat), logger.WithOutput(cmd.ErrOrStderr()), logger.WithSource(false))
	if err != nil {
		return nil, err
	}
	if err := logger.SetLevelString(g.logLevel); err != nil {
		return nil, err
	}
	return l, nil
}

// service starts an in-process service with the configured packages.
func (g *globalFlags) service(cmd *cobra.Command, extraFiles ...string) (*service.Service, error) {
	l, err := g.logger(cmd)
	if err != nil {
		return nil, err
	}
	files := append(append([]string(nil), g.packageFiles...), extraFiles...)
	svc := service.New(
		service.WithLogger(l),
		service.WithBuiltinPackages(!g.noBuiltins),
		service.WithPackageFiles(files),
		service.WithWorldConfig(g.worldConfig),
		service.WithDefaultPackageIDs(g.packageIDs),
	)
	if err := svc.Start(commandContext(cmd)); err != nil {
		return nil, err
	}
	return svc, nil
}

func commandContext(cmd *cobra.Command) context.Context {
	if ctx := cmd.Context(); ctx != nil {
		return ctx
	}
	return context.Background()
}

func writeJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

// parseAssignment splits "key=value" into key and a float value.
func parseAssignment(arg string) (string, float64, error) {
	key, raw, ok := strings.Cut(arg, "=")
	key = strings.TrimSpace(key)
	if !ok || key == "" {
		return "", 0, fmt.Errorf("%w: %q: want key=value", ErrBadAssignment, arg)
	}
	v, err := strconv.ParseFloat(strings.TrimSpace(raw), 64)
	if err != nil {
		return "", 0, fmt.Errorf("%w: %q: %v", ErrBadAssignment, arg, err)
	}
	return key, v, nil
}
