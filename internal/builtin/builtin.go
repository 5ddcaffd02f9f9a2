// Package builtin ships the stat packages every deployment starts with:
// relationships, personality (Big Five) and mood. Mood derives itself from
// whatever positive_sentiment and arousal_source axes the other packages
// provide.
package builtin

import (
	"context"
	"embed"
	"fmt"
	"path"

	"github.com/okian/semstat/internal/adapters/catalog"
	"github.com/okian/semstat/internal/domain/registry"
)

// Package ids.
const (
	RelationshipsID = "relationships_pkg"
	PersonalityID   = "personality_pkg"
	MoodID          = "mood_pkg"
)

//go:embed packages/*.yaml
var files embed.FS

// order fixes registration order, which decides First-strategy picks.
var order = []string{"relationships.yaml", "personality.yaml", "mood.yaml"}

// Packages parses the builtin packages in registration order.
func Packages() ([]*registry.Package, error) {
	out := make([]*registry.Package, 0, len(order))
	for _, name := range order {
		raw, err := files.ReadFile(path.Join("packages", name))
		if err != nil {
			return nil, err
		}
		p, err := catalog.ParsePackage(raw)
		if err != nil {
			return nil, fmt.Errorf("builtin %s: %w", name, err)
		}
		out = append(out, p)
	}
	return out, nil
}

// Register adds every builtin package to reg.
func Register(ctx context.Context, reg *registry.Registry) error {
	pkgs, err := Packages()
	if err != nil {
		return err
	}
	for _, p := range pkgs {
		if err := reg.Register(ctx, p); err != nil {
			return err
		}
	}
	return nil
}
