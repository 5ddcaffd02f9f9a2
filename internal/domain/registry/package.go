package registry

import (
	"fmt"
	"sort"
	"strings"

	"github.com/okian/semstat/internal/domain/derivation"
	"github.com/okian/semstat/internal/domain/stat"
)

// Package is an independently registered bundle of definitions and derivation
// capabilities. It is immutable once built.
type Package struct {
	id       string
	defs     []*stat.Definition
	defIndex map[string]int
	caps     []*derivation.Capability
}

// NewPackage validates the bundle. Definitions and capabilities must already be
// constructed (and therefore valid) on their own; NewPackage checks the bundle-level
// rules: unique ids, and capabilities targeting a definition of this package only
// write axes that definition declares.
func NewPackage(id string, defs []*stat.Definition, caps []*derivation.Capability) (*Package, error) {
	id = strings.TrimSpace(id)
	if id == "" {
		return nil, ErrEmptyPackageID
	}
	p := &Package{
		id:       id,
		defs:     make([]*stat.Definition, 0, len(defs)),
		defIndex: make(map[string]int, len(defs)),
		caps:     make([]*derivation.Capability, 0, len(caps)),
	}
	for _, d := range defs {
		if d == nil {
			return nil, fmt.Errorf("%w: package %q", ErrNilDefinition, id)
		}
		if _, dup := p.defIndex[d.ID()]; dup {
			return nil, fmt.Errorf("%w: package %q definition %q", ErrDuplicateDefinition, id, d.ID())
		}
		p.defIndex[d.ID()] = len(p.defs)
		p.defs = append(p.defs, d)
	}

	seen := make(map[string]struct{}, len(caps))
	for _, c := range caps {
		if c == nil {
			return nil, fmt.Errorf("%w: package %q", ErrNilCapability, id)
		}
		if _, dup := seen[c.ID]; dup {
			return nil, fmt.Errorf("%w: package %q capability %q", ErrDuplicateCapability, id, c.ID)
		}
		seen[c.ID] = struct{}{}
		if target, ok := p.Definition(c.ToDefinition); ok {
			if err := checkOutputs(c, target); err != nil {
				return nil, fmt.Errorf("package %q: %w", id, err)
			}
		}
		p.caps = append(p.caps, c)
	}
	return p, nil
}

func checkOutputs(c *derivation.Capability, target *stat.Definition) error {
	for _, f := range c.Formulas {
		if !target.HasAxis(f.OutputAxis) {
			return fmt.Errorf("%w: capability %q axis %q", ErrUnknownOutputAxis, c.ID, f.OutputAxis)
		}
	}
	return nil
}

// ID returns the package id.
func (p *Package) ID() string { return p.id }

// Definitions returns the definitions in declaration order.
func (p *Package) Definitions() []*stat.Definition {
	out := make([]*stat.Definition, len(p.defs))
	copy(out, p.defs)
	return out
}

// Definition looks up a definition by id.
func (p *Package) Definition(id string) (*stat.Definition, bool) {
	i, ok := p.defIndex[id]
	if !ok {
		return nil, false
	}
	return p.defs[i], true
}

// Capabilities returns the capabilities in declaration order.
func (p *Package) Capabilities() []*derivation.Capability {
	out := make([]*derivation.Capability, len(p.caps))
	copy(out, p.caps)
	return out
}

// SemanticTypes returns the semantic types advertised by the package's axes, sorted.
func (p *Package) SemanticTypes() []string {
	set := make(map[string]struct{})
	for _, d := range p.defs {
		for _, t := range d.SemanticTypes() {
			set[t] = struct{}{}
		}
	}
	out := make([]string, 0, len(set))
	for t := range set {
		out = append(out, t)
	}
	sort.Strings(out)
	return out
}

// withDefinition returns a copy of p with one definition replaced.
func (p *Package) withDefinition(d *stat.Definition) (*Package, error) {
	defs := p.Definitions()
	defs[p.defIndex[d.ID()]] = d
	return NewPackage(p.id, defs, p.caps)
}
