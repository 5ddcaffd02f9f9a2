package registry

import (
	"sort"

	"github.com/okian/semstat/internal/domain/derivation"
	"github.com/okian/semstat/internal/domain/stat"
)

// View is an immutable snapshot of the registry.
type View struct {
	version uint64
	order   []string
	byID    map[string]*Package
}

// AxisRef locates one axis advertising a semantic type.
type AxisRef struct {
	PackageID    string
	DefinitionID string
	Axis         stat.Axis
}

// Applicable is a derivation cleared to run, with the package declaring it.
type Applicable struct {
	PackageID  string
	Capability *derivation.Capability
}

func (v *View) clone() *View {
	n := &View{
		version: v.version,
		order:   make([]string, len(v.order)),
		byID:    make(map[string]*Package, len(v.byID)),
	}
	copy(n.order, v.order)
	for k, p := range v.byID {
		n.byID[k] = p
	}
	return n
}

// definitionOwner finds a package other than p that declares one of p's
// definitions. Packages are checked in registration order.
func (v *View) definitionOwner(p *Package) (owner, defID string, taken bool) {
	for _, pid := range v.order {
		if pid == p.id {
			continue
		}
		other := v.byID[pid]
		for _, d := range p.defs {
			if _, ok := other.defIndex[d.ID()]; ok {
				return pid, d.ID(), true
			}
		}
	}
	return "", "", false
}

// Version of this snapshot.
func (v *View) Version() uint64 { return v.version }

// Package returns a package by id.
func (v *View) Package(id string) (*Package, bool) {
	p, ok := v.byID[id]
	return p, ok
}

// Packages returns every package in registration order.
func (v *View) Packages() []*Package {
	out := make([]*Package, 0, len(v.order))
	for _, id := range v.order {
		out = append(out, v.byID[id])
	}
	return out
}

// active returns the requested packages in registration order. An empty
// selection means every package; unknown ids are ignored.
func (v *View) active(packageIDs []string) []*Package {
	if len(packageIDs) == 0 {
		return v.Packages()
	}
	want := make(map[string]struct{}, len(packageIDs))
	for _, id := range packageIDs {
		want[id] = struct{}{}
	}
	out := make([]*Package, 0, len(packageIDs))
	for _, id := range v.order {
		if _, ok := want[id]; ok {
			out = append(out, v.byID[id])
		}
	}
	return out
}

// SemanticTypes returns the union of semantic types across the active packages.
func (v *View) SemanticTypes(packageIDs []string) map[string]struct{} {
	set := make(map[string]struct{})
	for _, p := range v.active(packageIDs) {
		for _, t := range p.SemanticTypes() {
			set[t] = struct{}{}
		}
	}
	return set
}

// AxesBySemanticType lists every axis carrying semanticType across the active
// packages. Order is package registration, then definition, then axis
// declaration, so First-style strategies are reproducible.
func (v *View) AxesBySemanticType(semanticType string, packageIDs []string) []AxisRef {
	var out []AxisRef
	for _, p := range v.active(packageIDs) {
		for _, d := range p.defs {
			for _, a := range d.Axes() {
				if a.SemanticType == semanticType {
					out = append(out, AxisRef{PackageID: p.id, DefinitionID: d.ID(), Axis: a})
				}
			}
		}
	}
	return out
}

// Capabilities returns every capability of the active packages, in package then
// declaration order, regardless of applicability.
func (v *View) Capabilities(packageIDs []string) []Applicable {
	var out []Applicable
	for _, p := range v.active(packageIDs) {
		for _, c := range p.caps {
			out = append(out, Applicable{PackageID: p.id, Capability: c})
		}
	}
	return out
}

// ApplicableDerivations returns the capabilities that are enabled by default,
// not excluded, and whose required semantic types are all available among the
// active packages. The result is sorted by ascending priority; equal
// priorities keep package then declaration order.
func (v *View) ApplicableDerivations(packageIDs, excluded []string) []Applicable {
	available := v.SemanticTypes(packageIDs)
	skip := make(map[string]struct{}, len(excluded))
	for _, id := range excluded {
		skip[id] = struct{}{}
	}
	var out []Applicable
	for _, a := range v.Capabilities(packageIDs) {
		c := a.Capability
		if !c.EnabledByDefault {
			continue
		}
		if _, ok := skip[c.ID]; ok {
			continue
		}
		if len(c.MissingTypes(available)) > 0 {
			continue
		}
		out = append(out, a)
	}
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].Capability.Priority < out[j].Capability.Priority
	})
	return out
}

// Definition finds a definition among the active packages. The earliest
// registered package declaring it wins.
func (v *View) Definition(defID string, packageIDs []string) (*stat.Definition, bool) {
	for _, p := range v.active(packageIDs) {
		if d, ok := p.Definition(defID); ok {
			return d, true
		}
	}
	return nil, false
}

func sortedKeys[V any](m map[string]V) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
