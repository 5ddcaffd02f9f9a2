package engine_test

import (
	"context"
	"errors"
	"math"
	"sync"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/okian/semstat/internal/builtin"
	"github.com/okian/semstat/internal/domain/derivation"
	"github.com/okian/semstat/internal/domain/engine"
	"github.com/okian/semstat/internal/domain/registry"
	"github.com/okian/semstat/internal/domain/stat"
	. "github.com/smartystreets/goconvey/convey"
)

var valueCmp = cmp.AllowUnexported(stat.Value{})

func builtinEngine(t *testing.T) *engine.Engine {
	t.Helper()
	reg := registry.New()
	if err := builtin.Register(context.Background(), reg); err != nil {
		t.Fatalf("register builtins: %v", err)
	}
	return engine.New(reg)
}

func num(t *testing.T, out map[string]stat.Value, key string) float64 {
	t.Helper()
	f, ok := out[key].Float()
	if !ok {
		t.Fatalf("%s is not numeric: %v", key, out[key])
	}
	return f
}

func label(out map[string]stat.Value, key string) string {
	s, _ := out[key].Text()
	return s
}

func reasons(ds []engine.Diagnostic) []engine.Reason {
	out := make([]engine.Reason, 0, len(ds))
	for _, d := range ds {
		out = append(out, d.Reason)
	}
	return out
}

type fixture struct {
	t   *testing.T
	reg *registry.Registry
}

func newFixture(t *testing.T) *fixture {
	return &fixture{t: t, reg: registry.New()}
}

func (f *fixture) add(id string, defs []*stat.Definition, caps ...derivation.Capability) {
	f.t.Helper()
	var built []*derivation.Capability
	for _, c := range caps {
		nc, err := derivation.NewCapability(c)
		if err != nil {
			f.t.Fatalf("capability %s: %v", c.ID, err)
		}
		built = append(built, nc)
	}
	p, err := registry.NewPackage(id, defs, built)
	if err != nil {
		f.t.Fatalf("package %s: %v", id, err)
	}
	if err := f.reg.Register(context.Background(), p); err != nil {
		f.t.Fatalf("register %s: %v", id, err)
	}
}

func (f *fixture) def(id string, axes ...stat.Axis) *stat.Definition {
	f.t.Helper()
	d, err := stat.NewDefinition(id, axes, nil, nil)
	if err != nil {
		f.t.Fatalf("definition %s: %v", id, err)
	}
	return d
}

func TestCompute_Combination(t *testing.T) {
	ctx := context.Background()

	Convey("Given two positive_sentiment axes weighted 1 and 3", t, func() {
		f := newFixture(t)
		f.add("src_pkg", []*stat.Definition{f.def("src",
			stat.Axis{Name: "a", MaxValue: 100, SemanticType: "positive_sentiment", SemanticWeight: 1},
			stat.Axis{Name: "b", MaxValue: 100, SemanticType: "positive_sentiment", SemanticWeight: 3},
		)})
		f.add("out_pkg", []*stat.Definition{f.def("out", stat.Axis{Name: "v", MaxValue: 100})},
			derivation.Capability{
				ID: "out_from_src", FromSemanticTypes: []string{"positive_sentiment"}, ToDefinition: "out",
				EnabledByDefault: true,
				Formulas: []derivation.Formula{{
					OutputAxis: "v",
					Sources:    []derivation.Source{{Key: "pos", SemanticType: "positive_sentiment"}},
				}},
			})
		e := engine.New(f.reg)

		Convey("When values 40 and 80 are known", func() {
			res := e.Compute(ctx, engine.Request{StatValues: map[string]map[string]float64{"src": {"a": 40, "b": 80}}})

			Convey("Then the weighted average is 70", func() {
				So(num(t, res.Derived["out"], "v"), ShouldEqual, 70)
				So(res.Diagnostics, ShouldBeEmpty)
			})
		})

		Convey("When only one axis has a value", func() {
			res := e.Compute(ctx, engine.Request{StatValues: map[string]map[string]float64{"src": {"b": 80}}})

			Convey("Then only concrete values take part", func() {
				So(num(t, res.Derived["out"], "v"), ShouldEqual, 80)
			})
		})

		Convey("When a value is NaN", func() {
			res := e.Compute(ctx, engine.Request{StatValues: map[string]map[string]float64{"src": {"a": math.NaN(), "b": 20}}})

			Convey("Then it is ignored", func() {
				So(num(t, res.Derived["out"], "v"), ShouldEqual, 20)
			})
		})
	})
}

func TestCompute_ZeroSemanticWeight(t *testing.T) {
	Convey("Given positive_sentiment axes weighted 0 and 1", t, func() {
		f := newFixture(t)
		f.add("src_pkg", []*stat.Definition{f.def("src",
			stat.Axis{Name: "a", MaxValue: 100, SemanticType: "positive_sentiment", SemanticWeight: 0},
			stat.Axis{Name: "b", MaxValue: 100, SemanticType: "positive_sentiment", SemanticWeight: 1},
		)})
		f.add("out_pkg", []*stat.Definition{f.def("out", stat.Axis{Name: "v", MaxValue: 100})},
			derivation.Capability{
				ID: "out_from_src", FromSemanticTypes: []string{"positive_sentiment"}, ToDefinition: "out",
				EnabledByDefault: true,
				Formulas: []derivation.Formula{{
					OutputAxis:  "v",
					Sources:     []derivation.Source{{Key: "pos", SemanticType: "positive_sentiment"}},
					MultiSource: derivation.WeightedAvg,
					Transform:   derivation.WeightedAvg,
				}},
			})
		e := engine.New(f.reg)

		Convey("When values 40 and 80 are known", func() {
			res := e.Compute(context.Background(), engine.Request{StatValues: map[string]map[string]float64{"src": {"a": 40, "b": 80}}})

			Convey("Then the zero-weight axis does not pull the average", func() {
				So(num(t, res.Derived["out"], "v"), ShouldEqual, 80)
			})
		})

		Convey("When only the zero-weight axis has a value", func() {
			res := e.Compute(context.Background(), engine.Request{StatValues: map[string]map[string]float64{"src": {"a": 40}}})

			Convey("Then its plain value is used", func() {
				So(num(t, res.Derived["out"], "v"), ShouldEqual, 40)
			})
		})
	})
}

func TestCompute_SharedDefinitionCountedOnce(t *testing.T) {
	Convey("Given a sum over the axes of a registered definition", t, func() {
		f := newFixture(t)
		f.add("rel_pkg", []*stat.Definition{f.def("rel", stat.Axis{Name: "x", MaxValue: 100, SemanticType: "s"})})
		f.add("out_pkg", []*stat.Definition{f.def("out", stat.Axis{Name: "v", MaxValue: 100})},
			derivation.Capability{
				ID: "total", FromSemanticTypes: []string{"s"}, ToDefinition: "out", EnabledByDefault: true,
				Formulas: []derivation.Formula{{
					OutputAxis: "v", Sources: []derivation.Source{{Key: "k", SemanticType: "s"}},
					MultiSource: derivation.Sum, Transform: derivation.Sum,
				}},
			})

		Convey("When a second package tries to declare the same definition", func() {
			p, err := registry.NewPackage("rel_copy_pkg", []*stat.Definition{f.def("rel", stat.Axis{Name: "x", MaxValue: 100, SemanticType: "s"})}, nil)
			So(err, ShouldBeNil)
			So(errors.Is(f.reg.Register(context.Background(), p), registry.ErrDefinitionOwned), ShouldBeTrue)

			Convey("Then the supplied value is summed once", func() {
				res := engine.New(f.reg).Compute(context.Background(), engine.Request{StatValues: map[string]map[string]float64{"rel": {"x": 30}}})
				So(num(t, res.Derived["out"], "v"), ShouldEqual, 30)
			})
		})
	})
}

func TestCompute_FormulaShape(t *testing.T) {
	Convey("Given a formula over two keys with weights, offset and normalize", t, func() {
		f := newFixture(t)
		f.add("src_pkg", []*stat.Definition{f.def("src",
			stat.Axis{Name: "x1", MaxValue: 100, SemanticType: "t1"},
			stat.Axis{Name: "x2", MaxValue: 100, SemanticType: "t1"},
			stat.Axis{Name: "y", MaxValue: 100, SemanticType: "t2"},
		)})
		formula := derivation.Formula{
			OutputAxis:  "v",
			Sources:     []derivation.Source{{Key: "a", SemanticType: "t1"}, {Key: "b", SemanticType: "t2"}},
			Weights:     map[string]float64{"a": 2, "b": 0.5},
			MultiSource: derivation.Max,
			Transform:   derivation.Sum,
			Offset:      10,
		}
		build := func(fm derivation.Formula) *engine.Engine {
			f.add("out_pkg", []*stat.Definition{f.def("out", stat.Axis{Name: "v", MinValue: -1000, MaxValue: 1000})},
				derivation.Capability{ID: "c", ToDefinition: "out", EnabledByDefault: true, Formulas: []derivation.Formula{fm}})
			return engine.New(f.reg)
		}
		in := map[string]map[string]float64{"src": {"x1": 30, "x2": 10, "y": 40}}

		Convey("Then per-key values are scaled by weight, summed and offset", func() {
			res := build(formula).Compute(context.Background(), engine.Request{StatValues: in})
			// max(30,10)*2 + 40*0.5 + 10
			So(num(t, res.Derived["out"], "v"), ShouldEqual, 90)
		})

		Convey("Then normalize clamps to [0, 100]", func() {
			formula.Offset = 50
			formula.Normalize = true
			res := build(formula).Compute(context.Background(), engine.Request{StatValues: in})
			So(num(t, res.Derived["out"], "v"), ShouldEqual, 100)
		})

		Convey("Then weighted_avg across keys divides by the key weights", func() {
			formula.Transform = derivation.WeightedAvg
			formula.Offset = 0
			res := build(formula).Compute(context.Background(), engine.Request{StatValues: in})
			// (30*2 + 40*0.5) / 2.5
			So(num(t, res.Derived["out"], "v"), ShouldEqual, 32)
		})

		Convey("Then a key with no axes abandons the formula to the axis default", func() {
			formula.Sources = append(formula.Sources, derivation.Source{Key: "c", SemanticType: "t3"})
			res := build(formula).Compute(context.Background(), engine.Request{StatValues: in})
			So(num(t, res.Derived["out"], "v"), ShouldEqual, 0)
			So(reasons(res.Diagnostics), ShouldResemble, []engine.Reason{engine.ReasonFormulaFallback})
			So(res.Diagnostics[0].Axis, ShouldEqual, "v")
			So(res.Diagnostics[0].Detail, ShouldContainSubstring, "t3")
		})
	})
}

func TestCompute_Builtins(t *testing.T) {
	ctx := context.Background()

	Convey("Given the builtin packages", t, func() {
		e := builtinEngine(t)

		Convey("When nothing is known and only the mood package is active", func() {
			res := e.Compute(ctx, engine.Request{PackageIDs: []string{builtin.MoodID}})

			Convey("Then mood falls back to defaults and is labelled neutral", func() {
				mood := res.Derived["mood"]
				So(num(t, mood, "valence"), ShouldEqual, 50)
				So(num(t, mood, "arousal"), ShouldEqual, 50)
				So(label(mood, "label"), ShouldEqual, "neutral")
				So(label(mood, "valenceTierId"), ShouldEqual, "neutral")
				So(reasons(res.Diagnostics), ShouldResemble, []engine.Reason{engine.ReasonFormulaFallback, engine.ReasonFormulaFallback})
			})
		})

		Convey("When relationship values are known", func() {
			res := e.Compute(ctx, engine.Request{StatValues: map[string]map[string]float64{
				"relationships": {"affinity": 80, "chemistry": 60},
			}})

			Convey("Then mood follows them", func() {
				mood := res.Derived["mood"]
				So(num(t, mood, "valence"), ShouldEqual, 80)
				So(num(t, mood, "arousal"), ShouldEqual, 60)
				So(label(mood, "label"), ShouldEqual, "excited")
				So(label(mood, "valenceTierId"), ShouldEqual, "positive")
			})

			Convey("Then supplied definitions are not echoed back", func() {
				So(res.Derived, ShouldNotContainKey, "relationships")
			})
		})

		Convey("When personality values join in", func() {
			res := e.Compute(ctx, engine.Request{StatValues: map[string]map[string]float64{
				"relationships": {"affinity": 80, "chemistry": 60},
				"personality":   {"agreeableness": 40, "extraversion": 100},
			}})

			Convey("Then semantic weights shape the combination", func() {
				mood := res.Derived["mood"]
				So(num(t, mood, "valence"), ShouldEqual, 60)
				So(num(t, mood, "arousal"), ShouldAlmostEqual, 110.0/1.5, 1e-9)
				So(label(mood, "label"), ShouldEqual, "neutral")
			})
		})

		Convey("When mood is already supplied", func() {
			res := e.Compute(ctx, engine.Request{StatValues: map[string]map[string]float64{
				"mood":          {"valence": 10},
				"relationships": {"affinity": 90},
			}})

			Convey("Then it is never overwritten", func() {
				So(res.Derived, ShouldNotContainKey, "mood")
				So(reasons(res.Diagnostics), ShouldResemble, []engine.Reason{engine.ReasonTargetKnown})
			})
		})

		Convey("When mood is listed as already computed", func() {
			res := e.Compute(ctx, engine.Request{AlreadyComputed: []string{"mood"}})

			Convey("Then it is skipped", func() {
				So(res.Derived, ShouldBeEmpty)
			})
		})

		Convey("When the mood derivation is excluded", func() {
			res := e.Compute(ctx, engine.Request{Excluded: []string{"mood_from_sentiment"}})

			Convey("Then nothing is derived and the exclusion is reported", func() {
				So(res.Derived, ShouldBeEmpty)
				So(reasons(res.Diagnostics), ShouldResemble, []engine.Reason{engine.ReasonExcluded})
			})
		})

		Convey("When called twice with the same input", func() {
			req := engine.Request{StatValues: map[string]map[string]float64{
				"relationships": {"affinity": 33, "chemistry": 71, "tension": 12},
				"personality":   {"extraversion": 20},
			}}
			a := e.Compute(ctx, req)
			b := e.Compute(ctx, req)

			Convey("Then the results are identical", func() {
				So(cmp.Diff(a, b, valueCmp), ShouldBeEmpty)
			})
		})

		Convey("When computed concurrently", func() {
			req := engine.Request{StatValues: map[string]map[string]float64{"relationships": {"affinity": 70, "chemistry": 10}}}
			want := e.Compute(ctx, req)
			var wg sync.WaitGroup
			results := make([]engine.Result, 16)
			for i := range results {
				wg.Add(1)
				go func(i int) {
					defer wg.Done()
					results[i] = e.Compute(ctx, req)
				}(i)
			}
			wg.Wait()

			Convey("Then every call agrees", func() {
				for _, got := range results {
					So(cmp.Diff(want, got, valueCmp), ShouldBeEmpty)
				}
			})
		})
	})
}

func TestCompute_Chaining(t *testing.T) {
	Convey("Given a two-stage derivation chain", t, func() {
		f := newFixture(t)
		f.add("src_pkg", []*stat.Definition{f.def("src", stat.Axis{Name: "raw", MaxValue: 100, SemanticType: "raw_signal"})})
		stage := func(prio1, prio2 int) {
			f.add("chain_pkg",
				[]*stat.Definition{
					f.def("stage1", stat.Axis{Name: "x", MaxValue: 100, SemanticType: "stage1_signal"}),
					f.def("stage2", stat.Axis{Name: "y", MaxValue: 100, DefaultValue: 5}),
				},
				derivation.Capability{
					ID: "first", FromSemanticTypes: []string{"raw_signal"}, ToDefinition: "stage1",
					Priority: prio1, EnabledByDefault: true,
					Formulas: []derivation.Formula{{OutputAxis: "x", Sources: []derivation.Source{{Key: "r", SemanticType: "raw_signal"}}, Offset: 10}},
				},
				derivation.Capability{
					ID: "second", FromSemanticTypes: []string{"stage1_signal"}, ToDefinition: "stage2",
					Priority: prio2, EnabledByDefault: true,
					Formulas: []derivation.Formula{{OutputAxis: "y", Sources: []derivation.Source{{Key: "s", SemanticType: "stage1_signal"}}, Offset: 1}},
				},
			)
		}
		in := engine.Request{StatValues: map[string]map[string]float64{"src": {"raw": 20}}}

		Convey("When the producer runs first", func() {
			stage(1, 2)
			res := engine.New(f.reg).Compute(context.Background(), in)

			Convey("Then the consumer sees its output", func() {
				So(num(t, res.Derived["stage1"], "x"), ShouldEqual, 30)
				So(num(t, res.Derived["stage2"], "y"), ShouldEqual, 31)
			})
		})

		Convey("When the consumer runs first", func() {
			stage(2, 1)
			res := engine.New(f.reg).Compute(context.Background(), in)

			Convey("Then it falls back to its default and is not revisited", func() {
				So(num(t, res.Derived["stage2"], "y"), ShouldEqual, 5)
				So(num(t, res.Derived["stage1"], "x"), ShouldEqual, 30)
				So(reasons(res.Diagnostics), ShouldResemble, []engine.Reason{engine.ReasonFormulaFallback})
			})
		})
	})
}

func TestCompute_Diagnostics(t *testing.T) {
	Convey("Given capabilities that cannot run", t, func() {
		f := newFixture(t)
		f.add("p", []*stat.Definition{f.def("out", stat.Axis{Name: "v", MaxValue: 1})},
			derivation.Capability{ID: "needs_more", FromSemanticTypes: []string{"absent"}, ToDefinition: "out", EnabledByDefault: true},
			derivation.Capability{ID: "off", ToDefinition: "out"},
			derivation.Capability{ID: "ghost", ToDefinition: "nowhere", EnabledByDefault: true},
		)
		res := engine.New(f.reg).Compute(context.Background(), engine.Request{})

		Convey("Then each one is explained", func() {
			So(res.Derived, ShouldBeEmpty)
			So(reasons(res.Diagnostics), ShouldResemble, []engine.Reason{
				engine.ReasonMissingSemanticTypes, engine.ReasonDisabled, engine.ReasonTargetUnknown,
			})
			So(res.Diagnostics[0].Missing, ShouldResemble, []string{"absent"})
			So(res.Diagnostics[0].String(), ShouldContainSubstring, "requires absent")
		})
	})
}

func TestNormalize(t *testing.T) {
	Convey("Given the builtin packages", t, func() {
		e := builtinEngine(t)

		Convey("When normalizing relationship values", func() {
			r, err := e.Normalize(context.Background(), "relationships", map[string]float64{"affinity": 75, "trust": 45}, nil)

			Convey("Then tiers and level are computed", func() {
				So(err, ShouldBeNil)
				So(r.Tiers["affinity"], ShouldEqual, "lover")
				So(r.Tiers["trust"], ShouldEqual, "trusting")
				So(r.LevelID, ShouldEqual, "intimate")
			})
		})

		Convey("When the definition is unknown", func() {
			_, err := e.Normalize(context.Background(), "weather", nil, nil)
			So(errors.Is(err, engine.ErrUnknownDefinition), ShouldBeTrue)
		})
	})
}
