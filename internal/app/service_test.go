package service_test

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	service "github.com/okian/semstat/internal/app"
	"github.com/okian/semstat/internal/domain/engine"
	"github.com/okian/semstat/internal/domain/registry"
	"github.com/okian/semstat/internal/domain/stat"
	"github.com/okian/semstat/pkg/logger"
	. "github.com/smartystreets/goconvey/convey"
)

func init() {
	if err := logger.Init(); err != nil {
		panic(err)
	}
}

const tastePkg = `
id: taste_pkg
definitions:
  - id: taste
    axes:
      - {name: sweetness, min: 0, max: 10, default: 5, semantic_type: positive_sentiment}
`

const moodWorld = `
version: 1
definitions:
  mood:
    axes:
      - {name: valence, default: 40}
`

func started(t *testing.T, opts ...service.Option) *service.Service {
	t.Helper()
	svc := service.New(append([]service.Option{service.WithLogger(logger.Get())}, opts...)...)
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := svc.Start(ctx); err != nil {
		t.Fatalf("start: %v", err)
	}
	return svc
}

func TestService_Lifecycle(t *testing.T) {
	Convey("Given a new service", t, func() {
		svc := service.New()

		Convey("When it is not started", func() {
			_, err := svc.ComputeDerivations(context.Background(), engine.Request{})

			Convey("Then calls are refused", func() {
				So(errors.Is(err, service.ErrNotStarted), ShouldBeTrue)
				So(svc.GetStats()["started"], ShouldEqual, false)
			})
		})

		Convey("When started", func() {
			So(svc.Start(context.Background()), ShouldBeNil)
			defer svc.Stop()

			Convey("Then builtins are registered", func() {
				stats := svc.GetStats()
				So(stats["started"], ShouldEqual, true)
				So(stats["packages"], ShouldEqual, 3)
				var ids []string
				for _, p := range svc.Packages() {
					ids = append(ids, p.ID)
				}
				So(ids, ShouldResemble, []string{"relationships_pkg", "personality_pkg", "mood_pkg"})
			})

			Convey("Then starting twice is harmless", func() {
				So(svc.Start(context.Background()), ShouldBeNil)
				So(svc.GetStats()["packages"], ShouldEqual, 3)
			})
		})

		Convey("When stopped", func() {
			So(svc.Start(context.Background()), ShouldBeNil)
			svc.Stop()

			Convey("Then it reports stopped", func() {
				So(svc.GetStats()["started"], ShouldEqual, false)
			})
		})
	})
}

func TestService_Files(t *testing.T) {
	Convey("Given package and world files", t, func() {
		dir := t.TempDir()
		pkgPath := filepath.Join(dir, "taste.yaml")
		worldPath := filepath.Join(dir, "world.yaml")
		So(os.WriteFile(pkgPath, []byte(tastePkg), 0o600), ShouldBeNil)
		So(os.WriteFile(worldPath, []byte(moodWorld), 0o600), ShouldBeNil)

		Convey("When the service starts with them", func() {
			svc := started(t, service.WithPackageFiles([]string{pkgPath}), service.WithWorldConfig(worldPath))
			defer svc.Stop()

			Convey("Then the file package joins and overrides apply", func() {
				So(svc.Packages(), ShouldHaveLength, 4)
				res, err := svc.ComputeDerivations(context.Background(), engine.Request{
					PackageIDs: []string{"mood_pkg"},
				})
				So(err, ShouldBeNil)
				v, _ := res.Derived["mood"]["valence"].Float()
				So(v, ShouldEqual, 40)
			})
		})

		Convey("When a package file is broken", func() {
			bad := filepath.Join(dir, "bad.yaml")
			So(os.WriteFile(bad, []byte("id: p\nunknown: true\n"), 0o600), ShouldBeNil)
			svc := service.New(service.WithPackageFiles([]string{bad}))

			Convey("Then start fails and names the file", func() {
				err := svc.Start(context.Background())
				So(err, ShouldNotBeNil)
				So(err.Error(), ShouldContainSubstring, "bad.yaml")
			})
		})

		Convey("When the world config names an unknown definition", func() {
			world := filepath.Join(dir, "ghost.yaml")
			So(os.WriteFile(world, []byte("definitions:\n  ghost: {}\n"), 0o600), ShouldBeNil)
			svc := service.New(service.WithWorldConfig(world))

			Convey("Then start fails", func() {
				So(errors.Is(svc.Start(context.Background()), registry.ErrUnknownDefinition), ShouldBeTrue)
			})
		})
	})
}

func TestService_Compute(t *testing.T) {
	Convey("Given a started service", t, func() {
		svc := started(t)
		defer svc.Stop()
		ctx := context.Background()

		Convey("When normalizing", func() {
			r, err := svc.Normalize(ctx, "relationships", map[string]float64{"affinity": 65, "trust": 50, "chemistry": 25}, nil)

			Convey("Then the highest priority level wins", func() {
				So(err, ShouldBeNil)
				So(r.LevelID, ShouldEqual, "intimate")
				So(r.Levels, ShouldResemble, []string{"intimate", "light_flirt"})
			})
		})

		Convey("When normalizing an unknown definition", func() {
			_, err := svc.Normalize(ctx, "weather", nil, nil)
			So(errors.Is(err, engine.ErrUnknownDefinition), ShouldBeTrue)
		})

		Convey("When computing a batch", func() {
			reqs := []engine.Request{
				{StatValues: map[string]map[string]float64{"relationships": {"affinity": 90, "chemistry": 90}}},
				{PackageIDs: []string{"mood_pkg"}},
				{StatValues: map[string]map[string]float64{"relationships": {"affinity": 10, "chemistry": 80}}},
			}
			res, err := svc.ComputeBatch(ctx, reqs)

			Convey("Then results keep request order", func() {
				So(err, ShouldBeNil)
				So(res, ShouldHaveLength, 3)
				labels := make([]string, 0, 3)
				for _, r := range res {
					l, _ := r.Derived["mood"]["label"].Text()
					labels = append(labels, l)
				}
				So(labels, ShouldResemble, []string{"excited", "neutral", "anxious"})
				So(svc.GetStats()["computations"], ShouldEqual, int64(3))
			})
		})

		Convey("When the batch is empty or too large", func() {
			_, err := svc.ComputeBatch(ctx, nil)
			So(errors.Is(err, service.ErrEmptyBatch), ShouldBeTrue)

			small := started(t, service.WithMaxBatchSize(1))
			defer small.Stop()
			_, err = small.ComputeBatch(ctx, make([]engine.Request, 2))
			So(errors.Is(err, service.ErrBatchTooLarge), ShouldBeTrue)
		})

		Convey("When the context is already cancelled", func() {
			cctx, cancel := context.WithCancel(ctx)
			cancel()
			_, err := svc.ComputeBatch(cctx, make([]engine.Request, 4))

			Convey("Then the batch reports cancellation", func() {
				So(errors.Is(err, context.Canceled), ShouldBeTrue)
			})
		})

		Convey("When a package is registered late", func() {
			def, err := stat.NewDefinition("weather", []stat.Axis{{Name: "sun", MaxValue: 1}}, nil, nil)
			So(err, ShouldBeNil)
			p, err := registry.NewPackage("weather_pkg", []*stat.Definition{def}, nil)
			So(err, ShouldBeNil)
			So(svc.RegisterPackage(ctx, p), ShouldBeNil)

			Convey("Then it is immediately usable", func() {
				r, err := svc.Normalize(ctx, "weather", map[string]float64{"sun": 3}, nil)
				So(err, ShouldBeNil)
				So(r.Values["sun"], ShouldEqual, 1)
			})
		})
	})
}

func TestService_DefaultPackages(t *testing.T) {
	Convey("Given a service defaulting to the mood package", t, func() {
		svc := started(t, service.WithDefaultPackageIDs([]string{"mood_pkg"}))
		defer svc.Stop()

		Convey("When a request names no packages", func() {
			res, err := svc.ComputeDerivations(context.Background(), engine.Request{
				StatValues: map[string]map[string]float64{"relationships": {"affinity": 100}},
			})

			Convey("Then relationship axes are outside the selection", func() {
				So(err, ShouldBeNil)
				v, _ := res.Derived["mood"]["valence"].Float()
				So(v, ShouldEqual, 50)
			})
		})
	})
}
