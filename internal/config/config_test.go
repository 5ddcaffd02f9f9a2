package config_test

import (
	"errors"
	"runtime"
	"testing"

	"github.com/okian/semstat/internal/config"
	"github.com/smartystreets/goconvey/convey"
)

func TestConfig_New(t *testing.T) {
	convey.Convey("Given a new config with default options", t, func() {
		cfg := config.New()

		convey.Convey("Then it should have sensible defaults", func() {
			convey.So(cfg.LogLevel, convey.ShouldEqual, "info")
			convey.So(cfg.LogFormat, convey.ShouldEqual, "text")
			convey.So(cfg.Addr, convey.ShouldEqual, ":9080")
			convey.So(cfg.BuiltinPackages, convey.ShouldBeTrue)
			convey.So(cfg.PackageFiles, convey.ShouldBeEmpty)
			convey.So(cfg.WorldConfig, convey.ShouldBeEmpty)
			convey.So(cfg.DefaultPackageIDs, convey.ShouldBeEmpty)
			convey.So(cfg.BatchConcurrency, convey.ShouldEqual, runtime.NumCPU())
			convey.So(cfg.MaxBatchSize, convey.ShouldEqual, 500)
			convey.So(cfg.MetricsEnabled, convey.ShouldBeTrue)
			convey.So(cfg.MetricsNamespace, convey.ShouldEqual, "semstat")
			convey.So(cfg.Validate(), convey.ShouldBeNil)
		})
	})
}

func TestConfig_Validate(t *testing.T) {
	convey.Convey("Given configs with one bad field", t, func() {
		cases := map[string]func(*config.Config){
			"addr must not be empty":             func(c *config.Config) { c.Addr = " " },
			"batch_concurrency must be at least": func(c *config.Config) { c.BatchConcurrency = 0 },
			"max_batch_size must be at least":    func(c *config.Config) { c.MaxBatchSize = -1 },
			"log_format must be text or json":    func(c *config.Config) { c.LogFormat = "xml" },
			"metrics_namespace":                  func(c *config.Config) { c.MetricsNamespace = "stat-engine" },
		}
		for msg, mutate := range cases {
			cfg := config.New()
			mutate(cfg)
			err := cfg.Validate()

			convey.So(errors.Is(err, config.ErrInvalidConfig), convey.ShouldBeTrue)
			convey.So(err.Error(), convey.ShouldContainSubstring, msg)
		}

		convey.Convey("Then log_format is case insensitive", func() {
			cfg := config.New()
			cfg.LogFormat = "JSON"
			convey.So(cfg.Validate(), convey.ShouldBeNil)
		})
	})
}
