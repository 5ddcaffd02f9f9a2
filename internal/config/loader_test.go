package config_test

import (
	"context"
	"errors"
	"os"
	"runtime"
	"testing"

	"github.com/okian/semstat/internal/config"
	"github.com/smartystreets/goconvey/convey"
)

func TestConfigLoader(t *testing.T) {
	convey.Convey("Given a config loader", t, func() {
		ctx := context.Background()

		convey.Convey("When loading config with defaults only", func() {
			clearConfigEnvVars()

			cfg, err := config.Load(ctx)

			convey.Convey("Then it should load successfully with defaults", func() {
				convey.So(err, convey.ShouldBeNil)
				convey.So(cfg, convey.ShouldNotBeNil)
				convey.So(cfg.Addr, convey.ShouldEqual, ":9080")
				convey.So(cfg.BuiltinPackages, convey.ShouldBeTrue)
				convey.So(cfg.BatchConcurrency, convey.ShouldEqual, runtime.NumCPU())
				convey.So(cfg.MaxBatchSize, convey.ShouldEqual, 500)
			})
		})

		convey.Convey("When loading config with environment variables", func() {
			_ = os.Setenv("SEMSTAT_ADDR", ":8080")
			_ = os.Setenv("SEMSTAT_LOG_LEVEL", "debug")
			_ = os.Setenv("SEMSTAT_LOG_FORMAT", "json")
			_ = os.Setenv("SEMSTAT_BUILTIN_PACKAGES", "false")
			_ = os.Setenv("SEMSTAT_BATCH_CONCURRENCY", "3")
			_ = os.Setenv("SEMSTAT_MAX_BATCH_SIZE", "40")
			_ = os.Setenv("SEMSTAT_PACKAGE_FILES", "a.yaml,b.yaml")
			_ = os.Setenv("SEMSTAT_METRICS_ENABLED", "false")
			_ = os.Setenv("SEMSTAT_METRICS_NAMESPACE", "world")
			defer clearConfigEnvVars()

			cfg, err := config.Load(ctx)

			convey.Convey("Then it should override defaults with env vars", func() {
				convey.So(err, convey.ShouldBeNil)
				convey.So(cfg.Addr, convey.ShouldEqual, ":8080")
				convey.So(cfg.LogLevel, convey.ShouldEqual, "debug")
				convey.So(cfg.LogFormat, convey.ShouldEqual, "json")
				convey.So(cfg.BuiltinPackages, convey.ShouldBeFalse)
				convey.So(cfg.BatchConcurrency, convey.ShouldEqual, 3)
				convey.So(cfg.MaxBatchSize, convey.ShouldEqual, 40)
				convey.So(cfg.PackageFiles, convey.ShouldResemble, []string{"a.yaml", "b.yaml"})
				convey.So(cfg.MetricsEnabled, convey.ShouldBeFalse)
				convey.So(cfg.MetricsNamespace, convey.ShouldEqual, "world")
			})
		})

		convey.Convey("When loading config with YAML file", func() {
			yamlContent := `
addr: ":9090"
world_config: /etc/semstat/world.yaml
package_files:
  - /etc/semstat/taste.yaml
default_package_ids: [mood_pkg]
max_batch_size: 64
`
			tmpFile := createTempConfigFile(yamlContent)
			defer func() { _ = os.Remove(tmpFile) }()

			_ = os.Setenv("SEMSTAT_CONFIG", tmpFile)
			defer clearConfigEnvVars()

			cfg, err := config.Load(ctx)

			convey.Convey("Then it should load from YAML file", func() {
				convey.So(err, convey.ShouldBeNil)
				convey.So(cfg.Addr, convey.ShouldEqual, ":9090")
				convey.So(cfg.WorldConfig, convey.ShouldEqual, "/etc/semstat/world.yaml")
				convey.So(cfg.PackageFiles, convey.ShouldResemble, []string{"/etc/semstat/taste.yaml"})
				convey.So(cfg.DefaultPackageIDs, convey.ShouldResemble, []string{"mood_pkg"})
				convey.So(cfg.MaxBatchSize, convey.ShouldEqual, 64)
				convey.So(cfg.LogLevel, convey.ShouldEqual, "info") // From defaults
			})
		})

		convey.Convey("When loading config with both file and environment variables", func() {
			yamlContent := `
addr: ":9090"
max_batch_size: 64
`
			tmpFile := createTempConfigFile(yamlContent)
			defer func() { _ = os.Remove(tmpFile) }()

			_ = os.Setenv("SEMSTAT_CONFIG", tmpFile)
			_ = os.Setenv("SEMSTAT_ADDR", ":8080")
			defer clearConfigEnvVars()

			cfg, err := config.Load(ctx)

			convey.Convey("Then environment variables should override file values", func() {
				convey.So(err, convey.ShouldBeNil)
				convey.So(cfg.Addr, convey.ShouldEqual, ":8080")    // Overridden by env
				convey.So(cfg.MaxBatchSize, convey.ShouldEqual, 64) // From file
			})
		})

		convey.Convey("When loading config with invalid YAML file", func() {
			tmpFile := createTempConfigFile(`invalid: yaml: content: [`)
			defer func() { _ = os.Remove(tmpFile) }()

			_ = os.Setenv("SEMSTAT_CONFIG", tmpFile)
			defer clearConfigEnvVars()

			cfg, err := config.Load(ctx)

			convey.Convey("Then it should return a load error", func() {
				convey.So(errors.Is(err, config.ErrLoadConfig), convey.ShouldBeTrue)
				convey.So(cfg, convey.ShouldBeNil)
			})
		})

		convey.Convey("When loading config with non-existent file", func() {
			_ = os.Setenv("SEMSTAT_CONFIG", "/non/existent/file.yaml")
			defer clearConfigEnvVars()

			cfg, err := config.Load(ctx)

			convey.Convey("Then it should return an error", func() {
				convey.So(err, convey.ShouldNotBeNil)
				convey.So(cfg, convey.ShouldBeNil)
			})
		})

		convey.Convey("When loading config with empty addr", func() {
			_ = os.Setenv("SEMSTAT_ADDR", "")
			defer clearConfigEnvVars()

			cfg, err := config.Load(ctx)

			convey.Convey("Then it should return a validation error", func() {
				convey.So(errors.Is(err, config.ErrInvalidConfig), convey.ShouldBeTrue)
				convey.So(err.Error(), convey.ShouldContainSubstring, "addr must not be empty")
				convey.So(cfg, convey.ShouldBeNil)
			})
		})

		convey.Convey("When loading config with an unknown log format", func() {
			_ = os.Setenv("SEMSTAT_LOG_FORMAT", "logfmt")
			defer clearConfigEnvVars()

			_, err := config.Load(ctx)

			convey.Convey("Then it should be rejected", func() {
				convey.So(errors.Is(err, config.ErrInvalidConfig), convey.ShouldBeTrue)
			})
		})
	})
}

// Helper functions.

func clearConfigEnvVars() {
	envVars := []string{
		"SEMSTAT_CONFIG",
		"SEMSTAT_ADDR",
		"SEMSTAT_LOG_LEVEL",
		"SEMSTAT_LOG_FORMAT",
		"SEMSTAT_BUILTIN_PACKAGES",
		"SEMSTAT_PACKAGE_FILES",
		"SEMSTAT_WORLD_CONFIG",
		"SEMSTAT_DEFAULT_PACKAGE_IDS",
		"SEMSTAT_BATCH_CONCURRENCY",
		"SEMSTAT_MAX_BATCH_SIZE",
		"SEMSTAT_METRICS_ENABLED",
		"SEMSTAT_METRICS_NAMESPACE",
	}
	for _, envVar := range envVars {
		_ = os.Unsetenv(envVar)
	}
}

func createTempConfigFile(content string) string {
	tmpFile, err := os.CreateTemp("", "semstat-config-*.yaml")
	if err != nil {
		panic(err)
	}

	if _, err := tmpFile.WriteString(content); err != nil {
		panic(err)
	}

	if err := tmpFile.Close(); err != nil {
		panic(err)
	}

	return tmpFile.Name()
}
