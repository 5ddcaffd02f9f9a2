package logger

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"testing"

	. "github.com/smartystreets/goconvey/convey"
)

func TestLoggerInit(t *testing.T) {
	Convey("Given the global logger", t, func() {
		Convey("When initialized with defaults", func() {
			err := Init()

			Convey("Then Get and Named return loggers", func() {
				So(err, ShouldBeNil)
				So(Get(), ShouldNotBeNil)
				So(Named("registry"), ShouldNotBeNil)
				So(Sync(), ShouldBeNil)
			})
		})

		Convey("When initialized with an unknown format", func() {
			err := Init(WithFormat("xml"))

			Convey("Then it fails", func() {
				So(err, ShouldNotBeNil)
			})
		})
	})
}

func TestLoggerJSON(t *testing.T) {
	Convey("Given a JSON logger on a buffer", t, func() {
		So(SetLevelString("info"), ShouldBeNil)
		var buf bytes.Buffer
		l, err := New(WithFormat(FormatJSON), WithOutput(&buf), WithSource(false))
		So(err, ShouldBeNil)

		Convey("When logging with fields", func() {
			l.Named("engine").Warn(context.Background(), "fallback",
				String("capability", "mood"), Strings("missing", []string{"a", "b"}),
				Int("n", 2), Float64("v", 1.5), Bool("ok", true), Error(errors.New("boom")))

			Convey("Then one structured record is written", func() {
				var rec map[string]any
				So(json.Unmarshal(buf.Bytes(), &rec), ShouldBeNil)
				So(rec["msg"], ShouldEqual, "fallback")
				So(rec["level"], ShouldEqual, "WARN")
				So(rec["component"], ShouldEqual, "engine")
				So(rec["capability"], ShouldEqual, "mood")
				So(rec["ok"], ShouldEqual, true)
				So(rec["error"], ShouldEqual, "boom")
				So(rec, ShouldNotContainKey, "source")
			})
		})

		Convey("When the level filters the record", func() {
			l.Debug(context.Background(), "hidden")

			Convey("Then nothing is written", func() {
				So(buf.Len(), ShouldEqual, 0)
			})
		})
	})
}

func TestSetLevelString(t *testing.T) {
	Convey("Given level names", t, func() {
		Convey("Then known names are accepted", func() {
			for _, lvl := range []string{"debug", "INFO", "warn", "warning", "error", ""} {
				So(SetLevelString(lvl), ShouldBeNil)
			}
			So(SetLevelString("info"), ShouldBeNil)
		})

		Convey("Then unknown names fail", func() {
			So(SetLevelString("verbose"), ShouldNotBeNil)
		})
	})
}

func TestNop(t *testing.T) {
	Convey("Given a nop logger", t, func() {
		l := Nop()

		Convey("Then logging is harmless", func() {
			So(func() { l.Named("x").Error(context.Background(), "ignored") }, ShouldNotPanic)
		})
	})
}
