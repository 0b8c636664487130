package service_test

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	. "github.com/smartystreets/goconvey/convey"

	"github.com/okian/gincana/internal/adapters/source"
	service "github.com/okian/gincana/internal/app"
	"github.com/okian/gincana/internal/config"
	"github.com/okian/gincana/internal/domain/filter"
	"github.com/okian/gincana/pkg/logger"
)

func TestSourceFor(t *testing.T) {
	Convey("Given default configuration", t, func() {
		cfg := config.New()

		Convey("Then the demo drive is served", func() {
			src, watch := service.SourceFor(cfg, logger.Get())
			So(src.Name(), ShouldEqual, "demo")
			So(watch, ShouldBeEmpty)
		})
	})

	Convey("Given a local workbook with demo fallback", t, func() {
		cfg := config.New()
		cfg.Source = "./planilha.xlsx"

		Convey("Then the workbook falls back to demo data", func() {
			src, watch := service.SourceFor(cfg, logger.Get())
			_, ok := src.(*source.Fallback)
			So(ok, ShouldBeTrue)
			So(watch, ShouldEqual, "./planilha.xlsx")
		})
	})

	Convey("Given a remote workbook without fallback", t, func() {
		cfg := config.New()
		cfg.Source = "https://example.org/planilha.xlsx"
		cfg.DemoFallback = false

		Convey("Then the workbook is used directly and not watched", func() {
			src, watch := service.SourceFor(cfg, logger.Get())
			wb, ok := src.(*source.Workbook)
			So(ok, ShouldBeTrue)
			So(wb.IsRemote(), ShouldBeTrue)
			So(watch, ShouldBeEmpty)
		})
	})
}

func TestCoercerFor(t *testing.T) {
	Convey("Given loose formula detection enabled", t, func() {
		cfg := config.New()
		cfg.LooseFormulaDetection = true

		Convey("Then the coercer is loose", func() {
			So(service.CoercerFor(cfg).Loose(), ShouldBeTrue)
			So(service.CoercerFor(config.New()).Loose(), ShouldBeFalse)
		})
	})
}

func TestFromConfig(t *testing.T) {
	Convey("Given a missing workbook with demo fallback", t, func() {
		cfg := config.New()
		cfg.Source = filepath.Join(t.TempDir(), "missing.xlsx")
		svc := service.FromConfig(cfg)

		Convey("Then runs are served from demo data", func() {
			lb, err := svc.Leaderboard(context.Background(), filter.Selection{})
			So(err, ShouldBeNil)
			So(lb.Entries, ShouldHaveLength, 26)
		})
	})

	Convey("Given a watched local workbook", t, func() {
		dir := t.TempDir()
		path := filepath.Join(dir, "planilha.xlsx")
		So(os.WriteFile(path, []byte("placeholder"), 0o600), ShouldBeNil)

		cfg := config.New()
		cfg.Source = path
		cfg.WatchSource = true
		svc := service.FromConfig(cfg)

		Convey("Then starting attaches the watcher", func() {
			So(svc.Start(context.Background()), ShouldBeNil)
			defer svc.Stop()
			So(svc.GetStats(), ShouldContainKey, "watchEvents")
		})
	})
}
