package fswatch_test

import (
	"context"
	"os"
	"path/filepath"
	"sync/atomic"
	"testing"
	"time"

	. "github.com/smartystreets/goconvey/convey"
	"go.uber.org/goleak"

	"github.com/okian/gincana/internal/adapters/fswatch"
	"github.com/okian/gincana/pkg/logger"
)

func TestMain(m *testing.M) {
	if err := logger.Init(); err != nil {
		panic(err)
	}
	goleak.VerifyTestMain(m)
}

func waitFor(cond func() bool) bool {
	deadline := time.Now().Add(3 * time.Second)
	for time.Now().Before(deadline) {
		if cond() {
			return true
		}
		time.Sleep(10 * time.Millisecond)
	}
	return cond()
}

func TestWatcher(t *testing.T) {
	Convey("Given a watcher on a workbook file", t, func() {
		dir := t.TempDir()
		path := filepath.Join(dir, "gincana.xlsx")
		So(os.WriteFile(path, []byte("v1"), 0o600), ShouldBeNil)

		var calls atomic.Int32
		w, err := fswatch.New(path, func(context.Context) { calls.Add(1) }, fswatch.WithDebounce(100*time.Millisecond))
		So(err, ShouldBeNil)
		defer w.Stop()

		ctx, cancel := context.WithCancel(context.Background())
		defer cancel()
		So(w.Start(ctx), ShouldBeNil)
		So(w.Start(ctx), ShouldBeNil)

		Convey("When the file is written several times in a burst", func() {
			for i := 0; i < 5; i++ {
				So(os.WriteFile(path, []byte{byte('a' + i)}, 0o600), ShouldBeNil)
			}

			Convey("Then onChange runs once", func() {
				So(waitFor(func() bool { return calls.Load() >= 1 }), ShouldBeTrue)
				time.Sleep(300 * time.Millisecond)
				So(calls.Load(), ShouldEqual, 1)
				So(w.Stats().Triggers, ShouldEqual, 1)
				So(w.Stats().Events, ShouldBeGreaterThanOrEqualTo, 1)
			})
		})

		Convey("When a sibling file changes", func() {
			So(os.WriteFile(filepath.Join(dir, "other.txt"), []byte("x"), 0o600), ShouldBeNil)
			time.Sleep(200 * time.Millisecond)

			Convey("Then nothing happens", func() {
				So(calls.Load(), ShouldEqual, 0)
			})
		})
	})

	Convey("Given a watcher that was never started", t, func() {
		w, err := fswatch.New(filepath.Join(t.TempDir(), "x.xlsx"), nil)
		So(err, ShouldBeNil)

		So(func() { w.Stop(); w.Stop() }, ShouldNotPanic)
	})

	Convey("Given a path in a missing directory", t, func() {
		w, err := fswatch.New(filepath.Join(t.TempDir(), "missing", "x.xlsx"), nil)
		So(err, ShouldBeNil)
		defer w.Stop()

		So(w.Start(context.Background()), ShouldNotBeNil)
	})
}
