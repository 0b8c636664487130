package service_test

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	. "github.com/smartystreets/goconvey/convey"
	"go.uber.org/goleak"

	"github.com/okian/gincana/internal/adapters/source"
	service "github.com/okian/gincana/internal/app"
	"github.com/okian/gincana/internal/domain/aggregate"
	"github.com/okian/gincana/internal/domain/filter"
	"github.com/okian/gincana/internal/domain/insights"
	"github.com/okian/gincana/internal/domain/model"
	"github.com/okian/gincana/pkg/logger"
)

func TestMain(m *testing.M) {
	// Initialize logging for tests
	if err := logger.Init(); err != nil {
		panic(err)
	}
	goleak.VerifyTestMain(m)
}

// staticSource serves a fixed raw dataset and counts loads.
type staticSource struct {
	raw   model.RawDataset
	err   error
	loads atomic.Int32
}

func (s *staticSource) Name() string { return "static" }

func (s *staticSource) Load(context.Context) (model.RawDataset, error) {
	s.loads.Add(1)
	return s.raw, s.err
}

func day(d int) time.Time { return time.Date(2025, 10, d, 0, 0, 0, 0, time.UTC) }

func drive() model.RawDataset {
	return model.RawDataset{
		Participants: &model.Table{
			Name:    model.TableParticipants,
			Columns: []string{model.ColName, model.ColGroup},
			Rows: []model.Row{
				{model.ColName: "Ana", model.ColGroup: "Azul"},
				{model.ColName: "Bia", model.ColGroup: "Azul"},
				{model.ColName: "Caio", model.ColGroup: "Verde"},
			},
		},
		Categories: &model.Table{
			Name:    model.TableCategories,
			Columns: []string{model.ColCategory, model.ColItemType, model.ColUnitPoints, model.ColGroupGoal},
			Rows: []model.Row{
				{model.ColCategory: "Alimentos", model.ColItemType: "Arroz", model.ColUnitPoints: 2.0, model.ColGroupGoal: 10.0},
				{model.ColCategory: "Roupas", model.ColItemType: "Camiseta", model.ColUnitPoints: 5.0, model.ColGroupGoal: 4.0},
			},
		},
		Donations: &model.Table{
			Name: model.TableDonations,
			Columns: []string{
				model.ColSprint, model.ColDate, model.ColName, model.ColGroup, model.ColCategory,
				model.ColQuantity, model.ColPointsSubtotal, model.ColBonus, model.ColPointsTotal,
			},
			Rows: []model.Row{
				{model.ColSprint: "S1", model.ColDate: day(14), model.ColName: "Ana", model.ColGroup: "Azul", model.ColCategory: "Alimentos",
					model.ColQuantity: 5.0, model.ColPointsSubtotal: 10.0, model.ColBonus: 0.0, model.ColPointsTotal: 10.0},
				{model.ColSprint: "S1", model.ColDate: day(15), model.ColName: "Caio", model.ColGroup: "Verde", model.ColCategory: "Roupas",
					model.ColQuantity: 2.0, model.ColPointsSubtotal: 10.0, model.ColBonus: 5.0, model.ColPointsTotal: 15.0},
				{model.ColSprint: "S2", model.ColDate: day(21), model.ColName: "Bia", model.ColGroup: "Azul", model.ColCategory: "Alimentos",
					model.ColQuantity: 3.0, model.ColPointsSubtotal: 6.0, model.ColBonus: 0.0, model.ColPointsTotal: 6.0},
			},
		},
	}
}

func names(entries []model.LeaderboardEntry) []string {
	out := make([]string, len(entries))
	for i, e := range entries {
		out[i] = e.Participant.Name
	}
	return out
}

func TestService_Lifecycle(t *testing.T) {
	Convey("Given a new service with default options", t, func() {
		svc := service.New()

		Convey("Then it serves the demo drive before starting", func() {
			So(svc, ShouldNotBeNil)
			So(svc.GetStats()["started"], ShouldEqual, false)
			So(svc.GetStats()["source"], ShouldEqual, "demo")
		})

		Convey("When starting and stopping the service", func() {
			So(svc.Start(context.Background()), ShouldBeNil)
			So(svc.Start(context.Background()), ShouldBeNil)
			So(svc.GetStats()["started"], ShouldEqual, true)

			svc.Stop()
			svc.Stop()

			Convey("Then it should be marked as stopped", func() {
				So(svc.GetStats()["started"], ShouldEqual, false)
			})
		})
	})

	Convey("Given a watch path in a missing directory", t, func() {
		svc := service.New(service.WithWatchPath("/nonexistent/gincana/planilha.xlsx"))

		Convey("Then starting fails", func() {
			So(svc.Start(context.Background()), ShouldNotBeNil)
			So(svc.GetStats()["started"], ShouldEqual, false)
		})
	})
}

func TestService_Leaderboard(t *testing.T) {
	Convey("Given a service over a small drive", t, func() {
		src := &staticSource{raw: drive()}
		svc := service.New(service.WithSource(src))
		ctx := context.Background()

		Convey("When ranking without filters", func() {
			lb, err := svc.Leaderboard(ctx, filter.Selection{})
			So(err, ShouldBeNil)

			Convey("Then the whole roster is ranked by points", func() {
				So(names(lb.Entries), ShouldResemble, []string{"Caio", "Ana", "Bia"})
				So(lb.Entries[0].Medal, ShouldEqual, "🥇")
				So(lb.Selection, ShouldResemble, filter.Everything())
				So(lb.Summary.WithPoints, ShouldEqual, 3)
				So(lb.Podium, ShouldHaveLength, 3)
			})

			Convey("And every run gets its own ID over one cached load", func() {
				again, err := svc.Leaderboard(ctx, filter.Selection{})
				So(err, ShouldBeNil)
				So(again.RunID, ShouldNotEqual, lb.RunID)
				So(again.Version, ShouldEqual, lb.Version)
				So(src.loads.Load(), ShouldEqual, 1)
				So(svc.GetStats()["runs"], ShouldEqual, uint64(2))
			})
		})

		Convey("When filtering by sprint", func() {
			lb, err := svc.Leaderboard(ctx, filter.Selection{Sprint: "S1"})
			So(err, ShouldBeNil)

			Convey("Then members outside the sprint keep zero points", func() {
				So(names(lb.Entries), ShouldResemble, []string{"Caio", "Ana", "Bia"})
				So(lb.Entries[2].TotalPoints, ShouldEqual, 0)
				So(lb.Summary.WithPoints, ShouldEqual, 2)
			})
		})

		Convey("When the group is unknown", func() {
			_, err := svc.Leaderboard(ctx, filter.Selection{Group: "Roxo"})

			Convey("Then a selection error is returned", func() {
				So(errors.Is(err, filter.ErrUnknownGroup), ShouldBeTrue)
				So(svc.GetStats()["failures"], ShouldEqual, uint64(1))
			})
		})
	})
}

func TestService_Views(t *testing.T) {
	Convey("Given a service over a small drive", t, func() {
		svc := service.New(service.WithSource(&staticSource{raw: drive()}))
		ctx := context.Background()

		Convey("Then goals compare donated quantity with targets", func() {
			g, err := svc.Goals(ctx, filter.Selection{})
			So(err, ShouldBeNil)
			So(g.Goals, ShouldHaveLength, 2)
			So(g.Goals[0].Category, ShouldEqual, "Alimentos")
			So(g.Goals[0].Percent, ShouldEqual, 80)
			So(g.Goals[1].Percent, ShouldEqual, 50)
		})

		Convey("Then aggregates are ranked", func() {
			a, err := svc.Aggregate(ctx, filter.Selection{}, aggregate.ByGroup, aggregate.PointsTotal)
			So(err, ShouldBeNil)
			So(a.By, ShouldEqual, "group")
			So(a.Buckets, ShouldResemble, []aggregate.Bucket{{Key: "Azul", Value: 16}, {Key: "Verde", Value: 15}})
			So(a.Total, ShouldEqual, 31)
		})

		Convey("Then the overview reflects the selection", func() {
			o, err := svc.Overview(ctx, filter.Selection{Group: "Azul"})
			So(err, ShouldBeNil)
			So(o.Overview.TotalPoints, ShouldEqual, 16)
			So(o.Overview.ActiveParticipants, ShouldEqual, 2)
		})

		Convey("Then a selected sprint gets a category breakdown", func() {
			sp, err := svc.Sprints(ctx, filter.Selection{Sprint: "S1"})
			So(err, ShouldBeNil)
			So(sp.Sprints.Available, ShouldBeTrue)
			So(sp.Sprints.CategoryBreakdown, ShouldNotBeEmpty)

			all, err := svc.Sprints(ctx, filter.Selection{})
			So(err, ShouldBeNil)
			So(all.Sprints.CategoryBreakdown, ShouldBeEmpty)
			So(all.Sprints.Best, ShouldEqual, "S1")
		})

		Convey("Then group and participant details resolve", func() {
			g, err := svc.Group(ctx, filter.Selection{}, "Azul")
			So(err, ShouldBeNil)
			So(g.Group.Members, ShouldEqual, 2)
			So(g.Group.MeanPerMember, ShouldEqual, 8)

			p, err := svc.Participant(ctx, filter.Selection{}, "Caio")
			So(err, ShouldBeNil)
			So(p.Participant.TotalPoints, ShouldEqual, 15)
		})

		Convey("Then a mistyped participant gets a suggestion", func() {
			_, err := svc.Participant(ctx, filter.Selection{}, "ana")
			var le *insights.LookupError
			So(errors.As(err, &le), ShouldBeTrue)
			So(le.Suggestion, ShouldEqual, "Ana")
		})

		Convey("Then filters start with the all-sentinel", func() {
			f, err := svc.Filters(ctx)
			So(err, ShouldBeNil)
			So(f.Groups, ShouldResemble, []string{filter.All, "Azul", "Verde"})
			So(f.Sprints, ShouldResemble, []string{filter.All, "S1", "S2"})
		})
	})
}

func TestService_SourceProblems(t *testing.T) {
	Convey("Given a workbook without the participants sheet", t, func() {
		raw := drive()
		raw.Participants = nil
		svc := service.New(service.WithSource(&staticSource{raw: raw}))

		Convey("Then runs fail with a validation error", func() {
			_, err := svc.Leaderboard(context.Background(), filter.Selection{})
			So(errors.Is(err, model.ErrInvalidSource), ShouldBeTrue)

			var verr *model.ValidationError
			So(errors.As(err, &verr), ShouldBeTrue)
			So(verr.Errors, ShouldNotBeEmpty)
		})
	})

	Convey("Given a source that cannot be reached", t, func() {
		boom := errors.New("offline")
		svc := service.New(service.WithSource(&staticSource{err: boom}))

		Convey("Then the load error is wrapped", func() {
			_, err := svc.Goals(context.Background(), filter.Selection{})
			So(errors.Is(err, boom), ShouldBeTrue)
			So(errors.Is(err, source.ErrUnavailable), ShouldBeTrue)
		})
	})
}

func TestService_Reload(t *testing.T) {
	Convey("Given a service that already loaded its source", t, func() {
		src := &staticSource{raw: drive()}
		svc := service.New(service.WithSource(src), service.WithCacheTTL(0))
		ctx := context.Background()
		first, err := svc.Leaderboard(ctx, filter.Selection{})
		So(err, ShouldBeNil)

		Convey("When reloading", func() {
			r, err := svc.Reload(ctx)
			So(err, ShouldBeNil)

			Convey("Then a new version is loaded and summarized", func() {
				So(r.Version, ShouldEqual, first.Version+1)
				So(r.Participants, ShouldEqual, 3)
				So(r.Donations, ShouldEqual, 3)
				So(src.loads.Load(), ShouldEqual, 2)
			})
		})

		Convey("When invalidating", func() {
			svc.Invalidate("test")
			next, err := svc.Leaderboard(ctx, filter.Selection{})
			So(err, ShouldBeNil)

			Convey("Then the next run loads again", func() {
				So(next.Version, ShouldEqual, first.Version+1)
			})
		})
	})
}
