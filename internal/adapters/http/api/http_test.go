package api_test

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	. "github.com/smartystreets/goconvey/convey"

	"github.com/okian/gincana/internal/adapters/http/api"
	"github.com/okian/gincana/internal/adapters/source"
	service "github.com/okian/gincana/internal/app"
	"github.com/okian/gincana/internal/domain/aggregate"
	"github.com/okian/gincana/internal/domain/filter"
	"github.com/okian/gincana/internal/domain/insights"
	"github.com/okian/gincana/internal/domain/model"
	"github.com/okian/gincana/internal/domain/types"
	"github.com/okian/gincana/pkg/logger"
)

func init() {
	if err := logger.Init(); err != nil {
		panic(err)
	}
}

// mockDependencies records the last call and fails with err when set.
type mockDependencies struct {
	err      error
	sel      filter.Selection
	name     string
	key      aggregate.Key
	field    aggregate.Field
	reloads  int
	entries  []model.LeaderboardEntry
	filters  types.Filters
	reloaded types.Reload
}

func (m *mockDependencies) Leaderboard(_ context.Context, sel filter.Selection) (types.Leaderboard, error) {
	m.sel = sel
	return types.Leaderboard{Meta: types.Meta{RunID: "run-1", Selection: sel}, Entries: m.entries}, m.err
}

func (m *mockDependencies) Goals(_ context.Context, sel filter.Selection) (types.Goals, error) {
	m.sel = sel
	return types.Goals{Meta: types.Meta{RunID: "run-1", Selection: sel}}, m.err
}

func (m *mockDependencies) Aggregate(_ context.Context, sel filter.Selection, key aggregate.Key, field aggregate.Field) (types.Aggregate, error) {
	m.sel, m.key, m.field = sel, key, field
	return types.Aggregate{By: key.String(), Field: field.String()}, m.err
}

func (m *mockDependencies) Overview(_ context.Context, sel filter.Selection) (types.Overview, error) {
	m.sel = sel
	return types.Overview{}, m.err
}

func (m *mockDependencies) Sprints(_ context.Context, sel filter.Selection) (types.Sprints, error) {
	m.sel = sel
	return types.Sprints{}, m.err
}

func (m *mockDependencies) Group(_ context.Context, sel filter.Selection, name string) (types.Group, error) {
	m.sel, m.name = sel, name
	return types.Group{}, m.err
}

func (m *mockDependencies) Participant(_ context.Context, sel filter.Selection, name string) (types.Participant, error) {
	m.sel, m.name = sel, name
	return types.Participant{}, m.err
}

func (m *mockDependencies) Filters(context.Context) (types.Filters, error) {
	return m.filters, m.err
}

func (m *mockDependencies) Reload(context.Context) (types.Reload, error) {
	m.reloads++
	return m.reloaded, m.err
}

type mockStatsProvider struct {
	stats map[string]interface{}
}

func (m *mockStatsProvider) GetStats() map[string]interface{} {
	return m.stats
}

type errorBody struct {
	Code       string   `json:"code"`
	Message    string   `json:"message"`
	Details    []string `json:"details"`
	Suggestion string   `json:"suggestion"`
}

func serve(mux *http.ServeMux, method, target string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, target, nil)
	w := httptest.NewRecorder()
	mux.ServeHTTP(w, req)
	return w
}

func newMux(deps api.Dependencies, opts ...api.Option) *http.ServeMux {
	mux := http.NewServeMux()
	api.NewServer(deps, &mockStatsProvider{stats: map[string]interface{}{"started": true}}, opts...).Register(mux)
	return mux
}

func TestServer_Register(t *testing.T) {
	Convey("Given a registered API server", t, func() {
		deps := &mockDependencies{}
		mux := newMux(deps)

		Convey("Then health serves Prometheus metrics", func() {
			w := serve(mux, http.MethodGet, "/healthz")
			So(w.Code, ShouldEqual, http.StatusOK)
			So(w.Body.String(), ShouldContainSubstring, "gincana_")
		})

		Convey("Then stats are returned as JSON", func() {
			w := serve(mux, http.MethodGet, "/stats")
			So(w.Code, ShouldEqual, http.StatusOK)
			So(w.Body.String(), ShouldContainSubstring, `"started":true`)
			So(w.Header().Get("Cache-Control"), ShouldEqual, "no-store")
		})

		Convey("Then stats only answer GET", func() {
			w := serve(mux, http.MethodPost, "/stats")
			So(w.Code, ShouldEqual, http.StatusMethodNotAllowed)
			So(w.Header().Get("Allow"), ShouldEqual, http.MethodGet)
		})

		Convey("Then each read route answers", func() {
			for _, path := range []string{"/leaderboard", "/goals", "/aggregate", "/overview", "/sprints", "/filters", "/groups/Azul", "/participants/Ana"} {
				So(serve(mux, http.MethodGet, path).Code, ShouldEqual, http.StatusOK)
			}
		})

		Convey("Then unknown paths are not found", func() {
			So(serve(mux, http.MethodGet, "/unknown").Code, ShouldEqual, http.StatusNotFound)
		})

		Convey("Then reads reject other methods", func() {
			So(serve(mux, http.MethodPost, "/leaderboard").Code, ShouldEqual, http.StatusNotFound)
		})
	})
}

func TestHandlers_Selection(t *testing.T) {
	Convey("Given a registered API server", t, func() {
		deps := &mockDependencies{entries: []model.LeaderboardEntry{{Rank: 1, Medal: "🥇", Participant: model.Participant{Name: "Ana"}}}}
		mux := newMux(deps)

		Convey("When no filters are given", func() {
			w := serve(mux, http.MethodGet, "/leaderboard")

			Convey("Then the all-sentinel is used", func() {
				So(deps.sel, ShouldResemble, filter.Everything())

				var body types.Leaderboard
				So(json.Unmarshal(w.Body.Bytes(), &body), ShouldBeNil)
				So(body.RunID, ShouldEqual, "run-1")
				So(body.Entries[0].Participant.Name, ShouldEqual, "Ana")
			})
		})

		Convey("When group and sprint are given", func() {
			serve(mux, http.MethodGet, "/goals?group=Azul&sprint=1%C2%BASPRINT")

			Convey("Then they reach the pipeline decoded", func() {
				So(deps.sel, ShouldResemble, filter.Selection{Group: "Azul", Sprint: "1ºSPRINT"})
			})
		})

		Convey("When a path name carries spaces", func() {
			serve(mux, http.MethodGet, "/participants/Ana%20Paula")

			Convey("Then the decoded name is looked up", func() {
				So(deps.name, ShouldEqual, "Ana Paula")
			})
		})

		Convey("When the path name is empty", func() {
			w := serve(mux, http.MethodGet, "/groups/")

			Convey("Then it is a bad request", func() {
				So(w.Code, ShouldEqual, http.StatusBadRequest)
			})
		})
	})
}

func TestHandlers_Aggregate(t *testing.T) {
	Convey("Given a registered API server", t, func() {
		deps := &mockDependencies{}
		mux := newMux(deps)

		Convey("When no key or field is given", func() {
			So(serve(mux, http.MethodGet, "/aggregate").Code, ShouldEqual, http.StatusOK)

			Convey("Then points by group is used", func() {
				So(deps.key, ShouldEqual, aggregate.ByGroup)
				So(deps.field, ShouldEqual, aggregate.PointsTotal)
			})
		})

		Convey("When key and field are given", func() {
			So(serve(mux, http.MethodGet, "/aggregate?by=category&field=quantity").Code, ShouldEqual, http.StatusOK)

			Convey("Then they are parsed", func() {
				So(deps.key, ShouldEqual, aggregate.ByCategory)
				So(deps.field, ShouldEqual, aggregate.Quantity)
			})
		})

		Convey("When the key is unknown", func() {
			w := serve(mux, http.MethodGet, "/aggregate?by=color")

			Convey("Then it is a bad request", func() {
				So(w.Code, ShouldEqual, http.StatusBadRequest)
			})
		})
	})
}

func TestHandlers_Errors(t *testing.T) {
	verr := model.NewValidationError("workbook")
	verr.AddError(`sheet "participantes" is absent`)

	cases := []struct {
		name   string
		err    error
		status int
		code   string
	}{
		{"invalid workbook", verr, http.StatusUnprocessableEntity, "invalid_source"},
		{"unreachable source", fmt.Errorf("%w: %w", source.ErrUnavailable, source.ErrFetch), http.StatusBadGateway, "source_unavailable"},
		{"unknown group filter", fmt.Errorf("%w: %q", filter.ErrUnknownGroup, "Roxo"), http.StatusBadRequest, "bad_request"},
		{"unknown sprint filter", fmt.Errorf("%w: %q", filter.ErrUnknownSprint, "S9"), http.StatusBadRequest, "bad_request"},
		{"unexpected failure", errors.New("boom"), http.StatusInternalServerError, "internal_error"},
	}

	Convey("Given pipeline failures", t, func() {
		for _, tc := range cases {
			mux := newMux(&mockDependencies{err: tc.err})
			w := serve(mux, http.MethodGet, "/leaderboard")

			Convey("Then "+tc.name+" maps to its status", func() {
				So(w.Code, ShouldEqual, tc.status)
				var body errorBody
				So(json.Unmarshal(w.Body.Bytes(), &body), ShouldBeNil)
				So(body.Code, ShouldEqual, tc.code)
				So(body.Message, ShouldStartWith, "api.get_leaderboard")
			})
		}
	})

	Convey("Given an invalid workbook", t, func() {
		w := serve(newMux(&mockDependencies{err: verr}), http.MethodGet, "/goals")

		Convey("Then every problem is listed", func() {
			var body errorBody
			So(json.Unmarshal(w.Body.Bytes(), &body), ShouldBeNil)
			So(body.Details, ShouldResemble, []string{`sheet "participantes" is absent`})
		})
	})

	Convey("Given an unknown participant with a close match", t, func() {
		err := &insights.LookupError{Kind: insights.ErrUnknownParticipant, Name: "Anna", Suggestion: "Ana"}
		w := serve(newMux(&mockDependencies{err: err}), http.MethodGet, "/participants/Anna")

		Convey("Then it is not found with a suggestion", func() {
			So(w.Code, ShouldEqual, http.StatusNotFound)
			var body errorBody
			So(json.Unmarshal(w.Body.Bytes(), &body), ShouldBeNil)
			So(body.Suggestion, ShouldEqual, "Ana")
		})
	})
}

func TestHandlers_Reload(t *testing.T) {
	Convey("Given a server allowing one reload per minute", t, func() {
		deps := &mockDependencies{reloaded: types.Reload{Version: 2, Donations: 50}}
		mux := newMux(deps, api.WithReloadRate(1))

		Convey("When reloading twice in a row", func() {
			first := serve(mux, http.MethodPost, "/reload")
			second := serve(mux, http.MethodPost, "/reload")

			Convey("Then the first succeeds and the second is throttled", func() {
				So(first.Code, ShouldEqual, http.StatusOK)
				So(first.Body.String(), ShouldContainSubstring, `"version":2`)
				So(second.Code, ShouldEqual, http.StatusTooManyRequests)
				So(second.Header().Get("Retry-After"), ShouldEqual, "60")
				So(deps.reloads, ShouldEqual, 1)
			})
		})

		Convey("When using GET", func() {
			w := serve(mux, http.MethodGet, "/reload")

			Convey("Then the method is not allowed", func() {
				So(w.Code, ShouldEqual, http.StatusMethodNotAllowed)
				So(deps.reloads, ShouldEqual, 0)
			})
		})
	})
}

func TestServer_WithService(t *testing.T) {
	Convey("Given the API over the demo drive", t, func() {
		svc := service.New(service.WithSource(source.NewDemo()))
		mux := http.NewServeMux()
		api.NewServer(svc, svc).Register(mux)

		Convey("When requesting the leaderboard", func() {
			w := serve(mux, http.MethodGet, "/leaderboard")
			So(w.Code, ShouldEqual, http.StatusOK)

			var body types.Leaderboard
			So(json.Unmarshal(w.Body.Bytes(), &body), ShouldBeNil)

			Convey("Then the whole demo roster is ranked", func() {
				So(body.Entries, ShouldHaveLength, 26)
				So(body.Entries[0].Rank, ShouldEqual, 1)
				So(body.Entries[0].TotalPoints, ShouldBeGreaterThanOrEqualTo, body.Entries[1].TotalPoints)
				So(body.RunID, ShouldNotBeEmpty)
			})
		})

		Convey("When filtering by an unknown sprint", func() {
			w := serve(mux, http.MethodGet, "/overview?sprint=nope")

			Convey("Then it is a bad request", func() {
				So(w.Code, ShouldEqual, http.StatusBadRequest)
			})
		})
	})
}
