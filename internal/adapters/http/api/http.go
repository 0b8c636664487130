// Package api declares HTTP contracts and route registration helpers.
package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/okian/gincana/internal/adapters/source"
	"github.com/okian/gincana/internal/domain/aggregate"
	"github.com/okian/gincana/internal/domain/filter"
	"github.com/okian/gincana/internal/domain/insights"
	"github.com/okian/gincana/internal/domain/model"
	"github.com/okian/gincana/internal/domain/types"
	"github.com/okian/gincana/pkg/logger"
)

// Dependencies required by HTTP handlers. Using an interface bundle keeps
// the handler layer loosely coupled to implementations in other packages.
type Dependencies interface {
	Leaderboard(ctx context.Context, sel filter.Selection) (types.Leaderboard, error)
	Goals(ctx context.Context, sel filter.Selection) (types.Goals, error)
	Aggregate(ctx context.Context, sel filter.Selection, key aggregate.Key, field aggregate.Field) (types.Aggregate, error)
	Overview(ctx context.Context, sel filter.Selection) (types.Overview, error)
	Sprints(ctx context.Context, sel filter.Selection) (types.Sprints, error)
	Group(ctx context.Context, sel filter.Selection, name string) (types.Group, error)
	Participant(ctx context.Context, sel filter.Selection, name string) (types.Participant, error)
	Filters(ctx context.Context) (types.Filters, error)

	// Reload forces a fresh load of the source.
	Reload(ctx context.Context) (types.Reload, error)
}

// Option configures a Server.
type Option func(*Server)

// WithReloadRate caps POST /reload at perMinute requests.
func WithReloadRate(perMinute int) Option {
	return func(s *Server) {
		if perMinute > 0 {
			s.reloadPerMinute = perMinute
		}
	}
}

// WithLogger sets the logger for handler failures.
func WithLogger(l logger.Logger) Option {
	return func(s *Server) {
		if l != nil {
			s.logger = l
		}
	}
}

// Server wires HTTP routes for the business API.
type Server struct {
	reloadPerMinute int
	logger          logger.Logger

	healthHandler      *HealthHandler
	statsHandler       *StatsHandler
	leaderboardHandler *LeaderboardHandler
	insightsHandler    *InsightsHandler
	reloadHandler      *ReloadHandler
}

// NewServer creates a new API server with all handlers.
func NewServer(deps Dependencies, statsProvider StatsProvider, opts ...Option) *Server {
	s := &Server{reloadPerMinute: defaultReloadPerMinute}
	for _, opt := range opts {
		opt(s)
	}
	if s.logger == nil {
		s.logger = logger.Get()
	}
	s.logger = s.logger.Named("api")

	s.healthHandler = NewHealthHandler()
	s.statsHandler = NewStatsHandler(statsProvider)
	s.leaderboardHandler = NewLeaderboardHandler(deps, s.logger)
	s.insightsHandler = NewInsightsHandler(deps, s.logger)
	s.reloadHandler = NewReloadHandler(deps, s.reloadPerMinute, s.logger)
	return s
}

// Register attaches all HTTP routes to mux.
func (s *Server) Register(mux *http.ServeMux) {
	// Specific paths first (most specific to least specific)
	mux.HandleFunc("/healthz", MetricsMiddleware(s.healthHandler.HandleHealth, "healthz"))
	mux.HandleFunc("/stats", MetricsMiddleware(s.statsHandler.HandleStats, "stats"))
	mux.HandleFunc("/leaderboard", MetricsMiddleware(s.leaderboardHandler.HandleGetLeaderboard, "leaderboard"))
	mux.HandleFunc("/goals", MetricsMiddleware(s.leaderboardHandler.HandleGetGoals, "goals"))
	mux.HandleFunc("/aggregate", MetricsMiddleware(s.insightsHandler.HandleGetAggregate, "aggregate"))
	mux.HandleFunc("/overview", MetricsMiddleware(s.insightsHandler.HandleGetOverview, "overview"))
	mux.HandleFunc("/sprints", MetricsMiddleware(s.insightsHandler.HandleGetSprints, "sprints"))
	mux.HandleFunc("/filters", MetricsMiddleware(s.insightsHandler.HandleGetFilters, "filters"))
	mux.HandleFunc("/groups/", MetricsMiddleware(s.insightsHandler.HandleGetGroup, "groups"))
	mux.HandleFunc("/participants/", MetricsMiddleware(s.insightsHandler.HandleGetParticipant, "participants"))
	mux.HandleFunc("/reload", MetricsMiddleware(s.reloadHandler.HandleReload, "reload"))
}

type errorResponse struct {
	Code    string `json:"code"`
	Message string `json:"message"`
	// Details lists every structural problem of an invalid workbook.
	Details []string `json:"details,omitempty"`
	// Suggestion is the closest known name for an unknown group or participant.
	Suggestion string `json:"suggestion,omitempty"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, code string, err error) {
	resp := errorResponse{Code: code, Message: http.StatusText(status)}
	if err != nil {
		resp.Message = err.Error()
	}
	var verr *model.ValidationError
	if errors.As(err, &verr) {
		resp.Details = verr.Errors
	}
	var lerr *insights.LookupError
	if errors.As(err, &lerr) {
		resp.Suggestion = lerr.Suggestion
	}
	writeJSON(w, status, resp)
}

// classify maps a pipeline error to its HTTP status and error code.
func classify(err error) (int, string) {
	var verr *model.ValidationError
	switch {
	case errors.As(err, &verr):
		return http.StatusUnprocessableEntity, "invalid_source"
	case errors.Is(err, insights.ErrUnknownGroup), errors.Is(err, insights.ErrUnknownParticipant):
		return http.StatusNotFound, "not_found"
	case errors.Is(err, filter.ErrUnknownGroup), errors.Is(err, filter.ErrUnknownSprint),
		errors.Is(err, aggregate.ErrUnknownKey), errors.Is(err, aggregate.ErrUnknownField),
		errors.Is(err, ErrBadRequest):
		return http.StatusBadRequest, "bad_request"
	case errors.Is(err, source.ErrUnavailable):
		return http.StatusBadGateway, "source_unavailable"
	default:
		return http.StatusInternalServerError, "internal_error"
	}
}

// fail writes err with its classified status and logs server-side failures.
func fail(ctx context.Context, w http.ResponseWriter, log logger.Logger, op string, err error) {
	status, code := classify(err)
	if status >= http.StatusInternalServerError {
		log.Error(ctx, "request failed", logger.String("op", op), logger.Error(err))
	}
	writeError(w, status, code, Wrap(op, err))
}

// selectionFrom reads the group and sprint query parameters.
func selectionFrom(r *http.Request) filter.Selection {
	q := r.URL.Query()
	return filter.Selection{
		Group:  strings.TrimSpace(q.Get("group")),
		Sprint: strings.TrimSpace(q.Get("sprint")),
	}.Normalized()
}

// pathName extracts the single path segment after prefix.
func pathName(r *http.Request, prefix string) (string, error) {
	name := strings.TrimPrefix(r.URL.Path, prefix)
	if strings.TrimSpace(name) == "" || strings.Contains(name, "/") {
		return "", fmt.Errorf("%w: expected %s{name}", ErrBadRequest, prefix)
	}
	return name, nil
}
