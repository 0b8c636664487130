package api

import (
	"net/http"

	"github.com/okian/gincana/internal/domain/aggregate"
	"github.com/okian/gincana/pkg/logger"
)

// InsightsHandler serves aggregates, overview figures and drill-downs.
type InsightsHandler struct {
	deps   Dependencies
	logger logger.Logger
}

// NewInsightsHandler creates a new insights handler.
func NewInsightsHandler(deps Dependencies, log logger.Logger) *InsightsHandler {
	return &InsightsHandler{deps: deps, logger: log}
}

// HandleGetAggregate handles GET /aggregate?by=K&field=F requests. by
// defaults to group and field to points.
func (h *InsightsHandler) HandleGetAggregate(w http.ResponseWriter, r *http.Request) {
	const op = "api.get_aggregate"
	if r.Method != http.MethodGet {
		http.NotFound(w, r)
		return
	}
	q := r.URL.Query()
	key, field := aggregate.ByGroup, aggregate.PointsTotal
	if by := q.Get("by"); by != "" {
		k, err := aggregate.ParseKey(by)
		if err != nil {
			fail(r.Context(), w, h.logger, op, err)
			return
		}
		key = k
	}
	if f := q.Get("field"); f != "" {
		parsed, err := aggregate.ParseField(f)
		if err != nil {
			fail(r.Context(), w, h.logger, op, err)
			return
		}
		field = parsed
	}
	a, err := h.deps.Aggregate(r.Context(), selectionFrom(r), key, field)
	if err != nil {
		fail(r.Context(), w, h.logger, op, err)
		return
	}
	writeJSON(w, http.StatusOK, a)
}

// HandleGetOverview handles GET /overview requests.
func (h *InsightsHandler) HandleGetOverview(w http.ResponseWriter, r *http.Request) {
	const op = "api.get_overview"
	if r.Method != http.MethodGet {
		http.NotFound(w, r)
		return
	}
	o, err := h.deps.Overview(r.Context(), selectionFrom(r))
	if err != nil {
		fail(r.Context(), w, h.logger, op, err)
		return
	}
	writeJSON(w, http.StatusOK, o)
}

// HandleGetSprints handles GET /sprints requests.
func (h *InsightsHandler) HandleGetSprints(w http.ResponseWriter, r *http.Request) {
	const op = "api.get_sprints"
	if r.Method != http.MethodGet {
		http.NotFound(w, r)
		return
	}
	s, err := h.deps.Sprints(r.Context(), selectionFrom(r))
	if err != nil {
		fail(r.Context(), w, h.logger, op, err)
		return
	}
	writeJSON(w, http.StatusOK, s)
}

// HandleGetFilters handles GET /filters requests.
func (h *InsightsHandler) HandleGetFilters(w http.ResponseWriter, r *http.Request) {
	const op = "api.get_filters"
	if r.Method != http.MethodGet {
		http.NotFound(w, r)
		return
	}
	f, err := h.deps.Filters(r.Context())
	if err != nil {
		fail(r.Context(), w, h.logger, op, err)
		return
	}
	writeJSON(w, http.StatusOK, f)
}

// HandleGetGroup handles GET /groups/{name} requests.
func (h *InsightsHandler) HandleGetGroup(w http.ResponseWriter, r *http.Request) {
	const op = "api.get_group"
	if r.Method != http.MethodGet {
		http.NotFound(w, r)
		return
	}
	name, err := pathName(r, "/groups/")
	if err != nil {
		fail(r.Context(), w, h.logger, op, err)
		return
	}
	g, err := h.deps.Group(r.Context(), selectionFrom(r), name)
	if err != nil {
		fail(r.Context(), w, h.logger, op, err)
		return
	}
	writeJSON(w, http.StatusOK, g)
}

// HandleGetParticipant handles GET /participants/{name} requests.
func (h *InsightsHandler) HandleGetParticipant(w http.ResponseWriter, r *http.Request) {
	const op = "api.get_participant"
	if r.Method != http.MethodGet {
		http.NotFound(w, r)
		return
	}
	name, err := pathName(r, "/participants/")
	if err != nil {
		fail(r.Context(), w, h.logger, op, err)
		return
	}
	p, err := h.deps.Participant(r.Context(), selectionFrom(r), name)
	if err != nil {
		fail(r.Context(), w, h.logger, op, err)
		return
	}
	writeJSON(w, http.StatusOK, p)
}
