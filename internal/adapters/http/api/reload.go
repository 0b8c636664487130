package api

import (
	"net/http"
	"time"

	"golang.org/x/time/rate"

	"github.com/okian/gincana/pkg/logger"
	"github.com/okian/gincana/pkg/metrics"
)

const defaultReloadPerMinute = 6

// ReloadHandler forces a source reload, at a limited rate.
type ReloadHandler struct {
	deps    Dependencies
	limiter *rate.Limiter
	logger  logger.Logger
}

// NewReloadHandler creates a reload handler allowing perMinute reloads.
func NewReloadHandler(deps Dependencies, perMinute int, log logger.Logger) *ReloadHandler {
	if perMinute <= 0 {
		perMinute = defaultReloadPerMinute
	}
	return &ReloadHandler{
		deps:    deps,
		limiter: rate.NewLimiter(rate.Every(time.Minute/time.Duration(perMinute)), 1),
		logger:  log,
	}
}

// HandleReload handles POST /reload requests.
func (h *ReloadHandler) HandleReload(w http.ResponseWriter, r *http.Request) {
	const op = "api.post_reload"
	if r.Method != http.MethodPost {
		w.Header().Set("Allow", http.MethodPost)
		writeError(w, http.StatusMethodNotAllowed, "method_not_allowed", nil)
		return
	}
	if !h.limiter.Allow() {
		metrics.RecordReloadRejected()
		w.Header().Set("Retry-After", "60")
		writeError(w, http.StatusTooManyRequests, "rate_limited", Wrap(op, ErrRateLimited))
		return
	}
	res, err := h.deps.Reload(r.Context())
	if err != nil {
		fail(r.Context(), w, h.logger, op, err)
		return
	}
	h.logger.Info(r.Context(), "source reloaded on request",
		logger.Int("version", int(res.Version)),
		logger.Int("donations", res.Donations),
	)
	writeJSON(w, http.StatusOK, res)
}
