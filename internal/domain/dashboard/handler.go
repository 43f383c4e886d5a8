package dashboard

import (
	"context"
	"net/http"
	"sync"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog"
)

// reportTTL is how long a generated report is served from cache before
// the next feed request triggers a fresh pipeline run.
const reportTTL = 5 * time.Minute

type Handler struct {
	svc *Service
	log zerolog.Logger

	mu       sync.Mutex
	cached   *Report
	cachedAt time.Time
	ttl      time.Duration
	now      func() time.Time
}

func NewHandler(svc *Service, logger zerolog.Logger) *Handler {
	return &Handler{
		svc: svc,
		log: logger.With().Str("component", "dashboard_handler").Logger(),
		ttl: reportTTL,
		now: time.Now,
	}
}

func (h *Handler) RegisterRoutes(e *echo.Echo) {
	e.GET("/healthz", h.Health)
	e.GET("/dashboard/feed", h.Feed)
}

func (h *Handler) Health(c echo.Context) error {
	return c.JSON(http.StatusOK, map[string]string{"status": "ok"})
}

// Feed serves the current dashboard report, regenerating it when the
// cached one has expired or ?refresh=true is passed.
func (h *Handler) Feed(c echo.Context) error {
	refresh := c.QueryParam("refresh") == "true"
	report, err := h.report(c.Request().Context(), refresh)
	if err != nil {
		h.log.Error().Err(err).Msg("dashboard report generation failed")
		return echo.NewHTTPError(http.StatusInternalServerError, "report generation failed")
	}
	return c.JSON(http.StatusOK, report)
}

func (h *Handler) report(ctx context.Context, refresh bool) (*Report, error) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if !refresh && h.cached != nil && h.now().Sub(h.cachedAt) < h.ttl {
		return h.cached, nil
	}
	report, err := h.svc.Generate(ctx)
	if err != nil {
		return nil, err
	}
	h.cached = report
	h.cachedAt = h.now()
	return report, nil
}
