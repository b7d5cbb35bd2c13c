package handler

import (
	"strconv"

	"civicdesk/backend/internal/api/resp"
	"civicdesk/backend/internal/errs"
	"civicdesk/backend/internal/models"

	"github.com/gin-gonic/gin"
)

func (h *Handler) StatsSummary(c *gin.Context) {
	s, err := h.Stats.Summary(c.Request.Context())
	if err != nil {
		fail(c, err)
		return
	}
	resp.OK(c, s)
}

func (h *Handler) StatsByCategory(c *gin.Context) {
	rows, err := h.Stats.ByCategory(c.Request.Context())
	if err != nil {
		fail(c, err)
		return
	}
	resp.OK(c, rows)
}

func (h *Handler) StatsTimeSeries(c *gin.Context) {
	points, err := h.Stats.TimeSeries(c.Request.Context())
	if err != nil {
		fail(c, err)
		return
	}
	resp.OK(c, points)
}

// StatsMapData takes optional minLat, maxLat, minLng and maxLng. They must
// be given all together.
func (h *Handler) StatsMapData(c *gin.Context) {
	b, err := boundsFromQuery(c)
	if err != nil {
		fail(c, err)
		return
	}
	points, err := h.Stats.MapData(c.Request.Context(), b)
	if err != nil {
		fail(c, err)
		return
	}
	resp.OK(c, points)
}

func boundsFromQuery(c *gin.Context) (*models.Bounds, error) {
	keys := []string{"minLat", "maxLat", "minLng", "maxLng"}
	vals := make([]float64, 0, len(keys))
	for _, k := range keys {
		raw := c.Query(k)
		if raw == "" {
			continue
		}
		v, err := strconv.ParseFloat(raw, 64)
		if err != nil {
			return nil, errs.Invalid(k, "must be a number")
		}
		vals = append(vals, v)
	}
	switch len(vals) {
	case 0:
		return nil, nil
	case len(keys):
	default:
		return nil, errs.Invalid("bounds", "minLat, maxLat, minLng and maxLng must be given together")
	}
	b := &models.Bounds{MinLat: vals[0], MaxLat: vals[1], MinLng: vals[2], MaxLng: vals[3]}
	if b.MinLat > b.MaxLat || b.MinLng > b.MaxLng {
		return nil, errs.Invalid("bounds", "minimum must not exceed maximum")
	}
	return b, nil
}
