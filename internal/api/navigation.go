package api

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"github.com/persistorai/navgraph/internal/models"
)

// maxIDLength bounds parcel ids accepted in paths.
const maxIDLength = 255

// NavigationHandler serves pathfinding, diagnostics and graph export.
type NavigationHandler struct {
	svc NavigationService
	log *logrus.Logger
}

// NewNavigationHandler creates a NavigationHandler.
func NewNavigationHandler(svc NavigationService, log *logrus.Logger) *NavigationHandler {
	return &NavigationHandler{svc: svc, log: log}
}

// validatePathID checks that a path parameter ID is non-empty and within length limits.
func validatePathID(id string) error {
	if id == "" {
		return fmt.Errorf("id must not be empty")
	}
	if len(id) > maxIDLength {
		return fmt.Errorf("id exceeds maximum length of %d", maxIDLength)
	}

	return nil
}

// Path handles GET /api/v1/navigation/path/:from/:to?mode=real|all.
// An unreachable destination is a 200 with status "unreachable".
func (h *NavigationHandler) Path(c *gin.Context) {
	from, to := c.Param("from"), c.Param("to")
	for _, id := range []string{from, to} {
		if err := validatePathID(id); err != nil {
			respondError(c, http.StatusBadRequest, ErrCodeInvalidRequest, err.Error())

			return
		}
	}

	res, err := h.svc.FindPath(c.Request.Context(), from, to, c.Query("mode"))
	if err != nil {
		h.respondQueryError(c, err, "finding path")

		return
	}

	c.JSON(http.StatusOK, res)
}

// Diagnostics handles GET /api/v1/navigation/diagnostics?mode=real|all.
// Degraded analyses are still a 200; the body carries error and partial.
func (h *NavigationHandler) Diagnostics(c *gin.Context) {
	d, err := h.svc.Diagnostics(c.Request.Context(), c.Query("mode"))
	if err != nil {
		h.respondQueryError(c, err, "running diagnostics")

		return
	}

	c.JSON(http.StatusOK, d)
}

// Preload handles POST /api/v1/navigation/preload.
func (h *NavigationHandler) Preload(c *gin.Context) {
	res, err := h.svc.Preload(c.Request.Context())
	if err != nil {
		h.log.WithError(err).Error("preloading graph")
		respondError(c, http.StatusServiceUnavailable, ErrCodeNotLoaded, "graph could not be loaded")

		return
	}

	c.JSON(http.StatusOK, res)
}

// Graph handles GET /api/v1/navigation/graph.
func (h *NavigationHandler) Graph(c *gin.Context) {
	export, err := h.svc.Export(c.Request.Context())
	if err != nil {
		h.log.WithError(err).Error("exporting graph")
		respondError(c, http.StatusServiceUnavailable, ErrCodeNotLoaded, "graph could not be loaded")

		return
	}

	c.JSON(http.StatusOK, export)
}

func (h *NavigationHandler) respondQueryError(c *gin.Context, err error, action string) {
	switch {
	case errors.Is(err, models.ErrInvalidMode):
		respondError(c, http.StatusBadRequest, ErrCodeInvalidMode, "mode must be one of: real, all")
	case errors.Is(err, models.ErrInvalidNode):
		respondError(c, http.StatusNotFound, ErrCodeInvalidNode, err.Error())
	case errors.Is(err, models.ErrNotLoaded):
		respondError(c, http.StatusServiceUnavailable, ErrCodeNotLoaded, "graph not loaded")
	default:
		h.log.WithError(err).Error(action)
		respondError(c, http.StatusInternalServerError, ErrCodeInternalError, "internal server error")
	}
}
