// Analytics HTTP handlers.
//
// This file exposes the admin-gated dashboard endpoints:
//   - GET  /analytics/summary      (full snapshot JSON)
//   - GET  /analytics/summary.csv  (flattened Metric,Value export)
//   - POST /analytics/refresh      (invalidate cache, rebuild)
//
// All three accept ?role= to scope engagement, mode, feedback, and temporal
// metrics to one registered role; "all" lifts the filter. Snapshots come
// from AnalyticsService, which caches them for a bounded window.
package handlers

import (
	"errors"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/unilearn/socratic-chat-backend/internal/domain"
	"github.com/unilearn/socratic-chat-backend/internal/services"
)

// roleParam resolves the role filter for an analytics request: explicit
// ?role= wins, "all" means no filter, anything unknown is rejected by the
// caller via the second return value.
func (h *Handlers) roleParam(c *gin.Context) (string, bool) {
	role := strings.TrimSpace(c.Query("role"))
	if role == "" {
		role = h.defaultRole
	}
	if strings.EqualFold(role, "all") {
		return "", true
	}
	if !domain.ValidRole(role) {
		return "", false
	}
	return role, true
}

// failSummary maps an aggregation error to an HTTP response. Upstream fetch
// failures surface as 502 so dashboards can tell a broken store from a
// broken service.
func failSummary(c *gin.Context, err error) {
	if errors.Is(err, services.ErrUpstreamFetch) {
		fail(c, http.StatusBadGateway, ErrCodeSummaryFailed, err.Error())
		return
	}
	fail(c, http.StatusInternalServerError, ErrCodeSummaryFailed, err.Error())
}

// AnalyticsSummary godoc
// @ID          analyticsSummary
// @Summary     Dashboard snapshot
// @Description Returns the assembled metrics snapshot for one role filter. Served from cache when fresh.
// @Tags        Analytics
// @Produce     json
//
// @Param       X-User-ID  header  string  false "Admin user ID"  example(admin1)
// @Param       role       query   string  false "Role filter (student, admin, tester, unknown, all)"  default(student)
//
// @Success     200  {object} analytics.Snapshot
// @Failure     400  {object} handlers.ErrorResponse "Unknown role"
// @Failure     403  {object} handlers.ErrorResponse "Not an admin"
// @Failure     502  {object} handlers.ErrorResponse "Event store unavailable"
// @Router      /analytics/summary [get]
func (h *Handlers) AnalyticsSummary(c *gin.Context) {
	role, valid := h.roleParam(c)
	if !valid {
		fail(c, http.StatusBadRequest, ErrCodeBadRequest, "unknown role filter")
		return
	}

	snap, err := h.anSvc.Summary(c.Request.Context(), role)
	if err != nil {
		failSummary(c, err)
		return
	}
	ok(c, http.StatusOK, snap)
}

// AnalyticsSummaryCSV godoc
// @ID          analyticsSummaryCSV
// @Summary     Dashboard snapshot as CSV
// @Description Returns the flattened Metric,Value projection of the snapshot as a CSV download.
// @Tags        Analytics
// @Produce     text/csv
//
// @Param       X-User-ID  header  string  false "Admin user ID"  example(admin1)
// @Param       role       query   string  false "Role filter (student, admin, tester, unknown, all)"  default(student)
//
// @Success     200  {string} string "CSV body"
// @Failure     400  {object} handlers.ErrorResponse "Unknown role"
// @Failure     403  {object} handlers.ErrorResponse "Not an admin"
// @Failure     502  {object} handlers.ErrorResponse "Event store unavailable"
// @Router      /analytics/summary.csv [get]
func (h *Handlers) AnalyticsSummaryCSV(c *gin.Context) {
	role, valid := h.roleParam(c)
	if !valid {
		fail(c, http.StatusBadRequest, ErrCodeBadRequest, "unknown role filter")
		return
	}

	snap, err := h.anSvc.Summary(c.Request.Context(), role)
	if err != nil {
		failSummary(c, err)
		return
	}

	c.Header("Content-Type", "text/csv; charset=utf-8")
	c.Header("Content-Disposition", `attachment; filename="analytics_summary.csv"`)
	c.Status(http.StatusOK)
	if err := snap.WriteCSV(c.Writer); err != nil {
		// Headers are already on the wire; nothing sensible left to send.
		_ = c.Error(err)
	}
}

// AnalyticsRefresh godoc
// @ID          analyticsRefresh
// @Summary     Rebuild the dashboard snapshot
// @Description Drops every cached snapshot and rebuilds the one for the requested role filter.
// @Tags        Analytics
// @Produce     json
//
// @Param       X-User-ID  header  string  false "Admin user ID"  example(admin1)
// @Param       role       query   string  false "Role filter (student, admin, tester, unknown, all)"  default(student)
//
// @Success     200  {object} analytics.Snapshot
// @Failure     400  {object} handlers.ErrorResponse "Unknown role"
// @Failure     403  {object} handlers.ErrorResponse "Not an admin"
// @Failure     502  {object} handlers.ErrorResponse "Event store unavailable"
// @Router      /analytics/refresh [post]
func (h *Handlers) AnalyticsRefresh(c *gin.Context) {
	role, valid := h.roleParam(c)
	if !valid {
		fail(c, http.StatusBadRequest, ErrCodeBadRequest, "unknown role filter")
		return
	}

	snap, err := h.anSvc.Refresh(c.Request.Context(), role)
	if err != nil {
		failSummary(c, err)
		return
	}
	ok(c, http.StatusOK, snap)
}
