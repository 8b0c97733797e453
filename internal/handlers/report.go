package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/PratikDhanave/web-analytics-service/internal/analytics"
)

// RegisterReportRoutes registers the read-side endpoints under /api/events.
//
// GET /sessions                    session summaries, most recent first
// GET /session/:sessionId          session detail, 404 for unknown sessions
// GET /session/:sessionId/events   ordered raw events of a session
// GET /clicks/heatmap?page_url=    click buckets for one page
// GET /dashboard                   headline counters
func RegisterReportRoutes(r gin.IRoutes, engine *analytics.Engine) {
	r.GET("/sessions", func(c *gin.Context) {
		sessions, err := engine.Sessions(c.Request.Context())
		if err != nil {
			respondError(c, err)
			return
		}
		respondOK(c, http.StatusOK, sessions)
	})

	r.GET("/session/:sessionId", func(c *gin.Context) {
		detail, err := engine.SessionDetail(c.Request.Context(), c.Param("sessionId"))
		if err != nil {
			respondError(c, err)
			return
		}
		respondOK(c, http.StatusOK, detail)
	})

	r.GET("/session/:sessionId/events", func(c *gin.Context) {
		events, err := engine.SessionEvents(c.Request.Context(), c.Param("sessionId"))
		if err != nil {
			respondError(c, err)
			return
		}
		respondOK(c, http.StatusOK, events)
	})

	r.GET("/clicks/heatmap", func(c *gin.Context) {
		buckets, err := engine.Heatmap(c.Request.Context(), c.Query("page_url"))
		if err != nil {
			respondError(c, err)
			return
		}
		respondOK(c, http.StatusOK, buckets)
	})

	r.GET("/dashboard", func(c *gin.Context) {
		stats, err := engine.Dashboard(c.Request.Context())
		if err != nil {
			respondError(c, err)
			return
		}
		respondOK(c, http.StatusOK, stats)
	})
}
