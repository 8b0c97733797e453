package handlers

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/oklog/ulid/v2"

	"github.com/PratikDhanave/web-analytics-service/internal/apperrors"
	"github.com/PratikDhanave/web-analytics-service/internal/store"
	"github.com/PratikDhanave/web-analytics-service/internal/validation"
)

// maxEventBodyBytes caps a single ingestion payload.
const maxEventBodyBytes = 64 << 10

// RegisterEventRoutes registers the ingestion endpoint.
//
// POST /api/events
// - Public: browsers send beacons without credentials
// - Durable: returns success only after the store write completes
// - All-or-nothing: any violation rejects the event and nothing is stored
func RegisterEventRoutes(r gin.IRoutes, st store.Store) {
	r.POST("", func(c *gin.Context) {
		c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, maxEventBodyBytes)
		body, err := c.GetRawData()
		if err != nil {
			respondError(c, apperrors.BadRequest("request body could not be read"))
			return
		}

		in, err := validation.ParseEvent(body)
		if err != nil {
			respondError(c, err)
			return
		}

		ev := in.ToEvent(ulid.Make().String(), time.Now())
		saved, err := st.Append(c.Request.Context(), ev)
		if err != nil {
			respondError(c, apperrors.Store("append event", err))
			return
		}

		respondOK(c, http.StatusCreated, saved)
	})
}
