package handler

import (
	"context"
	"net/http"
	"time"
)

// --- Handler: GET /fleet/overview ---

func (handler *TrackerHTTPHandler) handleOverview(w http.ResponseWriter, r *http.Request) {
	ctx := handler.withReqID(r.Context(), r)

	// bound service call
	ctxWithTimeout, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	overview, err := handler.svc.FleetOverview(ctxWithTimeout)
	if err != nil {
		handler.serviceError(ctxWithTimeout, w, err, "failed to fetch fleet overview")
		return
	}

	handler.jsonResponse(ctxWithTimeout, w, http.StatusOK, overview)
}
