package handlers

import (
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/opencafe/intake/internal/core"
	"github.com/opencafe/intake/internal/db"
)

type SystemHandler struct {
	store      *db.Store
	relay      *core.Relay
	dispatcher *core.Dispatcher
	log        *slog.Logger
}

func NewSystemHandler(store *db.Store, relay *core.Relay, dispatcher *core.Dispatcher, log *slog.Logger) *SystemHandler {
	return &SystemHandler{store: store, relay: relay, dispatcher: dispatcher, log: log}
}

func (h *SystemHandler) Health(c *gin.Context) {
	if err := h.store.DB().PingContext(c.Request.Context()); err != nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"status": "unhealthy", "error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

// Stats summarizes the live state for the admin dashboard.
func (h *SystemHandler) Stats(c *gin.Context) {
	snap, err := h.relay.Snapshot(c.Request.Context())
	if err != nil {
		respondError(c, h.log, err)
		return
	}

	windowCounts, err := h.store.CountItemsByWindow(c.Request.Context())
	if err != nil {
		respondError(c, h.log, err)
		return
	}

	jobCounts, err := h.store.CountPrintJobsByStatus(c.Request.Context())
	if err != nil {
		respondError(c, h.log, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"items": gin.H{
			"registered":  len(snap.Registered),
			"in_progress": len(snap.InProgress),
			"ready":       len(snap.Ready),
			"delivered":   len(snap.Delivered),
			"other":       len(snap.Other),
		},
		"items_per_window":   windowCounts,
		"viewers":            h.relay.ViewerCount(),
		"printers_connected": h.dispatcher.ConnectedCount(),
		"print_jobs":         jobCounts,
	})
}
