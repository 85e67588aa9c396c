package handlers

import (
	"io"
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/opencafe/intake/internal/core"
)

type StreamHandler struct {
	relay *core.Relay
	log   *slog.Logger
}

func NewStreamHandler(relay *core.Relay, log *slog.Logger) *StreamHandler {
	return &StreamHandler{relay: relay, log: log}
}

// StatusGroups serves the one-shot grouped view for clients that poll
// instead of holding a stream open.
func (h *StreamHandler) StatusGroups(c *gin.Context) {
	snap, err := h.relay.Snapshot(c.Request.Context())
	if err != nil {
		respondError(c, h.log, err)
		return
	}
	c.JSON(http.StatusOK, snap)
}

// Stream holds an SSE connection open and pushes a full snapshot on every
// item mutation. The first event arrives immediately on connect.
func (h *StreamHandler) Stream(c *gin.Context) {
	id, ch, err := h.relay.Subscribe(c.Request.Context())
	if err != nil {
		respondError(c, h.log, err)
		return
	}
	defer h.relay.Unsubscribe(id)

	c.Writer.Header().Set("Cache-Control", "no-cache")
	c.Writer.Header().Set("Connection", "keep-alive")

	clientGone := c.Request.Context().Done()
	c.Stream(func(w io.Writer) bool {
		select {
		case <-clientGone:
			return false
		case snap, ok := <-ch:
			if !ok {
				return false
			}
			c.SSEvent("items-updated", snap)
			return true
		}
	})
}
