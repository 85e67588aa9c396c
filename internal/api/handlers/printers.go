package handlers

import (
	"io"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/opencafe/intake/internal/core"
	"github.com/opencafe/intake/internal/db"
)

type PrinterHandler struct {
	store      *db.Store
	dispatcher *core.Dispatcher
	log        *slog.Logger
}

func NewPrinterHandler(store *db.Store, dispatcher *core.Dispatcher, log *slog.Logger) *PrinterHandler {
	return &PrinterHandler{store: store, dispatcher: dispatcher, log: log}
}

type CompleteJobRequest struct {
	Success bool   `json:"success"`
	Error   string `json:"error"`
}

// Channel is the long-lived SSE connection a print agent holds open. Jobs
// queued while the agent was away are delivered as soon as it reconnects.
func (h *PrinterHandler) Channel(c *gin.Context) {
	name := c.Query("name")
	if name == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "printer name is required"})
		return
	}

	connID, ch, err := h.dispatcher.Connect(c.Request.Context(), name)
	if err != nil {
		respondError(c, h.log, err)
		return
	}
	defer h.dispatcher.Disconnect(c.Request.Context(), connID)

	c.Writer.Header().Set("Cache-Control", "no-cache")
	c.Writer.Header().Set("Connection", "keep-alive")

	clientGone := c.Request.Context().Done()
	c.Stream(func(w io.Writer) bool {
		select {
		case <-clientGone:
			return false
		case payload, ok := <-ch:
			if !ok {
				return false
			}
			c.SSEvent("print-job", payload)
			return true
		}
	})
}

// CompleteJob records the agent's asynchronous acknowledgement of a job.
func (h *PrinterHandler) CompleteJob(c *gin.Context) {
	jobID, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid job id"})
		return
	}

	var req CompleteJobRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	job, err := h.dispatcher.Complete(c.Request.Context(), jobID, req.Success, req.Error)
	if err != nil {
		respondError(c, h.log, err)
		return
	}
	c.JSON(http.StatusOK, job)
}

func (h *PrinterHandler) RetryJob(c *gin.Context) {
	jobID, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid job id"})
		return
	}

	job, err := h.dispatcher.Retry(c.Request.Context(), jobID)
	if err != nil {
		respondError(c, h.log, err)
		return
	}
	c.JSON(http.StatusOK, job)
}

func (h *PrinterHandler) ListPrinters(c *gin.Context) {
	printers, err := h.store.ListPrinters(c.Request.Context())
	if err != nil {
		respondError(c, h.log, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"printers":  printers,
		"connected": h.dispatcher.ConnectedCount(),
	})
}

func (h *PrinterHandler) ListJobs(c *gin.Context) {
	status := c.Query("status")
	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "50"))
	offset, _ := strconv.Atoi(c.DefaultQuery("offset", "0"))
	if limit < 1 || limit > 500 {
		limit = 50
	}
	if offset < 0 {
		offset = 0
	}

	jobs, err := h.store.ListPrintJobs(c.Request.Context(), status, limit, offset)
	if err != nil {
		respondError(c, h.log, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"jobs": jobs, "count": len(jobs)})
}
