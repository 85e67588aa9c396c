package handlers

import (
	"log/slog"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/opencafe/intake/internal/core"
)

type ItemHandler struct {
	service *core.Service
	log     *slog.Logger
}

func NewItemHandler(service *core.Service, log *slog.Logger) *ItemHandler {
	return &ItemHandler{service: service, log: log}
}

type RegisterRequest struct {
	CustomerName       string `json:"customer_name" binding:"required"`
	CustomerPhone      string `json:"customer_phone"`
	CustomerType       string `json:"customer_type" binding:"required"`
	ProblemDescription string `json:"problem_description" binding:"required"`
	ItemDescription    string `json:"item_description" binding:"required"`
	DepartmentID       int64  `json:"department_id"`
}

type CompleteRequest struct {
	Advice  string `json:"advice" binding:"required"`
	Outcome string `json:"outcome" binding:"required"`
}

type UpdateItemRequest struct {
	ItemDescription    *string `json:"item_description"`
	ProblemDescription *string `json:"problem_description"`
	DepartmentID       *int64  `json:"department_id"`
	StatusID           *int64  `json:"status_id"`
}

type MaterialUsageRequest struct {
	MaterialID int64 `json:"material_id" binding:"required"`
	Quantity   int64 `json:"quantity"`
}

type SetUsageRequest struct {
	Quantity int64 `json:"quantity"`
}

func (h *ItemHandler) Register(c *gin.Context) {
	var req RegisterRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	item, err := h.service.Register(c.Request.Context(), core.RegisterInput{
		CustomerName:       req.CustomerName,
		CustomerPhone:      req.CustomerPhone,
		CustomerType:       req.CustomerType,
		ProblemDescription: req.ProblemDescription,
		ItemDescription:    req.ItemDescription,
		DepartmentID:       req.DepartmentID,
	})
	if err != nil {
		respondError(c, h.log, err)
		return
	}

	c.JSON(http.StatusCreated, gin.H{
		"item":          item,
		"tracking_code": item.Code,
	})
}

func (h *ItemHandler) List(c *gin.Context) {
	items, err := h.service.List(c.Request.Context())
	if err != nil {
		respondError(c, h.log, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"items": items, "count": len(items)})
}

func (h *ItemHandler) Get(c *gin.Context) {
	item, err := h.service.Get(c.Request.Context(), c.Param("code"))
	if err != nil {
		respondError(c, h.log, err)
		return
	}
	c.JSON(http.StatusOK, item)
}

// Open is called when a repairer opens an item to work on it; the first open
// advances the item to In Progress, later opens are no-ops.
func (h *ItemHandler) Open(c *gin.Context) {
	item, err := h.service.AdvanceToInProgress(c.Request.Context(), c.Param("code"))
	if err != nil {
		respondError(c, h.log, err)
		return
	}
	c.JSON(http.StatusOK, item)
}

func (h *ItemHandler) Complete(c *gin.Context) {
	var req CompleteRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	item, err := h.service.CompleteWithAdvice(c.Request.Context(), c.Param("code"), req.Advice, req.Outcome)
	if err != nil {
		respondError(c, h.log, err)
		return
	}
	c.JSON(http.StatusOK, item)
}

// GetForDelivery is the counter's lookup step before confirming a delivery.
func (h *ItemHandler) GetForDelivery(c *gin.Context) {
	item, err := h.service.GetForDelivery(c.Request.Context(), c.Param("code"))
	if err != nil {
		respondError(c, h.log, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"item":           item,
		"subtotal_cents": core.MaterialsSubtotal(item.Materials),
	})
}

func (h *ItemHandler) Deliver(c *gin.Context) {
	item, err := h.service.Deliver(c.Request.Context(), c.Param("code"))
	if err != nil {
		respondError(c, h.log, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"item":           item,
		"subtotal_cents": core.MaterialsSubtotal(item.Materials),
	})
}

func (h *ItemHandler) Update(c *gin.Context) {
	var req UpdateItemRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	item, err := h.service.Update(c.Request.Context(), c.Param("code"), core.UpdateItemInput{
		ItemDescription:    req.ItemDescription,
		ProblemDescription: req.ProblemDescription,
		DepartmentID:       req.DepartmentID,
		StatusID:           req.StatusID,
	})
	if err != nil {
		respondError(c, h.log, err)
		return
	}
	c.JSON(http.StatusOK, item)
}

func (h *ItemHandler) Delete(c *gin.Context) {
	if err := h.service.Delete(c.Request.Context(), c.Param("code")); err != nil {
		respondError(c, h.log, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "item deleted"})
}

func (h *ItemHandler) AddMaterial(c *gin.Context) {
	var req MaterialUsageRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	item, err := h.service.AddMaterialUsage(c.Request.Context(), c.Param("code"), req.MaterialID, req.Quantity)
	if err != nil {
		respondError(c, h.log, err)
		return
	}
	c.JSON(http.StatusOK, item)
}

func (h *ItemHandler) SetMaterial(c *gin.Context) {
	materialID, err := strconv.ParseInt(c.Param("materialID"), 10, 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid material id"})
		return
	}

	var req SetUsageRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	item, err := h.service.SetMaterialUsage(c.Request.Context(), c.Param("code"), materialID, req.Quantity)
	if err != nil {
		respondError(c, h.log, err)
		return
	}
	c.JSON(http.StatusOK, item)
}

func (h *ItemHandler) RemoveMaterial(c *gin.Context) {
	materialID, err := strconv.ParseInt(c.Param("materialID"), 10, 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid material id"})
		return
	}

	item, err := h.service.RemoveMaterialUsage(c.Request.Context(), c.Param("code"), materialID)
	if err != nil {
		respondError(c, h.log, err)
		return
	}
	c.JSON(http.StatusOK, item)
}
