package handlers

import (
	"database/sql"
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/opencafe/intake/internal/db"
)

// CatalogHandler covers the admin-managed reference data: departments,
// materials, intake windows, statuses and customers.
type CatalogHandler struct {
	store *db.Store
	log   *slog.Logger
}

func NewCatalogHandler(store *db.Store, log *slog.Logger) *CatalogHandler {
	return &CatalogHandler{store: store, log: log}
}

type NameRequest struct {
	Name string `json:"name" binding:"required"`
}

type MaterialRequest struct {
	Name           string `json:"name" binding:"required"`
	UnitPriceCents int64  `json:"unit_price_cents"`
}

type WindowRequest struct {
	StartsAt time.Time `json:"starts_at" binding:"required"`
	EndsAt   time.Time `json:"ends_at" binding:"required"`
}

func pathID(c *gin.Context) (int64, bool) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid id"})
		return 0, false
	}
	return id, true
}

func (h *CatalogHandler) ListDepartments(c *gin.Context) {
	departments, err := h.store.ListDepartments(c.Request.Context())
	if err != nil {
		respondError(c, h.log, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"departments": departments})
}

func (h *CatalogHandler) CreateDepartment(c *gin.Context) {
	var req NameRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	id, err := h.store.CreateDepartment(c.Request.Context(), req.Name)
	if err != nil {
		respondError(c, h.log, err)
		return
	}
	c.JSON(http.StatusCreated, db.Department{ID: id, Name: req.Name})
}

func (h *CatalogHandler) UpdateDepartment(c *gin.Context) {
	id, ok := pathID(c)
	if !ok {
		return
	}

	var req NameRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	if _, err := h.store.GetDepartment(c.Request.Context(), id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			c.JSON(http.StatusNotFound, gin.H{"error": "department not found"})
			return
		}
		respondError(c, h.log, err)
		return
	}

	if err := h.store.UpdateDepartment(c.Request.Context(), id, req.Name); err != nil {
		respondError(c, h.log, err)
		return
	}
	c.JSON(http.StatusOK, db.Department{ID: id, Name: req.Name})
}

// DeleteDepartment refuses while any item still references the department.
func (h *CatalogHandler) DeleteDepartment(c *gin.Context) {
	id, ok := pathID(c)
	if !ok {
		return
	}

	count, err := h.store.CountItemsByDepartment(c.Request.Context(), id)
	if err != nil {
		respondError(c, h.log, err)
		return
	}
	if count > 0 {
		c.JSON(http.StatusConflict, gin.H{"error": "department is still referenced by items"})
		return
	}

	if err := h.store.DeleteDepartment(c.Request.Context(), id); err != nil {
		respondError(c, h.log, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "department deleted"})
}

func (h *CatalogHandler) ListMaterials(c *gin.Context) {
	materials, err := h.store.ListMaterials(c.Request.Context())
	if err != nil {
		respondError(c, h.log, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"materials": materials})
}

func (h *CatalogHandler) CreateMaterial(c *gin.Context) {
	var req MaterialRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if req.UnitPriceCents < 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "unit price cannot be negative"})
		return
	}

	m := &db.Material{Name: req.Name, UnitPriceCents: req.UnitPriceCents}
	if err := h.store.CreateMaterial(c.Request.Context(), m); err != nil {
		respondError(c, h.log, err)
		return
	}
	c.JSON(http.StatusCreated, m)
}

func (h *CatalogHandler) UpdateMaterial(c *gin.Context) {
	id, ok := pathID(c)
	if !ok {
		return
	}

	var req MaterialRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if req.UnitPriceCents < 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "unit price cannot be negative"})
		return
	}

	if _, err := h.store.GetMaterial(c.Request.Context(), id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			c.JSON(http.StatusNotFound, gin.H{"error": "material not found"})
			return
		}
		respondError(c, h.log, err)
		return
	}

	m := &db.Material{ID: id, Name: req.Name, UnitPriceCents: req.UnitPriceCents}
	if err := h.store.UpdateMaterial(c.Request.Context(), m); err != nil {
		respondError(c, h.log, err)
		return
	}
	c.JSON(http.StatusOK, m)
}

// DeleteMaterial refuses while any item still records usage of the material.
func (h *CatalogHandler) DeleteMaterial(c *gin.Context) {
	id, ok := pathID(c)
	if !ok {
		return
	}

	count, err := h.store.CountUsageByMaterial(c.Request.Context(), id)
	if err != nil {
		respondError(c, h.log, err)
		return
	}
	if count > 0 {
		c.JSON(http.StatusConflict, gin.H{"error": "material is still recorded against items"})
		return
	}

	if err := h.store.DeleteMaterial(c.Request.Context(), id); err != nil {
		respondError(c, h.log, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "material deleted"})
}

func (h *CatalogHandler) ListWindows(c *gin.Context) {
	windows, err := h.store.ListWindows(c.Request.Context())
	if err != nil {
		respondError(c, h.log, err)
		return
	}

	active, err := h.store.ActiveWindow(c.Request.Context(), time.Now())
	if err != nil && !errors.Is(err, sql.ErrNoRows) {
		respondError(c, h.log, err)
		return
	}

	resp := gin.H{"windows": windows}
	if active != nil {
		resp["active"] = active
	}
	c.JSON(http.StatusOK, resp)
}

func (h *CatalogHandler) CreateWindow(c *gin.Context) {
	var req WindowRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if !req.EndsAt.After(req.StartsAt) {
		c.JSON(http.StatusBadRequest, gin.H{"error": "window must end after it starts"})
		return
	}

	w := &db.IntakeWindow{StartsAt: req.StartsAt, EndsAt: req.EndsAt}
	if err := h.store.CreateWindow(c.Request.Context(), w); err != nil {
		respondError(c, h.log, err)
		return
	}
	c.JSON(http.StatusCreated, w)
}

func (h *CatalogHandler) UpdateWindow(c *gin.Context) {
	id, ok := pathID(c)
	if !ok {
		return
	}

	var req WindowRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if !req.EndsAt.After(req.StartsAt) {
		c.JSON(http.StatusBadRequest, gin.H{"error": "window must end after it starts"})
		return
	}

	w := &db.IntakeWindow{ID: id, StartsAt: req.StartsAt, EndsAt: req.EndsAt}
	if err := h.store.UpdateWindow(c.Request.Context(), w); err != nil {
		respondError(c, h.log, err)
		return
	}
	c.JSON(http.StatusOK, w)
}

func (h *CatalogHandler) DeleteWindow(c *gin.Context) {
	id, ok := pathID(c)
	if !ok {
		return
	}

	if err := h.store.DeleteWindow(c.Request.Context(), id); err != nil {
		respondError(c, h.log, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "intake window deleted"})
}

func (h *CatalogHandler) ListStatuses(c *gin.Context) {
	statuses, err := h.store.ListStatuses(c.Request.Context())
	if err != nil {
		respondError(c, h.log, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"statuses": statuses})
}

func (h *CatalogHandler) ListCustomerTypes(c *gin.Context) {
	types, err := h.store.ListCustomerTypes(c.Request.Context())
	if err != nil {
		respondError(c, h.log, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"customer_types": types})
}

func (h *CatalogHandler) ListCustomers(c *gin.Context) {
	customers, err := h.store.ListCustomers(c.Request.Context())
	if err != nil {
		respondError(c, h.log, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"customers": customers, "count": len(customers)})
}
