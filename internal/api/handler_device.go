package api

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"pisowifi-backend/internal/hwaddr"
	"pisowifi-backend/internal/model"
	"pisowifi-backend/internal/store"
)

// macParam extracts and canonicalizes the mac_address query parameter.
func macParam(c *gin.Context) (string, bool) {
	raw := c.Query("mac_address")
	if raw == "" {
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": "mac_address is required", "success": false})
		return "", false
	}
	return hwaddr.Canonical(raw), true
}

// Connected handles POST /device/connected. An unknown device is created on
// first contact with a zero balance and counts as connected; topping it up
// is a separate step.
func (h *Handler) Connected(c *gin.Context) {
	mac, ok := macParam(c)
	if !ok {
		return
	}

	device, created, err := h.store.Connect(c.Request.Context(), mac)
	if err != nil {
		abortWithStoreError(c, err)
		return
	}

	status := http.StatusOK
	if created {
		status = http.StatusCreated
	}
	c.JSON(status, gin.H{"success": true, "device": device})
}

// Disconnected handles POST /device/disconnected.
func (h *Handler) Disconnected(c *gin.Context) {
	mac, ok := macParam(c)
	if !ok {
		return
	}

	if err := h.store.Disconnect(c.Request.Context(), mac); err != nil {
		abortWithStoreError(c, err)
		return
	}

	device, err := h.store.Get(c.Request.Context(), mac)
	if err != nil {
		abortWithStoreError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "device": device})
}

type saveDeviceRequest struct {
	MACAddress    string     `json:"mac_address" binding:"required"`
	TimeRemaining int64      `json:"time_remaining"`
	LastConnected *time.Time `json:"last_connected"`
	IsActive      bool       `json:"is_active"`
}

// SaveDevice handles POST /device/save, registering a device record directly.
func (h *Handler) SaveDevice(c *gin.Context) {
	var req saveDeviceRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error(), "success": false})
		return
	}

	device := model.Device{
		MACAddress:    hwaddr.Canonical(req.MACAddress),
		TimeRemaining: req.TimeRemaining,
		LastConnected: req.LastConnected,
		IsActive:      req.IsActive,
	}
	if err := h.store.Insert(c.Request.Context(), &device); err != nil {
		abortWithStoreError(c, err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{"success": true, "device": device})
}

type updateDeviceRequest struct {
	TimeRemaining int64      `json:"time_remaining"`
	LastConnected *time.Time `json:"last_connected"`
	IsActive      bool       `json:"is_active"`
}

// UpdateDevice handles PUT /device/:mac_address, replacing the mutable
// fields of an existing record.
func (h *Handler) UpdateDevice(c *gin.Context) {
	var req updateDeviceRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error(), "success": false})
		return
	}

	device := model.Device{
		MACAddress:    hwaddr.Canonical(c.Param("mac_address")),
		TimeRemaining: req.TimeRemaining,
		LastConnected: req.LastConnected,
		IsActive:      req.IsActive,
	}
	if err := h.store.Update(c.Request.Context(), &device); err != nil {
		abortWithStoreError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true})
}

// DeleteDevice handles DELETE /device/:mac_address.
func (h *Handler) DeleteDevice(c *gin.Context) {
	mac := hwaddr.Canonical(c.Param("mac_address"))
	if err := h.store.Delete(c.Request.Context(), mac); err != nil {
		abortWithStoreError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true})
}

// AddTime handles PATCH /device/add-time, crediting seconds to a balance.
func (h *Handler) AddTime(c *gin.Context) {
	h.adjustTime(c, h.store.AddTime)
}

// ReduceTime handles PATCH /device/reduce-time, debiting seconds with the
// floor clamped at zero.
func (h *Handler) ReduceTime(c *gin.Context) {
	h.adjustTime(c, h.store.ReduceTime)
}

func (h *Handler) adjustTime(c *gin.Context, apply func(ctx context.Context, mac string, seconds int64) error) {
	mac, ok := macParam(c)
	if !ok {
		return
	}

	seconds, err := store.ParseSeconds(c.Query("time"))
	if err != nil {
		abortWithStoreError(c, err)
		return
	}

	if err := apply(c.Request.Context(), mac, seconds); err != nil {
		abortWithStoreError(c, err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{"success": true})
}

// GetDevice handles GET /device/get.
func (h *Handler) GetDevice(c *gin.Context) {
	mac, ok := macParam(c)
	if !ok {
		return
	}

	device, err := h.store.Get(c.Request.Context(), mac)
	if err != nil {
		abortWithStoreError(c, err)
		return
	}
	c.JSON(http.StatusOK, device)
}

// IsExpired handles GET /device/expired, reporting whether the device's
// balance is exhausted.
func (h *Handler) IsExpired(c *gin.Context) {
	mac, ok := macParam(c)
	if !ok {
		return
	}

	expired, err := h.store.IsExpired(c.Request.Context(), mac)
	if err != nil {
		abortWithStoreError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"mac_address": mac, "expired": expired})
}

// ListDevices handles GET /device/list, the operator's overview.
func (h *Handler) ListDevices(c *gin.Context) {
	devices, err := h.store.List(c.Request.Context())
	if err != nil {
		abortWithStoreError(c, err)
		return
	}
	c.JSON(http.StatusOK, devices)
}
