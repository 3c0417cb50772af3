package controllers

import (
	"context"
	"net/http"
	"strconv"

	"recovery-service/models"
	"recovery-service/services"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

// RecoveryController handles HTTP requests for the recovery pipeline.
type RecoveryController struct {
	scanService services.ScanRunner
	manager     services.CartRecoveryService
}

// NewRecoveryController creates a new RecoveryController.
func NewRecoveryController(scanService services.ScanRunner, manager services.CartRecoveryService) *RecoveryController {
	return &RecoveryController{scanService: scanService, manager: manager}
}

// TriggerScan handles POST /recovery/scan. Per-store failures are reflected
// in the summary's error count; only a top-level fault is a 500.
func (rc *RecoveryController) TriggerScan(c *gin.Context) {
	// A scan pass can outlive the request timeout; run it on a fresh context.
	summary, err := rc.scanService.RunScan(context.Background())
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Scan failed", "details": err.Error()})
		return
	}
	c.JSON(http.StatusOK, summary)
}

// LastScan handles GET /recovery/scan/last.
func (rc *RecoveryController) LastScan(c *gin.Context) {
	summary, err := rc.scanService.LastSummary(c.Request.Context())
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to load last scan summary"})
		return
	}
	if summary == nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "No scan has run yet"})
		return
	}
	c.JSON(http.StatusOK, summary)
}

// GetStats handles GET /recovery/stats?store_id=
func (rc *RecoveryController) GetStats(c *gin.Context) {
	storeID, err := uuid.Parse(c.Query("store_id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid store_id"})
		return
	}

	stats, svcErr := rc.manager.Stats(c.Request.Context(), storeID)
	if svcErr != nil {
		c.JSON(svcErr.StatusCode, gin.H{"error": svcErr.Message})
		return
	}
	c.JSON(http.StatusOK, stats)
}

// ListCarts handles GET /recovery/carts?store_id=&status=&page=&limit=
func (rc *RecoveryController) ListCarts(c *gin.Context) {
	storeID, err := uuid.Parse(c.Query("store_id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid store_id"})
		return
	}
	status := models.RecoveryStatus(c.Query("status"))
	page, limit := parsePaginationParams(c)

	carts, total, svcErr := rc.manager.ListCarts(c.Request.Context(), storeID, status, page, limit)
	if svcErr != nil {
		c.JSON(svcErr.StatusCode, gin.H{"error": svcErr.Message})
		return
	}
	c.JSON(http.StatusOK, gin.H{"carts": carts, "total": total, "page": page, "limit": limit})
}

// SendMessage handles POST /recovery/carts/:id/message
func (rc *RecoveryController) SendMessage(c *gin.Context) {
	cartID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid cart id"})
		return
	}

	if svcErr := rc.manager.SendMessage(c.Request.Context(), cartID); svcErr != nil {
		c.JSON(svcErr.StatusCode, gin.H{"error": svcErr.Message})
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "sent"})
}

// Recover handles GET /r/:cart_id?code= — the link customers follow from a
// recovery message. Redirects to the checkout when one can be resolved.
func (rc *RecoveryController) Recover(c *gin.Context) {
	cartID, err := uuid.Parse(c.Param("cart_id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid cart id"})
		return
	}
	code := c.Query("code")

	checkoutURL, svcErr := rc.manager.Recover(c.Request.Context(), cartID, code)
	if svcErr != nil {
		c.JSON(svcErr.StatusCode, gin.H{"error": svcErr.Message})
		return
	}
	if checkoutURL == "" {
		c.JSON(http.StatusOK, gin.H{"status": "recovered"})
		return
	}
	c.Redirect(http.StatusFound, checkoutURL)
}

// parsePaginationParams extracts and validates page/limit query params.
func parsePaginationParams(c *gin.Context) (int, int) {
	const maxLimit = 100
	pageInt, limitInt := 1, 20
	if p, err := strconv.Atoi(c.DefaultQuery("page", "1")); err == nil && p > 0 {
		pageInt = p
	}
	if l, err := strconv.Atoi(c.DefaultQuery("limit", "20")); err == nil && l > 0 {
		if l > maxLimit {
			l = maxLimit
		}
		limitInt = l
	}
	return pageInt, limitInt
}
