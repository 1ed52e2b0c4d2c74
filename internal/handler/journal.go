package handler

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/fundpool/fundpool/internal/journal"
)

// JournalHandler exposes read-only HTTP endpoints for the audit journal.
type JournalHandler struct {
	journal journal.Journal
	logger  *zap.Logger
}

// NewJournalHandler creates a new JournalHandler.
func NewJournalHandler(j journal.Journal, logger *zap.Logger) *JournalHandler {
	return &JournalHandler{journal: j, logger: logger}
}

// Register mounts the journal routes on the given router group.
func (h *JournalHandler) Register(rg *gin.RouterGroup) {
	j := rg.Group("/journal")
	{
		j.GET("", h.Overview)
		j.GET("/verify", h.Verify)
		j.GET("/entries/:idx", h.GetEntry)
	}
}

// Overview handles GET /journal — the chain length and current root hash.
func (h *JournalHandler) Overview(c *gin.Context) {
	ctx := c.Request.Context()

	count, err := h.journal.Len(ctx)
	if err != nil {
		h.logger.Error("journal Len", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to query journal"})
		return
	}

	root, err := h.journal.Root(ctx)
	if err != nil {
		h.logger.Error("journal Root", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to query journal root"})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"entries": count,
		"root":    root,
	})
}

// Verify handles GET /journal/verify — walks the full chain and reports integrity.
func (h *JournalHandler) Verify(c *gin.Context) {
	ctx := c.Request.Context()

	if err := h.journal.Verify(ctx); err != nil {
		h.logger.Warn("journal integrity check failed", zap.Error(err))
		c.JSON(http.StatusOK, gin.H{
			"valid": false,
			"error": err.Error(),
		})
		return
	}

	c.JSON(http.StatusOK, gin.H{"valid": true})
}

// GetEntry handles GET /journal/entries/:idx — returns a single journal entry.
func (h *JournalHandler) GetEntry(c *gin.Context) {
	ctx := c.Request.Context()

	idx, err := strconv.Atoi(c.Param("idx"))
	if err != nil || idx < 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "idx must be a non-negative integer"})
		return
	}

	entry, err := h.journal.Get(ctx, idx)
	if err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "entry not found"})
		return
	}

	c.JSON(http.StatusOK, entry)
}
