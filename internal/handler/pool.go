// Package handler exposes the contribution pool over HTTP.
package handler

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/fundpool/fundpool/internal/ledger"
	"github.com/fundpool/fundpool/internal/oracle"
)

// PoolHandler exposes the pool's deposit, withdrawal, and view operations.
type PoolHandler struct {
	pool   *ledger.Pool
	rates  *oracle.Adapter
	logger *zap.Logger
}

// NewPoolHandler creates a new PoolHandler.
func NewPoolHandler(pool *ledger.Pool, rates *oracle.Adapter, logger *zap.Logger) *PoolHandler {
	return &PoolHandler{pool: pool, rates: rates, logger: logger}
}

// Register mounts the pool routes on the given router group. The mutating
// routes require a verified caller identity supplied by the auth middleware.
func (h *PoolHandler) Register(rg *gin.RouterGroup, auth gin.HandlerFunc) {
	p := rg.Group("/pool")
	{
		p.GET("", h.Overview)
		p.GET("/contributors", h.Contributors)
		p.GET("/contributors/:idx", h.ContributorAt)
		p.GET("/contributions/:identity", h.Contribution)
		p.POST("/deposits", auth, h.Deposit)
		p.POST("/withdrawals", auth, h.Withdraw)
	}
}

// depositRequest is the payload for POST /pool/deposits. Amount is a decimal
// string in native units ("0.1"); precision beyond 18 fractional digits is
// truncated.
type depositRequest struct {
	Amount string `json:"amount" binding:"required"`
}

// withdrawRequest is the payload for POST /pool/withdrawals.
type withdrawRequest struct {
	// Compact selects the storage-compacting withdrawal variant. The two
	// variants are observably equivalent.
	Compact bool `json:"compact"`
}

// Overview handles GET /pool — the pool's current state and configuration.
func (h *PoolHandler) Overview(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"owner":                 string(h.pool.Owner()),
		"balance":               h.pool.Balance().String(),
		"contributor_count":     h.pool.ContributorCount(),
		"minimum_usd_threshold": h.pool.MinimumUSDThreshold().String(),
		"cycle":                 h.pool.Cycle(),
		"oracle_schema_version": h.rates.SchemaVersion(),
	})
}

// Deposit handles POST /pool/deposits.
func (h *PoolHandler) Deposit(c *gin.Context) {
	caller, ok := CallerFrom(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "caller identity required"})
		return
	}

	var req depositRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "amount is required"})
		return
	}

	amount, err := oracle.ParseDecimal(req.Amount, 18)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "amount must be a non-negative decimal"})
		return
	}

	if err := h.pool.Deposit(c.Request.Context(), caller, amount); err != nil {
		h.renderPoolError(c, err, "deposit")
		RecordDeposit(false)
		return
	}

	RecordDeposit(true)
	SetPoolGauges(h.pool.Balance(), h.pool.ContributorCount())
	c.JSON(http.StatusCreated, gin.H{
		"contributor": string(caller),
		"amount":      amount.String(),
		"total":       h.pool.AmountContributed(caller).String(),
	})
}

// Withdraw handles POST /pool/withdrawals — owner-only.
func (h *PoolHandler) Withdraw(c *gin.Context) {
	caller, ok := CallerFrom(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "caller identity required"})
		return
	}

	var req withdrawRequest
	if err := c.ShouldBindJSON(&req); err != nil && c.Request.ContentLength > 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "malformed request body"})
		return
	}

	payout := h.pool.Balance()
	withdraw := h.pool.Withdraw
	variant := "plain"
	if req.Compact {
		withdraw = h.pool.WithdrawCompact
		variant = "compact"
	}

	if err := withdraw(c.Request.Context(), caller); err != nil {
		h.renderPoolError(c, err, "withdraw")
		RecordWithdrawal(false, variant)
		return
	}

	RecordWithdrawal(true, variant)
	SetPoolGauges(h.pool.Balance(), h.pool.ContributorCount())
	c.JSON(http.StatusOK, gin.H{
		"owner":  string(caller),
		"payout": payout.String(),
		"cycle":  h.pool.Cycle(),
	})
}

// Contributors handles GET /pool/contributors — all contributors with their
// cumulative amounts, in first-deposit order.
func (h *PoolHandler) Contributors(c *gin.Context) {
	type row struct {
		Identity string `json:"identity"`
		Amount   string `json:"amount"`
	}

	count := h.pool.ContributorCount()
	rows := make([]row, 0, count)
	for i := 0; i < count; i++ {
		id, err := h.pool.ContributorAt(i)
		if err != nil {
			// The pool shrank between count and read; the shorter list is
			// still a consistent snapshot.
			break
		}
		rows = append(rows, row{
			Identity: string(id),
			Amount:   h.pool.AmountContributed(id).String(),
		})
	}

	c.JSON(http.StatusOK, gin.H{"count": len(rows), "contributors": rows})
}

// ContributorAt handles GET /pool/contributors/:idx.
func (h *PoolHandler) ContributorAt(c *gin.Context) {
	idx, err := strconv.Atoi(c.Param("idx"))
	if err != nil || idx < 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "idx must be a non-negative integer"})
		return
	}

	id, err := h.pool.ContributorAt(idx)
	if err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "no contributor at index"})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"index":    idx,
		"identity": string(id),
		"amount":   h.pool.AmountContributed(id).String(),
	})
}

// Contribution handles GET /pool/contributions/:identity. Unknown identities
// read a zero amount rather than 404, matching the ledger view semantics.
func (h *PoolHandler) Contribution(c *gin.Context) {
	id := ledger.Identity(c.Param("identity"))
	c.JSON(http.StatusOK, gin.H{
		"identity": string(id),
		"amount":   h.pool.AmountContributed(id).String(),
	})
}

// renderPoolError maps the pool's typed failures onto HTTP statuses.
func (h *PoolHandler) renderPoolError(c *gin.Context, err error, op string) {
	switch {
	case errors.Is(err, ledger.ErrInsufficientContribution):
		c.JSON(http.StatusUnprocessableEntity, gin.H{"error": err.Error()})
	case errors.Is(err, ledger.ErrUnauthorized):
		c.JSON(http.StatusForbidden, gin.H{"error": "only the pool owner may withdraw"})
	case errors.Is(err, oracle.ErrOracleUnavailable):
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "price oracle unavailable, retry later"})
	case errors.Is(err, ledger.ErrTransferFailed):
		c.JSON(http.StatusBadGateway, gin.H{"error": "value transfer failed, no state was changed"})
	default:
		h.logger.Error("pool operation failed", zap.String("op", op), zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal error"})
	}
}
