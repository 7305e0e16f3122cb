package handlers

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/codemicah/okx-credit-score/internal/addr"
	"github.com/codemicah/okx-credit-score/internal/domain/lending"
	"github.com/codemicah/okx-credit-score/internal/http/middleware"
	"github.com/codemicah/okx-credit-score/internal/ledger"
	"github.com/codemicah/okx-credit-score/internal/session"
)

type LendingService interface {
	Status(ctx context.Context, address string) (*lending.Evaluation, *ledger.State, *ledger.LoanRecord, error)
	Borrow(ctx context.Context, address string) (string, error)
	Quote(ctx context.Context, address string) (*lending.RepayQuote, error)
	Repay(ctx context.Context, address string) (string, error)
}

type LendingHandler struct {
	lendingService LendingService
	guard          *session.Guard
}

func NewLendingHandler(lendingService LendingService, guard *session.Guard) *LendingHandler {
	return &LendingHandler{lendingService: lendingService, guard: guard}
}

func (h *LendingHandler) GetCredit(c *gin.Context) {
	eval, state, loan, err := h.lendingService.Status(c.Request.Context(), strings.TrimSpace(c.Param("address")))
	if err != nil {
		h.renderError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"score":      state.Score,
		"volume":     state.VolumeMicro,
		"tradeCount": state.TradeCount,
		"loan":       loanJSON(loan),
		"evaluation": eval,
	})
}

func (h *LendingHandler) GetLoan(c *gin.Context) {
	_, _, loan, err := h.lendingService.Status(c.Request.Context(), strings.TrimSpace(c.Param("address")))
	if err != nil {
		h.renderError(c, err)
		return
	}
	c.JSON(http.StatusOK, loanJSON(loan))
}

func (h *LendingHandler) GetRepayQuote(c *gin.Context) {
	quote, err := h.lendingService.Quote(c.Request.Context(), strings.TrimSpace(c.Param("address")))
	if err != nil {
		h.renderError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"loanAmount":  quote.LoanAmountMicro,
		"dueDate":     quote.DueDate,
		"ethPriceUsd": quote.ETHPriceUSD,
		"paymentWei":  quote.PaymentWei.String(),
	})
}

// Borrow and Repay share one busy slot per address with score sync: the
// guard is keyed by the normalized bound address, so a session holds at most
// one mutating operation at a time no matter which token it presents.
func (h *LendingHandler) Borrow(c *gin.Context) {
	address := c.GetString(middleware.ContextAddress)

	release, err := h.guard.Begin(address, "borrow")
	if err != nil {
		op, _ := h.guard.Current(address)
		c.JSON(http.StatusConflict, gin.H{"error": "action_in_progress", "operation": op})
		return
	}
	defer release()

	txHash, err := h.lendingService.Borrow(c.Request.Context(), address)
	if err != nil {
		h.renderError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "confirmationId": txHash})
}

func (h *LendingHandler) Repay(c *gin.Context) {
	address := c.GetString(middleware.ContextAddress)

	release, err := h.guard.Begin(address, "repay")
	if err != nil {
		op, _ := h.guard.Current(address)
		c.JSON(http.StatusConflict, gin.H{"error": "action_in_progress", "operation": op})
		return
	}
	defer release()

	txHash, err := h.lendingService.Repay(c.Request.Context(), address)
	if err != nil {
		h.renderError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "confirmationId": txHash})
}

func (h *LendingHandler) renderError(c *gin.Context, err error) {
	var elig *lending.EligibilityError
	switch {
	case errors.As(err, &elig):
		c.JSON(http.StatusBadRequest, gin.H{"error": "ineligible", "reasons": elig.Reasons})
	case errors.Is(err, addr.ErrInvalid):
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid_address"})
	case errors.Is(err, ledger.ErrTimeout):
		// Ambiguous outcome: the write may still confirm; the caller should
		// re-read state instead of retrying blindly.
		c.JSON(http.StatusGatewayTimeout, gin.H{"error": "ledger_timeout"})
	case errors.Is(err, ledger.ErrRejected):
		c.JSON(http.StatusBadRequest, gin.H{"error": "ledger_rejected"})
	default:
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal_error"})
	}
}

func loanJSON(loan *ledger.LoanRecord) gin.H {
	return gin.H{
		"amount":      loan.AmountMicro,
		"dueDate":     loan.DueDate,
		"repaid":      loan.Repaid,
		"outstanding": loan.Outstanding(),
	}
}
