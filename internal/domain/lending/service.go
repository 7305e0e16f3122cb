// Package lending gates borrow and repay requests against the ledger's
// current score and loan state. The evaluation itself is pure; the service
// re-reads ledger state immediately before every gated mutation so decisions
// never rest on stale data.
package lending

import (
	"context"
	"errors"
	"fmt"
	"math/big"
	"strings"
	"time"

	"github.com/codemicah/okx-credit-score/internal/addr"
	"github.com/codemicah/okx-credit-score/internal/ledger"
)

const MinBorrowScore = 300

// Rejection reasons carried by EligibilityError.
const (
	ReasonScoreBelowMinimum = "score_below_minimum"
	ReasonOutstandingLoan   = "outstanding_loan"
	ReasonNoAddressBound    = "no_address_bound"
	ReasonNoOutstandingLoan = "no_outstanding_loan"
)

// EligibilityError is a normal rejected-request outcome, not a system error.
// Reasons lists every unmet condition.
type EligibilityError struct {
	Reasons []string
}

func (e *EligibilityError) Error() string {
	return "ineligible: " + strings.Join(e.Reasons, ", ")
}

// Evaluation is the engine's decision for one address at one read of the
// ledger. Currency figures are whole USD.
type Evaluation struct {
	Score                uint64 `json:"score"`
	CreditLimitUSD       uint64 `json:"creditLimit"`
	AvailableToBorrowUSD uint64 `json:"availableToBorrow"`
	HasOutstandingLoan   bool   `json:"hasOutstandingLoan"`
	CanBorrow            bool   `json:"canBorrow"`
}

// Evaluate applies the lending rules to a score and loan record.
func Evaluate(score uint64, loan ledger.LoanRecord) Evaluation {
	outstanding := loan.Outstanding()
	creditLimit := score * 10

	available := creditLimit / 2
	if outstanding {
		available = 0
	}

	return Evaluation{
		Score:                score,
		CreditLimitUSD:       creditLimit,
		AvailableToBorrowUSD: available,
		HasOutstandingLoan:   outstanding,
		CanBorrow:            score >= MinBorrowScore && !outstanding,
	}
}

// RepayQuote prices the repayment of an outstanding loan at the fixed
// configured rate.
type RepayQuote struct {
	LoanAmountMicro uint64   `json:"loanAmount"`
	DueDate         int64    `json:"dueDate"`
	ETHPriceUSD     uint64   `json:"ethPriceUsd"`
	PaymentWei      *big.Int `json:"paymentWei"`
}

type Service struct {
	ledger         ledger.Ledger
	ethPriceUSD    uint64
	confirmTimeout time.Duration
}

func NewService(l ledger.Ledger, ethPriceUSD uint64, confirmTimeout time.Duration) *Service {
	if ethPriceUSD == 0 {
		ethPriceUSD = 3000
	}
	if confirmTimeout <= 0 {
		confirmTimeout = 30 * time.Second
	}
	return &Service{ledger: l, ethPriceUSD: ethPriceUSD, confirmTimeout: confirmTimeout}
}

// Status reads fresh ledger state and evaluates it. Advisory: a later Borrow
// re-reads on its own.
func (s *Service) Status(ctx context.Context, address string) (*Evaluation, *ledger.State, *ledger.LoanRecord, error) {
	normalized, err := addr.Normalize(address)
	if err != nil {
		return nil, nil, nil, err
	}
	state, loan, err := s.read(ctx, normalized)
	if err != nil {
		return nil, nil, nil, err
	}
	eval := Evaluate(state.Score, *loan)
	return &eval, state, loan, nil
}

// Borrow submits a borrow for the bound address after re-validating
// eligibility against a fresh ledger read, then waits for confirmation. The
// ledger sizes and creates the loan.
func (s *Service) Borrow(ctx context.Context, address string) (string, error) {
	if strings.TrimSpace(address) == "" {
		return "", &EligibilityError{Reasons: []string{ReasonNoAddressBound}}
	}
	normalized, err := addr.Normalize(address)
	if err != nil {
		return "", err
	}

	state, loan, err := s.read(ctx, normalized)
	if err != nil {
		return "", err
	}

	var reasons []string
	if state.Score < MinBorrowScore {
		reasons = append(reasons, ReasonScoreBelowMinimum)
	}
	if loan.Outstanding() {
		reasons = append(reasons, ReasonOutstandingLoan)
	}
	if len(reasons) > 0 {
		return "", &EligibilityError{Reasons: reasons}
	}

	txHash, err := s.ledger.SubmitBorrow(ctx, normalized)
	if err != nil {
		return "", err
	}
	if err := s.waitConfirmed(ctx, txHash); err != nil {
		return "", err
	}
	return txHash, nil
}

// Quote prices the outstanding loan's repayment. Callers settle with exactly
// this amount; the ledger checks against the same configured rate, and any
// divergence between the two rates surfaces as a ledger rejection.
func (s *Service) Quote(ctx context.Context, address string) (*RepayQuote, error) {
	normalized, err := addr.Normalize(address)
	if err != nil {
		return nil, err
	}
	loan, err := s.ledger.Loan(ctx, normalized)
	if err != nil {
		return nil, err
	}
	if !loan.Outstanding() {
		return nil, &EligibilityError{Reasons: []string{ReasonNoOutstandingLoan}}
	}
	return &RepayQuote{
		LoanAmountMicro: loan.AmountMicro,
		DueDate:         loan.DueDate,
		ETHPriceUSD:     s.ethPriceUSD,
		PaymentWei:      ledger.RequiredPaymentWei(loan.AmountMicro, s.ethPriceUSD),
	}, nil
}

// Repay settles the outstanding loan at the fixed-rate quote and waits for
// confirmation.
func (s *Service) Repay(ctx context.Context, address string) (string, error) {
	if strings.TrimSpace(address) == "" {
		return "", &EligibilityError{Reasons: []string{ReasonNoAddressBound}}
	}
	quote, err := s.Quote(ctx, address)
	if err != nil {
		return "", err
	}
	normalized, err := addr.Normalize(address)
	if err != nil {
		return "", err
	}

	txHash, err := s.ledger.SubmitRepay(ctx, normalized, quote.PaymentWei)
	if err != nil {
		return "", err
	}
	if err := s.waitConfirmed(ctx, txHash); err != nil {
		return "", err
	}
	return txHash, nil
}

func (s *Service) read(ctx context.Context, normalized string) (*ledger.State, *ledger.LoanRecord, error) {
	state, err := s.ledger.State(ctx, normalized)
	if err != nil {
		return nil, nil, fmt.Errorf("read ledger state: %w", err)
	}
	loan, err := s.ledger.Loan(ctx, normalized)
	if err != nil {
		return nil, nil, fmt.Errorf("read loan record: %w", err)
	}
	return state, loan, nil
}

func (s *Service) waitConfirmed(ctx context.Context, txHash string) error {
	confirmCtx, cancel := context.WithTimeout(ctx, s.confirmTimeout)
	defer cancel()
	return s.ledger.WaitConfirmed(confirmCtx, txHash)
}

// IsEligibilityError reports whether err is a business-rule rejection rather
// than a system failure.
func IsEligibilityError(err error) bool {
	var e *EligibilityError
	return errors.As(err, &e)
}
