// Package ledger is the boundary to the authoritative score and loan store.
// The ledger owns all durable state and serializes concurrent writes per
// address; this service only submits writes and reads state back. A write is
// complete only once the ledger has confirmed it.
package ledger

import (
	"context"
	"errors"
	"math/big"
)

var (
	// ErrRejected means the ledger refused a submission, e.g. an invariant
	// violation or an underpaid repayment.
	ErrRejected = errors.New("ledger rejected submission")

	// ErrTimeout means confirmation was not observed within the bound. The
	// outcome is ambiguous: the write may still land later, so callers must
	// re-read ledger state rather than assume failure.
	ErrTimeout = errors.New("ledger confirmation timed out")
)

// State is the ledger's current view of an address.
type State struct {
	Score       uint64
	VolumeMicro uint64
	TradeCount  uint64
}

// LoanRecord holds the single loan slot per address. A repaid record keeps
// its historical amount until the next borrow overwrites it.
type LoanRecord struct {
	AmountMicro uint64
	DueDate     int64
	Repaid      bool
}

// Outstanding reports whether the record blocks a new borrow.
func (l LoanRecord) Outstanding() bool {
	return l.AmountMicro > 0 && !l.Repaid
}

// ReceiptStatus is the confirmation state of a submitted write.
type ReceiptStatus int

const (
	ReceiptPending ReceiptStatus = iota
	ReceiptConfirmed
	ReceiptRejected
)

type Reader interface {
	State(ctx context.Context, address string) (*State, error)
	Loan(ctx context.Context, address string) (*LoanRecord, error)
}

type Writer interface {
	// SubmitScoreUpdate pushes raw metrics; the ledger recomputes the score.
	SubmitScoreUpdate(ctx context.Context, address string, volumeMicro, tradeCount uint64) (txHash string, err error)
	SubmitBorrow(ctx context.Context, address string) (txHash string, err error)
	SubmitRepay(ctx context.Context, address string, paymentWei *big.Int) (txHash string, err error)

	// Receipt checks a submission once without blocking.
	Receipt(ctx context.Context, txHash string) (ReceiptStatus, error)

	// WaitConfirmed blocks until the submission is durably confirmed or the
	// context expires. Returns ErrRejected or ErrTimeout accordingly.
	WaitConfirmed(ctx context.Context, txHash string) error
}

type Ledger interface {
	Reader
	Writer
}
