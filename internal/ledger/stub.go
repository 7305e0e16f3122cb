package ledger

import (
	"context"
	"fmt"
	"math/big"
	"sync"
	"time"

	"github.com/codemicah/okx-credit-score/internal/scoring"
)

const (
	stubMinBorrowScore = 300
	stubLoanTermDays   = 30
)

// StubLedger is an in-memory ledger for local and test runs. It applies the
// same scoring and lending rules the on-chain contracts do, so the full sync
// and borrow flow works without a node. Writes confirm on the first receipt
// check; rule violations surface as rejected receipts, matching how a revert
// shows up on a real chain.
type StubLedger struct {
	ethPriceUSD uint64
	now         func() time.Time

	mu       sync.Mutex
	states   map[string]*State
	loans    map[string]*LoanRecord
	receipts map[string]ReceiptStatus
	seq      uint64
}

func NewStubLedger(ethPriceUSD uint64) *StubLedger {
	if ethPriceUSD == 0 {
		ethPriceUSD = 3000
	}
	return &StubLedger{
		ethPriceUSD: ethPriceUSD,
		now:         func() time.Time { return time.Now().UTC() },
		states:      map[string]*State{},
		loans:       map[string]*LoanRecord{},
		receipts:    map[string]ReceiptStatus{},
	}
}

func (l *StubLedger) State(_ context.Context, address string) (*State, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if s, ok := l.states[address]; ok {
		cp := *s
		return &cp, nil
	}
	return &State{}, nil
}

func (l *StubLedger) Loan(_ context.Context, address string) (*LoanRecord, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if rec, ok := l.loans[address]; ok {
		cp := *rec
		return &cp, nil
	}
	return &LoanRecord{}, nil
}

func (l *StubLedger) SubmitScoreUpdate(_ context.Context, address string, volumeMicro, tradeCount uint64) (string, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	l.states[address] = &State{
		Score:       scoring.Score(volumeMicro, tradeCount),
		VolumeMicro: volumeMicro,
		TradeCount:  tradeCount,
	}
	return l.record(ReceiptConfirmed), nil
}

func (l *StubLedger) SubmitBorrow(_ context.Context, address string) (string, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	state, ok := l.states[address]
	if !ok || state.Score < stubMinBorrowScore {
		return l.record(ReceiptRejected), nil
	}
	if rec, ok := l.loans[address]; ok && rec.Outstanding() {
		return l.record(ReceiptRejected), nil
	}

	// creditLimit = score*10 USD; half of it is lent, stored in micro-units.
	amountMicro := state.Score * 5 * 1_000_000
	l.loans[address] = &LoanRecord{
		AmountMicro: amountMicro,
		DueDate:     l.now().AddDate(0, 0, stubLoanTermDays).Unix(),
		Repaid:      false,
	}
	return l.record(ReceiptConfirmed), nil
}

func (l *StubLedger) SubmitRepay(_ context.Context, address string, paymentWei *big.Int) (string, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	rec, ok := l.loans[address]
	if !ok || !rec.Outstanding() {
		return l.record(ReceiptRejected), nil
	}

	required := RequiredPaymentWei(rec.AmountMicro, l.ethPriceUSD)
	if paymentWei == nil || paymentWei.Cmp(required) < 0 {
		return l.record(ReceiptRejected), nil
	}

	rec.Repaid = true
	return l.record(ReceiptConfirmed), nil
}

func (l *StubLedger) Receipt(_ context.Context, txHash string) (ReceiptStatus, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	status, ok := l.receipts[txHash]
	if !ok {
		return ReceiptPending, fmt.Errorf("unknown tx hash %s", txHash)
	}
	return status, nil
}

func (l *StubLedger) WaitConfirmed(ctx context.Context, txHash string) error {
	status, err := l.Receipt(ctx, txHash)
	if err != nil {
		return err
	}
	switch status {
	case ReceiptRejected:
		return fmt.Errorf("%w: %s", ErrRejected, txHash)
	case ReceiptPending:
		return fmt.Errorf("%w: %s", ErrTimeout, txHash)
	}
	return nil
}

func (l *StubLedger) record(status ReceiptStatus) string {
	l.seq++
	hash := fmt.Sprintf("0xstub%016x%x", l.seq, l.now().UnixNano())
	l.receipts[hash] = status
	return hash
}

// RequiredPaymentWei converts a 6-decimal loan amount into 18-decimal native
// units at a fixed whole-USD rate: amount * 10^12 / rate. Truncating integer
// division; the engine and the ledger must use the identical rate.
func RequiredPaymentWei(amountMicro, ethPriceUSD uint64) *big.Int {
	out := new(big.Int).SetUint64(amountMicro)
	out.Mul(out, big.NewInt(1_000_000_000_000))
	out.Div(out, new(big.Int).SetUint64(ethPriceUSD))
	return out
}
