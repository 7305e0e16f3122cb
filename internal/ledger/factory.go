package ledger

import (
	"fmt"
	"strings"

	"github.com/codemicah/okx-credit-score/internal/config"
)

func NewLedgerFromConfig(cfg config.Config) (Ledger, error) {
	mode := strings.ToLower(strings.TrimSpace(cfg.LedgerMode))
	if mode == "" || mode == "stub" {
		return NewStubLedger(cfg.ETHPriceUSD), nil
	}
	if mode != "rpc" {
		return nil, fmt.Errorf("invalid LEDGER_MODE: %s", cfg.LedgerMode)
	}
	return NewRPCLedger(
		cfg.LedgerHTTPRPC,
		cfg.LedgerFromAddress,
		cfg.CreditScoreAddress,
		cfg.LendingAddress,
		cfg.LedgerGasLimit,
		cfg.ConfirmPollInterval,
	)
}
