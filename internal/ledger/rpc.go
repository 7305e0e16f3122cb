package ledger

import (
	"bytes"
	"context"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"math/big"
	"net/http"
	"regexp"
	"strconv"
	"strings"
	"time"
)

var addressPattern = regexp.MustCompile(`^0x[0-9a-fA-F]{40}$`)

// RPCLedger talks JSON-RPC to the node hosting the credit-score and lending
// contracts. Writes go through eth_sendTransaction from a node-managed
// account; reads are eth_call against the contract views.
type RPCLedger struct {
	httpURL          string
	fromAddress      string
	creditScoreAddr  string
	lendingAddr      string
	gasLimit         uint64
	confirmPollEvery time.Duration
	httpClient       *http.Client
}

func NewRPCLedger(httpURL, fromAddress, creditScoreAddr, lendingAddr string, gasLimit uint64, confirmPollEvery time.Duration) (*RPCLedger, error) {
	if strings.TrimSpace(httpURL) == "" {
		return nil, fmt.Errorf("missing LEDGER_HTTP_RPC")
	}
	if !addressPattern.MatchString(strings.TrimSpace(fromAddress)) {
		return nil, fmt.Errorf("invalid LEDGER_FROM_ADDRESS")
	}
	if !addressPattern.MatchString(strings.TrimSpace(creditScoreAddr)) {
		return nil, fmt.Errorf("invalid CREDIT_SCORE_ADDRESS")
	}
	if !addressPattern.MatchString(strings.TrimSpace(lendingAddr)) {
		return nil, fmt.Errorf("invalid LENDING_ADDRESS")
	}
	if gasLimit == 0 {
		gasLimit = 300000
	}
	if confirmPollEvery <= 0 {
		confirmPollEvery = 2 * time.Second
	}
	return &RPCLedger{
		httpURL:          strings.TrimSpace(httpURL),
		fromAddress:      strings.TrimSpace(fromAddress),
		creditScoreAddr:  strings.TrimSpace(creditScoreAddr),
		lendingAddr:      strings.TrimSpace(lendingAddr),
		gasLimit:         gasLimit,
		confirmPollEvery: confirmPollEvery,
		httpClient:       &http.Client{Timeout: 20 * time.Second},
	}, nil
}

func (l *RPCLedger) State(ctx context.Context, address string) (*State, error) {
	score, err := l.callUint(ctx, l.creditScoreAddr, "getScore", map[string]any{"user": address})
	if err != nil {
		return nil, err
	}
	volume, err := l.callUint(ctx, l.creditScoreAddr, "tradingVolume", map[string]any{"user": address})
	if err != nil {
		return nil, err
	}
	trades, err := l.callUint(ctx, l.creditScoreAddr, "tradeCount", map[string]any{"user": address})
	if err != nil {
		return nil, err
	}
	return &State{Score: score, VolumeMicro: volume, TradeCount: trades}, nil
}

func (l *RPCLedger) Loan(ctx context.Context, address string) (*LoanRecord, error) {
	var raw struct {
		Amount  string `json:"amount"`
		DueDate string `json:"dueDate"`
		Repaid  bool   `json:"repaid"`
	}
	if err := l.call(ctx, l.lendingAddr, "loans", map[string]any{"user": address}, &raw); err != nil {
		return nil, err
	}
	amount, err := parseDecOrHexUint(raw.Amount)
	if err != nil {
		return nil, fmt.Errorf("invalid loan amount: %w", err)
	}
	dueDate, err := parseDecOrHexUint(raw.DueDate)
	if err != nil {
		return nil, fmt.Errorf("invalid loan due date: %w", err)
	}
	return &LoanRecord{AmountMicro: amount, DueDate: int64(dueDate), Repaid: raw.Repaid}, nil
}

func (l *RPCLedger) SubmitScoreUpdate(ctx context.Context, address string, volumeMicro, tradeCount uint64) (string, error) {
	if !addressPattern.MatchString(address) {
		return "", fmt.Errorf("%w: invalid address", ErrRejected)
	}
	return l.sendTransaction(ctx, l.creditScoreAddr, "updateUserData", map[string]any{
		"user":          address,
		"tradingVolume": strconv.FormatUint(volumeMicro, 10),
		"tradeCount":    strconv.FormatUint(tradeCount, 10),
	}, nil)
}

func (l *RPCLedger) SubmitBorrow(ctx context.Context, address string) (string, error) {
	if !addressPattern.MatchString(address) {
		return "", fmt.Errorf("%w: invalid address", ErrRejected)
	}
	return l.sendTransaction(ctx, l.lendingAddr, "borrow", map[string]any{"user": address}, nil)
}

func (l *RPCLedger) SubmitRepay(ctx context.Context, address string, paymentWei *big.Int) (string, error) {
	if !addressPattern.MatchString(address) {
		return "", fmt.Errorf("%w: invalid address", ErrRejected)
	}
	if paymentWei == nil || paymentWei.Sign() <= 0 {
		return "", fmt.Errorf("%w: non-positive payment", ErrRejected)
	}
	return l.sendTransaction(ctx, l.lendingAddr, "repay", map[string]any{"user": address}, paymentWei)
}

func (l *RPCLedger) Receipt(ctx context.Context, txHash string) (ReceiptStatus, error) {
	var receipt *struct {
		Status string `json:"status"`
	}
	if err := l.rpc(ctx, "eth_getTransactionReceipt", []any{txHash}, &receipt); err != nil {
		return ReceiptPending, err
	}
	if receipt == nil {
		return ReceiptPending, nil
	}
	switch receipt.Status {
	case "0x1":
		return ReceiptConfirmed, nil
	case "0x0":
		return ReceiptRejected, nil
	default:
		return ReceiptPending, fmt.Errorf("unexpected receipt status %q", receipt.Status)
	}
}

func (l *RPCLedger) WaitConfirmed(ctx context.Context, txHash string) error {
	ticker := time.NewTicker(l.confirmPollEvery)
	defer ticker.Stop()

	for {
		status, err := l.Receipt(ctx, txHash)
		if err != nil {
			if ctx.Err() != nil {
				return fmt.Errorf("%w: %s", ErrTimeout, txHash)
			}
			return err
		}
		switch status {
		case ReceiptConfirmed:
			return nil
		case ReceiptRejected:
			return fmt.Errorf("%w: %s", ErrRejected, txHash)
		}

		select {
		case <-ctx.Done():
			return fmt.Errorf("%w: %s", ErrTimeout, txHash)
		case <-ticker.C:
		}
	}
}

func (l *RPCLedger) sendTransaction(ctx context.Context, to, method string, args map[string]any, valueWei *big.Int) (string, error) {
	dataBytes, _ := json.Marshal(map[string]any{
		"method": method,
		"args":   args,
	})
	value := "0x0"
	if valueWei != nil && valueWei.Sign() > 0 {
		value = "0x" + valueWei.Text(16)
	}
	txObj := map[string]string{
		"from":  l.fromAddress,
		"to":    to,
		"gas":   fmt.Sprintf("0x%x", l.gasLimit),
		"data":  "0x" + hex.EncodeToString(dataBytes),
		"value": value,
	}

	var txHash string
	if err := l.rpc(ctx, "eth_sendTransaction", []any{txObj}, &txHash); err != nil {
		return "", err
	}
	if !strings.HasPrefix(txHash, "0x") {
		return "", fmt.Errorf("invalid tx hash response")
	}
	return txHash, nil
}

func (l *RPCLedger) callUint(ctx context.Context, to, method string, args map[string]any) (uint64, error) {
	var out string
	if err := l.call(ctx, to, method, args, &out); err != nil {
		return 0, err
	}
	return parseDecOrHexUint(out)
}

func (l *RPCLedger) call(ctx context.Context, to, method string, args map[string]any, out any) error {
	dataBytes, _ := json.Marshal(map[string]any{
		"method": method,
		"args":   args,
	})
	callObj := map[string]string{
		"to":   to,
		"data": "0x" + hex.EncodeToString(dataBytes),
	}
	return l.rpc(ctx, "eth_call", []any{callObj, "latest"}, out)
}

func (l *RPCLedger) rpc(ctx context.Context, method string, params []any, out any) error {
	reqBody, _ := json.Marshal(map[string]any{
		"jsonrpc": "2.0",
		"id":      1,
		"method":  method,
		"params":  params,
	})
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, l.httpURL, bytes.NewReader(reqBody))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := l.httpClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	var payload struct {
		Result json.RawMessage `json:"result"`
		Error  *struct {
			Code    int    `json:"code"`
			Message string `json:"message"`
		} `json:"error"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return err
	}
	if payload.Error != nil {
		if looksLikeRevert(payload.Error.Message) {
			return fmt.Errorf("%w: rpc error %d: %s", ErrRejected, payload.Error.Code, payload.Error.Message)
		}
		return fmt.Errorf("rpc error %d: %s", payload.Error.Code, payload.Error.Message)
	}
	if len(payload.Result) == 0 {
		return errors.New("rpc empty result")
	}
	if err := json.Unmarshal(payload.Result, out); err != nil {
		return err
	}
	return nil
}

func looksLikeRevert(msg string) bool {
	lower := strings.ToLower(msg)
	return strings.Contains(lower, "revert") || strings.Contains(lower, "rejected")
}

func parseDecOrHexUint(s string) (uint64, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return 0, nil
	}
	if strings.HasPrefix(s, "0x") || strings.HasPrefix(s, "0X") {
		return strconv.ParseUint(s[2:], 16, 64)
	}
	return strconv.ParseUint(s, 10, 64)
}
