package tradedata

import (
	"context"
	"encoding/json"
	"fmt"
	"math"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"
)

const txQueryLimit = "100"

// OKXProvider reads recent transactions for an address from the OKX DEX
// post-transaction API and folds them into volume and trade count.
type OKXProvider struct {
	baseURL    string
	apiKey     string
	apiSign    string
	passphrase string
	chainID    string
	httpClient *http.Client
}

func NewOKXProvider(baseURL, apiKey, apiSign, passphrase, chainID string, timeout time.Duration) (*OKXProvider, error) {
	if strings.TrimSpace(baseURL) == "" {
		return nil, fmt.Errorf("missing OKX_BASE_URL")
	}
	if strings.TrimSpace(apiKey) == "" {
		return nil, fmt.Errorf("missing OKX_API_KEY")
	}
	if timeout <= 0 {
		timeout = 15 * time.Second
	}
	return &OKXProvider{
		baseURL:    strings.TrimRight(strings.TrimSpace(baseURL), "/"),
		apiKey:     apiKey,
		apiSign:    apiSign,
		passphrase: passphrase,
		chainID:    chainID,
		httpClient: &http.Client{Timeout: timeout},
	}, nil
}

type okxTransaction struct {
	Amount string `json:"amount"`
}

type okxResponse struct {
	Code string `json:"code"`
	Msg  string `json:"msg"`
	Data []struct {
		TransactionList []okxTransaction `json:"transactionList"`
	} `json:"data"`
}

func (p *OKXProvider) Acquire(ctx context.Context, address string) (Metrics, error) {
	endpoint := p.baseURL + "/transactions-by-address"
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return Metrics{}, fmt.Errorf("%w: %v", ErrUnavailable, err)
	}

	q := url.Values{}
	q.Set("address", address)
	q.Set("chains", p.chainID)
	q.Set("limit", txQueryLimit)
	req.URL.RawQuery = q.Encode()

	req.Header.Set("OK-ACCESS-KEY", p.apiKey)
	req.Header.Set("OK-ACCESS-SIGN", p.apiSign)
	req.Header.Set("OK-ACCESS-TIMESTAMP", time.Now().UTC().Format(time.RFC3339))
	req.Header.Set("OK-ACCESS-PASSPHRASE", p.passphrase)
	req.Header.Set("Content-Type", "application/json")

	resp, err := p.httpClient.Do(req)
	if err != nil {
		return Metrics{}, fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden {
		return Metrics{}, fmt.Errorf("%w: upstream auth rejected (%d)", ErrUnavailable, resp.StatusCode)
	}
	if resp.StatusCode >= 500 {
		return Metrics{}, fmt.Errorf("%w: upstream status %d", ErrUnavailable, resp.StatusCode)
	}

	var payload okxResponse
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return Metrics{}, fmt.Errorf("%w: %v", ErrMalformed, err)
	}
	if payload.Code != "" && payload.Code != "0" {
		return Metrics{}, fmt.Errorf("%w: upstream code %s: %s", ErrMalformed, payload.Code, payload.Msg)
	}

	// No transaction list means no activity, not an error.
	if len(payload.Data) == 0 {
		return Metrics{}, nil
	}

	txs := payload.Data[0].TransactionList
	var totalVolumeUSD float64
	for _, tx := range txs {
		// Entries with missing or non-numeric amounts count as zero; the
		// upstream list is trusted enough to keep the lenient parse.
		amount, err := strconv.ParseFloat(strings.TrimSpace(tx.Amount), 64)
		if err != nil || math.IsNaN(amount) || amount < 0 {
			continue
		}
		totalVolumeUSD += amount
	}

	return Metrics{
		VolumeMicro: uint64(totalVolumeUSD * 1e6),
		TradeCount:  uint64(len(txs)),
	}, nil
}
