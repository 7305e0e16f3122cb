package tradedata

import (
	"fmt"
	"strings"

	"github.com/codemicah/okx-credit-score/internal/config"
)

func NewProviderFromConfig(cfg config.Config) (Provider, error) {
	mode := strings.ToLower(strings.TrimSpace(cfg.DataSourceMode))
	switch mode {
	case "", "synthetic":
		return NewSyntheticProvider(cfg.ZeroMarker), nil
	case "okx", "live":
		return NewOKXProvider(cfg.OKXBaseURL, cfg.OKXAPIKey, cfg.OKXAPISign, cfg.OKXAPIPassphrase, cfg.ChainID, cfg.DataSourceTimeout)
	default:
		return nil, fmt.Errorf("invalid DATA_SOURCE_MODE: %s", cfg.DataSourceMode)
	}
}
