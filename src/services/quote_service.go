package services

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/cookiejar"
	"net/url"
	"strings"
	"time"

	"github.com/patrickmn/go-cache"
	"github.com/shopspring/decimal"
	"golang.org/x/net/publicsuffix"

	"github.com/username/optifolio/src/logger"
)

// quoteServiceImpl fetches market prices from the Yahoo chart endpoint. The
// cookie jar is required: the endpoint rejects clients that do not carry the
// consent cookies back.
type quoteServiceImpl struct {
	client  *http.Client
	baseURL string
	cache   *cache.Cache
}

func NewQuoteService(baseURL string, timeout time.Duration, quoteCache *cache.Cache) (QuoteService, error) {
	jar, err := cookiejar.New(&cookiejar.Options{PublicSuffixList: publicsuffix.List})
	if err != nil {
		return nil, fmt.Errorf("failed to create cookie jar: %w", err)
	}
	return &quoteServiceImpl{
		client: &http.Client{
			Jar:     jar,
			Timeout: timeout,
		},
		baseURL: strings.TrimRight(baseURL, "/"),
		cache:   quoteCache,
	}, nil
}

type chartResponse struct {
	Chart struct {
		Result []struct {
			Meta struct {
				Symbol             string  `json:"symbol"`
				Currency           string  `json:"currency"`
				RegularMarketPrice float64 `json:"regularMarketPrice"`
			} `json:"meta"`
		} `json:"result"`
		Error *struct {
			Code        string `json:"code"`
			Description string `json:"description"`
		} `json:"error"`
	} `json:"chart"`
}

func (s *quoteServiceImpl) Lookup(ctx context.Context, symbol string) (*Quote, error) {
	symbol = strings.ToUpper(strings.TrimSpace(symbol))
	if symbol == "" {
		return nil, fmt.Errorf("symbol is required")
	}

	if s.cache != nil {
		if v, found := s.cache.Get(symbol); found {
			if q, ok := v.(*Quote); ok {
				cached := *q
				cached.FromCache = true
				return &cached, nil
			}
		}
	}

	endpoint := fmt.Sprintf("%s/v8/finance/chart/%s", s.baseURL, url.PathEscape(symbol))
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("User-Agent", "Mozilla/5.0 (X11; Linux x86_64)")

	resp, err := s.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("quote request for %s failed: %w", symbol, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusNotFound {
		return nil, ErrQuoteNotFound
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("quote request for %s returned status %d", symbol, resp.StatusCode)
	}

	var parsed chartResponse
	if err := json.NewDecoder(resp.Body).Decode(&parsed); err != nil {
		return nil, fmt.Errorf("failed to decode quote response for %s: %w", symbol, err)
	}
	if parsed.Chart.Error != nil {
		logger.L.Warn("Quote source returned an error",
			"symbol", symbol,
			"code", parsed.Chart.Error.Code,
			"description", parsed.Chart.Error.Description)
		return nil, ErrQuoteNotFound
	}
	if len(parsed.Chart.Result) == 0 {
		return nil, ErrQuoteNotFound
	}

	meta := parsed.Chart.Result[0].Meta
	quote := &Quote{
		Symbol:   symbol,
		Price:    decimal.NewFromFloat(meta.RegularMarketPrice),
		Currency: meta.Currency,
	}
	if s.cache != nil {
		s.cache.Set(symbol, quote, cache.DefaultExpiration)
	}
	return quote, nil
}
