package services

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/cookiejar"
	"net/url"
	"sort"
	"time"

	"github.com/patrickmn/go-cache"
	"golang.org/x/net/publicsuffix"
	"golang.org/x/time/rate"

	"github.com/entropy80/investment-app-sub002/src/logger"
	"github.com/entropy80/investment-app-sub002/src/models"
	"github.com/entropy80/investment-app-sub002/src/utils"
)

type priceServiceImpl struct {
	client  *http.Client
	baseURL string
	limiter *rate.Limiter
	cache   *cache.Cache
}

// NewPriceService builds the external price oracle client. Responses are
// cached for ttl so repeated analytics calls within a window do not hammer
// the oracle, and outbound requests are throttled to rps.
func NewPriceService(baseURL string, ttl time.Duration, rps float64) PriceService {
	jar, err := cookiejar.New(&cookiejar.Options{PublicSuffixList: publicsuffix.List})
	if err != nil {
		logger.L.Warn("failed to create cookie jar for price client", "error", err)
	}
	burst := int(rps)
	if burst < 1 {
		burst = 1
	}
	return &priceServiceImpl{
		client: &http.Client{
			Jar:     jar,
			Timeout: 20 * time.Second,
		},
		baseURL: baseURL,
		limiter: rate.NewLimiter(rate.Limit(rps), burst),
		cache:   cache.New(ttl, 2*ttl),
	}
}

type quoteResponse struct {
	Symbol string  `json:"symbol"`
	Price  float64 `json:"price"`
}

type historyResponse struct {
	Symbol string `json:"symbol"`
	Prices []struct {
		Date  string  `json:"date"`
		Close float64 `json:"close"`
	} `json:"prices"`
}

func (s *priceServiceImpl) LatestPrice(ctx context.Context, symbol string) (float64, bool, error) {
	cacheKey := "quote_" + symbol
	if cached, found := s.cache.Get(cacheKey); found {
		quote := cached.(quoteResponse)
		return quote.Price, true, nil
	}

	var quote quoteResponse
	found, err := s.fetch(ctx, "/api/v1/quote", url.Values{"symbol": {symbol}}, &quote)
	if err != nil {
		return 0, false, err
	}
	if !found {
		logger.L.Debug("price oracle has no quote for symbol", "symbol", symbol)
		return 0, false, nil
	}
	s.cache.Set(cacheKey, quote, cache.DefaultExpiration)
	return quote.Price, true, nil
}

func (s *priceServiceImpl) PriceHistory(ctx context.Context, symbol string, from, to time.Time) ([]models.PricePoint, error) {
	cacheKey := fmt.Sprintf("hist_%s_%s_%s", symbol, utils.FormatDate(from), utils.FormatDate(to))
	if cached, found := s.cache.Get(cacheKey); found {
		return cached.([]models.PricePoint), nil
	}

	params := url.Values{
		"symbol": {symbol},
		"from":   {utils.FormatDate(from)},
		"to":     {utils.FormatDate(to)},
	}
	var history historyResponse
	found, err := s.fetch(ctx, "/api/v1/history", params, &history)
	if err != nil {
		return nil, err
	}
	if !found {
		logger.L.Debug("price oracle has no history for symbol", "symbol", symbol)
		return nil, nil
	}

	points := make([]models.PricePoint, 0, len(history.Prices))
	for _, p := range history.Prices {
		date := utils.ParseDate(p.Date)
		if date.IsZero() {
			continue
		}
		points = append(points, models.PricePoint{Date: date, Price: p.Close})
	}
	sort.Slice(points, func(i, j int) bool { return points[i].Date.Before(points[j].Date) })

	s.cache.Set(cacheKey, points, cache.DefaultExpiration)
	return points, nil
}

// fetch performs one rate-limited GET against the oracle. Returns false
// without error on 404, since missing coverage is an expected condition.
func (s *priceServiceImpl) fetch(ctx context.Context, path string, params url.Values, out interface{}) (bool, error) {
	if err := s.limiter.Wait(ctx); err != nil {
		return false, fmt.Errorf("waiting for price oracle rate limit: %w", err)
	}

	reqURL := s.baseURL + path + "?" + params.Encode()
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, nil)
	if err != nil {
		return false, fmt.Errorf("building price oracle request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := s.client.Do(req)
	if err != nil {
		return false, fmt.Errorf("calling price oracle: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusNotFound {
		return false, nil
	}
	if resp.StatusCode != http.StatusOK {
		return false, fmt.Errorf("price oracle returned status %d for %s", resp.StatusCode, path)
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return false, fmt.Errorf("decoding price oracle response: %w", err)
	}
	return true, nil
}
