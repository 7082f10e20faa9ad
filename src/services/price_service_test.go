package services

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newOracleServer(t *testing.T, hits *atomic.Int64) *httptest.Server {
	t.Helper()
	mux := http.NewServeMux()
	mux.HandleFunc("/api/v1/quote", func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
		symbol := r.URL.Query().Get("symbol")
		if symbol != "AAPL" {
			http.NotFound(w, r)
			return
		}
		json.NewEncoder(w).Encode(map[string]any{"symbol": symbol, "price": 150.25})
	})
	mux.HandleFunc("/api/v1/history", func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
		symbol := r.URL.Query().Get("symbol")
		if symbol != "AAPL" {
			http.NotFound(w, r)
			return
		}
		json.NewEncoder(w).Encode(map[string]any{
			"symbol": symbol,
			"prices": []map[string]any{
				{"date": "2024-03-01", "close": 105.0},
				{"date": "2024-01-01", "close": 100.0},
				{"date": "bogus", "close": 1.0},
			},
		})
	})
	server := httptest.NewServer(mux)
	t.Cleanup(server.Close)
	return server
}

func TestPriceService_LatestPrice(t *testing.T) {
	var hits atomic.Int64
	server := newOracleServer(t, &hits)
	svc := NewPriceService(server.URL, time.Minute, 100)
	ctx := context.Background()

	price, found, err := svc.LatestPrice(ctx, "AAPL")
	require.NoError(t, err)
	assert.True(t, found)
	assert.Equal(t, 150.25, price)

	// The second call is served from cache.
	_, _, err = svc.LatestPrice(ctx, "AAPL")
	require.NoError(t, err)
	assert.Equal(t, int64(1), hits.Load())
}

func TestPriceService_MissingCoverage(t *testing.T) {
	var hits atomic.Int64
	server := newOracleServer(t, &hits)
	svc := NewPriceService(server.URL, time.Minute, 100)

	_, found, err := svc.LatestPrice(context.Background(), "NOPE")
	require.NoError(t, err, "missing coverage is not an error")
	assert.False(t, found)
}

func TestPriceService_History(t *testing.T) {
	var hits atomic.Int64
	server := newOracleServer(t, &hits)
	svc := NewPriceService(server.URL, time.Minute, 100)

	points, err := svc.PriceHistory(context.Background(), "AAPL",
		testDate(2024, 1, 1), testDate(2024, 6, 30))
	require.NoError(t, err)

	// The unparseable observation is dropped and the rest sorted ascending.
	require.Len(t, points, 2)
	assert.True(t, points[0].Date.Before(points[1].Date))
	assert.Equal(t, 100.0, points[0].Price)
	assert.Equal(t, 105.0, points[1].Price)
}
