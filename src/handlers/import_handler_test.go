package handlers

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/entropy80/investment-app-sub002/src/config"
	"github.com/entropy80/investment-app-sub002/src/database"
	"github.com/entropy80/investment-app-sub002/src/model"
	"github.com/entropy80/investment-app-sub002/src/models"
	"github.com/entropy80/investment-app-sub002/src/services"
	"github.com/entropy80/investment-app-sub002/src/storage"
)

func setupImportHandler(t *testing.T) (*ImportHandler, int64) {
	t.Helper()
	config.Cfg = &config.AppConfig{MaxImportBatch: 10000}
	database.InitDB(":memory:")
	database.DB.SetMaxOpenConns(1)
	db := database.DB

	portfolioID, err := model.CreatePortfolio(db, 1, "Main")
	require.NoError(t, err)
	accountID, err := model.CreateAccount(db, portfolioID, "Brokerage", "USD")
	require.NoError(t, err)

	store := storage.NewSQLiteLedgerStore(db)
	return NewImportHandler(db, services.NewImportService(store), store), accountID
}

func TestHandleImportTransactions(t *testing.T) {
	handler, accountID := setupImportHandler(t)

	body := `{
		"accountId": ACCOUNT,
		"transactions": [
			{"date": "2024-01-15", "type": "BUY", "symbol": "aapl", "quantity": 10, "amount": -1500, "externalId": "feed-1"},
			{"date": "2024-01-16", "type": "DEPOSIT", "amount": 2000, "externalId": "feed-2"}
		]
	}`
	body = strings.ReplaceAll(body, "ACCOUNT", jsonInt(accountID))

	req := httptest.NewRequest(http.MethodPost, "/api/transactions/import", strings.NewReader(body))
	req = withUser(req)
	rec := httptest.NewRecorder()
	handler.HandleImportTransactions(rec, req)

	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	var summary models.ImportSummary
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &summary))
	assert.Equal(t, 2, summary.Imported)
	assert.Equal(t, 0, summary.DuplicatesSkipped)
	assert.NotEmpty(t, summary.BatchID)

	// Same payload again: everything is a duplicate.
	req = httptest.NewRequest(http.MethodPost, "/api/transactions/import", strings.NewReader(body))
	req = withUser(req)
	rec = httptest.NewRecorder()
	handler.HandleImportTransactions(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &summary))
	assert.Equal(t, 0, summary.Imported)
	assert.Equal(t, 2, summary.DuplicatesSkipped)
}

func TestHandleImportTransactions_Validation(t *testing.T) {
	handler, accountID := setupImportHandler(t)

	cases := []struct {
		name string
		body string
		code int
	}{
		{"malformed json", `{`, http.StatusBadRequest},
		{"missing account", `{"transactions":[{"date":"2024-01-01","type":"BUY","symbol":"A","quantity":1,"amount":-1}]}`, http.StatusBadRequest},
		{"empty batch", `{"accountId":` + jsonInt(accountID) + `,"transactions":[]}`, http.StatusBadRequest},
		{"bad date", `{"accountId":` + jsonInt(accountID) + `,"transactions":[{"date":"15/01/2024","type":"BUY","symbol":"A","quantity":1,"amount":-1}]}`, http.StatusBadRequest},
		{"bad type", `{"accountId":` + jsonInt(accountID) + `,"transactions":[{"date":"2024-01-15","type":"SHORT","symbol":"A","quantity":1,"amount":-1}]}`, http.StatusBadRequest},
		{"foreign account", `{"accountId":9999,"transactions":[{"date":"2024-01-15","type":"BUY","symbol":"A","quantity":1,"amount":-1}]}`, http.StatusNotFound},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodPost, "/api/transactions/import", strings.NewReader(tc.body))
			req = withUser(req)
			rec := httptest.NewRecorder()
			handler.HandleImportTransactions(rec, req)
			assert.Equal(t, tc.code, rec.Code, rec.Body.String())
		})
	}
}

func TestHandleListTransactions(t *testing.T) {
	handler, accountID := setupImportHandler(t)

	req := httptest.NewRequest(http.MethodGet, "/api/transactions?accountId="+jsonInt(accountID), nil)
	req = withUser(req)
	rec := httptest.NewRecorder()
	handler.HandleListTransactions(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "[]\n", rec.Body.String(), "empty ledger serializes as an empty array")
}

func withUser(req *http.Request) *http.Request {
	return req.WithContext(context.WithValue(req.Context(), userIDContextKey, int64(1)))
}

func jsonInt(v int64) string {
	b, _ := json.Marshal(v)
	return string(b)
}
