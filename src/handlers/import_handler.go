package handlers

import (
	"database/sql"
	"encoding/json"
	"errors"
	"net/http"

	"github.com/entropy80/investment-app-sub002/src/logger"
	"github.com/entropy80/investment-app-sub002/src/model"
	"github.com/entropy80/investment-app-sub002/src/models"
	"github.com/entropy80/investment-app-sub002/src/security/validation"
	"github.com/entropy80/investment-app-sub002/src/services"
	"github.com/entropy80/investment-app-sub002/src/storage"
	"github.com/entropy80/investment-app-sub002/src/utils"
)

type ImportHandler struct {
	db            *sql.DB
	importService services.ImportService
	store         storage.LedgerStore
}

func NewImportHandler(db *sql.DB, importService services.ImportService, store storage.LedgerStore) *ImportHandler {
	return &ImportHandler{
		db:            db,
		importService: importService,
		store:         store,
	}
}

type importRequestRow struct {
	Date       string  `json:"date"`
	Type       string  `json:"type"`
	Symbol     string  `json:"symbol"`
	Quantity   float64 `json:"quantity"`
	Amount     float64 `json:"amount"`
	ExternalID string  `json:"externalId"`
}

type importRequest struct {
	AccountID    int64              `json:"accountId"`
	Transactions []importRequestRow `json:"transactions"`
}

var allowedTransactionTypes = map[string]bool{
	models.TypeBuy:        true,
	models.TypeSell:       true,
	models.TypeDividend:   true,
	models.TypeDeposit:    true,
	models.TypeWithdrawal: true,
	models.TypeFee:        true,
	models.TypeTransfer:   true,
}

// HandleImportTransactions accepts a batch of normalized transactions,
// runs the deduplication gate, and persists the survivors.
func (h *ImportHandler) HandleImportTransactions(w http.ResponseWriter, r *http.Request) {
	userID, ok := GetUserIDFromContext(r)
	if !ok {
		utils.SendJSONError(w, "User not authenticated", http.StatusUnauthorized)
		return
	}

	var req importRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		utils.SendJSONError(w, "Invalid request body", http.StatusBadRequest)
		return
	}
	if req.AccountID <= 0 {
		utils.SendJSONError(w, "accountId is required", http.StatusBadRequest)
		return
	}
	if len(req.Transactions) == 0 {
		utils.SendJSONError(w, "transactions must not be empty", http.StatusBadRequest)
		return
	}

	if _, err := model.GetAccountForUser(h.db, req.AccountID, userID); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			utils.SendJSONError(w, "Account not found", http.StatusNotFound)
			return
		}
		logger.L.Error("failed to resolve account", "accountID", req.AccountID, "error", err)
		utils.SendJSONError(w, "Failed to resolve account", http.StatusInternalServerError)
		return
	}

	txs := make([]models.NormalizedTransaction, 0, len(req.Transactions))
	for _, row := range req.Transactions {
		date := utils.ParseDate(row.Date)
		if date.IsZero() {
			utils.SendJSONError(w, "Invalid date in transaction "+row.Date, http.StatusBadRequest)
			return
		}
		if !allowedTransactionTypes[row.Type] {
			utils.SendJSONError(w, "Unsupported transaction type "+row.Type, http.StatusBadRequest)
			return
		}
		txs = append(txs, models.NormalizedTransaction{
			Date:       date,
			Type:       row.Type,
			Symbol:     validation.SanitizeSymbol(row.Symbol),
			Quantity:   row.Quantity,
			Amount:     row.Amount,
			ExternalID: row.ExternalID,
			AccountID:  req.AccountID,
		})
	}

	summary, err := h.importService.ImportBatch(r.Context(), req.AccountID, txs)
	if err != nil {
		if errors.Is(err, services.ErrBatchTooLarge) {
			utils.SendJSONError(w, err.Error(), http.StatusBadRequest)
			return
		}
		logger.L.Error("import batch failed", "accountID", req.AccountID, "error", err)
		utils.SendJSONError(w, "Failed to import transactions", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	json.NewEncoder(w).Encode(summary)
}

// HandleListTransactions returns the deduplicated ledger of one account,
// date ascending.
func (h *ImportHandler) HandleListTransactions(w http.ResponseWriter, r *http.Request) {
	userID, ok := GetUserIDFromContext(r)
	if !ok {
		utils.SendJSONError(w, "User not authenticated", http.StatusUnauthorized)
		return
	}

	accountID, err := validation.ValidateID(r.URL.Query().Get("accountId"), "accountId")
	if err != nil {
		utils.SendJSONError(w, err.Error(), http.StatusBadRequest)
		return
	}

	if _, err := model.GetAccountForUser(h.db, accountID, userID); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			utils.SendJSONError(w, "Account not found", http.StatusNotFound)
			return
		}
		logger.L.Error("failed to resolve account", "accountID", accountID, "error", err)
		utils.SendJSONError(w, "Failed to resolve account", http.StatusInternalServerError)
		return
	}

	entries, err := h.store.ListByAccount(r.Context(), accountID)
	if err != nil {
		logger.L.Error("failed to list ledger entries", "accountID", accountID, "error", err)
		utils.SendJSONError(w, "Failed to list transactions", http.StatusInternalServerError)
		return
	}
	if entries == nil {
		entries = []models.LedgerEntry{}
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(entries)
}
