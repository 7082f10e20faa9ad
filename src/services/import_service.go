package services

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"

	"github.com/entropy80/investment-app-sub002/src/config"
	"github.com/entropy80/investment-app-sub002/src/logger"
	"github.com/entropy80/investment-app-sub002/src/models"
	"github.com/entropy80/investment-app-sub002/src/storage"
)

type importServiceImpl struct {
	store storage.LedgerStore
}

func NewImportService(store storage.LedgerStore) ImportService {
	return &importServiceImpl{store: store}
}

// Resolve applies the two-stage duplicate check. An externalId match is
// authoritative in both directions: when the incoming transaction carries
// one, the composite key is never consulted.
func (s *importServiceImpl) Resolve(ctx context.Context, tx models.NormalizedTransaction, accountID int64) (models.DuplicateCheck, error) {
	if tx.HasExternalID() {
		existing, err := s.store.FindByExternalID(ctx, accountID, tx.ExternalID)
		if err != nil {
			return models.DuplicateCheck{}, fmt.Errorf("resolving externalId %q: %w", tx.ExternalID, err)
		}
		if existing != nil {
			return models.DuplicateCheck{
				IsDuplicate: true,
				ExistingID:  existing.ID,
				Reason:      "matching externalId",
			}, nil
		}
		return models.DuplicateCheck{}, nil
	}

	// Composite matching only applies to security transactions. Cash
	// movements without a symbol legitimately repeat on the same day.
	if !tx.HasSymbol() {
		return models.DuplicateCheck{}, nil
	}

	query := storage.CompositeQuery{
		Date:        tx.Date,
		Type:        tx.Type,
		Symbol:      tx.Symbol,
		Amount:      tx.Amount,
		Quantity:    tx.Quantity,
		HasQuantity: tx.HasQuantity(),
	}
	existing, err := s.store.FindByCompositeKey(ctx, accountID, query)
	if err != nil {
		return models.DuplicateCheck{}, fmt.Errorf("resolving composite key for %s %s: %w", tx.Type, tx.Symbol, err)
	}
	if existing != nil {
		return models.DuplicateCheck{
			IsDuplicate: true,
			ExistingID:  existing.ID,
			Reason:      "matching date, type, symbol, and amount",
		}, nil
	}
	return models.DuplicateCheck{}, nil
}

func (s *importServiceImpl) FindExisting(ctx context.Context, txs []models.NormalizedTransaction, accountID int64) (map[string]int64, error) {
	seen := make(map[string]struct{}, len(txs))
	ids := make([]string, 0, len(txs))
	for _, tx := range txs {
		if !tx.HasExternalID() {
			continue
		}
		if _, ok := seen[tx.ExternalID]; ok {
			continue
		}
		seen[tx.ExternalID] = struct{}{}
		ids = append(ids, tx.ExternalID)
	}
	if len(ids) == 0 {
		return map[string]int64{}, nil
	}

	entries, err := s.store.BulkFindByExternalIDs(ctx, accountID, ids)
	if err != nil {
		return nil, err
	}
	existing := make(map[string]int64, len(entries))
	for _, entry := range entries {
		existing[entry.ExternalID] = entry.ID
	}
	return existing, nil
}

func (s *importServiceImpl) ImportBatch(ctx context.Context, accountID int64, txs []models.NormalizedTransaction) (*models.ImportSummary, error) {
	maxBatch := 0
	if config.Cfg != nil {
		maxBatch = config.Cfg.MaxImportBatch
	}
	if maxBatch > 0 && len(txs) > maxBatch {
		return nil, fmt.Errorf("%w: %d transactions (limit %d)", ErrBatchTooLarge, len(txs), maxBatch)
	}

	summary := &models.ImportSummary{BatchID: uuid.NewString()}

	existingByExternalID, err := s.FindExisting(ctx, txs, accountID)
	if err != nil {
		return nil, fmt.Errorf("bulk externalId lookup: %w", err)
	}

	for _, tx := range txs {
		if tx.HasExternalID() {
			if _, ok := existingByExternalID[tx.ExternalID]; ok {
				summary.DuplicatesSkipped++
				continue
			}
		} else {
			check, err := s.Resolve(ctx, tx, accountID)
			if err != nil {
				return nil, err
			}
			if check.IsDuplicate {
				summary.DuplicatesSkipped++
				continue
			}
		}

		tx.AccountID = accountID
		if _, err := s.store.Insert(ctx, tx); err != nil {
			// A concurrent import of the same batch can slip past the
			// lookup; the unique constraint is the tie-breaker and the
			// loser treats the row as a duplicate.
			if errors.Is(err, storage.ErrDuplicateEntry) {
				logger.L.Debug("concurrent duplicate resolved by constraint",
					"accountID", accountID, "externalId", tx.ExternalID)
				summary.DuplicatesSkipped++
				continue
			}
			return nil, fmt.Errorf("inserting ledger entry: %w", err)
		}
		summary.Imported++
	}

	logger.L.Info("import batch processed",
		"batchID", summary.BatchID,
		"accountID", accountID,
		"imported", summary.Imported,
		"duplicatesSkipped", summary.DuplicatesSkipped)
	return summary, nil
}
