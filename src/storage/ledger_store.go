package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/entropy80/investment-app-sub002/src/models"
	"github.com/entropy80/investment-app-sub002/src/processors"
	"github.com/entropy80/investment-app-sub002/src/utils"
)

// ErrDuplicateEntry is returned by Insert when the (account_id, external_id)
// uniqueness constraint fires. The constraint is the authoritative tie-breaker
// between concurrent imports; callers treat this as "duplicate detected",
// never as a fatal error.
var ErrDuplicateEntry = errors.New("duplicate ledger entry")

// CompositeQuery is the fuzzy lookup key for entries without an external id:
// same calendar day, type and symbol, with amount and quantity matched under
// the import tolerances.
type CompositeQuery struct {
	Date        time.Time
	Type        string
	Symbol      string
	Amount      float64
	Quantity    float64
	HasQuantity bool
}

// LedgerStore is the persistence boundary of the deduplication gate. Any
// implementation may use an index, a sorted structure, or a database; the
// contract is the lookup semantics, not the storage technology.
type LedgerStore interface {
	// FindByExternalID returns the entry with the given external id in the
	// account, or nil when none exists.
	FindByExternalID(ctx context.Context, accountID int64, externalID string) (*models.LedgerEntry, error)

	// FindByCompositeKey returns an entry matching the fuzzy key, or nil.
	FindByCompositeKey(ctx context.Context, accountID int64, q CompositeQuery) (*models.LedgerEntry, error)

	// BulkFindByExternalIDs returns every entry in the account whose
	// external id is in ids, in one round trip.
	BulkFindByExternalIDs(ctx context.Context, accountID int64, ids []string) ([]models.LedgerEntry, error)

	// Insert persists a normalized transaction as a new ledger entry and
	// returns its generated id. Returns ErrDuplicateEntry when the
	// (account_id, external_id) constraint rejects it.
	Insert(ctx context.Context, tx models.NormalizedTransaction) (int64, error)

	// ListByAccount returns the account's ledger ordered by date ascending
	// with insertion-order tie-break, the order lot replay requires.
	ListByAccount(ctx context.Context, accountID int64) ([]models.LedgerEntry, error)

	// ListByPortfolio returns the ledger of every account in the portfolio,
	// optionally restricted to [from, to], in replay order.
	ListByPortfolio(ctx context.Context, portfolioID int64, from, to time.Time) ([]models.LedgerEntry, error)
}

const ledgerColumns = `id, account_id, date, type, symbol, quantity, amount, external_id, created_at`

// SQLiteLedgerStore implements LedgerStore over the sqlite ledger_entries
// table. Dates are stored as YYYY-MM-DD text, so calendar-day matching is a
// plain equality and range scans sort lexicographically.
type SQLiteLedgerStore struct {
	db *sql.DB
}

func NewSQLiteLedgerStore(db *sql.DB) *SQLiteLedgerStore {
	return &SQLiteLedgerStore{db: db}
}

func (s *SQLiteLedgerStore) FindByExternalID(ctx context.Context, accountID int64, externalID string) (*models.LedgerEntry, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT `+ledgerColumns+` FROM ledger_entries WHERE account_id = ? AND external_id = ?`,
		accountID, externalID)
	entry, err := scanLedgerEntry(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("error finding entry by external id for account %d: %w", accountID, err)
	}
	return entry, nil
}

func (s *SQLiteLedgerStore) FindByCompositeKey(ctx context.Context, accountID int64, q CompositeQuery) (*models.LedgerEntry, error) {
	query := `SELECT ` + ledgerColumns + ` FROM ledger_entries
		WHERE account_id = ? AND date = ? AND type = ? AND symbol = ?
		AND amount BETWEEN ? AND ?`
	args := []interface{}{
		accountID, utils.FormatDate(q.Date), q.Type, q.Symbol,
		q.Amount - processors.AmountEpsilon, q.Amount + processors.AmountEpsilon,
	}
	if q.HasQuantity {
		query += ` AND quantity BETWEEN ? AND ?`
		args = append(args, q.Quantity-processors.QuantityEpsilon, q.Quantity+processors.QuantityEpsilon)
	}
	query += ` ORDER BY id LIMIT 1`

	row := s.db.QueryRowContext(ctx, query, args...)
	entry, err := scanLedgerEntry(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("error finding entry by composite key for account %d: %w", accountID, err)
	}
	return entry, nil
}

func (s *SQLiteLedgerStore) BulkFindByExternalIDs(ctx context.Context, accountID int64, ids []string) ([]models.LedgerEntry, error) {
	if len(ids) == 0 {
		return nil, nil
	}

	query := `SELECT ` + ledgerColumns + ` FROM ledger_entries
		WHERE account_id = ? AND external_id IN (?` + strings.Repeat(",?", len(ids)-1) + `)`
	args := make([]interface{}, 0, len(ids)+1)
	args = append(args, accountID)
	for _, id := range ids {
		args = append(args, id)
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("error bulk finding entries for account %d: %w", accountID, err)
	}
	defer rows.Close()
	return collectLedgerEntries(rows)
}

func (s *SQLiteLedgerStore) Insert(ctx context.Context, tx models.NormalizedTransaction) (int64, error) {
	var symbol, externalID sql.NullString
	var quantity sql.NullFloat64
	if tx.HasSymbol() {
		symbol = sql.NullString{String: tx.Symbol, Valid: true}
	}
	if tx.HasExternalID() {
		externalID = sql.NullString{String: tx.ExternalID, Valid: true}
	}
	if tx.HasQuantity() {
		quantity = sql.NullFloat64{Float64: tx.Quantity, Valid: true}
	}

	res, err := s.db.ExecContext(ctx,
		`INSERT INTO ledger_entries (account_id, date, type, symbol, quantity, amount, external_id, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		tx.AccountID, utils.FormatDate(tx.Date), tx.Type, symbol, quantity, tx.Amount, externalID, time.Now())
	if err != nil {
		if strings.Contains(strings.ToLower(err.Error()), "unique constraint failed") {
			return 0, ErrDuplicateEntry
		}
		return 0, fmt.Errorf("error inserting ledger entry for account %d: %w", tx.AccountID, err)
	}
	return res.LastInsertId()
}

func (s *SQLiteLedgerStore) ListByAccount(ctx context.Context, accountID int64) ([]models.LedgerEntry, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT `+ledgerColumns+` FROM ledger_entries WHERE account_id = ? ORDER BY date ASC, id ASC`,
		accountID)
	if err != nil {
		return nil, fmt.Errorf("error querying ledger for account %d: %w", accountID, err)
	}
	defer rows.Close()
	return collectLedgerEntries(rows)
}

func (s *SQLiteLedgerStore) ListByPortfolio(ctx context.Context, portfolioID int64, from, to time.Time) ([]models.LedgerEntry, error) {
	query := `SELECT e.id, e.account_id, e.date, e.type, e.symbol, e.quantity, e.amount, e.external_id, e.created_at
		FROM ledger_entries e
		JOIN accounts a ON a.id = e.account_id
		WHERE a.portfolio_id = ?`
	args := []interface{}{portfolioID}
	if !from.IsZero() {
		query += ` AND e.date >= ?`
		args = append(args, utils.FormatDate(from))
	}
	if !to.IsZero() {
		query += ` AND e.date <= ?`
		args = append(args, utils.FormatDate(to))
	}
	query += ` ORDER BY e.date ASC, e.id ASC`

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("error querying ledger for portfolio %d: %w", portfolioID, err)
	}
	defer rows.Close()
	return collectLedgerEntries(rows)
}

type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanLedgerEntry(row rowScanner) (*models.LedgerEntry, error) {
	var entry models.LedgerEntry
	var dateStr string
	var symbol, externalID sql.NullString
	var quantity sql.NullFloat64

	err := row.Scan(&entry.ID, &entry.AccountID, &dateStr, &entry.Type, &symbol, &quantity, &entry.Amount, &externalID, &entry.CreatedAt)
	if err != nil {
		return nil, err
	}
	entry.Date = utils.ParseDate(dateStr)
	entry.Symbol = symbol.String
	entry.ExternalID = externalID.String
	entry.Quantity = quantity.Float64
	return &entry, nil
}

func collectLedgerEntries(rows *sql.Rows) ([]models.LedgerEntry, error) {
	var entries []models.LedgerEntry
	for rows.Next() {
		entry, err := scanLedgerEntry(rows)
		if err != nil {
			return nil, fmt.Errorf("error scanning ledger entry: %w", err)
		}
		entries = append(entries, *entry)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating over ledger entries: %w", err)
	}
	return entries, nil
}
