package model

import (
	"database/sql"
	"strings"
	"time"
)

// SecurityInfo represents a row in the securities table. It caches the
// asset-class classification used by the allocation report.
type SecurityInfo struct {
	Symbol     string
	AssetClass string
	CreatedAt  time.Time
}

// GetSecuritiesBySymbols retrieves multiple security classifications from the
// database in a single query. It returns a map for easy lookup, where the key
// is the symbol.
func GetSecuritiesBySymbols(db *sql.DB, symbols []string) (map[string]SecurityInfo, error) {
	securities := make(map[string]SecurityInfo)
	if len(symbols) == 0 {
		return securities, nil
	}

	// Using `IN` clause is efficient for batch lookups.
	query := `SELECT symbol, asset_class, created_at FROM securities WHERE symbol IN (?` + strings.Repeat(",?", len(symbols)-1) + `)`

	args := make([]interface{}, len(symbols))
	for i, symbol := range symbols {
		args[i] = symbol
	}

	rows, err := db.Query(query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	for rows.Next() {
		var sec SecurityInfo
		if err := rows.Scan(&sec.Symbol, &sec.AssetClass, &sec.CreatedAt); err != nil {
			return nil, err
		}
		securities[sec.Symbol] = sec
	}

	return securities, rows.Err()
}

// UpsertSecurity inserts or updates a single security classification.
func UpsertSecurity(db *sql.DB, symbol, assetClass string) error {
	query := `
		INSERT INTO securities (symbol, asset_class) VALUES (?, ?)
		ON CONFLICT(symbol) DO UPDATE SET asset_class = excluded.asset_class`

	_, err := db.Exec(query, symbol, assetClass)
	return err
}

// GetSubscriptionTier returns the user's subscription tier, defaulting to
// "free" when the user has no subscription row.
func GetSubscriptionTier(db *sql.DB, userID int64) (string, error) {
	var tier string
	err := db.QueryRow(`SELECT tier FROM subscriptions WHERE user_id = ?`, userID).Scan(&tier)
	if err == sql.ErrNoRows {
		return "free", nil
	}
	if err != nil {
		return "", err
	}
	return tier, nil
}

// SetSubscriptionTier records the user's subscription tier.
func SetSubscriptionTier(db *sql.DB, userID int64, tier string) error {
	_, err := db.Exec(`
		INSERT INTO subscriptions (user_id, tier, updated_at) VALUES (?, ?, ?)
		ON CONFLICT(user_id) DO UPDATE SET tier = excluded.tier, updated_at = excluded.updated_at`,
		userID, tier, time.Now())
	return err
}
