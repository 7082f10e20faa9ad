package model

import (
	"database/sql"
	"time"
)

// Portfolio groups the accounts owned by one user.
type Portfolio struct {
	ID        int64     `json:"id"`
	UserID    int64     `json:"user_id"`
	Name      string    `json:"name"`
	CreatedAt time.Time `json:"created_at"`
}

// Account is a single brokerage or bank account inside a portfolio.
type Account struct {
	ID          int64     `json:"id"`
	PortfolioID int64     `json:"portfolio_id"`
	Name        string    `json:"name"`
	Currency    string    `json:"currency"`
	CreatedAt   time.Time `json:"created_at"`
}

// GetPortfolioForUser fetches a portfolio only when it is owned by userID.
// Returns sql.ErrNoRows when the portfolio does not exist or belongs to
// someone else; callers must not distinguish the two cases.
func GetPortfolioForUser(db *sql.DB, portfolioID, userID int64) (*Portfolio, error) {
	var p Portfolio
	err := db.QueryRow(
		`SELECT id, user_id, name, created_at FROM portfolios WHERE id = ? AND user_id = ?`,
		portfolioID, userID,
	).Scan(&p.ID, &p.UserID, &p.Name, &p.CreatedAt)
	if err != nil {
		return nil, err
	}
	return &p, nil
}

// ListAccountIDs returns the ids of all accounts in a portfolio.
func ListAccountIDs(db *sql.DB, portfolioID int64) ([]int64, error) {
	rows, err := db.Query(`SELECT id FROM accounts WHERE portfolio_id = ? ORDER BY id`, portfolioID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var ids []int64
	for rows.Next() {
		var id int64
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}

// GetAccountForUser fetches an account only when its portfolio is owned by
// userID. Missing and not-owned both surface as sql.ErrNoRows.
func GetAccountForUser(db *sql.DB, accountID, userID int64) (*Account, error) {
	var a Account
	err := db.QueryRow(
		`SELECT a.id, a.portfolio_id, a.name, a.currency, a.created_at
		FROM accounts a
		JOIN portfolios p ON p.id = a.portfolio_id
		WHERE a.id = ? AND p.user_id = ?`,
		accountID, userID,
	).Scan(&a.ID, &a.PortfolioID, &a.Name, &a.Currency, &a.CreatedAt)
	if err != nil {
		return nil, err
	}
	return &a, nil
}

// CreatePortfolio inserts a new portfolio and returns its id.
func CreatePortfolio(db *sql.DB, userID int64, name string) (int64, error) {
	res, err := db.Exec(`INSERT INTO portfolios (user_id, name) VALUES (?, ?)`, userID, name)
	if err != nil {
		return 0, err
	}
	return res.LastInsertId()
}

// CreateAccount inserts a new account and returns its id.
func CreateAccount(db *sql.DB, portfolioID int64, name, currency string) (int64, error) {
	res, err := db.Exec(`INSERT INTO accounts (portfolio_id, name, currency) VALUES (?, ?, ?)`, portfolioID, name, currency)
	if err != nil {
		return 0, err
	}
	return res.LastInsertId()
}
