package database

import (
	"database/sql"
	stdlog "log"

	"github.com/entropy80/investment-app-sub002/src/logger"
	_ "modernc.org/sqlite"
)

var DB *sql.DB

func InitDB(databasePath string) {
	db, err := sql.Open("sqlite", databasePath)
	if err != nil {
		stdlog.Fatalf("failed to open database at %s: %v", databasePath, err)
	}

	DB = db

	if logger.L != nil {
		logger.L.Info("Checking database migrations", "databasePath", databasePath)
	} else {
		stdlog.Println("Checking database migrations for:", databasePath)
	}
	migrateLedgerTable()

	// external_id is NULL for entries without a stable feed identifier;
	// sqlite treats NULLs as distinct, so the UNIQUE(account_id, external_id)
	// constraint only bites on real ids. The constraint is the authoritative
	// tie-breaker for concurrent imports of the same account.
	createTableStatement := `
	CREATE TABLE IF NOT EXISTS portfolios (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		user_id INTEGER NOT NULL,
		name TEXT NOT NULL,
		created_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP
	);

	CREATE TABLE IF NOT EXISTS accounts (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		portfolio_id INTEGER NOT NULL,
		name TEXT NOT NULL,
		currency TEXT NOT NULL DEFAULT 'USD',
		created_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP,
		FOREIGN KEY(portfolio_id) REFERENCES portfolios(id)
	);

	CREATE TABLE IF NOT EXISTS ledger_entries (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		account_id INTEGER NOT NULL,
		date TEXT NOT NULL,
		type TEXT NOT NULL,
		symbol TEXT,
		quantity REAL,
		amount REAL NOT NULL,
		external_id TEXT,
		created_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP,
		FOREIGN KEY(account_id) REFERENCES accounts(id),
		UNIQUE(account_id, external_id)
	);

	CREATE INDEX IF NOT EXISTS idx_ledger_account_date ON ledger_entries(account_id, date);

	CREATE TABLE IF NOT EXISTS securities (
		symbol TEXT PRIMARY KEY,
		asset_class TEXT NOT NULL DEFAULT 'EQUITY',
		created_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP
	);

	CREATE TABLE IF NOT EXISTS subscriptions (
		user_id INTEGER PRIMARY KEY,
		tier TEXT NOT NULL DEFAULT 'free',
		updated_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP
	);
	`

	_, err = DB.Exec(createTableStatement)
	if err != nil {
		if logger.L != nil {
			logger.L.Error("failed to create tables", "error", err)
		}
		stdlog.Fatalf("failed to create tables: %v", err)
	}
	if logger.L != nil {
		logger.L.Info("Database tables ensured/created.")
	} else {
		stdlog.Println("Database tables ensured/created.")
	}
}

// migrateLedgerTable adds columns that older databases predate.
func migrateLedgerTable() {
	var tableName string
	err := DB.QueryRow("SELECT name FROM sqlite_master WHERE type='table' AND name='ledger_entries'").Scan(&tableName)
	if err != nil {
		if err == sql.ErrNoRows {
			// Table will be created with the full schema.
			return
		}
		if logger.L != nil {
			logger.L.Error("Error checking for 'ledger_entries' table", "error", err)
		} else {
			stdlog.Printf("Error checking for 'ledger_entries' table: %v", err)
		}
		return
	}

	columnExists := ledgerColumns()
	if columnExists == nil {
		return
	}

	if _, ok := columnExists["external_id"]; !ok {
		_, err := DB.Exec("ALTER TABLE ledger_entries ADD COLUMN external_id TEXT")
		if err != nil {
			logger.L.Error("Error adding 'external_id' column to 'ledger_entries' table", "error", err)
		} else {
			logger.L.Info("Added 'external_id' column to 'ledger_entries' table")
		}
	}
	if _, ok := columnExists["created_at"]; !ok {
		_, err := DB.Exec("ALTER TABLE ledger_entries ADD COLUMN created_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP")
		if err != nil {
			logger.L.Error("Error adding 'created_at' column to 'ledger_entries' table", "error", err)
		} else {
			logger.L.Info("Added 'created_at' column to 'ledger_entries' table")
		}
	}
}

func ledgerColumns() map[string]bool {
	rows, err := DB.Query("PRAGMA table_info(ledger_entries)")
	if err != nil {
		if logger.L != nil {
			logger.L.Error("Error querying table schema for 'ledger_entries'", "error", err)
		} else {
			stdlog.Printf("Error querying table schema for 'ledger_entries': %v", err)
		}
		return nil
	}
	defer rows.Close()

	columnExists := make(map[string]bool)
	for rows.Next() {
		var cid, pk int
		var name, dataType string
		var notnullVal int
		var dfltValue interface{}
		if err := rows.Scan(&cid, &name, &dataType, &notnullVal, &dfltValue, &pk); err != nil {
			if logger.L != nil {
				logger.L.Error("Error scanning column info for 'ledger_entries'", "error", err)
			} else {
				stdlog.Printf("Error scanning column info for 'ledger_entries': %v", err)
			}
			return nil
		}
		columnExists[name] = true
	}
	if err = rows.Err(); err != nil {
		if logger.L != nil {
			logger.L.Error("Error iterating over column info for 'ledger_entries'", "error", err)
		} else {
			stdlog.Printf("Error iterating over column info for 'ledger_entries': %v", err)
		}
		return nil
	}
	return columnExists
}
