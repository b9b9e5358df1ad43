package database

import (
	"database/sql"
	stdlog "log"

	"github.com/username/optifolio/src/logger"
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
	migratePositionsTable()

	createTableStatement := `
	CREATE TABLE IF NOT EXISTS users (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		username TEXT NOT NULL UNIQUE,
		password TEXT NOT NULL,
		email TEXT NOT NULL UNIQUE,
		created_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP,
		updated_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP
	);

	CREATE TABLE IF NOT EXISTS sessions (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		user_id INTEGER NOT NULL,
		token TEXT NOT NULL,
		refresh_token TEXT NOT NULL,
		user_agent TEXT,
		client_ip TEXT,
		is_blocked BOOLEAN DEFAULT FALSE,
		expires_at TIMESTAMP,
		created_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP,
		FOREIGN KEY(user_id) REFERENCES users(id)
	);

	CREATE TABLE IF NOT EXISTS option_transactions (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		user_id INTEGER NOT NULL,
		date TEXT NOT NULL,
		ticker TEXT NOT NULL,
		expiration TEXT NOT NULL,
		strike TEXT NOT NULL,
		option_type TEXT NOT NULL,
		quantity INTEGER NOT NULL,
		price TEXT NOT NULL,
		amount TEXT NOT NULL,
		category TEXT NOT NULL,
		row_ref TEXT,
		hash_id TEXT,
		FOREIGN KEY(user_id) REFERENCES users(id),
		UNIQUE(user_id, hash_id)
	);

	CREATE TABLE IF NOT EXISTS stock_transactions (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		user_id INTEGER NOT NULL,
		date TEXT NOT NULL,
		ticker TEXT NOT NULL,
		quantity INTEGER NOT NULL,
		price TEXT NOT NULL,
		row_ref TEXT,
		hash_id TEXT,
		FOREIGN KEY(user_id) REFERENCES users(id),
		UNIQUE(user_id, hash_id)
	);

	CREATE TABLE IF NOT EXISTS positions (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		user_id INTEGER NOT NULL,
		canonical_key TEXT NOT NULL,
		group_label TEXT,
		last_txn_date TEXT,
		FOREIGN KEY(user_id) REFERENCES users(id),
		UNIQUE(user_id, canonical_key)
	);

	CREATE TABLE IF NOT EXISTS position_legs (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		position_id INTEGER NOT NULL,
		symbol TEXT NOT NULL,
		expiration TEXT,
		strike TEXT,
		leg_type TEXT NOT NULL,
		quantity INTEGER NOT NULL,
		avg_price TEXT NOT NULL,
		source_ref TEXT,
		FOREIGN KEY(position_id) REFERENCES positions(id) ON DELETE CASCADE
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

// migratePositionsTable backfills columns added after the first release.
func migratePositionsTable() {
	var tableName string
	err := DB.QueryRow("SELECT name FROM sqlite_master WHERE type='table' AND name='positions'").Scan(&tableName)
	if err != nil {
		if err == sql.ErrNoRows {
			if logger.L != nil {
				logger.L.Info("'positions' table does not exist, no migration needed as table will be created.")
			} else {
				stdlog.Println("'positions' table does not exist, no migration needed as table will be created.")
			}
			return
		}
		if logger.L != nil {
			logger.L.Error("Error checking for 'positions' table", "error", err)
		} else {
			stdlog.Printf("Error checking for 'positions' table: %v", err)
		}
		return
	}

	rows, err := DB.Query("PRAGMA table_info(positions)")
	if err != nil {
		if logger.L != nil {
			logger.L.Error("Error querying table schema for 'positions'", "error", err)
		} else {
			stdlog.Printf("Error querying table schema for 'positions': %v", err)
		}
		return
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
				logger.L.Error("Error scanning column info for 'positions'", "error", err)
			} else {
				stdlog.Printf("Error scanning column info for 'positions': %v", err)
			}
			return
		}
		columnExists[name] = true
	}
	if err = rows.Err(); err != nil {
		if logger.L != nil {
			logger.L.Error("Error iterating over column info for 'positions'", "error", err)
		} else {
			stdlog.Printf("Error iterating over column info for 'positions': %v", err)
		}
		return
	}

	if _, ok := columnExists["group_label"]; !ok {
		_, err := DB.Exec("ALTER TABLE positions ADD COLUMN group_label TEXT")
		if err != nil {
			logger.L.Error("Error adding 'group_label' column to 'positions' table", "error", err)
		} else {
			logger.L.Info("Added 'group_label' column to 'positions' table")
		}
	}
	if _, ok := columnExists["last_txn_date"]; !ok {
		_, err := DB.Exec("ALTER TABLE positions ADD COLUMN last_txn_date TEXT")
		if err != nil {
			logger.L.Error("Error adding 'last_txn_date' column to 'positions' table", "error", err)
		} else {
			logger.L.Info("Added 'last_txn_date' column to 'positions' table")
		}
	}
}
