package testutil

import (
	"database/sql"
	"testing"

	_ "modernc.org/sqlite" // Test Package
)

// SetupTestDB creates an in-memory SQLite database for testing.
// The database is automatically cleaned up when the test completes.
//
// Example usage:
//
//	func TestSomething(t *testing.T) {
//	    db := testutil.SetupTestDB(t)
//	    // db is ready to use with schema created
//	}
func SetupTestDB(t *testing.T) *sql.DB {
	t.Helper()

	// In-memory database (destroyed when connection closes)
	db, err := sql.Open("sqlite", ":memory:")
	if err != nil {
		t.Fatalf("Failed to open test database: %v", err)
	}

	// The matcher and snapshot engine re-enter the same in-memory database
	// through transaction-scoped repositories; a second connection would see
	// a different empty database.
	db.SetMaxOpenConns(1)

	if err := db.Ping(); err != nil {
		t.Fatalf("Failed to ping test database: %v", err)
	}

	// Configure SQLite for testing
	pragmas := []string{
		"PRAGMA foreign_keys = ON",
		"PRAGMA journal_mode = MEMORY", // Faster for tests
	}

	for _, pragma := range pragmas {
		if _, err := db.Exec(pragma); err != nil {
			t.Fatalf("Failed to set pragma: %v", err)
		}
	}

	// Create schema
	if err := createTestSchema(db); err != nil {
		t.Fatalf("Failed to create test schema: %v", err)
	}

	// Cleanup when test ends
	t.Cleanup(func() {
		db.Close()
	})

	return db
}

// createTestSchema creates all database tables for testing.
// Schema is synchronized with the production migrations.
func createTestSchema(db *sql.DB) error {
	schema := `
		CREATE TABLE trading_account (
			id VARCHAR(36) NOT NULL PRIMARY KEY,
			name VARCHAR(100) NOT NULL,
			initial_capital TEXT NOT NULL,
			total_shares_issued BIGINT NOT NULL,
			current_nav TEXT NOT NULL,
			management_fee_rate TEXT NOT NULL,
			is_active BOOLEAN NOT NULL DEFAULT TRUE,
			created_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP,
			updated_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP
		);

		CREATE TABLE wallet (
			id VARCHAR(36) NOT NULL PRIMARY KEY,
			user_id VARCHAR(36) NOT NULL UNIQUE,
			balance TEXT NOT NULL,
			currency VARCHAR(3) NOT NULL DEFAULT 'USD',
			updated_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP
		);

		CREATE TABLE wallet_transaction (
			id VARCHAR(36) NOT NULL PRIMARY KEY,
			wallet_id VARCHAR(36) NOT NULL,
			type VARCHAR(40) NOT NULL,
			amount TEXT NOT NULL,
			balance_before TEXT NOT NULL,
			balance_after TEXT NOT NULL,
			description TEXT,
			reference_id VARCHAR(80),
			created_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP,
			FOREIGN KEY(wallet_id) REFERENCES wallet(id)
		);

		CREATE TABLE share_order (
			id VARCHAR(36) NOT NULL PRIMARY KEY,
			user_id VARCHAR(36) NOT NULL,
			trading_account_id VARCHAR(36) NOT NULL,
			side VARCHAR(4) NOT NULL,
			type VARCHAR(6) NOT NULL,
			quantity_ordered BIGINT NOT NULL,
			quantity_filled BIGINT NOT NULL DEFAULT 0,
			limit_price TEXT,
			average_fill_price TEXT,
			status VARCHAR(15) NOT NULL,
			created_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP,
			updated_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP,
			FOREIGN KEY(trading_account_id) REFERENCES trading_account(id)
		);

		CREATE INDEX idx_share_order_book
			ON share_order(trading_account_id, side, status, limit_price, created_at);

		CREATE TABLE share_trade (
			id VARCHAR(36) NOT NULL PRIMARY KEY,
			trading_account_id VARCHAR(36) NOT NULL,
			buy_order_id VARCHAR(36) NOT NULL,
			sell_order_id VARCHAR(36) NOT NULL,
			buyer_user_id VARCHAR(36) NOT NULL,
			seller_user_id VARCHAR(36) NOT NULL,
			quantity_traded BIGINT NOT NULL,
			trade_price TEXT NOT NULL,
			trade_date DATETIME NOT NULL,
			FOREIGN KEY(trading_account_id) REFERENCES trading_account(id),
			FOREIGN KEY(buy_order_id) REFERENCES share_order(id),
			FOREIGN KEY(sell_order_id) REFERENCES share_order(id)
		);

		CREATE TABLE share_portfolio (
			id VARCHAR(36) NOT NULL PRIMARY KEY,
			user_id VARCHAR(36) NOT NULL,
			trading_account_id VARCHAR(36) NOT NULL,
			quantity BIGINT NOT NULL DEFAULT 0,
			average_buy_price TEXT NOT NULL,
			last_updated_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP,
			FOREIGN KEY(trading_account_id) REFERENCES trading_account(id),
			CONSTRAINT unique_user_account UNIQUE (user_id, trading_account_id)
		);

		CREATE TABLE trading_account_snapshot (
			id VARCHAR(36) NOT NULL PRIMARY KEY,
			trading_account_id VARCHAR(36) NOT NULL,
			snapshot_date DATE NOT NULL,
			opening_nav TEXT NOT NULL,
			realized_pl TEXT NOT NULL,
			unrealized_pl TEXT NOT NULL,
			management_fee TEXT NOT NULL,
			profit_distributed TEXT NOT NULL,
			closing_nav TEXT NOT NULL,
			closing_share_price TEXT NOT NULL,
			created_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP,
			FOREIGN KEY(trading_account_id) REFERENCES trading_account(id),
			CONSTRAINT unique_account_date UNIQUE (trading_account_id, snapshot_date)
		);

		CREATE TABLE profit_distribution_log (
			id VARCHAR(36) NOT NULL PRIMARY KEY,
			snapshot_id VARCHAR(36) NOT NULL,
			trading_account_id VARCHAR(36) NOT NULL,
			user_id VARCHAR(36) NOT NULL,
			distribution_date DATE NOT NULL,
			shares_held BIGINT NOT NULL,
			profit_per_share TEXT NOT NULL,
			total_amount TEXT NOT NULL,
			wallet_transaction_id VARCHAR(36),
			created_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP,
			FOREIGN KEY(snapshot_id) REFERENCES trading_account_snapshot(id) DEFERRABLE INITIALLY DEFERRED,
			FOREIGN KEY(trading_account_id) REFERENCES trading_account(id),
			FOREIGN KEY(wallet_transaction_id) REFERENCES wallet_transaction(id)
		);

		CREATE TABLE ea_closed_trade (
			id VARCHAR(36) NOT NULL PRIMARY KEY,
			trading_account_id VARCHAR(36) NOT NULL,
			ea_ticket_id VARCHAR(40) NOT NULL,
			realized_pl TEXT NOT NULL,
			close_time DATETIME NOT NULL,
			is_processed BOOLEAN NOT NULL DEFAULT FALSE,
			FOREIGN KEY(trading_account_id) REFERENCES trading_account(id),
			CONSTRAINT unique_account_ticket UNIQUE (trading_account_id, ea_ticket_id)
		);

		CREATE TABLE ea_open_position (
			id VARCHAR(36) NOT NULL PRIMARY KEY,
			trading_account_id VARCHAR(36) NOT NULL,
			ea_ticket_id VARCHAR(40) NOT NULL,
			floating_pl TEXT NOT NULL,
			updated_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP,
			FOREIGN KEY(trading_account_id) REFERENCES trading_account(id),
			CONSTRAINT unique_open_position UNIQUE (trading_account_id, ea_ticket_id)
		);
	`

	_, err := db.Exec(schema)
	return err
}
