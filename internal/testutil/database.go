package testutil

import (
	"database/sql"
	"fmt"
	"os"
	"testing"

	_ "github.com/go-sql-driver/mysql"

	"avatarbook/internal/infrastructure/mysql"
)

const defaultTestDSN = "root:@tcp(localhost:3306)/avatarbook_test?parseTime=true&clientFoundRows=true"

// SetupTestDB opens the integration database named by TEST_MYSQL_DSN (or a
// local avatarbook_test schema) and skips the test when it is unreachable.
func SetupTestDB(t *testing.T) *sql.DB {
	dsn := os.Getenv("TEST_MYSQL_DSN")
	if dsn == "" {
		dsn = defaultTestDSN
	}

	db, err := sql.Open("mysql", dsn)
	if err != nil {
		t.Fatalf("failed to open test database: %v", err)
	}

	if err := db.Ping(); err != nil {
		db.Close()
		t.Skipf("test database not available: %v", err)
	}

	return db
}

// CleanupTestDB empties the tables in child-first order and closes db.
func CleanupTestDB(t *testing.T, db *sql.DB) {
	if db == nil {
		return
	}

	tables := []string{"VideoJobs", "Conversations", "Orders"}
	for _, table := range tables {
		_, err := db.Exec(fmt.Sprintf("DELETE FROM %s", table))
		if err != nil {
			t.Logf("failed to clean table %s: %v", table, err)
		}
	}

	db.Close()
}

// SetupTestTables applies the production schema.
func SetupTestTables(t *testing.T, db *sql.DB) {
	for _, stmt := range mysql.Statements() {
		if _, err := db.Exec(stmt); err != nil {
			t.Logf("failed to apply schema statement: %v", err)
		}
	}
}
