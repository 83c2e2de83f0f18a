package repository

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/RealZimboGuy/reviewflow/internal/config"
)

// placeholder returns the correct bind variable for the given index based on DB type.
// Postgres uses $1, $2... while MySQL and SQLite use ?
func placeholder(i int) string {
	db := config.GetSystemSettingString(config.DATABASE_TYPE)
	if db == config.DATABASE_TYPE_POSTGRES {
		return fmt.Sprintf("$%d", i)
	}
	return "?"
}

// placeholders returns n comma separated bind variables starting at index start.
func placeholders(start, n int) string {
	parts := make([]string, n)
	for i := range n {
		parts[i] = placeholder(start + i)
	}
	return strings.Join(parts, ", ")
}

func isMySQL() bool {
	return config.GetSystemSettingString(config.DATABASE_TYPE) == config.DATABASE_TYPE_MYSQL
}

func supportsReturning() bool {
	return config.GetSystemSettingString(config.DATABASE_TYPE) == config.DATABASE_TYPE_POSTGRES
}

// lockRowsClause locks the selected rows until the transaction ends. SQLite
// serializes writers itself and has no FOR UPDATE.
func lockRowsClause() string {
	if config.GetSystemSettingString(config.DATABASE_TYPE) == config.DATABASE_TYPE_SQLITE {
		return ""
	}
	return " FOR UPDATE"
}

// lockedWorkflowCount counts workflows while holding a lock that makes
// concurrent inserters wait for tx to end. Postgres needs a table lock since
// row locks do not cover rows inserted later.
func lockedWorkflowCount(ctx context.Context, tx *sql.Tx) (int, error) {
	query := `SELECT COUNT(*) FROM review_workflows`
	switch config.GetSystemSettingString(config.DATABASE_TYPE) {
	case config.DATABASE_TYPE_POSTGRES:
		if _, err := tx.ExecContext(ctx, `LOCK TABLE review_workflows IN SHARE ROW EXCLUSIVE MODE`); err != nil {
			return 0, fmt.Errorf("lock workflows: %w", err)
		}
	case config.DATABASE_TYPE_MYSQL:
		query += lockRowsClause()
	}
	var n int
	if err := tx.QueryRowContext(ctx, query).Scan(&n); err != nil {
		return 0, fmt.Errorf("count workflows: %w", err)
	}
	return n, nil
}

// upsertSuffix builds the dialect specific conflict clause that overwrites the
// given columns.
func upsertSuffix(conflict []string, update []string) string {
	sets := make([]string, len(update))
	if isMySQL() {
		for i, c := range update {
			sets[i] = fmt.Sprintf("%s = VALUES(%s)", c, c)
		}
		return " ON DUPLICATE KEY UPDATE " + strings.Join(sets, ", ")
	}
	for i, c := range update {
		sets[i] = fmt.Sprintf("%s = EXCLUDED.%s", c, c)
	}
	return " ON CONFLICT (" + strings.Join(conflict, ", ") + ") DO UPDATE SET " + strings.Join(sets, ", ")
}

func formatDateInDatabase(t time.Time) string {
	switch config.GetSystemSettingString(config.DATABASE_TYPE) {
	case config.DATABASE_TYPE_SQLITE:
		return t.UTC().Format("2006-01-02 15:04:05.000")
	case config.DATABASE_TYPE_MYSQL:
		return t.UTC().Format("2006-01-02 15:04:05.000000")
	}
	// PostgreSQL supports RFC3339
	return t.UTC().Format(time.RFC3339Nano)
}

// withTx runs fn inside a transaction, rolling back when fn fails.
func withTx(ctx context.Context, db *sql.DB, fn func(tx *sql.Tx) error) error {
	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	if err := fn(tx); err != nil {
		_ = tx.Rollback()
		return err
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit transaction: %w", err)
	}
	return nil
}
