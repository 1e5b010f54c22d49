package postgres

import (
	"context"
	"fmt"
	"time"

	"points/internal/domain/point"
)

// TransactionLog implements point.TransactionLog for PostgreSQL.
// Record ids come from the point_histories BIGSERIAL.
type TransactionLog struct {
	db *DB
}

// NewTransactionLog creates a new PostgreSQL transaction log
func NewTransactionLog(db *DB) *TransactionLog {
	return &TransactionLog{db: db}
}

func (l *TransactionLog) Append(ctx context.Context, id point.AccountID, amount int64, typ point.TransactionType, ts time.Time) (point.TransactionRecord, error) {
	if !typ.Valid() {
		return point.TransactionRecord{}, fmt.Errorf("unknown transaction type %q", typ)
	}

	query := `
		INSERT INTO point_histories (account_id, amount, type, created_at)
		VALUES ($1, $2, $3, $4)
		RETURNING id, account_id, amount, type, created_at
	`

	var rec point.TransactionRecord
	err := l.db.QueryRowContext(ctx, query, int64(id), amount, string(typ), ts).Scan(
		&rec.ID, &rec.AccountID, &rec.Amount, &rec.Type, &rec.Timestamp,
	)
	if err != nil {
		return point.TransactionRecord{}, fmt.Errorf("failed to append history: %w", err)
	}
	return rec, nil
}

func (l *TransactionLog) ListByAccount(ctx context.Context, id point.AccountID) ([]point.TransactionRecord, error) {
	query := `
		SELECT id, account_id, amount, type, created_at
		FROM point_histories
		WHERE account_id = $1
		ORDER BY id ASC
	`

	rows, err := l.db.QueryContext(ctx, query, int64(id))
	if err != nil {
		return nil, fmt.Errorf("failed to list history: %w", err)
	}
	defer rows.Close()

	records := []point.TransactionRecord{}
	for rows.Next() {
		var rec point.TransactionRecord
		if err := rows.Scan(&rec.ID, &rec.AccountID, &rec.Amount, &rec.Type, &rec.Timestamp); err != nil {
			return nil, fmt.Errorf("failed to scan history: %w", err)
		}
		records = append(records, rec)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating history: %w", err)
	}
	return records, nil
}
