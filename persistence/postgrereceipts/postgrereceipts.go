// Package postgrereceipts durably persists the receipt log to
// PostgreSQL, grounded on db.PostgresDB's pgxpool wrapper, narrowed
// from a generic Exec/Query/QueryRow surface to the two operations
// collab.PersistenceProvider needs for receipts: append and read-since.
package postgrereceipts

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/chatman-systems/workflowkernel/receipt"
)

const schema = `
CREATE TABLE IF NOT EXISTS kernel_receipts (
	seq          BIGINT PRIMARY KEY,
	ts           TIMESTAMPTZ NOT NULL,
	kind         TEXT NOT NULL,
	subject      TEXT NOT NULL,
	outcome      TEXT NOT NULL,
	ticks        INTEGER NOT NULL,
	signature    BYTEA,
	parent_id    BIGINT NOT NULL DEFAULT 0
);`

// Store persists receipt.Receipt rows to PostgreSQL via pgx.
type Store struct {
	pool *pgxpool.Pool
}

// Open connects to connString and ensures the receipts table exists.
func Open(ctx context.Context, connString string) (*Store, error) {
	pool, err := pgxpool.New(ctx, connString)
	if err != nil {
		return nil, fmt.Errorf("postgrereceipts: create connection pool: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("postgrereceipts: ping: %w", err)
	}
	if _, err := pool.Exec(ctx, schema); err != nil {
		pool.Close()
		return nil, fmt.Errorf("postgrereceipts: create schema: %w", err)
	}
	return &Store{pool: pool}, nil
}

func (s *Store) Close() { s.pool.Close() }

// AppendReceipt implements the receipt Sink this kernel's Log
// forwards to, and doubles as collab.PersistenceProvider.AppendReceipt.
func (s *Store) AppendReceipt(ctx context.Context, r receipt.Receipt) (uint64, error) {
	_, err := s.pool.Exec(ctx,
		`INSERT INTO kernel_receipts (seq, ts, kind, subject, outcome, ticks, signature, parent_id)
		 VALUES ($1,$2,$3,$4,$5,$6,$7,$8)
		 ON CONFLICT (seq) DO NOTHING`,
		r.Seq, r.Timestamp, string(r.Kind), r.Subject, r.Outcome, r.Ticks, r.Signature, r.ParentID,
	)
	return r.Seq, err
}

// Append adapts AppendReceipt to receipt.Sink (drops the returned seq,
// which the in-memory Log already assigned before forwarding).
func (s *Store) Append(r receipt.Receipt) error {
	_, err := s.AppendReceipt(context.Background(), r)
	return err
}

// ReadReceiptsSince returns every persisted receipt with Seq > since.
func (s *Store) ReadReceiptsSince(ctx context.Context, since uint64) ([]receipt.Receipt, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT seq, ts, kind, subject, outcome, ticks, signature, parent_id
		 FROM kernel_receipts WHERE seq > $1 ORDER BY seq ASC`, since)
	if err != nil {
		return nil, fmt.Errorf("postgrereceipts: query: %w", err)
	}
	defer rows.Close()

	var out []receipt.Receipt
	for rows.Next() {
		var r receipt.Receipt
		var kind string
		if err := rows.Scan(&r.Seq, &r.Timestamp, &kind, &r.Subject, &r.Outcome, &r.Ticks, &r.Signature, &r.ParentID); err != nil {
			return nil, fmt.Errorf("postgrereceipts: scan: %w", err)
		}
		r.Kind = receipt.Kind(kind)
		out = append(out, r)
	}
	return out, rows.Err()
}
