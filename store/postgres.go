package store

import (
	"context"
	"database/sql"
	_ "embed"
	"errors"
	"fmt"
	"time"
)

var (
	//go:embed migrations/0001_init.up.sql
	migration0001Up string
)

const migrationLockID int64 = 7243002

func Migrate(ctx context.Context, db *sql.DB) error {
	if db == nil {
		return fmt.Errorf("store: nil database handle")
	}

	conn, err := db.Conn(ctx)
	if err != nil {
		return fmt.Errorf("store: acquire connection: %w", err)
	}
	defer conn.Close()

	if _, err := conn.ExecContext(ctx, `SELECT pg_advisory_lock($1)`, migrationLockID); err != nil {
		return fmt.Errorf("store: acquire migration lock: %w", err)
	}
	defer func() {
		_, _ = conn.ExecContext(context.Background(), `SELECT pg_advisory_unlock($1)`, migrationLockID)
	}()

	if _, err := conn.ExecContext(ctx, migration0001Up); err != nil {
		return fmt.Errorf("store: apply migration 0001_init.up.sql: %w", err)
	}
	return nil
}

type postgresStore struct {
	db *sql.DB
}

func NewPostgres(db *sql.DB) Store {
	return &postgresStore{db: db}
}

func (s *postgresStore) RecordBuyIn(ctx context.Context, record BuyInRecord) error {
	createdAt := record.CreatedAt
	if createdAt.IsZero() {
		createdAt = time.Now()
	}
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO table_buy_ins (idempotency_key, table_id, seat_id, user_id, amount, created_at)
		VALUES ($1, $2, $3, $4, $5, $6)
		ON CONFLICT (idempotency_key) DO NOTHING`,
		record.Key, record.TableID, record.SeatID, record.UserID, record.Amount, createdAt,
	)
	return err
}

func (s *postgresStore) ListBuyIns(ctx context.Context, tableID string) ([]BuyInRecord, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT idempotency_key, table_id, seat_id, user_id, amount, created_at
		FROM table_buy_ins WHERE table_id = $1 ORDER BY created_at`,
		tableID,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := make([]BuyInRecord, 0)
	for rows.Next() {
		var r BuyInRecord
		if err := rows.Scan(&r.Key, &r.TableID, &r.SeatID, &r.UserID, &r.Amount, &r.CreatedAt); err != nil {
			return nil, err
		}
		out = append(out, r)
	}
	return out, rows.Err()
}

func (s *postgresStore) SaveIntent(ctx context.Context, r IntentRecord) error {
	createdAt := r.CreatedAt
	if createdAt.IsZero() {
		createdAt = time.Now()
	}

	var validUntil interface{}
	if !r.ValidUntil.IsZero() {
		validUntil = r.ValidUntil
	}

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO settlement_intents (
			idempotency_key, kind, table_id, seat_id, user_id, amount, hand_no, supersedes,
			status, terminal, transfer_id, attempts, last_error, valid_until, created_at, updated_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, NOW())
		ON CONFLICT (idempotency_key) DO UPDATE SET
			status = EXCLUDED.status,
			terminal = EXCLUDED.terminal,
			transfer_id = EXCLUDED.transfer_id,
			attempts = EXCLUDED.attempts,
			last_error = EXCLUDED.last_error,
			updated_at = NOW()`,
		r.Key, r.Kind, r.TableID, r.SeatID, r.UserID, r.Amount, int64(r.HandNo), r.Supersedes,
		r.Status, r.Terminal, r.TransferID, r.Attempts, r.LastError, validUntil, createdAt,
	)
	return err
}

const intentColumns = `
	idempotency_key, kind, table_id, seat_id, user_id, amount, hand_no, supersedes,
	status, terminal, transfer_id, attempts, last_error, valid_until, created_at, updated_at`

func scanIntent(scan func(dest ...interface{}) error) (IntentRecord, error) {
	var r IntentRecord
	var handNo int64
	var validUntil sql.NullTime
	err := scan(
		&r.Key, &r.Kind, &r.TableID, &r.SeatID, &r.UserID, &r.Amount, &handNo, &r.Supersedes,
		&r.Status, &r.Terminal, &r.TransferID, &r.Attempts, &r.LastError, &validUntil, &r.CreatedAt, &r.UpdatedAt,
	)
	if err != nil {
		return IntentRecord{}, err
	}
	r.HandNo = uint64(handNo)
	if validUntil.Valid {
		r.ValidUntil = validUntil.Time
	}
	return r, nil
}

func (s *postgresStore) GetIntent(ctx context.Context, key string) (IntentRecord, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+intentColumns+` FROM settlement_intents WHERE idempotency_key = $1`, key)
	r, err := scanIntent(row.Scan)
	if errors.Is(err, sql.ErrNoRows) {
		return IntentRecord{}, ErrIntentNotFound
	}
	return r, err
}

func (s *postgresStore) ListIntents(ctx context.Context, tableID string) ([]IntentRecord, error) {
	return s.queryIntents(ctx, `SELECT `+intentColumns+` FROM settlement_intents WHERE table_id = $1 ORDER BY created_at`, tableID)
}

func (s *postgresStore) ListUnsettledIntents(ctx context.Context, tableID string) ([]IntentRecord, error) {
	return s.queryIntents(ctx, `SELECT `+intentColumns+` FROM settlement_intents WHERE table_id = $1 AND NOT terminal ORDER BY created_at`, tableID)
}

func (s *postgresStore) queryIntents(ctx context.Context, query string, args ...interface{}) ([]IntentRecord, error) {
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := make([]IntentRecord, 0)
	for rows.Next() {
		r, err := scanIntent(rows.Scan)
		if err != nil {
			return nil, err
		}
		out = append(out, r)
	}
	return out, rows.Err()
}

func (s *postgresStore) SaveButton(ctx context.Context, tableID string, seatID int) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO table_buttons (table_id, seat_id, updated_at) VALUES ($1, $2, NOW())
		ON CONFLICT (table_id) DO UPDATE SET seat_id = EXCLUDED.seat_id, updated_at = NOW()`,
		tableID, seatID,
	)
	return err
}

func (s *postgresStore) LoadButton(ctx context.Context, tableID string) (int, bool, error) {
	var seatID int
	err := s.db.QueryRowContext(ctx, `SELECT seat_id FROM table_buttons WHERE table_id = $1`, tableID).Scan(&seatID)
	if errors.Is(err, sql.ErrNoRows) {
		return 0, false, nil
	}
	if err != nil {
		return 0, false, err
	}
	return seatID, true, nil
}
