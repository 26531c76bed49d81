package ledger

import (
	"context"
	"database/sql"
	"database/sql/driver"
	_ "embed"
	"errors"
	"fmt"
	"net"
	"strings"

	"github.com/google/uuid"
	"github.com/lib/pq"
)

//go:embed schema.sql
var schemaSQL string

const migrationLockID int64 = 7243001

// Migrate creates the ledger tables. Concurrent callers serialize on an advisory lock.
func Migrate(ctx context.Context, db *sql.DB) error {
	conn, err := db.Conn(ctx)
	if err != nil {
		return mapError(err)
	}
	defer conn.Close()

	if _, err := conn.ExecContext(ctx, `SELECT pg_advisory_lock($1)`, migrationLockID); err != nil {
		return mapError(err)
	}
	defer conn.ExecContext(context.Background(), `SELECT pg_advisory_unlock($1)`, migrationLockID)

	if _, err := conn.ExecContext(ctx, schemaSQL); err != nil {
		return fmt.Errorf("ledger: migrate: %w", err)
	}
	return nil
}

type Postgres struct {
	db *sql.DB
}

func NewPostgres(db *sql.DB) *Postgres {
	return &Postgres{db: db}
}

func (p *Postgres) Deposit(ctx context.Context, userID string, amount int64) error {
	if amount <= 0 {
		return ErrInvalidTransfer
	}
	_, err := p.db.ExecContext(ctx, `
		INSERT INTO ledger_wallets (user_id, balance) VALUES ($1, $2)
		ON CONFLICT (user_id) DO UPDATE SET balance = ledger_wallets.balance + EXCLUDED.balance`,
		userID, amount,
	)
	return mapError(err)
}

func (p *Postgres) Balance(ctx context.Context, userID string) (int64, error) {
	var balance int64
	err := p.db.QueryRowContext(ctx, `SELECT balance FROM ledger_wallets WHERE user_id = $1`, userID).Scan(&balance)
	if errors.Is(err, sql.ErrNoRows) {
		return 0, nil
	}
	return balance, mapError(err)
}

func (p *Postgres) EscrowBalance(ctx context.Context, tableID string) (int64, error) {
	var balance int64
	err := p.db.QueryRowContext(ctx, `SELECT balance FROM ledger_table_escrow WHERE table_id = $1`, tableID).Scan(&balance)
	if errors.Is(err, sql.ErrNoRows) {
		return 0, nil
	}
	return balance, mapError(err)
}

func (p *Postgres) Transfer(ctx context.Context, req TransferRequest) (string, error) {
	if err := req.Validate(); err != nil {
		return "", err
	}

	id, err := p.transfer(ctx, req)
	if isUniqueViolation(err) {
		// lost a race against the same key or the same compensation
		if existing, lookupErr := p.lookupDuplicate(ctx, req); lookupErr == nil {
			return existing, ErrDuplicateKey
		}
		return "", ErrDuplicateKey
	}
	return id, err
}

func (p *Postgres) transfer(ctx context.Context, req TransferRequest) (string, error) {
	tx, err := p.db.BeginTx(ctx, nil)
	if err != nil {
		return "", mapError(err)
	}
	defer tx.Rollback()

	balance, err := p.lockAndReadBalance(ctx, tx, req.UserID)
	if err != nil {
		return "", err
	}

	var existing string
	err = tx.QueryRowContext(ctx, `SELECT id FROM ledger_transfers WHERE idempotency_key = $1`, req.Key).Scan(&existing)
	switch {
	case err == nil:
		return existing, ErrDuplicateKey
	case !errors.Is(err, sql.ErrNoRows):
		return "", mapError(err)
	}

	var superseding string
	err = tx.QueryRowContext(ctx, `SELECT id FROM ledger_transfers WHERE supersedes = $1`, req.Key).Scan(&superseding)
	switch {
	case err == nil:
		return "", ErrSuperseded
	case !errors.Is(err, sql.ErrNoRows):
		return "", mapError(err)
	}

	amount := req.Amount
	var reverse *Transfer
	apply := true

	if req.Supersedes != "" {
		var by string
		err = tx.QueryRowContext(ctx, `SELECT id FROM ledger_transfers WHERE supersedes = $1`, req.Supersedes).Scan(&by)
		switch {
		case err == nil:
			return by, ErrDuplicateKey
		case !errors.Is(err, sql.ErrNoRows):
			return "", mapError(err)
		}

		original := &Transfer{}
		err = tx.QueryRowContext(ctx, `
			SELECT id, kind, user_id, table_id, amount FROM ledger_transfers WHERE idempotency_key = $1`,
			req.Supersedes,
		).Scan(&original.ID, &original.Kind, &original.UserID, &original.TableID, &original.Amount)
		applied := err == nil
		if err != nil && !errors.Is(err, sql.ErrNoRows) {
			return "", mapError(err)
		}

		switch planCompensation(req.Kind, applied) {
		case compensateDuplicate:
			return original.ID, ErrDuplicateKey
		case compensateReverse:
			reverse = original
			amount = original.Amount
		case compensateApply:
			if req.Kind == KindRollbackJoin {
				apply = false
				amount = 0
			}
		}
	}

	switch {
	case reverse != nil:
		if err := p.moveFromEscrow(ctx, tx, reverse.TableID, reverse.UserID, reverse.Amount); err != nil {
			return "", err
		}
	case !apply:
	case req.Kind == KindBuyIn:
		if balance < amount {
			return "", ErrInsufficientFunds
		}
		if _, err := tx.ExecContext(ctx, `UPDATE ledger_wallets SET balance = balance - $2 WHERE user_id = $1`, req.UserID, amount); err != nil {
			return "", mapError(err)
		}
		if _, err := tx.ExecContext(ctx, `
			INSERT INTO ledger_table_escrow (table_id, balance) VALUES ($1, $2)
			ON CONFLICT (table_id) DO UPDATE SET balance = ledger_table_escrow.balance + EXCLUDED.balance`,
			req.TableID, amount,
		); err != nil {
			return "", mapError(err)
		}
	case req.Kind == KindCashOut || req.Kind == KindRefund:
		if err := p.moveFromEscrow(ctx, tx, req.TableID, req.UserID, amount); err != nil {
			return "", err
		}
	}

	id := uuid.New().String()
	var supersedes interface{}
	if req.Supersedes != "" {
		supersedes = req.Supersedes
	}

	if _, err := tx.ExecContext(ctx, `
		INSERT INTO ledger_transfers (id, idempotency_key, kind, user_id, table_id, amount, supersedes)
		VALUES ($1, $2, $3, $4, $5, $6, $7)`,
		id, req.Key, string(req.Kind), req.UserID, req.TableID, amount, supersedes,
	); err != nil {
		if isUniqueViolation(err) {
			return "", err
		}
		return "", mapError(err)
	}

	if err := tx.Commit(); err != nil {
		if isUniqueViolation(err) {
			return "", err
		}
		return "", mapError(err)
	}

	return id, nil
}

// lockAndReadBalance row-locks the wallet for the rest of the transaction.
func (p *Postgres) lockAndReadBalance(ctx context.Context, tx *sql.Tx, userID string) (int64, error) {
	if _, err := tx.ExecContext(ctx, `
		INSERT INTO ledger_wallets (user_id, balance) VALUES ($1, 0) ON CONFLICT (user_id) DO NOTHING`,
		userID,
	); err != nil {
		return 0, mapError(err)
	}

	var balance int64
	err := tx.QueryRowContext(ctx, `SELECT balance FROM ledger_wallets WHERE user_id = $1 FOR UPDATE`, userID).Scan(&balance)
	if err != nil {
		return 0, mapError(err)
	}
	return balance, nil
}

func (p *Postgres) moveFromEscrow(ctx context.Context, tx *sql.Tx, tableID, userID string, amount int64) error {
	res, err := tx.ExecContext(ctx, `
		UPDATE ledger_table_escrow SET balance = balance - $2 WHERE table_id = $1 AND balance >= $2`,
		tableID, amount,
	)
	if err != nil {
		return mapError(err)
	}
	if n, err := res.RowsAffected(); err != nil || n == 0 {
		return ErrInsufficientFunds
	}

	_, err = tx.ExecContext(ctx, `UPDATE ledger_wallets SET balance = balance + $2 WHERE user_id = $1`, userID, amount)
	return mapError(err)
}

func (p *Postgres) lookupDuplicate(ctx context.Context, req TransferRequest) (string, error) {
	var id string
	err := p.db.QueryRowContext(ctx, `SELECT id FROM ledger_transfers WHERE idempotency_key = $1`, req.Key).Scan(&id)
	if err == nil || req.Supersedes == "" {
		return id, err
	}
	err = p.db.QueryRowContext(ctx, `SELECT id FROM ledger_transfers WHERE supersedes = $1`, req.Supersedes).Scan(&id)
	return id, err
}

func isUniqueViolation(err error) bool {
	var pqErr *pq.Error
	return errors.As(err, &pqErr) && pqErr.Code == "23505"
}

// mapError turns connection-class failures into ErrUnavailable so callers retry them.
func mapError(err error) error {
	if err == nil {
		return nil
	}

	var pqErr *pq.Error
	if errors.As(err, &pqErr) {
		if strings.HasPrefix(string(pqErr.Code), "08") || pqErr.Code == "40001" || pqErr.Code == "40P01" {
			return fmt.Errorf("%w: %v", ErrUnavailable, err)
		}
		return err
	}

	var netErr net.Error
	if errors.Is(err, driver.ErrBadConn) || errors.Is(err, sql.ErrConnDone) ||
		errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled) ||
		errors.As(err, &netErr) {
		return fmt.Errorf("%w: %v", ErrUnavailable, err)
	}

	return err
}
