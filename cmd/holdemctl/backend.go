package main

import (
	"context"
	"database/sql"
	"fmt"

	_ "github.com/lib/pq"
	"github.com/weedbox/holdemtable/config"
	"github.com/weedbox/holdemtable/ledger"
	"github.com/weedbox/holdemtable/store"
)

type wallet interface {
	ledger.Ledger
	ledger.Accounts
}

// backend is the ledger and store a command runs against.
type backend struct {
	ledger wallet
	store  store.Store
	db     *sql.DB
}

func openDB(ctx context.Context, dsn string) (*sql.DB, error) {
	db, err := sql.Open("postgres", dsn)
	if err != nil {
		return nil, fmt.Errorf("open postgres: %w", err)
	}
	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping postgres: %w", err)
	}
	return db, nil
}

func migrate(ctx context.Context, db *sql.DB) error {
	if err := ledger.Migrate(ctx, db); err != nil {
		return err
	}
	return store.Migrate(ctx, db)
}

func openBackend(ctx context.Context, cfg *config.Config) (*backend, error) {
	if cfg.Ledger.Driver == config.LedgerMemory {
		return &backend{
			ledger: ledger.NewMemory(),
			store:  store.NewMemory(),
		}, nil
	}

	db, err := openDB(ctx, cfg.Ledger.DSN)
	if err != nil {
		return nil, err
	}
	if err := migrate(ctx, db); err != nil {
		db.Close()
		return nil, err
	}

	return &backend{
		ledger: ledger.NewPostgres(db),
		store:  store.NewPostgres(db),
		db:     db,
	}, nil
}

func (b *backend) Close() error {
	if b.db == nil {
		return nil
	}
	return b.db.Close()
}
