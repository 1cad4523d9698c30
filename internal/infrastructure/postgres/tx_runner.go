package postgres

import (
	"context"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/jhoicas/inventory-cost-etl/internal/application/etl"
	"github.com/jhoicas/inventory-cost-etl/internal/domain/repository"
)

// Ensure TxRunner implements etl.TxRunner.
var _ etl.TxRunner = (*TxRunner)(nil)

// TxRunner ejecuta callbacks dentro de una transacción PostgreSQL.
type TxRunner struct {
	pool        *pgxpool.Pool
	pingTimeout time.Duration
}

// NewTxRunner construye el runner con el pool.
func NewTxRunner(pool *pgxpool.Pool, pingTimeout time.Duration) *TxRunner {
	return &TxRunner{pool: pool, pingTimeout: pingTimeout}
}

// Ping comprueba que la base de datos responde antes de iniciar la extracción.
func (r *TxRunner) Ping(ctx context.Context) error {
	return Ping(ctx, r.pool, r.pingTimeout)
}

// Run inicia una transacción, ejecuta fn con el repositorio atado a la tx y hace Commit o Rollback.
func (r *TxRunner) Run(ctx context.Context, fn func(repo repository.InventoryCostRepository) error) error {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return classifyError("begin transaction", err)
	}
	defer func() { _ = tx.Rollback(ctx) }()

	if err := fn(NewInventoryCostRepository(tx)); err != nil {
		return err
	}
	if err := tx.Commit(ctx); err != nil {
		return classifyError("commit transaction", err)
	}
	return nil
}
