package postgres

import (
	"context"
	"errors"
	"fmt"
	"net"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"github.com/jhoicas/inventory-cost-etl/internal/domain"
)

// Querier operaciones comunes a *pgxpool.Pool y pgx.Tx; los repositorios aceptan cualquiera.
type Querier interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
	SendBatch(ctx context.Context, b *pgx.Batch) pgx.BatchResults
}

// classifyError traduce un error de pgx a la taxonomía del Loader:
// SQLSTATE 08/53/57 y fallos de red → domain.ErrConnection;
// SQLSTATE 22/23/42 (datos, integridad, sintaxis/tipos) → domain.ErrConstraint.
func classifyError(op string, err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, domain.ErrConnection) || errors.Is(err, domain.ErrConstraint) {
		return err
	}

	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		switch sqlStateClass(pgErr.Code) {
		case "08", "53", "57":
			return fmt.Errorf("%w: %s: %w", domain.ErrConnection, op, err)
		case "22", "23", "42":
			return fmt.Errorf("%w: %s: %w", domain.ErrConstraint, op, err)
		}
		return fmt.Errorf("%s: %w", op, err)
	}

	var connErr *pgconn.ConnectError
	var netErr net.Error
	if errors.As(err, &connErr) || errors.As(err, &netErr) || pgconn.Timeout(err) ||
		errors.Is(err, context.DeadlineExceeded) {
		return fmt.Errorf("%w: %s: %w", domain.ErrConnection, op, err)
	}
	return fmt.Errorf("%s: %w", op, err)
}

func sqlStateClass(code string) string {
	if len(code) < 2 {
		return ""
	}
	return code[:2]
}
