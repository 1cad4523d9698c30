package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"

	"github.com/jhoicas/inventory-cost-etl/internal/domain/entity"
	"github.com/jhoicas/inventory-cost-etl/internal/domain/repository"
)

var _ repository.InventoryCostRepository = (*InventoryCostRepo)(nil)

// upsertInventoryCost inserta o sobrescribe todas las columnas no clave (ON CONFLICT por key).
// Los montos viajan como numeric y se convierten a money en el servidor.
const upsertInventoryCost = `
	INSERT INTO inventory_cost (
		key, gl_group, type, qty, unit,
		actual_unit_cost, actual_value, date, area, item
	)
	VALUES ($1, $2, $3, $4::numeric::real, $5, $6::numeric::money, $7::numeric::money, $8::date, $9, $10)
	ON CONFLICT (key)
	DO UPDATE SET
		gl_group         = EXCLUDED.gl_group,
		type             = EXCLUDED.type,
		qty              = EXCLUDED.qty,
		unit             = EXCLUDED.unit,
		actual_unit_cost = EXCLUDED.actual_unit_cost,
		actual_value     = EXCLUDED.actual_value,
		date             = EXCLUDED.date,
		area             = EXCLUDED.area,
		item             = EXCLUDED.item`

// InventoryCostRepo implementación de InventoryCostRepository sobre PostgreSQL.
type InventoryCostRepo struct {
	q Querier
}

// NewInventoryCostRepository construye el adaptador. Acepta pool o tx (Querier).
func NewInventoryCostRepository(q Querier) *InventoryCostRepo {
	return &InventoryCostRepo{q: q}
}

// UpsertMany envía todos los upserts en un único pgx.Batch. Usado dentro de TxRunner.Run,
// el primer error aborta la transacción y nada queda escrito.
func (r *InventoryCostRepo) UpsertMany(ctx context.Context, records []entity.InventoryRecord) (int, error) {
	if len(records) == 0 {
		return 0, nil
	}

	b := &pgx.Batch{}
	for _, rec := range records {
		b.Queue(upsertInventoryCost,
			rec.Key, rec.GLGroup, rec.Type, rec.Qty, rec.Unit,
			rec.ActualUnitCost, rec.ActualValue, rec.Date, rec.Area, rec.Item,
		)
	}

	br := r.q.SendBatch(ctx, b)
	for i, rec := range records {
		if _, err := br.Exec(); err != nil {
			_ = br.Close()
			return i, classifyError(fmt.Sprintf("upsert inventory_cost %q", rec.Key), err)
		}
	}
	if err := br.Close(); err != nil {
		return len(records), classifyError("close upsert batch", err)
	}
	return len(records), nil
}

// Get obtiene el registro almacenado por key; nil si no existe.
func (r *InventoryCostRepo) Get(ctx context.Context, key string) (*entity.InventoryRecord, error) {
	query := `
		SELECT key, gl_group, type, qty::numeric, unit,
		       actual_unit_cost::numeric, actual_value::numeric, date, area, item
		FROM inventory_cost WHERE key = $1`
	var rec entity.InventoryRecord
	err := r.q.QueryRow(ctx, query, key).Scan(
		&rec.Key, &rec.GLGroup, &rec.Type, &rec.Qty, &rec.Unit,
		&rec.ActualUnitCost, &rec.ActualValue, &rec.Date, &rec.Area, &rec.Item,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, classifyError("get inventory_cost", err)
	}
	return &rec, nil
}

// Count devuelve el número de filas de inventory_cost cuyas claves están en keys.
func (r *InventoryCostRepo) Count(ctx context.Context, keys []string) (int, error) {
	var n int
	err := r.q.QueryRow(ctx, `SELECT count(*) FROM inventory_cost WHERE key = ANY($1)`, keys).Scan(&n)
	if err != nil {
		return 0, classifyError("count inventory_cost", err)
	}
	return n, nil
}
