package postgres

import "context"

// inventoryCostDDL tabla destino del ETL; key es el único eje de resolución de conflictos.
const inventoryCostDDL = `
	CREATE TABLE IF NOT EXISTS inventory_cost (
		key              text NOT NULL PRIMARY KEY,
		gl_group         text,
		type             text,
		qty              real,
		unit             text,
		actual_unit_cost money,
		actual_value     money,
		date             date,
		area             text,
		item             text
	)`

// EnsureSchema crea inventory_cost si no existe. No altera una tabla existente.
func EnsureSchema(ctx context.Context, q Querier) error {
	if _, err := q.Exec(ctx, inventoryCostDDL); err != nil {
		return classifyError("ensure schema inventory_cost", err)
	}
	return nil
}
