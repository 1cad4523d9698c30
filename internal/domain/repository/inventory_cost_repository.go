package repository

import (
	"context"

	"github.com/jhoicas/inventory-cost-etl/internal/domain/entity"
)

// InventoryCostRepository define el puerto de persistencia para la tabla inventory_cost (DIP).
type InventoryCostRepository interface {
	// UpsertMany inserta o sobrescribe (por key) todos los registros. No borra filas.
	// Devuelve el número de registros escritos.
	UpsertMany(ctx context.Context, records []entity.InventoryRecord) (int, error)

	// Get devuelve el registro almacenado para key, o nil si no existe.
	Get(ctx context.Context, key string) (*entity.InventoryRecord, error)
}
