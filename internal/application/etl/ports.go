package etl

import (
	"context"

	"github.com/jhoicas/inventory-cost-etl/internal/domain/entity"
	"github.com/jhoicas/inventory-cost-etl/internal/domain/repository"
)

// Extractor obtiene el listado crudo completo del dashboard para la corrida actual.
// Devuelve domain.ErrAuthentication o domain.ErrRetrieval; nunca un listado parcial.
type Extractor interface {
	Extract(ctx context.Context) ([]entity.RawRow, error)
}

// TxRunner ejecuta una función dentro de una transacción de BD, pasando el repositorio atado a esa tx.
// Garantiza que el lote completo se confirme o no se escriba nada.
type TxRunner interface {
	Ping(ctx context.Context) error
	Run(ctx context.Context, fn func(repo repository.InventoryCostRepository) error) error
}
