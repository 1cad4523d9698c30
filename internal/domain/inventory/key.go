package inventory

import (
	"fmt"
	"time"

	"github.com/jhoicas/inventory-cost-etl/internal/domain/entity"
)

// DefaultSublot se usa cuando la fuente no informa sublote.
const DefaultSublot = "0"

// BuildKey genera la clave de identidad de un ítem en una fecha de valoración.
// Formato: item-sublote-área-fecha. Usar siempre esta función para que corridas repetidas
// sobre los mismos datos produzcan la misma clave.
func BuildKey(item, sublot, area string, date time.Time) string {
	if sublot == "" {
		sublot = DefaultSublot
	}
	return fmt.Sprintf("%s-%s-%s-%s", item, sublot, area, date.Format(entity.DateLayout))
}
