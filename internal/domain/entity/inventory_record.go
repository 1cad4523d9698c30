package entity

import (
	"time"

	"github.com/shopspring/decimal"
)

// DateLayout formato ISO con el que se expone la fecha de valoración.
const DateLayout = "2006-01-02"

// RawRow fila cruda del dashboard: caption de columna → valor textual tal como lo presenta la fuente.
type RawRow map[string]string

// InventoryRecord representa una fila de la tabla inventory_cost.
// Se construye en cada corrida a partir del estado actual del dashboard y no se muta tras construirse.
type InventoryRecord struct {
	Key            string
	GLGroup        *string
	Type           *string
	Qty            decimal.NullDecimal
	Unit           *string
	ActualUnitCost decimal.NullDecimal
	ActualValue    decimal.NullDecimal
	Date           *time.Time // solo fecha (medianoche UTC)
	Area           *string
	Item           *string
}

// DateString devuelve la fecha en formato ISO o "" si no hay fecha.
func (r InventoryRecord) DateString() string {
	if r.Date == nil {
		return ""
	}
	return r.Date.Format(DateLayout)
}

// StringValue devuelve el valor apuntado o "" si es nil.
func StringValue(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}
