package etl

import (
	"sort"

	"github.com/shopspring/decimal"

	"github.com/jhoicas/inventory-cost-etl/internal/domain/entity"
	"github.com/jhoicas/inventory-cost-etl/internal/domain/inventory"
)

// AreaTotal totales de un área en el lote cargado.
type AreaTotal struct {
	Area    string
	Records int
	Qty     decimal.Decimal
	Value   decimal.Decimal
}

// SummarizeByArea agrupa los registros por área, ordenados por nombre de área.
func SummarizeByArea(records []entity.InventoryRecord) []AreaTotal {
	byArea := make(map[string]*AreaTotal)
	for _, r := range records {
		area := entity.StringValue(r.Area)
		t, ok := byArea[area]
		if !ok {
			t = &AreaTotal{Area: area}
			byArea[area] = t
		}
		t.Records++
		t.Qty = t.Qty.Add(inventory.ZeroIfNull(r.Qty))
		t.Value = t.Value.Add(inventory.ZeroIfNull(r.ActualValue))
	}

	out := make([]AreaTotal, 0, len(byArea))
	for _, t := range byArea {
		out = append(out, *t)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Area < out[j].Area })
	return out
}
