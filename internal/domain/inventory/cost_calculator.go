package inventory

import "github.com/shopspring/decimal"

// MoneyPlaces decimales que conservan los campos monetarios (columna money de PostgreSQL).
const MoneyPlaces = 2

// UnitCost calcula el costo unitario real como ActualValue / Qty (servicio de dominio).
// Si falta alguno de los operandos o la cantidad es cero, devuelve fallback.
func UnitCost(value, qty, fallback decimal.NullDecimal) decimal.NullDecimal {
	if !value.Valid || !qty.Valid || qty.Decimal.IsZero() {
		return RoundMoney(fallback)
	}
	return decimal.NewNullDecimal(value.Decimal.Div(qty.Decimal).Round(MoneyPlaces))
}

// ExtendedValue calcula Qty × UnitCost redondeado a centavos; nulo si falta un operando.
func ExtendedValue(qty, unitCost decimal.NullDecimal) decimal.NullDecimal {
	if !qty.Valid || !unitCost.Valid {
		return decimal.NullDecimal{}
	}
	return decimal.NewNullDecimal(qty.Decimal.Mul(unitCost.Decimal).Round(MoneyPlaces))
}

// RoundMoney redondea un valor monetario a MoneyPlaces; los nulos se devuelven tal cual.
func RoundMoney(v decimal.NullDecimal) decimal.NullDecimal {
	if !v.Valid {
		return v
	}
	return decimal.NewNullDecimal(v.Decimal.Round(MoneyPlaces))
}

// addNull suma dos valores anulables: nulo solo si ambos son nulos.
func addNull(a, b decimal.NullDecimal) decimal.NullDecimal {
	switch {
	case a.Valid && b.Valid:
		return decimal.NewNullDecimal(a.Decimal.Add(b.Decimal))
	case a.Valid:
		return a
	default:
		return b
	}
}
