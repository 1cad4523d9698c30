package inventory

import (
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/jhoicas/inventory-cost-etl/internal/domain"
	"github.com/jhoicas/inventory-cost-etl/internal/domain/entity"
)

// RowPolicy define qué hacer con una fila inválida.
type RowPolicy string

const (
	// PolicyAbort aborta la corrida completa ante la primera fila inválida (todo o nada).
	PolicyAbort RowPolicy = "abort"
	// PolicySkip descarta la fila, la reporta en Result.Skipped y continúa.
	PolicySkip RowPolicy = "skip"
)

// ParseRowPolicy valida el valor de configuración. Vacío equivale a PolicyAbort.
func ParseRowPolicy(s string) (RowPolicy, error) {
	switch RowPolicy(strings.ToLower(strings.TrimSpace(s))) {
	case "", PolicyAbort:
		return PolicyAbort, nil
	case PolicySkip:
		return PolicySkip, nil
	default:
		return "", fmt.Errorf("política de filas desconocida %q (abort|skip)", s)
	}
}

// FieldMap nombres de columna (caption) del dashboard para cada campo de entrada.
type FieldMap struct {
	Item        string
	Sublot      string
	Area        string
	Date        string
	Qty         string
	ActualValue string
	UnitCost    string
	GLGroup     string
	Type        string
	Unit        string
}

// DefaultFieldMap captions del grid de valoración de inventario del dashboard Markov.
func DefaultFieldMap() FieldMap {
	return FieldMap{
		Item:        "ItemCode",
		Sublot:      "Sublot",
		Area:        "Owner",
		Date:        "Date",
		Qty:         "Qty",
		ActualValue: "ActualValue",
		UnitCost:    "UnitCost",
		GLGroup:     "GLGroup",
		Type:        "Type",
		Unit:        "Unit",
	}
}

// Options configuración del Transformer.
type Options struct {
	Fields FieldMap
	// OwnerMap traduce el código crudo de propietario al nombre de área ("4" → "SHOTTYS").
	OwnerMap map[string]string
	// AllowedAreas si no está vacío, descarta las filas de otras áreas.
	AllowedAreas []string
	// ValuationDate si no es nil, descarta las filas de otras fechas.
	ValuationDate *time.Time
	Policy        RowPolicy
}

// RowError describe una fila rechazada. Unwrap devuelve domain.ErrTransform.
type RowError struct {
	Index  int
	Field  string
	Value  string
	Reason string
}

func (e *RowError) Error() string {
	return fmt.Sprintf("%s: fila %d, campo %s (%q): %s", domain.ErrTransform, e.Index, e.Field, e.Value, e.Reason)
}

func (e *RowError) Unwrap() error { return domain.ErrTransform }

// Result salida del Transformer.
type Result struct {
	Records  []entity.InventoryRecord
	Skipped  []*RowError // solo con PolicySkip
	Filtered int         // filas fuera de la fecha o de las áreas solicitadas
	Merged   int         // filas fusionadas en un registro existente
}

// Transformer convierte filas crudas en InventoryRecord con clave única, agregando duplicados.
type Transformer struct {
	opts    Options
	allowed map[string]struct{}
}

// NewTransformer construye el transformer. Campos vacíos de opts.Fields toman el valor por defecto.
func NewTransformer(opts Options) *Transformer {
	opts.Fields = withDefaults(opts.Fields)
	if opts.Policy == "" {
		opts.Policy = PolicyAbort
	}
	var allowed map[string]struct{}
	if len(opts.AllowedAreas) > 0 {
		allowed = make(map[string]struct{}, len(opts.AllowedAreas))
		for _, a := range opts.AllowedAreas {
			if n := NormalizeText(a); n != nil {
				allowed[*n] = struct{}{}
			}
		}
	}
	return &Transformer{opts: opts, allowed: allowed}
}

// Transform procesa todas las filas. Con PolicyAbort devuelve el primer *RowError;
// con PolicySkip lo acumula en Result.Skipped y sigue.
func (t *Transformer) Transform(rows []entity.RawRow) (Result, error) {
	var res Result
	byKey := make(map[string]int)

	for i, raw := range rows {
		rec, keep, rowErr := t.transformRow(i, raw)
		if rowErr != nil {
			if t.opts.Policy == PolicyAbort {
				return Result{}, rowErr
			}
			res.Skipped = append(res.Skipped, rowErr)
			continue
		}
		if !keep {
			res.Filtered++
			continue
		}

		if pos, ok := byKey[rec.Key]; ok {
			res.Records[pos] = Merge(res.Records[pos], rec)
			res.Merged++
			continue
		}
		byKey[rec.Key] = len(res.Records)
		res.Records = append(res.Records, rec)
	}
	return res, nil
}

// transformRow convierte una fila. keep=false indica que la fila quedó fuera por filtro.
func (t *Transformer) transformRow(i int, raw entity.RawRow) (entity.InventoryRecord, bool, *RowError) {
	f := t.opts.Fields
	row := indexRow(raw)
	fail := func(field, reason string) (entity.InventoryRecord, bool, *RowError) {
		return entity.InventoryRecord{}, false, &RowError{Index: i, Field: field, Value: row.get(field), Reason: reason}
	}

	rawDate := row.get(f.Date)
	if strings.TrimSpace(rawDate) == "" {
		return fail(f.Date, "requerido para la clave")
	}
	date, err := ParseDate(rawDate)
	if err != nil {
		return fail(f.Date, err.Error())
	}
	if t.opts.ValuationDate != nil && !sameDay(date, *t.opts.ValuationDate) {
		return entity.InventoryRecord{}, false, nil
	}

	area := t.mapOwner(NormalizeText(row.get(f.Area)))
	if area == nil {
		return fail(f.Area, "requerido para la clave")
	}
	if t.allowed != nil {
		if _, ok := t.allowed[*area]; !ok {
			return entity.InventoryRecord{}, false, nil
		}
	}

	item := NormalizeText(row.get(f.Item))
	if item == nil {
		return fail(f.Item, "requerido para la clave")
	}
	sublot := DefaultSublot
	if s := NormalizeText(row.get(f.Sublot)); s != nil {
		sublot = *s
	}

	qty, err := ParseDecimal(row.get(f.Qty))
	if err != nil {
		return fail(f.Qty, err.Error())
	}
	value, err := ParseDecimal(row.get(f.ActualValue))
	if err != nil {
		return fail(f.ActualValue, err.Error())
	}
	unitCost, err := ParseDecimal(row.get(f.UnitCost))
	if err != nil {
		return fail(f.UnitCost, err.Error())
	}
	if !value.Valid {
		value = ExtendedValue(qty, unitCost)
	}
	value = RoundMoney(value)

	rec := entity.InventoryRecord{
		Key:            BuildKey(*item, sublot, *area, date),
		GLGroup:        NormalizeText(row.get(f.GLGroup)),
		Type:           NormalizeText(row.get(f.Type)),
		Qty:            qty,
		Unit:           NormalizeText(row.get(f.Unit)),
		ActualUnitCost: UnitCost(value, qty, unitCost),
		ActualValue:    value,
		Date:           &date,
		Area:           area,
		Item:           item,
	}
	return rec, true, nil
}

func (t *Transformer) mapOwner(owner *string) *string {
	if owner == nil {
		return nil
	}
	if mapped, ok := t.opts.OwnerMap[*owner]; ok {
		return NormalizeText(mapped)
	}
	return owner
}

// Merge fusiona b en a (misma clave): suma Qty y ActualValue, recalcula el costo unitario como
// su cociente y completa los campos de texto nulos de a con los de b.
func Merge(a, b entity.InventoryRecord) entity.InventoryRecord {
	out := a
	out.Qty = addNull(a.Qty, b.Qty)
	out.ActualValue = RoundMoney(addNull(a.ActualValue, b.ActualValue))
	fallback := a.ActualUnitCost
	if !fallback.Valid {
		fallback = b.ActualUnitCost
	}
	out.ActualUnitCost = UnitCost(out.ActualValue, out.Qty, fallback)

	out.GLGroup = firstNonNil(a.GLGroup, b.GLGroup)
	out.Type = firstNonNil(a.Type, b.Type)
	out.Unit = firstNonNil(a.Unit, b.Unit)
	return out
}

func firstNonNil(a, b *string) *string {
	if a != nil {
		return a
	}
	return b
}

func sameDay(a, b time.Time) bool {
	ay, am, ad := a.Date()
	by, bm, bd := b.Date()
	return ay == by && am == bm && ad == bd
}

func withDefaults(f FieldMap) FieldMap {
	d := DefaultFieldMap()
	pick := func(v, def string) string {
		if v == "" {
			return def
		}
		return v
	}
	return FieldMap{
		Item:        pick(f.Item, d.Item),
		Sublot:      pick(f.Sublot, d.Sublot),
		Area:        pick(f.Area, d.Area),
		Date:        pick(f.Date, d.Date),
		Qty:         pick(f.Qty, d.Qty),
		ActualValue: pick(f.ActualValue, d.ActualValue),
		UnitCost:    pick(f.UnitCost, d.UnitCost),
		GLGroup:     pick(f.GLGroup, d.GLGroup),
		Type:        pick(f.Type, d.Type),
		Unit:        pick(f.Unit, d.Unit),
	}
}

// indexedRow fila con captions normalizados: "Unit Cost", "unit_cost" y "UnitCost" coinciden.
type indexedRow map[string]string

func indexRow(raw entity.RawRow) indexedRow {
	row := make(indexedRow, len(raw))
	for k, v := range raw {
		row[fieldKey(k)] = v
	}
	return row
}

func (r indexedRow) get(field string) string {
	return r[fieldKey(field)]
}

var fieldKeyReplacer = strings.NewReplacer(" ", "", "_", "", "-", "")

func fieldKey(s string) string {
	return strings.ToLower(fieldKeyReplacer.Replace(strings.TrimSpace(s)))
}

// ZeroIfNull devuelve el decimal o cero si es nulo (para totales de reporte).
func ZeroIfNull(v decimal.NullDecimal) decimal.Decimal {
	if !v.Valid {
		return decimal.Zero
	}
	return v.Decimal
}
