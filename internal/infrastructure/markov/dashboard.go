package markov

import (
	"bytes"
	"encoding/json"
	"fmt"
	"sort"
	"strconv"
	"strings"

	"github.com/jhoicas/inventory-cost-etl/internal/domain"
	"github.com/jhoicas/inventory-cost-etl/internal/domain/entity"
)

// dashboardPayload respuesta de DashboardItemGetAction (solo lo que se consume).
// Las celdas de Slices[0].Data tienen como clave un arreglo JSON de índices, uno por columna,
// que apuntan a EncodeMaps[Columns[i].DataId]; -1 significa "sin valor".
type dashboardPayload struct {
	ItemData struct {
		DataStorageDTO struct {
			Slices []struct {
				Data map[string]json.RawMessage `json:"Data"`
			} `json:"Slices"`
			EncodeMaps map[string][]any `json:"EncodeMaps"`
		} `json:"DataStorageDTO"`
	} `json:"ItemData"`
	ViewModel struct {
		Columns []dashboardColumn `json:"Columns"`
	} `json:"ViewModel"`
}

type dashboardColumn struct {
	Caption string `json:"Caption"`
	DataID  string `json:"DataId"`
}

// DecodeDashboard convierte el JSON del grid en filas caption → valor textual.
// Las filas se devuelven ordenadas por su clave de celda para que la secuencia sea determinista.
func DecodeDashboard(body []byte) ([]entity.RawRow, error) {
	dec := json.NewDecoder(bytes.NewReader(body))
	dec.UseNumber()
	var payload dashboardPayload
	if err := dec.Decode(&payload); err != nil {
		return nil, fmt.Errorf("%w: decodificar dashboard: %w", domain.ErrRetrieval, err)
	}

	storage := payload.ItemData.DataStorageDTO
	columns := payload.ViewModel.Columns
	if len(storage.Slices) == 0 {
		return nil, fmt.Errorf("%w: el dashboard no contiene ItemData.DataStorageDTO.Slices", domain.ErrRetrieval)
	}
	if len(columns) == 0 {
		return nil, fmt.Errorf("%w: el dashboard no contiene ViewModel.Columns", domain.ErrRetrieval)
	}

	cells := storage.Slices[0].Data
	keys := make([]string, 0, len(cells))
	for k := range cells {
		if strings.HasPrefix(k, "[") {
			keys = append(keys, k)
		}
	}
	sort.Strings(keys)

	rows := make([]entity.RawRow, 0, len(keys))
	for _, k := range keys {
		var indexes []int
		if err := json.Unmarshal([]byte(k), &indexes); err != nil {
			continue
		}
		row := make(entity.RawRow, len(columns))
		for pos, idx := range indexes {
			if idx < 0 || pos >= len(columns) {
				continue
			}
			col := columns[pos]
			values, ok := storage.EncodeMaps[col.DataID]
			if !ok || idx >= len(values) {
				continue
			}
			row[col.Caption] = rawString(values[idx])
		}
		// celdas sin ninguna dimensión (totales generales)
		if len(row) == 0 {
			continue
		}
		rows = append(rows, row)
	}
	return rows, nil
}

func rawString(v any) string {
	switch t := v.(type) {
	case nil:
		return ""
	case string:
		return t
	case json.Number:
		return t.String()
	case bool:
		return strconv.FormatBool(t)
	default:
		return fmt.Sprint(t)
	}
}
