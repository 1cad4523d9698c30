package inventory

import (
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"
	"golang.org/x/text/unicode/norm"
)

// dateLayouts formatos de fecha que presenta el dashboard (ISO, ISO con hora, formato US).
var dateLayouts = []string{
	"2006-01-02",
	"2006-01-02T15:04:05",
	"2006-01-02 15:04:05",
	time.RFC3339,
	"01/02/2006",
	"1/2/2006 3:04:05 PM",
	"1/2/2006 15:04:05",
	"1/2/2006",
}

var moneyReplacer = strings.NewReplacer("$", "", ",", "", " ", "", "\u00a0", "")

// NormalizeText recorta, normaliza a NFC y colapsa espacios internos. Vacío → nil.
func NormalizeText(raw string) *string {
	s := strings.Join(strings.Fields(norm.NFC.String(raw)), " ")
	if s == "" {
		return nil
	}
	return &s
}

// ParseDecimal convierte cantidades o montos ("$1,234.50", "(12.00)", "10") a decimal.
// Vacío → nulo sin error.
func ParseDecimal(raw string) (decimal.NullDecimal, error) {
	s := strings.TrimSpace(raw)
	if s == "" {
		return decimal.NullDecimal{}, nil
	}
	negative := false
	if strings.HasPrefix(s, "(") && strings.HasSuffix(s, ")") {
		negative = true
		s = s[1 : len(s)-1]
	}
	s = moneyReplacer.Replace(s)
	d, err := decimal.NewFromString(s)
	if err != nil {
		return decimal.NullDecimal{}, fmt.Errorf("número inválido %q", raw)
	}
	if negative {
		d = d.Neg()
	}
	return decimal.NewNullDecimal(d), nil
}

// ParseDate interpreta la fecha en cualquiera de los formatos conocidos y conserva solo el día
// calendario (medianoche UTC).
func ParseDate(raw string) (time.Time, error) {
	s := strings.TrimSpace(raw)
	for _, layout := range dateLayouts {
		t, err := time.Parse(layout, s)
		if err == nil {
			return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC), nil
		}
	}
	return time.Time{}, fmt.Errorf("fecha inválida %q", raw)
}
