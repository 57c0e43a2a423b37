package report

import (
	"fmt"
	"math"
	"strconv"
	"strings"

	"golang.org/x/text/language"
	"golang.org/x/text/message"
)

//nolint:gochecknoglobals // Global printer is idiomatic for x/text/message usage.
var printer = message.NewPrinter(language.English)

// FormatNumber formats an integer with thousand separators: 18248 -> "18,248".
func FormatNumber(n int64) string {
	return printer.Sprintf("%d", n)
}

// FormatFloat rounds f half away from zero to precision decimals and adds
// thousand separators: FormatFloat(1234.567, 2) -> "1,234.57".
func FormatFloat(f float64, precision int) string {
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return strconv.FormatFloat(f, 'f', -1, 64)
	}
	precision = max(precision, 0)
	scale := math.Pow10(precision)
	rounded := math.Round(math.Abs(f)*scale) / scale
	formatted := strconv.FormatFloat(rounded, 'f', precision, 64)

	intPart, frac, hasFrac := strings.Cut(formatted, ".")
	n, err := strconv.ParseInt(intPart, 10, 64)
	if err != nil {
		return strconv.FormatFloat(f, 'f', precision, 64)
	}

	var sb strings.Builder
	if f < 0 && strings.Trim(formatted, "0.") != "" {
		sb.WriteByte('-')
	}
	sb.WriteString(FormatNumber(n))
	if hasFrac {
		sb.WriteByte('.')
		sb.WriteString(frac)
	}
	return sb.String()
}

// FormatTonnes renders kg CO2e as tonnes: 391000 -> "391.0 t CO2e".
func FormatTonnes(kg float64, precision int) string {
	return FormatFloat(kg/KgPerTonne, precision) + " t CO2e"
}

// FormatKg renders kg CO2e: 391.25 -> "391.3 kg CO2e".
func FormatKg(kg float64, precision int) string {
	return FormatFloat(kg, precision) + " kg CO2e"
}

// FormatLarge abbreviates values from a million upwards: 1.5e9 -> "~1.5 billion".
func FormatLarge(n float64) string {
	switch {
	case n >= BillionThreshold:
		return fmt.Sprintf("~%.1f billion", n/BillionThreshold)
	case n >= LargeNumberThreshold:
		return fmt.Sprintf("~%.1f million", n/LargeNumberThreshold)
	default:
		return FormatNumber(int64(math.Round(n)))
	}
}
