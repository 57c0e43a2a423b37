package report

import (
	"errors"
	"fmt"
	"io"
	"slices"
	"strconv"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"
	"github.com/goccy/go-json"
	"gopkg.in/yaml.v3"

	"github.com/rshade/commutesim/internal/engine"
)

// Format selects how a result is written.
type Format string

// Output formats.
const (
	FormatTable Format = "table"
	FormatJSON  Format = "json"
	FormatYAML  Format = "yaml"
)

// ParseFormat validates a format name.
func ParseFormat(s string) (Format, error) {
	switch f := Format(strings.ToLower(strings.TrimSpace(s))); f {
	case FormatTable, FormatJSON, FormatYAML:
		return f, nil
	case "":
		return FormatTable, nil
	default:
		return "", fmt.Errorf("unknown output format %q (want table, json or yaml)", s)
	}
}

// Options tune table output.
type Options struct {
	// Precision is the number of decimals shown for tonnes.
	Precision int
	// HideEquivalencies drops the equivalency line.
	HideEquivalencies bool
}

// Render writes res to w in the given format.
func Render(w io.Writer, res *engine.AggregateResult, format Format, opts Options) error {
	if res == nil {
		return errors.New("no result to render")
	}
	switch format {
	case FormatJSON:
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(res)
	case FormatYAML:
		enc := yaml.NewEncoder(w)
		enc.SetIndent(2)
		if err := enc.Encode(res); err != nil {
			return err
		}
		return enc.Close()
	case FormatTable, "":
		_, err := io.WriteString(w, RenderTable(lipgloss.NewRenderer(w), res, opts))
		return err
	default:
		return fmt.Errorf("unknown output format %q", format)
	}
}

// RenderTable renders the summary, the per-mode breakdown and equivalencies.
func RenderTable(r *lipgloss.Renderer, res *engine.AggregateResult, opts Options) string {
	st := NewStyles(r)
	var sb strings.Builder

	sb.WriteString(st.Header.Render("COMMUTE & WFH EMISSIONS"))
	sb.WriteString("\n")
	writeField(&sb, st, "Scenario", orDash(res.Scenario))
	writeField(&sb, st, "Factors", factorLabel(res))
	writeField(&sb, st, "Runs", strconv.Itoa(res.Runs))
	writeField(&sb, st, "Population", FormatNumber(int64(res.Population)))
	writeField(&sb, st, "Seed", strconv.FormatUint(res.Seed, 10))
	sb.WriteString("\n")

	sb.WriteString(summaryTable(st, res, opts.Precision))
	sb.WriteString("\n")

	if len(res.ByMode) > 0 {
		sb.WriteString("\n")
		sb.WriteString(st.Header.Render("BY MODE"))
		sb.WriteString("\n")
		sb.WriteString(modeTable(st, res, opts.Precision))
		sb.WriteString("\n")
	}

	if !res.Total.SpreadDefined {
		sb.WriteString(st.Muted.Render("Single run: spread is undefined and shown as n/a."))
		sb.WriteString("\n")
	}

	if !opts.HideEquivalencies {
		if eq, err := Calculate(res.Total.Mean); err == nil && !eq.Empty {
			sb.WriteString("\n")
			sb.WriteString(st.Label.Render(eq.Text))
			sb.WriteString("\n")
		}
	}

	return sb.String()
}

func summaryTable(st Styles, res *engine.AggregateResult, precision int) string {
	tonnes := func(v float64) string { return FormatFloat(v/KgPerTonne, precision) }
	kg := func(v float64) string { return FormatFloat(v, 1) }
	km := func(v float64) string { return FormatFloat(v, 0) }

	row := func(label string, s engine.Summary, f func(float64) string) []string {
		spread := "n/a"
		if s.SpreadDefined {
			spread = f(s.StdDev)
		}
		return []string{label, f(s.Mean), spread, f(s.P05), f(s.P50), f(s.P95)}
	}

	t := newTable(st, "", "Mean", "Std dev", "P05", "P50", "P95").Rows(
		row("Total (t CO2e)", res.Total, tonnes),
		row("Commute (t CO2e)", res.Commute, tonnes),
		row("WFH (t CO2e)", res.WFH, tonnes),
		row("  of which heating", res.Heating, tonnes),
		row("Per capita (kg CO2e)", res.PerCapita, kg),
		row("Distance (km)", res.DistanceKm, km),
	)
	return t.Render()
}

func modeTable(st Styles, res *engine.AggregateResult, precision int) string {
	names := make([]string, 0, len(res.ByMode))
	for name := range res.ByMode {
		names = append(names, name)
	}
	slices.Sort(names)

	t := newTable(st, "Mode", "Individuals", "Commute (t)", "WFH (t)", "Distance (km)")
	for _, name := range names {
		m := res.ByMode[name]
		t.Row(
			name,
			FormatFloat(m.Individuals.Mean, 1),
			FormatFloat(m.Commute.Mean/KgPerTonne, precision),
			FormatFloat(m.WFH.Mean/KgPerTonne, precision),
			FormatFloat(m.DistanceKm.Mean, 0),
		)
	}
	return t.Render()
}

func newTable(st Styles, headers ...string) *table.Table {
	return table.New().
		Border(lipgloss.NormalBorder()).
		BorderStyle(st.Border).
		Headers(headers...).
		StyleFunc(func(row, col int) lipgloss.Style {
			switch {
			case row == table.HeaderRow:
				return st.Header.Padding(0, 1)
			case col == 0:
				return st.Label.Padding(0, 1)
			default:
				return st.Cell.Align(lipgloss.Right)
			}
		})
}

func writeField(sb *strings.Builder, st Styles, label, value string) {
	sb.WriteString(st.Label.Render(fmt.Sprintf("%-12s", label)))
	sb.WriteString(st.Value.Render(value))
	sb.WriteString("\n")
}

func factorLabel(res *engine.AggregateResult) string {
	label := orDash(res.FactorTable)
	if len(res.FactorDigest) >= 12 {
		label += " (" + res.FactorDigest[:12] + ")"
	}
	return label
}

func orDash(s string) string {
	if s == "" {
		return "-"
	}
	return s
}
