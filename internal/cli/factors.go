package cli

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"
	"github.com/spf13/cobra"

	"github.com/rshade/commutesim/internal/cli/pagination"
	"github.com/rshade/commutesim/internal/config"
	"github.com/rshade/commutesim/internal/factors"
	"github.com/rshade/commutesim/internal/report"
)

// NewFactorsListCmd creates the factors list command.
func NewFactorsListCmd() *cobra.Command {
	var (
		path     string
		output   string
		category string
		region   string
		page     pagination.Params
	)

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List emission factors",
		Long: `Lists the emission factor table used by evaluate: the built-in table, the
one named by engine.factors in the configuration, or --factors.`,
		Example: `  commutesim factors list
  commutesim factors list --category commute
  commutesim factors list --region united-kingdom -o csv > factors.csv
  commutesim factors list --sort value:desc --limit 10`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			t, err := loadFactors(config.GetGlobalConfig(), path)
			if err != nil {
				return withExitCode(err)
			}
			if err := page.Validate(); err != nil {
				return err
			}
			entries, err := pagination.NewFactorSorter().Sort(filterEntries(t.Entries(), category, region), page.Sort)
			if err != nil {
				return err
			}
			meta := pagination.NewMeta(page, len(entries))
			entries = pagination.Apply(page, entries)

			switch strings.ToLower(output) {
			case "", "table":
				cmd.Print(renderFactorTable(lipgloss.NewRenderer(cmd.OutOrStdout()), t.Name(), entries, meta))
				return nil
			case factors.FormatCSV, factors.FormatJSON, factors.FormatYAML:
				doc := factors.Document{Name: t.Name(), Factors: entries}
				return factors.EncodeDocument(cmd.OutOrStdout(), doc, strings.ToLower(output))
			default:
				return fmt.Errorf("unknown output format %q (want table, csv, json or yaml)", output)
			}
		},
	}

	cmd.Flags().StringVar(&path, "factors", "", "factor table to list instead of the default")
	cmd.Flags().StringVarP(&output, "output", "o", "table", "output format: table, csv, json or yaml")
	cmd.Flags().StringVar(&category, "category", "", "only list this category: commute, electricity or heating")
	cmd.Flags().StringVar(&region, "region", "", "only list factors that apply to this region")
	cmd.Flags().StringVar(&page.Sort, "sort", "", "sort by field[:asc|desc]: category, mode, subtype, region or value")
	cmd.Flags().IntVar(&page.Limit, "limit", 0, "show at most this many factors (0 for all)")
	cmd.Flags().IntVar(&page.Offset, "offset", 0, "skip this many factors")
	cmd.Flags().IntVar(&page.Page, "page", 0, "show this 1-based page, --limit factors per page")

	return cmd
}

func filterEntries(entries []factors.Entry, category, region string) []factors.Entry {
	out := entries[:0:0]
	for _, e := range entries {
		if category != "" && !strings.EqualFold(string(e.Category), category) {
			continue
		}
		if region != "" && e.Region != factors.AnyRegion && !strings.EqualFold(e.Region, region) {
			continue
		}
		out = append(out, e)
	}
	return out
}

func renderFactorTable(r *lipgloss.Renderer, name string, entries []factors.Entry, meta pagination.Meta) string {
	styles := report.NewStyles(r)

	t := table.New().
		Border(lipgloss.RoundedBorder()).
		BorderStyle(styles.Border).
		StyleFunc(func(row, _ int) lipgloss.Style {
			if row == table.HeaderRow {
				return styles.Header.Padding(0, 1)
			}
			return styles.Cell
		}).
		Headers("CATEGORY", "MODE", "SUBTYPE", "REGION", "VALUE", "UNIT")

	for _, e := range entries {
		t.Row(
			string(e.Category),
			dash(e.Mode),
			dash(e.Subtype),
			dash(e.Region),
			report.FormatFloat(e.Value, 5),
			e.Unit,
		)
	}

	var b strings.Builder
	b.WriteString(styles.Header.Render(name))
	b.WriteString("\n")
	b.WriteString(t.Render())
	b.WriteString("\n")
	summary := fmt.Sprintf("%d factors", meta.TotalItems)
	if meta.Shown < meta.TotalItems {
		summary = fmt.Sprintf("showing %d of %d factors", meta.Shown, meta.TotalItems)
	}
	if meta.TotalPages > 0 {
		summary += fmt.Sprintf(" (page %d of %d)", meta.CurrentPage, meta.TotalPages)
	}
	b.WriteString(styles.Muted.Render(summary))
	b.WriteString("\n")
	return b.String()
}

func dash(s string) string {
	if s == "" {
		return "-"
	}
	return s
}
