// Package report renders ranked opportunity batches for human and machine
// consumption. The engine hands over structured records; all presentation
// lives here.
package report

import (
	"encoding/csv"
	"encoding/json"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/rotisserie/eris"
	"golang.org/x/text/language"
	"golang.org/x/text/message"

	"github.com/sells-group/opportunity-cli/internal/model"
)

// Format is a closed set of output formats.
type Format string

const (
	FormatTable    Format = "table"
	FormatMarkdown Format = "markdown"
	FormatCSV      Format = "csv"
	FormatJSON     Format = "json"
)

// ParseFormat validates a format name from a CLI flag.
func ParseFormat(s string) (Format, error) {
	switch Format(s) {
	case FormatTable, FormatMarkdown, FormatCSV, FormatJSON:
		return Format(s), nil
	}
	return "", eris.Errorf("report: unknown format %q (want table, markdown, csv, json)", s)
}

// usd formats dollar amounts with thousands separators.
var usd = message.NewPrinter(language.AmericanEnglish)

// Render writes the opportunities to w in the requested format.
func Render(w io.Writer, opportunities []model.Opportunity, format Format) error {
	switch format {
	case FormatTable:
		return renderTable(w, opportunities)
	case FormatMarkdown:
		return renderMarkdown(w, opportunities)
	case FormatCSV:
		return renderCSV(w, opportunities)
	case FormatJSON:
		return renderJSON(w, opportunities)
	}
	return eris.Errorf("report: unknown format %q", format)
}

func renderTable(w io.Writer, opps []model.Opportunity) error {
	if len(opps) == 0 {
		_, err := fmt.Fprintln(w, "no opportunities")
		return eris.Wrap(err, "report: write table")
	}

	const rowFmt = "%-5s %-20s %-28s %-12s %8s %12s %-8s\n"
	if _, err := fmt.Fprintf(w, rowFmt, "RANK", "CLIENT", "SCENARIO", "CATEGORY", "MATCH", "REVENUE", "PRIORITY"); err != nil {
		return eris.Wrap(err, "report: write table header")
	}
	for i := range opps {
		o := &opps[i]
		_, err := fmt.Fprintf(w, rowFmt,
			strconv.Itoa(o.Rank),
			truncate(o.ClientName, 20),
			truncate(o.ScenarioName, 28),
			truncate(o.Category, 12),
			fmt.Sprintf("%.1f", o.MatchScore),
			usd.Sprintf("$%.0f", o.EstimatedRevenue),
			string(o.Priority),
		)
		if err != nil {
			return eris.Wrap(err, "report: write table row")
		}
	}
	return nil
}

func renderMarkdown(w io.Writer, opps []model.Opportunity) error {
	var b strings.Builder
	b.WriteString("| Rank | Client | Scenario | Category | Match | Revenue | Priority |\n")
	b.WriteString("|------|--------|----------|----------|-------|---------|----------|\n")
	for i := range opps {
		o := &opps[i]
		b.WriteString(fmt.Sprintf("| %d | %s | %s | %s | %.1f | %s | %s |\n",
			o.Rank,
			escapePipes(o.ClientName),
			escapePipes(o.ScenarioName),
			escapePipes(o.Category),
			o.MatchScore,
			usd.Sprintf("$%.0f", o.EstimatedRevenue),
			o.Priority,
		))
	}
	_, err := io.WriteString(w, b.String())
	return eris.Wrap(err, "report: write markdown")
}

func renderCSV(w io.Writer, opps []model.Opportunity) error {
	cw := csv.NewWriter(w)
	header := []string{
		"rank", "client_id", "client_name", "scenario_id", "scenario_name",
		"category", "match_score", "criteria_met", "criteria_total",
		"estimated_revenue", "priority", "estimated_time_hours",
	}
	if err := cw.Write(header); err != nil {
		return eris.Wrap(err, "report: write CSV header")
	}
	for i := range opps {
		o := &opps[i]
		row := []string{
			strconv.Itoa(o.Rank),
			o.ClientID,
			o.ClientName,
			o.ScenarioID,
			o.ScenarioName,
			o.Category,
			strconv.FormatFloat(o.MatchScore, 'f', 2, 64),
			strconv.Itoa(o.CriteriaMet),
			strconv.Itoa(o.CriteriaTotal),
			strconv.FormatFloat(o.EstimatedRevenue, 'f', 2, 64),
			string(o.Priority),
			strconv.FormatFloat(o.EstimatedTimeHours, 'f', 1, 64),
		}
		if err := cw.Write(row); err != nil {
			return eris.Wrap(err, "report: write CSV row")
		}
	}
	cw.Flush()
	return eris.Wrap(cw.Error(), "report: flush CSV")
}

func renderJSON(w io.Writer, opps []model.Opportunity) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return eris.Wrap(enc.Encode(opps), "report: encode JSON")
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	if n <= 3 {
		return s[:n]
	}
	return s[:n-3] + "..."
}

func escapePipes(s string) string {
	return strings.ReplaceAll(s, "|", "\\|")
}
