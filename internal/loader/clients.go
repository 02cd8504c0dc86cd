package loader

import (
	"encoding/csv"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/rotisserie/eris"
	"github.com/tealeg/xlsx/v2"

	"github.com/sells-group/opportunity-cli/internal/model"
)

// clientFile is the on-disk shape of a JSON/YAML client book.
type clientFile struct {
	Clients []model.Client `json:"clients" yaml:"clients"`
}

// LoadClients reads a client book from JSON, YAML, CSV, or XLSX by
// extension.
func LoadClients(path string) ([]model.Client, error) {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".csv":
		return loadClientsCSV(path)
	case ".xlsx":
		return loadClientsXLSX(path)
	default:
		var f clientFile
		if err := readAs(path, &f); err != nil {
			return nil, err
		}
		if len(f.Clients) == 0 {
			return nil, eris.Errorf("loader: no clients in %s", path)
		}
		return f.Clients, nil
	}
}

// loadClientsCSV reads a header-row CSV. Known columns map to the typed
// client fields; every other column lands in the extension map, numeric
// where it parses as a number.
func loadClientsCSV(path string) ([]model.Client, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, eris.Wrapf(err, "loader: open %s", path)
	}
	defer f.Close() //nolint:errcheck

	reader := csv.NewReader(f)
	reader.FieldsPerRecord = -1 // allow variable fields

	header, err := reader.Read()
	if err != nil {
		return nil, eris.Wrapf(err, "loader: read CSV header %s", path)
	}
	for i := range header {
		header[i] = strings.ToLower(strings.TrimSpace(header[i]))
	}

	var clients []model.Client
	for {
		record, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, eris.Wrapf(err, "loader: read CSV row %s", path)
		}
		clients = append(clients, clientFromRow(header, record))
	}
	if len(clients) == 0 {
		return nil, eris.Errorf("loader: no clients in %s", path)
	}
	return clients, nil
}

// loadClientsXLSX reads the first sheet of a workbook; the first row is the
// header, mapped exactly as for CSV.
func loadClientsXLSX(path string) ([]model.Client, error) {
	wb, err := xlsx.OpenFile(path)
	if err != nil {
		return nil, eris.Wrapf(err, "loader: open %s", path)
	}
	if len(wb.Sheets) == 0 || len(wb.Sheets[0].Rows) < 2 {
		return nil, eris.Errorf("loader: no client rows in %s", path)
	}
	sheet := wb.Sheets[0]

	var header []string
	for _, cell := range sheet.Rows[0].Cells {
		header = append(header, strings.ToLower(strings.TrimSpace(cell.Value)))
	}

	var clients []model.Client
	for _, row := range sheet.Rows[1:] {
		record := make([]string, len(header))
		for i := range header {
			if i < len(row.Cells) {
				record[i] = row.Cells[i].Value
			}
		}
		if strings.Join(record, "") == "" {
			continue
		}
		clients = append(clients, clientFromRow(header, record))
	}
	if len(clients) == 0 {
		return nil, eris.Errorf("loader: no clients in %s", path)
	}
	return clients, nil
}

// clientFromRow maps one header-aligned record to a client.
func clientFromRow(header, record []string) model.Client {
	var c model.Client
	for i, key := range header {
		if i >= len(record) {
			break
		}
		val := strings.TrimSpace(record[i])
		if val == "" {
			continue
		}
		switch key {
		case "id":
			c.ID = val
		case "name":
			c.Name = val
		case "age":
			c.Age = atoiOrZero(val)
		case "risk_tolerance":
			c.RiskTolerance = val
		case "investment_objective":
			c.InvestmentObjective = val
		case "time_horizon_years":
			c.TimeHorizonYears = atoiOrZero(val)
		case "annual_income":
			c.AnnualIncome = atofOrZero(val)
		case "net_worth":
			c.NetWorth = atofOrZero(val)
		case "portfolio_total_value", "portfolio.total_value":
			c.Portfolio.TotalValue = atofOrZero(val)
		default:
			if c.Extra == nil {
				c.Extra = make(map[string]any)
			}
			if f, err := strconv.ParseFloat(val, 64); err == nil {
				c.Extra[key] = f
			} else {
				c.Extra[key] = val
			}
		}
	}
	return c
}

func atoiOrZero(s string) int {
	n, _ := strconv.Atoi(s)
	return n
}

func atofOrZero(s string) float64 {
	f, _ := strconv.ParseFloat(s, 64)
	return f
}
