// Package sheet moves quote requests and catalog data between XLSX
// workbooks and the resolution pipeline.
package sheet

import (
	"strconv"
	"strings"

	"github.com/rotisserie/eris"
	"github.com/tealeg/xlsx/v2"

	"github.com/dtk-group/quote-engine/internal/catalog"
	"github.com/dtk-group/quote-engine/internal/model"
)

// Header aliases accepted for the quote request columns.
var queryColumns = map[string][]string{
	"part_number": {"part_number", "part number", "pn", "p/n"},
	"vendor":      {"vendor", "brand", "manufacturer"},
	"description": {"description", "desc"},
	"quantity":    {"quantity", "qty", "amount"},
}

// ReadQueries loads quote request rows from the first sheet of a
// workbook. The header row is matched case-insensitively against the
// known aliases; part number and quantity columns are required. Rows
// with an empty part number are skipped.
func ReadQueries(path string) ([]model.PartQuery, error) {
	f, err := xlsx.OpenFile(path)
	if err != nil {
		return nil, eris.Wrapf(err, "sheet: open %s", path)
	}
	if len(f.Sheets) == 0 {
		return nil, eris.Errorf("sheet: %s has no sheets", path)
	}
	rows := f.Sheets[0].Rows
	if len(rows) == 0 {
		return nil, eris.Errorf("sheet: %s is empty", path)
	}

	idx := map[string]int{}
	for i, cell := range rows[0].Cells {
		name := foldHeader(cell.String())
		for logical, aliases := range queryColumns {
			for _, a := range aliases {
				if name == foldHeader(a) {
					if _, taken := idx[logical]; !taken {
						idx[logical] = i
					}
				}
			}
		}
	}
	for _, required := range []string{"part_number", "quantity"} {
		if _, ok := idx[required]; !ok {
			return nil, eris.Errorf("sheet: %s: missing required column %q", path, required)
		}
	}

	col := func(name string) int {
		if i, ok := idx[name]; ok {
			return i
		}
		return -1
	}

	var queries []model.PartQuery
	for _, row := range rows[1:] {
		q := model.PartQuery{
			PartNumber:  cellAt(row, col("part_number")),
			Vendor:      cellAt(row, col("vendor")),
			Description: cellAt(row, col("description")),
			Quantity:    parseQuantity(cellAt(row, col("quantity"))),
		}
		if strings.TrimSpace(q.PartNumber) == "" {
			continue
		}
		queries = append(queries, q)
	}
	return queries, nil
}

// ReadCatalog loads one reference table from a workbook. The header must
// provide every logical column the kind declares; extra columns are
// ignored.
func ReadCatalog(path string, kind catalog.Kind) ([]catalog.Row, error) {
	spec := kind.Spec()

	f, err := xlsx.OpenFile(path)
	if err != nil {
		return nil, eris.Wrapf(err, "sheet: open %s", path)
	}
	if len(f.Sheets) == 0 {
		return nil, eris.Errorf("sheet: %s has no sheets", path)
	}
	rows := f.Sheets[0].Rows
	if len(rows) == 0 {
		return nil, eris.Errorf("sheet: %s is empty", path)
	}

	idx := map[string]int{}
	for i, cell := range rows[0].Cells {
		name := foldHeader(cell.String())
		if name != "" {
			if _, taken := idx[name]; !taken {
				idx[name] = i
			}
		}
	}
	var missing []string
	for _, col := range spec.Columns {
		if _, ok := idx[col]; !ok {
			missing = append(missing, col)
		}
	}
	if len(missing) > 0 {
		return nil, eris.Errorf("sheet: %s: catalog %s is missing columns %s",
			path, spec.Name, strings.Join(missing, ", "))
	}

	var out []catalog.Row
	for _, row := range rows[1:] {
		r := make(catalog.Row, len(spec.Columns))
		empty := true
		for _, col := range spec.Columns {
			v := cellAt(row, idx[col])
			if strings.TrimSpace(v) != "" {
				empty = false
			}
			r[col] = v
		}
		if empty {
			continue
		}
		out = append(out, r)
	}
	return out, nil
}

// foldHeader lowercases a header cell and collapses separators so
// "Part Number", "part_number" and "PART-NUMBER" all agree.
func foldHeader(s string) string {
	s = strings.ToLower(strings.TrimSpace(s))
	s = strings.ReplaceAll(s, " ", "_")
	s = strings.ReplaceAll(s, "-", "_")
	return s
}

func cellAt(row *xlsx.Row, i int) string {
	if i < 0 || i >= len(row.Cells) {
		return ""
	}
	return strings.TrimSpace(row.Cells[i].String())
}

// parseQuantity accepts integer and decimal spellings; anything else
// counts as zero, which the cost calculator treats as a no-op.
func parseQuantity(s string) int {
	s = strings.TrimSpace(s)
	if s == "" {
		return 0
	}
	if n, err := strconv.Atoi(s); err == nil {
		return n
	}
	if f, err := strconv.ParseFloat(strings.ReplaceAll(s, ",", "."), 64); err == nil {
		return int(f)
	}
	return 0
}
