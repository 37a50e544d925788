package main

import (
	"fmt"
	"strings"

	"github.com/xuri/excelize/v2"

	"github.com/pmc-edu/results-portal/pkg/importer"
	"github.com/pmc-edu/results-portal/pkg/schema"
)

// readXLSXRows reads a worksheet into the same raw-row shape as a CSV file,
// so both formats flow through one reconciliation path. An empty sheet name
// selects the first worksheet.
func readXLSXRows(path, sheet string, sch schema.Schema) ([]importer.RawRow, error) {
	f, err := excelize.OpenFile(path)
	if err != nil {
		return nil, err
	}
	defer func() { _ = f.Close() }()

	if sheet == "" {
		sheet = f.GetSheetName(0)
	}
	records, err := f.GetRows(sheet)
	if err != nil {
		return nil, err
	}
	if len(records) == 0 {
		return nil, fmt.Errorf("missing header")
	}

	header := records[0]
	for i := range header {
		header[i] = strings.TrimSpace(header[i])
	}
	if err := requireHeader(header, sch.RequiredColumns(), sch.Columns()); err != nil {
		return nil, err
	}

	var rows []importer.RawRow
	for i, record := range records[1:] {
		rows = append(rows, rawRowFromRecord(header, record, i+2))
	}
	return rows, nil
}
