package export

import (
	"bytes"
	"fmt"

	"github.com/xuri/excelize/v2"
)

// XLSXExporter renders datasets into an Excel workbook, one sheet per
// dataset. Coordinators exchange timetables with the faculty office as
// spreadsheets, so this mirrors the CSV layout cell for cell.
type XLSXExporter struct{}

// NewXLSXExporter builds an XLSX exporter.
func NewXLSXExporter() *XLSXExporter {
	return &XLSXExporter{}
}

// Render produces a single-sheet workbook for the dataset.
func (e *XLSXExporter) Render(data Dataset, sheet string) ([]byte, error) {
	return e.RenderSheets(map[string]Dataset{sheet: data}, []string{sheet})
}

// RenderSheets produces a workbook with the named sheets in order.
func (e *XLSXExporter) RenderSheets(sheets map[string]Dataset, order []string) ([]byte, error) {
	if len(order) == 0 {
		return nil, fmt.Errorf("xlsx requires at least one sheet")
	}
	f := excelize.NewFile()
	defer f.Close() //nolint:errcheck

	for i, name := range order {
		data, ok := sheets[name]
		if !ok {
			return nil, fmt.Errorf("xlsx sheet %q has no dataset", name)
		}
		if len(data.Headers) == 0 {
			return nil, fmt.Errorf("xlsx sheet %q requires headers", name)
		}
		if i == 0 {
			if err := f.SetSheetName("Sheet1", name); err != nil {
				return nil, fmt.Errorf("rename sheet: %w", err)
			}
		} else {
			if _, err := f.NewSheet(name); err != nil {
				return nil, fmt.Errorf("add sheet %q: %w", name, err)
			}
		}

		header := make([]interface{}, len(data.Headers))
		for col, h := range data.Headers {
			header[col] = h
		}
		if err := f.SetSheetRow(name, "A1", &header); err != nil {
			return nil, fmt.Errorf("write xlsx headers: %w", err)
		}

		for rowIdx, row := range data.Rows {
			record := make([]interface{}, len(data.Headers))
			for col, h := range data.Headers {
				record[col] = row[h]
			}
			cell, err := excelize.CoordinatesToCellName(1, rowIdx+2)
			if err != nil {
				return nil, fmt.Errorf("xlsx cell name: %w", err)
			}
			if err := f.SetSheetRow(name, cell, &record); err != nil {
				return nil, fmt.Errorf("write xlsx row: %w", err)
			}
		}
	}

	buf := &bytes.Buffer{}
	if err := f.Write(buf); err != nil {
		return nil, fmt.Errorf("render xlsx: %w", err)
	}
	return buf.Bytes(), nil
}
