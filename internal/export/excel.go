package export

import (
	"bytes"
	"fmt"

	"github.com/xuri/excelize/v2"

	"github.com/vicente3000/Sistema-de-sensores/internal/models"
)

// rollupHeader is the column layout of a history export.
var rollupHeader = []string{
	"Plant",
	"Sensor Type",
	"Day",
	"Min",
	"Avg",
	"Max",
	"Count",
}

// DailyRollupsToExcel renders daily rollups as an XLSX workbook for
// operators who want history outside the dashboard.
func DailyRollupsToExcel(rollups []models.DailyRollup) ([]byte, error) {
	f := excelize.NewFile()
	// WriteTo needs the file open, so Close only on the error paths

	sheetName := "Daily History"
	index, err := f.NewSheet(sheetName)
	if err != nil {
		f.Close()
		return nil, fmt.Errorf("failed to create sheet: %w", err)
	}
	f.DeleteSheet("Sheet1")
	f.SetActiveSheet(index)

	for col, title := range rollupHeader {
		cell, err := excelize.CoordinatesToCellName(col+1, 1)
		if err != nil {
			f.Close()
			return nil, fmt.Errorf("failed to build header cell: %w", err)
		}
		if err := f.SetCellValue(sheetName, cell, title); err != nil {
			f.Close()
			return nil, fmt.Errorf("failed to write header: %w", err)
		}
	}

	for i, rollup := range rollups {
		row := i + 2
		values := []interface{}{
			rollup.PlantID,
			rollup.SensorType,
			rollup.Day,
			floatOrEmpty(rollup.Min),
			floatOrEmpty(rollup.Avg),
			floatOrEmpty(rollup.Max),
			rollup.Count,
		}
		for col, v := range values {
			cell, err := excelize.CoordinatesToCellName(col+1, row)
			if err != nil {
				f.Close()
				return nil, fmt.Errorf("failed to build cell: %w", err)
			}
			if err := f.SetCellValue(sheetName, cell, v); err != nil {
				f.Close()
				return nil, fmt.Errorf("failed to write row %d: %w", row, err)
			}
		}
	}

	var buf bytes.Buffer
	if _, err := f.WriteTo(&buf); err != nil {
		f.Close()
		return nil, fmt.Errorf("failed to serialize workbook: %w", err)
	}
	if err := f.Close(); err != nil {
		return nil, fmt.Errorf("failed to close workbook: %w", err)
	}

	return buf.Bytes(), nil
}

// floatOrEmpty maps a nil summary value (empty day) to an empty cell.
func floatOrEmpty(f *float64) interface{} {
	if f == nil {
		return ""
	}
	return *f
}
