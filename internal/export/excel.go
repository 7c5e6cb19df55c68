// Package export renders reservation reports as xlsx workbooks.
package export

import (
	"fmt"
	"io"
	"strings"
	"time"

	"rentcars/internal/models"

	"github.com/xuri/excelize/v2"
)

const (
	SheetName     = "Reservations"
	titleLayout   = "02.01.2006"
	createdLayout = "02.01.2006 15:04"
	headerRow     = 2
	firstDataRow  = 3
)

var columns = []struct {
	header string
	width  float64
}{
	{"ID", 38},
	{"Email", 28},
	{"Car", 24},
	{"Start", 12},
	{"End", 12},
	{"Days", 8},
	{"Total", 14},
	{"Created", 18},
}

// FileName is the attachment name for a report covering [from, to].
func FileName(from, to time.Time) string {
	return fmt.Sprintf("reservations_%s_to_%s.xlsx", from.Format(models.DateLayout), to.Format(models.DateLayout))
}

// WriteReservationsXLSX writes a single-sheet workbook with one row per reservation.
func WriteReservationsXLSX(w io.Writer, from, to time.Time, reservations []*models.Reservation) error {
	f := excelize.NewFile()
	defer f.Close()

	if err := f.SetSheetName("Sheet1", SheetName); err != nil {
		return fmt.Errorf("error renaming sheet: %w", err)
	}

	lastCol, _ := excelize.ColumnNumberToName(len(columns))

	// Заголовок периода
	_ = f.SetCellValue(SheetName, "A1", fmt.Sprintf("Период: %s - %s",
		from.UTC().Format(titleLayout), to.UTC().Format(titleLayout)))
	_ = f.MergeCell(SheetName, "A1", lastCol+"1")
	titleStyle, err := f.NewStyle(&excelize.Style{
		Font:      &excelize.Font{Bold: true, Size: 14},
		Alignment: &excelize.Alignment{Horizontal: "center"},
	})
	if err == nil {
		_ = f.SetCellStyle(SheetName, "A1", "A1", titleStyle)
	}

	headerStyle, err := f.NewStyle(&excelize.Style{
		Fill:      excelize.Fill{Type: "pattern", Color: []string{"#DDEBF7"}, Pattern: 1},
		Font:      &excelize.Font{Bold: true},
		Alignment: &excelize.Alignment{Horizontal: "center"},
	})
	if err != nil {
		return fmt.Errorf("error creating header style: %w", err)
	}

	for i, col := range columns {
		name, _ := excelize.ColumnNumberToName(i + 1)
		cell, _ := excelize.CoordinatesToCellName(i+1, headerRow)
		_ = f.SetCellValue(SheetName, cell, col.header)
		_ = f.SetColWidth(SheetName, name, name, col.width)
	}
	_ = f.SetCellStyle(SheetName, "A2", fmt.Sprintf("%s%d", lastCol, headerRow), headerStyle)

	for i, r := range reservations {
		row := firstDataRow + i
		values := []interface{}{
			r.ID,
			r.UserEmail,
			carLabel(r.Car),
			r.StartDate.UTC().Format(models.DateLayout),
			r.EndDate.UTC().Format(models.DateLayout),
			r.Days,
			r.Total,
			r.CreatedAt.UTC().Format(createdLayout),
		}
		cell, _ := excelize.CoordinatesToCellName(1, row)
		if err := f.SetSheetRow(SheetName, cell, &values); err != nil {
			return fmt.Errorf("error writing row %d: %w", row, err)
		}
	}

	if _, err := f.WriteTo(w); err != nil {
		return fmt.Errorf("error writing workbook: %w", err)
	}
	return nil
}

func carLabel(car *models.Car) string {
	if car == nil {
		return ""
	}
	return strings.TrimSpace(car.Brand + " " + car.Model)
}
