package station

import (
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/xuri/excelize/v2"

	"github.com/askwhyharsh/nearhelp/internal/location"
)

// Column layout: A name, B address, C latitude, D longitude. Row 1 is a header.
var excelHeader = []interface{}{"Name", "Address", "Latitude", "Longitude"}

func parseCoord(val string) (float64, error) {
	// Accept decimal commas
	val = strings.TrimSpace(strings.ReplaceAll(val, ",", "."))
	if val == "" {
		return 0, fmt.Errorf("empty")
	}
	return strconv.ParseFloat(val, 64)
}

// ReadExcelFile opens path and reads stations from sheet.
func ReadExcelFile(path, sheet string) ([]location.Station, error) {
	f, err := excelize.OpenFile(path)
	if err != nil {
		return nil, fmt.Errorf("open workbook %q: %w", path, err)
	}
	defer f.Close()

	return ReadSheet(f, sheet)
}

// ReadExcel reads stations from sheet of a workbook streamed from r.
func ReadExcel(r io.Reader, sheet string) ([]location.Station, error) {
	f, err := excelize.OpenReader(r)
	if err != nil {
		return nil, fmt.Errorf("open workbook: %w", err)
	}
	defer f.Close()

	return ReadSheet(f, sheet)
}

// ReadSheet skips the header row and blank rows; a row with a name but
// unparseable coordinates is an error rather than silently dropped.
func ReadSheet(f *excelize.File, sheet string) ([]location.Station, error) {
	rows, err := f.GetRows(sheet)
	if err != nil {
		return nil, fmt.Errorf("read sheet %q: %w", sheet, err)
	}

	var stations []location.Station
	for i, row := range rows {
		if i == 0 {
			continue
		}
		if len(row) == 0 || strings.TrimSpace(row[0]) == "" {
			continue
		}
		if len(row) < 4 {
			return nil, fmt.Errorf("sheet %q row %d: expected 4 columns, got %d", sheet, i+1, len(row))
		}

		lat, err := parseCoord(row[2])
		if err != nil {
			return nil, fmt.Errorf("sheet %q row %d: latitude: %w", sheet, i+1, err)
		}
		lon, err := parseCoord(row[3])
		if err != nil {
			return nil, fmt.Errorf("sheet %q row %d: longitude: %w", sheet, i+1, err)
		}

		stations = append(stations, location.Station{
			Name:       strings.TrimSpace(row[0]),
			Address:    strings.TrimSpace(row[1]),
			Coordinate: location.Coordinate{Lat: lat, Lon: lon},
		})
	}

	return stations, nil
}

// WriteExcel writes stations to w as a single-sheet workbook.
func WriteExcel(w io.Writer, stations []location.Station, sheet string) error {
	f := excelize.NewFile()
	defer f.Close()

	if _, err := f.NewSheet(sheet); err != nil {
		return err
	}

	sw, err := f.NewStreamWriter(sheet)
	if err != nil {
		return err
	}

	if err := sw.SetRow("A1", excelHeader); err != nil {
		return err
	}

	for i, s := range stations {
		cell, _ := excelize.CoordinatesToCellName(1, i+2)
		row := []interface{}{s.Name, s.Address, s.Coordinate.Lat, s.Coordinate.Lon}
		if err := sw.SetRow(cell, row); err != nil {
			return err
		}
	}

	if err := sw.Flush(); err != nil {
		return err
	}

	if sheet != "Sheet1" {
		if err := f.DeleteSheet("Sheet1"); err != nil {
			return err
		}
	}
	index, err := f.GetSheetIndex(sheet)
	if err != nil {
		return err
	}
	f.SetActiveSheet(index)

	_, err = f.WriteTo(w)
	return err
}
