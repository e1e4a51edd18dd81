package artifact

import (
	"encoding/csv"
	"math"
	"os"
	"strconv"

	"github.com/rotisserie/eris"
	"github.com/tealeg/xlsx/v2"
)

// ZoneRow is one line of the per-zone table: the zone id, its interpolated
// mean, and its outcome rate. Absent values are NaN and export as blanks.
type ZoneRow struct {
	ID   string
	Mean float64
	Rate float64
}

// WriteZoneCSV writes the zone table as CSV with a header row.
func WriteZoneCSV(rows []ZoneRow, path string) error {
	f, err := os.Create(path)
	if err != nil {
		return eris.Wrapf(err, "artifact: create csv %s", path)
	}
	defer func() { _ = f.Close() }()

	w := csv.NewWriter(f)
	if err := w.Write([]string{"GEOID10", "mean_nitrate", "canrate"}); err != nil {
		return eris.Wrap(err, "artifact: write csv header")
	}
	for _, r := range rows {
		if err := w.Write([]string{r.ID, formatFloat(r.Mean), formatFloat(r.Rate)}); err != nil {
			return eris.Wrap(err, "artifact: write csv row")
		}
	}
	w.Flush()
	if err := w.Error(); err != nil {
		return eris.Wrap(err, "artifact: flush csv")
	}
	return nil
}

// WriteZoneXLSX writes the same table as a spreadsheet.
func WriteZoneXLSX(rows []ZoneRow, path string) error {
	file := xlsx.NewFile()
	sheet, err := file.AddSheet("tracts")
	if err != nil {
		return eris.Wrap(err, "artifact: add xlsx sheet")
	}

	header := sheet.AddRow()
	for _, h := range []string{"GEOID10", "mean_nitrate", "canrate"} {
		header.AddCell().Value = h
	}
	for _, r := range rows {
		row := sheet.AddRow()
		row.AddCell().Value = r.ID
		addFloatCell(row, r.Mean)
		addFloatCell(row, r.Rate)
	}

	if err := file.Save(path); err != nil {
		return eris.Wrapf(err, "artifact: save xlsx %s", path)
	}
	return nil
}

func addFloatCell(row *xlsx.Row, v float64) {
	cell := row.AddCell()
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return
	}
	cell.SetFloat(v)
}

func formatFloat(v float64) string {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return ""
	}
	return strconv.FormatFloat(v, 'g', -1, 64)
}
